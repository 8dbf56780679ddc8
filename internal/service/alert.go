// 공유 알림 피드 비즈니스 로직 정의
//
// 처리 흐름 (Ingest):
//  1. 요청 검증 (summary 필수, CVSS 0~10, id는 UUID)
//  2. id/published 기본값 채움
//  3. 알림 저장소(Postgres 또는 Elasticsearch)에 저장
//  4. alerts/dashboard 캐시 무효화
//  5. 고객별 관련도 계산 후 알림 전송은 비동기로 진행

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ioc-radar/backend/internal/cache"
	"github.com/ioc-radar/backend/internal/config"
	"github.com/ioc-radar/backend/internal/metrics"
	"github.com/ioc-radar/backend/internal/model"
	"github.com/ioc-radar/backend/internal/relevance"
)

const (
	alertsCachePrefix    = "alerts"
	dashboardCachePrefix = "dashboard"
)

// alertStore - *db.Postgres, *client.Elasticsearch 공통 계약
type alertStore interface {
	ListAlerts(ctx context.Context, q model.AlertQuery) ([]model.Alert, error)
	GetAlert(ctx context.Context, id string) (*model.Alert, error)
	InsertAlert(ctx context.Context, alert model.Alert) error
	CountAlerts(ctx context.Context) (int, error)
}

// alertNotifier - 신규 알림을 고객에게 전달 (NotificationService)
type alertNotifier interface {
	NotifyAlert(ctx context.Context, alert model.Alert) (int, error)
}

// AlertService 구조체 정의
type AlertService struct {
	store    alertStore
	cache    cache.Store
	notifier alertNotifier
	cfg      config.DashboardConfig
	cacheTTL time.Duration
	log      *slog.Logger
	now      func() time.Time
	// notifyWait - 테스트에서 비동기 전송 완료를 기다릴 때 사용
	notifyWait func()
}

// AlertService 객체 생성
func NewAlertService(store alertStore, responseCache cache.Store, notifier alertNotifier, cfg config.DashboardConfig, cacheTTL time.Duration, logger *slog.Logger) *AlertService {
	if logger == nil {
		logger = slog.Default()
	}
	if responseCache == nil {
		responseCache = cache.NewMemory()
	}
	return &AlertService{
		store:    store,
		cache:    responseCache,
		notifier: notifier,
		cfg:      cfg,
		cacheTTL: cacheTTL,
		log:      logger,
		now:      time.Now,
	}
}

// List - 산업/기간 필터 후 최신순 페이지 반환
func (s *AlertService) List(ctx context.Context, filter model.AlertFilter) (*model.AlertListResponse, error) {
	r, err := relevance.ParseRange(filter.Range)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	industry := relevance.NormalizeIndustry(filter.Industry)
	pageSize := clampPageSize(s.cfg, filter.PageSize)
	page := max(filter.Page, 1)

	key := cache.Key(alertsCachePrefix, map[string]any{
		"industry": industry,
		"range":    string(r),
		"page":     page,
		"pageSize": pageSize,
	})
	if cached, ok := s.cachedAlertList(ctx, key); ok {
		return cached, nil
	}

	keywords, _ := relevance.IndustryKeywords(industry)
	now := s.now()
	alerts, err := s.store.ListAlerts(ctx, model.AlertQuery{
		Since:    r.Since(now),
		Keywords: keywords,
		Limit:    s.cfg.FetchLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	if len(keywords) > 0 {
		// 저장소는 부분 문자열로 거르므로 짧은 키워드는 단어 경계로 다시 확인
		alerts = slices.DeleteFunc(alerts, func(a model.Alert) bool {
			return !relevance.MatchesIndustry(a.Text(), industry)
		})
	}

	p := relevance.Paginate(relevance.FilterByRange(alerts, r, now), page, pageSize)
	resp := &model.AlertListResponse{
		Items: p.Items,
		Page:  pageInfo(p),
		Range: string(r),
	}

	if err := cache.SetJSON(ctx, s.cache, key, resp, s.cacheTTL); err != nil {
		s.log.Warn("failed to cache alert list", "key", key, "error", err)
	}
	return resp, nil
}

func (s *AlertService) cachedAlertList(ctx context.Context, key string) (*model.AlertListResponse, bool) {
	cached, ok, err := cache.GetJSON[model.AlertListResponse](ctx, s.cache, key)
	if err != nil {
		s.log.Warn("cache lookup failed", "key", key, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	return &cached, true
}

func (s *AlertService) Get(ctx context.Context, id string) (*model.Alert, error) {
	alert, err := s.store.GetAlert(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, mapStoreError(err)
	}
	return alert, nil
}

// Stats - 기간 내 심각도 분포, 일자별 추이, 정수 CVSS 분포
func (s *AlertService) Stats(ctx context.Context, rangeValue string) (*model.AlertStatsResponse, error) {
	r, err := relevance.ParseRange(rangeValue)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	key := cache.Key(alertsCachePrefix+":stats", map[string]any{"range": string(r)})
	if cached, ok, err := cache.GetJSON[model.AlertStatsResponse](ctx, s.cache, key); err == nil && ok {
		return &cached, nil
	}

	now := s.now()
	alerts, err := s.store.ListAlerts(ctx, model.AlertQuery{Since: r.Since(now), Limit: s.cfg.FetchLimit})
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	alerts = relevance.FilterByRange(alerts, r, now)

	resp := buildAlertStats(alerts, now.Location())
	if err := cache.SetJSON(ctx, s.cache, key, resp, s.cacheTTL); err != nil {
		s.log.Warn("failed to cache alert stats", "key", key, "error", err)
	}
	return resp, nil
}

func buildAlertStats(alerts []model.Alert, loc *time.Location) *model.AlertStatsResponse {
	resp := &model.AlertStatsResponse{
		Total:        len(alerts),
		Timeline:     []model.TimelinePoint{},
		Distribution: make([]model.ScoreBucket, 11),
	}
	for i := range resp.Distribution {
		resp.Distribution[i].Score = i
	}

	type dayAgg struct {
		count int
		sum   float64
	}
	days := map[string]*dayAgg{}

	for _, a := range alerts {
		resp.Severity.Add(a.CVSS)

		bucket := int(math.Floor(a.CVSS))
		bucket = min(max(bucket, 0), 10)
		resp.Distribution[bucket].Count++

		day := a.Published.In(loc).Format(time.DateOnly)
		agg, ok := days[day]
		if !ok {
			agg = &dayAgg{}
			days[day] = agg
		}
		agg.count++
		agg.sum += a.CVSS
	}

	for day, agg := range days {
		resp.Timeline = append(resp.Timeline, model.TimelinePoint{
			Date:    day,
			Count:   agg.count,
			AvgCVSS: math.Round(agg.sum/float64(agg.count)*100) / 100,
		})
	}
	sort.Slice(resp.Timeline, func(i, j int) bool {
		return resp.Timeline[i].Date < resp.Timeline[j].Date
	})
	return resp
}

// Ingest - 신규 알림 저장 후 캐시 무효화, 관련 고객 알림은 비동기 전송
func (s *AlertService) Ingest(ctx context.Context, req model.CreateAlertRequest) (*model.Alert, error) {
	alert, err := s.alertFromRequest(req)
	if err != nil {
		metrics.AlertsIngested.WithLabelValues("rejected").Inc()
		return nil, err
	}

	if err := s.store.InsertAlert(ctx, alert); err != nil {
		mapped := mapStoreError(err)
		if errors.Is(mapped, ErrConflict) {
			metrics.AlertsIngested.WithLabelValues("duplicate").Inc()
		} else {
			metrics.AlertsIngested.WithLabelValues("failed").Inc()
		}
		return nil, mapped
	}
	metrics.AlertsIngested.WithLabelValues("stored").Inc()
	s.log.Info("alert ingested", "alert_id", alert.ID, "cvss", alert.CVSS)

	s.invalidate(ctx, alertsCachePrefix+":")
	s.invalidate(ctx, dashboardCachePrefix+":")

	if s.notifier != nil {
		notifyCtx := context.WithoutCancel(ctx)
		go func() {
			if s.notifyWait != nil {
				defer s.notifyWait()
			}
			sent, err := s.notifier.NotifyAlert(notifyCtx, alert)
			if err != nil {
				s.log.Error("failed to notify clients", "alert_id", alert.ID, "error", err)
				return
			}
			s.log.Debug("alert notifications finished", "alert_id", alert.ID, "sent", sent)
		}()
	}
	return &alert, nil
}

func (s *AlertService) alertFromRequest(req model.CreateAlertRequest) (model.Alert, error) {
	summary := strings.TrimSpace(req.Summary)
	if summary == "" {
		return model.Alert{}, fmt.Errorf("%w: summary is required", ErrInvalidInput)
	}
	if math.IsNaN(req.CVSS) || req.CVSS < 0 || req.CVSS > 10 {
		return model.Alert{}, fmt.Errorf("%w: cvss must be between 0 and 10", ErrInvalidInput)
	}

	id := strings.TrimSpace(req.ID)
	if id == "" {
		id = uuid.NewString()
	} else if parsed, err := uuid.Parse(id); err != nil {
		return model.Alert{}, fmt.Errorf("%w: id must be a UUID", ErrInvalidInput)
	} else {
		id = parsed.String()
	}

	published := s.now()
	if req.Published != nil && !req.Published.IsZero() {
		published = *req.Published
	}

	return model.Alert{
		ID:          id,
		Summary:     summary,
		Description: strings.TrimSpace(req.Description),
		CVSS:        req.CVSS,
		Published:   published,
	}, nil
}

func (s *AlertService) invalidate(ctx context.Context, pattern string) {
	if _, err := s.cache.Invalidate(ctx, pattern); err != nil {
		s.log.Warn("cache invalidation failed", "pattern", pattern, "error", err)
	}
}

// clampPageSize - 0 이하는 기본값, 상한은 설정값 (최대 relevance.MaxPageSize)
func clampPageSize(cfg config.DashboardConfig, requested int) int {
	size := requested
	if size <= 0 {
		size = cfg.DefaultPageSize
	}
	if size <= 0 {
		size = relevance.DefaultPageSize
	}
	limit := cfg.MaxPageSize
	if limit <= 0 || limit > relevance.MaxPageSize {
		limit = relevance.MaxPageSize
	}
	return min(size, limit)
}

func pageInfo[T any](p relevance.Page[T]) model.PageInfo {
	return model.PageInfo{
		Page:       p.Page,
		PageSize:   p.PageSize,
		Total:      p.Total,
		TotalPages: p.TotalPages,
	}
}
