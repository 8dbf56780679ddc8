// 개인화 대시보드
//
// 처리 흐름:
//  1. 사용자/쿼리별 캐시 확인
//  2. IOC, 알림, 고객 프로필을 동시에 조회 (소스별 timeout)
//     - 실패한 소스는 빈 목록으로 대체하고 degraded에 기록
//  3. IOC 키워드 추출 후 현재 scoring profile과 고객 산업으로 순위 계산
//  4. 기간 필터, 통계, 페이지네이션
//  5. degraded가 없을 때만 캐시 저장

package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ioc-radar/backend/internal/cache"
	"github.com/ioc-radar/backend/internal/config"
	"github.com/ioc-radar/backend/internal/db"
	"github.com/ioc-radar/backend/internal/metrics"
	"github.com/ioc-radar/backend/internal/model"
	"github.com/ioc-radar/backend/internal/relevance"
)

const (
	sourceIOCs    = "iocs"
	sourceAlerts  = "alerts"
	sourceProfile = "profile"
)

type alertLister interface {
	ListAlerts(ctx context.Context, q model.AlertQuery) ([]model.Alert, error)
}

type clientProfileReader interface {
	GetClientByUserID(ctx context.Context, userID int64) (*model.ClientProfile, error)
}

type DashboardService struct {
	iocs     iocLister
	alerts   alertLister
	clients  clientProfileReader
	profiles *relevance.ProfileStore
	cache    cache.Store
	cfg      config.DashboardConfig
	cacheTTL time.Duration
	log      *slog.Logger
	now      func() time.Time
}

func NewDashboardService(
	iocs iocLister,
	alerts alertLister,
	clients clientProfileReader,
	profiles *relevance.ProfileStore,
	responseCache cache.Store,
	cfg config.DashboardConfig,
	cacheTTL time.Duration,
	logger *slog.Logger,
) *DashboardService {
	if logger == nil {
		logger = slog.Default()
	}
	if responseCache == nil {
		responseCache = cache.NewMemory()
	}
	if profiles == nil {
		profiles = relevance.NewProfileStore(relevance.DefaultProfile())
	}
	return &DashboardService{
		iocs:     iocs,
		alerts:   alerts,
		clients:  clients,
		profiles: profiles,
		cache:    responseCache,
		cfg:      cfg,
		cacheTTL: cacheTTL,
		log:      logger,
		now:      time.Now,
	}
}

// dashboardCacheEndpoint - 사용자별 대시보드 캐시 키 접두사 ("dashboard:<id>")
func dashboardCacheEndpoint(userID int64) string {
	return fmt.Sprintf("%s:%d", dashboardCachePrefix, userID)
}

type dashboardSources struct {
	iocs     []model.IOC
	alerts   []model.Alert
	industry string
	degraded []string
}

func (s *DashboardService) Personalized(ctx context.Context, user *model.AuthUser, q model.DashboardQuery) (*model.DashboardResponse, error) {
	if user == nil {
		return nil, ErrUnauthorized
	}
	r, err := relevance.ParseRange(q.Range)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	page := max(q.Page, 1)
	pageSize := clampPageSize(s.cfg, q.PageSize)

	key := cache.Key(dashboardCacheEndpoint(user.ID), map[string]any{
		"range":    string(r),
		"page":     page,
		"pageSize": pageSize,
	})
	cached, ok, err := cache.GetJSON[model.DashboardResponse](ctx, s.cache, key)
	if err != nil {
		s.log.Warn("cache lookup failed", "key", key, "error", err)
	}
	if ok {
		return &cached, nil
	}

	now := s.now()
	src := s.fetch(ctx, user.ID, r.Since(now))

	started := time.Now()
	keywords := relevance.ExtractKeywords(src.iocs)
	ranked := s.profiles.Scorer().Rank(src.alerts, keywords, src.industry)
	ranked = relevance.FilterByRange(ranked, r, now)
	metrics.ScoringRuns.Inc()
	metrics.ScoringDuration.Observe(time.Since(started).Seconds())

	stats := model.DashboardStats{
		TotalIOCs:      len(src.iocs),
		TotalAlerts:    len(relevance.FilterByRange(src.alerts, r, now)),
		RelevantAlerts: len(ranked),
	}
	for _, a := range ranked {
		stats.Severity.Add(a.CVSS)
	}

	p := relevance.Paginate(ranked, page, pageSize)
	resp := &model.DashboardResponse{
		Items:    p.Items,
		Page:     pageInfo(p),
		Stats:    stats,
		Industry: src.industry,
		Range:    string(r),
		Degraded: src.degraded,
	}

	if len(src.degraded) == 0 {
		if err := cache.SetJSON(ctx, s.cache, key, resp, s.cacheTTL); err != nil {
			s.log.Warn("failed to cache dashboard", "key", key, "error", err)
		}
	}
	return resp, nil
}

// fetch - 세 소스를 동시에 조회, 실패/timeout은 빈 값으로 대체
func (s *DashboardService) fetch(ctx context.Context, userID int64, since time.Time) dashboardSources {
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		src      dashboardSources
		degraded = map[string]bool{}
	)
	fail := func(source string, err error) {
		metrics.DegradedFetches.WithLabelValues(source).Inc()
		s.log.Warn("dashboard source unavailable, using empty result",
			"source", source, "user_id", userID, "error", err)
		mu.Lock()
		degraded[source] = true
		mu.Unlock()
	}

	wg.Add(3)
	go func() {
		defer wg.Done()
		fetchCtx, cancel := s.fetchContext(ctx)
		defer cancel()
		iocs, err := s.iocs.ListIOCs(fetchCtx, userID)
		if err != nil {
			fail(sourceIOCs, err)
			return
		}
		src.iocs = iocs
	}()
	go func() {
		defer wg.Done()
		fetchCtx, cancel := s.fetchContext(ctx)
		defer cancel()
		alerts, err := s.alerts.ListAlerts(fetchCtx, model.AlertQuery{Since: since, Limit: s.cfg.FetchLimit})
		if err != nil {
			fail(sourceAlerts, err)
			return
		}
		src.alerts = alerts
	}()
	go func() {
		defer wg.Done()
		fetchCtx, cancel := s.fetchContext(ctx)
		defer cancel()
		profile, err := s.clients.GetClientByUserID(fetchCtx, userID)
		if err != nil {
			// 프로필이 없는 사용자(관리자 등)는 산업 가산점 없이 계산
			if !db.IsNoRows(err) {
				fail(sourceProfile, err)
			}
			return
		}
		src.industry = profile.Industry
	}()
	wg.Wait()

	if src.iocs == nil {
		src.iocs = []model.IOC{}
	}
	if src.alerts == nil {
		src.alerts = []model.Alert{}
	}
	for _, source := range []string{sourceIOCs, sourceAlerts, sourceProfile} {
		if degraded[source] {
			src.degraded = append(src.degraded, source)
		}
	}
	return src
}

func (s *DashboardService) fetchContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.FetchTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.cfg.FetchTimeout)
}
