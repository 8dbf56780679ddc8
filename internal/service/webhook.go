package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ioc-radar/backend/internal/model"
)

// webhookRepo - DB 인터페이스
type webhookRepo interface {
	GetWebhookConfigs(ctx context.Context) ([]model.WebhookConfig, error)
	GetWebhookConfigByID(ctx context.Context, id int) (*model.WebhookConfig, error)
	CreateWebhookConfig(ctx context.Context, cfg model.WebhookConfig) (int, error)
	UpdateWebhookConfig(ctx context.Context, id int, cfg model.WebhookConfig) error
	DeleteWebhookConfig(ctx context.Context, id int) error
}

// webhookSender - *WebhookDeliveryService
type webhookSender interface {
	DeliverTo(ctx context.Context, cfg model.WebhookConfig, profile model.ClientProfile, scored model.ScoredAlert) error
}

// WebhookService - 웹훅 설정 비즈니스 로직
type WebhookService struct {
	db     webhookRepo
	sender webhookSender
	now    func() time.Time
}

func NewWebhookService(db webhookRepo, sender webhookSender) *WebhookService {
	return &WebhookService{db: db, sender: sender, now: time.Now}
}

func (s *WebhookService) ListWebhookConfigs(ctx context.Context) ([]model.WebhookConfig, error) {
	configs, err := s.db.GetWebhookConfigs(ctx)
	if err != nil {
		return nil, err
	}
	if configs == nil {
		configs = []model.WebhookConfig{}
	}
	return configs, nil
}

func (s *WebhookService) GetWebhookConfig(ctx context.Context, id int) (*model.WebhookConfig, error) {
	cfg, err := s.db.GetWebhookConfigByID(ctx, id)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return cfg, nil
}

func (s *WebhookService) CreateWebhookConfig(ctx context.Context, req model.WebhookConfigRequest) (int, error) {
	cfg, err := webhookFromRequest(req)
	if err != nil {
		return 0, err
	}
	return s.db.CreateWebhookConfig(ctx, cfg)
}

func (s *WebhookService) UpdateWebhookConfig(ctx context.Context, id int, req model.WebhookConfigRequest) error {
	cfg, err := webhookFromRequest(req)
	if err != nil {
		return err
	}
	return mapStoreError(s.db.UpdateWebhookConfig(ctx, id, cfg))
}

func (s *WebhookService) DeleteWebhookConfig(ctx context.Context, id int) error {
	return mapStoreError(s.db.DeleteWebhookConfig(ctx, id))
}

// TestWebhookConfig - 샘플 관련 알림을 렌더링해 설정된 엔드포인트로 한 번 전송
// enabled, min_score, client_ids 조건은 무시
func (s *WebhookService) TestWebhookConfig(ctx context.Context, id int) error {
	if s.sender == nil {
		return errors.New("webhook delivery is not configured")
	}
	cfg, err := s.GetWebhookConfig(ctx, id)
	if err != nil {
		return err
	}
	profile, scored := sampleNotification(s.now())
	if err := s.sender.DeliverTo(ctx, *cfg, profile, scored); err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return nil
}

func sampleNotification(now time.Time) (model.ClientProfile, model.ScoredAlert) {
	profile := model.ClientProfile{
		ID:               "00000000-0000-0000-0000-000000000000",
		CompanyName:      "IOC Radar",
		ContactName:      "Webhook Test",
		Industry:         "technology",
		SubscriptionPlan: "basic",
		IsActive:         true,
	}
	scored := model.ScoredAlert{
		Alert: model.Alert{
			ID:          "00000000-0000-0000-0000-000000000000",
			Summary:     "Test alert: Apache HTTP Server path traversal on 192.0.2.10",
			Description: "Sample notification sent from IOC Radar webhook settings.",
			CVSS:        9.8,
			Published:   now.UTC(),
		},
		RelevanceScore: 23,
		MatchedKeywords: []model.MatchedKeyword{
			{Category: "ip", Word: "192.0.2.10"},
			{Category: "server", Word: "apache"},
		},
	}
	return profile, scored
}

// webhookFromRequest - 요청 검증 후 저장용 설정으로 변환
// method 기본값 POST, enabled 기본값 true
func webhookFromRequest(req model.WebhookConfigRequest) (model.WebhookConfig, error) {
	rawURL := strings.TrimSpace(req.URL)
	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return model.WebhookConfig{}, fmt.Errorf("%w: url must be an absolute http(s) URL", ErrInvalidInput)
	}

	method := strings.ToUpper(strings.TrimSpace(req.Method))
	switch method {
	case "":
		method = http.MethodPost
	case http.MethodPost, http.MethodPut, http.MethodPatch:
	default:
		return model.WebhookConfig{}, fmt.Errorf("%w: unsupported method %q", ErrInvalidInput, req.Method)
	}

	if req.MinScore < 0 {
		return model.WebhookConfig{}, fmt.Errorf("%w: min_score must not be negative", ErrInvalidInput)
	}

	clientIDs, err := normalizeClientIDs(req.ClientIDs)
	if err != nil {
		return model.WebhookConfig{}, err
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	cfg := model.WebhookConfig{
		Name:      strings.TrimSpace(req.Name),
		URL:       rawURL,
		Method:    method,
		Body:      req.Body,
		MinScore:  req.MinScore,
		ClientIDs: clientIDs,
		Enabled:   enabled,
	}
	if req.Headers != nil {
		cfg.Headers = req.Headers
	} else {
		cfg.Headers = []model.WebhookHeader{}
	}
	return cfg, nil
}

// normalizeClientIDs - 고객 프로필 ID(UUID) 목록 정리, 중복 제거
func normalizeClientIDs(ids []string) ([]string, error) {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, raw := range ids {
		parsed, err := uuid.Parse(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("%w: client_ids must contain client profile UUIDs", ErrInvalidInput)
		}
		id := parsed.String()
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}
