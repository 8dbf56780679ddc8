package service

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/ioc-radar/backend/internal/metrics"
	"github.com/ioc-radar/backend/internal/model"
	tmpl "github.com/ioc-radar/backend/internal/template"
)

// webhookConfigReader - DB 인터페이스 (delivery 전용)
type webhookConfigReader interface {
	GetEnabledWebhookConfigs(ctx context.Context) ([]model.WebhookConfig, error)
}

// WebhookDeliveryService - 사용자 설정 Webhook으로 관련 알림을 전송하는 서비스
type WebhookDeliveryService struct {
	configDB   webhookConfigReader
	httpClient *http.Client
	log        *slog.Logger
}

// NewWebhookDeliveryService 생성자
func NewWebhookDeliveryService(configDB webhookConfigReader, logger *slog.Logger) *WebhookDeliveryService {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookDeliveryService{
		configDB: configDB,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: logger,
	}
}

// Deliver - 활성화된 webhook config에 렌더링된 body를 HTTP로 전송
//
// Slack 전송과 독립적으로 동작하며 개별 config 실패 시 로그만 남기고 계속 진행
// 반환값은 성공한 전송 수
func (s *WebhookDeliveryService) Deliver(ctx context.Context, profile model.ClientProfile, scored model.ScoredAlert) int {
	configs, err := s.configDB.GetEnabledWebhookConfigs(ctx)
	if err != nil {
		s.log.Error("failed to load webhook configs", "error", err)
		return 0
	}
	if len(configs) == 0 {
		return 0
	}

	delivered := 0
	for _, cfg := range configs {
		if !cfg.Enabled || cfg.URL == "" {
			continue
		}
		if scored.RelevanceScore < cfg.MinScore || !targetsClient(cfg, profile) {
			continue
		}

		if err := s.DeliverTo(ctx, cfg, profile, scored); err != nil {
			metrics.Notifications.WithLabelValues("webhook", "failed").Inc()
			s.log.Warn("webhook delivery failed",
				"config_id", cfg.ID, "url", cfg.URL, "alert_id", scored.ID, "error", err)
			continue
		}
		metrics.Notifications.WithLabelValues("webhook", "sent").Inc()
		s.log.Info("webhook delivered", "config_id", cfg.ID, "alert_id", scored.ID, "client", profile.CompanyName)
		delivered++
	}
	return delivered
}

// DeliverTo - 단일 config의 body 템플릿을 렌더링해 전송 (필터 조건 없음)
func (s *WebhookDeliveryService) DeliverTo(ctx context.Context, cfg model.WebhookConfig, profile model.ClientProfile, scored model.ScoredAlert) error {
	clientData := tmpl.ClientDataFromProfile(profile)
	alertData := tmpl.AlertDataFromScored(scored)
	return s.sendHTTP(ctx, cfg, tmpl.RenderBody(cfg.Body, &clientData, &alertData))
}

// targetsClient - client_ids가 비어 있으면 모든 고객 대상
func targetsClient(cfg model.WebhookConfig, profile model.ClientProfile) bool {
	if len(cfg.ClientIDs) == 0 {
		return true
	}
	return slices.Contains(cfg.ClientIDs, profile.ID)
}

// sendHTTP - 단일 webhook config로 HTTP 요청 전송
func (s *WebhookDeliveryService) sendHTTP(ctx context.Context, cfg model.WebhookConfig, body string) error {
	req, err := http.NewRequestWithContext(ctx, cfg.Method, cfg.URL, bytes.NewBufferString(body))
	if err != nil {
		return err
	}

	// Content-Type 기본값 application/json
	hasContentType := false
	for _, h := range cfg.Headers {
		if h.Key == "" {
			continue
		}
		req.Header.Set(h.Key, h.Value)
		if http.CanonicalHeaderKey(h.Key) == "Content-Type" {
			hasContentType = true
		}
	}
	if !hasContentType {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
