package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ioc-radar/backend/internal/metrics"
	"github.com/ioc-radar/backend/internal/model"
	"github.com/ioc-radar/backend/internal/relevance"
)

type activeClientLister interface {
	ListActiveClients(ctx context.Context) ([]model.ClientProfile, error)
}

type iocLister interface {
	ListIOCs(ctx context.Context, userID int64) ([]model.IOC, error)
}

// slackNotifier - *client.SlackClient
type slackNotifier interface {
	IsConfigured() bool
	SendRelevantAlert(ctx context.Context, profile model.ClientProfile, scored model.ScoredAlert) error
}

// webhookDeliverer - *WebhookDeliveryService
type webhookDeliverer interface {
	Deliver(ctx context.Context, profile model.ClientProfile, scored model.ScoredAlert) int
}

// NotificationService - 신규 알림을 활성 고객별로 점수화해 관련 고객에게만 전송
type NotificationService struct {
	clients  activeClientLister
	iocs     iocLister
	profiles *relevance.ProfileStore
	slack    slackNotifier
	webhooks webhookDeliverer
	minScore int
	log      *slog.Logger
}

func NewNotificationService(
	clients activeClientLister,
	iocs iocLister,
	profiles *relevance.ProfileStore,
	slack slackNotifier,
	webhooks webhookDeliverer,
	minScore int,
	logger *slog.Logger,
) *NotificationService {
	if logger == nil {
		logger = slog.Default()
	}
	if profiles == nil {
		profiles = relevance.NewProfileStore(relevance.DefaultProfile())
	}
	return &NotificationService{
		clients:  clients,
		iocs:     iocs,
		profiles: profiles,
		slack:    slack,
		webhooks: webhooks,
		minScore: minScore,
		log:      logger,
	}
}

// NotifyAlert - 관련 고객 수를 반환
// 고객 한 명의 IOC 조회/전송 실패는 로그만 남기고 다음 고객으로 진행
func (s *NotificationService) NotifyAlert(ctx context.Context, alert model.Alert) (int, error) {
	clients, err := s.clients.ListActiveClients(ctx)
	if err != nil {
		return 0, fmt.Errorf("list active clients: %w", err)
	}

	scorer := s.profiles.Scorer()
	notified := 0
	for _, profile := range clients {
		iocs, err := s.iocs.ListIOCs(ctx, profile.UserID)
		if err != nil {
			s.log.Warn("failed to load client iocs", "user_id", profile.UserID, "error", err)
			continue
		}
		keywords := relevance.ExtractKeywords(iocs)
		if keywords.Empty() {
			continue
		}

		scored := scorer.Evaluate(alert, keywords, profile.Industry)
		if !scorer.Relevant(scored) || scored.RelevanceScore < s.minScore {
			continue
		}

		s.notifyClient(ctx, profile, scored)
		notified++
	}
	return notified, nil
}

func (s *NotificationService) notifyClient(ctx context.Context, profile model.ClientProfile, scored model.ScoredAlert) {
	if s.slack != nil && s.slack.IsConfigured() {
		if err := s.slack.SendRelevantAlert(ctx, profile, scored); err != nil {
			metrics.Notifications.WithLabelValues("slack", "failed").Inc()
			s.log.Warn("slack notification failed", "user_id", profile.UserID, "alert_id", scored.ID, "error", err)
		} else {
			metrics.Notifications.WithLabelValues("slack", "sent").Inc()
		}
	}
	if s.webhooks != nil {
		s.webhooks.Deliver(ctx, profile, scored)
	}
	s.log.Info("relevant alert notified",
		"user_id", profile.UserID, "alert_id", scored.ID, "score", scored.RelevanceScore)
}
