package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ioc-radar/backend/internal/cache"
	"github.com/ioc-radar/backend/internal/client"
	"github.com/ioc-radar/backend/internal/config"
	"github.com/ioc-radar/backend/internal/db"
	"github.com/ioc-radar/backend/internal/logger"
	"github.com/ioc-radar/backend/internal/model"
	"github.com/ioc-radar/backend/internal/relevance"
	"github.com/ioc-radar/backend/internal/service"
)

// alertFeed - 공유 알림 피드 저장소 (*db.Postgres 또는 *client.Elasticsearch)
type alertFeed interface {
	ListAlerts(ctx context.Context, q model.AlertQuery) ([]model.Alert, error)
	GetAlert(ctx context.Context, id string) (*model.Alert, error)
	InsertAlert(ctx context.Context, alert model.Alert) error
	CountAlerts(ctx context.Context) (int, error)
}

// app - 명령 공통 의존성 (설정, 로거, 저장소, 캐시)
type app struct {
	cfg     config.Config
	log     *slog.Logger
	pg      *db.Postgres
	es      *client.Elasticsearch
	feed    alertFeed
	cache   cache.Store
	closers []func()
}

func newApp(ctx context.Context, name string) (*app, error) {
	log := logger.New(name)
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	a := &app{cfg: cfg, log: log}

	pool, err := db.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		return nil, err
	}
	a.pg = &db.Postgres{Pool: pool}
	a.closers = append(a.closers, pool.Close)
	a.feed = a.pg

	if cfg.Feed.Backend == config.FeedBackendElasticsearch {
		es, err := client.NewElasticsearch(cfg.Feed, log)
		if err != nil {
			a.close()
			return nil, err
		}
		a.es = es
		a.feed = es
	}

	a.cache = a.newCache(ctx)
	log.Info("dependencies ready", "feed", cfg.Feed.Backend)
	return a, nil
}

// newCache - REDIS_ADDR가 있으면 Redis, 연결 실패 시 메모리 캐시로 대체
func (a *app) newCache(ctx context.Context) cache.Store {
	memory := func() cache.Store {
		return cache.NewMemory(cache.WithCapacity(a.cfg.Cache.Capacity), cache.WithDefaultTTL(a.cfg.Cache.TTL))
	}
	if a.cfg.Cache.RedisAddr == "" {
		return memory()
	}
	r, err := cache.NewRedis(ctx, cache.RedisConfig{
		Addr:      a.cfg.Cache.RedisAddr,
		Password:  a.cfg.Cache.RedisPassword,
		DB:        a.cfg.Cache.RedisDB,
		KeyPrefix: a.cfg.Cache.RedisPrefix,
		TTL:       a.cfg.Cache.TTL,
	})
	if err != nil {
		a.log.Warn("redis cache unavailable, using in-memory cache", "addr", a.cfg.Cache.RedisAddr, "error", err)
		return memory()
	}
	a.closers = append(a.closers, func() { _ = r.Close() })
	a.log.Info("using redis response cache", "addr", a.cfg.Cache.RedisAddr)
	return r
}

func (a *app) ensureSchema(ctx context.Context) error {
	if err := a.pg.EnsureSchema(ctx); err != nil {
		return err
	}
	if a.es != nil {
		if err := a.es.EnsureIndex(ctx); err != nil {
			return fmt.Errorf("ensure elasticsearch index: %w", err)
		}
	}
	return nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// services - serve/ingest 공통 서비스 그래프
type services struct {
	profiles  *relevance.ProfileStore
	auth      *service.AuthService
	alerts    *service.AlertService
	iocs      *service.IOCService
	clients   *service.ClientService
	dashboard *service.DashboardService
	webhooks  *service.WebhookService
}

func (a *app) buildServices(ctx context.Context) (*services, error) {
	profile, err := relevance.LoadProfile(a.cfg.Scoring.ProfilePath)
	if err != nil {
		return nil, err
	}
	profiles := relevance.NewProfileStore(profile)

	auth, err := service.NewAuthService(a.pg, a.pg, a.cfg.Auth, a.log)
	if err != nil {
		return nil, err
	}
	if a.cfg.OIDC.IssuerURL != "" {
		if err := auth.EnableOIDC(ctx, a.cfg.OIDC); err != nil {
			return nil, err
		}
	}

	slack := client.NewSlackClient(a.cfg.Slack)
	if !slack.IsConfigured() {
		a.log.Info("slack notifications disabled")
	}
	delivery := service.NewWebhookDeliveryService(a.pg, a.log)
	notifier := service.NewNotificationService(a.pg, a.pg, profiles, slack, delivery, a.cfg.Notification.MinScore, a.log)

	return &services{
		profiles:  profiles,
		auth:      auth,
		alerts:    service.NewAlertService(a.feed, a.cache, notifier, a.cfg.Dashboard, a.cfg.Cache.TTL, a.log),
		iocs:      service.NewIOCService(a.pg, a.cache, a.log),
		clients:   service.NewClientService(a.pg, a.cache, a.log),
		dashboard: service.NewDashboardService(a.pg, a.feed, a.pg, profiles, a.cache, a.cfg.Dashboard, a.cfg.Cache.TTL, a.log),
		webhooks:  service.NewWebhookService(a.pg, delivery),
	}, nil
}
