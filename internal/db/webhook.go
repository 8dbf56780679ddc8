package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ioc-radar/backend/internal/model"
)

// EnsureWebhookSchema - webhook_configs 테이블 생성 (없으면)
func (p *Postgres) EnsureWebhookSchema(ctx context.Context) error {
	queries := []string{
		`
		CREATE TABLE IF NOT EXISTS webhook_configs (
			id         SERIAL       PRIMARY KEY,
			name       TEXT         NOT NULL DEFAULT '',
			url        TEXT         NOT NULL DEFAULT '',
			method     TEXT         NOT NULL DEFAULT 'POST',
			headers    JSONB        NOT NULL DEFAULT '[]',
			body       TEXT         NOT NULL DEFAULT '',
			min_score  INTEGER      NOT NULL DEFAULT 0,
			client_ids TEXT[]       NOT NULL DEFAULT '{}',
			enabled    BOOLEAN      NOT NULL DEFAULT TRUE,
			updated_at TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		)
		`,
		`ALTER TABLE webhook_configs ADD COLUMN IF NOT EXISTS name TEXT NOT NULL DEFAULT ''`,
		`ALTER TABLE webhook_configs ADD COLUMN IF NOT EXISTS min_score INTEGER NOT NULL DEFAULT 0`,
		`ALTER TABLE webhook_configs ADD COLUMN IF NOT EXISTS enabled BOOLEAN NOT NULL DEFAULT TRUE`,
		`ALTER TABLE webhook_configs ADD COLUMN IF NOT EXISTS client_ids TEXT[] NOT NULL DEFAULT '{}'`,
	}
	for _, query := range queries {
		if _, err := p.Pool.Exec(ctx, query); err != nil {
			return fmt.Errorf("failed to create webhook_configs table: %w", err)
		}
	}
	return nil
}

const webhookColumns = `id, name, url, method, headers, body, min_score, client_ids, enabled, updated_at`

func scanWebhook(row rowScanner) (*model.WebhookConfig, error) {
	var cfg model.WebhookConfig
	var headersJSON []byte
	err := row.Scan(&cfg.ID, &cfg.Name, &cfg.URL, &cfg.Method, &headersJSON, &cfg.Body, &cfg.MinScore, &cfg.ClientIDs, &cfg.Enabled, &cfg.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	if err := json.Unmarshal(headersJSON, &cfg.Headers); err != nil {
		return nil, fmt.Errorf("failed to unmarshal headers: %w", err)
	}
	return &cfg, nil
}

func (p *Postgres) queryWebhooks(ctx context.Context, query string) ([]model.WebhookConfig, error) {
	rows, err := p.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query webhook configs: %w", err)
	}
	defer rows.Close()

	configs := []model.WebhookConfig{}
	for rows.Next() {
		cfg, err := scanWebhook(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan webhook config: %w", err)
		}
		configs = append(configs, *cfg)
	}
	return configs, rows.Err()
}

// GetWebhookConfigs - 웹훅 설정 전체 목록 조회 (최신순)
func (p *Postgres) GetWebhookConfigs(ctx context.Context) ([]model.WebhookConfig, error) {
	return p.queryWebhooks(ctx, `SELECT `+webhookColumns+` FROM webhook_configs ORDER BY updated_at DESC`)
}

// GetEnabledWebhookConfigs - 알림 발송 시 사용
func (p *Postgres) GetEnabledWebhookConfigs(ctx context.Context) ([]model.WebhookConfig, error) {
	return p.queryWebhooks(ctx, `SELECT `+webhookColumns+` FROM webhook_configs WHERE enabled ORDER BY id`)
}

func (p *Postgres) GetWebhookConfigByID(ctx context.Context, id int) (*model.WebhookConfig, error) {
	return scanWebhook(p.Pool.QueryRow(ctx, `SELECT `+webhookColumns+` FROM webhook_configs WHERE id = $1`, id))
}

func (p *Postgres) CreateWebhookConfig(ctx context.Context, cfg model.WebhookConfig) (int, error) {
	headersJSON, err := json.Marshal(cfg.Headers)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal headers: %w", err)
	}

	var id int
	err = p.Pool.QueryRow(ctx, `
		INSERT INTO webhook_configs (name, url, method, headers, body, min_score, client_ids, enabled, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		RETURNING id
	`, cfg.Name, cfg.URL, cfg.Method, headersJSON, cfg.Body, cfg.MinScore, clientIDsOrEmpty(cfg.ClientIDs), cfg.Enabled).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert webhook config: %w", err)
	}
	return id, nil
}

func (p *Postgres) UpdateWebhookConfig(ctx context.Context, id int, cfg model.WebhookConfig) error {
	headersJSON, err := json.Marshal(cfg.Headers)
	if err != nil {
		return fmt.Errorf("failed to marshal headers: %w", err)
	}

	tag, err := p.Pool.Exec(ctx, `
		UPDATE webhook_configs
		SET name = $1, url = $2, method = $3, headers = $4, body = $5, min_score = $6, client_ids = $7, enabled = $8, updated_at = NOW()
		WHERE id = $9
	`, cfg.Name, cfg.URL, cfg.Method, headersJSON, cfg.Body, cfg.MinScore, clientIDsOrEmpty(cfg.ClientIDs), cfg.Enabled, id)
	if err != nil {
		return fmt.Errorf("failed to update webhook config: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) DeleteWebhookConfig(ctx context.Context, id int) error {
	tag, err := p.Pool.Exec(ctx, `DELETE FROM webhook_configs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete webhook config: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// nil 슬라이스는 NULL로 인코딩되므로 빈 배열로 변환
func clientIDsOrEmpty(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
