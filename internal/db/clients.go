package db

import (
	"context"
	"fmt"

	"github.com/ioc-radar/backend/internal/model"
)

// EnsureClientSchema - client_profiles 테이블 생성 (사용자당 1개)
func (db *Postgres) EnsureClientSchema(ctx context.Context) error {
	queries := []string{
		`
		CREATE TABLE IF NOT EXISTS client_profiles (
			id TEXT PRIMARY KEY,
			user_id BIGINT NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
			company_name TEXT NOT NULL,
			contact_name TEXT NOT NULL,
			phone TEXT NOT NULL DEFAULT '',
			industry TEXT NOT NULL DEFAULT '',
			subscription_plan TEXT NOT NULL DEFAULT 'basic',
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
		`,
		`CREATE INDEX IF NOT EXISTS client_profiles_active_idx ON client_profiles(is_active) WHERE is_active`,
	}

	for _, query := range queries {
		if _, err := db.Pool.Exec(ctx, query); err != nil {
			return err
		}
	}
	return nil
}

const clientColumns = `id, user_id, company_name, contact_name, phone, industry, subscription_plan, is_active, created_at, updated_at`

func scanClient(row rowScanner) (*model.ClientProfile, error) {
	var p model.ClientProfile
	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.CompanyName,
		&p.ContactName,
		&p.Phone,
		&p.Industry,
		&p.SubscriptionPlan,
		&p.IsActive,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (db *Postgres) queryClients(ctx context.Context, query string, args ...any) ([]model.ClientProfile, error) {
	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query client profiles: %w", err)
	}
	defer rows.Close()

	profiles := []model.ClientProfile{}
	for rows.Next() {
		p, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan client profile: %w", err)
		}
		profiles = append(profiles, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate client profiles: %w", err)
	}
	return profiles, nil
}

func (db *Postgres) ListClients(ctx context.Context) ([]model.ClientProfile, error) {
	return db.queryClients(ctx, `SELECT `+clientColumns+` FROM client_profiles ORDER BY created_at DESC`)
}

// ListActiveClients - 알림 발송 대상 (활성 고객)
func (db *Postgres) ListActiveClients(ctx context.Context) ([]model.ClientProfile, error) {
	return db.queryClients(ctx, `SELECT `+clientColumns+` FROM client_profiles WHERE is_active ORDER BY user_id`)
}

func (db *Postgres) GetClient(ctx context.Context, id string) (*model.ClientProfile, error) {
	return scanClient(db.Pool.QueryRow(ctx, `SELECT `+clientColumns+` FROM client_profiles WHERE id = $1`, id))
}

func (db *Postgres) GetClientByUserID(ctx context.Context, userID int64) (*model.ClientProfile, error) {
	return scanClient(db.Pool.QueryRow(ctx, `SELECT `+clientColumns+` FROM client_profiles WHERE user_id = $1`, userID))
}

func (db *Postgres) CreateClient(ctx context.Context, p model.ClientProfile) (*model.ClientProfile, error) {
	row := db.Pool.QueryRow(ctx, `
		INSERT INTO client_profiles (id, user_id, company_name, contact_name, phone, industry, subscription_plan, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		RETURNING `+clientColumns,
		p.ID, p.UserID, p.CompanyName, p.ContactName, p.Phone, p.Industry, p.SubscriptionPlan, p.IsActive)
	return scanClient(row)
}

func (db *Postgres) UpdateClient(ctx context.Context, p model.ClientProfile) (*model.ClientProfile, error) {
	row := db.Pool.QueryRow(ctx, `
		UPDATE client_profiles
		SET company_name = $1, contact_name = $2, phone = $3, industry = $4, subscription_plan = $5, updated_at = NOW()
		WHERE id = $6
		RETURNING `+clientColumns,
		p.CompanyName, p.ContactName, p.Phone, p.Industry, p.SubscriptionPlan, p.ID)
	return scanClient(row)
}

// SetClientActive - user_id 기준 활성/비활성 전환
func (db *Postgres) SetClientActive(ctx context.Context, userID int64, active bool) (*model.ClientProfile, error) {
	row := db.Pool.QueryRow(ctx, `
		UPDATE client_profiles
		SET is_active = $1, updated_at = NOW()
		WHERE user_id = $2
		RETURNING `+clientColumns,
		active, userID)
	return scanClient(row)
}

// DeleteClient - 프로필 삭제 후 연결된 user_id 반환
func (db *Postgres) DeleteClient(ctx context.Context, id string) (int64, error) {
	var userID int64
	err := db.Pool.QueryRow(ctx, `DELETE FROM client_profiles WHERE id = $1 RETURNING user_id`, id).Scan(&userID)
	if err != nil {
		return 0, notFound(err)
	}
	return userID, nil
}
