package db

import (
	"context"
	"fmt"

	"github.com/ioc-radar/backend/internal/model"
)

// EnsureIOCSchema - iocs 테이블 생성 (고객별 침해 지표)
func (db *Postgres) EnsureIOCSchema(ctx context.Context) error {
	queries := []string{
		`
		CREATE TABLE IF NOT EXISTS iocs (
			id TEXT PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			ip TEXT NOT NULL DEFAULT '',
			server TEXT NOT NULL DEFAULT '',
			os TEXT NOT NULL DEFAULT '',
			security_solutions TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
		`,
		`CREATE INDEX IF NOT EXISTS iocs_user_id_idx ON iocs(user_id, created_at DESC)`,
	}

	for _, query := range queries {
		if _, err := db.Pool.Exec(ctx, query); err != nil {
			return err
		}
	}
	return nil
}

const iocColumns = `id, user_id, ip, server, os, security_solutions, created_at`

func scanIOC(row rowScanner) (*model.IOC, error) {
	var ioc model.IOC
	if err := row.Scan(&ioc.ID, &ioc.UserID, &ioc.IP, &ioc.Server, &ioc.OS, &ioc.SecuritySolutions, &ioc.CreatedAt); err != nil {
		return nil, notFound(err)
	}
	return &ioc, nil
}

// ListIOCs - 사용자 IOC 목록 (최신순)
func (db *Postgres) ListIOCs(ctx context.Context, userID int64) ([]model.IOC, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT `+iocColumns+`
		FROM iocs
		WHERE user_id = $1
		ORDER BY created_at DESC, id ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query iocs: %w", err)
	}
	defer rows.Close()

	iocs := []model.IOC{}
	for rows.Next() {
		ioc, err := scanIOC(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ioc: %w", err)
		}
		iocs = append(iocs, *ioc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate iocs: %w", err)
	}
	return iocs, nil
}

func (db *Postgres) CreateIOC(ctx context.Context, ioc model.IOC) (*model.IOC, error) {
	row := db.Pool.QueryRow(ctx, `
		INSERT INTO iocs (id, user_id, ip, server, os, security_solutions, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+iocColumns,
		ioc.ID, ioc.UserID, ioc.IP, ioc.Server, ioc.OS, ioc.SecuritySolutions, ioc.CreatedAt)
	created, err := scanIOC(row)
	if err != nil {
		return nil, fmt.Errorf("failed to insert ioc: %w", err)
	}
	return created, nil
}

// UpdateIOC - 소유자가 일치할 때만 수정, 아니면 ErrNotFound
func (db *Postgres) UpdateIOC(ctx context.Context, ioc model.IOC) (*model.IOC, error) {
	row := db.Pool.QueryRow(ctx, `
		UPDATE iocs
		SET ip = $1, server = $2, os = $3, security_solutions = $4
		WHERE id = $5 AND user_id = $6
		RETURNING `+iocColumns,
		ioc.IP, ioc.Server, ioc.OS, ioc.SecuritySolutions, ioc.ID, ioc.UserID)
	return scanIOC(row)
}

func (db *Postgres) DeleteIOC(ctx context.Context, id string, userID int64) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM iocs WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete ioc: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
