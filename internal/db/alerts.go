package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/ioc-radar/backend/internal/model"
)

// EnsureAlertSchema - cyber_alerts 테이블 생성
func (db *Postgres) EnsureAlertSchema(ctx context.Context) error {
	queries := []string{
		`
		CREATE TABLE IF NOT EXISTS cyber_alerts (
			id TEXT PRIMARY KEY,
			summary TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			cvss DOUBLE PRECISION NOT NULL DEFAULT 0 CHECK (cvss >= 0 AND cvss <= 10),
			published TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
		`,
		`CREATE INDEX IF NOT EXISTS cyber_alerts_published_idx ON cyber_alerts(published DESC)`,
	}

	for _, query := range queries {
		if _, err := db.Pool.Exec(ctx, query); err != nil {
			return err
		}
	}
	return nil
}

// ListAlerts - 최신 published 순으로 알림 조회
// Keywords가 있으면 summary/description에 하나라도 포함된 알림만 (대소문자 무시)
func (db *Postgres) ListAlerts(ctx context.Context, q model.AlertQuery) ([]model.Alert, error) {
	query, args := buildAlertListQuery(q)
	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query cyber alerts: %w", err)
	}
	defer rows.Close()

	alerts := []model.Alert{}
	for rows.Next() {
		var alert model.Alert
		if err := rows.Scan(&alert.ID, &alert.Summary, &alert.Description, &alert.CVSS, &alert.Published); err != nil {
			return nil, fmt.Errorf("failed to scan cyber alert: %w", err)
		}
		alerts = append(alerts, alert)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cyber alerts: %w", err)
	}
	return alerts, nil
}

func buildAlertListQuery(q model.AlertQuery) (string, []any) {
	var (
		where []string
		args  []any
	)
	if !q.Since.IsZero() {
		args = append(args, q.Since)
		where = append(where, fmt.Sprintf("published >= $%d", len(args)))
	}
	if len(q.Keywords) > 0 {
		patterns := make([]string, 0, len(q.Keywords))
		for _, kw := range q.Keywords {
			if kw = strings.TrimSpace(kw); kw != "" {
				patterns = append(patterns, "%"+escapeLike(kw)+"%")
			}
		}
		if len(patterns) > 0 {
			args = append(args, patterns)
			n := len(args)
			where = append(where, fmt.Sprintf("(summary ILIKE ANY($%d) OR description ILIKE ANY($%d))", n, n))
		}
	}

	var sb strings.Builder
	sb.WriteString(`SELECT id, summary, description, cvss, published FROM cyber_alerts`)
	if len(where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(where, " AND "))
	}
	sb.WriteString(" ORDER BY published DESC, id ASC")
	if q.Limit > 0 {
		args = append(args, q.Limit)
		sb.WriteString(fmt.Sprintf(" LIMIT $%d", len(args)))
	}
	return sb.String(), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func (db *Postgres) GetAlert(ctx context.Context, id string) (*model.Alert, error) {
	var alert model.Alert
	err := db.Pool.QueryRow(ctx, `
		SELECT id, summary, description, cvss, published
		FROM cyber_alerts
		WHERE id = $1
	`, id).Scan(&alert.ID, &alert.Summary, &alert.Description, &alert.CVSS, &alert.Published)
	if err != nil {
		return nil, notFound(err)
	}
	return &alert, nil
}

func (db *Postgres) InsertAlert(ctx context.Context, alert model.Alert) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO cyber_alerts (id, summary, description, cvss, published, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
	`, alert.ID, alert.Summary, alert.Description, alert.CVSS, alert.Published)
	if err != nil {
		return fmt.Errorf("failed to insert cyber alert: %w", err)
	}
	return nil
}

func (db *Postgres) CountAlerts(ctx context.Context) (int, error) {
	var n int
	if err := db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM cyber_alerts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count cyber alerts: %w", err)
	}
	return n, nil
}
