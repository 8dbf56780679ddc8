package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"

	"github.com/ioc-radar/backend/internal/config"
)

func TestBuildPostgresURL(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.PostgresConfig
		want    string
		wantErr bool
	}{
		{
			name: "database-url-wins",
			cfg:  config.PostgresConfig{DatabaseURL: "postgres://a@b/c", User: "ignored"},
			want: "postgres://a@b/c",
		},
		{
			name: "components",
			cfg:  config.PostgresConfig{Host: "db", Port: "6543", User: "radar", Password: "p@ss", Database: "iocs", SSLMode: "require"},
			want: "postgres://radar:p%40ss@db:6543/iocs?sslmode=require",
		},
		{
			name: "defaults",
			cfg:  config.PostgresConfig{User: "radar", Database: "iocs"},
			want: "postgres://radar@localhost:5432/iocs?sslmode=disable",
		},
		{
			name:    "missing-user",
			cfg:     config.PostgresConfig{Database: "iocs"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BuildPostgresURL(tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("BuildPostgresURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsNoRows(t *testing.T) {
	if !IsNoRows(fmt.Errorf("wrap: %w", pgx.ErrNoRows)) {
		t.Fatalf("expected wrapped pgx.ErrNoRows to match")
	}
	if !IsNoRows(ErrNotFound) {
		t.Fatalf("expected ErrNotFound to match")
	}
	if IsNoRows(errors.New("boom")) {
		t.Fatalf("unexpected match")
	}
	if !errors.Is(notFound(pgx.ErrNoRows), ErrNotFound) {
		t.Fatalf("expected notFound to map pgx.ErrNoRows")
	}
}
