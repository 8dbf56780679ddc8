package service

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ioc-radar/backend/internal/db"
)

var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrMisconfigured = errors.New("auth config invalid")
	ErrUpstream      = errors.New("upstream request failed")
)

// mapStoreError - 저장소 에러를 서비스 sentinel로 변환
func mapStoreError(err error) error {
	switch {
	case err == nil:
		return nil
	case db.IsNoRows(err):
		return ErrNotFound
	case isDuplicate(err):
		return ErrConflict
	default:
		return err
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

// isDuplicate - Postgres unique 위반 또는 저장소의 ErrDuplicate
func isDuplicate(err error) bool {
	return isUniqueViolation(err) || errors.Is(err, db.ErrDuplicate)
}
