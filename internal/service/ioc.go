package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ioc-radar/backend/internal/cache"
	"github.com/ioc-radar/backend/internal/model"
)

// iocRepo - tenant 단위 IOC 저장소
type iocRepo interface {
	ListIOCs(ctx context.Context, userID int64) ([]model.IOC, error)
	CreateIOC(ctx context.Context, ioc model.IOC) (*model.IOC, error)
	UpdateIOC(ctx context.Context, ioc model.IOC) (*model.IOC, error)
	DeleteIOC(ctx context.Context, id string, userID int64) error
}

// IOCService - 고객 본인의 IOC CRUD
// 변경 시 해당 고객의 대시보드 캐시만 무효화
type IOCService struct {
	repo  iocRepo
	cache cache.Store
	log   *slog.Logger
	now   func() time.Time
}

func NewIOCService(repo iocRepo, responseCache cache.Store, logger *slog.Logger) *IOCService {
	if logger == nil {
		logger = slog.Default()
	}
	if responseCache == nil {
		responseCache = cache.NewMemory()
	}
	return &IOCService{repo: repo, cache: responseCache, log: logger, now: time.Now}
}

func (s *IOCService) List(ctx context.Context, userID int64) ([]model.IOC, error) {
	iocs, err := s.repo.ListIOCs(ctx, userID)
	if err != nil {
		return nil, err
	}
	if iocs == nil {
		iocs = []model.IOC{}
	}
	return iocs, nil
}

func (s *IOCService) Create(ctx context.Context, userID int64, req model.IOCRequest) (*model.IOC, error) {
	req = trimIOCRequest(req)
	if req.IsEmpty() {
		return nil, fmt.Errorf("%w: at least one of ip, server, os, security_solutions is required", ErrInvalidInput)
	}

	createdAt := s.now()
	if req.CreatedAt != nil && !req.CreatedAt.IsZero() {
		createdAt = *req.CreatedAt
	}

	created, err := s.repo.CreateIOC(ctx, model.IOC{
		ID:                uuid.NewString(),
		UserID:            userID,
		IP:                req.IP,
		Server:            req.Server,
		OS:                req.OS,
		SecuritySolutions: req.SecuritySolutions,
		CreatedAt:         createdAt,
	})
	if err != nil {
		return nil, mapStoreError(err)
	}
	s.invalidateDashboard(ctx, userID)
	return created, nil
}

func (s *IOCService) Update(ctx context.Context, userID int64, id string, req model.IOCRequest) (*model.IOC, error) {
	req = trimIOCRequest(req)
	if req.IsEmpty() {
		return nil, fmt.Errorf("%w: at least one of ip, server, os, security_solutions is required", ErrInvalidInput)
	}

	updated, err := s.repo.UpdateIOC(ctx, model.IOC{
		ID:                strings.TrimSpace(id),
		UserID:            userID,
		IP:                req.IP,
		Server:            req.Server,
		OS:                req.OS,
		SecuritySolutions: req.SecuritySolutions,
	})
	if err != nil {
		return nil, mapStoreError(err)
	}
	s.invalidateDashboard(ctx, userID)
	return updated, nil
}

func (s *IOCService) Delete(ctx context.Context, userID int64, id string) error {
	if err := s.repo.DeleteIOC(ctx, strings.TrimSpace(id), userID); err != nil {
		return mapStoreError(err)
	}
	s.invalidateDashboard(ctx, userID)
	return nil
}

func (s *IOCService) invalidateDashboard(ctx context.Context, userID int64) {
	pattern := dashboardCacheEndpoint(userID) + ":"
	if _, err := s.cache.Invalidate(ctx, pattern); err != nil {
		s.log.Warn("cache invalidation failed", "pattern", pattern, "error", err)
	}
}

func trimIOCRequest(req model.IOCRequest) model.IOCRequest {
	req.IP = strings.TrimSpace(req.IP)
	req.Server = strings.TrimSpace(req.Server)
	req.OS = strings.TrimSpace(req.OS)
	req.SecuritySolutions = strings.TrimSpace(req.SecuritySolutions)
	return req
}
