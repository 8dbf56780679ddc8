package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/ioc-radar/backend/internal/cache"
	"github.com/ioc-radar/backend/internal/model"
	"github.com/ioc-radar/backend/internal/relevance"
)

// clientRepo - 고객 프로필 저장소
type clientRepo interface {
	ListClients(ctx context.Context) ([]model.ClientProfile, error)
	GetClient(ctx context.Context, id string) (*model.ClientProfile, error)
	GetClientByUserID(ctx context.Context, userID int64) (*model.ClientProfile, error)
	CreateClient(ctx context.Context, p model.ClientProfile) (*model.ClientProfile, error)
	UpdateClient(ctx context.Context, p model.ClientProfile) (*model.ClientProfile, error)
	SetClientActive(ctx context.Context, userID int64, active bool) (*model.ClientProfile, error)
	DeleteClient(ctx context.Context, id string) (int64, error)
}

// ClientService - 관리자 고객 관리 + 본인 프로필 조회/수정
type ClientService struct {
	repo  clientRepo
	cache cache.Store
	log   *slog.Logger
}

func NewClientService(repo clientRepo, responseCache cache.Store, logger *slog.Logger) *ClientService {
	if logger == nil {
		logger = slog.Default()
	}
	if responseCache == nil {
		responseCache = cache.NewMemory()
	}
	return &ClientService{repo: repo, cache: responseCache, log: logger}
}

func (s *ClientService) List(ctx context.Context) ([]model.ClientProfile, error) {
	clients, err := s.repo.ListClients(ctx)
	if err != nil {
		return nil, err
	}
	if clients == nil {
		clients = []model.ClientProfile{}
	}
	return clients, nil
}

func (s *ClientService) Get(ctx context.Context, id string) (*model.ClientProfile, error) {
	p, err := s.repo.GetClient(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, mapStoreError(err)
	}
	return p, nil
}

func (s *ClientService) Create(ctx context.Context, req model.CreateClientRequest) (*model.ClientProfile, error) {
	if req.UserID <= 0 {
		return nil, fmt.Errorf("%w: user_id is required", ErrInvalidInput)
	}
	fields, err := normalizeClientFields(model.UpdateClientRequest{
		CompanyName:      req.CompanyName,
		ContactName:      req.ContactName,
		Phone:            req.Phone,
		Industry:         req.Industry,
		SubscriptionPlan: req.SubscriptionPlan,
	})
	if err != nil {
		return nil, err
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	created, err := s.repo.CreateClient(ctx, model.ClientProfile{
		ID:               uuid.NewString(),
		UserID:           req.UserID,
		CompanyName:      fields.CompanyName,
		ContactName:      fields.ContactName,
		Phone:            fields.Phone,
		Industry:         fields.Industry,
		SubscriptionPlan: fields.SubscriptionPlan,
		IsActive:         active,
	})
	if err != nil {
		return nil, mapStoreError(err)
	}
	s.log.Info("client created", "client_id", created.ID, "user_id", created.UserID)
	return created, nil
}

// Update - 관리자 수정 (프로필 id 기준)
func (s *ClientService) Update(ctx context.Context, id string, req model.UpdateClientRequest) (*model.ClientProfile, error) {
	current, err := s.repo.GetClient(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, mapStoreError(err)
	}
	return s.applyUpdate(ctx, current, req)
}

// SetActive - user_id 기준 활성/비활성 전환
func (s *ClientService) SetActive(ctx context.Context, req model.SetClientActiveRequest) (*model.ClientProfile, error) {
	if req.UserID <= 0 || req.IsActive == nil {
		return nil, fmt.Errorf("%w: user_id and is_active are required", ErrInvalidInput)
	}
	p, err := s.repo.SetClientActive(ctx, req.UserID, *req.IsActive)
	if err != nil {
		return nil, mapStoreError(err)
	}
	s.log.Info("client active changed", "user_id", req.UserID, "is_active", *req.IsActive)
	return p, nil
}

func (s *ClientService) Delete(ctx context.Context, id string) (int64, error) {
	userID, err := s.repo.DeleteClient(ctx, strings.TrimSpace(id))
	if err != nil {
		return 0, mapStoreError(err)
	}
	s.invalidateDashboard(ctx, userID)
	return userID, nil
}

// GetProfile - 로그인한 고객 본인 프로필
func (s *ClientService) GetProfile(ctx context.Context, userID int64) (*model.ClientProfile, error) {
	p, err := s.repo.GetClientByUserID(ctx, userID)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return p, nil
}

// UpdateProfile - 본인 프로필 수정 (구독 플랜은 관리자만 변경)
func (s *ClientService) UpdateProfile(ctx context.Context, userID int64, req model.UpdateClientRequest) (*model.ClientProfile, error) {
	current, err := s.repo.GetClientByUserID(ctx, userID)
	if err != nil {
		return nil, mapStoreError(err)
	}
	req.SubscriptionPlan = current.SubscriptionPlan
	return s.applyUpdate(ctx, current, req)
}

func (s *ClientService) applyUpdate(ctx context.Context, current *model.ClientProfile, req model.UpdateClientRequest) (*model.ClientProfile, error) {
	if strings.TrimSpace(req.SubscriptionPlan) == "" {
		req.SubscriptionPlan = current.SubscriptionPlan
	}
	fields, err := normalizeClientFields(req)
	if err != nil {
		return nil, err
	}

	next := *current
	next.CompanyName = fields.CompanyName
	next.ContactName = fields.ContactName
	next.Phone = fields.Phone
	next.Industry = fields.Industry
	next.SubscriptionPlan = fields.SubscriptionPlan

	updated, err := s.repo.UpdateClient(ctx, next)
	if err != nil {
		return nil, mapStoreError(err)
	}
	// industry 변경은 관련도 점수에 영향
	s.invalidateDashboard(ctx, updated.UserID)
	return updated, nil
}

func (s *ClientService) invalidateDashboard(ctx context.Context, userID int64) {
	pattern := dashboardCacheEndpoint(userID) + ":"
	if _, err := s.cache.Invalidate(ctx, pattern); err != nil {
		s.log.Warn("cache invalidation failed", "pattern", pattern, "error", err)
	}
}

// normalizeClientFields - company_name, contact_name 필수, plan 기본값 basic
// industry는 영문 코드로 정규화 (알 수 없는 값은 소문자로 보존)
func normalizeClientFields(req model.UpdateClientRequest) (model.UpdateClientRequest, error) {
	req.CompanyName = strings.TrimSpace(req.CompanyName)
	req.ContactName = strings.TrimSpace(req.ContactName)
	req.Phone = strings.TrimSpace(req.Phone)
	req.SubscriptionPlan = strings.ToLower(strings.TrimSpace(req.SubscriptionPlan))

	if req.CompanyName == "" || req.ContactName == "" {
		return req, fmt.Errorf("%w: company_name and contact_name are required", ErrInvalidInput)
	}
	if req.SubscriptionPlan == "" {
		req.SubscriptionPlan = model.DefaultSubscriptionPlan
	}
	req.Industry = relevance.NormalizeIndustry(req.Industry)
	return req, nil
}
