package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ioc-radar/backend/internal/db"
	"github.com/ioc-radar/backend/internal/model"
	"github.com/ioc-radar/backend/internal/relevance"
)

type fakeAuthRepo struct {
	mu     sync.Mutex
	nextID int64
	users  map[string]*model.User
	tokens map[string]*model.RefreshToken
}

func newFakeAuthRepo() *fakeAuthRepo {
	return &fakeAuthRepo{users: map[string]*model.User{}, tokens: map[string]*model.RefreshToken{}}
}

func (r *fakeAuthRepo) CreateUser(_ context.Context, loginID, passwordHash, role string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[loginID]; ok {
		return nil, fmt.Errorf("user %s: %w", loginID, db.ErrDuplicate)
	}
	r.nextID++
	u := &model.User{ID: r.nextID, LoginID: loginID, PasswordHash: passwordHash, Role: role}
	r.users[loginID] = u
	return u, nil
}

func (r *fakeAuthRepo) GetUserByLoginID(_ context.Context, loginID string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[loginID]; ok {
		return u, nil
	}
	return nil, db.ErrNotFound
}

func (r *fakeAuthRepo) GetUserByID(_ context.Context, userID int64) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ID == userID {
			return u, nil
		}
	}
	return nil, db.ErrNotFound
}

func (r *fakeAuthRepo) InsertRefreshToken(_ context.Context, userID int64, tokenHash string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[tokenHash] = &model.RefreshToken{ID: int64(len(r.tokens) + 1), UserID: userID, TokenHash: tokenHash, ExpiresAt: expiresAt}
	return nil
}

func (r *fakeAuthRepo) GetRefreshTokenByHash(_ context.Context, tokenHash string) (*model.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.tokens[tokenHash]; ok {
		copied := *t
		return &copied, nil
	}
	return nil, db.ErrNotFound
}

func (r *fakeAuthRepo) RevokeRefreshTokenByHash(_ context.Context, tokenHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.tokens[tokenHash]; ok && t.RevokedAt == nil {
		now := time.Now()
		t.RevokedAt = &now
	}
	return nil
}

func (r *fakeAuthRepo) RotateRefreshToken(_ context.Context, oldTokenID int64, userID int64, newTokenHash string, newExpiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tokens {
		if t.ID == oldTokenID && t.RevokedAt == nil {
			now := time.Now()
			t.RevokedAt = &now
			r.tokens[newTokenHash] = &model.RefreshToken{ID: int64(len(r.tokens) + 1), UserID: userID, TokenHash: newTokenHash, ExpiresAt: newExpiresAt}
			return nil
		}
	}
	return db.ErrNotFound
}

// fakeClientRepo - 고객 프로필 메모리 저장소
type fakeClientRepo struct {
	mu       sync.Mutex
	profiles map[string]*model.ClientProfile
	err      error
}

func newFakeClientRepo(profiles ...model.ClientProfile) *fakeClientRepo {
	r := &fakeClientRepo{profiles: map[string]*model.ClientProfile{}}
	for i := range profiles {
		p := profiles[i]
		r.profiles[p.ID] = &p
	}
	return r
}

func (r *fakeClientRepo) sorted() []model.ClientProfile {
	out := make([]model.ClientProfile, 0, len(r.profiles))
	for _, p := range r.profiles {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

func (r *fakeClientRepo) ListClients(_ context.Context) ([]model.ClientProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sorted(), r.err
}

func (r *fakeClientRepo) ListActiveClients(_ context.Context) ([]model.ClientProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	var out []model.ClientProfile
	for _, p := range r.sorted() {
		if p.IsActive {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakeClientRepo) GetClient(_ context.Context, id string) (*model.ClientProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.profiles[id]; ok {
		copied := *p
		return &copied, nil
	}
	return nil, db.ErrNotFound
}

func (r *fakeClientRepo) GetClientByUserID(_ context.Context, userID int64) (*model.ClientProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	for _, p := range r.profiles {
		if p.UserID == userID {
			copied := *p
			return &copied, nil
		}
	}
	return nil, db.ErrNotFound
}

func (r *fakeClientRepo) CreateClient(_ context.Context, p model.ClientProfile) (*model.ClientProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.profiles {
		if existing.UserID == p.UserID {
			return nil, db.ErrDuplicate
		}
	}
	r.profiles[p.ID] = &p
	copied := p
	return &copied, nil
}

func (r *fakeClientRepo) UpdateClient(_ context.Context, p model.ClientProfile) (*model.ClientProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.profiles[p.ID]; !ok {
		return nil, db.ErrNotFound
	}
	r.profiles[p.ID] = &p
	copied := p
	return &copied, nil
}

func (r *fakeClientRepo) SetClientActive(_ context.Context, userID int64, active bool) (*model.ClientProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.profiles {
		if p.UserID == userID {
			p.IsActive = active
			copied := *p
			return &copied, nil
		}
	}
	return nil, db.ErrNotFound
}

func (r *fakeClientRepo) DeleteClient(_ context.Context, id string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[id]
	if !ok {
		return 0, db.ErrNotFound
	}
	delete(r.profiles, id)
	return p.UserID, nil
}

// fakeIOCRepo - user_id별 IOC 저장소
type fakeIOCRepo struct {
	mu    sync.Mutex
	iocs  map[int64][]model.IOC
	err   error
	block bool
}

func newFakeIOCRepo() *fakeIOCRepo {
	return &fakeIOCRepo{iocs: map[int64][]model.IOC{}}
}

func (r *fakeIOCRepo) ListIOCs(ctx context.Context, userID int64) ([]model.IOC, error) {
	if r.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	return append([]model.IOC(nil), r.iocs[userID]...), nil
}

func (r *fakeIOCRepo) CreateIOC(_ context.Context, ioc model.IOC) (*model.IOC, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.iocs[ioc.UserID] = append(r.iocs[ioc.UserID], ioc)
	return &ioc, nil
}

func (r *fakeIOCRepo) UpdateIOC(_ context.Context, ioc model.IOC) (*model.IOC, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.iocs[ioc.UserID] {
		if existing.ID == ioc.ID {
			ioc.CreatedAt = existing.CreatedAt
			r.iocs[ioc.UserID][i] = ioc
			return &ioc, nil
		}
	}
	return nil, db.ErrNotFound
}

func (r *fakeIOCRepo) DeleteIOC(_ context.Context, id string, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.iocs[userID]
	for i, existing := range list {
		if existing.ID == id {
			r.iocs[userID] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return db.ErrNotFound
}

// fakeAlertStore - Since/Keywords/Limit를 Postgres 쿼리와 같은 의미로 처리
type fakeAlertStore struct {
	mu      sync.Mutex
	alerts  []model.Alert
	err     error
	block   bool
	listed  int
	queries []model.AlertQuery
}

func (s *fakeAlertStore) ListAlerts(ctx context.Context, q model.AlertQuery) ([]model.Alert, error) {
	if s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listed++
	s.queries = append(s.queries, q)
	if s.err != nil {
		return nil, s.err
	}
	var out []model.Alert
	for _, a := range s.alerts {
		if !q.Since.IsZero() && a.Published.Before(q.Since) {
			continue
		}
		if len(q.Keywords) > 0 && !containsAny(a.Text(), q.Keywords) {
			continue
		}
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Published.Equal(out[j].Published) {
			return out[i].Published.After(out[j].Published)
		}
		return out[i].ID < out[j].ID
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func containsAny(text string, words []string) bool {
	lowered := strings.ToLower(text)
	for _, w := range words {
		if strings.Contains(lowered, strings.ToLower(w)) {
			return true
		}
	}
	return false
}

func (s *fakeAlertStore) GetAlert(_ context.Context, id string) (*model.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.alerts {
		if a.ID == id {
			copied := a
			return &copied, nil
		}
	}
	return nil, db.ErrNotFound
}

func (s *fakeAlertStore) InsertAlert(_ context.Context, alert model.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	for _, a := range s.alerts {
		if a.ID == alert.ID {
			return db.ErrDuplicate
		}
	}
	s.alerts = append(s.alerts, alert)
	return nil
}

func (s *fakeAlertStore) CountAlerts(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.alerts), nil
}

func (s *fakeAlertStore) listCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listed
}

func testProfiles() *relevance.ProfileStore {
	return relevance.NewProfileStore(relevance.DefaultProfile())
}
