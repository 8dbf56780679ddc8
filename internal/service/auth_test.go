package service

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/ioc-radar/backend/internal/config"
	"github.com/ioc-radar/backend/internal/logger"
	"github.com/ioc-radar/backend/internal/model"
)

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		JWTSecret:     "test-secret",
		JWTAccessTTL:  "15m",
		JWTRefreshTTL: "24h",
		AllowSignup:   "true",
	}
}

func newTestAuthService(t *testing.T) (*AuthService, *fakeAuthRepo, *fakeClientRepo) {
	t.Helper()
	repo := newFakeAuthRepo()
	clients := newFakeClientRepo()
	svc, err := NewAuthService(repo, clients, testAuthConfig(), logger.Discard())
	require.NoError(t, err)
	return svc, repo, clients
}

func TestNewAuthServiceConfigErrors(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.AuthConfig)
	}{
		{"missing secret", func(c *config.AuthConfig) { c.JWTSecret = "" }},
		{"bad access ttl", func(c *config.AuthConfig) { c.JWTAccessTTL = "soon" }},
		{"negative refresh ttl", func(c *config.AuthConfig) { c.JWTRefreshTTL = "-1h" }},
		{"bad signup flag", func(c *config.AuthConfig) { c.AllowSignup = "maybe" }},
		{"samesite none without secure", func(c *config.AuthConfig) {
			c.CookieSameSite = "none"
			c.CookieSecure = "false"
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testAuthConfig()
			tc.mutate(&cfg)
			_, err := NewAuthService(newFakeAuthRepo(), nil, cfg, nil)
			if !errors.Is(err, ErrMisconfigured) {
				t.Fatalf("expected ErrMisconfigured, got %v", err)
			}
		})
	}
}

func TestAuthCookieDefaults(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	cookie := svc.CookieConfig()

	require.Equal(t, "ioc_radar_refresh", cookie.Name)
	require.Equal(t, "/", cookie.Path)
	require.True(t, cookie.Secure)
	require.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	require.Equal(t, int((24 * time.Hour).Seconds()), cookie.MaxAge)
	require.True(t, svc.AllowSignup())
	require.False(t, svc.OIDCEnabled())
}

func TestRegisterCreatesClientProfile(t *testing.T) {
	svc, repo, clients := newTestAuthService(t)
	ctx := context.Background()

	access, refresh, expiresIn, err := svc.Register(ctx, model.RegisterRequest{
		ID:          "acme-soc",
		Password:    "correct-horse",
		CompanyName: "Acme",
		Industry:    "Santé",
	})
	require.NoError(t, err)
	require.NotEmpty(t, access)
	require.NotEmpty(t, refresh)
	require.Equal(t, int64(900), expiresIn)

	user, err := repo.GetUserByLoginID(ctx, "acme-soc")
	require.NoError(t, err)
	require.Equal(t, model.RoleClient, user.Role)

	profile, err := clients.GetClientByUserID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, "Acme", profile.CompanyName)
	require.Equal(t, "acme-soc", profile.ContactName)
	require.Equal(t, "Santé", profile.Industry)
	require.Equal(t, model.DefaultSubscriptionPlan, profile.SubscriptionPlan)
	require.True(t, profile.IsActive)

	authUser, err := svc.Authenticate(ctx, access)
	require.NoError(t, err)
	require.Equal(t, user.ID, authUser.ID)
	require.Equal(t, model.RoleClient, authUser.Role)
	require.False(t, authUser.IsAdmin())
}

func TestRegisterRules(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	ctx := context.Background()

	_, _, _, err := svc.Register(ctx, model.RegisterRequest{ID: "ab", Password: "correct-horse"})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, _, _, err = svc.Register(ctx, model.RegisterRequest{ID: "acme", Password: "short"})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, _, _, err = svc.Register(ctx, model.RegisterRequest{ID: "acme", Password: "correct-horse"})
	require.NoError(t, err)
	_, _, _, err = svc.Register(ctx, model.RegisterRequest{ID: "acme", Password: "correct-horse"})
	require.ErrorIs(t, err, ErrConflict)

	svc.allowSignup = false
	_, _, _, err = svc.Register(ctx, model.RegisterRequest{ID: "other", Password: "correct-horse"})
	require.ErrorIs(t, err, ErrForbidden)
}

func TestLoginRefreshLogout(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	ctx := context.Background()

	_, _, _, err := svc.Register(ctx, model.RegisterRequest{ID: "acme", Password: "correct-horse"})
	require.NoError(t, err)

	_, _, _, err = svc.Login(ctx, "acme", "wrong-password")
	require.ErrorIs(t, err, ErrUnauthorized)
	_, _, _, err = svc.Login(ctx, "nobody", "correct-horse")
	require.ErrorIs(t, err, ErrUnauthorized)

	_, refresh, _, err := svc.Login(ctx, "acme", "correct-horse")
	require.NoError(t, err)

	access2, refresh2, _, err := svc.Refresh(ctx, refresh)
	require.NoError(t, err)
	require.NotEmpty(t, access2)
	require.NotEqual(t, refresh, refresh2)

	// 이미 교체된 토큰은 재사용 불가
	_, _, _, err = svc.Refresh(ctx, refresh)
	require.ErrorIs(t, err, ErrUnauthorized)

	require.NoError(t, svc.Logout(ctx, refresh2))
	_, _, _, err = svc.Refresh(ctx, refresh2)
	require.ErrorIs(t, err, ErrUnauthorized)

	require.NoError(t, svc.Logout(ctx, ""))
}

func TestRefreshExpired(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	ctx := context.Background()

	_, refresh, _, err := svc.Register(ctx, model.RegisterRequest{ID: "acme", Password: "correct-horse"})
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(48 * time.Hour) }
	_, _, _, err = svc.Refresh(ctx, refresh)
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestEnsureAdmin(t *testing.T) {
	svc, repo, _ := newTestAuthService(t)
	ctx := context.Background()

	require.ErrorIs(t, svc.EnsureAdmin(ctx, "", ""), ErrMisconfigured)
	require.NoError(t, svc.EnsureAdmin(ctx, "admin", "admin-password"))
	// 두 번째 호출은 기존 계정을 그대로 둔다
	require.NoError(t, svc.EnsureAdmin(ctx, "admin", "other-password"))

	user, err := repo.GetUserByLoginID(ctx, "admin")
	require.NoError(t, err)
	require.Equal(t, model.RoleAdmin, user.Role)

	access, _, _, err := svc.Login(ctx, "admin", "admin-password")
	require.NoError(t, err)
	authUser, err := svc.Authenticate(ctx, access)
	require.NoError(t, err)
	require.True(t, authUser.IsAdmin())
}

func TestParseAccessTokenRejectsExpiredAndForeign(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	ctx := context.Background()

	access, _, _, err := svc.Register(ctx, model.RegisterRequest{ID: "acme", Password: "correct-horse"})
	require.NoError(t, err)

	later := svc.now().Add(time.Hour)
	svc.now = func() time.Time { return later }
	_, err = svc.Authenticate(ctx, access)
	require.ErrorIs(t, err, ErrUnauthorized)

	other, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "1"}).SignedString([]byte("other-secret"))
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, other)
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestAuthenticateIDTokenProvisionsClient(t *testing.T) {
	svc, repo, clients := newTestAuthService(t)
	ctx := context.Background()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	const issuer = "https://idp.example.com"
	svc.UseVerifier(oidc.NewVerifier(issuer,
		&oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{&key.PublicKey}},
		&oidc.Config{ClientID: "ioc-radar"}))
	require.True(t, svc.OIDCEnabled())

	sign := func(claims jwt.MapClaims) string {
		raw, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
		require.NoError(t, err)
		return raw
	}
	now := time.Now()

	raw := sign(jwt.MapClaims{
		"iss":   issuer,
		"aud":   "ioc-radar",
		"sub":   "idp-user-1",
		"email": "Analyst@Example.com",
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	})

	user, err := svc.Authenticate(ctx, raw)
	require.NoError(t, err)
	require.Equal(t, "analyst@example.com", user.LoginID)
	require.Equal(t, model.RoleClient, user.Role)

	stored, err := repo.GetUserByLoginID(ctx, "analyst@example.com")
	require.NoError(t, err)
	require.Empty(t, stored.PasswordHash)
	_, err = clients.GetClientByUserID(ctx, stored.ID)
	require.NoError(t, err)

	// 두 번째 인증은 같은 사용자를 재사용
	again, err := svc.Authenticate(ctx, raw)
	require.NoError(t, err)
	require.Equal(t, user.ID, again.ID)

	// 비밀번호 로그인은 불가
	_, _, _, err = svc.Login(ctx, "analyst@example.com", "whatever-password")
	require.ErrorIs(t, err, ErrUnauthorized)

	wrongAudience := sign(jwt.MapClaims{
		"iss":   issuer,
		"aud":   "someone-else",
		"email": "x@example.com",
		"exp":   now.Add(time.Hour).Unix(),
	})
	_, err = svc.Authenticate(ctx, wrongAudience)
	require.ErrorIs(t, err, ErrUnauthorized)

	noEmail := sign(jwt.MapClaims{
		"iss": issuer,
		"aud": "ioc-radar",
		"exp": now.Add(time.Hour).Unix(),
	})
	_, err = svc.Authenticate(ctx, noEmail)
	require.ErrorIs(t, err, ErrUnauthorized)
}
