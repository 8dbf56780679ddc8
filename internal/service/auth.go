package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/ioc-radar/backend/internal/config"
	"github.com/ioc-radar/backend/internal/db"
	"github.com/ioc-radar/backend/internal/model"
)

const (
	refreshCookieName = "ioc_radar_refresh"
	minLoginIDLength  = 3
	maxLoginIDLength  = 64
	minPasswordLength = 8
	maxPasswordLength = 128
)

type CookieConfig struct {
	Name     string
	Path     string
	Domain   string
	Secure   bool
	SameSite http.SameSite
	MaxAge   int
}

// authRepo - 사용자/refresh token 저장소
type authRepo interface {
	CreateUser(ctx context.Context, loginID, passwordHash, role string) (*model.User, error)
	GetUserByLoginID(ctx context.Context, loginID string) (*model.User, error)
	GetUserByID(ctx context.Context, userID int64) (*model.User, error)
	InsertRefreshToken(ctx context.Context, userID int64, tokenHash string, expiresAt time.Time) error
	GetRefreshTokenByHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error)
	RevokeRefreshTokenByHash(ctx context.Context, tokenHash string) error
	RotateRefreshToken(ctx context.Context, oldTokenID int64, userID int64, newTokenHash string, newExpiresAt time.Time) error
}

// clientProfileCreator - 회원가입 시 고객 프로필 생성
type clientProfileCreator interface {
	CreateClient(ctx context.Context, p model.ClientProfile) (*model.ClientProfile, error)
}

// idTokenVerifier - 외부 IdP ID token 검증 (*oidc.IDTokenVerifier)
type idTokenVerifier interface {
	Verify(ctx context.Context, rawIDToken string) (*oidc.IDToken, error)
}

type AuthService struct {
	repo        authRepo
	clients     clientProfileCreator
	verifier    idTokenVerifier
	log         *slog.Logger
	jwtSecret   []byte
	accessTTL   time.Duration
	refreshTTL  time.Duration
	allowSignup bool
	cookieCfg   CookieConfig
	now         func() time.Time
}

type authClaims struct {
	LoginID string `json:"loginId"`
	Role    string `json:"role"`
	jwt.RegisteredClaims
}

func NewAuthService(repo authRepo, clients clientProfileCreator, cfg config.AuthConfig, logger *slog.Logger) (*AuthService, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("%w: JWT_SECRET is required", ErrMisconfigured)
	}

	accessTTL, err := time.ParseDuration(cfg.JWTAccessTTL)
	if err != nil || accessTTL <= 0 {
		return nil, fmt.Errorf("%w: invalid JWT_ACCESS_TTL", ErrMisconfigured)
	}

	refreshTTL, err := time.ParseDuration(cfg.JWTRefreshTTL)
	if err != nil || refreshTTL <= 0 {
		return nil, fmt.Errorf("%w: invalid JWT_REFRESH_TTL", ErrMisconfigured)
	}

	allowSignup, err := parseBool(cfg.AllowSignup, false)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid ALLOW_SIGNUP", ErrMisconfigured)
	}

	cookieSecure, err := parseBool(cfg.CookieSecure, true)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid AUTH_COOKIE_SECURE", ErrMisconfigured)
	}

	cookieSameSite, err := parseSameSite(cfg.CookieSameSite)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid AUTH_COOKIE_SAMESITE", ErrMisconfigured)
	}

	if cookieSameSite == http.SameSiteNoneMode && !cookieSecure {
		return nil, fmt.Errorf("%w: SameSite=None requires Secure cookie", ErrMisconfigured)
	}

	cookiePath := cfg.CookiePath
	if strings.TrimSpace(cookiePath) == "" {
		cookiePath = "/"
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &AuthService{
		repo:        repo,
		clients:     clients,
		log:         logger,
		jwtSecret:   []byte(cfg.JWTSecret),
		accessTTL:   accessTTL,
		refreshTTL:  refreshTTL,
		allowSignup: allowSignup,
		cookieCfg: CookieConfig{
			Name:     refreshCookieName,
			Path:     cookiePath,
			Domain:   cfg.CookieDomain,
			Secure:   cookieSecure,
			SameSite: cookieSameSite,
			MaxAge:   int(refreshTTL.Seconds()),
		},
		now: time.Now,
	}, nil
}

// EnableOIDC - issuer discovery 후 ID token 검증기 설정
func (s *AuthService) EnableOIDC(ctx context.Context, cfg config.OIDCConfig) error {
	if strings.TrimSpace(cfg.IssuerURL) == "" {
		return nil
	}
	if strings.TrimSpace(cfg.ClientID) == "" {
		return fmt.Errorf("%w: OIDC_CLIENT_ID is required with OIDC_ISSUER_URL", ErrMisconfigured)
	}
	provider, err := oidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return fmt.Errorf("oidc discovery %s: %w", cfg.IssuerURL, err)
	}
	s.UseVerifier(provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}))
	s.log.Info("oidc token verification enabled", "issuer", cfg.IssuerURL)
	return nil
}

func (s *AuthService) UseVerifier(v idTokenVerifier) {
	s.verifier = v
}

func (s *AuthService) OIDCEnabled() bool {
	return s.verifier != nil
}

// EnsureAdmin - ADMIN_USERNAME 계정이 없으면 admin 역할로 생성
func (s *AuthService) EnsureAdmin(ctx context.Context, loginID, password string) error {
	if strings.TrimSpace(loginID) == "" || strings.TrimSpace(password) == "" {
		return fmt.Errorf("%w: ADMIN_USERNAME/ADMIN_PASSWORD are required", ErrMisconfigured)
	}

	_, err := s.repo.GetUserByLoginID(ctx, loginID)
	if err == nil {
		return nil
	}
	if !db.IsNoRows(err) {
		return err
	}

	if err := validateCredentials(loginID, password); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	if _, err = s.repo.CreateUser(ctx, loginID, string(hash), model.RoleAdmin); err != nil {
		return err
	}
	s.log.Info("admin user created", "login_id", loginID)
	return nil
}

func (s *AuthService) AllowSignup() bool {
	return s.allowSignup
}

func (s *AuthService) CookieConfig() CookieConfig {
	return s.cookieCfg
}

// Register - client 역할 사용자와 고객 프로필 생성
func (s *AuthService) Register(ctx context.Context, req model.RegisterRequest) (string, string, int64, error) {
	if !s.allowSignup {
		return "", "", 0, ErrForbidden
	}

	if err := validateCredentials(req.ID, req.Password); err != nil {
		return "", "", 0, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return "", "", 0, err
	}

	loginID := strings.TrimSpace(req.ID)
	user, err := s.repo.CreateUser(ctx, loginID, string(hash), model.RoleClient)
	if err != nil {
		if isDuplicate(err) {
			return "", "", 0, ErrConflict
		}
		return "", "", 0, err
	}

	if err := s.createProfile(ctx, user, req); err != nil {
		return "", "", 0, err
	}

	return s.issueTokens(ctx, user)
}

func (s *AuthService) createProfile(ctx context.Context, user *model.User, req model.RegisterRequest) error {
	if s.clients == nil {
		return nil
	}
	company := strings.TrimSpace(req.CompanyName)
	if company == "" {
		company = user.LoginID
	}
	contact := strings.TrimSpace(req.ContactName)
	if contact == "" {
		contact = user.LoginID
	}
	_, err := s.clients.CreateClient(ctx, model.ClientProfile{
		ID:               uuid.NewString(),
		UserID:           user.ID,
		CompanyName:      company,
		ContactName:      contact,
		Phone:            strings.TrimSpace(req.Phone),
		Industry:         strings.TrimSpace(req.Industry),
		SubscriptionPlan: model.DefaultSubscriptionPlan,
		IsActive:         true,
	})
	if err != nil {
		return fmt.Errorf("create client profile for user %d: %w", user.ID, err)
	}
	return nil
}

func (s *AuthService) Login(ctx context.Context, loginID, password string) (string, string, int64, error) {
	if err := validateCredentials(loginID, password); err != nil {
		return "", "", 0, err
	}

	user, err := s.repo.GetUserByLoginID(ctx, strings.TrimSpace(loginID))
	if err != nil {
		if db.IsNoRows(err) {
			return "", "", 0, ErrUnauthorized
		}
		return "", "", 0, err
	}

	// 외부 IdP 전용 계정은 password_hash가 비어 있음
	if user.PasswordHash == "" {
		return "", "", 0, ErrUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", "", 0, ErrUnauthorized
	}

	return s.issueTokens(ctx, user)
}

func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, string, int64, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return "", "", 0, ErrUnauthorized
	}

	hash := hashRefreshToken(refreshToken)
	record, err := s.repo.GetRefreshTokenByHash(ctx, hash)
	if err != nil {
		if db.IsNoRows(err) {
			return "", "", 0, ErrUnauthorized
		}
		return "", "", 0, err
	}

	if record.RevokedAt != nil || s.now().After(record.ExpiresAt) {
		return "", "", 0, ErrUnauthorized
	}

	user, err := s.repo.GetUserByID(ctx, record.UserID)
	if err != nil {
		if db.IsNoRows(err) {
			return "", "", 0, ErrUnauthorized
		}
		return "", "", 0, err
	}

	newRefreshToken, newHash, err := newRefreshToken()
	if err != nil {
		return "", "", 0, err
	}

	if err := s.repo.RotateRefreshToken(ctx, record.ID, record.UserID, newHash, s.now().Add(s.refreshTTL)); err != nil {
		if db.IsNoRows(err) {
			return "", "", 0, ErrUnauthorized
		}
		return "", "", 0, err
	}

	accessToken, expiresIn, err := s.generateAccessToken(user)
	if err != nil {
		return "", "", 0, err
	}

	return accessToken, newRefreshToken, expiresIn, nil
}

func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if strings.TrimSpace(refreshToken) == "" {
		return nil
	}

	hash := hashRefreshToken(refreshToken)
	return s.repo.RevokeRefreshTokenByHash(ctx, hash)
}

// Authenticate - 자체 발급 access token 우선, 실패하면 외부 IdP ID token으로 검증
func (s *AuthService) Authenticate(ctx context.Context, token string) (*model.AuthUser, error) {
	user, err := s.ParseAccessToken(token)
	if err == nil {
		return user, nil
	}
	if s.verifier == nil {
		return nil, ErrUnauthorized
	}
	return s.authenticateIDToken(ctx, token)
}

func (s *AuthService) authenticateIDToken(ctx context.Context, raw string) (*model.AuthUser, error) {
	idToken, err := s.verifier.Verify(ctx, raw)
	if err != nil {
		s.log.Debug("id token rejected", "error", err)
		return nil, ErrUnauthorized
	}

	var claims struct {
		Email         string `json:"email"`
		EmailVerified *bool  `json:"email_verified"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, ErrUnauthorized
	}
	email := strings.ToLower(strings.TrimSpace(claims.Email))
	if email == "" || (claims.EmailVerified != nil && !*claims.EmailVerified) {
		return nil, ErrUnauthorized
	}

	user, err := s.repo.GetUserByLoginID(ctx, email)
	if err != nil {
		if !db.IsNoRows(err) {
			return nil, err
		}
		user, err = s.provisionExternalUser(ctx, email)
		if err != nil {
			return nil, err
		}
	}

	return &model.AuthUser{ID: user.ID, LoginID: user.LoginID, Role: user.Role}, nil
}

// provisionExternalUser - 외부 IdP 사용자를 client 역할로 자동 생성
func (s *AuthService) provisionExternalUser(ctx context.Context, email string) (*model.User, error) {
	user, err := s.repo.CreateUser(ctx, email, "", model.RoleClient)
	if err != nil {
		// 동시 요청으로 먼저 생성된 경우
		if isDuplicate(err) {
			return s.repo.GetUserByLoginID(ctx, email)
		}
		return nil, err
	}
	if err := s.createProfile(ctx, user, model.RegisterRequest{}); err != nil {
		return nil, err
	}
	s.log.Info("external user provisioned", "login_id", email, "user_id", user.ID)
	return user, nil
}

func (s *AuthService) ParseAccessToken(tokenStr string) (*model.AuthUser, error) {
	claims := &authClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrUnauthorized
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid {
		return nil, ErrUnauthorized
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return nil, ErrUnauthorized
	}

	role := claims.Role
	if role == "" {
		role = model.RoleClient
	}

	return &model.AuthUser{
		ID:      userID,
		LoginID: claims.LoginID,
		Role:    role,
	}, nil
}

func (s *AuthService) issueTokens(ctx context.Context, user *model.User) (string, string, int64, error) {
	accessToken, expiresIn, err := s.generateAccessToken(user)
	if err != nil {
		return "", "", 0, err
	}

	refreshToken, refreshHash, err := newRefreshToken()
	if err != nil {
		return "", "", 0, err
	}

	if err := s.repo.InsertRefreshToken(ctx, user.ID, refreshHash, s.now().Add(s.refreshTTL)); err != nil {
		return "", "", 0, err
	}

	return accessToken, refreshToken, expiresIn, nil
}

func (s *AuthService) generateAccessToken(user *model.User) (string, int64, error) {
	now := s.now()
	claims := authClaims{
		LoginID: user.LoginID,
		Role:    user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", 0, err
	}

	return signed, int64(s.accessTTL.Seconds()), nil
}

func validateCredentials(loginID, password string) error {
	loginID = strings.TrimSpace(loginID)
	password = strings.TrimSpace(password)

	if len(loginID) < minLoginIDLength || len(loginID) > maxLoginIDLength {
		return ErrInvalidInput
	}
	if len(password) < minPasswordLength || len(password) > maxPasswordLength {
		return ErrInvalidInput
	}
	return nil
}

func parseBool(value string, fallback bool) (bool, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback, nil
	}
	return strconv.ParseBool(value)
}

func parseSameSite(value string) (http.SameSite, error) {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "", "lax":
		return http.SameSiteLaxMode, nil
	case "strict":
		return http.SameSiteStrictMode, nil
	case "none":
		return http.SameSiteNoneMode, nil
	default:
		return 0, ErrInvalidInput
	}
}

func newRefreshToken() (string, string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", "", err
	}
	token := base64.RawURLEncoding.EncodeToString(raw)
	return token, hashRefreshToken(token), nil
}

func hashRefreshToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
