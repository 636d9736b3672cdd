package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/regenpay/wallet-api/internal/domain"
	"github.com/regenpay/wallet-api/internal/port"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var authTracer = otel.Tracer("service/auth")

const (
	maxFailedAttempts = 5
	lockDuration      = 30 * time.Minute
	bcryptCost        = 12
	minPasswordLength = 6
)

// AuthService orchestrates registration, login, and token lifecycle.
type AuthService struct {
	store      port.AuthStore
	users      port.UserStore
	jwtSecret  []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	logger     *zap.Logger
}

// NewAuthService creates a new auth service.
func NewAuthService(store port.AuthStore, users port.UserStore, jwtSecret string, accessTTL, refreshTTL time.Duration, logger *zap.Logger) *AuthService {
	return &AuthService{
		store:      store,
		users:      users,
		jwtSecret:  []byte(jwtSecret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		logger:     logger,
	}
}

// ============================================================
// Register — POST /v1/auth/register
// ============================================================

func (s *AuthService) Register(ctx context.Context, req *domain.RegisterRequest) (*domain.AuthResponse, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.Register")
	defer span.End()

	if strings.TrimSpace(req.Name) == "" {
		return nil, &domain.ErrValidation{Field: "name", Message: "name is required"}
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, &domain.ErrValidation{Field: "email", Message: "a valid email is required"}
	}
	if len(req.Password) < minPasswordLength {
		return nil, &domain.ErrValidation{Field: "password", Message: fmt.Sprintf("password must be at least %d characters", minPasswordLength)}
	}

	// Reject duplicate emails.
	existing, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		var nf *domain.ErrNotFound
		if !errors.As(err, &nf) {
			return nil, fmt.Errorf("check existing user: %w", err)
		}
	}
	if existing != nil {
		return nil, &domain.ErrConflict{Message: "email already registered"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.UserProfile{
		UID:      uuid.NewString(),
		Name:     strings.TrimSpace(req.Name),
		Email:    email,
		Phone:    req.Phone,
		Balance:  0,
		Currency: domain.DefaultCurrency,
	}
	created, err := s.users.CreateUser(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	if err := s.store.CreateCredentials(ctx, created.UID, string(hash)); err != nil {
		return nil, fmt.Errorf("create credentials: %w", err)
	}

	accessToken, refreshToken, err := s.issueTokens(ctx, created.UID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user registered",
		zap.String("user_id", created.UID),
		zap.String("email", email),
	)

	return &domain.AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(s.accessTTL.Seconds()),
		UserID:       created.UID,
		Name:         created.Name,
		Email:        created.Email,
	}, nil
}

// ============================================================
// Login — POST /v1/auth/login
// ============================================================

func (s *AuthService) Login(ctx context.Context, req *domain.LoginRequest) (*domain.AuthResponse, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.Login")
	defer span.End()

	email := strings.ToLower(strings.TrimSpace(req.Email))
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		var nf *domain.ErrNotFound
		if errors.As(err, &nf) {
			return nil, &domain.ErrUnauthorized{Message: "invalid credentials"}
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	cred, err := s.store.GetCredentials(ctx, user.UID)
	if err != nil {
		return nil, fmt.Errorf("get credentials: %w", err)
	}

	if cred.LockedUntil != nil && cred.LockedUntil.After(time.Now()) {
		remaining := int(time.Until(*cred.LockedUntil).Minutes()) + 1
		s.logger.Warn("login: account temporarily locked",
			zap.String("user_id", user.UID),
			zap.Int("remaining_minutes", remaining),
		)
		return nil, &domain.ErrAccountLocked{RetryAfterMinutes: remaining}
	}

	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(req.Password)); err != nil {
		newAttempts := cred.FailedAttempts + 1
		updates := map[string]any{"failed_attempts": newAttempts}
		if newAttempts >= maxFailedAttempts {
			lockedUntil := time.Now().Add(lockDuration)
			updates["locked_until"] = lockedUntil.Format(time.RFC3339)
			s.logger.Warn("login: account locked after max attempts",
				zap.String("user_id", user.UID),
				zap.Int("attempts", newAttempts),
			)
		} else {
			s.logger.Warn("login: failed password attempt",
				zap.String("user_id", user.UID),
				zap.Int("attempts", newAttempts),
				zap.Int("max", maxFailedAttempts),
			)
		}
		_ = s.store.UpdateCredentials(ctx, user.UID, updates)

		if newAttempts >= maxFailedAttempts {
			return nil, &domain.ErrAccountLocked{RetryAfterMinutes: int(lockDuration.Minutes())}
		}
		return nil, &domain.ErrUnauthorized{Message: "invalid credentials"}
	}

	// Reset failed attempts on successful login.
	_ = s.store.UpdateCredentials(ctx, user.UID, map[string]any{
		"failed_attempts": 0,
		"locked_until":    nil,
		"last_login_at":   time.Now().Format(time.RFC3339),
	})

	accessToken, refreshToken, err := s.issueTokens(ctx, user.UID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user logged in", zap.String("user_id", user.UID))

	return &domain.AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(s.accessTTL.Seconds()),
		UserID:       user.UID,
		Name:         user.Name,
		Email:        user.Email,
	}, nil
}

// ============================================================
// Refresh — POST /v1/auth/refresh
// ============================================================

func (s *AuthService) Refresh(ctx context.Context, req *domain.RefreshRequest) (*domain.AuthResponse, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.Refresh")
	defer span.End()

	tokenHash := hashToken(req.RefreshToken)

	stored, err := s.store.GetRefreshToken(ctx, tokenHash)
	if err != nil {
		var nf *domain.ErrNotFound
		if errors.As(err, &nf) {
			return nil, &domain.ErrUnauthorized{Message: "invalid refresh token"}
		}
		return nil, fmt.Errorf("get refresh token: %w", err)
	}

	if stored.ExpiresAt.Before(time.Now()) {
		s.logger.Warn("refresh: expired token used", zap.String("user_id", stored.UserID))
		_ = s.store.RevokeRefreshToken(ctx, stored.ID)
		return nil, &domain.ErrUnauthorized{Message: "refresh token expired"}
	}

	// Rotation: the presented token is single-use.
	_ = s.store.RevokeRefreshToken(ctx, stored.ID)

	accessToken, refreshToken, err := s.issueTokens(ctx, stored.UserID)
	if err != nil {
		return nil, err
	}

	return &domain.AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(s.accessTTL.Seconds()),
		UserID:       stored.UserID,
	}, nil
}

// ============================================================
// Logout — POST /v1/auth/logout
// ============================================================

func (s *AuthService) Logout(ctx context.Context, userID string) error {
	ctx, span := authTracer.Start(ctx, "AuthService.Logout")
	defer span.End()

	if err := s.store.RevokeAllRefreshTokens(ctx, userID); err != nil {
		return fmt.Errorf("revoke refresh tokens: %w", err)
	}

	s.logger.Info("user logged out", zap.String("user_id", userID))
	return nil
}

// ============================================================
// ValidateAccessToken — used by middleware
// ============================================================

// JWTClaims represents the custom claims in access tokens.
type JWTClaims struct {
	Sub  string `json:"sub"`
	Type string `json:"type"`
	jwt.RegisteredClaims
}

func (s *AuthService) ValidateAccessToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, &domain.ErrUnauthorized{Message: "invalid or expired token"}
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, &domain.ErrUnauthorized{Message: "invalid token"}
	}

	if claims.Type != "access" {
		return nil, &domain.ErrUnauthorized{Message: "invalid token type"}
	}

	return claims, nil
}

// ============================================================
// Internal helpers
// ============================================================

func (s *AuthService) issueTokens(ctx context.Context, userID string) (access, refresh string, err error) {
	access, err = s.signAccessToken(userID)
	if err != nil {
		return "", "", fmt.Errorf("sign access token: %w", err)
	}

	refresh, refreshHash, err := generateRefreshToken()
	if err != nil {
		return "", "", fmt.Errorf("generate refresh token: %w", err)
	}

	err = s.store.StoreRefreshToken(ctx, &domain.AuthRefreshToken{
		ID:        uuid.NewString(),
		UserID:    userID,
		TokenHash: refreshHash,
		ExpiresAt: time.Now().Add(s.refreshTTL),
	})
	if err != nil {
		return "", "", fmt.Errorf("store refresh token: %w", err)
	}
	return access, refresh, nil
}

func (s *AuthService) signAccessToken(userID string) (string, error) {
	now := time.Now()
	claims := JWTClaims{
		Sub:  userID,
		Type: "access",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
			Issuer:    "wallet-api",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

func generateRefreshToken() (raw string, hashed string, err error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", "", err
	}
	raw = hex.EncodeToString(b)
	hashed = hashToken(raw)
	return raw, hashed, nil
}

func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}
