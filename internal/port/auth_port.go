package port

import (
	"context"

	"github.com/regenpay/wallet-api/internal/domain"
)

// AuthStore handles credential and refresh-token persistence.
type AuthStore interface {
	CreateCredentials(ctx context.Context, userID, passwordHash string) error
	GetCredentials(ctx context.Context, userID string) (*domain.AuthCredential, error)
	UpdateCredentials(ctx context.Context, userID string, updates map[string]any) error

	StoreRefreshToken(ctx context.Context, token *domain.AuthRefreshToken) error
	GetRefreshToken(ctx context.Context, tokenHash string) (*domain.AuthRefreshToken, error)
	RevokeRefreshToken(ctx context.Context, tokenID string) error
	RevokeAllRefreshTokens(ctx context.Context, userID string) error
}
