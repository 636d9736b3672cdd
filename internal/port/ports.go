// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"

	"github.com/regenpay/wallet-api/internal/domain"
)

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}

// UserStore handles user profile and balance data operations.
type UserStore interface {
	GetUser(ctx context.Context, userID string) (*domain.UserProfile, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.UserProfile, error)
	CreateUser(ctx context.Context, user *domain.UserProfile) (*domain.UserProfile, error)
	UpdateUser(ctx context.Context, userID string, updates map[string]any) (*domain.UserProfile, error)

	// IncrementBalance applies a server-side atomic delta to the user's
	// balance and returns the resulting value. Negative deltas debit.
	IncrementBalance(ctx context.Context, userID string, delta float64) (float64, error)
}
