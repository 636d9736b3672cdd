package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/regenpay/wallet-api/internal/domain"

	"go.uber.org/zap"
)

// ============================================================
// Users — profile + balance via PostgREST
// ============================================================

func (c *Client) GetUser(ctx context.Context, userID string) (*domain.UserProfile, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetUser")
	defer span.End()

	var user *domain.UserProfile
	err := c.execute(ctx, func() error {
		path := fmt.Sprintf("users?uid=eq.%s&limit=1", userID)
		body, err := c.doRequest(ctx, http.MethodGet, path)
		if err != nil {
			return err
		}

		var rows []domain.UserProfile
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("decode user: %w", err)
		}
		if len(rows) > 0 {
			user = &rows[0]
		}
		return nil
	})
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/users", Err: err}
	}
	if user == nil {
		return nil, &domain.ErrNotFound{Resource: "user", ID: userID}
	}
	return user, nil
}

func (c *Client) GetUserByEmail(ctx context.Context, email string) (*domain.UserProfile, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetUserByEmail")
	defer span.End()

	var user *domain.UserProfile
	err := c.execute(ctx, func() error {
		path := fmt.Sprintf("users?email=eq.%s&limit=1", email)
		body, err := c.doRequest(ctx, http.MethodGet, path)
		if err != nil {
			return err
		}

		var rows []domain.UserProfile
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("decode user: %w", err)
		}
		if len(rows) > 0 {
			user = &rows[0]
		}
		return nil
	})
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/users", Err: err}
	}
	if user == nil {
		return nil, &domain.ErrNotFound{Resource: "user", ID: email}
	}
	return user, nil
}

func (c *Client) CreateUser(ctx context.Context, user *domain.UserProfile) (*domain.UserProfile, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateUser")
	defer span.End()

	body, err := c.doPost(ctx, "users", map[string]any{
		"uid":      user.UID,
		"name":     user.Name,
		"email":    user.Email,
		"phone":    user.Phone,
		"balance":  user.Balance,
		"currency": user.Currency,
	})
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/users", Err: err}
	}

	var rows []domain.UserProfile
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode created user: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("create user returned no rows")
	}

	c.logger.Info("supabase: user created", zap.String("user_id", rows[0].UID))
	return &rows[0], nil
}

func (c *Client) UpdateUser(ctx context.Context, userID string, updates map[string]any) (*domain.UserProfile, error) {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateUser")
	defer span.End()

	body, err := c.doPatchReturning(ctx, fmt.Sprintf("users?uid=eq.%s", userID), updates)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/users", Err: err}
	}

	var rows []domain.UserProfile
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode updated user: %w", err)
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "user", ID: userID}
	}
	return &rows[0], nil
}

// IncrementBalance applies a server-side atomic delta via the
// increment_balance RPC and returns the new balance. A read-modify-write
// here would lose updates under concurrent sends.
func (c *Client) IncrementBalance(ctx context.Context, userID string, delta float64) (float64, error) {
	ctx, span := tracer.Start(ctx, "Supabase.IncrementBalance")
	defer span.End()

	body, err := c.doRPC(ctx, "increment_balance", map[string]any{
		"p_user_id": userID,
		"p_delta":   delta,
	})
	if err != nil {
		return 0, &domain.ErrExternalService{Service: "supabase/users", Err: err}
	}

	var newBalance float64
	if err := json.Unmarshal(body, &newBalance); err != nil {
		return 0, fmt.Errorf("decode new balance: %w", err)
	}

	c.logger.Info("supabase: balance incremented",
		zap.String("user_id", userID),
		zap.Float64("delta", delta),
		zap.Float64("new_balance", newBalance),
	)
	return newBalance, nil
}
