package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/regenpay/wallet-api/internal/domain"
)

// ============================================================
// Auth — credentials + refresh tokens
// ============================================================

func (c *Client) CreateCredentials(ctx context.Context, userID, passwordHash string) error {
	ctx, span := tracer.Start(ctx, "Supabase.CreateCredentials")
	defer span.End()

	_, err := c.doPost(ctx, "auth_credentials", map[string]any{
		"user_id":         userID,
		"password_hash":   passwordHash,
		"failed_attempts": 0,
	})
	if err != nil {
		return &domain.ErrExternalService{Service: "supabase/auth", Err: err}
	}
	return nil
}

func (c *Client) GetCredentials(ctx context.Context, userID string) (*domain.AuthCredential, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetCredentials")
	defer span.End()

	var cred *domain.AuthCredential
	err := c.execute(ctx, func() error {
		path := fmt.Sprintf("auth_credentials?user_id=eq.%s&limit=1", userID)
		body, err := c.doRequest(ctx, http.MethodGet, path)
		if err != nil {
			return err
		}

		var rows []domain.AuthCredential
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("decode credentials: %w", err)
		}
		if len(rows) > 0 {
			cred = &rows[0]
		}
		return nil
	})
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/auth", Err: err}
	}
	if cred == nil {
		return nil, &domain.ErrNotFound{Resource: "credentials", ID: userID}
	}
	return cred, nil
}

func (c *Client) UpdateCredentials(ctx context.Context, userID string, updates map[string]any) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateCredentials")
	defer span.End()

	err := c.doPatch(ctx, fmt.Sprintf("auth_credentials?user_id=eq.%s", userID), updates)
	if err != nil {
		return &domain.ErrExternalService{Service: "supabase/auth", Err: err}
	}
	return nil
}

func (c *Client) StoreRefreshToken(ctx context.Context, token *domain.AuthRefreshToken) error {
	ctx, span := tracer.Start(ctx, "Supabase.StoreRefreshToken")
	defer span.End()

	_, err := c.doPost(ctx, "auth_refresh_tokens", map[string]any{
		"id":         token.ID,
		"user_id":    token.UserID,
		"token_hash": token.TokenHash,
		"expires_at": token.ExpiresAt,
		"revoked":    false,
	})
	if err != nil {
		return &domain.ErrExternalService{Service: "supabase/auth", Err: err}
	}
	return nil
}

func (c *Client) GetRefreshToken(ctx context.Context, tokenHash string) (*domain.AuthRefreshToken, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetRefreshToken")
	defer span.End()

	var token *domain.AuthRefreshToken
	err := c.execute(ctx, func() error {
		path := fmt.Sprintf("auth_refresh_tokens?token_hash=eq.%s&revoked=eq.false&limit=1", tokenHash)
		body, err := c.doRequest(ctx, http.MethodGet, path)
		if err != nil {
			return err
		}

		var rows []domain.AuthRefreshToken
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("decode refresh token: %w", err)
		}
		if len(rows) > 0 {
			token = &rows[0]
		}
		return nil
	})
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/auth", Err: err}
	}
	if token == nil {
		return nil, &domain.ErrNotFound{Resource: "refresh_token", ID: "-"}
	}
	return token, nil
}

func (c *Client) RevokeRefreshToken(ctx context.Context, tokenID string) error {
	ctx, span := tracer.Start(ctx, "Supabase.RevokeRefreshToken")
	defer span.End()

	err := c.doPatch(ctx, fmt.Sprintf("auth_refresh_tokens?id=eq.%s", tokenID), map[string]any{
		"revoked": true,
	})
	if err != nil {
		return &domain.ErrExternalService{Service: "supabase/auth", Err: err}
	}
	return nil
}

func (c *Client) RevokeAllRefreshTokens(ctx context.Context, userID string) error {
	ctx, span := tracer.Start(ctx, "Supabase.RevokeAllRefreshTokens")
	defer span.End()

	err := c.doPatch(ctx, fmt.Sprintf("auth_refresh_tokens?user_id=eq.%s&revoked=eq.false", userID), map[string]any{
		"revoked": true,
	})
	if err != nil {
		return &domain.ErrExternalService{Service: "supabase/auth", Err: err}
	}
	return nil
}
