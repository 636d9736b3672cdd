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
// Pending deposits — gateway confirmation tracking
// ============================================================

func (c *Client) CreatePendingDeposit(ctx context.Context, dep *domain.PendingDeposit) (*domain.PendingDeposit, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreatePendingDeposit")
	defer span.End()

	body, err := c.doPost(ctx, "pending_deposits", map[string]any{
		"id":            dep.ID,
		"user_id":       dep.UserID,
		"amount":        dep.Amount,
		"method":        dep.Method,
		"reference":     dep.Reference,
		"gateway_tx_id": dep.GatewayTxID,
		"status":        dep.Status,
	})
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/pending_deposits", Err: err}
	}

	var rows []domain.PendingDeposit
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode created deposit: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("create pending deposit returned no rows")
	}

	c.logger.Info("supabase: pending deposit created",
		zap.String("deposit_id", rows[0].ID),
		zap.String("user_id", rows[0].UserID),
		zap.String("reference", rows[0].Reference),
	)
	return &rows[0], nil
}

func (c *Client) GetPendingDeposit(ctx context.Context, depositID string) (*domain.PendingDeposit, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetPendingDeposit")
	defer span.End()

	var dep *domain.PendingDeposit
	err := c.execute(ctx, func() error {
		path := fmt.Sprintf("pending_deposits?id=eq.%s&limit=1", depositID)
		body, err := c.doRequest(ctx, http.MethodGet, path)
		if err != nil {
			return err
		}

		var rows []domain.PendingDeposit
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("decode deposit: %w", err)
		}
		if len(rows) > 0 {
			dep = &rows[0]
		}
		return nil
	})
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/pending_deposits", Err: err}
	}
	if dep == nil {
		return nil, &domain.ErrNotFound{Resource: "deposit", ID: depositID}
	}
	return dep, nil
}

func (c *Client) UpdateDepositStatus(ctx context.Context, depositID, status string) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateDepositStatus")
	defer span.End()

	err := c.doPatch(ctx, fmt.Sprintf("pending_deposits?id=eq.%s", depositID), map[string]any{
		"status": status,
	})
	if err != nil {
		return &domain.ErrExternalService{Service: "supabase/pending_deposits", Err: err}
	}

	c.logger.Info("supabase: deposit status updated",
		zap.String("deposit_id", depositID),
		zap.String("status", status),
	)
	return nil
}

func (c *Client) ListPendingDeposits(ctx context.Context, userID string) ([]domain.PendingDeposit, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListPendingDeposits")
	defer span.End()

	var deps []domain.PendingDeposit
	err := c.execute(ctx, func() error {
		path := fmt.Sprintf("pending_deposits?user_id=eq.%s&status=eq.pending&order=created_at.desc", userID)
		body, err := c.doRequest(ctx, http.MethodGet, path)
		if err != nil {
			return err
		}
		if body == nil {
			deps = []domain.PendingDeposit{}
			return nil
		}
		if err := json.Unmarshal(body, &deps); err != nil {
			return fmt.Errorf("decode deposits: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/pending_deposits", Err: err}
	}
	return deps, nil
}
