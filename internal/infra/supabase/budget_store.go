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
// Budgets — CRUD + atomic spent increments via PostgREST
// ============================================================

func (c *Client) ListBudgets(ctx context.Context, userID string) ([]domain.Budget, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListBudgets")
	defer span.End()

	var budgets []domain.Budget
	err := c.execute(ctx, func() error {
		path := fmt.Sprintf("budgets?user_id=eq.%s&order=created_at.desc", userID)
		body, err := c.doRequest(ctx, http.MethodGet, path)
		if err != nil {
			return err
		}
		if body == nil {
			budgets = []domain.Budget{}
			return nil
		}
		if err := json.Unmarshal(body, &budgets); err != nil {
			return fmt.Errorf("decode budgets: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/budgets", Err: err}
	}
	return budgets, nil
}

func (c *Client) GetBudget(ctx context.Context, budgetID string) (*domain.Budget, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetBudget")
	defer span.End()

	var budget *domain.Budget
	err := c.execute(ctx, func() error {
		path := fmt.Sprintf("budgets?id=eq.%s&limit=1", budgetID)
		body, err := c.doRequest(ctx, http.MethodGet, path)
		if err != nil {
			return err
		}

		var rows []domain.Budget
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("decode budget: %w", err)
		}
		if len(rows) > 0 {
			budget = &rows[0]
		}
		return nil
	})
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/budgets", Err: err}
	}
	if budget == nil {
		return nil, &domain.ErrNotFound{Resource: "budget", ID: budgetID}
	}
	return budget, nil
}

func (c *Client) CreateBudget(ctx context.Context, budget *domain.Budget) (*domain.Budget, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateBudget")
	defer span.End()

	body, err := c.doPost(ctx, "budgets", map[string]any{
		"id":       budget.ID,
		"user_id":  budget.UserID,
		"category": budget.Category,
		"icon":     budget.Icon,
		"color":    budget.Color,
		"spent":    budget.Spent,
		"total":    budget.Total,
	})
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/budgets", Err: err}
	}

	var rows []domain.Budget
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode created budget: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("create budget returned no rows")
	}

	c.logger.Info("supabase: budget created",
		zap.String("budget_id", rows[0].ID),
		zap.String("user_id", rows[0].UserID),
		zap.String("category", rows[0].Category),
	)
	return &rows[0], nil
}

func (c *Client) UpdateBudget(ctx context.Context, budgetID string, updates map[string]any) (*domain.Budget, error) {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateBudget")
	defer span.End()

	body, err := c.doPatchReturning(ctx, fmt.Sprintf("budgets?id=eq.%s", budgetID), updates)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/budgets", Err: err}
	}

	var rows []domain.Budget
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode updated budget: %w", err)
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "budget", ID: budgetID}
	}
	return &rows[0], nil
}

// DeleteBudget removes the budget row. Transactions that reference the
// budget keep their category and budget_id; there is no cascade.
func (c *Client) DeleteBudget(ctx context.Context, budgetID string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteBudget")
	defer span.End()

	if err := c.doDelete(ctx, fmt.Sprintf("budgets?id=eq.%s", budgetID)); err != nil {
		return &domain.ErrExternalService{Service: "supabase/budgets", Err: err}
	}

	c.logger.Info("supabase: budget deleted", zap.String("budget_id", budgetID))
	return nil
}

// IncrementSpent applies a server-side atomic delta via the
// increment_budget_spent RPC. Concurrent spends each apply their own
// delta; no read-modify-write, no lost updates.
func (c *Client) IncrementSpent(ctx context.Context, budgetID string, delta float64) error {
	ctx, span := tracer.Start(ctx, "Supabase.IncrementSpent")
	defer span.End()

	_, err := c.doRPC(ctx, "increment_budget_spent", map[string]any{
		"p_budget_id": budgetID,
		"p_delta":     delta,
	})
	if err != nil {
		return &domain.ErrExternalService{Service: "supabase/budgets", Err: err}
	}

	c.logger.Info("supabase: budget spent incremented",
		zap.String("budget_id", budgetID),
		zap.Float64("delta", delta),
	)
	return nil
}
