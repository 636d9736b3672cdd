package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/regenpay/wallet-api/internal/domain"

	"go.uber.org/zap"
)

// ============================================================
// Transactions — append-only ledger via PostgREST
// ============================================================

// InsertTransaction appends a ledger entry. There is intentionally no
// update or delete path; the ledger is immutable.
func (c *Client) InsertTransaction(ctx context.Context, tx *domain.Transaction) (*domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "Supabase.InsertTransaction")
	defer span.End()

	data := map[string]any{
		"id":          tx.ID,
		"user_id":     tx.UserID,
		"description": tx.Description,
		"amount":      tx.Amount,
		"type":        tx.Type,
		"category":    tx.Category,
		"status":      tx.Status,
		"created_at":  tx.CreatedAt.Format(time.RFC3339),
	}
	if tx.BudgetID != "" {
		data["budget_id"] = tx.BudgetID
	}

	body, err := c.doPost(ctx, "transactions", data)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/transactions", Err: err}
	}

	var rows []domain.Transaction
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode inserted transaction: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("insert transaction returned no rows")
	}

	c.logger.Info("supabase: transaction recorded",
		zap.String("tx_id", rows[0].ID),
		zap.String("user_id", rows[0].UserID),
		zap.String("type", rows[0].Type),
		zap.Float64("amount", rows[0].Amount),
	)
	return &rows[0], nil
}

func (c *Client) ListTransactions(ctx context.Context, userID string, limit int, txType string) ([]domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListTransactions")
	defer span.End()

	if limit <= 0 || limit > 100 {
		limit = 50
	}
	path := fmt.Sprintf("transactions?user_id=eq.%s&order=created_at.desc&limit=%d", userID, limit)
	if txType != "" {
		path += fmt.Sprintf("&type=eq.%s", txType)
	}

	var txs []domain.Transaction
	err := c.execute(ctx, func() error {
		body, err := c.doRequest(ctx, http.MethodGet, path)
		if err != nil {
			return err
		}
		if body == nil {
			txs = []domain.Transaction{}
			return nil
		}
		if err := json.Unmarshal(body, &txs); err != nil {
			return fmt.Errorf("decode transactions: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/transactions", Err: err}
	}
	return txs, nil
}

// ListTransactionsBetween returns all of a user's transactions in
// [from, to), oldest first. Used by the monthly spending aggregation.
func (c *Client) ListTransactionsBetween(ctx context.Context, userID string, from, to time.Time) ([]domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListTransactionsBetween")
	defer span.End()

	path := fmt.Sprintf("transactions?user_id=eq.%s&created_at=gte.%s&created_at=lt.%s&order=created_at.asc",
		userID, from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339))

	var txs []domain.Transaction
	err := c.execute(ctx, func() error {
		body, err := c.doRequest(ctx, http.MethodGet, path)
		if err != nil {
			return err
		}
		if body == nil {
			txs = []domain.Transaction{}
			return nil
		}
		if err := json.Unmarshal(body, &txs); err != nil {
			return fmt.Errorf("decode transactions: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/transactions", Err: err}
	}
	return txs, nil
}
