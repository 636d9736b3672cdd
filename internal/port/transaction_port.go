package port

import (
	"context"
	"time"

	"github.com/regenpay/wallet-api/internal/domain"
)

// TransactionStore handles the append-only transaction ledger.
// Transactions are never updated or deleted once inserted.
type TransactionStore interface {
	InsertTransaction(ctx context.Context, tx *domain.Transaction) (*domain.Transaction, error)
	ListTransactions(ctx context.Context, userID string, limit int, txType string) ([]domain.Transaction, error)
	ListTransactionsBetween(ctx context.Context, userID string, from, to time.Time) ([]domain.Transaction, error)
}
