package port

import (
	"context"

	"github.com/regenpay/wallet-api/internal/domain"
)

// DepositStore tracks pending deposits until the gateway confirms them.
type DepositStore interface {
	CreatePendingDeposit(ctx context.Context, dep *domain.PendingDeposit) (*domain.PendingDeposit, error)
	GetPendingDeposit(ctx context.Context, depositID string) (*domain.PendingDeposit, error)
	UpdateDepositStatus(ctx context.Context, depositID, status string) error
	ListPendingDeposits(ctx context.Context, userID string) ([]domain.PendingDeposit, error)
}
