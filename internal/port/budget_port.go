package port

import (
	"context"

	"github.com/regenpay/wallet-api/internal/domain"
)

// BudgetStore handles budget data operations.
type BudgetStore interface {
	ListBudgets(ctx context.Context, userID string) ([]domain.Budget, error)
	GetBudget(ctx context.Context, budgetID string) (*domain.Budget, error)
	CreateBudget(ctx context.Context, budget *domain.Budget) (*domain.Budget, error)
	UpdateBudget(ctx context.Context, budgetID string, updates map[string]any) (*domain.Budget, error)
	DeleteBudget(ctx context.Context, budgetID string) error

	// IncrementSpent applies a server-side atomic delta to the budget's
	// spent counter so concurrent spends never lose updates.
	IncrementSpent(ctx context.Context, budgetID string, delta float64) error
}
