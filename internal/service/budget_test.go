package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/regenpay/wallet-api/internal/domain"
	"github.com/regenpay/wallet-api/internal/infra/observability"
	"github.com/regenpay/wallet-api/internal/service"

	"go.uber.org/zap"
)

// mockBudgetStore implements port.BudgetStore in memory.
type mockBudgetStore struct {
	mu         sync.Mutex
	budgets    []domain.Budget
	listErr    error
	increments map[string]float64
	deleted    []string
}

func (m *mockBudgetStore) ListBudgets(ctx context.Context, userID string) ([]domain.Budget, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []domain.Budget
	for _, b := range m.budgets {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *mockBudgetStore) GetBudget(ctx context.Context, budgetID string) (*domain.Budget, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.budgets {
		if m.budgets[i].ID == budgetID {
			return &m.budgets[i], nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "budget", ID: budgetID}
}

func (m *mockBudgetStore) CreateBudget(ctx context.Context, budget *domain.Budget) (*domain.Budget, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.budgets = append(m.budgets, *budget)
	return budget, nil
}

func (m *mockBudgetStore) UpdateBudget(ctx context.Context, budgetID string, updates map[string]any) (*domain.Budget, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.budgets {
		if m.budgets[i].ID == budgetID {
			if v, ok := updates["category"].(string); ok {
				m.budgets[i].Category = v
			}
			if v, ok := updates["total"].(float64); ok {
				m.budgets[i].Total = v
			}
			return &m.budgets[i], nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "budget", ID: budgetID}
}

func (m *mockBudgetStore) DeleteBudget(ctx context.Context, budgetID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, budgetID)
	for i := range m.budgets {
		if m.budgets[i].ID == budgetID {
			m.budgets = append(m.budgets[:i], m.budgets[i+1:]...)
			break
		}
	}
	return nil
}

func (m *mockBudgetStore) IncrementSpent(ctx context.Context, budgetID string, delta float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.increments == nil {
		m.increments = map[string]float64{}
	}
	m.increments[budgetID] += delta
	for i := range m.budgets {
		if m.budgets[i].ID == budgetID {
			m.budgets[i].Spent += delta
		}
	}
	return nil
}

func newBudgetService(store *mockBudgetStore) *service.BudgetService {
	return service.NewBudgetService(store, observability.NewMetrics(), zap.NewNop())
}

func TestAuthorize_InclusiveBoundary(t *testing.T) {
	store := &mockBudgetStore{budgets: []domain.Budget{
		{ID: "b1", UserID: "u1", Category: "Groceries", Spent: 750, Total: 1000},
	}}
	svc := newBudgetService(store)

	// Landing exactly on the limit is allowed.
	d := svc.Authorize(context.Background(), "u1", "Groceries", 250)
	if d.Verdict != domain.SpendAllowed {
		t.Fatalf("amount 250: expected allowed, got %s (%s)", d.Verdict, d.Reason)
	}
	if d.Budget == nil || d.Budget.ID != "b1" {
		t.Fatal("expected matched budget b1 on the decision")
	}

	// One over the limit is denied.
	d = svc.Authorize(context.Background(), "u1", "Groceries", 251)
	if d.Verdict != domain.SpendDenied {
		t.Fatalf("amount 251: expected denied, got %s", d.Verdict)
	}
}

func TestAuthorize_NoBudgetAllows(t *testing.T) {
	store := &mockBudgetStore{budgets: []domain.Budget{
		{ID: "b1", UserID: "u1", Category: "Groceries", Spent: 0, Total: 100},
	}}
	svc := newBudgetService(store)

	d := svc.Authorize(context.Background(), "u1", "Entertainment", 1e9)
	if d.Verdict != domain.SpendAllowed {
		t.Fatalf("expected allowed without a budget, got %s", d.Verdict)
	}
	if d.Budget != nil {
		t.Fatal("expected no budget on the decision")
	}
}

func TestAuthorize_CategoryMatchIgnoresCase(t *testing.T) {
	store := &mockBudgetStore{budgets: []domain.Budget{
		{ID: "b1", UserID: "u1", Category: "groceries", Spent: 90, Total: 100},
	}}
	svc := newBudgetService(store)

	d := svc.Authorize(context.Background(), "u1", "Groceries", 50)
	if d.Verdict != domain.SpendDenied {
		t.Fatalf("expected case-insensitive match to deny, got %s", d.Verdict)
	}
}

func TestAuthorize_StoreErrorIsIndeterminate(t *testing.T) {
	store := &mockBudgetStore{listErr: errors.New("connection refused")}
	svc := newBudgetService(store)

	d := svc.Authorize(context.Background(), "u1", "Groceries", 10)
	if d.Verdict != domain.SpendIndeterminate {
		t.Fatalf("expected indeterminate on store error, got %s", d.Verdict)
	}
	// The allow-on-indeterminate policy still lets the spend through.
	if !d.Allowed() {
		t.Fatal("expected Allowed() to be true for indeterminate")
	}
}

func TestApplySpend_IncrementsByDelta(t *testing.T) {
	store := &mockBudgetStore{budgets: []domain.Budget{
		{ID: "b1", UserID: "u1", Category: "Groceries", Spent: 100, Total: 1000},
	}}
	svc := newBudgetService(store)

	if err := svc.ApplySpend(context.Background(), "b1", 40); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.ApplySpend(context.Background(), "b1", 60); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := store.increments["b1"]; got != 100 {
		t.Errorf("expected accumulated delta 100, got %.2f", got)
	}
	if store.budgets[0].Spent != 200 {
		t.Errorf("expected spent 200, got %.2f", store.budgets[0].Spent)
	}
	if store.budgets[0].Total != 1000 {
		t.Errorf("total must not change, got %.2f", store.budgets[0].Total)
	}
}

func TestCreateBudget_Validation(t *testing.T) {
	svc := newBudgetService(&mockBudgetStore{})

	_, err := svc.CreateBudget(context.Background(), "u1", &domain.CreateBudgetRequest{Category: "  ", Total: 100})
	var verr *domain.ErrValidation
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error for empty category, got %v", err)
	}

	_, err = svc.CreateBudget(context.Background(), "u1", &domain.CreateBudgetRequest{Category: "Dining", Total: 0})
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error for zero total, got %v", err)
	}
}

func TestCreateBudget_StartsUnspent(t *testing.T) {
	store := &mockBudgetStore{}
	svc := newBudgetService(store)

	b, err := svc.CreateBudget(context.Background(), "u1", &domain.CreateBudgetRequest{Category: "Dining", Total: 500})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.Spent != 0 {
		t.Errorf("expected zero spent, got %.2f", b.Spent)
	}
	if b.ID == "" {
		t.Error("expected a generated id")
	}
}

func TestDeleteBudget_RemovesFromList(t *testing.T) {
	store := &mockBudgetStore{budgets: []domain.Budget{
		{ID: "b1", UserID: "u1", Category: "Groceries", Spent: 10, Total: 100},
	}}
	svc := newBudgetService(store)

	if err := svc.DeleteBudget(context.Background(), "b1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	budgets, err := svc.ListBudgets(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(budgets) != 0 {
		t.Errorf("expected empty budget list, got %d", len(budgets))
	}
}

func TestDeleteBudget_NotFound(t *testing.T) {
	svc := newBudgetService(&mockBudgetStore{})

	err := svc.DeleteBudget(context.Background(), "missing")
	var nf *domain.ErrNotFound
	if !errors.As(err, &nf) {
		t.Fatalf("expected not found, got %v", err)
	}
}
