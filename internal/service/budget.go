package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/regenpay/wallet-api/internal/domain"
	"github.com/regenpay/wallet-api/internal/infra/observability"
	"github.com/regenpay/wallet-api/internal/port"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var budgetTracer = otel.Tracer("service/budget")

// BudgetService manages category budgets and authorizes spends against
// them.
type BudgetService struct {
	store   port.BudgetStore
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewBudgetService creates a new budget service.
func NewBudgetService(store port.BudgetStore, metrics *observability.Metrics, logger *zap.Logger) *BudgetService {
	return &BudgetService{
		store:   store,
		metrics: metrics,
		logger:  logger,
	}
}

// ============================================================
// CRUD
// ============================================================

func (s *BudgetService) ListBudgets(ctx context.Context, userID string) ([]domain.Budget, error) {
	ctx, span := budgetTracer.Start(ctx, "BudgetService.ListBudgets")
	defer span.End()

	budgets, err := s.store.ListBudgets(ctx, userID)
	if err != nil {
		s.metrics.IncrExternalError("budgets")
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	return budgets, nil
}

func (s *BudgetService) GetBudget(ctx context.Context, budgetID string) (*domain.Budget, error) {
	ctx, span := budgetTracer.Start(ctx, "BudgetService.GetBudget")
	defer span.End()

	budget, err := s.store.GetBudget(ctx, budgetID)
	if err != nil {
		return nil, fmt.Errorf("get budget: %w", err)
	}
	return budget, nil
}

func (s *BudgetService) CreateBudget(ctx context.Context, userID string, req *domain.CreateBudgetRequest) (*domain.Budget, error) {
	ctx, span := budgetTracer.Start(ctx, "BudgetService.CreateBudget")
	defer span.End()

	if strings.TrimSpace(req.Category) == "" {
		return nil, &domain.ErrValidation{Field: "category", Message: "category is required"}
	}
	if req.Total <= 0 {
		return nil, &domain.ErrValidation{Field: "total", Message: "total must be greater than zero"}
	}

	budget := &domain.Budget{
		ID:        uuid.NewString(),
		UserID:    userID,
		Category:  strings.TrimSpace(req.Category),
		Icon:      req.Icon,
		Color:     req.Color,
		Spent:     0,
		Total:     req.Total,
		CreatedAt: time.Now().UTC(),
	}

	created, err := s.store.CreateBudget(ctx, budget)
	if err != nil {
		s.metrics.IncrExternalError("budgets")
		return nil, fmt.Errorf("create budget: %w", err)
	}

	s.logger.Info("budget created",
		zap.String("budget_id", created.ID),
		zap.String("user_id", userID),
		zap.String("category", created.Category),
		zap.Float64("total", created.Total),
	)
	return created, nil
}

func (s *BudgetService) UpdateBudget(ctx context.Context, budgetID string, req *domain.UpdateBudgetRequest) (*domain.Budget, error) {
	ctx, span := budgetTracer.Start(ctx, "BudgetService.UpdateBudget")
	defer span.End()

	updates := map[string]any{}
	if strings.TrimSpace(req.Category) != "" {
		updates["category"] = strings.TrimSpace(req.Category)
	}
	if req.Total > 0 {
		updates["total"] = req.Total
	}
	if req.Icon != "" {
		updates["icon"] = req.Icon
	}
	if req.Color != "" {
		updates["color"] = req.Color
	}

	if len(updates) == 0 {
		return nil, &domain.ErrValidation{Field: "body", Message: "no fields to update"}
	}

	updated, err := s.store.UpdateBudget(ctx, budgetID, updates)
	if err != nil {
		return nil, fmt.Errorf("update budget: %w", err)
	}

	s.logger.Info("budget updated", zap.String("budget_id", budgetID))
	return updated, nil
}

// DeleteBudget removes a budget. The delete is irreversible and does not
// cascade: transactions recorded against the budget keep their category
// and budget_id.
func (s *BudgetService) DeleteBudget(ctx context.Context, budgetID string) error {
	ctx, span := budgetTracer.Start(ctx, "BudgetService.DeleteBudget")
	defer span.End()

	// Surface not-found before issuing the delete; PostgREST deletes of
	// missing rows succeed silently.
	if _, err := s.store.GetBudget(ctx, budgetID); err != nil {
		return fmt.Errorf("get budget: %w", err)
	}

	if err := s.store.DeleteBudget(ctx, budgetID); err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}

	s.logger.Info("budget deleted", zap.String("budget_id", budgetID))
	return nil
}

// ============================================================
// Spend authorization
// ============================================================

// Authorize checks whether spending amount in category would stay within
// the user's budget. The verdict is tagged:
//   - Allowed: no budget covers the category, or spent+amount <= total
//     (the boundary is inclusive: a spend landing exactly on the limit
//     passes).
//   - Denied: the matched budget would be exceeded.
//   - Indeterminate: the budget list could not be read. Callers decide
//     the policy; the wallet service allows and logs.
func (s *BudgetService) Authorize(ctx context.Context, userID, category string, amount float64) *domain.SpendDecision {
	ctx, span := budgetTracer.Start(ctx, "BudgetService.Authorize")
	defer span.End()
	span.SetAttributes(
		attribute.String("budget.category", category),
		attribute.Float64("budget.amount", amount),
	)

	decision := s.authorize(ctx, userID, category, amount)
	s.metrics.IncrSpendDecision(decision.Verdict)
	return decision
}

func (s *BudgetService) authorize(ctx context.Context, userID, category string, amount float64) *domain.SpendDecision {
	budgets, err := s.store.ListBudgets(ctx, userID)
	if err != nil {
		s.metrics.IncrExternalError("budgets")
		s.logger.Warn("spend check could not read budgets",
			zap.String("user_id", userID),
			zap.String("category", category),
			zap.Error(err),
		)
		return &domain.SpendDecision{
			Verdict:  domain.SpendIndeterminate,
			Category: category,
			Reason:   "budget store unavailable",
		}
	}

	budget := matchBudget(budgets, category)
	if budget == nil {
		return &domain.SpendDecision{
			Verdict:  domain.SpendAllowed,
			Category: category,
			Reason:   "no budget for category",
		}
	}

	if budget.Spent+amount <= budget.Total {
		return &domain.SpendDecision{
			Verdict:  domain.SpendAllowed,
			Category: category,
			Budget:   budget,
		}
	}

	s.logger.Info("spend denied by budget",
		zap.String("user_id", userID),
		zap.String("category", category),
		zap.Float64("amount", amount),
		zap.Float64("spent", budget.Spent),
		zap.Float64("total", budget.Total),
	)
	return &domain.SpendDecision{
		Verdict:  domain.SpendDenied,
		Category: category,
		Budget:   budget,
		Reason:   fmt.Sprintf("would exceed %s budget (%.2f of %.2f spent)", budget.Category, budget.Spent, budget.Total),
	}
}

// matchBudget returns the first budget whose category equals the given
// one, ignoring case.
func matchBudget(budgets []domain.Budget, category string) *domain.Budget {
	for i := range budgets {
		if strings.EqualFold(budgets[i].Category, category) {
			return &budgets[i]
		}
	}
	return nil
}

// ApplySpend records amount against the budget via a server-side atomic
// increment, keyed by the budget ID captured at authorization time so a
// concurrent rename cannot misroute the charge.
func (s *BudgetService) ApplySpend(ctx context.Context, budgetID string, amount float64) error {
	ctx, span := budgetTracer.Start(ctx, "BudgetService.ApplySpend")
	defer span.End()

	if err := s.store.IncrementSpent(ctx, budgetID, amount); err != nil {
		s.metrics.IncrExternalError("budgets")
		return fmt.Errorf("apply spend: %w", err)
	}
	return nil
}
