package handler

import (
	"encoding/json"
	"net/http"

	"github.com/regenpay/wallet-api/internal/domain"
	"github.com/regenpay/wallet-api/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// Budget endpoints
// ============================================================

func listBudgetsHandler(budgetSvc *service.BudgetService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /users/{userId}/budgets")
		defer span.End()

		budgets, err := budgetSvc.ListBudgets(ctx, chi.URLParam(r, "userId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, budgets)
	}
}

func createBudgetHandler(budgetSvc *service.BudgetService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /users/{userId}/budgets")
		defer span.End()

		var req domain.CreateBudgetRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		budget, err := budgetSvc.CreateBudget(ctx, chi.URLParam(r, "userId"), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, budget)
	}
}

// checkBudgetOwner loads a budget and rejects the request when it
// belongs to another user. Returns nil after writing the response.
func checkBudgetOwner(w http.ResponseWriter, r *http.Request, budgetSvc *service.BudgetService, logger *zap.Logger) *domain.Budget {
	budgetID := chi.URLParam(r, "budgetId")
	budget, err := budgetSvc.GetBudget(r.Context(), budgetID)
	if err != nil {
		handleServiceError(w, err, logger)
		return nil
	}
	authUserID := UserIDFromContext(r.Context())
	if budget.UserID != authUserID {
		logger.Warn("ownership check failed",
			zap.String("budget_id", budgetID),
			zap.String("auth_user_id", authUserID),
		)
		writeError(w, http.StatusForbidden, "forbidden: budget belongs to another user")
		return nil
	}
	return budget
}

func updateBudgetHandler(budgetSvc *service.BudgetService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /budgets/{budgetId}")
		defer span.End()

		if checkBudgetOwner(w, r, budgetSvc, logger) == nil {
			return
		}

		var req domain.UpdateBudgetRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		budget, err := budgetSvc.UpdateBudget(ctx, chi.URLParam(r, "budgetId"), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, budget)
	}
}

func deleteBudgetHandler(budgetSvc *service.BudgetService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /budgets/{budgetId}")
		defer span.End()

		if checkBudgetOwner(w, r, budgetSvc, logger) == nil {
			return
		}

		if err := budgetSvc.DeleteBudget(ctx, chi.URLParam(r, "budgetId")); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// ============================================================
// Spend pre-check
// ============================================================

// spendCheckHandler answers "would this spend pass?" without moving
// money. When the category is omitted it is inferred from the
// description and recipient.
func spendCheckHandler(budgetSvc *service.BudgetService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /spend-checks")
		defer span.End()

		var req domain.SpendCheckRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if !requireBodyOwner(w, r, req.UserID, logger) {
			return
		}
		if req.Amount <= 0 {
			writeError(w, http.StatusBadRequest, "amount must be greater than zero")
			return
		}
		if req.Category == "" && req.Description == "" && req.Recipient == "" {
			writeError(w, http.StatusBadRequest, "category or description is required")
			return
		}

		category := req.Category
		if category == "" {
			category = service.Classify(req.Description, req.Recipient)
		}

		decision := budgetSvc.Authorize(ctx, req.UserID, category, req.Amount)
		writeJSON(w, http.StatusOK, decision)
	}
}
