package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/regenpay/wallet-api/internal/domain"

	"go.uber.org/zap"
)

// ============================================================
// Shared helper functions
// ============================================================

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func parseLimit(r *http.Request, fallback, max int) int {
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= max {
			return n
		}
	}
	return fallback
}

// handleServiceError maps domain errors to HTTP responses.
func handleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var notFound *domain.ErrNotFound
	var circuitOpen *domain.ErrCircuitOpen
	var timeout *domain.ErrTimeout
	var validation *domain.ErrValidation
	var insufficientFunds *domain.ErrInsufficientFunds
	var budgetExceeded *domain.ErrBudgetExceeded
	var forbidden *domain.ErrForbidden
	var unauthorized *domain.ErrUnauthorized
	var accountLocked *domain.ErrAccountLocked
	var conflict *domain.ErrConflict
	var paymentFailed *domain.ErrPaymentFailed

	switch {
	case errors.As(err, &notFound):
		logger.Debug("not found", zap.String("error", err.Error()))
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &circuitOpen):
		logger.Error("circuit breaker open", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &timeout):
		logger.Error("request timeout", zap.Error(err))
		writeError(w, http.StatusGatewayTimeout, err.Error())
	case errors.As(err, &validation):
		logger.Debug("validation error", zap.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &insufficientFunds):
		logger.Warn("insufficient funds",
			zap.Float64("available", insufficientFunds.Available),
			zap.Float64("required", insufficientFunds.Required),
		)
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &budgetExceeded):
		logger.Warn("budget exceeded",
			zap.String("category", budgetExceeded.Category),
			zap.Float64("limit", budgetExceeded.Limit),
			zap.Float64("spent", budgetExceeded.Spent),
			zap.Float64("attempted", budgetExceeded.Attempted),
		)
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &forbidden):
		logger.Warn("forbidden access", zap.String("error", err.Error()))
		writeError(w, http.StatusForbidden, err.Error())
	case errors.As(err, &unauthorized):
		logger.Warn("unauthorized", zap.String("error", err.Error()))
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.As(err, &accountLocked):
		logger.Warn("account locked", zap.Int("retry_after_minutes", accountLocked.RetryAfterMinutes))
		writeError(w, http.StatusLocked, err.Error())
	case errors.As(err, &conflict):
		logger.Debug("conflict", zap.String("error", err.Error()))
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &paymentFailed):
		logger.Warn("payment failed", zap.String("method", paymentFailed.Method), zap.String("error", err.Error()))
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		logger.Error("unhandled error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
