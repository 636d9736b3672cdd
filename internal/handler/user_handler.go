package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/regenpay/wallet-api/internal/domain"
	"github.com/regenpay/wallet-api/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// Profile and wallet-read endpoints
// ============================================================

func getProfileHandler(walletSvc *service.WalletService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /users/{userId}/profile")
		defer span.End()

		profile, err := walletSvc.GetProfile(ctx, chi.URLParam(r, "userId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, profile)
	}
}

func updateProfileHandler(walletSvc *service.WalletService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /users/{userId}/profile")
		defer span.End()

		var req domain.UpdateProfileRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		profile, err := walletSvc.UpdateProfile(ctx, chi.URLParam(r, "userId"), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, profile)
	}
}

func getBalanceHandler(walletSvc *service.WalletService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /users/{userId}/balance")
		defer span.End()

		balance, currency, err := walletSvc.Balance(ctx, chi.URLParam(r, "userId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"balance":  balance,
			"currency": currency,
		})
	}
}

func listTransactionsHandler(walletSvc *service.WalletService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /users/{userId}/transactions")
		defer span.End()

		limit := parseLimit(r, 20, 100)
		txType := r.URL.Query().Get("type")

		txs, err := walletSvc.RecentTransactions(ctx, chi.URLParam(r, "userId"), limit, txType)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, txs)
	}
}

func monthlySpendingHandler(walletSvc *service.WalletService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /users/{userId}/spending")
		defer span.End()

		now := time.Now().UTC()
		month := int(now.Month())
		year := now.Year()
		if v := r.URL.Query().Get("month"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "month must be a number")
				return
			}
			month = n
		}
		if v := r.URL.Query().Get("year"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "year must be a number")
				return
			}
			year = n
		}

		spending, err := walletSvc.MonthlySpending(ctx, chi.URLParam(r, "userId"), month, year)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, spending)
	}
}

func listPendingDepositsHandler(walletSvc *service.WalletService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /users/{userId}/deposits")
		defer span.End()

		deps, err := walletSvc.PendingDeposits(ctx, chi.URLParam(r, "userId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, deps)
	}
}

func homeSummaryHandler(walletSvc *service.WalletService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /users/{userId}/home")
		defer span.End()

		summary, err := walletSvc.HomeSummary(ctx, chi.URLParam(r, "userId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}
