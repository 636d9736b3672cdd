package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/regenpay/wallet-api/internal/domain"
	"github.com/regenpay/wallet-api/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// Money movement endpoints
// ============================================================

// requireBodyOwner rejects requests whose body userId does not match the
// authenticated user. Returns false after writing the response.
func requireBodyOwner(w http.ResponseWriter, r *http.Request, bodyUserID string, logger *zap.Logger) bool {
	authUserID := UserIDFromContext(r.Context())
	if bodyUserID != authUserID {
		logger.Warn("ownership check failed",
			zap.String("path", r.URL.Path),
			zap.String("auth_user_id", authUserID),
			zap.String("body_user_id", bodyUserID),
		)
		writeError(w, http.StatusForbidden, "forbidden: wallet belongs to another user")
		return false
	}
	return true
}

func sendHandler(walletSvc *service.WalletService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /wallet/send")
		defer span.End()

		var req domain.SendRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if !requireBodyOwner(w, r, req.UserID, logger) {
			return
		}

		resp, err := walletSvc.Send(ctx, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func withdrawHandler(walletSvc *service.WalletService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /wallet/withdrawals")
		defer span.End()

		var req domain.WithdrawRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if !requireBodyOwner(w, r, req.UserID, logger) {
			return
		}

		resp, err := walletSvc.Withdraw(ctx, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func depositHandler(walletSvc *service.WalletService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /wallet/deposits")
		defer span.End()

		var req domain.DepositRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if !requireBodyOwner(w, r, req.UserID, logger) {
			return
		}

		resp, err := walletSvc.Deposit(ctx, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusAccepted, resp)
	}
}

// checkDepositOwner loads a deposit and rejects the request when it
// belongs to another user. Returns false after writing the response.
func checkDepositOwner(ctx context.Context, w http.ResponseWriter, walletSvc *service.WalletService, depositID string, logger *zap.Logger) bool {
	dep, err := walletSvc.GetDeposit(ctx, depositID)
	if err != nil {
		handleServiceError(w, err, logger)
		return false
	}
	authUserID := UserIDFromContext(ctx)
	if dep.UserID != authUserID {
		logger.Warn("ownership check failed",
			zap.String("deposit_id", depositID),
			zap.String("auth_user_id", authUserID),
		)
		writeError(w, http.StatusForbidden, "forbidden: deposit belongs to another user")
		return false
	}
	return true
}

func completeDepositHandler(walletSvc *service.WalletService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /wallet/deposits/{depositId}/complete")
		defer span.End()

		depositID := chi.URLParam(r, "depositId")
		if !checkDepositOwner(ctx, w, walletSvc, depositID, logger) {
			return
		}

		resp, err := walletSvc.CompleteDeposit(ctx, depositID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func depositStatusHandler(walletSvc *service.WalletService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /wallet/deposits/{depositId}/status")
		defer span.End()

		depositID := chi.URLParam(r, "depositId")
		if !checkDepositOwner(ctx, w, walletSvc, depositID, logger) {
			return
		}

		status, err := walletSvc.DepositStatus(ctx, depositID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, status)
	}
}
