package handler

import (
	"net/http"
	"time"

	"github.com/regenpay/wallet-api/internal/infra/observability"
	"github.com/regenpay/wallet-api/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// NewRouter creates the HTTP router with all routes and middleware.
// Routes follow the API contract of the mobile wallet client.
func NewRouter(walletSvc *service.WalletService, budgetSvc *service.BudgetService, authSvc *service.AuthService, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.MetricsMiddleware(metrics))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(logger))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {

		// =============================================
		// Auth (public)
		// =============================================
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authRegisterHandler(authSvc, logger))
			r.Post("/login", authLoginHandler(authSvc, logger))
			r.Post("/refresh", authRefreshHandler(authSvc, logger))

			r.Group(func(r chi.Router) {
				r.Use(JWTAuthMiddleware(authSvc, logger))
				r.Post("/logout", authLogoutHandler(authSvc, logger))
			})
		})

		// =============================================
		// Everything below requires a valid access token.
		// =============================================
		r.Group(func(r chi.Router) {
			r.Use(JWTAuthMiddleware(authSvc, logger))

			// Users & wallet reads (owner-only)
			r.Route("/users/{userId}", func(r chi.Router) {
				r.Use(OwnerOnlyMiddleware(logger))
				r.Get("/profile", getProfileHandler(walletSvc, logger))
				r.Put("/profile", updateProfileHandler(walletSvc, logger))
				r.Get("/balance", getBalanceHandler(walletSvc, logger))
				r.Get("/transactions", listTransactionsHandler(walletSvc, logger))
				r.Get("/spending", monthlySpendingHandler(walletSvc, logger))
				r.Get("/home", homeSummaryHandler(walletSvc, logger))
				r.Get("/deposits", listPendingDepositsHandler(walletSvc, logger))

				r.Get("/budgets", listBudgetsHandler(budgetSvc, logger))
				r.Post("/budgets", createBudgetHandler(budgetSvc, logger))
			})

			// Budgets addressed by their own id (ownership checked in handler)
			r.Put("/budgets/{budgetId}", updateBudgetHandler(budgetSvc, logger))
			r.Delete("/budgets/{budgetId}", deleteBudgetHandler(budgetSvc, logger))

			// Spend pre-check for the UI
			r.Post("/spend-checks", spendCheckHandler(budgetSvc, logger))

			// Money movement
			r.Route("/wallet", func(r chi.Router) {
				r.Post("/send", sendHandler(walletSvc, logger))
				r.Post("/withdrawals", withdrawHandler(walletSvc, logger))
				r.Post("/deposits", depositHandler(walletSvc, logger))
				r.Post("/deposits/{depositId}/complete", completeDepositHandler(walletSvc, logger))
				r.Get("/deposits/{depositId}/status", depositStatusHandler(walletSvc, logger))
			})

			// Counter snapshot
			r.Get("/metrics/ops", opsMetricsHandler(metrics, logger))
		})
	})

	return r
}

// ============================================================
// Operational handlers
// ============================================================

var startTime = time.Now()

func healthzHandler(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":         "ok",
			"uptime_seconds": int(time.Since(startTime).Seconds()),
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func opsMetricsHandler(metrics *observability.Metrics, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetOpsSnapshot())
	}
}
