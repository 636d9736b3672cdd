package integration_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/regenpay/wallet-api/internal/domain"
	"github.com/regenpay/wallet-api/internal/handler"
	"github.com/regenpay/wallet-api/internal/infra/cache"
	"github.com/regenpay/wallet-api/internal/infra/observability"
	"github.com/regenpay/wallet-api/internal/infra/payments"
	"github.com/regenpay/wallet-api/internal/infra/resilience"
	"github.com/regenpay/wallet-api/internal/infra/supabase"
	"github.com/regenpay/wallet-api/internal/service"

	"go.uber.org/zap"
)

// ============================================================
// Fake PostgREST backend
// ============================================================

// fakeSupabase emulates the slice of the PostgREST API the client uses:
// eq/gte/lt filters, order, limit, Prefer return=representation, and the
// two atomic-increment RPCs.
type fakeSupabase struct {
	mu     sync.Mutex
	tables map[string][]map[string]any
}

func newFakeSupabase() *fakeSupabase {
	return &fakeSupabase{tables: map[string][]map[string]any{}}
}

func (f *fakeSupabase) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		path := strings.TrimPrefix(r.URL.Path, "/rest/v1/")
		w.Header().Set("Content-Type", "application/json")

		if strings.HasPrefix(path, "rpc/") {
			f.handleRPC(w, r, strings.TrimPrefix(path, "rpc/"))
			return
		}

		table := path
		switch r.Method {
		case http.MethodGet:
			rows := f.filter(table, r)
			json.NewEncoder(w).Encode(rows)
		case http.MethodPost:
			var row map[string]any
			json.NewDecoder(r.Body).Decode(&row)
			f.tables[table] = append(f.tables[table], row)
			json.NewEncoder(w).Encode([]map[string]any{row})
		case http.MethodPatch:
			var updates map[string]any
			json.NewDecoder(r.Body).Decode(&updates)
			matched := f.filter(table, r)
			for _, row := range matched {
				for k, v := range updates {
					row[k] = v
				}
			}
			json.NewEncoder(w).Encode(matched)
		case http.MethodDelete:
			var kept []map[string]any
			matched := f.filter(table, r)
			for _, row := range f.tables[table] {
				remove := false
				for _, m := range matched {
					if fmt.Sprint(row["id"]) == fmt.Sprint(m["id"]) {
						remove = true
					}
				}
				if !remove {
					kept = append(kept, row)
				}
			}
			f.tables[table] = kept
			w.WriteHeader(http.StatusNoContent)
		}
	})
}

func (f *fakeSupabase) handleRPC(w http.ResponseWriter, r *http.Request, fn string) {
	var args map[string]any
	json.NewDecoder(r.Body).Decode(&args)

	switch fn {
	case "increment_balance":
		for _, row := range f.tables["users"] {
			if row["uid"] == args["p_user_id"] {
				balance, _ := row["balance"].(float64)
				delta, _ := args["p_delta"].(float64)
				row["balance"] = balance + delta
				json.NewEncoder(w).Encode(balance + delta)
				return
			}
		}
		http.Error(w, `{"message":"user not found"}`, http.StatusBadRequest)
	case "increment_budget_spent":
		for _, row := range f.tables["budgets"] {
			if row["id"] == args["p_budget_id"] {
				spent, _ := row["spent"].(float64)
				delta, _ := args["p_delta"].(float64)
				row["spent"] = spent + delta
				json.NewEncoder(w).Encode(spent + delta)
				return
			}
		}
		http.Error(w, `{"message":"budget not found"}`, http.StatusBadRequest)
	default:
		http.Error(w, `{"message":"unknown function"}`, http.StatusNotFound)
	}
}

// filter applies eq/gte/lt query filters plus order and limit.
func (f *fakeSupabase) filter(table string, r *http.Request) []map[string]any {
	rows := f.tables[table]
	var out []map[string]any
	limit := 0
	orderBy, orderDesc := "", false

	for key, vals := range r.URL.Query() {
		switch key {
		case "limit":
			limit, _ = strconv.Atoi(vals[0])
		case "order":
			parts := strings.SplitN(vals[0], ".", 2)
			orderBy = parts[0]
			orderDesc = len(parts) == 2 && parts[1] == "desc"
		}
	}

	for _, row := range rows {
		match := true
		for key, vals := range r.URL.Query() {
			if key == "limit" || key == "order" {
				continue
			}
			for _, val := range vals {
				op, want, ok := strings.Cut(val, ".")
				if !ok {
					continue
				}
				got := fmt.Sprint(row[key])
				switch op {
				case "eq":
					if got != want {
						match = false
					}
				case "gte":
					if got < want {
						match = false
					}
				case "lt":
					if got >= want {
						match = false
					}
				}
			}
		}
		if match {
			out = append(out, row)
		}
	}

	if orderBy != "" {
		sort.SliceStable(out, func(i, j int) bool {
			a, b := fmt.Sprint(out[i][orderBy]), fmt.Sprint(out[j][orderBy])
			if orderDesc {
				return a > b
			}
			return a < b
		})
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	if out == nil {
		out = []map[string]any{}
	}
	return out
}

// ============================================================
// Test harness
// ============================================================

func newTestRouter(t *testing.T) (http.Handler, *fakeSupabase) {
	t.Helper()

	fake := newFakeSupabase()
	backend := httptest.NewServer(fake.handler())
	t.Cleanup(backend.Close)

	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	cb := resilience.NewCircuitBreaker("test")
	cfg := resilience.Config{MaxRetries: 1, InitialBackoff: 10 * time.Millisecond, MaxConcurrency: 10}
	httpClient := &http.Client{Timeout: 5 * time.Second}

	store := supabase.NewClient(httpClient, backend.URL, "anon", "service", cb, cfg, logger)
	gateway := payments.NewSimulatedGateway(0, logger)
	profileCache := cache.New[domain.UserProfile](5 * time.Minute)

	budgetSvc := service.NewBudgetService(store, metrics, logger)
	walletSvc := service.NewWalletService(store, store, store, budgetSvc, gateway, profileCache, metrics, logger)
	authSvc := service.NewAuthService(store, store, "integration-secret", 15*time.Minute, 24*time.Hour, logger)

	return handler.NewRouter(walletSvc, budgetSvc, authSvc, metrics, logger), fake
}

func doJSON(t *testing.T, router http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

// ============================================================
// Full flow
// ============================================================

// TestIntegration_FullWalletFlow exercises register, budget creation,
// deposit with completion, send, and the resulting balance and budget
// state through the HTTP surface.
func TestIntegration_FullWalletFlow(t *testing.T) {
	router, _ := newTestRouter(t)

	// Register.
	rec := doJSON(t, router, http.MethodPost, "/v1/auth/register", "", domain.RegisterRequest{
		Name:     "Chisomo Phiri",
		Email:    "chisomo@example.com",
		Password: "hunter22",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d. Body: %s", rec.Code, rec.Body.String())
	}
	auth := decode[domain.AuthResponse](t, rec)
	token, userID := auth.AccessToken, auth.UserID

	// Budget for groceries.
	rec = doJSON(t, router, http.MethodPost, "/v1/users/"+userID+"/budgets", token, domain.CreateBudgetRequest{
		Category: "Groceries",
		Total:    5000,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create budget: expected 201, got %d. Body: %s", rec.Code, rec.Body.String())
	}

	// Deposit 10000 and complete it.
	rec = doJSON(t, router, http.MethodPost, "/v1/wallet/deposits", token, domain.DepositRequest{
		UserID:      userID,
		Amount:      10000,
		Method:      "airtel",
		PhoneNumber: "0991234567",
	})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("deposit: expected 202, got %d. Body: %s", rec.Code, rec.Body.String())
	}
	dep := decode[domain.DepositResponse](t, rec)
	if dep.Status != domain.DepositStatusPending {
		t.Errorf("expected pending deposit, got %s", dep.Status)
	}

	rec = doJSON(t, router, http.MethodPost, "/v1/wallet/deposits/"+dep.DepositID+"/complete", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("complete deposit: expected 200, got %d. Body: %s", rec.Code, rec.Body.String())
	}

	// Balance reflects the credit.
	rec = doJSON(t, router, http.MethodGet, "/v1/users/"+userID+"/balance", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("balance: expected 200, got %d", rec.Code)
	}
	balance := decode[map[string]any](t, rec)
	if balance["balance"].(float64) != 10000 {
		t.Errorf("expected balance 10000, got %v", balance["balance"])
	}

	// Send classified as Groceries, within budget.
	rec = doJSON(t, router, http.MethodPost, "/v1/wallet/send", token, domain.SendRequest{
		UserID:    userID,
		Recipient: "City Grocery Market",
		Amount:    1200,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("send: expected 200, got %d. Body: %s", rec.Code, rec.Body.String())
	}
	send := decode[domain.SendResponse](t, rec)
	if send.Category != "Groceries" {
		t.Errorf("expected Groceries, got %s", send.Category)
	}
	if send.NewBalance != 8800 {
		t.Errorf("expected new balance 8800, got %.2f", send.NewBalance)
	}

	// The budget accumulated the spend.
	rec = doJSON(t, router, http.MethodGet, "/v1/users/"+userID+"/budgets", token, nil)
	budgets := decode[[]domain.Budget](t, rec)
	if len(budgets) != 1 {
		t.Fatalf("expected one budget, got %d", len(budgets))
	}
	if budgets[0].Spent != 1200 {
		t.Errorf("expected spent 1200, got %.2f", budgets[0].Spent)
	}

	// A send that would blow the budget is rejected.
	rec = doJSON(t, router, http.MethodPost, "/v1/wallet/send", token, domain.SendRequest{
		UserID:    userID,
		Recipient: "Mega Food Wholesale",
		Amount:    4000,
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("over-budget send: expected 422, got %d. Body: %s", rec.Code, rec.Body.String())
	}

	// The ledger holds deposit + send only.
	rec = doJSON(t, router, http.MethodGet, "/v1/users/"+userID+"/transactions", token, nil)
	txs := decode[[]domain.Transaction](t, rec)
	if len(txs) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(txs))
	}
}

func TestIntegration_AuthBoundaries(t *testing.T) {
	router, _ := newTestRouter(t)

	// No token.
	rec := doJSON(t, router, http.MethodGet, "/v1/users/someone/balance", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", rec.Code)
	}

	// Two users; one must not read the other's wallet.
	a := decode[domain.AuthResponse](t, doJSON(t, router, http.MethodPost, "/v1/auth/register", "", domain.RegisterRequest{
		Name: "A", Email: "a@example.com", Password: "hunter22",
	}))
	b := decode[domain.AuthResponse](t, doJSON(t, router, http.MethodPost, "/v1/auth/register", "", domain.RegisterRequest{
		Name: "B", Email: "b@example.com", Password: "hunter22",
	}))

	rec = doJSON(t, router, http.MethodGet, "/v1/users/"+b.UserID+"/balance", a.AccessToken, nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for foreign wallet, got %d", rec.Code)
	}

	// Body userId must match the token subject too.
	rec = doJSON(t, router, http.MethodPost, "/v1/wallet/send", a.AccessToken, domain.SendRequest{
		UserID:    b.UserID,
		Recipient: "somebody",
		Amount:    100,
	})
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for foreign send, got %d", rec.Code)
	}
}

func TestIntegration_InsufficientFunds(t *testing.T) {
	router, _ := newTestRouter(t)

	auth := decode[domain.AuthResponse](t, doJSON(t, router, http.MethodPost, "/v1/auth/register", "", domain.RegisterRequest{
		Name: "Broke", Email: "broke@example.com", Password: "hunter22",
	}))

	rec := doJSON(t, router, http.MethodPost, "/v1/wallet/send", auth.AccessToken, domain.SendRequest{
		UserID:    auth.UserID,
		Recipient: "anyone",
		Amount:    500,
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422 on empty wallet, got %d. Body: %s", rec.Code, rec.Body.String())
	}
}
