package handler_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/regenpay/wallet-api/internal/handler"
	"github.com/regenpay/wallet-api/internal/infra/observability"

	"go.uber.org/zap"
)

func TestHealthz(t *testing.T) {
	router := handler.NewRouter(nil, nil, nil, observability.NewMetrics(), zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestReadyz(t *testing.T) {
	router := handler.NewRouter(nil, nil, nil, observability.NewMetrics(), zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestMetrics(t *testing.T) {
	router := handler.NewRouter(nil, nil, nil, observability.NewMetrics(), zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestProtectedRoutesRejectMissingToken(t *testing.T) {
	router := handler.NewRouter(nil, nil, nil, observability.NewMetrics(), zap.NewNop())

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/v1/users/u1/balance"},
		{http.MethodPost, "/v1/wallet/send"},
		{http.MethodPost, "/v1/spend-checks"},
		{http.MethodGet, "/v1/metrics/ops"},
	}
	for _, p := range paths {
		req := httptest.NewRequest(p.method, p.path, nil)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: expected 401, got %d", p.method, p.path, rec.Code)
		}
	}
}
