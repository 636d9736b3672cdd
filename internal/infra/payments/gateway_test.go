package payments_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/regenpay/wallet-api/internal/domain"
	"github.com/regenpay/wallet-api/internal/infra/payments"

	"go.uber.org/zap"
)

func newGateway() *payments.SimulatedGateway {
	return payments.NewSimulatedGateway(0, zap.NewNop())
}

func TestInitiatePayment_TxIDPrefixes(t *testing.T) {
	cases := []struct {
		method string
		prefix string
	}{
		{"paychanggu", "PC"},
		{"airtel", "AM"},
		{"mpamba", "MP"},
		{"Airtel", "AM"}, // method matching is case-insensitive
	}

	gw := newGateway()
	for _, tc := range cases {
		res, err := gw.InitiatePayment(context.Background(), tc.method, "0999123456", 500, "DEP-REF")
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.method, err)
		}
		if !res.Success {
			t.Errorf("%s: expected success", tc.method)
		}
		if !strings.HasPrefix(res.TransactionID, tc.prefix) {
			t.Errorf("%s: expected tx id prefix %s, got %s", tc.method, tc.prefix, res.TransactionID)
		}
		// Withdrawal prefixes must not leak into payments
		if strings.HasPrefix(res.TransactionID, tc.prefix+"W") {
			t.Errorf("%s: payment got withdrawal prefix: %s", tc.method, res.TransactionID)
		}
	}
}

func TestInitiateWithdrawal_TxIDPrefixes(t *testing.T) {
	gw := newGateway()

	res, err := gw.InitiateWithdrawal(context.Background(), "mpamba", "0888123456", 200)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(res.TransactionID, "MPW") {
		t.Errorf("expected MPW prefix, got %s", res.TransactionID)
	}
}

func TestInitiatePayment_UnsupportedMethod(t *testing.T) {
	gw := newGateway()

	_, err := gw.InitiatePayment(context.Background(), "western-union", "0999123456", 500, "REF")
	var verr *domain.ErrValidation
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCheckStatus_KnownPrefix(t *testing.T) {
	gw := newGateway()

	for _, txID := range []string{"PC1700000000000", "AMW1700000000000", "MP1700000000000"} {
		status, err := gw.CheckStatus(context.Background(), txID)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", txID, err)
		}
		if status.Status != "SUCCESS" {
			t.Errorf("%s: expected SUCCESS, got %s", txID, status.Status)
		}
	}
}

func TestCheckStatus_UnknownPrefix(t *testing.T) {
	gw := newGateway()

	_, err := gw.CheckStatus(context.Background(), "XX123")
	var nf *domain.ErrNotFound
	if !errors.As(err, &nf) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestInitiatePayment_RespectsContext(t *testing.T) {
	gw := payments.NewSimulatedGateway(5*time.Second, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := gw.InitiatePayment(ctx, "airtel", "0999123456", 100, "REF")
	var terr *domain.ErrTimeout
	if !errors.As(err, &terr) {
		t.Fatalf("expected timeout error, got %v", err)
	}
}
