// Package payments implements the mobile-money gateway port against
// simulated providers. Real provider integrations slot in behind the
// same interface.
package payments

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/regenpay/wallet-api/internal/domain"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("payments")

// Supported payment methods.
const (
	MethodPayChanggu = "paychanggu"
	MethodAirtel     = "airtel"
	MethodMpamba     = "mpamba"
)

// Transaction ID prefixes per provider. Withdrawals carry a W suffix
// on the prefix so CheckStatus can route status polls.
var txPrefixes = map[string]string{
	MethodPayChanggu: "PC",
	MethodAirtel:     "AM",
	MethodMpamba:     "MP",
}

// SimulatedGateway fakes the provider round-trip with a configurable
// delay. It implements port.PaymentGateway.
type SimulatedGateway struct {
	delay  time.Duration
	logger *zap.Logger
	now    func() time.Time
}

// NewSimulatedGateway creates the gateway. delay approximates provider
// processing time; tests pass zero.
func NewSimulatedGateway(delay time.Duration, logger *zap.Logger) *SimulatedGateway {
	return &SimulatedGateway{
		delay:  delay,
		logger: logger,
		now:    time.Now,
	}
}

// InitiatePayment starts a collection (deposit) with the provider.
func (g *SimulatedGateway) InitiatePayment(ctx context.Context, method, phoneNumber string, amount float64, reference string) (*domain.PaymentResult, error) {
	ctx, span := tracer.Start(ctx, "Gateway.InitiatePayment")
	defer span.End()
	span.SetAttributes(
		attribute.String("payment.method", method),
		attribute.Float64("payment.amount", amount),
	)

	prefix, ok := txPrefixes[normalizeMethod(method)]
	if !ok {
		return nil, &domain.ErrValidation{Field: "method", Message: fmt.Sprintf("unsupported payment method: %s", method)}
	}

	if err := g.simulateProcessing(ctx); err != nil {
		return nil, err
	}

	txID := fmt.Sprintf("%s%d", prefix, g.now().UnixMilli())
	g.logger.Info("gateway: payment initiated",
		zap.String("method", method),
		zap.String("gateway_tx_id", txID),
		zap.String("reference", reference),
		zap.Float64("amount", amount),
	)

	return &domain.PaymentResult{
		Success:       true,
		Message:       fmt.Sprintf("Payment initiated via %s", method),
		TransactionID: txID,
	}, nil
}

// InitiateWithdrawal starts a disbursement to the user's mobile-money
// account.
func (g *SimulatedGateway) InitiateWithdrawal(ctx context.Context, method, phoneNumber string, amount float64) (*domain.PaymentResult, error) {
	ctx, span := tracer.Start(ctx, "Gateway.InitiateWithdrawal")
	defer span.End()
	span.SetAttributes(
		attribute.String("payment.method", method),
		attribute.Float64("payment.amount", amount),
	)

	prefix, ok := txPrefixes[normalizeMethod(method)]
	if !ok {
		return nil, &domain.ErrValidation{Field: "method", Message: fmt.Sprintf("unsupported payment method: %s", method)}
	}

	if err := g.simulateProcessing(ctx); err != nil {
		return nil, err
	}

	txID := fmt.Sprintf("%sW%d", prefix, g.now().UnixMilli())
	g.logger.Info("gateway: withdrawal initiated",
		zap.String("method", method),
		zap.String("gateway_tx_id", txID),
		zap.Float64("amount", amount),
	)

	return &domain.PaymentResult{
		Success:       true,
		Message:       fmt.Sprintf("Withdrawal initiated via %s", method),
		TransactionID: txID,
	}, nil
}

// CheckStatus resolves a transaction ID to its provider by prefix. The
// simulation reports every known transaction as settled.
func (g *SimulatedGateway) CheckStatus(ctx context.Context, transactionID string) (*domain.PaymentStatus, error) {
	_, span := tracer.Start(ctx, "Gateway.CheckStatus")
	defer span.End()

	for _, prefix := range txPrefixes {
		if strings.HasPrefix(transactionID, prefix) {
			return &domain.PaymentStatus{
				Status:  "SUCCESS",
				Message: "Transaction completed",
			}, nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "gateway transaction", ID: transactionID}
}

// simulateProcessing sleeps for the configured delay, honoring context
// cancellation.
func (g *SimulatedGateway) simulateProcessing(ctx context.Context) error {
	if g.delay <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return &domain.ErrTimeout{Operation: "gateway processing"}
	case <-time.After(g.delay):
		return nil
	}
}

func normalizeMethod(method string) string {
	return strings.ToLower(strings.TrimSpace(method))
}
