package port

import (
	"context"

	"github.com/regenpay/wallet-api/internal/domain"
)

// PaymentGateway abstracts the mobile-money providers (PayChanggu,
// Airtel Money, TNM Mpamba). The production implementation is simulated.
type PaymentGateway interface {
	InitiatePayment(ctx context.Context, method, phoneNumber string, amount float64, reference string) (*domain.PaymentResult, error)
	InitiateWithdrawal(ctx context.Context, method, phoneNumber string, amount float64) (*domain.PaymentResult, error)
	CheckStatus(ctx context.Context, transactionID string) (*domain.PaymentStatus, error)
}
