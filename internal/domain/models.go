// Package domain defines the core business entities for the wallet API.
// These models are independent of external services and represent the
// canonical data structures used throughout the backend.
package domain

import "time"

// ============================================================
// Users / Wallet
// ============================================================

// UserProfile represents a wallet holder's profile and balance.
type UserProfile struct {
	UID       string    `json:"uid"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Balance   float64   `json:"balance"`
	Currency  string    `json:"currency"`
	CreatedAt time.Time `json:"created_at"`
}

// DefaultCurrency is assigned to new wallets.
const DefaultCurrency = "MWK"

// Transaction types.
const (
	TxTypeDeposit    = "deposit"
	TxTypeWithdrawal = "withdrawal"
	TxTypeSend       = "send"
)

// Transaction statuses.
const (
	TxStatusPending   = "pending"
	TxStatusCompleted = "completed"
	TxStatusFailed    = "failed"
)

// Transaction is an immutable ledger entry. Amounts are always positive;
// the type field determines direction. Once written a transaction is never
// updated or deleted.
type Transaction struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Description string    `json:"description"`
	Amount      float64   `json:"amount"`
	Type        string    `json:"type"`
	Category    string    `json:"category,omitempty"`
	BudgetID    string    `json:"budget_id,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// IsSpend reports whether the transaction type counts against a budget.
// Deposits never count as spend.
func (t *Transaction) IsSpend() bool {
	return t.Type == TxTypeWithdrawal || t.Type == TxTypeSend
}

// ============================================================
// Budgets
// ============================================================

// Budget is a per-user spending ceiling for a category. The category label
// is the case-insensitive match key; spent accumulates via server-side
// atomic increments. spent > total is a display-level over-budget state,
// not a hard invariant.
type Budget struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Category  string    `json:"category"`
	Icon      string    `json:"icon,omitempty"`
	Color     string    `json:"color,omitempty"`
	Spent     float64   `json:"spent"`
	Total     float64   `json:"total"`
	CreatedAt time.Time `json:"created_at"`
}

// SpendVerdict is the outcome of a spend-authorization check.
type SpendVerdict string

const (
	// SpendAllowed means the transaction may proceed.
	SpendAllowed SpendVerdict = "allowed"
	// SpendDenied means the matched budget would be exceeded.
	SpendDenied SpendVerdict = "denied"
	// SpendIndeterminate means the check could not be evaluated
	// (e.g. the budget store was unreachable). Callers choose the
	// policy; the wallet service allows on indeterminate.
	SpendIndeterminate SpendVerdict = "indeterminate"
)

// SpendDecision is the tagged result of BudgetService.Authorize.
// Budget is the matched budget, nil when no budget covers the category.
type SpendDecision struct {
	Verdict  SpendVerdict `json:"verdict"`
	Category string       `json:"category"`
	Budget   *Budget      `json:"budget,omitempty"`
	Reason   string       `json:"reason,omitempty"`
}

// Allowed reports whether the spend may proceed under the
// allow-on-indeterminate policy.
func (d *SpendDecision) Allowed() bool {
	return d.Verdict != SpendDenied
}

// ============================================================
// Deposits (simulated mobile-money flow)
// ============================================================

// Deposit statuses.
const (
	DepositStatusPending   = "pending"
	DepositStatusCompleted = "completed"
	DepositStatusFailed    = "failed"
)

// PendingDeposit tracks an initiated deposit until the (simulated)
// mobile-money provider confirms it.
type PendingDeposit struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Amount      float64   `json:"amount"`
	Method      string    `json:"method"`
	Reference   string    `json:"reference"`
	GatewayTxID string    `json:"gateway_tx_id,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// PaymentResult is the gateway's response to an initiated payment or
// withdrawal.
type PaymentResult struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	TransactionID string `json:"transaction_id,omitempty"`
}

// PaymentStatus is the gateway's answer to a status poll.
type PaymentStatus struct {
	Status  string `json:"status"` // PENDING, SUCCESS, FAILED
	Message string `json:"message"`
}

// ============================================================
// API request/response shapes
// ============================================================

// SendRequest is the body of POST /v1/wallet/send.
type SendRequest struct {
	UserID      string  `json:"userId"`
	Recipient   string  `json:"recipient"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description,omitempty"`
}

// SendResponse reports the recorded transaction and the updated balance.
type SendResponse struct {
	TransactionID string  `json:"transactionId"`
	Status        string  `json:"status"`
	Amount        float64 `json:"amount"`
	Category      string  `json:"category"`
	NewBalance    float64 `json:"newBalance"`
	Timestamp     string  `json:"timestamp"`
}

// DepositRequest is the body of POST /v1/wallet/deposits.
type DepositRequest struct {
	UserID      string  `json:"userId"`
	Amount      float64 `json:"amount"`
	Method      string  `json:"method"`
	PhoneNumber string  `json:"phoneNumber,omitempty"`
}

// DepositResponse reports the pending deposit handed to the gateway.
type DepositResponse struct {
	DepositID   string  `json:"depositId"`
	Reference   string  `json:"reference"`
	GatewayTxID string  `json:"gatewayTxId,omitempty"`
	Status      string  `json:"status"`
	Amount      float64 `json:"amount"`
	Message     string  `json:"message,omitempty"`
}

// WithdrawRequest is the body of POST /v1/wallet/withdrawals.
type WithdrawRequest struct {
	UserID      string  `json:"userId"`
	Amount      float64 `json:"amount"`
	Method      string  `json:"method"`
	PhoneNumber string  `json:"phoneNumber,omitempty"`
}

// WithdrawResponse reports the recorded withdrawal.
type WithdrawResponse struct {
	TransactionID string  `json:"transactionId"`
	GatewayTxID   string  `json:"gatewayTxId,omitempty"`
	Status        string  `json:"status"`
	Amount        float64 `json:"amount"`
	NewBalance    float64 `json:"newBalance"`
	Timestamp     string  `json:"timestamp"`
}

// SpendCheckRequest is the body of POST /v1/spend-checks. Either category
// or description must be set; with only a description the category is
// inferred by the classifier.
type SpendCheckRequest struct {
	UserID      string  `json:"userId"`
	Category    string  `json:"category,omitempty"`
	Description string  `json:"description,omitempty"`
	Recipient   string  `json:"recipient,omitempty"`
	Amount      float64 `json:"amount"`
}

// UpdateProfileRequest carries the editable profile fields.
type UpdateProfileRequest struct {
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// CreateBudgetRequest is the body of POST /v1/users/{userId}/budgets.
type CreateBudgetRequest struct {
	Category string  `json:"category"`
	Total    float64 `json:"total"`
	Icon     string  `json:"icon,omitempty"`
	Color    string  `json:"color,omitempty"`
}

// UpdateBudgetRequest is the body of PUT /v1/budgets/{budgetId}.
// Zero values mean "leave unchanged".
type UpdateBudgetRequest struct {
	Category string  `json:"category,omitempty"`
	Total    float64 `json:"total,omitempty"`
	Icon     string  `json:"icon,omitempty"`
	Color    string  `json:"color,omitempty"`
}

// CategorySpend is one row of the monthly spending breakdown.
type CategorySpend struct {
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
	Count    int     `json:"count"`
}

// MonthlySpending aggregates spend-type transactions for one month.
type MonthlySpending struct {
	Month      int             `json:"month"`
	Year       int             `json:"year"`
	Total      float64         `json:"total"`
	Categories []CategorySpend `json:"categories"`
}

// HomeSummary is the aggregated read behind the app's home screen.
type HomeSummary struct {
	Profile      *UserProfile  `json:"profile"`
	Transactions []Transaction `json:"transactions"`
	Budgets      []Budget      `json:"budgets"`
}

// ============================================================
// Auth
// ============================================================

// RegisterRequest is the body of POST /v1/auth/register.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
	Password string `json:"password"`
}

// LoginRequest is the body of POST /v1/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest is the body of POST /v1/auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// AuthResponse carries a fresh token pair.
type AuthResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int    `json:"expiresIn"`
	UserID       string `json:"userId"`
	Name         string `json:"name,omitempty"`
	Email        string `json:"email,omitempty"`
}

// AuthCredential holds the stored login secret and lockout state.
type AuthCredential struct {
	UserID         string     `json:"user_id"`
	PasswordHash   string     `json:"password_hash"`
	FailedAttempts int        `json:"failed_attempts"`
	LockedUntil    *time.Time `json:"locked_until,omitempty"`
	LastLoginAt    *time.Time `json:"last_login_at,omitempty"`
}

// AuthRefreshToken is a stored (hashed) refresh token.
type AuthRefreshToken struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	TokenHash string    `json:"token_hash"`
	ExpiresAt time.Time `json:"expires_at"`
	Revoked   bool      `json:"revoked"`
}

// ============================================================
// Operations
// ============================================================

// OpsMetrics is the counter snapshot served by GET /v1/metrics/ops.
type OpsMetrics struct {
	TotalRequests       int64   `json:"total_requests"`
	ErrorRate           float64 `json:"error_rate"`
	CacheHitRate        float64 `json:"cache_hit_rate"`
	SpendsAllowed       int64   `json:"spends_allowed"`
	SpendsDenied        int64   `json:"spends_denied"`
	SpendsIndeterminate int64   `json:"spends_indeterminate"`
	Period              string  `json:"period"`
}

// ============================================================
// Health
// ============================================================

// ServiceHealth reports the status of one dependency.
type ServiceHealth struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	LatencyMs   int64  `json:"latency_ms"`
	LastChecked string `json:"last_checked"`
}

// HealthStatus is the aggregate health response.
type HealthStatus struct {
	Status   string          `json:"status"`
	Services []ServiceHealth `json:"services"`
}
