package domain

import "fmt"

// Error types for consistent error handling across the wallet API.

// ErrNotFound indicates a resource was not found.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrExternalService indicates a failure in an external service call.
type ErrExternalService struct {
	Service string
	Err     error
}

func (e *ErrExternalService) Error() string {
	return fmt.Sprintf("external service error [%s]: %v", e.Service, e.Err)
}

func (e *ErrExternalService) Unwrap() error {
	return e.Err
}

// ErrTimeout indicates an operation exceeded its deadline.
type ErrTimeout struct {
	Operation string
}

func (e *ErrTimeout) Error() string {
	return fmt.Sprintf("operation timed out: %s", e.Operation)
}

// ErrCircuitOpen indicates the circuit breaker is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}

// ErrValidation indicates a validation error (bad input).
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrInsufficientFunds indicates not enough balance for the operation.
type ErrInsufficientFunds struct {
	Available float64
	Required  float64
}

func (e *ErrInsufficientFunds) Error() string {
	return fmt.Sprintf("insufficient funds: available=%.2f required=%.2f", e.Available, e.Required)
}

// ErrBudgetExceeded indicates a spend was denied by a category budget.
type ErrBudgetExceeded struct {
	Category  string
	Limit     float64
	Spent     float64
	Attempted float64
}

func (e *ErrBudgetExceeded) Error() string {
	return fmt.Sprintf("budget exceeded [%s]: limit=%.2f spent=%.2f attempted=%.2f",
		e.Category, e.Limit, e.Spent, e.Attempted)
}

// ErrForbidden indicates the user lacks permission for the operation.
type ErrForbidden struct {
	Action string
}

func (e *ErrForbidden) Error() string {
	return fmt.Sprintf("forbidden: %s", e.Action)
}

// ErrUnauthorized indicates invalid credentials or token.
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}

// ErrAccountLocked indicates too many failed login attempts.
type ErrAccountLocked struct {
	RetryAfterMinutes int
}

func (e *ErrAccountLocked) Error() string {
	return fmt.Sprintf("account locked, retry in %d minutes", e.RetryAfterMinutes)
}

// ErrConflict indicates a resource already exists (e.g. duplicate email).
type ErrConflict struct {
	Message string
}

func (e *ErrConflict) Error() string {
	return e.Message
}

// ErrPaymentFailed indicates the payment gateway rejected the operation.
type ErrPaymentFailed struct {
	Method  string
	Message string
}

func (e *ErrPaymentFailed) Error() string {
	return fmt.Sprintf("payment failed [%s]: %s", e.Method, e.Message)
}
