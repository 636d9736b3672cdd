package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/regenpay/wallet-api/internal/domain"
	"github.com/regenpay/wallet-api/internal/infra/observability"
	"github.com/regenpay/wallet-api/internal/port"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var walletTracer = otel.Tracer("service/wallet")

// WalletService orchestrates the money flows: sends, withdrawals,
// deposits, and the read models behind the app's screens.
type WalletService struct {
	users    port.UserStore
	txs      port.TransactionStore
	deposits port.DepositStore
	budgets  *BudgetService
	gateway  port.PaymentGateway
	cache    port.Cache[domain.UserProfile]
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewWalletService creates a new wallet service.
func NewWalletService(
	users port.UserStore,
	txs port.TransactionStore,
	deposits port.DepositStore,
	budgets *BudgetService,
	gateway port.PaymentGateway,
	cache port.Cache[domain.UserProfile],
	metrics *observability.Metrics,
	logger *zap.Logger,
) *WalletService {
	return &WalletService{
		users:    users,
		txs:      txs,
		deposits: deposits,
		budgets:  budgets,
		gateway:  gateway,
		cache:    cache,
		metrics:  metrics,
		logger:   logger,
	}
}

// ============================================================
// Send — POST /v1/wallet/send
// ============================================================

func (s *WalletService) Send(ctx context.Context, req *domain.SendRequest) (*domain.SendResponse, error) {
	ctx, span := walletTracer.Start(ctx, "WalletService.Send")
	defer span.End()
	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("wallet_send", time.Since(start)) }()

	if req.UserID == "" {
		return nil, &domain.ErrValidation{Field: "userId", Message: "userId is required"}
	}
	if strings.TrimSpace(req.Recipient) == "" {
		return nil, &domain.ErrValidation{Field: "recipient", Message: "recipient is required"}
	}
	if req.Amount <= 0 {
		return nil, &domain.ErrValidation{Field: "amount", Message: "amount must be greater than zero"}
	}

	category := Classify(req.Description, req.Recipient)
	span.SetAttributes(attribute.String("tx.category", category))

	decision := s.budgets.Authorize(ctx, req.UserID, category, req.Amount)
	if decision.Verdict == domain.SpendDenied {
		b := decision.Budget
		return nil, &domain.ErrBudgetExceeded{
			Category:  b.Category,
			Limit:     b.Total,
			Spent:     b.Spent,
			Attempted: req.Amount,
		}
	}
	if decision.Verdict == domain.SpendIndeterminate {
		s.logger.Warn("send proceeding without budget check",
			zap.String("user_id", req.UserID),
			zap.String("category", category),
		)
	}

	user, err := s.users.GetUser(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user.Balance < req.Amount {
		return nil, &domain.ErrInsufficientFunds{Available: user.Balance, Required: req.Amount}
	}

	newBalance, err := s.users.IncrementBalance(ctx, req.UserID, -req.Amount)
	if err != nil {
		s.metrics.IncrExternalError("users")
		return nil, fmt.Errorf("debit balance: %w", err)
	}
	s.cache.Delete(req.UserID)

	description := req.Description
	if description == "" {
		description = fmt.Sprintf("Sent to %s", req.Recipient)
	}

	tx := &domain.Transaction{
		ID:          uuid.NewString(),
		UserID:      req.UserID,
		Description: description,
		Amount:      req.Amount,
		Type:        domain.TxTypeSend,
		Category:    category,
		Status:      domain.TxStatusCompleted,
		CreatedAt:   time.Now().UTC(),
	}
	if decision.Budget != nil {
		tx.BudgetID = decision.Budget.ID
	}

	recorded, err := s.txs.InsertTransaction(ctx, tx)
	if err != nil {
		// The debit went through; the ledger write must not be silently
		// dropped. Surface the error so the client retries reconciliation.
		s.metrics.IncrExternalError("transactions")
		return nil, fmt.Errorf("record transaction: %w", err)
	}

	if decision.Budget != nil {
		if err := s.budgets.ApplySpend(ctx, decision.Budget.ID, req.Amount); err != nil {
			s.logger.Error("budget increment failed after send",
				zap.String("budget_id", decision.Budget.ID),
				zap.String("tx_id", recorded.ID),
				zap.Error(err),
			)
		}
	}

	s.logger.Info("send completed",
		zap.String("user_id", req.UserID),
		zap.String("tx_id", recorded.ID),
		zap.Float64("amount", req.Amount),
		zap.String("category", category),
	)

	return &domain.SendResponse{
		TransactionID: recorded.ID,
		Status:        recorded.Status,
		Amount:        recorded.Amount,
		Category:      category,
		NewBalance:    newBalance,
		Timestamp:     recorded.CreatedAt.Format(time.RFC3339),
	}, nil
}

// ============================================================
// Withdraw — POST /v1/wallet/withdrawals
// ============================================================

func (s *WalletService) Withdraw(ctx context.Context, req *domain.WithdrawRequest) (*domain.WithdrawResponse, error) {
	ctx, span := walletTracer.Start(ctx, "WalletService.Withdraw")
	defer span.End()
	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("wallet_withdraw", time.Since(start)) }()

	if req.UserID == "" {
		return nil, &domain.ErrValidation{Field: "userId", Message: "userId is required"}
	}
	if req.Amount <= 0 {
		return nil, &domain.ErrValidation{Field: "amount", Message: "amount must be greater than zero"}
	}
	if req.Method == "" {
		return nil, &domain.ErrValidation{Field: "method", Message: "method is required"}
	}

	user, err := s.users.GetUser(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user.Balance < req.Amount {
		return nil, &domain.ErrInsufficientFunds{Available: user.Balance, Required: req.Amount}
	}

	decision := s.budgets.Authorize(ctx, req.UserID, CategoryWithdrawal, req.Amount)
	if decision.Verdict == domain.SpendDenied {
		b := decision.Budget
		return nil, &domain.ErrBudgetExceeded{
			Category:  b.Category,
			Limit:     b.Total,
			Spent:     b.Spent,
			Attempted: req.Amount,
		}
	}
	if decision.Verdict == domain.SpendIndeterminate {
		s.logger.Warn("withdrawal proceeding without budget check",
			zap.String("user_id", req.UserID),
		)
	}

	result, err := s.gateway.InitiateWithdrawal(ctx, req.Method, req.PhoneNumber, req.Amount)
	if err != nil {
		s.metrics.IncrExternalError("gateway")
		return nil, fmt.Errorf("initiate withdrawal: %w", err)
	}
	if !result.Success {
		return nil, &domain.ErrPaymentFailed{Method: req.Method, Message: result.Message}
	}

	newBalance, err := s.users.IncrementBalance(ctx, req.UserID, -req.Amount)
	if err != nil {
		s.metrics.IncrExternalError("users")
		return nil, fmt.Errorf("debit balance: %w", err)
	}
	s.cache.Delete(req.UserID)

	tx := &domain.Transaction{
		ID:          uuid.NewString(),
		UserID:      req.UserID,
		Description: fmt.Sprintf("Withdrawal via %s", req.Method),
		Amount:      req.Amount,
		Type:        domain.TxTypeWithdrawal,
		Category:    CategoryWithdrawal,
		Status:      domain.TxStatusCompleted,
		CreatedAt:   time.Now().UTC(),
	}
	if decision.Budget != nil {
		tx.BudgetID = decision.Budget.ID
	}

	recorded, err := s.txs.InsertTransaction(ctx, tx)
	if err != nil {
		s.metrics.IncrExternalError("transactions")
		return nil, fmt.Errorf("record transaction: %w", err)
	}

	if decision.Budget != nil {
		if err := s.budgets.ApplySpend(ctx, decision.Budget.ID, req.Amount); err != nil {
			s.logger.Error("budget increment failed after withdrawal",
				zap.String("budget_id", decision.Budget.ID),
				zap.String("tx_id", recorded.ID),
				zap.Error(err),
			)
		}
	}

	s.logger.Info("withdrawal completed",
		zap.String("user_id", req.UserID),
		zap.String("tx_id", recorded.ID),
		zap.String("gateway_tx_id", result.TransactionID),
		zap.Float64("amount", req.Amount),
	)

	return &domain.WithdrawResponse{
		TransactionID: recorded.ID,
		GatewayTxID:   result.TransactionID,
		Status:        recorded.Status,
		Amount:        recorded.Amount,
		NewBalance:    newBalance,
		Timestamp:     recorded.CreatedAt.Format(time.RFC3339),
	}, nil
}

// ============================================================
// Deposits — POST /v1/wallet/deposits
// ============================================================

// Deposit initiates a mobile-money collection and records a pending
// deposit. Funds are credited only when CompleteDeposit confirms.
func (s *WalletService) Deposit(ctx context.Context, req *domain.DepositRequest) (*domain.DepositResponse, error) {
	ctx, span := walletTracer.Start(ctx, "WalletService.Deposit")
	defer span.End()
	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("wallet_deposit", time.Since(start)) }()

	if req.UserID == "" {
		return nil, &domain.ErrValidation{Field: "userId", Message: "userId is required"}
	}
	if req.Amount <= 0 {
		return nil, &domain.ErrValidation{Field: "amount", Message: "amount must be greater than zero"}
	}
	if req.Method == "" {
		return nil, &domain.ErrValidation{Field: "method", Message: "method is required"}
	}

	// The user must exist before we hand anything to the gateway.
	if _, err := s.users.GetUser(ctx, req.UserID); err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	reference := generateDepositReference(req.UserID)

	dep := &domain.PendingDeposit{
		ID:        uuid.NewString(),
		UserID:    req.UserID,
		Amount:    req.Amount,
		Method:    req.Method,
		Reference: reference,
		Status:    domain.DepositStatusPending,
		CreatedAt: time.Now().UTC(),
	}

	result, err := s.gateway.InitiatePayment(ctx, req.Method, req.PhoneNumber, req.Amount, reference)
	if err != nil {
		s.metrics.IncrExternalError("gateway")
		return nil, fmt.Errorf("initiate payment: %w", err)
	}
	if !result.Success {
		return nil, &domain.ErrPaymentFailed{Method: req.Method, Message: result.Message}
	}
	dep.GatewayTxID = result.TransactionID

	created, err := s.deposits.CreatePendingDeposit(ctx, dep)
	if err != nil {
		s.metrics.IncrExternalError("pending_deposits")
		return nil, fmt.Errorf("create pending deposit: %w", err)
	}

	s.logger.Info("deposit initiated",
		zap.String("user_id", req.UserID),
		zap.String("deposit_id", created.ID),
		zap.String("reference", reference),
		zap.String("gateway_tx_id", result.TransactionID),
	)

	return &domain.DepositResponse{
		DepositID:   created.ID,
		Reference:   created.Reference,
		GatewayTxID: created.GatewayTxID,
		Status:      created.Status,
		Amount:      created.Amount,
		Message:     result.Message,
	}, nil
}

// CompleteDeposit settles a pending deposit: credits the balance and
// appends the deposit to the ledger. Deposits never count against
// budgets.
func (s *WalletService) CompleteDeposit(ctx context.Context, depositID string) (*domain.DepositResponse, error) {
	ctx, span := walletTracer.Start(ctx, "WalletService.CompleteDeposit")
	defer span.End()

	dep, err := s.deposits.GetPendingDeposit(ctx, depositID)
	if err != nil {
		return nil, fmt.Errorf("get deposit: %w", err)
	}
	if dep.Status != domain.DepositStatusPending {
		return nil, &domain.ErrConflict{Message: fmt.Sprintf("deposit already %s", dep.Status)}
	}

	if err := s.deposits.UpdateDepositStatus(ctx, depositID, domain.DepositStatusCompleted); err != nil {
		return nil, fmt.Errorf("update deposit status: %w", err)
	}

	if _, err := s.users.IncrementBalance(ctx, dep.UserID, dep.Amount); err != nil {
		s.metrics.IncrExternalError("users")
		return nil, fmt.Errorf("credit balance: %w", err)
	}
	s.cache.Delete(dep.UserID)

	tx := &domain.Transaction{
		ID:          uuid.NewString(),
		UserID:      dep.UserID,
		Description: fmt.Sprintf("Deposit via %s (%s)", dep.Method, dep.Reference),
		Amount:      dep.Amount,
		Type:        domain.TxTypeDeposit,
		Category:    CategoryDeposit,
		Status:      domain.TxStatusCompleted,
		CreatedAt:   time.Now().UTC(),
	}
	if _, err := s.txs.InsertTransaction(ctx, tx); err != nil {
		s.metrics.IncrExternalError("transactions")
		return nil, fmt.Errorf("record transaction: %w", err)
	}

	s.logger.Info("deposit completed",
		zap.String("user_id", dep.UserID),
		zap.String("deposit_id", depositID),
		zap.Float64("amount", dep.Amount),
	)

	return &domain.DepositResponse{
		DepositID:   dep.ID,
		Reference:   dep.Reference,
		GatewayTxID: dep.GatewayTxID,
		Status:      domain.DepositStatusCompleted,
		Amount:      dep.Amount,
	}, nil
}

// PendingDeposits lists the user's deposits still awaiting confirmation.
func (s *WalletService) PendingDeposits(ctx context.Context, userID string) ([]domain.PendingDeposit, error) {
	ctx, span := walletTracer.Start(ctx, "WalletService.PendingDeposits")
	defer span.End()

	deps, err := s.deposits.ListPendingDeposits(ctx, userID)
	if err != nil {
		s.metrics.IncrExternalError("pending_deposits")
		return nil, fmt.Errorf("list pending deposits: %w", err)
	}
	return deps, nil
}

// GetDeposit returns a pending deposit by ID.
func (s *WalletService) GetDeposit(ctx context.Context, depositID string) (*domain.PendingDeposit, error) {
	ctx, span := walletTracer.Start(ctx, "WalletService.GetDeposit")
	defer span.End()

	dep, err := s.deposits.GetPendingDeposit(ctx, depositID)
	if err != nil {
		return nil, fmt.Errorf("get deposit: %w", err)
	}
	return dep, nil
}

// DepositStatus polls the gateway for a pending deposit's state.
func (s *WalletService) DepositStatus(ctx context.Context, depositID string) (*domain.PaymentStatus, error) {
	ctx, span := walletTracer.Start(ctx, "WalletService.DepositStatus")
	defer span.End()

	dep, err := s.deposits.GetPendingDeposit(ctx, depositID)
	if err != nil {
		return nil, fmt.Errorf("get deposit: %w", err)
	}
	if dep.GatewayTxID == "" {
		return &domain.PaymentStatus{Status: "PENDING", Message: "awaiting gateway"}, nil
	}

	status, err := s.gateway.CheckStatus(ctx, dep.GatewayTxID)
	if err != nil {
		s.metrics.IncrExternalError("gateway")
		return nil, fmt.Errorf("check status: %w", err)
	}
	return status, nil
}

// generateDepositReference builds a human-quotable reference: DEP + a
// user prefix + the tail of the millisecond clock + 4 random digits.
func generateDepositReference(userID string) string {
	prefix := userID
	if len(prefix) > 4 {
		prefix = prefix[:4]
	}
	millis := fmt.Sprintf("%d", time.Now().UnixMilli())
	if len(millis) > 6 {
		millis = millis[len(millis)-6:]
	}
	return fmt.Sprintf("DEP%s%s%d", strings.ToUpper(prefix), millis, 1000+rand.Intn(9000))
}

// ============================================================
// Reads
// ============================================================

// GetProfile returns the user profile, falling back to the last cached
// copy when the store is unreachable so the app can still render.
func (s *WalletService) GetProfile(ctx context.Context, userID string) (*domain.UserProfile, error) {
	ctx, span := walletTracer.Start(ctx, "WalletService.GetProfile")
	defer span.End()

	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		var nf *domain.ErrNotFound
		if errors.As(err, &nf) {
			return nil, err
		}
		if cached, ok := s.cache.Get(userID); ok {
			s.metrics.IncrCacheHit("profile")
			s.logger.Warn("serving cached profile, store unavailable",
				zap.String("user_id", userID),
				zap.Error(err),
			)
			return &cached, nil
		}
		s.metrics.IncrCacheMiss("profile")
		return nil, fmt.Errorf("get user: %w", err)
	}

	s.cache.Set(userID, *user)
	return user, nil
}

func (s *WalletService) UpdateProfile(ctx context.Context, userID string, req *domain.UpdateProfileRequest) (*domain.UserProfile, error) {
	ctx, span := walletTracer.Start(ctx, "WalletService.UpdateProfile")
	defer span.End()

	updates := map[string]any{}
	if req.Name != "" {
		updates["name"] = req.Name
	}
	if req.Phone != "" {
		updates["phone"] = req.Phone
	}
	if len(updates) == 0 {
		return nil, &domain.ErrValidation{Field: "body", Message: "no fields to update"}
	}

	user, err := s.users.UpdateUser(ctx, userID, updates)
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	s.cache.Set(userID, *user)
	s.logger.Info("profile updated", zap.String("user_id", userID))
	return user, nil
}

// Balance returns the current wallet balance.
func (s *WalletService) Balance(ctx context.Context, userID string) (float64, string, error) {
	ctx, span := walletTracer.Start(ctx, "WalletService.Balance")
	defer span.End()

	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return 0, "", fmt.Errorf("get user: %w", err)
	}
	return user.Balance, user.Currency, nil
}

// RecentTransactions returns the user's latest ledger entries, newest
// first, optionally filtered by type.
func (s *WalletService) RecentTransactions(ctx context.Context, userID string, limit int, txType string) ([]domain.Transaction, error) {
	ctx, span := walletTracer.Start(ctx, "WalletService.RecentTransactions")
	defer span.End()

	switch txType {
	case "", domain.TxTypeDeposit, domain.TxTypeWithdrawal, domain.TxTypeSend:
	default:
		return nil, &domain.ErrValidation{Field: "type", Message: "unknown transaction type"}
	}

	txs, err := s.txs.ListTransactions(ctx, userID, limit, txType)
	if err != nil {
		s.metrics.IncrExternalError("transactions")
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

// MonthlySpending aggregates spend-type transactions (sends and
// withdrawals) for one calendar month. Deposits are excluded.
func (s *WalletService) MonthlySpending(ctx context.Context, userID string, month, year int) (*domain.MonthlySpending, error) {
	ctx, span := walletTracer.Start(ctx, "WalletService.MonthlySpending")
	defer span.End()

	if month < 1 || month > 12 {
		return nil, &domain.ErrValidation{Field: "month", Message: "month must be 1-12"}
	}
	if year < 2000 {
		return nil, &domain.ErrValidation{Field: "year", Message: "year out of range"}
	}

	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	txs, err := s.txs.ListTransactionsBetween(ctx, userID, from, to)
	if err != nil {
		s.metrics.IncrExternalError("transactions")
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	byCategory := map[string]*domain.CategorySpend{}
	var order []string
	total := 0.0
	for i := range txs {
		if !txs[i].IsSpend() {
			continue
		}
		cat := txs[i].Category
		if cat == "" {
			cat = CategoryOther
		}
		cs, ok := byCategory[cat]
		if !ok {
			cs = &domain.CategorySpend{Category: cat}
			byCategory[cat] = cs
			order = append(order, cat)
		}
		cs.Amount += txs[i].Amount
		cs.Count++
		total += txs[i].Amount
	}

	out := &domain.MonthlySpending{
		Month:      month,
		Year:       year,
		Total:      total,
		Categories: make([]domain.CategorySpend, 0, len(order)),
	}
	for _, cat := range order {
		out.Categories = append(out.Categories, *byCategory[cat])
	}
	return out, nil
}

// HomeSummary fans out the three reads behind the home screen.
func (s *WalletService) HomeSummary(ctx context.Context, userID string) (*domain.HomeSummary, error) {
	ctx, span := walletTracer.Start(ctx, "WalletService.HomeSummary")
	defer span.End()
	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("wallet_home", time.Since(start)) }()

	summary := &domain.HomeSummary{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		profile, err := s.GetProfile(gctx, userID)
		if err != nil {
			return err
		}
		summary.Profile = profile
		return nil
	})
	g.Go(func() error {
		txs, err := s.txs.ListTransactions(gctx, userID, 10, "")
		if err != nil {
			return err
		}
		summary.Transactions = txs
		return nil
	})
	g.Go(func() error {
		budgets, err := s.budgets.ListBudgets(gctx, userID)
		if err != nil {
			return err
		}
		summary.Budgets = budgets
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("home summary: %w", err)
	}
	return summary, nil
}
