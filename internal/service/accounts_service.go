package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/boddenberg/bank-backend-go/internal/domain"
	"github.com/boddenberg/bank-backend-go/internal/infra/observability"
	"github.com/boddenberg/bank-backend-go/internal/port"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var bankTracer = otel.Tracer("service/banking")

// AccountOptions tunes AccountService behaviour.
type AccountOptions struct {
	// LedgerOpeningDeposit appends a DEPOSIT entry for a positive initial
	// deposit when an account is opened.
	LedgerOpeningDeposit bool

	// StatsCache, when set, is the dashboard cache shared with
	// DirectoryService. Opening an account or changing its status drops the
	// cached aggregate because the active-customer count depends on both.
	StatsCache port.Cache[*domain.DashboardStats]
}

// AccountService moves money in and out of accounts and keeps the ledger.
type AccountService struct {
	store   port.Store
	events  port.EventPublisher
	metrics *observability.Metrics
	logger  *zap.Logger
	opts    AccountOptions
}

// NewAccountService creates a new account service.
func NewAccountService(store port.Store, events port.EventPublisher, metrics *observability.Metrics, logger *zap.Logger, opts AccountOptions) *AccountService {
	return &AccountService{
		store:   store,
		events:  events,
		metrics: metrics,
		logger:  logger,
		opts:    opts,
	}
}

// ============================================================
// Account opening
// ============================================================

// CreateAccount opens an ACTIVE account for the customer at the branch named
// in the request, with balance equal to the initial deposit.
func (s *AccountService) CreateAccount(ctx context.Context, customerID string, req *domain.CreateAccountRequest) (*domain.Account, error) {
	ctx, span := bankTracer.Start(ctx, "AccountService.CreateAccount")
	defer span.End()
	span.SetAttributes(
		attribute.String("customer_id", customerID),
		attribute.String("branch_name", req.BranchName),
	)

	req.Type = domain.AccountType(strings.ToUpper(strings.TrimSpace(string(req.Type))))
	if err := req.Validate(); err != nil {
		return nil, err
	}

	acc := &domain.Account{
		ID:         uuid.NewString(),
		Name:       strings.TrimSpace(req.Name),
		Type:       req.Type,
		Balance:    req.InitialDeposit,
		Status:     domain.AccountActive,
		CustomerID: customerID,
		CreatedAt:  now(),
	}
	var opening *domain.Transaction

	err := s.store.WithinTx(ctx, func(tx port.Tx) error {
		customer, err := tx.GetCustomer(ctx, customerID)
		if err != nil {
			return err
		}
		branch, err := tx.FindBranchByName(ctx, req.BranchName)
		if err != nil {
			return fmt.Errorf("find branch: %w", err)
		}
		if branch == nil {
			return &domain.ErrNotFound{Resource: "branch", ID: req.BranchName}
		}

		acc.BranchID = branch.ID
		acc.Email = customer.Email
		acc.Phone = customer.Phone
		if err := tx.InsertAccount(ctx, acc); err != nil {
			return fmt.Errorf("insert account: %w", err)
		}

		if s.opts.LedgerOpeningDeposit && acc.Balance.IsPositive() {
			opening = &domain.Transaction{
				ID:          uuid.NewString(),
				AccountID:   acc.ID,
				Amount:      acc.Balance,
				Type:        domain.TxDeposit,
				Description: "Opening deposit",
				Timestamp:   acc.CreatedAt,
			}
			if err := tx.AppendEntry(ctx, opening); err != nil {
				return fmt.Errorf("append opening entry: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		recordRejection(s.metrics, err)
		return nil, err
	}

	s.invalidateStats()
	if opening != nil {
		s.metrics.RecordLedgerEntry(opening.Type, opening.Amount)
		publishAll(ctx, s.events, s.metrics, s.logger, ledgerEvent(opening))
	}

	s.logger.Info("account opened",
		zap.String("account_id", acc.ID),
		zap.String("customer_id", customerID),
		zap.String("branch_id", acc.BranchID),
		zap.String("type", string(acc.Type)),
		zap.String("initial_deposit", acc.Balance.StringFixed(2)),
	)
	return acc, nil
}

// ============================================================
// Money movement
// ============================================================

// Deposit credits an ACTIVE account, or applies the amount to the owner's
// approved loan when the kind is LOAN_REPAYMENT. A repayment reduces the
// loan principal (clamped at zero, which marks the loan PAID), leaves the
// account balance untouched and ledgers the full amount requested.
//
// When requesterID is not empty the account must belong to that customer.
func (s *AccountService) Deposit(ctx context.Context, requesterID string, req *domain.DepositRequest) (*domain.MovementResult, error) {
	ctx, span := bankTracer.Start(ctx, "AccountService.Deposit")
	defer span.End()
	span.SetAttributes(
		attribute.String("account_id", req.AccountID),
		attribute.String("kind", string(req.Kind)),
	)

	if err := req.Validate(); err != nil {
		return nil, err
	}

	var (
		acc   *domain.Account
		loan  *domain.Loan
		entry *domain.Transaction
	)
	err := s.store.WithinTx(ctx, func(tx port.Tx) error {
		var err error
		acc, err = s.lockMovable(ctx, tx, req.AccountID, requesterID)
		if err != nil {
			return err
		}

		entry = &domain.Transaction{
			ID:        uuid.NewString(),
			AccountID: acc.ID,
			Amount:    req.Amount,
			Timestamp: now(),
		}

		switch req.Kind {
		case domain.DepositLoanRepayment:
			loan, err = tx.FindApprovedLoan(ctx, acc.CustomerID)
			if err != nil {
				return fmt.Errorf("find approved loan: %w", err)
			}
			if loan == nil {
				return &domain.ErrNotFound{Resource: "active loan for customer", ID: acc.CustomerID}
			}
			if req.Amount.GreaterThanOrEqual(loan.Amount) {
				loan.Amount = decimal.Zero
				loan.Status = domain.LoanPaid
			} else {
				loan.Amount = loan.Amount.Sub(req.Amount)
			}
			loan.UpdatedAt = entry.Timestamp
			if err := tx.UpdateLoan(ctx, loan); err != nil {
				return fmt.Errorf("update loan: %w", err)
			}
			entry.Type = domain.TxLoanRepayment
			entry.Description = "Loan repayment for loan ID: " + loan.ID

		default:
			acc.Balance = acc.Balance.Add(req.Amount)
			if err := tx.UpdateAccount(ctx, acc); err != nil {
				return fmt.Errorf("update account: %w", err)
			}
			entry.Type = domain.TxDeposit
			entry.Description = "Customer deposit"
		}

		if err := tx.AppendEntry(ctx, entry); err != nil {
			return fmt.Errorf("append ledger entry: %w", err)
		}
		return nil
	})
	if err != nil {
		recordRejection(s.metrics, err)
		if !domain.IsBusinessError(err) {
			s.logger.Error("deposit failed", zap.String("account_id", req.AccountID), zap.Error(err))
		}
		return nil, err
	}

	s.metrics.RecordLedgerEntry(entry.Type, entry.Amount)
	events := []domain.Event{ledgerEvent(entry)}
	if loan != nil {
		events = append(events, loanEvent(loan))
		if loan.Status == domain.LoanPaid {
			s.metrics.RecordLoanTransition(domain.LoanPaid)
		}
		s.logger.Info("loan repayment",
			zap.String("account_id", acc.ID),
			zap.String("loan_id", loan.ID),
			zap.String("amount", entry.Amount.StringFixed(2)),
			zap.String("remaining", loan.Amount.StringFixed(2)),
			zap.String("loan_status", string(loan.Status)),
		)
	} else {
		s.logger.Info("deposit",
			zap.String("account_id", acc.ID),
			zap.String("amount", entry.Amount.StringFixed(2)),
			zap.String("transaction_id", entry.ID),
		)
	}
	publishAll(ctx, s.events, s.metrics, s.logger, events...)

	return &domain.MovementResult{Account: acc, TransactionID: entry.ID}, nil
}

// Withdraw debits an ACTIVE account. The balance never goes below zero.
//
// When requesterID is not empty the account must belong to that customer.
func (s *AccountService) Withdraw(ctx context.Context, requesterID string, req *domain.WithdrawRequest) (*domain.MovementResult, error) {
	ctx, span := bankTracer.Start(ctx, "AccountService.Withdraw")
	defer span.End()
	span.SetAttributes(attribute.String("account_id", req.AccountID))

	if err := req.Validate(); err != nil {
		return nil, err
	}

	var (
		acc   *domain.Account
		entry *domain.Transaction
	)
	err := s.store.WithinTx(ctx, func(tx port.Tx) error {
		var err error
		acc, err = s.lockMovable(ctx, tx, req.AccountID, requesterID)
		if err != nil {
			return err
		}
		if acc.Balance.LessThan(req.Amount) {
			return &domain.ErrInsufficientFunds{Available: acc.Balance, Required: req.Amount}
		}

		acc.Balance = acc.Balance.Sub(req.Amount)
		if err := tx.UpdateAccount(ctx, acc); err != nil {
			return fmt.Errorf("update account: %w", err)
		}

		entry = &domain.Transaction{
			ID:          uuid.NewString(),
			AccountID:   acc.ID,
			Amount:      req.Amount,
			Type:        domain.TxWithdrawal,
			Description: "Customer withdrawal",
			Timestamp:   now(),
		}
		if err := tx.AppendEntry(ctx, entry); err != nil {
			return fmt.Errorf("append ledger entry: %w", err)
		}
		return nil
	})
	if err != nil {
		recordRejection(s.metrics, err)
		if !domain.IsBusinessError(err) {
			s.logger.Error("withdraw failed", zap.String("account_id", req.AccountID), zap.Error(err))
		}
		return nil, err
	}

	s.metrics.RecordLedgerEntry(entry.Type, entry.Amount)
	s.logger.Info("withdrawal",
		zap.String("account_id", acc.ID),
		zap.String("amount", entry.Amount.StringFixed(2)),
		zap.String("transaction_id", entry.ID),
	)
	publishAll(ctx, s.events, s.metrics, s.logger, ledgerEvent(entry))

	return &domain.MovementResult{Account: acc, TransactionID: entry.ID}, nil
}

// lockMovable locks the account and checks ownership and status, in that order.
func (s *AccountService) lockMovable(ctx context.Context, tx port.Tx, accountID, requesterID string) (*domain.Account, error) {
	acc, err := tx.LockAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if requesterID != "" && acc.CustomerID != requesterID {
		return nil, &domain.ErrForbidden{Action: "operate on account " + accountID}
	}
	if !acc.IsActive() {
		return nil, &domain.ErrInvalidState{
			Resource: "account",
			ID:       acc.ID,
			Status:   string(acc.Status),
			Message:  fmt.Sprintf("account %s is %s, only ACTIVE accounts accept this operation", acc.ID, acc.Status),
		}
	}
	return acc, nil
}

// ============================================================
// Administration
// ============================================================

// SetStatus overwrites the account status. Any known status may follow any
// other. The value is case-insensitive.
func (s *AccountService) SetStatus(ctx context.Context, accountID, status string) (*domain.Account, error) {
	ctx, span := bankTracer.Start(ctx, "AccountService.SetStatus")
	defer span.End()
	span.SetAttributes(
		attribute.String("account_id", accountID),
		attribute.String("status", status),
	)

	newStatus := domain.AccountStatus(strings.ToUpper(strings.TrimSpace(status)))
	if !newStatus.Valid() {
		return nil, &domain.ErrValidation{Field: "status", Message: "status must be ACTIVE or BLOCKED"}
	}

	var acc *domain.Account
	err := s.store.WithinTx(ctx, func(tx port.Tx) error {
		var err error
		acc, err = tx.LockAccount(ctx, accountID)
		if err != nil {
			return err
		}
		acc.Status = newStatus
		return tx.UpdateAccount(ctx, acc)
	})
	if err != nil {
		recordRejection(s.metrics, err)
		return nil, err
	}

	s.invalidateStats()
	s.logger.Info("account status changed",
		zap.String("account_id", accountID),
		zap.String("status", string(newStatus)),
	)
	publishAll(ctx, s.events, s.metrics, s.logger, domain.Event{
		ID:         uuid.NewString(),
		Kind:       domain.EventAccountStatus,
		AccountID:  accountID,
		Status:     string(newStatus),
		OccurredAt: now(),
	})
	return acc, nil
}

// UpdateDetails applies a partial update; only fields present in the patch change.
func (s *AccountService) UpdateDetails(ctx context.Context, accountID string, patch *domain.AccountPatch) (*domain.Account, error) {
	ctx, span := bankTracer.Start(ctx, "AccountService.UpdateDetails")
	defer span.End()
	span.SetAttributes(attribute.String("account_id", accountID))

	if patch.Status != nil {
		upper := domain.AccountStatus(strings.ToUpper(string(*patch.Status)))
		patch.Status = &upper
	}
	if patch.Type != nil {
		upper := domain.AccountType(strings.ToUpper(string(*patch.Type)))
		patch.Type = &upper
	}
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	var acc *domain.Account
	err := s.store.WithinTx(ctx, func(tx port.Tx) error {
		var err error
		acc, err = tx.LockAccount(ctx, accountID)
		if err != nil {
			return err
		}
		patch.Apply(acc)
		return tx.UpdateAccount(ctx, acc)
	})
	if err != nil {
		recordRejection(s.metrics, err)
		return nil, err
	}

	if patch.Status != nil {
		s.invalidateStats()
	}
	fields := []zap.Field{zap.String("account_id", accountID)}
	if patch.Balance != nil {
		fields = append(fields, zap.String("balance", patch.Balance.StringFixed(2)))
	}
	s.logger.Info("account details updated", fields...)
	return acc, nil
}

func (s *AccountService) invalidateStats() {
	if s.opts.StatsCache != nil {
		s.opts.StatsCache.Delete(dashboardCacheKey)
	}
}

// ============================================================
// Queries
// ============================================================

// GetAccount returns one account (employee view).
func (s *AccountService) GetAccount(ctx context.Context, accountID string) (*domain.Account, error) {
	ctx, span := bankTracer.Start(ctx, "AccountService.GetAccount")
	defer span.End()
	span.SetAttributes(attribute.String("account_id", accountID))

	var acc *domain.Account
	err := s.store.WithinTx(ctx, func(tx port.Tx) error {
		var err error
		acc, err = tx.GetAccount(ctx, accountID)
		return err
	})
	return acc, err
}

// ListAccounts returns the customer's accounts.
func (s *AccountService) ListAccounts(ctx context.Context, customerID string) ([]domain.Account, error) {
	ctx, span := bankTracer.Start(ctx, "AccountService.ListAccounts")
	defer span.End()
	span.SetAttributes(attribute.String("customer_id", customerID))

	var accounts []domain.Account
	err := s.store.WithinTx(ctx, func(tx port.Tx) error {
		var err error
		accounts, err = tx.ListAccountsByCustomer(ctx, customerID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	if accounts == nil {
		accounts = []domain.Account{}
	}
	return accounts, nil
}

// ListTransactions returns the account's ledger newest first. When
// requesterID is not empty the account must belong to that customer.
func (s *AccountService) ListTransactions(ctx context.Context, accountID, requesterID string) ([]domain.Transaction, error) {
	ctx, span := bankTracer.Start(ctx, "AccountService.ListTransactions")
	defer span.End()
	span.SetAttributes(attribute.String("account_id", accountID))

	var entries []domain.Transaction
	err := s.store.WithinTx(ctx, func(tx port.Tx) error {
		acc, err := tx.GetAccount(ctx, accountID)
		if err != nil {
			return err
		}
		if requesterID != "" && acc.CustomerID != requesterID {
			return &domain.ErrForbidden{Action: "view transactions of account " + accountID}
		}
		entries, err = tx.ListEntries(ctx, accountID)
		return err
	})
	if err != nil {
		recordRejection(s.metrics, err)
		return nil, err
	}
	if entries == nil {
		entries = []domain.Transaction{}
	}
	return entries, nil
}
