package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/boddenberg/bank-backend-go/internal/domain"
	"github.com/boddenberg/bank-backend-go/internal/infra/observability"
	"github.com/boddenberg/bank-backend-go/internal/port"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var loanTracer = otel.Tracer("service/loans")

// LoanService drives loan applications and their status lifecycle.
type LoanService struct {
	store   port.Store
	events  port.EventPublisher
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewLoanService creates a new loan service.
func NewLoanService(store port.Store, events port.EventPublisher, metrics *observability.Metrics, logger *zap.Logger) *LoanService {
	return &LoanService{
		store:   store,
		events:  events,
		metrics: metrics,
		logger:  logger,
	}
}

// Apply records a PENDING loan against an ACTIVE account. When requesterID
// is not empty the account must belong to that customer.
func (s *LoanService) Apply(ctx context.Context, requesterID string, req *domain.LoanApplication) (*domain.Loan, error) {
	ctx, span := loanTracer.Start(ctx, "LoanService.Apply")
	defer span.End()
	span.SetAttributes(
		attribute.String("account_id", req.AccountID),
		attribute.String("loan_type", req.Type),
	)

	if err := req.Validate(); err != nil {
		return nil, err
	}

	ts := now()
	loan := &domain.Loan{
		ID:        uuid.NewString(),
		AccountID: req.AccountID,
		Type:      strings.ToUpper(strings.TrimSpace(req.Type)),
		Amount:    req.Amount,
		Status:    domain.LoanPending,
		CreatedAt: ts,
		UpdatedAt: ts,
	}

	err := s.store.WithinTx(ctx, func(tx port.Tx) error {
		acc, err := tx.GetAccount(ctx, req.AccountID)
		if err != nil {
			return err
		}
		if requesterID != "" && acc.CustomerID != requesterID {
			return &domain.ErrForbidden{Action: "apply for a loan on account " + req.AccountID}
		}
		if !acc.IsActive() {
			return &domain.ErrInvalidState{
				Resource: "account",
				ID:       acc.ID,
				Status:   string(acc.Status),
				Message:  "cannot apply for a loan on an inactive account",
			}
		}
		if err := tx.InsertLoan(ctx, loan); err != nil {
			return fmt.Errorf("insert loan: %w", err)
		}
		return nil
	})
	if err != nil {
		recordRejection(s.metrics, err)
		return nil, err
	}

	s.metrics.RecordLoanTransition(domain.LoanPending)
	s.logger.Info("loan applied",
		zap.String("loan_id", loan.ID),
		zap.String("account_id", loan.AccountID),
		zap.String("type", loan.Type),
		zap.String("amount", loan.Amount.StringFixed(2)),
	)
	publishAll(ctx, s.events, s.metrics, s.logger, loanEvent(loan))
	return loan, nil
}

// SetStatus moves a loan to status (case-insensitive).
//
// Moving to APPROVED from any other status disburses the outstanding
// principal into the owning account and ledgers a LOAN_CREDIT entry, all in
// the same unit of work; the account must be ACTIVE. A loan that is already
// APPROVED is never disbursed twice. Every other transition only overwrites
// the status.
func (s *LoanService) SetStatus(ctx context.Context, loanID, status string) (*domain.Loan, error) {
	ctx, span := loanTracer.Start(ctx, "LoanService.SetStatus")
	defer span.End()
	span.SetAttributes(
		attribute.String("loan_id", loanID),
		attribute.String("status", status),
	)

	newStatus := domain.LoanStatus(strings.ToUpper(strings.TrimSpace(status)))
	if !newStatus.Valid() {
		return nil, &domain.ErrValidation{Field: "status", Message: "status must be PENDING, APPROVED, REJECTED or PAID"}
	}

	var (
		loan       *domain.Loan
		credit     *domain.Transaction
		prevStatus domain.LoanStatus
	)
	err := s.store.WithinTx(ctx, func(tx port.Tx) error {
		var err error
		loan, err = tx.LockLoan(ctx, loanID)
		if err != nil {
			return err
		}
		prevStatus = loan.Status

		if newStatus == domain.LoanApproved && loan.Status != domain.LoanApproved {
			credit, err = s.disburse(ctx, tx, loan)
			if err != nil {
				return err
			}
		}

		loan.Status = newStatus
		loan.UpdatedAt = now()
		if err := tx.UpdateLoan(ctx, loan); err != nil {
			return fmt.Errorf("update loan: %w", err)
		}
		return nil
	})
	if err != nil {
		recordRejection(s.metrics, err)
		if !domain.IsBusinessError(err) {
			s.logger.Error("loan status change failed", zap.String("loan_id", loanID), zap.Error(err))
		}
		return nil, err
	}

	events := []domain.Event{}
	if credit != nil {
		s.metrics.RecordLedgerEntry(credit.Type, credit.Amount)
		events = append(events, ledgerEvent(credit))
	}
	if prevStatus != newStatus {
		s.metrics.RecordLoanTransition(newStatus)
		events = append(events, loanEvent(loan))
	}

	s.logger.Info("loan status changed",
		zap.String("loan_id", loan.ID),
		zap.String("from", string(prevStatus)),
		zap.String("to", string(newStatus)),
		zap.Bool("disbursed", credit != nil),
	)
	publishAll(ctx, s.events, s.metrics, s.logger, events...)
	return loan, nil
}

// disburse credits the loan principal to its account. A loan with nothing
// outstanding produces no ledger entry.
func (s *LoanService) disburse(ctx context.Context, tx port.Tx, loan *domain.Loan) (*domain.Transaction, error) {
	acc, err := tx.LockAccount(ctx, loan.AccountID)
	if err != nil {
		return nil, err
	}
	if !acc.IsActive() {
		return nil, &domain.ErrInvalidState{
			Resource: "account",
			ID:       acc.ID,
			Status:   string(acc.Status),
			Message:  "cannot approve loan for an inactive account",
		}
	}
	if !loan.Amount.IsPositive() {
		return nil, nil
	}

	acc.Balance = acc.Balance.Add(loan.Amount)
	if err := tx.UpdateAccount(ctx, acc); err != nil {
		return nil, fmt.Errorf("update account: %w", err)
	}

	entry := &domain.Transaction{
		ID:          uuid.NewString(),
		AccountID:   acc.ID,
		Amount:      loan.Amount,
		Type:        domain.TxLoanCredit,
		Description: "Loan disbursement for loan ID: " + loan.ID,
		Timestamp:   now(),
	}
	if err := tx.AppendEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("append ledger entry: %w", err)
	}
	return entry, nil
}

// ListAll returns every loan regardless of status or owner.
func (s *LoanService) ListAll(ctx context.Context) ([]domain.Loan, error) {
	ctx, span := loanTracer.Start(ctx, "LoanService.ListAll")
	defer span.End()

	var loans []domain.Loan
	err := s.store.WithinTx(ctx, func(tx port.Tx) error {
		var err error
		loans, err = tx.ListLoans(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list loans: %w", err)
	}
	if loans == nil {
		loans = []domain.Loan{}
	}
	return loans, nil
}
