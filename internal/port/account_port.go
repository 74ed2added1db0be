package port

import (
	"context"

	"github.com/boddenberg/bank-backend-go/internal/domain"
)

// AccountRepository handles account rows.
type AccountRepository interface {
	GetAccount(ctx context.Context, id string) (*domain.Account, error)
	// LockAccount reads the account and holds a row lock until the unit of
	// work ends.
	LockAccount(ctx context.Context, id string) (*domain.Account, error)
	InsertAccount(ctx context.Context, a *domain.Account) error
	UpdateAccount(ctx context.Context, a *domain.Account) error
	ListAccountsByCustomer(ctx context.Context, customerID string) ([]domain.Account, error)
	CountAccountsByBranch(ctx context.Context, branchID string) (int, error)
}

// LoanRepository handles loan rows.
type LoanRepository interface {
	InsertLoan(ctx context.Context, l *domain.Loan) error
	// LockLoan reads the loan and holds a row lock until the unit of work ends.
	LockLoan(ctx context.Context, id string) (*domain.Loan, error)
	UpdateLoan(ctx context.Context, l *domain.Loan) error
	ListLoans(ctx context.Context) ([]domain.Loan, error)
	// FindApprovedLoan returns the oldest APPROVED loan on any account of the
	// customer, locked, or nil when there is none.
	FindApprovedLoan(ctx context.Context, customerID string) (*domain.Loan, error)
}

// LedgerRepository appends and reads ledger entries. Entries are never
// updated or deleted on their own.
type LedgerRepository interface {
	AppendEntry(ctx context.Context, t *domain.Transaction) error
	// ListEntries returns the account's entries newest first.
	ListEntries(ctx context.Context, accountID string) ([]domain.Transaction, error)
}
