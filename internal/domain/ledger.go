package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Ledger
// ============================================================

// TransactionType classifies a ledger entry.
type TransactionType string

const (
	TxDeposit       TransactionType = "DEPOSIT"
	TxWithdrawal    TransactionType = "WITHDRAWAL"
	TxLoanCredit    TransactionType = "LOAN_CREDIT"
	TxLoanRepayment TransactionType = "LOAN_REPAYMENT"
)

// Transaction is an immutable ledger entry recording one money movement
// against an account. Amount is always positive; the type gives the direction.
type Transaction struct {
	ID          string          `json:"transId"`
	AccountID   string          `json:"accId"`
	Amount      decimal.Decimal `json:"amount"`
	Type        TransactionType `json:"type"`
	Description string          `json:"description"`
	Timestamp   time.Time       `json:"timestamp"`
}

// ============================================================
// Events
// ============================================================

// EventKind names what happened.
type EventKind string

const (
	EventLedgerEntry   EventKind = "ledger.entry"
	EventLoanStatus    EventKind = "loan.status"
	EventAccountStatus EventKind = "account.status"
)

// Event is published after a unit of work commits.
type Event struct {
	ID            string           `json:"id"`
	Kind          EventKind        `json:"kind"`
	AccountID     string           `json:"accountId,omitempty"`
	LoanID        string           `json:"loanId,omitempty"`
	TransactionID string           `json:"transactionId,omitempty"`
	Type          string           `json:"type,omitempty"`
	Amount        *decimal.Decimal `json:"amount,omitempty"`
	Status        string           `json:"status,omitempty"`
	OccurredAt    time.Time        `json:"occurredAt"`
}
