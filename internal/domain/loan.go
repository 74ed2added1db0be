package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LoanStatus is the lifecycle status of a loan.
type LoanStatus string

const (
	LoanPending  LoanStatus = "PENDING"
	LoanApproved LoanStatus = "APPROVED"
	LoanRejected LoanStatus = "REJECTED"
	LoanPaid     LoanStatus = "PAID"
)

// Valid reports whether s is a known loan status.
func (s LoanStatus) Valid() bool {
	switch s {
	case LoanPending, LoanApproved, LoanRejected, LoanPaid:
		return true
	}
	return false
}

// MinLoanAmount is the smallest principal accepted at application time.
var MinLoanAmount = decimal.NewFromInt(100)

// Loan is a borrowing request attached to an account. Amount is the
// outstanding principal and only decreases after approval.
type Loan struct {
	ID        string          `json:"loanId"`
	AccountID string          `json:"accId"`
	Type      string          `json:"loanType"`
	Amount    decimal.Decimal `json:"amount"`
	Status    LoanStatus      `json:"status"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// LoanApplication is the body for POST /api/user/loans/apply.
type LoanApplication struct {
	AccountID string          `json:"accId"`
	Type      string          `json:"loanType"`
	Amount    decimal.Decimal `json:"amount"`
}

// LoanStatusUpdate is the body for PUT /api/employee/loans/{id}/status.
type LoanStatusUpdate struct {
	Status string `json:"status"`
}
