// Package domain defines the core business entities of the bank back-end:
// accounts, loans, the ledger and the people who operate on them.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Accounts
// ============================================================

// AccountType is the product type of an account.
type AccountType string

const (
	AccountSavings  AccountType = "SAVINGS"
	AccountChecking AccountType = "CHECKING"
)

// Valid reports whether t is a known account type.
func (t AccountType) Valid() bool {
	return t == AccountSavings || t == AccountChecking
}

// AccountStatus is the lifecycle status of an account.
type AccountStatus string

const (
	AccountActive  AccountStatus = "ACTIVE"
	AccountBlocked AccountStatus = "BLOCKED"
)

// Valid reports whether s is a known account status.
func (s AccountStatus) Valid() bool {
	return s == AccountActive || s == AccountBlocked
}

// Account holds a balance and a lifecycle status. Balance is never negative.
type Account struct {
	ID         string          `json:"accId"`
	Name       string          `json:"accName"`
	Type       AccountType     `json:"accType"`
	Balance    decimal.Decimal `json:"balance"`
	Status     AccountStatus   `json:"status"`
	CustomerID string          `json:"customerId"`
	BranchID   string          `json:"branchId"`
	Email      string          `json:"email,omitempty"`
	Phone      string          `json:"phone,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// IsActive reports whether money may move through the account.
func (a *Account) IsActive() bool {
	return a.Status == AccountActive
}

// CreateAccountRequest is the body for POST /api/user/accounts.
type CreateAccountRequest struct {
	Name           string          `json:"accName"`
	Type           AccountType     `json:"accType"`
	BranchName     string          `json:"branchName"`
	InitialDeposit decimal.Decimal `json:"initialDeposit"`
}

// AccountPatch is a partial update of an account. Nil fields are left untouched.
type AccountPatch struct {
	Name    *string          `json:"accName,omitempty"`
	Type    *AccountType     `json:"accType,omitempty"`
	Balance *decimal.Decimal `json:"balance,omitempty"`
	Status  *AccountStatus   `json:"status,omitempty"`
	Email   *string          `json:"email,omitempty"`
	Phone   *string          `json:"phone,omitempty"`
}

// Apply copies every non-nil field of p onto a.
func (p *AccountPatch) Apply(a *Account) {
	if p.Name != nil {
		a.Name = *p.Name
	}
	if p.Type != nil {
		a.Type = *p.Type
	}
	if p.Balance != nil {
		a.Balance = *p.Balance
	}
	if p.Status != nil {
		a.Status = *p.Status
	}
	if p.Email != nil {
		a.Email = *p.Email
	}
	if p.Phone != nil {
		a.Phone = *p.Phone
	}
}

// ============================================================
// Money movement
// ============================================================

// DepositKind selects what a deposit is used for.
type DepositKind string

const (
	DepositCash          DepositKind = "DEPOSIT"
	DepositLoanRepayment DepositKind = "LOAN_REPAYMENT"
)

// DepositRequest is the body for POST /api/user/accounts/deposit.
type DepositRequest struct {
	AccountID string          `json:"accId"`
	Amount    decimal.Decimal `json:"amount"`
	Kind      DepositKind     `json:"type"`
}

// WithdrawRequest is the body for POST /api/user/accounts/withdraw.
type WithdrawRequest struct {
	AccountID string          `json:"accId"`
	Amount    decimal.Decimal `json:"amount"`
}

// MovementResult is returned by deposit and withdraw: the account after the
// movement and the identifier of the ledger entry that recorded it.
type MovementResult struct {
	Account       *Account `json:"account"`
	TransactionID string   `json:"transId"`
}
