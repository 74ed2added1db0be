package domain

import (
	"net/mail"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var minMovementAmount = decimal.RequireFromString("0.01")

const dateLayout = "2006-01-02"

// Validate checks the account-opening request.
func (r *CreateAccountRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return &ErrValidation{Field: "accName", Message: "account name is required"}
	}
	if !r.Type.Valid() {
		return &ErrValidation{Field: "accType", Message: "account type must be SAVINGS or CHECKING"}
	}
	if strings.TrimSpace(r.BranchName) == "" {
		return &ErrValidation{Field: "branchName", Message: "branch name is required"}
	}
	if r.InitialDeposit.IsNegative() {
		return &ErrValidation{Field: "initialDeposit", Message: "initial deposit cannot be negative"}
	}
	return validateScale("initialDeposit", r.InitialDeposit)
}

// Validate checks the deposit request.
func (r *DepositRequest) Validate() error {
	if r.AccountID == "" {
		return &ErrValidation{Field: "accId", Message: "account id is required"}
	}
	if r.Kind != DepositCash && r.Kind != DepositLoanRepayment {
		return &ErrValidation{Field: "type", Message: "type must be DEPOSIT or LOAN_REPAYMENT"}
	}
	return validateMovementAmount(r.Amount)
}

// Validate checks the withdrawal request.
func (r *WithdrawRequest) Validate() error {
	if r.AccountID == "" {
		return &ErrValidation{Field: "accId", Message: "account id is required"}
	}
	return validateMovementAmount(r.Amount)
}

// Validate checks the loan application.
func (r *LoanApplication) Validate() error {
	if r.AccountID == "" {
		return &ErrValidation{Field: "accId", Message: "account id is required"}
	}
	if strings.TrimSpace(r.Type) == "" {
		return &ErrValidation{Field: "loanType", Message: "loan type is required"}
	}
	if r.Amount.LessThan(MinLoanAmount) {
		return &ErrValidation{Field: "amount", Message: "loan amount must be at least 100.00"}
	}
	return validateScale("amount", r.Amount)
}

// Validate checks a partial account update.
func (p *AccountPatch) Validate() error {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return &ErrValidation{Field: "accName", Message: "account name cannot be blank"}
	}
	if p.Type != nil && !p.Type.Valid() {
		return &ErrValidation{Field: "accType", Message: "account type must be SAVINGS or CHECKING"}
	}
	if p.Status != nil && !p.Status.Valid() {
		return &ErrValidation{Field: "status", Message: "status must be ACTIVE or BLOCKED"}
	}
	if p.Balance != nil {
		if p.Balance.IsNegative() {
			return &ErrValidation{Field: "balance", Message: "balance cannot be negative"}
		}
		if err := validateScale("balance", *p.Balance); err != nil {
			return err
		}
	}
	if p.Email != nil && *p.Email != "" {
		if _, err := mail.ParseAddress(*p.Email); err != nil {
			return &ErrValidation{Field: "email", Message: "invalid email"}
		}
	}
	if p.Phone != nil && *p.Phone != "" && !isPhone(*p.Phone) {
		return &ErrValidation{Field: "phone", Message: "phone must have 10 digits"}
	}
	return nil
}

// Validate checks the registration request.
func (r *RegisterRequest) Validate(now time.Time) error {
	if strings.TrimSpace(r.Name) == "" {
		return &ErrValidation{Field: "name", Message: "name is required"}
	}
	if _, err := mail.ParseAddress(r.Email); err != nil {
		return &ErrValidation{Field: "email", Message: "invalid email"}
	}
	if n := len(r.Password); n < 8 || n > 40 {
		return &ErrValidation{Field: "password", Message: "password must have between 8 and 40 characters"}
	}
	if _, err := ParseBirthDate("dob", r.DOB, now); err != nil {
		return err
	}
	if !isPhone(r.Phone) {
		return &ErrValidation{Field: "phone", Message: "phone must have 10 digits"}
	}
	return nil
}

// Validate checks the employee creation request.
func (r *CreateEmployeeRequest) Validate(now time.Time) error {
	if strings.TrimSpace(r.Name) == "" {
		return &ErrValidation{Field: "empName", Message: "employee name is required"}
	}
	if _, err := mail.ParseAddress(r.Email); err != nil {
		return &ErrValidation{Field: "email", Message: "invalid email"}
	}
	if len(r.Password) < 8 {
		return &ErrValidation{Field: "password", Message: "password must have at least 8 characters"}
	}
	if _, err := ParseBirthDate("dob", r.DOB, now); err != nil {
		return err
	}
	if !isPhone(r.Phone) {
		return &ErrValidation{Field: "phone", Message: "phone must have 10 digits"}
	}
	if r.BranchID == "" {
		return &ErrValidation{Field: "branchId", Message: "branch id is required"}
	}
	return nil
}

// Validate checks a partial employee update.
func (p *EmployeePatch) Validate() error {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return &ErrValidation{Field: "empName", Message: "employee name cannot be blank"}
	}
	if p.Phone != nil && !isPhone(*p.Phone) {
		return &ErrValidation{Field: "phone", Message: "phone must have 10 digits"}
	}
	if p.BranchID != nil && *p.BranchID == "" {
		return &ErrValidation{Field: "branchId", Message: "branch id cannot be blank"}
	}
	return nil
}

// Validate checks the branch creation request.
func (r *CreateBranchRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return &ErrValidation{Field: "name", Message: "branch name is required"}
	}
	if strings.TrimSpace(r.Address) == "" {
		return &ErrValidation{Field: "addr", Message: "branch address is required"}
	}
	return nil
}

// ParseBirthDate parses a YYYY-MM-DD date that must lie in the past.
func ParseBirthDate(field, value string, now time.Time) (time.Time, error) {
	dob, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, &ErrValidation{Field: field, Message: "date must be YYYY-MM-DD"}
	}
	if !dob.Before(now) {
		return time.Time{}, &ErrValidation{Field: field, Message: "date of birth must be in the past"}
	}
	return dob, nil
}

func validateMovementAmount(amount decimal.Decimal) error {
	if amount.LessThan(minMovementAmount) {
		return &ErrValidation{Field: "amount", Message: "amount must be at least 0.01"}
	}
	return validateScale("amount", amount)
}

func validateScale(field string, amount decimal.Decimal) error {
	if !amount.Equal(amount.Round(2)) {
		return &ErrValidation{Field: field, Message: "amount cannot have more than two decimal places"}
	}
	return nil
}

func isPhone(s string) bool {
	if len(s) != 10 {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
