package port

import (
	"context"

	"github.com/boddenberg/bank-backend-go/internal/domain"
)

// CustomerRepository handles customer rows.
type CustomerRepository interface {
	InsertCustomer(ctx context.Context, c *domain.Customer) error
	GetCustomer(ctx context.Context, id string) (*domain.Customer, error)
	ListCustomers(ctx context.Context) ([]domain.Customer, error)
	// DeleteCustomer removes the customer with its accounts, loans and
	// ledger entries.
	DeleteCustomer(ctx context.Context, id string) error
	CountCustomers(ctx context.Context) (int, error)
	// CountActiveCustomers counts customers owning at least one ACTIVE account.
	CountActiveCustomers(ctx context.Context) (int, error)
}

// BranchRepository handles branch rows.
type BranchRepository interface {
	InsertBranch(ctx context.Context, b *domain.Branch) error
	GetBranch(ctx context.Context, id string) (*domain.Branch, error)
	FindBranchByName(ctx context.Context, name string) (*domain.Branch, error)
	ListBranches(ctx context.Context) ([]domain.Branch, error)
	DeleteBranch(ctx context.Context, id string) error
	CountBranches(ctx context.Context) (int, error)
}

// EmployeeRepository handles employee rows.
type EmployeeRepository interface {
	InsertEmployee(ctx context.Context, e *domain.Employee) error
	GetEmployee(ctx context.Context, id string) (*domain.Employee, error)
	UpdateEmployee(ctx context.Context, e *domain.Employee) error
	ListEmployees(ctx context.Context) ([]domain.Employee, error)
	DeleteEmployee(ctx context.Context, id string) error
	CountEmployees(ctx context.Context) (int, error)
	CountEmployeesByBranch(ctx context.Context, branchID string) (int, error)
}
