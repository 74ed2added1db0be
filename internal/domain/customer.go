package domain

import "time"

// ============================================================
// Directory: customers, branches, employees
// ============================================================

// Customer is the owner of accounts. Every customer has a USER login.
type Customer struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	DOB       time.Time `json:"dob"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"createdAt"`
}

// Branch is a physical branch; accounts and employees belong to one.
type Branch struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address string `json:"addr"`
}

// CreateBranchRequest is the body for POST /api/admin/branches.
type CreateBranchRequest struct {
	Name    string `json:"name"`
	Address string `json:"addr"`
}

// Employee works at a branch and logs in with the EMPLOYEE role.
type Employee struct {
	ID       string    `json:"empId"`
	UserID   string    `json:"userId"`
	Name     string    `json:"empName"`
	Email    string    `json:"email"`
	DOB      time.Time `json:"dob"`
	Phone    string    `json:"phone"`
	BranchID string    `json:"branchId"`
}

// CreateEmployeeRequest is the body for POST /api/admin/employees.
type CreateEmployeeRequest struct {
	Name     string `json:"empName"`
	Email    string `json:"email"`
	Password string `json:"password"`
	DOB      string `json:"dob"` // YYYY-MM-DD
	Phone    string `json:"phone"`
	BranchID string `json:"branchId"`
}

// EmployeePatch is a partial update of an employee.
type EmployeePatch struct {
	Name     *string `json:"empName,omitempty"`
	Phone    *string `json:"phone,omitempty"`
	BranchID *string `json:"branchId,omitempty"`
}

// DashboardStats is the admin overview.
type DashboardStats struct {
	TotalCustomers  int `json:"totalCustomers"`
	ActiveCustomers int `json:"activeCustomers"`
	TotalBranches   int `json:"totalBranches"`
	TotalEmployees  int `json:"totalEmployees"`
}

// MetricsSnapshot is a point-in-time read of the operational counters.
type MetricsSnapshot struct {
	LedgerEntries     map[string]int64   `json:"ledgerEntries"`
	LedgerAmounts     map[string]float64 `json:"ledgerAmounts"`
	LoanTransitions   map[string]int64   `json:"loanTransitions"`
	Rejections        map[string]int64   `json:"rejections"`
	EventPublishFails int64              `json:"eventPublishFailures"`
	CacheHitRate      float64            `json:"cacheHitRate"`
}
