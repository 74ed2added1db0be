package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/boddenberg/bank-backend-go/internal/domain"

	"github.com/jackc/pgx/v5"
)

// ============================================================
// Customers
// ============================================================

const customerColumns = `id, COALESCE(user_id::text, ''), name, email, dob, phone, created_at`

func scanCustomer(row pgx.Row) (*domain.Customer, error) {
	var c domain.Customer
	if err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.Email, &c.DOB, &c.Phone, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (t *tx) InsertCustomer(ctx context.Context, c *domain.Customer) error {
	_, err := t.q.Exec(ctx, `
		INSERT INTO customers (id, user_id, name, email, dob, phone, created_at)
		VALUES ($1, NULLIF($2, '')::uuid, $3, $4, $5, $6, $7)
	`, c.ID, c.UserID, c.Name, c.Email, c.DOB, c.Phone, c.CreatedAt)
	if err != nil {
		return conflictOr(err, "customer already exists")
	}
	return nil
}

func (t *tx) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	c, err := scanCustomer(t.q.QueryRow(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE id = $1`, id))
	if err != nil {
		return nil, notFoundOr(err, "customer", id)
	}
	return c, nil
}

func (t *tx) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	rows, err := t.q.Query(ctx, `SELECT `+customerColumns+` FROM customers ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query customers: %w", err)
	}
	defer rows.Close()

	var out []domain.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// DeleteCustomer relies on ON DELETE CASCADE for accounts, loans and
// ledger entries.
func (t *tx) DeleteCustomer(ctx context.Context, id string) error {
	tag, err := t.q.Exec(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		return notFoundOr(err, "customer", id)
	}
	if tag.RowsAffected() == 0 {
		return &domain.ErrNotFound{Resource: "customer", ID: id}
	}
	return nil
}

func (t *tx) CountCustomers(ctx context.Context) (int, error) {
	return t.count(ctx, `SELECT count(*) FROM customers`)
}

func (t *tx) CountActiveCustomers(ctx context.Context) (int, error) {
	return t.count(ctx, `SELECT count(DISTINCT customer_id) FROM accounts WHERE status = 'ACTIVE'`)
}

// ============================================================
// Branches
// ============================================================

func (t *tx) InsertBranch(ctx context.Context, b *domain.Branch) error {
	_, err := t.q.Exec(ctx,
		`INSERT INTO branches (id, name, addr) VALUES ($1, $2, $3)`,
		b.ID, b.Name, b.Address)
	if err != nil {
		return conflictOr(err, "branch name already exists")
	}
	return nil
}

func (t *tx) GetBranch(ctx context.Context, id string) (*domain.Branch, error) {
	var b domain.Branch
	err := t.q.QueryRow(ctx, `SELECT id, name, addr FROM branches WHERE id = $1`, id).
		Scan(&b.ID, &b.Name, &b.Address)
	if err != nil {
		return nil, notFoundOr(err, "branch", id)
	}
	return &b, nil
}

func (t *tx) FindBranchByName(ctx context.Context, name string) (*domain.Branch, error) {
	var b domain.Branch
	err := t.q.QueryRow(ctx, `SELECT id, name, addr FROM branches WHERE lower(name) = lower($1)`, name).
		Scan(&b.ID, &b.Name, &b.Address)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find branch: %w", err)
	}
	return &b, nil
}

func (t *tx) ListBranches(ctx context.Context) ([]domain.Branch, error) {
	rows, err := t.q.Query(ctx, `SELECT id, name, addr FROM branches ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query branches: %w", err)
	}
	defer rows.Close()

	var out []domain.Branch
	for rows.Next() {
		var b domain.Branch
		if err := rows.Scan(&b.ID, &b.Name, &b.Address); err != nil {
			return nil, fmt.Errorf("scan branch: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (t *tx) DeleteBranch(ctx context.Context, id string) error {
	tag, err := t.q.Exec(ctx, `DELETE FROM branches WHERE id = $1`, id)
	if err != nil {
		return notFoundOr(err, "branch", id)
	}
	if tag.RowsAffected() == 0 {
		return &domain.ErrNotFound{Resource: "branch", ID: id}
	}
	return nil
}

func (t *tx) CountBranches(ctx context.Context) (int, error) {
	return t.count(ctx, `SELECT count(*) FROM branches`)
}

// ============================================================
// Employees
// ============================================================

const employeeColumns = `id, COALESCE(user_id::text, ''), name, email, dob, phone, branch_id`

func scanEmployee(row pgx.Row) (*domain.Employee, error) {
	var e domain.Employee
	if err := row.Scan(&e.ID, &e.UserID, &e.Name, &e.Email, &e.DOB, &e.Phone, &e.BranchID); err != nil {
		return nil, err
	}
	return &e, nil
}

func (t *tx) InsertEmployee(ctx context.Context, e *domain.Employee) error {
	_, err := t.q.Exec(ctx, `
		INSERT INTO employees (id, user_id, name, email, dob, phone, branch_id)
		VALUES ($1, NULLIF($2, '')::uuid, $3, $4, $5, $6, $7)
	`, e.ID, e.UserID, e.Name, e.Email, e.DOB, e.Phone, e.BranchID)
	if err != nil {
		return conflictOr(err, "employee already exists")
	}
	return nil
}

func (t *tx) GetEmployee(ctx context.Context, id string) (*domain.Employee, error) {
	e, err := scanEmployee(t.q.QueryRow(ctx,
		`SELECT `+employeeColumns+` FROM employees WHERE id = $1`, id))
	if err != nil {
		return nil, notFoundOr(err, "employee", id)
	}
	return e, nil
}

func (t *tx) UpdateEmployee(ctx context.Context, e *domain.Employee) error {
	tag, err := t.q.Exec(ctx,
		`UPDATE employees SET name = $2, phone = $3, branch_id = $4 WHERE id = $1`,
		e.ID, e.Name, e.Phone, e.BranchID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &domain.ErrNotFound{Resource: "employee", ID: e.ID}
	}
	return nil
}

func (t *tx) ListEmployees(ctx context.Context) ([]domain.Employee, error) {
	rows, err := t.q.Query(ctx, `SELECT `+employeeColumns+` FROM employees ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query employees: %w", err)
	}
	defer rows.Close()

	var out []domain.Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, fmt.Errorf("scan employee: %w", err)
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func (t *tx) DeleteEmployee(ctx context.Context, id string) error {
	tag, err := t.q.Exec(ctx, `DELETE FROM employees WHERE id = $1`, id)
	if err != nil {
		return notFoundOr(err, "employee", id)
	}
	if tag.RowsAffected() == 0 {
		return &domain.ErrNotFound{Resource: "employee", ID: id}
	}
	return nil
}

func (t *tx) CountEmployees(ctx context.Context) (int, error) {
	return t.count(ctx, `SELECT count(*) FROM employees`)
}

func (t *tx) CountEmployeesByBranch(ctx context.Context, branchID string) (int, error) {
	return t.count(ctx, `SELECT count(*) FROM employees WHERE branch_id = $1`, branchID)
}
