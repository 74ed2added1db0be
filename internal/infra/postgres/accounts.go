package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/boddenberg/bank-backend-go/internal/domain"

	"github.com/jackc/pgx/v5"
)

const accountColumns = `id, name, type, balance, status, customer_id, branch_id, email, phone, created_at`

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var a domain.Account
	err := row.Scan(
		&a.ID,
		&a.Name,
		&a.Type,
		&a.Balance,
		&a.Status,
		&a.CustomerID,
		&a.BranchID,
		&a.Email,
		&a.Phone,
		&a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (t *tx) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	a, err := scanAccount(t.q.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id))
	if err != nil {
		return nil, notFoundOr(err, "account", id)
	}
	return a, nil
}

func (t *tx) LockAccount(ctx context.Context, id string) (*domain.Account, error) {
	a, err := scanAccount(t.q.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, notFoundOr(err, "account", id)
	}
	return a, nil
}

func (t *tx) InsertAccount(ctx context.Context, a *domain.Account) error {
	_, err := t.q.Exec(ctx, `
		INSERT INTO accounts (`+accountColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		a.ID,
		a.Name,
		string(a.Type),
		a.Balance,
		string(a.Status),
		a.CustomerID,
		a.BranchID,
		a.Email,
		a.Phone,
		a.CreatedAt,
	)
	if err != nil {
		return conflictOr(err, "account already exists")
	}
	return nil
}

func (t *tx) UpdateAccount(ctx context.Context, a *domain.Account) error {
	tag, err := t.q.Exec(ctx, `
		UPDATE accounts
		SET name = $2, type = $3, balance = $4, status = $5, email = $6, phone = $7
		WHERE id = $1
	`,
		a.ID,
		a.Name,
		string(a.Type),
		a.Balance,
		string(a.Status),
		a.Email,
		a.Phone,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &domain.ErrNotFound{Resource: "account", ID: a.ID}
	}
	return nil
}

func (t *tx) ListAccountsByCustomer(ctx context.Context, customerID string) ([]domain.Account, error) {
	rows, err := t.q.Query(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE customer_id = $1 ORDER BY created_at`, customerID)
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()

	var out []domain.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (t *tx) CountAccountsByBranch(ctx context.Context, branchID string) (int, error) {
	return t.count(ctx, `SELECT count(*) FROM accounts WHERE branch_id = $1`, branchID)
}

// ============================================================
// Loans
// ============================================================

const loanColumns = `id, account_id, type, amount, status, created_at, updated_at`

func scanLoan(row pgx.Row) (*domain.Loan, error) {
	var l domain.Loan
	err := row.Scan(
		&l.ID,
		&l.AccountID,
		&l.Type,
		&l.Amount,
		&l.Status,
		&l.CreatedAt,
		&l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (t *tx) InsertLoan(ctx context.Context, l *domain.Loan) error {
	_, err := t.q.Exec(ctx, `
		INSERT INTO loans (`+loanColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		l.ID,
		l.AccountID,
		l.Type,
		l.Amount,
		string(l.Status),
		l.CreatedAt,
		l.UpdatedAt,
	)
	if err != nil {
		return conflictOr(err, "loan already exists")
	}
	return nil
}

func (t *tx) LockLoan(ctx context.Context, id string) (*domain.Loan, error) {
	l, err := scanLoan(t.q.QueryRow(ctx,
		`SELECT `+loanColumns+` FROM loans WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, notFoundOr(err, "loan", id)
	}
	return l, nil
}

func (t *tx) UpdateLoan(ctx context.Context, l *domain.Loan) error {
	tag, err := t.q.Exec(ctx,
		`UPDATE loans SET amount = $2, status = $3, updated_at = $4 WHERE id = $1`,
		l.ID, l.Amount, string(l.Status), l.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &domain.ErrNotFound{Resource: "loan", ID: l.ID}
	}
	return nil
}

func (t *tx) ListLoans(ctx context.Context) ([]domain.Loan, error) {
	rows, err := t.q.Query(ctx, `SELECT `+loanColumns+` FROM loans ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("query loans: %w", err)
	}
	defer rows.Close()

	var out []domain.Loan
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan loan: %w", err)
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}

func (t *tx) FindApprovedLoan(ctx context.Context, customerID string) (*domain.Loan, error) {
	l, err := scanLoan(t.q.QueryRow(ctx, `
		SELECT l.id, l.account_id, l.type, l.amount, l.status, l.created_at, l.updated_at
		FROM loans l
		JOIN accounts a ON a.id = l.account_id
		WHERE a.customer_id = $1 AND l.status = 'APPROVED'
		ORDER BY l.created_at
		LIMIT 1
		FOR UPDATE OF l
	`, customerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find approved loan: %w", err)
	}
	return l, nil
}

// ============================================================
// Ledger
// ============================================================

func (t *tx) AppendEntry(ctx context.Context, e *domain.Transaction) error {
	_, err := t.q.Exec(ctx, `
		INSERT INTO transactions (id, account_id, amount, type, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		e.ID,
		e.AccountID,
		e.Amount,
		string(e.Type),
		e.Description,
		e.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

func (t *tx) ListEntries(ctx context.Context, accountID string) ([]domain.Transaction, error) {
	rows, err := t.q.Query(ctx, `
		SELECT id, account_id, amount, type, description, created_at
		FROM transactions
		WHERE account_id = $1
		ORDER BY created_at DESC, seq DESC
	`, accountID)
	if err != nil {
		return nil, fmt.Errorf("query ledger entries: %w", err)
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		var e domain.Transaction
		if err := rows.Scan(
			&e.ID,
			&e.AccountID,
			&e.Amount,
			&e.Type,
			&e.Description,
			&e.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
