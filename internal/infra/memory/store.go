// Package memory is an in-process implementation of port.Store.
// A unit of work runs against a private copy of the data, which replaces
// the shared copy only when the unit of work succeeds. Units of work are
// serialized by a single mutex.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/boddenberg/bank-backend-go/internal/domain"
	"github.com/boddenberg/bank-backend-go/internal/port"
)

type state struct {
	accounts      map[string]domain.Account
	loans         map[string]domain.Loan
	entries       []domain.Transaction
	customers     map[string]domain.Customer
	branches      map[string]domain.Branch
	employees     map[string]domain.Employee
	users         map[string]domain.User
	refreshTokens map[string]domain.RefreshToken
}

func newState() *state {
	return &state{
		accounts:      make(map[string]domain.Account),
		loans:         make(map[string]domain.Loan),
		customers:     make(map[string]domain.Customer),
		branches:      make(map[string]domain.Branch),
		employees:     make(map[string]domain.Employee),
		users:         make(map[string]domain.User),
		refreshTokens: make(map[string]domain.RefreshToken),
	}
}

func cloneMap[V any](m map[string]V) map[string]V {
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *state) clone() *state {
	return &state{
		accounts:      cloneMap(s.accounts),
		loans:         cloneMap(s.loans),
		entries:       append([]domain.Transaction(nil), s.entries...),
		customers:     cloneMap(s.customers),
		branches:      cloneMap(s.branches),
		employees:     cloneMap(s.employees),
		users:         cloneMap(s.users),
		refreshTokens: cloneMap(s.refreshTokens),
	}
}

// Store is an in-memory port.Store.
type Store struct {
	mu   sync.Mutex
	data *state
}

// New creates an empty store.
func New() *Store {
	return &Store{data: newState()}
}

// WithinTx runs fn against a copy of the data and publishes the copy only if
// fn succeeds.
func (s *Store) WithinTx(ctx context.Context, fn func(tx port.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	work := &tx{st: s.data.clone()}
	if err := fn(work); err != nil {
		return err
	}
	s.data = work.st
	return nil
}

// Ping always succeeds.
func (s *Store) Ping(_ context.Context) error {
	return nil
}

type tx struct {
	st *state
}

// ============================================================
// Accounts
// ============================================================

func (t *tx) GetAccount(_ context.Context, id string) (*domain.Account, error) {
	a, ok := t.st.accounts[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "account", ID: id}
	}
	return &a, nil
}

func (t *tx) LockAccount(ctx context.Context, id string) (*domain.Account, error) {
	return t.GetAccount(ctx, id)
}

func (t *tx) InsertAccount(_ context.Context, a *domain.Account) error {
	if _, ok := t.st.accounts[a.ID]; ok {
		return &domain.ErrConflict{Message: "account already exists"}
	}
	t.st.accounts[a.ID] = *a
	return nil
}

func (t *tx) UpdateAccount(_ context.Context, a *domain.Account) error {
	if _, ok := t.st.accounts[a.ID]; !ok {
		return &domain.ErrNotFound{Resource: "account", ID: a.ID}
	}
	t.st.accounts[a.ID] = *a
	return nil
}

func (t *tx) ListAccountsByCustomer(_ context.Context, customerID string) ([]domain.Account, error) {
	var out []domain.Account
	for _, a := range t.st.accounts {
		if a.CustomerID == customerID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (t *tx) CountAccountsByBranch(_ context.Context, branchID string) (int, error) {
	n := 0
	for _, a := range t.st.accounts {
		if a.BranchID == branchID {
			n++
		}
	}
	return n, nil
}

// ============================================================
// Loans
// ============================================================

func (t *tx) InsertLoan(_ context.Context, l *domain.Loan) error {
	t.st.loans[l.ID] = *l
	return nil
}

func (t *tx) LockLoan(_ context.Context, id string) (*domain.Loan, error) {
	l, ok := t.st.loans[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "loan", ID: id}
	}
	return &l, nil
}

func (t *tx) UpdateLoan(_ context.Context, l *domain.Loan) error {
	if _, ok := t.st.loans[l.ID]; !ok {
		return &domain.ErrNotFound{Resource: "loan", ID: l.ID}
	}
	t.st.loans[l.ID] = *l
	return nil
}

func (t *tx) ListLoans(_ context.Context) ([]domain.Loan, error) {
	out := make([]domain.Loan, 0, len(t.st.loans))
	for _, l := range t.st.loans {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (t *tx) FindApprovedLoan(_ context.Context, customerID string) (*domain.Loan, error) {
	var found *domain.Loan
	for _, l := range t.st.loans {
		if l.Status != domain.LoanApproved {
			continue
		}
		a, ok := t.st.accounts[l.AccountID]
		if !ok || a.CustomerID != customerID {
			continue
		}
		if found == nil || l.CreatedAt.Before(found.CreatedAt) {
			l := l
			found = &l
		}
	}
	return found, nil
}

// ============================================================
// Ledger
// ============================================================

func (t *tx) AppendEntry(_ context.Context, e *domain.Transaction) error {
	if _, ok := t.st.accounts[e.AccountID]; !ok {
		return &domain.ErrNotFound{Resource: "account", ID: e.AccountID}
	}
	t.st.entries = append(t.st.entries, *e)
	return nil
}

func (t *tx) ListEntries(_ context.Context, accountID string) ([]domain.Transaction, error) {
	// Walk backwards so that entries sharing a timestamp keep newest first.
	var out []domain.Transaction
	for i := len(t.st.entries) - 1; i >= 0; i-- {
		if t.st.entries[i].AccountID == accountID {
			out = append(out, t.st.entries[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

// ============================================================
// Customers
// ============================================================

func (t *tx) InsertCustomer(_ context.Context, c *domain.Customer) error {
	t.st.customers[c.ID] = *c
	return nil
}

func (t *tx) GetCustomer(_ context.Context, id string) (*domain.Customer, error) {
	c, ok := t.st.customers[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "customer", ID: id}
	}
	return &c, nil
}

func (t *tx) ListCustomers(_ context.Context) ([]domain.Customer, error) {
	out := make([]domain.Customer, 0, len(t.st.customers))
	for _, c := range t.st.customers {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (t *tx) DeleteCustomer(_ context.Context, id string) error {
	if _, ok := t.st.customers[id]; !ok {
		return &domain.ErrNotFound{Resource: "customer", ID: id}
	}
	for accID, a := range t.st.accounts {
		if a.CustomerID != id {
			continue
		}
		for loanID, l := range t.st.loans {
			if l.AccountID == accID {
				delete(t.st.loans, loanID)
			}
		}
		kept := t.st.entries[:0]
		for _, e := range t.st.entries {
			if e.AccountID != accID {
				kept = append(kept, e)
			}
		}
		t.st.entries = kept
		delete(t.st.accounts, accID)
	}
	delete(t.st.customers, id)
	return nil
}

func (t *tx) CountCustomers(_ context.Context) (int, error) {
	return len(t.st.customers), nil
}

func (t *tx) CountActiveCustomers(_ context.Context) (int, error) {
	active := make(map[string]struct{})
	for _, a := range t.st.accounts {
		if a.Status == domain.AccountActive {
			active[a.CustomerID] = struct{}{}
		}
	}
	return len(active), nil
}

// ============================================================
// Branches
// ============================================================

func (t *tx) InsertBranch(_ context.Context, b *domain.Branch) error {
	for _, existing := range t.st.branches {
		if strings.EqualFold(existing.Name, b.Name) {
			return &domain.ErrConflict{Message: "branch name already exists"}
		}
	}
	t.st.branches[b.ID] = *b
	return nil
}

func (t *tx) GetBranch(_ context.Context, id string) (*domain.Branch, error) {
	b, ok := t.st.branches[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "branch", ID: id}
	}
	return &b, nil
}

func (t *tx) FindBranchByName(_ context.Context, name string) (*domain.Branch, error) {
	for _, b := range t.st.branches {
		if strings.EqualFold(b.Name, name) {
			b := b
			return &b, nil
		}
	}
	return nil, nil
}

func (t *tx) ListBranches(_ context.Context) ([]domain.Branch, error) {
	out := make([]domain.Branch, 0, len(t.st.branches))
	for _, b := range t.st.branches {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (t *tx) DeleteBranch(_ context.Context, id string) error {
	if _, ok := t.st.branches[id]; !ok {
		return &domain.ErrNotFound{Resource: "branch", ID: id}
	}
	delete(t.st.branches, id)
	return nil
}

func (t *tx) CountBranches(_ context.Context) (int, error) {
	return len(t.st.branches), nil
}

// ============================================================
// Employees
// ============================================================

func (t *tx) InsertEmployee(_ context.Context, e *domain.Employee) error {
	t.st.employees[e.ID] = *e
	return nil
}

func (t *tx) GetEmployee(_ context.Context, id string) (*domain.Employee, error) {
	e, ok := t.st.employees[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "employee", ID: id}
	}
	return &e, nil
}

func (t *tx) UpdateEmployee(_ context.Context, e *domain.Employee) error {
	if _, ok := t.st.employees[e.ID]; !ok {
		return &domain.ErrNotFound{Resource: "employee", ID: e.ID}
	}
	t.st.employees[e.ID] = *e
	return nil
}

func (t *tx) ListEmployees(_ context.Context) ([]domain.Employee, error) {
	out := make([]domain.Employee, 0, len(t.st.employees))
	for _, e := range t.st.employees {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (t *tx) DeleteEmployee(_ context.Context, id string) error {
	if _, ok := t.st.employees[id]; !ok {
		return &domain.ErrNotFound{Resource: "employee", ID: id}
	}
	delete(t.st.employees, id)
	return nil
}

func (t *tx) CountEmployees(_ context.Context) (int, error) {
	return len(t.st.employees), nil
}

func (t *tx) CountEmployeesByBranch(_ context.Context, branchID string) (int, error) {
	n := 0
	for _, e := range t.st.employees {
		if e.BranchID == branchID {
			n++
		}
	}
	return n, nil
}

// ============================================================
// Users
// ============================================================

func (t *tx) InsertUser(_ context.Context, u *domain.User) error {
	for _, existing := range t.st.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return &domain.ErrConflict{Message: "email already registered"}
		}
	}
	t.st.users[u.ID] = *u
	return nil
}

func (t *tx) GetUser(_ context.Context, id string) (*domain.User, error) {
	u, ok := t.st.users[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "user", ID: id}
	}
	return &u, nil
}

func (t *tx) FindUserByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range t.st.users {
		if strings.EqualFold(u.Email, email) {
			u := u
			return &u, nil
		}
	}
	return nil, nil
}

func (t *tx) UpdateUserLogin(_ context.Context, u *domain.User) error {
	existing, ok := t.st.users[u.ID]
	if !ok {
		return &domain.ErrNotFound{Resource: "user", ID: u.ID}
	}
	existing.FailedAttempts = u.FailedAttempts
	existing.LockedUntil = u.LockedUntil
	existing.LastLoginAt = u.LastLoginAt
	t.st.users[u.ID] = existing
	return nil
}

func (t *tx) DeleteUser(_ context.Context, id string) error {
	if _, ok := t.st.users[id]; !ok {
		return &domain.ErrNotFound{Resource: "user", ID: id}
	}
	delete(t.st.users, id)
	for hash, rt := range t.st.refreshTokens {
		if rt.UserID == id {
			delete(t.st.refreshTokens, hash)
		}
	}
	return nil
}

func (t *tx) StoreRefreshToken(_ context.Context, userID, tokenHash string, expiresAt time.Time) error {
	t.st.refreshTokens[tokenHash] = domain.RefreshToken{
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
	}
	return nil
}

func (t *tx) FindRefreshToken(_ context.Context, tokenHash string) (*domain.RefreshToken, error) {
	rt, ok := t.st.refreshTokens[tokenHash]
	if !ok || rt.Revoked {
		return nil, nil
	}
	return &rt, nil
}

func (t *tx) RevokeRefreshToken(_ context.Context, tokenHash string) error {
	if rt, ok := t.st.refreshTokens[tokenHash]; ok {
		rt.Revoked = true
		t.st.refreshTokens[tokenHash] = rt
	}
	return nil
}

func (t *tx) RevokeAllRefreshTokens(_ context.Context, userID string) error {
	for hash, rt := range t.st.refreshTokens {
		if rt.UserID == userID {
			rt.Revoked = true
			t.st.refreshTokens[hash] = rt
		}
	}
	return nil
}
