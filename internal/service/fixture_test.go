package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/boddenberg/bank-backend-go/internal/domain"
	"github.com/boddenberg/bank-backend-go/internal/infra/memory"
	"github.com/boddenberg/bank-backend-go/internal/infra/observability"
	"github.com/boddenberg/bank-backend-go/internal/port"
	"github.com/boddenberg/bank-backend-go/internal/service"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// --- Mocks ---

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) kinds() []domain.EventKind {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.EventKind, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Kind
	}
	return out
}

// --- Fixture ---

const mainBranch = "Main"

type fixture struct {
	store    *memory.Store
	pub      *recordingPublisher
	metrics  *observability.Metrics
	accounts *service.AccountService
	loans    *service.LoanService
}

func newFixture(t *testing.T, opts service.AccountOptions) *fixture {
	t.Helper()
	f := &fixture{
		store:   memory.New(),
		pub:     &recordingPublisher{},
		metrics: observability.NewMetrics(),
	}
	logger := zap.NewNop()
	f.accounts = service.NewAccountService(f.store, f.pub, f.metrics, logger, opts)
	f.loans = service.NewLoanService(f.store, f.pub, f.metrics, logger)

	f.mustTx(t, func(tx port.Tx) error {
		return tx.InsertBranch(context.Background(), &domain.Branch{ID: "br-main", Name: mainBranch, Address: "1 Main St"})
	})
	return f
}

func (f *fixture) mustTx(t *testing.T, fn func(tx port.Tx) error) {
	t.Helper()
	if err := f.store.WithinTx(context.Background(), fn); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func (f *fixture) seedCustomer(t *testing.T, id string) {
	t.Helper()
	f.mustTx(t, func(tx port.Tx) error {
		return tx.InsertCustomer(context.Background(), &domain.Customer{
			ID:        id,
			Name:      "Customer " + id,
			Email:     id + "@bank.test",
			DOB:       time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC),
			Phone:     "5551234567",
			CreatedAt: time.Now(),
		})
	})
}

func (f *fixture) openAccount(t *testing.T, customerID, initial string) *domain.Account {
	t.Helper()
	acc, err := f.accounts.CreateAccount(context.Background(), customerID, &domain.CreateAccountRequest{
		Name:           "Everyday",
		Type:           domain.AccountChecking,
		BranchName:     mainBranch,
		InitialDeposit: dec(initial),
	})
	if err != nil {
		t.Fatalf("open account: %v", err)
	}
	return acc
}

func (f *fixture) account(t *testing.T, id string) *domain.Account {
	t.Helper()
	acc, err := f.accounts.GetAccount(context.Background(), id)
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	return acc
}

func (f *fixture) entries(t *testing.T, accountID string) []domain.Transaction {
	t.Helper()
	txs, err := f.accounts.ListTransactions(context.Background(), accountID, "")
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	return txs
}

func (f *fixture) approvedLoan(t *testing.T, accountID, amount string) *domain.Loan {
	t.Helper()
	ctx := context.Background()
	loan, err := f.loans.Apply(ctx, "", &domain.LoanApplication{AccountID: accountID, Type: "personal", Amount: dec(amount)})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	loan, err = f.loans.SetStatus(ctx, loan.ID, string(domain.LoanApproved))
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	return loan
}

func (f *fixture) loan(t *testing.T, id string) domain.Loan {
	t.Helper()
	loans, err := f.loans.ListAll(context.Background())
	if err != nil {
		t.Fatalf("list loans: %v", err)
	}
	for _, l := range loans {
		if l.ID == id {
			return l
		}
	}
	t.Fatalf("loan %s not found", id)
	return domain.Loan{}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertBalance(t *testing.T, acc *domain.Account, want string) {
	t.Helper()
	if !acc.Balance.Equal(dec(want)) {
		t.Errorf("expected balance %s, got %s", want, acc.Balance.StringFixed(2))
	}
}
