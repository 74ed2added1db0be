package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/boddenberg/bank-backend-go/internal/domain"
	"github.com/boddenberg/bank-backend-go/internal/service"
)

func TestCreateAccount_OpensActiveAccount(t *testing.T) {
	f := newFixture(t, service.AccountOptions{})
	f.seedCustomer(t, "c-1")

	acc := f.openAccount(t, "c-1", "250.50")

	assertBalance(t, acc, "250.50")
	if acc.Status != domain.AccountActive {
		t.Errorf("expected ACTIVE, got %s", acc.Status)
	}
	if acc.BranchID != "br-main" || acc.Email != "c-1@bank.test" || acc.Phone != "5551234567" {
		t.Errorf("unexpected account details %+v", acc)
	}
	if n := len(f.entries(t, acc.ID)); n != 0 {
		t.Errorf("expected opening deposit not to be ledgered, got %d entries", n)
	}
}

func TestCreateAccount_LedgersOpeningDepositWhenEnabled(t *testing.T) {
	f := newFixture(t, service.AccountOptions{LedgerOpeningDeposit: true})
	f.seedCustomer(t, "c-1")

	acc := f.openAccount(t, "c-1", "100")

	txs := f.entries(t, acc.ID)
	if len(txs) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(txs))
	}
	if txs[0].Type != domain.TxDeposit || txs[0].Description != "Opening deposit" || !txs[0].Amount.Equal(dec("100")) {
		t.Errorf("unexpected opening entry %+v", txs[0])
	}

	// A zero opening balance produces no entry.
	empty := f.openAccount(t, "c-1", "0")
	if n := len(f.entries(t, empty.ID)); n != 0 {
		t.Errorf("expected no entry for zero opening deposit, got %d", n)
	}
}

func TestCreateAccount_NormalizesType(t *testing.T) {
	f := newFixture(t, service.AccountOptions{})
	f.seedCustomer(t, "c-1")

	acc, err := f.accounts.CreateAccount(context.Background(), "c-1", &domain.CreateAccountRequest{
		Name: "Rainy day", Type: " savings ", BranchName: "main", InitialDeposit: dec("5"),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if acc.Type != domain.AccountSavings {
		t.Errorf("expected SAVINGS, got %q", acc.Type)
	}
	if got := f.account(t, acc.ID); got.Type != domain.AccountSavings {
		t.Errorf("expected stored SAVINGS, got %q", got.Type)
	}
}

func TestCreateAccount_Rejections(t *testing.T) {
	f := newFixture(t, service.AccountOptions{})
	f.seedCustomer(t, "c-1")
	ctx := context.Background()

	_, err := f.accounts.CreateAccount(ctx, "c-1", &domain.CreateAccountRequest{
		Name: "X", Type: domain.AccountSavings, BranchName: "Nowhere", InitialDeposit: dec("1"),
	})
	var notFound *domain.ErrNotFound
	if !errors.As(err, &notFound) || notFound.Resource != "branch" {
		t.Errorf("expected branch ErrNotFound, got %v", err)
	}

	_, err = f.accounts.CreateAccount(ctx, "ghost", &domain.CreateAccountRequest{
		Name: "X", Type: domain.AccountSavings, BranchName: mainBranch, InitialDeposit: dec("1"),
	})
	if !errors.As(err, &notFound) || notFound.Resource != "customer" {
		t.Errorf("expected customer ErrNotFound, got %v", err)
	}

	_, err = f.accounts.CreateAccount(ctx, "c-1", &domain.CreateAccountRequest{
		Name: "X", Type: "GOLD", BranchName: mainBranch, InitialDeposit: dec("1"),
	})
	var validation *domain.ErrValidation
	if !errors.As(err, &validation) {
		t.Errorf("expected ErrValidation for unknown type, got %v", err)
	}
}

func TestWithdraw_ExactBoundary(t *testing.T) {
	f := newFixture(t, service.AccountOptions{})
	f.seedCustomer(t, "c-1")
	acc := f.openAccount(t, "c-1", "500.00")
	ctx := context.Background()

	_, err := f.accounts.Withdraw(ctx, "c-1", &domain.WithdrawRequest{AccountID: acc.ID, Amount: dec("500.01")})
	var funds *domain.ErrInsufficientFunds
	if !errors.As(err, &funds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if !funds.Available.Equal(dec("500")) || !funds.Required.Equal(dec("500.01")) {
		t.Errorf("unexpected funds error %+v", funds)
	}
	assertBalance(t, f.account(t, acc.ID), "500.00")
	if n := len(f.entries(t, acc.ID)); n != 0 {
		t.Errorf("expected no entries after refused withdrawal, got %d", n)
	}

	res, err := f.accounts.Withdraw(ctx, "c-1", &domain.WithdrawRequest{AccountID: acc.ID, Amount: dec("500.00")})
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	assertBalance(t, res.Account, "0")

	txs := f.entries(t, acc.ID)
	if len(txs) != 1 || txs[0].ID != res.TransactionID || txs[0].Type != domain.TxWithdrawal {
		t.Errorf("unexpected ledger %+v", txs)
	}
}

func TestDeposit_CreditsAndLedgers(t *testing.T) {
	f := newFixture(t, service.AccountOptions{})
	f.seedCustomer(t, "c-1")
	acc := f.openAccount(t, "c-1", "10")

	res, err := f.accounts.Deposit(context.Background(), "c-1", &domain.DepositRequest{
		AccountID: acc.ID, Amount: dec("0.01"), Kind: domain.DepositCash,
	})
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	assertBalance(t, res.Account, "10.01")

	txs := f.entries(t, acc.ID)
	if len(txs) != 1 || txs[0].Type != domain.TxDeposit || txs[0].Description != "Customer deposit" {
		t.Fatalf("unexpected ledger %+v", txs)
	}
	if kinds := f.pub.kinds(); len(kinds) != 1 || kinds[0] != domain.EventLedgerEntry {
		t.Errorf("expected one ledger event, got %v", kinds)
	}
	if got := f.metrics.Snapshot().LedgerEntries[string(domain.TxDeposit)]; got != 1 {
		t.Errorf("expected 1 deposit counted, got %d", got)
	}
}

func TestDeposit_RejectsInvalidAmounts(t *testing.T) {
	f := newFixture(t, service.AccountOptions{})
	f.seedCustomer(t, "c-1")
	acc := f.openAccount(t, "c-1", "10")

	for _, amount := range []string{"0", "-5", "0.001"} {
		_, err := f.accounts.Deposit(context.Background(), "c-1", &domain.DepositRequest{
			AccountID: acc.ID, Amount: dec(amount), Kind: domain.DepositCash,
		})
		var validation *domain.ErrValidation
		if !errors.As(err, &validation) {
			t.Errorf("amount %s: expected ErrValidation, got %v", amount, err)
		}
	}
	assertBalance(t, f.account(t, acc.ID), "10")
}

func TestMoneyMovement_BlockedAccount(t *testing.T) {
	f := newFixture(t, service.AccountOptions{})
	f.seedCustomer(t, "c-1")
	acc := f.openAccount(t, "c-1", "100")
	ctx := context.Background()

	if _, err := f.accounts.SetStatus(ctx, acc.ID, "blocked"); err != nil {
		t.Fatalf("block: %v", err)
	}

	var invalid *domain.ErrInvalidState
	_, err := f.accounts.Deposit(ctx, "c-1", &domain.DepositRequest{AccountID: acc.ID, Amount: dec("1"), Kind: domain.DepositCash})
	if !errors.As(err, &invalid) {
		t.Errorf("deposit: expected ErrInvalidState, got %v", err)
	}
	_, err = f.accounts.Withdraw(ctx, "c-1", &domain.WithdrawRequest{AccountID: acc.ID, Amount: dec("1")})
	if !errors.As(err, &invalid) {
		t.Errorf("withdraw: expected ErrInvalidState, got %v", err)
	}
	assertBalance(t, f.account(t, acc.ID), "100")

	if _, err := f.accounts.SetStatus(ctx, acc.ID, "Active"); err != nil {
		t.Fatalf("unblock: %v", err)
	}
	if _, err := f.accounts.Withdraw(ctx, "c-1", &domain.WithdrawRequest{AccountID: acc.ID, Amount: dec("1")}); err != nil {
		t.Errorf("withdraw after unblock: %v", err)
	}
}

func TestMoneyMovement_CheckOrder(t *testing.T) {
	f := newFixture(t, service.AccountOptions{})
	f.seedCustomer(t, "c-1")
	f.seedCustomer(t, "c-2")
	acc := f.openAccount(t, "c-1", "100")
	ctx := context.Background()

	if _, err := f.accounts.SetStatus(ctx, acc.ID, "BLOCKED"); err != nil {
		t.Fatalf("block: %v", err)
	}

	// A stranger learns nothing about the account state.
	_, err := f.accounts.Withdraw(ctx, "c-2", &domain.WithdrawRequest{AccountID: acc.ID, Amount: dec("1")})
	var forbidden *domain.ErrForbidden
	if !errors.As(err, &forbidden) {
		t.Errorf("expected ErrForbidden before ErrInvalidState, got %v", err)
	}

	_, err = f.accounts.Withdraw(ctx, "c-2", &domain.WithdrawRequest{AccountID: "missing", Amount: dec("1")})
	var notFound *domain.ErrNotFound
	if !errors.As(err, &notFound) {
		t.Errorf("expected ErrNotFound for unknown account, got %v", err)
	}
}

func TestDeposit_LoanRepayment(t *testing.T) {
	f := newFixture(t, service.AccountOptions{})
	f.seedCustomer(t, "c-1")
	acc := f.openAccount(t, "c-1", "0")
	loan := f.approvedLoan(t, acc.ID, "1000")
	ctx := context.Background()

	res, err := f.accounts.Deposit(ctx, "c-1", &domain.DepositRequest{
		AccountID: acc.ID, Amount: dec("400"), Kind: domain.DepositLoanRepayment,
	})
	if err != nil {
		t.Fatalf("repay: %v", err)
	}
	// The balance keeps the disbursed 1000; repayment does not touch it.
	assertBalance(t, res.Account, "1000")

	got := f.loan(t, loan.ID)
	if !got.Amount.Equal(dec("600")) || got.Status != domain.LoanApproved {
		t.Errorf("expected 600 outstanding and APPROVED, got %s %s", got.Amount, got.Status)
	}

	txs := f.entries(t, acc.ID)
	if txs[0].Type != domain.TxLoanRepayment || txs[0].Description != "Loan repayment for loan ID: "+loan.ID {
		t.Errorf("unexpected repayment entry %+v", txs[0])
	}

	// Overpaying clamps the principal at zero but ledgers the full amount.
	if _, err := f.accounts.Deposit(ctx, "c-1", &domain.DepositRequest{
		AccountID: acc.ID, Amount: dec("700"), Kind: domain.DepositLoanRepayment,
	}); err != nil {
		t.Fatalf("final repay: %v", err)
	}
	got = f.loan(t, loan.ID)
	if !got.Amount.IsZero() || got.Status != domain.LoanPaid {
		t.Errorf("expected 0 outstanding and PAID, got %s %s", got.Amount, got.Status)
	}
	if last := f.entries(t, acc.ID)[0]; !last.Amount.Equal(dec("700")) {
		t.Errorf("expected full 700 ledgered, got %s", last.Amount)
	}

	// No approved loan left.
	_, err = f.accounts.Deposit(ctx, "c-1", &domain.DepositRequest{
		AccountID: acc.ID, Amount: dec("1"), Kind: domain.DepositLoanRepayment,
	})
	var notFound *domain.ErrNotFound
	if !errors.As(err, &notFound) {
		t.Errorf("expected ErrNotFound without an approved loan, got %v", err)
	}
}

func TestDeposit_LoanRepaymentExactPrincipal(t *testing.T) {
	f := newFixture(t, service.AccountOptions{})
	f.seedCustomer(t, "c-1")
	acc := f.openAccount(t, "c-1", "0")
	loan := f.approvedLoan(t, acc.ID, "1000")

	res, err := f.accounts.Deposit(context.Background(), "c-1", &domain.DepositRequest{
		AccountID: acc.ID, Amount: dec("1000"), Kind: domain.DepositLoanRepayment,
	})
	if err != nil {
		t.Fatalf("repay: %v", err)
	}
	assertBalance(t, res.Account, "1000")

	got := f.loan(t, loan.ID)
	if !got.Amount.IsZero() || got.Status != domain.LoanPaid {
		t.Errorf("expected 0 outstanding and PAID, got %s %s", got.Amount, got.Status)
	}

	var repayments []domain.Transaction
	for _, tx := range f.entries(t, acc.ID) {
		if tx.Type == domain.TxLoanRepayment {
			repayments = append(repayments, tx)
		}
	}
	if len(repayments) != 1 {
		t.Fatalf("expected 1 repayment entry, got %d", len(repayments))
	}
	if repayments[0].ID != res.TransactionID || !repayments[0].Amount.Equal(dec("1000")) {
		t.Errorf("unexpected repayment entry %+v", repayments[0])
	}
}

func TestMoneyMovement_RoundTrip(t *testing.T) {
	tests := []struct {
		name          string
		amount        string
		withdrawFirst bool
		wantTypes     []domain.TransactionType
	}{
		{"deposit then withdraw", "99.99", false, []domain.TransactionType{domain.TxWithdrawal, domain.TxDeposit}},
		{"withdraw then deposit", "99.99", true, []domain.TransactionType{domain.TxDeposit, domain.TxWithdrawal}},
		{"whole amount", "250", false, []domain.TransactionType{domain.TxWithdrawal, domain.TxDeposit}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, service.AccountOptions{})
			f.seedCustomer(t, "c-1")
			acc := f.openAccount(t, "c-1", "250.10")
			ctx := context.Background()

			deposit := func() {
				if _, err := f.accounts.Deposit(ctx, "c-1", &domain.DepositRequest{
					AccountID: acc.ID, Amount: dec(tt.amount), Kind: domain.DepositCash,
				}); err != nil {
					t.Fatalf("deposit: %v", err)
				}
			}
			withdraw := func() {
				if _, err := f.accounts.Withdraw(ctx, "c-1", &domain.WithdrawRequest{
					AccountID: acc.ID, Amount: dec(tt.amount),
				}); err != nil {
					t.Fatalf("withdraw: %v", err)
				}
			}

			if tt.withdrawFirst {
				withdraw()
				deposit()
			} else {
				deposit()
				withdraw()
			}

			assertBalance(t, f.account(t, acc.ID), "250.10")
			txs := f.entries(t, acc.ID)
			if len(txs) != 2 {
				t.Fatalf("expected 2 entries, got %d", len(txs))
			}
			for i, want := range tt.wantTypes {
				if txs[i].Type != want || !txs[i].Amount.Equal(dec(tt.amount)) {
					t.Errorf("entry %d: expected %s of %s, got %s of %s", i, want, tt.amount, txs[i].Type, txs[i].Amount)
				}
			}
		})
	}
}

func TestListTransactions_NewestFirstAndOwnership(t *testing.T) {
	f := newFixture(t, service.AccountOptions{})
	f.seedCustomer(t, "c-1")
	f.seedCustomer(t, "c-2")
	acc := f.openAccount(t, "c-1", "100")
	ctx := context.Background()

	var ids []string
	for _, amount := range []string{"1", "2", "3"} {
		res, err := f.accounts.Deposit(ctx, "c-1", &domain.DepositRequest{AccountID: acc.ID, Amount: dec(amount), Kind: domain.DepositCash})
		if err != nil {
			t.Fatalf("deposit: %v", err)
		}
		ids = append(ids, res.TransactionID)
	}

	txs, err := f.accounts.ListTransactions(ctx, acc.ID, "c-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(txs) != 3 || txs[0].ID != ids[2] || txs[2].ID != ids[0] {
		t.Errorf("expected newest first, got %+v", txs)
	}

	_, err = f.accounts.ListTransactions(ctx, acc.ID, "c-2")
	var forbidden *domain.ErrForbidden
	if !errors.As(err, &forbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
}

func TestUpdateDetails_Partial(t *testing.T) {
	f := newFixture(t, service.AccountOptions{})
	f.seedCustomer(t, "c-1")
	acc := f.openAccount(t, "c-1", "100")
	ctx := context.Background()

	name := "Holiday fund"
	status := domain.AccountStatus("blocked")
	updated, err := f.accounts.UpdateDetails(ctx, acc.ID, &domain.AccountPatch{Name: &name, Status: &status})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != name || updated.Status != domain.AccountBlocked || updated.Type != acc.Type {
		t.Errorf("unexpected account %+v", updated)
	}
	assertBalance(t, updated, "100")

	bad := domain.AccountType("gold")
	_, err = f.accounts.UpdateDetails(ctx, acc.ID, &domain.AccountPatch{Type: &bad})
	var validation *domain.ErrValidation
	if !errors.As(err, &validation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestSetStatus_Unknown(t *testing.T) {
	f := newFixture(t, service.AccountOptions{})
	f.seedCustomer(t, "c-1")
	acc := f.openAccount(t, "c-1", "1")

	_, err := f.accounts.SetStatus(context.Background(), acc.ID, "FROZEN")
	var validation *domain.ErrValidation
	if !errors.As(err, &validation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
	_, err = f.accounts.SetStatus(context.Background(), "missing", "ACTIVE")
	var notFound *domain.ErrNotFound
	if !errors.As(err, &notFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPublishFailure_DoesNotUndoCommit(t *testing.T) {
	f := newFixture(t, service.AccountOptions{})
	f.pub.err = errors.New("broker down")
	f.seedCustomer(t, "c-1")
	acc := f.openAccount(t, "c-1", "5")

	if _, err := f.accounts.Deposit(context.Background(), "c-1", &domain.DepositRequest{
		AccountID: acc.ID, Amount: dec("5"), Kind: domain.DepositCash,
	}); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	assertBalance(t, f.account(t, acc.ID), "10")
	if got := f.metrics.Snapshot().EventPublishFails; got != 1 {
		t.Errorf("expected 1 publish failure counted, got %d", got)
	}
}

func TestWithdraw_ConcurrentNeverOverdraws(t *testing.T) {
	f := newFixture(t, service.AccountOptions{})
	f.seedCustomer(t, "c-1")
	acc := f.openAccount(t, "c-1", "500")

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.accounts.Withdraw(context.Background(), "c-1", &domain.WithdrawRequest{AccountID: acc.ID, Amount: dec("100")})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if succeeded != 5 {
		t.Errorf("expected 5 successful withdrawals, got %d", succeeded)
	}
	assertBalance(t, f.account(t, acc.ID), "0")
	if n := len(f.entries(t, acc.ID)); n != 5 {
		t.Errorf("expected 5 ledger entries, got %d", n)
	}
}
