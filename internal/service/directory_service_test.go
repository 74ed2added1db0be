package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/boddenberg/bank-backend-go/internal/domain"
	"github.com/boddenberg/bank-backend-go/internal/infra/cache"
	"github.com/boddenberg/bank-backend-go/internal/service"

	"go.uber.org/zap"
)

type directoryFixture struct {
	*fixture
	auth      *service.AuthService
	directory *service.DirectoryService
}

func newDirectoryFixture(t *testing.T) *directoryFixture {
	t.Helper()
	f := newFixture(t, service.AccountOptions{})
	auth := newAuth(f.store)
	stats := cache.New[*domain.DashboardStats](time.Minute)
	t.Cleanup(stats.Close)
	f.accounts = service.NewAccountService(f.store, f.pub, f.metrics, zap.NewNop(), service.AccountOptions{StatsCache: stats})
	return &directoryFixture{
		fixture:   f,
		auth:      auth,
		directory: service.NewDirectoryService(f.store, auth, stats, f.metrics, zap.NewNop()),
	}
}

func (d *directoryFixture) createEmployee(t *testing.T, email, branchID string) *domain.Employee {
	t.Helper()
	emp, err := d.directory.CreateEmployee(context.Background(), &domain.CreateEmployeeRequest{
		Name:     "Grace Hopper",
		Email:    email,
		Password: "teller-pass",
		DOB:      "1980-05-05",
		Phone:    "5553334444",
		BranchID: branchID,
	})
	if err != nil {
		t.Fatalf("create employee: %v", err)
	}
	return emp
}

func TestDirectory_Branches(t *testing.T) {
	d := newDirectoryFixture(t)
	ctx := context.Background()

	branch, err := d.directory.CreateBranch(ctx, &domain.CreateBranchRequest{Name: " North ", Address: "2 North Rd"})
	if err != nil {
		t.Fatalf("create branch: %v", err)
	}
	if branch.Name != "North" {
		t.Errorf("expected trimmed name, got %q", branch.Name)
	}

	_, err = d.directory.CreateBranch(ctx, &domain.CreateBranchRequest{Name: "north", Address: "elsewhere"})
	var conflict *domain.ErrConflict
	if !errors.As(err, &conflict) {
		t.Errorf("expected ErrConflict for duplicate name, got %v", err)
	}

	branches, err := d.directory.ListBranches(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(branches) != 2 {
		t.Errorf("expected 2 branches, got %d", len(branches))
	}

	if err := d.directory.DeleteBranch(ctx, branch.ID); err != nil {
		t.Fatalf("delete empty branch: %v", err)
	}
	var notFound *domain.ErrNotFound
	if err := d.directory.DeleteBranch(ctx, branch.ID); !errors.As(err, &notFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestDirectory_DeleteBranchInUse(t *testing.T) {
	d := newDirectoryFixture(t)
	d.seedCustomer(t, "c-1")
	d.openAccount(t, "c-1", "1")

	err := d.directory.DeleteBranch(context.Background(), "br-main")
	var invalid *domain.ErrInvalidState
	if !errors.As(err, &invalid) {
		t.Errorf("expected ErrInvalidState, got %v", err)
	}
}

func TestDirectory_EmployeeLifecycle(t *testing.T) {
	d := newDirectoryFixture(t)
	ctx := context.Background()

	emp := d.createEmployee(t, "Grace@Bank.test", "br-main")
	if emp.Email != "grace@bank.test" || emp.UserID == "" {
		t.Errorf("unexpected employee %+v", emp)
	}

	login, err := d.auth.Login(ctx, &domain.LoginRequest{Email: "grace@bank.test", Password: "teller-pass"})
	if err != nil {
		t.Fatalf("employee login: %v", err)
	}
	claims, err := d.auth.ValidateAccessToken(login.Token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if p := claims.Principal(); p.Role != domain.RoleEmployee || p.EmployeeID != emp.ID || p.CustomerID != "" {
		t.Errorf("unexpected principal %+v", p)
	}

	_, err = d.directory.CreateEmployee(ctx, &domain.CreateEmployeeRequest{
		Name: "Dup", Email: "grace@bank.test", Password: "teller-pass", DOB: "1980-05-05", Phone: "5553334444", BranchID: "br-main",
	})
	var conflict *domain.ErrConflict
	if !errors.As(err, &conflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}

	_, err = d.directory.CreateEmployee(ctx, &domain.CreateEmployeeRequest{
		Name: "Lost", Email: "lost@bank.test", Password: "teller-pass", DOB: "1980-05-05", Phone: "5553334444", BranchID: "nowhere",
	})
	var notFound *domain.ErrNotFound
	if !errors.As(err, &notFound) {
		t.Errorf("expected ErrNotFound for unknown branch, got %v", err)
	}

	name := "Rear Admiral Hopper"
	updated, err := d.directory.UpdateEmployee(ctx, emp.ID, &domain.EmployeePatch{Name: &name})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != name || updated.Phone != emp.Phone {
		t.Errorf("unexpected update %+v", updated)
	}

	if err := d.directory.DeleteBranch(ctx, "br-main"); err == nil {
		t.Error("expected staffed branch delete to fail")
	}

	if err := d.directory.DeleteEmployee(ctx, emp.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := d.directory.GetEmployee(ctx, emp.ID); !errors.As(err, &notFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	var unauthorized *domain.ErrUnauthorized
	if _, err := d.auth.Login(ctx, &domain.LoginRequest{Email: "grace@bank.test", Password: "teller-pass"}); !errors.As(err, &unauthorized) {
		t.Errorf("expected login to fail after delete, got %v", err)
	}
}

func TestDirectory_DeleteCustomerCascades(t *testing.T) {
	d := newDirectoryFixture(t)
	ctx := context.Background()

	reg := register(t, d.auth, "ada@bank.test", "correct-horse")
	acc := d.openAccount(t, reg.CustomerID, "100")
	d.approvedLoan(t, acc.ID, "500")

	if err := d.directory.DeleteCustomer(ctx, reg.CustomerID); err != nil {
		t.Fatalf("delete customer: %v", err)
	}

	var notFound *domain.ErrNotFound
	if _, err := d.accounts.GetAccount(ctx, acc.ID); !errors.As(err, &notFound) {
		t.Errorf("expected account removed, got %v", err)
	}
	loans, err := d.loans.ListAll(ctx)
	if err != nil {
		t.Fatalf("list loans: %v", err)
	}
	if len(loans) != 0 {
		t.Errorf("expected loans removed, got %d", len(loans))
	}
	customers, err := d.directory.ListCustomers(ctx)
	if err != nil {
		t.Fatalf("list customers: %v", err)
	}
	if len(customers) != 0 {
		t.Errorf("expected no customers, got %d", len(customers))
	}
	if _, err := d.auth.Login(ctx, &domain.LoginRequest{Email: "ada@bank.test", Password: "correct-horse"}); err == nil {
		t.Error("expected login to fail after customer delete")
	}
	if err := d.directory.DeleteCustomer(ctx, reg.CustomerID); !errors.As(err, &notFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestDirectory_DashboardStatsCaching(t *testing.T) {
	d := newDirectoryFixture(t)
	ctx := context.Background()

	d.seedCustomer(t, "c-1")
	d.seedCustomer(t, "c-2")
	d.openAccount(t, "c-1", "1")
	blocked := d.openAccount(t, "c-2", "1")
	if _, err := d.accounts.SetStatus(ctx, blocked.ID, "BLOCKED"); err != nil {
		t.Fatalf("block: %v", err)
	}

	stats, err := d.directory.DashboardStats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	want := domain.DashboardStats{TotalCustomers: 2, ActiveCustomers: 1, TotalBranches: 1, TotalEmployees: 0}
	if *stats != want {
		t.Errorf("expected %+v, got %+v", want, *stats)
	}

	if _, err := d.directory.DashboardStats(ctx); err != nil {
		t.Fatalf("stats: %v", err)
	}
	if rate := d.metrics.Snapshot().CacheHitRate; rate != 0.5 {
		t.Errorf("expected hit rate 0.5, got %v", rate)
	}

	// Directory writes drop the cached aggregate.
	d.createEmployee(t, "grace@bank.test", "br-main")
	stats, err = d.directory.DashboardStats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalEmployees != 1 {
		t.Errorf("expected 1 employee after invalidation, got %d", stats.TotalEmployees)
	}
}

func TestDirectory_DashboardTracksAccountChanges(t *testing.T) {
	d := newDirectoryFixture(t)
	ctx := context.Background()

	d.seedCustomer(t, "c-1")
	d.seedCustomer(t, "c-2")
	acc := d.openAccount(t, "c-1", "1")

	stats, err := d.directory.DashboardStats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.ActiveCustomers != 1 {
		t.Fatalf("expected 1 active customer, got %d", stats.ActiveCustomers)
	}

	d.openAccount(t, "c-2", "1")
	stats, err = d.directory.DashboardStats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.ActiveCustomers != 2 {
		t.Errorf("expected 2 active customers after opening, got %d", stats.ActiveCustomers)
	}

	if _, err := d.accounts.SetStatus(ctx, acc.ID, "BLOCKED"); err != nil {
		t.Fatalf("block: %v", err)
	}
	stats, err = d.directory.DashboardStats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.ActiveCustomers != 1 {
		t.Errorf("expected 1 active customer after block, got %d", stats.ActiveCustomers)
	}

	active := domain.AccountActive
	if _, err := d.accounts.UpdateDetails(ctx, acc.ID, &domain.AccountPatch{Status: &active}); err != nil {
		t.Fatalf("unblock: %v", err)
	}
	stats, err = d.directory.DashboardStats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.ActiveCustomers != 2 {
		t.Errorf("expected 2 active customers after unblock, got %d", stats.ActiveCustomers)
	}
}
