package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/boddenberg/bank-backend-go/internal/domain"
	"github.com/boddenberg/bank-backend-go/internal/infra/memory"
	"github.com/boddenberg/bank-backend-go/internal/service"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret-with-enough-entropy"

func newAuth(store *memory.Store) *service.AuthService {
	return service.NewAuthService(store, testSecret, 15*time.Minute, time.Hour, zap.NewNop()).
		WithHashCost(bcrypt.MinCost)
}

func register(t *testing.T, auth *service.AuthService, email, password string) *domain.RegisterResponse {
	t.Helper()
	res, err := auth.Register(context.Background(), &domain.RegisterRequest{
		Name:     "Ada Lovelace",
		Email:    email,
		Password: password,
		DOB:      "1990-12-10",
		Phone:    "5550001111",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return res
}

func TestAuth_RegisterLoginValidate(t *testing.T) {
	auth := newAuth(memory.New())
	ctx := context.Background()

	reg := register(t, auth, "  Ada@Bank.TEST ", "correct-horse")
	if reg.UserID == "" || reg.CustomerID == "" {
		t.Fatalf("expected ids, got %+v", reg)
	}

	login, err := auth.Login(ctx, &domain.LoginRequest{Email: "ada@bank.test", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if login.Type != "Bearer" || login.Username != "ada@bank.test" || login.ExpiresIn != 900 {
		t.Errorf("unexpected login response %+v", login)
	}
	if len(login.Roles) != 1 || login.Roles[0] != "ROLE_USER" {
		t.Errorf("unexpected roles %v", login.Roles)
	}

	claims, err := auth.ValidateAccessToken(login.Token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	p := claims.Principal()
	if p.UserID != reg.UserID || p.CustomerID != reg.CustomerID || p.Role != domain.RoleUser || p.EmployeeID != "" {
		t.Errorf("unexpected principal %+v", p)
	}
}

func TestAuth_RegisterRejections(t *testing.T) {
	auth := newAuth(memory.New())
	register(t, auth, "ada@bank.test", "correct-horse")

	_, err := auth.Register(context.Background(), &domain.RegisterRequest{
		Name: "Other", Email: "ADA@bank.test", Password: "another-pass", DOB: "1985-01-01", Phone: "5550002222",
	})
	var conflict *domain.ErrConflict
	if !errors.As(err, &conflict) {
		t.Errorf("expected ErrConflict for duplicate email, got %v", err)
	}

	bad := []domain.RegisterRequest{
		{Name: "A", Email: "a@bank.test", Password: "short", DOB: "1985-01-01", Phone: "5550002222"},
		{Name: "A", Email: "not-an-email", Password: "long-enough", DOB: "1985-01-01", Phone: "5550002222"},
		{Name: "A", Email: "a@bank.test", Password: "long-enough", DOB: "01/01/1985", Phone: "5550002222"},
		{Name: "A", Email: "a@bank.test", Password: "long-enough", DOB: "2999-01-01", Phone: "5550002222"},
		{Name: "A", Email: "a@bank.test", Password: "long-enough", DOB: "1985-01-01", Phone: "555-000"},
		{Name: " ", Email: "a@bank.test", Password: "long-enough", DOB: "1985-01-01", Phone: "5550002222"},
	}
	for i := range bad {
		_, err := auth.Register(context.Background(), &bad[i])
		var validation *domain.ErrValidation
		if !errors.As(err, &validation) {
			t.Errorf("case %d: expected ErrValidation, got %v", i, err)
		}
	}
}

func TestAuth_LockoutAfterFailedAttempts(t *testing.T) {
	auth := newAuth(memory.New())
	ctx := context.Background()
	register(t, auth, "ada@bank.test", "correct-horse")

	var err error
	for i := 0; i < 5; i++ {
		_, err = auth.Login(ctx, &domain.LoginRequest{Email: "ada@bank.test", Password: "wrong-password"})
		var unauthorized *domain.ErrUnauthorized
		if !errors.As(err, &unauthorized) {
			t.Fatalf("attempt %d: expected ErrUnauthorized, got %v", i, err)
		}
	}
	if !strings.Contains(err.Error(), "locked") {
		t.Errorf("expected lock message on fifth failure, got %q", err.Error())
	}

	// The right password does not help while locked.
	_, err = auth.Login(ctx, &domain.LoginRequest{Email: "ada@bank.test", Password: "correct-horse"})
	if err == nil || !strings.Contains(err.Error(), "temporarily locked") {
		t.Errorf("expected temporary lock, got %v", err)
	}
}

func TestAuth_UnknownEmail(t *testing.T) {
	auth := newAuth(memory.New())

	_, err := auth.Login(context.Background(), &domain.LoginRequest{Email: "ghost@bank.test", Password: "whatever1"})
	var unauthorized *domain.ErrUnauthorized
	if !errors.As(err, &unauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}

func TestAuth_RefreshRotationAndLogout(t *testing.T) {
	auth := newAuth(memory.New())
	ctx := context.Background()
	reg := register(t, auth, "ada@bank.test", "correct-horse")

	login, err := auth.Login(ctx, &domain.LoginRequest{Email: "ada@bank.test", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	rotated, err := auth.Refresh(ctx, &domain.RefreshRequest{RefreshToken: login.RefreshToken})
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if rotated.RefreshToken == login.RefreshToken {
		t.Error("expected a new refresh token")
	}

	var unauthorized *domain.ErrUnauthorized
	if _, err := auth.Refresh(ctx, &domain.RefreshRequest{RefreshToken: login.RefreshToken}); !errors.As(err, &unauthorized) {
		t.Errorf("expected reused token to be rejected, got %v", err)
	}

	if err := auth.Logout(ctx, reg.UserID); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := auth.Refresh(ctx, &domain.RefreshRequest{RefreshToken: rotated.RefreshToken}); !errors.As(err, &unauthorized) {
		t.Errorf("expected refresh after logout to be rejected, got %v", err)
	}
}

func TestAuth_ValidateAccessToken_Rejects(t *testing.T) {
	store := memory.New()
	auth := newAuth(store)
	register(t, auth, "ada@bank.test", "correct-horse")

	login, err := auth.Login(context.Background(), &domain.LoginRequest{Email: "ada@bank.test", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	other := service.NewAuthService(store, "some-other-secret", time.Minute, time.Hour, zap.NewNop())
	for name, token := range map[string]string{
		"wrong secret":  login.Token,
		"refresh token": login.RefreshToken,
		"garbage":       "not.a.jwt",
	} {
		validator := auth
		if name == "wrong secret" {
			validator = other
		}
		if _, err := validator.ValidateAccessToken(token); err == nil {
			t.Errorf("%s: expected validation failure", name)
		}
	}
}
