package resilience_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/boddenberg/bank-backend-go/internal/domain"
	"github.com/boddenberg/bank-backend-go/internal/infra/resilience"
)

func TestRetryWithBackoff_Success(t *testing.T) {
	cfg := resilience.Config{
		MaxRetries:     3,
		InitialBackoff: 10 * time.Millisecond,
	}

	callCount := 0
	err := resilience.RetryWithBackoff(context.Background(), cfg, func() error {
		callCount++
		return nil
	})

	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if callCount != 1 {
		t.Errorf("expected 1 call, got %d", callCount)
	}
}

func TestRetryWithBackoff_RetriesOnFailure(t *testing.T) {
	cfg := resilience.Config{
		MaxRetries:     3,
		InitialBackoff: 10 * time.Millisecond,
	}

	callCount := 0
	err := resilience.RetryWithBackoff(context.Background(), cfg, func() error {
		callCount++
		if callCount < 3 {
			return errors.New("connection reset")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if callCount != 3 {
		t.Errorf("expected 3 calls, got %d", callCount)
	}
}

func TestRetryWithBackoff_StopsOnPermanentError(t *testing.T) {
	cfg := resilience.Config{
		MaxRetries:     3,
		InitialBackoff: 10 * time.Millisecond,
		Retryable:      resilience.Transient,
	}

	callCount := 0
	err := resilience.RetryWithBackoff(context.Background(), cfg, func() error {
		callCount++
		return &domain.ErrNotFound{Resource: "account", ID: "a-1"}
	})

	var notFound *domain.ErrNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if callCount != 1 {
		t.Errorf("expected 1 call, got %d", callCount)
	}
}

func TestRetryWithBackoff_RespectsContext(t *testing.T) {
	cfg := resilience.Config{
		MaxRetries:     5,
		InitialBackoff: 1 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := resilience.RetryWithBackoff(ctx, cfg, func() error {
		return errors.New("error")
	})

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"infrastructure", errors.New("dial tcp: refused"), true},
		{"not found", &domain.ErrNotFound{Resource: "loan", ID: "l-1"}, false},
		{"insufficient funds", &domain.ErrInsufficientFunds{}, false},
		{"wrapped invalid state", errors.Join(errors.New("withdraw"), &domain.ErrInvalidState{}), false},
		{"cancelled", context.Canceled, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := resilience.Transient(tt.err); got != tt.want {
				t.Errorf("Transient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestGuard_BusinessErrorsDoNotTripBreaker(t *testing.T) {
	cb := resilience.NewCircuitBreaker("store-test")
	cfg := resilience.Config{MaxRetries: 0, InitialBackoff: time.Millisecond}

	for i := 0; i < 10; i++ {
		err := resilience.Guard(context.Background(), cb, cfg, func() error {
			return &domain.ErrInsufficientFunds{}
		})
		var funds *domain.ErrInsufficientFunds
		if !errors.As(err, &funds) {
			t.Fatalf("call %d: expected ErrInsufficientFunds, got %v", i, err)
		}
	}
}

func TestGuard_OpensOnInfrastructureFailures(t *testing.T) {
	cb := resilience.NewCircuitBreaker("store-test")
	cfg := resilience.Config{MaxRetries: 0, InitialBackoff: time.Millisecond}

	for i := 0; i < 5; i++ {
		_ = resilience.Guard(context.Background(), cb, cfg, func() error {
			return errors.New("connection refused")
		})
	}

	calls := 0
	err := resilience.Guard(context.Background(), cb, cfg, func() error {
		calls++
		return nil
	})

	var open *domain.ErrCircuitOpen
	if !errors.As(err, &open) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if open.Service != "store-test" {
		t.Errorf("expected service store-test, got %s", open.Service)
	}
	if calls != 0 {
		t.Errorf("expected fn not to run while open, ran %d times", calls)
	}
}

func TestBulkhead_AcquireRelease(t *testing.T) {
	bh := resilience.NewBulkhead(2)

	if err := bh.Acquire(context.Background()); err != nil {
		t.Fatalf("expected acquire, got %v", err)
	}
	if err := bh.Acquire(context.Background()); err != nil {
		t.Fatalf("expected acquire, got %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := bh.Acquire(ctx); err == nil {
		t.Fatal("expected timeout on third acquire")
	}

	bh.Release()

	if err := bh.Acquire(context.Background()); err != nil {
		t.Fatalf("expected acquire after release, got %v", err)
	}
}
