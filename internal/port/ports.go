// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"

	"github.com/boddenberg/bank-backend-go/internal/domain"
)

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}

// Store is the relational store. All reads and writes go through a unit of
// work so that an operation either commits entirely or leaves no trace.
type Store interface {
	// WithinTx runs fn inside one atomic unit of work. If fn returns an
	// error nothing it wrote is kept and the error is returned unchanged.
	WithinTx(ctx context.Context, fn func(tx Tx) error) error

	// Ping checks that the store is reachable.
	Ping(ctx context.Context) error
}

// Tx is the set of repositories available inside a unit of work.
// Get* methods return *domain.ErrNotFound for a missing row; Find* methods
// return (nil, nil).
type Tx interface {
	AccountRepository
	LoanRepository
	LedgerRepository
	CustomerRepository
	BranchRepository
	EmployeeRepository
	UserRepository
}

// EventPublisher emits domain events after a unit of work commits.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event) error
}
