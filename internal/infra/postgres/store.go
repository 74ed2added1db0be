// Package postgres implements port.Store on PostgreSQL via pgx.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/boddenberg/bank-backend-go/internal/domain"
	"github.com/boddenberg/bank-backend-go/internal/infra/resilience"
	"github.com/boddenberg/bank-backend-go/internal/port"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

//go:embed schema.sql
var schemaSQL string

// Postgres error codes the store reacts to.
const (
	codeUniqueViolation      = "23505"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeInvalidText          = "22P02"
)

// Connect opens a pool and waits until the database answers, retrying with
// backoff.
func Connect(ctx context.Context, dsn string, maxConns int, cfg resilience.Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if maxConns > 0 {
		poolCfg.MaxConns = int32(maxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := resilience.RetryWithBackoff(ctx, cfg, func() error {
		return pool.Ping(ctx)
	}); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// Migrate applies the embedded schema. Every statement is idempotent.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Store is a port.Store backed by a pgx pool. Units of work pass through a
// bulkhead and a circuit breaker; serialization failures and deadlocks are
// retried from the start of the unit of work.
type Store struct {
	pool     *pgxpool.Pool
	cb       *gobreaker.CircuitBreaker
	bulkhead *resilience.Bulkhead
	cfg      resilience.Config
	logger   *zap.Logger
}

// NewStore wraps pool.
func NewStore(pool *pgxpool.Pool, cfg resilience.Config, logger *zap.Logger) *Store {
	cfg.Retryable = retryable
	return &Store{
		pool:     pool,
		cb:       resilience.NewCircuitBreaker("postgres"),
		bulkhead: resilience.NewBulkhead(cfg.MaxConcurrency),
		cfg:      cfg,
		logger:   logger,
	}
}

// WithinTx implements port.Store.
func (s *Store) WithinTx(ctx context.Context, fn func(tx port.Tx) error) error {
	if err := s.bulkhead.Acquire(ctx); err != nil {
		return err
	}
	defer s.bulkhead.Release()

	return resilience.Guard(ctx, s.cb, s.cfg, func() error {
		err := s.runTx(ctx, fn)
		if err != nil && retryable(err) {
			s.logger.Warn("unit of work will be retried", zap.Error(err))
		}
		return err
	})
}

func (s *Store) runTx(ctx context.Context, fn func(tx port.Tx) error) error {
	dbTx, err := s.pool.Begin(ctx)
	if err != nil {
		return &beginError{err: err}
	}
	defer dbTx.Rollback(ctx)

	if err := fn(&tx{q: dbTx}); err != nil {
		return err
	}
	if err := dbTx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Ping implements port.Store.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}

type beginError struct{ err error }

func (e *beginError) Error() string { return "begin: " + e.err.Error() }
func (e *beginError) Unwrap() error { return e.err }

// retryable reports whether the whole unit of work can safely run again:
// nothing was written (begin failed) or Postgres aborted it.
func retryable(err error) bool {
	if !resilience.Transient(err) {
		return false
	}
	var be *beginError
	if errors.As(err, &be) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == codeSerializationFailure || pgErr.Code == codeDeadlockDetected
	}
	return false
}

// tx is the port.Tx view of a pgx transaction.
type tx struct {
	q pgx.Tx
}

var _ port.Tx = (*tx)(nil)

// notFoundOr maps a missing row, or an id that is not a UUID, to
// *domain.ErrNotFound.
func notFoundOr(err error, resource, id string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return &domain.ErrNotFound{Resource: resource, ID: id}
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == codeInvalidText {
		return &domain.ErrNotFound{Resource: resource, ID: id}
	}
	return err
}

func conflictOr(err error, message string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation {
		return &domain.ErrConflict{Message: message}
	}
	return err
}

func (t *tx) count(ctx context.Context, query string, args ...any) (int, error) {
	var n int
	if err := t.q.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
