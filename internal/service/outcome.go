package service

import (
	"context"
	"errors"
	"time"

	"github.com/boddenberg/bank-backend-go/internal/domain"
	"github.com/boddenberg/bank-backend-go/internal/infra/observability"
	"github.com/boddenberg/bank-backend-go/internal/port"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// publishAll sends events after their unit of work has committed. Failures
// are logged and counted; the committed change stands.
func publishAll(ctx context.Context, pub port.EventPublisher, metrics *observability.Metrics, logger *zap.Logger, events ...domain.Event) {
	for _, ev := range events {
		if err := pub.Publish(ctx, ev); err != nil {
			metrics.IncrExternalError("events")
			logger.Warn("event publish failed",
				zap.String("event_id", ev.ID),
				zap.String("kind", string(ev.Kind)),
				zap.Error(err),
			)
		}
	}
}

// recordRejection counts business-rule refusals by kind.
func recordRejection(metrics *observability.Metrics, err error) {
	var (
		notFound     *domain.ErrNotFound
		invalidState *domain.ErrInvalidState
		funds        *domain.ErrInsufficientFunds
		forbidden    *domain.ErrForbidden
	)
	switch {
	case errors.As(err, &notFound):
		metrics.IncrRejection("not_found")
	case errors.As(err, &invalidState):
		metrics.IncrRejection("invalid_state")
	case errors.As(err, &funds):
		metrics.IncrRejection("insufficient_funds")
	case errors.As(err, &forbidden):
		metrics.IncrRejection("forbidden")
	}
}

func ledgerEvent(entry *domain.Transaction) domain.Event {
	amount := entry.Amount
	return domain.Event{
		ID:            uuid.NewString(),
		Kind:          domain.EventLedgerEntry,
		AccountID:     entry.AccountID,
		TransactionID: entry.ID,
		Type:          string(entry.Type),
		Amount:        &amount,
		OccurredAt:    entry.Timestamp,
	}
}

func loanEvent(loan *domain.Loan) domain.Event {
	amount := loan.Amount
	return domain.Event{
		ID:         uuid.NewString(),
		Kind:       domain.EventLoanStatus,
		AccountID:  loan.AccountID,
		LoanID:     loan.ID,
		Status:     string(loan.Status),
		Amount:     &amount,
		OccurredAt: loan.UpdatedAt,
	}
}

func now() time.Time {
	return time.Now().UTC()
}
