package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Error types for consistent error handling across the bank back-end.

// ErrNotFound indicates a resource was not found.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrInvalidState indicates the resource is not in a state that allows the operation.
type ErrInvalidState struct {
	Resource string
	ID       string
	Status   string
	Message  string
}

func (e *ErrInvalidState) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s %s is %s", e.Resource, e.ID, e.Status)
}

// ErrInsufficientFunds indicates not enough balance for the operation.
type ErrInsufficientFunds struct {
	Available decimal.Decimal
	Required  decimal.Decimal
}

func (e *ErrInsufficientFunds) Error() string {
	return fmt.Sprintf("insufficient funds: available %s, required %s",
		e.Available.StringFixed(2), e.Required.StringFixed(2))
}

// ErrForbidden indicates the caller may not act on the resource.
type ErrForbidden struct {
	Action string
}

func (e *ErrForbidden) Error() string {
	return fmt.Sprintf("forbidden: %s", e.Action)
}

// ErrValidation indicates a validation error (bad input).
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrUnauthorized indicates missing or invalid credentials.
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message == "" {
		return "unauthorized"
	}
	return e.Message
}

// ErrConflict indicates a uniqueness or referential conflict.
type ErrConflict struct {
	Message string
}

func (e *ErrConflict) Error() string {
	return e.Message
}

// ErrCircuitOpen indicates the circuit breaker is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}

// IsBusinessError reports whether err is a rule violation raised by the
// domain rather than an infrastructure failure. Business errors are never
// retried and never count against a circuit breaker.
func IsBusinessError(err error) bool {
	var (
		notFound     *ErrNotFound
		invalidState *ErrInvalidState
		funds        *ErrInsufficientFunds
		forbidden    *ErrForbidden
		validation   *ErrValidation
		unauthorized *ErrUnauthorized
		conflict     *ErrConflict
	)
	return errors.As(err, &notFound) ||
		errors.As(err, &invalidState) ||
		errors.As(err, &funds) ||
		errors.As(err, &forbidden) ||
		errors.As(err, &validation) ||
		errors.As(err, &unauthorized) ||
		errors.As(err, &conflict)
}
