package models

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across aggregates. Individual packages may
// define narrower sentinels of their own (e.g. ledger.ErrInsufficientStock)
// when an error belongs to one aggregate's repository rather than here.
var (
	ErrNotFound            = errors.New("not found")
	ErrOptimisticLock      = errors.New("optimistic lock failure: version mismatch")
	ErrIdempotencyMismatch = errors.New("idempotency key exists with different request hash")
	ErrInvalidTransition   = errors.New("invalid state transition")
	ErrValidation          = errors.New("validation failed")
)

// ErrorKind classifies a ServiceError for transport-layer mapping (HTTP
// status code, gRPC status code) without each handler re-deriving the
// classification from the underlying sentinel.
type ErrorKind string

const (
	KindValidation        ErrorKind = "validation"
	KindNotFound          ErrorKind = "not_found"
	KindInvalidOperation  ErrorKind = "invalid_operation"
	KindInsufficientStock ErrorKind = "insufficient_stock"
	KindConflict          ErrorKind = "conflict"
	KindInvariant         ErrorKind = "invariant_violation"
	KindPaymentFailed     ErrorKind = "payment_failed"
	KindUnavailable       ErrorKind = "unavailable"
	KindTimeout           ErrorKind = "timeout"
	KindUnauthorized      ErrorKind = "unauthorized"
	KindForbidden         ErrorKind = "forbidden"
	KindInternal          ErrorKind = "internal"
)

// ServiceError is the single error type returned across the command
// layer. It carries enough structure for the HTTP layer to have one
// mapping function (statusForKind), instead of every handler re-switching
// on raw sentinel values.
type ServiceError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ServiceError) Unwrap() error { return e.Err }

// NewServiceError builds a ServiceError of the given kind.
func NewServiceError(kind ErrorKind, message string, cause error) *ServiceError {
	return &ServiceError{Kind: kind, Message: message, Err: cause}
}

// AsServiceError extracts a *ServiceError, synthesizing an internal-kind
// wrapper for errors that never went through NewServiceError.
func AsServiceError(err error) *ServiceError {
	if err == nil {
		return nil
	}
	var se *ServiceError
	if errors.As(err, &se) {
		return se
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return NewServiceError(KindNotFound, err.Error(), err)
	case errors.Is(err, ErrOptimisticLock):
		return NewServiceError(KindConflict, err.Error(), err)
	case errors.Is(err, ErrIdempotencyMismatch):
		return NewServiceError(KindConflict, err.Error(), err)
	case errors.Is(err, ErrValidation):
		return NewServiceError(KindValidation, err.Error(), err)
	case errors.Is(err, ErrInvalidTransition):
		return NewServiceError(KindInvariant, err.Error(), err)
	default:
		return NewServiceError(KindInternal, err.Error(), err)
	}
}
