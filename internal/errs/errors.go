package errs

import (
	"context"
	"errors"
	"fmt"
)

type Error string

func (e Error) Error() string { return string(e) }

const (
	ErrInvalidMessage = Error("invalid message")
	ErrNotFound       = Error("message not found")
	ErrForbidden      = Error("forbidden")
	ErrInvalidQuery   = Error("invalid query")
)

// InfrastructureError wraps a failure of the backing store (timeout, disconnect,
// driver error). Callers may retry it; the core never does.
type InfrastructureError struct {
	Op  string
	Err error
}

func (e *InfrastructureError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *InfrastructureError) Unwrap() error { return e.Err }

// Infra wraps err as an InfrastructureError. Domain errors pass through untouched.
func Infra(op string, err error) error {
	if err == nil {
		return nil
	}
	var domain Error
	if errors.As(err, &domain) {
		return err
	}
	var infra *InfrastructureError
	if errors.As(err, &infra) {
		return err
	}
	return &InfrastructureError{Op: op, Err: err}
}

// IsRetryable reports whether err came from the infrastructure rather than the input.
func IsRetryable(err error) bool {
	var infra *InfrastructureError
	if errors.As(err, &infra) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

func InvalidMessage(detail string) error {
	return fmt.Errorf("%w: %s", ErrInvalidMessage, detail)
}

func InvalidQuery(detail string) error {
	return fmt.Errorf("%w: %s", ErrInvalidQuery, detail)
}
