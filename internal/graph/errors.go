package graph

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotInitialized indicates a store operation before Initialize.
	ErrNotInitialized = errors.New("graph store not initialized")

	// ErrInvalidInput indicates invalid parameters to a store operation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrTimeout indicates a caller-supplied deadline expired during a store
	// call. Surfaced distinctly from PersistenceError so callers can choose
	// to retry. This package never retries automatically.
	ErrTimeout = errors.New("operation timed out")
)

// PersistenceError wraps a backend write failure with the originating
// operation name. It is fatal for the calling pipeline and always propagated.
type PersistenceError struct {
	// Op names the store operation that failed (e.g. "SaveEntity").
	Op string

	// Err is the underlying backend error, nil when the backend simply
	// returned no identity.
	Err error
}

func (e *PersistenceError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: backend returned no identity", e.Op)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// WrapOp classifies a backend error for the given operation: context deadline
// and cancellation map to ErrTimeout, everything else becomes a
// PersistenceError. Returns nil for a nil error.
func WrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", op, ErrTimeout)
	}
	return &PersistenceError{Op: op, Err: err}
}
