package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Match them with errors.Is.
var (
	ErrValidation          = errors.New("validation error")
	ErrNotFound            = errors.New("not found")
	ErrInvalidOperation    = errors.New("invalid operation")
	ErrExternalUnavailable = errors.New("external service unavailable")
	ErrPersistence         = errors.New("persistence error")
)

// Error carries the failing operation and a human readable message
// next to one of the kinds above.
type Error struct {
	Kind error
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Kind.Error()
	}
	if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	if e.Op != "" {
		return e.Op + ": " + msg
	}
	return msg
}

// Is matches the kind so callers can test errors.Is(err, ErrNotFound)
func (e *Error) Is(target error) bool {
	return e.Kind == target
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewValidationError reports input the caller must correct
func NewValidationError(op, format string, args ...interface{}) error {
	return &Error{Kind: ErrValidation, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// NewNotFoundError reports a missing entity
func NewNotFoundError(op, format string, args ...interface{}) error {
	return &Error{Kind: ErrNotFound, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// NewInvalidOperationError reports a request that would break ledger rules
func NewInvalidOperationError(op, format string, args ...interface{}) error {
	return &Error{Kind: ErrInvalidOperation, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// NewUnavailableError wraps a failing external dependency
func NewUnavailableError(op string, err error) error {
	return &Error{Kind: ErrExternalUnavailable, Op: op, Err: err}
}

// NewPersistenceError wraps a store failure. Errors that already carry
// a kind are returned unchanged.
func NewPersistenceError(op string, err error) error {
	if err == nil {
		return nil
	}
	var de *Error
	if errors.As(err, &de) {
		return err
	}
	return &Error{Kind: ErrPersistence, Op: op, Err: err}
}

// KindOf returns the kind of err, or nil when it has none
func KindOf(err error) error {
	for _, kind := range []error{ErrValidation, ErrNotFound, ErrInvalidOperation, ErrExternalUnavailable, ErrPersistence} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
