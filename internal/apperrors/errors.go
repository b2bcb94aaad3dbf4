package apperrors

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrConflict indicates that an open borrowing already exists for the same item and borrower.
var ErrConflict = errors.New("already borrowed")

// ErrOutOfStock indicates that no copy of the item is available.
var ErrOutOfStock = errors.New("out of stock")

// ErrState indicates an operation attempted from the wrong lifecycle state.
var ErrState = errors.New("invalid state transition")

// ErrTransient indicates a persistence failure (contention, disconnect) that callers may retry.
var ErrTransient = errors.New("transient persistence failure")

// ErrForbidden indicates that the caller may not perform the action.
var ErrForbidden = errors.New("forbidden")

// ErrInternal is returned for unexpected failures that are not the caller's fault.
var ErrInternal = errors.New("internal error")

// StateError reports the expected and actual status of a rejected transition.
type StateError struct {
	Operation string
	Expected  []string
	Actual    string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s: %s requires status %v, borrowing is %s", ErrState, e.Operation, e.Expected, e.Actual)
}

// Unwrap lets errors.Is(err, ErrState) match.
func (e *StateError) Unwrap() error { return ErrState }

// NewStateError builds a StateError for op.
func NewStateError(op string, actual fmt.Stringer, expected ...fmt.Stringer) *StateError {
	exp := make([]string, len(expected))
	for i, s := range expected {
		exp[i] = s.String()
	}
	return &StateError{Operation: op, Expected: exp, Actual: actual.String()}
}

// AppError carries an HTTP-ish status code with a message and the underlying cause.
type AppError struct {
	Code    int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *AppError) Unwrap() error { return e.Err }

// NewAppError wraps err with a code and message.
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}
