package negotiation

import (
	"errors"
	"fmt"
)

var (
	ErrNegotiation      = errors.New("negotiation failed")
	ErrClosed           = errors.New("negotiation closed")
	ErrUnexpectedSignal = errors.New("unexpected signal")
	ErrTooManyPending   = errors.New("too many buffered candidates")
)

// Error records which step of the exchange failed. It matches both
// ErrNegotiation and the underlying cause with errors.Is.
type Error struct {
	Op    string
	State State
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (in %s): %v", e.Op, e.State, e.Err)
}

func (e *Error) Unwrap() []error {
	return []error{ErrNegotiation, e.Err}
}

func newError(op string, state State, err error) *Error {
	return &Error{Op: op, State: state, Err: err}
}
