package ledger

import (
	"errors"
	"fmt"
)

var (
	// ErrWalletUnavailable means no signing account is bound to the
	// session. Fatal for the session; handled distinctly at the top level.
	ErrWalletUnavailable = errors.New("no signing account available")

	// ErrNotFound is returned for loans, offers and requests the ledger
	// does not know.
	ErrNotFound = errors.New("not found on ledger")

	// ErrValidation marks malformed user input rejected before any
	// network call.
	ErrValidation = errors.New("validation failed")
)

// Invalid wraps a field-level input problem in ErrValidation.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// GuardViolation means a mutating action was attempted while its
// precondition guard was false, either detected client-side before
// submission or reported as a ledger revert.
type GuardViolation struct {
	Action string
	Reason string
}

func (e *GuardViolation) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s: precondition not met", e.Action)
	}
	return fmt.Sprintf("%s: %s", e.Action, e.Reason)
}

// TransportError wraps node/network failures. Reads wrapped in it may be
// retried; writes surface it immediately.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("ledger %s: %v", e.Op, e.Err) }
func (e *TransportError) Unwrap() error { return e.Err }

// IsTransient reports whether err is a TransportError, i.e. worth a
// bounded read retry.
func IsTransient(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
