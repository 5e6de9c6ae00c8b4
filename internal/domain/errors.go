package domain

import (
	"errors"
	"fmt"
)

// ErrContention is returned when a serialization point (row lock) could not
// be acquired. Callers may retry with backoff.
var ErrContention = errors.New("contention: serialization point unavailable")

// ErrRegistrationNotFound is returned when cancelling a position that does
// not exist in the session.
var ErrRegistrationNotFound = errors.New("registration not found")

// ErrRegistrationClosed is returned when registering or cancelling against a
// session whose status does not permit it.
var ErrRegistrationClosed = errors.New("registration is closed for this session")

type StateTransitionError struct {
	From Status
	To   Status
}

func (e *StateTransitionError) Error() string {
	return fmt.Sprintf("invalid session transition %s -> %s", e.From, e.To)
}

type InsufficientBalanceError struct {
	UserID  string
	Balance int64
	Amount  int64
	Floor   int64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance for user %s: balance=%d amount=%d floor=%d",
		e.UserID, e.Balance, e.Amount, e.Floor)
}

// CapacityInvariantViolation reports corrupted roster state (duplicate or
// non-monotonic positions). It must halt the operation loudly; the roster is
// never silently renumbered to recover.
type CapacityInvariantViolation struct {
	SessionID string
	Detail    string
}

func (e *CapacityInvariantViolation) Error() string {
	return fmt.Sprintf("capacity invariant violated for session %s: %s", e.SessionID, e.Detail)
}

type SettlementInputMissingError struct {
	Field string
}

func (e *SettlementInputMissingError) Error() string {
	return fmt.Sprintf("settlement input missing: %s", e.Field)
}
