package attendance

import (
	"errors"
	"fmt"
)

var (
	// ErrNoMatch means the probe did not resolve to an enrolled employee.
	// Callers map it to "identification failed"; it is safe to retry.
	ErrNoMatch = errors.New("face not recognized")

	// ErrPairingViolation is matched by every *PairingViolation.
	ErrPairingViolation = errors.New("pairing violation")

	// ErrPersistence is matched by every *PersistenceError.
	ErrPersistence = errors.New("persistence failure")

	// ErrEmployeeNotFound is returned for operations on an unknown employee ID.
	ErrEmployeeNotFound = errors.New("employee not found")

	// ErrInvalidEventType is returned for an event type other than check-in or check-out.
	ErrInvalidEventType = errors.New("invalid event type")
)

// ViolationKind identifies which pairing rule rejected an event.
type ViolationKind string

const (
	KindAlreadyOpen   ViolationKind = "already_open"
	KindNoOpenSession ViolationKind = "no_open_session"
	KindTooSoon       ViolationKind = "too_soon"
)

// Reasons reported to clients for each rejection.
const (
	ReasonAlreadyOpen     = "already checked in, must check out first"
	ReasonCheckInTooSoon  = "rate limited, wait before re-checking-in"
	ReasonNoRecentCheckIn = "must check in before checking out"
	ReasonNoOpenSession   = "no open session to close"
	ReasonCheckOutTooSoon = "rate limited, wait before re-checking-out"
)

// PairingViolation is a rejected check-in or check-out.
type PairingViolation struct {
	Kind   ViolationKind
	Reason string
}

func (e *PairingViolation) Error() string {
	return e.Reason
}

func (e *PairingViolation) Is(target error) bool {
	return target == ErrPairingViolation
}

func violation(kind ViolationKind, reason string) *PairingViolation {
	return &PairingViolation{Kind: kind, Reason: reason}
}

// PersistenceError wraps a storage failure during an attendance operation.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() []error {
	return []error{ErrPersistence, e.Err}
}

func persistence(op string, err error) error {
	return &PersistenceError{Op: op, Err: err}
}
