package catalog

import (
	"errors"
	"fmt"
)

// Sentinel error kinds. Handlers map them to HTTP statuses.
var (
	ErrValidation      = errors.New("validation_error")
	ErrPolicyViolation = errors.New("policy_violation")
	ErrConflict        = errors.New("conflict")
	ErrNotFound        = errors.New("not_found")
	ErrForbidden       = errors.New("forbidden")
	ErrUnauthenticated = errors.New("unauthenticated")
)

// OpError is a typed catalog error with a stable Op + Kind contract.
// Msg is user-facing; it never carries internal details.
type OpError struct {
	Op   string
	Kind error
	Msg  string
}

func (e OpError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %s", e.Op, e.Kind, e.Msg)
}

func (e OpError) Unwrap() error { return e.Kind }

// Message returns the user-facing part of err, or "" when err is not an OpError.
func Message(err error) string {
	var oe OpError
	if errors.As(err, &oe) {
		return oe.Msg
	}
	return ""
}

func invalid(op, msg string) error { return OpError{Op: op, Kind: ErrValidation, Msg: msg} }

func conflict(op, msg string) error { return OpError{Op: op, Kind: ErrConflict, Msg: msg} }

func notFound(op, resource string) error {
	return OpError{Op: op, Kind: ErrNotFound, Msg: resource + " not found"}
}

// IsValidation reports whether err represents ErrValidation.
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

// IsPolicyViolation reports whether err represents ErrPolicyViolation.
func IsPolicyViolation(err error) bool { return errors.Is(err, ErrPolicyViolation) }

// IsConflict reports whether err represents ErrConflict.
func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }

// IsNotFound reports whether err represents ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsForbidden reports whether err represents ErrForbidden.
func IsForbidden(err error) bool { return errors.Is(err, ErrForbidden) }

// IsUnauthenticated reports whether err represents ErrUnauthenticated.
func IsUnauthenticated(err error) bool { return errors.Is(err, ErrUnauthenticated) }
