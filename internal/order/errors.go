package order

import (
	"errors"
	"fmt"
)

// Indexer errors.
var (
	// ErrInvalidReference is returned when a ref was never issued or has been released.
	ErrInvalidReference = errors.New("order: invalid reference")

	// ErrOrderingViolation is returned when Between is asked for a key outside
	// valid bounds (equal or inverted refs).
	ErrOrderingViolation = errors.New("order: ordering violation")
)

// Error carries the refs involved in a failed indexer operation.
type Error struct {
	Op    string
	Refs  []Ref
	Cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %v: %v", e.Op, e.Refs, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func invalidRef(op string, refs ...Ref) error {
	return &Error{Op: op, Refs: refs, Cause: ErrInvalidReference}
}

func orderingViolation(op string, refs ...Ref) error {
	return &Error{Op: op, Refs: refs, Cause: ErrOrderingViolation}
}
