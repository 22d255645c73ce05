package model

import (
	"errors"
	"fmt"
)

// Sentinel errors for the runtime's failure taxonomy. The typed errors
// below unwrap to these, so callers can branch with errors.Is and still
// recover detail with errors.As.
var (
	ErrUnknownType    = errors.New("unknown type")
	ErrUnknownField   = errors.New("unknown field")
	ErrStaleElement   = errors.New("stale element")
	ErrStructure      = errors.New("structural invariant violated")
	ErrCardinality    = errors.New("cardinality violated")
	ErrAmbiguous      = errors.New("ambiguous result")
	ErrDangling       = errors.New("dangling reference")
	ErrUnknownLiteral = errors.New("unknown enumeration literal")
	ErrReadOnly       = errors.New("relation is read-only")
	ErrFrozen         = errors.New("registry is frozen")

	// ErrDeprecatedAccess is diagnostic only: deprecated accesses go
	// through, and the error travels on the log entry, never up the
	// call stack.
	ErrDeprecatedAccess = errors.New("deprecated field accessed")
)

// UnknownTypeError reports a (namespace, tag, version) combination with no
// registered binding.
type UnknownTypeError struct {
	NS      string
	Tag     string
	Version string
}

func (e *UnknownTypeError) Error() string {
	if e.Version == "" {
		return fmt.Sprintf("unknown type %q in %s", e.Tag, e.NS)
	}
	return fmt.Sprintf("unknown type %q in %s at version %s", e.Tag, e.NS, e.Version)
}

func (e *UnknownTypeError) Unwrap() error { return ErrUnknownType }

// CardinalityError reports a write rejected because it would violate a
// relation's declared bounds. Nothing was mutated.
type CardinalityError struct {
	Field string
	Limit string
}

func (e *CardinalityError) Error() string {
	return fmt.Sprintf("cardinality violated on %q: %s", e.Field, e.Limit)
}

func (e *CardinalityError) Unwrap() error { return ErrCardinality }

// AmbiguousResultError reports a must-match-exactly-one access that
// matched zero or several members.
type AmbiguousResultError struct {
	Field string
	Count int
}

func (e *AmbiguousResultError) Error() string {
	return fmt.Sprintf("expected exactly one result for %q, got %d", e.Field, e.Count)
}

func (e *AmbiguousResultError) Unwrap() error { return ErrAmbiguous }

// DanglingReferenceError reports a stored reference whose target no longer
// exists in the tree. It surfaces only when the dangling member itself is
// dereferenced, never when the containing collection is read.
type DanglingReferenceError struct {
	ID string
}

func (e *DanglingReferenceError) Error() string {
	return fmt.Sprintf("dangling reference to %q", e.ID)
}

func (e *DanglingReferenceError) Unwrap() error { return ErrDangling }

// UnknownLiteralError reports an attribute value outside an enumeration's
// literal set while the binding is in strict mode.
type UnknownLiteralError struct {
	Field   string
	Literal string
}

func (e *UnknownLiteralError) Error() string {
	return fmt.Sprintf("unknown literal %q for %q", e.Literal, e.Field)
}

func (e *UnknownLiteralError) Unwrap() error { return ErrUnknownLiteral }

// DeprecatedAccessError identifies an access through a retired field
// name. It never fails the access itself; Deprecated bindings attach it
// to their warning log entry.
type DeprecatedAccessError struct {
	Field string
	Use   string
}

func (e *DeprecatedAccessError) Error() string {
	return fmt.Sprintf("deprecated field %q accessed, use %q", e.Field, e.Use)
}

func (e *DeprecatedAccessError) Unwrap() error { return ErrDeprecatedAccess }
