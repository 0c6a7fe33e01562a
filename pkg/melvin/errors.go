// Package melvin contains the shared data model for the Melvin graph
// reasoning engine: nodes, edges, paths, the parameter genome, spaced
// repetition state, metrics snapshots, and cross-modal bindings.
package melvin

import (
	"errors"
	"fmt"
)

// Kind is the closed set of error categories a Melvin operation can fail
// with. Callers switch on Kind rather than comparing sentinel values so
// that wrapping with additional context never breaks error handling.
type Kind int

const (
	// KindInvalidInput covers malformed arguments rejected before any
	// mutation is attempted.
	KindInvalidInput Kind = iota
	// KindUnknownNode is returned when an id does not resolve to a live
	// node in the store.
	KindUnknownNode
	// KindTimeout is returned when a call's wall-clock deadline expired;
	// it is locally recovered by returning a partial result.
	KindTimeout
	// KindEnergyBudgetExhausted is returned when the emergent-dynamics
	// energy budget refuses a creation; it is locally recovered.
	KindEnergyBudgetExhausted
	// KindParseError carries a line number and reason from the teaching
	// grammar parser.
	KindParseError
	// KindVerificationFailure carries the pass-rate of a failed teaching
	// verification pass.
	KindVerificationFailure
	// KindSnapshotCorrupt is surfaced to the caller, and is fatal when it
	// occurs during load prior to any mutation.
	KindSnapshotCorrupt
	// KindIOError wraps a filesystem or network failure.
	KindIOError
	// KindContradiction marks an edge whose contradiction score blocked
	// an operation (e.g. emission).
	KindContradiction
	// KindNotFound is returned by lookups that found nothing; it is
	// locally recovered as an empty result.
	KindNotFound
)

// String renders the error kind the way it appears in logs and metrics
// rows.
func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindUnknownNode:
		return "unknown_node"
	case KindTimeout:
		return "timeout"
	case KindEnergyBudgetExhausted:
		return "energy_budget_exhausted"
	case KindParseError:
		return "parse_error"
	case KindVerificationFailure:
		return "verification_failure"
	case KindSnapshotCorrupt:
		return "snapshot_corrupt"
	case KindIOError:
		return "io_error"
	case KindContradiction:
		return "contradiction"
	case KindNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Error is the error type every fallible Melvin operation returns. Op
// names the failing operation ("graphstore.UpsertEdge"); Err, when
// non-nil, is the wrapped underlying cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error

	// Line is set by KindParseError.
	Line int
	// PassRate is set by KindVerificationFailure.
	PassRate float64
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

// Unwrap exposes the wrapped cause for errors.Is/As.
func (e *Error) Unwrap() error { return e.Err }

// NewError builds an *Error with no wrapped cause.
func NewError(op string, kind Kind) *Error {
	return &Error{Op: op, Kind: kind}
}

// Wrap builds an *Error wrapping err.
func Wrap(op string, kind Kind, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// ParseErrorAt builds a KindParseError at the given line.
func ParseErrorAt(op string, line int, reason string) *Error {
	return &Error{Op: op, Kind: KindParseError, Err: fmt.Errorf("%s", reason), Line: line}
}

// VerificationFailureAt builds a KindVerificationFailure carrying the
// observed pass rate.
func VerificationFailureAt(op string, passRate float64) *Error {
	return &Error{Op: op, Kind: KindVerificationFailure, PassRate: passRate}
}

// IsKind reports whether err is, or wraps, a *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}
