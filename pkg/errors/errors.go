// Package errors provides structured error handling for the Loom engine.
//
// The taxonomy distinguishes three failure classes:
//
//   - ContractViolationError: programmer error (arity mismatch, operating
//     on a defunct element). Fails fast; continuing would corrupt tree
//     invariants.
//   - CycleError: the paint re-entrancy guard tripped. Fails fast with
//     the offending element id.
//   - PhaseError: one element's build/layout/paint failed. Recoverable;
//     the pipeline substitutes an error indicator and the frame continues.
package errors

import (
	"fmt"
	"time"
)

// Kind identifies the category of an error.
type Kind int

const (
	// KindUnknown indicates an error of unknown type.
	KindUnknown Kind = iota
	// KindContract indicates a violated structural contract.
	KindContract
	// KindCycle indicates a paint traversal cycle.
	KindCycle
	// KindPhase indicates a per-element phase failure.
	KindPhase
)

func (k Kind) String() string {
	switch k {
	case KindContract:
		return "contract"
	case KindCycle:
		return "cycle"
	case KindPhase:
		return "phase"
	default:
		return "unknown"
	}
}

// ContractViolationError reports a broken structural contract, such as an
// arity mismatch at attach time or a mutation of a defunct element.
type ContractViolationError struct {
	// Op is the attempted operation (e.g. "core.Tree.Attach").
	Op string
	// Element is the id of the element involved, 0 if not applicable.
	Element int
	// Arity is the declared arity of the render object, if relevant.
	Arity string
	// Detail describes the violation.
	Detail string
}

func (e *ContractViolationError) Error() string {
	if e.Arity != "" {
		return fmt.Sprintf("%s: contract violation on element %d (arity %s): %s", e.Op, e.Element, e.Arity, e.Detail)
	}
	if e.Element != 0 {
		return fmt.Sprintf("%s: contract violation on element %d: %s", e.Op, e.Element, e.Detail)
	}
	return fmt.Sprintf("%s: contract violation: %s", e.Op, e.Detail)
}

// Kind returns KindContract.
func (e *ContractViolationError) Kind() Kind { return KindContract }

// CycleError reports that a paint traversal re-entered an element already
// being painted, which would otherwise recurse until stack exhaustion.
type CycleError struct {
	// Element is the id that was re-entered.
	Element int
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("paint cycle detected at element %d", e.Element)
}

// Kind returns KindCycle.
func (e *CycleError) Kind() Kind { return KindCycle }

// PhaseError reports a failure confined to one element during a pipeline
// phase. It is caught at the per-element boundary and never propagates
// past it.
type PhaseError struct {
	// Phase is the pipeline phase: "build", "layout", or "paint".
	Phase string
	// Element is the id of the failing element.
	Element int
	// Recovered is the panic value, nil for regular errors.
	Recovered any
	// Err is the underlying error, nil for panics.
	Err error
	// StackTrace contains the call stack at the time of the failure.
	StackTrace string
	// Timestamp is when the failure occurred.
	Timestamp time.Time
}

func (e *PhaseError) Error() string {
	if e.Recovered != nil {
		return fmt.Sprintf("panic in %s of element %d: %v", e.Phase, e.Element, e.Recovered)
	}
	return fmt.Sprintf("%s failed for element %d: %v", e.Phase, e.Element, e.Err)
}

func (e *PhaseError) Unwrap() error {
	return e.Err
}

// Kind returns KindPhase.
func (e *PhaseError) Kind() Kind { return KindPhase }

// Handler receives recoverable errors reported by the engine.
type Handler interface {
	// HandlePhaseError is called when an element's phase work fails and
	// an error indicator has been substituted in its place.
	HandlePhaseError(err *PhaseError)
}
