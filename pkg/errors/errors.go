package errors

import (
	"fmt"
	"io"
)

// ObjectModelError is the interface implemented by all object-model errors.
// The object model never raises language-level exceptions itself; the host
// inspects Kind() and decides what to throw.
type ObjectModelError interface {
	error
	Op() string   // operation that failed, e.g. "arraystore.Append"
	Kind() string // "Range", "Allocation", "Invariant"
	// Message returns the specific error message without the operation prefix.
	Message() string
	Unwrap() error
}

// --- Concrete Error Types ---

// RangeError reports a length or index computation that left its legal range
// (array index overflow, string length limit). Values are clamped, never wrapped.
type RangeError struct {
	Operation string
	Msg       string
	Cause     error
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("Range Error in %s: %s", e.Operation, e.Msg)
}
func (e *RangeError) Op() string      { return e.Operation }
func (e *RangeError) Kind() string    { return "Range" }
func (e *RangeError) Message() string { return e.Msg }
func (e *RangeError) Unwrap() error   { return e.Cause }
func (e *RangeError) CausedBy(cause error) *RangeError {
	e.Cause = cause
	return e
}

// AllocationError reports that the heap refused a new cell, even after a
// collection cycle. It propagates to the host's top-level handler.
type AllocationError struct {
	Operation string
	Msg       string
	Cause     error
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("Allocation Error in %s: %s", e.Operation, e.Msg)
}
func (e *AllocationError) Op() string      { return e.Operation }
func (e *AllocationError) Kind() string    { return "Allocation" }
func (e *AllocationError) Message() string { return e.Msg }
func (e *AllocationError) Unwrap() error   { return e.Cause }
func (e *AllocationError) CausedBy(cause error) *AllocationError {
	e.Cause = cause
	return e
}

// InvariantError reports a structural rule the caller tried to break, such as
// sorting an array holding non-writable elements. Cheap violations (a failed
// put or delete) are plain boolean results instead.
type InvariantError struct {
	Operation string
	Msg       string
	Cause     error
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("Invariant Error in %s: %s", e.Operation, e.Msg)
}
func (e *InvariantError) Op() string      { return e.Operation }
func (e *InvariantError) Kind() string    { return "Invariant" }
func (e *InvariantError) Message() string { return e.Msg }
func (e *InvariantError) Unwrap() error   { return e.Cause }
func (e *InvariantError) CausedBy(cause error) *InvariantError {
	e.Cause = cause
	return e
}

// --- Helpers ---

func NewRangeError(op, format string, args ...any) *RangeError {
	return &RangeError{Operation: op, Msg: fmt.Sprintf(format, args...)}
}

func NewAllocationError(op, format string, args ...any) *AllocationError {
	return &AllocationError{Operation: op, Msg: fmt.Sprintf(format, args...)}
}

func NewInvariantError(op, format string, args ...any) *InvariantError {
	return &InvariantError{Operation: op, Msg: fmt.Sprintf(format, args...)}
}

// --- Error Reporting ---

// DisplayErrors writes a list of errors to w, one per line, in the form
// "<Kind> Error in <op>: <message>". Errors that are not ObjectModelErrors
// are printed as-is.
func DisplayErrors(w io.Writer, errs []error) {
	for _, err := range errs {
		if err == nil {
			continue
		}
		if oe, ok := err.(ObjectModelError); ok {
			fmt.Fprintf(w, "%s Error in %s: %s\n", oe.Kind(), oe.Op(), oe.Message())
			continue
		}
		fmt.Fprintf(w, "Error: %v\n", err)
	}
}
