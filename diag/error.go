// Package diag carries the error taxonomy shared by the evaluator,
// solver, and loop-Jacobian synthesizer, following the same
// location-carrying error shape that expr-lang/expr's file package uses
// for compile errors.
package diag

import "fmt"

// Code is a taxonomy tag usable with errors.Is.
type Code string

const (
	InvalidInput            Code = "invalid_input"
	UnsupportedOp            Code = "unsupported_op"
	UnsupportedAtomic        Code = "unsupported_atomic"
	MissingAtomic            Code = "missing_atomic"
	NotPresent               Code = "not_present"
	Ambiguous                Code = "ambiguous"
	NonInvertible            Code = "non_invertible"
	InvalidZeroExponent      Code = "invalid_zero_exponent"
	RepeatedJacobianElement  Code = "repeated_jacobian_element"
)

// Error is the single error type surfaced at every public boundary. The
// location fields are populated only where the failing component has
// them; -1 (and an empty string) means "not applicable".
type Error struct {
	Code       Code
	Message    string
	EquationI  int // -1 if not applicable
	ColumnJ    int // -1 if not applicable
	AtomicID   int // -1 if not applicable
	AtomicName string
	Op         string // offending op code, string form
	wrapped    error
}

func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:      code,
		Message:   fmt.Sprintf(format, args...),
		EquationI: -1,
		ColumnJ:   -1,
		AtomicID:  -1,
	}
}

func (e *Error) Error() string {
	msg := e.Message
	if e.EquationI >= 0 {
		msg = fmt.Sprintf("%s (equation %d)", msg, e.EquationI)
	}
	if e.ColumnJ >= 0 {
		msg = fmt.Sprintf("%s (column %d)", msg, e.ColumnJ)
	}
	if e.AtomicID >= 0 {
		if e.AtomicName != "" {
			msg = fmt.Sprintf("%s (atomic %q id=%d)", msg, e.AtomicName, e.AtomicID)
		} else {
			msg = fmt.Sprintf("%s (atomic id=%d)", msg, e.AtomicID)
		}
	}
	if e.Op != "" {
		msg = fmt.Sprintf("%s (op %s)", msg, e.Op)
	}
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %v", msg, e.wrapped)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.wrapped }

// Wrap attaches an underlying cause, matching file.Error.Wrap's shape.
func (e *Error) Wrap(cause error) *Error {
	e.wrapped = cause
	return e
}

// Is matches any *Error target with the same Code, which allows
// errors.Is(err, diag.Sentinel(diag.InvalidInput)); callers typically
// compare err.(*Error).Code directly, but this keeps errors.Is ergonomic too.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == other.Code
}

// Sentinel builds a comparable sentinel of a given code for use with
// errors.Is(err, diag.Sentinel(diag.NotPresent)).
func Sentinel(code Code) *Error {
	return &Error{Code: code, EquationI: -1, ColumnJ: -1, AtomicID: -1}
}

// FromRecover converts a recovered panic value into a wrapped Error of
// the given fallback code, mirroring vm.VM.Run's recover-to-file.Error
// boundary and compiler.Compile's recover-to-error boundary.
func FromRecover(r any, fallback Code) *Error {
	if err, ok := r.(*Error); ok {
		return err
	}
	if err, ok := r.(error); ok {
		return New(fallback, "internal error").Wrap(err)
	}
	return New(fallback, "%v", r)
}
