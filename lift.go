package lift

import (
	"fmt"

	"github.com/pkg/errors"
)

// Standard widths.
const (
	WidthBool = 1
	Width8    = 8
	Width16   = 16
	Width32   = 32
	Width64   = 64
)

// widths is the lattice of scalar bit widths an IR value may be declared with.
var widths = [...]uint{WidthBool, Width8, Width16, Width32, Width64}

var (
	ErrSolverTimeout       = errors.New("Solver timeout")
	ErrSolverCanceled      = errors.New("Solver canceled")
	ErrSolverResourceLimit = errors.New("Solver resource limit")
	ErrSolverUnknown       = errors.New("Solver unknown error")
)

// RoundWidth returns the smallest lattice width greater than or equal to w.
// Returns false if w is wider than the widest scalar.
func RoundWidth(w uint) (uint, bool) {
	for _, x := range widths {
		if w <= x {
			return x, true
		}
	}
	return 0, false
}

// IsScalarWidth returns true if w is exactly a lattice width.
func IsScalarWidth(w uint) bool {
	rw, ok := RoundWidth(w)
	return ok && rw == w
}

// roundWidth returns the rounded width of w or a modeling-limit error
// referencing f if w does not fit in a scalar.
func roundWidth(f *Formula, w uint) (uint, error) {
	rw, ok := RoundWidth(w)
	if !ok {
		return 0, &UnsupportedError{Formula: f, Reason: fmt.Sprintf("bitwidth too large for scalar operation: %d", w)}
	}
	return rw, nil
}

// UnsupportedError is returned when a formula uses a construct that has no
// scalar lowering. Callers may skip the formula and continue.
type UnsupportedError struct {
	Formula *Formula
	Reason  string
}

// Error returns the error as a string.
func (e *UnsupportedError) Error() string {
	if e.Formula == nil {
		return "unsupported: " + e.Reason
	}
	return fmt.Sprintf("unsupported: %s: %s", e.Reason, e.Formula)
}

// IsUnsupported returns true if err was caused by a modeling limit.
func IsUnsupported(err error) bool {
	var e *UnsupportedError
	return errors.As(err, &e)
}

// InternalError is returned when the lifter produces an inconsistent result.
// It indicates a bug rather than an unsupported input.
type InternalError struct {
	Check  string
	Reason string
}

// Error returns the error as a string.
func (e *InternalError) Error() string {
	return fmt.Sprintf("internal error: %s: %s", e.Check, e.Reason)
}

// IsInternal returns true if err was caused by an internal-consistency failure.
func IsInternal(err error) bool {
	var e *InternalError
	return errors.As(err, &e)
}

// assert panics if condition is false.
func assert(condition bool, format string, args ...interface{}) {
	if !condition {
		panic(fmt.Sprintf("assert: "+format, args...))
	}
}
