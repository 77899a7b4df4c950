package lift

import (
	"fmt"
)

// Slice represents the contiguous bit range [Lo, Hi) of a free variable.
//
// Slices also appear in the IR as placeholders for extracted bits whose
// lowering is deferred until every extraction of the variable is known.
type Slice struct {
	Var *Formula
	Lo  uint
	Hi  uint
}

// NewSlice returns a slice of bits [lo, hi) of v.
func NewSlice(v *Formula, lo, hi uint) Slice {
	assert(v.IsVar(), "slice of non-variable: %s", v)
	assert(lo < hi && hi <= v.Width(), "invalid slice: [%d, %d) of %d bits", lo, hi, v.Width())
	return Slice{Var: v, Lo: lo, Hi: hi}
}

// Size returns the number of bits in the slice.
func (s Slice) Size() uint { return s.Hi - s.Lo }

// Overlaps returns true if s & other share a variable and at least one bit.
func (s Slice) Overlaps(other Slice) bool {
	return s.Var == other.Var && s.Lo < other.Hi && other.Lo < s.Hi
}

// Union returns the smallest slice covering s & other.
func (s Slice) Union(other Slice) Slice {
	assert(s.Var == other.Var, "union of slices of different variables: %s, %s", s.Var, other.Var)
	return Slice{Var: s.Var, Lo: minUint(s.Lo, other.Lo), Hi: maxUint(s.Hi, other.Hi)}
}

// Contains returns true if every bit of other lies within s.
func (s Slice) Contains(other Slice) bool {
	return s.Var == other.Var && s.Lo <= other.Lo && other.Hi <= s.Hi
}

// Formula returns the extraction formula equivalent to the slice.
func (s Slice) Formula(b *Builder) *Formula {
	return b.Extract(s.Hi-1, s.Lo, s.Var)
}

// Bitwidth returns the rounded scalar width of the slice, or its size if it
// is too wide for a scalar.
func (s Slice) Bitwidth() uint {
	if w, ok := RoundWidth(s.Size()); ok {
		return w
	}
	return s.Size()
}

// String returns the string representation of the slice.
func (s Slice) String() string {
	return fmt.Sprintf("%s[%d:%d]", s.Var.Name(), s.Lo, s.Hi)
}
