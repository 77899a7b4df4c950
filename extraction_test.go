package lift_test

import (
	"fmt"
	"testing"

	"github.com/benbjohnson/lift"
	"gotest.tools/v3/assert"
	"pgregory.net/rapid"
)

func TestExtractionHistory_Record(t *testing.T) {
	b := lift.NewBuilder()
	x, y := b.Var("x", 32), b.Var("y", 16)

	h := lift.NewExtractionHistory()
	assert.Equal(t, h.Record(b.Extract(15, 8, y)), lift.NewSlice(y, 8, 16))
	assert.Equal(t, h.Record(b.Extract(7, 0, x)), lift.NewSlice(x, 0, 8))
	assert.Equal(t, h.RecordVar(x), lift.NewSlice(x, 0, 32))
	h.Record(b.Extract(7, 0, x))

	vars := h.Vars()
	assert.Equal(t, len(vars), 2)
	assert.Assert(t, vars[0] == y && vars[1] == x)
	assert.Equal(t, fmt.Sprint(h.Slices(x)), "[x[0:8] x[0:32]]")
	assert.Equal(t, len(h.Slices(b.Var("z", 8))), 0)

	t.Run("NonSimple", func(t *testing.T) {
		defer func() {
			if r := recover(); r == nil {
				t.Fatal("expected panic")
			}
		}()
		h.Record(b.Extract(7, 0, b.Binary(lift.BVADD, x, x)))
	})
}

func TestIsSimpleExtraction(t *testing.T) {
	b := lift.NewBuilder()
	x := b.Var("x", 32)
	assert.Assert(t, lift.IsSimpleExtraction(b.Extract(3, 0, x)))
	assert.Assert(t, !lift.IsSimpleExtraction(x))
	assert.Assert(t, !lift.IsSimpleExtraction(b.Extract(3, 0, b.Make(lift.BVNOT, x))))
}

func TestPartitionSlices(t *testing.T) {
	b := lift.NewBuilder()
	x := b.Var("x", 64)

	t.Run("Disjoint", func(t *testing.T) {
		roots := lift.PartitionSlices([]lift.Slice{
			lift.NewSlice(x, 32, 40),
			lift.NewSlice(x, 0, 8),
			lift.NewSlice(x, 8, 16),
		})
		assert.Equal(t, fmt.Sprint(roots), "[x[0:8] x[8:16] x[32:40]]")
	})

	t.Run("Overlapping", func(t *testing.T) {
		roots := lift.PartitionSlices([]lift.Slice{
			lift.NewSlice(x, 0, 16),
			lift.NewSlice(x, 12, 24),
			lift.NewSlice(x, 40, 48),
		})
		assert.Equal(t, fmt.Sprint(roots), "[x[0:24] x[40:48]]")
	})

	// A slice bridging two existing roots merges all three.
	t.Run("Bridge", func(t *testing.T) {
		roots := lift.PartitionSlices([]lift.Slice{
			lift.NewSlice(x, 0, 8),
			lift.NewSlice(x, 16, 24),
			lift.NewSlice(x, 4, 20),
		})
		assert.Equal(t, fmt.Sprint(roots), "[x[0:24]]")
	})

	t.Run("Empty", func(t *testing.T) {
		assert.Equal(t, len(lift.PartitionSlices(nil)), 0)
	})
}

// Ensure that root slices are pairwise disjoint and each recorded slice is
// covered by exactly one root.
func TestPartitionSlices_Quick(t *testing.T) {
	b := lift.NewBuilder()
	x := b.Var("x", 64)

	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 12).Draw(t, "n")
		slices := make([]lift.Slice, n)
		for i := range slices {
			lo := rapid.UintRange(0, 63).Draw(t, "lo")
			hi := rapid.UintRange(lo+1, 64).Draw(t, "hi")
			slices[i] = lift.NewSlice(x, lo, hi)
		}

		roots := lift.PartitionSlices(slices)
		for i := range roots {
			for j := i + 1; j < len(roots); j++ {
				assert.Assert(t, !roots[i].Overlaps(roots[j]), "%s overlaps %s", roots[i], roots[j])
			}
			if i > 0 {
				assert.Assert(t, roots[i-1].Lo < roots[i].Lo, "roots out of order")
			}
		}

		for _, s := range slices {
			var n int
			for _, root := range roots {
				if root.Contains(s) {
					n++
				}
			}
			assert.Equal(t, n, 1, "slice %s", s)
		}
	})
}
