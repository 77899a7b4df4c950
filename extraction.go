package lift

import (
	"fmt"
	"sort"
)

// ExtractionHistory records every bit range of each free variable that has
// been read during translation. Once translation completes, overlapping
// ranges are grouped so that each group is read from a single live-in value.
type ExtractionHistory struct {
	vars   []*Formula // in order of first extraction
	slices map[*Formula][]Slice
}

// NewExtractionHistory returns a new, empty history.
func NewExtractionHistory() *ExtractionHistory {
	return &ExtractionHistory{slices: make(map[*Formula][]Slice)}
}

// IsSimpleExtraction returns true if f extracts bits directly from a free variable.
func IsSimpleExtraction(f *Formula) bool {
	return f.op == EXTRACT && f.args[0].IsVar()
}

// Record registers a simple extraction and returns its slice.
func (h *ExtractionHistory) Record(ext *Formula) Slice {
	assert(IsSimpleExtraction(ext), "record of non-simple extraction: %s", ext)
	return h.record(NewSlice(ext.args[0], ext.lo, ext.hi+1))
}

// RecordVar registers a read of every bit of the free variable v.
func (h *ExtractionHistory) RecordVar(v *Formula) Slice {
	return h.record(NewSlice(v, 0, v.Width()))
}

func (h *ExtractionHistory) record(s Slice) Slice {
	slices, ok := h.slices[s.Var]
	if !ok {
		h.vars = append(h.vars, s.Var)
	}
	for _, other := range slices {
		if other == s {
			return s
		}
	}
	h.slices[s.Var] = append(slices, s)
	return s
}

// Vars returns every recorded variable in order of first extraction.
func (h *ExtractionHistory) Vars() []*Formula {
	return h.vars
}

// Slices returns the recorded slices of v in order of recording.
func (h *ExtractionHistory) Slices(v *Formula) []Slice {
	return h.slices[v]
}

// PartitionSlices groups slices into root slices: each slice is merged into
// the first root it overlaps, and the merged root is merged again until it
// overlaps no other root. The returned roots are pairwise disjoint, cover
// every input slice, and are sorted by their low bit.
func PartitionSlices(slices []Slice) []Slice {
	var roots []Slice
	for _, s := range slices {
		for {
			i := indexOfOverlap(roots, s)
			if i < 0 {
				break
			}
			s = s.Union(roots[i])
			roots = append(roots[:i], roots[i+1:]...)
		}
		roots = append(roots, s)
	}
	sort.Slice(roots, func(i, j int) bool { return roots[i].Lo < roots[j].Lo })
	return roots
}

func indexOfOverlap(roots []Slice, s Slice) int {
	for i, root := range roots {
		if root.Overlaps(s) {
			return i
		}
	}
	return -1
}

// TranslateSlices lowers every recorded slice into t's DAG. Each root slice
// becomes a live-in value; each slice is then either the root itself, the
// low bits of the root, or the low bits of the root shifted right.
//
// Returns a mapping of slice to the id of the node computing it.
func (h *ExtractionHistory) TranslateSlices(t *Translator) (map[Slice]int, error) {
	m := make(map[Slice]int)
	for _, v := range h.vars {
		slices := h.slices[v]
		roots := PartitionSlices(slices)
		rootIDs := make(map[Slice]int)

		for _, s := range slices {
			i := indexOfOverlap(roots, s)
			if i < 0 || !roots[i].Contains(s) {
				return nil, &InternalError{Check: "slice-partition", Reason: fmt.Sprintf("no root slice covers %s", s)}
			}
			root := roots[i]

			rootID, ok := rootIDs[root]
			if !ok {
				w, err := roundWidth(v, root.Size())
				if err != nil {
					return nil, err
				}
				rootID = t.dag.Add(&LiveIn{Var: v.Name(), Lo: root.Lo, Hi: root.Hi, Width: w})
				rootIDs[root] = rootID
			}

			rootWidth := t.dag.Node(rootID).Bitwidth()
			if w, _ := RoundWidth(s.Size()); w > rootWidth {
				return nil, &InternalError{Check: "slice-width", Reason: fmt.Sprintf("%s wider than root %s", s, root)}
			}

			switch {
			case s == root:
				m[s] = rootID
			case s.Lo == root.Lo:
				m[s] = t.lowBits(rootID, s.Size())
			default:
				shift := t.emit(LShr, rootWidth, rootID, t.constant(uint64(s.Lo-root.Lo), rootWidth))
				m[s] = t.lowBits(shift, s.Size())
			}
			t.Logger.WithField("slice", s.String()).Debugf("lift: slice of root %s", root)
		}
	}
	return m, nil
}
