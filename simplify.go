package lift

import (
	"math/big"
)

// Simplify returns a formula equivalent to f with constants folded and trivial
// identities removed. Simplify is idempotent: simplifying its result again
// returns the same formula.
func Simplify(b *Builder, f *Formula) *Formula {
	s := &simplifier{b: b, m: make(map[*Formula]*Formula)}
	return s.simplify(f)
}

type simplifier struct {
	b *Builder
	m map[*Formula]*Formula
}

func (s *simplifier) simplify(f *Formula) *Formula {
	if g, ok := s.m[f]; ok {
		return g
	}

	g := f
	if len(f.args) > 0 {
		args := make([]*Formula, len(f.args))
		for i, arg := range f.args {
			args[i] = s.simplify(arg)
		}
		g = s.rewrite(s.b.Rebuild(f, args))
	}

	s.m[f], s.m[g] = g, g
	return g
}

// rewrite applies local rules to f, whose arguments are already simplified.
// Every formula built by a rule is rewritten again before it is returned.
func (s *simplifier) rewrite(f *Formula) *Formula {
	if f.op == ITE {
		return s.rewriteIte(f)
	}

	// Fold interpreted operators over constant arguments.
	if f.op != APPLY && len(f.args) > 0 && allConst(f.args) {
		values := make([]*big.Int, len(f.args))
		for i, arg := range f.args {
			values[i] = arg.Value()
		}
		if v, err := evalFormula(f, values); err == nil {
			return s.constant(f.sort, v)
		}
	}

	switch f.op {
	case NOT:
		if x := f.args[0]; x.op == NOT {
			return x.args[0]
		}
	case AND, OR:
		return s.rewriteConnective(f)
	case XOR:
		return s.rewriteXor(f)
	case EQ:
		return s.rewriteEq(f)
	case DISTINCT:
		for i := range f.args {
			for j := i + 1; j < len(f.args); j++ {
				if f.args[i] == f.args[j] {
					return s.b.False()
				}
			}
		}
	case BVNOT, BVNEG:
		if x := f.args[0]; x.op == f.op {
			return x.args[0]
		}
	case BVADD, BVMUL, BVAND, BVOR, BVXOR:
		return s.rewriteAssociative(f)
	case BVSUB:
		x, y := f.args[0], f.args[1]
		if y.IsZero() {
			return x
		} else if x == y {
			return s.b.ConstInt(0, f.Width())
		}
	case BVSHL, BVLSHR, BVASHR:
		x, y := f.args[0], f.args[1]
		if y.IsZero() {
			return x
		} else if x.IsZero() {
			return x
		} else if f.op != BVASHR && y.op == BVCONST && y.value.Cmp(big.NewInt(int64(f.Width()))) >= 0 {
			return s.b.ConstInt(0, f.Width())
		}
	case BVUDIV, BVSDIV:
		if f.args[1].IsConstValue(1) {
			return f.args[0]
		}
	case BVUREM:
		if f.args[1].IsConstValue(1) {
			return s.b.ConstInt(0, f.Width())
		}
	case BVULE, BVUGE, BVSLE, BVSGE:
		if f.args[0] == f.args[1] {
			return s.b.True()
		}
	case BVULT, BVUGT, BVSLT, BVSGT:
		if f.args[0] == f.args[1] {
			return s.b.False()
		}
	case CONCAT:
		return s.rewriteConcat(f)
	case EXTRACT:
		return s.rewriteExtract(f)
	case ZEROEXT, SIGNEXT:
		if x := f.args[0]; x.op == f.op {
			return s.rewrite(s.b.extend(f.op, f.hi+x.hi, x.args[0]))
		}
	}
	return f
}

func (s *simplifier) rewriteIte(f *Formula) *Formula {
	cond, x, y := f.args[0], f.args[1], f.args[2]
	switch {
	case cond.op == TRUE:
		return x
	case cond.op == FALSE:
		return y
	case x == y:
		return x
	case cond.op == NOT:
		return s.rewrite(s.b.Ite(cond.args[0], y, x))
	case x.op == TRUE && y.op == FALSE:
		return cond
	case x.op == FALSE && y.op == TRUE:
		return s.rewrite(s.b.Not(cond))
	}
	return f
}

// rewriteConnective flattens nested conjunctions or disjunctions and removes
// identities and duplicates.
func (s *simplifier) rewriteConnective(f *Formula) *Formula {
	identity, annihilator := TRUE, FALSE
	if f.op == OR {
		identity, annihilator = FALSE, TRUE
	}

	var args []*Formula
	seen := make(map[*Formula]bool)
	for _, arg := range flatten(f) {
		switch {
		case arg.op == identity:
			continue
		case arg.op == annihilator:
			return arg
		case seen[arg]:
			continue
		}
		seen[arg] = true
		args = append(args, arg)
	}

	// A literal and its negation.
	for _, arg := range args {
		if arg.op == NOT && seen[arg.args[0]] {
			return s.b.Bool(annihilator == TRUE)
		}
	}

	if g := s.b.Make(f.op, args...); g != f {
		return s.rewrite(g)
	}
	return f
}

func (s *simplifier) rewriteXor(f *Formula) *Formula {
	var parity bool
	counts := make(map[*Formula]int)
	var order []*Formula
	for _, arg := range flatten(f) {
		switch arg.op {
		case FALSE:
			continue
		case TRUE:
			parity = !parity
			continue
		}
		if counts[arg] == 0 {
			order = append(order, arg)
		}
		counts[arg]++
	}

	var args []*Formula
	for _, arg := range order {
		if counts[arg]%2 == 1 {
			args = append(args, arg)
		}
	}

	var g *Formula
	switch len(args) {
	case 0:
		return s.b.Bool(parity)
	case 1:
		g = args[0]
	default:
		if g = s.b.Make(XOR, args...); g == f && !parity {
			return f
		}
		g = s.rewrite(g)
	}
	if parity {
		return s.rewrite(s.b.Not(g))
	}
	return g
}

func (s *simplifier) rewriteEq(f *Formula) *Formula {
	x, y := f.args[0], f.args[1]
	if x == y {
		return s.b.True()
	}
	if x.IsBool() {
		if y.IsConst() {
			x, y = y, x
		}
		switch x.op {
		case TRUE:
			return y
		case FALSE:
			return s.rewrite(s.b.Not(y))
		}
	}
	return f
}

// rewriteAssociative flattens nested applications of an associative
// bit-vector operator, folds constant operands into a single leading
// constant, and removes identities.
func (s *simplifier) rewriteAssociative(f *Formula) *Formula {
	w := f.Width()

	var identity, annihilator *big.Int
	switch f.op {
	case BVADD, BVOR, BVXOR:
		identity = big.NewInt(0)
	case BVMUL:
		identity, annihilator = big.NewInt(1), big.NewInt(0)
	case BVAND:
		identity, annihilator = mask(w), big.NewInt(0)
	}
	if f.op == BVOR {
		annihilator = mask(w)
	}

	var c *big.Int
	var args []*Formula
	counts := make(map[*Formula]int)
	for _, arg := range flatten(f) {
		if arg.op == BVCONST {
			if c == nil {
				c = arg.Value()
			} else {
				c = bvBinary(f.op, w, c, arg.value)
			}
			continue
		}
		// Duplicates are idempotent for and/or and cancel in pairs for xor.
		counts[arg]++
		if counts[arg] > 1 && f.op != BVADD && f.op != BVMUL {
			continue
		}
		args = append(args, arg)
	}

	if f.op == BVXOR {
		other := args[:0]
		for _, arg := range args {
			if counts[arg]%2 == 1 {
				other = append(other, arg)
			}
		}
		args = other
	}

	if c != nil && annihilator != nil && c.Cmp(annihilator) == 0 {
		return s.b.Const(c, w)
	} else if c != nil && c.Cmp(identity) != 0 {
		args = append([]*Formula{s.b.Const(c, w)}, args...)
	}

	if len(args) == 0 {
		return s.b.Const(identity, w)
	}
	if g := s.b.Make(f.op, args...); g != f {
		return s.rewrite(g)
	}
	return f
}

// rewriteConcat flattens nested concatenations and merges adjacent constants
// and adjacent extractions of contiguous bits from the same formula.
func (s *simplifier) rewriteConcat(f *Formula) *Formula {
	var args []*Formula
	for _, arg := range flatten(f) {
		if n := len(args); n > 0 {
			if g := s.merge(args[n-1], arg); g != nil {
				args[n-1] = g
				continue
			}
		}
		args = append(args, arg)
	}

	if g := s.b.Make(CONCAT, args...); g != f {
		return s.rewrite(g)
	}
	return f
}

// merge returns the concatenation of msb & lsb as a single formula, if possible.
func (s *simplifier) merge(msb, lsb *Formula) *Formula {
	if msb.op == BVCONST && lsb.op == BVCONST {
		v := new(big.Int).Lsh(msb.value, lsb.Width())
		return s.b.Const(v.Or(v, lsb.value), msb.Width()+lsb.Width())
	}
	if msb.op == EXTRACT && lsb.op == EXTRACT && msb.args[0] == lsb.args[0] && msb.lo == lsb.hi+1 {
		return s.rewrite(s.b.Extract(msb.hi, lsb.lo, msb.args[0]))
	}
	return nil
}

func (s *simplifier) rewriteExtract(f *Formula) *Formula {
	hi, lo := f.hi, f.lo
	x := f.args[0]

	switch x.op {
	case EXTRACT:
		return s.rewrite(s.b.Extract(hi+x.lo, lo+x.lo, x.args[0]))

	case CONCAT:
		// Walk children from the least significant end, collecting the pieces
		// that overlap the extracted range.
		var pieces []*Formula
		var offset uint
		for i := len(x.args) - 1; i >= 0; i-- {
			child := x.args[i]
			clo, chi := offset, offset+child.Width()-1
			offset += child.Width()
			if chi < lo || clo > hi {
				continue
			}
			plo, phi := maxUint(lo, clo), minUint(hi, chi)
			pieces = append([]*Formula{s.rewrite(s.b.Extract(phi-clo, plo-clo, child))}, pieces...)
		}
		return s.rewrite(s.b.Concat(pieces...))

	case ZEROEXT:
		y := x.args[0]
		w := y.Width()
		switch {
		case hi < w:
			return s.rewrite(s.b.Extract(hi, lo, y))
		case lo >= w:
			return s.b.ConstInt(0, hi-lo+1)
		default:
			return s.rewrite(s.b.ZeroExt(hi-w+1, s.rewrite(s.b.Extract(w-1, lo, y))))
		}

	case SIGNEXT:
		if y := x.args[0]; hi < y.Width() {
			return s.rewrite(s.b.Extract(hi, lo, y))
		}
	}
	return f
}

// constant returns a literal of the given sort.
func (s *simplifier) constant(sort Sort, v *big.Int) *Formula {
	if sort.Bool {
		return s.b.Bool(v.Sign() != 0)
	}
	return s.b.Const(v, sort.Width)
}

// flatten returns the arguments of f with nested applications of the same
// associative operator expanded in place.
func flatten(f *Formula) []*Formula {
	var args []*Formula
	for _, arg := range f.args {
		if arg.op == f.op && f.op.IsAssociative() {
			args = append(args, flatten(arg)...)
			continue
		}
		args = append(args, arg)
	}
	return args
}

func allConst(args []*Formula) bool {
	for _, arg := range args {
		if !arg.IsConst() {
			return false
		}
	}
	return true
}

func minUint(a, b uint) uint {
	if a < b {
		return a
	}
	return b
}

func maxUint(a, b uint) uint {
	if a > b {
		return a
	}
	return b
}
