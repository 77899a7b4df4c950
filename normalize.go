package lift

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Normalizer rewrites formulas into an equivalent form that lowers to
// smaller IR. Branch elimination requires a solver.
type Normalizer struct {
	b      *Builder
	solver Solver

	Logger logrus.FieldLogger
}

// NewNormalizer returns a new instance of Normalizer.
func NewNormalizer(b *Builder, s Solver) *Normalizer {
	return &Normalizer{b: b, solver: s, Logger: logrus.StandardLogger()}
}

// Normalize eliminates dead branches, then redundant branches, and finally
// reduces the width of arithmetic on zero-extended operands.
func (n *Normalizer) Normalize(f *Formula) (*Formula, error) {
	g, err := n.ElimDeadBranches(f)
	if err != nil {
		return nil, err
	}
	if g, err = n.ElimRedundantBranches(g); err != nil {
		return nil, err
	}
	g = ReduceBitwidth(n.b, g)

	n.Logger.WithFields(logrus.Fields{
		"before": Size(f),
		"after":  Size(g),
	}).Debug("lift: normalized formula")
	return g, nil
}

// ElimDeadBranches replaces every conditional whose condition is decided by
// the enclosing path conditions with the branch that is taken.
func (n *Normalizer) ElimDeadBranches(f *Formula) (*Formula, error) {
	if n.solver == nil {
		return nil, errors.New("dead branch elimination requires a solver")
	}
	p := newBranchPass(n)
	return p.elimDead(f)
}

// ElimRedundantBranches replaces every conditional whose arms agree wherever
// they are reachable with one of its arms.
func (n *Normalizer) ElimRedundantBranches(f *Formula) (*Formula, error) {
	if n.solver == nil {
		return nil, errors.New("redundant branch elimination requires a solver")
	}
	p := newBranchPass(n)
	return p.elimRedundant(f)
}

// scopedKey identifies a formula visited under a particular set of path
// conditions. A rewrite is only valid under the conditions it was computed in.
type scopedKey struct {
	scope int
	f     *Formula
}

// branchPass holds the state of one branch elimination pass.
type branchPass struct {
	*Normalizer
	simp      *simplifier
	memo      map[scopedKey]*Formula
	scope     int
	nextScope int
}

func newBranchPass(n *Normalizer) *branchPass {
	return &branchPass{
		Normalizer: n,
		simp:       &simplifier{b: n.b, m: make(map[*Formula]*Formula)},
		memo:       make(map[scopedKey]*Formula),
	}
}

// assume evaluates fn with cond asserted in a new solver scope.
func (p *branchPass) assume(cond *Formula, fn func() (*Formula, error)) (*Formula, error) {
	if err := p.solver.Push(); err != nil {
		return nil, err
	}
	if err := p.solver.Assert(cond); err != nil {
		p.solver.Pop()
		return nil, err
	}

	parent := p.scope
	p.nextScope++
	p.scope = p.nextScope
	g, err := fn()
	p.scope = parent

	if e := p.solver.Pop(); e != nil && err == nil {
		err = e
	}
	return g, err
}

// rebuild applies elim to the arguments of f and simplifies the result.
func (p *branchPass) rebuild(f *Formula, elim func(*Formula) (*Formula, error)) (*Formula, error) {
	if len(f.args) == 0 {
		return f, nil
	}
	args := make([]*Formula, len(f.args))
	for i, arg := range f.args {
		var err error
		if args[i], err = elim(arg); err != nil {
			return nil, err
		}
	}
	return p.simp.simplify(p.b.Rebuild(f, args)), nil
}

func (p *branchPass) elimDead(f *Formula) (*Formula, error) {
	key := scopedKey{p.scope, f}
	if g, ok := p.memo[key]; ok {
		return g, nil
	}

	g, err := p.elimDeadNode(f)
	if err != nil {
		return nil, err
	}
	p.memo[key] = g
	return g, nil
}

func (p *branchPass) elimDeadNode(f *Formula) (*Formula, error) {
	if f.op != ITE {
		return p.rebuild(f, p.elimDead)
	}
	cond, x, y := f.args[0], f.args[1], f.args[2]

	if ok, err := Valid(p.solver, p.b, cond); err != nil {
		return nil, err
	} else if ok {
		p.Logger.WithField("branch", "else").Debug("lift: eliminated dead branch")
		return p.elimDead(x)
	}
	if ok, err := Valid(p.solver, p.b, p.b.Not(cond)); err != nil {
		return nil, err
	} else if ok {
		p.Logger.WithField("branch", "then").Debug("lift: eliminated dead branch")
		return p.elimDead(y)
	}

	cond2, err := p.elimDead(cond)
	if err != nil {
		return nil, err
	}
	x2, err := p.assume(cond, func() (*Formula, error) { return p.elimDead(x) })
	if err != nil {
		return nil, err
	}
	y2, err := p.assume(p.b.Not(cond), func() (*Formula, error) { return p.elimDead(y) })
	if err != nil {
		return nil, err
	}
	return p.simp.simplify(p.b.Ite(cond2, x2, y2)), nil
}

func (p *branchPass) elimRedundant(f *Formula) (*Formula, error) {
	key := scopedKey{p.scope, f}
	if g, ok := p.memo[key]; ok {
		return g, nil
	}

	g, err := p.elimRedundantNode(f)
	if err != nil {
		return nil, err
	}
	p.memo[key] = g
	return g, nil
}

func (p *branchPass) elimRedundantNode(f *Formula) (*Formula, error) {
	if f.op != ITE {
		return p.rebuild(f, p.elimRedundant)
	}

	var args [3]*Formula
	for i, arg := range f.args {
		var err error
		if args[i], err = p.elimRedundant(arg); err != nil {
			return nil, err
		}
	}
	cond, x, y := args[0], args[1], args[2]
	if x == y {
		return x, nil
	}

	// The then arm may stand in for the else arm if they agree whenever the
	// condition is false, and symmetrically for the else arm.
	if sat, err := p.solver.Check(p.b.Not(cond), p.b.Distinct(x, y)); err != nil {
		return nil, err
	} else if !sat {
		p.Logger.WithField("arm", "then").Debug("lift: eliminated redundant branch")
		return x, nil
	}
	if sat, err := p.solver.Check(cond, p.b.Distinct(x, y)); err != nil {
		return nil, err
	} else if !sat {
		p.Logger.WithField("arm", "else").Debug("lift: eliminated redundant branch")
		return y, nil
	}
	return p.simp.simplify(p.b.Ite(cond, x, y)), nil
}

// ReduceBitwidth rewrites unsigned arithmetic whose operands are zero
// extensions of narrower values so that it is computed at the narrowest width
// that cannot overflow, then zero-extended back to the original width.
// Operators other than add, mul, udiv, urem, lshr and shl are only rebuilt.
func ReduceBitwidth(b *Builder, f *Formula) *Formula {
	r := &reducer{simplifier: simplifier{b: b, m: make(map[*Formula]*Formula)}, reduced: make(map[*Formula]*Formula)}
	return r.reduce(f)
}

type reducer struct {
	simplifier
	reduced map[*Formula]*Formula
}

func (r *reducer) reduce(f *Formula) *Formula {
	if g, ok := r.reduced[f]; ok {
		return g
	}

	args := make([]*Formula, len(f.args))
	for i, arg := range f.args {
		args[i] = r.reduce(arg)
	}
	g := r.simplify(r.b.Rebuild(f, args))
	if h := r.narrow(g); h != nil {
		g = h
	}

	r.reduced[f] = g
	return g
}

// narrow returns f computed at a narrower width or nil if f cannot be narrowed.
func (r *reducer) narrow(f *Formula) *Formula {
	switch f.op {
	case BVADD, BVMUL, BVUDIV, BVUREM, BVLSHR, BVSHL:
	default:
		return nil
	}

	args := make([]*Formula, len(f.args))
	var widest uint
	for i, arg := range f.args {
		args[i] = r.trimZero(arg)
		widest = maxUint(widest, args[i].Width())
	}

	var required uint
	switch f.op {
	case BVADD:
		required = widest + uint(len(args)-1)
	case BVMUL:
		for _, arg := range args {
			required += arg.Width()
		}
	case BVUDIV:
		// Division by zero yields all ones, which depends on the width.
		if !args[1].IsConst() || args[1].IsZero() {
			return nil
		}
		required = args[0].Width()
	case BVUREM, BVLSHR:
		required = args[0].Width()
	case BVSHL:
		required = f.Width()
	}
	required = maxUint(required, widest)

	if required >= f.Width() {
		return nil
	} else if w, ok := RoundWidth(required); ok {
		// A result that lands in the same register width is no cheaper.
		if fw, ok := RoundWidth(f.Width()); ok && w >= fw {
			return nil
		}
		required = w
	}

	for i, arg := range args {
		args[i] = r.b.ZeroExt(required-arg.Width(), arg)
	}
	return r.simplify(r.b.ZeroExt(f.Width()-required, r.b.Make(f.op, args...)))
}

// trimZero strips known-zero high bits from f.
func (r *reducer) trimZero(f *Formula) *Formula {
	for {
		switch {
		case f.op == ZEROEXT:
			f = f.args[0]
		case f.op == CONCAT && len(f.args) == 2 && f.args[0].IsZero():
			f = f.args[1]
		case f.op == BVCONST:
			w := uint(f.value.BitLen())
			if w == 0 {
				w = 1
			}
			if w == f.Width() {
				return f
			}
			return r.b.Const(f.value, w)
		default:
			return f
		}
	}
}

// RecoverSub rewrites every addition of a value multiplied by all ones
// into a subtraction.
func RecoverSub(b *Builder, f *Formula) *Formula {
	m := make(map[*Formula]*Formula)
	var rec func(*Formula) *Formula
	rec = func(f *Formula) *Formula {
		if g, ok := m[f]; ok {
			return g
		}
		g := f
		if len(f.args) > 0 {
			args := make([]*Formula, len(f.args))
			for i, arg := range f.args {
				args[i] = rec(arg)
			}
			g = recoverSub(b, b.Rebuild(f, args))
		}
		m[f] = g
		return g
	}
	return rec(f)
}

// recoverSub rewrites a + (-1 * b) or (-1 * b) + a at the root of f into a - b.
func recoverSub(b *Builder, f *Formula) *Formula {
	if f.op != BVADD || len(f.args) != 2 {
		return f
	}

	x, y := f.args[0], f.args[1]
	if y.op != BVMUL {
		x, y = y, x
	}
	if y.op != BVMUL || len(y.args) != 2 {
		return f
	}

	switch {
	case y.args[0].IsAllOnes():
		return b.Binary(BVSUB, x, y.args[1])
	case y.args[1].IsAllOnes():
		return b.Binary(BVSUB, x, y.args[0])
	default:
		return f
	}
}

// Size returns the number of distinct nodes in f.
func Size(f *Formula) int {
	seen := make(map[*Formula]struct{})
	var walk func(*Formula)
	walk = func(f *Formula) {
		if _, ok := seen[f]; ok {
			return
		}
		seen[f] = struct{}{}
		for _, arg := range f.args {
			walk(arg)
		}
	}
	walk(f)
	return len(seen)
}
