package lift

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Translator lowers formulas into a scalar IR DAG.
//
// A Translator lowers a single formula: create a new Translator for each call
// to TranslateFormula.
type Translator struct {
	b       *Builder
	solver  Solver
	history *ExtractionHistory
	dag     *DAG
	memo    map[*Formula]int
	consts  map[Constant]int
	done    bool

	Logger logrus.FieldLogger
}

// NewTranslator returns a new instance of Translator. The solver is used to
// recognize sign extensions and to verify lane splitting.
func NewTranslator(b *Builder, s Solver) *Translator {
	return &Translator{
		b:       b,
		solver:  s,
		history: NewExtractionHistory(),
		dag:     NewDAG(),
		memo:    make(map[*Formula]int),
		consts:  make(map[Constant]int),
		Logger:  logrus.StandardLogger(),
	}
}

// DAG returns the DAG the translator emits into.
func (t *Translator) DAG() *DAG { return t.dag }

// History returns the extraction history of the translator.
func (t *Translator) History() *ExtractionHistory { return t.history }

// TranslateFormula lowers f into the DAG and returns the ids of its results.
//
// If f is a concatenation wider than laneWidth, it is split into
// width/laneWidth independent lanes, returned most significant lane first.
// Otherwise a single id is returned. A laneWidth of zero disables splitting.
func (t *Translator) TranslateFormula(f *Formula, laneWidth uint) ([]int, *DAG, error) {
	assert(!t.done, "translator reused")
	t.done = true

	lanes, err := t.splitLanes(f, laneWidth)
	if err != nil {
		return nil, nil, err
	}

	outs := make([]int, len(lanes))
	for i, lane := range lanes {
		if outs[i], err = t.Translate(lane); err != nil {
			return nil, nil, err
		}
	}

	if outs, err = t.resolveSlices(outs); err != nil {
		return nil, nil, err
	}

	if err := typecheck(t.dag); err != nil {
		return nil, nil, &InternalError{Check: "typecheck", Reason: err.Error()}
	}
	return outs, t.dag, nil
}

// splitLanes chunks the children of a wide concatenation into lanes of
// exactly laneWidth bits and verifies that the lanes reproduce f.
func (t *Translator) splitLanes(f *Formula, laneWidth uint) ([]*Formula, error) {
	if f.op != CONCAT || laneWidth == 0 || laneWidth >= f.Width() {
		return []*Formula{f}, nil
	} else if f.Width()%laneWidth != 0 {
		return nil, &UnsupportedError{Formula: f, Reason: fmt.Sprintf("lane width %d does not divide formula width %d", laneWidth, f.Width())}
	}

	// Scan children from the least significant end, accumulating extraction
	// fragments until each lane is full.
	var lanes, partial []*Formula
	var partialSize, offset, childOffset uint
	for i := len(f.args) - 1; i >= 0; i-- {
		x := f.args[i]
		for offset < childOffset+x.Width() {
			begin := offset - childOffset
			end := minUint(begin+laneWidth-partialSize, x.Width())
			partial = append([]*Formula{t.b.Extract(end-1, begin, x)}, partial...)
			partialSize += end - begin
			offset += end - begin

			if partialSize == laneWidth {
				lanes = append([]*Formula{Simplify(t.b, t.b.Concat(partial...))}, lanes...)
				partial, partialSize = nil, 0
			}
		}
		childOffset += x.Width()
	}

	if err := t.checkLanes(f, lanes); err != nil {
		return nil, err
	}
	t.Logger.WithField("lanes", len(lanes)).Debugf("lift: split %d-bit formula", f.Width())
	return lanes, nil
}

// checkLanes proves that concatenating lanes reproduces f.
func (t *Translator) checkLanes(f *Formula, lanes []*Formula) error {
	concat := t.b.Concat(lanes...)
	if Simplify(t.b, concat) == Simplify(t.b, f) {
		return nil
	} else if t.solver == nil {
		return &InternalError{Check: "lane-reconcat", Reason: "lanes differ structurally and no solver is available"}
	}

	ok, err := Equivalent(t.solver, t.b, concat, f)
	if err != nil {
		return errors.Wrap(err, "lane check")
	} else if !ok {
		return &InternalError{Check: "lane-reconcat", Reason: fmt.Sprintf("lanes do not reproduce %s", f)}
	}
	return nil
}

// resolveSlices replaces every slice placeholder in the DAG with the node
// computing it and returns outs with placeholders substituted.
func (t *Translator) resolveSlices(outs []int) ([]int, error) {
	m, err := t.history.TranslateSlices(t)
	if err != nil {
		return nil, err
	}

	resolved := make(map[int]int)
	t.dag.Each(func(id int, n Node) {
		if s, ok := n.(Slice); ok {
			if other, ok := m[s]; ok {
				resolved[id] = other
			}
		}
	})
	for id := range resolved {
		t.dag.Delete(id)
	}

	var missing error
	t.dag.Each(func(id int, n Node) {
		switch n := n.(type) {
		case Slice:
			missing = &InternalError{Check: "slice-resolve", Reason: fmt.Sprintf("unresolved slice %%%d = %s", id, n)}
		case *Instruction:
			var args []int
			for i, arg := range n.Args {
				if other, ok := resolved[arg]; ok {
					if args == nil {
						args = append([]int(nil), n.Args...)
					}
					args[i] = other
				}
			}
			if args != nil {
				t.dag.Replace(id, &Instruction{Op: n.Op, Width: n.Width, Args: args})
			}
		}
	})
	if missing != nil {
		return nil, missing
	}

	other := make([]int, len(outs))
	for i, id := range outs {
		if r, ok := resolved[id]; ok {
			id = r
		}
		other[i] = id
	}
	for f, id := range t.memo {
		if r, ok := resolved[id]; ok {
			t.memo[f] = r
		}
	}
	return other, nil
}

// Translate lowers f and returns the id of the node computing it. Slices of
// free variables remain as placeholders until TranslateFormula resolves them.
func (t *Translator) Translate(f *Formula) (int, error) {
	f = t.rewriteNotOr(f)
	if id, ok := t.memo[f]; ok {
		return id, nil
	}

	g := recoverSub(t.b, f)
	id, ok := t.memo[g]
	if !ok {
		var err error
		if id, err = t.translate(g); err != nil {
			return 0, err
		}
	}
	t.memo[f], t.memo[g] = id, id
	return id, nil
}

// rewriteNotOr rewrites ~(a | b) into ~a & ~b.
func (t *Translator) rewriteNotOr(f *Formula) *Formula {
	if f.op != BVNOT {
		return f
	} else if x := f.args[0]; x.op != BVOR || len(x.args) != 2 {
		return f
	}
	x := f.args[0]
	a := Simplify(t.b, t.b.Make(BVNOT, x.args[0]))
	b := Simplify(t.b, t.b.Make(BVNOT, x.args[1]))
	return t.b.Make(BVAND, a, b)
}

func (t *Translator) translate(f *Formula) (int, error) {
	t.Logger.WithField("op", f.op.String()).Debugf("lift: translate %d-bit formula", f.Width())

	switch f.op {
	case TRUE:
		return t.constant(1, WidthBool), nil
	case FALSE:
		return t.constant(0, WidthBool), nil
	case BVCONST:
		return t.translateConst(f)
	case VAR:
		return t.dag.Add(t.history.RecordVar(f)), nil
	case NOT:
		x, err := t.Translate(f.args[0])
		if err != nil {
			return 0, err
		}
		return t.emit(Xor, WidthBool, t.constant(1, WidthBool), x), nil
	case BVNOT:
		return t.Translate(t.b.Make(BVXOR, t.b.ConstInt(-1, f.Width()), f.args[0]))
	case BVNEG:
		return t.Translate(t.b.Binary(BVSUB, t.b.ConstInt(0, f.Width()), f.args[0]))
	case EXTRACT:
		return t.translateExtract(f)
	case CONCAT:
		return t.translateConcat(f)
	case ZEROEXT:
		return t.zeroExtend(f, f.args[0])
	case SIGNEXT:
		return t.signExtend(f, f.args[0])
	case APPLY:
		return t.translateApply(f)
	case DISTINCT:
		if len(f.args) > 2 {
			var pairs []*Formula
			for i := range f.args {
				for j := i + 1; j < len(f.args); j++ {
					pairs = append(pairs, t.b.Distinct(f.args[i], f.args[j]))
				}
			}
			return t.Translate(t.b.And(pairs...))
		}
	}
	return t.translateGeneric(f)
}

// opcodeOf maps formula operators to the opcode of their direct lowering.
var opcodeOf = map[Op]Opcode{
	AND:      And,
	OR:       Or,
	XOR:      Xor,
	ITE:      Select,
	EQ:       Eq,
	DISTINCT: Ne,
	BVADD:    Add,
	BVSUB:    Sub,
	BVMUL:    Mul,
	BVUDIV:   UDiv,
	BVSDIV:   SDiv,
	BVUREM:   URem,
	BVSREM:   SRem,
	BVAND:    And,
	BVOR:     Or,
	BVXOR:    Xor,
	BVSHL:    Shl,
	BVLSHR:   LShr,
	BVASHR:   AShr,
	BVULT:    Ult,
	BVULE:    Ule,
	BVUGT:    Ugt,
	BVUGE:    Uge,
	BVSLT:    Slt,
	BVSLE:    Sle,
	BVSGT:    Sgt,
	BVSGE:    Sge,
}

// translateGeneric lowers f through the operator table. Reductions with more
// than two operands are folded left into binary operations first.
func (t *Translator) translateGeneric(f *Formula) (int, error) {
	op, ok := opcodeOf[f.op]
	if !ok {
		return 0, &UnsupportedError{Formula: f, Reason: fmt.Sprintf("no lowering for operation %s", f.op)}
	}

	if f.op.IsAssociative() && len(f.args) > 2 {
		g := f.args[0]
		for _, arg := range f.args[1:] {
			g = t.b.Make(f.op, g, arg)
		}
		return t.Translate(g)
	}

	// Signed operations need the sign bit at the top of the scalar.
	if f.op.IsSigned() && !IsScalarWidth(f.args[0].Width()) {
		return 0, &UnsupportedError{Formula: f, Reason: fmt.Sprintf("signed operation on %d-bit operands", f.args[0].Width())}
	}

	w, err := roundWidth(f, f.Width())
	if err != nil {
		return 0, err
	}

	args := make([]int, len(f.args))
	for i, arg := range f.args {
		if args[i], err = t.Translate(arg); err != nil {
			return 0, err
		}
	}

	id := t.emit(op, w, args...)
	switch op {
	case Add, Sub, Mul, Shl, UDiv:
		// Keep bits above a non-scalar width cleared.
		return t.lowBits(id, f.Width()), nil
	}
	return id, nil
}

func (t *Translator) translateConst(f *Formula) (int, error) {
	w, err := roundWidth(f, f.Width())
	if err != nil {
		return 0, err
	}
	return t.constant(f.value.Uint64(), w), nil
}

// translateExtract lowers an extraction. Extractions directly from a free
// variable are deferred to the extraction history; others shift and
// truncate the lowered operand.
func (t *Translator) translateExtract(f *Formula) (int, error) {
	if IsSimpleExtraction(f) {
		return t.dag.Add(t.history.Record(f)), nil
	}

	// Extensions whose source covers the extracted bits contribute nothing.
	x := f.args[0]
	for {
		if (x.op == ZEROEXT || x.op == SIGNEXT) && f.hi < x.args[0].Width() {
			x = x.args[0]
		} else if x.op == CONCAT && len(x.args) == 2 && x.args[0].IsZero() && f.hi < x.args[1].Width() {
			x = x.args[1]
		} else {
			break
		}
	}

	if x.Width() > Width64 {
		return 0, &UnsupportedError{Formula: f, Reason: "extraction too complex to model in scalar code"}
	}

	src := x
	if f.lo > 0 {
		src = t.b.Binary(BVLSHR, x, t.b.ConstUint(uint64(f.lo), x.Width()))
	}
	id, err := t.Translate(src)
	if err != nil {
		return 0, err
	}

	if w, _ := RoundWidth(f.Width()); t.dag.Node(id).Bitwidth() < w {
		return 0, &InternalError{Check: "extract-width", Reason: fmt.Sprintf("operand narrower than %s", f)}
	}
	return t.lowBits(id, f.Width()), nil
}

// translateConcat lowers a concatenation, which is only supported when it
// extends its least significant child.
func (t *Translator) translateConcat(f *Formula) (int, error) {
	if ok, err := t.isSignExtension(f); err != nil {
		return 0, err
	} else if ok {
		t.Logger.WithField("rule", "sext").Debugf("lift: concat is a sign extension: %s", f)
		return t.signExtend(f, f.args[len(f.args)-1])
	}

	if len(f.args) != 2 || !f.args[0].IsZero() {
		return 0, &UnsupportedError{Formula: f, Reason: "concat not supported except as extension"}
	}
	return t.zeroExtend(f, f.args[1])
}

// isSignExtension proves whether f equals the sign extension of its least
// significant child.
func (t *Translator) isSignExtension(f *Formula) (bool, error) {
	if t.solver == nil {
		return false, nil
	}
	x := f.args[len(f.args)-1]
	sext := t.b.SignExt(f.Width()-x.Width(), x)
	ok, err := Equivalent(t.solver, t.b, f, sext)
	if err != nil {
		return false, errors.Wrap(err, "sign extension check")
	}
	return ok, nil
}

// zeroExtend lowers f, the zero extension of x. No instruction is emitted if
// x already occupies the rounded width of f.
func (t *Translator) zeroExtend(f, x *Formula) (int, error) {
	w, err := roundWidth(f, f.Width())
	if err != nil {
		return 0, err
	}
	id, err := t.Translate(x)
	if err != nil {
		return 0, err
	}
	if t.dag.Node(id).Bitwidth() == w {
		return id, nil
	}
	return t.emit(ZExt, w, id), nil
}

// signExtend lowers f, the sign extension of x.
func (t *Translator) signExtend(f, x *Formula) (int, error) {
	if !IsScalarWidth(x.Width()) {
		return 0, &UnsupportedError{Formula: f, Reason: fmt.Sprintf("sign extension of %d-bit operand", x.Width())}
	}
	w, err := roundWidth(f, f.Width())
	if err != nil {
		return 0, err
	}
	id, err := t.Translate(x)
	if err != nil {
		return 0, err
	}
	return t.lowBits(t.emit(SExt, w, id), f.Width()), nil
}

// translateApply lowers the uninterpreted functions with known meaning.
func (t *Translator) translateApply(f *Formula) (int, error) {
	if sat, ok := ParseSaturation(f.name); ok {
		if len(f.args) != 1 || f.args[0].Width() != sat.InWidth || f.Width() != sat.OutWidth {
			return 0, &UnsupportedError{Formula: f, Reason: "malformed saturation"}
		}
		return t.Translate(sat.Expand(t.b, f.args[0]))
	}

	if isInt, ok := ParseAbs(f.name); ok {
		if len(f.args) != 1 || f.args[0].sort != f.sort {
			return 0, &UnsupportedError{Formula: f, Reason: "malformed absolute value"}
		}
		return t.Translate(ExpandAbs(t.b, isInt, f.args[0]))
	}

	if fn, ok := ParseFPFunc(f.name); ok {
		if fn.Width != Width32 && fn.Width != Width64 {
			return 0, &UnsupportedError{Formula: f, Reason: fmt.Sprintf("%d-bit float", fn.Width)}
		}

		if fn.Op == "literal" {
			if len(f.args) != 1 || f.args[0].op != BVCONST {
				return 0, &UnsupportedError{Formula: f, Reason: "float literal must be a constant"}
			}
			return t.dag.Add(&FPConstant{Value: fpFloat(fn.Width, f.args[0].value), Width: fn.Width}), nil
		}

		op, ok := floatOps[fn.Op]
		if !ok {
			return 0, &UnsupportedError{Formula: f, Reason: fmt.Sprintf("unknown float operation %q", fn.Op)}
		}

		args := make([]int, len(f.args))
		for i, arg := range f.args {
			var err error
			if args[i], err = t.Translate(arg); err != nil {
				return 0, err
			}
		}

		w := fn.Width
		if f.IsBool() {
			w = WidthBool
		}
		return t.emit(op, w, args...), nil
	}

	return 0, &UnsupportedError{Formula: f, Reason: fmt.Sprintf("unknown function %q", f.name)}
}

// emit adds an instruction to the DAG and returns its id.
func (t *Translator) emit(op Opcode, w uint, args ...int) int {
	return t.dag.Add(&Instruction{Op: op, Width: w, Args: args})
}

// constant returns the id of an integer constant, reusing an existing node.
func (t *Translator) constant(v uint64, w uint) int {
	c := Constant{Value: v, Width: w}
	if id, ok := t.consts[c]; ok {
		return id
	}
	id := t.dag.Add(&c)
	t.consts[c] = id
	return id
}

// lowBits returns a node holding the low size bits of node id, truncated to
// the rounded width of size. If size is not itself a scalar width, the bits
// above it are cleared.
func (t *Translator) lowBits(id int, size uint) int {
	w, ok := RoundWidth(size)
	assert(ok, "low bits wider than a scalar: %d", size)

	if src := t.dag.Node(id).Bitwidth(); w < src {
		id = t.emit(Trunc, w, id)
	}
	if size != w {
		id = t.emit(And, w, id, t.constant(1<<size-1, w))
	}
	return id
}
