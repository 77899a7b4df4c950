package lift

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math/big"
)

// Op represents the head operator of a formula.
type Op int

// Formula operations.
const (
	INVALID = Op(iota)

	leaf_op_begin
	TRUE
	FALSE
	BVCONST
	VAR
	leaf_op_end

	// APPLY is an application of a named uninterpreted function.
	APPLY

	bool_op_begin
	NOT
	AND
	OR
	XOR
	bool_op_end

	ITE
	EQ
	DISTINCT

	arithmetic_op_begin
	BVNOT
	BVNEG
	BVADD
	BVSUB
	BVMUL
	BVUDIV
	BVSDIV
	BVUREM
	BVSREM
	BVSMOD
	BVAND
	BVOR
	BVXOR
	BVSHL
	BVLSHR
	BVASHR
	arithmetic_op_end

	compare_op_begin
	BVULT
	BVULE
	BVUGT
	BVUGE
	BVSLT
	BVSLE
	BVSGT
	BVSGE
	compare_op_end

	CONCAT
	EXTRACT
	SIGNEXT
	ZEROEXT
)

var ops = [...]string{
	TRUE:     "true",
	FALSE:    "false",
	BVCONST:  "const",
	VAR:      "var",
	APPLY:    "apply",
	NOT:      "not",
	AND:      "and",
	OR:       "or",
	XOR:      "xor",
	ITE:      "ite",
	EQ:       "=",
	DISTINCT: "distinct",
	BVNOT:    "bvnot",
	BVNEG:    "bvneg",
	BVADD:    "bvadd",
	BVSUB:    "bvsub",
	BVMUL:    "bvmul",
	BVUDIV:   "bvudiv",
	BVSDIV:   "bvsdiv",
	BVUREM:   "bvurem",
	BVSREM:   "bvsrem",
	BVSMOD:   "bvsmod",
	BVAND:    "bvand",
	BVOR:     "bvor",
	BVXOR:    "bvxor",
	BVSHL:    "bvshl",
	BVLSHR:   "bvlshr",
	BVASHR:   "bvashr",
	BVULT:    "bvult",
	BVULE:    "bvule",
	BVUGT:    "bvugt",
	BVUGE:    "bvuge",
	BVSLT:    "bvslt",
	BVSLE:    "bvsle",
	BVSGT:    "bvsgt",
	BVSGE:    "bvsge",
	CONCAT:   "concat",
	EXTRACT:  "extract",
	SIGNEXT:  "sign_extend",
	ZEROEXT:  "zero_extend",
}

// String returns the string representation of the operation.
func (op Op) String() string {
	if op >= 0 && op < Op(len(ops)) && ops[op] != "" {
		return ops[op]
	}
	return fmt.Sprintf("Op<%d>", op)
}

// IsLeaf returns true if op has no arguments.
func (op Op) IsLeaf() bool {
	return op > leaf_op_begin && op < leaf_op_end
}

// IsBool returns true if op is a boolean connective.
func (op Op) IsBool() bool {
	return op > bool_op_begin && op < bool_op_end
}

// IsArithmetic returns true if op is a bit-vector arithmetic or bitwise operator.
func (op Op) IsArithmetic() bool {
	return op > arithmetic_op_begin && op < arithmetic_op_end
}

// IsCompare returns true if op is a bit-vector comparison operator.
func (op Op) IsCompare() bool {
	return op > compare_op_begin && op < compare_op_end
}

// IsSigned returns true if op interprets its operands as two's complement.
func (op Op) IsSigned() bool {
	switch op {
	case BVSDIV, BVSREM, BVSMOD, BVASHR, BVSLT, BVSLE, BVSGT, BVSGE, SIGNEXT:
		return true
	default:
		return false
	}
}

// IsAssociative returns true if nested applications of op may be flattened.
func (op Op) IsAssociative() bool {
	switch op {
	case AND, OR, XOR, BVADD, BVMUL, BVAND, BVOR, BVXOR, CONCAT:
		return true
	default:
		return false
	}
}

// Sort represents the type of a formula: a boolean or a fixed-width bit-vector.
type Sort struct {
	Bool  bool
	Width uint
}

// BoolSort returns the boolean sort.
func BoolSort() Sort { return Sort{Bool: true, Width: 1} }

// BVSort returns the bit-vector sort of width w.
func BVSort(w uint) Sort { return Sort{Width: w} }

// String returns the SMT-LIB name of the sort.
func (s Sort) String() string {
	if s.Bool {
		return "Bool"
	}
	return fmt.Sprintf("(_ BitVec %d)", s.Width)
}

// Formula represents an immutable node of a bit-vector formula.
//
// Formulas are only created through a Builder, which interns them so that
// structurally equal formulas share a single pointer.
type Formula struct {
	id     int
	op     Op
	sort   Sort
	args   []*Formula
	hi, lo uint     // extract bounds; hi holds the amount for extensions
	value  *big.Int // BVCONST only
	name   string   // VAR & APPLY only
}

// ID returns the builder-assigned identifier of the formula.
func (f *Formula) ID() int { return f.id }

// Op returns the head operator.
func (f *Formula) Op() Op { return f.op }

// Sort returns the sort of the formula.
func (f *Formula) Sort() Sort { return f.sort }

// Width returns the bit width of the formula. Booleans have a width of one.
func (f *Formula) Width() uint { return f.sort.Width }

// IsBool returns true if the formula is boolean sorted.
func (f *Formula) IsBool() bool { return f.sort.Bool }

// Args returns the formula's children. The returned slice must not be modified.
func (f *Formula) Args() []*Formula { return f.args }

// NumArgs returns the number of children.
func (f *Formula) NumArgs() int { return len(f.args) }

// Arg returns the i-th child.
func (f *Formula) Arg(i int) *Formula { return f.args[i] }

// Name returns the name of a variable or uninterpreted function.
func (f *Formula) Name() string { return f.name }

// Bounds returns the inclusive high & low bit of an extraction.
func (f *Formula) Bounds() (hi, lo uint) {
	assert(f.op == EXTRACT, "bounds of non-extract: %s", f.op)
	return f.hi, f.lo
}

// Extension returns the number of bits added by a sign or zero extension.
func (f *Formula) Extension() uint {
	assert(f.op == SIGNEXT || f.op == ZEROEXT, "extension of non-extend: %s", f.op)
	return f.hi
}

// Value returns a copy of the value of a bit-vector constant.
func (f *Formula) Value() *big.Int {
	switch f.op {
	case BVCONST:
		return new(big.Int).Set(f.value)
	case TRUE:
		return big.NewInt(1)
	case FALSE:
		return big.NewInt(0)
	default:
		panic(fmt.Sprintf("value of non-constant: %s", f.op))
	}
}

// IsConst returns true if f is a boolean or bit-vector literal.
func (f *Formula) IsConst() bool {
	return f.op == BVCONST || f.op == TRUE || f.op == FALSE
}

// IsConstValue returns true if f is a bit-vector literal equal to v.
func (f *Formula) IsConstValue(v int64) bool {
	return f.op == BVCONST && f.value.Cmp(truncate(big.NewInt(v), f.sort.Width)) == 0
}

// IsZero returns true if f is the all-zeros bit-vector literal.
func (f *Formula) IsZero() bool { return f.IsConstValue(0) }

// IsAllOnes returns true if f is the all-ones bit-vector literal.
func (f *Formula) IsAllOnes() bool { return f.IsConstValue(-1) }

// IsVar returns true if f is a free variable.
func (f *Formula) IsVar() bool { return f.op == VAR }

// String returns an SMT-LIB like representation of the formula.
func (f *Formula) String() string {
	var buf bytes.Buffer
	f.write(&buf)
	return buf.String()
}

func (f *Formula) write(buf *bytes.Buffer) {
	switch f.op {
	case TRUE, FALSE:
		buf.WriteString(f.op.String())
		return
	case BVCONST:
		fmt.Fprintf(buf, "(const %s %d)", f.value.String(), f.sort.Width)
		return
	case VAR:
		buf.WriteString(f.name)
		return
	case APPLY:
		fmt.Fprintf(buf, "(%s", f.name)
	case EXTRACT:
		fmt.Fprintf(buf, "((_ extract %d %d)", f.hi, f.lo)
	case SIGNEXT, ZEROEXT:
		fmt.Fprintf(buf, "((_ %s %d)", f.op, f.hi)
	default:
		fmt.Fprintf(buf, "(%s", f.op)
	}
	for _, arg := range f.args {
		buf.WriteByte(' ')
		arg.write(buf)
	}
	buf.WriteByte(')')
}

// Builder constructs interned formulas. A Builder is not safe for concurrent use.
type Builder struct {
	m     map[formulaKey]*Formula
	nodes []*Formula
}

// NewBuilder returns a new instance of Builder.
func NewBuilder() *Builder {
	return &Builder{m: make(map[formulaKey]*Formula)}
}

// Len returns the number of distinct formulas created by the builder.
func (b *Builder) Len() int { return len(b.nodes) }

// Formula returns the formula with the given id, or nil if it does not exist.
func (b *Builder) Formula(id int) *Formula {
	if id < 0 || id >= len(b.nodes) {
		return nil
	}
	return b.nodes[id]
}

type formulaKey struct {
	op     Op
	sort   Sort
	hi, lo uint
	name   string
	value  string
	args   string
}

// intern returns the existing formula structurally equal to f, or registers f.
func (b *Builder) intern(f *Formula) *Formula {
	key := formulaKey{op: f.op, sort: f.sort, hi: f.hi, lo: f.lo, name: f.name}
	if f.value != nil {
		key.value = f.value.String()
	}
	if len(f.args) > 0 {
		buf := make([]byte, 0, 4*len(f.args))
		for _, arg := range f.args {
			buf = binary.LittleEndian.AppendUint32(buf, uint32(arg.id))
		}
		key.args = string(buf)
	}

	if other, ok := b.m[key]; ok {
		return other
	}
	f.id = len(b.nodes)
	b.nodes = append(b.nodes, f)
	b.m[key] = f
	return f
}

// True returns the boolean literal true.
func (b *Builder) True() *Formula {
	return b.intern(&Formula{op: TRUE, sort: BoolSort()})
}

// False returns the boolean literal false.
func (b *Builder) False() *Formula {
	return b.intern(&Formula{op: FALSE, sort: BoolSort()})
}

// Bool returns the boolean literal for v.
func (b *Builder) Bool(v bool) *Formula {
	if v {
		return b.True()
	}
	return b.False()
}

// Const returns a bit-vector literal of width w. The value is truncated to w bits.
func (b *Builder) Const(v *big.Int, w uint) *Formula {
	assert(w > 0, "zero width constant")
	return b.intern(&Formula{op: BVCONST, sort: BVSort(w), value: truncate(new(big.Int).Set(v), w)})
}

// ConstInt returns a bit-vector literal of width w from a signed value.
func (b *Builder) ConstInt(v int64, w uint) *Formula {
	return b.Const(big.NewInt(v), w)
}

// ConstUint returns a bit-vector literal of width w from an unsigned value.
func (b *Builder) ConstUint(v uint64, w uint) *Formula {
	return b.Const(new(big.Int).SetUint64(v), w)
}

// Var returns a free bit-vector variable.
func (b *Builder) Var(name string, w uint) *Formula {
	assert(w > 0, "zero width variable: %s", name)
	return b.intern(&Formula{op: VAR, sort: BVSort(w), name: name})
}

// BoolVar returns a free boolean variable.
func (b *Builder) BoolVar(name string) *Formula {
	return b.intern(&Formula{op: VAR, sort: BoolSort(), name: name})
}

// Apply returns an application of the uninterpreted function name.
// An application without arguments is a free variable.
func (b *Builder) Apply(name string, sort Sort, args ...*Formula) *Formula {
	if len(args) == 0 {
		return b.intern(&Formula{op: VAR, sort: sort, name: name})
	}
	return b.intern(&Formula{op: APPLY, sort: sort, name: name, args: append([]*Formula(nil), args...)})
}

// Not returns the boolean negation of x.
func (b *Builder) Not(x *Formula) *Formula { return b.Make(NOT, x) }

// And returns the conjunction of args.
func (b *Builder) And(args ...*Formula) *Formula { return b.Make(AND, args...) }

// Or returns the disjunction of args.
func (b *Builder) Or(args ...*Formula) *Formula { return b.Make(OR, args...) }

// Ite returns the if-then-else of cond, a & b.
func (b *Builder) Ite(cond, x, y *Formula) *Formula { return b.Make(ITE, cond, x, y) }

// Eq returns the equality of x & y.
func (b *Builder) Eq(x, y *Formula) *Formula { return b.Make(EQ, x, y) }

// Distinct returns the pairwise disequality of args.
func (b *Builder) Distinct(args ...*Formula) *Formula { return b.Make(DISTINCT, args...) }

// Binary returns op applied to x & y.
func (b *Builder) Binary(op Op, x, y *Formula) *Formula { return b.Make(op, x, y) }

// Concat returns the concatenation of args. The first argument holds the most significant bits.
func (b *Builder) Concat(args ...*Formula) *Formula { return b.Make(CONCAT, args...) }

// Extract returns bits hi down to lo (inclusive) of x.
// Extracting every bit of x returns x.
func (b *Builder) Extract(hi, lo uint, x *Formula) *Formula {
	assert(!x.IsBool(), "extract from boolean: %s", x)
	assert(hi >= lo && hi < x.Width(), "extract out of range: [%d:%d] of %d bits", hi, lo, x.Width())
	if lo == 0 && hi == x.Width()-1 {
		return x
	}
	return b.intern(&Formula{op: EXTRACT, sort: BVSort(hi - lo + 1), hi: hi, lo: lo, args: []*Formula{x}})
}

// ZeroExt returns x with n zero bits prepended.
func (b *Builder) ZeroExt(n uint, x *Formula) *Formula {
	return b.extend(ZEROEXT, n, x)
}

// SignExt returns x with n copies of its sign bit prepended.
func (b *Builder) SignExt(n uint, x *Formula) *Formula {
	return b.extend(SIGNEXT, n, x)
}

func (b *Builder) extend(op Op, n uint, x *Formula) *Formula {
	assert(!x.IsBool(), "%s of boolean: %s", op, x)
	if n == 0 {
		return x
	}
	return b.intern(&Formula{op: op, sort: BVSort(x.Width() + n), hi: n, args: []*Formula{x}})
}

// Rebuild returns a formula with the same head as f applied to args.
func (b *Builder) Rebuild(f *Formula, args []*Formula) *Formula {
	switch f.op {
	case TRUE, FALSE, BVCONST, VAR:
		return f
	case APPLY:
		return b.Apply(f.name, f.sort, args...)
	case EXTRACT:
		return b.Extract(f.hi, f.lo, args[0])
	case SIGNEXT, ZEROEXT:
		return b.extend(f.op, f.hi, args[0])
	default:
		return b.Make(f.op, args...)
	}
}

// Make returns op applied to args. It panics if the arguments are ill-sorted.
// Operators with parameters or names must use their dedicated constructors.
func (b *Builder) Make(op Op, args ...*Formula) *Formula {
	var sort Sort
	switch {
	case op == NOT:
		assert(len(args) == 1 && args[0].IsBool(), "not: expected one boolean argument")
		sort = BoolSort()

	case op == AND || op == OR:
		if len(args) == 0 {
			return b.Bool(op == AND)
		} else if len(args) == 1 {
			return args[0]
		}
		for _, arg := range args {
			assert(arg.IsBool(), "%s: non-boolean argument: %s", op, arg)
		}
		sort = BoolSort()

	case op == XOR:
		assert(len(args) >= 2, "xor: expected at least two arguments")
		for _, arg := range args {
			assert(arg.IsBool(), "xor: non-boolean argument: %s", arg)
		}
		sort = BoolSort()

	case op == ITE:
		assert(len(args) == 3, "ite: expected three arguments")
		assert(args[0].IsBool(), "ite: non-boolean condition: %s", args[0])
		assert(args[1].sort == args[2].sort, "ite: arm sort mismatch: %s != %s", args[1].sort, args[2].sort)
		sort = args[1].sort

	case op == EQ || op == DISTINCT:
		assert(len(args) >= 2, "%s: expected at least two arguments", op)
		assert(op == DISTINCT || len(args) == 2, "=: expected two arguments")
		for _, arg := range args[1:] {
			assert(arg.sort == args[0].sort, "%s: sort mismatch: %s != %s", op, arg.sort, args[0].sort)
		}
		sort = BoolSort()

	case op == BVNOT || op == BVNEG:
		assert(len(args) == 1 && !args[0].IsBool(), "%s: expected one bit-vector argument", op)
		sort = args[0].sort

	case op == BVADD || op == BVMUL || op == BVAND || op == BVOR || op == BVXOR:
		assert(len(args) >= 1, "%s: expected at least one argument", op)
		if len(args) == 1 {
			return args[0]
		}
		sort = b.checkBV(op, args)

	case op.IsArithmetic():
		assert(len(args) == 2, "%s: expected two arguments", op)
		sort = b.checkBV(op, args)

	case op.IsCompare():
		assert(len(args) == 2, "%s: expected two arguments", op)
		b.checkBV(op, args)
		sort = BoolSort()

	case op == CONCAT:
		assert(len(args) >= 1, "concat: expected at least one argument")
		if len(args) == 1 {
			return args[0]
		}
		var w uint
		for _, arg := range args {
			assert(!arg.IsBool(), "concat: boolean argument: %s", arg)
			w += arg.Width()
		}
		sort = BVSort(w)

	default:
		panic(fmt.Sprintf("Builder.Make: unexpected operation: %s", op))
	}

	return b.intern(&Formula{op: op, sort: sort, args: append([]*Formula(nil), args...)})
}

// checkBV asserts that args are bit-vectors of equal width and returns their sort.
func (b *Builder) checkBV(op Op, args []*Formula) Sort {
	for _, arg := range args {
		assert(!arg.IsBool(), "%s: boolean argument: %s", op, arg)
		assert(arg.Width() == args[0].Width(), "%s: width mismatch: %d != %d", op, arg.Width(), args[0].Width())
	}
	return args[0].sort
}

// truncate reduces v modulo 2^w in place and returns it.
func truncate(v *big.Int, w uint) *big.Int {
	return v.And(v, mask(w))
}

// mask returns 2^w-1.
func mask(w uint) *big.Int {
	m := new(big.Int).Lsh(big.NewInt(1), w)
	return m.Sub(m, big.NewInt(1))
}
