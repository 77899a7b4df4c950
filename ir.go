package lift

import (
	"bytes"
	"fmt"
	"math/big"
	"strings"

	"github.com/benbjohnson/immutable"
	"golang.org/x/tools/container/intsets"
)

// Node represents a node of the scalar IR.
type Node interface {
	// Bitwidth returns the declared width of the value produced by the node.
	Bitwidth() uint

	String() string
	node()
}

func (*Constant) node()    {}
func (*FPConstant) node()  {}
func (*LiveIn) node()      {}
func (*Instruction) node() {}
func (Slice) node()        {}

// Opcode represents a scalar IR operation.
type Opcode int

// Instruction operations.
const (
	binary_opcode_begin = Opcode(iota)
	Add
	Sub
	Mul
	UDiv
	SDiv
	URem
	SRem
	Shl
	LShr
	AShr
	And
	Or
	Xor
	FAdd
	FSub
	FMul
	FDiv
	binary_opcode_end

	compare_opcode_begin
	Ult
	Ule
	Ugt
	Uge
	Slt
	Sle
	Sgt
	Sge
	Eq
	Ne
	Folt
	Fole
	Fogt
	Foge
	Fone
	compare_opcode_end

	Select
	ZExt
	SExt
	Trunc
	FNeg
)

var opcodes = [...]string{
	Add:    "Add",
	Sub:    "Sub",
	Mul:    "Mul",
	UDiv:   "UDiv",
	SDiv:   "SDiv",
	URem:   "URem",
	SRem:   "SRem",
	Shl:    "Shl",
	LShr:   "LShr",
	AShr:   "AShr",
	And:    "And",
	Or:     "Or",
	Xor:    "Xor",
	FAdd:   "FAdd",
	FSub:   "FSub",
	FMul:   "FMul",
	FDiv:   "FDiv",
	Ult:    "Ult",
	Ule:    "Ule",
	Ugt:    "Ugt",
	Uge:    "Uge",
	Slt:    "Slt",
	Sle:    "Sle",
	Sgt:    "Sgt",
	Sge:    "Sge",
	Eq:     "Eq",
	Ne:     "Ne",
	Folt:   "Folt",
	Fole:   "Fole",
	Fogt:   "Fogt",
	Foge:   "Foge",
	Fone:   "Fone",
	Select: "Select",
	ZExt:   "ZExt",
	SExt:   "SExt",
	Trunc:  "Trunc",
	FNeg:   "FNeg",
}

// String returns the string representation of the opcode.
func (op Opcode) String() string {
	if op >= 0 && op < Opcode(len(opcodes)) && opcodes[op] != "" {
		return opcodes[op]
	}
	return fmt.Sprintf("Opcode<%d>", op)
}

// IsBinary returns true if op takes two operands of the result width.
func (op Opcode) IsBinary() bool {
	return op > binary_opcode_begin && op < binary_opcode_end
}

// IsCompare returns true if op compares two operands and produces one bit.
func (op Opcode) IsCompare() bool {
	return op > compare_opcode_begin && op < compare_opcode_end
}

// IsCast returns true if op changes the width of its operand.
func (op Opcode) IsCast() bool {
	return op == ZExt || op == SExt || op == Trunc
}

// IsFloat returns true if op operates on floating-point values.
func (op Opcode) IsFloat() bool {
	switch op {
	case FAdd, FSub, FMul, FDiv, FNeg, Folt, Fole, Fogt, Foge, Fone:
		return true
	default:
		return false
	}
}

// intOps maps integer opcodes to the formula operator with the same semantics.
var intOps = map[Opcode]Op{
	Add:  BVADD,
	Sub:  BVSUB,
	Mul:  BVMUL,
	UDiv: BVUDIV,
	SDiv: BVSDIV,
	URem: BVUREM,
	SRem: BVSREM,
	Shl:  BVSHL,
	LShr: BVLSHR,
	AShr: BVASHR,
	And:  BVAND,
	Or:   BVOR,
	Xor:  BVXOR,
	Ult:  BVULT,
	Ule:  BVULE,
	Ugt:  BVUGT,
	Uge:  BVUGE,
	Slt:  BVSLT,
	Sle:  BVSLE,
	Sgt:  BVSGT,
	Sge:  BVSGE,
}

// floatOps maps floating-point function operations to opcodes.
var floatOps = map[string]Opcode{
	"neg": FNeg,
	"add": FAdd,
	"sub": FSub,
	"mul": FMul,
	"div": FDiv,
	"lt":  Folt,
	"le":  Fole,
	"gt":  Fogt,
	"ge":  Foge,
	"ne":  Fone,
}

// Constant represents an integer literal.
type Constant struct {
	Value uint64
	Width uint
}

// Bitwidth returns the width of the constant.
func (n *Constant) Bitwidth() uint { return n.Width }

// String returns the string representation of the constant.
func (n *Constant) String() string {
	return fmt.Sprintf("i%d %d", n.Width, n.Value)
}

// FPConstant represents a floating-point literal.
type FPConstant struct {
	Value float64
	Width uint
}

// Bitwidth returns the width of the constant.
func (n *FPConstant) Bitwidth() uint { return n.Width }

// String returns the string representation of the constant.
func (n *FPConstant) String() string {
	return fmt.Sprintf("f%d %v", n.Width, n.Value)
}

// LiveIn represents bits [Lo, Hi) of an input variable, zero-extended to Width.
type LiveIn struct {
	Var   string
	Lo    uint
	Hi    uint
	Width uint
}

// Bitwidth returns the width of the value.
func (n *LiveIn) Bitwidth() uint { return n.Width }

// String returns the string representation of the live-in.
func (n *LiveIn) String() string {
	return fmt.Sprintf("LiveIn i%d %s[%d:%d]", n.Width, n.Var, n.Lo, n.Hi)
}

// Instruction represents an operation on previously defined nodes.
type Instruction struct {
	Op    Opcode
	Width uint
	Args  []int
}

// Bitwidth returns the width of the result.
func (n *Instruction) Bitwidth() uint { return n.Width }

// String returns the string representation of the instruction.
func (n *Instruction) String() string {
	args := make([]string, len(n.Args))
	for i, arg := range n.Args {
		args[i] = fmt.Sprintf("%%%d", arg)
	}
	return fmt.Sprintf("%s i%d %s", n.Op, n.Width, strings.Join(args, ", "))
}

// DAG represents a table of IR nodes keyed by id. Ids are assigned in
// increasing order and are never reused.
type DAG struct {
	nodes  *immutable.SortedMap
	nextID int
}

// NewDAG returns a new, empty DAG.
func NewDAG() *DAG {
	return &DAG{nodes: immutable.NewSortedMap(&intComparer{})}
}

// Add inserts n and returns its id.
func (d *DAG) Add(n Node) int {
	id := d.nextID
	d.nextID++
	d.nodes = d.nodes.Set(id, n)
	return id
}

// Node returns the node with the given id or nil if it does not exist.
func (d *DAG) Node(id int) Node {
	if v, ok := d.nodes.Get(id); ok {
		return v.(Node)
	}
	return nil
}

// Replace overwrites the node stored under an existing id.
func (d *DAG) Replace(id int, n Node) {
	_, ok := d.nodes.Get(id)
	assert(ok, "replace of missing node: %%%d", id)
	d.nodes = d.nodes.Set(id, n)
}

// Delete removes the node with the given id.
func (d *DAG) Delete(id int) {
	d.nodes = d.nodes.Delete(id)
}

// Len returns the number of nodes.
func (d *DAG) Len() int {
	return d.nodes.Len()
}

// Each calls fn for every node in order of increasing id.
func (d *DAG) Each(fn func(id int, n Node)) {
	itr := d.nodes.Iterator()
	for !itr.Done() {
		k, v := itr.Next()
		fn(k.(int), v.(Node))
	}
}

// IDs returns the ids of all nodes in increasing order.
func (d *DAG) IDs() []int {
	ids := make([]int, 0, d.Len())
	d.Each(func(id int, _ Node) { ids = append(ids, id) })
	return ids
}

// Clone returns a copy of the DAG. Later changes to either copy are not
// visible in the other.
func (d *DAG) Clone() *DAG {
	other := *d
	return &other
}

// Reachable returns the set of node ids reachable from roots, including the roots.
func (d *DAG) Reachable(roots ...int) *intsets.Sparse {
	var set intsets.Sparse
	stack := append([]int(nil), roots...)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !set.Insert(id) {
			continue
		}
		if inst, ok := d.Node(id).(*Instruction); ok {
			stack = append(stack, inst.Args...)
		}
	}
	return &set
}

// Prune returns a copy of the DAG containing only the nodes reachable from roots.
func (d *DAG) Prune(roots ...int) *DAG {
	live := d.Reachable(roots...)
	other := d.Clone()
	d.Each(func(id int, _ Node) {
		if !live.Has(id) {
			other.Delete(id)
		}
	})
	return other
}

// String returns a textual listing of every node.
func (d *DAG) String() string {
	var buf bytes.Buffer
	d.Each(func(id int, n Node) {
		fmt.Fprintf(&buf, "%%%d = %s\n", id, n)
	})
	return buf.String()
}

// Evaluate computes the value of node id given the values of the input
// variables. Values are returned zero-extended to the node's width.
func (d *DAG) Evaluate(id int, bindings map[string]*big.Int) (*big.Int, error) {
	e := &dagEvaluator{dag: d, bindings: bindings, memo: make(map[int]*big.Int)}
	return e.eval(id)
}

type dagEvaluator struct {
	dag      *DAG
	bindings map[string]*big.Int
	memo     map[int]*big.Int
}

func (e *dagEvaluator) eval(id int) (*big.Int, error) {
	if v, ok := e.memo[id]; ok {
		return v, nil
	}

	var v *big.Int
	switch n := e.dag.Node(id).(type) {
	case nil:
		return nil, fmt.Errorf("node not found: %%%d", id)
	case *Constant:
		v = new(big.Int).SetUint64(n.Value)
	case *FPConstant:
		v = fpBits(n.Value, n.Width)
	case *LiveIn:
		value, ok := e.bindings[n.Var]
		if !ok {
			return nil, fmt.Errorf("variable not bound: %s", n.Var)
		}
		v = truncate(new(big.Int).Rsh(value, n.Lo), n.Hi-n.Lo)
	case Slice:
		return nil, fmt.Errorf("unresolved slice: %%%d = %s", id, n)
	case *Instruction:
		args := make([]*big.Int, len(n.Args))
		for i, arg := range n.Args {
			value, err := e.eval(arg)
			if err != nil {
				return nil, err
			}
			args[i] = value
		}

		var err error
		if v, err = e.evalInstruction(n, args); err != nil {
			return nil, err
		}
	}

	e.memo[id] = v
	return v, nil
}

func (e *dagEvaluator) evalInstruction(n *Instruction, args []*big.Int) (*big.Int, error) {
	argWidth := func(i int) uint {
		return e.dag.Node(n.Args[i]).Bitwidth()
	}

	switch n.Op {
	case Eq:
		return boolInt(args[0].Cmp(args[1]) == 0), nil
	case Ne:
		return boolInt(args[0].Cmp(args[1]) != 0), nil
	case Select:
		if args[0].Sign() != 0 {
			return args[1], nil
		}
		return args[2], nil
	case ZExt:
		return args[0], nil
	case SExt:
		return truncate(toSigned(args[0], argWidth(0)), n.Width), nil
	case Trunc:
		return truncate(new(big.Int).Set(args[0]), n.Width), nil
	case FNeg:
		return evalFP("neg", n.Width, args)
	case FAdd, FSub, FMul, FDiv:
		return evalFP(strings.ToLower(n.Op.String()[1:]), n.Width, args)
	case Folt, Fole, Fogt, Foge, Fone:
		return evalFP(strings.ToLower(n.Op.String()[2:]), argWidth(0), args)
	}

	if op, ok := intOps[n.Op]; ok {
		return bvBinary(op, argWidth(0), args[0], args[1]), nil
	}
	return nil, fmt.Errorf("cannot evaluate opcode: %s", n.Op)
}

// intComparer compares two integers. Implements immutable.Comparer.
type intComparer struct{}

// Compare returns -1 if a is less than b, returns 1 if a is greater than b,
// and returns 0 if a is equal to b. Panic if a or b is not an int.
func (c *intComparer) Compare(a, b interface{}) int {
	if i, j := a.(int), b.(int); i < j {
		return -1
	} else if i > j {
		return 1
	}
	return 0
}
