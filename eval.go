package lift

import (
	"fmt"
	"math/big"
)

// Evaluator evaluates formulas using known variable values.
type Evaluator struct {
	m    map[string]*big.Int // mapping of variable name to value
	memo map[*Formula]*big.Int
}

// NewEvaluator returns a new instance of Evaluator with the given variable bindings.
// Boolean variables are bound to 0 or 1.
func NewEvaluator(bindings map[string]*big.Int) *Evaluator {
	return &Evaluator{m: bindings, memo: make(map[*Formula]*big.Int)}
}

// Evaluate evaluates f to a constant. Booleans evaluate to 0 or 1.
// Returns an error if an unbound variable or unknown function is encountered.
func (e *Evaluator) Evaluate(f *Formula) (*big.Int, error) {
	if v, ok := e.memo[f]; ok {
		return v, nil
	}

	var v *big.Int
	switch f.op {
	case TRUE, FALSE, BVCONST:
		v = f.Value()
	case VAR:
		value, ok := e.m[f.name]
		if !ok {
			return nil, fmt.Errorf("variable not bound: %s", f.name)
		}
		v = truncate(new(big.Int).Set(value), f.Width())
	case ITE:
		// Only the selected arm is evaluated.
		cond, err := e.Evaluate(f.args[0])
		if err != nil {
			return nil, err
		}
		arm := f.args[2]
		if cond.Sign() != 0 {
			arm = f.args[1]
		}
		if v, err = e.Evaluate(arm); err != nil {
			return nil, err
		}
	default:
		args := make([]*big.Int, len(f.args))
		for i, arg := range f.args {
			value, err := e.Evaluate(arg)
			if err != nil {
				return nil, err
			}
			args[i] = value
		}

		var err error
		if v, err = evalFormula(f, args); err != nil {
			return nil, err
		}
	}

	e.memo[f] = v
	return v, nil
}

// evalFormula applies the head of f to concrete argument values.
func evalFormula(f *Formula, args []*big.Int) (*big.Int, error) {
	switch f.op {
	case NOT:
		return boolInt(args[0].Sign() == 0), nil
	case AND:
		for _, arg := range args {
			if arg.Sign() == 0 {
				return big.NewInt(0), nil
			}
		}
		return big.NewInt(1), nil
	case OR:
		for _, arg := range args {
			if arg.Sign() != 0 {
				return big.NewInt(1), nil
			}
		}
		return big.NewInt(0), nil
	case XOR:
		var n int
		for _, arg := range args {
			if arg.Sign() != 0 {
				n++
			}
		}
		return boolInt(n%2 == 1), nil
	case ITE:
		if args[0].Sign() != 0 {
			return args[1], nil
		}
		return args[2], nil
	case EQ:
		return boolInt(args[0].Cmp(args[1]) == 0), nil
	case DISTINCT:
		for i := range args {
			for j := i + 1; j < len(args); j++ {
				if args[i].Cmp(args[j]) == 0 {
					return big.NewInt(0), nil
				}
			}
		}
		return big.NewInt(1), nil
	case BVNOT:
		return bvNot(f.Width(), args[0]), nil
	case BVNEG:
		return bvSub(f.Width(), big.NewInt(0), args[0]), nil
	case BVADD, BVMUL, BVAND, BVOR, BVXOR:
		// Associative operators fold left over all arguments.
		v := args[0]
		for _, arg := range args[1:] {
			v = bvBinary(f.op, f.Width(), v, arg)
		}
		return v, nil
	case CONCAT:
		v := new(big.Int)
		for i, arg := range args {
			v.Lsh(v, f.args[i].Width())
			v.Or(v, arg)
		}
		return v, nil
	case EXTRACT:
		v := new(big.Int).Rsh(args[0], f.lo)
		return truncate(v, f.hi-f.lo+1), nil
	case ZEROEXT:
		return args[0], nil
	case SIGNEXT:
		return truncate(toSigned(args[0], f.args[0].Width()), f.Width()), nil
	case APPLY:
		return evalApply(f, args)
	}

	if f.op.IsArithmetic() || f.op.IsCompare() {
		return bvBinary(f.op, f.args[0].Width(), args[0], args[1]), nil
	}
	return nil, fmt.Errorf("cannot evaluate operation: %s", f.op)
}

// evalApply evaluates the uninterpreted functions the lifter knows how to lower.
func evalApply(f *Formula, args []*big.Int) (*big.Int, error) {
	if fn, ok := ParseFPFunc(f.name); ok {
		return evalFP(fn.Op, fn.Width, args)
	} else if sat, ok := ParseSaturation(f.name); ok {
		return sat.eval(args[0]), nil
	} else if isInt, ok := ParseAbs(f.name); ok {
		if isInt {
			x := toSigned(args[0], f.Width())
			return truncate(x.Abs(x), f.Width()), nil
		}
		if fpLess(f.Width(), args[0], fpBits(0, f.Width())) {
			return fpNeg(f.Width(), args[0]), nil
		}
		return args[0], nil
	}
	return nil, fmt.Errorf("cannot evaluate uninterpreted function: %s", f.name)
}

// bvBinary computes a binary bit-vector operation on w-bit operands using
// SMT-LIB semantics, including the results defined for division by zero and
// for shift amounts of w or more.
func bvBinary(op Op, w uint, x, y *big.Int) *big.Int {
	switch op {
	case BVADD:
		return truncate(new(big.Int).Add(x, y), w)
	case BVSUB:
		return bvSub(w, x, y)
	case BVMUL:
		return truncate(new(big.Int).Mul(x, y), w)
	case BVUDIV:
		if y.Sign() == 0 {
			return mask(w)
		}
		return new(big.Int).Quo(x, y)
	case BVUREM:
		if y.Sign() == 0 {
			return new(big.Int).Set(x)
		}
		return new(big.Int).Rem(x, y)
	case BVSDIV:
		sx, sy := toSigned(x, w), toSigned(y, w)
		if sy.Sign() == 0 {
			if sx.Sign() < 0 {
				return big.NewInt(1)
			}
			return mask(w)
		}
		return truncate(new(big.Int).Quo(sx, sy), w)
	case BVSREM:
		sx, sy := toSigned(x, w), toSigned(y, w)
		if sy.Sign() == 0 {
			return new(big.Int).Set(x)
		}
		return truncate(new(big.Int).Rem(sx, sy), w)
	case BVSMOD:
		sx, sy := toSigned(x, w), toSigned(y, w)
		if sy.Sign() == 0 {
			return new(big.Int).Set(x)
		}
		r := new(big.Int).Rem(sx, sy)
		if r.Sign() != 0 && r.Sign() != sy.Sign() {
			r.Add(r, sy)
		}
		return truncate(r, w)
	case BVAND:
		return new(big.Int).And(x, y)
	case BVOR:
		return new(big.Int).Or(x, y)
	case BVXOR:
		return new(big.Int).Xor(x, y)
	case BVSHL:
		if !y.IsUint64() || y.Uint64() >= uint64(w) {
			return big.NewInt(0)
		}
		return truncate(new(big.Int).Lsh(x, uint(y.Uint64())), w)
	case BVLSHR:
		if !y.IsUint64() || y.Uint64() >= uint64(w) {
			return big.NewInt(0)
		}
		return new(big.Int).Rsh(x, uint(y.Uint64()))
	case BVASHR:
		n := uint(w - 1)
		if y.IsUint64() && y.Uint64() < uint64(w) {
			n = uint(y.Uint64())
		}
		return truncate(new(big.Int).Rsh(toSigned(x, w), n), w)
	case BVULT:
		return boolInt(x.Cmp(y) < 0)
	case BVULE:
		return boolInt(x.Cmp(y) <= 0)
	case BVUGT:
		return boolInt(x.Cmp(y) > 0)
	case BVUGE:
		return boolInt(x.Cmp(y) >= 0)
	case BVSLT:
		return boolInt(toSigned(x, w).Cmp(toSigned(y, w)) < 0)
	case BVSLE:
		return boolInt(toSigned(x, w).Cmp(toSigned(y, w)) <= 0)
	case BVSGT:
		return boolInt(toSigned(x, w).Cmp(toSigned(y, w)) > 0)
	case BVSGE:
		return boolInt(toSigned(x, w).Cmp(toSigned(y, w)) >= 0)
	default:
		panic(fmt.Sprintf("bvBinary: unexpected operation: %s", op))
	}
}

func bvSub(w uint, x, y *big.Int) *big.Int {
	return truncate(new(big.Int).Sub(x, y), w)
}

func bvNot(w uint, x *big.Int) *big.Int {
	return new(big.Int).Xor(x, mask(w))
}

// toSigned returns the two's complement interpretation of the w-bit value x.
func toSigned(x *big.Int, w uint) *big.Int {
	v := new(big.Int).Set(x)
	if w > 0 && x.Bit(int(w-1)) == 1 {
		v.Sub(v, new(big.Int).Lsh(big.NewInt(1), w))
	}
	return v
}

func boolInt(v bool) *big.Int {
	if v {
		return big.NewInt(1)
	}
	return big.NewInt(0)
}
