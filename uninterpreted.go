package lift

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
)

// FPFunc describes an uninterpreted floating-point operation named
// fp_<op>_<width>. Operands and results are IEEE-754 bit patterns.
type FPFunc struct {
	Op    string
	Width uint
}

// fpCompareOps lists the floating-point operations returning a boolean.
var fpCompareOps = map[string]bool{"lt": true, "le": true, "gt": true, "ge": true, "ne": true}

// ParseFPFunc parses a floating-point function name.
func ParseFPFunc(name string) (FPFunc, bool) {
	a := strings.Split(name, "_")
	if len(a) != 3 || a[0] != "fp" {
		return FPFunc{}, false
	}
	w, err := strconv.ParseUint(a[2], 10, 32)
	if err != nil {
		return FPFunc{}, false
	}
	return FPFunc{Op: a[1], Width: uint(w)}, true
}

// Name returns the function name.
func (fn FPFunc) Name() string {
	return fmt.Sprintf("fp_%s_%d", fn.Op, fn.Width)
}

// IsCompare returns true if the operation yields a boolean.
func (fn FPFunc) IsCompare() bool { return fpCompareOps[fn.Op] }

// FP returns an application of the floating-point operation op on w-bit floats.
func (b *Builder) FP(op string, w uint, args ...*Formula) *Formula {
	fn := FPFunc{Op: op, Width: w}
	sort := BVSort(w)
	if fn.IsCompare() {
		sort = BoolSort()
	}
	return b.Apply(fn.Name(), sort, args...)
}

// FPLiteral returns the floating-point literal v as a w-bit float.
func (b *Builder) FPLiteral(v float64, w uint) *Formula {
	return b.FP("literal", w, b.Const(fpBits(v, w), w))
}

// Saturation describes a saturating conversion named
// Saturate_<s|u><in>_to_<s|u><out>.
type Saturation struct {
	InSigned  bool
	InWidth   uint
	OutSigned bool
	OutWidth  uint
}

// ParseSaturation parses a saturating conversion name.
func ParseSaturation(name string) (Saturation, bool) {
	a := strings.Split(name, "_")
	if len(a) != 4 || a[0] != "Saturate" || a[2] != "to" {
		return Saturation{}, false
	}
	inSigned, inWidth, ok := parseIntType(a[1])
	if !ok {
		return Saturation{}, false
	}
	outSigned, outWidth, ok := parseIntType(a[3])
	if !ok {
		return Saturation{}, false
	}
	return Saturation{InSigned: inSigned, InWidth: inWidth, OutSigned: outSigned, OutWidth: outWidth}, true
}

func parseIntType(s string) (signed bool, w uint, ok bool) {
	if len(s) < 2 || (s[0] != 's' && s[0] != 'u') {
		return false, 0, false
	}
	n, err := strconv.ParseUint(s[1:], 10, 32)
	if err != nil || n == 0 {
		return false, 0, false
	}
	return s[0] == 's', uint(n), true
}

// Name returns the function name.
func (s Saturation) Name() string {
	return fmt.Sprintf("Saturate_%s_to_%s", intTypeName(s.InSigned, s.InWidth), intTypeName(s.OutSigned, s.OutWidth))
}

func intTypeName(signed bool, w uint) string {
	if signed {
		return fmt.Sprintf("s%d", w)
	}
	return fmt.Sprintf("u%d", w)
}

// bounds returns the inclusive range of a signed or unsigned w-bit integer.
func intBounds(signed bool, w uint) (min, max *big.Int) {
	if signed {
		max = new(big.Int).Lsh(big.NewInt(1), w-1)
		min = new(big.Int).Neg(max)
		return min, max.Sub(max, big.NewInt(1))
	}
	return big.NewInt(0), mask(w)
}

// eval clamps the InWidth-bit value x into the output range.
func (s Saturation) eval(x *big.Int) *big.Int {
	v := new(big.Int).Set(x)
	if s.InSigned {
		v = toSigned(x, s.InWidth)
	}
	min, max := intBounds(s.OutSigned, s.OutWidth)
	if v.Cmp(max) > 0 {
		v = max
	} else if v.Cmp(min) < 0 {
		v = min
	}
	return truncate(new(big.Int).Set(v), s.OutWidth)
}

// Expand returns a formula computing the saturating conversion of x without
// the uninterpreted function. Clamps that can never apply are omitted.
func (s Saturation) Expand(b *Builder, x *Formula) *Formula {
	assert(x.Width() == s.InWidth, "saturate: operand width mismatch: %d != %d", x.Width(), s.InWidth)

	gt, lt := BVUGT, BVULT
	if s.InSigned {
		gt, lt = BVSGT, BVSLT
	}

	inMin, inMax := intBounds(s.InSigned, s.InWidth)
	outMin, outMax := intBounds(s.OutSigned, s.OutWidth)

	y := x
	if outMin.Cmp(inMin) > 0 {
		lo := b.Const(outMin, s.InWidth)
		y = b.Ite(b.Binary(lt, x, lo), lo, y)
	}
	if outMax.Cmp(inMax) < 0 {
		hi := b.Const(outMax, s.InWidth)
		y = b.Ite(b.Binary(gt, x, hi), hi, y)
	}

	switch {
	case s.OutWidth < s.InWidth:
		return b.Extract(s.OutWidth-1, 0, y)
	case s.OutWidth > s.InWidth && s.InSigned:
		return b.SignExt(s.OutWidth-s.InWidth, y)
	case s.OutWidth > s.InWidth:
		return b.ZeroExt(s.OutWidth-s.InWidth, y)
	default:
		return y
	}
}

// ParseAbs parses an absolute value function name: Abs_i<w> or Abs_f<w>.
func ParseAbs(name string) (isInt bool, ok bool) {
	a := strings.Split(name, "_")
	if len(a) != 2 || a[0] != "Abs" || len(a[1]) < 1 {
		return false, false
	}
	switch a[1][0] {
	case 'i':
		return true, true
	case 'f':
		return false, true
	default:
		return false, false
	}
}

// AbsName returns the absolute value function name for a w-bit type.
func AbsName(isInt bool, w uint) string {
	if isInt {
		return fmt.Sprintf("Abs_i%d", w)
	}
	return fmt.Sprintf("Abs_f%d", w)
}

// ExpandAbs returns a formula computing the absolute value of x without the
// uninterpreted function.
func ExpandAbs(b *Builder, isInt bool, x *Formula) *Formula {
	w := x.Width()
	if isInt {
		return b.Ite(b.Binary(BVSLT, x, b.ConstInt(0, w)), b.Make(BVNEG, x), x)
	}
	return b.Ite(b.FP("lt", w, x, b.FPLiteral(0, w)), b.FP("neg", w, x), x)
}

// evalFP evaluates a floating-point operation on bit patterns.
func evalFP(op string, w uint, args []*big.Int) (*big.Int, error) {
	if w != Width32 && w != Width64 {
		return nil, fmt.Errorf("unsupported float width: %d", w)
	}

	switch op {
	case "literal":
		return args[0], nil
	case "neg":
		return fpNeg(w, args[0]), nil
	case "add", "sub", "mul", "div":
		return fpArith(op, w, args[0], args[1]), nil
	case "lt":
		return boolInt(fpLess(w, args[0], args[1])), nil
	case "le":
		x, y := fpFloat(w, args[0]), fpFloat(w, args[1])
		return boolInt(x <= y), nil
	case "gt":
		return boolInt(fpLess(w, args[1], args[0])), nil
	case "ge":
		x, y := fpFloat(w, args[0]), fpFloat(w, args[1])
		return boolInt(x >= y), nil
	case "ne":
		x, y := fpFloat(w, args[0]), fpFloat(w, args[1])
		return boolInt(!math.IsNaN(x) && !math.IsNaN(y) && x != y), nil
	default:
		return nil, fmt.Errorf("unknown float operation: %s", op)
	}
}

func fpArith(op string, w uint, x, y *big.Int) *big.Int {
	if w == Width32 {
		a, b := math.Float32frombits(uint32(x.Uint64())), math.Float32frombits(uint32(y.Uint64()))
		var v float32
		switch op {
		case "add":
			v = a + b
		case "sub":
			v = a - b
		case "mul":
			v = a * b
		case "div":
			v = a / b
		}
		return new(big.Int).SetUint64(uint64(math.Float32bits(v)))
	}

	a, b := math.Float64frombits(x.Uint64()), math.Float64frombits(y.Uint64())
	var v float64
	switch op {
	case "add":
		v = a + b
	case "sub":
		v = a - b
	case "mul":
		v = a * b
	case "div":
		v = a / b
	}
	return new(big.Int).SetUint64(math.Float64bits(v))
}

// fpNeg flips the sign bit of a w-bit float.
func fpNeg(w uint, x *big.Int) *big.Int {
	return new(big.Int).SetBit(x, int(w-1), x.Bit(int(w-1))^1)
}

func fpLess(w uint, x, y *big.Int) bool {
	return fpFloat(w, x) < fpFloat(w, y)
}

// fpFloat returns the value of a w-bit float bit pattern.
func fpFloat(w uint, x *big.Int) float64 {
	if w == Width32 {
		return float64(math.Float32frombits(uint32(x.Uint64())))
	}
	return math.Float64frombits(x.Uint64())
}

// fpBits returns the bit pattern of v as a w-bit float.
func fpBits(v float64, w uint) *big.Int {
	if w == Width32 {
		return new(big.Int).SetUint64(uint64(math.Float32bits(float32(v))))
	}
	return new(big.Int).SetUint64(math.Float64bits(v))
}
