package lift_test

import (
	"math"
	"math/big"
	"testing"

	"github.com/benbjohnson/lift"
)

func TestEvaluator_Evaluate(t *testing.T) {
	b := lift.NewBuilder()
	x, y := b.Var("x", 8), b.Var("y", 8)

	for _, tt := range []struct {
		name string
		f    *lift.Formula
		x, y uint64
		want uint64
	}{
		{"Add", b.Binary(lift.BVADD, x, y), 200, 100, 44},
		{"Sub", b.Binary(lift.BVSUB, x, y), 1, 2, 255},
		{"Mul", b.Binary(lift.BVMUL, x, y), 16, 17, 16},
		{"UDiv", b.Binary(lift.BVUDIV, x, y), 200, 7, 28},
		{"UDivByZero", b.Binary(lift.BVUDIV, x, y), 5, 0, 255},
		{"URemByZero", b.Binary(lift.BVUREM, x, y), 5, 0, 5},
		{"SDiv", b.Binary(lift.BVSDIV, x, y), 0xF9, 2, 0xFD},          // -7 / 2 = -3
		{"SDivByZeroNeg", b.Binary(lift.BVSDIV, x, y), 0xF9, 0, 1},    // -7 / 0 = 1
		{"SDivByZeroPos", b.Binary(lift.BVSDIV, x, y), 7, 0, 0xFF},    // 7 / 0 = -1
		{"SRem", b.Binary(lift.BVSREM, x, y), 0xF9, 2, 0xFF},          // -7 % 2 = -1
		{"SMod", b.Binary(lift.BVSMOD, x, y), 0xF9, 2, 1},             // -7 mod 2 = 1
		{"ShlOut", b.Binary(lift.BVSHL, x, y), 1, 8, 0},
		{"Shl", b.Binary(lift.BVSHL, x, y), 0x81, 1, 0x02},
		{"LShrOut", b.Binary(lift.BVLSHR, x, y), 0x80, 9, 0},
		{"AShr", b.Binary(lift.BVASHR, x, y), 0x80, 3, 0xF0},
		{"AShrOut", b.Binary(lift.BVASHR, x, y), 0x80, 200, 0xFF},
		{"Not", b.Make(lift.BVNOT, x), 0x0F, 0, 0xF0},
		{"Neg", b.Make(lift.BVNEG, x), 1, 0, 0xFF},
		{"SLT", b.Binary(lift.BVSLT, x, y), 0xFF, 0, 1},
		{"ULT", b.Binary(lift.BVULT, x, y), 0xFF, 0, 0},
		{"Concat", b.Concat(x, y), 0x12, 0x34, 0x1234},
		{"Extract", b.Extract(6, 3, x), 0x78, 0, 0xF},
		{"ZeroExt", b.ZeroExt(8, x), 0x80, 0, 0x80},
		{"SignExt", b.SignExt(8, x), 0x80, 0, 0xFF80},
		{"Ite", b.Ite(b.Eq(x, y), b.ConstInt(1, 8), b.ConstInt(2, 8)), 3, 4, 2},
		{"Distinct", b.Distinct(x, y, b.ConstInt(3, 8)), 1, 2, 1},
		{"DistinctEqual", b.Distinct(x, y, b.ConstInt(3, 8)), 1, 3, 0},
	} {
		t.Run(tt.name, func(t *testing.T) {
			e := lift.NewEvaluator(map[string]*big.Int{
				"x": new(big.Int).SetUint64(tt.x),
				"y": new(big.Int).SetUint64(tt.y),
			})
			if v, err := e.Evaluate(tt.f); err != nil {
				t.Fatal(err)
			} else if v.Uint64() != tt.want {
				t.Fatalf("unexpected value: %#x, want %#x", v.Uint64(), tt.want)
			}
		})
	}
}

func TestEvaluator_Evaluate_Unbound(t *testing.T) {
	b := lift.NewBuilder()
	e := lift.NewEvaluator(nil)
	if _, err := e.Evaluate(b.Var("x", 8)); err == nil || err.Error() != "variable not bound: x" {
		t.Fatalf("unexpected error: %v", err)
	}
}

// Ensure that the untaken arm of a conditional is not evaluated.
func TestEvaluator_Evaluate_IteLazy(t *testing.T) {
	b := lift.NewBuilder()
	f := b.Ite(b.True(), b.ConstInt(1, 8), b.Var("unbound", 8))
	if v, err := lift.NewEvaluator(nil).Evaluate(f); err != nil {
		t.Fatal(err)
	} else if v.Int64() != 1 {
		t.Fatalf("unexpected value: %s", v)
	}
}

func TestEvaluator_Evaluate_Uninterpreted(t *testing.T) {
	b := lift.NewBuilder()
	x := b.Var("x", 16)

	eval := func(t *testing.T, f *lift.Formula, x uint64) uint64 {
		t.Helper()
		v, err := lift.NewEvaluator(map[string]*big.Int{"x": new(big.Int).SetUint64(x)}).Evaluate(f)
		if err != nil {
			t.Fatal(err)
		}
		return v.Uint64()
	}

	t.Run("Saturate", func(t *testing.T) {
		f := b.Apply("Saturate_s16_to_u8", lift.BVSort(8), x)
		for in, want := range map[uint64]uint64{0xFFFF: 0, 0x7FFF: 0xFF, 42: 42} {
			if got := eval(t, f, in); got != want {
				t.Fatalf("saturate(%#x)=%#x, want %#x", in, got, want)
			}
		}
	})

	t.Run("AbsInt", func(t *testing.T) {
		f := b.Apply(lift.AbsName(true, 16), lift.BVSort(16), x)
		if got := eval(t, f, 0xFFFE); got != 2 {
			t.Fatalf("unexpected value: %d", got)
		}
	})

	t.Run("FPAdd", func(t *testing.T) {
		v := b.Var("v", 32)
		f := b.FP("add", 32, v, b.FPLiteral(1.5, 32))
		e := lift.NewEvaluator(map[string]*big.Int{"v": new(big.Int).SetUint64(uint64(math.Float32bits(2.25)))})
		if got, err := e.Evaluate(f); err != nil {
			t.Fatal(err)
		} else if math.Float32frombits(uint32(got.Uint64())) != 3.75 {
			t.Fatalf("unexpected value: %#x", got.Uint64())
		}
	})

	t.Run("FPCompare", func(t *testing.T) {
		v := b.Var("v", 64)
		f := b.FP("lt", 64, v, b.FPLiteral(0, 64))
		if !f.IsBool() {
			t.Fatal("expected boolean")
		}
		e := lift.NewEvaluator(map[string]*big.Int{"v": new(big.Int).SetUint64(math.Float64bits(-1))})
		if got, err := e.Evaluate(f); err != nil {
			t.Fatal(err)
		} else if got.Int64() != 1 {
			t.Fatalf("unexpected value: %s", got)
		}
	})

	t.Run("Unknown", func(t *testing.T) {
		f := b.Apply("frobnicate", lift.BVSort(16), x)
		e := lift.NewEvaluator(map[string]*big.Int{"x": big.NewInt(1)})
		if _, err := e.Evaluate(f); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestSaturation_Expand(t *testing.T) {
	for _, name := range []string{
		"Saturate_s16_to_u8",
		"Saturate_s16_to_s8",
		"Saturate_u16_to_s8",
		"Saturate_u8_to_s16",
		"Saturate_s8_to_u16",
		"Saturate_u8_to_u16",
	} {
		t.Run(name, func(t *testing.T) {
			sat, ok := lift.ParseSaturation(name)
			if !ok {
				t.Fatal("expected saturation")
			} else if sat.Name() != name {
				t.Fatalf("unexpected name: %s", sat.Name())
			}

			b := lift.NewBuilder()
			x := b.Var("x", sat.InWidth)
			f, g := b.Apply(name, lift.BVSort(sat.OutWidth), x), sat.Expand(b, x)

			for i := uint64(0); i < 1<<sat.InWidth; i += 7 {
				bindings := map[string]*big.Int{"x": new(big.Int).SetUint64(i)}
				want, err := lift.NewEvaluator(bindings).Evaluate(f)
				if err != nil {
					t.Fatal(err)
				}
				got, err := lift.NewEvaluator(bindings).Evaluate(g)
				if err != nil {
					t.Fatal(err)
				} else if got.Cmp(want) != 0 {
					t.Fatalf("x=%#x: unexpected value: %s, want %s", i, got, want)
				}
			}
		})
	}
}

func TestParseFPFunc(t *testing.T) {
	if fn, ok := lift.ParseFPFunc("fp_add_32"); !ok {
		t.Fatal("expected fp function")
	} else if fn.Op != "add" || fn.Width != 32 || fn.IsCompare() {
		t.Fatalf("unexpected function: %#v", fn)
	}
	if fn, ok := lift.ParseFPFunc("fp_ge_64"); !ok || !fn.IsCompare() {
		t.Fatalf("unexpected function: %#v", fn)
	}
	for _, name := range []string{"fp_add", "fp_add_x", "Abs_i32"} {
		if _, ok := lift.ParseFPFunc(name); ok {
			t.Fatalf("unexpected fp function: %s", name)
		}
	}
}
