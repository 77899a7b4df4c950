package z3_test

import (
	"testing"
	"time"

	"github.com/benbjohnson/lift"
	"github.com/benbjohnson/lift/z3"
)

func TestSolver_Check(t *testing.T) {
	b := lift.NewBuilder()
	x := b.Var("x", 8)

	for _, tt := range []struct {
		name string
		f    *lift.Formula
		want bool
	}{
		{"True", b.True(), true},
		{"False", b.False(), false},
		{"Satisfiable", b.Eq(b.Binary(lift.BVADD, x, b.ConstInt(1, 8)), b.ConstInt(0, 8)), true},
		{"Unsatisfiable", b.Binary(lift.BVULT, x, b.ConstInt(0, 8)), false},
		{"SignExtend", b.Eq(b.SignExt(8, x), b.ConstInt(-200, 16)), false},
		{"Extract", b.Eq(b.Extract(15, 8, b.ConstUint(0xAABB, 16)), b.ConstUint(0xAA, 8)), true},
		{"Uninterpreted", b.Eq(b.Apply("f", lift.BVSort(8), x), b.ConstInt(3, 8)), true},
		{"Xor", b.Make(lift.XOR, b.BoolVar("p"), b.BoolVar("p"), b.BoolVar("q")), true},
	} {
		t.Run(tt.name, func(t *testing.T) {
			s := MustNewSolver(t)
			if satisfiable, err := s.Check(tt.f); err != nil {
				t.Fatal(err)
			} else if satisfiable != tt.want {
				t.Fatalf("unexpected result: %v", satisfiable)
			}
		})
	}
}

// Ensure a solver shared between builders declares each signature of an
// uninterpreted function separately.
func TestSolver_Check_SharedAcrossBuilders(t *testing.T) {
	s := MustNewSolver(t)

	b0 := lift.NewBuilder()
	f0 := b0.Eq(b0.Apply("f", lift.BVSort(8), b0.Var("x", 8)), b0.ConstInt(3, 8))
	if satisfiable, err := s.Check(f0); err != nil {
		t.Fatal(err)
	} else if !satisfiable {
		t.Fatal("expected satisfiable")
	}

	b1 := lift.NewBuilder()
	f1 := b1.Eq(b1.Apply("f", lift.BVSort(16), b1.Var("y", 16)), b1.ConstInt(300, 16))
	if satisfiable, err := s.Check(f1); err != nil {
		t.Fatal(err)
	} else if !satisfiable {
		t.Fatal("expected satisfiable")
	}
}

func TestSolver_PushPop(t *testing.T) {
	b := lift.NewBuilder()
	x := b.Var("x", 32)
	one, two := b.Eq(x, b.ConstInt(1, 32)), b.Eq(x, b.ConstInt(2, 32))

	s := MustNewSolver(t)
	if err := s.Push(); err != nil {
		t.Fatal(err)
	} else if err := s.Assert(one); err != nil {
		t.Fatal(err)
	}

	if satisfiable, err := s.Check(two); err != nil {
		t.Fatal(err)
	} else if satisfiable {
		t.Fatal("expected unsatisfiable")
	}

	// Assumptions do not outlive a check.
	if satisfiable, err := s.Check(); err != nil {
		t.Fatal(err)
	} else if !satisfiable {
		t.Fatal("expected satisfiable")
	}

	if err := s.Pop(); err != nil {
		t.Fatal(err)
	} else if satisfiable, err := s.Check(two); err != nil {
		t.Fatal(err)
	} else if !satisfiable {
		t.Fatal("expected satisfiable")
	}

	if err := s.Pop(); err == nil {
		t.Fatal("expected error")
	}

	if n := s.Stats().SolveN; n != 3 {
		t.Fatalf("unexpected solve count: %d", n)
	}
}

func TestSolver_Assert(t *testing.T) {
	b := lift.NewBuilder()
	s := MustNewSolver(t)
	if err := s.Assert(b.Var("x", 8)); err == nil || err.Error() != "z3: assertion of non-boolean formula: x" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSolver_SetTimeout(t *testing.T) {
	s := MustNewSolver(t)
	if err := s.SetTimeout(5 * time.Second); err != nil {
		t.Fatal(err)
	} else if satisfiable, err := s.Check(lift.NewBuilder().True()); err != nil {
		t.Fatal(err)
	} else if !satisfiable {
		t.Fatal("expected satisfiable")
	}
}

func TestEquivalent(t *testing.T) {
	b := lift.NewBuilder()
	x := b.Var("x", 8)
	hi := b.Ite(b.Binary(lift.BVSLT, x, b.ConstInt(0, 8)), b.ConstInt(-1, 8), b.ConstInt(0, 8))

	s := MustNewSolver(t)
	if ok, err := lift.Equivalent(s, b, b.Concat(hi, x), b.SignExt(8, x)); err != nil {
		t.Fatal(err)
	} else if !ok {
		t.Fatal("expected equivalent")
	}
	if ok, err := lift.Equivalent(s, b, b.Concat(hi, x), b.ZeroExt(8, x)); err != nil {
		t.Fatal(err)
	} else if ok {
		t.Fatal("expected not equivalent")
	}
}

func TestSolver_ParseFormula(t *testing.T) {
	t.Run("OK", func(t *testing.T) {
		b := lift.NewBuilder()
		f, err := MustNewSolver(t).ParseFormula(b, `
(declare-const x (_ BitVec 32))
(declare-const y (_ BitVec 8))
(assert (= (bvadd ((_ extract 15 0) x) ((_ zero_extend 8) y)) #x0000))
`)
		if err != nil {
			t.Fatal(err)
		}

		x, y := b.Var("x", 32), b.Var("y", 8)
		if want := b.Binary(lift.BVADD, b.Extract(15, 0, x), b.ZeroExt(8, y)); f != want {
			t.Fatalf("unexpected formula: %s", f)
		}
	})

	t.Run("Uninterpreted", func(t *testing.T) {
		b := lift.NewBuilder()
		f, err := MustNewSolver(t).ParseFormula(b, `
(declare-fun Saturate_s16_to_u8 ((_ BitVec 16)) (_ BitVec 8))
(declare-const x (_ BitVec 16))
(assert (= (Saturate_s16_to_u8 (bvneg x)) #x00))
`)
		if err != nil {
			t.Fatal(err)
		} else if want := b.Apply("Saturate_s16_to_u8", lift.BVSort(8), b.Make(lift.BVNEG, b.Var("x", 16))); f != want {
			t.Fatalf("unexpected formula: %s", f)
		}
	})

	t.Run("Ite", func(t *testing.T) {
		b := lift.NewBuilder()
		f, err := MustNewSolver(t).ParseFormula(b, `
(declare-const x (_ BitVec 8))
(declare-const y (_ BitVec 8))
(assert (= (ite (bvslt x y) (bvsub x y) y) #x00))
`)
		if err != nil {
			t.Fatal(err)
		}
		x, y := b.Var("x", 8), b.Var("y", 8)
		if want := b.Ite(b.Binary(lift.BVSLT, x, y), b.Binary(lift.BVSUB, x, y), y); f != want {
			t.Fatalf("unexpected formula: %s", f)
		}
	})

	t.Run("Derived", func(t *testing.T) {
		b := lift.NewBuilder()
		a, c := b.Var("a", 32), b.Var("c", 32)
		for _, tt := range []struct {
			expr string
			zero string
			want *lift.Formula
		}{
			{"(bvnand a c)", "#x00000000", b.Make(lift.BVNOT, b.Binary(lift.BVAND, a, c))},
			{"(bvnor a c)", "#x00000000", b.Make(lift.BVNOT, b.Binary(lift.BVOR, a, c))},
			{"(bvxnor a c)", "#x00000000", b.Make(lift.BVNOT, b.Binary(lift.BVXOR, a, c))},
			{"(bvcomp a c)", "#b0", b.Ite(b.Eq(a, c), b.ConstUint(1, 1), b.ConstUint(0, 1))},
			{"((_ repeat 2) a)", "#x0000000000000000", b.Concat(a, a)},
			{"((_ rotate_left 3) a)", "#x00000000", b.Concat(b.Extract(28, 0, a), b.Extract(31, 29, a))},
			{"((_ rotate_right 3) a)", "#x00000000", b.Concat(b.Extract(2, 0, a), b.Extract(31, 3, a))},
		} {
			f, err := MustNewSolver(t).ParseFormula(b, `
(declare-const a (_ BitVec 32))
(declare-const c (_ BitVec 32))
(assert (= `+tt.expr+` `+tt.zero+`))
`)
			if err != nil {
				t.Fatalf("%s: %s", tt.expr, err)
			} else if f != tt.want {
				t.Fatalf("%s: unexpected formula: %s", tt.expr, f)
			}
		}
	})

	t.Run("UnsupportedOperation", func(t *testing.T) {
		_, err := MustNewSolver(t).ParseFormula(lift.NewBuilder(), `
(declare-const a (_ BitVec 32))
(declare-const n (_ BitVec 32))
(assert (= (ext_rotate_left a n) #x00000000))
`)
		if !lift.IsUnsupported(err) {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("NotZeroComparison", func(t *testing.T) {
		b := lift.NewBuilder()
		if _, err := MustNewSolver(t).ParseFormula(b, `
(declare-const x (_ BitVec 8))
(assert (bvult x #x10))
`); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("NoAssertions", func(t *testing.T) {
		if _, err := MustNewSolver(t).ParseFormula(lift.NewBuilder(), `(declare-const x (_ BitVec 8))`); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("SyntaxError", func(t *testing.T) {
		if _, err := MustNewSolver(t).ParseFormula(lift.NewBuilder(), `(assert (= x`); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestSolver_Simplify(t *testing.T) {
	b := lift.NewBuilder()
	f := b.Binary(lift.BVMUL, b.ConstInt(6, 16), b.ConstInt(7, 16))
	if g, err := MustNewSolver(t).Simplify(b, f); err != nil {
		t.Fatal(err)
	} else if g != b.ConstInt(42, 16) {
		t.Fatalf("unexpected formula: %s", g)
	}
}

// MustNewSolver returns a new solver that is closed when the test ends.
func MustNewSolver(tb testing.TB) *z3.Solver {
	tb.Helper()
	s, err := z3.NewSolver()
	if err != nil {
		tb.Fatal(err)
	}
	tb.Cleanup(func() {
		if err := s.Close(); err != nil {
			tb.Fatal(err)
		}
	})
	return s
}
