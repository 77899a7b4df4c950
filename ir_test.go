package lift_test

import (
	"math/big"
	"testing"

	"github.com/benbjohnson/lift"
	"github.com/google/go-cmp/cmp"
)

func TestDAG_Add(t *testing.T) {
	dag := lift.NewDAG()
	x := dag.Add(&lift.LiveIn{Var: "x", Lo: 0, Hi: 32, Width: 32})
	c := dag.Add(&lift.Constant{Value: 1, Width: 32})
	add := dag.Add(&lift.Instruction{Op: lift.Add, Width: 32, Args: []int{x, c}})

	if x != 0 || c != 1 || add != 2 {
		t.Fatalf("unexpected ids: %d, %d, %d", x, c, add)
	} else if n := dag.Len(); n != 3 {
		t.Fatalf("unexpected len: %d", n)
	} else if n := dag.Node(add).(*lift.Instruction); n.Op != lift.Add {
		t.Fatalf("unexpected node: %s", n)
	} else if n := dag.Node(100); n != nil {
		t.Fatalf("unexpected node: %s", n)
	}

	// Ids are never reused after deletion.
	dag.Delete(c)
	if id := dag.Add(&lift.Constant{Value: 2, Width: 32}); id != 3 {
		t.Fatalf("unexpected id: %d", id)
	} else if diff := cmp.Diff([]int{0, 2, 3}, dag.IDs()); diff != "" {
		t.Fatalf("unexpected ids: %s", diff)
	}
}

func TestDAG_Replace(t *testing.T) {
	dag := lift.NewDAG()
	id := dag.Add(&lift.Constant{Value: 1, Width: 8})
	dag.Replace(id, &lift.Constant{Value: 2, Width: 8})
	if n := dag.Node(id).(*lift.Constant); n.Value != 2 {
		t.Fatalf("unexpected node: %s", n)
	}

	t.Run("Missing", func(t *testing.T) {
		defer func() {
			if r := recover(); r == nil {
				t.Fatal("expected panic")
			}
		}()
		dag.Replace(10, &lift.Constant{Value: 2, Width: 8})
	})
}

func TestDAG_Clone(t *testing.T) {
	dag := lift.NewDAG()
	dag.Add(&lift.Constant{Value: 1, Width: 8})

	other := dag.Clone()
	other.Add(&lift.Constant{Value: 2, Width: 8})
	if dag.Len() != 1 {
		t.Fatalf("unexpected len: %d", dag.Len())
	} else if other.Len() != 2 {
		t.Fatalf("unexpected clone len: %d", other.Len())
	}
}

func TestDAG_Prune(t *testing.T) {
	dag := lift.NewDAG()
	x := dag.Add(&lift.LiveIn{Var: "x", Lo: 0, Hi: 8, Width: 8})
	dead := dag.Add(&lift.Constant{Value: 7, Width: 8})
	c := dag.Add(&lift.Constant{Value: 1, Width: 8})
	add := dag.Add(&lift.Instruction{Op: lift.Add, Width: 8, Args: []int{x, c}})
	dag.Add(&lift.Instruction{Op: lift.Mul, Width: 8, Args: []int{add, dead}})

	if set := dag.Reachable(add); set.Len() != 3 || set.Has(dead) {
		t.Fatalf("unexpected reachable set: %s", set)
	}

	pruned := dag.Prune(add)
	if diff := cmp.Diff([]int{x, c, add}, pruned.IDs()); diff != "" {
		t.Fatalf("unexpected ids: %s", diff)
	} else if dag.Len() != 5 {
		t.Fatalf("expected original to be unchanged: %d", dag.Len())
	}
}

func TestDAG_String(t *testing.T) {
	dag := lift.NewDAG()
	x := dag.Add(&lift.LiveIn{Var: "x", Lo: 4, Hi: 16, Width: 16})
	c := dag.Add(&lift.Constant{Value: 3, Width: 16})
	add := dag.Add(&lift.Instruction{Op: lift.Add, Width: 16, Args: []int{x, c}})
	dag.Add(&lift.Instruction{Op: lift.Trunc, Width: 8, Args: []int{add}})
	dag.Add(&lift.FPConstant{Value: 1.5, Width: 32})

	if got, want := dag.String(), ""+
		"%0 = LiveIn i16 x[4:16]\n"+
		"%1 = i16 3\n"+
		"%2 = Add i16 %0, %1\n"+
		"%3 = Trunc i8 %2\n"+
		"%4 = f32 1.5\n"; got != want {
		t.Fatalf("unexpected string:\n%s", got)
	}
}

func TestDAG_Evaluate(t *testing.T) {
	dag := lift.NewDAG()
	x := dag.Add(&lift.LiveIn{Var: "x", Lo: 8, Hi: 20, Width: 16})
	c := dag.Add(&lift.Constant{Value: 0xFFF, Width: 16})
	add := dag.Add(&lift.Instruction{Op: lift.Add, Width: 16, Args: []int{x, c}})
	lo := dag.Add(&lift.Instruction{Op: lift.Trunc, Width: 8, Args: []int{add}})
	sext := dag.Add(&lift.Instruction{Op: lift.SExt, Width: 32, Args: []int{lo}})
	lt := dag.Add(&lift.Instruction{Op: lift.Slt, Width: 1, Args: []int{lo, dag.Add(&lift.Constant{Value: 0, Width: 8})}})
	sel := dag.Add(&lift.Instruction{Op: lift.Select, Width: 16, Args: []int{lt, x, add}})

	bindings := map[string]*big.Int{"x": big.NewInt(0x12345)}
	for _, tt := range []struct {
		id   int
		want uint64
	}{
		{x, 0x123},
		{add, 0x1122},
		{lo, 0x22},
		{sext, 0x22},
		{lt, 0},
		{sel, 0x1122},
	} {
		if v, err := dag.Evaluate(tt.id, bindings); err != nil {
			t.Fatal(err)
		} else if v.Uint64() != tt.want {
			t.Fatalf("%%%d: unexpected value: %#x, want %#x", tt.id, v.Uint64(), tt.want)
		}
	}

	t.Run("Unbound", func(t *testing.T) {
		if _, err := dag.Evaluate(x, nil); err == nil {
			t.Fatal("expected error")
		}
	})
	t.Run("Slice", func(t *testing.T) {
		b := lift.NewBuilder()
		id := dag.Add(lift.NewSlice(b.Var("y", 8), 0, 4))
		if _, err := dag.Evaluate(id, bindings); err == nil {
			t.Fatal("expected error")
		}
	})
	t.Run("Float", func(t *testing.T) {
		a := dag.Add(&lift.FPConstant{Value: 1.5, Width: 64})
		b := dag.Add(&lift.FPConstant{Value: 2, Width: 64})
		mul := dag.Add(&lift.Instruction{Op: lift.FMul, Width: 64, Args: []int{a, b}})
		gt := dag.Add(&lift.Instruction{Op: lift.Fogt, Width: 1, Args: []int{mul, b}})
		if v, err := dag.Evaluate(gt, nil); err != nil {
			t.Fatal(err)
		} else if v.Int64() != 1 {
			t.Fatalf("unexpected value: %s", v)
		}
	})
}

func TestOpcode_String(t *testing.T) {
	for op, want := range map[lift.Opcode]string{
		lift.Add:         "Add",
		lift.Ne:          "Ne",
		lift.Select:      "Select",
		lift.Fone:        "Fone",
		lift.Opcode(-1):  "Opcode<-1>",
		lift.Opcode(999): "Opcode<999>",
	} {
		if got := op.String(); got != want {
			t.Fatalf("unexpected string: %s, want %s", got, want)
		}
	}

	if !lift.Add.IsBinary() || lift.Ult.IsBinary() {
		t.Fatal("unexpected binary classification")
	} else if !lift.Foge.IsCompare() || !lift.Foge.IsFloat() {
		t.Fatal("unexpected compare classification")
	} else if !lift.Trunc.IsCast() || lift.Select.IsCast() {
		t.Fatal("unexpected cast classification")
	}
}
