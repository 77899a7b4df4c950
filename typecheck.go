package lift

import (
	"fmt"
)

// Typecheck returns true if every node of the DAG is well-formed: binary
// operations agree on widths, comparisons produce one bit, selects choose
// between equal-width values on a one-bit condition, and no unresolved
// slice placeholder or dangling reference remains.
func Typecheck(dag *DAG) bool {
	return typecheck(dag) == nil
}

// typecheck returns an error describing the first ill-formed node.
func typecheck(dag *DAG) (err error) {
	dag.Each(func(id int, n Node) {
		if err == nil {
			if e := typecheckNode(dag, n); e != nil {
				err = fmt.Errorf("%%%d = %s: %s", id, n, e)
			}
		}
	})
	return err
}

func typecheckNode(dag *DAG, n Node) error {
	switch n := n.(type) {
	case *Constant, *FPConstant, *LiveIn:
		return nil
	case Slice:
		return fmt.Errorf("unresolved slice")
	case *Instruction:
		return typecheckInstruction(dag, n)
	default:
		return fmt.Errorf("unexpected node type: %T", n)
	}
}

func typecheckInstruction(dag *DAG, inst *Instruction) error {
	widths := make([]uint, len(inst.Args))
	for i, arg := range inst.Args {
		n := dag.Node(arg)
		if n == nil {
			return fmt.Errorf("dangling argument: %%%d", arg)
		}
		widths[i] = n.Bitwidth()
	}

	switch {
	case inst.Op.IsBinary():
		if len(widths) != 2 {
			return fmt.Errorf("expected 2 arguments, got %d", len(widths))
		} else if widths[0] != inst.Width || widths[1] != inst.Width {
			return fmt.Errorf("operand width mismatch: %d, %d != %d", widths[0], widths[1], inst.Width)
		}
	case inst.Op.IsCompare():
		if len(widths) != 2 {
			return fmt.Errorf("expected 2 arguments, got %d", len(widths))
		} else if widths[0] != widths[1] {
			return fmt.Errorf("operand width mismatch: %d != %d", widths[0], widths[1])
		} else if inst.Width != WidthBool {
			return fmt.Errorf("comparison width: %d", inst.Width)
		}
	case inst.Op == Select:
		if len(widths) != 3 {
			return fmt.Errorf("expected 3 arguments, got %d", len(widths))
		} else if widths[0] != WidthBool {
			return fmt.Errorf("condition width: %d", widths[0])
		} else if widths[1] != inst.Width || widths[2] != inst.Width {
			return fmt.Errorf("arm width mismatch: %d, %d != %d", widths[1], widths[2], inst.Width)
		}
	case inst.Op == FNeg:
		if len(widths) != 1 || widths[0] != inst.Width {
			return fmt.Errorf("operand width mismatch")
		}
	case inst.Op.IsCast():
		if len(widths) != 1 {
			return fmt.Errorf("expected 1 argument, got %d", len(widths))
		} else if inst.Op == Trunc && widths[0] <= inst.Width {
			return fmt.Errorf("truncation from %d to %d bits", widths[0], inst.Width)
		} else if inst.Op != Trunc && widths[0] >= inst.Width {
			return fmt.Errorf("extension from %d to %d bits", widths[0], inst.Width)
		}
	default:
		return fmt.Errorf("unexpected opcode: %s", inst.Op)
	}
	return nil
}
