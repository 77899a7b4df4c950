package main

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/benbjohnson/lift"
	"github.com/sirupsen/logrus"
	"gotest.tools/v3/assert"
)

func TestWriteResults(t *testing.T) {
	dag := lift.NewDAG()
	x := dag.Add(&lift.LiveIn{Var: "x", Lo: 0, Hi: 8, Width: 8})
	add := dag.Add(&lift.Instruction{Op: lift.Add, Width: 8, Args: []int{x, x}})

	var buf bytes.Buffer
	assert.NilError(t, WriteResults(&buf, []*Result{
		{Name: "double", Outputs: []int{add, x}, DAG: dag},
		{Name: "skipped", Unsupported: &lift.UnsupportedError{Reason: "wide"}},
	}))
	assert.Equal(t, buf.String(), "; double\n%0 = LiveIn i8 x[0:8]\n%1 = Add i8 %0, %0\nret %1 %0\n\n")
}

func TestLowerCommand_Run(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	var buf bytes.Buffer
	cmd := &LowerCommand{
		Config: Config{
			Workers:       2,
			SolverTimeout: DefaultSolverTimeout,
			Normalize:     true,
			Instructions: []Instruction{
				{Name: "add", SMT2: `
(declare-const x (_ BitVec 32))
(declare-const y (_ BitVec 32))
(assert (= (bvadd x y) #x00000000))
`},
				{Name: "wide", SMT2: `
(declare-const x (_ BitVec 128))
(declare-const y (_ BitVec 128))
(assert (= (bvmul x y) #x00000000000000000000000000000000))
`},
				{Name: "rot", SMT2: `
(declare-const a (_ BitVec 32))
(assert (= ((_ rotate_left 3) a) #x00000000))
`},
				{Name: "extrot", SMT2: `
(declare-const a (_ BitVec 32))
(declare-const n (_ BitVec 32))
(assert (= (ext_rotate_left a n) #x00000000))
`},
				{Name: "lanes", LaneWidth: 24, SMT2: `
(declare-const a (_ BitVec 32))
(declare-const b (_ BitVec 32))
(assert (= (concat a b) #x0000000000000000))
`},
				{Name: "nand", SMT2: `
(declare-const a (_ BitVec 16))
(declare-const b (_ BitVec 16))
(assert (= (bvnand a b) #x0000))
`},
			},
		},
		Stdout: &buf,
		Logger: logger,
	}
	assert.NilError(t, cmd.Run(context.Background()))

	out := buf.String()
	assert.Assert(t, strings.HasPrefix(out, "; add\n"), out)
	assert.Assert(t, strings.Contains(out, "Add i32"), out)
	assert.Assert(t, strings.Contains(out, "; nand\n"), out)
	for _, name := range []string{"wide", "rot", "extrot", "lanes"} {
		assert.Assert(t, !strings.Contains(out, "; "+name+"\n"), out)
	}
}
