package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := NewRootCommand().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

// NewRootCommand returns the top-level "lift" command.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lift",
		Short: "Lift bit-vector formulas of vector instructions into scalar IR",
		Long: `
Lift is a tool for lowering the semantics of vector instructions, given as
SMT-LIB2 bit-vector formulas, into a scalar SSA-like IR.
`[1:],
		SilenceUsage: true,
	}
	cmd.AddCommand(NewLowerCommand())
	return cmd
}
