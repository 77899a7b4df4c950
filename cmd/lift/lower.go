package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/benbjohnson/lift"
	"github.com/benbjohnson/lift/z3"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

// LowerCommand represents a command for lowering a batch of instructions.
type LowerCommand struct {
	Config Config
	Output string

	Stdout io.Writer
	Logger *logrus.Logger
}

// NewLowerCommand returns the "lower" subcommand.
func NewLowerCommand() *cobra.Command {
	lc := &LowerCommand{Stdout: os.Stdout, Logger: logrus.New()}

	var opt lowerOptions

	cmd := &cobra.Command{
		Use:   "lower [flags] BATCH.toml",
		Short: "Lower every instruction of a batch into scalar IR",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := NewConfig()
			if err != nil {
				return err
			}
			if err := c.ReadFile(args[0]); err != nil {
				return err
			}

			opt.apply(cmd.Flags(), &c)
			if err := c.Validate(); err != nil {
				return err
			}

			lc.Config = c
			return lc.Run(cmd.Context())
		},
	}

	opt.register(cmd.Flags())
	cmd.Flags().StringVarP(&lc.Output, "output", "o", "", "write IR to file instead of stdout")
	return cmd
}

// lowerOptions holds the command line settings that override the batch file.
type lowerOptions struct {
	workers     int
	timeout     time.Duration
	noNormalize bool
	verbose     bool
}

func (opt *lowerOptions) register(fs *pflag.FlagSet) {
	fs.IntVarP(&opt.workers, "workers", "j", 0, "number of instructions lowered in parallel")
	fs.DurationVar(&opt.timeout, "timeout", DefaultSolverTimeout, "timeout of each solver check")
	fs.BoolVar(&opt.noNormalize, "no-normalize", false, "skip formula normalization")
	fs.BoolVarP(&opt.verbose, "verbose", "v", false, "verbose")
}

// apply copies every flag set on the command line into c.
func (opt *lowerOptions) apply(fs *pflag.FlagSet, c *Config) {
	if fs.Changed("workers") {
		c.Workers = opt.workers
	}
	if fs.Changed("timeout") {
		c.SolverTimeout = opt.timeout
	}
	if fs.Changed("no-normalize") {
		c.Normalize = !opt.noNormalize
	}
	if fs.Changed("verbose") {
		c.Verbose = opt.verbose
	}
}

// Result represents the outcome of lowering a single instruction.
type Result struct {
	Name        string
	Outputs     []int
	DAG         *lift.DAG
	Unsupported error
}

// Run lowers every configured instruction and writes the IR of each
// supported instruction in batch order.
func (cmd *LowerCommand) Run(ctx context.Context) error {
	cmd.Logger.SetLevel(logrus.InfoLevel)
	if cmd.Config.Verbose {
		cmd.Logger.SetLevel(logrus.DebugLevel)
	}

	results := make([]*Result, len(cmd.Config.Instructions))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cmd.Config.Workers)
	for i, inst := range cmd.Config.Instructions {
		i, inst := i, inst
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			result, err := cmd.lower(inst)
			if err != nil {
				return errors.Wrapf(err, "instruction %q", inst.Name)
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	w := cmd.Stdout
	if cmd.Output != "" {
		f, err := os.Create(cmd.Output)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	if err := WriteResults(w, results); err != nil {
		return err
	}

	cmd.summarize(results)
	return nil
}

// lower parses & lowers a single instruction with its own builder and solver.
// Modeling limits are reported in the result rather than returned.
func (cmd *LowerCommand) lower(inst Instruction) (*Result, error) {
	logger := cmd.Logger.WithField("instruction", inst.Name)
	t := time.Now()

	s, err := z3.NewSolver()
	if err != nil {
		return nil, err
	}
	defer s.Close()

	if cmd.Config.SolverTimeout > 0 {
		if err := s.SetTimeout(cmd.Config.SolverTimeout); err != nil {
			return nil, err
		}
	}

	b := lift.NewBuilder()
	f, err := s.ParseFormula(b, inst.SMT2)
	if lift.IsUnsupported(err) {
		logger.WithError(err).Info("unsupported")
		return &Result{Name: inst.Name, Unsupported: err}, nil
	} else if err != nil {
		return nil, err
	}

	if cmd.Config.Normalize {
		n := lift.NewNormalizer(b, s)
		n.Logger = logger
		if f, err = n.Normalize(f); skippable(err) {
			logger.WithError(err).Warn("skipped")
			return &Result{Name: inst.Name, Unsupported: err}, nil
		} else if err != nil {
			return nil, err
		}
	}

	tr := lift.NewTranslator(b, s)
	tr.Logger = logger
	outs, dag, err := tr.TranslateFormula(f, inst.LaneWidth)
	if skippable(err) {
		logger.WithError(err).Info("unsupported")
		return &Result{Name: inst.Name, Unsupported: err}, nil
	} else if err != nil {
		return nil, err
	}

	dag = dag.Prune(outs...)
	logger.WithFields(logrus.Fields{
		"nodes":   dag.Len(),
		"lanes":   len(outs),
		"elapsed": time.Since(t),
		"checks":  s.Stats().SolveN,
	}).Info("lowered")
	return &Result{Name: inst.Name, Outputs: outs, DAG: dag}, nil
}

// skippable returns true if err only affects the current instruction.
func skippable(err error) bool {
	return lift.IsUnsupported(err) || errors.Cause(err) == lift.ErrSolverTimeout
}

// WriteResults writes the IR of every supported result to w.
func WriteResults(w io.Writer, results []*Result) error {
	var buf bytes.Buffer
	for _, r := range results {
		if r.Unsupported != nil {
			continue
		}
		fmt.Fprintf(&buf, "; %s\n", r.Name)
		buf.WriteString(r.DAG.String())
		fmt.Fprint(&buf, "ret")
		for _, id := range r.Outputs {
			fmt.Fprintf(&buf, " %%%d", id)
		}
		buf.WriteString("\n\n")
	}
	_, err := buf.WriteTo(w)
	return err
}

// summarize logs the number of lowered instructions and IR size statistics.
func (cmd *LowerCommand) summarize(results []*Result) {
	var sizes stats.Float64Data
	var unsupported int
	for _, r := range results {
		if r.Unsupported != nil {
			unsupported++
			continue
		}
		sizes = append(sizes, float64(r.DAG.Len()))
	}

	fields := logrus.Fields{
		"lowered":     len(sizes),
		"unsupported": unsupported,
	}
	if len(sizes) > 0 {
		mean, _ := stats.Mean(sizes)
		median, _ := stats.Median(sizes)
		max, _ := stats.Max(sizes)
		fields["mean_nodes"] = mean
		fields["median_nodes"] = median
		fields["max_nodes"] = max
	}
	cmd.Logger.WithFields(fields).Info("batch complete")
}
