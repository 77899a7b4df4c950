package main

import (
	"os"
	"runtime"
	"time"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
	"github.com/xyproto/env/v2"
)

// Default configuration values.
const (
	DefaultSolverTimeout = 30 * time.Second
)

// Config represents the configuration of a batch of instructions.
type Config struct {
	Workers       int
	SolverTimeout time.Duration
	Normalize     bool
	Verbose       bool
	Instructions  []Instruction
}

// Instruction represents one formula to lower.
type Instruction struct {
	Name      string `toml:"name"`
	LaneWidth uint   `toml:"lane_width"`
	SMT2      string `toml:"smt2"`
}

// NewConfig returns the default configuration overridden by the
// LIFT_WORKERS, LIFT_SOLVER_TIMEOUT & LIFT_VERBOSE environment variables.
func NewConfig() (Config, error) {
	c := Config{
		Workers:       env.Int("LIFT_WORKERS", runtime.GOMAXPROCS(0)),
		SolverTimeout: DefaultSolverTimeout,
		Normalize:     true,
		Verbose:       env.Bool("LIFT_VERBOSE"),
	}
	if s := env.Str("LIFT_SOLVER_TIMEOUT"); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil {
			return c, errors.Wrap(err, "LIFT_SOLVER_TIMEOUT")
		}
		c.SolverTimeout = d
	}
	return c, nil
}

// fileConfig is the on-disk format of a batch. Unset settings are nil so
// that they do not override the environment.
type fileConfig struct {
	Workers       *int          `toml:"workers"`
	SolverTimeout *string       `toml:"solver_timeout"`
	Normalize     *bool         `toml:"normalize"`
	Instructions  []Instruction `toml:"instruction"`
}

// ReadFile applies the settings & instructions of the TOML batch file at path.
func (c *Config) ReadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return c.Parse(data)
}

// Parse applies the settings & instructions of a TOML batch.
func (c *Config) Parse(data []byte) error {
	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return errors.Wrap(err, "parse batch")
	}

	if fc.Workers != nil {
		c.Workers = *fc.Workers
	}
	if fc.SolverTimeout != nil {
		d, err := time.ParseDuration(*fc.SolverTimeout)
		if err != nil {
			return errors.Wrap(err, "solver_timeout")
		}
		c.SolverTimeout = d
	}
	if fc.Normalize != nil {
		c.Normalize = *fc.Normalize
	}
	c.Instructions = append(c.Instructions, fc.Instructions...)
	return nil
}

// Validate returns an error if the configuration cannot be run.
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return errors.Errorf("workers must be positive: %d", c.Workers)
	} else if c.SolverTimeout < 0 {
		return errors.Errorf("solver timeout must not be negative: %s", c.SolverTimeout)
	}

	names := make(map[string]struct{})
	for i, inst := range c.Instructions {
		if inst.Name == "" {
			return errors.Errorf("instruction %d: name required", i)
		} else if inst.SMT2 == "" {
			return errors.Errorf("instruction %q: smt2 required", inst.Name)
		} else if _, ok := names[inst.Name]; ok {
			return errors.Errorf("instruction %q: duplicate name", inst.Name)
		}
		names[inst.Name] = struct{}{}
	}
	return nil
}
