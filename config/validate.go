package config

import (
	"fmt"
	"slices"

	"slava0135/smtshim/smt"
	"slava0135/smtshim/symexec"
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.SolverCmd == "" {
		if _, err := smt.SolverCommand(c.Solver); err != nil {
			return fmt.Errorf("%w\nHint: set solver_cmd to run a solver that is not listed", err)
		}
	}
	if !slices.Contains(symexec.Strategies(), symexec.Strategy(c.Strategy)) {
		return fmt.Errorf("unknown strategy '%s' (known: %v)", c.Strategy, symexec.Strategies())
	}
	if c.Format != FormatTable && c.Format != FormatYAML {
		return fmt.Errorf("unknown format '%s' (known: %s, %s)", c.Format, FormatTable, FormatYAML)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	if c.MaxDepth < 1 {
		return fmt.Errorf("max_depth must be positive, got %d", c.MaxDepth)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %s", c.Timeout)
	}
	return nil
}
