package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"slava0135/smtshim/config"
	"slava0135/smtshim/smt"
	"slava0135/smtshim/sorts"
	"slava0135/smtshim/symexec"
)

type exploreDoc struct {
	File    string            `yaml:"file"`
	Reports []*symexec.Report `yaml:"reports"`
	Stats   statsDoc          `yaml:"stats"`
}

func newExploreCommand(a *app) *cobra.Command {
	var funcs []string
	var seed int64
	var inputs bool
	cmd := &cobra.Command{
		Use:   "explore FILE.go",
		Short: "Explore the paths of Go functions symbolically",
		Long: `Build SSA for a Go file and walk every path of its top-level functions.
Each branch is checked by the solver: infeasible branches are pruned and
the remaining paths are reported with their conditions and results.

Functions are explored in parallel, one solver session per worker.`,
		Example: `  # Explore every function in a file
  smtshim explore numbers.go

  # Explore two functions breadth-first with 8 workers
  smtshim explore numbers.go --func abs --func sign --strategy bfs --workers 8

  # Show parameter values that take each path
  smtshim explore numbers.go --func divide --inputs`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExplore(cmd, a, args[0], funcs, seed, inputs)
		},
	}
	cmd.Flags().StringSliceVar(&funcs, "func", nil, "function to explore (repeatable, default: all)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "seed of the random strategy")
	cmd.Flags().BoolVar(&inputs, "inputs", false, "ask the solver for parameter values that take each path")
	return cmd
}

func runExplore(cmd *cobra.Command, a *app, path string, funcs []string, seed int64, inputs bool) error {
	// Everything the explorer builds is bool, bit-vector or float.
	factory, err := a.factory(sorts.Default())
	if err != nil {
		return err
	}
	pool, err := smt.NewPool(cmd.Context(), a.cfg.Workers, factory, a.log)
	if err != nil {
		return err
	}
	defer pool.Close()

	opts := a.cfg.ExploreOptions(a.log)
	opts.Functions = funcs
	opts.Seed = seed
	opts.Inputs = inputs
	reports, err := symexec.ExploreFile(cmd.Context(), path, pool, opts)
	if err != nil {
		return err
	}

	st := pool.Stats()
	a.log.Debug("exploration done", zap.String("file", path), zap.Int("functions", len(reports)), zap.Int("checks", st.Checks))

	out := cmd.OutOrStdout()
	if a.cfg.Format == config.FormatYAML {
		if err := writeYAML(out, exploreDoc{File: path, Reports: reports, Stats: newStatsDoc(st)}); err != nil {
			return err
		}
	} else {
		renderReports(out, reports)
		renderStats(out, st)
	}

	// Functions outside the supported subset are reported, not failed.
	failed := 0
	for _, r := range reports {
		if r.Err != nil && !errors.Is(r.Err, symexec.ErrUnsupported) {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d functions could not be explored", failed, len(reports))
	}
	return nil
}
