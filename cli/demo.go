package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"slava0135/smtshim/config"
	"slava0135/smtshim/constraints"
	"slava0135/smtshim/smt"
	"slava0135/smtshim/term"
)

type demoResult struct {
	Scenario string   `yaml:"scenario"`
	Path     string   `yaml:"path"`
	Want     string   `yaml:"want"`
	Got      string   `yaml:"got"`
	Dropped  []string `yaml:"dropped,omitempty"`
}

func newDemoCommand(a *app) *cobra.Command {
	var only []string
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run the worked examples against the solver",
		Long: `Run the built-in scenarios: small Go functions with the path conditions
a symbolic executor would produce for them. Each path is checked and its
verdict compared with the expected one.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDemo(cmd, a, only)
		},
	}
	cmd.Flags().StringSliceVar(&only, "scenario", nil, "scenario to run, by name (repeatable, default: all)")
	return cmd
}

func selectScenarios(names []string) ([]constraints.Scenario, error) {
	all := constraints.All()
	if len(names) == 0 {
		return all, nil
	}
	var out []constraints.Scenario
	for _, name := range names {
		found := false
		for _, sc := range all {
			if sc.Name == name {
				out = append(out, sc)
				found = true
				break
			}
		}
		if !found {
			var known []string
			for _, sc := range all {
				known = append(known, sc.Name)
			}
			return nil, fmt.Errorf("no scenario '%s' (known: %s)", name, strings.Join(known, ", "))
		}
	}
	return out, nil
}

func runDemo(cmd *cobra.Command, a *app, names []string) error {
	scenarios, err := selectScenarios(names)
	if err != nil {
		return err
	}
	sc, err := a.cfg.SessionConfig(a.log)
	if err != nil {
		return err
	}
	sc.Preamble += constraints.Preamble()
	s, err := smt.NewSession(sc, constraints.Registry())
	if err != nil {
		return err
	}
	defer s.Close()

	// The trace goes to stderr so that stdout carries only the summary.
	results, err := constraints.Run(cmd.Context(), timeoutChecker{a, s}, cmd.ErrOrStderr(), scenarios)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	docs := make([]demoResult, len(results))
	mismatched := 0
	for i, r := range results {
		docs[i] = demoResult{Scenario: r.Scenario, Path: r.Path, Want: r.Want.String(), Got: r.Got.String(), Dropped: r.Dropped}
		if !r.OK() {
			mismatched++
		}
	}
	if a.cfg.Format == config.FormatYAML {
		if err := writeYAML(out, docs); err != nil {
			return err
		}
	} else {
		renderDemo(out, docs)
		renderStats(out, s.Stats())
	}
	if mismatched > 0 {
		return fmt.Errorf("%d of %d paths did not get the expected verdict", mismatched, len(results))
	}
	return nil
}

// timeoutChecker bounds every check of the wrapped checker by the configured
// timeout.
type timeoutChecker struct {
	a       *app
	checker smt.Checker
}

func (c timeoutChecker) CheckSat(ctx context.Context, n term.Node) (smt.Verdict, error) {
	ctx, cancel := c.a.withTimeout(ctx)
	defer cancel()
	return c.checker.CheckSat(ctx, n)
}

func renderDemo(w io.Writer, results []demoResult) {
	t := newTable(w)
	t.AppendHeader(table.Row{"scenario", "path", "want", "got", "dropped"})
	for _, r := range results {
		got := r.Got
		if r.Got != r.Want {
			got += " !"
		}
		t.AppendRow(table.Row{r.Scenario, r.Path, r.Want, got, strings.Join(r.Dropped, ", ")})
	}
	t.Render()
}
