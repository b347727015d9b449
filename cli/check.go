package cli

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"slava0135/smtshim/config"
	"slava0135/smtshim/smt"
	"slava0135/smtshim/term"
)

type checkResult struct {
	Name    string            `yaml:"name"`
	Verdict string            `yaml:"verdict,omitempty"`
	Model   map[string]string `yaml:"model,omitempty"`
	Error   string            `yaml:"error,omitempty"`
	Elapsed string            `yaml:"elapsed"`
}

type checkDoc struct {
	File    string        `yaml:"file"`
	Results []checkResult `yaml:"results"`
	Stats   statsDoc      `yaml:"stats"`
}

func newCheckCommand(a *app) *cobra.Command {
	var emit, model bool
	cmd := &cobra.Command{
		Use:   "check FILE.yaml",
		Short: "Check the queries of a query file",
		Long: `Check every query of a YAML query file, in order, through one solver
session. A session that breaks is restarted for the next query.

With --emit nothing is run: the SMT-LIB text of each query is printed
instead.`,
		Example: `  # Check queries with z3
  smtshim check queries.yaml

  # Use cvc5 with a 2s bound per query and print YAML
  smtshim check queries.yaml --solver cvc5 --timeout 2s -o yaml

  # Print a satisfying assignment for every sat query
  smtshim check queries.yaml --model

  # Show what would be sent
  smtshim check queries.yaml --emit`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, a, args[0], emit, model)
		},
	}
	cmd.Flags().BoolVar(&emit, "emit", false, "print the SMT-LIB text of each query instead of checking it")
	cmd.Flags().BoolVar(&model, "model", false, "print the variable values of every sat query")
	return cmd
}

func runCheck(cmd *cobra.Command, a *app, path string, emit, model bool) error {
	qf, err := term.LoadQueries(path)
	if err != nil {
		return err
	}
	reg, err := a.cfg.Registry()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if emit {
		return emitQueries(out, qf, reg)
	}

	factory, err := a.factory(reg)
	if err != nil {
		return err
	}
	pool, err := smt.NewPool(cmd.Context(), 1, factory, a.log)
	if err != nil {
		return err
	}
	defer pool.Close()

	results := make([]checkResult, 0, len(qf.Queries))
	failed := 0
	for _, q := range qf.Queries {
		ctx, cancel := a.withTimeout(cmd.Context())
		start := time.Now()
		var verdict smt.Verdict
		var m *smt.Model
		if model {
			verdict, m, err = pool.CheckSatModel(ctx, q.Assert)
		} else {
			verdict, err = pool.CheckSat(ctx, q.Assert)
		}
		cancel()

		res := checkResult{Name: q.Name, Elapsed: formatDuration(time.Since(start))}
		if err != nil {
			failed++
			res.Error = err.Error()
			a.log.Warn("query failed", zap.String("query", q.Name), zap.Error(err))
		} else {
			res.Verdict = verdict.String()
			res.Model = modelValues(m)
		}
		results = append(results, res)
		if cmd.Context().Err() != nil {
			break
		}
	}

	st := pool.Stats()
	if a.cfg.Format == config.FormatYAML {
		if err := writeYAML(out, checkDoc{File: path, Results: results, Stats: newStatsDoc(st)}); err != nil {
			return err
		}
	} else {
		renderCheckResults(out, results)
		renderStats(out, st)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d queries failed", failed, len(qf.Queries))
	}
	return nil
}

func emitQueries(w io.Writer, qf *term.QueryFile, reg smt.Registry) error {
	for _, q := range qf.Queries {
		script, err := smt.Script(q.Assert, reg)
		if err != nil {
			return fmt.Errorf("query %s: %w", q.Name, err)
		}
		_, _ = fmt.Fprintf(w, "; %s\n%s", q.Name, script)
	}
	return nil
}

// modelValues keys the values of m by variable name.
func modelValues(m *smt.Model) map[string]string {
	if m == nil || m.Len() == 0 {
		return nil
	}
	values := make(map[string]string, m.Len())
	for i, v := range m.Vars {
		values[v.Hint()] = smt.FormatValue(v.Tag(), m.Values[i])
	}
	return values
}

func renderCheckResults(w io.Writer, results []checkResult) {
	t := newTable(w)
	t.AppendHeader(table.Row{"query", "verdict", "model", "elapsed"})
	for _, r := range results {
		verdict := r.Verdict
		if r.Error != "" {
			verdict = "error: " + r.Error
		}
		names := slices.Sorted(maps.Keys(r.Model))
		pairs := make([]string, len(names))
		for i, name := range names {
			pairs[i] = name + "=" + r.Model[name]
		}
		t.AppendRow(table.Row{r.Name, verdict, strings.Join(pairs, ", "), r.Elapsed})
	}
	t.Render()
	_, _ = fmt.Fprintf(w, "(%d queries)\n", len(results))
}
