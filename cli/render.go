package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"

	"slava0135/smtshim/smt"
	"slava0135/smtshim/symexec"
)

type statsDoc struct {
	Checks    int    `yaml:"checks"`
	Sat       int    `yaml:"sat"`
	Unsat     int    `yaml:"unsat"`
	Unknown   int    `yaml:"unknown"`
	Errors    int    `yaml:"errors"`
	Serialize string `yaml:"serialize"`
	Solve     string `yaml:"solve"`
	Wait      string `yaml:"wait,omitempty"`
}

func newStatsDoc(st smt.Stats) statsDoc {
	doc := statsDoc{
		Checks:    st.Checks,
		Sat:       st.Sat,
		Unsat:     st.Unsat,
		Unknown:   st.Unknown,
		Errors:    st.Errors,
		Serialize: formatDuration(st.SerializeTime),
		Solve:     formatDuration(st.SolveTime),
	}
	if st.WaitTime > 0 {
		doc.Wait = formatDuration(st.WaitTime)
	}
	return doc
}

func formatDuration(d time.Duration) string {
	return d.Round(time.Microsecond).String()
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

func renderStats(w io.Writer, st smt.Stats) {
	t := newTable(w)
	t.AppendHeader(table.Row{"checks", "sat", "unsat", "unknown", "errors", "serialize", "solve", "wait"})
	t.AppendRow(table.Row{
		st.Checks, st.Sat, st.Unsat, st.Unknown, st.Errors,
		formatDuration(st.SerializeTime), formatDuration(st.SolveTime), formatDuration(st.WaitTime),
	})
	t.Render()
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func renderReports(w io.Writer, reports []*symexec.Report) {
	t := newTable(w)
	t.AppendHeader(table.Row{"function", "#", "outcome", "verdict", "condition", "results", "inputs"})
	for _, r := range reports {
		if r.Err != nil {
			t.AppendRow(table.Row{r.Function, "", "error", "", r.Err.Error(), "", ""})
			continue
		}
		if len(r.Paths) == 0 {
			t.AppendRow(table.Row{r.Function, "", "no paths", "", "", "", ""})
		}
		for i, p := range r.Paths {
			results := make([]string, len(p.Results))
			for j, res := range p.Results {
				results[j] = res.String()
			}
			t.AppendRow(table.Row{r.Function, i, p.Outcome, p.Verdict, p.Condition.String(), strings.Join(results, ", "), p.InputsString()})
		}
		t.AppendSeparator()
	}
	t.Render()
	_, _ = fmt.Fprintf(w, "(%d functions)\n", len(reports))
}
