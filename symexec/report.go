package symexec

import (
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"slava0135/smtshim/smt"
	"slava0135/smtshim/term"
)

// Outcome is how a path ended.
type Outcome string

const (
	OutcomeReturned  Outcome = "return"
	OutcomePanicked  Outcome = "panic"
	OutcomeTruncated Outcome = "truncated"
)

type Path struct {
	// Blocks are the indices of the entry function's blocks, in visiting
	// order.
	Blocks    []int
	Condition term.Node
	Results   []term.Node
	Outcome   Outcome
	// Verdict is the answer to the last check of Condition.
	Verdict smt.Verdict
	// Inputs is an assignment of the parameters that follows this path. It is
	// only filled in when Options.Inputs is set and the verdict is sat.
	Inputs []Input
}

// Input is a parameter value in Go literal syntax.
type Input struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
}

func (p Path) InputsString() string {
	parts := make([]string, len(p.Inputs))
	for i, in := range p.Inputs {
		parts[i] = in.Name + "=" + in.Value
	}
	return strings.Join(parts, ", ")
}

type Report struct {
	Function  string
	Signature string
	Params    []*term.Var
	Paths     []Path
	// Checks counts solver calls; Pruned counts forks dropped as unsat.
	Checks int
	Pruned int
	Err    error
}

func (r *Report) Count(o Outcome) int {
	n := 0
	for _, p := range r.Paths {
		if p.Outcome == o {
			n++
		}
	}
	return n
}

func (p Path) BlocksString() string {
	parts := make([]string, len(p.Blocks))
	for i, b := range p.Blocks {
		parts[i] = fmt.Sprint(b)
	}
	return strings.Join(parts, " -> ")
}

type pathDoc struct {
	Blocks    string   `yaml:"blocks"`
	Condition string   `yaml:"condition"`
	Results   []string `yaml:"results,omitempty"`
	Outcome   Outcome  `yaml:"outcome"`
	Verdict   string   `yaml:"verdict"`
	Inputs    []Input  `yaml:"inputs,omitempty"`
}

type reportDoc struct {
	Function  string    `yaml:"function"`
	Signature string    `yaml:"signature"`
	Checks    int       `yaml:"checks"`
	Pruned    int       `yaml:"pruned"`
	Error     string    `yaml:"error,omitempty"`
	Paths     []pathDoc `yaml:"paths,omitempty"`
}

func (r *Report) MarshalYAML() (any, error) {
	doc := reportDoc{
		Function:  r.Function,
		Signature: r.Signature,
		Checks:    r.Checks,
		Pruned:    r.Pruned,
	}
	if r.Err != nil {
		doc.Error = r.Err.Error()
	}
	for _, p := range r.Paths {
		pd := pathDoc{
			Blocks:    p.BlocksString(),
			Condition: p.Condition.String(),
			Outcome:   p.Outcome,
			Verdict:   p.Verdict.String(),
			Inputs:    p.Inputs,
		}
		for _, res := range p.Results {
			pd.Results = append(pd.Results, res.String())
		}
		doc.Paths = append(doc.Paths, pd)
	}
	return doc, nil
}

func WriteYAML(w io.Writer, reports []*Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(reports); err != nil {
		return err
	}
	return enc.Close()
}
