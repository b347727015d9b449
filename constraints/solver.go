// Package constraints holds worked examples: small Go functions next to the
// path conditions a symbolic executor would produce for them, checked
// against a live solver.
package constraints

import (
	"context"
	"fmt"
	"io"
	"strings"

	"slava0135/smtshim/smt"
	"slava0135/smtshim/sorts"
	"slava0135/smtshim/term"
)

const intSize = 64

type Scenario struct {
	Name  string
	Src   string
	Paths []PathCheck
}

type PathCheck struct {
	Path   string
	Assert term.Node
	// Assumptions are conjoined with Assert. With Relax set, they are
	// dropped from the back one at a time while the check comes back unsat.
	Assumptions []Assumption
	Relax       bool
	Want        smt.Verdict
}

type Assumption struct {
	Name string
	Cond term.Node
}

type Result struct {
	Scenario string
	Path     string
	Want     smt.Verdict
	Got      smt.Verdict
	Dropped  []string
}

func (r Result) OK() bool {
	return r.Got == r.Want
}

// All returns every scenario, in a fixed order.
func All() []Scenario {
	return []Scenario{
		IntegerOperations(),
		FloatOperations(),
		MixedOperations(),
		BitwiseOperations(),
		PushPopIncrementality(),
		CompareElement(),
		BasicComplexOperations(),
		Subtypes(),
		CompareAndIncrement(),
	}
}

// Registry is the default registry plus the sorts the scenarios need.
func Registry() *sorts.Table {
	t := sorts.Default()
	t.Define(arrayTag, fmt.Sprintf("(Array (_ BitVec %d) (_ BitVec %d))", intSize, intSize))
	t.Define(typeTag, "Type")
	return t
}

// Run checks every path of every scenario through checker and writes a
// trace to w. A solver failure stops the run; a wrong verdict does not.
func Run(ctx context.Context, checker smt.Checker, w io.Writer, scenarios []Scenario) ([]Result, error) {
	var results []Result
	for _, sc := range scenarios {
		fmt.Fprintln(w, "::", sc.Name)
		if sc.Src != "" {
			printSrc(w, sc.Src)
		}
		for _, p := range sc.Paths {
			res, err := solve(ctx, checker, w, p)
			if err != nil {
				return results, fmt.Errorf("%s: %s: %w", sc.Name, p.Path, err)
			}
			res.Scenario = sc.Name
			results = append(results, res)
		}
		fmt.Fprintln(w)
	}
	return results, nil
}

func solve(ctx context.Context, checker smt.Checker, w io.Writer, p PathCheck) (Result, error) {
	printPath(w, p.Path)
	res := Result{Path: p.Path, Want: p.Want}
	remaining := p.Assumptions
	for {
		conds := []term.Node{p.Assert}
		for _, a := range remaining {
			conds = append(conds, a.Cond)
		}
		verdict, err := checker.CheckSat(ctx, term.And(conds...))
		if err != nil {
			return res, err
		}
		res.Got = verdict
		if verdict != smt.Unsat || !p.Relax || len(remaining) == 0 {
			break
		}
		last := remaining[len(remaining)-1]
		fmt.Fprintln(w, "dropped assumption:", last.Name)
		res.Dropped = append(res.Dropped, last.Name)
		remaining = remaining[:len(remaining)-1]
	}
	if res.OK() {
		fmt.Fprintln(w, res.Got)
	} else {
		fmt.Fprintf(w, "%s (want %s)\n", res.Got, res.Want)
	}
	return res, nil
}

func printSrc(w io.Writer, src string) {
	maxLen := 0
	for _, line := range strings.Split(src, "\n") {
		len := len(line)
		if len > maxLen {
			maxLen = len
		}
	}
	fmt.Fprint(w, strings.Repeat("%", maxLen))
	fmt.Fprintln(w, src)
	fmt.Fprintln(w, strings.Repeat("%", maxLen))
	fmt.Fprintln(w)
}

func printPath(w io.Writer, path string) {
	fmt.Fprintln(w, ":: "+path)
}
