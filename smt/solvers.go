package smt

import (
	"fmt"
	"sort"
	"strings"
)

var solverCommands = map[string][]string{
	"z3":    {"z3", "-in", "-smt2"},
	"cvc4":  {"cvc4", "--lang=smt2", "--incremental"},
	"cvc5":  {"cvc5", "--lang=smt2", "--incremental"},
	"yices": {"yices-smt2", "--incremental"},
}

// SolverCommand returns the command line that runs a known solver reading
// SMT-LIB from standard input.
func SolverCommand(name string) ([]string, error) {
	argv, ok := solverCommands[name]
	if !ok {
		return nil, fmt.Errorf("unknown solver '%s' (known: %s)", name, strings.Join(Solvers(), ", "))
	}
	return append([]string(nil), argv...), nil
}

func Solvers() []string {
	names := make([]string, 0, len(solverCommands))
	for name := range solverCommands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Preamble builds the script sent once per session, before the first push.
// print-success is switched off so that the only lines the solver writes are
// check-sat and get-value answers and errors; produce-models makes get-value
// available.
func Preamble(logic string, extra string) string {
	var sb strings.Builder
	sb.WriteString("(set-option :print-success false)\n")
	sb.WriteString("(set-option :produce-models true)\n")
	if logic != "" {
		fmt.Fprintf(&sb, "(set-logic %s)\n", logic)
	}
	if extra = strings.TrimSpace(extra); extra != "" {
		sb.WriteString(extra)
		sb.WriteByte('\n')
	}
	return sb.String()
}
