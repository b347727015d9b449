package smt

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"slava0135/smtshim/sorts"
	"slava0135/smtshim/term"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// TestHelperProcess is not a real test: it is the solver the process tests
// start, by running the test binary again. It answers every (check-sat):
// "unsat" for a query asserting (and x0 (not x0)), an error line for a query
// mentioning boom, nothing at all for one mentioning hang, and "sat"
// otherwise. A (get-value ...) gets true for every name, one pair per line.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("SMTSHIM_HELPER_PROCESS") != "1" {
		return
	}
	in := bufio.NewScanner(os.Stdin)
	var query strings.Builder
	for in.Scan() {
		line := in.Text()
		if names, ok := strings.CutPrefix(line, "(get-value ("); ok {
			var pairs []string
			for _, name := range strings.Fields(strings.TrimSuffix(names, "))")) {
				pairs = append(pairs, "("+name+" true)")
			}
			fmt.Println("(" + strings.Join(pairs, "\n ") + ")")
			continue
		}
		query.WriteString(line)
		query.WriteByte('\n')
		if line != "(check-sat)" {
			continue
		}
		q := query.String()
		query.Reset()
		switch {
		case strings.Contains(q, "hang"):
			time.Sleep(time.Hour)
		case strings.Contains(q, "boom"):
			fmt.Fprintln(os.Stderr, `(error "line 1 column 1: boom")`)
		case strings.Contains(q, "(assert (and x0 (not x0)))"):
			fmt.Println("unsat")
		default:
			fmt.Println("sat")
		}
	}
	os.Exit(0)
}

func helperConfig() Config {
	return Config{
		Command:  []string{os.Args[0], "-test.run=^TestHelperProcess$"},
		Env:      []string{"SMTSHIM_HELPER_PROCESS=1"},
		Preamble: Preamble("QF_BV", ""),
	}
}

func TestProcessSession(t *testing.T) {
	s, err := NewSession(helperConfig(), sorts.Default())
	require.NoError(t, err)
	ctx := context.Background()

	a := term.NewArena()
	x := a.NewVar(term.TagBool, "x")
	v, err := s.CheckSat(ctx, term.Apply("and", x, term.Not(x)))
	require.NoError(t, err)
	assert.Equal(t, Unsat, v)

	v, err = s.CheckSat(ctx, x)
	require.NoError(t, err)
	assert.Equal(t, Sat, v)

	assert.NoError(t, s.Close())
}

func TestProcessModel(t *testing.T) {
	s, err := NewSession(helperConfig(), sorts.Default())
	require.NoError(t, err)
	defer s.Close()

	a := term.NewArena()
	p := a.NewVar(term.TagBool, "p")
	q := a.NewVar(term.TagBool, "q")
	v, m, err := s.CheckSatModel(context.Background(), term.And(p, q))
	require.NoError(t, err)
	assert.Equal(t, Sat, v)
	require.Equal(t, 2, m.Len())
	assert.Equal(t, []string{"true", "true"}, m.Values)

	// The session stays in step after a multi-line answer.
	v, err = s.CheckSat(context.Background(), term.Apply("and", p, term.Not(p)))
	require.NoError(t, err)
	assert.Equal(t, Unsat, v)
}

func TestProcessErrorOnStderr(t *testing.T) {
	s, err := NewSession(helperConfig(), sorts.Default())
	require.NoError(t, err)
	defer s.Close()

	_, err = s.CheckSat(context.Background(), term.Const("boom"))
	var perr *ProtocolError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, `(error "line 1 column 1: boom")`, perr.Line)
}

func TestProcessTimeoutKillsSolver(t *testing.T) {
	s, err := NewSession(helperConfig(), sorts.Default())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	_, err = s.CheckSat(ctx, term.Const("hang"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	done := make(chan error, 1)
	go func() { done <- s.Close() }()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(closeGrace):
		t.Fatal("Close did not return after the solver was killed")
	}
}

func TestProcessSolverExits(t *testing.T) {
	if _, err := exec.LookPath("true"); err != nil {
		t.Skip("true not on PATH")
	}
	s, err := NewSession(Config{Command: []string{"true"}, Preamble: Preamble("QF_BV", "")}, sorts.Default())
	if err != nil {
		// The solver may already be gone when the preamble is written.
		assert.ErrorContains(t, err, "send preamble")
		return
	}
	defer s.Close()

	_, err = s.CheckSat(context.Background(), term.Bool(true))
	require.Error(t, err)
	assert.Error(t, s.Broken())
}

func TestProcessStartFailure(t *testing.T) {
	_, err := NewSession(Config{Command: []string{"/nonexistent/solver"}}, sorts.Default())
	assert.ErrorContains(t, err, "start solver /nonexistent/solver")

	_, err = NewSession(Config{}, sorts.Default())
	assert.ErrorContains(t, err, "empty solver command")
}

func z3Config(t *testing.T, logic string) Config {
	t.Helper()
	argv, err := SolverCommand("z3")
	require.NoError(t, err)
	if _, err := exec.LookPath(argv[0]); err != nil {
		t.Skip("z3 not on PATH")
	}
	return Config{Command: argv, Preamble: Preamble(logic, "")}
}

func TestZ3(t *testing.T) {
	s, err := NewSession(z3Config(t, "QF_BV"), sorts.Default())
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	a := term.NewArena()
	x := a.NewVar(term.TagI32, "x")
	b := a.NewVar(term.TagBool, "b")
	tests := []struct {
		name string
		n    term.Node
		want Verdict
	}{
		{"true", term.Bool(true), Sat},
		{"false", term.Bool(false), Unsat},
		{"equal five", term.Apply("=", x, term.I32(5)), Sat},
		{"contradiction", term.Apply("and", b, term.Not(b)), Unsat},
		{"minus one", term.Apply("and",
			term.Apply("=", x, term.I32(-1)),
			term.Apply("=", x, term.Apply("bvnot", term.I32(0)))), Sat},
		{"signed order", term.Apply("and",
			term.Apply("bvslt", x, term.I32(0)),
			term.Apply("bvsgt", x, term.I32(0))), Unsat},
	}
	for _, test := range tests {
		got, err := s.CheckSat(ctx, test.n)
		require.NoError(t, err, test.name)
		assert.Equal(t, test.want, got, test.name)
	}
}

func TestZ3Floats(t *testing.T) {
	cfg := z3Config(t, "QF_FP")
	s, err := NewSession(cfg, sorts.Default())
	require.NoError(t, err)
	defer s.Close()

	a := term.NewArena()
	y := a.NewVar(term.TagFP64, "y")
	v, m, err := s.CheckSatModel(context.Background(), term.Apply("fp.eq", y, term.F64(5570040328.001035)))
	require.NoError(t, err)
	assert.Equal(t, Sat, v)
	got, ok := m.Value(y)
	require.True(t, ok)
	assert.Equal(t, "5.570040328001035e+09", FormatValue(term.TagFP64, got))
}

func TestZ3Model(t *testing.T) {
	s, err := NewSession(z3Config(t, "QF_BV"), sorts.Default())
	require.NoError(t, err)
	defer s.Close()

	a := term.NewArena()
	x := a.NewVar(term.TagI32, "x")
	b := a.NewVar(term.TagBool, "b")
	v, m, err := s.CheckSatModel(context.Background(), term.And(term.Apply("=", x, term.I32(-7)), b))
	require.NoError(t, err)
	assert.Equal(t, Sat, v)
	got, _ := m.Value(x)
	assert.Equal(t, "-7", FormatValue(term.TagI32, got))
	got, _ = m.Value(b)
	assert.Equal(t, "true", FormatValue(term.TagBool, got))
}

func TestZ3UndeclaredSymbol(t *testing.T) {
	s, err := NewSession(z3Config(t, ""), sorts.Default())
	require.NoError(t, err)
	defer s.Close()

	_, err = s.CheckSat(context.Background(), term.Const("nowhere"))
	var perr *ProtocolError
	assert.ErrorAs(t, err, &perr)
}
