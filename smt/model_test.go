package smt

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slava0135/smtshim/term"
)

func TestCheckSatModelWire(t *testing.T) {
	dir := t.TempDir()
	f := newFakeSolver(withModel("sat", "((x0 #x00000005)\n (x1 true))"))
	s := newFakeSession(t, f, Config{TranscriptDir: dir})

	a := term.NewArena()
	x := a.NewVar(term.TagI32, "x")
	p := a.NewVar(term.TagBool, "p")
	v, m, err := s.CheckSatModel(context.Background(), term.And(term.Apply("=", x, term.I32(5)), p))
	require.NoError(t, err)
	assert.Equal(t, Sat, v)
	require.NotNil(t, m)
	assert.Equal(t, []*term.Var{x, p}, m.Vars)
	got, ok := m.Value(x)
	require.True(t, ok)
	assert.Equal(t, "#x00000005", got)
	got, _ = m.Value(p)
	assert.Equal(t, "true", got)

	want := `(push)
(pop)
(push)
(declare-const x0 (_ BitVec 32))
(declare-const x1 Bool)
(assert (and (= x0 #x00000005) x1))
(check-sat)
(get-value (x0 x1))
`
	if diff := cmp.Diff(want, f.Sent()); diff != "" {
		t.Errorf("wire mismatch (-want +got):\n%s", diff)
	}

	require.NoError(t, s.Close())
	data, err := os.ReadFile(filepath.Join(dir, "session-"+s.ID()+".smt2"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "; sat\n(get-value (x0 x1))\n; ((x0 #x00000005)\n;  (x1 true))\n; END CHECK #1\n")
}

func TestCheckSatModelOnlyAfterSat(t *testing.T) {
	a := term.NewArena()
	x := a.NewVar(term.TagBool, "x")
	for _, verdict := range []string{"unsat", "unknown"} {
		t.Run(verdict, func(t *testing.T) {
			f := newFakeSolver(withModel(verdict, "((x0 true))"))
			s := newFakeSession(t, f, Config{})
			_, m, err := s.CheckSatModel(context.Background(), x)
			require.NoError(t, err)
			assert.Nil(t, m)
			assert.NotContains(t, f.Sent(), "get-value")
		})
	}
}

func TestCheckSatModelWithoutVars(t *testing.T) {
	f := newFakeSolver(always("sat"))
	s := newFakeSession(t, f, Config{})
	v, m, err := s.CheckSatModel(context.Background(), term.Bool(true))
	require.NoError(t, err)
	assert.Equal(t, Sat, v)
	require.NotNil(t, m)
	assert.Zero(t, m.Len())
	assert.NotContains(t, f.Sent(), "get-value")
}

func TestCheckSatLeavesModelUnasked(t *testing.T) {
	f := newFakeSolver(withModel("sat", "((x0 true))"))
	s := newFakeSession(t, f, Config{})
	x := term.NewArena().NewVar(term.TagBool, "x")
	v, err := s.CheckSat(context.Background(), x)
	require.NoError(t, err)
	assert.Equal(t, Sat, v)
	assert.NotContains(t, f.Sent(), "get-value")
}

func TestCheckSatModelBadResponse(t *testing.T) {
	tests := []struct {
		name   string
		values string
	}{
		{name: "error line", values: `(error "model generation not enabled")`},
		{name: "not an expression", values: "sat"},
		{name: "missing variable", values: "((x0 true))"},
		{name: "unknown name", values: "((x0 true) (x7 false))"},
		{name: "repeated name", values: "((x0 true) (x0 false))"},
		{name: "not pairs", values: "(x0 true x1 false)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeSolver(withModel("sat", tt.values))
			s := newFakeSession(t, f, Config{})
			a := term.NewArena()
			x := a.NewVar(term.TagBool, "x")
			y := a.NewVar(term.TagBool, "y")

			_, _, err := s.CheckSatModel(context.Background(), term.And(x, y))
			var perr *ProtocolError
			require.ErrorAs(t, err, &perr)
			assert.ErrorIs(t, s.Broken(), perr)
			assert.Equal(t, 1, s.Stats().Errors)
		})
	}
}

func TestCheckSatModelStringValue(t *testing.T) {
	// A value holding parens and quotes spans lines without ending early.
	f := newFakeSolver(withModel("sat", "((x0 \"a)\"\"\n(\"))"))
	s := newFakeSession(t, f, Config{})
	x := term.NewArena().NewVar(term.TagString, "x")

	_, m, err := s.CheckSatModel(context.Background(), term.Apply("str.prefixof", term.Str("a"), x))
	require.NoError(t, err)
	got, _ := m.Value(x)
	assert.Equal(t, "\"a)\"\"\n(\"", got)
	assert.Equal(t, `"a)\"\n("`, FormatValue(term.TagString, got))
}

func TestPoolCheckSatModel(t *testing.T) {
	ff := &fakeFactory{respond: withModel("sat", "((x0 #x0000000000000007))")}
	p, err := NewPool(context.Background(), 2, ff.New, nil)
	require.NoError(t, err)
	defer p.Close()

	var checker ModelChecker = p
	x := term.NewArena().NewVar(term.TagI64, "x")
	v, m, err := checker.CheckSatModel(context.Background(), term.Apply("bvsgt", x, term.I64(5)))
	require.NoError(t, err)
	assert.Equal(t, Sat, v)
	got, _ := m.Value(x)
	assert.Equal(t, "7", FormatValue(term.TagI64, got))
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		tag   term.Tag
		value string
		want  string
	}{
		{tag: term.TagBool, value: "false", want: "false"},
		{tag: term.TagI32, value: "#x00000005", want: "5"},
		{tag: term.TagI32, value: "#xfffffffb", want: "-5"},
		{tag: term.TagU32, value: "#xfffffffb", want: "4294967291"},
		{tag: term.TagI64, value: "#x8000000000000000", want: "-9223372036854775808"},
		{tag: term.TagU64, value: "#xffffffffffffffff", want: "18446744073709551615"},
		{tag: term.TagI32, value: "(_ bv42 32)", want: "42"},
		{tag: term.TagI32, value: "#b" + strings.Repeat("1", 32), want: "-1"},
		{tag: term.TagFP32, value: "(fp #b0 #b01111111 #b00000000000000000000000)", want: "1"},
		{tag: term.TagFP32, value: "(fp #b1 #x80 #b10000000000000000000000)", want: "-3"},
		{tag: term.TagFP64, value: "(fp #b0 #b01111111101 #x5555555555555)", want: "0.3333333333333333"},
		{tag: term.TagFP64, value: "(_ -zero 11 53)", want: "-0"},
		{tag: term.TagFP64, value: "(_ +oo 11 53)", want: "+Inf"},
		{tag: term.TagFP32, value: "(_ NaN 8 24)", want: "NaN"},
		{tag: term.TagFP64, value: "(- (/ 1.0 4.0))", want: "-0.25"},
		{tag: term.TagFP64, value: "2.5", want: "2.5"},
		{tag: term.TagString, value: `"say ""hi"""`, want: `"say \"hi\""`},
		{tag: term.TagString, value: `"\u{3bb}A"`, want: `"λA"`},
		// Undecodable values come back as the solver wrote them.
		{tag: term.TagI32, value: "#x0005", want: "#x0005"},
		{tag: term.TagBool, value: "(ite c true false)", want: "(ite c true false)"},
		{tag: "node", value: "Node!val!0", want: "Node!val!0"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatValue(tt.tag, tt.value), "%s %s", tt.tag, tt.value)
	}
}

func TestBalanced(t *testing.T) {
	assert.True(t, balanced("((x0 1))"))
	assert.False(t, balanced("((x0 1)"))
	assert.False(t, balanced(`((x0 "a))"`))
	assert.True(t, balanced(`((x0 "a))"""))`))
	assert.False(t, balanced("((|x)"))
}
