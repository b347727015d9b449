package term

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntLit(t *testing.T) {
	tests := []struct {
		name    string
		kind    Kind
		value   int64
		wantErr bool
	}{
		{name: "i32 min", kind: KindI32, value: math.MinInt32},
		{name: "i32 max", kind: KindI32, value: math.MaxInt32},
		{name: "i32 overflow", kind: KindI32, value: math.MaxInt32 + 1, wantErr: true},
		{name: "i32 underflow", kind: KindI32, value: math.MinInt32 - 1, wantErr: true},
		{name: "i64 min", kind: KindI64, value: math.MinInt64},
		{name: "not an integer kind", kind: KindBool, value: 1, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lit, err := IntLit(tt.kind, tt.value)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.kind, lit.Kind())
			assert.Equal(t, tt.value, lit.IntValue())
		})
	}
}

func TestIntLit_RangeError(t *testing.T) {
	_, err := IntLit(KindI32, 1<<40)
	var re *RangeError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, KindI32, re.Kind)
}

func TestArena_IdentityNotContent(t *testing.T) {
	a := NewArena()
	x := a.NewVar(TagI32, "x")
	y := a.NewVar(TagI32, "x")
	assert.NotEqual(t, x.ID(), y.ID())
	got, ok := a.Var(y.ID())
	require.True(t, ok)
	assert.Same(t, y, got)
	_, ok = a.Var(VarID(a.Len()))
	assert.False(t, ok)
}

func TestOp_String(t *testing.T) {
	a := NewArena()
	x := a.NewVar(TagBool, "x")
	n := Apply("and", x, Not(x))
	assert.Equal(t, "(and x (not x))", n.String())
	assert.Equal(t, "pi", Const("pi").String())
	assert.Equal(t, 0, Const("pi").Arity())
}

func TestAnd(t *testing.T) {
	assert.Equal(t, Bool(true), And())
	c := Bool(false)
	assert.Equal(t, Node(c), And(c))
	assert.Equal(t, "(and true false)", And(Bool(true), Bool(false)).String())
}

func TestDecodeQueries(t *testing.T) {
	src := `
vars:
  x: i32
  p: bool
queries:
  - name: five
    assert: {op: "=", args: [{var: x}, {i32: 5}]}
  - assert: {op: and, args: [{var: p}, {op: not, args: [{var: p}]}]}
`
	qf, err := DecodeQueries(strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, qf.Queries, 2)
	assert.Equal(t, "five", qf.Queries[0].Name)
	assert.Equal(t, "query-2", qf.Queries[1].Name)
	assert.Equal(t, "(= x 5:i32)", qf.Queries[0].Assert.String())

	and := qf.Queries[1].Assert.(*Op)
	not := and.Arg(1).(*Op)
	assert.Same(t, and.Arg(0), not.Arg(0), "same name must be the same instance")
	assert.Equal(t, TagI32, qf.Vars["x"].Tag())
}

func TestDecodeQueries_Errors(t *testing.T) {
	tests := []struct {
		name      string
		src       string
		errSubstr string
	}{
		{
			name:      "undeclared variable",
			src:       "queries: [{assert: {var: y}}]",
			errSubstr: "undeclared variable 'y'",
		},
		{
			name:      "mixed forms",
			src:       "queries: [{assert: {bool: true, i32: 1}}]",
			errSubstr: "mixes 2 forms",
		},
		{
			name:      "args without op",
			src:       "queries: [{assert: {args: [{bool: true}]}}]",
			errSubstr: "args given without op",
		},
		{
			name:      "i32 overflow",
			src:       "queries: [{assert: {i32: 4294967296}}]",
			errSubstr: "cannot unmarshal",
		},
		{
			name:      "unknown field",
			src:       "queries: [{assert: {float: 1.0}}]",
			errSubstr: "not found",
		},
		{
			name:      "missing assert",
			src:       "queries: [{name: q}]",
			errSubstr: "missing assert",
		},
		{
			name:      "empty document",
			src:       "",
			errSubstr: "empty query document",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeQueries(strings.NewReader(tt.src))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}
