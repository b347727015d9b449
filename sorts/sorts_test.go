package sorts

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slava0135/smtshim/term"
)

func TestSortOf(t *testing.T) {
	tbl := Default()
	s, err := tbl.SortOf(term.TagI32)
	require.NoError(t, err)
	assert.Equal(t, "(_ BitVec 32)", s)

	_, err = tbl.SortOf("node")
	var ute *UnknownTagError
	require.ErrorAs(t, err, &ute)
	assert.Equal(t, term.Tag("node"), ute.Tag)
}

func TestOperator(t *testing.T) {
	tbl := Default()
	assert.Equal(t, "=", tbl.Operator("equal"))
	assert.Equal(t, "bvadd", tbl.Operator("bvadd"))
}

// 5570040328.001035 is the value z3 printed as (fp #b0 #b10000011111 #x4c0012080043d).
func TestEncodeLiteral_IEEE(t *testing.T) {
	tests := []struct {
		name string
		lit  term.Literal
		want string
	}{
		{
			name: "f64 normal",
			lit:  term.F64(math.Float64frombits(0x41f4c0012080043d)),
			want: "(fp #b0 #b10000011111 #b0100110000000000000100100000100000000000010000111101)",
		},
		{
			name: "f64 negative zero",
			lit:  term.F64(math.Copysign(0, -1)),
			want: "(fp #b1 #b00000000000 #b" + strings.Repeat("0", 52) + ")",
		},
		{
			name: "f64 +inf",
			lit:  term.F64(math.Inf(1)),
			want: "(fp #b0 #b11111111111 #b" + strings.Repeat("0", 52) + ")",
		},
		{
			name: "f32 1.5",
			lit:  term.F32(1.5),
			want: "(fp #b0 #b01111111 #b10000000000000000000000)",
		},
		{
			name: "f32 -2",
			lit:  term.F32(-2),
			want: "(fp #b1 #b10000000 #b00000000000000000000000)",
		},
	}
	tbl := Default()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tbl.EncodeLiteral(tt.lit)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncodeLiteral_Real(t *testing.T) {
	tbl := Default()
	require.NoError(t, tbl.SetFloatEncoding(FloatsReal))

	tests := []struct {
		name    string
		value   float64
		want    string
		wantErr bool
	}{
		{name: "integer", value: 5, want: "5.0"},
		{name: "negative fraction", value: -0.75, want: "(- (/ 3.0 4.0))"},
		{name: "one tenth is exact", value: 0.1, want: "(/ 3602879701896397.0 36028797018963968.0)"},
		{name: "nan", value: math.NaN(), wantErr: true},
		{name: "inf", value: math.Inf(-1), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tbl.EncodeLiteral(term.F64(tt.value))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncodeLiteral_String(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "", want: `""`},
		{in: "abc", want: `"abc"`},
		{in: `say "hi"`, want: `"say ""hi"""`},
		{in: `a\u{41}`, want: `"a\u{5c}u{41}"`},
		{in: "tab\there", want: `"tab\u{9}here"`},
		{in: "λ", want: `"\u{3bb}"`},
		{in: "\U0001F600", want: `"\u{1f600}"`},
		{in: "\U0002FFFF", want: `"\u{2ffff}"`},
		{in: "\uFFFD", want: `"\u{fffd}"`},
	}
	tbl := Default()
	for _, tt := range tests {
		got, err := tbl.EncodeLiteral(term.Str(tt.in))
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "input %q", tt.in)
	}
}

func TestEncodeLiteral_StringOutsideAlphabet(t *testing.T) {
	tests := []struct {
		name      string
		in        string
		errSubstr string
	}{
		{name: "invalid UTF-8", in: "a\xffb", errSubstr: "not valid UTF-8"},
		{name: "lone continuation byte", in: "\x80", errSubstr: "not valid UTF-8"},
		{name: "above U+2FFFF", in: "x\U0001F600\U00030000", errSubstr: "U+30000"},
		{name: "supplementary private use", in: "\U000F0000", errSubstr: "outside the solver's alphabet"},
	}
	tbl := Default()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tbl.EncodeLiteral(term.Str(tt.in))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestEncodeLiteral_NotRegistryKind(t *testing.T) {
	_, err := Default().EncodeLiteral(term.I32(1))
	require.Error(t, err)
}

func TestDecode(t *testing.T) {
	src := `
sorts:
  node: Node
  i32: "(_ BitVec 32)"
operators:
  plus: bvadd
floats: real
`
	tbl, err := Decode(strings.NewReader(src))
	require.NoError(t, err)

	s, err := tbl.SortOf("node")
	require.NoError(t, err)
	assert.Equal(t, "Node", s)

	s, err = tbl.SortOf(term.TagFP64)
	require.NoError(t, err)
	assert.Equal(t, "Real", s)

	assert.Equal(t, "bvadd", tbl.Operator("plus"))
	assert.Equal(t, "=", tbl.Operator("equal"), "defaults survive a merge")
	assert.Equal(t, FloatsReal, tbl.FloatEncoding())
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name      string
		src       string
		errSubstr string
	}{
		{name: "bad float encoding", src: "floats: decimal", errSubstr: "unknown float encoding"},
		{name: "empty sort", src: "sorts: {node: ''}", errSubstr: "empty sort"},
		{name: "empty token", src: "operators: {plus: ''}", errSubstr: "empty token"},
		{name: "unknown key", src: "types: {}", errSubstr: "not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.src))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sorts.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sorts: {addr: \"(_ BitVec 48)\"}\n"), 0o644))
	tbl, err := LoadFile(path)
	require.NoError(t, err)
	s, err := tbl.SortOf("addr")
	require.NoError(t, err)
	assert.Equal(t, "(_ BitVec 48)", s)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestClone_Independent(t *testing.T) {
	base := Default()
	c := base.Clone()
	c.Define("node", "Node")
	_, err := base.SortOf("node")
	require.Error(t, err)
}
