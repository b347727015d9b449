// Package sorts is the type registry consulted when declaring variables and
// writing literals: it maps tags to solver sort names, operator tags to
// solver tokens, and owns the textual encoding of float and string literals.
package sorts

import (
	"fmt"
	"maps"
	"math"
	"math/big"
	"strings"
	"unicode/utf8"

	"slava0135/smtshim/term"
)

type FloatEncoding string

const (
	// FloatsIEEE writes floats as (fp sign exponent significand) bit-vector
	// triples of their exact IEEE-754 pattern.
	FloatsIEEE FloatEncoding = "ieee"
	// FloatsReal writes floats as exact rationals; NaN and infinities are
	// rejected.
	FloatsReal FloatEncoding = "real"
)

const (
	fp32Sort = "(_ FloatingPoint 8 24)"
	fp64Sort = "(_ FloatingPoint 11 53)"
	realSort = "Real"
)

type UnknownTagError struct {
	Tag term.Tag
}

func (e *UnknownTagError) Error() string {
	return fmt.Sprintf("no sort registered for tag '%s'", e.Tag)
}

type Table struct {
	sorts     map[term.Tag]string
	operators map[term.Tag]string
	floats    FloatEncoding
}

func Default() *Table {
	return &Table{
		sorts: map[term.Tag]string{
			term.TagBool:   "Bool",
			term.TagI32:    "(_ BitVec 32)",
			term.TagU32:    "(_ BitVec 32)",
			term.TagI64:    "(_ BitVec 64)",
			term.TagU64:    "(_ BitVec 64)",
			term.TagFP32:   fp32Sort,
			term.TagFP64:   fp64Sort,
			term.TagString: "String",
		},
		operators: map[term.Tag]string{
			"equal":     "=",
			"not_equal": "distinct",
			"implies":   "=>",
		},
		floats: FloatsIEEE,
	}
}

func (t *Table) Clone() *Table {
	return &Table{
		sorts:     maps.Clone(t.sorts),
		operators: maps.Clone(t.operators),
		floats:    t.floats,
	}
}

func (t *Table) Define(tag term.Tag, sort string) {
	t.sorts[tag] = sort
}

func (t *Table) Alias(tag term.Tag, token string) {
	t.operators[tag] = token
}

func (t *Table) SetFloatEncoding(enc FloatEncoding) error {
	switch enc {
	case FloatsIEEE:
	case FloatsReal:
	default:
		return fmt.Errorf("unknown float encoding '%s'", enc)
	}
	t.floats = enc
	return nil
}

func (t *Table) FloatEncoding() FloatEncoding {
	return t.floats
}

func (t *Table) SortOf(tag term.Tag) (string, error) {
	s, ok := t.sorts[tag]
	if !ok {
		return "", &UnknownTagError{Tag: tag}
	}
	return s, nil
}

// Operator returns the solver token for an operator tag. Tags without an
// alias are written as is: they may name functions declared in the preamble.
func (t *Table) Operator(tag term.Tag) string {
	if tok, ok := t.operators[tag]; ok {
		return tok
	}
	return string(tag)
}

func (t *Table) EncodeLiteral(lit term.Literal) (string, error) {
	switch lit.Kind() {
	case term.KindFP32:
		if t.floats == FloatsReal {
			return encodeReal(lit.FloatValue())
		}
		bits := math.Float32bits(float32(lit.FloatValue()))
		return fmt.Sprintf("(fp #b%01b #b%08b #b%023b)", bits>>31, (bits>>23)&0xff, bits&(1<<23-1)), nil
	case term.KindFP64:
		if t.floats == FloatsReal {
			return encodeReal(lit.FloatValue())
		}
		bits := math.Float64bits(lit.FloatValue())
		return fmt.Sprintf("(fp #b%01b #b%011b #b%052b)", bits>>63, (bits>>52)&0x7ff, bits&(1<<52-1)), nil
	case term.KindString:
		return encodeString(lit.StringValue())
	default:
		return "", fmt.Errorf("no registry encoding for %s literals", lit.Kind())
	}
}

func encodeReal(f float64) (string, error) {
	r := new(big.Rat)
	if math.IsNaN(f) || math.IsInf(f, 0) || r.SetFloat64(f) == nil {
		return "", fmt.Errorf("%v has no Real representation", f)
	}
	neg := r.Sign() < 0
	r.Abs(r)
	var s string
	if r.IsInt() {
		s = r.Num().String() + ".0"
	} else {
		s = fmt.Sprintf("(/ %s.0 %s.0)", r.Num(), r.Denom())
	}
	if neg {
		s = "(- " + s + ")"
	}
	return s, nil
}

const maxStringRune = 0x2FFFF

// encodeString writes an SMT-LIB 2.6 string literal. Backslashes are escaped
// too, otherwise a literal "\u{41}" would be read back as "A". The theory's
// alphabet ends at U+2FFFF, and s must be valid UTF-8.
func encodeString(s string) (string, error) {
	if !utf8.ValidString(s) {
		return "", fmt.Errorf("string literal %q is not valid UTF-8", s)
	}
	var sb strings.Builder
	sb.WriteByte('"')
	for _, r := range s {
		switch {
		case r > maxStringRune:
			return "", fmt.Errorf("string literal %q: %U is outside the solver's alphabet", s, r)
		case r == '"':
			sb.WriteString(`""`)
		case r == '\\' || r < 0x20 || r > 0x7e:
			fmt.Fprintf(&sb, `\u{%x}`, r)
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('"')
	return sb.String(), nil
}
