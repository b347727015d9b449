package smt

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"

	"slava0135/smtshim/term"
)

// Model is what the solver reported for the variables of a satisfiable check,
// in the order they were declared. Values are SMT-LIB text as the solver
// printed it; FormatValue turns one into Go literal syntax.
type Model struct {
	Vars   []*term.Var
	Values []string
}

func (m *Model) Value(v *term.Var) (string, bool) {
	for i, mv := range m.Vars {
		if mv == v {
			return m.Values[i], true
		}
	}
	return "", false
}

func (m *Model) Len() int {
	return len(m.Vars)
}

// writeGetValue appends the command asking for every tracked variable.
func writeGetValue(sb Sink, tr *Tracker) {
	sb.WriteString("(get-value (")
	for i, v := range tr.Vars() {
		if i > 0 {
			sb.WriteByte(' ')
		}
		name, _ := tr.Name(v)
		sb.WriteString(name)
	}
	sb.WriteString("))\n")
}

// parseModel reads a get-value response, ((x0 v0) (x1 v1) ...), against the
// tracker that named the variables. Every tracked variable must be answered.
func parseModel(text string, tr *Tracker) (*Model, error) {
	e, err := parseSExpr(text)
	if err != nil || !e.isList {
		return nil, &ProtocolError{Line: text}
	}
	if len(e.list) > 0 && !e.list[0].isList && e.list[0].atom == "error" {
		return nil, &ProtocolError{Line: text}
	}
	index := make(map[string]int, tr.Len())
	for i, v := range tr.Vars() {
		name, _ := tr.Name(v)
		index[name] = i
	}
	m := &Model{
		Vars:   append([]*term.Var(nil), tr.Vars()...),
		Values: make([]string, tr.Len()),
	}
	seen := 0
	for _, pair := range e.list {
		if !pair.isList || len(pair.list) != 2 || pair.list[0].isList {
			return nil, &ProtocolError{Line: text}
		}
		i, ok := index[pair.list[0].atom]
		if !ok || m.Values[i] != "" {
			return nil, &ProtocolError{Line: text}
		}
		m.Values[i] = pair.list[1].text
		seen++
	}
	if seen != tr.Len() {
		return nil, &ProtocolError{Line: text}
	}
	return m, nil
}

// balanced reports whether text holds complete s-expressions: every paren
// closed and no string literal or quoted symbol left open.
func balanced(text string) bool {
	depth := 0
	inString, inQuoted := false, false
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case inString:
			// "" inside a string toggles twice and stays in.
			if c == '"' {
				inString = false
			}
		case inQuoted:
			if c == '|' {
				inQuoted = false
			}
		case c == '"':
			inString = true
		case c == '|':
			inQuoted = true
		case c == '(':
			depth++
		case c == ')':
			depth--
		}
	}
	return depth <= 0 && !inString && !inQuoted
}

type sexp struct {
	atom   string
	list   []sexp
	isList bool
	// text is the source the expression was read from.
	text string
}

// parseSExpr reads exactly one s-expression from src.
func parseSExpr(src string) (sexp, error) {
	r := &sexpReader{src: src}
	e, err := r.read()
	if err != nil {
		return sexp{}, err
	}
	r.skipSpace()
	if r.pos != len(r.src) {
		return sexp{}, fmt.Errorf("trailing input at offset %d", r.pos)
	}
	return e, nil
}

type sexpReader struct {
	src string
	pos int
}

func isDelimiter(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\n', '(', ')', '"', '|', ';':
		return true
	}
	return false
}

func (r *sexpReader) skipSpace() {
	for r.pos < len(r.src) {
		switch r.src[r.pos] {
		case ' ', '\t', '\r', '\n':
			r.pos++
		default:
			return
		}
	}
}

func (r *sexpReader) read() (sexp, error) {
	r.skipSpace()
	if r.pos >= len(r.src) {
		return sexp{}, errors.New("unexpected end of input")
	}
	start := r.pos
	switch r.src[r.pos] {
	case '(':
		r.pos++
		var list []sexp
		for {
			r.skipSpace()
			if r.pos >= len(r.src) {
				return sexp{}, errors.New("unbalanced parentheses")
			}
			if r.src[r.pos] == ')' {
				r.pos++
				return sexp{list: list, isList: true, text: r.src[start:r.pos]}, nil
			}
			e, err := r.read()
			if err != nil {
				return sexp{}, err
			}
			list = append(list, e)
		}
	case ')':
		return sexp{}, fmt.Errorf("unexpected ')' at offset %d", r.pos)
	case '"':
		r.pos++
		for {
			i := strings.IndexByte(r.src[r.pos:], '"')
			if i < 0 {
				return sexp{}, errors.New("unterminated string literal")
			}
			r.pos += i + 1
			if r.pos < len(r.src) && r.src[r.pos] == '"' {
				r.pos++
				continue
			}
			break
		}
	case '|':
		i := strings.IndexByte(r.src[r.pos+1:], '|')
		if i < 0 {
			return sexp{}, errors.New("unterminated quoted symbol")
		}
		r.pos += i + 2
	default:
		for r.pos < len(r.src) && !isDelimiter(r.src[r.pos]) {
			r.pos++
		}
	}
	text := r.src[start:r.pos]
	return sexp{atom: text, text: text}, nil
}

// FormatValue renders a model value of a variable with the given tag as a Go
// literal: integers in decimal, floats in shortest form, strings quoted. A
// value it cannot decode is returned as is.
func FormatValue(tag term.Tag, value string) string {
	e, err := parseSExpr(value)
	if err != nil {
		return value
	}
	var s string
	var ok bool
	switch tag {
	case term.TagBool:
		s, ok = e.atom, !e.isList && (e.atom == "true" || e.atom == "false")
	case term.TagI32:
		s, ok = formatBitVec(e, 32, true)
	case term.TagI64:
		s, ok = formatBitVec(e, 64, true)
	case term.TagU32:
		s, ok = formatBitVec(e, 32, false)
	case term.TagU64:
		s, ok = formatBitVec(e, 64, false)
	case term.TagFP32:
		s, ok = formatFloat(e, 32)
	case term.TagFP64:
		s, ok = formatFloat(e, 64)
	case term.TagString:
		s, ok = formatString(e)
	}
	if !ok {
		return value
	}
	return s
}

// bitVec decodes #b..., #x... and (_ bvN w) into an unsigned value and its
// width.
func bitVec(e sexp) (*big.Int, int, bool) {
	if e.isList {
		if len(e.list) != 3 || e.list[0].atom != "_" || !strings.HasPrefix(e.list[1].atom, "bv") {
			return nil, 0, false
		}
		n, ok := new(big.Int).SetString(strings.TrimPrefix(e.list[1].atom, "bv"), 10)
		if !ok {
			return nil, 0, false
		}
		w, err := strconv.Atoi(e.list[2].atom)
		if err != nil {
			return nil, 0, false
		}
		return n, w, true
	}
	switch {
	case strings.HasPrefix(e.atom, "#b"):
		n, ok := new(big.Int).SetString(e.atom[2:], 2)
		return n, len(e.atom) - 2, ok
	case strings.HasPrefix(e.atom, "#x"):
		n, ok := new(big.Int).SetString(e.atom[2:], 16)
		return n, 4 * (len(e.atom) - 2), ok
	}
	return nil, 0, false
}

func formatBitVec(e sexp, width int, signed bool) (string, bool) {
	n, w, ok := bitVec(e)
	if !ok || w != width {
		return "", false
	}
	if signed && n.Bit(width-1) == 1 {
		n.Sub(n, new(big.Int).Lsh(big.NewInt(1), uint(width)))
	}
	return n.String(), true
}

func formatFloat(e sexp, bits int) (string, bool) {
	f, ok := floatValue(e, bits)
	if !ok {
		return "", false
	}
	switch {
	case math.IsNaN(f):
		return "NaN", true
	case math.IsInf(f, 1):
		return "+Inf", true
	case math.IsInf(f, -1):
		return "-Inf", true
	}
	return strconv.FormatFloat(f, 'g', -1, bits), true
}

func floatValue(e sexp, bits int) (float64, bool) {
	if !e.isList {
		// A Real written as a decimal.
		r, ok := new(big.Rat).SetString(e.atom)
		if !ok {
			return 0, false
		}
		f, _ := r.Float64()
		return f, true
	}
	if len(e.list) == 0 || e.list[0].isList {
		return 0, false
	}
	switch e.list[0].atom {
	case "fp":
		// (fp sign exponent significand) of the IEEE pattern.
		if len(e.list) != 4 {
			return 0, false
		}
		var pattern big.Int
		total := 0
		for _, part := range e.list[1:] {
			n, w, ok := bitVec(part)
			if !ok {
				return 0, false
			}
			pattern.Lsh(&pattern, uint(w))
			pattern.Or(&pattern, n)
			total += w
		}
		if total != bits {
			return 0, false
		}
		if bits == 32 {
			return float64(math.Float32frombits(uint32(pattern.Uint64()))), true
		}
		return math.Float64frombits(pattern.Uint64()), true
	case "_":
		// (_ +zero eb sb) and the other named values.
		if len(e.list) != 4 {
			return 0, false
		}
		switch e.list[1].atom {
		case "+zero":
			return 0, true
		case "-zero":
			return math.Copysign(0, -1), true
		case "+oo":
			return math.Inf(1), true
		case "-oo":
			return math.Inf(-1), true
		case "NaN":
			return math.NaN(), true
		}
	case "-":
		if len(e.list) != 2 {
			return 0, false
		}
		f, ok := floatValue(e.list[1], bits)
		return -f, ok
	case "/":
		if len(e.list) != 3 {
			return 0, false
		}
		num, ok1 := floatValue(e.list[1], bits)
		den, ok2 := floatValue(e.list[2], bits)
		if !ok1 || !ok2 || den == 0 {
			return 0, false
		}
		return num / den, true
	}
	return 0, false
}

// formatString reverses the literal encoding: "" for a quote and \u{h} or
// \uhhhh escapes.
func formatString(e sexp) (string, bool) {
	if e.isList || len(e.atom) < 2 || e.atom[0] != '"' {
		return "", false
	}
	body := strings.ReplaceAll(e.atom[1:len(e.atom)-1], `""`, `"`)
	var sb strings.Builder
	for i := 0; i < len(body); {
		if body[i] != '\\' || i+1 >= len(body) || body[i+1] != 'u' {
			sb.WriteByte(body[i])
			i++
			continue
		}
		var digits string
		next := i + 2
		if next < len(body) && body[next] == '{' {
			end := strings.IndexByte(body[next:], '}')
			if end < 0 {
				sb.WriteByte(body[i])
				i++
				continue
			}
			digits = body[next+1 : next+end]
			next += end + 1
		} else if next+4 <= len(body) {
			digits = body[next : next+4]
			next += 4
		}
		r, err := strconv.ParseUint(digits, 16, 32)
		if digits == "" || len(digits) > 5 || err != nil {
			sb.WriteByte(body[i])
			i++
			continue
		}
		sb.WriteRune(rune(r))
		i = next
	}
	return strconv.Quote(sb.String()), true
}
