package smt

import (
	"fmt"
	"io"
	"strconv"

	"slava0135/smtshim/term"
)

// Registry is the type registry the session consults for sorts, operator
// tokens and the literal kinds it does not encode itself.
type Registry interface {
	SortOf(tag term.Tag) (string, error)
	Operator(tag term.Tag) string
	EncodeLiteral(lit term.Literal) (string, error)
}

// Sink is satisfied by *bufio.Writer, *bytes.Buffer and *strings.Builder.
type Sink interface {
	io.Writer
	io.StringWriter
	io.ByteWriter
}

// UnboundVarError is returned when a variable reaches the serializer without
// having been discovered first.
type UnboundVarError struct {
	Var *term.Var
}

func (e *UnboundVarError) Error() string {
	return fmt.Sprintf("variable %s (id %d) was not discovered before rendering", e.Var, e.Var.ID())
}

// Render writes n as a fully parenthesized prefix expression. Variables must
// already be tracked by tr; Render never creates names.
func Render(w Sink, n term.Node, tr *Tracker, reg Registry) error {
	switch n := n.(type) {
	case term.Literal:
		return renderLiteral(w, n, reg)
	case *term.Var:
		name, ok := tr.Name(n)
		if !ok {
			return &UnboundVarError{Var: n}
		}
		_, err := w.WriteString(name)
		return err
	case *term.Op:
		tok := reg.Operator(n.Tag())
		if n.Arity() == 0 {
			_, err := w.WriteString(tok)
			return err
		}
		w.WriteByte('(')
		w.WriteString(tok)
		for i := 0; i < n.Arity(); i++ {
			w.WriteByte(' ')
			if err := Render(w, n.Arg(i), tr, reg); err != nil {
				return err
			}
		}
		return w.WriteByte(')')
	default:
		return fmt.Errorf("unexpected node %T", n)
	}
}

func renderLiteral(w Sink, lit term.Literal, reg Registry) error {
	var s string
	switch lit.Kind() {
	case term.KindBool:
		s = strconv.FormatBool(lit.BoolValue())
	case term.KindI32:
		s = fmt.Sprintf("#x%08x", uint32(lit.IntValue()))
	case term.KindI64:
		s = fmt.Sprintf("#x%016x", uint64(lit.IntValue()))
	default:
		var err error
		s, err = reg.EncodeLiteral(lit)
		if err != nil {
			return err
		}
	}
	_, err := w.WriteString(s)
	return err
}
