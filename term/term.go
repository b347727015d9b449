// Package term is the expression tree handed to the solver layer: immutable
// literal, variable and operator nodes. Variables are identified by the slot
// index an Arena assigns them, never by their contents.
package term

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Tag names a sort (for variables and literals) or an operator.
type Tag string

const (
	TagBool   Tag = "bool"
	TagI32    Tag = "i32"
	TagI64    Tag = "i64"
	TagU32    Tag = "u32"
	TagU64    Tag = "u64"
	TagFP32   Tag = "fp32"
	TagFP64   Tag = "fp64"
	TagString Tag = "string"
)

type Kind uint8

const (
	KindBool Kind = iota + 1
	KindI32
	KindI64
	KindFP32
	KindFP64
	KindString
)

var kindTags = map[Kind]Tag{
	KindBool:   TagBool,
	KindI32:    TagI32,
	KindI64:    TagI64,
	KindFP32:   TagFP32,
	KindFP64:   TagFP64,
	KindString: TagString,
}

func (k Kind) Tag() Tag {
	return kindTags[k]
}

func (k Kind) String() string {
	if t, ok := kindTags[k]; ok {
		return string(t)
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Node is one of Literal, *Var or *Op.
type Node interface {
	fmt.Stringer
	Tag() Tag
	node()
}

type Literal struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
}

func Bool(b bool) Literal {
	return Literal{kind: KindBool, b: b}
}

func I32(v int32) Literal {
	return Literal{kind: KindI32, i: int64(v)}
}

func I64(v int64) Literal {
	return Literal{kind: KindI64, i: v}
}

func F32(v float32) Literal {
	return Literal{kind: KindFP32, f: float64(v)}
}

func F64(v float64) Literal {
	return Literal{kind: KindFP64, f: v}
}

func Str(s string) Literal {
	return Literal{kind: KindString, s: s}
}

// RangeError reports an integer that does not fit the width of its kind.
type RangeError struct {
	Kind  Kind
	Value int64
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("value %d out of range for %s", e.Value, e.Kind)
}

// IntLit builds an integer literal of the given kind, rejecting values that
// would not survive the round trip through the kind's width.
func IntLit(kind Kind, v int64) (Literal, error) {
	switch kind {
	case KindI32:
		if v < math.MinInt32 || v > math.MaxInt32 {
			return Literal{}, &RangeError{Kind: kind, Value: v}
		}
		return I32(int32(v)), nil
	case KindI64:
		return I64(v), nil
	default:
		return Literal{}, fmt.Errorf("%s is not an integer kind", kind)
	}
}

func (l Literal) Kind() Kind { return l.kind }

func (l Literal) Tag() Tag { return l.kind.Tag() }

func (l Literal) BoolValue() bool { return l.b }

func (l Literal) IntValue() int64 { return l.i }

func (l Literal) FloatValue() float64 { return l.f }

func (l Literal) StringValue() string { return l.s }

func (Literal) node() {}

func (l Literal) String() string {
	switch l.kind {
	case KindBool:
		return strconv.FormatBool(l.b)
	case KindI32, KindI64:
		return strconv.FormatInt(l.i, 10) + ":" + string(l.Tag())
	case KindFP32:
		return strconv.FormatFloat(l.f, 'g', -1, 32) + ":" + string(l.Tag())
	case KindFP64:
		return strconv.FormatFloat(l.f, 'g', -1, 64) + ":" + string(l.Tag())
	case KindString:
		return strconv.Quote(l.s)
	default:
		return "<invalid literal>"
	}
}

// VarID is the identity of a variable inside its Arena.
type VarID uint32

type Var struct {
	id   VarID
	tag  Tag
	hint string
}

func (v *Var) ID() VarID { return v.id }

func (v *Var) Tag() Tag { return v.tag }

func (v *Var) Hint() string { return v.hint }

func (*Var) node() {}

func (v *Var) String() string {
	if v.hint != "" {
		return v.hint
	}
	return fmt.Sprintf("$%d", v.id)
}

type Op struct {
	tag  Tag
	args []Node
}

// Apply builds an operator application. The argument slice is copied.
func Apply(tag Tag, args ...Node) *Op {
	return &Op{tag: tag, args: append([]Node(nil), args...)}
}

// Const is a nullary operator, i.e. a reference to a constant symbol.
func Const(tag Tag) *Op {
	return &Op{tag: tag}
}

func (o *Op) Tag() Tag { return o.tag }

func (o *Op) Arity() int { return len(o.args) }

func (o *Op) Arg(i int) Node { return o.args[i] }

func (*Op) node() {}

func (o *Op) String() string {
	if len(o.args) == 0 {
		return string(o.tag)
	}
	var sb strings.Builder
	sb.WriteString("(")
	sb.WriteString(string(o.tag))
	for _, a := range o.args {
		sb.WriteString(" ")
		sb.WriteString(a.String())
	}
	sb.WriteString(")")
	return sb.String()
}

// And folds conds into a conjunction: true for none, the condition itself
// for one.
func And(conds ...Node) Node {
	switch len(conds) {
	case 0:
		return Bool(true)
	case 1:
		return conds[0]
	default:
		return Apply("and", conds...)
	}
}

func Not(n Node) Node {
	return Apply("not", n)
}
