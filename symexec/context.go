package symexec

import (
	"golang.org/x/tools/go/ssa"

	"slava0135/smtshim/term"
)

// EncodingContext holds what every path of one function shares: the arena its
// symbolic inputs come from and the inputs themselves.
type EncodingContext struct {
	arena  *term.Arena
	params []*term.Var
	// entry binds the entry function's parameters.
	entry map[ssa.Value]term.Node
}

func newEncodingContext(fn *ssa.Function) (*EncodingContext, error) {
	ctx := &EncodingContext{
		arena: term.NewArena(),
		entry: make(map[ssa.Value]term.Node, len(fn.Params)),
	}
	for _, p := range fn.Params {
		b, err := basicOf(p.Type())
		if err != nil {
			return nil, unsupported("parameter %s: %v", p.Name(), err)
		}
		v := ctx.arena.NewVar(b.tag, p.Name())
		ctx.params = append(ctx.params, v)
		ctx.entry[p] = v
	}
	return ctx, nil
}

func (ctx *EncodingContext) entryFrame(fn *ssa.Function) *Frame {
	values := make(map[ssa.Value]term.Node, len(ctx.entry))
	for k, v := range ctx.entry {
		values[k] = v
	}
	return &Frame{function: fn, values: values, tuples: make(map[ssa.Value][]term.Node)}
}

// value returns the term bound to v in frame. Constants are encoded on the
// spot.
func (ctx *EncodingContext) value(frame *Frame, v ssa.Value) (term.Node, error) {
	if c, ok := v.(*ssa.Const); ok {
		return encodeConst(c)
	}
	if n, ok := frame.values[v]; ok {
		return n, nil
	}
	return nil, unsupported("value %s (%T)", v.Name(), v)
}

func (ctx *EncodingContext) values(frame *Frame, vs []ssa.Value) ([]term.Node, error) {
	out := make([]term.Node, 0, len(vs))
	for _, v := range vs {
		n, err := ctx.value(frame, v)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}
