package symexec

import (
	"errors"
	"fmt"
	"go/constant"
	"go/token"
	"go/types"

	"golang.org/x/tools/go/ssa"

	"slava0135/smtshim/term"
)

// ErrUnsupported marks Go constructs the executor cannot express as terms.
var ErrUnsupported = errors.New("unsupported")

func unsupported(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUnsupported, fmt.Sprintf(format, args...))
}

const (
	intSize = 64

	roundNearest = "RNE"
	roundToZero  = "RTZ"
)

// basic describes how a Go basic type is represented.
type basic struct {
	tag    term.Tag
	width  int
	signed bool
	float  bool
}

func basicOf(t types.Type) (basic, error) {
	b, ok := t.Underlying().(*types.Basic)
	if !ok {
		return basic{}, unsupported("type %s", t)
	}
	switch b.Kind() {
	case types.Bool, types.UntypedBool:
		return basic{tag: term.TagBool}, nil
	case types.Int, types.Int64:
		return basic{tag: term.TagI64, width: intSize, signed: true}, nil
	case types.Uint, types.Uint64, types.Uintptr:
		return basic{tag: term.TagU64, width: intSize}, nil
	case types.Int32:
		return basic{tag: term.TagI32, width: 32, signed: true}, nil
	case types.Uint32:
		return basic{tag: term.TagU32, width: 32}, nil
	case types.Float64:
		return basic{tag: term.TagFP64, width: 64, float: true}, nil
	case types.Float32:
		return basic{tag: term.TagFP32, width: 32, float: true}, nil
	default:
		return basic{}, unsupported("type %s", t)
	}
}

func (b basic) isInt() bool {
	return b.width > 0 && !b.float
}

// fpSort returns the exponent and significand widths of a float type.
func (b basic) fpSort() (int, int) {
	if b.width == 32 {
		return 8, 24
	}
	return 11, 53
}

func encodeConst(c *ssa.Const) (term.Node, error) {
	b, err := basicOf(c.Type())
	if err != nil {
		return nil, err
	}
	if c.Value == nil {
		return zero(b), nil
	}
	switch {
	case b.tag == term.TagBool:
		return term.Bool(constant.BoolVal(c.Value)), nil
	case b.float:
		f, _ := constant.Float64Val(c.Value)
		if b.width == 32 {
			return term.F32(float32(f)), nil
		}
		return term.F64(f), nil
	case b.width == 32 && b.signed:
		return term.I32(int32(c.Int64())), nil
	case b.width == 32:
		return term.I32(int32(uint32(c.Uint64()))), nil
	case b.signed:
		return term.I64(c.Int64()), nil
	default:
		return term.I64(int64(c.Uint64())), nil
	}
}

func zero(b basic) term.Node {
	switch {
	case b.tag == term.TagBool:
		return term.Bool(false)
	case b.float && b.width == 32:
		return term.F32(0)
	case b.float:
		return term.F64(0)
	case b.width == 32:
		return term.I32(0)
	default:
		return term.I64(0)
	}
}

var signedOps = map[token.Token]term.Tag{
	token.ADD: "bvadd",
	token.SUB: "bvsub",
	token.MUL: "bvmul",
	token.QUO: "bvsdiv",
	token.REM: "bvsrem",
	token.AND: "bvand",
	token.OR:  "bvor",
	token.XOR: "bvxor",
	token.SHL: "bvshl",
	token.SHR: "bvashr",
	token.LSS: "bvslt",
	token.LEQ: "bvsle",
	token.GTR: "bvsgt",
	token.GEQ: "bvsge",
}

var unsignedOps = map[token.Token]term.Tag{
	token.ADD: "bvadd",
	token.SUB: "bvsub",
	token.MUL: "bvmul",
	token.QUO: "bvudiv",
	token.REM: "bvurem",
	token.AND: "bvand",
	token.OR:  "bvor",
	token.XOR: "bvxor",
	token.SHL: "bvshl",
	token.SHR: "bvlshr",
	token.LSS: "bvult",
	token.LEQ: "bvule",
	token.GTR: "bvugt",
	token.GEQ: "bvuge",
}

// rounded float operators take a rounding mode first.
var floatOps = map[token.Token]struct {
	tag     term.Tag
	rounded bool
}{
	token.ADD: {"fp.add", true},
	token.SUB: {"fp.sub", true},
	token.MUL: {"fp.mul", true},
	token.QUO: {"fp.div", true},
	token.EQL: {"fp.eq", false},
	token.LSS: {"fp.lt", false},
	token.LEQ: {"fp.leq", false},
	token.GTR: {"fp.gt", false},
	token.GEQ: {"fp.geq", false},
}

// encodeBinOp applies op to x and y, whose Go types are described by bx and
// by. Only shifts may have operands of different types.
func encodeBinOp(op token.Token, x, y term.Node, bx, by basic) (term.Node, error) {
	switch {
	case op == token.EQL && !bx.float:
		return term.Apply("=", x, y), nil
	case op == token.NEQ && !bx.float:
		return term.Apply("distinct", x, y), nil
	case bx.float:
		if op == token.NEQ {
			return term.Not(term.Apply("fp.eq", x, y)), nil
		}
		f, ok := floatOps[op]
		if !ok {
			return nil, unsupported("float operator %s", op)
		}
		if f.rounded {
			return term.Apply(f.tag, term.Const(roundNearest), x, y), nil
		}
		return term.Apply(f.tag, x, y), nil
	case !bx.isInt():
		return nil, unsupported("operator %s on %s", op, bx.tag)
	case op == token.AND_NOT:
		return term.Apply("bvand", x, term.Apply("bvnot", y)), nil
	}

	ops := unsignedOps
	if bx.signed {
		ops = signedOps
	}
	tag, ok := ops[op]
	if !ok {
		return nil, unsupported("integer operator %s", op)
	}
	if op == token.SHL || op == token.SHR {
		return encodeShift(tag, x, y, bx, by)
	}
	return term.Apply(tag, x, y), nil
}

// encodeShift lines the count up with the shifted value. Counts are unsigned;
// a count at least as wide as the value shifts everything out, as in Go.
func encodeShift(tag term.Tag, x, count term.Node, bx, bc basic) (term.Node, error) {
	if !bc.isInt() {
		return nil, unsupported("shift count of type %s", bc.tag)
	}
	switch {
	case bc.width == bx.width:
		return term.Apply(tag, x, count), nil
	case bc.width < bx.width:
		return term.Apply(tag, x, zeroExtend(bx.width-bc.width, count)), nil
	default:
		wide := zeroExtend(bc.width-bx.width, x)
		if tag == "bvashr" {
			wide = signExtend(bc.width-bx.width, x)
		}
		return extract(bx.width-1, 0, term.Apply(tag, wide, count)), nil
	}
}

func encodeUnOp(op token.Token, x term.Node, b basic) (term.Node, error) {
	switch {
	case op == token.NOT && b.tag == term.TagBool:
		return term.Not(x), nil
	case op == token.SUB && b.float:
		return term.Apply("fp.neg", x), nil
	case op == token.SUB && b.isInt():
		return term.Apply("bvneg", x), nil
	case op == token.XOR && b.isInt():
		return term.Apply("bvnot", x), nil
	default:
		return nil, unsupported("unary operator %s on %s", op, b.tag)
	}
}

// encodeConvert follows the Go conversion rules between numeric types.
func encodeConvert(x term.Node, from, to basic) (term.Node, error) {
	switch {
	case from.isInt() && to.isInt():
		switch {
		case from.width == to.width:
			return x, nil
		case from.width > to.width:
			return extract(to.width-1, 0, x), nil
		case from.signed:
			return signExtend(to.width-from.width, x), nil
		default:
			return zeroExtend(to.width-from.width, x), nil
		}
	case from.isInt() && to.float:
		eb, sb := to.fpSort()
		tag := fmt.Sprintf("(_ to_fp %d %d)", eb, sb)
		if !from.signed {
			tag = fmt.Sprintf("(_ to_fp_unsigned %d %d)", eb, sb)
		}
		return term.Apply(term.Tag(tag), term.Const(roundNearest), x), nil
	case from.float && to.isInt():
		tag := fmt.Sprintf("(_ fp.to_sbv %d)", to.width)
		if !to.signed {
			tag = fmt.Sprintf("(_ fp.to_ubv %d)", to.width)
		}
		return term.Apply(term.Tag(tag), term.Const(roundToZero), x), nil
	case from.float && to.float:
		if from.width == to.width {
			return x, nil
		}
		eb, sb := to.fpSort()
		return term.Apply(term.Tag(fmt.Sprintf("(_ to_fp %d %d)", eb, sb)), term.Const(roundNearest), x), nil
	case from.tag == term.TagBool && to.tag == term.TagBool:
		return x, nil
	default:
		return nil, unsupported("conversion from %s to %s", from.tag, to.tag)
	}
}

func zeroExtend(n int, x term.Node) term.Node {
	return term.Apply(term.Tag(fmt.Sprintf("(_ zero_extend %d)", n)), x)
}

func signExtend(n int, x term.Node) term.Node {
	return term.Apply(term.Tag(fmt.Sprintf("(_ sign_extend %d)", n)), x)
}

func extract(hi, lo int, x term.Node) term.Node {
	return term.Apply(term.Tag(fmt.Sprintf("(_ extract %d %d)", hi, lo)), x)
}

// isIntDivision reports whether op can panic on a zero divisor.
func isIntDivision(op token.Token, b basic) bool {
	return (op == token.QUO || op == token.REM) && b.isInt()
}
