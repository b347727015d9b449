package constraints

import (
	"slava0135/smtshim/smt"
	"slava0135/smtshim/term"
)

func gt(a, b term.Node) term.Node  { return term.Apply("bvsgt", a, b) }
func lt(a, b term.Node) term.Node  { return term.Apply("bvslt", a, b) }
func ge(a, b term.Node) term.Node  { return term.Apply("bvsge", a, b) }
func le(a, b term.Node) term.Node  { return term.Apply("bvsle", a, b) }
func eq(a, b term.Node) term.Node  { return term.Apply("=", a, b) }
func add(a, b term.Node) term.Node { return term.Apply("bvadd", a, b) }

func IntegerOperations() Scenario {
	ar := term.NewArena()
	a := ar.NewVar(term.TagI64, "a")
	b := ar.NewVar(term.TagI64, "b")

	return Scenario{
		Name: "integer operations",
		Paths: []PathCheck{
			{Path: "a > b", Assert: gt(a, b), Want: smt.Sat},
			{Path: "!(a > b) && (a < b)", Assert: term.And(term.Not(gt(a, b)), lt(a, b)), Want: smt.Sat},
			{Path: "!(a > b) && !(a < b)", Assert: term.And(term.Not(gt(a, b)), term.Not(lt(a, b))), Want: smt.Sat},
			{Path: "(a > b) && (b > a)", Assert: term.And(gt(a, b), gt(b, a)), Want: smt.Unsat},
		},
	}
}

func FloatOperations() Scenario {
	ar := term.NewArena()
	x := ar.NewVar(term.TagFP64, "x")
	y := ar.NewVar(term.TagFP64, "y")
	fgt := func(a, b term.Node) term.Node { return term.Apply("fp.gt", a, b) }
	flt := func(a, b term.Node) term.Node { return term.Apply("fp.lt", a, b) }

	return Scenario{
		Name: "float operations",
		Paths: []PathCheck{
			{Path: "x > y", Assert: fgt(x, y), Want: smt.Sat},
			{Path: "!(x > y) && (x < y)", Assert: term.And(term.Not(fgt(x, y)), flt(x, y)), Want: smt.Sat},
			// NaN compares false both ways.
			{Path: "!(x > y) && !(x < y)", Assert: term.And(term.Not(fgt(x, y)), term.Not(flt(x, y))), Want: smt.Sat},
			{Path: "(x > y) && (x < y)", Assert: term.And(fgt(x, y), flt(x, y)), Want: smt.Unsat},
		},
	}
}

func MixedOperations() Scenario {
	ar := term.NewArena()
	a := ar.NewVar(term.TagI64, "a")
	b := ar.NewVar(term.TagFP64, "b")
	result := ar.NewVar(term.TagFP64, "result")

	int0 := term.I64(0)
	int2 := term.I64(2)
	float10 := term.F64(10)
	even := eq(term.Apply("bvsrem", a, int2), int0)
	sum := eq(result, term.Apply("fp.add", term.Const("RNE"), term.Apply("(_ to_fp 11 53)", term.Const("RNE"), a), b))
	small := term.Apply("fp.lt", result, float10)

	return Scenario{
		Name: "mixed operations",
		Paths: []PathCheck{
			{Path: "(a % 2 == 0) && (result < 10)", Assert: term.And(even, sum, small), Want: smt.Sat},
			{Path: "(a % 2 /= 0) && (result < 10)", Assert: term.And(term.Not(even), sum, small), Want: smt.Sat},
			{Path: "(a % 2 == 0) && (result >= 10)", Assert: term.And(even, sum, term.Not(small)), Want: smt.Sat},
			{Path: "(a % 2 /= 0) && (result >= 10)", Assert: term.And(term.Not(even), sum, term.Not(small)), Want: smt.Sat},
		},
	}
}

func BitwiseOperations() Scenario {
	src := `
func bitwiseOperations(x, y uint32) int {
    if x&y == 0 && x|y == 0xff {
        return 1
    }
    if x^x != 0 {
        return 2
    }
    return 0
}`
	ar := term.NewArena()
	x := ar.NewVar(term.TagU32, "x")
	y := ar.NewVar(term.TagU32, "y")

	disjoint := eq(term.Apply("bvand", x, y), term.I32(0))
	covers := eq(term.Apply("bvor", x, y), term.I32(0xff))
	selfXor := term.Apply("distinct", term.Apply("bvxor", x, x), term.I32(0))

	return Scenario{
		Name: "bitwise operations",
		Src:  src,
		Paths: []PathCheck{
			{Path: "x&y == 0 && x|y == 0xff", Assert: term.And(disjoint, covers), Want: smt.Sat},
			{Path: "!(x&y == 0 && x|y == 0xff) && x^x != 0", Assert: term.And(term.Not(term.And(disjoint, covers)), selfXor), Want: smt.Unsat},
			{Path: "!(x&y == 0 && x|y == 0xff) && x^x == 0", Assert: term.And(term.Not(term.And(disjoint, covers)), term.Not(selfXor)), Want: smt.Sat},
		},
	}
}
