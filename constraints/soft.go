package constraints

import (
	"slava0135/smtshim/smt"
	"slava0135/smtshim/term"
)

func CompareAndIncrement() Scenario {
	src := `
func compareAndIncrement(a, b int) int {
    if a > b {
        c := a + 1

        if (c > b) {
            return 1
        } else {
            return -1
        }
    }

    return 42
}`
	ar := term.NewArena()
	a := ar.NewVar(term.TagI64, "a")
	b := ar.NewVar(term.TagI64, "b")
	c := ar.NewVar(term.TagI64, "c")

	int0 := term.I64(0)
	int1 := term.I64(1)
	int2 := term.I64(2)
	int10 := term.I64(10)

	assumptions := []Assumption{
		{"a >= 0", ge(a, int0)},
		{"b >= 0", ge(b, int0)},
		{"c >= 0", ge(c, int0)},
		{"a < 10", lt(a, int10)},
		{"b < 10", lt(b, int10)},
		{"c < 10", lt(c, int10)},
		{"a < 2", lt(a, int2)},
		{"b < 2", lt(b, int2)},
		{"c < 2", lt(c, int2)},
	}
	incremented := eq(c, add(a, int1))

	return Scenario{
		Name: "compare and increment",
		Src:  src,
		Paths: []PathCheck{
			{
				Path:        "(a > b) && (c > b)",
				Assert:      term.And(gt(a, b), incremented, gt(c, b)),
				Assumptions: assumptions,
				Relax:       true,
				Want:        smt.Sat,
			},
			{
				// Only an overflowing a+1 takes this branch.
				Path:        "(a > b) && (c <= b)",
				Assert:      term.And(gt(a, b), incremented, le(c, b)),
				Assumptions: assumptions,
				Want:        smt.Unsat,
			},
			{
				Path:   "(a > b) && (c <= b), unbounded",
				Assert: term.And(gt(a, b), incremented, le(c, b)),
				Want:   smt.Sat,
			},
			{
				Path:        "a <= b",
				Assert:      le(a, b),
				Assumptions: assumptions,
				Want:        smt.Sat,
			},
		},
	}
}
