package constraints

import (
	"slava0135/smtshim/smt"
	"slava0135/smtshim/term"
)

func PushPopIncrementality() Scenario {
	src := `
func pushPopIncrementality(j int) int {
    result := j

    for i := 1; i <= 10; i++ {
        result += i
    }

    if result%2 == 0 {
        result++
    }
}`
	ar := term.NewArena()
	j := ar.NewVar(term.TagI64, "j")

	// The loop unrolls into a chain of additions over j.
	var result term.Node = j
	for i := int64(1); i <= 10; i++ {
		result = add(result, term.I64(i))
	}
	even := eq(term.Apply("bvsrem", result, term.I64(2)), term.I64(0))

	return Scenario{
		Name: "push/pop incrementality",
		Src:  src,
		Paths: []PathCheck{
			{Path: "result%2 == 0", Assert: even, Want: smt.Sat},
			{Path: "result%2 != 0", Assert: term.Not(even), Want: smt.Sat},
			{Path: "result%2 == 0 && j == 1", Assert: term.And(even, eq(j, term.I64(1))), Want: smt.Sat},
			{Path: "result%2 == 0 && j == 2", Assert: term.And(even, eq(j, term.I64(2))), Want: smt.Unsat},
		},
	}
}
