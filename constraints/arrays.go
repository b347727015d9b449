package constraints

import (
	"slava0135/smtshim/smt"
	"slava0135/smtshim/term"
)

// arrayTag is a 64-bit indexed array of 64-bit values; see Registry.
const arrayTag term.Tag = "array_i64"

func CompareElement() Scenario {
	src := `
func compareElement(array []int, index int, value int) int {
    if index < 0 || index >= len(array) {
        return -1
    }
    element := array[index]
    if element > value {
        return 1
    } else if element < value {
        return -1
    }
    return 0
}`
	ar := term.NewArena()
	array := ar.NewVar(arrayTag, "array")
	arrayLen := ar.NewVar(term.TagI64, "arrayLen")
	index := ar.NewVar(term.TagI64, "index")
	value := ar.NewVar(term.TagI64, "value")

	int0 := term.I64(0)
	element := term.Apply("select", array, index)
	assertArrayLen := ge(arrayLen, int0)
	inBounds := term.And(ge(index, int0), lt(index, arrayLen))

	return Scenario{
		Name: "compare element",
		Src:  src,
		Paths: []PathCheck{
			{
				Path:   "(index < 0) || (index >= len(array))",
				Assert: term.And(assertArrayLen, term.Apply("or", lt(index, int0), ge(index, arrayLen))),
				Want:   smt.Sat,
			},
			{
				Path:   "(index >= 0) && (index < len(array)) && (element > value)",
				Assert: term.And(assertArrayLen, inBounds, gt(element, value)),
				Want:   smt.Sat,
			},
			{
				Path:   "(index >= 0) && (index < len(array)) && !(element > value) && (element < value)",
				Assert: term.And(assertArrayLen, inBounds, term.Not(gt(element, value)), lt(element, value)),
				Want:   smt.Sat,
			},
			{
				Path:   "(index >= 0) && (index < len(array)) && !(element > value) && !(element < value)",
				Assert: term.And(assertArrayLen, inBounds, term.Not(gt(element, value)), term.Not(lt(element, value))),
				Want:   smt.Sat,
			},
			{
				Path:   "len(array) == 0 && (index >= 0) && (index < len(array))",
				Assert: term.And(eq(arrayLen, int0), inBounds),
				Want:   smt.Unsat,
			},
		},
	}
}
