package constraints

import (
	"slava0135/smtshim/smt"
	"slava0135/smtshim/term"
)

// Complex is a complex128 split into two float64 variables.
type Complex struct {
	real *term.Var
	imag *term.Var
}

func complexConst(ar *term.Arena, name string) Complex {
	return Complex{
		real: ar.NewVar(term.TagFP64, name+".REAL"),
		imag: ar.NewVar(term.TagFP64, name+".IMAG"),
	}
}

func BasicComplexOperations() Scenario {
	src := `
func basicComplexOperations(a complex128, b complex128) complex128 {
	if real(a) > real(b) {
		return a + b
	} else if imag(a) > imag(b) {
		return a - b
	}
	return a * b
}`
	ar := term.NewArena()
	a := complexConst(ar, "a")
	b := complexConst(ar, "b")
	fgt := func(x, y term.Node) term.Node { return term.Apply("fp.gt", x, y) }

	return Scenario{
		Name: "basic complex operations",
		Src:  src,
		Paths: []PathCheck{
			{Path: "real(a) > real(b)", Assert: fgt(a.real, b.real), Want: smt.Sat},
			{
				Path:   "!(real(a) > real(b)) && (imag(a) > imag(b))",
				Assert: term.And(term.Not(fgt(a.real, b.real)), fgt(a.imag, b.imag)),
				Want:   smt.Sat,
			},
			{
				Path:   "!(real(a) > real(b)) && !(imag(a) > imag(b))",
				Assert: term.And(term.Not(fgt(a.real, b.real)), term.Not(fgt(a.imag, b.imag))),
				Want:   smt.Sat,
			},
			{
				Path:   "real(a) > real(b) && real(b) > real(a)",
				Assert: term.And(fgt(a.real, b.real), fgt(b.real, a.real)),
				Want:   smt.Unsat,
			},
		},
	}
}
