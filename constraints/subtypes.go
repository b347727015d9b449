package constraints

import (
	"slava0135/smtshim/smt"
	"slava0135/smtshim/term"
)

const typeTag term.Tag = "type"

// Preamble declares what the scenarios use beyond the built-in sorts. A
// session that runs them needs it after the logic.
func Preamble() string {
	return `(declare-sort Type 0)
(declare-fun isSubclassOf (Type Type) Bool)
(declare-fun isSubtypeOf (Type Type) Bool)
`
}

type latticeType struct {
	name      string
	uppers    []*latticeType
	canCastTo *latticeType
}

func (e *latticeType) isSubclassOf(other *latticeType) bool {
	queue := []*latticeType{e}
	for len(queue) > 0 {
		next := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		if next == other {
			return true
		}
		queue = append(queue, next.uppers...)
	}
	return false
}

func (e *latticeType) isSubtypeOf(other *latticeType) bool {
	for t := e; t != nil; t = t.canCastTo {
		if t.isSubclassOf(other) {
			return true
		}
	}
	return false
}

// scalaTypes builds a small slice of the Scala type lattice: numeric types
// widen by casting, reference types by inheritance.
func scalaTypes() map[string]*latticeType {
	types := map[string]*latticeType{}
	for _, name := range []string{"Any", "AnyVal", "Short", "Int", "Long", "Char", "AnyRef", "String", "Seq", "List", "Null"} {
		types[name] = &latticeType{name: name}
	}
	extends := func(sub string, supers ...string) {
		for _, s := range supers {
			types[sub].uppers = append(types[sub].uppers, types[s])
		}
	}
	extends("AnyVal", "Any")
	extends("AnyRef", "Any")
	extends("Short", "AnyVal")
	extends("Int", "AnyVal")
	extends("Long", "AnyVal")
	extends("Char", "AnyVal")
	extends("String", "AnyRef")
	extends("Seq", "AnyRef")
	extends("List", "Seq")
	extends("Null", "String", "Seq", "List")

	types["Short"].canCastTo = types["Int"]
	types["Char"].canCastTo = types["Int"]
	types["Int"].canCastTo = types["Long"]
	return types
}

// Subtypes states both relations of the lattice in full as axioms over an
// uninterpreted sort, then asks whether single facts are consistent with them.
func Subtypes() Scenario {
	ar := term.NewArena()
	types := scalaTypes()
	names := []string{"Any", "AnyVal", "Short", "Int", "Long", "Char", "AnyRef", "String", "Seq", "List", "Null"}
	consts := make(map[string]*term.Var, len(names))
	for _, name := range names {
		consts[name] = ar.NewVar(typeTag, name)
	}

	var axioms []term.Node
	for _, a := range names {
		for _, b := range names {
			sub := term.Node(term.Apply("isSubclassOf", consts[a], consts[b]))
			if !types[a].isSubclassOf(types[b]) {
				sub = term.Not(sub)
			}
			typ := term.Node(term.Apply("isSubtypeOf", consts[a], consts[b]))
			if !types[a].isSubtypeOf(types[b]) {
				typ = term.Not(typ)
			}
			axioms = append(axioms, sub, typ)
		}
	}
	lattice := term.And(axioms...)
	fact := func(rel term.Tag, a, b string) term.Node {
		return term.And(lattice, term.Apply(rel, consts[a], consts[b]))
	}

	return Scenario{
		Name: "subtypes",
		Paths: []PathCheck{
			{Path: "[List] isSubclassOf [Seq]", Assert: fact("isSubclassOf", "List", "Seq"), Want: smt.Sat},
			{Path: "[Null] isSubclassOf [AnyRef]", Assert: fact("isSubclassOf", "Null", "AnyRef"), Want: smt.Sat},
			{Path: "[Long] isSubclassOf [Int]", Assert: fact("isSubclassOf", "Long", "Int"), Want: smt.Unsat},
			{Path: "[Short] <: [Long]", Assert: fact("isSubtypeOf", "Short", "Long"), Want: smt.Sat},
			{Path: "[Int] <: [Seq]", Assert: fact("isSubtypeOf", "Int", "Seq"), Want: smt.Unsat},
		},
	}
}
