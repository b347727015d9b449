package smt

import (
	"strconv"

	"slava0135/smtshim/term"
)

// Tracker names the free variables of one assertion. Names are "x0", "x1",
// ... in first-seen order and are keyed by the *term.Var itself, so two
// distinct variables get two names even when they share a tag or come from
// different arenas with the same slot, while a shared instance gets one.
type Tracker struct {
	names map[*term.Var]string
	order []*term.Var
}

func NewTracker() *Tracker {
	return &Tracker{names: make(map[*term.Var]string)}
}

// Reset starts a new generation; the counter restarts at zero.
func (tr *Tracker) Reset() {
	clear(tr.names)
	tr.order = tr.order[:0]
}

// Track registers v if it is new and returns its name.
func (tr *Tracker) Track(v *term.Var) (name string, added bool) {
	if name, ok := tr.names[v]; ok {
		return name, false
	}
	name = "x" + strconv.Itoa(len(tr.order))
	tr.names[v] = name
	tr.order = append(tr.order, v)
	return name, true
}

func (tr *Tracker) Name(v *term.Var) (string, bool) {
	name, ok := tr.names[v]
	return name, ok
}

// Vars returns the tracked variables in first-seen order.
func (tr *Tracker) Vars() []*term.Var {
	return tr.order
}

func (tr *Tracker) Len() int {
	return len(tr.order)
}

// Discover walks n depth first, left to right, and tracks every variable leaf.
// The tree itself is only read.
func Discover(n term.Node, tr *Tracker) {
	switch n := n.(type) {
	case term.Literal:
		return
	case *term.Var:
		tr.Track(n)
	case *term.Op:
		for i := 0; i < n.Arity(); i++ {
			Discover(n.Arg(i), tr)
		}
	}
}
