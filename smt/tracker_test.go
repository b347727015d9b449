package smt

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"slava0135/smtshim/term"
)

func TestTrackerGenerations(t *testing.T) {
	a := term.NewArena()
	x := a.NewVar(term.TagI32, "x")
	y := a.NewVar(term.TagI32, "y")
	tr := NewTracker()

	Discover(term.Apply("bvadd", y, term.Apply("bvmul", x, y)), tr)
	assert.Equal(t, []*term.Var{y, x}, tr.Vars())
	name, ok := tr.Name(x)
	assert.True(t, ok)
	assert.Equal(t, "x1", name)

	name, added := tr.Track(y)
	assert.False(t, added)
	assert.Equal(t, "x0", name)

	tr.Reset()
	assert.Zero(t, tr.Len())
	_, ok = tr.Name(y)
	assert.False(t, ok)

	Discover(x, tr)
	name, _ = tr.Name(x)
	assert.Equal(t, "x0", name)
}

func TestDiscoverSkipsLiterals(t *testing.T) {
	tr := NewTracker()
	Discover(term.Apply("and", term.Bool(true), term.Apply("=", term.I32(1), term.I32(1))), tr)
	assert.Zero(t, tr.Len())
}

func TestTrackerSeparatesArenas(t *testing.T) {
	x := term.NewArena().NewVar(term.TagI32, "x")
	y := term.NewArena().NewVar(term.TagI32, "y")
	assert.Equal(t, x.ID(), y.ID())

	tr := NewTracker()
	Discover(term.Apply("distinct", x, y), tr)
	assert.Equal(t, []*term.Var{x, y}, tr.Vars())
	name, _ := tr.Name(y)
	assert.Equal(t, "x1", name)
}
