package term

import "sync"

// Arena hands out variables. An ID is the slot in its own Arena only:
// variables from two arenas may share one, and a tree may mix them.
type Arena struct {
	mu   sync.Mutex
	vars []*Var
}

func NewArena() *Arena {
	return &Arena{}
}

func (a *Arena) NewVar(tag Tag, hint string) *Var {
	a.mu.Lock()
	defer a.mu.Unlock()
	v := &Var{id: VarID(len(a.vars)), tag: tag, hint: hint}
	a.vars = append(a.vars, v)
	return v
}

func (a *Arena) Var(id VarID) (*Var, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if int(id) >= len(a.vars) {
		return nil, false
	}
	return a.vars[id], true
}

func (a *Arena) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.vars)
}
