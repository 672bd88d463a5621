package symtable

import (
	"fmt"
	"slices"

	"github.com/jward/pyscope/internal/syntax"
)

type nameSet map[string]struct{}

func (s nameSet) has(name string) bool {
	_, ok := s[name]
	return ok
}

func (s nameSet) add(name string) { s[name] = struct{}{} }

func (s nameSet) update(other nameSet) {
	for name := range other {
		s[name] = struct{}{}
	}
}

func (s nameSet) clone() nameSet {
	out := make(nameSet, len(s))
	out.update(s)
	return out
}

// analyze resolves the scope of every symbol below top. bound is nil only
// for the module scope.
func analyze(top *Table) error {
	return analyzeBlock(top, nil, nameSet{}, nameSet{})
}

func analyzeBlock(t *Table, bound, free, global nameSet) error {
	var (
		local     = nameSet{}
		scopes    = map[string]Scope{}
		newGlobal = nameSet{}
		newFree   = nameSet{}
		newBound  = nameSet{}
	)
	if t.Type == Class {
		newGlobal.update(global)
		newBound.update(bound)
	}
	for _, name := range t.order {
		if err := analyzeName(t, scopes, name, t.symbols[name].Flags, bound, local, free, global); err != nil {
			return err
		}
	}
	if t.Type != Class {
		if t.Type == Function {
			newBound.update(local)
		}
		newBound.update(bound)
		newGlobal.update(global)
	} else {
		newBound.add("__class__")
	}

	allFree := nameSet{}
	for _, child := range t.Children {
		childFree := newFree.clone()
		if err := analyzeBlock(child, newBound.clone(), childFree, newGlobal.clone()); err != nil {
			return err
		}
		allFree.update(childFree)
	}
	newFree.update(allFree)

	switch t.Type {
	case Function:
		for name, scope := range scopes {
			if scope == Local && newFree.has(name) {
				scopes[name] = Cell
				delete(newFree, name)
			}
		}
	case Class:
		delete(newFree, "__class__")
	}
	updateSymbols(t, scopes, bound, newFree)
	free.update(newFree)
	return nil
}

func analyzeName(t *Table, scopes map[string]Scope, name string, flags Flag, bound, local, free, global nameSet) error {
	switch {
	case flags&DefGlobal != 0:
		if flags&DefNonlocal != 0 {
			return t.errorf(name, "name '%s' is nonlocal and global", name)
		}
		scopes[name] = GlobalExplicit
		global.add(name)
		delete(bound, name)
	case flags&DefNonlocal != 0:
		if bound == nil {
			return t.errorf(name, "nonlocal declaration not allowed at module level")
		}
		if !bound.has(name) {
			return t.errorf(name, "no binding for nonlocal '%s' found", name)
		}
		scopes[name] = Free
		free.add(name)
	case flags&DefBound != 0:
		scopes[name] = Local
		local.add(name)
		delete(global, name)
	case bound != nil && bound.has(name):
		scopes[name] = Free
		free.add(name)
	default:
		scopes[name] = GlobalImplicit
	}
	return nil
}

// updateSymbols stores the resolved scopes and adds names that are free in
// a child and bound further out.
func updateSymbols(t *Table, scopes map[string]Scope, bound, free nameSet) {
	for name, sym := range t.symbols {
		sym.Scope = scopes[name]
	}
	names := make([]string, 0, len(free))
	for name := range free {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		if sym, ok := t.symbols[name]; ok {
			if t.Type == Class && sym.Flags&(DefBound|DefGlobal) != 0 {
				sym.Flags |= DefFreeClass
			}
			continue
		}
		if bound != nil && !bound.has(name) {
			continue
		}
		t.add(name, 0).Scope = Free
	}
}

func (t *Table) errorf(name, format string, args ...any) *syntax.Error {
	p, ok := t.directives[name]
	if !ok {
		p = syntax.Pos{Line: 1}
	}
	return &syntax.Error{Line: p.Line, Offset: p.Col + 1, Msg: fmt.Sprintf(format, args...)}
}
