// Package symtable builds the lexical scope tree of a Python module and
// resolves every name to a scope the way CPython's symtable module does.
//
// Scopes are created in the same order the highlighting walker enters them,
// so a walker popping children in order always meets the table built for the
// node it is entering.
package symtable

import (
	"github.com/jward/pyscope/internal/syntax"
)

// Type is the kind of a scope.
type Type int

const (
	Module Type = iota
	Function
	Class
)

func (t Type) String() string {
	switch t {
	case Function:
		return "function"
	case Class:
		return "class"
	}
	return "module"
}

// Flag records how a name is used inside one scope.
type Flag uint32

const (
	DefGlobal Flag = 1 << iota
	DefLocal
	DefParam
	DefNonlocal
	Use
	DefFreeClass
	DefImport
	DefAnnot
	DefCompIter

	DefBound = DefLocal | DefParam | DefImport
)

// Scope is the resolved binding of a name after analysis.
type Scope int

const (
	Unknown Scope = iota
	Local
	GlobalExplicit
	GlobalImplicit
	Free
	Cell
)

// Symbol is one name of a table.
type Symbol struct {
	Name  string
	Flags Flag
	Scope Scope

	module bool
}

func (s *Symbol) IsReferenced() bool { return s.Flags&Use != 0 }
func (s *Symbol) IsParameter() bool  { return s.Flags&DefParam != 0 }
func (s *Symbol) IsImported() bool   { return s.Flags&DefImport != 0 }
func (s *Symbol) IsAssigned() bool   { return s.Flags&DefLocal != 0 }
func (s *Symbol) IsAnnotated() bool  { return s.Flags&DefAnnot != 0 }
func (s *Symbol) IsNonlocal() bool   { return s.Flags&DefNonlocal != 0 }
func (s *Symbol) IsFree() bool       { return s.Scope == Free }

// IsDeclaredGlobal reports an explicit global statement.
func (s *Symbol) IsDeclaredGlobal() bool { return s.Scope == GlobalExplicit }

// IsGlobal reports a module-level binding. Names bound at module level are
// both global and local.
func (s *Symbol) IsGlobal() bool {
	return s.Scope == GlobalImplicit || s.Scope == GlobalExplicit ||
		(s.module && s.Flags&DefBound != 0)
}

// IsLocal reports a binding in the symbol's own scope.
func (s *Symbol) IsLocal() bool {
	return s.Scope == Local || s.Scope == Cell || (s.module && s.Flags&DefBound != 0)
}

// Table is one lexical scope.
type Table struct {
	Type     Type
	Name     string
	Node     syntax.Node
	Parent   *Table
	Children []*Table

	// SelfParam is the name of the self/cls parameter of a method, set while
	// walking.
	SelfParam string

	comprehension bool
	symbols       map[string]*Symbol
	order         []string
	directives    map[string]syntax.Pos
	compIterExpr  int
	walrus        []syntax.Ident
}

func newTable(typ Type, name string, n syntax.Node, parent *Table) *Table {
	return &Table{
		Type:       typ,
		Name:       name,
		Node:       n,
		Parent:     parent,
		symbols:    map[string]*Symbol{},
		directives: map[string]syntax.Pos{},
	}
}

// Lookup returns the symbol for name. The boolean is false when the scope
// never mentions name.
func (t *Table) Lookup(name string) (*Symbol, bool) {
	s, ok := t.symbols[name]
	return s, ok
}

// Symbols returns the table's symbols in order of first mention.
func (t *Table) Symbols() []*Symbol {
	out := make([]*Symbol, 0, len(t.order))
	for _, name := range t.order {
		out = append(out, t.symbols[name])
	}
	return out
}

// IsComprehension reports a comprehension or generator expression scope.
func (t *Table) IsComprehension() bool { return t.comprehension }

func (t *Table) add(name string, flag Flag) *Symbol {
	s, ok := t.symbols[name]
	if !ok {
		s = &Symbol{Name: name, module: t.Type == Module}
		t.symbols[name] = s
		t.order = append(t.order, name)
	}
	s.Flags |= flag
	return s
}

func (t *Table) flags(name string) Flag {
	if s, ok := t.symbols[name]; ok {
		return s.Flags
	}
	return 0
}

// Build builds and analyzes the scope tree of mod. Scoping errors CPython
// reports at compile time are returned as *syntax.Error.
func Build(mod *syntax.Module) (*Table, error) {
	b := &builder{}
	top := newTable(Module, "top", mod, nil)
	b.stack = []*Table{top}
	b.stmts(mod.Body)
	if b.err != nil {
		return nil, b.err
	}
	if err := analyze(top); err != nil {
		return nil, err
	}
	return top, nil
}
