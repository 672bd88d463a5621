package node

import (
	"github.com/jward/pyscope/internal/symtable"
)

// Classify returns the category of a name whose symbol in the innermost
// scope of chain is sym. key is the mangled name.
func Classify(name, key string, sym *symtable.Symbol, chain []*symtable.Table) Category {
	switch {
	case sym.IsParameter():
		if chain[len(chain)-1].SelfParam == name {
			return Self
		}
		return Parameter
	case sym.IsFree():
		return Free
	case sym.IsImported():
		return Imported
	case sym.IsLocal() && !sym.IsGlobal():
		return Local
	case sym.IsGlobal():
		if g, ok := chain[0].Lookup(key); ok {
			switch {
			case g.IsAssigned():
				return Global
			case IsBuiltin(name):
				return Builtin
			case g.IsImported():
				return Imported
			}
			return Unresolved
		}
	}
	if IsBuiltin(name) {
		return Builtin
	}
	return Unresolved
}

// BaseTable returns the scope that owns the binding o refers to, or nil if
// no enclosing scope binds it. Occurrences with equal keys and base tables
// refer to the same binding.
func BaseTable(o *Occurrence) *symtable.Table {
	if o.Category == Attribute {
		return o.Scope()
	}
	if o.Symbol.IsGlobal() {
		return o.Chain[0]
	}
	if o.Symbol.IsLocal() && !o.Symbol.IsFree() {
		return o.Scope()
	}
	for i := len(o.Chain) - 1; i >= 0; i-- {
		t := o.Chain[i]
		if t.Type == symtable.Class {
			continue
		}
		if sym, ok := t.Lookup(o.Key); ok && sym.IsLocal() && !sym.IsFree() {
			return t
		}
	}
	return nil
}

// ParameterScope returns the innermost scope in which o's name is a
// parameter, or nil.
func ParameterScope(o *Occurrence) *symtable.Table {
	for i := len(o.Chain) - 1; i >= 0; i-- {
		if sym, ok := o.Chain[i].Lookup(o.Key); ok && sym.IsParameter() {
			return o.Chain[i]
		}
	}
	return nil
}
