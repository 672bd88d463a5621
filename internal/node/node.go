// Package node defines highlighted identifier occurrences and the rules that
// classify them.
package node

import (
	"cmp"
	"fmt"
	"strings"

	"github.com/jward/pyscope/internal/symtable"
)

// MarkID is the highlight id shared by all selection marks.
const MarkID = 31400

const firstID = 314001

// IDs hands out highlight ids. Each session owns one.
type IDs struct {
	next int
}

// NewIDs returns an allocator starting at the first highlight id.
func NewIDs() *IDs { return &IDs{next: firstID} }

// Next returns a fresh id.
func (a *IDs) Next() int {
	id := a.next
	a.next++
	return id
}

// Occurrence is one mention of an identifier.
type Occurrence struct {
	ID   int
	Name string
	// Key is the name the symbol table knows, after private name mangling.
	Key      string
	Line     int
	Col      int
	End      int
	Category Category
	// Chain holds the enclosing scopes, outermost first. It is shared and
	// must not be modified.
	Chain []*symtable.Table
	// Symbol is nil for attributes.
	Symbol *symtable.Symbol
	// Target is the attribute occurrence produced for a self/cls receiver.
	Target *Occurrence
}

// New creates and classifies a name occurrence. It panics if the innermost
// scope of chain has no symbol for the name: every collected name must be
// known to the scope it was collected in.
func New(ids *IDs, name string, line, col int, chain []*symtable.Table, target *Occurrence) *Occurrence {
	o := newOccurrence(ids, name, line, col, chain)
	o.Target = target
	o.Symbol = o.lookup()
	o.Category = Classify(o.Name, o.Key, o.Symbol, chain)
	return o
}

// NewImported creates an occurrence for a name bound by an import.
func NewImported(ids *IDs, name string, line, col int, chain []*symtable.Table) *Occurrence {
	o := newOccurrence(ids, name, line, col, chain)
	o.Symbol = o.lookup()
	o.Category = Imported
	return o
}

// NewAttribute creates an attribute occurrence. Attributes carry no symbol.
func NewAttribute(ids *IDs, name string, line, col int, chain []*symtable.Table) *Occurrence {
	o := newOccurrence(ids, name, line, col, chain)
	o.Category = Attribute
	return o
}

func newOccurrence(ids *IDs, name string, line, col int, chain []*symtable.Table) *Occurrence {
	if len(chain) == 0 {
		panic(fmt.Sprintf("node: %q at (%d, %d) has no scope", name, line, col))
	}
	return &Occurrence{
		ID:    ids.Next(),
		Name:  name,
		Key:   LookupKey(name, chain),
		Line:  line,
		Col:   col,
		End:   col + len(name),
		Chain: chain,
	}
}

func (o *Occurrence) lookup() *symtable.Symbol {
	sym, ok := o.Chain[len(o.Chain)-1].Lookup(o.Key)
	if !ok {
		panic(fmt.Sprintf("node: %s can't lookup %q", o, o.Key))
	}
	return sym
}

// Scope returns the innermost scope.
func (o *Occurrence) Scope() *symtable.Table { return o.Chain[len(o.Chain)-1] }

// Pos returns (line, col).
func (o *Occurrence) Pos() Pos { return Pos{o.Line, o.Col} }

func (o *Occurrence) String() string {
	names := make([]string, len(o.Chain))
	for i, t := range o.Chain {
		names[i] = t.Name
	}
	return fmt.Sprintf("<%s %s %s (%d, %d) %d>", o.Name, o.Category, strings.Join(names, "."), o.Line, o.Col, o.ID)
}

// Pos is a (1-based line, 0-based byte column) position.
type Pos struct {
	Line int
	Col  int
}

// ComparePos orders positions by line, then column.
func ComparePos(a, b Pos) int {
	if c := cmp.Compare(a.Line, b.Line); c != 0 {
		return c
	}
	return cmp.Compare(a.Col, b.Col)
}

// Compare orders occurrences by (line, col, category, name). Occurrences
// comparing equal are the same highlight regardless of id.
func Compare(a, b *Occurrence) int {
	if c := ComparePos(a.Pos(), b.Pos()); c != 0 {
		return c
	}
	if c := strings.Compare(a.Category.String(), b.Category.String()); c != 0 {
		return c
	}
	return strings.Compare(a.Name, b.Name)
}

// LookupKey returns the symbol table name for name seen in chain. Private
// names are mangled with the innermost enclosing class.
func LookupKey(name string, chain []*symtable.Table) string {
	if !strings.HasPrefix(name, "__") || strings.HasSuffix(name, "__") {
		return name
	}
	for i := len(chain) - 1; i >= 0; i-- {
		if chain[i].Type == symtable.Class {
			return symtable.Mangle(chain[i].Name, name)
		}
	}
	return name
}

// Highlight is what the editor needs to paint one occurrence. Line is
// 0-based.
type Highlight struct {
	ID       int      `json:"id"`
	Category Category `json:"category"`
	Line     int      `json:"line"`
	Col      int      `json:"col"`
	End      int      `json:"end"`
}

// Highlight returns the paint record. Marked records use MarkID and the
// selected category.
func (o *Occurrence) Highlight(marked bool) Highlight {
	h := Highlight{ID: o.ID, Category: o.Category, Line: o.Line - 1, Col: o.Col, End: o.End}
	if marked {
		h.ID, h.Category = MarkID, Selected
	}
	return h
}
