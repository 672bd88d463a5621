package pyscope

import (
	"github.com/jward/pyscope/internal/node"
	"github.com/jward/pyscope/internal/store"
	"github.com/jward/pyscope/internal/syntax"
)

// Public type aliases for internal types used in the Session and
// QueryBuilder APIs. These are Go type aliases (=), identical to the
// internal types at compile time.

type Occurrence = node.Occurrence
type Category = node.Category
type Highlight = node.Highlight
type Pos = node.Pos
type SyntaxError = syntax.Error

type Store = store.Store
type File = store.File
type StoredOccurrence = store.Occurrence
type CategoryCount = store.CategoryCount

// Highlight categories.
const (
	Unresolved      = node.Unresolved
	Attribute       = node.Attribute
	Builtin         = node.Builtin
	Free            = node.Free
	Global          = node.Global
	Parameter       = node.Parameter
	ParameterUnused = node.ParameterUnused
	Self            = node.Self
	Imported        = node.Imported
	Local           = node.Local
	Selected        = node.Selected
)

// MarkID is the highlight id of every selection mark.
const MarkID = node.MarkID

// ParseCategory returns the category with the given name.
func ParseCategory(s string) (Category, error) { return node.ParseCategory(s) }

// Categories lists all categories.
func Categories() []Category { return node.Categories() }
