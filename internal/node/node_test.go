package node

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/pyscope/internal/symtable"
	"github.com/jward/pyscope/internal/syntax"
)

func tables(t *testing.T, src string) *symtable.Table {
	t.Helper()
	mod, err := syntax.Parse(context.Background(), []byte(src), 0)
	require.NoError(t, err)
	top, err := symtable.Build(mod)
	require.NoError(t, err)
	return top
}

// =============================================================================
// Category
// =============================================================================

func TestCategory_Names(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "parameterUnused", ParameterUnused.String())
	assert.Equal(t, "pyscopeParameterUnused", ParameterUnused.Group())
	assert.Equal(t, "pyscopeLocal", Local.Group())
	assert.Len(t, Categories(), 11)

	c, err := ParseCategory("Imported")
	require.NoError(t, err)
	assert.Equal(t, Imported, c)

	_, err = ParseCategory("nope")
	require.Error(t, err)
}

func TestCategory_Text(t *testing.T) {
	t.Parallel()
	var c Category
	require.NoError(t, c.UnmarshalText([]byte("free")))
	assert.Equal(t, Free, c)
	b, err := Self.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "self", string(b))
}

// =============================================================================
// Occurrence
// =============================================================================

func TestNew_EndCountsBytes(t *testing.T) {
	t.Parallel()
	top := tables(t, "äöü = 1\n")
	o := New(NewIDs(), "äöü", 1, 0, []*symtable.Table{top}, nil)
	assert.Equal(t, 6, o.End)
	assert.Equal(t, Global, o.Category)
	assert.Equal(t, firstID, o.ID)
}

func TestNew_PanicsOnUnknownName(t *testing.T) {
	t.Parallel()
	top := tables(t, "x\n")
	assert.Panics(t, func() {
		New(NewIDs(), "y", 1, 0, []*symtable.Table{top}, nil)
	})
}

func TestIDs_Sequential(t *testing.T) {
	t.Parallel()
	ids := NewIDs()
	assert.Equal(t, 314001, ids.Next())
	assert.Equal(t, 314002, ids.Next())
	other := NewIDs()
	assert.Equal(t, 314001, other.Next())
}

func TestCompare(t *testing.T) {
	t.Parallel()
	a := &Occurrence{Name: "a", Line: 1, Col: 4, Category: Local}
	b := &Occurrence{Name: "b", Line: 2, Col: 0, Category: Local}
	c := &Occurrence{Name: "a", Line: 1, Col: 4, Category: Global}
	d := &Occurrence{Name: "a", Line: 1, Col: 4, Category: Local, ID: 99}

	assert.Negative(t, Compare(a, b))
	assert.Positive(t, Compare(a, c))
	assert.Zero(t, Compare(a, d))
}

func TestLookupKey(t *testing.T) {
	t.Parallel()
	top := tables(t, "class _A:\n    def f(self): pass\n")
	cls := top.Children[0]
	fn := cls.Children[0]
	chain := []*symtable.Table{top, cls, fn}

	assert.Equal(t, "_A__x", LookupKey("__x", chain))
	assert.Equal(t, "__x__", LookupKey("__x__", chain))
	assert.Equal(t, "__x", LookupKey("__x", chain[:1]))
}

func TestHighlight(t *testing.T) {
	t.Parallel()
	o := &Occurrence{ID: 314005, Name: "abc", Line: 3, Col: 2, End: 5, Category: Free}
	assert.Equal(t, Highlight{ID: 314005, Category: Free, Line: 2, Col: 2, End: 5}, o.Highlight(false))
	assert.Equal(t, Highlight{ID: MarkID, Category: Selected, Line: 2, Col: 2, End: 5}, o.Highlight(true))
}

// =============================================================================
// Classify
// =============================================================================

func TestClassify_Module(t *testing.T) {
	t.Parallel()
	top := tables(t, "len\nset = 1\nimport os\nfoo\n")
	chain := []*symtable.Table{top}
	ids := NewIDs()

	assert.Equal(t, Builtin, New(ids, "len", 1, 0, chain, nil).Category)
	assert.Equal(t, Global, New(ids, "set", 2, 0, chain, nil).Category)
	assert.Equal(t, Imported, New(ids, "os", 3, 7, chain, nil).Category)
	assert.Equal(t, Unresolved, New(ids, "foo", 4, 0, chain, nil).Category)
}

func TestClassify_Function(t *testing.T) {
	t.Parallel()
	top := tables(t, "import os\nset = 1\ndef foo(a):\n    b = 1\n    set, str, os, a, b, nope\n    def g(): a\n")
	fn := top.Children[0]
	g := fn.Children[0]
	chain := []*symtable.Table{top, fn}
	ids := NewIDs()

	cases := map[string]Category{
		"set":  Global,
		"str":  Builtin,
		"os":   Imported,
		"a":    Parameter,
		"b":    Local,
		"nope": Unresolved,
	}
	for name, want := range cases {
		assert.Equal(t, want, New(ids, name, 5, 0, chain, nil).Category, name)
	}
	assert.Equal(t, Free, New(ids, "a", 6, 13, []*symtable.Table{top, fn, g}, nil).Category)
}

func TestClassify_Self(t *testing.T) {
	t.Parallel()
	top := tables(t, "class A:\n    def f(self, x): pass\n")
	cls := top.Children[0]
	fn := cls.Children[0]
	fn.SelfParam = "self"
	chain := []*symtable.Table{top, cls, fn}
	ids := NewIDs()

	assert.Equal(t, Self, New(ids, "self", 2, 10, chain, nil).Category)
	assert.Equal(t, Parameter, New(ids, "x", 2, 16, chain, nil).Category)
}

func TestClassify_ManglingUnresolved(t *testing.T) {
	t.Parallel()
	top := tables(t, "class A:\n    __foo\nclass B:\n    __bar = 1\n")
	ids := NewIDs()

	o := New(ids, "__foo", 2, 4, []*symtable.Table{top, top.Children[0]}, nil)
	assert.Equal(t, "_A__foo", o.Key)
	assert.Equal(t, Unresolved, o.Category)

	o = New(ids, "__bar", 4, 4, []*symtable.Table{top, top.Children[1]}, nil)
	assert.Equal(t, "_B__bar", o.Key)
	assert.Equal(t, Local, o.Category)
}

func TestNewAttributeAndImported(t *testing.T) {
	t.Parallel()
	top := tables(t, "import os\n")
	ids := NewIDs()
	a := NewAttribute(ids, "whatever", 1, 0, []*symtable.Table{top})
	assert.Equal(t, Attribute, a.Category)
	assert.Nil(t, a.Symbol)

	o := NewImported(ids, "os", 1, 7, []*symtable.Table{top})
	assert.Equal(t, Imported, o.Category)
	assert.NotNil(t, o.Symbol)
}

// =============================================================================
// BaseTable
// =============================================================================

func TestBaseTable(t *testing.T) {
	t.Parallel()
	top := tables(t, "x = 1\ndef f():\n    y = 1\n    def g():\n        y\n    class C:\n        z = 1\n        def h(self): z\n")
	f := top.Children[0]
	g := f.Children[0]
	c := f.Children[1]
	h := c.Children[0]
	ids := NewIDs()

	assert.Same(t, top, BaseTable(New(ids, "x", 1, 0, []*symtable.Table{top}, nil)))
	assert.Same(t, f, BaseTable(New(ids, "y", 3, 4, []*symtable.Table{top, f}, nil)))
	assert.Same(t, f, BaseTable(New(ids, "y", 5, 8, []*symtable.Table{top, f, g}, nil)))
	assert.Same(t, c, BaseTable(New(ids, "z", 7, 8, []*symtable.Table{top, f, c}, nil)))
	assert.Same(t, top, BaseTable(New(ids, "z", 8, 21, []*symtable.Table{top, f, c, h}, nil)), "class bodies do not enclose methods")

	attr := NewAttribute(ids, "a", 1, 0, []*symtable.Table{top, f, c})
	assert.Same(t, c, BaseTable(attr))
}

func TestParameterScope(t *testing.T) {
	t.Parallel()
	top := tables(t, "def f(a):\n    def g(): a\n")
	f := top.Children[0]
	g := f.Children[0]
	o := New(NewIDs(), "a", 2, 13, []*symtable.Table{top, f, g}, nil)
	assert.Same(t, f, ParameterScope(o))
}
