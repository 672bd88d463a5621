package symtable

import (
	"fmt"
	"strings"

	"github.com/jward/pyscope/internal/syntax"
)

// Mangle applies class-private name mangling: inside class private, a name
// like __x becomes _private__x. Dunder names and names outside a class are
// left alone.
func Mangle(private, name string) string {
	if private == "" || !strings.HasPrefix(name, "__") || strings.HasSuffix(name, "__") || strings.Contains(name, ".") {
		return name
	}
	stripped := strings.TrimLeft(private, "_")
	if stripped == "" {
		return name
	}
	return "_" + stripped + name
}

type builder struct {
	stack      []*Table
	compTarget bool
	err        *syntax.Error
}

func (b *builder) cur() *Table { return b.stack[len(b.stack)-1] }

func (b *builder) fail(p syntax.Pos, format string, args ...any) {
	if b.err == nil {
		b.err = &syntax.Error{Line: p.Line, Offset: p.Col + 1, Msg: fmt.Sprintf(format, args...)}
	}
}

// private returns the name of the innermost enclosing class.
func (b *builder) private() string {
	for i := len(b.stack) - 1; i >= 0; i-- {
		if b.stack[i].Type == Class {
			return b.stack[i].Name
		}
	}
	return ""
}

func (b *builder) mangle(name string) string { return Mangle(b.private(), name) }

func (b *builder) enter(typ Type, name string, n syntax.Node) *Table {
	parent := b.cur()
	t := newTable(typ, name, n, parent)
	parent.Children = append(parent.Children, t)
	b.stack = append(b.stack, t)
	return t
}

func (b *builder) exit() { b.stack = b.stack[:len(b.stack)-1] }

func (b *builder) def(name string, p syntax.Pos, flag Flag) {
	key := b.mangle(name)
	cur := b.cur()
	if flag&DefParam != 0 && cur.flags(key)&DefParam != 0 {
		b.fail(p, "duplicate argument '%s' in function definition", name)
		return
	}
	cur.add(key, flag)
}

func (b *builder) stmts(nodes []syntax.Node) {
	for _, n := range nodes {
		b.visit(n)
	}
}

func (b *builder) visit(n syntax.Node) {
	if n == nil || b.err != nil {
		return
	}
	switch n := n.(type) {
	case *syntax.Name:
		b.name(n)
	case *syntax.Attribute:
		b.visit(n.Value)
	case *syntax.FunctionDef:
		b.stmts(syntax.Defaults(n.Params))
		b.stmts(n.Decorators)
		b.def(n.Name, n.NamePos, DefLocal)
		b.stmts(syntax.Annotations(n.Params))
		b.visit(n.Returns)
		b.enter(Function, n.Name, n)
		b.params(n.Params)
		b.stmts(n.Body)
		b.exit()
	case *syntax.Lambda:
		b.stmts(syntax.Defaults(n.Params))
		b.enter(Function, "lambda", n)
		b.params(n.Params)
		b.visit(n.Body)
		b.exit()
	case *syntax.ClassDef:
		b.stmts(n.Decorators)
		b.def(n.Name, n.NamePos, DefLocal)
		b.stmts(n.Bases)
		b.enter(Class, n.Name, n)
		b.stmts(n.Body)
		b.exit()
	case *syntax.Comprehension:
		b.comprehension(n)
	case *syntax.Import:
		for _, a := range n.Names {
			if a.Star {
				if b.cur().Type != Module {
					b.fail(a.Pos, "import * only allowed at module level")
				}
				continue
			}
			b.def(a.Name, a.Pos, DefImport)
		}
	case *syntax.Declaration:
		b.declaration(n)
	case *syntax.Try:
		b.stmts(n.Body)
		b.stmts(n.Else)
		for _, h := range n.Handlers {
			if h.Name != nil {
				b.def(h.Name.Name, h.Name.Pos, DefLocal)
			}
			b.visit(h.Type)
			b.stmts(h.Body)
		}
		b.stmts(n.Finally)
	case *syntax.NamedExpr:
		b.namedExpr(n)
	case *syntax.AnnAssign:
		b.annAssign(n)
	case *syntax.Generic:
		if n.Kind == "yield" {
			b.yield(n.Pos)
		}
		b.stmts(n.Children)
	}
}

var comprehensionNames = map[string]string{
	"listcomp": "list comprehension",
	"setcomp":  "set comprehension",
	"dictcomp": "dict comprehension",
	"genexpr":  "generator expression",
}

func (b *builder) yield(p syntax.Pos) {
	cur := b.cur()
	switch {
	case cur.Type != Function:
		b.fail(p, "'yield' outside function")
	case cur.comprehension:
		b.fail(p, "'yield' inside %s", comprehensionNames[cur.Name])
	}
}

func (b *builder) name(n *syntax.Name) {
	if n.Ctx == syntax.Load {
		b.def(n.ID, n.Pos, Use)
		if n.ID == "super" && b.cur().Type == Function {
			b.cur().add("__class__", Use)
		}
		return
	}
	flag := DefLocal
	if b.compTarget {
		flag |= DefCompIter
	}
	b.def(n.ID, n.Pos, flag)
}

func (b *builder) params(params []*syntax.Param) {
	for _, p := range params {
		b.def(p.Name, p.Pos, DefParam)
	}
}

// comprehension evaluates the first iterable in the enclosing scope and
// everything else in the comprehension's own scope.
func (b *builder) comprehension(n *syntax.Comprehension) {
	if len(n.Generators) == 0 {
		return
	}
	outer := b.cur()
	outer.compIterExpr++
	b.visit(n.Generators[0].Iter)
	outer.compIterExpr--

	t := b.enter(Function, n.Kind.ScopeName(), n)
	t.comprehension = true
	t.add(".0", DefParam)
	b.stmts(n.Elts)
	for i, g := range n.Generators {
		b.compTarget = true
		b.visit(g.Target)
		b.compTarget = false
		if i > 0 {
			t.compIterExpr++
			b.visit(g.Iter)
			t.compIterExpr--
		}
		b.stmts(g.Ifs)
	}
	for _, w := range t.walrus {
		if t.flags(w.Name)&DefCompIter != 0 {
			b.fail(w.Pos, "assignment expression cannot rebind comprehension iteration variable '%s'", w.Name)
		}
	}
	b.exit()
}

func (b *builder) namedExpr(n *syntax.NamedExpr) {
	cur := b.cur()
	if cur.compIterExpr > 0 {
		b.fail(n.Target.Pos, "assignment expression cannot be used in a comprehension iterable expression")
		return
	}
	if cur.comprehension && !b.extendNamedExprScope(n.Target) {
		return
	}
	b.visit(n.Target)
	b.visit(n.Value)
}

// extendNamedExprScope binds an assignment expression inside a comprehension
// in the nearest enclosing function or module scope.
func (b *builder) extendNamedExprScope(target *syntax.Name) bool {
	key := b.mangle(target.ID)
	cur := b.cur()
	for i := len(b.stack) - 1; i >= 0; i-- {
		t := b.stack[i]
		if t.comprehension {
			if t.flags(key)&DefCompIter != 0 {
				b.fail(target.Pos, "assignment expression cannot rebind comprehension iteration variable '%s'", target.ID)
				return false
			}
			t.walrus = append(t.walrus, syntax.Ident{Name: key, Pos: target.Pos})
			continue
		}
		switch t.Type {
		case Function:
			if t.flags(key)&DefGlobal != 0 {
				cur.add(key, DefGlobal)
			} else {
				cur.add(key, DefNonlocal)
			}
		case Module:
			cur.add(key, DefGlobal)
		case Class:
			b.fail(target.Pos, "assignment expression within a comprehension cannot be used in a class body")
			return false
		}
		cur.directive(key, target.Pos)
		t.add(key, DefLocal)
		return true
	}
	return true
}

func (b *builder) declaration(n *syntax.Declaration) {
	kind := "global"
	flag := DefGlobal
	if n.Nonlocal {
		kind, flag = "nonlocal", DefNonlocal
	}
	cur := b.cur()
	for _, id := range n.Names {
		key := b.mangle(id.Name)
		if fl := cur.flags(key); fl&(DefParam|DefLocal|Use|DefAnnot) != 0 {
			switch {
			case fl&DefParam != 0:
				b.fail(n.Pos, "name '%s' is parameter and %s", id.Name, kind)
			case fl&Use != 0:
				b.fail(n.Pos, "name '%s' is used prior to %s declaration", id.Name, kind)
			case fl&DefAnnot != 0:
				b.fail(n.Pos, "annotated name '%s' can't be %s", id.Name, kind)
			default:
				b.fail(n.Pos, "name '%s' is assigned to before %s declaration", id.Name, kind)
			}
			return
		}
		cur.add(key, flag)
		cur.directive(key, n.Pos)
	}
}

func (b *builder) annAssign(n *syntax.AnnAssign) {
	cur := b.cur()
	if name, ok := n.Target.(*syntax.Name); ok && n.Simple {
		key := b.mangle(name.ID)
		fl := cur.flags(key)
		if fl&(DefGlobal|DefNonlocal) != 0 && cur.Type != Module {
			kind := "global"
			if fl&DefNonlocal != 0 {
				kind = "nonlocal"
			}
			b.fail(name.Pos, "annotated name '%s' can't be %s", name.ID, kind)
			return
		}
		cur.add(key, DefAnnot|DefLocal)
	} else {
		b.visit(n.Target)
	}
	b.visit(n.Annotation)
	b.visit(n.Value)
}

func (t *Table) directive(name string, p syntax.Pos) {
	if _, ok := t.directives[name]; !ok {
		t.directives[name] = p
	}
}
