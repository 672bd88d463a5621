// Package visitor walks a syntax tree together with its scope tables and
// collects every identifier occurrence in its scope.
package visitor

import (
	"fmt"
	"slices"

	"github.com/jward/pyscope/internal/node"
	"github.com/jward/pyscope/internal/symtable"
	"github.com/jward/pyscope/internal/syntax"
)

// Walk returns the occurrences of mod in traversal order. top must be the
// scope table built from mod. Walk panics if the tables do not match the
// tree.
func Walk(mod *syntax.Module, top *symtable.Table, ids *node.IDs) []*node.Occurrence {
	w := &walker{
		ids:     ids,
		pending: []*symtable.Table{top},
		unused:  map[*symtable.Table]map[string]*node.Occurrence{},
		targets: map[*syntax.Name]*node.Occurrence{},
	}
	w.block(mod, "", false, func() { w.nodes(mod.Body) })
	return w.out
}

type walker struct {
	ids *node.IDs
	// pending holds the tables not yet entered; the next one is last.
	pending []*symtable.Table
	env     []*symtable.Table
	// chain is a copy of env handed to new occurrences.
	chain   []*symtable.Table
	unused  map[*symtable.Table]map[string]*node.Occurrence
	targets map[*syntax.Name]*node.Occurrence
	out     []*node.Occurrence
}

func (w *walker) add(o *node.Occurrence) { w.out = append(w.out, o) }

func (w *walker) nodes(nodes []syntax.Node) {
	for _, n := range nodes {
		w.visit(n)
	}
}

func (w *walker) visit(n syntax.Node) {
	if n == nil {
		return
	}
	switch n := n.(type) {
	case *syntax.Name:
		w.name(n)
	case *syntax.Attribute:
		w.attribute(n)
		w.visit(n.Value)
	case *syntax.FunctionDef:
		w.nodes(syntax.Defaults(n.Params))
		w.nodes(n.Decorators)
		w.add(node.New(w.ids, n.Name, n.NamePos.Line, n.NamePos.Col, w.chain, nil))
		w.nodes(syntax.Annotations(n.Params))
		w.visit(n.Returns)
		w.block(n, w.selfParam(n.Params), true, func() {
			w.params(n.Params)
			w.nodes(n.Body)
		})
	case *syntax.Lambda:
		w.nodes(syntax.Defaults(n.Params))
		w.block(n, "", true, func() {
			w.params(n.Params)
			w.visit(n.Body)
		})
	case *syntax.ClassDef:
		w.nodes(n.Decorators)
		w.add(node.New(w.ids, n.Name, n.NamePos.Line, n.NamePos.Col, w.chain, nil))
		w.nodes(n.Bases)
		w.block(n, "", false, func() { w.nodes(n.Body) })
	case *syntax.Comprehension:
		w.comprehension(n)
	case *syntax.Import:
		for _, a := range n.Names {
			if a.Star {
				continue
			}
			w.add(node.NewImported(w.ids, a.Name, a.Pos.Line, a.Pos.Col, w.chain))
		}
	case *syntax.Declaration:
		for _, id := range n.Names {
			w.name(&syntax.Name{ID: id.Name, Pos: id.Pos})
		}
	case *syntax.Try:
		w.nodes(n.Body)
		w.nodes(n.Else)
		for _, h := range n.Handlers {
			if h.Name != nil {
				w.name(&syntax.Name{ID: h.Name.Name, Pos: h.Name.Pos, Ctx: syntax.Store})
			}
			w.visit(h.Type)
			w.nodes(h.Body)
		}
		w.nodes(n.Finally)
	case *syntax.NamedExpr:
		w.visit(n.Target)
		w.visit(n.Value)
	case *syntax.AnnAssign:
		w.visit(n.Target)
		w.visit(n.Annotation)
		w.visit(n.Value)
	case *syntax.Generic:
		w.nodes(n.Children)
	}
}

// block enters the scope of n. The table popped from the pending stack must
// have been built for n.
func (w *walker) block(n syntax.Node, self string, function bool, body func()) {
	if len(w.pending) == 0 {
		panic(fmt.Sprintf("visitor: no scope table left for %T", n))
	}
	t := w.pending[len(w.pending)-1]
	w.pending = w.pending[:len(w.pending)-1]
	if t.Node != n {
		panic(fmt.Sprintf("visitor: scope table %s %q does not belong to %T", t.Type, t.Name, n))
	}
	for i := len(t.Children) - 1; i >= 0; i-- {
		w.pending = append(w.pending, t.Children[i])
	}
	if self != "" {
		t.SelfParam = self
	}

	w.env = append(w.env, t)
	w.chain = slices.Clone(w.env)
	if function {
		w.unused[t] = map[string]*node.Occurrence{}
	}
	body()
	if function {
		for _, o := range w.unused[t] {
			if o.Category != node.Self {
				o.Category = node.ParameterUnused
			}
		}
		delete(w.unused, t)
	}
	w.env = w.env[:len(w.env)-1]
	w.chain = slices.Clone(w.env)
}

func (w *walker) name(n *syntax.Name) {
	o := node.New(w.ids, n.ID, n.Pos.Line, n.Pos.Col, w.chain, w.targets[n])
	switch {
	case o.Symbol.IsParameter():
		delete(w.unused[o.Scope()], o.Key)
	case o.Symbol.IsFree():
		if t := node.ParameterScope(o); t != nil {
			delete(w.unused[t], o.Key)
		}
	}
	w.add(o)
}

func (w *walker) params(params []*syntax.Param) {
	t := w.env[len(w.env)-1]
	for _, p := range params {
		o := node.New(w.ids, p.Name, p.Pos.Line, p.Pos.Col, w.chain, nil)
		w.add(o)
		w.unused[t][o.Key] = o
	}
}

// selfParam returns the name of the self/cls parameter of a method about to
// be entered, or "".
func (w *walker) selfParam(params []*syntax.Param) string {
	if len(params) == 0 || w.env[len(w.env)-1].Type != symtable.Class {
		return ""
	}
	p := params[0]
	if p.Kind != syntax.PosOnly && p.Kind != syntax.Positional {
		return ""
	}
	if p.Name != "self" && p.Name != "cls" {
		return ""
	}
	return p.Name
}

// attribute records "self.attr" inside a method as an attribute occurrence
// in the class scope and links the receiver to it.
func (w *walker) attribute(n *syntax.Attribute) {
	recv, ok := n.Value.(*syntax.Name)
	if !ok || (recv.ID != "self" && recv.ID != "cls") {
		return
	}
	if w.env[len(w.env)-1].SelfParam != recv.ID {
		return
	}
	o := node.NewAttribute(w.ids, n.Attr, n.AttrPos.Line, n.AttrPos.Col, w.chain[:len(w.chain)-1])
	w.targets[recv] = o
	w.add(o)
}

// comprehension visits the first iterable in the enclosing scope and the
// rest inside the comprehension.
func (w *walker) comprehension(n *syntax.Comprehension) {
	if len(n.Generators) == 0 {
		return
	}
	w.visit(n.Generators[0].Iter)
	w.block(n, "", false, func() {
		w.nodes(n.Elts)
		for i, g := range n.Generators {
			w.visit(g.Target)
			if i > 0 {
				w.visit(g.Iter)
			}
			w.nodes(g.Ifs)
		}
	})
}
