// Package syntax builds a compact Python syntax tree from the tree-sitter
// concrete syntax tree.
//
// The tree keeps only what name binding needs: scope-introducing nodes,
// binding statements, names and attributes. Everything else collapses into
// Generic nodes whose children are visited in source order.
package syntax

// Pos is a source position. Line is 1-based, Col is a 0-based byte offset.
type Pos struct {
	Line int
	Col  int
}

// Node is any syntax tree node.
type Node interface {
	node()
}

// Ctx is the expression context of a Name.
type Ctx int

const (
	Load Ctx = iota
	Store
	Del
)

// Module is the tree root.
type Module struct {
	Body []Node
}

// FunctionDef is a def or async def statement.
type FunctionDef struct {
	Name       string
	NamePos    Pos
	DefPos     Pos
	Async      bool
	Decorators []Node
	Params     []*Param
	Returns    Node
	Body       []Node
}

// Lambda is a lambda expression.
type Lambda struct {
	Pos    Pos
	Params []*Param
	Body   Node
}

// ParamKind classifies a formal parameter.
type ParamKind int

const (
	PosOnly ParamKind = iota
	Positional
	VarArgs
	KwOnly
	KwArgs
)

// Param is one formal parameter of a function or lambda.
type Param struct {
	Name       string
	Pos        Pos
	Kind       ParamKind
	Annotation Node
	Default    Node
}

// ClassDef is a class statement. Bases holds positional bases followed by
// keyword values, in source order.
type ClassDef struct {
	Name       string
	NamePos    Pos
	DefPos     Pos
	Decorators []Node
	Bases      []Node
	Body       []Node
}

// CompKind is the kind of a comprehension.
type CompKind int

const (
	ListComp CompKind = iota
	SetComp
	DictComp
	GenExp
)

// ScopeName is the name CPython gives the comprehension's scope.
func (k CompKind) ScopeName() string {
	switch k {
	case SetComp:
		return "setcomp"
	case DictComp:
		return "dictcomp"
	case GenExp:
		return "genexpr"
	}
	return "listcomp"
}

// Comprehension is a list, set or dict comprehension or a generator
// expression. Elts holds the element, or key and value for dicts.
type Comprehension struct {
	Kind       CompKind
	Pos        Pos
	Elts       []Node
	Generators []*Generator
}

// Generator is one "for ... in ... if ..." clause.
type Generator struct {
	Target Node
	Iter   Node
	Ifs    []Node
	Async  bool
}

// Import is an import or from-import statement.
type Import struct {
	From  bool
	Names []*Alias
}

// Alias is a bound import name. Name is the name the statement binds: the
// alias when present, else the first part of a dotted module path.
type Alias struct {
	Name string
	Pos  Pos
	Star bool
}

// Ident is a bare identifier with its position.
type Ident struct {
	Name string
	Pos  Pos
}

// Declaration is a global or nonlocal statement.
type Declaration struct {
	Pos      Pos
	Nonlocal bool
	Names    []Ident
}

// Try is a try statement.
type Try struct {
	Body     []Node
	Handlers []*ExceptHandler
	Else     []Node
	Finally  []Node
}

// ExceptHandler is one except clause. Name is nil without "as".
type ExceptHandler struct {
	Type Node
	Name *Ident
	Body []Node
}

// NamedExpr is an assignment expression (walrus).
type NamedExpr struct {
	Target *Name
	Value  Node
}

// AnnAssign is an annotated assignment. Simple is set when the target is a
// bare name.
type AnnAssign struct {
	Target     Node
	Annotation Node
	Value      Node
	Simple     bool
}

// Name is an identifier in expression position.
type Name struct {
	ID  string
	Pos Pos
	Ctx Ctx
}

// Attribute is "Value.Attr".
type Attribute struct {
	Value   Node
	Attr    string
	AttrPos Pos
}

// Generic is any other construct. Its children are visited in order. Pos
// is only recorded for yield expressions.
type Generic struct {
	Kind     string
	Pos      Pos
	Children []Node
}

func (*Module) node()        {}
func (*FunctionDef) node()   {}
func (*Lambda) node()        {}
func (*ClassDef) node()      {}
func (*Comprehension) node() {}
func (*Import) node()        {}
func (*Declaration) node()   {}
func (*Try) node()           {}
func (*NamedExpr) node()     {}
func (*AnnAssign) node()     {}
func (*Name) node()          {}
func (*Attribute) node()     {}
func (*Generic) node()       {}

// Defaults returns parameter defaults in source order.
func Defaults(params []*Param) []Node {
	var out []Node
	for _, p := range params {
		if p.Default != nil {
			out = append(out, p.Default)
		}
	}
	return out
}

// Annotations returns parameter annotations in the order CPython evaluates
// them: positional parameters, keyword-only parameters, then *args and
// **kwargs.
func Annotations(params []*Param) []Node {
	var out []Node
	add := func(match func(ParamKind) bool) {
		for _, p := range params {
			if p.Annotation != nil && match(p.Kind) {
				out = append(out, p.Annotation)
			}
		}
	}
	add(func(k ParamKind) bool { return k == PosOnly || k == Positional })
	add(func(k ParamKind) bool { return k == KwOnly })
	add(func(k ParamKind) bool { return k == VarArgs })
	add(func(k ParamKind) bool { return k == KwArgs })
	return out
}

// Inspect traverses the tree in depth-first order, calling f for each node.
// If f returns false the node's children are skipped.
func Inspect(n Node, f func(Node) bool) {
	if n == nil || !f(n) {
		return
	}
	each := func(nodes []Node) {
		for _, c := range nodes {
			Inspect(c, f)
		}
	}
	switch n := n.(type) {
	case *Module:
		each(n.Body)
	case *FunctionDef:
		each(n.Decorators)
		inspectParams(n.Params, f)
		Inspect(n.Returns, f)
		each(n.Body)
	case *Lambda:
		inspectParams(n.Params, f)
		Inspect(n.Body, f)
	case *ClassDef:
		each(n.Decorators)
		each(n.Bases)
		each(n.Body)
	case *Comprehension:
		each(n.Elts)
		for _, g := range n.Generators {
			Inspect(g.Target, f)
			Inspect(g.Iter, f)
			each(g.Ifs)
		}
	case *Try:
		each(n.Body)
		for _, h := range n.Handlers {
			Inspect(h.Type, f)
			each(h.Body)
		}
		each(n.Else)
		each(n.Finally)
	case *NamedExpr:
		Inspect(n.Target, f)
		Inspect(n.Value, f)
	case *AnnAssign:
		Inspect(n.Target, f)
		Inspect(n.Annotation, f)
		Inspect(n.Value, f)
	case *Attribute:
		Inspect(n.Value, f)
	case *Generic:
		each(n.Children)
	}
}

func inspectParams(params []*Param, f func(Node) bool) {
	for _, p := range params {
		Inspect(p.Annotation, f)
		Inspect(p.Default, f)
	}
}
