package syntax

import (
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
)

// converter turns a tree-sitter CST without errors into a syntax tree. It
// records the first conversion error and stops descending afterwards.
type converter struct {
	src      []byte
	maxDepth int
	depth    int
	err      *Error
}

func (c *converter) pos(n *sitter.Node) Pos {
	p := n.StartPoint()
	return Pos{Line: int(p.Row) + 1, Col: int(p.Column)}
}

func (c *converter) text(n *sitter.Node) string { return n.Content(c.src) }

func (c *converter) fail(n *sitter.Node, msg string) {
	if c.err == nil {
		p := c.pos(n)
		c.err = &Error{Line: p.Line, Offset: p.Col + 1, Msg: msg}
	}
}

// enter bounds recursion depth. Callers must call leave when enter returns
// true.
func (c *converter) enter(n *sitter.Node) bool {
	if c.err != nil {
		return false
	}
	c.depth++
	if c.depth > c.maxDepth {
		p := c.pos(n)
		c.err = &Error{Line: p.Line, Offset: p.Col + 1, Msg: ErrTooDeep.Error(), Err: ErrTooDeep}
		c.depth--
		return false
	}
	return true
}

func (c *converter) leave() { c.depth-- }

func nonNil(nodes ...Node) []Node {
	out := nodes[:0:0]
	for _, n := range nodes {
		if n != nil {
			out = append(out, n)
		}
	}
	return out
}

func namedChildren(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	out := make([]*sitter.Node, 0, n.NamedChildCount())
	for i := 0; i < int(n.NamedChildCount()); i++ {
		ch := n.NamedChild(i)
		if ch == nil || ch.Type() == "comment" || ch.Type() == "line_continuation" {
			continue
		}
		out = append(out, ch)
	}
	return out
}

func isIdentifier(n *sitter.Node) bool {
	return n != nil && (n.Type() == "identifier" || n.Type() == "keyword_identifier")
}

func sameNode(a, b *sitter.Node) bool {
	return a != nil && b != nil && a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte() && a.Type() == b.Type()
}

// block converts the statements below n.
func (c *converter) block(n *sitter.Node) []Node {
	var out []Node
	for _, ch := range namedChildren(n) {
		if s := c.convert(ch); s != nil {
			out = append(out, s)
		}
	}
	return out
}

// bodyOf returns the block of a compound clause.
func bodyOf(n *sitter.Node) *sitter.Node {
	if b := n.ChildByFieldName("body"); b != nil {
		return b
	}
	for _, ch := range namedChildren(n) {
		if ch.Type() == "block" {
			return ch
		}
	}
	return nil
}

func (c *converter) convert(n *sitter.Node) Node {
	if n == nil || !c.enter(n) {
		return nil
	}
	defer c.leave()

	switch n.Type() {
	case "comment", "line_continuation":
		return nil
	case "identifier", "keyword_identifier":
		return c.name(n, Load)
	case "function_definition":
		return c.functionDef(n, nil)
	case "class_definition":
		return c.classDef(n, nil)
	case "decorated_definition":
		return c.decorated(n)
	case "lambda":
		return c.lambda(n)
	case "list_comprehension":
		return c.comprehension(n, ListComp)
	case "set_comprehension":
		return c.comprehension(n, SetComp)
	case "dictionary_comprehension":
		return c.comprehension(n, DictComp)
	case "generator_expression":
		return c.comprehension(n, GenExp)
	case "import_statement":
		return c.importStmt(n)
	case "import_from_statement", "future_import_statement":
		return c.importFrom(n)
	case "global_statement", "nonlocal_statement":
		return c.declaration(n)
	case "try_statement":
		return c.try(n)
	case "named_expression":
		return c.namedExpr(n)
	case "assignment":
		return c.assignment(n)
	case "augmented_assignment":
		right := n.ChildByFieldName("right")
		if !c.plainValue(right) {
			return nil
		}
		return &Generic{Kind: n.Type(), Children: nonNil(
			c.target(n.ChildByFieldName("left"), Store),
			c.convert(right),
		)}
	case "for_statement":
		return &Generic{Kind: n.Type(), Children: nonNil(
			c.target(n.ChildByFieldName("left"), Store),
			c.convert(n.ChildByFieldName("right")),
			c.convert(n.ChildByFieldName("body")),
			c.convert(n.ChildByFieldName("alternative")),
		)}
	case "yield":
		g := &Generic{Kind: n.Type(), Pos: c.pos(n)}
		for _, ch := range namedChildren(n) {
			if x := c.convert(ch); x != nil {
				g.Children = append(g.Children, x)
			}
		}
		return g
	case "with_item":
		return c.withItem(n)
	case "delete_statement":
		var kids []Node
		for _, ch := range namedChildren(n) {
			kids = append(kids, c.target(ch, Del))
		}
		return &Generic{Kind: n.Type(), Children: nonNil(kids...)}
	case "attribute":
		return c.attribute(n)
	case "keyword_argument":
		return c.convert(n.ChildByFieldName("value"))
	case "argument_list":
		return c.arguments(n)
	case "conditional_expression":
		kids := namedChildren(n)
		if len(kids) != 3 {
			return c.generic(n)
		}
		// Evaluation order: test, body, orelse.
		return &Generic{Kind: n.Type(), Children: nonNil(c.convert(kids[1]), c.convert(kids[0]), c.convert(kids[2]))}
	case "dotted_name":
		return c.dottedName(n)
	case "member_type":
		kids := namedChildren(n)
		if len(kids) == 2 && isIdentifier(kids[1]) {
			return &Attribute{Value: c.convert(kids[0]), Attr: c.text(kids[1]), AttrPos: c.pos(kids[1])}
		}
		return c.generic(n)
	case "type_alias_statement":
		if id := firstIdentifier(n.ChildByFieldName("left")); id != nil {
			return &Generic{Kind: n.Type(), Children: []Node{c.name(id, Store)}}
		}
		return nil
	case "match_statement":
		return c.match(n)
	case "print_statement":
		c.fail(n, "Missing parentheses in call to 'print'. Did you mean print(...)?")
		return nil
	case "exec_statement":
		c.fail(n, "Missing parentheses in call to 'exec'. Did you mean exec(...)?")
		return nil
	}
	return c.generic(n)
}

// generic converts the named children of n in source order. Leaves without
// names convert to nil.
func (c *converter) generic(n *sitter.Node) Node {
	kids := namedChildren(n)
	if len(kids) == 0 {
		return nil
	}
	g := &Generic{Kind: n.Type()}
	for _, ch := range kids {
		if x := c.convert(ch); x != nil {
			g.Children = append(g.Children, x)
		}
	}
	if len(g.Children) == 0 {
		return nil
	}
	return g
}

func (c *converter) name(n *sitter.Node, ctx Ctx) *Name {
	return &Name{ID: c.text(n), Pos: c.pos(n), Ctx: ctx}
}

// target converts an assignment target.
func (c *converter) target(n *sitter.Node, ctx Ctx) Node {
	if n == nil || !c.enter(n) {
		return nil
	}
	defer c.leave()

	switch n.Type() {
	case "identifier", "keyword_identifier":
		return c.name(n, ctx)
	case "as_pattern_target":
		kids := namedChildren(n)
		if len(kids) == 0 {
			return c.name(n, ctx)
		}
		return c.target(kids[0], ctx)
	case "pattern_list", "tuple_pattern", "list_pattern", "tuple", "list", "expression_list",
		"parenthesized_expression", "list_splat_pattern", "list_splat", "parenthesized_list_splat":
		g := &Generic{Kind: n.Type()}
		for _, ch := range namedChildren(n) {
			if x := c.target(ch, ctx); x != nil {
				g.Children = append(g.Children, x)
			}
		}
		return g
	case "call":
		if ctx == Del {
			c.fail(n, "cannot delete function call")
			return nil
		}
	}
	return c.convert(n)
}

func (c *converter) attribute(n *sitter.Node) Node {
	attr := n.ChildByFieldName("attribute")
	if attr == nil {
		return c.generic(n)
	}
	return &Attribute{
		Value:   c.convert(n.ChildByFieldName("object")),
		Attr:    c.text(attr),
		AttrPos: c.pos(attr),
	}
}

// dottedName converts "a.b.c" in expression position to a load of a followed
// by attribute accesses.
func (c *converter) dottedName(n *sitter.Node) Node {
	var out Node
	for _, id := range namedChildren(n) {
		if !isIdentifier(id) {
			continue
		}
		if out == nil {
			out = c.name(id, Load)
			continue
		}
		out = &Attribute{Value: out, Attr: c.text(id), AttrPos: c.pos(id)}
	}
	return out
}

func firstIdentifier(n *sitter.Node) *sitter.Node {
	if n == nil {
		return nil
	}
	if isIdentifier(n) {
		return n
	}
	for _, ch := range namedChildren(n) {
		if id := firstIdentifier(ch); id != nil {
			return id
		}
	}
	return nil
}

// arguments orders call arguments the way CPython evaluates them: positional
// and starred arguments, then keyword values and ** unpackings.
func (c *converter) arguments(n *sitter.Node) Node {
	var positional, keywords []Node
	seen := map[string]bool{}
	sawKeyword, sawDoubleStar := false, false
	for _, ch := range namedChildren(n) {
		switch ch.Type() {
		case "keyword_argument":
			if name := ch.ChildByFieldName("name"); name != nil {
				key := c.text(name)
				if seen[key] {
					c.fail(ch, fmt.Sprintf("keyword argument repeated: %s", key))
					return nil
				}
				seen[key] = true
			}
			sawKeyword = true
			keywords = append(keywords, c.convert(ch))
		case "dictionary_splat":
			sawDoubleStar = true
			keywords = append(keywords, c.convert(ch))
		case "list_splat":
			if sawDoubleStar {
				c.fail(ch, "iterable argument unpacking follows keyword argument unpacking")
				return nil
			}
			positional = append(positional, c.convert(ch))
		default:
			switch {
			case sawDoubleStar:
				c.fail(ch, "positional argument follows keyword argument unpacking")
				return nil
			case sawKeyword:
				c.fail(ch, "positional argument follows keyword argument")
				return nil
			}
			positional = append(positional, c.convert(ch))
		}
	}
	kids := nonNil(append(positional, keywords...)...)
	if len(kids) == 0 {
		return nil
	}
	return &Generic{Kind: n.Type(), Children: kids}
}

func (c *converter) decorated(n *sitter.Node) Node {
	var decorators []Node
	for _, ch := range namedChildren(n) {
		if ch.Type() != "decorator" {
			continue
		}
		for _, expr := range namedChildren(ch) {
			if d := c.convert(expr); d != nil {
				decorators = append(decorators, d)
			}
		}
	}
	def := n.ChildByFieldName("definition")
	if def == nil {
		return c.generic(n)
	}
	if def.Type() == "class_definition" {
		return c.classDef(def, decorators)
	}
	return c.functionDef(def, decorators)
}

func (c *converter) functionDef(n *sitter.Node, decorators []Node) Node {
	name := n.ChildByFieldName("name")
	if name == nil {
		c.fail(n, "invalid syntax")
		return nil
	}
	fn := &FunctionDef{
		Name:       c.text(name),
		NamePos:    c.pos(name),
		DefPos:     c.pos(n),
		Decorators: decorators,
	}
	if first := n.Child(0); first != nil && first.Type() == "async" {
		fn.Async = true
	}
	fn.Params = c.params(n.ChildByFieldName("parameters"))
	fn.Returns = c.convert(n.ChildByFieldName("return_type"))
	fn.Body = c.block(n.ChildByFieldName("body"))
	return fn
}

func (c *converter) classDef(n *sitter.Node, decorators []Node) Node {
	name := n.ChildByFieldName("name")
	if name == nil {
		c.fail(n, "invalid syntax")
		return nil
	}
	cls := &ClassDef{
		Name:       c.text(name),
		NamePos:    c.pos(name),
		DefPos:     c.pos(n),
		Decorators: decorators,
	}
	if sup := n.ChildByFieldName("superclasses"); sup != nil {
		if g, ok := c.arguments(sup).(*Generic); ok {
			cls.Bases = g.Children
		}
	}
	cls.Body = c.block(n.ChildByFieldName("body"))
	return cls
}

func (c *converter) lambda(n *sitter.Node) Node {
	return &Lambda{
		Pos:    c.pos(n),
		Params: c.params(n.ChildByFieldName("parameters")),
		Body:   c.convert(n.ChildByFieldName("body")),
	}
}

// params converts a parameter list and applies CPython's ordering rules.
func (c *converter) params(n *sitter.Node) []*Param {
	var (
		params      []*Param
		kind        = Positional
		bareStar    *sitter.Node
		sawStar     bool
		sawKwargs   bool
		sawDefault  bool
		sawKwOnlyID bool
	)
	for _, ch := range namedChildren(n) {
		if sawKwargs {
			c.fail(ch, "arguments cannot follow var-keyword argument")
			return nil
		}
		switch ch.Type() {
		case "positional_separator":
			for _, p := range params {
				if p.Kind == Positional {
					p.Kind = PosOnly
				}
			}
			continue
		case "keyword_separator":
			if sawStar {
				c.fail(ch, "* argument may appear only once")
				return nil
			}
			sawStar, bareStar, kind = true, ch, KwOnly
			continue
		}
		p := c.param(ch, kind)
		if p == nil {
			return nil
		}
		switch p.Kind {
		case VarArgs:
			if sawStar {
				c.fail(ch, "* argument may appear only once")
				return nil
			}
			sawStar, kind = true, KwOnly
		case KwArgs:
			sawKwargs = true
		case KwOnly:
			sawKwOnlyID = true
		case Positional:
			// Literal defaults convert to nil, so look at the node.
			if hasDefault(ch) {
				sawDefault = true
			} else if sawDefault {
				c.fail(ch, "parameter without a default follows parameter with a default")
				return nil
			}
		}
		params = append(params, p)
	}
	if bareStar != nil && !sawKwOnlyID {
		c.fail(bareStar, "named arguments must follow bare *")
		return nil
	}
	return params
}

func hasDefault(n *sitter.Node) bool {
	return n.Type() == "default_parameter" || n.Type() == "typed_default_parameter"
}

func (c *converter) param(n *sitter.Node, kind ParamKind) *Param {
	if c.err != nil {
		return nil
	}
	switch n.Type() {
	case "identifier", "keyword_identifier":
		return &Param{Name: c.text(n), Pos: c.pos(n), Kind: kind}
	case "list_splat_pattern", "dictionary_splat_pattern":
		id := firstIdentifier(n)
		if id == nil {
			c.fail(n, "invalid syntax")
			return nil
		}
		k := VarArgs
		if n.Type() == "dictionary_splat_pattern" {
			k = KwArgs
		}
		return &Param{Name: c.text(id), Pos: c.pos(id), Kind: k}
	case "default_parameter", "typed_default_parameter":
		p := c.param(n.ChildByFieldName("name"), kind)
		if p == nil {
			return nil
		}
		p.Annotation = c.convert(n.ChildByFieldName("type"))
		p.Default = c.convert(n.ChildByFieldName("value"))
		return p
	case "typed_parameter":
		kids := namedChildren(n)
		if len(kids) == 0 {
			c.fail(n, "invalid syntax")
			return nil
		}
		p := c.param(kids[0], kind)
		if p == nil {
			return nil
		}
		p.Annotation = c.convert(n.ChildByFieldName("type"))
		return p
	case "tuple_pattern":
		c.fail(n, "Function parameters cannot be parenthesized")
		return nil
	}
	c.fail(n, "invalid syntax")
	return nil
}

func (c *converter) comprehension(n *sitter.Node, kind CompKind) Node {
	comp := &Comprehension{Kind: kind, Pos: c.pos(n)}
	body := n.ChildByFieldName("body")
	if kind == DictComp && body != nil && body.Type() == "pair" {
		comp.Elts = nonNil(c.convert(body.ChildByFieldName("key")), c.convert(body.ChildByFieldName("value")))
	} else {
		comp.Elts = nonNil(c.convert(body))
	}
	var cur *Generator
	for _, ch := range namedChildren(n) {
		switch ch.Type() {
		case "for_in_clause":
			cur = c.forIn(ch)
			if cur == nil {
				return nil
			}
			comp.Generators = append(comp.Generators, cur)
		case "if_clause":
			if cur == nil {
				continue
			}
			for _, cond := range namedChildren(ch) {
				if x := c.convert(cond); x != nil {
					cur.Ifs = append(cur.Ifs, x)
				}
			}
		}
	}
	if len(comp.Generators) == 0 {
		c.fail(n, "invalid syntax")
		return nil
	}
	return comp
}

func (c *converter) forIn(n *sitter.Node) *Generator {
	g := &Generator{Target: c.target(n.ChildByFieldName("left"), Store)}
	var right []*sitter.Node
	afterIn := false
	for i := 0; i < int(n.ChildCount()); i++ {
		ch := n.Child(i)
		switch {
		case ch.Type() == "async":
			g.Async = true
		case ch.Type() == "in":
			afterIn = true
		case afterIn && ch.IsNamed() && ch.Type() != "comment":
			right = append(right, ch)
		}
	}
	if len(right) > 1 {
		c.fail(right[1], "invalid syntax")
		return nil
	}
	if len(right) == 1 {
		g.Iter = c.convert(right[0])
	}
	return g
}

func (c *converter) importStmt(n *sitter.Node) Node {
	imp := &Import{}
	for _, ch := range namedChildren(n) {
		if a := c.alias(ch, false); a != nil {
			imp.Names = append(imp.Names, a)
		}
	}
	return imp
}

func (c *converter) importFrom(n *sitter.Node) Node {
	imp := &Import{From: true}
	module := n.ChildByFieldName("module_name")
	for _, ch := range namedChildren(n) {
		if sameNode(ch, module) {
			continue
		}
		if a := c.alias(ch, true); a != nil {
			imp.Names = append(imp.Names, a)
		}
	}
	return imp
}

func (c *converter) alias(n *sitter.Node, from bool) *Alias {
	if n == nil {
		return nil
	}
	switch n.Type() {
	case "wildcard_import":
		return &Alias{Name: "*", Pos: c.pos(n), Star: true}
	case "aliased_import":
		if as := n.ChildByFieldName("alias"); as != nil {
			return &Alias{Name: c.text(as), Pos: c.pos(as)}
		}
		return c.alias(n.ChildByFieldName("name"), from)
	case "dotted_name":
		ids := namedChildren(n)
		if len(ids) == 0 {
			return nil
		}
		if from && len(ids) > 1 {
			c.fail(ids[1], "invalid syntax")
			return nil
		}
		return &Alias{Name: c.text(ids[0]), Pos: c.pos(ids[0])}
	case "identifier", "keyword_identifier":
		return &Alias{Name: c.text(n), Pos: c.pos(n)}
	}
	return nil
}

func (c *converter) declaration(n *sitter.Node) Node {
	d := &Declaration{Pos: c.pos(n), Nonlocal: n.Type() == "nonlocal_statement"}
	for _, ch := range namedChildren(n) {
		if isIdentifier(ch) {
			d.Names = append(d.Names, Ident{Name: c.text(ch), Pos: c.pos(ch)})
		}
	}
	return d
}

func (c *converter) try(n *sitter.Node) Node {
	t := &Try{Body: c.block(n.ChildByFieldName("body"))}
	for _, ch := range namedChildren(n) {
		switch ch.Type() {
		case "except_clause", "except_group_clause":
			if h := c.except(ch); h != nil {
				t.Handlers = append(t.Handlers, h)
			}
		case "else_clause":
			t.Else = c.block(bodyOf(ch))
		case "finally_clause":
			t.Finally = c.block(bodyOf(ch))
		}
	}
	return t
}

func (c *converter) except(n *sitter.Node) *ExceptHandler {
	h := &ExceptHandler{}
	var exprs []*sitter.Node
	sawAs := false
	for i := 0; i < int(n.ChildCount()); i++ {
		ch := n.Child(i)
		switch {
		case ch.Type() == "as":
			sawAs = true
		case ch.Type() == ",":
			c.fail(ch, "multiple exception types must be parenthesized")
			return nil
		case ch.Type() == "block":
			h.Body = c.block(ch)
		case ch.IsNamed() && ch.Type() != "comment" && ch.Type() != "line_continuation":
			exprs = append(exprs, ch)
		}
	}

	var typ, alias *sitter.Node
	switch {
	case len(exprs) == 1 && exprs[0].Type() == "as_pattern":
		kids := namedChildren(exprs[0])
		if len(kids) > 0 {
			typ = kids[0]
		}
		alias = exprs[0].ChildByFieldName("alias")
		if alias == nil && len(kids) > 1 {
			alias = kids[len(kids)-1]
		}
	case len(exprs) > 0:
		typ = exprs[0]
		if sawAs && len(exprs) > 1 {
			alias = exprs[1]
		}
	}
	h.Type = c.convert(typ)
	if alias != nil {
		if alias.Type() == "as_pattern_target" {
			if kids := namedChildren(alias); len(kids) > 0 {
				alias = kids[0]
			}
		}
		if !isIdentifier(alias) && alias.Type() != "as_pattern_target" {
			c.fail(alias, "invalid syntax")
			return nil
		}
		h.Name = &Ident{Name: c.text(alias), Pos: c.pos(alias)}
	}
	return h
}

func (c *converter) withItem(n *sitter.Node) Node {
	value := n.ChildByFieldName("value")
	if value != nil && value.Type() == "as_pattern" {
		return c.asPattern(value, false)
	}
	return &Generic{Kind: n.Type(), Children: nonNil(
		c.convert(value),
		c.target(n.ChildByFieldName("alias"), Store),
	)}
}

// asPattern converts "expr as target". In match patterns the value side is
// itself a pattern.
func (c *converter) asPattern(n *sitter.Node, pattern bool) Node {
	kids := namedChildren(n)
	if len(kids) == 0 {
		return nil
	}
	alias := n.ChildByFieldName("alias")
	if alias == nil && len(kids) > 1 {
		alias = kids[len(kids)-1]
	}
	var value Node
	if pattern {
		value = c.pattern(kids[0])
	} else {
		value = c.convert(kids[0])
	}
	return &Generic{Kind: n.Type(), Children: nonNil(value, c.target(alias, Store))}
}

func (c *converter) namedExpr(n *sitter.Node) Node {
	name := n.ChildByFieldName("name")
	if !isIdentifier(name) {
		c.fail(n, "invalid syntax")
		return nil
	}
	return &NamedExpr{Target: c.name(name, Store), Value: c.convert(n.ChildByFieldName("value"))}
}

func (c *converter) assignment(n *sitter.Node) Node {
	left := n.ChildByFieldName("left")
	right := n.ChildByFieldName("right")
	if right != nil && right.Type() == "augmented_assignment" {
		c.fail(operator(right), "invalid syntax")
		return nil
	}
	if typ := n.ChildByFieldName("type"); typ != nil {
		return &AnnAssign{
			Target:     c.target(left, Store),
			Annotation: c.convert(typ),
			Value:      c.convert(right),
			Simple:     isIdentifier(left),
		}
	}
	return &Generic{Kind: n.Type(), Children: nonNil(c.target(left, Store), c.convert(right))}
}

// plainValue rejects an augmented assignment whose value is itself an
// assignment, which tree-sitter accepts and CPython does not.
func (c *converter) plainValue(n *sitter.Node) bool {
	if n == nil {
		return true
	}
	switch n.Type() {
	case "assignment", "augmented_assignment":
		c.fail(operator(n), "invalid syntax")
		return false
	}
	return true
}

// operator returns the operator token of an assignment node.
func operator(n *sitter.Node) *sitter.Node {
	if op := n.ChildByFieldName("operator"); op != nil {
		return op
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if ch := n.Child(i); ch != nil && !ch.IsNamed() {
			return ch
		}
	}
	return n
}

func (c *converter) match(n *sitter.Node) Node {
	g := &Generic{Kind: n.Type()}
	for _, ch := range namedChildren(n) {
		if ch.Type() != "block" {
			g.Children = append(g.Children, c.convert(ch))
			continue
		}
		for _, clause := range namedChildren(ch) {
			if clause.Type() == "case_clause" {
				g.Children = append(g.Children, c.caseClause(clause))
			}
		}
	}
	g.Children = nonNil(g.Children...)
	return g
}

func (c *converter) caseClause(n *sitter.Node) Node {
	if !c.enter(n) {
		return nil
	}
	defer c.leave()
	g := &Generic{Kind: n.Type()}
	for _, ch := range namedChildren(n) {
		switch ch.Type() {
		case "if_clause", "block":
			g.Children = append(g.Children, c.convert(ch))
		default:
			g.Children = append(g.Children, c.pattern(ch))
		}
	}
	g.Children = nonNil(g.Children...)
	return g
}

// pattern converts a match pattern. Capture names bind like assignment
// targets; dotted names are value lookups.
func (c *converter) pattern(n *sitter.Node) Node {
	if n == nil || !c.enter(n) {
		return nil
	}
	defer c.leave()

	switch n.Type() {
	case "identifier", "keyword_identifier":
		if c.text(n) == "_" {
			return nil
		}
		return c.name(n, Store)
	case "dotted_name":
		ids := namedChildren(n)
		if len(ids) == 1 {
			return c.pattern(ids[0])
		}
		return c.dottedName(n)
	case "class_pattern":
		g := &Generic{Kind: n.Type()}
		for i, ch := range namedChildren(n) {
			if i == 0 && ch.Type() == "dotted_name" {
				g.Children = append(g.Children, c.dottedName(ch))
				continue
			}
			g.Children = append(g.Children, c.pattern(ch))
		}
		g.Children = nonNil(g.Children...)
		return g
	case "keyword_pattern":
		kids := namedChildren(n)
		if len(kids) < 2 {
			return nil
		}
		return c.pattern(kids[1])
	case "splat_pattern":
		if id := firstIdentifier(n); id != nil && c.text(id) != "_" {
			return c.name(id, Store)
		}
		return nil
	case "as_pattern":
		return c.asPattern(n, true)
	case "dict_pattern":
		return c.dictPattern(n)
	case "string", "concatenated_string", "integer", "float", "true", "false", "none", "complex_pattern":
		return c.convert(n)
	}
	g := &Generic{Kind: n.Type()}
	for _, ch := range namedChildren(n) {
		g.Children = append(g.Children, c.pattern(ch))
	}
	g.Children = nonNil(g.Children...)
	if len(g.Children) == 0 {
		return nil
	}
	return g
}

// dictPattern converts "{key: pattern, **rest}". Keys are values, not
// captures.
func (c *converter) dictPattern(n *sitter.Node) Node {
	g := &Generic{Kind: n.Type()}
	afterColon := false
	for i := 0; i < int(n.ChildCount()); i++ {
		ch := n.Child(i)
		switch {
		case ch.Type() == ":":
			afterColon = true
		case ch.Type() == ",":
			afterColon = false
		case !ch.IsNamed() || ch.Type() == "comment":
		case afterColon || ch.Type() == "splat_pattern":
			g.Children = append(g.Children, c.pattern(ch))
		default:
			g.Children = append(g.Children, c.convert(ch))
		}
	}
	g.Children = nonNil(g.Children...)
	return g
}
