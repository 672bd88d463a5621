package syntax

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/jward/pyscope/internal/tokenize"
)

// DefaultMaxDepth bounds tree nesting when no explicit bound is given.
const DefaultMaxDepth = 500

// parsers recycles tree-sitter parsers; a build parses up to three times.
var parsers = sync.Pool{
	New: func() any {
		p := sitter.NewParser()
		p.SetLanguage(python.GetLanguage())
		return p
	},
}

// Parse parses src into a syntax tree. Syntax errors are returned as *Error.
func Parse(ctx context.Context, src []byte, maxDepth int) (*Module, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	p := parsers.Get().(*sitter.Parser)
	defer parsers.Put(p)

	tree, err := p.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("syntax: parse: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, locate(src, root)
	}
	if e := checkIndentation(string(src)); e != nil {
		return nil, e
	}
	c := &converter{src: src, maxDepth: maxDepth}
	mod := &Module{Body: c.block(root)}
	if c.err != nil {
		return nil, c.err
	}
	return mod, nil
}

// Options controls Build.
type Options struct {
	// Fix enables single-line sanitization of broken lines.
	Fix      bool
	MaxDepth int
}

// Result is a successful build. Lines holds the text the tree was built
// from, which differs from the input when a line was sanitized. Error is the
// original syntax error in that case.
type Result struct {
	Module *Module
	Lines  []string
	Error  *Error
}

// Build parses lines, sanitizing at most one line to recover from a syntax
// error. It first tries the line the error points at, then changedLine
// (0-based, -1 when unknown). When nothing parses it returns the original
// *Error.
func Build(ctx context.Context, lines []string, changedLine int, opts Options) (*Result, error) {
	mod, err := Parse(ctx, []byte(strings.Join(lines, "\n")), opts.MaxDepth)
	if err == nil {
		return &Result{Module: mod, Lines: lines}, nil
	}
	var orig *Error
	if !errors.As(err, &orig) {
		return nil, err
	}
	if !opts.Fix || errors.Is(orig, ErrTooDeep) || len(lines) == 0 {
		return nil, orig
	}

	errIdx := min(max(orig.Line-1, 0), len(lines)-1)
	fixed := slices.Clone(lines)
	try := func(idx int) (*Result, error) {
		fixed[idx] = FixLine(lines[idx])
		mod, err := Parse(ctx, []byte(strings.Join(fixed, "\n")), opts.MaxDepth)
		if err != nil {
			fixed[idx] = lines[idx]
			return nil, err
		}
		return &Result{Module: mod, Lines: fixed, Error: orig}, nil
	}

	res, err := try(errIdx)
	if err == nil {
		return res, nil
	}
	if !isSyntaxError(err) {
		return nil, err
	}
	if changedLine < 0 || changedLine >= len(lines) || changedLine == errIdx {
		return nil, orig
	}
	res, err = try(changedLine)
	if err == nil {
		return res, nil
	}
	if !isSyntaxError(err) {
		return nil, err
	}
	return nil, orig
}

func isSyntaxError(err error) bool {
	var e *Error
	return errors.As(err, &e)
}

// FixLine rewrites a single line so that it is more likely to parse while
// keeping the columns of its identifiers. Names become operands joined by
// '+', attribute dots survive between names, and everything else is dropped.
func FixLine(line string) string {
	toks, _ := tokenize.Lines([]string{line})
	var (
		text []rune
		prev *tokenize.Token
	)
	add := func(tok *tokenize.Token, filler rune) {
		for len(text) < tok.Start.Col {
			text = append(text, filler)
		}
		text = append(text, []rune(tok.String)...)
		prev = tok
	}
	isDot := func(tok *tokenize.Token) bool {
		return tok != nil && tok.Type == tokenize.Op && tok.String == "."
	}
	for i := range toks {
		tok := &toks[i]
		switch {
		case tok.Type == tokenize.Indent:
			text = append(text, []rune(tok.String)...)
		case isDot(tok) && prev != nil && prev.Type == tokenize.Name:
			add(tok, ' ')
		case tok.Type == tokenize.Name && !tokenize.IsKeyword(tok.String):
			if isDot(prev) {
				add(tok, ' ')
			} else {
				add(tok, '+')
			}
		}
	}
	if isDot(prev) {
		text = text[:len(text)-1]
	}
	return string(text)
}

// DefKind selects definition statements for Definitions.
type DefKind int

const (
	ClassDefs DefKind = 1 << iota
	FunctionDefs
)

// Definitions returns the positions of the def/class keywords of all class
// and/or function definitions in document order.
func Definitions(mod *Module, kinds DefKind) []Pos {
	var out []Pos
	Inspect(mod, func(n Node) bool {
		switch n := n.(type) {
		case *ClassDef:
			if kinds&ClassDefs != 0 {
				out = append(out, n.DefPos)
			}
		case *FunctionDef:
			if kinds&FunctionDefs != 0 {
				out = append(out, n.DefPos)
			}
		}
		return true
	})
	return out
}
