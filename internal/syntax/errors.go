package syntax

import (
	"errors"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/pyscope/internal/tokenize"
)

// ErrTooDeep is wrapped by the Error returned when the tree nests deeper than
// the configured bound.
var ErrTooDeep = errors.New("maximum recursion depth exceeded during compilation")

// Error is a Python syntax error. Line is 1-based; Offset is a 1-based byte
// offset into that line.
type Error struct {
	Line   int
	Offset int
	Msg    string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (line %d, offset %d)", e.Msg, e.Line, e.Offset)
}

func (e *Error) Unwrap() error { return e.Err }

// locate finds the error CPython would report for src, whose tree-sitter
// parse contains errors. Tokenizer-level and indentation problems win,
// earliest first; otherwise the first ERROR or MISSING node in document
// order is reported.
func locate(src []byte, root *sitter.Node) *Error {
	if e := earliest(scanTokens(string(src)), checkIndentation(string(src))); e != nil {
		return e
	}
	if e := firstTreeError(root); e != nil {
		return e
	}
	return &Error{Line: 1, Offset: 1, Msg: "invalid syntax"}
}

var closerFor = map[string]string{"(": ")", "[": "]", "{": "}"}

// scanTokens reports unbalanced brackets, unterminated strings and bad
// dedents.
func scanTokens(src string) *Error {
	lines := strings.SplitAfter(src, "\n")
	toks, err := tokenize.Lines(lines)

	at := func(p tokenize.Pos, msg string) *Error { return errorAt(lines, p, msg) }

	type opener struct {
		ch  string
		pos tokenize.Pos
	}
	var stack []opener
	for _, tok := range toks {
		switch tok.Type {
		case tokenize.ErrorToken:
			if tok.String == "'" || tok.String == `"` {
				return at(tok.Start, fmt.Sprintf("unterminated string literal (detected at line %d)", tok.Start.Line))
			}
		case tokenize.Op:
			switch tok.String {
			case "(", "[", "{":
				stack = append(stack, opener{tok.String, tok.Start})
			case ")", "]", "}":
				if len(stack) == 0 {
					return at(tok.Start, fmt.Sprintf("unmatched '%s'", tok.String))
				}
				top := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				if closerFor[top.ch] != tok.String {
					msg := fmt.Sprintf("closing parenthesis '%s' does not match opening parenthesis '%s'", tok.String, top.ch)
					if top.pos.Line != tok.Start.Line {
						msg += fmt.Sprintf(" on line %d", top.pos.Line)
					}
					return at(tok.Start, msg)
				}
			}
		}
	}

	var tokErr *tokenize.Error
	if errors.As(err, &tokErr) {
		switch tokErr.Msg {
		case "EOF in multi-line string":
			return at(tokErr.Pos, fmt.Sprintf("unterminated triple-quoted string literal (detected at line %d)", lastLine(lines)))
		case "EOF in multi-line statement":
		default:
			return at(tokErr.Pos, tokErr.Msg)
		}
	}
	if len(stack) > 0 {
		top := stack[len(stack)-1]
		return at(top.pos, fmt.Sprintf("'%s' was never closed", top.ch))
	}
	return nil
}

// errorAt converts a tokenizer position to an Error with a byte offset.
func errorAt(lines []string, p tokenize.Pos, msg string) *Error {
	col := p.Col
	if p.Line >= 1 && p.Line <= len(lines) {
		col = runeToByte(lines[p.Line-1], p.Col)
	}
	return &Error{Line: p.Line, Offset: col + 1, Msg: msg}
}

func earliest(a, b *Error) *Error {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case b.Line < a.Line || (b.Line == a.Line && b.Offset < a.Offset):
		return b
	}
	return a
}

func firstTreeError(root *sitter.Node) *Error {
	stack := []*sitter.Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n.IsMissing() {
			return nodeError(n, fmt.Sprintf("expected '%s'", n.Type()))
		}
		if n.IsError() {
			return nodeError(n, "invalid syntax")
		}
		if !n.HasError() {
			continue
		}
		for i := int(n.ChildCount()) - 1; i >= 0; i-- {
			if c := n.Child(i); c != nil {
				stack = append(stack, c)
			}
		}
	}
	return nil
}

func nodeError(n *sitter.Node, msg string) *Error {
	p := n.StartPoint()
	return &Error{Line: int(p.Row) + 1, Offset: int(p.Column) + 1, Msg: msg}
}

func runeToByte(line string, col int) int {
	for i := range line {
		if col == 0 {
			return i
		}
		col--
	}
	return len(line) + col
}

func lastLine(lines []string) int {
	n := len(lines)
	if n > 1 && lines[n-1] == "" {
		n--
	}
	return n
}
