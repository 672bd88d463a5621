package syntax

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jward/pyscope/internal/tokenize"
)

// headers names the compound statements whose body must be an indented
// block, keyed by their first keyword.
var headers = map[string]string{
	"def":     "function definition",
	"class":   "class definition",
	"if":      "'if' statement",
	"elif":    "'elif' statement",
	"else":    "'else' statement",
	"for":     "'for' statement",
	"while":   "'while' statement",
	"with":    "'with' statement",
	"try":     "'try' statement",
	"except":  "'except' statement",
	"finally": "'finally' statement",
	"match":   "'match' statement",
	"case":    "'case' statement",
}

// checkIndentation reports the IndentationError or TabError CPython raises
// for src: an indent nobody asked for, a compound statement without an
// indented body, or a dedent to a level that was never opened. Tree-sitter
// accepts all of these silently.
func checkIndentation(src string) *Error {
	lines := strings.SplitAfter(src, "\n")
	toks, err := tokenize.Lines(lines)

	var (
		first, second, last *tokenize.Token
		// header describes a compound statement awaiting its indented body.
		header     string
		headerLine int
		// opened is set after any logical line ending in ':'.
		opened bool
	)
	for i := range toks {
		tok := &toks[i]
		switch tok.Type {
		case tokenize.Comment, tokenize.NL:
			continue
		case tokenize.Indent:
			if !opened {
				return errorAt(lines, tok.End, "unexpected indent")
			}
			header, opened = "", false
			continue
		case tokenize.Newline:
			header, opened = "", false
			if last != nil && last.Type == tokenize.Op && last.String == ":" {
				opened = true
				kw := first.String
				if kw == "async" && second != nil {
					kw = second.String
				}
				header, headerLine = headers[kw], first.Start.Line
			}
			first, second, last = nil, nil, nil
			continue
		}
		if header != "" {
			return errorAt(lines, tok.Start,
				fmt.Sprintf("expected an indented block after %s on line %d", header, headerLine))
		}
		opened = false
		if tok.Type == tokenize.Dedent || tok.Type == tokenize.EndMarker {
			continue
		}
		switch {
		case first == nil:
			first = tok
		case second == nil:
			second = tok
		}
		last = tok
	}

	var tokErr *tokenize.Error
	if errors.As(err, &tokErr) && tokErr.Indent {
		return errorAt(lines, tokErr.Pos, tokErr.Msg)
	}
	return nil
}
