// Package tokenize implements a Python tokenizer with the column semantics of
// the pure-Python tokenize module: columns count characters (runes), not bytes.
//
// It is used in two places: sanitizing a single broken line before reparsing,
// and scanning a whole buffer for bracket and string errors, which CPython
// reports ahead of generic parse errors.
package tokenize

import (
	"fmt"
	"slices"
	"strings"
	"unicode"
)

// Type is a token type.
type Type int

const (
	EndMarker Type = iota
	Name
	Number
	String
	Op
	Comment
	NL
	Newline
	Indent
	Dedent
	ErrorToken
)

var typeNames = [...]string{
	EndMarker:  "ENDMARKER",
	Name:       "NAME",
	Number:     "NUMBER",
	String:     "STRING",
	Op:         "OP",
	Comment:    "COMMENT",
	NL:         "NL",
	Newline:    "NEWLINE",
	Indent:     "INDENT",
	Dedent:     "DEDENT",
	ErrorToken: "ERRORTOKEN",
}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// Pos is a token position. Line is 1-based, Col is a 0-based rune index.
type Pos struct {
	Line int
	Col  int
}

// Token is a single lexical token.
type Token struct {
	Type   Type
	String string
	Start  Pos
	End    Pos
}

// Error is returned when the input ends inside a multi-line construct or
// its indentation is inconsistent. Indent is set in the latter case.
type Error struct {
	Msg    string
	Pos    Pos
	Indent bool
}

func (e *Error) Error() string {
	return fmt.Sprintf("tokenize: %s at %d:%d", e.Msg, e.Pos.Line, e.Pos.Col)
}

// Kwlist is the list of hard keywords (Python's keyword.kwlist).
var Kwlist = []string{
	"False", "None", "True", "and", "as", "assert", "async", "await",
	"break", "class", "continue", "def", "del", "elif", "else", "except",
	"finally", "for", "from", "global", "if", "import", "in", "is",
	"lambda", "nonlocal", "not", "or", "pass", "raise", "return", "try",
	"while", "with", "yield",
}

var keywords = func() map[string]bool {
	m := make(map[string]bool, len(Kwlist))
	for _, kw := range Kwlist {
		m[kw] = true
	}
	return m
}()

// IsKeyword reports whether s is a hard keyword.
func IsKeyword(s string) bool { return keywords[s] }

// operators holds every exact operator token, longest first so the scanner
// can take the first prefix match.
var operators = []string{
	"**=", "//=", ">>=", "<<=", "...", "!=",
	"%=", "&=", "**", "*=", "+=", "-=", "->", "//", "/=", ":=", "<<",
	"<=", "==", ">=", ">>", "@=", "^=", "|=",
	"%", "&", "(", ")", "*", "+", ",", "-", ".", "/", ":", ";", "<",
	"=", ">", "@", "[", "]", "^", "{", "|", "}", "~",
}

// Tokens splits src into lines and tokenizes them. Tokens produced before an
// error are returned along with the error.
func Tokens(src string) ([]Token, error) {
	return Lines(strings.SplitAfter(src, "\n"))
}

// Lines tokenizes a sequence of physical lines. Each line should keep its
// trailing newline, except possibly the last.
func Lines(lines []string) ([]Token, error) {
	t := &tokenizer{lines: lines, indents: []int{0}, altindents: []int{0}}
	err := t.run()
	return t.toks, err
}

type tokenizer struct {
	lines   []string
	toks    []Token
	indents []int
	// altindents measures the same levels with tabs of width one.
	altindents []int

	parenlev  int
	continued bool

	// String literal spanning lines.
	contstr  strings.Builder
	strStart Pos
	strQuote string
	inString bool
}

func (t *tokenizer) emit(typ Type, s string, start, end Pos) {
	t.toks = append(t.toks, Token{Type: typ, String: s, Start: start, End: end})
}

func (t *tokenizer) run() error {
	lnum := 0
	var line []rune
lines:
	for _, raw := range t.lines {
		lnum++
		line = []rune(raw)
		pos, max := 0, len(line)

		switch {
		case t.inString:
			end, ok := findClose(line, 0, t.strQuote)
			if !ok {
				t.contstr.WriteString(raw)
				continue lines
			}
			t.contstr.WriteString(string(line[:end]))
			t.emit(String, t.contstr.String(), t.strStart, Pos{lnum, end})
			t.contstr.Reset()
			t.inString = false
			pos = end
		case t.parenlev == 0 && !t.continued:
			col, altcol := 0, 0
		measure:
			for ; pos < max; pos++ {
				switch line[pos] {
				case ' ':
					col++
					altcol++
				case '\t':
					col = (col/8 + 1) * 8
					altcol++
				case '\f':
					col, altcol = 0, 0
				default:
					break measure
				}
			}
			if pos == max {
				break lines
			}
			if c := line[pos]; c == '#' || c == '\r' || c == '\n' {
				if c == '#' {
					text := strings.TrimRight(string(line[pos:]), "\r\n")
					n := len([]rune(text))
					t.emit(Comment, text, Pos{lnum, pos}, Pos{lnum, pos + n})
					pos += n
				}
				t.emit(NL, string(line[pos:]), Pos{lnum, pos}, Pos{lnum, max})
				continue lines
			}
			tabError := &Error{Msg: "inconsistent use of tabs and spaces in indentation", Pos: Pos{lnum, pos}, Indent: true}
			if col > t.indents[len(t.indents)-1] {
				if altcol <= t.altindents[len(t.altindents)-1] {
					return tabError
				}
				t.indents = append(t.indents, col)
				t.altindents = append(t.altindents, altcol)
				t.emit(Indent, string(line[:pos]), Pos{lnum, 0}, Pos{lnum, pos})
			}
			for col < t.indents[len(t.indents)-1] {
				if !slices.Contains(t.indents, col) {
					return &Error{Msg: "unindent does not match any outer indentation level", Pos: Pos{lnum, pos}, Indent: true}
				}
				t.indents = t.indents[:len(t.indents)-1]
				t.altindents = t.altindents[:len(t.altindents)-1]
				t.emit(Dedent, "", Pos{lnum, pos}, Pos{lnum, pos})
			}
			if altcol != t.altindents[len(t.altindents)-1] {
				return tabError
			}
		default:
			t.continued = false
		}

		for pos < max {
			for pos < max && (line[pos] == ' ' || line[pos] == '\t' || line[pos] == '\f') {
				pos++
			}
			if pos >= max {
				break
			}
			start := pos
			c := line[pos]
			switch {
			case c == '\r' || c == '\n':
				typ := Newline
				if t.parenlev > 0 {
					typ = NL
				}
				t.emit(typ, string(line[pos:]), Pos{lnum, pos}, Pos{lnum, max})
				pos = max
			case c == '#':
				text := strings.TrimRight(string(line[pos:]), "\r\n")
				end := pos + len([]rune(text))
				t.emit(Comment, text, Pos{lnum, pos}, Pos{lnum, end})
				pos = end
			case c == '\\' && (pos+1 == max || line[pos+1] == '\n' || line[pos+1] == '\r'):
				t.continued = true
				pos = max
			case isDigit(c) || (c == '.' && pos+1 < max && isDigit(line[pos+1])):
				end := scanNumber(line, pos)
				t.emit(Number, string(line[start:end]), Pos{lnum, start}, Pos{lnum, end})
				pos = end
			case isNameStart(c):
				end := pos
				for end < max && isNameChar(line[end]) {
					end++
				}
				if end < max && (line[end] == '\'' || line[end] == '"') && isStringPrefix(string(line[start:end])) {
					if next, ok := t.scanString(line, lnum, start, end); ok {
						pos = next
						continue
					}
				}
				t.emit(Name, string(line[start:end]), Pos{lnum, start}, Pos{lnum, end})
				pos = end
			case c == '\'' || c == '"':
				if next, ok := t.scanString(line, lnum, start, start); ok {
					pos = next
					continue
				}
				// Unterminated single-quoted string.
				t.emit(ErrorToken, string(c), Pos{lnum, start}, Pos{lnum, start + 1})
				pos++
			default:
				op := matchOperator(line, pos)
				if op == "" {
					t.emit(ErrorToken, string(c), Pos{lnum, start}, Pos{lnum, start + 1})
					pos++
					continue
				}
				switch op {
				case "(", "[", "{":
					t.parenlev++
				case ")", "]", "}":
					t.parenlev--
				}
				end := pos + len([]rune(op))
				t.emit(Op, op, Pos{lnum, start}, Pos{lnum, end})
				pos = end
			}
		}
	}

	if t.inString {
		return &Error{Msg: "EOF in multi-line string", Pos: t.strStart}
	}
	if t.continued || t.parenlev > 0 {
		return &Error{Msg: "EOF in multi-line statement", Pos: Pos{lnum + 1, 0}}
	}
	if n := len(t.toks); n > 0 {
		if last := t.toks[n-1]; last.Type != Newline && last.Type != NL && last.Type != Comment {
			t.emit(Newline, "", Pos{lnum, len(line)}, Pos{lnum, len(line) + 1})
		}
	}
	for range t.indents[1:] {
		t.emit(Dedent, "", Pos{lnum + 1, 0}, Pos{lnum + 1, 0})
	}
	t.emit(EndMarker, "", Pos{lnum + 1, 0}, Pos{lnum + 1, 0})
	return nil
}

// scanString scans a string literal whose prefix spans line[start:quote].
// It returns false for a single-quoted string that is not closed on this
// line, leaving nothing emitted.
func (t *tokenizer) scanString(line []rune, lnum, start, quote int) (int, bool) {
	q := string(line[quote])
	if quote+2 < len(line) && line[quote+1] == line[quote] && line[quote+2] == line[quote] {
		q = strings.Repeat(q, 3)
	}
	body := quote + len(q)
	end, ok := findClose(line, body, q)
	if ok {
		t.emit(String, string(line[start:end]), Pos{lnum, start}, Pos{lnum, end})
		return end, true
	}
	if len(q) == 3 || endsWithContinuation(line) {
		t.inString = true
		t.strQuote = q
		t.strStart = Pos{lnum, start}
		t.contstr.Reset()
		t.contstr.WriteString(string(line[start:]))
		return len(line), true
	}
	return 0, false
}

// findClose returns the index just past the closing quote q, searching from
// pos and honoring backslash escapes.
func findClose(line []rune, pos int, q string) (int, bool) {
	qr := []rune(q)
	for i := pos; i < len(line); i++ {
		if line[i] == '\\' {
			i++
			continue
		}
		if line[i] != qr[0] {
			continue
		}
		if len(qr) == 1 {
			return i + 1, true
		}
		if i+2 < len(line) && line[i+1] == qr[0] && line[i+2] == qr[0] {
			return i + 3, true
		}
	}
	return 0, false
}

func endsWithContinuation(line []rune) bool {
	s := string(line)
	trimmed := strings.TrimRight(s, "\r\n")
	return len(trimmed) < len(s) && strings.HasSuffix(trimmed, "\\")
}

func matchOperator(line []rune, pos int) string {
	rest := string(line[pos:min(pos+3, len(line))])
	for _, op := range operators {
		if strings.HasPrefix(rest, op) {
			return op
		}
	}
	return ""
}

func scanNumber(line []rune, pos int) int {
	n := len(line)
	if line[pos] == '0' && pos+1 < n && strings.ContainsRune("xXoObB", line[pos+1]) {
		pos += 2
		for pos < n && (isHexDigit(line[pos]) || line[pos] == '_') {
			pos++
		}
		return pos
	}
	digits := func() {
		for pos < n && (isDigit(line[pos]) || line[pos] == '_') {
			pos++
		}
	}
	digits()
	if pos < n && line[pos] == '.' {
		pos++
		digits()
	}
	if pos < n && (line[pos] == 'e' || line[pos] == 'E') {
		p := pos + 1
		if p < n && (line[p] == '+' || line[p] == '-') {
			p++
		}
		if p < n && isDigit(line[p]) {
			pos = p
			digits()
		}
	}
	if pos < n && (line[pos] == 'j' || line[pos] == 'J') {
		pos++
	}
	return pos
}

func isStringPrefix(s string) bool {
	switch strings.ToLower(s) {
	case "b", "r", "u", "f", "br", "rb", "fr", "rf":
		return true
	}
	return false
}

func isDigit(r rune) bool    { return r >= '0' && r <= '9' }
func isHexDigit(r rune) bool { return isDigit(r) || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F') }

func isNameStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.Is(unicode.Nl, r)
}

func isNameChar(r rune) bool {
	return isNameStart(r) || unicode.IsDigit(r) || unicode.In(r, unicode.Mn, unicode.Mc, unicode.Pc)
}
