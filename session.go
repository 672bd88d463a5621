package pyscope

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/jward/pyscope/internal/diff"
	"github.com/jward/pyscope/internal/node"
	"github.com/jward/pyscope/internal/symtable"
	"github.com/jward/pyscope/internal/syntax"
	"github.com/jward/pyscope/internal/visitor"
)

// Session analyzes successive revisions of one buffer. It retains the
// occurrences of the last parsable revision so that each Analyze reports
// only what changed. A Session serializes its methods; run one per buffer.
type Session struct {
	mu sync.Mutex

	exclude  map[Category]bool
	fix      bool
	maxDepth int
	logger   *slog.Logger

	ids   *node.IDs
	lines []string
	occs  []*Occurrence
	mod   *syntax.Module
	tick  int
	// errs holds the syntax errors of the previous and the current revision.
	errs [2]*SyntaxError

	locations map[syntax.DefKind][]Pos
}

// Option configures a Session.
type Option func(*Session)

// WithExclude hides occurrences of the given categories from Analyze
// results. They are still retained and answer queries.
func WithExclude(categories ...Category) Option {
	return func(s *Session) {
		s.exclude = make(map[Category]bool, len(categories))
		for _, c := range categories {
			s.exclude[c] = true
		}
	}
}

// WithFixSyntax controls whether a broken line is sanitized and re-parsed.
// Enabled by default.
func WithFixSyntax(fix bool) Option {
	return func(s *Session) { s.fix = fix }
}

// WithMaxDepth bounds the nesting depth of parsed code.
func WithMaxDepth(depth int) Option {
	return func(s *Session) { s.maxDepth = depth }
}

// WithLogger sets the logger for per-stage debug records.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// NewSession creates a Session with no retained state.
func NewSession(opts ...Option) *Session {
	s := &Session{
		fix:      true,
		maxDepth: syntax.DefaultMaxDepth,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		ids:      node.NewIDs(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Result is what changed in one successful Analyze. Added and Removed are
// sorted by position and exclude hidden categories. Error is the syntax
// error of the revision when it was recovered by sanitizing a line.
type Result struct {
	Added   []*Occurrence
	Removed []*Occurrence
	Error   *SyntaxError
}

// UnparsableError is returned by Analyze when a revision cannot be
// analyzed. The retained occurrences are left untouched.
type UnparsableError struct {
	Err error
}

func (e *UnparsableError) Error() string { return "pyscope: unparsable: " + e.Err.Error() }
func (e *UnparsableError) Unwrap() error { return e.Err }

// Analyze analyzes a new revision of the buffer. Unless force is set and as
// long as only one line changed, occurrences that survive the edit keep
// their ids and are reported neither as added nor as removed. A revision
// that cannot be parsed yields an *UnparsableError.
func (s *Session) Analyze(ctx context.Context, code string, force bool) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer func() { s.tick++ }()

	lines := strings.Split(code, "\n")
	change := diff.Classify(s.lines, lines)

	s.errs[0], s.errs[1] = s.errs[1], nil

	start := time.Now()
	built, err := syntax.Build(ctx, lines, change.Line, syntax.Options{Fix: s.fix, MaxDepth: s.maxDepth})
	s.logger.Debug("analyze", "stage", "parse", "tick", s.tick, "elapsed", time.Since(start))
	if err != nil {
		return nil, s.unparsable(err)
	}
	s.errs[1] = built.Error

	start = time.Now()
	top, err := symtable.Build(built.Module)
	s.logger.Debug("analyze", "stage", "symtable", "tick", s.tick, "elapsed", time.Since(start))
	if err != nil {
		return nil, s.unparsable(err)
	}

	start = time.Now()
	occs := visitor.Walk(built.Module, top, s.ids)
	s.logger.Debug("analyze", "stage", "walk", "tick", s.tick, "elapsed", time.Since(start), "occurrences", len(occs))

	start = time.Now()
	d := diff.Diff(change, s.occs, occs, force)
	s.logger.Debug("analyze", "stage", "diff", "tick", s.tick, "elapsed", time.Since(start),
		"minor", change.Minor && !force, "added", len(d.Added), "removed", len(d.Removed))

	retained := append(d.Kept, d.Added...)
	slices.SortStableFunc(retained, node.Compare)
	s.occs = retained
	s.lines = lines
	s.mod = built.Module
	s.locations = nil

	return &Result{
		Added:   s.filter(d.Added),
		Removed: s.filter(d.Removed),
		Error:   built.Error,
	}, nil
}

func (s *Session) unparsable(err error) error {
	var serr *SyntaxError
	if !errors.As(err, &serr) {
		return fmt.Errorf("pyscope: analyze: %w", err)
	}
	s.errs[1] = serr
	s.logger.Debug("analyze", "stage", "error", "tick", s.tick, "error", serr)
	return &UnparsableError{Err: serr}
}

func (s *Session) filter(occs []*Occurrence) []*Occurrence {
	if len(s.exclude) == 0 {
		return occs
	}
	out := make([]*Occurrence, 0, len(occs))
	for _, o := range occs {
		if !s.exclude[o.Category] {
			out = append(out, o)
		}
	}
	return out
}

// Tick counts Analyze calls, parsable or not.
func (s *Session) Tick() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tick
}

// Lines returns the text of the last parsable revision.
func (s *Session) Lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.lines)
}

// Occurrences returns all retained occurrences, hidden categories included,
// sorted by position.
func (s *Session) Occurrences() []*Occurrence {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.occs)
}

// SyntaxErrors returns the syntax errors of the previous and the current
// revision. Either may be nil.
func (s *Session) SyntaxErrors() (prev, cur *SyntaxError) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errs[0], s.errs[1]
}

// ErrorChanged reports whether the current syntax error differs from the
// previous one in line, offset or message.
func (s *Session) ErrorChanged() bool {
	prev, cur := s.SyntaxErrors()
	return !SameError(prev, cur)
}

// SameError reports whether two possibly nil syntax errors are at the same
// place with the same message.
func SameError(a, b *SyntaxError) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Line == b.Line && a.Offset == b.Offset && a.Msg == b.Msg
}

// ErrorPosition returns a valid cursor position (1-based line, 0-based
// byte column) for err within the last parsable revision.
func (s *Session) ErrorPosition(err *SyntaxError) Pos {
	s.mu.Lock()
	defer s.mu.Unlock()
	line := err.Line
	if len(s.lines) > 0 {
		line = min(max(line, 1), len(s.lines))
	}
	width := 0
	if line >= 1 && line <= len(s.lines) {
		width = len(s.lines[line-1])
	}
	return Pos{Line: line, Col: max(1, min(err.Offset, width)) - 1}
}
