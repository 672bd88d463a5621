package pyscope

import (
	"slices"

	"github.com/jward/pyscope/internal/node"
	"github.com/jward/pyscope/internal/syntax"
)

// DefKind selects definition statements for LocationsOf.
type DefKind = syntax.DefKind

const (
	ClassDefs    = syntax.ClassDefs
	FunctionDefs = syntax.FunctionDefs
)

// NodeAt returns the occurrence covering the cursor (1-based line, 0-based
// byte column), or nil.
func (s *Session) NodeAt(line, col int) *Occurrence {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nodeAt(line, col)
}

func (s *Session) nodeAt(line, col int) *Occurrence {
	for _, o := range s.occs {
		if o.Line == line && o.Col <= col && col < o.End {
			return o
		}
	}
	return nil
}

// SameOccurrences returns the retained occurrences bound to the same name
// in the same scope as o, in position order. With useTarget, a self/cls
// receiver is replaced by the attribute it accesses. includeOriginal keeps
// o itself in the result.
func (s *Session) SameOccurrences(o *Occurrence, includeOriginal, useTarget bool) []*Occurrence {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sameOccurrences(o, includeOriginal, useTarget)
}

// SameOccurrencesAt is SameOccurrences for the occurrence at the cursor. It
// returns nil when there is none.
func (s *Session) SameOccurrencesAt(line, col int, includeOriginal, useTarget bool) []*Occurrence {
	s.mu.Lock()
	defer s.mu.Unlock()
	o := s.nodeAt(line, col)
	if o == nil {
		return nil
	}
	return s.sameOccurrences(o, includeOriginal, useTarget)
}

func (s *Session) sameOccurrences(o *Occurrence, includeOriginal, useTarget bool) []*Occurrence {
	if useTarget && o.Target != nil {
		o = o.Target
	}
	base := node.BaseTable(o)
	var out []*Occurrence
	for _, other := range s.occs {
		if other.Key != o.Key {
			continue
		}
		if !includeOriginal && other == o {
			continue
		}
		if node.BaseTable(other) == base {
			out = append(out, other)
		}
	}
	return out
}

// LocationsOf returns the positions of the def/class keywords of the
// selected definitions in the last parsable revision. Results are cached
// until the next successful Analyze.
func (s *Session) LocationsOf(kinds DefKind) []Pos {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mod == nil {
		return nil
	}
	if locs, ok := s.locations[kinds]; ok {
		return slices.Clone(locs)
	}
	var locs []Pos
	for _, p := range syntax.Definitions(s.mod, kinds) {
		locs = append(locs, Pos{Line: p.Line, Col: p.Col})
	}
	if s.locations == nil {
		s.locations = map[syntax.DefKind][]Pos{}
	}
	s.locations[kinds] = locs
	return slices.Clone(locs)
}

// LocationsByCategory returns the positions of retained occurrences in
// category c.
func (s *Session) LocationsByCategory(c Category) []Pos {
	s.mu.Lock()
	defer s.mu.Unlock()
	var locs []Pos
	for _, o := range s.occs {
		if o.Category == c {
			locs = append(locs, o.Pos())
		}
	}
	return locs
}
