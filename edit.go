package pyscope

import (
	"errors"
	"fmt"
	"slices"

	"github.com/jward/pyscope/internal/node"
)

// ErrNothingToRename is returned by Rename when there is no occurrence at
// the cursor or the new name equals the old one.
var ErrNothingToRename = errors.New("pyscope: nothing to rename")

// Edit replaces the bytes [Col, End) of a 1-based line with Text.
type Edit struct {
	Line int    `json:"line"`
	Col  int    `json:"col"`
	End  int    `json:"end"`
	Text string `json:"text"`
}

// Rename returns the edits renaming every occurrence bound like the one at
// the cursor. Columns refer to the retained text.
func (s *Session) Rename(line, col int, newName string, useTarget bool) ([]Edit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.nodeAt(line, col)
	if cur == nil {
		return nil, ErrNothingToRename
	}
	if newName == "" || newName == cur.Name {
		return nil, ErrNothingToRename
	}
	same := s.sameOccurrences(cur, true, useTarget)
	edits := make([]Edit, len(same))
	for i, o := range same {
		edits[i] = Edit{Line: o.Line, Col: o.Col, End: o.End, Text: newName}
	}
	slices.SortFunc(edits, compareEdits)
	return edits, nil
}

func compareEdits(a, b Edit) int {
	return node.ComparePos(Pos{Line: a.Line, Col: a.Col}, Pos{Line: b.Line, Col: b.Col})
}

// ApplyEdits returns lines with the edits applied. Edits on the same line
// must not overlap; their columns refer to the line before any edit.
func ApplyEdits(lines []string, edits []Edit) ([]string, error) {
	out := slices.Clone(lines)
	sorted := slices.Clone(edits)
	slices.SortStableFunc(sorted, compareEdits)

	offset, prevLine, prevEnd := 0, 0, -1
	for _, e := range sorted {
		if e.Line < 1 || e.Line > len(out) {
			return nil, fmt.Errorf("pyscope: apply edits: line %d out of range", e.Line)
		}
		if e.Line != prevLine {
			offset, prevLine, prevEnd = 0, e.Line, -1
		}
		if e.Col < prevEnd || e.Col > e.End {
			return nil, fmt.Errorf("pyscope: apply edits: bad range %d:%d-%d", e.Line, e.Col, e.End)
		}
		text := out[e.Line-1]
		start, end := e.Col+offset, e.End+offset
		if end > len(text) {
			return nil, fmt.Errorf("pyscope: apply edits: range %d:%d-%d past end of line", e.Line, e.Col, e.End)
		}
		out[e.Line-1] = text[:start] + e.Text + text[end:]
		offset += len(e.Text) - (e.End - e.Col)
		prevEnd = e.End
	}
	return out, nil
}

// NextLocation returns the location following here in locs, or preceding
// it when reverse is set. The search wraps around. here need not be in
// locs.
func NextLocation(here Pos, locs []Pos, reverse bool) Pos {
	all := slices.Clone(locs)
	if !slices.Contains(all, here) {
		all = append(all, here)
	}
	slices.SortFunc(all, node.ComparePos)
	i := slices.Index(all, here)
	step := 1
	if reverse {
		step = -1
	}
	return all[((i+step)%len(all)+len(all))%len(all)]
}

// FirstLocation and LastLocation return the extreme locations, or false
// when locs is empty.
func FirstLocation(locs []Pos) (Pos, bool) {
	if len(locs) == 0 {
		return Pos{}, false
	}
	return slices.MinFunc(locs, node.ComparePos), true
}

func LastLocation(locs []Pos) (Pos, bool) {
	if len(locs) == 0 {
		return Pos{}, false
	}
	return slices.MaxFunc(locs, node.ComparePos), true
}
