// Package diff computes the highlight changes between two analysis
// revisions of a buffer.
package diff

import (
	"slices"

	"github.com/jward/pyscope/internal/node"
)

// NoLine is the changed line of an edit that did not touch exactly one line.
const NoLine = -1

// Change describes how the lines of a buffer changed between revisions.
type Change struct {
	// Minor is set when the line count is unchanged and at most one line
	// differs.
	Minor bool
	// Line is the 0-based index of the single changed line, or NoLine.
	Line int
}

// Classify compares two revisions line by line, giving up after the second
// difference.
func Classify(old, new []string) Change {
	if len(old) != len(new) {
		return Change{Line: NoLine}
	}
	line := NoLine
	for i := range old {
		if old[i] == new[i] {
			continue
		}
		if line != NoLine {
			return Change{Line: NoLine}
		}
		line = i
	}
	return Change{Minor: true, Line: line}
}

// Result partitions two occurrence sets. Added and Removed are sorted by
// node.Compare.
type Result struct {
	Added   []*node.Occurrence
	Removed []*node.Occurrence
	Kept    []*node.Occurrence
}

// Diff compares the occurrences of two revisions. A forced or non-minor
// change replaces everything; otherwise the sets are merged and kept
// occurrences inherit the ids of their predecessors.
func Diff(change Change, old, new []*node.Occurrence, force bool) Result {
	if force || !change.Minor {
		return Result{Added: sorted(new), Removed: sorted(old)}
	}
	return Merge(old, new)
}

// Merge walks both sets in sort order. An occurrence present in both moves
// to Kept and takes over the id of the old one.
func Merge(old, new []*node.Occurrence) Result {
	o, n := sorted(old), sorted(new)
	var r Result
	i, j := 0, 0
	for i < len(o) && j < len(n) {
		switch c := node.Compare(n[j], o[i]); {
		case c == 0:
			n[j].ID = o[i].ID
			r.Kept = append(r.Kept, n[j])
			i++
			j++
		case c < 0:
			r.Added = append(r.Added, n[j])
			j++
		default:
			r.Removed = append(r.Removed, o[i])
			i++
		}
	}
	r.Added = append(r.Added, n[j:]...)
	r.Removed = append(r.Removed, o[i:]...)
	return r
}

func sorted(occs []*node.Occurrence) []*node.Occurrence {
	out := slices.Clone(occs)
	slices.SortStableFunc(out, node.Compare)
	return out
}
