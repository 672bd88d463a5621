package pyscope

// MarkMode selects which occurrences Selected marks.
type MarkMode int

const (
	// MarkNone disables selection marks.
	MarkNone MarkMode = iota
	// MarkOthers marks the occurrences bound like the one at the cursor,
	// except that one.
	MarkOthers
	// MarkAll also marks the occurrence at the cursor.
	MarkAll
)

// Selected returns selection marks for the occurrences bound like the one
// at the cursor whose lines fall within view (inclusive, 1-based). It
// returns nil when nothing is at the cursor.
func (s *Session) Selected(line, col int, mode MarkMode, useTarget bool, view [2]int) []Highlight {
	if mode == MarkNone {
		return nil
	}
	same := s.SameOccurrencesAt(line, col, mode == MarkAll, useTarget)
	var out []Highlight
	for _, o := range same {
		if o.Line < view[0] || o.Line > view[1] {
			continue
		}
		out = append(out, o.Highlight(true))
	}
	return out
}

// Highlights converts occurrences to paint records.
func Highlights(occs []*Occurrence) []Highlight {
	out := make([]Highlight, len(occs))
	for i, o := range occs {
		out[i] = o.Highlight(false)
	}
	return out
}
