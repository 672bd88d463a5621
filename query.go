package pyscope

import (
	"fmt"

	"github.com/jward/pyscope/internal/store"
)

// QueryBuilder reads the analysis results persisted by an Indexer.
type QueryBuilder struct {
	store *store.Store
}

// NewQueryBuilder wraps an open Store.
func NewQueryBuilder(s *Store) *QueryBuilder {
	return &QueryBuilder{store: s}
}

// OccurrencesByFile returns the occurrences of one indexed file in position
// order. It returns nil for a file that was never indexed.
func (q *QueryBuilder) OccurrencesByFile(path string) ([]*StoredOccurrence, error) {
	f, err := q.store.FileByPath(path)
	if err != nil {
		return nil, fmt.Errorf("occurrences by file: lookup file: %w", err)
	}
	if f == nil {
		return nil, nil
	}
	occs, err := q.store.OccurrencesByFile(f.ID)
	if err != nil {
		return nil, fmt.Errorf("occurrences by file: %w", err)
	}
	return occs, nil
}

// OccurrencesByCategory returns the occurrences in any of the categories
// across the index.
func (q *QueryBuilder) OccurrencesByCategory(categories ...Category) ([]*StoredOccurrence, error) {
	names := make([]string, len(categories))
	for i, c := range categories {
		names[i] = c.String()
	}
	occs, err := q.store.OccurrencesByCategory(names...)
	if err != nil {
		return nil, fmt.Errorf("occurrences by category: %w", err)
	}
	return occs, nil
}

// OccurrencesByName returns the occurrences spelled name across the index.
func (q *QueryBuilder) OccurrencesByName(name string) ([]*StoredOccurrence, error) {
	occs, err := q.store.OccurrencesByName(name)
	if err != nil {
		return nil, fmt.Errorf("occurrences by name: %w", err)
	}
	return occs, nil
}

// SameOccurrencesAt returns the stored occurrences of path with the lookup
// key and scope of the occurrence covering (line, col), that one included.
// Unlike Session.SameOccurrences it compares innermost scopes, so a name
// used in a nested function is not linked to its enclosing definition.
func (q *QueryBuilder) SameOccurrencesAt(path string, line, col int) ([]*StoredOccurrence, error) {
	occs, err := q.OccurrencesByFile(path)
	if err != nil || occs == nil {
		return nil, err
	}
	var cur *StoredOccurrence
	for _, o := range occs {
		if o.Line == line && o.Col <= col && col < o.EndCol {
			cur = o
			break
		}
	}
	if cur == nil {
		return nil, nil
	}
	var out []*StoredOccurrence
	for _, o := range occs {
		if o.Key == cur.Key && sameScope(o.ScopeID, cur.ScopeID) {
			out = append(out, o)
		}
	}
	return out, nil
}

func sameScope(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Summary counts occurrences per category over the given files, or over
// the whole index when no path is given. Paths that were never indexed are
// ignored.
func (q *QueryBuilder) Summary(paths ...string) ([]CategoryCount, error) {
	var ids []int64
	for _, p := range paths {
		f, err := q.store.FileByPath(p)
		if err != nil {
			return nil, fmt.Errorf("summary: lookup file: %w", err)
		}
		if f != nil {
			ids = append(ids, f.ID)
		}
	}
	if len(paths) > 0 && len(ids) == 0 {
		return nil, nil
	}
	counts, err := q.store.CategoryCounts(ids...)
	if err != nil {
		return nil, fmt.Errorf("summary: %w", err)
	}
	return counts, nil
}

// Files returns every indexed file ordered by path.
func (q *QueryBuilder) Files() ([]*File, error) {
	files, err := q.store.Files()
	if err != nil {
		return nil, fmt.Errorf("files: %w", err)
	}
	return files, nil
}

// Unparsable returns the indexed files whose analysis stopped at a syntax
// error, with that error.
func (q *QueryBuilder) Unparsable() ([]*File, error) {
	files, err := q.store.UnparsableFiles()
	if err != nil {
		return nil, fmt.Errorf("unparsable: %w", err)
	}
	return files, nil
}
