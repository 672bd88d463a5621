package pyscope

import (
	"fmt"

	"github.com/jward/pyscope/internal/store"
	"github.com/jward/pyscope/internal/symtable"
)

// Record writes occurrences and the scopes that contain them to ds. Scopes
// are written parents first.
func Record(ds store.DataStore, occs []*Occurrence) error {
	ids := make(map[*symtable.Table]int64)

	var scopeID func(t *symtable.Table) (int64, error)
	scopeID = func(t *symtable.Table) (int64, error) {
		if id, ok := ids[t]; ok {
			return id, nil
		}
		var parent *int64
		if t.Parent != nil {
			p, err := scopeID(t.Parent)
			if err != nil {
				return 0, err
			}
			parent = &p
		}
		kind := t.Type.String()
		if t.IsComprehension() {
			kind = "comprehension"
		}
		id, err := ds.InsertScope(&store.Scope{
			ParentScopeID: parent,
			Kind:          kind,
			Name:          t.Name,
			SelfParam:     t.SelfParam,
		})
		if err != nil {
			return 0, fmt.Errorf("pyscope: record scope %q: %w", t.Name, err)
		}
		ids[t] = id
		return id, nil
	}

	for _, o := range occs {
		sid, err := scopeID(o.Scope())
		if err != nil {
			return err
		}
		_, err = ds.InsertOccurrence(&store.Occurrence{
			ScopeID:     &sid,
			Name:        o.Name,
			Key:         o.Key,
			Category:    o.Category.String(),
			Line:        o.Line,
			Col:         o.Col,
			EndCol:      o.End,
			HighlightID: o.ID,
		})
		if err != nil {
			return fmt.Errorf("pyscope: record occurrence %s: %w", o, err)
		}
	}
	return nil
}
