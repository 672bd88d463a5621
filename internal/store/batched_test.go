package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchedStore_FakeIDs(t *testing.T) {
	t.Parallel()
	batch := NewBatchedStore()

	top, err := batch.InsertScope(&Scope{Kind: "module", Name: "top"})
	require.NoError(t, err)
	assert.Equal(t, int64(-1), top)

	fn, err := batch.InsertScope(&Scope{Kind: "function", Name: "f", ParentScopeID: &top})
	require.NoError(t, err)
	assert.Equal(t, int64(-2), fn)

	occ := &Occurrence{ScopeID: &fn, Name: "x", Key: "x", Category: "local"}
	id, err := batch.InsertOccurrence(occ)
	require.NoError(t, err)
	assert.Equal(t, int64(-3), id)
	assert.Equal(t, id, occ.ID)

	assert.Len(t, batch.Scopes, 2)
	assert.Len(t, batch.Occurrences, 1)
}

func TestCommitBatch_RemapsScopes(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	batch := NewBatchedStore()

	top, _ := batch.InsertScope(&Scope{Kind: "module", Name: "top"})
	cls, _ := batch.InsertScope(&Scope{Kind: "class", Name: "A", ParentScopeID: &top})
	fn, _ := batch.InsertScope(&Scope{Kind: "function", Name: "f", ParentScopeID: &cls, SelfParam: "self"})
	_, _ = batch.InsertOccurrence(&Occurrence{ScopeID: &top, Name: "A", Key: "A", Category: "global", Line: 1, Col: 6, EndCol: 7})
	_, _ = batch.InsertOccurrence(&Occurrence{ScopeID: &fn, Name: "self", Key: "self", Category: "self", Line: 2, Col: 10, EndCol: 14})

	f := &File{Path: "/a.py", Hash: "h1", LineCount: 2, LastIndexed: time.Now()}
	require.NoError(t, s.CommitBatch(f, batch))
	require.Positive(t, f.ID)

	scopes, err := s.ScopesByFile(f.ID)
	require.NoError(t, err)
	require.Len(t, scopes, 3)
	assert.Nil(t, scopes[0].ParentScopeID)
	require.NotNil(t, scopes[2].ParentScopeID)
	assert.Equal(t, scopes[1].ID, *scopes[2].ParentScopeID)
	assert.Equal(t, "self", scopes[2].SelfParam)

	occs, err := s.OccurrencesByFile(f.ID)
	require.NoError(t, err)
	require.Len(t, occs, 2)
	assert.Equal(t, scopes[0].ID, *occs[0].ScopeID)
	assert.Equal(t, scopes[2].ID, *occs[1].ScopeID)

	chain, err := s.ScopeChain(*occs[1].ScopeID)
	require.NoError(t, err)
	require.Len(t, chain, 3)
	assert.Equal(t, []string{"f", "A", "top"}, []string{chain[0].Name, chain[1].Name, chain[2].Name})
}

func TestCommitBatch_ReplacesPreviousResults(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	first := NewBatchedStore()
	top, _ := first.InsertScope(&Scope{Kind: "module", Name: "top"})
	_, _ = first.InsertOccurrence(&Occurrence{ScopeID: &top, Name: "old", Key: "old", Category: "global", Line: 1})
	require.NoError(t, s.CommitBatch(&File{Path: "/a.py", Hash: "h1"}, first))

	second := NewBatchedStore()
	top, _ = second.InsertScope(&Scope{Kind: "module", Name: "top"})
	_, _ = second.InsertOccurrence(&Occurrence{ScopeID: &top, Name: "new", Key: "new", Category: "global", Line: 1})
	f := &File{Path: "/a.py", Hash: "h2"}
	require.NoError(t, s.CommitBatch(f, second))

	got, err := s.FileByPath("/a.py")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "h2", got.Hash)

	occs, err := s.OccurrencesByName("old")
	require.NoError(t, err)
	assert.Empty(t, occs)
	occs, err = s.OccurrencesByFile(f.ID)
	require.NoError(t, err)
	require.Len(t, occs, 1)
	assert.Equal(t, "new", occs[0].Name)
}

func TestCommitBatch_Unparsable(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	f := &File{Path: "/bad.py", Hash: "h", Unparsable: true, ErrorLine: 3, ErrorOffset: 5, ErrorMsg: "invalid syntax"}
	require.NoError(t, s.CommitBatch(f, NewBatchedStore()))

	bad, err := s.UnparsableFiles()
	require.NoError(t, err)
	require.Len(t, bad, 1)
	assert.Equal(t, 3, bad[0].ErrorLine)
	assert.Equal(t, 5, bad[0].ErrorOffset)
	assert.Equal(t, "invalid syntax", bad[0].ErrorMsg)
}
