package store

import "sync"

// BatchedStore buffers analysis results in memory using fake (negative)
// IDs so that workers can record a file without touching SQLite. The whole
// batch is written later by CommitBatch.
type BatchedStore struct {
	mu sync.Mutex

	Scopes      []Scope
	Occurrences []Occurrence

	nextFakeID int64 // starts at -1, decrements
}

// Compile-time check: *BatchedStore satisfies DataStore.
var _ DataStore = (*BatchedStore)(nil)

func NewBatchedStore() *BatchedStore {
	return &BatchedStore{nextFakeID: -1}
}

func (b *BatchedStore) allocFakeID() int64 {
	id := b.nextFakeID
	b.nextFakeID--
	return id
}

func (b *BatchedStore) InsertScope(scope *Scope) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fakeID := b.allocFakeID()
	scope.ID = fakeID
	b.Scopes = append(b.Scopes, *scope)
	return fakeID, nil
}

func (b *BatchedStore) InsertOccurrence(occ *Occurrence) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fakeID := b.allocFakeID()
	occ.ID = fakeID
	b.Occurrences = append(b.Occurrences, *occ)
	return fakeID, nil
}
