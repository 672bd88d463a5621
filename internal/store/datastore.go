package store

// DataStore is the interface for writing analysis results. Both Store
// (direct SQLite) and BatchedStore (in-memory buffering for parallel
// indexing) implement it.
type DataStore interface {
	InsertScope(scope *Scope) (int64, error)
	InsertOccurrence(occ *Occurrence) (int64, error)
}

// Compile-time check: *Store satisfies DataStore.
var _ DataStore = (*Store)(nil)
