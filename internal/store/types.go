package store

import "time"

// File is one indexed source file. Unparsable files carry the syntax error
// that stopped their analysis and have no scopes or occurrences.
type File struct {
	ID          int64
	Path        string
	Hash        string
	LineCount   int
	LastIndexed time.Time
	Unparsable  bool
	ErrorLine   int
	ErrorOffset int
	ErrorMsg    string
}

// Scope is a persisted scope table: module, function or class.
type Scope struct {
	ID            int64
	FileID        int64
	ParentScopeID *int64
	Kind          string
	Name          string
	SelfParam     string
}

// Occurrence is a persisted identifier occurrence. Line is 1-based, columns
// are 0-based byte offsets.
type Occurrence struct {
	ID          int64
	FileID      int64
	ScopeID     *int64
	Name        string
	Key         string
	Category    string
	Line        int
	Col         int
	EndCol      int
	HighlightID int
}

// CategoryCount is one row of a per-category summary.
type CategoryCount struct {
	Category string
	Count    int
}
