package store

import (
	"fmt"
)

// CommitBatch writes a file record and its buffered results in a single
// transaction. Any previous data for the same path is replaced. Fake scope
// IDs are remapped to real ones before the occurrences referencing them are
// inserted. f.ID is set on success.
func (s *Store) CommitBatch(f *File, batch *BatchedStore) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("commit batch: begin: %w", err)
	}
	defer tx.Rollback()

	for _, q := range []string{
		"DELETE FROM occurrences WHERE file_id IN (SELECT id FROM files WHERE path = ?)",
		"DELETE FROM scopes WHERE file_id IN (SELECT id FROM files WHERE path = ?)",
		"DELETE FROM files WHERE path = ?",
	} {
		if _, err := tx.Exec(q, f.Path); err != nil {
			return fmt.Errorf("commit batch: clear %s: %w", f.Path, err)
		}
	}

	res, err := tx.Exec(
		`INSERT INTO files (path, hash, line_count, last_indexed, unparsable, error_line, error_offset, error_msg)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		f.Path, f.Hash, f.LineCount, f.LastIndexed, f.Unparsable, f.ErrorLine, f.ErrorOffset, f.ErrorMsg,
	)
	if err != nil {
		return fmt.Errorf("commit batch: file %s: %w", f.Path, err)
	}
	fileID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("commit batch: last insert id: %w", err)
	}

	fakeToReal := make(map[int64]int64, len(batch.Scopes))

	// Scopes are buffered parents first.
	for _, scope := range batch.Scopes {
		scope.FileID = fileID
		if scope.ParentScopeID != nil && *scope.ParentScopeID < 0 {
			realID := fakeToReal[*scope.ParentScopeID]
			scope.ParentScopeID = &realID
		}
		realID, err := insertScope(tx, &scope)
		if err != nil {
			return fmt.Errorf("commit batch: scope %q: %w", scope.Name, err)
		}
		fakeToReal[scope.ID] = realID
	}

	for _, occ := range batch.Occurrences {
		occ.FileID = fileID
		if occ.ScopeID != nil && *occ.ScopeID < 0 {
			realID := fakeToReal[*occ.ScopeID]
			occ.ScopeID = &realID
		}
		if _, err := insertOccurrence(tx, &occ); err != nil {
			return fmt.Errorf("commit batch: occurrence %q: %w", occ.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	f.ID = fileID
	return nil
}
