package store

import (
	"database/sql"
	"fmt"
)

// --- File operations ---

const fileCols = `id, path, hash, line_count, last_indexed, unparsable, error_line, error_offset, error_msg`

func (s *Store) InsertFile(f *File) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO files (path, hash, line_count, last_indexed, unparsable, error_line, error_offset, error_msg)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		f.Path, f.Hash, f.LineCount, f.LastIndexed, f.Unparsable, f.ErrorLine, f.ErrorOffset, f.ErrorMsg,
	)
	if err != nil {
		return 0, fmt.Errorf("insert file: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	f.ID = id
	return id, nil
}

func scanFile(scanner interface{ Scan(...any) error }) (*File, error) {
	f := &File{}
	var (
		hash, msg   sql.NullString
		line, off   sql.NullInt64
		lines       sql.NullInt64
		unparsable  sql.NullBool
		lastIndexed sql.NullTime
	)
	err := scanner.Scan(&f.ID, &f.Path, &hash, &lines, &lastIndexed, &unparsable, &line, &off, &msg)
	if err != nil {
		return nil, err
	}
	f.Hash = hash.String
	f.LineCount = int(lines.Int64)
	f.LastIndexed = lastIndexed.Time
	f.Unparsable = unparsable.Bool
	f.ErrorLine = int(line.Int64)
	f.ErrorOffset = int(off.Int64)
	f.ErrorMsg = msg.String
	return f, nil
}

func (s *Store) queryFiles(query string, args ...any) ([]*File, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var files []*File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// FileByPath returns the file indexed under path, or nil.
func (s *Store) FileByPath(path string) (*File, error) {
	f, err := scanFile(s.db.QueryRow("SELECT "+fileCols+" FROM files WHERE path = ?", path))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("file by path: %w", err)
	}
	return f, nil
}

// Files returns all indexed files ordered by path.
func (s *Store) Files() ([]*File, error) {
	files, err := s.queryFiles("SELECT " + fileCols + " FROM files ORDER BY path")
	if err != nil {
		return nil, fmt.Errorf("files: %w", err)
	}
	return files, nil
}

// UnparsableFiles returns the files whose last analysis failed.
func (s *Store) UnparsableFiles() ([]*File, error) {
	files, err := s.queryFiles("SELECT " + fileCols + " FROM files WHERE unparsable ORDER BY path")
	if err != nil {
		return nil, fmt.Errorf("unparsable files: %w", err)
	}
	return files, nil
}

// DeleteFilesNotIn removes every indexed file whose path is not in keep and
// returns how many were removed.
func (s *Store) DeleteFilesNotIn(keep []string) (int, error) {
	files, err := s.Files()
	if err != nil {
		return 0, err
	}
	wanted := make(map[string]bool, len(keep))
	for _, p := range keep {
		wanted[p] = true
	}
	n := 0
	for _, f := range files {
		if wanted[f.Path] {
			continue
		}
		if err := s.DeleteFileData(f.ID); err != nil {
			return n, fmt.Errorf("delete %s: %w", f.Path, err)
		}
		n++
	}
	return n, nil
}

// --- Scope operations ---

const scopeCols = `id, file_id, parent_scope_id, kind, name, self_param`

func (s *Store) InsertScope(scope *Scope) (int64, error) {
	id, err := insertScope(s.db, scope)
	if err != nil {
		return 0, fmt.Errorf("insert scope: %w", err)
	}
	scope.ID = id
	return id, nil
}

func (s *Store) scanScope(scanner interface{ Scan(...any) error }) (*Scope, error) {
	sc := &Scope{}
	var self sql.NullString
	if err := scanner.Scan(&sc.ID, &sc.FileID, &sc.ParentScopeID, &sc.Kind, &sc.Name, &self); err != nil {
		return nil, err
	}
	sc.SelfParam = self.String
	return sc, nil
}

func (s *Store) ScopesByFile(fileID int64) ([]*Scope, error) {
	rows, err := s.db.Query("SELECT "+scopeCols+" FROM scopes WHERE file_id = ? ORDER BY id", fileID)
	if err != nil {
		return nil, fmt.Errorf("scopes by file: %w", err)
	}
	defer rows.Close()
	var scopes []*Scope
	for rows.Next() {
		sc, err := s.scanScope(rows)
		if err != nil {
			return nil, fmt.Errorf("scan scope: %w", err)
		}
		scopes = append(scopes, sc)
	}
	return scopes, rows.Err()
}

// ScopeChain walks up the parent_scope_id chain from scopeID to the module.
func (s *Store) ScopeChain(scopeID int64) ([]*Scope, error) {
	var chain []*Scope
	currentID := &scopeID
	for currentID != nil {
		sc, err := s.scanScope(s.db.QueryRow("SELECT "+scopeCols+" FROM scopes WHERE id = ?", *currentID))
		if err == sql.ErrNoRows {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("scope chain: %w", err)
		}
		chain = append(chain, sc)
		currentID = sc.ParentScopeID
	}
	return chain, nil
}

// --- Occurrence operations ---

const occurrenceCols = `id, file_id, scope_id, name, lookup_key, category, line, col, end_col, highlight_id`

func (s *Store) InsertOccurrence(occ *Occurrence) (int64, error) {
	id, err := insertOccurrence(s.db, occ)
	if err != nil {
		return 0, fmt.Errorf("insert occurrence: %w", err)
	}
	occ.ID = id
	return id, nil
}

func scanOccurrence(scanner interface{ Scan(...any) error }) (*Occurrence, error) {
	o := &Occurrence{}
	return o, scanner.Scan(
		&o.ID, &o.FileID, &o.ScopeID, &o.Name, &o.Key, &o.Category,
		&o.Line, &o.Col, &o.EndCol, &o.HighlightID,
	)
}

func (s *Store) queryOccurrences(query string, args ...any) ([]*Occurrence, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var occs []*Occurrence
	for rows.Next() {
		o, err := scanOccurrence(rows)
		if err != nil {
			return nil, fmt.Errorf("scan occurrence: %w", err)
		}
		occs = append(occs, o)
	}
	return occs, rows.Err()
}

const occurrenceOrder = " ORDER BY file_id, line, col"

// OccurrencesByFile returns the occurrences of a file in position order.
func (s *Store) OccurrencesByFile(fileID int64) ([]*Occurrence, error) {
	occs, err := s.queryOccurrences("SELECT "+occurrenceCols+" FROM occurrences WHERE file_id = ?"+occurrenceOrder, fileID)
	if err != nil {
		return nil, fmt.Errorf("occurrences by file: %w", err)
	}
	return occs, nil
}

// OccurrencesByName returns the occurrences of name across all files.
func (s *Store) OccurrencesByName(name string) ([]*Occurrence, error) {
	occs, err := s.queryOccurrences("SELECT "+occurrenceCols+" FROM occurrences WHERE name = ?"+occurrenceOrder, name)
	if err != nil {
		return nil, fmt.Errorf("occurrences by name: %w", err)
	}
	return occs, nil
}

// OccurrencesByCategory returns the occurrences in any of the categories.
func (s *Store) OccurrencesByCategory(categories ...string) ([]*Occurrence, error) {
	if len(categories) == 0 {
		return nil, nil
	}
	args := make([]any, len(categories))
	for i, c := range categories {
		args[i] = c
	}
	occs, err := s.queryOccurrences(
		"SELECT "+occurrenceCols+" FROM occurrences WHERE category IN ("+placeholderList(len(categories))+")"+occurrenceOrder,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("occurrences by category: %w", err)
	}
	return occs, nil
}

// OccurrencesInScope returns the occurrences whose innermost scope is scopeID.
func (s *Store) OccurrencesInScope(scopeID int64) ([]*Occurrence, error) {
	occs, err := s.queryOccurrences("SELECT "+occurrenceCols+" FROM occurrences WHERE scope_id = ?"+occurrenceOrder, scopeID)
	if err != nil {
		return nil, fmt.Errorf("occurrences in scope: %w", err)
	}
	return occs, nil
}

// CategoryCounts summarizes occurrences per category, optionally restricted
// to some files.
func (s *Store) CategoryCounts(fileIDs ...int64) ([]CategoryCount, error) {
	query := "SELECT category, COUNT(*) FROM occurrences"
	if len(fileIDs) > 0 {
		query += " WHERE file_id IN (" + placeholderList(len(fileIDs)) + ")"
	}
	query += " GROUP BY category ORDER BY category"
	rows, err := s.db.Query(query, int64sToArgs(fileIDs)...)
	if err != nil {
		return nil, fmt.Errorf("category counts: %w", err)
	}
	defer rows.Close()
	var out []CategoryCount
	for rows.Next() {
		var c CategoryCount
		if err := rows.Scan(&c.Category, &c.Count); err != nil {
			return nil, fmt.Errorf("scan category count: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
