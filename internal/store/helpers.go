package store

import (
	"database/sql"
	"strings"
)

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// placeholderList returns "?,?,?" for n placeholders.
func placeholderList(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?,", n-1) + "?"
}

// int64sToArgs converts []int64 to []any for use with database/sql.
func int64sToArgs(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

func insertScope(db execer, scope *Scope) (int64, error) {
	res, err := db.Exec(
		`INSERT INTO scopes (file_id, parent_scope_id, kind, name, self_param) VALUES (?, ?, ?, ?, ?)`,
		scope.FileID, scope.ParentScopeID, scope.Kind, scope.Name, scope.SelfParam,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func insertOccurrence(db execer, occ *Occurrence) (int64, error) {
	res, err := db.Exec(
		`INSERT INTO occurrences (file_id, scope_id, name, lookup_key, category, line, col, end_col, highlight_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		occ.FileID, occ.ScopeID, occ.Name, occ.Key, occ.Category,
		occ.Line, occ.Col, occ.EndCol, occ.HighlightID,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}
