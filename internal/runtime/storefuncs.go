package runtime

import (
	"context"
	"fmt"
	"strings"

	"github.com/risor-io/risor/object"

	"github.com/jward/pyscope/internal/store"
)

// Index functions read the analysis results written by the indexer. Files
// are named by their indexed path.

// files() → list of file maps
func makeFilesFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("files", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError("files", 0, len(args))
		}
		files, err := s.Files()
		if err != nil {
			return object.Errorf("files: %v", err)
		}
		results := make([]object.Object, 0, len(files))
		for _, f := range files {
			results = append(results, fileToObject(f))
		}
		return object.NewList(results)
	})
}

// occurrences_by_file(path) → list of occurrence maps
func makeOccurrencesByFileFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("occurrences_by_file", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("occurrences_by_file", 1, len(args))
		}
		path, err := toString(args[0])
		if err != nil {
			return object.Errorf("occurrences_by_file: %v", err)
		}
		f, err := s.FileByPath(path)
		if err != nil {
			return object.Errorf("occurrences_by_file: %v", err)
		}
		if f == nil {
			return object.NewList([]object.Object{})
		}
		occs, err := s.OccurrencesByFile(f.ID)
		if err != nil {
			return object.Errorf("occurrences_by_file: %v", err)
		}
		return storedOccurrencesToList(occs)
	})
}

// occurrences_by_name(name) → list of occurrence maps across all files
func makeOccurrencesByNameFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("occurrences_by_name", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("occurrences_by_name", 1, len(args))
		}
		name, err := toString(args[0])
		if err != nil {
			return object.Errorf("occurrences_by_name: %v", err)
		}
		occs, err := s.OccurrencesByName(name)
		if err != nil {
			return object.Errorf("occurrences_by_name: %v", err)
		}
		return storedOccurrencesToList(occs)
	})
}

// scopes_by_file(path) → list of scope maps
func makeScopesByFileFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("scopes_by_file", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("scopes_by_file", 1, len(args))
		}
		path, err := toString(args[0])
		if err != nil {
			return object.Errorf("scopes_by_file: %v", err)
		}
		f, err := s.FileByPath(path)
		if err != nil {
			return object.Errorf("scopes_by_file: %v", err)
		}
		results := []object.Object{}
		if f == nil {
			return object.NewList(results)
		}
		scopes, err := s.ScopesByFile(f.ID)
		if err != nil {
			return object.Errorf("scopes_by_file: %v", err)
		}
		for _, sc := range scopes {
			m := map[string]object.Object{
				"id":         object.NewInt(sc.ID),
				"file_id":    object.NewInt(sc.FileID),
				"kind":       object.NewString(sc.Kind),
				"name":       object.NewString(sc.Name),
				"self_param": object.NewString(sc.SelfParam),
			}
			if sc.ParentScopeID != nil {
				m["parent_scope_id"] = object.NewInt(*sc.ParentScopeID)
			}
			results = append(results, object.NewMap(m))
		}
		return object.NewList(results)
	})
}

// category_counts([path]) → map from category name to count
func makeCategoryCountsFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("category_counts", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) > 1 {
			return object.Errorf("category_counts: expected at most 1 argument, got %d", len(args))
		}
		var ids []int64
		if len(args) == 1 {
			path, err := toString(args[0])
			if err != nil {
				return object.Errorf("category_counts: %v", err)
			}
			f, err := s.FileByPath(path)
			if err != nil {
				return object.Errorf("category_counts: %v", err)
			}
			if f == nil {
				return object.NewMap(map[string]object.Object{})
			}
			ids = append(ids, f.ID)
		}
		counts, err := s.CategoryCounts(ids...)
		if err != nil {
			return object.Errorf("category_counts: %v", err)
		}
		m := make(map[string]object.Object, len(counts))
		for _, c := range counts {
			m[c.Category] = object.NewInt(int64(c.Count))
		}
		return object.NewMap(m)
	})
}

// db_query(sql, args...) → list of row maps. Only SELECT statements are
// allowed.
func makeDBQueryFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("db_query", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) < 1 {
			return object.Errorf("db_query: expected at least 1 argument (sql), got %d", len(args))
		}
		sqlStr, err := toString(args[0])
		if err != nil {
			return object.Errorf("db_query: %v", err)
		}

		trimmed := strings.TrimSpace(strings.ToUpper(sqlStr))
		if !strings.HasPrefix(trimmed, "SELECT") {
			return object.Errorf("db_query: only SELECT queries are allowed")
		}

		var queryArgs []any
		for _, arg := range args[1:] {
			switch v := arg.(type) {
			case *object.Int:
				queryArgs = append(queryArgs, v.Value())
			case *object.Float:
				queryArgs = append(queryArgs, v.Value())
			case *object.String:
				queryArgs = append(queryArgs, v.Value())
			case *object.Bool:
				queryArgs = append(queryArgs, v.Value())
			case *object.NilType:
				queryArgs = append(queryArgs, nil)
			default:
				queryArgs = append(queryArgs, fmt.Sprintf("%v", arg))
			}
		}

		rows, err := s.DB().QueryContext(ctx, sqlStr, queryArgs...)
		if err != nil {
			return object.Errorf("db_query: %v", err)
		}
		defer rows.Close()

		cols, err := rows.Columns()
		if err != nil {
			return object.Errorf("db_query: columns: %v", err)
		}

		results := []object.Object{}
		for rows.Next() {
			values := make([]any, len(cols))
			ptrs := make([]any, len(cols))
			for i := range values {
				ptrs[i] = &values[i]
			}
			if err := rows.Scan(ptrs...); err != nil {
				return object.Errorf("db_query: scan: %v", err)
			}
			row := make(map[string]object.Object, len(cols))
			for i, col := range cols {
				row[col] = sqlValueToObject(values[i])
			}
			results = append(results, object.NewMap(row))
		}
		if err := rows.Err(); err != nil {
			return object.Errorf("db_query: rows: %v", err)
		}
		return object.NewList(results)
	})
}

func sqlValueToObject(v any) object.Object {
	if v == nil {
		return object.Nil
	}
	switch val := v.(type) {
	case int64:
		return object.NewInt(val)
	case float64:
		return object.NewFloat(val)
	case string:
		return object.NewString(val)
	case bool:
		return object.NewBool(val)
	case []byte:
		return object.NewString(string(val))
	default:
		return object.NewString(fmt.Sprintf("%v", val))
	}
}

func fileToObject(f *store.File) object.Object {
	m := map[string]object.Object{
		"id":         object.NewInt(f.ID),
		"path":       object.NewString(f.Path),
		"hash":       object.NewString(f.Hash),
		"line_count": object.NewInt(int64(f.LineCount)),
		"unparsable": object.NewBool(f.Unparsable),
	}
	if f.Unparsable {
		m["error"] = object.NewMap(map[string]object.Object{
			"line":   object.NewInt(int64(f.ErrorLine)),
			"offset": object.NewInt(int64(f.ErrorOffset)),
			"msg":    object.NewString(f.ErrorMsg),
		})
	}
	return object.NewMap(m)
}

func storedOccurrencesToList(occs []*store.Occurrence) object.Object {
	results := make([]object.Object, 0, len(occs))
	for _, o := range occs {
		m := map[string]object.Object{
			"id":           object.NewInt(o.ID),
			"file_id":      object.NewInt(o.FileID),
			"name":         object.NewString(o.Name),
			"key":          object.NewString(o.Key),
			"category":     object.NewString(o.Category),
			"line":         object.NewInt(int64(o.Line)),
			"col":          object.NewInt(int64(o.Col)),
			"end":          object.NewInt(int64(o.EndCol)),
			"highlight_id": object.NewInt(int64(o.HighlightID)),
		}
		if o.ScopeID != nil {
			m["scope_id"] = object.NewInt(*o.ScopeID)
		}
		results = append(results, object.NewMap(m))
	}
	return object.NewList(results)
}

// --- Argument helpers ---

func extractMap(obj object.Object) (map[string]object.Object, error) {
	m, ok := obj.(*object.Map)
	if !ok {
		return nil, fmt.Errorf("expected map, got %s", obj.Type())
	}
	return m.Value(), nil
}

func toInt64(obj object.Object) (int64, error) {
	if i, ok := obj.(*object.Int); ok {
		return i.Value(), nil
	}
	if f, ok := obj.(*object.Float); ok {
		return int64(f.Value()), nil
	}
	return 0, fmt.Errorf("expected int, got %s", obj.Type())
}

func toString(obj object.Object) (string, error) {
	if s, ok := obj.(*object.String); ok {
		return s.Value(), nil
	}
	return "", fmt.Errorf("expected string, got %s", obj.Type())
}

func toStringList(obj object.Object) ([]string, error) {
	l, ok := obj.(*object.List)
	if !ok {
		return nil, fmt.Errorf("expected list, got %s", obj.Type())
	}
	out := make([]string, 0, len(l.Value()))
	for _, item := range l.Value() {
		s, err := toString(item)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
