package runtime

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/risor-io/risor/object"

	"github.com/jward/pyscope"
)

// Each analysis host function runs a fresh Session over the whole source.
// Scripts that need incremental behavior call the library from Go.

// analyze(source [, options]) → map
//
// The result map has "occurrences" (list), "error" (map or nil) and
// "unparsable" (bool). Options: "exclude" (list of category names) and
// "fix" (bool).
func makeAnalyzeFn(base []pyscope.Option) *object.Builtin {
	return object.NewBuiltin("analyze", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) < 1 || len(args) > 2 {
			return object.Errorf("analyze: expected 1 or 2 arguments, got %d", len(args))
		}
		src, err := toString(args[0])
		if err != nil {
			return object.Errorf("analyze: source: %v", err)
		}
		opts, err := sessionOptions(base, args[1:])
		if err != nil {
			return object.Errorf("analyze: %v", err)
		}
		return analyzeToObject(ctx, "analyze", src, opts)
	})
}

// analyze_file(path [, options]) → map, like analyze.
func makeAnalyzeFileFn(base []pyscope.Option) *object.Builtin {
	return object.NewBuiltin("analyze_file", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) < 1 || len(args) > 2 {
			return object.Errorf("analyze_file: expected 1 or 2 arguments, got %d", len(args))
		}
		path, err := toString(args[0])
		if err != nil {
			return object.Errorf("analyze_file: path: %v", err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return object.Errorf("analyze_file: reading %s: %v", path, err)
		}
		opts, err := sessionOptions(base, args[1:])
		if err != nil {
			return object.Errorf("analyze_file: %v", err)
		}
		return analyzeToObject(ctx, "analyze_file", string(data), opts)
	})
}

func analyzeToObject(ctx context.Context, name, src string, opts []pyscope.Option) object.Object {
	s := pyscope.NewSession(opts...)
	res, err := s.Analyze(ctx, src, true)
	var unparsable *pyscope.UnparsableError
	switch {
	case errors.As(err, &unparsable):
		_, cur := s.SyntaxErrors()
		return object.NewMap(map[string]object.Object{
			"occurrences": object.NewList([]object.Object{}),
			"error":       syntaxErrorToObject(cur),
			"unparsable":  object.True,
		})
	case err != nil:
		return object.Errorf("%s: %v", name, err)
	}
	return object.NewMap(map[string]object.Object{
		"occurrences": occurrencesToList(res.Added),
		"error":       syntaxErrorToObject(res.Error),
		"unparsable":  object.False,
	})
}

// same_occurrences(source, line, col [, use_target]) → list
//
// Returns the occurrences bound like the one at the 1-based line and 0-based
// byte column, the one at the cursor included.
func makeSameOccurrencesFn(base []pyscope.Option) *object.Builtin {
	return object.NewBuiltin("same_occurrences", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) < 3 || len(args) > 4 {
			return object.Errorf("same_occurrences: expected 3 or 4 arguments, got %d", len(args))
		}
		s, line, col, errObj := sessionAt(ctx, "same_occurrences", base, args)
		if errObj != nil {
			return errObj
		}
		useTarget := true
		if len(args) == 4 {
			b, ok := args[3].(*object.Bool)
			if !ok {
				return object.Errorf("same_occurrences: use_target must be a bool, got %s", args[3].Type())
			}
			useTarget = b.Value()
		}
		return occurrencesToList(s.SameOccurrencesAt(line, col, true, useTarget))
	})
}

// rename(source, line, col, new_name) → string
func makeRenameFn(base []pyscope.Option) *object.Builtin {
	return object.NewBuiltin("rename", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 4 {
			return object.NewArgsError("rename", 4, len(args))
		}
		s, line, col, errObj := sessionAt(ctx, "rename", base, args)
		if errObj != nil {
			return errObj
		}
		newName, err := toString(args[3])
		if err != nil {
			return object.Errorf("rename: new_name: %v", err)
		}
		edits, err := s.Rename(line, col, newName, true)
		if err != nil {
			return object.Errorf("rename: %v", err)
		}
		lines, err := pyscope.ApplyEdits(s.Lines(), edits)
		if err != nil {
			return object.Errorf("rename: %v", err)
		}
		return object.NewString(strings.Join(lines, "\n"))
	})
}

// sessionAt analyzes args[0] and converts args[1:3] to a cursor.
func sessionAt(ctx context.Context, name string, base []pyscope.Option, args []object.Object) (*pyscope.Session, int, int, object.Object) {
	src, err := toString(args[0])
	if err != nil {
		return nil, 0, 0, object.Errorf("%s: source: %v", name, err)
	}
	line, err := toInt64(args[1])
	if err != nil {
		return nil, 0, 0, object.Errorf("%s: line: %v", name, err)
	}
	col, err := toInt64(args[2])
	if err != nil {
		return nil, 0, 0, object.Errorf("%s: col: %v", name, err)
	}
	s := pyscope.NewSession(base...)
	if _, err := s.Analyze(ctx, src, true); err != nil {
		return nil, 0, 0, object.Errorf("%s: %v", name, err)
	}
	return s, int(line), int(col), nil
}

// locations(source, kind) → list of {line, col}
//
// kind is "class", "function" or "all".
func makeLocationsFn(base []pyscope.Option) *object.Builtin {
	return object.NewBuiltin("locations", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("locations", 2, len(args))
		}
		src, err := toString(args[0])
		if err != nil {
			return object.Errorf("locations: source: %v", err)
		}
		kindName, err := toString(args[1])
		if err != nil {
			return object.Errorf("locations: kind: %v", err)
		}
		var kind pyscope.DefKind
		switch kindName {
		case "class":
			kind = pyscope.ClassDefs
		case "function":
			kind = pyscope.FunctionDefs
		case "all":
			kind = pyscope.ClassDefs | pyscope.FunctionDefs
		default:
			return object.Errorf("locations: unknown kind %q", kindName)
		}

		s := pyscope.NewSession(base...)
		if _, err := s.Analyze(ctx, src, true); err != nil {
			return object.Errorf("locations: %v", err)
		}
		results := []object.Object{}
		for _, p := range s.LocationsOf(kind) {
			results = append(results, object.NewMap(map[string]object.Object{
				"line": object.NewInt(int64(p.Line)),
				"col":  object.NewInt(int64(p.Col)),
			}))
		}
		return object.NewList(results)
	})
}

// categories() → list of category names
func makeCategoriesFn() *object.Builtin {
	return object.NewBuiltin("categories", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError("categories", 0, len(args))
		}
		var names []object.Object
		for _, c := range pyscope.Categories() {
			names = append(names, object.NewString(c.String()))
		}
		return object.NewList(names)
	})
}

// sessionOptions appends the options given as an optional Risor map to
// base.
func sessionOptions(base []pyscope.Option, args []object.Object) ([]pyscope.Option, error) {
	opts := append([]pyscope.Option(nil), base...)
	if len(args) == 0 {
		return opts, nil
	}
	m, err := extractMap(args[0])
	if err != nil {
		return nil, err
	}
	if v, ok := m["fix"]; ok {
		b, ok := v.(*object.Bool)
		if !ok {
			return nil, errors.New("fix must be a bool")
		}
		opts = append(opts, pyscope.WithFixSyntax(b.Value()))
	}
	if v, ok := m["exclude"]; ok {
		names, err := toStringList(v)
		if err != nil {
			return nil, err
		}
		var cats []pyscope.Category
		for _, n := range names {
			c, err := pyscope.ParseCategory(n)
			if err != nil {
				return nil, err
			}
			cats = append(cats, c)
		}
		opts = append(opts, pyscope.WithExclude(cats...))
	}
	return opts, nil
}

func occurrencesToList(occs []*pyscope.Occurrence) object.Object {
	results := make([]object.Object, 0, len(occs))
	for _, o := range occs {
		results = append(results, object.NewMap(map[string]object.Object{
			"id":       object.NewInt(int64(o.ID)),
			"name":     object.NewString(o.Name),
			"key":      object.NewString(o.Key),
			"category": object.NewString(o.Category.String()),
			"line":     object.NewInt(int64(o.Line)),
			"col":      object.NewInt(int64(o.Col)),
			"end":      object.NewInt(int64(o.End)),
		}))
	}
	return object.NewList(results)
}

func syntaxErrorToObject(e *pyscope.SyntaxError) object.Object {
	if e == nil {
		return object.Nil
	}
	return object.NewMap(map[string]object.Object{
		"line":   object.NewInt(int64(e.Line)),
		"offset": object.NewInt(int64(e.Offset)),
		"msg":    object.NewString(e.Msg),
	})
}
