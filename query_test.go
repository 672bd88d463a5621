package pyscope

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// indexSources writes the sources into a temp dir, indexes them and returns
// a QueryBuilder plus the absolute path of each file by name.
func indexSources(t *testing.T, sources map[string]string) (*QueryBuilder, map[string]string) {
	t.Helper()
	ix := newTestIndexer(t)
	dir := t.TempDir()
	paths := map[string]string{}
	var list []string
	for name, src := range sources {
		paths[name] = writeFile(t, dir, name, src)
		list = append(list, paths[name])
	}
	_, err := ix.IndexFiles(context.Background(), list)
	require.NoError(t, err)
	return ix.Query(), paths
}

func TestQuery_OccurrencesByFile(t *testing.T) {
	t.Parallel()
	q, paths := indexSources(t, map[string]string{"a.py": "x = len(y)\n"})

	occs, err := q.OccurrencesByFile(paths["a.py"])
	require.NoError(t, err)
	require.Len(t, occs, 3)
	assert.Equal(t, "x", occs[0].Name)
	assert.Equal(t, "global", occs[0].Category)
	assert.Equal(t, "len", occs[1].Name)
	assert.Equal(t, "builtin", occs[1].Category)
	assert.Equal(t, 4, occs[1].Col)
	assert.Equal(t, 7, occs[1].EndCol)

	occs, err = q.OccurrencesByFile(filepath.Join(t.TempDir(), "missing.py"))
	require.NoError(t, err)
	assert.Nil(t, occs)
}

func TestQuery_OccurrencesByCategory(t *testing.T) {
	t.Parallel()
	q, _ := indexSources(t, map[string]string{
		"a.py": "import os\nprint(os)\n",
		"b.py": "import sys\nlen(sys.argv)\n",
	})

	occs, err := q.OccurrencesByCategory(Imported)
	require.NoError(t, err)
	assert.Len(t, occs, 4)

	occs, err = q.OccurrencesByCategory(Builtin, Imported)
	require.NoError(t, err)
	assert.Len(t, occs, 6)
}

func TestQuery_OccurrencesByName(t *testing.T) {
	t.Parallel()
	q, _ := indexSources(t, map[string]string{
		"a.py": "value = 1\n",
		"b.py": "def f(value):\n    return value\n",
	})

	occs, err := q.OccurrencesByName("value")
	require.NoError(t, err)
	require.Len(t, occs, 3)
	var cats []string
	for _, o := range occs {
		cats = append(cats, o.Category)
	}
	assert.ElementsMatch(t, []string{"global", "parameter", "parameter"}, cats)
}

func TestQuery_SameOccurrencesAt(t *testing.T) {
	t.Parallel()
	q, paths := indexSources(t, map[string]string{
		"a.py": "x = 1\ndef f(x):\n    return x\nprint(x)\n",
	})

	same, err := q.SameOccurrencesAt(paths["a.py"], 2, 6)
	require.NoError(t, err)
	require.Len(t, same, 2)
	assert.Equal(t, 3, same[1].Line)

	same, err = q.SameOccurrencesAt(paths["a.py"], 1, 0)
	require.NoError(t, err)
	require.Len(t, same, 2)
	assert.Equal(t, 4, same[1].Line)

	same, err = q.SameOccurrencesAt(paths["a.py"], 1, 2)
	require.NoError(t, err)
	assert.Nil(t, same)
}

func TestQuery_Summary(t *testing.T) {
	t.Parallel()
	q, paths := indexSources(t, map[string]string{
		"a.py": "import os\n",
		"b.py": "len\n",
	})

	counts, err := q.Summary()
	require.NoError(t, err)
	assert.Equal(t, []CategoryCount{{Category: "builtin", Count: 1}, {Category: "imported", Count: 1}}, counts)

	counts, err = q.Summary(paths["b.py"])
	require.NoError(t, err)
	assert.Equal(t, []CategoryCount{{Category: "builtin", Count: 1}}, counts)

	counts, err = q.Summary(filepath.Join(t.TempDir(), "missing.py"))
	require.NoError(t, err)
	assert.Empty(t, counts)
}

func TestQuery_Unparsable(t *testing.T) {
	t.Parallel()
	q, paths := indexSources(t, map[string]string{
		"good.py": "x = 1\n",
		"bad.py":  "(\n(\n",
	})

	files, err := q.Unparsable()
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, paths["bad.py"], files[0].Path)
	assert.True(t, files[0].Unparsable)
	assert.Positive(t, files[0].ErrorLine)

	all, err := q.Files()
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
