package pyscope

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/pyscope/internal/store"
)

func newTestIndexer(t *testing.T, opts ...IndexOption) *Indexer {
	t.Helper()
	ix, err := NewIndexer(filepath.Join(t.TempDir(), "index.db"), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { ix.Close() })
	return ix
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// =============================================================================
// Construction
// =============================================================================

func TestNewIndexer_InvalidPath(t *testing.T) {
	t.Parallel()
	_, err := NewIndexer("/nonexistent/dir/index.db")
	require.Error(t, err)
}

func TestNewIndexer_InvalidPattern(t *testing.T) {
	t.Parallel()
	_, err := NewIndexer(filepath.Join(t.TempDir(), "index.db"), WithIndexExclude("[a-"))
	require.Error(t, err)
}

// =============================================================================
// IndexFiles
// =============================================================================

func TestIndexFiles_RecordsOccurrences(t *testing.T) {
	t.Parallel()
	ix := newTestIndexer(t)
	path := writeFile(t, t.TempDir(), "mod.py", "import os\nclass A:\n    def m(self, x):\n        return os.path.join(x)\n")

	stats, err := ix.IndexFiles(context.Background(), []string{path})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Analyzed)

	f, err := ix.Store().FileByPath(path)
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.False(t, f.Unparsable)
	assert.Equal(t, 5, f.LineCount)

	occs, err := ix.Store().OccurrencesByFile(f.ID)
	require.NoError(t, err)
	var got []string
	for _, o := range occs {
		got = append(got, o.Name+":"+o.Category)
	}
	assert.Equal(t, []string{
		"os:imported", "A:global", "m:local", "self:self", "x:parameter", "os:imported", "x:parameter",
	}, got)

	scopes, err := ix.Store().ScopesByFile(f.ID)
	require.NoError(t, err)
	require.Len(t, scopes, 3)
	assert.Equal(t, "module", scopes[0].Kind)
	assert.Nil(t, scopes[0].ParentScopeID)
	assert.Equal(t, "class", scopes[1].Kind)
	assert.Equal(t, "A", scopes[1].Name)
	assert.Equal(t, "function", scopes[2].Kind)
	assert.Equal(t, "self", scopes[2].SelfParam)
	require.NotNil(t, scopes[2].ParentScopeID)
	assert.Equal(t, scopes[1].ID, *scopes[2].ParentScopeID)
}

func TestIndexFiles_SkipsUnchangedFiles(t *testing.T) {
	t.Parallel()
	ix := newTestIndexer(t)
	path := writeFile(t, t.TempDir(), "a.py", "x = 1\n")
	ctx := context.Background()

	_, err := ix.IndexFiles(ctx, []string{path})
	require.NoError(t, err)
	first, err := ix.Store().FileByPath(path)
	require.NoError(t, err)

	stats, err := ix.IndexFiles(ctx, []string{path})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Unchanged)
	assert.Zero(t, stats.Analyzed)

	again, err := ix.Store().FileByPath(path)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
}

func TestIndexFiles_ReindexesChangedFiles(t *testing.T) {
	t.Parallel()
	ix := newTestIndexer(t)
	dir := t.TempDir()
	path := writeFile(t, dir, "a.py", "x = 1\n")
	ctx := context.Background()

	_, err := ix.IndexFiles(ctx, []string{path})
	require.NoError(t, err)

	writeFile(t, dir, "a.py", "y = 2\nz = y\n")
	stats, err := ix.IndexFiles(ctx, []string{path})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Analyzed)

	f, err := ix.Store().FileByPath(path)
	require.NoError(t, err)
	assert.Equal(t, store.ContentHash([]byte("y = 2\nz = y\n")), f.Hash)

	occs, err := ix.Store().OccurrencesByFile(f.ID)
	require.NoError(t, err)
	require.Len(t, occs, 3)
	assert.Equal(t, "y", occs[0].Name)

	files, err := ix.Store().Files()
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestIndexFiles_RecordsUnparsableFiles(t *testing.T) {
	t.Parallel()
	ix := newTestIndexer(t)
	path := writeFile(t, t.TempDir(), "bad.py", "def f(a, a):\n    pass\n")

	stats, err := ix.IndexFiles(context.Background(), []string{path})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Unparsable)

	files, err := ix.Store().UnparsableFiles()
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, path, files[0].Path)
	assert.Equal(t, 1, files[0].ErrorLine)
	assert.Contains(t, files[0].ErrorMsg, "duplicate argument")

	occs, err := ix.Store().OccurrencesByFile(files[0].ID)
	require.NoError(t, err)
	assert.Empty(t, occs)
}

func TestIndexFiles_Exclude(t *testing.T) {
	t.Parallel()
	ix := newTestIndexer(t, WithIndexExclude("*_pb2.py"))
	dir := t.TempDir()
	keep := writeFile(t, dir, "a.py", "a = 1\n")
	skip := writeFile(t, dir, "api_pb2.py", "b = 1\n")

	stats, err := ix.IndexFiles(context.Background(), []string{keep, skip})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Analyzed)
	assert.Equal(t, 1, stats.Excluded)

	f, err := ix.Store().FileByPath(skip)
	require.NoError(t, err)
	assert.Nil(t, f)
}

func TestIndexFiles_ManyFilesInParallel(t *testing.T) {
	t.Parallel()
	ix := newTestIndexer(t, WithIndexWorkers(3))
	dir := t.TempDir()
	var paths []string
	for _, name := range []string{"a.py", "b.py", "c.py", "d.py", "e.py", "f.py", "g.py"} {
		paths = append(paths, writeFile(t, dir, name, "def f(x):\n    return x\n"))
	}

	stats, err := ix.IndexFiles(context.Background(), paths)
	require.NoError(t, err)
	assert.Equal(t, len(paths), stats.Analyzed)

	counts, err := ix.Query().Summary()
	require.NoError(t, err)
	assert.Equal(t, []CategoryCount{{Category: "global", Count: 7}, {Category: "parameter", Count: 14}}, counts)
}

func TestIndexFiles_MissingFile(t *testing.T) {
	t.Parallel()
	ix := newTestIndexer(t)
	_, err := ix.IndexFiles(context.Background(), []string{filepath.Join(t.TempDir(), "gone.py")})
	require.Error(t, err)
}

func TestIndexFiles_SettingsChange(t *testing.T) {
	t.Parallel()
	dbPath := filepath.Join(t.TempDir(), "index.db")
	path := writeFile(t, t.TempDir(), "a.py", "x = 1\n")
	ctx := context.Background()

	ix, err := NewIndexer(dbPath)
	require.NoError(t, err)
	assert.True(t, ix.SettingsChanged())
	_, err = ix.IndexFiles(ctx, []string{path})
	require.NoError(t, err)
	assert.False(t, ix.SettingsChanged())
	require.NoError(t, ix.Close())

	ix, err = NewIndexer(dbPath, WithIndexMaxDepth(100))
	require.NoError(t, err)
	defer ix.Close()
	assert.True(t, ix.SettingsChanged())
	stats, err := ix.IndexFiles(ctx, []string{path})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Analyzed, "changed settings reanalyze unchanged files")
}

// =============================================================================
// IndexDirectory
// =============================================================================

func TestIndexDirectory_DiscoversPythonFiles(t *testing.T) {
	t.Parallel()
	ix := newTestIndexer(t)
	dir := t.TempDir()
	writeFile(t, dir, "a.py", "a = 1\n")
	writeFile(t, dir, "pkg/b.py", "b = 1\n")
	writeFile(t, dir, "pkg/c.pyi", "c: int\n")
	writeFile(t, dir, "README.md", "# readme\n")
	writeFile(t, dir, ".hidden/d.py", "d = 1\n")
	writeFile(t, dir, "__pycache__/e.py", "e = 1\n")
	writeFile(t, dir, "venv/lib/f.py", "f = 1\n")

	stats, err := ix.IndexDirectory(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Analyzed)

	files, err := ix.Query().Files()
	require.NoError(t, err)
	var got []string
	for _, f := range files {
		rel, err := filepath.Rel(dir, f.Path)
		require.NoError(t, err)
		got = append(got, filepath.ToSlash(rel))
	}
	assert.Equal(t, []string{"a.py", "pkg/b.py", "pkg/c.pyi"}, got)
}

func TestIndexDirectory_PrunesDeletedFiles(t *testing.T) {
	t.Parallel()
	ix := newTestIndexer(t)
	dir := t.TempDir()
	writeFile(t, dir, "a.py", "a = 1\n")
	gone := writeFile(t, dir, "b.py", "b = 1\n")
	ctx := context.Background()

	_, err := ix.IndexDirectory(ctx, dir)
	require.NoError(t, err)
	require.NoError(t, os.Remove(gone))

	stats, err := ix.IndexDirectory(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Removed)
	assert.Equal(t, 1, stats.Unchanged)

	f, err := ix.Store().FileByPath(gone)
	require.NoError(t, err)
	assert.Nil(t, f)
}

// =============================================================================
// Record
// =============================================================================

func TestRecord_BatchedScopesParentsFirst(t *testing.T) {
	t.Parallel()
	s := NewSession()
	analyze(t, s, "def f():\n    return [y for y in range(3)]\n")

	batch := store.NewBatchedStore()
	require.NoError(t, Record(batch, s.Occurrences()))

	require.Len(t, batch.Scopes, 3)
	assert.Equal(t, "module", batch.Scopes[0].Kind)
	assert.Equal(t, "function", batch.Scopes[1].Kind)
	assert.Equal(t, "comprehension", batch.Scopes[2].Kind)
	assert.Equal(t, batch.Scopes[0].ID, *batch.Scopes[1].ParentScopeID)
	assert.Equal(t, batch.Scopes[1].ID, *batch.Scopes[2].ParentScopeID)

	require.Len(t, batch.Occurrences, len(s.Occurrences()))
	for i, o := range s.Occurrences() {
		assert.Equal(t, o.ID, batch.Occurrences[i].HighlightID)
		assert.Equal(t, o.End, batch.Occurrences[i].EndCol)
	}
}
