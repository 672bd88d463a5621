package watch

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/pyscope/internal/config"
)

func waitFor(t *testing.T, ch <-chan []string, want string) {
	t.Helper()
	timeout := time.After(3 * time.Second)
	for {
		select {
		case paths := <-ch:
			if slices.Contains(paths, want) {
				return
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s", want)
		}
	}
}

func TestWatcher(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	exclude, err := config.NewFileMatcher([]string{"*_gen.py"})
	require.NoError(t, err)
	metrics := NewMetrics(prometheus.NewRegistry())

	changed := make(chan []string, 16)
	w, err := NewWatcher(50*time.Millisecond, exclude, metrics, discard(), func(paths []string) {
		changed <- paths
	})
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.Watch([]string{dir}))

	py := filepath.Join(dir, "app.py")
	writeFile(t, py, "x = 1\n")
	waitFor(t, changed, py)
	assert.Positive(t, testutil.ToFloat64(metrics.Events))

	// Excluded and non-Python files are ignored.
	writeFile(t, filepath.Join(dir, "models_gen.py"), "x = 1\n")
	writeFile(t, filepath.Join(dir, "notes.txt"), "x")
	select {
	case paths := <-changed:
		for _, p := range paths {
			assert.NotEqual(t, "models_gen.py", filepath.Base(p))
			assert.NotEqual(t, "notes.txt", filepath.Base(p))
		}
	case <-time.After(300 * time.Millisecond):
	}

	// A new directory is watched recursively.
	sub := filepath.Join(dir, "pkg")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	nested := filepath.Join(sub, "mod.pyi")
	writeFile(t, nested, "def f() -> int: ...\n")
	waitFor(t, changed, nested)

	require.NoError(t, os.Remove(py))
	waitFor(t, changed, py)
}

func TestWatcher_Debounces(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	changed := make(chan []string, 16)
	w, err := NewWatcher(200*time.Millisecond, nil, nil, discard(), func(paths []string) {
		changed <- paths
	})
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.Watch([]string{dir}))

	a, b := filepath.Join(dir, "a.py"), filepath.Join(dir, "b.py")
	writeFile(t, a, "a = 1\n")
	writeFile(t, b, "b = 1\n")

	select {
	case paths := <-changed:
		assert.ElementsMatch(t, []string{a, b}, paths)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for batch")
	}
}

func TestIsPython(t *testing.T) {
	t.Parallel()
	assert.True(t, IsPython("a/b.py"))
	assert.True(t, IsPython("b.pyi"))
	assert.False(t, IsPython("b.pyc"))
	assert.False(t, IsPython("Makefile"))
}

func TestPythonFiles_SkipsHiddenAndVendored(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	for _, d := range []string{".git", "venv", "__pycache__", "src"} {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, d), 0o755))
		writeFile(t, filepath.Join(dir, d, "m.py"), "x = 1\n")
	}
	writeFile(t, filepath.Join(dir, "top.py"), "x = 1\n")

	files, err := pythonFiles(dir)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		filepath.Join(dir, "src", "m.py"),
		filepath.Join(dir, "top.py"),
	}, files)
}

func TestWatcher_ScanFailureIsLogged(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	w, err := NewWatcher(time.Millisecond, nil, NewMetrics(prometheus.NewRegistry()), logger, func([]string) {})
	require.NoError(t, err)
	defer w.Close()

	missing := filepath.Join(t.TempDir(), "gone")
	w.enqueueExistingFiles(missing)

	out := buf.String()
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "failed to scan new directory")
	assert.Contains(t, out, "gone")
}
