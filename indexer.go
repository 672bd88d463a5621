package pyscope

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jward/pyscope/internal/config"
	"github.com/jward/pyscope/internal/store"
	"github.com/jward/pyscope/internal/syntax"
)

// analyzerVersion changes whenever stored results would differ for the same
// source. It is part of the settings hash.
const analyzerVersion = "1"

const settingsHashKey = "settings_hash"

// Indexer analyzes the Python files of a project and persists the results.
type Indexer struct {
	store    *store.Store
	exclude  *config.FileMatcher
	patterns []string
	workers  int
	fix      bool
	maxDepth int
	logger   *slog.Logger
}

// IndexOption configures an Indexer.
type IndexOption func(*Indexer)

// WithIndexWorkers bounds the number of files analyzed at once. Zero or
// less means runtime.NumCPU.
func WithIndexWorkers(n int) IndexOption {
	return func(ix *Indexer) { ix.workers = n }
}

// WithIndexExclude skips files matching any of the glob patterns.
func WithIndexExclude(patterns ...string) IndexOption {
	return func(ix *Indexer) { ix.patterns = patterns }
}

// WithIndexSyntaxFix controls whether a broken line is sanitized before a
// file is given up as unparsable.
func WithIndexSyntaxFix(fix bool) IndexOption {
	return func(ix *Indexer) { ix.fix = fix }
}

// WithIndexMaxDepth bounds the nesting depth of analyzed code.
func WithIndexMaxDepth(depth int) IndexOption {
	return func(ix *Indexer) { ix.maxDepth = depth }
}

// WithIndexLogger sets the logger for per-file records.
func WithIndexLogger(l *slog.Logger) IndexOption {
	return func(ix *Indexer) { ix.logger = l }
}

// NewIndexer creates an Indexer backed by a SQLite database at dbPath.
func NewIndexer(dbPath string, opts ...IndexOption) (*Indexer, error) {
	ix := &Indexer{
		fix:      true,
		maxDepth: syntax.DefaultMaxDepth,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(ix)
	}
	m, err := config.NewFileMatcher(ix.patterns)
	if err != nil {
		return nil, fmt.Errorf("pyscope: indexer: %w", err)
	}
	ix.exclude = m

	s, err := store.NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("pyscope: create store: %w", err)
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, fmt.Errorf("pyscope: migrate: %w", err)
	}
	ix.store = s
	return ix, nil
}

// Close releases the Indexer's database resources.
func (ix *Indexer) Close() error {
	return ix.store.Close()
}

// Store returns the underlying Store for direct access.
func (ix *Indexer) Store() *Store {
	return ix.store
}

// Query returns a QueryBuilder over the index.
func (ix *Indexer) Query() *QueryBuilder {
	return &QueryBuilder{store: ix.store}
}

func (ix *Indexer) settingsHash() string {
	return store.SettingsHash(map[string]string{
		"analyzer":  analyzerVersion,
		"fix":       strconv.FormatBool(ix.fix),
		"max_depth": strconv.Itoa(ix.maxDepth),
	})
}

// SettingsChanged reports whether the index was built with different
// analysis settings, or never built. Changed settings make IndexFiles
// reanalyze every file.
func (ix *Indexer) SettingsChanged() bool {
	stored, err := ix.store.GetMetadata(settingsHashKey)
	if err != nil || stored == "" {
		return true
	}
	return stored != ix.settingsHash()
}

// IndexStats counts what one IndexFiles call did.
type IndexStats struct {
	Analyzed   int
	Unchanged  int
	Excluded   int
	Unparsable int
	Removed    int
	Failed     int
}

// workItem holds everything a worker needs for one file.
type workItem struct {
	file    *store.File
	content []byte
	batch   *store.BatchedStore
}

// IndexFiles analyzes the given Python files. Unchanged files (same content
// hash, same settings) are skipped. Each file is analyzed in its own
// Session by a bounded worker pool; results are committed serially, one
// transaction per file. Errors on individual files are logged and counted;
// processing continues.
func (ix *Indexer) IndexFiles(ctx context.Context, paths []string) (*IndexStats, error) {
	stats := &IndexStats{}
	force := ix.SettingsChanged()

	var items []workItem
	for _, path := range paths {
		if ix.exclude.Match(path) {
			stats.Excluded++
			continue
		}
		item, skip, err := ix.prepareFile(path, force)
		if err != nil {
			return stats, fmt.Errorf("pyscope: prepare %s: %w", path, err)
		}
		if skip {
			stats.Unchanged++
			continue
		}
		items = append(items, item)
	}

	workers := ix.workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	type result struct {
		item workItem
		err  error
	}
	resultCh := make(chan result, len(items))

	var g errgroup.Group
	g.SetLimit(workers)
	go func() {
		for _, item := range items {
			g.Go(func() error {
				resultCh <- result{item: item, err: ix.analyzeFile(ctx, item)}
				return nil
			})
		}
		g.Wait()
		close(resultCh)
	}()

	var errs []error
	for res := range resultCh {
		path := res.item.file.Path
		if res.err != nil {
			stats.Failed++
			ix.logger.Warn("analysis failed", "path", path, "error", res.err)
			errs = append(errs, fmt.Errorf("analyze %s: %w", path, res.err))
			continue
		}
		if err := ix.store.CommitBatch(res.item.file, res.item.batch); err != nil {
			stats.Failed++
			errs = append(errs, fmt.Errorf("commit %s: %w", path, err))
			continue
		}
		stats.Analyzed++
		if res.item.file.Unparsable {
			stats.Unparsable++
		}
		ix.logger.Debug("indexed", "path", path,
			"occurrences", len(res.item.batch.Occurrences), "unparsable", res.item.file.Unparsable)
	}

	if err := ctx.Err(); err != nil {
		return stats, fmt.Errorf("pyscope: index files: %w", err)
	}
	if len(errs) > 0 {
		return stats, fmt.Errorf("pyscope: indexing had %d error(s): %w", len(errs), errors.Join(errs...))
	}
	if err := ix.store.SetMetadata(settingsHashKey, ix.settingsHash()); err != nil {
		return stats, fmt.Errorf("pyscope: store settings hash: %w", err)
	}
	return stats, nil
}

// prepareFile reads path and decides whether it needs analysis. skip is
// true when the stored results are current.
func (ix *Indexer) prepareFile(path string, force bool) (workItem, bool, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return workItem{}, false, fmt.Errorf("read file: %w", err)
	}
	hash := store.ContentHash(content)

	if !force {
		existing, err := ix.store.FileByPath(path)
		if err != nil {
			return workItem{}, false, fmt.Errorf("lookup file: %w", err)
		}
		if existing != nil && existing.Hash == hash {
			return workItem{}, true, nil
		}
	}

	return workItem{
		file: &store.File{
			Path:      path,
			Hash:      hash,
			LineCount: bytes.Count(content, []byte{'\n'}) + 1,
		},
		content: content,
		batch:   store.NewBatchedStore(),
	}, false, nil
}

// analyzeFile runs a fresh Session over one file and buffers its results.
// An unparsable file is recorded with its syntax error. Invariant panics
// are turned into errors so one file cannot stop the run.
func (ix *Indexer) analyzeFile(ctx context.Context, item workItem) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	s := NewSession(WithFixSyntax(ix.fix), WithMaxDepth(ix.maxDepth), WithLogger(ix.logger))
	_, err = s.Analyze(ctx, string(item.content), true)
	item.file.LastIndexed = time.Now()

	var unparsable *UnparsableError
	if errors.As(err, &unparsable) {
		_, cur := s.SyntaxErrors()
		item.file.Unparsable = true
		if cur != nil {
			item.file.ErrorLine = cur.Line
			item.file.ErrorOffset = cur.Offset
			item.file.ErrorMsg = cur.Msg
		}
		return nil
	}
	if err != nil {
		return err
	}
	return Record(item.batch, s.Occurrences())
}

var skipDirs = map[string]bool{
	"node_modules":  true,
	"__pycache__":   true,
	"venv":          true,
	"site-packages": true,
}

// IndexDirectory indexes every Python file under root and drops indexed
// files that no longer exist there. Inside a git repository, git ls-files
// is used to respect .gitignore; otherwise the tree is walked, skipping
// hidden and virtualenv directories.
func (ix *Indexer) IndexDirectory(ctx context.Context, root string) (*IndexStats, error) {
	paths, err := gitListFiles(ctx, root)
	if err != nil {
		ix.logger.Debug("git ls-files unavailable, walking", "root", root, "error", err)
		paths, err = walkListFiles(root)
		if err != nil {
			return nil, err
		}
	}
	stats, err := ix.IndexFiles(ctx, paths)
	if err != nil {
		return stats, err
	}
	removed, err := ix.store.DeleteFilesNotIn(paths)
	stats.Removed = removed
	if err != nil {
		return stats, fmt.Errorf("pyscope: prune index: %w", err)
	}
	return stats, nil
}

func isPython(path string) bool {
	return strings.HasSuffix(path, ".py") || strings.HasSuffix(path, ".pyi")
}

func gitListFiles(ctx context.Context, root string) ([]string, error) {
	cmd := exec.CommandContext(ctx, "git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git ls-files: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	var paths []string
	for _, line := range strings.Split(stdout.String(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !isPython(line) {
			continue
		}
		path := filepath.Join(root, line)
		// Deleted but still tracked files are listed by --cached.
		if _, err := os.Stat(path); err != nil {
			continue
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func walkListFiles(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, ".") || skipDirs[name]) {
				return filepath.SkipDir
			}
			return nil
		}
		if isPython(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("pyscope: walk directory: %w", err)
	}
	return paths, nil
}
