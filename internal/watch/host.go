package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jward/pyscope"
	"github.com/jward/pyscope/internal/config"
)

// Host runs one Worker per watched file and forwards their results to a
// Sink.
type Host struct {
	cfg         *config.Config
	sink        Sink
	exclude     *config.FileMatcher
	sessionOpts []pyscope.Option
	registry    *prometheus.Registry
	metrics     *Metrics
	logger      *slog.Logger

	mu      sync.Mutex
	workers map[string]*Worker
}

// HostOption configures a Host.
type HostOption func(*Host)

func WithHostLogger(l *slog.Logger) HostOption {
	return func(h *Host) { h.logger = l }
}

// WithRegistry registers the host metrics with reg instead of a private
// registry.
func WithRegistry(reg *prometheus.Registry) HostOption {
	return func(h *Host) { h.registry = reg }
}

// NewHost validates cfg and prepares an idle host.
func NewHost(cfg *config.Config, sink Sink, opts ...HostOption) (*Host, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	excluded, err := cfg.Excluded()
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	matcher, err := config.NewFileMatcher(cfg.ExcludedFiles)
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}

	h := &Host{
		cfg:     cfg,
		sink:    sink,
		exclude: matcher,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		workers: make(map[string]*Worker),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.registry == nil {
		h.registry = prometheus.NewRegistry()
	}
	h.metrics = NewMetrics(h.registry)
	h.sessionOpts = []pyscope.Option{
		pyscope.WithExclude(excluded...),
		pyscope.WithFixSyntax(cfg.TolerateSyntaxErrors),
		pyscope.WithMaxDepth(cfg.MaxDepth),
		pyscope.WithLogger(h.logger),
	}
	return h, nil
}

// Metrics returns the host collectors.
func (h *Host) Metrics() *Metrics { return h.metrics }

// Worker returns the worker of path, creating it on first use.
func (h *Host) Worker(path string) *Worker {
	h.mu.Lock()
	defer h.mu.Unlock()
	if w, ok := h.workers[path]; ok {
		return w
	}
	w := NewWorker(path, pyscope.NewSession(h.sessionOpts...), WorkerConfig{
		DelayFactor:    h.cfg.UpdateDelayFactor,
		ForceAll:       h.cfg.AlwaysUpdateAllHighlights,
		ErrorSign:      h.cfg.ErrorSign,
		ErrorSignDelay: h.cfg.ErrorSignDelay,
	}, h.sink, h.metrics, h.logger)
	h.workers[path] = w
	h.metrics.Workers.Set(float64(len(h.workers)))
	return w
}

// Changed triggers the workers of paths. Files that no longer exist lose
// their worker and a closed update is published for them.
func (h *Host) Changed(ctx context.Context, paths []string) {
	for _, p := range paths {
		if h.exclude.Match(p) {
			continue
		}
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			h.close(p)
			continue
		}
		h.Worker(p).Trigger(ctx)
	}
}

func (h *Host) close(path string) {
	h.mu.Lock()
	w, ok := h.workers[path]
	delete(h.workers, path)
	h.metrics.Workers.Set(float64(len(h.workers)))
	h.mu.Unlock()
	if !ok {
		return
	}
	w.Wait()
	w.Stop()
	h.metrics.Occurrences.DeleteLabelValues(path)
	if err := h.sink.Publish(Update{Kind: KindClosed, Path: path}); err != nil {
		h.logger.Warn("publish failed", "path", path, "error", err)
	}
}

// Wait blocks until every worker is idle.
func (h *Host) Wait() {
	h.mu.Lock()
	workers := make([]*Worker, 0, len(h.workers))
	for _, w := range h.workers {
		workers = append(workers, w)
	}
	h.mu.Unlock()
	for _, w := range workers {
		w.Wait()
	}
}

// Run analyzes the Python files under roots, then follows their changes
// until ctx is done.
func (h *Host) Run(ctx context.Context, roots []string) error {
	if h.cfg.MetricsAddr != "" {
		srv := NewMetricsServer(h.cfg.MetricsAddr, h.registry, h.logger)
		if err := srv.Start(ctx); err != nil {
			return fmt.Errorf("watch: metrics: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Stop(shutdownCtx)
		}()
	}

	w, err := NewWatcher(h.cfg.Debounce, h.exclude, h.metrics, h.logger, func(paths []string) {
		h.Changed(ctx, paths)
	})
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer w.Close()

	if err := w.Watch(roots); err != nil {
		return fmt.Errorf("watch: %w", err)
	}

	var initial []string
	for _, root := range roots {
		files, err := pythonFiles(root)
		if err != nil {
			return fmt.Errorf("watch: %w", err)
		}
		initial = append(initial, files...)
	}
	h.logger.Info("watching", "roots", roots, "files", len(initial))
	h.Changed(ctx, initial)

	<-ctx.Done()
	h.Wait()
	h.mu.Lock()
	for _, wk := range h.workers {
		wk.Stop()
	}
	h.mu.Unlock()
	return nil
}

func pythonFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && shouldSkipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if IsPython(path) {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
