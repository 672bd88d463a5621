package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/jward/pyscope"
)

// WorkerConfig holds the per-file settings of a Worker.
type WorkerConfig struct {
	// DelayFactor is the pause before each run, in seconds per retained line.
	DelayFactor float64
	// ForceAll refreshes every highlight on each run.
	ForceAll bool
	// ErrorSign enables the syntax error indicator.
	ErrorSign bool
	// ErrorSignDelay postpones showing a new error indicator.
	ErrorSignDelay time.Duration
}

// Worker re-analyzes one file on demand. A Trigger while a run is in
// progress schedules exactly one more run after it.
type Worker struct {
	path     string
	session  *pyscope.Session
	cfg      WorkerConfig
	sink     Sink
	metrics  *Metrics
	logger   *slog.Logger
	readFile func(string) ([]byte, error)

	mu      sync.Mutex
	running bool
	rerun   bool
	wg      sync.WaitGroup

	errMu    sync.Mutex
	errShown bool
	errTimer *time.Timer
}

// NewWorker creates a worker for path. metrics may be nil.
func NewWorker(path string, session *pyscope.Session, cfg WorkerConfig, sink Sink, metrics *Metrics, logger *slog.Logger) *Worker {
	return &Worker{
		path:     path,
		session:  session,
		cfg:      cfg,
		sink:     sink,
		metrics:  metrics,
		logger:   logger,
		readFile: os.ReadFile,
	}
}

func (w *Worker) Path() string { return w.path }

// Session returns the analysis state of the file.
func (w *Worker) Session() *pyscope.Session { return w.session }

// Trigger starts a run unless one is in progress, in which case it sets
// the rerun flag.
func (w *Worker) Trigger(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		w.rerun = true
		return
	}
	w.running = true
	w.wg.Add(1)
	go w.loop(ctx)
}

// Wait blocks until no run is in progress.
func (w *Worker) Wait() {
	w.wg.Wait()
}

// Stop cancels a pending error indicator.
func (w *Worker) Stop() {
	w.errMu.Lock()
	defer w.errMu.Unlock()
	if w.errTimer != nil {
		w.errTimer.Stop()
	}
}

func (w *Worker) loop(ctx context.Context) {
	defer w.wg.Done()
	for {
		w.run(ctx)

		w.mu.Lock()
		if !w.rerun || ctx.Err() != nil {
			w.running, w.rerun = false, false
			w.mu.Unlock()
			return
		}
		w.rerun = false
		w.mu.Unlock()
	}
}

func (w *Worker) run(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("worker panic", "path", w.path, "panic", fmt.Sprint(r))
			w.count(OutcomePanic)
		}
	}()

	if delay := w.delay(); delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return
		}
	}

	data, err := w.readFile(w.path)
	if err != nil {
		w.logger.Warn("read failed", "path", w.path, "error", err)
		w.count(OutcomeFailed)
		return
	}

	start := time.Now()
	res, err := w.session.Analyze(ctx, string(data), w.cfg.ForceAll)
	if w.metrics != nil {
		w.metrics.AnalysisSeconds.Observe(time.Since(start).Seconds())
	}
	var unparsable *pyscope.UnparsableError
	switch {
	case errors.As(err, &unparsable):
		w.logger.Debug("unparsable", "path", w.path, "error", unparsable.Err)
		w.count(OutcomeUnparsable)
	case err != nil:
		w.logger.Warn("analyze failed", "path", w.path, "error", err)
		w.count(OutcomeFailed)
		return
	default:
		w.count(OutcomeOK)
		w.publishHighlights(res)
	}
	w.updateErrorSign()
}

func (w *Worker) delay() time.Duration {
	if w.cfg.DelayFactor <= 0 {
		return 0
	}
	n := len(w.session.Lines())
	return time.Duration(w.cfg.DelayFactor * float64(n) * float64(time.Second))
}

func (w *Worker) count(outcome string) {
	if w.metrics != nil {
		w.metrics.Analyses.WithLabelValues(outcome).Inc()
	}
}

func (w *Worker) publishHighlights(res *pyscope.Result) {
	if w.metrics != nil {
		w.metrics.Occurrences.WithLabelValues(w.path).Set(float64(len(w.session.Occurrences())))
	}
	if len(res.Added) == 0 && len(res.Removed) == 0 {
		return
	}
	u := Update{
		Kind: KindHighlights,
		Path: w.path,
		Tick: w.session.Tick(),
		Add:  pyscope.Highlights(res.Added),
	}
	for _, o := range res.Removed {
		u.Remove = append(u.Remove, o.ID)
	}
	w.publish(u)
}

func (w *Worker) publish(u Update) {
	if err := w.sink.Publish(u); err != nil {
		w.logger.Warn("publish failed", "path", w.path, "error", err)
	}
}

// updateErrorSign shows a new error at once when one is already shown,
// otherwise after ErrorSignDelay if the error is still current by then.
func (w *Worker) updateErrorSign() {
	if !w.cfg.ErrorSign || !w.session.ErrorChanged() {
		return
	}
	_, cur := w.session.SyntaxErrors()

	w.errMu.Lock()
	defer w.errMu.Unlock()
	if w.errTimer != nil {
		w.errTimer.Stop()
		w.errTimer = nil
	}
	if cur == nil {
		if w.errShown {
			w.errShown = false
			w.publish(Update{Kind: KindErrorCleared, Path: w.path})
		}
		return
	}
	if w.errShown || w.cfg.ErrorSignDelay == 0 {
		w.showError(cur)
		return
	}
	w.errTimer = time.AfterFunc(w.cfg.ErrorSignDelay, func() {
		w.errMu.Lock()
		defer w.errMu.Unlock()
		if _, now := w.session.SyntaxErrors(); pyscope.SameError(now, cur) {
			w.showError(cur)
		}
	})
}

// showError must be called with errMu held.
func (w *Worker) showError(err *pyscope.SyntaxError) {
	pos := w.session.ErrorPosition(err)
	w.errShown = true
	w.publish(Update{
		Kind:  KindError,
		Path:  w.path,
		Error: &ErrorSign{Line: pos.Line, Col: pos.Col, Msg: err.Msg},
	})
}
