package watch

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/pyscope"
)

// chanSink delivers every update on a buffered channel.
type chanSink struct {
	ch chan Update
}

func newChanSink() *chanSink { return &chanSink{ch: make(chan Update, 64)} }

func (s *chanSink) Publish(u Update) error {
	s.ch <- u
	return nil
}

func (s *chanSink) next(t *testing.T) Update {
	t.Helper()
	select {
	case u := <-s.ch:
		return u
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for update")
		return Update{}
	}
}

func (s *chanSink) none(t *testing.T, wait time.Duration) {
	t.Helper()
	select {
	case u := <-s.ch:
		t.Fatalf("unexpected update %+v", u)
	case <-time.After(wait):
	}
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newTestWorker(t *testing.T, content string, cfg WorkerConfig, sink Sink) (*Worker, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mod.py")
	writeFile(t, path, content)
	m := NewMetrics(prometheus.NewRegistry())
	return NewWorker(path, pyscope.NewSession(), cfg, sink, m, discard()), path
}

// =============================================================================
// Highlights
// =============================================================================

func TestWorker_PublishesHighlights(t *testing.T) {
	t.Parallel()
	sink := newChanSink()
	w, path := newTestWorker(t, "import os\nos.sep\n", WorkerConfig{}, sink)

	w.Trigger(context.Background())
	u := sink.next(t)
	assert.Equal(t, KindHighlights, u.Kind)
	assert.Equal(t, path, u.Path)
	assert.Equal(t, 1, u.Tick)
	require.Len(t, u.Add, 2)
	assert.Equal(t, pyscope.Imported, u.Add[0].Category)
	assert.Equal(t, 0, u.Add[0].Line)
	assert.Equal(t, 1, u.Add[1].Line)
	assert.Empty(t, u.Remove)
	w.Wait()

	assert.Equal(t, 1.0, testutil.ToFloat64(w.metrics.Analyses.WithLabelValues(OutcomeOK)))
	assert.Equal(t, 2.0, testutil.ToFloat64(w.metrics.Occurrences.WithLabelValues(path)))
}

func TestWorker_MinimalUpdate(t *testing.T) {
	t.Parallel()
	sink := newChanSink()
	w, path := newTestWorker(t, "a = 1\nb = a\n", WorkerConfig{}, sink)

	w.Trigger(context.Background())
	first := sink.next(t)
	require.Len(t, first.Add, 3)
	w.Wait()

	writeFile(t, path, "a = 1\nc = a\n")
	w.Trigger(context.Background())
	second := sink.next(t)
	require.Len(t, second.Add, 1)
	assert.Equal(t, pyscope.Highlight{ID: second.Add[0].ID, Category: pyscope.Global, Line: 1, Col: 0, End: 1}, second.Add[0])
	require.Len(t, second.Remove, 1)
	assert.Equal(t, first.Add[1].ID, second.Remove[0])
	w.Wait()
}

func TestWorker_ForceAll(t *testing.T) {
	t.Parallel()
	sink := newChanSink()
	w, path := newTestWorker(t, "a = 1\nb = a\n", WorkerConfig{ForceAll: true}, sink)

	w.Trigger(context.Background())
	sink.next(t)
	w.Wait()

	writeFile(t, path, "a = 1\nc = a\n")
	w.Trigger(context.Background())
	u := sink.next(t)
	assert.Len(t, u.Add, 3)
	assert.Len(t, u.Remove, 3)
	w.Wait()
}

func TestWorker_NoChangeNoUpdate(t *testing.T) {
	t.Parallel()
	sink := newChanSink()
	w, _ := newTestWorker(t, "a = 1\n", WorkerConfig{}, sink)

	w.Trigger(context.Background())
	sink.next(t)
	w.Wait()

	w.Trigger(context.Background())
	w.Wait()
	sink.none(t, 50*time.Millisecond)
	assert.Equal(t, 2, w.Session().Tick())
}

// =============================================================================
// Rerun flag
// =============================================================================

// gateSink blocks the first Publish until release is closed.
type gateSink struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
	mu      sync.Mutex
	updates []Update
}

func (s *gateSink) Publish(u Update) error {
	first := false
	s.once.Do(func() { first = true })
	if first {
		close(s.entered)
		<-s.release
	}
	s.mu.Lock()
	s.updates = append(s.updates, u)
	s.mu.Unlock()
	return nil
}

func TestWorker_TriggerDuringRunCoalesces(t *testing.T) {
	t.Parallel()
	sink := &gateSink{entered: make(chan struct{}), release: make(chan struct{})}
	w, path := newTestWorker(t, "a = 1\n\n", WorkerConfig{}, sink)

	w.Trigger(context.Background())
	<-sink.entered

	writeFile(t, path, "a = 1\nb = 2\n")
	w.Trigger(context.Background())
	w.Trigger(context.Background())
	w.Trigger(context.Background())
	close(sink.release)
	w.Wait()

	assert.Equal(t, 2, w.Session().Tick())
	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Len(t, sink.updates, 2)
	require.Len(t, sink.updates[1].Add, 1)
	assert.Equal(t, 1, sink.updates[1].Add[0].Line)
}

func TestWorker_DelayScalesWithLines(t *testing.T) {
	t.Parallel()
	w, _ := newTestWorker(t, "a = 1\nb = 2\nc = 3\n", WorkerConfig{DelayFactor: 0.01}, newChanSink())
	assert.Zero(t, w.delay())

	w.Trigger(context.Background())
	w.Wait()
	assert.Equal(t, 40*time.Millisecond, w.delay().Round(time.Millisecond))
}

func TestWorker_CanceledDuringDelay(t *testing.T) {
	t.Parallel()
	sink := newChanSink()
	w, _ := newTestWorker(t, "a = 1\n", WorkerConfig{DelayFactor: 60}, sink)
	w.Trigger(context.Background())
	sink.next(t)
	w.Wait()

	ctx, cancel := context.WithCancel(context.Background())
	w.Trigger(ctx)
	cancel()
	w.Wait()
	assert.Equal(t, 1, w.Session().Tick())
}

// =============================================================================
// Failures
// =============================================================================

func TestWorker_RecoversPanic(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	w, _ := newTestWorker(t, "a = 1\n", WorkerConfig{}, newChanSink())
	w.logger = slog.New(slog.NewTextHandler(&buf, nil))
	w.readFile = func(string) ([]byte, error) { panic("boom") }

	w.Trigger(context.Background())
	w.Wait()
	assert.Equal(t, 1.0, testutil.ToFloat64(w.metrics.Analyses.WithLabelValues(OutcomePanic)))
	assert.Contains(t, buf.String(), "worker panic")
	assert.Contains(t, buf.String(), "boom")

	// The worker stays usable.
	w.readFile = os.ReadFile
	w.Trigger(context.Background())
	w.Wait()
	assert.Equal(t, 1, w.Session().Tick())
}

func TestWorker_ReadFailure(t *testing.T) {
	t.Parallel()
	w, path := newTestWorker(t, "a = 1\n", WorkerConfig{}, newChanSink())
	require.NoError(t, os.Remove(path))

	w.Trigger(context.Background())
	w.Wait()
	assert.Equal(t, 1.0, testutil.ToFloat64(w.metrics.Analyses.WithLabelValues(OutcomeFailed)))
	assert.Equal(t, 0, w.Session().Tick())
}

func TestWorker_Unparsable(t *testing.T) {
	t.Parallel()
	sink := newChanSink()
	w, path := newTestWorker(t, "a = 1\n", WorkerConfig{}, sink)
	w.Trigger(context.Background())
	sink.next(t)
	w.Wait()

	writeFile(t, path, "(\n(\n")
	w.Trigger(context.Background())
	w.Wait()
	sink.none(t, 50*time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(w.metrics.Analyses.WithLabelValues(OutcomeUnparsable)))
	assert.Len(t, w.Session().Occurrences(), 1)
}

// =============================================================================
// Error indicator
// =============================================================================

func TestWorker_ErrorSignDelayed(t *testing.T) {
	t.Parallel()
	sink := newChanSink()
	cfg := WorkerConfig{ErrorSign: true, ErrorSignDelay: 30 * time.Millisecond}
	w, path := newTestWorker(t, "a  a = b in\n", cfg, sink)

	start := time.Now()
	w.Trigger(context.Background())
	assert.Equal(t, KindHighlights, sink.next(t).Kind)
	u := sink.next(t)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
	require.Equal(t, KindError, u.Kind)
	require.NotNil(t, u.Error)
	assert.Equal(t, 1, u.Error.Line)
	assert.NotEmpty(t, u.Error.Msg)
	w.Wait()

	writeFile(t, path, "a = b\n")
	w.Trigger(context.Background())
	w.Wait()
	var kinds []string
	for len(sink.ch) > 0 {
		kinds = append(kinds, (<-sink.ch).Kind)
	}
	assert.Contains(t, kinds, KindErrorCleared)
}

func TestWorker_ErrorSignShownAtOnceWhenAlreadyShown(t *testing.T) {
	t.Parallel()
	sink := newChanSink()
	cfg := WorkerConfig{ErrorSign: true}
	w, path := newTestWorker(t, "a  a = b in\n", cfg, sink)

	w.Trigger(context.Background())
	w.Wait()
	sink.next(t)
	assert.Equal(t, KindError, sink.next(t).Kind)

	w.cfg.ErrorSignDelay = time.Hour
	writeFile(t, path, "b = c  d\n")
	w.Trigger(context.Background())
	w.Wait()
	var last Update
	for len(sink.ch) > 0 {
		last = <-sink.ch
	}
	assert.Equal(t, KindError, last.Kind)
}

func TestWorker_ErrorSignDisabled(t *testing.T) {
	t.Parallel()
	sink := newChanSink()
	w, _ := newTestWorker(t, "a  a = b in\n", WorkerConfig{}, sink)
	w.Trigger(context.Background())
	w.Wait()
	assert.Equal(t, KindHighlights, sink.next(t).Kind)
	sink.none(t, 50*time.Millisecond)
}

// =============================================================================
// JSONSink
// =============================================================================

func TestJSONSink_WritesLines(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	sink := NewJSONSink(&buf)
	require.NoError(t, sink.Publish(Update{
		Kind: KindHighlights,
		Path: "a.py",
		Tick: 1,
		Add:  []pyscope.Highlight{{ID: 314001, Category: pyscope.Builtin, Line: 0, Col: 0, End: 3}},
	}))
	require.NoError(t, sink.Publish(Update{Kind: KindClosed, Path: "a.py"}))

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var got map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &got))
	assert.Equal(t, "highlights", got["kind"])
	add := got["add"].([]any)[0].(map[string]any)
	assert.Equal(t, "builtin", add["category"])
	assert.Equal(t, float64(314001), add["id"])
	assert.JSONEq(t, `{"kind":"closed","path":"a.py"}`, string(lines[1]))
}
