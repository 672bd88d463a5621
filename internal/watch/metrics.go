package watch

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Analysis outcomes counted by Metrics.Analyses.
const (
	OutcomeOK         = "ok"
	OutcomeUnparsable = "unparsable"
	OutcomeFailed     = "failed"
	OutcomePanic      = "panic"
)

// Metrics are the Prometheus collectors of a Host.
type Metrics struct {
	Events          prometheus.Counter
	Analyses        *prometheus.CounterVec
	AnalysisSeconds prometheus.Histogram
	Occurrences     *prometheus.GaugeVec
	Workers         prometheus.Gauge
}

// NewMetrics registers the collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Events: f.NewCounter(prometheus.CounterOpts{
			Name: "pyscope_watch_events_total",
			Help: "Total number of file system events received by the watcher.",
		}),
		Analyses: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pyscope_analyses_total",
			Help: "Total number of worker runs by outcome.",
		}, []string{"outcome"}),
		AnalysisSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "pyscope_analysis_seconds",
			Help:    "Time spent analyzing one revision of a file.",
			Buckets: prometheus.DefBuckets,
		}),
		Occurrences: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pyscope_retained_occurrences",
			Help: "Number of occurrences retained for a watched file.",
		}, []string{"path"}),
		Workers: f.NewGauge(prometheus.GaugeOpts{
			Name: "pyscope_workers",
			Help: "Number of files with a live worker.",
		}),
	}
}

// MetricsServer serves /metrics and /health.
type MetricsServer struct {
	addr     string
	gatherer prometheus.Gatherer
	logger   *slog.Logger
	server   *http.Server
}

func NewMetricsServer(addr string, g prometheus.Gatherer, logger *slog.Logger) *MetricsServer {
	return &MetricsServer{addr: addr, gatherer: g, logger: logger}
}

// Handler returns the mux served by Start.
func (s *MetricsServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "up"})
	})
	return mux
}

// Start listens in the background until Stop.
func (s *MetricsServer) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:    s.addr,
		Handler: s.Handler(),
	}

	s.logger.Info("metrics server starting", "addr", s.addr)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("metrics server failed", "error", err)
		}
	}()
	return nil
}

func (s *MetricsServer) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
