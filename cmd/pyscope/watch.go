package main

import (
	"fmt"
	"log/slog"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jward/pyscope/internal/watch"
)

var (
	flagMetricsAddr string
	flagDebounce    time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch [path]...",
	Short: "Stream highlight updates while Python files change",
	Long:  "Analyzes the Python files under each path, then re-analyzes every file that changes on disk. Updates are written to stdout as JSON lines: added highlights and removed highlight ids, plus the syntax error indicator. Stops on SIGINT or SIGTERM.",
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&flagMetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, overrides metrics_addr")
	watchCmd.Flags().DurationVar(&flagDebounce, "debounce", 0, "quiet period before changed files are analyzed, overrides debounce")
}

func runWatch(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		args = []string{"."}
	}
	roots := make([]string, len(args))
	for i, a := range args {
		abs, err := filepath.Abs(a)
		if err != nil {
			return fmt.Errorf("resolving path %q: %w", a, err)
		}
		roots[i] = abs
	}

	if cmd.Flags().Changed("metrics-addr") {
		cfg.MetricsAddr = flagMetricsAddr
	}
	if cmd.Flags().Changed("debounce") {
		cfg.Debounce = flagDebounce
	}

	host, err := watch.NewHost(cfg, watch.NewJSONSink(cmd.OutOrStdout()), watch.WithHostLogger(slog.Default()))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return host.Run(ctx, roots)
}
