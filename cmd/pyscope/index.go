package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/jward/pyscope"
)

var (
	flagForce   bool
	flagWorkers int
)

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Index the Python files of a project",
	Long:  "Analyzes every Python file under path and writes the occurrences to the SQLite database. Files whose content is unchanged since the last run are skipped.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&flagForce, "force", false, "delete database and reindex from scratch")
	indexCmd.Flags().IntVar(&flagWorkers, "workers", 0, "files analyzed at once, overrides workers")
}

func runIndex(cmd *cobra.Command, args []string) error {
	start := time.Now()

	targetDir, err := resolveTargetDir(args)
	if err != nil {
		return err
	}
	repoRoot := findRepoRoot(targetDir)
	dbPath := resolveDBPath(repoRoot)

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(dbPath), err)
	}
	if flagForce {
		if err := os.Remove(dbPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing database for --force: %w", err)
		}
		slog.Info("cleared database", "path", dbPath)
	}

	workers := cfg.Workers
	if cmd.Flags().Changed("workers") {
		workers = flagWorkers
	}
	ix, err := pyscope.NewIndexer(dbPath,
		pyscope.WithIndexWorkers(workers),
		pyscope.WithIndexExclude(cfg.ExcludedFiles...),
		pyscope.WithIndexSyntaxFix(cfg.TolerateSyntaxErrors),
		pyscope.WithIndexMaxDepth(cfg.MaxDepth),
		pyscope.WithIndexLogger(slog.Default()),
	)
	if err != nil {
		return fmt.Errorf("creating indexer: %w", err)
	}
	defer ix.Close()

	stats, err := ix.IndexDirectory(cmd.Context(), targetDir)
	if stats == nil {
		return fmt.Errorf("indexing: %w", err)
	}
	if err != nil {
		slog.Warn("some files failed", "error", err)
	}

	slog.Info("indexed", "path", targetDir, "elapsed", since(start),
		"analyzed", stats.Analyzed, "unchanged", stats.Unchanged, "unparsable", stats.Unparsable)

	return outputResult(cmd.OutOrStdout(), CLIResult{
		Command: "index",
		Results: CLIIndexStats{
			Analyzed:   stats.Analyzed,
			Unchanged:  stats.Unchanged,
			Excluded:   stats.Excluded,
			Unparsable: stats.Unparsable,
			Removed:    stats.Removed,
			Failed:     stats.Failed,
			Database:   dbPath,
		},
	})
}

// resolveTargetDir returns the absolute path of the directory to index.
func resolveTargetDir(args []string) (string, error) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving path %q: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("directory not found: %s", abs)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("not a directory: %s", abs)
	}
	return abs, nil
}
