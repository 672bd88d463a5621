package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jward/pyscope/internal/runtime"
	"github.com/jward/pyscope/internal/store"
)

var flagScriptArgs []string

var scriptCmd = &cobra.Command{
	Use:   "script <file.risor>",
	Short: "Run a Risor script with analysis functions",
	Long:  "Runs a Risor program with the analyze, analyze_file, same_occurrences, locations, rename, categories, parse_src, node_text, query and log globals. When the project index exists, db_query, files, occurrences_by_file, occurrences_by_name, scopes_by_file and category_counts are available too. Each --arg key=value becomes a string global.",
	Args:  cobra.ExactArgs(1),
	RunE:  runScript,
}

func init() {
	scriptCmd.Flags().StringArrayVar(&flagScriptArgs, "arg", nil, "key=value global passed to the script")
}

func parseScriptArgs(args []string) (map[string]any, error) {
	globals := make(map[string]any, len(args))
	for _, a := range args {
		k, v, ok := strings.Cut(a, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --arg %q: want key=value", a)
		}
		globals[k] = v
	}
	return globals, nil
}

func runScript(cmd *cobra.Command, args []string) error {
	globals, err := parseScriptArgs(flagScriptArgs)
	if err != nil {
		return err
	}
	path, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("resolving script path: %w", err)
	}

	var s *store.Store
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting cwd: %w", err)
	}
	if dbPath := resolveDBPath(findRepoRoot(cwd)); fileExists(dbPath) {
		s, err = store.NewStore(dbPath)
		if err != nil {
			return fmt.Errorf("opening %s: %w", dbPath, err)
		}
		defer s.Close()
	} else {
		slog.Debug("no index, store functions disabled", "db", dbPath)
	}

	opts, err := sessionOptions()
	if err != nil {
		return err
	}
	rt := runtime.NewRuntime(s, filepath.Dir(path),
		runtime.WithLogger(slog.Default()),
		runtime.WithSessionOptions(opts...),
	)
	return rt.RunScript(cmd.Context(), filepath.Base(path), globals)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
