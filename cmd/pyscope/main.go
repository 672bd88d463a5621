package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jward/pyscope"
	"github.com/jward/pyscope/internal/config"
)

var (
	flagDB      string
	flagFormat  string
	flagConfig  string
	flagVerbose bool

	flagExclude  []string
	flagNoFix    bool
	flagMaxDepth int
)

// cfg is loaded by the root PersistentPreRunE, flags applied.
var cfg *config.Config

// errorHandled is set by outputError so main() doesn't double-print.
var errorHandled bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "pyscope",
	Short:         "Scope-aware semantic highlighting for Python",
	Long:          "pyscope classifies every identifier of a Python file by how it is bound, keeps the classification current while files change, and indexes projects into a SQLite database for queries.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := validateFormat(flagFormat); err != nil {
			return err
		}
		setupLogger(cmd.ErrOrStderr(), flagVerbose)
		c, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		cfg = c
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagDB, "db", "", "database path (default: db from config, relative to repo root)")
	pf.StringVar(&flagFormat, "format", "json", "output format: json|text")
	pf.StringVar(&flagConfig, "config", "", "config file (default: "+config.FileName+" in the repo root)")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "log debug records to stderr")
	pf.StringSliceVar(&flagExclude, "exclude", nil, "categories to hide, overrides excluded_categories")
	pf.BoolVar(&flagNoFix, "no-fix", false, "do not recover from a syntax error on the edited line")
	pf.IntVar(&flagMaxDepth, "max-depth", 0, "nesting bound for parsed code, overrides max_depth")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(renameCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(scriptCmd)
}

func setupLogger(w io.Writer, verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

// loadConfig reads the config file and applies the persistent flags that
// override it.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path := flagConfig
	if path == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("getting cwd: %w", err)
		}
		path = filepath.Join(findRepoRoot(cwd), config.FileName)
	}
	c, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("exclude") {
		c.ExcludedCategories = flagExclude
	}
	if flags.Changed("no-fix") {
		c.TolerateSyntaxErrors = !flagNoFix
	}
	if flags.Changed("max-depth") {
		c.MaxDepth = flagMaxDepth
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return c, nil
}

// sessionOptions builds Session options from cfg.
func sessionOptions() ([]pyscope.Option, error) {
	excluded, err := cfg.Excluded()
	if err != nil {
		return nil, err
	}
	return []pyscope.Option{
		pyscope.WithExclude(excluded...),
		pyscope.WithFixSyntax(cfg.TolerateSyntaxErrors),
		pyscope.WithMaxDepth(cfg.MaxDepth),
		pyscope.WithLogger(slog.Default()),
	}, nil
}

// findRepoRoot walks up from startDir looking for a .git directory.
// Returns the directory containing .git, or startDir if not found.
func findRepoRoot(startDir string) string {
	dir := startDir
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return startDir
		}
		dir = parent
	}
}

// resolveDBPath returns the database path from the --db flag or the
// config, relative paths taken from repoRoot.
func resolveDBPath(repoRoot string) string {
	p := cfg.DB
	if flagDB != "" {
		p = flagDB
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(repoRoot, p)
}

// resolveFilePath converts a file argument to an absolute path.
func resolveFilePath(file string) (string, error) {
	if filepath.IsAbs(file) {
		return file, nil
	}
	abs, err := filepath.Abs(file)
	if err != nil {
		return "", fmt.Errorf("resolving file path %q: %w", file, err)
	}
	return abs, nil
}

// outputResult writes a CLIResult in the selected format.
func outputResult(w io.Writer, result CLIResult) error {
	if flagFormat == "text" {
		return outputResultText(w, result)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. In JSON mode the error is written to stdout as a
// CLIResult envelope. In text mode it goes to stderr.
func outputError(cmd *cobra.Command, command string, err error) error {
	errorHandled = true
	if flagFormat == "text" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", err)
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	_ = enc.Encode(CLIResult{Command: command, Error: err.Error()})
	return err
}

var validFormats = []string{"json", "text"}

func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}

func since(start time.Time) time.Duration {
	return time.Since(start).Round(time.Millisecond)
}
