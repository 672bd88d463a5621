package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jward/pyscope"
	"github.com/jward/pyscope/internal/store"
)

var (
	flagLimit  int
	flagOffset int
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query the project index",
	Long:  "Run queries against an indexed project. Lines are 1-based, columns are 0-based byte offsets.",
}

func init() {
	queryCmd.PersistentFlags().IntVar(&flagLimit, "limit", 50, "pagination limit (max 500, 0 for all)")
	queryCmd.PersistentFlags().IntVar(&flagOffset, "offset", 0, "pagination offset")

	queryCmd.AddCommand(fileCmd)
	queryCmd.AddCommand(categoryCmd)
	queryCmd.AddCommand(nameCmd)
	queryCmd.AddCommand(sameCmd)
	queryCmd.AddCommand(summaryCmd)
	queryCmd.AddCommand(filesCmd)
	queryCmd.AddCommand(unparsableCmd)
}

// --- Helpers ---

// openStore opens the Store from the --db flag path (or config).
func openStore() (*store.Store, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting cwd: %w", err)
	}
	dbPath := resolveDBPath(findRepoRoot(cwd))

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("database not found: %s (run 'pyscope index' first)", dbPath)
	}
	return store.NewStore(dbPath)
}

// paginate applies --limit and --offset to results.
func paginate[T any](items []T) []T {
	limit := min(flagLimit, 500)
	if flagOffset >= len(items) {
		return []T{}
	}
	items = items[flagOffset:]
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

// withStore runs fn with an open QueryBuilder and prints its results.
func withStore(cmd *cobra.Command, command string, fn func(*store.Store, *pyscope.QueryBuilder) (any, int, error)) error {
	s, err := openStore()
	if err != nil {
		return outputError(cmd, command, err)
	}
	defer s.Close()

	results, total, err := fn(s, pyscope.NewQueryBuilder(s))
	if err != nil {
		return outputError(cmd, command, err)
	}
	return outputResult(cmd.OutOrStdout(), CLIResult{Command: command, Results: results, TotalCount: &total})
}

// storedToCLI converts stored occurrences, looking up file paths once per
// file.
func storedToCLI(s *store.Store, occs []*pyscope.StoredOccurrence) ([]CLIOccurrence, error) {
	paths := map[int64]string{}
	out := make([]CLIOccurrence, len(occs))
	for i, o := range occs {
		path, ok := paths[o.FileID]
		if !ok {
			var err error
			path, err = lookupFilePath(s, o.FileID)
			if err != nil {
				return nil, err
			}
			paths[o.FileID] = path
		}
		out[i] = CLIOccurrence{
			ID:       o.HighlightID,
			File:     path,
			Name:     o.Name,
			Category: o.Category,
			Line:     o.Line,
			Col:      o.Col,
			EndCol:   o.EndCol,
		}
	}
	return out, nil
}

func lookupFilePath(s *store.Store, fileID int64) (string, error) {
	var path string
	if err := s.DB().QueryRow("SELECT path FROM files WHERE id = ?", fileID).Scan(&path); err != nil {
		return "", fmt.Errorf("looking up file %d: %w", fileID, err)
	}
	return path, nil
}

func pagedOccurrences(s *store.Store, occs []*pyscope.StoredOccurrence) (any, int, error) {
	cli, err := storedToCLI(s, paginate(occs))
	if err != nil {
		return nil, 0, err
	}
	return cli, len(occs), nil
}

func filesToCLI(files []*pyscope.File) []CLIFile {
	out := make([]CLIFile, len(files))
	for i, f := range files {
		out[i] = CLIFile{ID: f.ID, Path: f.Path, LineCount: f.LineCount}
		if f.Unparsable {
			out[i].SyntaxError = &CLISyntaxError{Line: f.ErrorLine, Offset: f.ErrorOffset, Msg: f.ErrorMsg}
		}
	}
	return out
}

// --- Commands ---

var fileCmd = &cobra.Command{
	Use:   "file <file>",
	Short: "List the occurrences of a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, err := resolveFilePath(args[0])
		if err != nil {
			return outputError(cmd, "file", err)
		}
		return withStore(cmd, "file", func(s *store.Store, qb *pyscope.QueryBuilder) (any, int, error) {
			occs, err := qb.OccurrencesByFile(file)
			if err != nil {
				return nil, 0, err
			}
			if occs == nil {
				return nil, 0, fmt.Errorf("file not indexed: %s", file)
			}
			return pagedOccurrences(s, occs)
		})
	},
}

var categoryCmd = &cobra.Command{
	Use:   "category <category>...",
	Short: "List occurrences in the given categories",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cats := make([]pyscope.Category, len(args))
		for i, a := range args {
			c, err := pyscope.ParseCategory(a)
			if err != nil {
				return outputError(cmd, "category", err)
			}
			cats[i] = c
		}
		return withStore(cmd, "category", func(s *store.Store, qb *pyscope.QueryBuilder) (any, int, error) {
			occs, err := qb.OccurrencesByCategory(cats...)
			if err != nil {
				return nil, 0, err
			}
			return pagedOccurrences(s, occs)
		})
	},
}

var nameCmd = &cobra.Command{
	Use:   "name <name>",
	Short: "List occurrences spelled name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, "name", func(s *store.Store, qb *pyscope.QueryBuilder) (any, int, error) {
			occs, err := qb.OccurrencesByName(args[0])
			if err != nil {
				return nil, 0, err
			}
			return pagedOccurrences(s, occs)
		})
	},
}

var sameCmd = &cobra.Command{
	Use:   "same <file> <line> <col>",
	Short: "List the occurrences bound like the one at a position",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, err := resolveFilePath(args[0])
		if err != nil {
			return outputError(cmd, "same", err)
		}
		line, col, err := parseCursor(args[1] + ":" + args[2])
		if err != nil {
			return outputError(cmd, "same", err)
		}
		return withStore(cmd, "same", func(s *store.Store, qb *pyscope.QueryBuilder) (any, int, error) {
			occs, err := qb.SameOccurrencesAt(file, line, col)
			if err != nil {
				return nil, 0, err
			}
			return pagedOccurrences(s, occs)
		})
	},
}

var summaryCmd = &cobra.Command{
	Use:   "summary [file]...",
	Short: "Count occurrences per category",
	RunE: func(cmd *cobra.Command, args []string) error {
		files := make([]string, len(args))
		for i, a := range args {
			f, err := resolveFilePath(a)
			if err != nil {
				return outputError(cmd, "summary", err)
			}
			files[i] = f
		}
		return withStore(cmd, "summary", func(s *store.Store, qb *pyscope.QueryBuilder) (any, int, error) {
			counts, err := qb.Summary(files...)
			if err != nil {
				return nil, 0, err
			}
			out := make([]CLICategoryCount, len(counts))
			for i, c := range counts {
				out[i] = CLICategoryCount{Category: c.Category, Count: c.Count}
			}
			return out, len(out), nil
		})
	},
}

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "List indexed files",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, "files", func(s *store.Store, qb *pyscope.QueryBuilder) (any, int, error) {
			files, err := qb.Files()
			if err != nil {
				return nil, 0, err
			}
			return filesToCLI(paginate(files)), len(files), nil
		})
	},
}

var unparsableCmd = &cobra.Command{
	Use:   "unparsable",
	Short: "List indexed files that stopped at a syntax error",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, "unparsable", func(s *store.Store, qb *pyscope.QueryBuilder) (any, int, error) {
			files, err := qb.Unparsable()
			if err != nil {
				return nil, 0, err
			}
			return filesToCLI(paginate(files)), len(files), nil
		})
	},
}
