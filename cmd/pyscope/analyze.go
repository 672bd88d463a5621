package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jward/pyscope"
)

var flagCursor string

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Classify the identifiers of a Python file",
	Long:  "Analyzes one file and prints its occurrences. Lines are 1-based, columns are 0-based byte offsets. With --cursor, the occurrences bound like the one at the cursor are listed as selected, following mark_selected_nodes and self_to_attribute.",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&flagCursor, "cursor", "", "cursor position line:col")
	renameCmd.Flags().BoolVarP(&flagWrite, "write", "w", false, "write the result back to the file")
	locationsCmd.Flags().StringVar(&flagFrom, "from", "", "print only the location after line:col")
	locationsCmd.Flags().BoolVar(&flagReverse, "reverse", false, "with --from, print the location before instead")
	rootCmd.AddCommand(locationsCmd)
}

// parseCursor parses "line:col".
func parseCursor(s string) (line, col int, err error) {
	l, c, ok := strings.Cut(s, ":")
	if !ok {
		return 0, 0, fmt.Errorf("invalid cursor %q: want line:col", s)
	}
	line, err = strconv.Atoi(l)
	if err != nil || line < 1 {
		return 0, 0, fmt.Errorf("invalid cursor line %q: must be a positive integer", l)
	}
	col, err = strconv.Atoi(c)
	if err != nil || col < 0 {
		return 0, 0, fmt.Errorf("invalid cursor col %q: must be a non-negative integer", c)
	}
	return line, col, nil
}

// analyzeFile reads path and analyzes it in a fresh Session. An unparsable
// file is not an error; the returned error is nil and unparsable is set.
func analyzeFile(ctx context.Context, path string) (s *pyscope.Session, res *pyscope.Result, unparsable bool, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, false, fmt.Errorf("reading %s: %w", path, err)
	}
	opts, err := sessionOptions()
	if err != nil {
		return nil, nil, false, err
	}
	s = pyscope.NewSession(opts...)
	res, err = s.Analyze(ctx, string(data), true)
	var uerr *pyscope.UnparsableError
	if errors.As(err, &uerr) {
		return s, nil, true, nil
	}
	if err != nil {
		return nil, nil, false, err
	}
	return s, res, false, nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	file, err := resolveFilePath(args[0])
	if err != nil {
		return outputError(cmd, "analyze", err)
	}
	s, res, unparsable, err := analyzeFile(cmd.Context(), file)
	if err != nil {
		return outputError(cmd, "analyze", err)
	}

	out := CLIAnalysis{File: file, Occurrences: []CLIOccurrence{}, Unparsable: unparsable}
	if unparsable {
		_, cur := s.SyntaxErrors()
		out.SyntaxError = syntaxErrorToCLI(cur)
		return outputResult(cmd.OutOrStdout(), CLIResult{Command: "analyze", Results: out})
	}
	out.Occurrences = occurrencesToCLI("", res.Added)
	out.SyntaxError = syntaxErrorToCLI(res.Error)

	if flagCursor != "" && cfg.MarkSelectedNodes > 0 {
		line, col, err := parseCursor(flagCursor)
		if err != nil {
			return outputError(cmd, "analyze", err)
		}
		markAll := pyscope.MarkMode(cfg.MarkSelectedNodes) == pyscope.MarkAll
		out.Selected = occurrencesToCLI("", s.SameOccurrencesAt(line, col, markAll, cfg.SelfToAttribute))
	}

	n := len(out.Occurrences)
	return outputResult(cmd.OutOrStdout(), CLIResult{Command: "analyze", Results: out, TotalCount: &n})
}

var flagWrite bool

var renameCmd = &cobra.Command{
	Use:   "rename <file> <line> <col> <new-name>",
	Short: "Rename the name at a position and everything bound like it",
	Args:  cobra.ExactArgs(4),
	RunE:  runRename,
}

func runRename(cmd *cobra.Command, args []string) error {
	file, err := resolveFilePath(args[0])
	if err != nil {
		return outputError(cmd, "rename", err)
	}
	line, col, err := parseCursor(args[1] + ":" + args[2])
	if err != nil {
		return outputError(cmd, "rename", err)
	}
	s, _, unparsable, err := analyzeFile(cmd.Context(), file)
	if err != nil {
		return outputError(cmd, "rename", err)
	}
	if unparsable {
		return outputError(cmd, "rename", fmt.Errorf("%s has a syntax error", file))
	}

	edits, err := s.Rename(line, col, args[3], cfg.SelfToAttribute)
	if err != nil {
		return outputError(cmd, "rename", err)
	}
	out := CLIRename{File: file}
	for _, e := range edits {
		out.Edits = append(out.Edits, CLIEdit{Line: e.Line, Col: e.Col, EndCol: e.End, Text: e.Text})
	}
	if flagWrite {
		lines, err := pyscope.ApplyEdits(s.Lines(), edits)
		if err != nil {
			return outputError(cmd, "rename", err)
		}
		info, err := os.Stat(file)
		if err != nil {
			return outputError(cmd, "rename", err)
		}
		if err := os.WriteFile(file, []byte(strings.Join(lines, "\n")), info.Mode().Perm()); err != nil {
			return outputError(cmd, "rename", fmt.Errorf("writing %s: %w", file, err))
		}
		out.Written = true
	}
	n := len(out.Edits)
	return outputResult(cmd.OutOrStdout(), CLIResult{Command: "rename", Results: out, TotalCount: &n})
}

var (
	flagFrom    string
	flagReverse bool
)

var locationsCmd = &cobra.Command{
	Use:   "locations <file> <class|function|all|category>",
	Short: "List definition or occurrence positions",
	Long:  "Lists the positions of class and function definitions (the def or class keyword), or of the occurrences in a category. With --from, prints the next position after the cursor, wrapping around.",
	Args:  cobra.ExactArgs(2),
	RunE:  runLocations,
}

func runLocations(cmd *cobra.Command, args []string) error {
	file, err := resolveFilePath(args[0])
	if err != nil {
		return outputError(cmd, "locations", err)
	}
	s, _, unparsable, err := analyzeFile(cmd.Context(), file)
	if err != nil {
		return outputError(cmd, "locations", err)
	}
	if unparsable {
		return outputError(cmd, "locations", fmt.Errorf("%s has a syntax error", file))
	}

	var locs []pyscope.Pos
	switch args[1] {
	case "class":
		locs = s.LocationsOf(pyscope.ClassDefs)
	case "function":
		locs = s.LocationsOf(pyscope.FunctionDefs)
	case "all":
		locs = s.LocationsOf(pyscope.ClassDefs | pyscope.FunctionDefs)
	default:
		c, err := pyscope.ParseCategory(args[1])
		if err != nil {
			return outputError(cmd, "locations", err)
		}
		locs = s.LocationsByCategory(c)
	}

	if flagFrom != "" {
		line, col, err := parseCursor(flagFrom)
		if err != nil {
			return outputError(cmd, "locations", err)
		}
		if len(locs) == 0 {
			return outputResult(cmd.OutOrStdout(), CLIResult{Command: "locations", Results: []CLILocation{}})
		}
		next := pyscope.NextLocation(pyscope.Pos{Line: line, Col: col}, locs, flagReverse)
		locs = []pyscope.Pos{next}
	}

	out := make([]CLILocation, len(locs))
	for i, p := range locs {
		out[i] = CLILocation{File: file, Line: p.Line, Col: p.Col}
	}
	n := len(out)
	return outputResult(cmd.OutOrStdout(), CLIResult{Command: "locations", Results: out, TotalCount: &n})
}

func occurrencesToCLI(file string, occs []*pyscope.Occurrence) []CLIOccurrence {
	out := make([]CLIOccurrence, len(occs))
	for i, o := range occs {
		out[i] = CLIOccurrence{
			ID:       o.ID,
			File:     file,
			Name:     o.Name,
			Category: o.Category.String(),
			Line:     o.Line,
			Col:      o.Col,
			EndCol:   o.End,
		}
	}
	return out
}

func syntaxErrorToCLI(e *pyscope.SyntaxError) *CLISyntaxError {
	if e == nil {
		return nil
	}
	return &CLISyntaxError{Line: e.Line, Offset: e.Offset, Msg: e.Msg}
}
