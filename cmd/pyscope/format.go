package main

import (
	"fmt"
	"io"
	"text/tabwriter"
)

// formatOccurrencesText formats CLIOccurrence results as aligned columns.
func formatOccurrencesText(w io.Writer, occs []CLIOccurrence) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "LOCATION\tNAME\tCATEGORY\tID")
	for _, o := range occs {
		loc := fmt.Sprintf("%d:%d-%d", o.Line, o.Col, o.EndCol)
		if o.File != "" {
			loc = o.File + ":" + loc
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", loc, o.Name, o.Category, o.ID)
	}
	tw.Flush()
}

func formatSyntaxErrorText(w io.Writer, e *CLISyntaxError) {
	fmt.Fprintf(w, "syntax error at %d:%d: %s\n", e.Line, e.Offset, e.Msg)
}

// formatAnalysisText prints the error line first, then the occurrences and
// the selection.
func formatAnalysisText(w io.Writer, a CLIAnalysis) {
	if a.SyntaxError != nil {
		formatSyntaxErrorText(w, a.SyntaxError)
	}
	if a.Unparsable {
		return
	}
	formatOccurrencesText(w, a.Occurrences)
	if len(a.Selected) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Selected:")
		formatOccurrencesText(w, a.Selected)
	}
}

// formatLocationsText formats CLILocation results as "file:line:col" lines.
func formatLocationsText(w io.Writer, locs []CLILocation) {
	for _, loc := range locs {
		fmt.Fprintf(w, "%s:%d:%d\n", loc.File, loc.Line, loc.Col)
	}
}

func formatRenameText(w io.Writer, r CLIRename) {
	for _, e := range r.Edits {
		fmt.Fprintf(w, "%s:%d:%d-%d %s\n", r.File, e.Line, e.Col, e.EndCol, e.Text)
	}
	if r.Written {
		fmt.Fprintf(w, "wrote %s\n", r.File)
	}
}

// formatFilesText formats CLIFile results as aligned columns.
func formatFilesText(w io.Writer, files []CLIFile) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPATH\tLINES\tERROR")
	for _, f := range files {
		errText := ""
		if e := f.SyntaxError; e != nil {
			errText = fmt.Sprintf("%d:%d: %s", e.Line, e.Offset, e.Msg)
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\n", f.ID, f.Path, f.LineCount, errText)
	}
	tw.Flush()
}

func formatCountsText(w io.Writer, counts []CLICategoryCount) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CATEGORY\tCOUNT")
	for _, c := range counts {
		fmt.Fprintf(tw, "%s\t%d\n", c.Category, c.Count)
	}
	tw.Flush()
}

func formatIndexStatsText(w io.Writer, s CLIIndexStats) {
	fmt.Fprintf(w, "Analyzed:   %d\n", s.Analyzed)
	fmt.Fprintf(w, "Unchanged:  %d\n", s.Unchanged)
	fmt.Fprintf(w, "Excluded:   %d\n", s.Excluded)
	fmt.Fprintf(w, "Unparsable: %d\n", s.Unparsable)
	fmt.Fprintf(w, "Removed:    %d\n", s.Removed)
	fmt.Fprintf(w, "Failed:     %d\n", s.Failed)
	fmt.Fprintf(w, "Database:   %s\n", s.Database)
}

// outputResultText dispatches to the appropriate text formatter based on the
// result type.
func outputResultText(w io.Writer, result CLIResult) error {
	switch v := result.Results.(type) {
	case []CLIOccurrence:
		formatOccurrencesText(w, v)
	case CLIAnalysis:
		formatAnalysisText(w, v)
	case []CLILocation:
		formatLocationsText(w, v)
	case CLIRename:
		formatRenameText(w, v)
	case []CLIFile:
		formatFilesText(w, v)
	case []CLICategoryCount:
		formatCountsText(w, v)
	case CLIIndexStats:
		formatIndexStatsText(w, v)
	case nil:
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}

	if result.TotalCount != nil {
		count := *result.TotalCount
		if shown := resultLen(result.Results); shown < count {
			fmt.Fprintf(w, "\nShowing %d of %d results\n", shown, count)
		}
	}
	return nil
}

// resultLen returns the length of a result slice, or 1 for a single value.
func resultLen(v any) int {
	switch r := v.(type) {
	case []CLIOccurrence:
		return len(r)
	case CLIAnalysis:
		return len(r.Occurrences)
	case []CLILocation:
		return len(r)
	case CLIRename:
		return len(r.Edits)
	case []CLIFile:
		return len(r)
	case []CLICategoryCount:
		return len(r)
	case nil:
		return 0
	default:
		return 1
	}
}
