package main

// CLIResult is the top-level JSON envelope for all commands except watch,
// which streams updates.
type CLIResult struct {
	Command    string `json:"command"`
	Results    any    `json:"results"`
	TotalCount *int   `json:"total_count,omitempty"`
	Error      string `json:"error,omitempty"`
}

// CLIOccurrence is a JSON-friendly occurrence. Lines are 1-based, columns
// 0-based byte offsets.
type CLIOccurrence struct {
	ID       int    `json:"id"`
	File     string `json:"file,omitempty"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Line     int    `json:"line"`
	Col      int    `json:"col"`
	EndCol   int    `json:"end_col"`
}

// CLISyntaxError locates a syntax error. Offset is 1-based.
type CLISyntaxError struct {
	Line   int    `json:"line"`
	Offset int    `json:"offset"`
	Msg    string `json:"msg"`
}

// CLIAnalysis is the result of analyze.
type CLIAnalysis struct {
	File        string          `json:"file"`
	Occurrences []CLIOccurrence `json:"occurrences"`
	SyntaxError *CLISyntaxError `json:"syntax_error,omitempty"`
	Unparsable  bool            `json:"unparsable,omitempty"`
	// Selected holds the occurrences bound like the one at --cursor.
	Selected []CLIOccurrence `json:"selected,omitempty"`
}

// CLILocation is a definition or occurrence position.
type CLILocation struct {
	File string `json:"file"`
	Line int    `json:"line"`
	Col  int    `json:"col"`
}

// CLIEdit is one replacement made by rename.
type CLIEdit struct {
	Line   int    `json:"line"`
	Col    int    `json:"col"`
	EndCol int    `json:"end_col"`
	Text   string `json:"text"`
}

// CLIRename is the result of rename.
type CLIRename struct {
	File    string    `json:"file"`
	Edits   []CLIEdit `json:"edits"`
	Written bool      `json:"written"`
}

// CLIFile is a JSON-friendly indexed file.
type CLIFile struct {
	ID          int64           `json:"id"`
	Path        string          `json:"path"`
	LineCount   int             `json:"line_count"`
	SyntaxError *CLISyntaxError `json:"syntax_error,omitempty"`
}

// CLICategoryCount is one row of a summary.
type CLICategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// CLIIndexStats reports what index did.
type CLIIndexStats struct {
	Analyzed   int    `json:"analyzed"`
	Unchanged  int    `json:"unchanged"`
	Excluded   int    `json:"excluded"`
	Unparsable int    `json:"unparsable"`
	Removed    int    `json:"removed"`
	Failed     int    `json:"failed"`
	Database   string `json:"database"`
}
