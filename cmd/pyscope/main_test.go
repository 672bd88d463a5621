package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindRepoRoot_DirectGitDir(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))

	assert.Equal(t, root, findRepoRoot(root))
}

func TestFindRepoRoot_NestedSubdirectory(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))
	deep := filepath.Join(root, "sub", "deep")
	require.NoError(t, os.MkdirAll(deep, 0o755))

	assert.Equal(t, root, findRepoRoot(deep))
}

func TestFindRepoRoot_NoGitAncestor(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	assert.Equal(t, dir, findRepoRoot(dir))
}

func TestValidateFormat(t *testing.T) {
	t.Parallel()
	assert.NoError(t, validateFormat("json"))
	assert.NoError(t, validateFormat("text"))
	err := validateFormat("yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "json or text")
}

func TestParseCursor(t *testing.T) {
	t.Parallel()
	line, col, err := parseCursor("12:4")
	require.NoError(t, err)
	assert.Equal(t, 12, line)
	assert.Equal(t, 4, col)

	for _, bad := range []string{"12", "0:4", "a:4", "3:-1", "3:x"} {
		_, _, err := parseCursor(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseScriptArgs(t *testing.T) {
	t.Parallel()
	got, err := parseScriptArgs([]string{"path=a.py", "expr=x=1"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"path": "a.py", "expr": "x=1"}, got)

	_, err = parseScriptArgs([]string{"novalue"})
	require.Error(t, err)
	_, err = parseScriptArgs([]string{"=v"})
	require.Error(t, err)
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	defer func(limit, offset int) { flagLimit, flagOffset = limit, offset }(flagLimit, flagOffset)

	flagLimit, flagOffset = 2, 1
	assert.Equal(t, []int{2, 3}, paginate(items))

	flagLimit, flagOffset = 0, 3
	assert.Equal(t, []int{4, 5}, paginate(items))

	flagLimit, flagOffset = 10, 9
	assert.Empty(t, paginate(items))
}

func TestOutputResultText(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	total := 3
	require.NoError(t, outputResultText(&buf, CLIResult{
		Command: "name",
		Results: []CLIOccurrence{
			{ID: 314001, File: "a.py", Name: "os", Category: "imported", Line: 1, Col: 7, EndCol: 9},
		},
		TotalCount: &total,
	}))
	out := buf.String()
	assert.Contains(t, out, "LOCATION")
	assert.Contains(t, out, "a.py:1:7-9")
	assert.Contains(t, out, "imported")
	assert.Contains(t, out, "Showing 1 of 3 results")
}

func TestOutputResultText_Analysis(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, outputResultText(&buf, CLIResult{
		Command: "analyze",
		Results: CLIAnalysis{
			File:        "a.py",
			Unparsable:  true,
			SyntaxError: &CLISyntaxError{Line: 2, Offset: 5, Msg: "invalid syntax"},
		},
	}))
	assert.Equal(t, "syntax error at 2:5: invalid syntax\n", buf.String())
}

func TestOutputResultText_Unsupported(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	err := outputResultText(&buf, CLIResult{Results: 42})
	require.Error(t, err)
}
