package pyscope

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Rename
// =============================================================================

func TestRename_Global(t *testing.T) {
	t.Parallel()
	s := NewSession()
	analyze(t, s, "x = 1\ndef f(x):\n    return x\nprint(x)\n")

	edits, err := s.Rename(4, 6, "yy", false)
	require.NoError(t, err)
	assert.Equal(t, []Edit{
		{Line: 1, Col: 0, End: 1, Text: "yy"},
		{Line: 4, Col: 6, End: 7, Text: "yy"},
	}, edits)

	lines, err := ApplyEdits(s.Lines(), edits)
	require.NoError(t, err)
	assert.Equal(t, []string{"yy = 1", "def f(x):", "    return x", "print(yy)", ""}, lines)
}

func TestRename_SameLine(t *testing.T) {
	t.Parallel()
	s := NewSession()
	analyze(t, s, "def f(a):\n    return a + a * a\n")

	edits, err := s.Rename(1, 6, "value", false)
	require.NoError(t, err)
	require.Len(t, edits, 4)

	lines, err := ApplyEdits(s.Lines(), edits)
	require.NoError(t, err)
	assert.Equal(t, "def f(value):", lines[0])
	assert.Equal(t, "    return value + value * value", lines[1])
}

func TestRename_SelfTarget(t *testing.T) {
	t.Parallel()
	s := NewSession()
	analyze(t, s, "class A:\n    def m(self):\n        self.v = 1\n    def n(self):\n        self.v\n")

	edits, err := s.Rename(5, 8, "w", true)
	require.NoError(t, err)
	assert.Equal(t, []Edit{
		{Line: 3, Col: 13, End: 14, Text: "w"},
		{Line: 5, Col: 13, End: 14, Text: "w"},
	}, edits)
}

func TestRename_NothingToRename(t *testing.T) {
	t.Parallel()
	s := NewSession()
	analyze(t, s, "x = 1\n")

	_, err := s.Rename(1, 4, "y", false)
	assert.ErrorIs(t, err, ErrNothingToRename)
	_, err = s.Rename(1, 0, "x", false)
	assert.ErrorIs(t, err, ErrNothingToRename)
	_, err = s.Rename(1, 0, "", false)
	assert.ErrorIs(t, err, ErrNothingToRename)
}

// =============================================================================
// ApplyEdits
// =============================================================================

func TestApplyEdits_Unordered(t *testing.T) {
	t.Parallel()
	lines, err := ApplyEdits([]string{"a + a", "a"}, []Edit{
		{Line: 1, Col: 4, End: 5, Text: "bb"},
		{Line: 2, Col: 0, End: 1, Text: ""},
		{Line: 1, Col: 0, End: 1, Text: "bb"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"bb + bb", ""}, lines)
}

func TestApplyEdits_DoesNotModifyInput(t *testing.T) {
	t.Parallel()
	in := []string{"abc"}
	_, err := ApplyEdits(in, []Edit{{Line: 1, Col: 0, End: 3, Text: "x"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"abc"}, in)
}

func TestApplyEdits_Errors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		edits []Edit
	}{
		{"line out of range", []Edit{{Line: 3, Col: 0, End: 1}}},
		{"line zero", []Edit{{Line: 0, Col: 0, End: 1}}},
		{"past end of line", []Edit{{Line: 1, Col: 2, End: 9}}},
		{"inverted", []Edit{{Line: 1, Col: 2, End: 1}}},
		{"overlap", []Edit{{Line: 1, Col: 0, End: 2}, {Line: 1, Col: 1, End: 3}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ApplyEdits([]string{"abcd", "ef"}, tt.edits)
			assert.Error(t, err)
		})
	}
}

// =============================================================================
// Goto
// =============================================================================

func TestNextLocation(t *testing.T) {
	t.Parallel()
	locs := []Pos{{5, 0}, {1, 0}, {3, 4}}
	tests := []struct {
		name    string
		here    Pos
		reverse bool
		want    Pos
	}{
		{"forward", Pos{1, 0}, false, Pos{3, 4}},
		{"backward", Pos{3, 4}, true, Pos{1, 0}},
		{"wrap forward", Pos{5, 0}, false, Pos{1, 0}},
		{"wrap backward", Pos{1, 0}, true, Pos{5, 0}},
		{"between", Pos{3, 0}, false, Pos{3, 4}},
		{"between backward", Pos{3, 0}, true, Pos{1, 0}},
		{"after last", Pos{9, 0}, false, Pos{1, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, NextLocation(tt.here, locs, tt.reverse))
		})
	}
}

func TestNextLocation_Empty(t *testing.T) {
	t.Parallel()
	assert.Equal(t, Pos{2, 1}, NextLocation(Pos{2, 1}, nil, false))
}

func TestFirstLastLocation(t *testing.T) {
	t.Parallel()
	locs := []Pos{{5, 0}, {1, 3}, {1, 0}}
	first, ok := FirstLocation(locs)
	require.True(t, ok)
	assert.Equal(t, Pos{1, 0}, first)
	last, ok := LastLocation(locs)
	require.True(t, ok)
	assert.Equal(t, Pos{5, 0}, last)

	_, ok = FirstLocation(nil)
	assert.False(t, ok)
	_, ok = LastLocation(nil)
	assert.False(t, ok)
}
