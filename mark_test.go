package pyscope

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelected(t *testing.T) {
	t.Parallel()
	s := NewSession()
	analyze(t, s, "x = 1\nx\nx\n")

	assert.Nil(t, s.Selected(2, 0, MarkNone, false, [2]int{1, 3}))
	assert.Equal(t, []Highlight{
		{ID: MarkID, Category: Selected, Line: 0, Col: 0, End: 1},
	}, s.Selected(2, 0, MarkOthers, false, [2]int{1, 2}))
	assert.Len(t, s.Selected(2, 0, MarkAll, false, [2]int{1, 3}), 3)
	assert.Empty(t, s.Selected(2, 1, MarkAll, false, [2]int{1, 3}))
}

func TestHighlights(t *testing.T) {
	t.Parallel()
	s := NewSession()
	res := analyze(t, s, "import os\n")
	hs := Highlights(res.Added)
	assert.Equal(t, []Highlight{
		{ID: res.Added[0].ID, Category: Imported, Line: 0, Col: 7, End: 9},
	}, hs)
}
