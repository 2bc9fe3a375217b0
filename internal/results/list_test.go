package results

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csheth/pneo/internal/paper"
)

func entries(n int) []paper.Entry {
	out := make([]paper.Entry, n)
	for i := range out {
		out[i] = paper.Entry{ID: fmt.Sprint(i), Title: fmt.Sprintf("Paper %d", i)}
	}
	return out
}

func TestSetEntriesResetsSelectionAndScroll(t *testing.T) {
	l := New()
	l.SetEntries(entries(30))
	l.MoveSelection(20)
	l.ScrollIntoView(5)
	require.NotZero(t, l.Offset())

	l.SetEntries(entries(3))
	idx, ok := l.Selected()
	assert.True(t, ok)
	assert.Equal(t, 0, idx)
	assert.Equal(t, 0, l.Offset())
}

func TestSetEntriesEmpty(t *testing.T) {
	l := New()
	l.SetEntries(entries(4))
	l.SetEntries(nil)

	_, ok := l.Selected()
	assert.False(t, ok)
	_, ok = l.Current()
	assert.False(t, ok)
	assert.Equal(t, 0, l.Offset())
	assert.False(t, l.MoveSelection(1))
}

func TestMoveSelectionClamps(t *testing.T) {
	l := New()
	l.SetEntries(entries(5))

	assert.False(t, l.MoveSelection(-1), "already at the top")
	assert.True(t, l.MoveSelection(10))
	idx, _ := l.Selected()
	assert.Equal(t, 4, idx)
	assert.False(t, l.MoveSelection(1), "already at the bottom")

	cur, ok := l.Current()
	require.True(t, ok)
	assert.Equal(t, "4", cur.ID)
}

func TestMoveSelectionDoesNotScroll(t *testing.T) {
	l := New()
	l.SetEntries(entries(20))
	l.MoveSelection(15)
	assert.Equal(t, 0, l.Offset())

	l.ScrollIntoView(5)
	assert.Equal(t, 11, l.Offset())
}

func TestScrollIntoView(t *testing.T) {
	tests := []struct {
		name     string
		n        int
		selected int
		offset   int
		height   int
		want     int
	}{
		{name: "visible", n: 20, selected: 3, offset: 0, height: 5, want: 0},
		{name: "below", n: 20, selected: 9, offset: 0, height: 5, want: 5},
		{name: "above", n: 20, selected: 2, offset: 8, height: 5, want: 2},
		{name: "fill viewport after shrink", n: 6, selected: 5, offset: 5, height: 4, want: 2},
		{name: "short list", n: 3, selected: 2, offset: 0, height: 10, want: 0},
		{name: "zero height", n: 10, selected: 7, offset: 0, height: 0, want: 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := New()
			l.SetEntries(entries(tt.n))
			l.selected = tt.selected
			l.offset = tt.offset
			l.ScrollIntoView(tt.height)
			assert.Equal(t, tt.want, l.Offset())
		})
	}
}

func TestScrollIntoViewIdempotent(t *testing.T) {
	l := New()
	l.SetEntries(entries(50))
	l.MoveSelection(37)

	l.ScrollIntoView(8)
	first := l.Offset()
	l.ScrollIntoView(8)
	assert.Equal(t, first, l.Offset())
}

func TestIndexAt(t *testing.T) {
	l := New()
	l.SetEntries(entries(12))
	l.MoveSelection(11)
	l.ScrollIntoView(4)

	idx, ok := l.IndexAt(0)
	require.True(t, ok)
	assert.Equal(t, 8, idx)
	_, ok = l.IndexAt(4)
	assert.False(t, ok)
	_, ok = l.IndexAt(-1)
	assert.False(t, ok)
}

func TestSelectionInvariantUnderRandomMoves(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	l := New()
	for i := 0; i < 2000; i++ {
		switch rng.Intn(4) {
		case 0:
			l.SetEntries(entries(rng.Intn(15)))
		case 1:
			l.Select(rng.Intn(20) - 2)
		default:
			l.MoveSelection(rng.Intn(25) - 12)
		}
		l.ScrollIntoView(rng.Intn(8))

		idx, ok := l.Selected()
		if l.Len() == 0 {
			require.False(t, ok, "step %d", i)
		} else {
			require.True(t, ok, "step %d", i)
			require.GreaterOrEqual(t, idx, 0)
			require.Less(t, idx, l.Len())
		}
		maxOffset := l.Len() - 1
		if maxOffset < 0 {
			maxOffset = 0
		}
		require.LessOrEqual(t, l.Offset(), maxOffset, "step %d", i)
	}
}
