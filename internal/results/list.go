// Package results holds the ordered search hits together with the selection
// and the scroll offset of the list viewport.
package results

import "github.com/csheth/pneo/internal/paper"

// List is the scrollable, selectable result list. Selection and scrolling
// are independent: MoveSelection never touches the offset, ScrollIntoView
// reconciles them.
type List struct {
	entries  []paper.Entry
	selected int // -1 when nothing is selected
	offset   int
}

// New returns an empty list.
func New() *List {
	return &List{selected: -1}
}

// SetEntries replaces the entries, selects the first one (if any) and
// scrolls back to the top.
func (l *List) SetEntries(entries []paper.Entry) {
	l.entries = append([]paper.Entry(nil), entries...)
	l.offset = 0
	if len(l.entries) == 0 {
		l.selected = -1
		return
	}
	l.selected = 0
}

// MoveSelection moves the selection by delta, clamped to the valid range.
// It reports whether the selection changed.
func (l *List) MoveSelection(delta int) bool {
	if len(l.entries) == 0 {
		return false
	}
	next := l.selected + delta
	if next < 0 {
		next = 0
	}
	if next > len(l.entries)-1 {
		next = len(l.entries) - 1
	}
	if next == l.selected {
		return false
	}
	l.selected = next
	return true
}

// Select selects index if it is valid and reports whether the selection
// changed.
func (l *List) Select(index int) bool {
	if index < 0 || index >= len(l.entries) || index == l.selected {
		return false
	}
	l.selected = index
	return true
}

// IndexAt maps a row of the viewport to an entry index.
func (l *List) IndexAt(row int) (int, bool) {
	if row < 0 {
		return 0, false
	}
	idx := l.offset + row
	if idx >= len(l.entries) {
		return 0, false
	}
	return idx, true
}

// ScrollIntoView adjusts the offset so the selected entry is inside a
// viewport of the given height. The viewport is kept full when the list
// allows it.
func (l *List) ScrollIntoView(height int) {
	if height < 1 {
		height = 1
	}
	n := len(l.entries)
	if n == 0 {
		l.offset = 0
		return
	}
	if l.selected >= 0 {
		if l.selected < l.offset {
			l.offset = l.selected
		}
		if l.selected >= l.offset+height {
			l.offset = l.selected - height + 1
		}
	}
	if maxOffset := n - height; l.offset > maxOffset {
		l.offset = maxOffset
	}
	if l.offset < 0 {
		l.offset = 0
	}
}

// Current returns the selected entry.
func (l *List) Current() (paper.Entry, bool) {
	if l.selected < 0 {
		return paper.Entry{}, false
	}
	return l.entries[l.selected], true
}

// Selected returns the selected index.
func (l *List) Selected() (int, bool) {
	return l.selected, l.selected >= 0
}

// Offset returns the index of the first visible entry.
func (l *List) Offset() int { return l.offset }

// Len returns the number of entries.
func (l *List) Len() int { return len(l.entries) }

// Entries returns the entries in display order. Callers must not modify the
// returned slice.
func (l *List) Entries() []paper.Entry { return l.entries }
