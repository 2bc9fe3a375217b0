// Package editor implements the single-line query editor: a rune buffer and a
// cursor that always stays within [0, len].
package editor

// Editor owns the query text and cursor. The zero value is an empty editor.
type Editor struct {
	text   []rune
	cursor int
	dirty  bool
}

// New returns an empty editor.
func New() *Editor {
	return &Editor{}
}

// Insert places r at the cursor and advances the cursor past it.
func (e *Editor) Insert(r rune) {
	e.text = append(e.text, 0)
	copy(e.text[e.cursor+1:], e.text[e.cursor:])
	e.text[e.cursor] = r
	e.cursor++
	e.dirty = true
}

// InsertString inserts every rune of s, as a paste would.
func (e *Editor) InsertString(s string) {
	for _, r := range s {
		e.Insert(r)
	}
}

// DeleteBackward removes the rune before the cursor. It reports whether the
// text changed.
func (e *Editor) DeleteBackward() bool {
	if e.cursor == 0 {
		return false
	}
	e.text = append(e.text[:e.cursor-1], e.text[e.cursor:]...)
	e.cursor--
	e.dirty = true
	return true
}

// DeleteForward removes the rune under the cursor. It reports whether the
// text changed.
func (e *Editor) DeleteForward() bool {
	if e.cursor >= len(e.text) {
		return false
	}
	e.text = append(e.text[:e.cursor], e.text[e.cursor+1:]...)
	e.dirty = true
	return true
}

// Move shifts the cursor by delta runes, clamped to [0, len].
// Cursor movement leaves the text, and therefore the dirty flag, untouched.
func (e *Editor) Move(delta int) {
	e.cursor = clamp(e.cursor+delta, 0, len(e.text))
}

// Home moves the cursor to the start of the text.
func (e *Editor) Home() {
	e.cursor = 0
}

// End moves the cursor past the last rune.
func (e *Editor) End() {
	e.cursor = len(e.text)
}

// SetText replaces the whole text and puts the cursor at its end.
func (e *Editor) SetText(s string) {
	e.text = []rune(s)
	e.cursor = len(e.text)
	e.dirty = true
}

// Text returns the current query.
func (e *Editor) Text() string {
	return string(e.text)
}

// Runes returns a copy of the text as runes.
func (e *Editor) Runes() []rune {
	return append([]rune(nil), e.text...)
}

// Cursor returns the cursor offset in runes.
func (e *Editor) Cursor() int {
	return e.cursor
}

// Len returns the text length in runes.
func (e *Editor) Len() int {
	return len(e.text)
}

// Dirty reports whether the text changed since the last TakeDirty.
func (e *Editor) Dirty() bool {
	return e.dirty
}

// TakeDirty returns the dirty flag and clears it.
func (e *Editor) TakeDirty() bool {
	d := e.dirty
	e.dirty = false
	return d
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
