package render

const (
	titleHeight  = 1
	inputHeight  = 3
	statusHeight = 1
	minWidth     = 20

	eprintMinWidth = len("hep-th/9711200v3")
)

// Layout is the frame geometry for a terminal size. Rows are counted from
// zero at the top of the screen.
type Layout struct {
	Width      int
	Height     int
	ListTop    int
	ListHeight int
}

// NewLayout splits a width x height terminal into the title line, the input
// box, the result list and the status line. The list keeps at least one row.
func NewLayout(width, height int) Layout {
	if width < minWidth {
		width = minWidth
	}
	l := Layout{Width: width, Height: height, ListTop: titleHeight + inputHeight}
	l.ListHeight = height - titleHeight - inputHeight - statusHeight
	if l.ListHeight < 1 {
		l.ListHeight = 1
	}
	return l
}

// RowAt maps a screen row to a list row.
func (l Layout) RowAt(y int) (int, bool) {
	row := y - l.ListTop
	if row < 0 || row >= l.ListHeight {
		return 0, false
	}
	return row, true
}

// columns returns the title, eprint and author widths for the list: 65, 10
// and 25 percent of what remains after the marker columns and separators.
// The eprint column is widened to fit an old-style versioned identifier.
func (l Layout) columns() (int, int, int) {
	avail := l.Width - 6
	title := avail * 65 / 100
	eprint := avail * 10 / 100
	if eprint < eprintMinWidth {
		eprint = eprintMinWidth
	}
	if title+eprint > avail {
		eprint = avail - title
	}
	authors := avail - title - eprint
	if authors < 0 {
		authors = 0
	}
	return title, eprint, authors
}
