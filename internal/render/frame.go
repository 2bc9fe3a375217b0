// Package render turns a snapshot of the session into a terminal frame.
// Nothing here mutates state or performs I/O.
package render

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wordwrap"

	"github.com/csheth/pneo/internal/paper"
	"github.com/csheth/pneo/internal/pipeline"
)

// ModalKind enumerates the dialogs drawn over the result list.
type ModalKind int

const (
	ModalNone ModalKind = iota
	ModalWarning
	ModalHelp
	ModalConfirmExit
)

// Modal is an optional dialog.
type Modal struct {
	Kind  ModalKind
	Title string
	Body  string
}

// State is everything a frame depends on.
type State struct {
	Query  []rune
	Cursor int

	Entries  []paper.Entry
	Selected int // -1 when nothing is selected
	Offset   int
	// Searched is the query whose results are on screen.
	Searched string

	Search     pipeline.Status
	Download   pipeline.DownloadStatus
	Downloaded map[string]int

	Spinner string
	Busy    bool
	Modal   Modal
	Info    string

	Width  int
	Height int
}

// Frame renders s into exactly NewLayout(s.Width, s.Height).Height lines
// (fewer when the terminal is shorter than the fixed chrome).
func Frame(s State) string {
	layout := NewLayout(s.Width, s.Height)

	lines := make([]string, 0, layout.Height)
	lines = append(lines, titleLine(s, layout))
	lines = append(lines, strings.Split(inputBox(s, layout), "\n")...)

	var list string
	if s.Modal.Kind != ModalNone {
		list = lipgloss.Place(layout.Width, layout.ListHeight, lipgloss.Center, lipgloss.Center, modalBox(s.Modal, layout))
	} else {
		list = listView(s, layout)
	}
	lines = append(lines, fitLines(list, layout.ListHeight)...)
	lines = append(lines, statusLine(s, layout))
	return strings.Join(lines, "\n")
}

func titleLine(s State, layout Layout) string {
	left := titleStyle.Render("pneo")
	if s.Busy && s.Spinner != "" {
		left += " " + s.Spinner
	}
	right := ""
	if n := len(s.Entries); n > 0 {
		right = countStyle.Render(fmt.Sprintf("%d results", n))
	}
	gap := layout.Width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		return left
	}
	return left + strings.Repeat(" ", gap) + right
}

func inputBox(s State, layout Layout) string {
	inner := max(layout.Width-4, 1)
	query := singleLine(s.Query)
	cursor := min(max(s.Cursor, 0), len(query))
	start, end := inputWindow(query, cursor, inner)

	var b strings.Builder
	b.WriteString(string(query[start:cursor]))
	if cursor < len(query) {
		b.WriteString(cursorStyle.Render(string(query[cursor])))
		b.WriteString(string(query[cursor+1 : end]))
	} else {
		b.WriteString(cursorStyle.Render(" "))
		if len(query) == 0 {
			hint := truncate.StringWithTail("search INSPIRE, e.g. a maldacena or t higgs", uint(max(inner-1, 0)), "…")
			b.WriteString(helperStyle.Render(hint))
		}
	}
	return inputBoxStyle.Width(layout.Width - 2).Render(b.String())
}

// singleLine replaces control runes with spaces so the query never breaks
// the one-row input box.
func singleLine(query []rune) []rune {
	out := make([]rune, len(query))
	for i, r := range query {
		if unicode.IsControl(r) {
			r = ' '
		}
		out[i] = r
	}
	return out
}

// inputWindow returns the slice query[start:end] around cursor that fits in
// width terminal cells together with the cursor cell. Text left of the
// cursor is preferred, so the cursor sits at the right edge while typing.
func inputWindow(query []rune, cursor, width int) (int, int) {
	used := 1
	if cursor < len(query) {
		used = max(lipgloss.Width(string(query[cursor])), 1)
	}

	start := cursor
	for start > 0 {
		w := lipgloss.Width(string(query[start-1]))
		if used+w > width {
			break
		}
		used += w
		start--
	}

	end := cursor
	if cursor < len(query) {
		end = cursor + 1
		for end < len(query) {
			w := lipgloss.Width(string(query[end]))
			if used+w > width {
				break
			}
			used += w
			end++
		}
	}
	return start, end
}

func listView(s State, layout Layout) string {
	if len(s.Entries) == 0 {
		return helperStyle.Render(" " + emptyMessage(s))
	}
	titleW, eprintW, authorsW := layout.columns()
	rows := make([]string, 0, layout.ListHeight)
	for i := s.Offset; i < len(s.Entries) && i < s.Offset+layout.ListHeight; i++ {
		if i < 0 {
			continue
		}
		rows = append(rows, row(s, i, titleW, eprintW, authorsW))
	}
	return strings.Join(rows, "\n")
}

func emptyMessage(s State) string {
	switch {
	case s.Search.Kind == pipeline.StatusPending:
		return "Searching…"
	case s.Search.Kind == pipeline.StatusError:
		return "Search failed; edit the query to retry."
	case s.Searched != "":
		return fmt.Sprintf("No results for %q", s.Searched)
	default:
		return "Type a query to search INSPIRE. F1 shows the key bindings."
	}
}

func row(s State, i, titleW, eprintW, authorsW int) string {
	e := s.Entries[i]
	selected := i == s.Selected

	marker := " "
	if selected {
		marker = ">"
	}
	check := " "
	eprint := e.DownloadRef
	if version, ok := s.Downloaded[e.DownloadRef]; ok && e.DownloadRef != "" {
		check = "✓"
		eprint = fmt.Sprintf("%sv%d", e.DownloadRef, version)
	}

	title := cell(e.Title, titleW)
	ref := cell(eprint, eprintW)
	authors := cell(byline(e), authorsW)

	if selected {
		line := strings.Join([]string{marker, check, title, ref, authors}, " ")
		return selectedStyle.Render(line)
	}
	if check != " " {
		check = checkStyle.Render(check)
	}
	return strings.Join([]string{marker, check, title, eprintStyle.Render(ref), helperStyle.Render(authors)}, " ")
}

// byline is the authors column: the author list followed by the
// publication, when there is one.
func byline(e paper.Entry) string {
	pub := e.Publication()
	if pub == "" {
		return e.AuthorList()
	}
	if len(e.Authors) == 0 {
		return pub
	}
	return e.AuthorList() + " · " + pub
}

func cell(value string, width int) string {
	if width <= 0 {
		return ""
	}
	value = truncate.StringWithTail(value, uint(width), "…")
	if pad := width - lipgloss.Width(value); pad > 0 {
		value += strings.Repeat(" ", pad)
	}
	return value
}

func statusLine(s State, layout Layout) string {
	width := layout.Width
	d := s.Download
	var line string
	switch {
	case s.Search.Kind == pipeline.StatusError:
		line = errorStyle.Render(firstLine("search failed: " + s.Search.Message))
	case d.Kind == pipeline.DownloadInFlight:
		label := "downloading " + d.EntryID + " "
		barWidth := width - lipgloss.Width(label) - 24
		if barWidth < 10 {
			line = label + formatBytes(d.Received, d.Total)
			break
		}
		bar := progress.New(progress.WithDefaultGradient(), progress.WithWidth(barWidth), progress.WithoutPercentage())
		line = label + bar.ViewAs(d.Fraction()) + " " + formatBytes(d.Received, d.Total)
	case s.Info != "":
		line = helperStyle.Render(s.Info)
	case d.Kind == pipeline.DownloadFailed:
		line = errorStyle.Render(firstLine("download failed: " + d.Message))
	case d.Kind == pipeline.DownloadDone:
		line = successStyle.Render("opened " + d.Path)
	default:
		line = helperStyle.Render("enter open • ↑/↓ select • pgup/pgdn page • ctrl+y copy id • f1 help • esc quit")
	}
	return truncate.StringWithTail(line, uint(width), "…")
}

func modalBox(m Modal, layout Layout) string {
	wrap := layout.Width - 8
	if wrap > 60 {
		wrap = 60
	}
	if wrap < 10 {
		wrap = 10
	}
	switch m.Kind {
	case ModalHelp:
		return helpBox.Render(helpText(wrap))
	case ModalConfirmExit:
		body := wordwrap.String("A download is still running. Quit anyway?", wrap)
		hint := helperStyle.Render("y / esc quit • any other key stays")
		return confirmBox.Render(modalTitleStyle.Render("Quit pneo") + "\n\n" + body + "\n\n" + hint)
	default:
		title := m.Title
		if title == "" {
			title = "Warning"
		}
		body := wordwrap.String(m.Body, wrap)
		hint := helperStyle.Render("esc close")
		return warningBox.Render(modalTitleStyle.Render(title) + "\n\n" + body + "\n\n" + hint)
	}
}

// fitLines pads or cuts block to exactly n lines.
func fitLines(block string, n int) []string {
	lines := strings.Split(block, "\n")
	if len(lines) > n {
		return lines[:n]
	}
	for len(lines) < n {
		lines = append(lines, "")
	}
	return lines
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

func formatBytes(received, total int64) string {
	if total <= 0 {
		return humanBytes(received)
	}
	return humanBytes(received) + "/" + humanBytes(total)
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
