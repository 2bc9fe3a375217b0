package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/csheth/pneo/internal/paper"
	"github.com/csheth/pneo/internal/pipeline"
	"github.com/csheth/pneo/internal/render"
)

type fakeSearcher struct {
	mu      sync.Mutex
	queries []string
	results map[string][]paper.Entry
}

func (f *fakeSearcher) Search(_ context.Context, query string) ([]paper.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	return f.results[query], nil
}

type fakeFetcher struct {
	calls int
	err   error
}

func (f *fakeFetcher) Fetch(_ context.Context, ref string, progress func(int64, int64)) (paper.Preprint, error) {
	f.calls++
	if f.err != nil {
		return paper.Preprint{}, f.err
	}
	progress(10, 10)
	return paper.Preprint{Ref: ref, Data: []byte("%PDF-1.4")}, nil
}

type fakeLibrary struct {
	mu     sync.Mutex
	stored map[string]string
	opened []string
}

func (l *fakeLibrary) Lookup(ref string) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	path, ok := l.stored[ref]
	return path, ok, nil
}

func (l *fakeLibrary) Store(_ context.Context, _ paper.Entry, pre paper.Preprint) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stored == nil {
		l.stored = map[string]string{}
	}
	path := "/library/" + pre.Ref + "v1.pdf"
	l.stored[pre.Ref] = path
	return path, nil
}

func (l *fakeLibrary) Open(path string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.opened = append(l.opened, path)
	return nil
}

func (l *fakeLibrary) Downloaded() (map[string]int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]int, len(l.stored))
	for ref := range l.stored {
		out[ref] = 1
	}
	return out, nil
}

type fakeArchive struct {
	batches [][]paper.Entry
}

func (a *fakeArchive) Upsert(entries []paper.Entry) {
	a.batches = append(a.batches, entries)
}

type testSession struct {
	*Model
	searcher *fakeSearcher
	fetcher  *fakeFetcher
	library  *fakeLibrary
	archive  *fakeArchive
	copied   []string
	clock    time.Time
}

func newTestSession(t *testing.T) *testSession {
	t.Helper()
	ts := &testSession{
		searcher: &fakeSearcher{results: map[string][]paper.Entry{
			"higgs": {
				{ID: "1", Title: "Higgs boson discovery", Authors: []string{"Atlas"}, DownloadRef: "1207.7214", Eprints: []string{"1207.7214"}},
				{ID: "2", Title: "Higgs without preprint", Authors: []string{"Cms"}},
			},
			"many": numberedEntries(30),
			"aaa":  {{ID: "10", Title: "Result A"}},
			"bbb":  {{ID: "11", Title: "Result B"}},
		}},
		fetcher: &fakeFetcher{},
		library: &fakeLibrary{},
		archive: &fakeArchive{},
		clock:   time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}
	ts.Model = New(Config{
		Searcher: ts.searcher,
		Fetcher:  ts.fetcher,
		Library:  ts.library,
		Records:  ts.archive,
		Pipeline: pipeline.Config{Debounce: time.Millisecond},
		Clipboard: func(text string) error {
			ts.copied = append(ts.copied, text)
			return nil
		},
		Now: func() time.Time { return ts.clock },
	})
	ts.Update(tea.WindowSizeMsg{Width: 100, Height: 24})
	return ts
}

func numberedEntries(n int) []paper.Entry {
	out := make([]paper.Entry, n)
	for i := range out {
		ref := fmt.Sprintf("2101.%05d", i+1)
		out[i] = paper.Entry{ID: fmt.Sprint(100 + i), Title: fmt.Sprintf("Paper %d", i), DownloadRef: ref, Eprints: []string{ref}}
	}
	return out
}

// drive executes cmd and feeds every resulting message back into the model
// until no work remains. Spinner ticks are dropped to keep the loop finite.
func (ts *testSession) drive(t *testing.T, cmds ...tea.Cmd) []tea.Msg {
	t.Helper()
	var seen []tea.Msg
	queue := append([]tea.Cmd(nil), cmds...)
	for steps := 0; len(queue) > 0; steps++ {
		if steps > 1000 {
			t.Fatal("command loop did not settle")
		}
		cmd := queue[0]
		queue = queue[1:]
		if cmd == nil {
			continue
		}
		switch msg := cmd().(type) {
		case nil, spinner.TickMsg:
		case tea.BatchMsg:
			queue = append(queue, msg...)
		default:
			seen = append(seen, msg)
			_, next := ts.Update(msg)
			queue = append(queue, next)
		}
	}
	return seen
}

func (ts *testSession) press(msg tea.KeyMsg) tea.Cmd {
	_, cmd := ts.Update(msg)
	return cmd
}

func (ts *testSession) typeText(text string) []tea.Cmd {
	var cmds []tea.Cmd
	for _, r := range text {
		cmds = append(cmds, ts.press(runeKey(r)))
	}
	return cmds
}

func (ts *testSession) search(t *testing.T, query string) {
	t.Helper()
	ts.drive(t, ts.typeText(query)...)
}

func runeKey(r rune) tea.KeyMsg {
	if r == ' ' {
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func special(t tea.KeyType) tea.KeyMsg { return tea.KeyMsg{Type: t} }

func TestTypingDebouncesIntoOneSearch(t *testing.T) {
	ts := newTestSession(t)

	ts.drive(t, ts.typeText("higgs")...)

	if got := ts.searcher.queries; len(got) != 1 || got[0] != "higgs" {
		t.Fatalf("queries = %v, want [higgs]", got)
	}
	if ts.list.Len() != 2 {
		t.Fatalf("list length = %d, want 2", ts.list.Len())
	}
	if idx, ok := ts.list.Selected(); !ok || idx != 0 {
		t.Fatalf("selection = %d/%v, want first entry", idx, ok)
	}
	if len(ts.archive.batches) != 1 || len(ts.archive.batches[0]) != 2 {
		t.Fatalf("archive batches = %v", ts.archive.batches)
	}
	if view := ts.View(); !strings.Contains(view, "Higgs boson discovery") {
		t.Fatalf("view missing result:\n%s", view)
	}
}

func TestStaleSearchCompletionIgnored(t *testing.T) {
	ts := newTestSession(t)

	expire := func(text string) tea.Cmd {
		ts.editor.SetText(text)
		ts.editor.TakeDirty()
		tick := ts.pipe.Edited(text)
		_, cmd := ts.Update(tick())
		if cmd == nil {
			t.Fatalf("expiring %q dispatched nothing", text)
		}
		return cmd
	}

	first := expire("aaa")
	second := expire("bbb")

	ts.drive(t, second)
	ts.drive(t, first)

	entries := ts.list.Entries()
	if len(entries) != 1 || entries[0].Title != "Result B" {
		t.Fatalf("entries = %+v, want only Result B", entries)
	}
}

func TestShortQueryClearsResults(t *testing.T) {
	ts := newTestSession(t)
	ts.search(t, "higgs")

	ts.drive(t, ts.press(special(tea.KeyCtrlU)))

	if ts.list.Len() != 0 {
		t.Fatalf("list should be empty, has %d entries", ts.list.Len())
	}
	if len(ts.searcher.queries) != 1 {
		t.Fatalf("clearing the query must not search, got %v", ts.searcher.queries)
	}
	if view := ts.View(); !strings.Contains(view, "Type a query") {
		t.Fatalf("view should prompt for a query:\n%s", view)
	}
}

func TestEnterWithoutSelectionIsNoop(t *testing.T) {
	ts := newTestSession(t)
	before := ts.View()

	if cmd := ts.press(special(tea.KeyEnter)); cmd != nil {
		t.Fatalf("enter without selection returned %T", cmd)
	}
	if ts.pipe.Download().Kind != pipeline.DownloadNone {
		t.Fatalf("download status changed: %+v", ts.pipe.Download())
	}
	if ts.View() != before {
		t.Fatal("view changed after enter without selection")
	}
}

func TestEnterDownloadsAndMarksEntry(t *testing.T) {
	ts := newTestSession(t)
	ts.search(t, "higgs")

	ts.drive(t, ts.press(special(tea.KeyEnter)))

	if ts.fetcher.calls != 1 {
		t.Fatalf("fetch calls = %d, want 1", ts.fetcher.calls)
	}
	if len(ts.library.opened) != 1 || ts.library.opened[0] != "/library/1207.7214v1.pdf" {
		t.Fatalf("opened = %v", ts.library.opened)
	}
	if got := ts.pipe.Download(); got.Kind != pipeline.DownloadDone {
		t.Fatalf("download status = %+v", got)
	}
	if ts.downloaded["1207.7214"] != 1 {
		t.Fatalf("downloaded = %v", ts.downloaded)
	}
	if view := ts.View(); !strings.Contains(view, "✓") || !strings.Contains(view, "1207.7214v1") {
		t.Fatalf("view missing download mark:\n%s", view)
	}
}

func TestSecondDownloadRejectedWhileInFlight(t *testing.T) {
	ts := newTestSession(t)
	ts.search(t, "higgs")

	pending := ts.press(special(tea.KeyEnter))
	if pending == nil {
		t.Fatal("enter should start a download")
	}
	if cmd := ts.press(special(tea.KeyEnter)); cmd != nil {
		t.Fatalf("second enter returned %T", cmd)
	}
	if ts.info == "" {
		t.Fatal("rejected download should be reported")
	}

	ts.drive(t, pending)
	if ts.fetcher.calls != 1 {
		t.Fatalf("fetch calls = %d, want 1", ts.fetcher.calls)
	}
}

func TestEntryWithoutPreprintWarns(t *testing.T) {
	ts := newTestSession(t)
	ts.search(t, "higgs")
	ts.press(special(tea.KeyDown))

	if cmd := ts.press(special(tea.KeyEnter)); cmd != nil {
		t.Fatalf("enter on an entry without preprint returned %T", cmd)
	}
	if ts.stage != stageDialog || ts.dialog.Kind != render.ModalWarning {
		t.Fatalf("stage = %v dialog = %+v, want warning", ts.stage, ts.dialog)
	}

	ts.press(special(tea.KeyEsc))
	if ts.stage != stageBrowsing {
		t.Fatalf("esc should close the dialog, stage = %v", ts.stage)
	}
}

func TestFailedDownloadShowsWarningAndAllowsRetry(t *testing.T) {
	ts := newTestSession(t)
	ts.search(t, "higgs")
	ts.fetcher.err = errors.New("connection reset")

	ts.drive(t, ts.press(special(tea.KeyEnter)))

	if ts.stage != stageDialog || ts.dialog.Title != "Download failed" {
		t.Fatalf("stage = %v dialog = %+v", ts.stage, ts.dialog)
	}
	if !strings.Contains(ts.dialog.Body, "connection reset") {
		t.Fatalf("dialog body = %q", ts.dialog.Body)
	}
	if ts.pipe.Download().Kind != pipeline.DownloadFailed {
		t.Fatalf("download status = %+v", ts.pipe.Download())
	}

	ts.press(special(tea.KeyEsc))
	ts.fetcher.err = nil
	ts.drive(t, ts.press(special(tea.KeyEnter)))

	if ts.fetcher.calls != 2 {
		t.Fatalf("fetch calls = %d, want 2", ts.fetcher.calls)
	}
	if ts.pipe.Download().Kind != pipeline.DownloadDone {
		t.Fatalf("retry status = %+v", ts.pipe.Download())
	}
}

func TestEscQuitsWhenIdle(t *testing.T) {
	ts := newTestSession(t)

	cmd := ts.press(special(tea.KeyEsc))
	if cmd == nil {
		t.Fatal("esc should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("esc should return tea.Quit")
	}
	if !ts.Terminated() {
		t.Fatal("session should be terminated")
	}
	if ts.View() != "" {
		t.Fatal("terminated session should render nothing")
	}
}

func TestEscDuringDownloadAsksForConfirmation(t *testing.T) {
	ts := newTestSession(t)
	ts.search(t, "higgs")
	if ts.press(special(tea.KeyEnter)) == nil {
		t.Fatal("enter should start a download")
	}

	if cmd := ts.press(special(tea.KeyEsc)); cmd != nil {
		t.Fatalf("esc during download returned %T", cmd)
	}
	if ts.stage != stageConfirmExit {
		t.Fatalf("stage = %v, want confirm-exit", ts.stage)
	}
	if view := ts.View(); !strings.Contains(view, "Quit anyway?") {
		t.Fatalf("confirmation missing:\n%s", view)
	}

	ts.press(runeKey('n'))
	if ts.stage != stageBrowsing {
		t.Fatalf("any other key should resume browsing, stage = %v", ts.stage)
	}

	ts.press(special(tea.KeyEsc))
	cmd := ts.press(runeKey('y'))
	if cmd == nil || !ts.Terminated() {
		t.Fatal("y should confirm quitting")
	}
}

func TestCtrlCQuitsFromAnyStage(t *testing.T) {
	ts := newTestSession(t)
	ts.press(special(tea.KeyF1))
	if ts.stage != stageDialog {
		t.Fatalf("stage = %v, want dialog", ts.stage)
	}
	if cmd := ts.press(special(tea.KeyCtrlC)); cmd == nil || !ts.Terminated() {
		t.Fatal("ctrl+c should quit")
	}
}

func TestHelpToggles(t *testing.T) {
	ts := newTestSession(t)

	ts.press(special(tea.KeyF1))
	if ts.stage != stageDialog || ts.dialog.Kind != render.ModalHelp {
		t.Fatalf("f1 should open help, stage = %v", ts.stage)
	}
	if cmd := ts.press(runeKey('x')); cmd != nil || ts.editor.Len() != 0 {
		t.Fatal("typing while help is open must not edit the query")
	}
	ts.press(special(tea.KeyF1))
	if ts.stage != stageBrowsing {
		t.Fatalf("f1 should close help, stage = %v", ts.stage)
	}
}

func TestRedrawLeavesStateAlone(t *testing.T) {
	ts := newTestSession(t)
	ts.search(t, "higgs")
	before := ts.View()

	if cmd := ts.press(special(tea.KeyCtrlR)); cmd == nil {
		t.Fatal("ctrl+r should request a screen clear")
	}
	if ts.View() != before {
		t.Fatal("redraw changed the frame")
	}
}

func TestPageKeysScrollViewport(t *testing.T) {
	ts := newTestSession(t)
	ts.search(t, "many")
	height := ts.layout().ListHeight

	ts.press(special(tea.KeyPgDown))
	ts.press(special(tea.KeyPgDown))
	ts.press(special(tea.KeyPgDown))

	idx, _ := ts.list.Selected()
	if idx != 29 {
		t.Fatalf("selected = %d, want clamp to 29", idx)
	}
	if want := 30 - height; ts.list.Offset() != want {
		t.Fatalf("offset = %d, want %d", ts.list.Offset(), want)
	}

	ts.press(special(tea.KeyPgUp))
	idx, _ = ts.list.Selected()
	if idx != 19 {
		t.Fatalf("selected = %d after pgup, want 19", idx)
	}
	if off := ts.list.Offset(); idx < off || idx >= off+height {
		t.Fatalf("selection %d outside viewport at %d", idx, off)
	}
}

func TestResizeKeepsSelectionVisible(t *testing.T) {
	ts := newTestSession(t)
	ts.search(t, "many")
	for i := 0; i < 15; i++ {
		ts.press(special(tea.KeyDown))
	}

	ts.Update(tea.WindowSizeMsg{Width: 60, Height: 10})

	height := ts.layout().ListHeight
	idx, _ := ts.list.Selected()
	if off := ts.list.Offset(); idx < off || idx >= off+height {
		t.Fatalf("selection %d outside viewport [%d,%d)", idx, off, off+height)
	}
}

func TestMouseDoubleClickOpens(t *testing.T) {
	ts := newTestSession(t)
	ts.search(t, "many")
	y := ts.layout().ListTop + 2
	press := tea.MouseMsg{X: 5, Y: y, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft}

	_, cmd := ts.Update(press)
	if cmd != nil {
		t.Fatal("single click should only select")
	}
	if idx, _ := ts.list.Selected(); idx != 2 {
		t.Fatalf("selected = %d, want 2", idx)
	}

	ts.clock = ts.clock.Add(time.Second)
	if _, cmd := ts.Update(press); cmd != nil {
		t.Fatal("slow second click should not open")
	}

	ts.clock = ts.clock.Add(200 * time.Millisecond)
	_, cmd = ts.Update(press)
	if cmd == nil {
		t.Fatal("double click should start a download")
	}
	ts.drive(t, cmd)
	if len(ts.library.opened) != 1 || ts.library.opened[0] != "/library/2101.00003v1.pdf" {
		t.Fatalf("opened = %v", ts.library.opened)
	}
}

func TestClickHitsRowUnderPointerWithWideQuery(t *testing.T) {
	ts := newTestSession(t)
	ts.search(t, "many")
	ts.press(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(strings.Repeat("超弦", 60))})

	y := ts.layout().ListTop + 2
	ts.Update(tea.MouseMsg{X: 5, Y: y, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})

	if idx, _ := ts.list.Selected(); idx != 2 {
		t.Fatalf("selected = %d, want 2", idx)
	}
	lines := strings.Split(ts.View(), "\n")
	if !strings.Contains(lines[y], "Paper 2") || !strings.HasPrefix(lines[y], ">") {
		t.Fatalf("row under the pointer is %q, want the selected Paper 2", lines[y])
	}
}

func TestMouseWheelMovesSelection(t *testing.T) {
	ts := newTestSession(t)
	ts.search(t, "many")

	ts.Update(tea.MouseMsg{Action: tea.MouseActionPress, Button: tea.MouseButtonWheelDown})
	ts.Update(tea.MouseMsg{Action: tea.MouseActionPress, Button: tea.MouseButtonWheelDown})
	ts.Update(tea.MouseMsg{Action: tea.MouseActionPress, Button: tea.MouseButtonWheelUp})

	if idx, _ := ts.list.Selected(); idx != 1 {
		t.Fatalf("selected = %d, want 1", idx)
	}
}

func TestCopySelection(t *testing.T) {
	ts := newTestSession(t)
	ts.search(t, "higgs")

	ts.press(special(tea.KeyCtrlY))
	ts.press(special(tea.KeyDown))
	ts.press(special(tea.KeyCtrlY))

	want := []string{"1207.7214", "https://inspirehep.net/literature/2"}
	if len(ts.copied) != 2 || ts.copied[0] != want[0] || ts.copied[1] != want[1] {
		t.Fatalf("copied = %v, want %v", ts.copied, want)
	}
}

func TestPastedLineBreaksStayOnOneLine(t *testing.T) {
	ts := newTestSession(t)

	paste := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("higgs\nboson\t\x07decay"), Paste: true}
	if cmd := ts.press(paste); cmd == nil {
		t.Fatal("paste should schedule a search")
	}

	if got := ts.editor.Text(); got != "higgs boson decay" {
		t.Fatalf("text = %q, want %q", got, "higgs boson decay")
	}
	lines := strings.Split(ts.View(), "\n")
	if len(lines) != 24 {
		t.Fatalf("frame has %d lines, want 24", len(lines))
	}
}

func TestEditingKeysMoveCursor(t *testing.T) {
	ts := newTestSession(t)
	ts.typeText("qcd")

	ts.press(special(tea.KeyHome))
	ts.press(runeKey('x'))
	ts.press(special(tea.KeyEnd))
	ts.press(special(tea.KeyBackspace))
	ts.press(special(tea.KeyCtrlA))
	ts.press(special(tea.KeyDelete))
	ts.press(special(tea.KeyRight))

	if got := ts.editor.Text(); got != "qc" {
		t.Fatalf("text = %q, want qc", got)
	}
	if ts.editor.Cursor() != 1 {
		t.Fatalf("cursor = %d, want 1", ts.editor.Cursor())
	}
	if cmd := ts.press(special(tea.KeyLeft)); cmd != nil {
		t.Fatal("cursor movement must not schedule a search")
	}
}
