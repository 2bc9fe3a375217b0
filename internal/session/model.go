package session

import (
	"errors"
	"fmt"
	"time"
	"unicode"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/csheth/pneo/internal/debuglog"
	"github.com/csheth/pneo/internal/editor"
	"github.com/csheth/pneo/internal/inspire"
	"github.com/csheth/pneo/internal/library"
	"github.com/csheth/pneo/internal/pipeline"
	"github.com/csheth/pneo/internal/render"
	"github.com/csheth/pneo/internal/results"
)

// Model is the interactive session: a query editor on top of a result list,
// with searches and downloads running in the background.
type Model struct {
	stage  stage
	dialog render.Modal
	keys   keyMap

	editor *editor.Editor
	list   *results.List
	pipe   *pipeline.Pipeline

	library   Library
	records   Archive
	clipboard func(string) error
	now       func() time.Time

	spinner    spinner.Model
	spinning   bool
	downloaded map[string]int
	searched   string
	info       string
	lastClick  click

	width  int
	height int

	initialQuery string
}

// New builds a session ready to be handed to tea.NewProgram.
func New(cfg Config) *Model {
	spin := spinner.New()
	spin.Spinner = spinner.Line

	m := &Model{
		stage:        stageBrowsing,
		keys:         defaultKeyMap(),
		editor:       editor.New(),
		list:         results.New(),
		pipe:         pipeline.New(cfg.Searcher, cfg.Fetcher, cfg.Library, cfg.Pipeline),
		library:      cfg.Library,
		records:      cfg.Records,
		clipboard:    cfg.Clipboard,
		now:          cfg.Now,
		spinner:      spin,
		downloaded:   map[string]int{},
		lastClick:    click{index: -1},
		width:        80,
		height:       24,
		initialQuery: cfg.InitialQuery,
	}
	if m.clipboard == nil {
		m.clipboard = clipboard.WriteAll
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m
}

func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.loadDownloaded()}
	if m.initialQuery != "" {
		m.editor.SetText(m.initialQuery)
		m.editor.TakeDirty()
		cmds = append(cmds, m.pipe.Edited(m.editor.Text()))
	}
	return tea.Batch(cmds...)
}

// Terminated reports whether the session has finished.
func (m *Model) Terminated() bool { return m.stage == stageTerminated }

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.stage == stageTerminated {
		return m, nil
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.list.ScrollIntoView(m.layout().ListHeight)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m, m.handleMouse(msg)

	case pipeline.JobDone:
		if msg.Payload == nil {
			return m, nil
		}
		return m.Update(msg.Payload)

	case pipeline.DebounceMsg:
		cmd := m.pipe.Expire(msg)
		if cmd == nil {
			return m, nil
		}
		return m, tea.Batch(cmd, m.startSpinner())

	case pipeline.SearchResultMsg:
		entries, ok := m.pipe.ApplySearch(msg)
		if !ok {
			return m, nil
		}
		m.list.SetEntries(entries)
		m.searched = msg.Query
		m.list.ScrollIntoView(m.layout().ListHeight)
		if m.records != nil && len(entries) > 0 {
			m.records.Upsert(entries)
		}
		return m, nil

	case pipeline.ProgressMsg:
		return m, m.pipe.ApplyProgress(msg)

	case pipeline.DownloadResultMsg:
		if !m.pipe.ApplyDownload(msg) {
			return m, nil
		}
		if m.stage == stageConfirmExit {
			m.stage = stageBrowsing
		}
		if msg.Err != nil {
			m.showWarning(downloadFailureTitle(msg.Err), msg.Err.Error())
		} else {
			m.info = ""
		}
		return m, m.loadDownloaded()

	case downloadedMsg:
		if msg.err != nil {
			debuglog.Warnf("session: list downloaded preprints: %v", msg.err)
			return m, nil
		}
		m.downloaded = msg.versions
		return m, nil

	case spinner.TickMsg:
		if !m.pipe.Busy() {
			m.spinning = false
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		return m, m.terminate()
	}
	if key.Matches(msg, m.keys.Redraw) {
		return m, tea.ClearScreen
	}

	switch m.stage {
	case stageConfirmExit:
		if key.Matches(msg, m.keys.Confirm) {
			return m, m.terminate()
		}
		m.stage = stageBrowsing
		return m, nil

	case stageDialog:
		switch {
		case key.Matches(msg, m.keys.Close):
			m.closeDialog()
		case key.Matches(msg, m.keys.Help) && m.dialog.Kind == render.ModalHelp:
			m.closeDialog()
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Close):
		if m.pipe.Download().Kind == pipeline.DownloadInFlight {
			m.stage = stageConfirmExit
			return m, nil
		}
		return m, m.terminate()
	case key.Matches(msg, m.keys.Help):
		m.stage = stageDialog
		m.dialog = render.Modal{Kind: render.ModalHelp}
		return m, nil
	case key.Matches(msg, m.keys.Open):
		return m, m.activate()
	case key.Matches(msg, m.keys.Copy):
		m.copySelection()
		return m, nil
	case key.Matches(msg, m.keys.Up):
		m.moveSelection(-1)
		return m, nil
	case key.Matches(msg, m.keys.Down):
		m.moveSelection(1)
		return m, nil
	case key.Matches(msg, m.keys.PageUp):
		m.moveSelection(-pageStep)
		return m, nil
	case key.Matches(msg, m.keys.PageDown):
		m.moveSelection(pageStep)
		return m, nil
	}

	return m, m.editQuery(msg)
}

func (m *Model) editQuery(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Left):
		m.editor.Move(-1)
	case key.Matches(msg, m.keys.Right):
		m.editor.Move(1)
	case key.Matches(msg, m.keys.LineStart):
		m.editor.Home()
	case key.Matches(msg, m.keys.LineEnd):
		m.editor.End()
	case key.Matches(msg, m.keys.Backspace):
		m.editor.DeleteBackward()
	case key.Matches(msg, m.keys.Delete):
		m.editor.DeleteForward()
	case key.Matches(msg, m.keys.Clear):
		if m.editor.Len() > 0 {
			m.editor.SetText("")
		}
	case msg.Type == tea.KeySpace:
		m.editor.Insert(' ')
	case msg.Type == tea.KeyRunes && !msg.Alt:
		for _, r := range msg.Runes {
			if r, ok := queryRune(r); ok {
				m.editor.Insert(r)
			}
		}
	}

	if !m.editor.TakeDirty() {
		return nil
	}
	m.info = ""
	return m.pipe.Edited(m.editor.Text())
}

// queryRune maps pasted line breaks and tabs to spaces and rejects other
// control runes; the query is a single line.
func queryRune(r rune) (rune, bool) {
	switch {
	case r == '\n' || r == '\r' || r == '\t':
		return ' ', true
	case unicode.IsControl(r):
		return 0, false
	default:
		return r, true
	}
}

func (m *Model) handleMouse(msg tea.MouseMsg) tea.Cmd {
	if m.stage != stageBrowsing {
		return nil
	}
	switch msg.Button {
	case tea.MouseButtonWheelUp:
		m.moveSelection(-1)
		return nil
	case tea.MouseButtonWheelDown:
		m.moveSelection(1)
		return nil
	case tea.MouseButtonLeft:
		if msg.Action != tea.MouseActionPress {
			return nil
		}
	default:
		return nil
	}

	row, ok := m.layout().RowAt(msg.Y)
	if !ok {
		return nil
	}
	index, ok := m.list.IndexAt(row)
	if !ok {
		return nil
	}
	m.list.Select(index)
	m.list.ScrollIntoView(m.layout().ListHeight)

	now := m.now()
	if m.lastClick.index == index && now.Sub(m.lastClick.at) <= doubleClickDelay {
		m.lastClick = click{index: -1}
		return m.activate()
	}
	m.lastClick = click{index: index, at: now}
	return nil
}

func (m *Model) moveSelection(delta int) {
	if m.list.MoveSelection(delta) {
		m.list.ScrollIntoView(m.layout().ListHeight)
	}
}

// activate downloads and opens the selected entry's preprint.
func (m *Model) activate() tea.Cmd {
	entry, ok := m.list.Current()
	if !ok {
		return nil
	}
	cmd, err := m.pipe.TriggerDownload(entry)
	switch {
	case errors.Is(err, pipeline.ErrDownloadInFlight):
		m.info = "A download is already running."
		return nil
	case errors.Is(err, pipeline.ErrNoPreprint):
		m.showWarning("No preprint", fmt.Sprintf("%q has no arXiv preprint to download.", entry.Title))
		return nil
	case err != nil:
		m.showWarning("Download failed", err.Error())
		return nil
	}
	m.info = ""
	return tea.Batch(cmd, m.startSpinner())
}

func (m *Model) copySelection() {
	entry, ok := m.list.Current()
	if !ok {
		return
	}
	text := entry.DownloadRef
	if text == "" {
		text = inspire.RecordURL(entry.ID)
	}
	if err := m.clipboard(text); err != nil {
		debuglog.Warnf("session: clipboard: %v", err)
		m.info = fmt.Sprintf("Clipboard unavailable: %v", err)
		return
	}
	m.info = fmt.Sprintf("Copied %s", text)
}

func (m *Model) showWarning(title, body string) {
	m.stage = stageDialog
	m.dialog = render.Modal{Kind: render.ModalWarning, Title: title, Body: body}
}

func (m *Model) closeDialog() {
	m.stage = stageBrowsing
	m.dialog = render.Modal{}
}

func (m *Model) terminate() tea.Cmd {
	m.stage = stageTerminated
	return tea.Quit
}

func (m *Model) startSpinner() tea.Cmd {
	if m.spinning {
		return nil
	}
	m.spinning = true
	return m.spinner.Tick
}

func (m *Model) loadDownloaded() tea.Cmd {
	if m.library == nil {
		return nil
	}
	lib := m.library
	return func() tea.Msg {
		versions, err := lib.Downloaded()
		return downloadedMsg{versions: versions, err: err}
	}
}

func (m *Model) layout() render.Layout {
	return render.NewLayout(m.width, m.height)
}

func (m *Model) View() string {
	if m.stage == stageTerminated {
		return ""
	}
	return render.Frame(m.state())
}

func (m *Model) state() render.State {
	selected, ok := m.list.Selected()
	if !ok {
		selected = -1
	}
	modal := m.dialog
	if m.stage == stageConfirmExit {
		modal = render.Modal{Kind: render.ModalConfirmExit}
	}
	return render.State{
		Query:      m.editor.Runes(),
		Cursor:     m.editor.Cursor(),
		Entries:    m.list.Entries(),
		Selected:   selected,
		Offset:     m.list.Offset(),
		Searched:   m.searched,
		Search:     m.pipe.Status(),
		Download:   m.pipe.Download(),
		Downloaded: m.downloaded,
		Spinner:    m.spinner.View(),
		Busy:       m.pipe.Busy(),
		Modal:      modal,
		Info:       m.info,
		Width:      m.width,
		Height:     m.height,
	}
}

func downloadFailureTitle(err error) string {
	var openErr *library.OpenError
	if errors.As(err, &openErr) {
		return "Unable to open preprint"
	}
	return "Download failed"
}
