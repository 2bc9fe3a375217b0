// Package pipeline turns query edits into debounced, generation-tagged
// searches and runs at most one download at a time.
//
// The pipeline never mutates state from a background goroutine. Every method
// is called from the session loop; asynchronous work is returned as tea.Cmd
// values whose messages come back through the loop and are applied with the
// Apply methods.
package pipeline

import (
	"context"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/csheth/pneo/internal/debuglog"
	"github.com/csheth/pneo/internal/paper"
)

const (
	DefaultDebounce       = 250 * time.Millisecond
	DefaultMinQueryLength = 3
)

// Searcher runs a query against the remote index. Calls may overlap.
type Searcher interface {
	Search(ctx context.Context, query string) ([]paper.Entry, error)
}

// Fetcher downloads the preprint behind a download reference. progress may
// be called any number of times with the bytes received so far and the
// expected total (0 when unknown).
type Fetcher interface {
	Fetch(ctx context.Context, ref string, progress func(received, total int64)) (paper.Preprint, error)
}

// Sink persists and opens downloaded preprints.
type Sink interface {
	// Lookup returns the stored file for ref, if any.
	Lookup(ref string) (string, bool, error)
	Store(ctx context.Context, entry paper.Entry, pre paper.Preprint) (string, error)
	Open(path string) error
}

// StatusKind enumerates the search states.
type StatusKind int

const (
	StatusIdle StatusKind = iota
	StatusPending
	StatusError
)

// Status is the search state read by the renderer.
type Status struct {
	Kind       StatusKind
	Generation uint64
	Message    string
}

// DownloadKind enumerates the download states.
type DownloadKind int

const (
	DownloadNone DownloadKind = iota
	DownloadInFlight
	DownloadDone
	DownloadFailed
)

// DownloadStatus is the state of the most recent download.
type DownloadStatus struct {
	Kind     DownloadKind
	EntryID  string
	Path     string
	Message  string
	Received int64
	Total    int64
}

// Fraction returns transfer progress in [0, 1], or 0 when the size is unknown.
func (d DownloadStatus) Fraction() float64 {
	if d.Total <= 0 {
		return 0
	}
	f := float64(d.Received) / float64(d.Total)
	if f > 1 {
		return 1
	}
	return f
}

// DebounceMsg fires when the debounce timer armed by Edited expires.
type DebounceMsg struct {
	Seq uint64
}

// SearchResultMsg completes a search dispatched under Generation.
type SearchResultMsg struct {
	Generation uint64
	Query      string
	Entries    []paper.Entry
	Err        error
}

// ProgressMsg carries transfer progress of the running download.
type ProgressMsg struct {
	EntryID  string
	Received int64
	Total    int64

	ch <-chan ProgressMsg
}

// DownloadResultMsg completes a download.
type DownloadResultMsg struct {
	EntryID string
	Path    string
	Err     error
}

// Config tunes a Pipeline. Zero fields take the defaults.
type Config struct {
	Debounce       time.Duration
	MinQueryLength int
}

// Pipeline owns the generation counter, the debounce sequence and both
// statuses.
type Pipeline struct {
	searcher Searcher
	fetcher  Fetcher
	sink     Sink
	jobs     *jobBus

	delay    time.Duration
	minQuery int

	query       string
	debounceSeq uint64
	generation  uint64
	status      Status
	download    DownloadStatus
}

// New builds a pipeline over the given capabilities.
func New(searcher Searcher, fetcher Fetcher, sink Sink, cfg Config) *Pipeline {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.MinQueryLength <= 0 {
		cfg.MinQueryLength = DefaultMinQueryLength
	}
	return &Pipeline{
		searcher: searcher,
		fetcher:  fetcher,
		sink:     sink,
		jobs:     newJobBus(),
		delay:    cfg.Debounce,
		minQuery: cfg.MinQueryLength,
	}
}

// Edited records query and (re)arms the debounce timer. Any timer armed
// earlier becomes stale.
func (p *Pipeline) Edited(query string) tea.Cmd {
	p.query = query
	p.debounceSeq++
	seq := p.debounceSeq
	return tea.Tick(p.delay, func(time.Time) tea.Msg {
		return DebounceMsg{Seq: seq}
	})
}

// Expire handles a debounce tick. Stale ticks return nil. Otherwise a new
// generation starts: queries shorter than the minimum resolve immediately
// to an empty result with no query, anything else dispatches a search.
func (p *Pipeline) Expire(msg DebounceMsg) tea.Cmd {
	if msg.Seq != p.debounceSeq {
		return nil
	}
	p.generation++
	gen := p.generation
	query := strings.TrimSpace(p.query)

	if len([]rune(query)) < p.minQuery {
		p.status = Status{Kind: StatusIdle}
		return func() tea.Msg {
			return SearchResultMsg{Generation: gen}
		}
	}

	p.status = Status{Kind: StatusPending, Generation: gen}
	return p.jobs.Start(JobSearch, searchJob(p.searcher, gen, query))
}

func searchJob(searcher Searcher, gen uint64, query string) jobRunner {
	return func(ctx context.Context) (tea.Msg, error) {
		entries, err := searcher.Search(ctx, query)
		if err != nil {
			err = &SearchError{Query: query, Err: err}
			return SearchResultMsg{Generation: gen, Query: query, Err: err}, err
		}
		return SearchResultMsg{Generation: gen, Query: query, Entries: entries}, nil
	}
}

// ApplySearch applies a search completion. It returns the entries to show
// and true only when msg belongs to the live generation and succeeded.
// Superseded completions are dropped without touching the status.
func (p *Pipeline) ApplySearch(msg SearchResultMsg) ([]paper.Entry, bool) {
	if msg.Generation != p.generation {
		debuglog.Debugf("[pipeline] dropping stale search gen=%d live=%d query=%q", msg.Generation, p.generation, msg.Query)
		return nil, false
	}
	if msg.Err != nil {
		debuglog.Warnf("[pipeline] %v", msg.Err)
		p.status = Status{Kind: StatusError, Generation: msg.Generation, Message: msg.Err.Error()}
		return nil, false
	}
	p.status = Status{Kind: StatusIdle}
	return msg.Entries, true
}

// TriggerDownload starts fetching entry. It fails with ErrDownloadInFlight
// while another download runs and with ErrNoPreprint when entry has nothing
// to fetch; the current download status is left untouched in both cases.
func (p *Pipeline) TriggerDownload(entry paper.Entry) (tea.Cmd, error) {
	if p.download.Kind == DownloadInFlight {
		return nil, ErrDownloadInFlight
	}
	if !entry.HasPreprint() {
		return nil, &DownloadError{EntryID: entry.ID, Err: ErrNoPreprint}
	}
	p.download = DownloadStatus{Kind: DownloadInFlight, EntryID: entry.ID}

	progress := make(chan ProgressMsg, 32)
	job := p.jobs.Start(JobDownload, downloadJob(p.fetcher, p.sink, entry, progress))
	return tea.Batch(job, waitProgress(progress)), nil
}

func downloadJob(fetcher Fetcher, sink Sink, entry paper.Entry, progress chan ProgressMsg) jobRunner {
	return func(ctx context.Context) (tea.Msg, error) {
		defer close(progress)
		report := func(received, total int64) {
			msg := ProgressMsg{EntryID: entry.ID, Received: received, Total: total, ch: progress}
			select {
			case progress <- msg:
			default:
			}
		}
		path, err := deliver(ctx, fetcher, sink, entry, report)
		if err != nil {
			err = &DownloadError{EntryID: entry.ID, Err: err}
			return DownloadResultMsg{EntryID: entry.ID, Path: path, Err: err}, err
		}
		return DownloadResultMsg{EntryID: entry.ID, Path: path}, nil
	}
}

func deliver(ctx context.Context, fetcher Fetcher, sink Sink, entry paper.Entry, report func(int64, int64)) (string, error) {
	path, ok, err := sink.Lookup(entry.DownloadRef)
	if err != nil {
		debuglog.Warnf("[pipeline] lookup %s: %v; downloading again", entry.DownloadRef, err)
	}
	if err == nil && ok {
		return path, sink.Open(path)
	}

	pre, err := fetcher.Fetch(ctx, entry.DownloadRef, report)
	if err != nil {
		return "", err
	}
	path, err = sink.Store(ctx, entry, pre)
	if err != nil {
		return "", err
	}
	return path, sink.Open(path)
}

func waitProgress(ch <-chan ProgressMsg) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		msg.ch = ch
		return msg
	}
}

// ApplyProgress records transfer progress for the running download and
// returns the command that waits for the next update.
func (p *Pipeline) ApplyProgress(msg ProgressMsg) tea.Cmd {
	if p.download.Kind == DownloadInFlight && p.download.EntryID == msg.EntryID {
		p.download.Received = msg.Received
		p.download.Total = msg.Total
	}
	return waitProgress(msg.ch)
}

// ApplyDownload applies a download completion and reports whether it
// matched the running download.
func (p *Pipeline) ApplyDownload(msg DownloadResultMsg) bool {
	if p.download.Kind != DownloadInFlight || p.download.EntryID != msg.EntryID {
		debuglog.Debugf("[pipeline] ignoring download result for %s", msg.EntryID)
		return false
	}
	if msg.Err != nil {
		p.download = DownloadStatus{Kind: DownloadFailed, EntryID: msg.EntryID, Message: msg.Err.Error()}
		return true
	}
	p.download = DownloadStatus{Kind: DownloadDone, EntryID: msg.EntryID, Path: msg.Path}
	return true
}

// Status returns the state of the live search generation.
func (p *Pipeline) Status() Status { return p.status }

// Download returns the state of the most recent download.
func (p *Pipeline) Download() DownloadStatus { return p.download }

// Generation returns the live search generation.
func (p *Pipeline) Generation() uint64 { return p.generation }

// Query returns the query recorded by the last edit.
func (p *Pipeline) Query() string { return p.query }

// Busy reports whether a search or a download is outstanding.
func (p *Pipeline) Busy() bool {
	return p.status.Kind == StatusPending || p.download.Kind == DownloadInFlight
}
