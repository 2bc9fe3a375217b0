package session

import (
	"time"

	"github.com/csheth/pneo/internal/paper"
	"github.com/csheth/pneo/internal/pipeline"
)

type stage int

const (
	stageBrowsing stage = iota
	stageDialog
	stageConfirmExit
	stageTerminated
)

func (s stage) String() string {
	switch s {
	case stageBrowsing:
		return "browsing"
	case stageDialog:
		return "dialog"
	case stageConfirmExit:
		return "confirm-exit"
	case stageTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

const (
	pageStep         = 10
	doubleClickDelay = 500 * time.Millisecond
)

// Library is the local preprint store the session downloads into.
type Library interface {
	pipeline.Sink
	Downloaded() (map[string]int, error)
}

// Archive remembers every record that appeared in a result list.
type Archive interface {
	Upsert(entries []paper.Entry)
}

// Config wires the session to its collaborators. Records, Clipboard and Now
// are optional.
type Config struct {
	Searcher     pipeline.Searcher
	Fetcher      pipeline.Fetcher
	Library      Library
	Records      Archive
	Pipeline     pipeline.Config
	Clipboard    func(string) error
	Now          func() time.Time
	InitialQuery string
}

type downloadedMsg struct {
	versions map[string]int
	err      error
}

type click struct {
	index int
	at    time.Time
}
