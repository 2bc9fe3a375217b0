package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrDownloadInFlight rejects a download while another one is running.
	ErrDownloadInFlight = errors.New("a download is already in progress")
	// ErrNoPreprint is returned for entries without a downloadable preprint.
	ErrNoPreprint = errors.New("no preprint available")
)

// SearchError reports a failed or malformed search response.
type SearchError struct {
	Query string
	Err   error
}

func (e *SearchError) Error() string {
	return fmt.Sprintf("search %q: %v", e.Query, e.Err)
}

func (e *SearchError) Unwrap() error { return e.Err }

// DownloadError reports a failed fetch, store or open of one entry.
type DownloadError struct {
	EntryID string
	Err     error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download %s: %v", e.EntryID, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }
