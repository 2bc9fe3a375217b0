// Package arxiv resolves arXiv identifiers to their PDF and downloads it.
package arxiv

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mmcdole/gofeed/atom"
	"golang.org/x/time/rate"

	"github.com/csheth/pneo/internal/debuglog"
	"github.com/csheth/pneo/internal/httputil"
	"github.com/csheth/pneo/internal/paper"
)

const (
	DefaultEndpoint    = "http://export.arxiv.org/api/query"
	defaultHTTPTimeout = 90 * time.Second
	stagingEnvVar      = "PNEO_STAGING_DIR"
)

// ErrNotFound is returned when the API does not know an identifier.
var ErrNotFound = errors.New("arxiv: preprint not found")

// Options configures a Client.
type Options struct {
	Endpoint   string
	UserAgent  string
	StagingDir string
	// APIInterval spaces calls to the query API. arXiv asks for one
	// request every three seconds.
	APIInterval time.Duration
	HTTPClient  *http.Client
}

// Resolution is the Atom entry of a preprint and its PDF link.
type Resolution struct {
	EntryID string
	PDFURL  string
}

// Client resolves identifiers through the arXiv query API and downloads the
// PDFs through a resumable staging area.
type Client struct {
	endpoint  string
	userAgent string
	http      *http.Client
	limiter   *rate.Limiter
	staging   *stager
}

func NewClient(opts Options) (*Client, error) {
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultEndpoint
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	if opts.APIInterval <= 0 {
		opts.APIInterval = 3 * time.Second
	}
	dir := opts.StagingDir
	if dir == "" {
		dir = os.Getenv(stagingEnvVar)
	}
	if dir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			base = os.TempDir()
		}
		dir = filepath.Join(base, "pneo", "staging")
	}
	staging, err := newStager(dir, opts.HTTPClient, opts.UserAgent)
	if err != nil {
		return nil, err
	}
	return &Client{
		endpoint:  opts.Endpoint,
		userAgent: opts.UserAgent,
		http:      opts.HTTPClient,
		limiter:   rate.NewLimiter(rate.Every(opts.APIInterval), 1),
		staging:   staging,
	}, nil
}

// Resolve looks ref up in the query API. Exactly one entry with a link
// titled "pdf" must come back.
func (c *Client) Resolve(ctx context.Context, ref string) (Resolution, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return Resolution{}, err
	}

	params := url.Values{}
	params.Set("id_list", ref)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return Resolution{}, err
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, c.http, req, 0)
	if err != nil {
		return Resolution{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Resolution{}, fmt.Errorf("arxiv API error: %s (%s)", resp.Status, strings.TrimSpace(string(body)))
	}

	feed, err := (&atom.Parser{}).Parse(resp.Body)
	if err != nil {
		return Resolution{}, fmt.Errorf("failed to decode arxiv response: %w", err)
	}
	switch len(feed.Entries) {
	case 0:
		return Resolution{}, fmt.Errorf("%w: %s", ErrNotFound, ref)
	case 1:
	default:
		return Resolution{}, fmt.Errorf("arxiv: expected one entry for %s, got %d", ref, len(feed.Entries))
	}

	entry := feed.Entries[0]
	for _, link := range entry.Links {
		if link != nil && link.Title == "pdf" && link.Href != "" {
			return Resolution{EntryID: strings.TrimSpace(entry.ID), PDFURL: link.Href}, nil
		}
	}
	return Resolution{}, fmt.Errorf("%w: no pdf link for %s", ErrNotFound, ref)
}

// Fetch resolves ref and downloads its PDF, reporting progress as bytes
// arrive.
func (c *Client) Fetch(ctx context.Context, ref string, progress func(received, total int64)) (paper.Preprint, error) {
	id := ExtractIdentifier(ref)
	if id == "" {
		return paper.Preprint{}, fmt.Errorf("unable to extract arXiv identifier from %q", ref)
	}
	res, err := c.Resolve(ctx, id)
	if err != nil {
		return paper.Preprint{}, err
	}
	debuglog.Debugf("[arxiv] %s resolved to %s", id, res.PDFURL)

	data, err := c.staging.Fetch(ctx, res.PDFURL, progress)
	if err != nil {
		return paper.Preprint{}, fmt.Errorf("failed to download %s: %w", res.PDFURL, err)
	}
	return paper.Preprint{Ref: id, EntryID: res.EntryID, URL: res.PDFURL, Data: data}, nil
}
