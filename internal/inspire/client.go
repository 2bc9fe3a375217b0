// Package inspire searches the INSPIRE-HEP literature database.
package inspire

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/csheth/pneo/internal/debuglog"
	"github.com/csheth/pneo/internal/httputil"
	"github.com/csheth/pneo/internal/paper"
)

const (
	DefaultEndpoint = "https://inspirehep.net/api/literature"
	DefaultPageSize = 50
	DefaultSort     = "mostrecent"

	fields = "titles,arxiv_eprints,authors.last_name,authors.full_name,publication_info"
)

// Options configures a Client. Zero fields take the defaults.
type Options struct {
	Endpoint          string
	PageSize          int
	Sort              string
	RequestsPerSecond float64
	UserAgent         string
	HTTPClient        *http.Client
}

// Client queries the literature endpoint. It is safe for concurrent use;
// requests are spaced by a shared rate limiter.
type Client struct {
	endpoint  string
	pageSize  int
	sort      string
	userAgent string
	http      *http.Client
	limiter   *rate.Limiter
}

func NewClient(opts Options) *Client {
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultEndpoint
	}
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.Sort == "" {
		opts.Sort = DefaultSort
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 3
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 20 * time.Second}
	}
	return &Client{
		endpoint:  opts.Endpoint,
		pageSize:  opts.PageSize,
		sort:      opts.Sort,
		userAgent: opts.UserAgent,
		http:      opts.HTTPClient,
		limiter:   rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1),
	}
}

type searchResponse struct {
	Hits struct {
		Total int   `json:"total"`
		Hits  []hit `json:"hits"`
	} `json:"hits"`
}

type hit struct {
	Created  string   `json:"created"`
	Metadata metadata `json:"metadata"`
}

type metadata struct {
	ControlNumber int64 `json:"control_number"`
	Titles        []struct {
		Title string `json:"title"`
	} `json:"titles"`
	ArxivEprints []struct {
		Value string `json:"value"`
	} `json:"arxiv_eprints"`
	Authors []struct {
		LastName string `json:"last_name"`
		FullName string `json:"full_name"`
	} `json:"authors"`
	PublicationInfo []struct {
		JournalTitle  string `json:"journal_title"`
		JournalVolume string `json:"journal_volume"`
		Year          int    `json:"year"`
	} `json:"publication_info"`
}

// Search runs query and returns the hits in the order the service ranked
// them.
func (c *Client) Search(ctx context.Context, query string) ([]paper.Entry, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("inspire: rate limiter: %w", err)
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("sort", c.sort)
	params.Set("size", strconv.Itoa(c.pageSize))
	params.Set("fields", fields)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("inspire: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	started := time.Now()
	resp, err := httputil.DoWithRetry(ctx, c.http, req, 0)
	if err != nil {
		return nil, fmt.Errorf("inspire: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("inspire: unexpected status %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var decoded searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("inspire: decode response: %w", err)
	}
	debuglog.Debugf("[inspire] %q -> %d of %d hits in %s", query, len(decoded.Hits.Hits), decoded.Hits.Total, time.Since(started))

	entries := make([]paper.Entry, 0, len(decoded.Hits.Hits))
	for _, h := range decoded.Hits.Hits {
		entries = append(entries, h.entry())
	}
	return entries, nil
}

func (h hit) entry() paper.Entry {
	md := h.Metadata
	e := paper.Entry{
		ID:      strconv.FormatInt(md.ControlNumber, 10),
		Title:   "(No title)",
		Created: createdDate(h.Created),
	}
	if len(md.Titles) > 0 && strings.TrimSpace(md.Titles[0].Title) != "" {
		e.Title = normalizeWhitespace(md.Titles[0].Title)
	}
	for _, a := range md.Authors {
		name := a.LastName
		if name == "" {
			name = a.FullName
		}
		if name != "" {
			e.Authors = append(e.Authors, name)
		}
	}
	for _, ep := range md.ArxivEprints {
		if ep.Value != "" {
			e.Eprints = append(e.Eprints, ep.Value)
		}
	}
	if len(e.Eprints) > 0 {
		e.DownloadRef = e.Eprints[0]
	}
	for _, pub := range md.PublicationInfo {
		if pub.JournalTitle == "" && pub.Year == 0 {
			continue
		}
		e.Venue = strings.TrimSpace(pub.JournalTitle + " " + pub.JournalVolume)
		if pub.Year > 0 {
			e.Year = strconv.Itoa(pub.Year)
		}
		break
	}
	return e
}

func createdDate(ts string) string {
	if date, _, ok := strings.Cut(ts, "T"); ok {
		return date
	}
	return ts
}

func normalizeWhitespace(value string) string {
	return strings.Join(strings.Fields(value), " ")
}

// RecordURL is the web page of an INSPIRE literature record.
func RecordURL(controlNumber string) string {
	return "https://inspirehep.net/literature/" + controlNumber
}
