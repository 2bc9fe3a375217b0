// Package httputil holds HTTP helpers shared by the remote clients.
package httputil

import (
	"context"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/csheth/pneo/internal/debuglog"
)

// RetryBaseDelay is the first backoff after an HTTP 429. Tests shrink it.
var RetryBaseDelay = 2 * time.Second

const defaultMaxRetries = 3

// DoWithRetry executes req and retries on HTTP 429 with exponential backoff
// starting at RetryBaseDelay. A Retry-After header given in seconds replaces
// the computed delay. maxRetries <= 0 selects the default. After the last
// retry the 429 response is returned for the caller to inspect. Cancelling
// ctx during a wait returns ctx.Err().
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, maxRetries int) (*http.Response, error) {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	for attempt := 0; ; attempt++ {
		resp, err := client.Do(req.Clone(ctx))
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusTooManyRequests || attempt >= maxRetries {
			return resp, nil
		}

		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		backoff := time.Duration(math.Pow(2, float64(attempt))) * RetryBaseDelay
		if after, ok := retryAfter(resp.Header.Get("Retry-After")); ok {
			backoff = after
		}
		debuglog.Warnf("[http] %s rate limited, retrying in %v (attempt %d/%d)", req.URL.Host, backoff, attempt+1, maxRetries)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
}

func retryAfter(value string) (time.Duration, bool) {
	if value == "" {
		return 0, false
	}
	secs, err := time.ParseDuration(value + "s")
	if err != nil || secs < 0 {
		return 0, false
	}
	return secs, true
}
