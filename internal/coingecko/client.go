// Package coingecko implements the CoinGecko API client used by the
// extraction stage. It covers the two endpoints the pipeline reads, the
// current market snapshot and single-day coin history, and stamps every
// record it returns with the extraction time.
//
// HTTP behavior:
//
//   - Bounded per-request timeout (default 30s).
//   - Retry on 429 and 5xx with exponential backoff.
//   - Context cancellation respected during requests and backoff waits.
//   - Injectable transport and sleep function for tests.
package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bened18/crypto-stock-etl/pkg/records"
)

// DefaultBaseURL is the public CoinGecko v3 API root.
const DefaultBaseURL = "https://api.coingecko.com/api/v3"

// defaultUserAgent mimics a desktop browser; the public API throttles
// default library agents much harder.
const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

// Config configures the CoinGecko client.
//
// Zero values are given sensible defaults:
//   - BaseURL:        DefaultBaseURL
//   - Timeout:        30s
//   - MaxRetries:     3
//   - InitialBackoff: 200ms
//   - MaxBackoff:     5s
type Config struct {
	// BaseURL is the API root without a trailing slash.
	BaseURL string

	// Timeout is the per-request timeout applied at the http.Client level.
	Timeout time.Duration

	// MaxRetries is the number of retry attempts after the initial request.
	// MaxRetries=0 means "no retries" (only the initial attempt).
	MaxRetries int

	// InitialBackoff is the base backoff duration for the first retry.
	// Each subsequent retry doubles the previous backoff up to MaxBackoff.
	InitialBackoff time.Duration

	// MaxBackoff caps the exponential backoff duration.
	MaxBackoff time.Duration

	// UserAgent overrides the User-Agent header sent with every request.
	UserAgent string

	// Transport is an optional custom RoundTripper. When nil, the default
	// http.Transport is used.
	Transport http.RoundTripper
}

// Client talks to the CoinGecko API with retry and backoff behavior.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	userAgent      string
	maxRetries     int
	initialBackoff time.Duration
	maxBackoff     time.Duration

	// sleep and now are injectable to make tests fast and deterministic.
	sleep func(time.Duration)
	now   func() time.Time
}

// NewClient constructs a Client from Config, applying defaults for zero values.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 200 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 5 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}

	return &Client{
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: cfg.Transport,
		},
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		userAgent:      cfg.UserAgent,
		maxRetries:     cfg.MaxRetries,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
		sleep:          time.Sleep,
		now:            time.Now,
	}
}

// Markets fetches the current market snapshot for the given coin IDs from
// GET /coins/markets. Every returned record carries an extraction_timestamp
// field holding the same UTC RFC3339 instant, so one call is one snapshot.
func (c *Client) Markets(ctx context.Context, ids []string) ([]records.Record, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("coingecko: no coin ids")
	}

	q := url.Values{}
	q.Set("vs_currency", "usd")
	q.Set("ids", strings.Join(ids, ","))
	q.Set("order", "market_cap_desc")
	q.Set("per_page", "250")
	q.Set("page", "1")
	q.Set("sparkline", "false")
	q.Set("locale", "en")

	var recs []records.Record
	if err := c.getJSON(ctx, "/coins/markets", q, &recs); err != nil {
		return nil, err
	}

	ts := c.now().UTC().Format(time.RFC3339)
	for _, rec := range recs {
		if rec == nil {
			continue
		}
		rec["extraction_timestamp"] = ts
	}
	return recs, nil
}

// History fetches the market data of one coin for a single day from
// GET /coins/{id}/history. The endpoint wants the day as dd-mm-yyyy and
// returns one object, which comes back stamped with extraction_timestamp.
func (c *Client) History(ctx context.Context, id string, date time.Time) (records.Record, error) {
	if id == "" {
		return nil, fmt.Errorf("coingecko: coin id must not be empty")
	}

	q := url.Values{}
	q.Set("date", date.Format("02-01-2006"))
	q.Set("vs_currency", "usd")
	q.Set("localization", "false")

	var rec records.Record
	if err := c.getJSON(ctx, "/coins/"+url.PathEscape(id)+"/history", q, &rec); err != nil {
		return nil, err
	}
	if rec == nil {
		rec = records.Record{}
	}
	rec["extraction_timestamp"] = c.now().UTC().Format(time.RFC3339)
	return rec, nil
}

// getJSON performs a GET against path with the given query, retrying
// transient failures, and decodes the 200 response body into v. Numbers
// decode as json.Number so the transform layer decides how to map them.
func (c *Client) getJSON(ctx context.Context, path string, q url.Values, v any) error {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	attempts := c.maxRetries + 1
	var lastErr error

	for attempt := 0; attempt < attempts; attempt++ {
		// Respect context cancellation before each attempt.
		if err := ctx.Err(); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return fmt.Errorf("coingecko: build request: %w", err)
		}
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			// Network or transport-level error. Treat as retryable.
			lastErr = fmt.Errorf("coingecko: GET %s: %w", path, err)
		} else if isRetryableStatus(resp.StatusCode) {
			_ = resp.Body.Close()
			lastErr = fmt.Errorf("coingecko: retryable status %d from GET %s", resp.StatusCode, path)
		} else if resp.StatusCode != http.StatusOK {
			_ = resp.Body.Close()
			return fmt.Errorf("coingecko: GET %s: status %d", path, resp.StatusCode)
		} else {
			dec := json.NewDecoder(resp.Body)
			dec.UseNumber()
			err := dec.Decode(v)
			_ = resp.Body.Close()
			if err != nil {
				return fmt.Errorf("coingecko: decode %s: %w", path, err)
			}
			return nil
		}

		// If this was the last allowed attempt, return the last error.
		if attempt+1 >= attempts {
			return lastErr
		}

		backoff := backoffDuration(c.initialBackoff, attempt, c.maxBackoff)
		if err := sleepWithContext(ctx, c.sleep, backoff); err != nil {
			return err
		}
	}

	return lastErr
}

// isRetryableStatus reports whether the given HTTP status code should trigger
// a retry. 5xx and 429 are treated as transient; everything else is final.
func isRetryableStatus(code int) bool {
	if code == http.StatusTooManyRequests {
		return true
	}
	return code >= 500 && code <= 599
}

// backoffDuration returns the exponential backoff duration for the given
// attempt number (0-based retry index), clamped to max.
func backoffDuration(initial time.Duration, attempt int, max time.Duration) time.Duration {
	if attempt <= 0 {
		if initial > max {
			return max
		}
		return initial
	}
	d := initial << attempt
	if d > max {
		return max
	}
	return d
}

// sleepWithContext waits d through the provided sleep function, aborting
// early when ctx ends. The wait runs on its own goroutine so cancellation
// never blocks on it.
func sleepWithContext(ctx context.Context, sleep func(time.Duration), d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	done := make(chan struct{})
	go func() {
		sleep(d)
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}
