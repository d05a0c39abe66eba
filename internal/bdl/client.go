// Package bdl is the BallDontLie NFL API client.
//
// The API is cursor-paginated JSON REST: responses are shaped
// {"data": [...], "meta": {"next_cursor": N}} and authenticated with an
// Authorization header. The ALL-STAR tier allows 60 requests/minute; the
// client throttles slightly under that with a token-bucket limiter and
// retries transient failures through the shared httpx layer.
package bdl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/hrbstats/nflsync/internal/httpx"
)

const (
	// DefaultBaseURL is the BallDontLie NFL API root.
	DefaultBaseURL = "https://api.balldontlie.io/nfl/v1"

	// DefaultRequestsPerMinute stays under the 60 req/min ALL-STAR quota.
	DefaultRequestsPerMinute = 55

	// DefaultPerPage is the page size requested from paginated endpoints.
	DefaultPerPage = 100
)

// PaginationError indicates the API broke its pagination contract: a missing
// or non-list data field, or an uncoercible next_cursor. Never retried.
type PaginationError struct {
	Path   string
	Reason string
}

func (e *PaginationError) Error() string {
	return fmt.Sprintf("pagination error for %s: %s", e.Path, e.Reason)
}

// APIError is a source API request that failed permanently: non-success
// status or retry budget exhausted. Callers classify source fetch failures
// by this type; write-side failures carry their own types.
type APIError struct {
	Err *httpx.RequestError
}

func (e *APIError) Error() string { return "bdl: " + e.Err.Error() }

func (e *APIError) Unwrap() error { return e.Err }

// Config configures a Client. Zero values select defaults; APIKey is required.
type Config struct {
	APIKey            string
	BaseURL           string
	RequestsPerMinute int
	PerPage           int
	MaxRetries        int
	Timeout           time.Duration
	HTTPClient        httpx.Doer
}

// Client is the BallDontLie NFL API client.
type Client struct {
	httpc   *httpx.Client
	limiter *rate.Limiter
	baseURL string
	apiKey  string
	perPage int
}

// NewClient creates a Client. The API key must be non-empty.
func NewClient(cfg Config) (*Client, error) {
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return nil, errors.New("bdl: api key is required")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = DefaultRequestsPerMinute
	}
	perPage := cfg.PerPage
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = httpx.DefaultMaxRetries
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	doer := cfg.HTTPClient
	if doer == nil {
		doer = &http.Client{Timeout: timeout}
	}

	c := &Client{
		httpc: httpx.NewClient(doer, maxRetries),
		// Burst 1 so the first call never blocks and subsequent calls are
		// spaced at the configured interval.
		limiter: rate.NewLimiter(rate.Limit(float64(rpm)/60.0), 1),
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  key,
		perPage: perPage,
	}
	c.httpc.SetBefore(c.limiter.Wait)
	return c, nil
}

// SetSleep overrides the retry backoff sleep. Intended for tests.
func (c *Client) SetSleep(fn func(time.Duration)) { c.httpc.SetSleep(fn) }

// page is the common response envelope for all endpoints.
type page struct {
	Data json.RawMessage `json:"data"`
	Meta struct {
		NextCursor any `json:"next_cursor"`
	} `json:"meta"`
}

// get issues one rate-limited, retried GET and decodes the envelope.
func (c *Client) get(ctx context.Context, path string, params url.Values) (*page, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	resp, err := c.httpc.Do(ctx, httpx.Request{
		Method: http.MethodGet,
		URL:    u,
		Header: http.Header{"Authorization": []string{c.apiKey}},
	})
	if err != nil {
		var reqErr *httpx.RequestError
		if errors.As(err, &reqErr) {
			return nil, &APIError{Err: reqErr}
		}
		return nil, err
	}
	if !resp.OK() {
		return nil, &APIError{Err: &httpx.RequestError{
			Method: http.MethodGet,
			URL:    u,
			Status: resp.StatusCode,
			Body:   httpx.Truncate(resp.Body, 500),
		}}
	}

	var p page
	if err := json.Unmarshal(resp.Body, &p); err != nil {
		return nil, fmt.Errorf("bdl: decoding %s response: %w", path, err)
	}
	return &p, nil
}

// records parses the data field of a page, requiring a JSON array.
// Non-object elements are dropped.
func (p *page) records(path string) ([]json.RawMessage, error) {
	if len(p.Data) == 0 {
		return nil, &PaginationError{Path: path, Reason: "missing data field"}
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(p.Data, &raw); err != nil || raw == nil {
		// raw stays nil when data is JSON null, which is not a list either.
		return nil, &PaginationError{Path: path, Reason: "data field is not a list"}
	}
	out := raw[:0]
	for _, r := range raw {
		if isObject(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

// nextCursor coerces meta.next_cursor. ok=false means end of stream.
func (p *page) nextCursor(path string) (cursor int64, ok bool, err error) {
	switch v := p.Meta.NextCursor.(type) {
	case nil:
		return 0, false, nil
	case string:
		if v == "" {
			return 0, false, nil
		}
		n, perr := strconv.ParseInt(v, 10, 64)
		if perr != nil {
			return 0, false, &PaginationError{Path: path, Reason: fmt.Sprintf("invalid next_cursor %q", v)}
		}
		if n == 0 {
			return 0, false, nil
		}
		return n, true, nil
	case float64:
		if v == 0 {
			return 0, false, nil
		}
		return int64(v), true, nil
	default:
		return 0, false, &PaginationError{Path: path, Reason: fmt.Sprintf("invalid next_cursor %v", v)}
	}
}

func isObject(r json.RawMessage) bool {
	for _, b := range r {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		case '{':
			return true
		default:
			return false
		}
	}
	return false
}

// Iterator lazily walks a cursor-paginated endpoint, decoding each record
// into T. Usage follows the sql.Rows pattern:
//
//	it := client.Players(PlayerQuery{})
//	for it.Next(ctx) {
//		p := it.Record()
//	}
//	if err := it.Err(); err != nil { ... }
//
// Cursors are strictly progressive; the iterator is not restartable.
type Iterator[T any] struct {
	c      *Client
	path   string
	params url.Values

	buf     []json.RawMessage
	idx     int
	cursor  int64
	started bool
	done    bool

	cur T
	err error
}

func newIterator[T any](c *Client, path string, params url.Values) *Iterator[T] {
	if params == nil {
		params = url.Values{}
	}
	return &Iterator[T]{c: c, path: path, params: params}
}

// Next advances to the next record, fetching pages as needed. It returns
// false at end of stream or on error; check Err afterwards.
func (it *Iterator[T]) Next(ctx context.Context) bool {
	if it.err != nil {
		return false
	}
	for it.idx >= len(it.buf) {
		if it.done && it.started {
			return false
		}
		if !it.fetch(ctx) {
			return false
		}
	}

	var rec T
	if err := json.Unmarshal(it.buf[it.idx], &rec); err != nil {
		it.err = fmt.Errorf("bdl: decoding %s record: %w", it.path, err)
		return false
	}
	it.idx++
	it.cur = rec
	return true
}

// Record returns the record produced by the last successful Next.
func (it *Iterator[T]) Record() T { return it.cur }

// Err returns the first error encountered, if any.
func (it *Iterator[T]) Err() error { return it.err }

func (it *Iterator[T]) fetch(ctx context.Context) bool {
	params := url.Values{}
	for k, vs := range it.params {
		params[k] = vs
	}
	params.Set("per_page", strconv.Itoa(it.c.perPage))
	if it.started {
		params.Set("cursor", strconv.FormatInt(it.cursor, 10))
	}

	p, err := it.c.get(ctx, it.path, params)
	if err != nil {
		it.err = err
		return false
	}
	recs, err := p.records(it.path)
	if err != nil {
		it.err = err
		return false
	}

	next, ok, err := p.nextCursor(it.path)
	if err != nil {
		it.err = err
		return false
	}

	it.started = true
	it.buf = recs
	it.idx = 0
	if ok {
		it.cursor = next
	} else {
		it.done = true
	}
	return len(it.buf) > 0 || !it.done
}
