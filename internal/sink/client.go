// Package sink is the Supabase (PostgREST) client used as the relational
// sink for ingested rows.
//
// Writes are batched upserts with merge-on-conflict semantics, so retried
// batches are idempotent at the row level. The sink is capacity-provisioned;
// there is no client-side rate limiter, only the shared retry layer.
package sink

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

	"github.com/hrbstats/nflsync/internal/httpx"
)

// Row is one flattened record ready for upsert.
type Row = map[string]any

// WriteError is returned when an upsert, select, or count fails permanently:
// the sink rejected it, or the retry budget ran out. Body is truncated to 500
// bytes. Status is zero for transport-level failures.
type WriteError struct {
	Op     string
	Table  string
	Status int
	Body   string
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("%s failed table=%s status=%d body=%s", e.Op, e.Table, e.Status, e.Body)
}

// Config configures a Client. URL and ServiceRoleKey are required.
type Config struct {
	URL            string
	ServiceRoleKey string
	MaxRetries     int
	Timeout        time.Duration
	HTTPClient     httpx.Doer
}

// Client talks PostgREST to the sink database.
type Client struct {
	httpc   *httpx.Client
	baseURL string
	key     string
}

// New creates a sink client.
func New(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if baseURL == "" {
		return nil, errors.New("sink: url is required")
	}
	key := strings.TrimSpace(cfg.ServiceRoleKey)
	if key == "" {
		return nil, errors.New("sink: service role key is required")
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
	return &Client{
		httpc:   httpx.NewClient(doer, maxRetries),
		baseURL: baseURL,
		key:     key,
	}, nil
}

// SetSleep overrides the retry backoff sleep. Intended for tests.
func (c *Client) SetSleep(fn func(time.Duration)) { c.httpc.SetSleep(fn) }

func (c *Client) headers(prefer string, jsonBody bool) http.Header {
	h := http.Header{}
	h.Set("apikey", c.key)
	h.Set("Authorization", "Bearer "+c.key)
	if prefer != "" {
		h.Set("Prefer", prefer)
	}
	if jsonBody {
		h.Set("Content-Type", "application/json")
	}
	return h
}

func (c *Client) tableURL(table string, params url.Values) string {
	u := c.baseURL + "/rest/v1/" + table
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

// do performs one request and converts every failure into a *WriteError, so
// callers never see the retry layer's error type.
func (c *Client) do(ctx context.Context, op, table string, req httpx.Request) (*httpx.Response, error) {
	resp, err := c.httpc.Do(ctx, req)
	if err != nil {
		var reqErr *httpx.RequestError
		if errors.As(err, &reqErr) {
			body := reqErr.Body
			if body == "" && reqErr.Err != nil {
				body = reqErr.Err.Error()
			}
			return nil, &WriteError{Op: op, Table: table, Status: reqErr.Status, Body: body}
		}
		return nil, err
	}
	if !resp.OK() {
		return nil, &WriteError{Op: op, Table: table, Status: resp.StatusCode, Body: httpx.Truncate(resp.Body, 500)}
	}
	return resp, nil
}

// Upsert writes rows with merge-on-conflict semantics keyed by the
// onConflict column list. Empty input is a no-op. Returns the number of rows
// written; PostgREST is asked for no response body.
func (c *Client) Upsert(ctx context.Context, table string, rows []Row, onConflict string) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	params := url.Values{}
	if onConflict != "" {
		params.Set("on_conflict", onConflict)
	}

	body, err := json.Marshal(rows)
	if err != nil {
		return 0, fmt.Errorf("sink: encoding rows for %s: %w", table, err)
	}

	if _, err := c.do(ctx, "upsert", table, httpx.Request{
		Method: http.MethodPost,
		URL:    c.tableURL(table, params),
		Header: c.headers("resolution=merge-duplicates,return=minimal", true),
		Body:   body,
	}); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// SelectOptions shapes a Select call. Filters are raw PostgREST operators,
// e.g. {"season": "eq.2024"}. Limit semantics: negative means unbounded,
// zero returns no rows without a request, positive bounds the result via
// Range headers computed from Offset.
type SelectOptions struct {
	Columns string
	Filters map[string]string
	Order   string
	Limit   int
	Offset  int
}

// Select fetches rows from a table.
func (c *Client) Select(ctx context.Context, table string, opts SelectOptions) ([]Row, error) {
	if opts.Limit == 0 {
		return nil, nil
	}

	columns := opts.Columns
	if columns == "" {
		columns = "*"
	}
	params := url.Values{}
	params.Set("select", columns)
	for k, v := range opts.Filters {
		params.Set(k, v)
	}
	if opts.Order != "" {
		params.Set("order", opts.Order)
	}

	header := c.headers("", false)
	if opts.Limit > 0 {
		header.Set("Range-Unit", "items")
		header.Set("Range", fmt.Sprintf("%d-%d", opts.Offset, opts.Offset+opts.Limit-1))
	}

	resp, err := c.do(ctx, "select", table, httpx.Request{
		Method: http.MethodGet,
		URL:    c.tableURL(table, params),
		Header: header,
	})
	if err != nil {
		return nil, err
	}

	var rows []Row
	if err := json.Unmarshal(resp.Body, &rows); err != nil {
		return nil, fmt.Errorf("sink: select on %s returned a non-list body: %w", table, err)
	}
	return rows, nil
}

// Count returns the exact number of rows matching the filters. It issues a
// metadata-only HEAD request and parses the total from the Content-Range
// header ("<range>/<total>").
func (c *Client) Count(ctx context.Context, table string, filters map[string]string) (int64, error) {
	params := url.Values{}
	params.Set("select", "id")
	for k, v := range filters {
		params.Set(k, v)
	}

	resp, err := c.do(ctx, "count", table, httpx.Request{
		Method: http.MethodHead,
		URL:    c.tableURL(table, params),
		Header: c.headers("count=exact", false),
	})
	if err != nil {
		return 0, err
	}

	cr := resp.Header.Get("Content-Range")
	_, totalStr, found := strings.Cut(cr, "/")
	if !found {
		return 0, fmt.Errorf("sink: count on %s: unparsable Content-Range %q", table, cr)
	}
	total, err := strconv.ParseInt(strings.TrimSpace(totalStr), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("sink: count on %s: unparsable Content-Range %q", table, cr)
	}
	return total, nil
}
