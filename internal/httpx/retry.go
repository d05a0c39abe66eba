// Package httpx provides the retrying HTTP layer shared by the BallDontLie
// source client and the Supabase sink client.
//
// Retries cover transport failures and HTTP 429/500/502/503/504 with
// exponential backoff, honoring a numeric Retry-After header when present.
// Any other response is returned to the caller uninterpreted.
package httpx

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

const (
	// DefaultMaxRetries is the number of retries beyond the first attempt.
	DefaultMaxRetries = 6

	initialBackoff = 600 * time.Millisecond
	backoffFactor  = 1.8
	maxBackoff     = 10 * time.Second

	// maxErrorBody bounds how much of a response body is carried in errors.
	maxErrorBody = 500
)

// Doer abstracts *http.Client for testing.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// Request describes a single logical request. Body is buffered so each retry
// attempt can resend it.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Response is a fully-read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports whether the status code is in the 2xx range.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// RequestError is returned when a request fails permanently: retry budget
// exhausted, or a transport failure on the final attempt. Status is zero for
// transport-level failures. Body is truncated to 500 bytes.
type RequestError struct {
	Method string
	URL    string
	Status int
	Body   string
	Err    error
}

func (e *RequestError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("HTTP %d for %s %s: %s", e.Status, e.Method, e.URL, e.Body)
	}
	return fmt.Sprintf("request failed: %s %s: %v", e.Method, e.URL, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

// Client wraps a Doer with retry semantics.
type Client struct {
	http       Doer
	maxRetries int

	// sleep is injectable for tests; when nil a context-aware sleep is used.
	sleep func(time.Duration)

	// before runs ahead of every attempt. The source client hooks its rate
	// limiter here so retries are spaced the same as first attempts.
	before func(context.Context) error
}

// NewClient creates a retrying client. maxRetries <= 0 selects the default.
func NewClient(h Doer, maxRetries int) *Client {
	if h == nil {
		h = &http.Client{Timeout: 30 * time.Second}
	}
	if maxRetries < 0 {
		maxRetries = DefaultMaxRetries
	}
	return &Client{http: h, maxRetries: maxRetries}
}

// SetSleep overrides the inter-attempt sleep. Intended for tests.
func (c *Client) SetSleep(fn func(time.Duration)) { c.sleep = fn }

// SetBefore installs a hook invoked before every attempt.
func (c *Client) SetBefore(fn func(context.Context) error) { c.before = fn }

// retryable reports whether a status code indicates a transient condition.
func retryable(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// Do performs the request, retrying transient failures up to the budget.
// Non-retryable responses (including 4xx) are returned as-is with a nil error;
// interpreting the status is the caller's responsibility.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	backoff := initialBackoff

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if c.before != nil {
			if err := c.before(ctx); err != nil {
				return nil, &RequestError{Method: req.Method, URL: req.URL, Err: err}
			}
		}
		resp, err := c.send(ctx, req)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return nil, &RequestError{Method: req.Method, URL: req.URL, Err: ctx.Err()}
			}
			if attempt >= c.maxRetries {
				return nil, &RequestError{Method: req.Method, URL: req.URL, Err: err}
			}
			if err := c.wait(ctx, backoff); err != nil {
				return nil, &RequestError{Method: req.Method, URL: req.URL, Err: err}
			}
			backoff = nextBackoff(backoff)
			continue
		}

		if retryable(resp.StatusCode) {
			if attempt >= c.maxRetries {
				return nil, &RequestError{
					Method: req.Method,
					URL:    req.URL,
					Status: resp.StatusCode,
					Body:   Truncate(resp.Body, maxErrorBody),
				}
			}
			delay := backoff
			if ra := resp.Header.Get("Retry-After"); ra != "" {
				if secs, err := strconv.ParseFloat(ra, 64); err == nil && secs >= 0 {
					delay = time.Duration(secs * float64(time.Second))
				}
			}
			if err := c.wait(ctx, delay); err != nil {
				return nil, &RequestError{Method: req.Method, URL: req.URL, Err: err}
			}
			backoff = nextBackoff(backoff)
			continue
		}

		return resp, nil
	}

	// Unreachable: the loop always returns. Kept for the compiler.
	return nil, &RequestError{Method: req.Method, URL: req.URL, Err: lastErr}
}

func (c *Client) send(ctx context.Context, req Request) (*Response, error) {
	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, err
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: b}, nil
}

func (c *Client) wait(ctx context.Context, d time.Duration) error {
	if c.sleep != nil {
		c.sleep(d)
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

func nextBackoff(d time.Duration) time.Duration {
	next := time.Duration(float64(d) * backoffFactor)
	if next > maxBackoff {
		next = maxBackoff
	}
	return next
}

// Truncate bounds b to maxLen bytes for error messages.
func Truncate(b []byte, maxLen int) string {
	if len(b) <= maxLen {
		return string(b)
	}
	return string(b[:maxLen])
}
