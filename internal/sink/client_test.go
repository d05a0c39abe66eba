package sink

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrbstats/nflsync/internal/httpx"
)

type capturedRequest struct {
	method string
	path   string
	query  string
	header http.Header
	body   []byte
}

// sinkServer records every request and replays a scripted response.
type sinkServer struct {
	*httptest.Server
	requests []capturedRequest
	status   int
	body     string
	header   http.Header
}

func newSinkServer(t *testing.T) *sinkServer {
	t.Helper()
	ss := &sinkServer{status: http.StatusOK, header: http.Header{}}
	ss.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		ss.requests = append(ss.requests, capturedRequest{
			method: r.Method,
			path:   r.URL.Path,
			query:  r.URL.RawQuery,
			header: r.Header.Clone(),
			body:   body,
		})
		for k, vs := range ss.header {
			for _, v := range vs {
				w.Header().Add(k, v)
			}
		}
		w.WriteHeader(ss.status)
		w.Write([]byte(ss.body))
	}))
	t.Cleanup(ss.Server.Close)
	return ss
}

func newTestClient(t *testing.T, srv *sinkServer) *Client {
	t.Helper()
	c, err := New(Config{URL: srv.URL, ServiceRoleKey: "service-key", MaxRetries: 1})
	require.NoError(t, err)
	c.SetSleep(func(time.Duration) {})
	return c
}

func TestNewRequiresCredentials(t *testing.T) {
	_, err := New(Config{URL: "", ServiceRoleKey: "k"})
	require.Error(t, err)
	_, err = New(Config{URL: "https://x.supabase.co", ServiceRoleKey: "  "})
	require.Error(t, err)
}

func TestUpsertEmptyIsNoOp(t *testing.T) {
	srv := newSinkServer(t)
	c := newTestClient(t, srv)

	n, err := c.Upsert(context.Background(), "teams", nil, "id")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Empty(t, srv.requests, "empty upsert must not hit the network")
}

func TestUpsertSendsMergeDuplicates(t *testing.T) {
	srv := newSinkServer(t)
	srv.status = http.StatusCreated
	c := newTestClient(t, srv)

	rows := []Row{{"id": 1, "abbreviation": "PHI"}, {"id": 2, "abbreviation": "DAL"}}
	n, err := c.Upsert(context.Background(), "teams", rows, "id")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.Len(t, srv.requests, 1)
	req := srv.requests[0]
	assert.Equal(t, http.MethodPost, req.method)
	assert.Equal(t, "/rest/v1/teams", req.path)
	assert.Equal(t, "on_conflict=id", req.query)
	assert.Equal(t, "resolution=merge-duplicates,return=minimal", req.header.Get("Prefer"))
	assert.Equal(t, "service-key", req.header.Get("apikey"))
	assert.Equal(t, "Bearer service-key", req.header.Get("Authorization"))
	assert.Equal(t, "application/json", req.header.Get("Content-Type"))

	var sent []map[string]any
	require.NoError(t, json.Unmarshal(req.body, &sent))
	require.Len(t, sent, 2)
	assert.Equal(t, "PHI", sent[0]["abbreviation"])
}

func TestUpsertRejectionReturnsWriteError(t *testing.T) {
	srv := newSinkServer(t)
	srv.status = http.StatusConflict
	srv.body = `{"message":"duplicate key"}`
	c := newTestClient(t, srv)

	_, err := c.Upsert(context.Background(), "players", []Row{{"id": 1}}, "id")
	var wErr *WriteError
	require.ErrorAs(t, err, &wErr)
	assert.Equal(t, "players", wErr.Table)
	assert.Equal(t, http.StatusConflict, wErr.Status)
	assert.Contains(t, wErr.Body, "duplicate key")
}

func TestUpsertRetryExhaustionReturnsWriteError(t *testing.T) {
	// Transient failures that outlast the retry budget must still surface as
	// the sink's own error type, never as the shared retry layer's.
	srv := newSinkServer(t)
	srv.status = http.StatusServiceUnavailable
	srv.body = "overloaded"
	c := newTestClient(t, srv)

	_, err := c.Upsert(context.Background(), "teams", []Row{{"id": 1}}, "id")
	var wErr *WriteError
	require.ErrorAs(t, err, &wErr)
	assert.Equal(t, http.StatusServiceUnavailable, wErr.Status)
	assert.Contains(t, wErr.Body, "overloaded")
	var reqErr *httpx.RequestError
	assert.False(t, errors.As(err, &reqErr))
	assert.Len(t, srv.requests, 2, "MaxRetries 1 allows two attempts")
}

func TestSelectZeroLimitShortCircuits(t *testing.T) {
	srv := newSinkServer(t)
	c := newTestClient(t, srv)

	rows, err := c.Select(context.Background(), "games", SelectOptions{Limit: 0})
	require.NoError(t, err)
	assert.Nil(t, rows)
	assert.Empty(t, srv.requests)
}

func TestSelectBoundedSetsRangeHeaders(t *testing.T) {
	srv := newSinkServer(t)
	srv.body = `[{"id":1},{"id":2}]`
	c := newTestClient(t, srv)

	rows, err := c.Select(context.Background(), "games", SelectOptions{
		Columns: "id,season",
		Filters: map[string]string{"season": "eq.2024"},
		Order:   "week.asc",
		Limit:   50,
		Offset:  100,
	})
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	req := srv.requests[0]
	assert.Equal(t, http.MethodGet, req.method)
	assert.Equal(t, "items", req.header.Get("Range-Unit"))
	assert.Equal(t, "100-149", req.header.Get("Range"))
	assert.Contains(t, req.query, "select=id%2Cseason")
	assert.Contains(t, req.query, "season=eq.2024")
	assert.Contains(t, req.query, "order=week.asc")
}

func TestSelectUnboundedOmitsRange(t *testing.T) {
	srv := newSinkServer(t)
	srv.body = `[]`
	c := newTestClient(t, srv)

	_, err := c.Select(context.Background(), "teams", SelectOptions{Limit: -1})
	require.NoError(t, err)
	req := srv.requests[0]
	assert.Empty(t, req.header.Get("Range"))
	assert.Empty(t, req.header.Get("Range-Unit"))
}

func TestSelectNonListBodyIsFatal(t *testing.T) {
	srv := newSinkServer(t)
	srv.body = `{"message":"not a list"}`
	c := newTestClient(t, srv)

	_, err := c.Select(context.Background(), "teams", SelectOptions{Limit: -1})
	require.Error(t, err)
}

func TestCountParsesContentRange(t *testing.T) {
	srv := newSinkServer(t)
	srv.header.Set("Content-Range", "0-24/1132")
	c := newTestClient(t, srv)

	n, err := c.Count(context.Background(), "player_game_stats", map[string]string{"season": "eq.2024"})
	require.NoError(t, err)
	assert.Equal(t, int64(1132), n)

	req := srv.requests[0]
	assert.Equal(t, http.MethodHead, req.method)
	assert.Equal(t, "count=exact", req.header.Get("Prefer"))
	assert.Contains(t, req.query, "select=id")
	assert.Contains(t, req.query, "season=eq.2024")
}

func TestCountUnparsableContentRangeIsError(t *testing.T) {
	srv := newSinkServer(t)
	srv.header.Set("Content-Range", "weird")
	c := newTestClient(t, srv)

	_, err := c.Count(context.Background(), "teams", nil)
	require.Error(t, err)
}
