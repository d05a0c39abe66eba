package bdl

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrbstats/nflsync/internal/httpx"
)

// pagedServer serves a scripted sequence of response bodies and records the
// query parameters of every request.
type pagedServer struct {
	*httptest.Server
	bodies  []string
	status  []int
	queries []url.Values
	auths   []string
}

func newPagedServer(t *testing.T, bodies ...string) *pagedServer {
	t.Helper()
	ps := &pagedServer{bodies: bodies}
	ps.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ps.queries = append(ps.queries, r.URL.Query())
		ps.auths = append(ps.auths, r.Header.Get("Authorization"))
		idx := len(ps.queries) - 1
		if idx >= len(ps.bodies) {
			t.Errorf("unexpected request %d to %s", idx, r.URL)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		status := http.StatusOK
		if idx < len(ps.status) && ps.status[idx] != 0 {
			status = ps.status[idx]
		}
		w.WriteHeader(status)
		w.Write([]byte(ps.bodies[idx]))
	}))
	t.Cleanup(ps.Server.Close)
	return ps
}

func newTestClient(t *testing.T, srv *pagedServer, perPage int) *Client {
	t.Helper()
	c, err := NewClient(Config{
		APIKey:            "test-key",
		BaseURL:           srv.URL,
		RequestsPerMinute: 600000, // effectively unthrottled for tests
		PerPage:           perPage,
		MaxRetries:        1,
	})
	require.NoError(t, err)
	c.SetSleep(func(time.Duration) {})
	return c
}

func collect[T any](t *testing.T, it *Iterator[T]) []T {
	t.Helper()
	var out []T
	for it.Next(context.Background()) {
		out = append(out, it.Record())
	}
	require.NoError(t, it.Err())
	return out
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	_, err := NewClient(Config{APIKey: "   "})
	require.Error(t, err)
}

func TestPaginateThreadsCursor(t *testing.T) {
	srv := newPagedServer(t,
		`{"data":[{"id":1},{"id":2}],"meta":{"next_cursor":99,"per_page":2}}`,
		`{"data":[{"id":3}],"meta":{"next_cursor":null,"per_page":2}}`,
	)
	c := newTestClient(t, srv, 2)

	players := collect(t, c.Players(PlayerQuery{}))
	require.Len(t, players, 3)
	assert.Equal(t, int64(1), *players[0].ID)
	assert.Equal(t, int64(3), *players[2].ID)

	require.Len(t, srv.queries, 2)
	assert.Equal(t, "2", srv.queries[0].Get("per_page"))
	assert.False(t, srv.queries[0].Has("cursor"), "first page must not carry a cursor")
	assert.Equal(t, "99", srv.queries[1].Get("cursor"))
	assert.Equal(t, []string{"test-key", "test-key"}, srv.auths)
}

func TestPaginateStopsOnZeroAndEmptyCursor(t *testing.T) {
	for _, cursor := range []string{"null", `""`, "0"} {
		t.Run(cursor, func(t *testing.T) {
			srv := newPagedServer(t,
				`{"data":[{"id":7}],"meta":{"next_cursor":`+cursor+`}}`,
			)
			c := newTestClient(t, srv, 10)
			players := collect(t, c.Players(PlayerQuery{}))
			assert.Len(t, players, 1)
			assert.Len(t, srv.queries, 1)
		})
	}
}

func TestPaginateInvalidCursorIsFatal(t *testing.T) {
	srv := newPagedServer(t,
		`{"data":[{"id":1}],"meta":{"next_cursor":"not-a-number"}}`,
	)
	c := newTestClient(t, srv, 10)

	it := c.Players(PlayerQuery{})
	for it.Next(context.Background()) {
	}
	var pErr *PaginationError
	require.ErrorAs(t, it.Err(), &pErr)
}

func TestPaginateRequiresListData(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"object data", `{"data":{"id":1},"meta":{}}`},
		{"null data", `{"data":null,"meta":{"next_cursor":null}}`},
		{"missing data", `{"meta":{"next_cursor":null}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newPagedServer(t, tt.body)
			c := newTestClient(t, srv, 10)

			it := c.Players(PlayerQuery{})
			assert.False(t, it.Next(context.Background()))
			var pErr *PaginationError
			require.ErrorAs(t, it.Err(), &pErr)
		})
	}
}

func TestPaginateSkipsNonObjectElements(t *testing.T) {
	srv := newPagedServer(t, `{"data":[{"id":1},42,"x",{"id":2}],"meta":{"next_cursor":null}}`)
	c := newTestClient(t, srv, 10)

	players := collect(t, c.Players(PlayerQuery{}))
	require.Len(t, players, 2)
}

func TestNonOKStatusReturnsAPIError(t *testing.T) {
	srv := newPagedServer(t, `{"message":"unauthorized"}`)
	srv.status = []int{401}
	c := newTestClient(t, srv, 10)

	it := c.Players(PlayerQuery{})
	assert.False(t, it.Next(context.Background()))
	var apiErr *APIError
	require.ErrorAs(t, it.Err(), &apiErr)
	assert.Equal(t, 401, apiErr.Err.Status)
	var reqErr *httpx.RequestError
	assert.ErrorAs(t, it.Err(), &reqErr, "the underlying request error stays reachable")
}

func TestRetryExhaustionReturnsAPIError(t *testing.T) {
	srv := newPagedServer(t, "busy", "busy")
	srv.status = []int{503, 503}
	c := newTestClient(t, srv, 10) // MaxRetries 1: two attempts, both 503

	it := c.Players(PlayerQuery{})
	assert.False(t, it.Next(context.Background()))
	var apiErr *APIError
	require.ErrorAs(t, it.Err(), &apiErr)
	assert.Equal(t, 503, apiErr.Err.Status)
}

func TestTeamsNonPaginated(t *testing.T) {
	srv := newPagedServer(t, `{"data":[{"id":18,"abbreviation":"PHI","conference":"NFC"}]}`)
	c := newTestClient(t, srv, 10)

	teams, err := c.Teams(context.Background())
	require.NoError(t, err)
	require.Len(t, teams, 1)
	assert.Equal(t, int64(18), *teams[0].ID)
	assert.Equal(t, "PHI", *teams[0].Abbreviation)
	assert.Len(t, srv.queries, 1)
	assert.False(t, srv.queries[0].Has("per_page"))
}

func TestGamesParams(t *testing.T) {
	srv := newPagedServer(t, `{"data":[],"meta":{"next_cursor":null}}`)
	c := newTestClient(t, srv, 25)

	collect(t, c.Games(GameQuery{Seasons: []int{2023, 2024}, Weeks: []int{1}}))
	q := srv.queries[0]
	assert.Equal(t, []string{"2023", "2024"}, q["seasons[]"])
	assert.Equal(t, []string{"1"}, q["weeks[]"])
}

func TestSeasonStatsPostseasonEncodedAsWords(t *testing.T) {
	srv := newPagedServer(t, `{"data":[],"meta":{"next_cursor":null}}`)
	c := newTestClient(t, srv, 25)
	collect(t, c.SeasonStats(2024, true))
	assert.Equal(t, "true", srv.queries[0].Get("postseason"))

	srv2 := newPagedServer(t, `{"data":[],"meta":{"next_cursor":null}}`)
	c2 := newTestClient(t, srv2, 25)
	collect(t, c2.SeasonStats(2024, false))
	assert.Equal(t, "false", srv2.queries[0].Get("postseason"))
}

func TestAdvancedParamsOmitZeroWeekAndFalsePostseason(t *testing.T) {
	srv := newPagedServer(t, `{"data":[],"meta":{"next_cursor":null}}`)
	c := newTestClient(t, srv, 25)

	collect(t, c.AdvancedRushing(AdvancedQuery{Season: 2024, Week: 0, Postseason: false}))
	q := srv.queries[0]
	assert.Equal(t, "2024", q.Get("season"))
	assert.False(t, q.Has("week"), "week=0 means season totals and must be omitted")
	assert.False(t, q.Has("postseason"), "postseason=false must be omitted")
}

func TestAdvancedParamsEncodePostseasonAsInteger(t *testing.T) {
	srv := newPagedServer(t, `{"data":[],"meta":{"next_cursor":null}}`)
	c := newTestClient(t, srv, 25)

	collect(t, c.AdvancedPassing(AdvancedQuery{Season: 2024, Week: 2, Postseason: true}))
	q := srv.queries[0]
	assert.Equal(t, "2024", q.Get("season"))
	assert.Equal(t, "2", q.Get("week"))
	assert.Equal(t, "1", q.Get("postseason"), "advanced endpoints take 1/0, not true/false")
}

func TestFirstRequestNotThrottled(t *testing.T) {
	srv := newPagedServer(t, `{"data":[],"meta":{"next_cursor":null}}`)
	c, err := NewClient(Config{
		APIKey:            "k",
		BaseURL:           srv.URL,
		RequestsPerMinute: 1, // 60s interval; only the first call may pass instantly
		PerPage:           10,
	})
	require.NoError(t, err)

	start := time.Now()
	_, terr := c.Teams(context.Background())
	require.NoError(t, terr)
	assert.Less(t, time.Since(start), 5*time.Second)
}
