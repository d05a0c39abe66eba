package bdl

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
)

// Teams fetches all teams. The endpoint is small and not paginated.
func (c *Client) Teams(ctx context.Context) ([]Team, error) {
	p, err := c.get(ctx, "/teams", nil)
	if err != nil {
		return nil, err
	}
	recs, err := p.records("/teams")
	if err != nil {
		return nil, err
	}
	teams := make([]Team, 0, len(recs))
	for _, r := range recs {
		var t Team
		if err := json.Unmarshal(r, &t); err != nil {
			return nil, &PaginationError{Path: "/teams", Reason: "undecodable team record"}
		}
		teams = append(teams, t)
	}
	return teams, nil
}

// PlayerQuery filters the /players endpoint.
type PlayerQuery struct {
	Search  string
	TeamIDs []int64
}

// Players iterates all players matching the query.
func (c *Client) Players(q PlayerQuery) *Iterator[Player] {
	params := url.Values{}
	if q.Search != "" {
		params.Set("search", q.Search)
	}
	for _, id := range q.TeamIDs {
		params.Add("team_ids[]", strconv.FormatInt(id, 10))
	}
	return newIterator[Player](c, "/players", params)
}

// GameQuery filters the /games endpoint. At least one season is required.
type GameQuery struct {
	Seasons []int
	Weeks   []int
}

// Games iterates games for the given seasons, optionally restricted to weeks.
func (c *Client) Games(q GameQuery) *Iterator[Game] {
	params := url.Values{}
	for _, s := range q.Seasons {
		params.Add("seasons[]", strconv.Itoa(s))
	}
	for _, w := range q.Weeks {
		params.Add("weeks[]", strconv.Itoa(w))
	}
	return newIterator[Game](c, "/games", params)
}

// GameStats iterates per-player per-game stat lines for the given seasons.
func (c *Client) GameStats(seasons []int) *Iterator[GameStatLine] {
	params := url.Values{}
	for _, s := range seasons {
		params.Add("seasons[]", strconv.Itoa(s))
	}
	return newIterator[GameStatLine](c, "/stats", params)
}

// SeasonStats iterates per-player season totals.
// The endpoint expects postseason as lowercase "true"/"false".
func (c *Client) SeasonStats(season int, postseason bool) *Iterator[SeasonStatLine] {
	params := url.Values{}
	params.Set("season", strconv.Itoa(season))
	if postseason {
		params.Set("postseason", "true")
	} else {
		params.Set("postseason", "false")
	}
	return newIterator[SeasonStatLine](c, "/season_stats", params)
}

// AdvancedQuery selects a season slice of an advanced-stats endpoint.
// Week 0 means season totals.
type AdvancedQuery struct {
	Season     int
	Week       int
	Postseason bool
}

// advancedParams encodes the advanced_stats parameter conventions, which
// differ from /season_stats: postseason is the integer 1 and omitted when
// false, and week=0 (season totals) omits the week parameter entirely.
func advancedParams(q AdvancedQuery) url.Values {
	params := url.Values{}
	params.Set("season", strconv.Itoa(q.Season))
	if q.Week > 0 {
		params.Set("week", strconv.Itoa(q.Week))
	}
	if q.Postseason {
		params.Set("postseason", "1")
	}
	return params
}

// AdvancedReceiving iterates Next Gen receiving metrics.
func (c *Client) AdvancedReceiving(q AdvancedQuery) *Iterator[AdvReceiving] {
	return newIterator[AdvReceiving](c, "/advanced_stats/receiving", advancedParams(q))
}

// AdvancedRushing iterates Next Gen rushing metrics.
func (c *Client) AdvancedRushing(q AdvancedQuery) *Iterator[AdvRushing] {
	return newIterator[AdvRushing](c, "/advanced_stats/rushing", advancedParams(q))
}

// AdvancedPassing iterates Next Gen passing metrics.
func (c *Client) AdvancedPassing(q AdvancedQuery) *Iterator[AdvPassing] {
	return newIterator[AdvPassing](c, "/advanced_stats/passing", advancedParams(q))
}
