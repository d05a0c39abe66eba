package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/hrbstats/nflsync/internal/bdl"
	"github.com/hrbstats/nflsync/internal/logging"
)

// Sink table names and conflict keys.
const (
	TableTeams        = "nfl_teams"
	TablePlayers      = "nfl_players"
	TableGames        = "nfl_games"
	TableSeasonStats  = "nfl_player_season_stats"
	TableGameStats    = "nfl_player_game_stats"
	TableAdvReceiving = "nfl_advanced_receiving_stats"
	TableAdvRushing   = "nfl_advanced_rushing_stats"
	TableAdvPassing   = "nfl_advanced_passing_stats"

	conflictID      = "id"
	conflictSeason  = "player_id,season,postseason"
	conflictGame    = "player_id,game_id"
	conflictAdvStat = "player_id,season,week,postseason"
)

const (
	// DefaultBatchSize is the upsert chunk size.
	DefaultBatchSize = 500

	// DefaultInvalidRowAbort is the run-wide invalid-row count at which
	// ingestion aborts. Guards against silently writing garbage when the
	// source API changes shape.
	DefaultInvalidRowAbort = 25
)

// DataQualityError aborts a run when too many rows arrive without their
// identifying key. Distinct from transport errors: it means the source data
// shape drifted.
type DataQualityError struct {
	Table     string
	Invalid   int
	Threshold int
}

func (e *DataQualityError) Error() string {
	return fmt.Sprintf("data quality abort on %s: %d invalid rows (threshold %d)", e.Table, e.Invalid, e.Threshold)
}

// Sink is the subset of the sink client the coordinator writes through.
type Sink interface {
	Upsert(ctx context.Context, table string, rows []Row, onConflict string) (int, error)
}

// PhotoSource resolves a player headshot URL. Implemented by the photos
// package; optional.
type PhotoSource interface {
	URL(firstName, lastName, teamAbbr string) (string, bool)
}

// Coordinator drives fetch, map, chunk and upsert per resource type, per
// season, per week. Single-threaded; the source client's rate limiter is the
// only pacing.
type Coordinator struct {
	Source *bdl.Client
	Sink   Sink

	// BatchSize and InvalidRowAbort fall back to defaults when <= 0.
	BatchSize       int
	InvalidRowAbort int

	// Photos optionally enriches player rows with photo_url.
	Photos PhotoSource

	// OnBatch is called after every successful upsert with the running
	// total for that table. Used for progress display; may be nil.
	OnBatch func(table string, total int)

	invalid int
}

// CoreSummary reports rows upserted by IngestCore.
type CoreSummary struct {
	Teams   int
	Players int
	Games   int
}

// StatsSummary reports rows upserted by IngestStats. SkippedEndpoints lists
// advanced passes abandoned after a source-API failure.
type StatsSummary struct {
	SeasonStats      int
	GameStats        int
	AdvReceiving     int
	AdvRushing       int
	AdvPassing       int
	SkippedEndpoints []string
}

// StatsOptions selects what IngestStats fetches. Zero AdvancedWeeks means
// season totals only ([0]).
type StatsOptions struct {
	IncludeSeasonStats        bool
	IncludeGameStats          bool
	IncludeAdvanced           bool
	AdvancedWeeks             []int
	AdvancedIncludePostseason bool
}

func (c *Coordinator) batchSize() int {
	if c.BatchSize > 0 {
		return c.BatchSize
	}
	return DefaultBatchSize
}

func (c *Coordinator) abortThreshold() int {
	if c.InvalidRowAbort > 0 {
		return c.InvalidRowAbort
	}
	return DefaultInvalidRowAbort
}

// IngestCore ingests teams, players and games for the given seasons. Any
// failure here is fatal: stats ingestion depends on these tables.
func (c *Coordinator) IngestCore(ctx context.Context, seasons []int) (CoreSummary, error) {
	c.invalid = 0
	var sum CoreSummary

	teams, err := c.Source.Teams(ctx)
	if err != nil {
		return sum, fmt.Errorf("fetching teams: %w", err)
	}
	abbrs := make(map[int64]string, len(teams))
	teamRows := make([]Row, 0, len(teams))
	for _, t := range teams {
		if t.ID != nil && t.Abbreviation != nil {
			abbrs[*t.ID] = *t.Abbreviation
		}
		teamRows = append(teamRows, MapTeam(t))
	}
	sum.Teams, err = c.upsertChunked(ctx, TableTeams, conflictID, teamRows)
	if err != nil {
		return sum, err
	}
	logging.Info("Upserted %s=%d", TableTeams, sum.Teams)

	mapPlayer := func(p bdl.Player) Row {
		row := MapPlayer(p)
		if c.Photos != nil {
			c.addPhoto(row, p, abbrs)
		}
		return row
	}
	sum.Players, err = ingestIterator(ctx, c, c.Source.Players(bdl.PlayerQuery{}), mapPlayer, TablePlayers, "id", conflictID)
	if err != nil {
		return sum, err
	}
	logging.Info("Upserted %s=%d", TablePlayers, sum.Players)

	sum.Games, err = ingestIterator(ctx, c, c.Source.Games(bdl.GameQuery{Seasons: seasons}), MapGame, TableGames, "id", conflictID)
	if err != nil {
		return sum, err
	}
	logging.Info("Upserted %s=%d", TableGames, sum.Games)

	return sum, nil
}

func (c *Coordinator) addPhoto(row Row, p bdl.Player, abbrs map[int64]string) {
	var first, last, team string
	if p.FirstName != nil {
		first = *p.FirstName
	}
	if p.LastName != nil {
		last = *p.LastName
	}
	if p.Team != nil && p.Team.ID != nil {
		team = abbrs[*p.Team.ID]
	}
	if url, ok := c.Photos.URL(first, last, team); ok {
		row["photo_url"] = url
	}
}

// IngestStats ingests season stats, per-game stats and advanced stats for
// the given seasons. Season and game stats failures are fatal; each
// advanced endpoint pass that fails with a source-API error is logged and
// skipped so the remaining endpoints still run.
func (c *Coordinator) IngestStats(ctx context.Context, seasons []int, opts StatsOptions) (StatsSummary, error) {
	c.invalid = 0
	var sum StatsSummary
	var err error

	if opts.IncludeSeasonStats {
		for _, season := range seasons {
			n, serr := ingestIterator(ctx, c, c.Source.SeasonStats(season, false), MapSeasonStats, TableSeasonStats, "player_id", conflictSeason)
			sum.SeasonStats += n
			if serr != nil {
				return sum, fmt.Errorf("season stats for %d: %w", season, serr)
			}
		}
		logging.Info("Upserted %s=%d", TableSeasonStats, sum.SeasonStats)
	}

	if opts.IncludeGameStats {
		sum.GameStats, err = ingestIterator(ctx, c, c.Source.GameStats(seasons), MapGameStats, TableGameStats, "player_id", conflictGame)
		if err != nil {
			return sum, fmt.Errorf("game stats: %w", err)
		}
		logging.Info("Upserted %s=%d", TableGameStats, sum.GameStats)
	}

	if opts.IncludeAdvanced {
		if err := c.ingestAdvanced(ctx, seasons, opts, &sum); err != nil {
			return sum, err
		}
		logging.Info("Upserted advanced stats: receiving=%d rushing=%d passing=%d",
			sum.AdvReceiving, sum.AdvRushing, sum.AdvPassing)
	}

	return sum, nil
}

// advancedPasses enumerates the (week, postseason) combinations to fetch:
// every configured week for the regular season, plus one week-0 season-total
// pass when postseason is included. There is no per-week postseason data.
func advancedPasses(opts StatsOptions) []bdl.AdvancedQuery {
	weeks := opts.AdvancedWeeks
	if len(weeks) == 0 {
		weeks = []int{0}
	}
	passes := make([]bdl.AdvancedQuery, 0, len(weeks)+1)
	for _, w := range weeks {
		passes = append(passes, bdl.AdvancedQuery{Week: w})
	}
	if opts.AdvancedIncludePostseason {
		passes = append(passes, bdl.AdvancedQuery{Week: 0, Postseason: true})
	}
	return passes
}

func (c *Coordinator) ingestAdvanced(ctx context.Context, seasons []int, opts StatsOptions, sum *StatsSummary) error {
	for _, season := range seasons {
		for _, pass := range advancedPasses(opts) {
			q := pass
			q.Season = season

			endpoints := []struct {
				name  string
				table string
				run   func() (int, error)
			}{
				{"advanced_receiving", TableAdvReceiving, func() (int, error) {
					return ingestIterator(ctx, c, c.Source.AdvancedReceiving(q), MapAdvReceiving, TableAdvReceiving, "player_id", conflictAdvStat)
				}},
				{"advanced_rushing", TableAdvRushing, func() (int, error) {
					return ingestIterator(ctx, c, c.Source.AdvancedRushing(q), MapAdvRushing, TableAdvRushing, "player_id", conflictAdvStat)
				}},
				{"advanced_passing", TableAdvPassing, func() (int, error) {
					return ingestIterator(ctx, c, c.Source.AdvancedPassing(q), MapAdvPassing, TableAdvPassing, "player_id", conflictAdvStat)
				}},
			}

			for _, ep := range endpoints {
				n, err := ep.run()
				switch ep.table {
				case TableAdvReceiving:
					sum.AdvReceiving += n
				case TableAdvRushing:
					sum.AdvRushing += n
				case TableAdvPassing:
					sum.AdvPassing += n
				}
				if err == nil {
					continue
				}
				// Only source fetch failures are recoverable; a sink write
				// failure fails the run.
				var srcErr *bdl.APIError
				if errors.As(err, &srcErr) {
					name := fmt.Sprintf("%s season=%d week=%d postseason=%t", ep.name, q.Season, q.Week, q.Postseason)
					logging.Warn("Skipping %s: %v", name, err)
					sum.SkippedEndpoints = append(sum.SkippedEndpoints, name)
					continue
				}
				return fmt.Errorf("%s season=%d week=%d: %w", ep.name, q.Season, q.Week, err)
			}
		}
	}
	return nil
}

// upsertChunked writes pre-mapped rows in batches.
func (c *Coordinator) upsertChunked(ctx context.Context, table, onConflict string, rows []Row) (int, error) {
	total := 0
	size := c.batchSize()
	for start := 0; start < len(rows); start += size {
		end := start + size
		if end > len(rows) {
			end = len(rows)
		}
		n, err := c.Sink.Upsert(ctx, table, rows[start:end], onConflict)
		if err != nil {
			return total, err
		}
		total += n
		if c.OnBatch != nil {
			c.OnBatch(table, total)
		}
	}
	return total, nil
}

// ingestIterator streams one paginated resource: map each record, reject
// rows missing the identifying keyCol, and upsert in chunks. The run-wide
// invalid counter aborts before any further upsert once the threshold is
// reached.
func ingestIterator[T any](ctx context.Context, c *Coordinator, it *bdl.Iterator[T], mapFn func(T) Row, table, keyCol, onConflict string) (int, error) {
	total := 0
	batch := make([]Row, 0, c.batchSize())

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := c.Sink.Upsert(ctx, table, batch, onConflict)
		if err != nil {
			return err
		}
		total += n
		batch = batch[:0]
		if c.OnBatch != nil {
			c.OnBatch(table, total)
		}
		return nil
	}

	for it.Next(ctx) {
		row := mapFn(it.Record())
		if row[keyCol] == nil {
			c.invalid++
			if c.invalid >= c.abortThreshold() {
				return total, &DataQualityError{Table: table, Invalid: c.invalid, Threshold: c.abortThreshold()}
			}
			continue
		}
		batch = append(batch, row)
		if len(batch) >= c.batchSize() {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}
	if err := it.Err(); err != nil {
		return total, err
	}
	if err := flush(); err != nil {
		return total, err
	}
	return total, nil
}
