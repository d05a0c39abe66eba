// Package ingest maps decoded source records into sink rows and drives the
// fetch, map, chunk, upsert pipeline.
package ingest

import (
	"time"

	"github.com/hrbstats/nflsync/internal/bdl"
)

// Row is one flattened record ready for upsert. It is an alias of sink.Row.
type Row = map[string]any

// nowFunc stamps updated_at; overridden in tests.
var nowFunc = time.Now

func nowISO() string {
	return nowFunc().UTC().Format(time.RFC3339)
}

// val unwraps an optional field to a JSON-null-able value.
func val[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

func orFalse(p *bool) bool {
	return p != nil && *p
}

func orZero(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}

func teamID(r *bdl.TeamRef) any {
	if r == nil {
		return nil
	}
	return val(r.ID)
}

func playerID(r *bdl.PlayerRef) any {
	if r == nil {
		return nil
	}
	return val(r.ID)
}

// MapTeam flattens a team record for the nfl_teams table.
func MapTeam(t bdl.Team) Row {
	return Row{
		"id":           val(t.ID),
		"conference":   val(t.Conference),
		"division":     val(t.Division),
		"location":     val(t.Location),
		"name":         val(t.Name),
		"full_name":    val(t.FullName),
		"abbreviation": val(t.Abbreviation),
		"updated_at":   nowISO(),
	}
}

// MapPlayer flattens a player record for the nfl_players table. The nested
// team collapses to team_id; a missing team yields a null team_id.
func MapPlayer(p bdl.Player) Row {
	return Row{
		"id":                    val(p.ID),
		"first_name":            val(p.FirstName),
		"last_name":             val(p.LastName),
		"position":              val(p.Position),
		"position_abbreviation": val(p.PositionAbbreviation),
		"height":                val(p.Height),
		"weight":                val(p.Weight),
		"jersey_number":         val(p.JerseyNumber),
		"college":               val(p.College),
		"experience":            val(p.Experience),
		"age":                   val(p.Age),
		"team_id":               teamID(p.Team),
		"updated_at":            nowISO(),
	}
}

// MapGame flattens a game record for the nfl_games table.
func MapGame(g bdl.Game) Row {
	return Row{
		"id":                 val(g.ID),
		"season":             val(g.Season),
		"week":               val(g.Week),
		"date":               val(g.Date),
		"postseason":         val(g.Postseason),
		"status":             val(g.Status),
		"venue":              val(g.Venue),
		"summary":            val(g.Summary),
		"home_team_id":       teamID(g.HomeTeam),
		"visitor_team_id":    teamID(g.VisitorTeam),
		"home_team_score":    val(g.HomeTeamScore),
		"home_team_q1":       val(g.HomeTeamQ1),
		"home_team_q2":       val(g.HomeTeamQ2),
		"home_team_q3":       val(g.HomeTeamQ3),
		"home_team_q4":       val(g.HomeTeamQ4),
		"home_team_ot":       val(g.HomeTeamOT),
		"visitor_team_score": val(g.VisitorTeamScore),
		"visitor_team_q1":    val(g.VisitorTeamQ1),
		"visitor_team_q2":    val(g.VisitorTeamQ2),
		"visitor_team_q3":    val(g.VisitorTeamQ3),
		"visitor_team_q4":    val(g.VisitorTeamQ4),
		"visitor_team_ot":    val(g.VisitorTeamOT),
		"updated_at":         nowISO(),
	}
}

// MapSeasonStats flattens a season stat line. The identifying player_id comes
// from the nested player; rows without one are invalid.
func MapSeasonStats(s bdl.SeasonStatLine) Row {
	return Row{
		"player_id":             playerID(s.Player),
		"season":                val(s.Season),
		"postseason":            orFalse(s.Postseason),
		"games_played":          val(s.GamesPlayed),
		"passing_completions":   val(s.PassingCompletions),
		"passing_attempts":      val(s.PassingAttempts),
		"passing_yards":         val(s.PassingYards),
		"passing_touchdowns":    val(s.PassingTouchdowns),
		"passing_interceptions": val(s.PassingInterceptions),
		"qbr":                   val(s.QBR),
		"qb_rating":             val(s.QBRating),
		"rushing_attempts":      val(s.RushingAttempts),
		"rushing_yards":         val(s.RushingYards),
		"rushing_touchdowns":    val(s.RushingTouchdowns),
		"receptions":            val(s.Receptions),
		"receiving_yards":       val(s.ReceivingYards),
		"receiving_touchdowns":  val(s.ReceivingTouchdowns),
		"receiving_targets":     val(s.ReceivingTargets),
		"updated_at":            nowISO(),
	}
}

// MapGameStats flattens a per-game stat line. Season, week and postseason are
// lifted from the nested game so the row is queryable without a join.
func MapGameStats(s bdl.GameStatLine) Row {
	row := Row{
		"player_id":             playerID(s.Player),
		"game_id":               nil,
		"season":                nil,
		"week":                  nil,
		"postseason":            false,
		"team_id":               teamID(s.Team),
		"passing_completions":   val(s.PassingCompletions),
		"passing_attempts":      val(s.PassingAttempts),
		"passing_yards":         val(s.PassingYards),
		"passing_touchdowns":    val(s.PassingTouchdowns),
		"passing_interceptions": val(s.PassingInterceptions),
		"qbr":                   val(s.QBR),
		"qb_rating":             val(s.QBRating),
		"rushing_attempts":      val(s.RushingAttempts),
		"rushing_yards":         val(s.RushingYards),
		"rushing_touchdowns":    val(s.RushingTouchdowns),
		"receptions":            val(s.Receptions),
		"receiving_yards":       val(s.ReceivingYards),
		"receiving_touchdowns":  val(s.ReceivingTouchdowns),
		"receiving_targets":     val(s.ReceivingTargets),
		"updated_at":            nowISO(),
	}
	if s.Game != nil {
		row["game_id"] = val(s.Game.ID)
		row["season"] = val(s.Game.Season)
		row["week"] = val(s.Game.Week)
		row["postseason"] = orFalse(s.Game.Postseason)
	}
	return row
}

// MapAdvReceiving flattens a Next Gen receiving line. The conflict key
// columns (player_id, season, week, postseason) are coerced so merge
// semantics hold: week defaults to 0 (season totals), postseason to false.
func MapAdvReceiving(s bdl.AdvReceiving) Row {
	return Row{
		"player_id":                           playerID(s.Player),
		"season":                              val(s.Season),
		"week":                                orZero(s.Week),
		"postseason":                          orFalse(s.Postseason),
		"receptions":                          val(s.Receptions),
		"targets":                             val(s.Targets),
		"yards":                               val(s.Yards),
		"rec_touchdowns":                      val(s.RecTouchdowns),
		"avg_cushion":                         val(s.AvgCushion),
		"avg_separation":                      val(s.AvgSeparation),
		"avg_intended_air_yards":              val(s.AvgIntendedAirYards),
		"percent_share_of_intended_air_yards": val(s.PercentShareOfIntendedAirYards),
		"avg_yac":                             val(s.AvgYAC),
		"avg_expected_yac":                    val(s.AvgExpectedYAC),
		"avg_yac_above_expectation":           val(s.AvgYACAboveExpectation),
		"catch_percentage":                    val(s.CatchPercentage),
		"updated_at":                          nowISO(),
	}
}

// MapAdvRushing flattens a Next Gen rushing line.
func MapAdvRushing(s bdl.AdvRushing) Row {
	return Row{
		"player_id":                            playerID(s.Player),
		"season":                               val(s.Season),
		"week":                                 orZero(s.Week),
		"postseason":                           orFalse(s.Postseason),
		"rush_attempts":                        val(s.RushAttempts),
		"rush_yards":                           val(s.RushYards),
		"rush_touchdowns":                      val(s.RushTouchdowns),
		"efficiency":                           val(s.Efficiency),
		"avg_rush_yards":                       val(s.AvgRushYards),
		"avg_time_to_los":                      val(s.AvgTimeToLOS),
		"expected_rush_yards":                  val(s.ExpectedRushYards),
		"rush_yards_over_expected":             val(s.RushYardsOverExpected),
		"rush_yards_over_expected_per_att":     val(s.RushYardsOverExpectedPerAtt),
		"rush_pct_over_expected":               val(s.RushPctOverExpected),
		"percent_attempts_gte_eight_defenders": val(s.PercentAttemptsGTEEightDefenders),
		"updated_at":                           nowISO(),
	}
}

// MapAdvPassing flattens a Next Gen passing line.
func MapAdvPassing(s bdl.AdvPassing) Row {
	return Row{
		"player_id":                               playerID(s.Player),
		"season":                                  val(s.Season),
		"week":                                    orZero(s.Week),
		"postseason":                              orFalse(s.Postseason),
		"attempts":                                val(s.Attempts),
		"completions":                             val(s.Completions),
		"pass_yards":                              val(s.PassYards),
		"pass_touchdowns":                         val(s.PassTouchdowns),
		"interceptions":                           val(s.Interceptions),
		"games_played":                            val(s.GamesPlayed),
		"passer_rating":                           val(s.PasserRating),
		"completion_percentage":                   val(s.CompletionPercentage),
		"expected_completion_percentage":          val(s.ExpectedCompletionPercentage),
		"completion_percentage_above_expectation": val(s.CompletionPercentageAboveExpectation),
		"avg_time_to_throw":                       val(s.AvgTimeToThrow),
		"avg_air_distance":                        val(s.AvgAirDistance),
		"max_air_distance":                        val(s.MaxAirDistance),
		"avg_intended_air_yards":                  val(s.AvgIntendedAirYards),
		"avg_completed_air_yards":                 val(s.AvgCompletedAirYards),
		"max_completed_air_distance":              val(s.MaxCompletedAirDistance),
		"avg_air_yards_differential":              val(s.AvgAirYardsDifferential),
		"avg_air_yards_to_sticks":                 val(s.AvgAirYardsToSticks),
		"aggressiveness":                          val(s.Aggressiveness),
		"updated_at":                              nowISO(),
	}
}
