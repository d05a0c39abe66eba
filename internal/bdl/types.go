package bdl

// Decoded record types for each BallDontLie NFL resource. All fields are
// optional: the upstream payloads omit fields freely and the mapping layer
// treats missing values as null. Nested refs (player, team, game) may be nil.

// TeamRef is the embedded team object carried by players, games and stats.
type TeamRef struct {
	ID           *int64  `json:"id"`
	Abbreviation *string `json:"abbreviation"`
}

// PlayerRef is the embedded player object carried by stat lines.
type PlayerRef struct {
	ID        *int64  `json:"id"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
}

// GameRef is the embedded game object carried by per-game stat lines.
type GameRef struct {
	ID         *int64 `json:"id"`
	Season     *int64 `json:"season"`
	Week       *int64 `json:"week"`
	Postseason *bool  `json:"postseason"`
}

// Team is a record from /teams.
type Team struct {
	ID           *int64  `json:"id"`
	Conference   *string `json:"conference"`
	Division     *string `json:"division"`
	Location     *string `json:"location"`
	Name         *string `json:"name"`
	FullName     *string `json:"full_name"`
	Abbreviation *string `json:"abbreviation"`
}

// Player is a record from /players.
type Player struct {
	ID                   *int64   `json:"id"`
	FirstName            *string  `json:"first_name"`
	LastName             *string  `json:"last_name"`
	Position             *string  `json:"position"`
	PositionAbbreviation *string  `json:"position_abbreviation"`
	Height               *string  `json:"height"`
	Weight               *string  `json:"weight"`
	JerseyNumber         *string  `json:"jersey_number"`
	College              *string  `json:"college"`
	Experience           *string  `json:"experience"`
	Age                  *int64   `json:"age"`
	Team                 *TeamRef `json:"team"`
}

// Game is a record from /games.
type Game struct {
	ID               *int64   `json:"id"`
	Season           *int64   `json:"season"`
	Week             *int64   `json:"week"`
	Date             *string  `json:"date"`
	Postseason       *bool    `json:"postseason"`
	Status           *string  `json:"status"`
	Venue            *string  `json:"venue"`
	Summary          *string  `json:"summary"`
	HomeTeam         *TeamRef `json:"home_team"`
	VisitorTeam      *TeamRef `json:"visitor_team"`
	HomeTeamScore    *int64   `json:"home_team_score"`
	HomeTeamQ1       *int64   `json:"home_team_q1"`
	HomeTeamQ2       *int64   `json:"home_team_q2"`
	HomeTeamQ3       *int64   `json:"home_team_q3"`
	HomeTeamQ4       *int64   `json:"home_team_q4"`
	HomeTeamOT       *int64   `json:"home_team_ot"`
	VisitorTeamScore *int64   `json:"visitor_team_score"`
	VisitorTeamQ1    *int64   `json:"visitor_team_q1"`
	VisitorTeamQ2    *int64   `json:"visitor_team_q2"`
	VisitorTeamQ3    *int64   `json:"visitor_team_q3"`
	VisitorTeamQ4    *int64   `json:"visitor_team_q4"`
	VisitorTeamOT    *int64   `json:"visitor_team_ot"`
}

// SeasonStatLine is a record from /season_stats.
type SeasonStatLine struct {
	Player               *PlayerRef `json:"player"`
	Season               *int64     `json:"season"`
	Postseason           *bool      `json:"postseason"`
	GamesPlayed          *int64     `json:"games_played"`
	PassingCompletions   *int64     `json:"passing_completions"`
	PassingAttempts      *int64     `json:"passing_attempts"`
	PassingYards         *int64     `json:"passing_yards"`
	PassingTouchdowns    *int64     `json:"passing_touchdowns"`
	PassingInterceptions *int64     `json:"passing_interceptions"`
	QBR                  *float64   `json:"qbr"`
	QBRating             *float64   `json:"qb_rating"`
	RushingAttempts      *int64     `json:"rushing_attempts"`
	RushingYards         *int64     `json:"rushing_yards"`
	RushingTouchdowns    *int64     `json:"rushing_touchdowns"`
	Receptions           *int64     `json:"receptions"`
	ReceivingYards       *int64     `json:"receiving_yards"`
	ReceivingTouchdowns  *int64     `json:"receiving_touchdowns"`
	ReceivingTargets     *int64     `json:"receiving_targets"`
}

// GameStatLine is a record from /stats.
type GameStatLine struct {
	Player               *PlayerRef `json:"player"`
	Team                 *TeamRef   `json:"team"`
	Game                 *GameRef   `json:"game"`
	PassingCompletions   *int64     `json:"passing_completions"`
	PassingAttempts      *int64     `json:"passing_attempts"`
	PassingYards         *int64     `json:"passing_yards"`
	PassingTouchdowns    *int64     `json:"passing_touchdowns"`
	PassingInterceptions *int64     `json:"passing_interceptions"`
	QBR                  *float64   `json:"qbr"`
	QBRating             *float64   `json:"qb_rating"`
	RushingAttempts      *int64     `json:"rushing_attempts"`
	RushingYards         *int64     `json:"rushing_yards"`
	RushingTouchdowns    *int64     `json:"rushing_touchdowns"`
	Receptions           *int64     `json:"receptions"`
	ReceivingYards       *int64     `json:"receiving_yards"`
	ReceivingTouchdowns  *int64     `json:"receiving_touchdowns"`
	ReceivingTargets     *int64     `json:"receiving_targets"`
}

// AdvReceiving is a record from /advanced_stats/receiving.
type AdvReceiving struct {
	Player                         *PlayerRef `json:"player"`
	Season                         *int64     `json:"season"`
	Week                           *int64     `json:"week"`
	Postseason                     *bool      `json:"postseason"`
	Receptions                     *float64   `json:"receptions"`
	Targets                        *float64   `json:"targets"`
	Yards                          *float64   `json:"yards"`
	RecTouchdowns                  *float64   `json:"rec_touchdowns"`
	AvgCushion                     *float64   `json:"avg_cushion"`
	AvgSeparation                  *float64   `json:"avg_separation"`
	AvgIntendedAirYards            *float64   `json:"avg_intended_air_yards"`
	PercentShareOfIntendedAirYards *float64   `json:"percent_share_of_intended_air_yards"`
	AvgYAC                         *float64   `json:"avg_yac"`
	AvgExpectedYAC                 *float64   `json:"avg_expected_yac"`
	AvgYACAboveExpectation         *float64   `json:"avg_yac_above_expectation"`
	CatchPercentage                *float64   `json:"catch_percentage"`
}

// AdvRushing is a record from /advanced_stats/rushing.
type AdvRushing struct {
	Player                           *PlayerRef `json:"player"`
	Season                           *int64     `json:"season"`
	Week                             *int64     `json:"week"`
	Postseason                       *bool      `json:"postseason"`
	RushAttempts                     *float64   `json:"rush_attempts"`
	RushYards                        *float64   `json:"rush_yards"`
	RushTouchdowns                   *float64   `json:"rush_touchdowns"`
	Efficiency                       *float64   `json:"efficiency"`
	AvgRushYards                     *float64   `json:"avg_rush_yards"`
	AvgTimeToLOS                     *float64   `json:"avg_time_to_los"`
	ExpectedRushYards                *float64   `json:"expected_rush_yards"`
	RushYardsOverExpected            *float64   `json:"rush_yards_over_expected"`
	RushYardsOverExpectedPerAtt      *float64   `json:"rush_yards_over_expected_per_att"`
	RushPctOverExpected              *float64   `json:"rush_pct_over_expected"`
	PercentAttemptsGTEEightDefenders *float64   `json:"percent_attempts_gte_eight_defenders"`
}

// AdvPassing is a record from /advanced_stats/passing.
type AdvPassing struct {
	Player                               *PlayerRef `json:"player"`
	Season                               *int64     `json:"season"`
	Week                                 *int64     `json:"week"`
	Postseason                           *bool      `json:"postseason"`
	Attempts                             *float64   `json:"attempts"`
	Completions                          *float64   `json:"completions"`
	PassYards                            *float64   `json:"pass_yards"`
	PassTouchdowns                       *float64   `json:"pass_touchdowns"`
	Interceptions                        *float64   `json:"interceptions"`
	GamesPlayed                          *float64   `json:"games_played"`
	PasserRating                         *float64   `json:"passer_rating"`
	CompletionPercentage                 *float64   `json:"completion_percentage"`
	ExpectedCompletionPercentage         *float64   `json:"expected_completion_percentage"`
	CompletionPercentageAboveExpectation *float64   `json:"completion_percentage_above_expectation"`
	AvgTimeToThrow                       *float64   `json:"avg_time_to_throw"`
	AvgAirDistance                       *float64   `json:"avg_air_distance"`
	MaxAirDistance                       *float64   `json:"max_air_distance"`
	AvgIntendedAirYards                  *float64   `json:"avg_intended_air_yards"`
	AvgCompletedAirYards                 *float64   `json:"avg_completed_air_yards"`
	MaxCompletedAirDistance              *float64   `json:"max_completed_air_distance"`
	AvgAirYardsDifferential              *float64   `json:"avg_air_yards_differential"`
	AvgAirYardsToSticks                  *float64   `json:"avg_air_yards_to_sticks"`
	Aggressiveness                       *float64   `json:"aggressiveness"`
}
