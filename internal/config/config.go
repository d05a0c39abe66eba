// Package config loads the nflsync configuration from YAML with environment
// variable expansion and env-var overrides for credentials.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hrbstats/nflsync/internal/bdl"
	"github.com/hrbstats/nflsync/internal/ingest"
	"github.com/hrbstats/nflsync/internal/notify"
	"github.com/hrbstats/nflsync/internal/util"
)

// DefaultPath is where the CLI looks for configuration when --config is not
// given. A missing default file is not an error: env vars and defaults apply.
const DefaultPath = "nflsync.yaml"

// Source configures the BallDontLie API client.
type Source struct {
	APIKey            string `yaml:"api_key"`
	BaseURL           string `yaml:"base_url"`
	RequestsPerMinute int    `yaml:"requests_per_minute"`
	PerPage           int    `yaml:"per_page"`
	MaxRetries        int    `yaml:"max_retries"`
	TimeoutSeconds    int    `yaml:"timeout_seconds"`
}

// Timeout returns the per-request timeout.
func (s Source) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// Sink configures the Supabase/PostgREST client.
type Sink struct {
	URL            string `yaml:"url"`
	ServiceRoleKey string `yaml:"service_role_key"`
	MaxRetries     int    `yaml:"max_retries"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the per-request timeout.
func (s Sink) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// Ingest configures the coordinator.
type Ingest struct {
	Seasons                   []int  `yaml:"seasons"`
	BatchSize                 int    `yaml:"batch_size"`
	InvalidRowAbort           int    `yaml:"invalid_row_abort"`
	IncludeSeasonStats        *bool  `yaml:"include_season_stats"`
	IncludeGameStats          *bool  `yaml:"include_game_stats"`
	IncludeAdvanced           *bool  `yaml:"include_advanced"`
	AdvancedWeeks             []int  `yaml:"advanced_weeks"`
	AdvancedIncludePostseason bool   `yaml:"advanced_include_postseason"`
	PhotoCSV                  string `yaml:"photo_csv"`
}

// Logging configures log output.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config is the full application configuration.
type Config struct {
	Source        Source              `yaml:"source"`
	Sink          Sink                `yaml:"sink"`
	Ingest        Ingest              `yaml:"ingest"`
	LedgerPath    string              `yaml:"ledger_path"`
	Notifications *notify.SlackConfig `yaml:"notifications"`
	Logging       Logging             `yaml:"logging"`
}

// Load reads config from path. When path is DefaultPath and the file does
// not exist, defaults plus environment variables are used. ${VAR} references
// in the YAML are expanded from the environment before parsing.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		expanded := os.Expand(string(raw), os.Getenv)
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	case os.IsNotExist(err) && path == DefaultPath:
		// Fall through to env + defaults.
	default:
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("BALLDONTLIE_API_KEY"); v != "" {
		c.Source.APIKey = v
	}
	if v := os.Getenv("SUPABASE_URL"); v != "" {
		c.Sink.URL = v
	}
	if v := os.Getenv("SUPABASE_SERVICE_ROLE_KEY"); v != "" {
		c.Sink.ServiceRoleKey = v
	}
	if v := os.Getenv("NFL_SEASONS"); v != "" && len(c.Ingest.Seasons) == 0 {
		if seasons, err := util.ParseSeasons(v); err == nil {
			c.Ingest.Seasons = seasons
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Source.BaseURL == "" {
		c.Source.BaseURL = bdl.DefaultBaseURL
	}
	if c.Source.RequestsPerMinute <= 0 {
		c.Source.RequestsPerMinute = bdl.DefaultRequestsPerMinute
	}
	if c.Source.PerPage <= 0 {
		c.Source.PerPage = bdl.DefaultPerPage
	}
	if c.Source.MaxRetries <= 0 {
		c.Source.MaxRetries = 6
	}
	if c.Source.TimeoutSeconds <= 0 {
		c.Source.TimeoutSeconds = 30
	}
	if c.Sink.MaxRetries <= 0 {
		c.Sink.MaxRetries = 6
	}
	if c.Sink.TimeoutSeconds <= 0 {
		c.Sink.TimeoutSeconds = 30
	}
	if c.Ingest.BatchSize <= 0 {
		c.Ingest.BatchSize = ingest.DefaultBatchSize
	}
	if c.Ingest.InvalidRowAbort <= 0 {
		c.Ingest.InvalidRowAbort = ingest.DefaultInvalidRowAbort
	}
	if len(c.Ingest.AdvancedWeeks) == 0 {
		c.Ingest.AdvancedWeeks = []int{0}
	}
	if c.LedgerPath == "" {
		c.LedgerPath = "data/nflsync.db"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

func (c *Config) validate() error {
	var problems []string
	if strings.TrimSpace(c.Source.APIKey) == "" {
		problems = append(problems, "source api key missing (set source.api_key or BALLDONTLIE_API_KEY)")
	}
	if strings.TrimSpace(c.Sink.URL) == "" {
		problems = append(problems, "sink url missing (set sink.url or SUPABASE_URL)")
	}
	if strings.TrimSpace(c.Sink.ServiceRoleKey) == "" {
		problems = append(problems, "sink service role key missing (set sink.service_role_key or SUPABASE_SERVICE_ROLE_KEY)")
	}
	if len(problems) > 0 {
		return errors.New("invalid configuration: " + strings.Join(problems, "; "))
	}
	return nil
}

// StatsOptions converts the ingest section into coordinator options.
// Include flags default to true when unset.
func (c *Config) StatsOptions() ingest.StatsOptions {
	on := func(p *bool) bool { return p == nil || *p }
	return ingest.StatsOptions{
		IncludeSeasonStats:        on(c.Ingest.IncludeSeasonStats),
		IncludeGameStats:          on(c.Ingest.IncludeGameStats),
		IncludeAdvanced:           on(c.Ingest.IncludeAdvanced),
		AdvancedWeeks:             c.Ingest.AdvancedWeeks,
		AdvancedIncludePostseason: c.Ingest.AdvancedIncludePostseason,
	}
}
