package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/hrbstats/nflsync/internal/bdl"
	"github.com/hrbstats/nflsync/internal/config"
	"github.com/hrbstats/nflsync/internal/ingest"
	"github.com/hrbstats/nflsync/internal/logging"
	"github.com/hrbstats/nflsync/internal/notify"
	"github.com/hrbstats/nflsync/internal/photos"
	"github.com/hrbstats/nflsync/internal/progress"
	"github.com/hrbstats/nflsync/internal/runledger"
	"github.com/hrbstats/nflsync/internal/sink"
	"github.com/hrbstats/nflsync/internal/util"
	"github.com/hrbstats/nflsync/internal/version"
)

func main() {
	app := &cli.App{
		Name:    version.Name,
		Usage:   "Ingest NFL data from the BallDontLie API into Supabase",
		Version: version.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   config.DefaultPath,
				Usage:   "Path to configuration file",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Ingest core data and all stats",
				Action: runAll,
				Flags:  []cli.Flag{seasonsFlag()},
			},
			{
				Name:   "core",
				Usage:  "Ingest teams, players and games only",
				Action: runCore,
				Flags:  []cli.Flag{seasonsFlag()},
			},
			{
				Name:   "stats",
				Usage:  "Ingest season, per-game and advanced stats",
				Action: runStats,
				Flags: []cli.Flag{
					seasonsFlag(),
					&cli.BoolFlag{
						Name:  "advanced-only",
						Usage: "Skip season and per-game stats",
					},
					&cli.BoolFlag{
						Name:  "include-advanced",
						Value: true,
						Usage: "Fetch advanced (Next Gen) stats",
					},
				},
			},
			{
				Name:   "status",
				Usage:  "Show row counts per sink table",
				Action: showStatus,
			},
			{
				Name:  "history",
				Usage: "List ingestion runs, or view details of a specific run",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "run",
						Usage: "Show details for a specific run ID",
					},
				},
				Action: showHistory,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func seasonsFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "seasons",
		Usage: "Comma-separated seasons to ingest (overrides config)",
	}
}

// stack holds the wired clients for one command invocation.
type stack struct {
	cfg      *config.Config
	source   *bdl.Client
	sink     *sink.Client
	ledger   *runledger.Ledger
	notifier *notify.Notifier
}

func buildStack(c *cli.Context) (*stack, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if level, err := logging.ParseLevel(cfg.Logging.Level); err == nil {
		logging.SetLevel(level)
	}
	logging.SetFormat(cfg.Logging.Format)

	source, err := bdl.NewClient(bdl.Config{
		APIKey:            cfg.Source.APIKey,
		BaseURL:           cfg.Source.BaseURL,
		RequestsPerMinute: cfg.Source.RequestsPerMinute,
		PerPage:           cfg.Source.PerPage,
		MaxRetries:        cfg.Source.MaxRetries,
		Timeout:           cfg.Source.Timeout(),
	})
	if err != nil {
		return nil, err
	}

	sinkClient, err := sink.New(sink.Config{
		URL:            cfg.Sink.URL,
		ServiceRoleKey: cfg.Sink.ServiceRoleKey,
		MaxRetries:     cfg.Sink.MaxRetries,
		Timeout:        cfg.Sink.Timeout(),
	})
	if err != nil {
		return nil, err
	}

	ledger, err := runledger.Open(cfg.LedgerPath)
	if err != nil {
		return nil, err
	}

	return &stack{
		cfg:      cfg,
		source:   source,
		sink:     sinkClient,
		ledger:   ledger,
		notifier: notify.New(cfg.Notifications),
	}, nil
}

func (s *stack) Close() {
	if s.ledger != nil {
		s.ledger.Close()
	}
}

func (s *stack) seasons(c *cli.Context) ([]int, error) {
	if c.IsSet("seasons") {
		return parseSeasonsFlag(c.String("seasons"))
	}
	if len(s.cfg.Ingest.Seasons) == 0 {
		return nil, errors.New("no seasons configured: set ingest.seasons, NFL_SEASONS, or --seasons")
	}
	return s.cfg.Ingest.Seasons, nil
}

func (s *stack) coordinator() (*ingest.Coordinator, *progress.Tracker) {
	coord := &ingest.Coordinator{
		Source:          s.source,
		Sink:            s.sink,
		BatchSize:       s.cfg.Ingest.BatchSize,
		InvalidRowAbort: s.cfg.Ingest.InvalidRowAbort,
	}

	if path := s.cfg.Ingest.PhotoCSV; path != "" {
		book, err := photos.Load(path)
		if err != nil {
			logging.Warn("Player photo CSV unavailable, skipping enrichment: %v", err)
		} else {
			coord.Photos = book
		}
	}

	tracker := progress.New()
	lastTotals := map[string]int{}
	coord.OnBatch = func(table string, total int) {
		tracker.Describe(table)
		tracker.Add(int64(total - lastTotals[table]))
		lastTotals[table] = total
	}
	return coord, tracker
}

// signalContext cancels on SIGINT/SIGTERM so a run stops at the next
// blocking HTTP call.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nInterrupted. Finishing current request...")
		cancel()
	}()
	return ctx, cancel
}

func runAll(c *cli.Context) error {
	return runIngestion(c, "run", true, true, nil)
}

func runCore(c *cli.Context) error {
	return runIngestion(c, "core", true, false, nil)
}

func runStats(c *cli.Context) error {
	s, err := buildStack(c)
	if err != nil {
		return err
	}
	opts := s.cfg.StatsOptions()
	if c.Bool("advanced-only") {
		opts.IncludeSeasonStats = false
		opts.IncludeGameStats = false
	}
	if c.IsSet("include-advanced") {
		opts.IncludeAdvanced = c.Bool("include-advanced")
	}
	defer s.Close()
	return ingestWithStack(c, s, "stats", false, true, &opts)
}

func runIngestion(c *cli.Context, kind string, doCore, doStats bool, opts *ingest.StatsOptions) error {
	s, err := buildStack(c)
	if err != nil {
		return err
	}
	defer s.Close()
	return ingestWithStack(c, s, kind, doCore, doStats, opts)
}

func ingestWithStack(c *cli.Context, s *stack, kind string, doCore, doStats bool, opts *ingest.StatsOptions) error {
	seasons, err := s.seasons(c)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	runID, err := s.ledger.Begin(ctx, kind, seasons)
	if err != nil {
		return err
	}
	if err := s.notifier.IngestStarted(runID, kind, seasons); err != nil {
		logging.Warn("Slack notification failed: %v", err)
	}
	logging.Info("Starting %s run %s for seasons %v", kind, runID, seasons)
	start := time.Now()

	coord, tracker := s.coordinator()
	counts := map[string]int{}
	var skipped []string

	runErr := func() error {
		if doCore {
			core, err := coord.IngestCore(ctx, seasons)
			counts[ingest.TableTeams] = core.Teams
			counts[ingest.TablePlayers] = core.Players
			counts[ingest.TableGames] = core.Games
			if err != nil {
				return err
			}
		}
		if doStats {
			statsOpts := s.cfg.StatsOptions()
			if opts != nil {
				statsOpts = *opts
			}
			stats, err := coord.IngestStats(ctx, seasons, statsOpts)
			counts[ingest.TableSeasonStats] = stats.SeasonStats
			counts[ingest.TableGameStats] = stats.GameStats
			counts[ingest.TableAdvReceiving] = stats.AdvReceiving
			counts[ingest.TableAdvRushing] = stats.AdvRushing
			counts[ingest.TableAdvPassing] = stats.AdvPassing
			skipped = stats.SkippedEndpoints
			if err != nil {
				return err
			}
		}
		return nil
	}()

	duration := time.Since(start)
	if runErr != nil {
		var wErr *sink.WriteError
		if errors.As(runErr, &wErr) {
			logging.Error("Sink rejected writes to %s (status %d): verify the sink schema and credentials", wErr.Table, wErr.Status)
		}
		if err := s.ledger.Fail(context.Background(), runID, runErr); err != nil {
			logging.Warn("Failed to record run failure: %v", err)
		}
		if err := s.notifier.IngestFailed(runID, runErr, duration); err != nil {
			logging.Warn("Slack notification failed: %v", err)
		}
		return runErr
	}

	tracker.Finish()
	if err := s.ledger.Complete(context.Background(), runID, counts); err != nil {
		logging.Warn("Failed to record run completion: %v", err)
	}

	total := int64(0)
	for _, n := range counts {
		total += int64(n)
	}
	var notifyErr error
	if len(skipped) > 0 {
		notifyErr = s.notifier.IngestCompletedWithSkips(runID, duration, total, skipped)
	} else {
		notifyErr = s.notifier.IngestCompleted(runID, duration, total)
	}
	if notifyErr != nil {
		logging.Warn("Slack notification failed: %v", notifyErr)
	}
	logging.Info("Run %s completed in %s", runID, duration.Round(time.Second))
	return nil
}

var statusTables = []string{
	ingest.TableTeams,
	ingest.TablePlayers,
	ingest.TableGames,
	ingest.TableSeasonStats,
	ingest.TableGameStats,
	ingest.TableAdvReceiving,
	ingest.TableAdvRushing,
	ingest.TableAdvPassing,
}

func showStatus(c *cli.Context) error {
	s, err := buildStack(c)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Printf("%-35s %s\n", "TABLE", "ROWS")
	for _, table := range statusTables {
		n, err := s.sink.Count(ctx, table, nil)
		if err != nil {
			fmt.Printf("%-35s error: %v\n", table, err)
			continue
		}
		fmt.Printf("%-35s %d\n", table, n)
	}
	return nil
}

func showHistory(c *cli.Context) error {
	s, err := buildStack(c)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := context.Background()
	if runID := c.String("run"); runID != "" {
		run, err := s.ledger.Get(ctx, runID)
		if err != nil {
			return err
		}
		printRunDetails(run)
		return nil
	}

	runs, err := s.ledger.List(ctx, 20)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded.")
		return nil
	}
	fmt.Printf("%-36s %-6s %-10s %-20s %s\n", "RUN ID", "KIND", "STATUS", "STARTED", "SEASONS")
	for _, run := range runs {
		fmt.Printf("%-36s %-6s %-10s %-20s %v\n",
			run.ID, run.Kind, run.Status, run.StartedAt.Format("2006-01-02 15:04:05"), run.Seasons)
	}
	return nil
}

func printRunDetails(run runledger.Run) {
	fmt.Printf("Run:      %s\n", run.ID)
	fmt.Printf("Kind:     %s\n", run.Kind)
	fmt.Printf("Status:   %s\n", run.Status)
	fmt.Printf("Seasons:  %v\n", run.Seasons)
	fmt.Printf("Started:  %s\n", run.StartedAt.Format(time.RFC3339))
	if !run.FinishedAt.IsZero() {
		fmt.Printf("Finished: %s (%s)\n", run.FinishedAt.Format(time.RFC3339),
			run.FinishedAt.Sub(run.StartedAt).Round(time.Second))
	}
	if run.Error != "" {
		fmt.Printf("Error:    %s\n", run.Error)
	}
	if len(run.Counts) > 0 {
		fmt.Println("Rows upserted:")
		for _, table := range statusTables {
			if n, ok := run.Counts[table]; ok {
				fmt.Printf("  %-35s %d\n", table, n)
			}
		}
	}
}

func parseSeasonsFlag(s string) ([]int, error) {
	seasons, err := util.ParseSeasons(s)
	if err != nil {
		return nil, fmt.Errorf("invalid --seasons: %w", err)
	}
	if len(seasons) == 0 {
		return nil, errors.New("invalid --seasons: no seasons given")
	}
	return seasons, nil
}
