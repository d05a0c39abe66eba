// Package runledger keeps a local history of ingestion runs in SQLite so
// operators can see what ran, when, and how many rows each run wrote.
package runledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Run statuses.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Run is one recorded ingestion run.
type Run struct {
	ID         string
	Kind       string
	Seasons    []int
	Status     string
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
	Counts     map[string]int
}

// Ledger is the SQLite-backed run history.
type Ledger struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	kind        TEXT NOT NULL,
	seasons     TEXT NOT NULL,
	status      TEXT NOT NULL,
	error       TEXT NOT NULL DEFAULT '',
	started_at  TEXT NOT NULL,
	finished_at TEXT NOT NULL DEFAULT '',
	counts      TEXT NOT NULL DEFAULT '{}'
);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
`

// Open opens (creating if needed) the ledger database at path.
func Open(path string) (*Ledger, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating ledger directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing ledger schema: %w", err)
	}
	return &Ledger{db: db}, nil
}

// Close closes the underlying database.
func (l *Ledger) Close() error { return l.db.Close() }

// Begin records a new run in the running state and returns its id.
func (l *Ledger) Begin(ctx context.Context, kind string, seasons []int) (string, error) {
	id := uuid.NewString()
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO runs (id, kind, seasons, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		id, kind, joinSeasons(seasons), StatusRunning, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return "", fmt.Errorf("recording run start: %w", err)
	}
	return id, nil
}

// Complete marks a run completed with its per-table row counts.
func (l *Ledger) Complete(ctx context.Context, id string, counts map[string]int) error {
	encoded, err := json.Marshal(counts)
	if err != nil {
		return fmt.Errorf("encoding run counts: %w", err)
	}
	return l.finish(ctx, id, StatusCompleted, "", string(encoded))
}

// Fail marks a run failed with the error that stopped it.
func (l *Ledger) Fail(ctx context.Context, id string, runErr error) error {
	msg := ""
	if runErr != nil {
		msg = runErr.Error()
	}
	return l.finish(ctx, id, StatusFailed, msg, "{}")
}

func (l *Ledger) finish(ctx context.Context, id, status, errMsg, counts string) error {
	res, err := l.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, error = ?, counts = ?, finished_at = ? WHERE id = ?`,
		status, errMsg, counts, time.Now().UTC().Format(time.RFC3339Nano), id)
	if err != nil {
		return fmt.Errorf("recording run finish: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("run %s not found", id)
	}
	return nil
}

// List returns the most recent runs, newest first.
func (l *Ledger) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, kind, seasons, status, error, started_at, finished_at, counts
		 FROM runs ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Get returns one run by id.
func (l *Ledger) Get(ctx context.Context, id string) (Run, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, kind, seasons, status, error, started_at, finished_at, counts
		 FROM runs WHERE id = ?`, id)
	if err != nil {
		return Run{}, fmt.Errorf("loading run %s: %w", id, err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("run %s not found", id)
	}
	return scanRun(rows)
}

func scanRun(rows *sql.Rows) (Run, error) {
	var r Run
	var seasons, started, finished, counts string
	if err := rows.Scan(&r.ID, &r.Kind, &seasons, &r.Status, &r.Error, &started, &finished, &counts); err != nil {
		return Run{}, fmt.Errorf("scanning run: %w", err)
	}
	r.Seasons = splitSeasons(seasons)
	r.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
	if finished != "" {
		r.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
	}
	if err := json.Unmarshal([]byte(counts), &r.Counts); err != nil {
		return Run{}, fmt.Errorf("decoding counts for run %s: %w", r.ID, err)
	}
	return r, nil
}

func joinSeasons(seasons []int) string {
	parts := make([]string, len(seasons))
	for i, s := range seasons {
		parts[i] = strconv.Itoa(s)
	}
	return strings.Join(parts, ",")
}

func splitSeasons(s string) []int {
	if s == "" {
		return nil
	}
	var out []int
	for _, part := range strings.Split(s, ",") {
		if n, err := strconv.Atoi(strings.TrimSpace(part)); err == nil {
			out = append(out, n)
		}
	}
	return out
}
