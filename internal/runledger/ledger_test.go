package runledger

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "nested", "runs.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func TestBeginAndComplete(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()

	id, err := l.Begin(ctx, "stats", []int{2023, 2024})
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if id == "" {
		t.Fatal("Begin returned empty id")
	}

	run, err := l.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if run.Status != StatusRunning {
		t.Errorf("status = %q, want %q", run.Status, StatusRunning)
	}
	if len(run.Seasons) != 2 || run.Seasons[0] != 2023 || run.Seasons[1] != 2024 {
		t.Errorf("seasons = %v, want [2023 2024]", run.Seasons)
	}
	if run.StartedAt.IsZero() {
		t.Error("started_at not recorded")
	}

	counts := map[string]int{"nfl_teams": 32, "nfl_players": 1800}
	if err := l.Complete(ctx, id, counts); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	run, err = l.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get after Complete failed: %v", err)
	}
	if run.Status != StatusCompleted {
		t.Errorf("status = %q, want %q", run.Status, StatusCompleted)
	}
	if run.Counts["nfl_players"] != 1800 {
		t.Errorf("counts = %v, want nfl_players=1800", run.Counts)
	}
	if run.FinishedAt.IsZero() {
		t.Error("finished_at not recorded")
	}
}

func TestFailRecordsError(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()

	id, err := l.Begin(ctx, "core", []int{2024})
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if err := l.Fail(ctx, id, errors.New("source api unavailable")); err != nil {
		t.Fatalf("Fail failed: %v", err)
	}

	run, err := l.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if run.Status != StatusFailed {
		t.Errorf("status = %q, want %q", run.Status, StatusFailed)
	}
	if run.Error != "source api unavailable" {
		t.Errorf("error = %q", run.Error)
	}
}

func TestFinishUnknownRun(t *testing.T) {
	l := openTestLedger(t)
	if err := l.Complete(context.Background(), "no-such-run", nil); err == nil {
		t.Fatal("expected error for unknown run id")
	}
}

func TestListNewestFirst(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		id, err := l.Begin(ctx, "run", []int{2024})
		if err != nil {
			t.Fatalf("Begin failed: %v", err)
		}
		ids = append(ids, id)
		time.Sleep(5 * time.Millisecond)
	}

	runs, err := l.List(ctx, 2)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("List returned %d runs, want 2", len(runs))
	}
	if runs[0].ID != ids[2] {
		t.Errorf("first run = %s, want newest %s", runs[0].ID, ids[2])
	}
}
