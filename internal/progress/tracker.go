// Package progress renders a terminal progress indicator for ingestion runs.
// Row totals are unknown up front (cursor pagination), so the tracker runs as
// a spinner with a running row count.
package progress

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/schollz/progressbar/v3"
)

// Tracker tracks rows upserted across an ingestion run. A nil Tracker is a
// no-op, so callers can pass one through unconditionally.
type Tracker struct {
	bar       *progressbar.ProgressBar
	current   atomic.Int64
	startTime time.Time
}

// New creates a tracker with an indeterminate spinner.
func New() *Tracker {
	return &Tracker{
		startTime: time.Now(),
		bar: progressbar.NewOptions64(
			-1,
			progressbar.OptionSetDescription("Ingesting"),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(40),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("rows"),
			progressbar.OptionSpinnerType(14),
		),
	}
}

// Describe updates the spinner label, typically with the table being written.
func (t *Tracker) Describe(table string) {
	if t == nil {
		return
	}
	t.bar.Describe("Ingesting " + table)
}

// Add increments the row counter.
func (t *Tracker) Add(n int64) {
	if t == nil {
		return
	}
	t.current.Add(n)
	t.bar.Add64(n)
}

// Current returns the rows counted so far.
func (t *Tracker) Current() int64 {
	if t == nil {
		return 0
	}
	return t.current.Load()
}

// Finish stops the spinner and prints a run summary.
func (t *Tracker) Finish() {
	if t == nil {
		return
	}
	t.bar.Finish()

	elapsed := time.Since(t.startTime)
	rowsPerSec := float64(t.current.Load()) / elapsed.Seconds()

	fmt.Println()
	fmt.Printf("Upserted %d rows in %s (%.0f rows/sec)\n",
		t.current.Load(), elapsed.Round(time.Second), rowsPerSec)
}
