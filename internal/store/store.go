// Package store defines the run journal: one record per pipeline run, kept
// for operators alongside the processed-dates ledger.
package store

import (
	"context"
	"time"
)

// Run statuses.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Run is one pipeline execution.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Requested  string // requested first date
	Floor      string
	FirstDate  string // first extracted date, empty when none
	LastDate   string
	Dates      int // number of extracted dates
	RawRows    int
	OutputRows int
	OutputKey  string
	Status     string
	Error      string
}

// Duration returns how long the run took.
func (r Run) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// RunStore persists and retrieves run records.
type RunStore interface {
	// RecordRun inserts a run, replacing any earlier record with the same ID.
	RecordRun(ctx context.Context, run Run) error

	// ListRuns returns the most recent runs, newest first, up to limit.
	ListRuns(ctx context.Context, limit int) ([]Run, error)
}
