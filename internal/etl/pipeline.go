package etl

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"xetra/internal/domain"
	"xetra/internal/store"
)

// WindowReconciler computes the dates a run must extract.
type WindowReconciler interface {
	Reconcile(ctx context.Context, requested string) (domain.Reconciliation, error)
}

// RunRecorder journals finished runs.
type RunRecorder interface {
	RecordRun(ctx context.Context, run store.Run) error
}

// RunObserver is notified of every finished run. err is nil on success.
type RunObserver interface {
	ObserveRun(report Report, err error)
}

// Report summarises one run.
type Report struct {
	RunID      string
	Requested  string
	Floor      string
	Dates      []string // extracted dates, lookback included
	RawRows    int
	OutputRows int
	Key        string // report object key, "" when nothing was written
	StartedAt  time.Time
	FinishedAt time.Time
}

// Duration returns how long the run took.
func (r Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Pipeline sequences reconcile, extract, aggregate and load.
type Pipeline struct {
	reconciler WindowReconciler
	extractor  *Extractor
	aggregator *Aggregator
	loader     *Loader
	recorder   RunRecorder
	observer   RunObserver
	now        func() time.Time
	logger     *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithRecorder journals every run.
func WithRecorder(r RunRecorder) Option {
	return func(p *Pipeline) { p.recorder = r }
}

// WithObserver reports every run to o.
func WithObserver(o RunObserver) Option {
	return func(p *Pipeline) { p.observer = o }
}

// WithClock overrides the clock used for run timestamps and report keys.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// NewPipeline wires the stages together.
func NewPipeline(r WindowReconciler, e *Extractor, a *Aggregator, l *Loader, logger *slog.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		reconciler: r,
		extractor:  e,
		aggregator: a,
		loader:     l,
		now:        time.Now,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes one report run for dates from requested onward.
func (p *Pipeline) Run(ctx context.Context, requested string) (Report, error) {
	rep := Report{
		RunID:     uuid.NewString(),
		Requested: requested,
		StartedAt: p.now(),
	}
	logger := p.logger.With("run_id", rep.RunID)
	logger.Info("run started", "requested", requested)

	err := p.run(ctx, &rep)
	rep.FinishedAt = p.now()

	if err != nil {
		logger.Error("run failed", "requested", requested, "floor", rep.Floor, "error", err)
	} else {
		logger.Info("run finished",
			"floor", rep.Floor,
			"dates", len(rep.Dates),
			"raw_rows", rep.RawRows,
			"output_rows", rep.OutputRows,
			"key", rep.Key,
			"duration", rep.Duration(),
		)
	}

	if p.observer != nil {
		p.observer.ObserveRun(rep, err)
	}
	if p.recorder != nil {
		if rerr := p.recorder.RecordRun(context.WithoutCancel(ctx), runRecord(rep, err)); rerr != nil {
			logger.Warn("recording run failed", "error", rerr)
		}
	}
	return rep, err
}

func (p *Pipeline) run(ctx context.Context, rep *Report) error {
	rec, err := p.reconciler.Reconcile(ctx, rep.Requested)
	if err != nil {
		return fmt.Errorf("reconciling window: %w", err)
	}
	rep.Floor = rec.Floor
	rep.Dates = rec.Dates

	raw, err := p.extractor.Extract(ctx, rec.Dates)
	if err != nil {
		return fmt.Errorf("extracting: %w", err)
	}
	rep.RawRows = raw.Len()

	aggs, err := p.aggregator.Aggregate(raw, rec.Floor)
	if err != nil {
		return fmt.Errorf("aggregating: %w", err)
	}
	rep.OutputRows = len(aggs)

	key, err := p.loader.Load(ctx, aggs, rec, rep.StartedAt)
	rep.Key = key
	if err != nil {
		return fmt.Errorf("loading: %w", err)
	}
	return nil
}

func runRecord(rep Report, err error) store.Run {
	r := store.Run{
		ID:         rep.RunID,
		StartedAt:  rep.StartedAt,
		FinishedAt: rep.FinishedAt,
		Requested:  rep.Requested,
		Floor:      rep.Floor,
		Dates:      len(rep.Dates),
		RawRows:    rep.RawRows,
		OutputRows: rep.OutputRows,
		OutputKey:  rep.Key,
		Status:     store.StatusSucceeded,
	}
	if len(rep.Dates) > 0 {
		r.FirstDate = rep.Dates[0]
		r.LastDate = rep.Dates[len(rep.Dates)-1]
	}
	if err != nil {
		r.Status = store.StatusFailed
		r.Error = err.Error()
	}
	return r
}
