// Package window decides which source dates a run must extract, given the
// processed-dates ledger and the earliest date the caller asked for.
package window

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"xetra/internal/domain"
	"xetra/internal/ledger"
)

// LookbackDays is how many days before the first reportable date are
// extracted so that its previous opening price is available.
const LookbackDays = 1

// ErrInvalidRange is returned when the requested start date is not before
// today or cannot be parsed.
var ErrInvalidRange = errors.New("invalid date range")

// FloorPolicy selects the report floor returned by Reconcile.
type FloorPolicy int

const (
	// FloorRequested uses the caller's requested date as the floor, however
	// far back re-extraction reaches.
	FloorRequested FloorPolicy = iota
	// FloorEarliestMissing uses the earliest unprocessed date. The lookback
	// day of a re-expanded window is then trimmed from the report and not
	// recorded in the ledger again.
	FloorEarliestMissing
)

// ParseFloorPolicy maps "requested" and "earliest_missing" onto a policy.
func ParseFloorPolicy(s string) (FloorPolicy, error) {
	switch s {
	case "", "requested":
		return FloorRequested, nil
	case "earliest_missing":
		return FloorEarliestMissing, nil
	}
	return 0, fmt.Errorf("unknown floor policy %q", s)
}

func (p FloorPolicy) String() string {
	if p == FloorEarliestMissing {
		return "earliest_missing"
	}
	return "requested"
}

// LedgerSource loads the processed-dates ledger.
type LedgerSource interface {
	Load(ctx context.Context) (ledger.Ledger, bool, error)
}

// Reconciler computes the extraction window.
type Reconciler struct {
	ledger LedgerSource
	policy FloorPolicy
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithClock overrides the clock that defines "today".
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) { r.now = now }
}

// WithFloorPolicy sets the floor policy. The default is FloorRequested.
func WithFloorPolicy(p FloorPolicy) Option {
	return func(r *Reconciler) { r.policy = p }
}

// NewReconciler returns a Reconciler reading the ledger from src.
func NewReconciler(src LedgerSource, logger *slog.Logger, opts ...Option) *Reconciler {
	r := &Reconciler{ledger: src, now: time.Now, logger: logger}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Reconciler) today() time.Time {
	return domain.Day(r.now())
}

// DateSpan returns every date from from minus the lookback through today,
// inclusive, ascending. It fails with ErrInvalidRange when the first date of
// the span is not strictly before today.
func (r *Reconciler) DateSpan(from string) ([]string, error) {
	start, err := domain.ParseDate(from)
	if err != nil {
		r.logger.Error("requested date is not a valid date", "date", from, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrInvalidRange, err)
	}
	start = start.AddDate(0, 0, -LookbackDays)
	today := r.today()
	if !start.Before(today) {
		r.logger.Error("argument date must be less than today's date",
			"date", from, "today", domain.FormatDate(today))
		return nil, fmt.Errorf("%w: %s is not before %s", ErrInvalidRange,
			domain.FormatDate(start), domain.FormatDate(today))
	}

	var span []string
	for d := start; !d.After(today); d = d.AddDate(0, 0, 1) {
		span = append(span, domain.FormatDate(d))
	}
	return span, nil
}

// Reconcile returns the dates to extract for a run asked to report from
// requested onward, and the floor below which report rows are trimmed.
//
// Without a ledger the whole span is extracted. With one, the reportable
// dates of the span missing from the ledger are found and the span is
// rebuilt from the earliest of them, lookback included. If none are missing
// the date list is empty.
func (r *Reconciler) Reconcile(ctx context.Context, requested string) (domain.Reconciliation, error) {
	req, err := domain.ParseDate(requested)
	if err != nil {
		r.logger.Error("requested date is not a valid date", "date", requested, "error", err)
		return domain.Reconciliation{}, fmt.Errorf("%w: %v", ErrInvalidRange, err)
	}
	if today := r.today(); !req.Before(today) {
		r.logger.Error("argument date must be less than today's date",
			"date", requested, "today", domain.FormatDate(today))
		return domain.Reconciliation{}, fmt.Errorf("%w: requested %s is not before today %s",
			ErrInvalidRange, requested, domain.FormatDate(today))
	}

	full, err := r.DateSpan(requested)
	if err != nil {
		return domain.Reconciliation{}, err
	}

	l, found, err := r.ledger.Load(ctx)
	if err != nil {
		return domain.Reconciliation{}, err
	}
	if !found {
		r.logger.Info("reconciled window", "requested", requested, "ledger", false,
			"first", full[0], "last", full[len(full)-1], "dates", len(full))
		return domain.Reconciliation{Floor: requested, Dates: full}, nil
	}

	earliest := ""
	missing := 0
	for _, d := range full[LookbackDays:] {
		if !l.Has(d) {
			if earliest == "" {
				earliest = d
			}
			missing++
		}
	}
	if missing == 0 {
		r.logger.Info("all requested dates already processed", "requested", requested)
		return domain.Reconciliation{Floor: requested, Dates: []string{}}, nil
	}

	dates, err := r.DateSpan(earliest)
	if err != nil {
		return domain.Reconciliation{}, err
	}

	floor := requested
	if r.policy == FloorEarliestMissing {
		floor = earliest
	}
	r.logger.Info("reconciled window",
		"requested", requested,
		"ledger", true,
		"missing", missing,
		"earliest_missing", earliest,
		"floor", floor,
		"policy", r.policy.String(),
		"dates", len(dates),
	)
	return domain.Reconciliation{Floor: floor, Dates: dates}, nil
}
