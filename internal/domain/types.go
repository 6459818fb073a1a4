// Package domain defines the types shared by the ETL stages: column
// bindings, daily aggregates, and reconciliation results.
package domain

import (
	"fmt"
	"time"
)

// Date layouts used in object keys, ledger rows and aggregate rows.
const (
	DateLayout        = "2006-01-02"
	ProcessedAtLayout = "2006-01-02 150405"
)

// FormatDate renders t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate parses a YYYY-MM-DD string into a UTC midnight time.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing date %q: %w", s, err)
	}
	return t, nil
}

// Day truncates t to its calendar date (in t's own location) and returns
// that date as UTC midnight.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ---------------------------------------------------------------------------
// Column bindings
// ---------------------------------------------------------------------------

// SourceColumns binds the raw tick columns of the landing zone. Columns is
// the projection applied before aggregation; the remaining fields name the
// columns the aggregator reads.
type SourceColumns struct {
	Columns      []string `yaml:"columns"`
	ISIN         string   `yaml:"isin"`
	Date         string   `yaml:"date"`
	Time         string   `yaml:"time"`
	StartPrice   string   `yaml:"start_price"`
	MaxPrice     string   `yaml:"max_price"`
	MinPrice     string   `yaml:"min_price"`
	EndPrice     string   `yaml:"end_price"`
	TradedVolume string   `yaml:"traded_volume"`
}

// TargetColumns names the columns of the written report.
type TargetColumns struct {
	ISIN              string `yaml:"isin"`
	Date              string `yaml:"date"`
	OpenPrice         string `yaml:"open_price"`
	ClosePrice        string `yaml:"close_price"`
	MinPrice          string `yaml:"min_price"`
	MaxPrice          string `yaml:"max_price"`
	DailyTradedVolume string `yaml:"daily_traded_volume"`
	ChangePrevClose   string `yaml:"change_prev_close"`
}

// Names returns the target columns in report order.
func (c TargetColumns) Names() []string {
	return []string{
		c.ISIN,
		c.Date,
		c.OpenPrice,
		c.ClosePrice,
		c.MinPrice,
		c.MaxPrice,
		c.DailyTradedVolume,
		c.ChangePrevClose,
	}
}

// ---------------------------------------------------------------------------
// Derived records
// ---------------------------------------------------------------------------

// DailyAggregate is one report row per (instrument, date).
type DailyAggregate struct {
	ISIN   string
	Date   string // YYYY-MM-DD
	Open   float64
	Close  float64
	Min    float64
	Max    float64
	Volume float64

	// ChangePct is the percent change of Open against the previous present
	// date's Open for the same instrument. Nil when undefined.
	ChangePct *float64
}

// Reconciliation is the outcome of comparing a requested start date with the
// processed-dates ledger.
type Reconciliation struct {
	// Floor is the date below which report rows are trimmed.
	Floor string
	// Dates lists the calendar dates to extract, ascending. It includes the
	// lookback day and may be empty when nothing is missing.
	Dates []string
}

// NewlyCovered returns the dates in r.Dates on or after the floor. These are
// the dates recorded in the ledger after a successful load.
func (r Reconciliation) NewlyCovered() []string {
	out := make([]string, 0, len(r.Dates))
	for _, d := range r.Dates {
		if d >= r.Floor {
			out = append(out, d)
		}
	}
	return out
}
