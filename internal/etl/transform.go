package etl

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"xetra/internal/domain"
	"xetra/internal/tabular"
)

// Aggregator turns raw tick rows into one row per (instrument, date).
type Aggregator struct {
	cols   domain.SourceColumns
	logger *slog.Logger
}

// NewAggregator returns an Aggregator reading the columns bound in cols.
func NewAggregator(cols domain.SourceColumns, logger *slog.Logger) *Aggregator {
	return &Aggregator{cols: cols, logger: logger}
}

// tick is a projected raw row with its numeric fields parsed.
type tick struct {
	isin, date, time string
	start, min, max  float64
	volume           float64
}

type group struct {
	isin, date  string
	open, close float64
	min, max    float64
	volume      float64
}

// Aggregate computes the daily report rows for f and drops those dated
// before floor.
//
// Ticks are projected onto the configured source columns and any tick with a
// null in them is dropped. Within each (instrument, date) the opening price
// is the start price of the earliest tick and the closing price the start
// price of the latest, with ties resolved by input order. The percent change
// compares each opening price with the instrument's previous present date.
// Numbers are rounded to two decimals after the change is computed. Rows are
// ordered by instrument, then date.
func (a *Aggregator) Aggregate(f *tabular.Frame, floor string) ([]domain.DailyAggregate, error) {
	if f.Empty() {
		a.logger.Info("no source rows to aggregate")
		return []domain.DailyAggregate{}, nil
	}

	ticks, dropped, err := a.ticks(f)
	if err != nil {
		return nil, err
	}
	if dropped > 0 {
		a.logger.Info("dropped source rows with null values", "rows", dropped)
	}

	sort.SliceStable(ticks, func(i, j int) bool { return ticks[i].time < ticks[j].time })

	byKey := make(map[string]*group)
	var groups []*group
	for _, t := range ticks {
		k := t.isin + "\x00" + t.date
		g, ok := byKey[k]
		if !ok {
			g = &group{isin: t.isin, date: t.date, open: t.start, min: t.min, max: t.max}
			byKey[k] = g
			groups = append(groups, g)
		} else {
			if t.min < g.min {
				g.min = t.min
			}
			if t.max > g.max {
				g.max = t.max
			}
		}
		g.close = t.start
		g.volume += t.volume
	}

	sort.Slice(groups, func(i, j int) bool {
		if groups[i].isin != groups[j].isin {
			return groups[i].isin < groups[j].isin
		}
		return groups[i].date < groups[j].date
	})

	out := make([]domain.DailyAggregate, 0, len(groups))
	for i, g := range groups {
		var change *float64
		if i > 0 && groups[i-1].isin == g.isin && groups[i-1].open != 0 {
			prev := groups[i-1].open
			c := round2((g.open - prev) / prev * 100)
			change = &c
		}
		if g.date < floor {
			continue
		}
		out = append(out, domain.DailyAggregate{
			ISIN:      g.isin,
			Date:      g.date,
			Open:      round2(g.open),
			Close:     round2(g.close),
			Min:       round2(g.min),
			Max:       round2(g.max),
			Volume:    round2(g.volume),
			ChangePct: change,
		})
	}

	a.logger.Info("aggregated source rows",
		"ticks", len(ticks),
		"groups", len(groups),
		"rows", len(out),
		"floor", floor,
	)
	return out, nil
}

// ticks projects f onto the bound columns and parses each complete row.
func (a *Aggregator) ticks(f *tabular.Frame) ([]tick, int, error) {
	cols := a.cols.Columns
	if len(cols) == 0 {
		cols = f.Columns
	}
	p, err := f.Project(cols)
	if err != nil {
		return nil, 0, fmt.Errorf("projecting source columns: %w", err)
	}

	idx := func(name string) (int, error) {
		i := p.ColumnIndex(name)
		if i < 0 {
			return 0, fmt.Errorf("column %q is not among the source columns", name)
		}
		return i, nil
	}
	var ix [7]int
	for n, name := range []string{
		a.cols.ISIN, a.cols.Date, a.cols.Time,
		a.cols.StartPrice, a.cols.MinPrice, a.cols.MaxPrice, a.cols.TradedVolume,
	} {
		if ix[n], err = idx(name); err != nil {
			return nil, 0, err
		}
	}

	out := make([]tick, 0, p.Len())
	dropped := 0
rows:
	for _, row := range p.Rows {
		for _, v := range row {
			if missing(v) {
				dropped++
				continue rows
			}
		}
		t := tick{
			isin: text(row[ix[0]]),
			date: text(row[ix[1]]),
			time: text(row[ix[2]]),
		}
		nums := []*float64{&t.start, &t.min, &t.max, &t.volume}
		for n, dst := range nums {
			col := ix[3+n]
			v, err := number(row[col])
			if err != nil {
				return nil, 0, fmt.Errorf("column %q: %w", p.Columns[col], err)
			}
			*dst = v
		}
		out = append(out, t)
	}
	return out, dropped, nil
}

func text(v any) string {
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return fmt.Sprint(v)
}

// missingTokens are text cells read as null, as pandas does on CSV input.
var missingTokens = map[string]bool{
	"nan": true, "-nan": true, "na": true, "n/a": true, "<na>": true, "null": true, "none": true,
}

// missing reports whether a cell is null: nil, a NaN float or a missing token.
func missing(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case float64:
		return math.IsNaN(x)
	case float32:
		return math.IsNaN(float64(x))
	case string:
		return missingTokens[strings.ToLower(strings.TrimSpace(x))]
	}
	return false
}

// number parses a numeric cell. Infinities are rejected.
func number(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		if math.IsInf(x, 0) {
			return 0, fmt.Errorf("value %v is not a number", x)
		}
		return x, nil
	case float32:
		if math.IsInf(float64(x), 0) {
			return 0, fmt.Errorf("value %v is not a number", x)
		}
		return float64(x), nil
	case int64:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil || math.IsInf(f, 0) {
			return 0, fmt.Errorf("value %q is not a number", x)
		}
		return f, nil
	}
	return 0, fmt.Errorf("value %v of type %T is not a number", v, v)
}

// round2 rounds half to even at two decimals. Non-finite values are
// returned unchanged.
func round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return decimal.NewFromFloat(v).RoundBank(2).InexactFloat64()
}

// ToFrame renders aggregates as a report frame with the target column names.
// A nil change is written as null.
func ToFrame(aggs []domain.DailyAggregate, cols domain.TargetColumns) *tabular.Frame {
	f := tabular.NewFrame(cols.Names()...)
	f.Rows = make([][]any, 0, len(aggs))
	for _, a := range aggs {
		var change any
		if a.ChangePct != nil {
			change = *a.ChangePct
		}
		f.Rows = append(f.Rows, []any{a.ISIN, a.Date, a.Open, a.Close, a.Min, a.Max, a.Volume, change})
	}
	return f
}
