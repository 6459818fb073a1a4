package etl

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"xetra/internal/domain"
	"xetra/internal/tabular"
)

// ObjectWriter writes tabular objects.
type ObjectWriter interface {
	Write(ctx context.Context, f *tabular.Frame, key string, enc tabular.Encoding) error
}

// LedgerAppender records dates as processed.
type LedgerAppender interface {
	Append(ctx context.Context, dates []string) error
}

// KeyFormat builds report object keys: Prefix, the run time formatted with
// Layout (a Go time layout), a dot, and Extension.
type KeyFormat struct {
	Prefix    string
	Layout    string
	Extension string
}

// Key returns the object key for a run started at ts.
func (k KeyFormat) Key(ts time.Time) string {
	return k.Prefix + ts.Format(k.Layout) + "." + strings.TrimPrefix(k.Extension, ".")
}

// Loader writes the report and advances the ledger.
type Loader struct {
	dst    ObjectWriter
	ledger LedgerAppender
	keys   KeyFormat
	enc    tabular.Encoding
	cols   domain.TargetColumns
	logger *slog.Logger
}

// NewLoader returns a Loader writing reports encoded with enc.
func NewLoader(dst ObjectWriter, ledger LedgerAppender, keys KeyFormat, enc tabular.Encoding, cols domain.TargetColumns, logger *slog.Logger) *Loader {
	return &Loader{dst: dst, ledger: ledger, keys: keys, enc: enc, cols: cols, logger: logger}
}

// Load writes aggs under the key for runTS, then records every reconciled
// date on or after the floor in the ledger, including dates that had no
// source rows. It returns the report key, or "" when there was nothing to
// write.
//
// The write and the ledger update are not atomic. If the update fails the
// next run re-extracts the same dates and writes a new report.
func (l *Loader) Load(ctx context.Context, aggs []domain.DailyAggregate, rec domain.Reconciliation, runTS time.Time) (string, error) {
	key := l.keys.Key(runTS)
	if err := l.dst.Write(ctx, ToFrame(aggs, l.cols), key, l.enc); err != nil {
		return "", fmt.Errorf("writing report %s: %w", key, err)
	}
	if len(aggs) == 0 {
		key = ""
	}

	covered := rec.NewlyCovered()
	if err := l.ledger.Append(ctx, covered); err != nil {
		return key, fmt.Errorf("updating ledger: %w", err)
	}
	l.logger.Info("report loaded", "key", key, "rows", len(aggs), "dates_recorded", len(covered))
	return key, nil
}
