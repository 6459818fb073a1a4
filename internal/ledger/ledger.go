// Package ledger persists the set of source dates that have been extracted
// and folded into a report.
//
// The ledger is a CSV object with a header row and two columns, source_data
// (YYYY-MM-DD) and datetime_of_processing (YYYY-MM-DD HHMMSS). It is
// append-only and may hold the same date more than once; readers treat it as
// a set. Every Append rewrites the whole object, so concurrent runs against
// one target are last-writer-wins.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"xetra/internal/blob"
	"xetra/internal/domain"
	"xetra/internal/tabular"
)

// Object layout.
const (
	DefaultKey        = "meta_file.csv"
	SourceDateColumn  = "source_data"
	ProcessedAtColumn = "datetime_of_processing"
	Encoding          = tabular.CSV
)

// ErrMalformedLedger is returned when the ledger object exists but does not
// have the expected layout.
var ErrMalformedLedger = errors.New("malformed ledger")

// Entry is one ledger row.
type Entry struct {
	Date        string // YYYY-MM-DD
	ProcessedAt string // YYYY-MM-DD HHMMSS, kept as stored
}

// Ledger is the parsed ledger object.
type Ledger struct {
	entries []Entry
	dates   map[string]struct{}
}

func newLedger(entries []Entry) Ledger {
	l := Ledger{entries: entries, dates: make(map[string]struct{}, len(entries))}
	for _, e := range entries {
		l.dates[e.Date] = struct{}{}
	}
	return l
}

// Entries returns the rows in stored order.
func (l Ledger) Entries() []Entry { return l.entries }

// Len returns the number of rows, duplicates included.
func (l Ledger) Len() int { return len(l.entries) }

// Has reports whether date has been processed.
func (l Ledger) Has(date string) bool {
	_, ok := l.dates[date]
	return ok
}

// Dates returns the distinct processed dates, ascending.
func (l Ledger) Dates() []string {
	out := make([]string, 0, len(l.dates))
	for d := range l.dates {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// Store is the subset of blob.Bucket the codec needs.
type Store interface {
	Read(ctx context.Context, key string, enc tabular.Encoding) (*tabular.Frame, error)
	Write(ctx context.Context, f *tabular.Frame, key string, enc tabular.Encoding) error
}

// Codec loads and appends the ledger object stored at a fixed key.
type Codec struct {
	store  Store
	key    string
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Codec.
type Option func(*Codec)

// WithClock overrides the clock used for processing timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) { c.now = now }
}

// NewCodec returns a codec for the ledger at key. An empty key means
// DefaultKey.
func NewCodec(store Store, key string, logger *slog.Logger, opts ...Option) *Codec {
	if key == "" {
		key = DefaultKey
	}
	c := &Codec{store: store, key: key, now: time.Now, logger: logger}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key returns the object key of the ledger.
func (c *Codec) Key() string { return c.key }

// Load reads the ledger. found is false, with a nil error, when no ledger
// object exists yet.
func (c *Codec) Load(ctx context.Context) (l Ledger, found bool, err error) {
	f, err := c.store.Read(ctx, c.key, Encoding)
	if errors.Is(err, blob.ErrNotFound) {
		c.logger.Info("no ledger found, treating as first run", "key", c.key)
		return Ledger{}, false, nil
	}
	if err != nil {
		return Ledger{}, false, fmt.Errorf("loading ledger %s: %w", c.key, err)
	}

	entries, err := parse(f)
	if err != nil {
		c.logger.Error("ledger is malformed", "key", c.key, "error", err)
		return Ledger{}, true, err
	}
	return newLedger(entries), true, nil
}

func parse(f *tabular.Frame) ([]Entry, error) {
	di := f.ColumnIndex(SourceDateColumn)
	if di < 0 {
		return nil, fmt.Errorf("%w: column %q missing (have %v)", ErrMalformedLedger, SourceDateColumn, f.Columns)
	}
	pi := f.ColumnIndex(ProcessedAtColumn)

	entries := make([]Entry, 0, f.Len())
	for i, row := range f.Rows {
		s, ok := row[di].(string)
		if !ok {
			return nil, fmt.Errorf("%w: row %d: %s is empty", ErrMalformedLedger, i+1, SourceDateColumn)
		}
		if _, err := domain.ParseDate(s); err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrMalformedLedger, i+1, err)
		}
		e := Entry{Date: s}
		if pi >= 0 {
			if p, ok := row[pi].(string); ok {
				e.ProcessedAt = p
			}
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Append records dates as processed now and rewrites the ledger with the
// existing rows followed by the new ones. Appending no dates is a no-op.
func (c *Codec) Append(ctx context.Context, dates []string) error {
	if len(dates) == 0 {
		c.logger.Info("no dates to record in ledger", "key", c.key)
		return nil
	}
	for _, d := range dates {
		if _, err := domain.ParseDate(d); err != nil {
			return fmt.Errorf("appending to ledger: %w", err)
		}
	}

	old, found, err := c.Load(ctx)
	if err != nil {
		return err
	}

	f := tabular.NewFrame(SourceDateColumn, ProcessedAtColumn)
	if found {
		for _, e := range old.Entries() {
			f.Rows = append(f.Rows, []any{e.Date, processedAtCell(e.ProcessedAt)})
		}
	}
	stamp := c.now().Format(domain.ProcessedAtLayout)
	for _, d := range dates {
		f.Rows = append(f.Rows, []any{d, stamp})
	}

	if err := c.store.Write(ctx, f, c.key, Encoding); err != nil {
		return fmt.Errorf("writing ledger %s: %w", c.key, err)
	}
	c.logger.Info("ledger updated", "key", c.key, "added", len(dates), "rows", f.Len())
	return nil
}

func processedAtCell(s string) any {
	if s == "" {
		return nil
	}
	return s
}
