package window

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"xetra/internal/blob"
	"xetra/internal/ledger"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// 2022-04-15 afternoon, Berlin time. "Today" is the calendar date of the clock.
func clock() time.Time {
	return time.Date(2022, 4, 15, 16, 0, 0, 0, time.FixedZone("CEST", 2*60*60))
}

func newCodec(t *testing.T) *ledger.Codec {
	t.Helper()
	bucket := blob.NewBucket(blob.NewFSBackend(t.TempDir()), discardLogger())
	return ledger.NewCodec(bucket, "", discardLogger(), ledger.WithClock(clock))
}

func join(s []string) string { return strings.Join(s, ",") }

func TestDateSpan(t *testing.T) {
	r := NewReconciler(nil, discardLogger(), WithClock(clock))

	span, err := r.DateSpan("2022-04-12")
	if err != nil {
		t.Fatalf("DateSpan: %v", err)
	}
	want := "2022-04-11,2022-04-12,2022-04-13,2022-04-14,2022-04-15"
	if join(span) != want {
		t.Errorf("DateSpan = %s, want %s", join(span), want)
	}

	// The lookback day is yesterday, so today still yields a span.
	span, err = r.DateSpan("2022-04-15")
	if err != nil {
		t.Fatalf("DateSpan(today): %v", err)
	}
	if join(span) != "2022-04-14,2022-04-15" {
		t.Errorf("DateSpan(today) = %v", span)
	}
}

func TestDateSpanInvalid(t *testing.T) {
	r := NewReconciler(nil, discardLogger(), WithClock(clock))
	for _, from := range []string{"2022-04-16", "3000-12-30", "not-a-date"} {
		if _, err := r.DateSpan(from); !errors.Is(err, ErrInvalidRange) {
			t.Errorf("DateSpan(%s) error = %v, want ErrInvalidRange", from, err)
		}
	}
}

func TestDateSpanCrossesMonth(t *testing.T) {
	r := NewReconciler(nil, discardLogger(), WithClock(clock))
	span, err := r.DateSpan("2022-03-30")
	if err != nil {
		t.Fatalf("DateSpan: %v", err)
	}
	if len(span) != 18 || span[0] != "2022-03-29" || span[3] != "2022-04-01" {
		t.Errorf("DateSpan = %v", span)
	}
}

func TestReconcileNoLedger(t *testing.T) {
	r := NewReconciler(newCodec(t), discardLogger(), WithClock(clock))

	res, err := r.Reconcile(context.Background(), "2022-04-12")
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if res.Floor != "2022-04-12" {
		t.Errorf("Floor = %s, want 2022-04-12", res.Floor)
	}
	want := "2022-04-11,2022-04-12,2022-04-13,2022-04-14,2022-04-15"
	if join(res.Dates) != want {
		t.Errorf("Dates = %s, want %s", join(res.Dates), want)
	}
}

func TestReconcileRejectsTodayAndFuture(t *testing.T) {
	r := NewReconciler(newCodec(t), discardLogger(), WithClock(clock))
	for _, d := range []string{"2022-04-15", "2022-04-16", "3000-12-30"} {
		if _, err := r.Reconcile(context.Background(), d); !errors.Is(err, ErrInvalidRange) {
			t.Errorf("Reconcile(%s) error = %v, want ErrInvalidRange", d, err)
		}
	}
}

func TestReconcilePartialLedger(t *testing.T) {
	ctx := context.Background()
	codec := newCodec(t)
	if err := codec.Append(ctx, []string{"2022-04-12", "2022-04-13"}); err != nil {
		t.Fatal(err)
	}

	r := NewReconciler(codec, discardLogger(), WithClock(clock))
	res, err := r.Reconcile(ctx, "2022-04-12")
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	// 04-14 is the earliest missing date; its lookback is 04-13.
	if join(res.Dates) != "2022-04-13,2022-04-14,2022-04-15" {
		t.Errorf("Dates = %v", res.Dates)
	}
	if res.Floor != "2022-04-12" {
		t.Errorf("Floor = %s, want the requested date", res.Floor)
	}
}

func TestReconcileEarliestMissingPolicy(t *testing.T) {
	ctx := context.Background()
	codec := newCodec(t)
	if err := codec.Append(ctx, []string{"2022-04-12", "2022-04-13"}); err != nil {
		t.Fatal(err)
	}

	r := NewReconciler(codec, discardLogger(), WithClock(clock), WithFloorPolicy(FloorEarliestMissing))
	res, err := r.Reconcile(ctx, "2022-04-12")
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if res.Floor != "2022-04-14" {
		t.Errorf("Floor = %s, want 2022-04-14", res.Floor)
	}
	if join(res.NewlyCovered()) != "2022-04-14,2022-04-15" {
		t.Errorf("NewlyCovered = %v", res.NewlyCovered())
	}
}

func TestReconcileNothingMissing(t *testing.T) {
	ctx := context.Background()
	codec := newCodec(t)
	if err := codec.Append(ctx, []string{"2022-04-12", "2022-04-13", "2022-04-14", "2022-04-15"}); err != nil {
		t.Fatal(err)
	}

	r := NewReconciler(codec, discardLogger(), WithClock(clock))
	res, err := r.Reconcile(ctx, "2022-04-12")
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if res.Dates == nil || len(res.Dates) != 0 {
		t.Errorf("Dates = %#v, want empty non-nil slice", res.Dates)
	}
	if len(res.NewlyCovered()) != 0 {
		t.Errorf("NewlyCovered = %v, want empty", res.NewlyCovered())
	}
}

func TestReconcileShrinksAfterUpdate(t *testing.T) {
	ctx := context.Background()
	codec := newCodec(t)
	r := NewReconciler(codec, discardLogger(), WithClock(clock))

	first, err := r.Reconcile(ctx, "2022-04-12")
	if err != nil {
		t.Fatalf("first Reconcile: %v", err)
	}
	// A run that only got through 04-13 before stopping.
	if err := codec.Append(ctx, []string{"2022-04-12", "2022-04-13"}); err != nil {
		t.Fatal(err)
	}

	second, err := r.Reconcile(ctx, "2022-04-12")
	if err != nil {
		t.Fatalf("second Reconcile: %v", err)
	}
	if len(second.Dates) >= len(first.Dates) {
		t.Errorf("second window %v did not shrink from %v", second.Dates, first.Dates)
	}
	// Only the lookback day may be a processed date.
	for _, d := range second.Dates[LookbackDays:] {
		if d == "2022-04-12" || d == "2022-04-13" {
			t.Errorf("processed date %s requested again", d)
		}
	}

	if err := codec.Append(ctx, first.NewlyCovered()); err != nil {
		t.Fatal(err)
	}
	third, err := r.Reconcile(ctx, "2022-04-12")
	if err != nil {
		t.Fatalf("third Reconcile: %v", err)
	}
	if len(third.Dates) != 0 {
		t.Errorf("third window = %v, want empty", third.Dates)
	}
}

func TestReconcileMalformedLedger(t *testing.T) {
	ctx := context.Background()
	backend := blob.NewFSBackend(t.TempDir())
	if err := backend.Put(ctx, ledger.DefaultKey, []byte("bad_column_name,datetime_of_processing\n2022-04-02,x\n")); err != nil {
		t.Fatal(err)
	}
	codec := ledger.NewCodec(blob.NewBucket(backend, discardLogger()), "", discardLogger())

	r := NewReconciler(codec, discardLogger(), WithClock(clock))
	if _, err := r.Reconcile(ctx, "2022-04-12"); !errors.Is(err, ledger.ErrMalformedLedger) {
		t.Errorf("Reconcile error = %v, want ErrMalformedLedger", err)
	}
}

func TestParseFloorPolicy(t *testing.T) {
	for in, want := range map[string]FloorPolicy{
		"":                 FloorRequested,
		"requested":        FloorRequested,
		"earliest_missing": FloorEarliestMissing,
	} {
		got, err := ParseFloorPolicy(in)
		if err != nil || got != want {
			t.Errorf("ParseFloorPolicy(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseFloorPolicy("latest"); err == nil {
		t.Error("ParseFloorPolicy(latest) should fail")
	}
}
