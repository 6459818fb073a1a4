package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "db", "runs.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStoreRecordList(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2022, 4, 15, 9, 0, 0, 0, time.UTC)
	runs := []Run{
		{
			ID:         "run-1",
			StartedAt:  base,
			FinishedAt: base.Add(3 * time.Second),
			Requested:  "2022-04-12",
			Floor:      "2022-04-12",
			FirstDate:  "2022-04-11",
			LastDate:   "2022-04-15",
			Dates:      5,
			RawRows:    1200,
			OutputRows: 40,
			OutputKey:  "xetra_daily_report_20220415_090000.parquet",
			Status:     StatusSucceeded,
		},
		{
			ID:         "run-2",
			StartedAt:  base.Add(time.Hour),
			FinishedAt: base.Add(time.Hour + time.Second),
			Requested:  "2022-04-12",
			Floor:      "2022-04-12",
			Status:     StatusFailed,
			Error:      "malformed ledger",
		},
	}
	for _, r := range runs {
		if err := s.RecordRun(ctx, r); err != nil {
			t.Fatalf("RecordRun(%s): %v", r.ID, err)
		}
	}

	got, err := s.ListRuns(ctx, 10)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ListRuns returned %d runs, want 2", len(got))
	}
	if got[0].ID != "run-2" || got[1].ID != "run-1" {
		t.Errorf("ListRuns order = %s, %s; want newest first", got[0].ID, got[1].ID)
	}
	if got[0].Error != "malformed ledger" || got[0].Status != StatusFailed {
		t.Errorf("failed run = %+v", got[0])
	}

	r1 := got[1]
	if !r1.StartedAt.Equal(base) {
		t.Errorf("StartedAt = %v, want %v", r1.StartedAt, base)
	}
	if r1.Duration() != 3*time.Second {
		t.Errorf("Duration = %v, want 3s", r1.Duration())
	}
	if r1.RawRows != 1200 || r1.OutputRows != 40 || r1.Dates != 5 {
		t.Errorf("counts = %d/%d/%d, want 1200/40/5", r1.RawRows, r1.OutputRows, r1.Dates)
	}
	if r1.OutputKey != runs[0].OutputKey {
		t.Errorf("OutputKey = %q, want %q", r1.OutputKey, runs[0].OutputKey)
	}

	limited, err := s.ListRuns(ctx, 1)
	if err != nil {
		t.Fatalf("ListRuns(1): %v", err)
	}
	if len(limited) != 1 || limited[0].ID != "run-2" {
		t.Errorf("ListRuns(1) = %+v", limited)
	}
}

func TestSQLiteStoreReplace(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Date(2022, 4, 15, 9, 0, 0, 0, time.UTC)

	r := Run{ID: "run-1", StartedAt: now, FinishedAt: now, Status: StatusFailed}
	if err := s.RecordRun(ctx, r); err != nil {
		t.Fatal(err)
	}
	r.Status = StatusSucceeded
	if err := s.RecordRun(ctx, r); err != nil {
		t.Fatal(err)
	}

	got, err := s.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(got) != 1 || got[0].Status != StatusSucceeded {
		t.Errorf("ListRuns = %+v, want one succeeded run", got)
	}
}

func TestSQLiteStoreReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	ctx := context.Background()
	now := time.Now().UTC()

	s, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.RecordRun(ctx, Run{ID: "a", StartedAt: now, FinishedAt: now, Status: StatusSucceeded}); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	got, err := s.ListRuns(ctx, 5)
	if err != nil || len(got) != 1 {
		t.Errorf("ListRuns after reopen = %v, %v; want one run", got, err)
	}
}
