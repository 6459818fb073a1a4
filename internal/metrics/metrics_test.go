package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"xetra/internal/etl"
)

func sampleReport() etl.Report {
	start := time.Date(2022, 4, 15, 18, 30, 0, 0, time.UTC)
	return etl.Report{
		RunID:      "r1",
		Requested:  "2022-04-12",
		Floor:      "2022-04-12",
		Dates:      []string{"2022-04-11", "2022-04-12", "2022-04-13"},
		RawRows:    1200,
		OutputRows: 40,
		StartedAt:  start,
		FinishedAt: start.Add(2500 * time.Millisecond),
	}
}

func TestObserveRunSuccess(t *testing.T) {
	m := New("xetra")
	m.ObserveRun(sampleReport(), nil)

	if got := testutil.ToFloat64(m.RawRows); got != 1200 {
		t.Errorf("extracted_rows = %v, want 1200", got)
	}
	if got := testutil.ToFloat64(m.OutputRows); got != 40 {
		t.Errorf("report_rows = %v, want 40", got)
	}
	if got := testutil.ToFloat64(m.DatesExtracted); got != 3 {
		t.Errorf("dates_extracted = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.Duration); got != 2.5 {
		t.Errorf("run_duration_seconds = %v, want 2.5", got)
	}
	if got := testutil.ToFloat64(m.LastSuccess); got != float64(sampleReport().FinishedAt.Unix()) {
		t.Errorf("last_success_timestamp_seconds = %v", got)
	}
	if got := testutil.ToFloat64(m.RunsTotal.WithLabelValues("succeeded")); got != 1 {
		t.Errorf("runs_total{succeeded} = %v, want 1", got)
	}
}

func TestObserveRunFailure(t *testing.T) {
	m := New("xetra")
	m.ObserveRun(sampleReport(), errors.New("boom"))

	if got := testutil.ToFloat64(m.RunsTotal.WithLabelValues("failed")); got != 1 {
		t.Errorf("runs_total{failed} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.LastSuccess); got != 0 {
		t.Errorf("last_success_timestamp_seconds = %v, want 0 after a failure", got)
	}
	if n := testutil.CollectAndCount(m.Registry); n == 0 {
		t.Error("registry has no metrics")
	}
}

func TestPush(t *testing.T) {
	var body string
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := New("xetra")
	m.ObserveRun(sampleReport(), nil)
	if err := m.Push(context.Background(), srv.URL, "xetra_etl"); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if path != "/metrics/job/xetra_etl" {
		t.Errorf("push path = %q", path)
	}
	if !strings.Contains(body, "xetra_report_rows") {
		t.Errorf("pushed body does not contain xetra_report_rows")
	}
}
