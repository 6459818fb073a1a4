// Package metrics exposes per-run Prometheus metrics for the report job and
// pushes them to a Pushgateway, since a batch run is gone before any scrape.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"xetra/internal/etl"
	"xetra/internal/util"
)

// Run holds the run collectors on a private registry.
type Run struct {
	Registry *prometheus.Registry

	RawRows        prometheus.Gauge
	OutputRows     prometheus.Gauge
	DatesExtracted prometheus.Gauge
	Duration       prometheus.Gauge
	LastSuccess    prometheus.Gauge
	RunsTotal      *prometheus.CounterVec
}

// New creates and registers the run collectors under namespace.
func New(namespace string) *Run {
	m := &Run{
		Registry: prometheus.NewRegistry(),
		RawRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "extracted_rows",
			Help:      "Raw source rows extracted by the last run",
		}),
		OutputRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "report_rows",
			Help:      "Daily aggregate rows written by the last run",
		}),
		DatesExtracted: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dates_extracted",
			Help:      "Source dates extracted by the last run, lookback included",
		}),
		Duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last run",
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time the last successful run finished",
		}),
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Runs by outcome",
		}, []string{"status"}),
	}
	m.Registry.MustRegister(
		m.RawRows,
		m.OutputRows,
		m.DatesExtracted,
		m.Duration,
		m.LastSuccess,
		m.RunsTotal,
	)
	return m
}

// ObserveRun records a finished run. It satisfies etl.RunObserver.
func (m *Run) ObserveRun(rep etl.Report, err error) {
	m.Duration.Set(rep.Duration().Seconds())
	m.DatesExtracted.Set(float64(len(rep.Dates)))
	m.RawRows.Set(float64(rep.RawRows))
	m.OutputRows.Set(float64(rep.OutputRows))
	if err != nil {
		m.RunsTotal.WithLabelValues("failed").Inc()
		return
	}
	m.RunsTotal.WithLabelValues("succeeded").Inc()
	m.LastSuccess.Set(float64(rep.FinishedAt.Unix()))
}

// Push sends the registry to the Pushgateway at url under job, retrying
// transient failures.
func (m *Run) Push(ctx context.Context, url, job string) error {
	p := push.New(url, job).Gatherer(m.Registry)
	err := util.Retry(ctx, 3, 500*time.Millisecond, func() error {
		return p.PushContext(ctx)
	})
	if err != nil {
		return fmt.Errorf("pushing metrics to %s: %w", url, err)
	}
	return nil
}
