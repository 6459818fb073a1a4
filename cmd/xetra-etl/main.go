// Incremental Xetra daily report job.
//
// Extracts raw tick files for every date not yet in the ledger, aggregates
// them into one row per instrument and day, writes the report and records
// the dates as processed.
//
// Usage:
//
//	go run ./cmd/xetra-etl [-config path] [-date YYYY-MM-DD] [-runs N]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"xetra/internal/blob"
	"xetra/internal/config"
	"xetra/internal/etl"
	"xetra/internal/ledger"
	"xetra/internal/metrics"
	"xetra/internal/store"
	"xetra/internal/tabular"
	"xetra/internal/util"
	"xetra/internal/window"
)

func main() {
	cfgFlag := flag.String("config", "", "config file (default $XETRA_CONFIG or config/xetra.yaml)")
	date := flag.String("date", "", "first date to report, YYYY-MM-DD (default source.first_extract_date)")
	runs := flag.Int("runs", 0, "print the last N journaled runs and exit")
	flag.Parse()

	// A missing .env is fine; variables may come from the environment.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Fatalf("failed to load .env: %v", err)
	}

	cfgPath := "config/xetra.yaml"
	if p := os.Getenv("XETRA_CONFIG"); p != "" {
		cfgPath = p
	}
	if *cfgFlag != "" {
		cfgPath = *cfgFlag
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *date != "" {
		cfg.Source.FirstExtractDate = *date
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	if err := run(cfg, *runs); err != nil {
		log.Fatalf("%v", err)
	}
}

// run executes one report run, or lists the last n journaled runs when n > 0.
// Resources opened here are released before it returns.
func run(cfg *config.Config, n int) error {
	logger := util.NewLogger(cfg.Logging)
	util.SetDefault(logger)

	var journal *store.SQLiteStore
	if cfg.Storage.SQLitePath != "" {
		var err error
		journal, err = store.NewSQLiteStore(cfg.Storage.SQLitePath)
		if err != nil {
			return fmt.Errorf("failed to open run journal: %w", err)
		}
		defer journal.Close()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if n > 0 {
		if journal == nil {
			return errors.New("-runs needs storage.sqlite_path")
		}
		if err := printRuns(ctx, journal, n); err != nil {
			return fmt.Errorf("listing runs: %w", err)
		}
		return nil
	}

	pipeline, observer, err := build(ctx, cfg, journal, logger)
	if err != nil {
		return fmt.Errorf("failed to build pipeline: %w", err)
	}

	_, runErr := pipeline.Run(ctx, cfg.Source.FirstExtractDate)

	if cfg.Metrics.PushgatewayURL != "" {
		if err := observer.Push(context.WithoutCancel(ctx), cfg.Metrics.PushgatewayURL, cfg.Metrics.Job); err != nil {
			slog.Warn("metrics push failed", "error", err)
		}
	}
	if runErr != nil {
		return fmt.Errorf("run failed: %w", runErr)
	}
	return nil
}

func build(ctx context.Context, cfg *config.Config, journal *store.SQLiteStore, logger *slog.Logger) (*etl.Pipeline, *metrics.Run, error) {
	srcEnc, err := tabular.ParseEncoding(cfg.Source.Format)
	if err != nil {
		return nil, nil, fmt.Errorf("source.format: %w", err)
	}
	trgEnc, err := tabular.ParseEncoding(cfg.Target.Format)
	if err != nil {
		return nil, nil, fmt.Errorf("target.format: %w", err)
	}
	policy, err := window.ParseFloorPolicy(cfg.Window.FloorPolicy)
	if err != nil {
		return nil, nil, err
	}

	src, err := blob.Open(ctx, cfg.Source.Store, logger.With("bucket", "source"))
	if err != nil {
		return nil, nil, fmt.Errorf("opening source: %w", err)
	}
	trg, err := blob.Open(ctx, cfg.Target.Store, logger.With("bucket", "target"))
	if err != nil {
		return nil, nil, fmt.Errorf("opening target: %w", err)
	}

	codec := ledger.NewCodec(trg, cfg.Target.MetaKey, logger)
	reconciler := window.NewReconciler(codec, logger, window.WithFloorPolicy(policy))
	keys := etl.KeyFormat{
		Prefix:    cfg.Target.KeyPrefix,
		Layout:    cfg.Target.KeyDateFormat,
		Extension: cfg.Target.Extension,
	}
	observer := metrics.New(cfg.Metrics.Namespace)

	opts := []etl.Option{etl.WithObserver(observer)}
	if journal != nil {
		opts = append(opts, etl.WithRecorder(journal))
	}
	p := etl.NewPipeline(
		reconciler,
		etl.NewExtractor(src, srcEnc, cfg.Source.MaxWorkers, logger),
		etl.NewAggregator(cfg.Source.Columns, logger),
		etl.NewLoader(trg, codec, keys, trgEnc, cfg.Target.Columns, logger),
		logger,
		opts...,
	)
	return p, observer, nil
}

func printRuns(ctx context.Context, rs store.RunStore, n int) error {
	list, err := rs.ListRuns(ctx, n)
	if err != nil {
		return err
	}
	fmt.Printf("%-36s  %-20s  %-10s  %-10s  %5s  %8s  %6s  %-9s  %s\n",
		"ID", "STARTED", "REQUESTED", "FLOOR", "DATES", "RAW", "ROWS", "STATUS", "KEY/ERROR")
	for _, r := range list {
		detail := r.OutputKey
		if r.Error != "" {
			detail = r.Error
		}
		fmt.Printf("%-36s  %-20s  %-10s  %-10s  %5d  %8d  %6d  %-9s  %s\n",
			r.ID,
			r.StartedAt.Local().Format(time.DateTime),
			r.Requested,
			r.Floor,
			r.Dates,
			r.RawRows,
			r.OutputRows,
			r.Status,
			detail,
		)
	}
	return nil
}
