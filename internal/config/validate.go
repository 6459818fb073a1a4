package config

import (
	"errors"
	"fmt"
	"strings"

	"xetra/internal/domain"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if err := c.Source.Store.validate("source"); err != nil {
		return err
	}
	if err := c.Target.Store.validate("target"); err != nil {
		return err
	}

	if c.Source.FirstExtractDate == "" {
		return errors.New("source.first_extract_date is required")
	}
	if _, err := domain.ParseDate(c.Source.FirstExtractDate); err != nil {
		return fmt.Errorf("source.first_extract_date: %w", err)
	}
	if err := validFormat("source.format", c.Source.Format); err != nil {
		return err
	}
	if c.Source.MaxWorkers < 1 {
		return errors.New("source.max_workers must be >= 1")
	}

	sc := c.Source.Columns
	for name, col := range map[string]string{
		"isin":          sc.ISIN,
		"date":          sc.Date,
		"time":          sc.Time,
		"start_price":   sc.StartPrice,
		"max_price":     sc.MaxPrice,
		"min_price":     sc.MinPrice,
		"traded_volume": sc.TradedVolume,
	} {
		if !contains(sc.Columns, col) {
			return fmt.Errorf("source.columns.%s %q is not in source.columns.columns", name, col)
		}
	}

	if err := validFormat("target.format", c.Target.Format); err != nil {
		return err
	}
	if c.Target.MetaKey == "" {
		return errors.New("target.meta_key is required")
	}
	seen := make(map[string]bool)
	for _, n := range c.Target.Columns.Names() {
		if seen[n] {
			return fmt.Errorf("target.columns: duplicate column %q", n)
		}
		seen[n] = true
	}

	switch c.Window.FloorPolicy {
	case "requested", "earliest_missing":
	default:
		return fmt.Errorf("window.floor_policy must be requested or earliest_missing, got %q", c.Window.FloorPolicy)
	}

	switch strings.ToLower(c.Logging.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("logging.format must be json or text, got %q", c.Logging.Format)
	}

	return nil
}

func (s *Store) validate(prefix string) error {
	switch s.Backend {
	case "fs":
		if s.Path == "" {
			return fmt.Errorf("%s.path is required for the fs backend", prefix)
		}
	case "s3":
		if s.Bucket == "" {
			return fmt.Errorf("%s.bucket is required for the s3 backend", prefix)
		}
	default:
		return fmt.Errorf("%s.backend must be fs or s3, got %q", prefix, s.Backend)
	}
	if s.MaxRetries < 1 {
		return fmt.Errorf("%s.max_retries must be >= 1", prefix)
	}
	if s.RateLimitPerMin < 0 {
		return fmt.Errorf("%s.rate_limit_per_min must be >= 0", prefix)
	}
	return nil
}

func validFormat(field, v string) error {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "csv", "parquet":
		return nil
	}
	return fmt.Errorf("%s must be csv or parquet, got %q", field, v)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
