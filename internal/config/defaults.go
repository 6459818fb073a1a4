package config

import "xetra/internal/domain"

// Default values for optional configuration fields.
const (
	DefaultBackend       = "fs"
	DefaultAccessKeyEnv  = "AWS_ACCESS_KEY_ID"
	DefaultSecretKeyEnv  = "AWS_SECRET_ACCESS_KEY"
	DefaultRegion        = "eu-central-1"
	DefaultMaxRetries    = 3
	DefaultSourceFormat  = "csv"
	DefaultMaxWorkers    = 4
	DefaultKeyPrefix     = "xetra_daily_report_"
	DefaultKeyDateFormat = "20060102_150405"
	DefaultTargetFormat  = "parquet"
	DefaultMetaKey       = "meta_file.csv"
	DefaultFloorPolicy   = "requested"
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "json"
	DefaultLogMaxSizeMB  = 100
	DefaultLogMaxBackups = 5
	DefaultLogMaxAgeDays = 7
	DefaultMetricsNS     = "xetra"
	DefaultMetricsJob    = "xetra_etl"
)

// DefaultSourceColumns matches the public Deutsche Boerse Xetra tick files.
func DefaultSourceColumns() domain.SourceColumns {
	return domain.SourceColumns{
		Columns: []string{
			"ISIN", "Date", "Time", "StartPrice", "MaxPrice", "MinPrice", "EndPrice", "TradedVolume",
		},
		ISIN:         "ISIN",
		Date:         "Date",
		Time:         "Time",
		StartPrice:   "StartPrice",
		MaxPrice:     "MaxPrice",
		MinPrice:     "MinPrice",
		EndPrice:     "EndPrice",
		TradedVolume: "TradedVolume",
	}
}

// DefaultTargetColumns names the report columns.
func DefaultTargetColumns() domain.TargetColumns {
	return domain.TargetColumns{
		ISIN:              "isin",
		Date:              "date",
		OpenPrice:         "opening_price_eur",
		ClosePrice:        "closing_price_eur",
		MinPrice:          "minimum_price_eur",
		MaxPrice:          "maximum_price_eur",
		DailyTradedVolume: "daily_traded_volume",
		ChangePrevClose:   "change_prev_closing_%",
	}
}

func (c *Config) applyDefaults() {
	applyStoreDefaults(&c.Source.Store)
	applyStoreDefaults(&c.Target.Store)

	// Source defaults
	if c.Source.Format == "" {
		c.Source.Format = DefaultSourceFormat
	}
	if c.Source.MaxWorkers == 0 {
		c.Source.MaxWorkers = DefaultMaxWorkers
	}
	def := DefaultSourceColumns()
	sc := &c.Source.Columns
	if len(sc.Columns) == 0 {
		sc.Columns = def.Columns
	}
	fillString(&sc.ISIN, def.ISIN)
	fillString(&sc.Date, def.Date)
	fillString(&sc.Time, def.Time)
	fillString(&sc.StartPrice, def.StartPrice)
	fillString(&sc.MaxPrice, def.MaxPrice)
	fillString(&sc.MinPrice, def.MinPrice)
	fillString(&sc.EndPrice, def.EndPrice)
	fillString(&sc.TradedVolume, def.TradedVolume)

	// Target defaults
	fillString(&c.Target.KeyPrefix, DefaultKeyPrefix)
	fillString(&c.Target.KeyDateFormat, DefaultKeyDateFormat)
	fillString(&c.Target.Format, DefaultTargetFormat)
	fillString(&c.Target.Extension, c.Target.Format)
	fillString(&c.Target.MetaKey, DefaultMetaKey)
	tdef := DefaultTargetColumns()
	tc := &c.Target.Columns
	fillString(&tc.ISIN, tdef.ISIN)
	fillString(&tc.Date, tdef.Date)
	fillString(&tc.OpenPrice, tdef.OpenPrice)
	fillString(&tc.ClosePrice, tdef.ClosePrice)
	fillString(&tc.MinPrice, tdef.MinPrice)
	fillString(&tc.MaxPrice, tdef.MaxPrice)
	fillString(&tc.DailyTradedVolume, tdef.DailyTradedVolume)
	fillString(&tc.ChangePrevClose, tdef.ChangePrevClose)

	fillString(&c.Window.FloorPolicy, DefaultFloorPolicy)

	// Logging defaults
	fillString(&c.Logging.Level, DefaultLogLevel)
	fillString(&c.Logging.Format, DefaultLogFormat)
	if c.Logging.MaxSizeMB == 0 {
		c.Logging.MaxSizeMB = DefaultLogMaxSizeMB
	}
	if c.Logging.MaxBackups == 0 {
		c.Logging.MaxBackups = DefaultLogMaxBackups
	}
	if c.Logging.MaxAgeDays == 0 {
		c.Logging.MaxAgeDays = DefaultLogMaxAgeDays
	}

	fillString(&c.Metrics.Namespace, DefaultMetricsNS)
	fillString(&c.Metrics.Job, DefaultMetricsJob)
}

func applyStoreDefaults(s *Store) {
	fillString(&s.Backend, DefaultBackend)
	fillString(&s.AccessKeyEnv, DefaultAccessKeyEnv)
	fillString(&s.SecretKeyEnv, DefaultSecretKeyEnv)
	if s.Backend == "s3" {
		fillString(&s.Region, DefaultRegion)
	}
	if s.MaxRetries == 0 {
		s.MaxRetries = DefaultMaxRetries
	}
}

func fillString(dst *string, def string) {
	if *dst == "" {
		*dst = def
	}
}
