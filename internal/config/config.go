package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"xetra/internal/domain"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the xetra report job.
type Config struct {
	Source  Source  `yaml:"source"`
	Target  Target  `yaml:"target"`
	Window  Window  `yaml:"window"`
	Storage Storage `yaml:"storage"`
	Logging Logging `yaml:"logging"`
	Metrics Metrics `yaml:"metrics"`
}

// Store locates an object store. Backend "fs" uses Path as a local
// directory; backend "s3" uses Bucket/Endpoint/Region and reads credentials
// from the environment variables named by AccessKeyEnv and SecretKeyEnv.
type Store struct {
	Backend      string `yaml:"backend"`
	Path         string `yaml:"path"`
	Bucket       string `yaml:"bucket"`
	Endpoint     string `yaml:"endpoint"`
	Region       string `yaml:"region"`
	AccessKeyEnv string `yaml:"access_key_env"`
	SecretKeyEnv string `yaml:"secret_key_env"`
	PathStyle    bool   `yaml:"path_style"`

	MaxRetries      int `yaml:"max_retries"`
	RateLimitPerMin int `yaml:"rate_limit_per_min"`
}

// Credentials resolves the access and secret keys from the environment.
func (b Store) Credentials() (accessKey, secretKey string) {
	if b.AccessKeyEnv != "" {
		accessKey = os.Getenv(b.AccessKeyEnv)
	}
	if b.SecretKeyEnv != "" {
		secretKey = os.Getenv(b.SecretKeyEnv)
	}
	return accessKey, secretKey
}

// Source describes the landing zone holding raw tick files.
type Source struct {
	Store            `yaml:",inline"`
	Format           string               `yaml:"format"`
	FirstExtractDate string               `yaml:"first_extract_date"`
	MaxWorkers       int                  `yaml:"max_workers"`
	Columns          domain.SourceColumns `yaml:"columns"`
}

// Target describes where reports and the processed-dates ledger are written.
type Target struct {
	Store         `yaml:",inline"`
	KeyPrefix     string               `yaml:"key_prefix"`
	KeyDateFormat string               `yaml:"key_date_format"` // Go time layout
	Format        string               `yaml:"format"`
	Extension     string               `yaml:"extension"`
	MetaKey       string               `yaml:"meta_key"`
	Columns       domain.TargetColumns `yaml:"columns"`
}

// Window controls reconciliation.
type Window struct {
	// FloorPolicy is "requested" or "earliest_missing".
	FloorPolicy string `yaml:"floor_policy"`
}

// Storage holds local persistence paths.
type Storage struct {
	// SQLitePath enables the run journal when non-empty.
	SQLitePath string `yaml:"sqlite_path"`
}

// Logging configures the application logger.
type Logging struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// Metrics configures run metrics.
type Metrics struct {
	Namespace      string `yaml:"namespace"`
	PushgatewayURL string `yaml:"pushgateway_url"`
	Job            string `yaml:"job"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at the given path, parses it into a
// Config struct, applies environment variable overrides and fills defaults.
// Call Validate before use.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)
	cfg.applyDefaults()

	return cfg, nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("XETRA_SOURCE_PATH"); v != "" {
		cfg.Source.Path = v
	}
	if v := os.Getenv("XETRA_SOURCE_BUCKET"); v != "" {
		cfg.Source.Bucket = v
	}
	if v := os.Getenv("XETRA_TARGET_PATH"); v != "" {
		cfg.Target.Path = v
	}
	if v := os.Getenv("XETRA_TARGET_BUCKET"); v != "" {
		cfg.Target.Bucket = v
	}
	if v := os.Getenv("XETRA_FIRST_EXTRACT_DATE"); v != "" {
		cfg.Source.FirstExtractDate = v
	}
	if v := os.Getenv("XETRA_SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}
	if v := os.Getenv("XETRA_PUSHGATEWAY_URL"); v != "" {
		cfg.Metrics.PushgatewayURL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}
