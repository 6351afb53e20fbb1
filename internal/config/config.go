// Package config assembles the immutable harvester configuration from
// defaults and an optional YAML file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values like "10s" parse directly.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// FetchConfig holds the fetcher section.
type FetchConfig struct {
	URLTemplate    string   `yaml:"url_template"`
	UserAgent      string   `yaml:"user_agent"`
	AcceptLanguage string   `yaml:"accept_language"`
	Timeout        Duration `yaml:"timeout"`
	MaxRetries     int      `yaml:"max_retries"`
	RetryDelay     Duration `yaml:"retry_delay"`
}

// Config is the full harvester configuration.
type Config struct {
	// IDsFile is the CSV file listing product IDs (header column "id").
	IDsFile string `yaml:"ids_file"`

	// OutputDir receives the batch files.
	OutputDir string `yaml:"output_dir"`

	// CheckpointFile is the file-backend checkpoint path.
	CheckpointFile string `yaml:"checkpoint_file"`

	// ErrorLogFile is the append-only failure log path.
	ErrorLogFile string `yaml:"error_log_file"`

	// RedisAddr, when set, switches the checkpoint to the Redis backend.
	RedisAddr string `yaml:"redis_addr"`

	// RedisKey is the Redis set key for the checkpoint.
	RedisKey string `yaml:"redis_key"`

	// Workers is the worker pool size.
	Workers int `yaml:"workers"`

	// BatchSize is the number of records per output file.
	BatchSize int `yaml:"batch_size"`

	// MetricsAddr, when set, serves Prometheus metrics on this address.
	MetricsAddr string `yaml:"metrics_addr"`

	Fetch FetchConfig `yaml:"fetch"`
}

// Default returns the configuration matching the original harvester
// constants.
func Default() Config {
	return Config{
		IDsFile:        "product_ids.csv",
		OutputDir:      "output",
		CheckpointFile: "checkpoint.json",
		ErrorLogFile:   "error_log.json",
		RedisKey:       "harvester:checkpoint",
		Workers:        20,
		BatchSize:      1000,
		Fetch: FetchConfig{
			URLTemplate:    "https://api.tiki.vn/product-detail/api/v1/products/%s",
			UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
			AcceptLanguage: "en-US,en;q=0.9",
			Timeout:        Duration(10 * time.Second),
			MaxRetries:     3,
			RetryDelay:     Duration(2 * time.Second),
		},
	}
}

// Load reads a YAML config file over the defaults. An empty path returns
// the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for values the pipeline cannot run
// with.
func (c Config) Validate() error {
	if c.IDsFile == "" {
		return fmt.Errorf("ids_file is required")
	}
	if c.OutputDir == "" {
		return fmt.Errorf("output_dir is required")
	}
	if c.ErrorLogFile == "" {
		return fmt.Errorf("error_log_file is required")
	}
	if c.RedisAddr == "" && c.CheckpointFile == "" {
		return fmt.Errorf("checkpoint_file is required when redis_addr is not set")
	}
	if c.RedisAddr != "" && c.RedisKey == "" {
		return fmt.Errorf("redis_key is required when redis_addr is set")
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive (got %d)", c.Workers)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be positive (got %d)", c.BatchSize)
	}
	if c.Fetch.MaxRetries <= 0 {
		return fmt.Errorf("fetch.max_retries must be positive (got %d)", c.Fetch.MaxRetries)
	}
	if c.Fetch.Timeout <= 0 {
		return fmt.Errorf("fetch.timeout must be positive")
	}
	return nil
}
