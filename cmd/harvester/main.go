// Command harvester bulk-fetches product detail records for a list of IDs
// and writes them to size-bounded batch files, resuming from a checkpoint
// after restarts.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/kimgongju/DE-Project2/internal/config"
	"github.com/kimgongju/DE-Project2/internal/ids"
	"github.com/kimgongju/DE-Project2/pkg/checkpoint"
	"github.com/kimgongju/DE-Project2/pkg/errlog"
	"github.com/kimgongju/DE-Project2/pkg/fetch"
	"github.com/kimgongju/DE-Project2/pkg/harvest"
	"github.com/kimgongju/DE-Project2/pkg/logging"
	"github.com/kimgongju/DE-Project2/pkg/output"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		logLevel   string
		pretty     bool
	)

	cmd := &cobra.Command{
		Use:   "harvester",
		Short: "Bulk product catalog harvester",
		Long: `harvester fetches product detail records for every ID in a CSV file,
retries transient failures with a fixed delay, and writes results to
size-bounded JSON batch files. Completed IDs are checkpointed so an
interrupted run resumes where it left off.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logging.Setup(logging.Config{
				Level:  logging.LogLevel(logLevel),
				Pretty: pretty,
				Output: os.Stderr,
			})

			cfg, err := config.Load(configPath)
			if err != nil {
				log.Error().Err(err).Msg("Failed to load configuration")
				return err
			}
			applyFlagOverrides(cmd, &cfg)

			if err := cfg.Validate(); err != nil {
				log.Error().Err(err).Msg("Invalid configuration")
				return err
			}

			if err := run(cmd.Context(), cfg); err != nil {
				log.Error().Err(err).Msg("Harvest failed")
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")
	cmd.Flags().String("ids", "", "CSV file with product IDs (overrides config)")
	cmd.Flags().String("output-dir", "", "directory for batch files (overrides config)")
	cmd.Flags().String("checkpoint", "", "checkpoint file path (overrides config)")
	cmd.Flags().String("error-log", "", "error log file path (overrides config)")
	cmd.Flags().String("redis-addr", "", "Redis address for the checkpoint backend (overrides config)")
	cmd.Flags().Int("workers", 0, "worker pool size (overrides config)")
	cmd.Flags().Int("batch-size", 0, "records per batch file (overrides config)")
	cmd.Flags().String("metrics-addr", "", "address to serve Prometheus metrics on (overrides config)")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "human-readable console logs")

	return cmd
}

// applyFlagOverrides copies explicitly set flags over the file config.
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	if v, _ := cmd.Flags().GetString("ids"); v != "" {
		cfg.IDsFile = v
	}
	if v, _ := cmd.Flags().GetString("output-dir"); v != "" {
		cfg.OutputDir = v
	}
	if v, _ := cmd.Flags().GetString("checkpoint"); v != "" {
		cfg.CheckpointFile = v
	}
	if v, _ := cmd.Flags().GetString("error-log"); v != "" {
		cfg.ErrorLogFile = v
	}
	if v, _ := cmd.Flags().GetString("redis-addr"); v != "" {
		cfg.RedisAddr = v
	}
	if v, _ := cmd.Flags().GetInt("workers"); v > 0 {
		cfg.Workers = v
	}
	if v, _ := cmd.Flags().GetInt("batch-size"); v > 0 {
		cfg.BatchSize = v
	}
	if v, _ := cmd.Flags().GetString("metrics-addr"); v != "" {
		cfg.MetricsAddr = v
	}
}

func run(ctx context.Context, cfg config.Config) error {
	productIDs, err := ids.Load(cfg.IDsFile)
	if err != nil {
		return err
	}

	fetcher, err := fetch.New(fetch.Config{
		URLTemplate:    cfg.Fetch.URLTemplate,
		UserAgent:      cfg.Fetch.UserAgent,
		AcceptLanguage: cfg.Fetch.AcceptLanguage,
		Timeout:        cfg.Fetch.Timeout.Std(),
		Retry: fetch.RetryConfig{
			MaxRetries: cfg.Fetch.MaxRetries,
			Delay:      cfg.Fetch.RetryDelay.Std(),
		},
	})
	if err != nil {
		return err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return err
	}

	writer, err := output.NewWriter(cfg.OutputDir)
	if err != nil {
		return err
	}

	sink, err := errlog.Open(cfg.ErrorLogFile)
	if err != nil {
		return err
	}
	defer sink.Close()

	if cfg.MetricsAddr != "" {
		go func() {
			log.Info().Str("addr", cfg.MetricsAddr).Msg("Serving Prometheus metrics")
			if err := http.ListenAndServe(cfg.MetricsAddr, promhttp.Handler()); err != nil {
				log.Warn().Err(err).Msg("Metrics listener stopped")
			}
		}()
	}

	harvester, err := harvest.New(harvest.Config{
		Workers:   cfg.Workers,
		BatchSize: cfg.BatchSize,
	}, fetcher, store, writer, sink)
	if err != nil {
		return err
	}

	summary, err := harvester.Run(ctx, productIDs)
	if err != nil {
		return err
	}

	return summaryErr(summary, cfg.ErrorLogFile)
}

// buildStore selects the checkpoint backend from the configuration.
func buildStore(ctx context.Context, cfg config.Config) (checkpoint.Store, error) {
	if cfg.RedisAddr == "" {
		return checkpoint.NewFileStore(cfg.CheckpointFile), nil
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis %s: %w", cfg.RedisAddr, err)
	}
	return checkpoint.NewRedisStore(client, cfg.RedisKey)
}

// summaryErr decides the process outcome: any permanently failed product
// makes the run exit non-zero.
func summaryErr(summary harvest.Summary, errorLogFile string) error {
	if summary.Failed > 0 {
		return fmt.Errorf("completed with %d failed products (see %s)", summary.Failed, errorLogFile)
	}
	return nil
}
