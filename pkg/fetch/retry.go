package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for retry operations.
var (
	fetchRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "harvester_fetch_retries_total",
		Help: "Total number of retry attempts by error class",
	}, []string{"error_class"})

	fetchRetryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "harvester_fetch_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by error class",
	}, []string{"error_class"})
)

// RetryConfig holds the configuration for retry logic.
type RetryConfig struct {
	// MaxRetries is the total number of attempts (including the first).
	MaxRetries int

	// Delay is the fixed wait between attempts.
	Delay time.Duration
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		Delay:      2 * time.Second,
	}
}

// retryFixed executes fn up to cfg.MaxRetries times with a constant delay
// between attempts. Every failure class is retried; the delay never grows.
// The delay wait respects context cancellation.
func retryFixed(ctx context.Context, cfg RetryConfig, fn func() error) error {
	var lastErr error

	for attempt := 1; attempt <= cfg.MaxRetries; attempt++ {
		err := fn()
		if err == nil {
			if attempt > 1 {
				log.Debug().
					Int("attempt", attempt).
					Msg("Fetch succeeded after retry")
			}
			return nil
		}

		lastErr = err

		if attempt >= cfg.MaxRetries {
			break
		}

		fetchRetriesTotal.WithLabelValues(string(classOf(err))).Inc()
		log.Debug().
			Err(err).
			Int("attempt", attempt).
			Dur("delay", cfg.Delay).
			Msg("Retrying fetch after fixed delay")

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", ErrContextCancelled, ctx.Err())
		case <-time.After(cfg.Delay):
		}
	}

	fetchRetryExhaustedTotal.WithLabelValues(string(classOf(lastErr))).Inc()
	return fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, cfg.MaxRetries, lastErr)
}
