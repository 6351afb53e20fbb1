package harvest

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/kimgongju/DE-Project2/pkg/checkpoint"
	"github.com/kimgongju/DE-Project2/pkg/fetch"
)

// Prometheus metrics for the pipeline.
var (
	productsProcessedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvester_products_processed_total",
		Help: "Total products fetched and queued for output",
	})

	productsFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvester_products_failed_total",
		Help: "Total products that exhausted all fetch retries",
	})
)

// Fetcher retrieves one product record or reports a permanent failure.
type Fetcher interface {
	Fetch(ctx context.Context, id string) (*fetch.Record, error)
}

// BatchWriter persists one batch of records to a new durable artifact.
type BatchWriter interface {
	Flush(records []fetch.Record, tag int) error
}

// FailureSink durably records a permanently failed product ID.
type FailureSink interface {
	Record(productID string, reason error) error
}

// Config holds the pipeline configuration.
type Config struct {
	// Workers is the number of concurrent fetch workers.
	Workers int

	// BatchSize is the number of records per output file.
	BatchSize int
}

// DefaultConfig returns the pipeline defaults.
func DefaultConfig() Config {
	return Config{
		Workers:   20,
		BatchSize: 1000,
	}
}

// Summary reports the outcome of one run.
type Summary struct {
	// Queued is the number of IDs handed to the worker pool.
	Queued int

	// Skipped is the number of input IDs already covered by the checkpoint.
	Skipped int

	// Processed is the number of records fetched and written this run.
	Processed int

	// Failed is the number of IDs recorded to the error sink this run.
	Failed int

	// Batches is the number of output files written this run.
	Batches int

	// Elapsed is the total wall-clock run time.
	Elapsed time.Duration
}

// Harvester wires the queue, worker pool, checkpoint store, batch writer
// and error sink into one run-to-completion pipeline.
type Harvester struct {
	config  Config
	fetcher Fetcher
	store   checkpoint.Store
	writer  BatchWriter
	sink    FailureSink
	logger  zerolog.Logger
}

// New creates a harvester.
func New(cfg Config, fetcher Fetcher, store checkpoint.Store, writer BatchWriter, sink FailureSink) (*Harvester, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	if store == nil {
		return nil, fmt.Errorf("checkpoint store is required")
	}
	if writer == nil {
		return nil, fmt.Errorf("batch writer is required")
	}
	if sink == nil {
		return nil, fmt.Errorf("failure sink is required")
	}

	if cfg.Workers <= 0 {
		cfg.Workers = 20
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1000
	}

	return &Harvester{
		config:  cfg,
		fetcher: fetcher,
		store:   store,
		writer:  writer,
		sink:    sink,
		logger:  log.With().Str("component", "harvest").Logger(),
	}, nil
}

// Run processes every input ID not already covered by the checkpoint and
// blocks until the queue is drained and the final flush is done. Permanent
// fetch failures are recorded and do not stop the run; batch or checkpoint
// I/O errors abort it.
func (h *Harvester) Run(ctx context.Context, ids []string) (Summary, error) {
	startTime := time.Now()

	processed, err := h.store.Load(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("load checkpoint: %w", err)
	}

	queue := NewQueue(ids, processed)
	skipped := len(ids) - queue.Size()

	h.logger.Info().
		Int("input_ids", len(ids)).
		Int("queued", queue.Size()).
		Int("skipped", skipped).
		Int("workers", h.config.Workers).
		Int("batch_size", h.config.BatchSize).
		Msg("Starting harvest run")

	c := newCollector(h.config.BatchSize, processed, h.writer, h.store, h.logger)

	var processedCount, failedCount atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < h.config.Workers; i++ {
		workerID := i
		g.Go(func() error {
			return h.worker(gctx, workerID, queue, c, &processedCount, &failedCount)
		})
	}

	if err := g.Wait(); err != nil {
		return Summary{}, fmt.Errorf("harvest aborted: %w", err)
	}

	// The pool has joined; exactly one final flush for all workers'
	// leftover records.
	if err := c.finalFlush(ctx); err != nil {
		return Summary{}, fmt.Errorf("harvest aborted: %w", err)
	}

	summary := Summary{
		Queued:    queue.Size(),
		Skipped:   skipped,
		Processed: int(processedCount.Load()),
		Failed:    int(failedCount.Load()),
		Batches:   c.batches(),
		Elapsed:   time.Since(startTime),
	}

	h.logger.Info().
		Int("processed", summary.Processed).
		Int("failed", summary.Failed).
		Int("batches", summary.Batches).
		Dur("elapsed", summary.Elapsed).
		Msg("Harvest run completed")

	return summary, nil
}

// worker drains the queue until empty. Fetch and retry sleeps run without
// any lock held; only collector bookkeeping is serialized.
func (h *Harvester) worker(ctx context.Context, workerID int, queue *Queue, c *collector, processedCount, failedCount *atomic.Int64) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		id, ok := queue.Take()
		if !ok {
			h.logger.Debug().Int("worker_id", workerID).Msg("Queue drained, worker stopping")
			return nil
		}

		h.logger.Debug().
			Int("worker_id", workerID).
			Str("product_id", id).
			Msg("Processing product")

		rec, err := h.fetcher.Fetch(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			productsFailedTotal.Inc()
			failedCount.Add(1)
			if sinkErr := h.sink.Record(id, err); sinkErr != nil {
				return fmt.Errorf("record failure for %s: %w", id, sinkErr)
			}
			continue
		}

		productsProcessedTotal.Inc()
		total := processedCount.Add(1)
		if total%100 == 0 {
			h.logger.Info().
				Int64("processed", total).
				Int("queued", queue.Size()).
				Msg("Harvest progress")
		}

		batch, tag := c.add(rec)
		if batch != nil {
			if err := c.flush(ctx, batch, tag); err != nil {
				return err
			}
		}
	}
}
