package harvest

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/kimgongju/DE-Project2/pkg/checkpoint"
	"github.com/kimgongju/DE-Project2/pkg/fetch"
)

// collector owns the shared run state: the processed-ID set and the pending
// batch. Both are mutated together under one mutex, so an ID is counted as
// processed exactly when its record is queued for flush.
//
// Flush I/O runs outside that mutex, serialized by a second mutex so that
// checkpoint snapshots are taken in save order and every save is a superset
// of the previous one.
type collector struct {
	mu        sync.Mutex
	processed map[string]struct{}
	pending   []fetch.Record
	sinceSave int

	flushMu sync.Mutex
	flushes int

	batchSize int
	writer    BatchWriter
	store     checkpoint.Store
	logger    zerolog.Logger
}

func newCollector(batchSize int, processed map[string]struct{}, writer BatchWriter, store checkpoint.Store, logger zerolog.Logger) *collector {
	if processed == nil {
		processed = map[string]struct{}{}
	}
	return &collector{
		processed: processed,
		pending:   make([]fetch.Record, 0, batchSize),
		batchSize: batchSize,
		writer:    writer,
		store:     store,
		logger:    logger,
	}
}

// add inserts the record's ID into the processed set and appends the record
// to the pending batch, atomically. When the batch reaches the threshold it
// is swapped out and returned for the caller to flush outside the lock; the
// returned tag is the processed count at swap time and names the batch file.
func (c *collector) add(rec *fetch.Record) (batch []fetch.Record, tag int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.processed[rec.ID] = struct{}{}
	c.pending = append(c.pending, *rec)
	c.sinceSave++

	if len(c.pending) >= c.batchSize {
		batch = c.pending
		c.pending = make([]fetch.Record, 0, c.batchSize)
		tag = len(c.processed)
	}
	return batch, tag
}

// flush writes one batch file and then saves a checkpoint of the current
// processed set. Errors are fatal for the run and must not be swallowed.
func (c *collector) flush(ctx context.Context, batch []fetch.Record, tag int) error {
	c.flushMu.Lock()
	defer c.flushMu.Unlock()

	if err := c.writer.Flush(batch, tag); err != nil {
		return fmt.Errorf("flush batch %d: %w", tag, err)
	}
	c.flushes++

	if err := c.store.Save(ctx, c.snapshot()); err != nil {
		return fmt.Errorf("save checkpoint after batch %d: %w", tag, err)
	}
	return nil
}

// finalFlush drains whatever is still pending after the pool has joined.
// The orchestrator calls it exactly once per run, so end-of-run records are
// neither dropped nor flushed twice.
func (c *collector) finalFlush(ctx context.Context) error {
	c.mu.Lock()
	batch := c.pending
	c.pending = nil
	tag := len(c.processed)
	dirty := c.sinceSave > 0
	c.mu.Unlock()

	if len(batch) > 0 {
		return c.flush(ctx, batch, tag)
	}

	// Nothing pending, but IDs processed since the last save still need a
	// final checkpoint.
	if dirty {
		c.flushMu.Lock()
		defer c.flushMu.Unlock()
		if err := c.store.Save(ctx, c.snapshot()); err != nil {
			return fmt.Errorf("save final checkpoint: %w", err)
		}
	}
	return nil
}

// snapshot copies the current processed set and marks it clean. Callers
// hold flushMu, so successive snapshots grow monotonically.
func (c *collector) snapshot() map[string]struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := make(map[string]struct{}, len(c.processed))
	for id := range c.processed {
		snap[id] = struct{}{}
	}
	c.sinceSave = 0
	return snap
}

// batches returns the number of batch files written so far.
func (c *collector) batches() int {
	c.flushMu.Lock()
	defer c.flushMu.Unlock()
	return c.flushes
}

// processedCount returns the current size of the processed set, including
// IDs loaded from the checkpoint.
func (c *collector) processedCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.processed)
}
