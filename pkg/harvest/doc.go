// Package harvest implements the concurrent fetch-and-checkpoint pipeline.
//
// A fixed pool of workers drains a shared queue of product IDs. Each worker
// fetches one product at a time; successful records accumulate in a shared
// pending batch that is flushed to a new output file whenever it reaches the
// configured batch size, followed by a checkpoint save of all processed IDs.
// Permanently failed IDs go to the error sink and the run continues.
//
// Example usage:
//
//	harvester, err := harvest.New(harvest.DefaultConfig(), client, store, writer, sink)
//	if err != nil {
//		return err
//	}
//	summary, err := harvester.Run(ctx, productIDs)
//
// The pipeline:
//   - Skips IDs already present in the loaded checkpoint
//   - Hands each remaining ID to exactly one worker
//   - Serializes only the shared bookkeeping; network I/O runs in parallel
//   - Performs one final partial flush after all workers have joined
//   - Aborts the run on batch or checkpoint I/O errors
package harvest
