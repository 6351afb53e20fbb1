// Package output writes harvested records to durable, write-once batch
// files.
package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/kimgongju/DE-Project2/pkg/fetch"
)

// Prometheus metrics for batch output.
var (
	batchFlushesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvester_batch_flushes_total",
		Help: "Total batch files written",
	})

	batchRecordsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvester_batch_records_total",
		Help: "Total records written across all batch files",
	})
)

// Writer flushes record batches into an output directory. Each flush
// produces a new file named products_<tag>.json; files are write-once and
// never reopened.
type Writer struct {
	dir    string
	logger zerolog.Logger
}

// NewWriter creates a batch writer, creating the output directory if
// needed.
func NewWriter(dir string) (*Writer, error) {
	if dir == "" {
		return nil, fmt.Errorf("output directory is required")
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create output directory %s: %w", dir, err)
	}

	return &Writer{
		dir:    dir,
		logger: log.With().Str("component", "output").Logger(),
	}, nil
}

// Flush writes one batch to a new file and returns once it is durably on
// disk. The tag must be unique per flush; an existing file with the same
// name is an error, never overwritten.
func (w *Writer) Flush(records []fetch.Record, tag int) error {
	path := filepath.Join(w.dir, fmt.Sprintf("products_%d.json", tag))

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return fmt.Errorf("create batch file %s: %w", path, err)
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	// Keep product names and descriptions readable in the output files.
	enc.SetEscapeHTML(false)

	if err := enc.Encode(records); err != nil {
		f.Close()
		return fmt.Errorf("encode batch %s: %w", path, err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("sync batch %s: %w", path, err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close batch %s: %w", path, err)
	}

	batchFlushesTotal.Inc()
	batchRecordsTotal.Add(float64(len(records)))

	w.logger.Info().
		Str("file", path).
		Int("records", len(records)).
		Msg("Flushed batch")
	return nil
}
