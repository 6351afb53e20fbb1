// Package errlog records permanently failed product IDs in a durable
// append-only log.
package errlog

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var failuresTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "harvester_failures_total",
	Help: "Total permanently failed product IDs",
})

// Failure is one permanently failed product, one JSON object per log line.
type Failure struct {
	ProductID string `json:"product_id"`
	Error     string `json:"error"`
}

// Sink appends failures to a log file. Appends are serialized by an
// internal mutex so concurrent workers never interleave lines.
type Sink struct {
	mu     sync.Mutex
	file   *os.File
	logger zerolog.Logger
}

// Open opens (or creates) the failure log for appending.
func Open(path string) (*Sink, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open error log %s: %w", path, err)
	}

	return &Sink{
		file:   f,
		logger: log.With().Str("component", "errlog").Logger(),
	}, nil
}

// Record appends one failure line. The entry is terminal: the ID will not
// be retried again within this run.
func (s *Sink) Record(productID string, reason error) error {
	line, err := json.Marshal(Failure{ProductID: productID, Error: reason.Error()})
	if err != nil {
		return fmt.Errorf("marshal failure for %s: %w", productID, err)
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.file.Write(line); err != nil {
		return fmt.Errorf("append failure for %s: %w", productID, err)
	}

	failuresTotal.Inc()
	s.logger.Error().
		Str("product_id", productID).
		Err(reason).
		Msg("Product failed permanently")
	return nil
}

// Close closes the underlying log file.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}
