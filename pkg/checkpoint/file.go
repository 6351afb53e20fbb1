package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var checkpointSavesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "harvester_checkpoint_saves_total",
	Help: "Total checkpoint saves by backend",
}, []string{"backend"})

// FileStore persists the processed-ID set as a JSON array in a single file.
// Saves go through a temp file and an atomic rename, so readers never see a
// half-written checkpoint.
type FileStore struct {
	path   string
	mu     sync.Mutex
	logger zerolog.Logger
}

// NewFileStore creates a file-backed checkpoint store at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{
		path:   path,
		logger: log.With().Str("component", "checkpoint").Str("backend", "file").Logger(),
	}
}

// Load reads the checkpoint file. A missing file yields an empty set.
func (s *FileStore) Load(_ context.Context) (map[string]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]struct{}{}, nil
		}
		return nil, fmt.Errorf("read checkpoint %s: %w", s.path, err)
	}

	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("parse checkpoint %s: %w", s.path, err)
	}

	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

// Save overwrites the checkpoint file with the given set.
func (s *FileStore) Save(_ context.Context, ids map[string]struct{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := make([]string, 0, len(ids))
	for id := range ids {
		list = append(list, id)
	}
	sort.Strings(list)

	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("write temp checkpoint: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename checkpoint: %w", err)
	}

	checkpointSavesTotal.WithLabelValues("file").Inc()
	s.logger.Info().Int("processed_ids", len(list)).Msg("Saved checkpoint")
	return nil
}
