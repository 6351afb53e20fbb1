package checkpoint

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// RedisStore persists the processed-ID set as a Redis set. Useful when the
// harvester runs somewhere without a stable local filesystem.
type RedisStore struct {
	client *redis.Client
	key    string
	logger zerolog.Logger
}

// NewRedisStore creates a Redis-backed checkpoint store under key.
func NewRedisStore(client *redis.Client, key string) (*RedisStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if key == "" {
		return nil, fmt.Errorf("checkpoint key is required")
	}

	return &RedisStore{
		client: client,
		key:    key,
		logger: log.With().Str("component", "checkpoint").Str("backend", "redis").Logger(),
	}, nil
}

// Load reads the checkpoint set. A missing key yields an empty set.
func (s *RedisStore) Load(ctx context.Context) (map[string]struct{}, error) {
	ids, err := s.client.SMembers(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("load checkpoint %s: %w", s.key, err)
	}

	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

// Save replaces the checkpoint set. DEL and SADD run in one transaction so
// a concurrent Load never observes a partially written set.
func (s *RedisStore) Save(ctx context.Context, ids map[string]struct{}) error {
	members := make([]interface{}, 0, len(ids))
	for id := range ids {
		members = append(members, id)
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.key)
	if len(members) > 0 {
		pipe.SAdd(ctx, s.key, members...)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save checkpoint %s: %w", s.key, err)
	}

	checkpointSavesTotal.WithLabelValues("redis").Inc()
	s.logger.Info().Int("processed_ids", len(members)).Msg("Saved checkpoint")
	return nil
}
