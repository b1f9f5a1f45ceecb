package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Sternrassler/canvas-lms-client/pkg/table"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultTTL applies when Put is called without a positive TTL.
const DefaultTTL = 24 * time.Hour

var (
	// ErrNotFound indicates no snapshot exists under the key
	ErrNotFound = errors.New("snapshot not found")

	// ErrInvalidEntry indicates the stored snapshot is corrupted
	ErrInvalidEntry = errors.New("invalid snapshot entry")
)

// Store writes snapshots to Redis.
type Store struct {
	redis  *redis.Client
	logger zerolog.Logger
}

// NewStore creates a snapshot store with Redis backend.
func NewStore(redisClient *redis.Client) *Store {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &Store{
		redis:  redisClient,
		logger: log.With().Str("component", "canvas-snapshot").Logger(),
	}
}

// Put stores t under key. The entry is removed by Redis once ttl elapses.
func (s *Store) Put(ctx context.Context, key Key, t *table.Table, ttl time.Duration) (*Entry, error) {
	if t == nil {
		return nil, fmt.Errorf("snapshot table cannot be nil")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	entry := NewEntry(key, t, ttl)
	data, err := json.Marshal(entry)
	if err != nil {
		SnapshotErrors.WithLabelValues("put").Inc()
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := s.redis.Set(ctx, entry.Key, data, ttl).Err(); err != nil {
		SnapshotErrors.WithLabelValues("put").Inc()
		return nil, fmt.Errorf("redis set: %w", err)
	}

	SnapshotWrites.WithLabelValues(key.Resource).Inc()
	SnapshotBytes.WithLabelValues(key.Resource).Set(float64(len(data)))

	s.logger.Debug().
		Str("key", entry.Key).
		Int("rows", len(entry.Rows)).
		Int("bytes", len(data)).
		Dur("ttl", ttl).
		Msg("Snapshot published")

	return entry, nil
}

// Get retrieves a snapshot by key.
// Returns ErrNotFound if the key doesn't exist or the entry is expired.
func (s *Store) Get(ctx context.Context, key Key) (*Entry, error) {
	data, err := s.redis.Get(ctx, key.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		SnapshotErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	entry, err := decodeEntry(data)
	if err != nil {
		SnapshotErrors.WithLabelValues("get").Inc()
		return nil, err
	}
	if entry.IsExpired() {
		return nil, ErrNotFound
	}
	return entry, nil
}

// Delete removes a snapshot.
func (s *Store) Delete(ctx context.Context, key Key) error {
	if err := s.redis.Del(ctx, key.String()).Err(); err != nil {
		SnapshotErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
