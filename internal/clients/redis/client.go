package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/echolabs/twinsight-backend/internal/logger"
	"github.com/echolabs/twinsight-backend/internal/utils"
)

// MarkerStore holds short-lived coordination keys: per-user tracker in-flight
// markers and suggestion de-dup keys. Everything expires on its own; losing
// Redis only risks a duplicated cycle, never lost data.
type MarkerStore interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
	Close() error
}

type markerStore struct {
	log *logger.Logger
	rdb *goredis.Client
}

func NewMarkerStore(log *logger.Logger) (MarkerStore, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := strings.TrimSpace(utils.GetEnv("REDIS_ADDR", "", log))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &markerStore{
		log: log.With("client", "RedisMarkerStore"),
		rdb: rdb,
	}, nil
}

func (s *markerStore) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if s == nil || s.rdb == nil {
		return false, fmt.Errorf("redis marker store not initialized")
	}
	if key == "" {
		return false, fmt.Errorf("marker key required")
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	ok, err := s.rdb.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx: %w", err)
	}
	return ok, nil
}

func (s *markerStore) Release(ctx context.Context, key string) error {
	if s == nil || s.rdb == nil {
		return fmt.Errorf("redis marker store not initialized")
	}
	return s.rdb.Del(ctx, key).Err()
}

func (s *markerStore) Close() error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}
