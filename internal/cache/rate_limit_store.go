package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/GTDGit/muni_commerce/internal/models"
)

const maxApplyRetries = 5

// ErrContention is returned when a counter keeps changing under WATCH.
var ErrContention = errors.New("rate limit counter contention")

// RateLimitStore keeps fixed-window counters in Redis hashes:
// ratelimit:{endpoint}:{ip} -> {count, window_start (unix ms)}.
type RateLimitStore struct {
	redis *RedisClient
}

// NewRateLimitStore creates a new RateLimitStore.
func NewRateLimitStore(redis *RedisClient) *RateLimitStore {
	return &RateLimitStore{redis: redis}
}

func (s *RateLimitStore) key(ip, endpoint string) string {
	return fmt.Sprintf("ratelimit:%s:%s", endpoint, ip)
}

// Apply reads the counter, hands it to fn and writes fn's result inside a
// WATCH/MULTI transaction, retrying when another client wrote the key first.
// Keys expire after two windows so a counter is never dropped while it can
// still reject.
func (s *RateLimitStore) Apply(ctx context.Context, ip, endpoint string, window time.Duration, fn func(cur *models.RateLimitRecord) *models.RateLimitRecord) error {
	key := s.key(ip, endpoint)
	ttl := 2 * window

	txf := func(tx *redis.Tx) error {
		cur, err := readRecord(ctx, tx, key, ip, endpoint)
		if err != nil {
			return err
		}

		next := fn(cur)
		if next == nil {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key,
				"count", next.Count,
				"window_start", next.WindowStart.UnixMilli(),
			)
			pipe.PExpire(ctx, key, ttl)
			return nil
		})
		return err
	}

	for i := 0; i < maxApplyRetries; i++ {
		err := s.redis.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return ErrContention
}

// Get returns the stored counter or nil when none exists.
func (s *RateLimitStore) Get(ctx context.Context, ip, endpoint string) (*models.RateLimitRecord, error) {
	return readRecord(ctx, s.redis.client, s.key(ip, endpoint), ip, endpoint)
}

func readRecord(ctx context.Context, c redis.Cmdable, key, ip, endpoint string) (*models.RateLimitRecord, error) {
	fields, err := c.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, nil
	}

	count, err := strconv.Atoi(fields["count"])
	if err != nil {
		return nil, fmt.Errorf("corrupt counter %s: %w", key, err)
	}
	startMs, err := strconv.ParseInt(fields["window_start"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt window start %s: %w", key, err)
	}

	return &models.RateLimitRecord{
		IP:          ip,
		Endpoint:    endpoint,
		Count:       count,
		WindowStart: time.UnixMilli(startMs).UTC(),
	}, nil
}
