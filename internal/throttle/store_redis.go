package throttle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"proofing/pkg/requestcontext"
)

const throttleKeyPrefix = "idv:throttle:"

// RedisStore implements Store with INCR counters whose expiry marks the
// window end. INCR is atomic in Redis, so concurrent increments for the same
// key serialize without lost updates.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func redisKey(subjectID string, category Category) string {
	return throttleKeyPrefix + string(category) + ":" + subjectID
}

func (s *RedisStore) Increment(ctx context.Context, subjectID string, category Category, limit Limit) (Record, error) {
	k := redisKey(subjectID, category)

	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	// NX: only the increment that opens the window sets the expiry, so the
	// window is fixed rather than sliding.
	pipe.ExpireNX(ctx, k, limit.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Record{}, fmt.Errorf("increment throttle %s: %w", category, err)
	}

	count := int(incr.Val())
	start, err := s.windowStart(ctx, k, limit, count)
	if err != nil {
		return Record{}, err
	}
	return Record{AttemptCount: count, WindowStart: start}, nil
}

func (s *RedisStore) Get(ctx context.Context, subjectID string, category Category, limit Limit) (Record, error) {
	k := redisKey(subjectID, category)

	count, err := s.client.Get(ctx, k).Int()
	if errors.Is(err, redis.Nil) {
		return Record{}, nil
	}
	if err != nil {
		return Record{}, fmt.Errorf("get throttle %s: %w", category, err)
	}

	start, err := s.windowStart(ctx, k, limit, count)
	if err != nil {
		return Record{}, err
	}
	return Record{AttemptCount: count, WindowStart: start}, nil
}

// windowStart reconstructs the window open time from the key's remaining
// TTL. Redis owns expiry; the record only needs WindowStart for retry-after
// arithmetic.
func (s *RedisStore) windowStart(ctx context.Context, key string, limit Limit, count int) (time.Time, error) {
	if count == 0 {
		return time.Time{}, nil
	}
	ttl, err := s.client.PTTL(ctx, key).Result()
	if err != nil {
		return time.Time{}, fmt.Errorf("throttle ttl: %w", err)
	}
	if ttl < 0 {
		// Key without expiry should not happen; treat as a fresh window.
		ttl = limit.Window
	}
	return requestcontext.Now(ctx).Add(ttl - limit.Window), nil
}
