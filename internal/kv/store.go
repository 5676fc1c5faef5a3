// Package kv provides the key-value store contract shared by the session,
// OTP, rate-limit, and cache components, plus its Redis implementation.
package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taskify/taskify-api/internal/domain"
)

// ErrNotFound is returned by Get when the key is absent or expired.
var ErrNotFound = errors.New("kv: key not found")

// opTimeout bounds every store round-trip so no request can block on a
// wedged connection.
const opTimeout = 2 * time.Second

// Store is the uniform contract over the fast store. All values are leases:
// every write carries a TTL and nothing needs manual garbage collection.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	ScanKeys(ctx context.Context, pattern string) ([]string, error)
	// IncrWithExpiry atomically increments the counter at key and, when the
	// increment opens a new window, applies the window TTL. Returns the
	// post-increment count.
	IncrWithExpiry(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RedisStore implements Store on top of go-redis. The client is injected at
// construction time so tests can point it at miniredis.
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore wraps the given Redis client.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	val, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: get %s: %v", domain.ErrStoreUnavailable, key, err)
	}
	return val, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("%w: set %s: %v", domain.ErrStoreUnavailable, key, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: delete: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// ScanKeys enumerates keys matching the glob pattern using cursor-based SCAN
// so large keyspaces are never blocked the way KEYS would.
func (s *RedisStore) ScanKeys(ctx context.Context, pattern string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var (
		keys   []string
		cursor uint64
	)
	for {
		batch, next, err := s.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, fmt.Errorf("%w: scan %s: %v", domain.ErrStoreUnavailable, pattern, err)
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			return keys, nil
		}
	}
}

// incrWithExpiryLua performs INCR and conditional EXPIRE in one round trip so
// concurrent bursts cannot leave a counter without a TTL.
var incrWithExpiryLua = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return count
`)

func (s *RedisStore) IncrWithExpiry(ctx context.Context, key string, window time.Duration) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	count, err := incrWithExpiryLua.Run(ctx, s.client, []string{key}, window.Milliseconds()).Int64()
	if err != nil {
		return 0, fmt.Errorf("%w: incr %s: %v", domain.ErrStoreUnavailable, key, err)
	}
	return count, nil
}
