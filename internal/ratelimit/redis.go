package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// takeScript performs the fixed-window transition atomically inside Redis.
// The entry is a hash {count, reset} in epoch milliseconds; PEXPIRE lets Redis
// drop the key once its window ends, so no separate reaper is needed.
//
// Returns {allowed, count, reset}.
var takeScript = redis.NewScript(`
local key = KEYS[1]
local limit = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

local fields = redis.call('HMGET', key, 'count', 'reset')
local count = tonumber(fields[1])
local reset = tonumber(fields[2])

if count == nil or reset == nil or now >= reset then
  reset = now + window
  redis.call('HSET', key, 'count', 1, 'reset', reset)
  redis.call('PEXPIRE', key, window)
  return {1, 1, reset}
end

if count >= limit then
  return {0, count, reset}
end

count = redis.call('HINCRBY', key, 'count', 1)
return {1, count, reset}
`)

// RedisStore shares window entries across processes through Redis.
type RedisStore struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// RedisStoreConfig configures a RedisStore.
type RedisStoreConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, cfg RedisStoreConfig) (*RedisStore, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return newRedisStore(client, cfg.KeyPrefix), nil
}

func newRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, now: time.Now}
}

// Take runs the fixed-window script for key.
func (s *RedisStore) Take(ctx context.Context, key string, limit int, window time.Duration) (Entry, Decision, error) {
	now := s.now()
	res, err := takeScript.Run(ctx, s.client, []string{s.prefix + key},
		limit, window.Milliseconds(), now.UnixMilli()).Int64Slice()
	if err != nil {
		return Entry{}, Decision{}, fmt.Errorf("redis take %s: %w", key, err)
	}
	if len(res) != 3 {
		return Entry{}, Decision{}, fmt.Errorf("redis take %s: unexpected reply length %d", key, len(res))
	}

	e := Entry{Count: int(res[1]), ResetAt: time.UnixMilli(res[2])}
	d := Decision{Allowed: res[0] == 1, Limit: limit, ResetAt: e.ResetAt}
	if d.Allowed {
		d.Remaining = limit - e.Count
	} else {
		d.RetryAfter = retryAfterSeconds(e.ResetAt, now)
	}
	return e, d, nil
}

// Len counts keys under the store prefix.
func (s *RedisStore) Len(ctx context.Context) (int, error) {
	n := 0
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		n++
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("redis scan: %w", err)
	}
	return n, nil
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
