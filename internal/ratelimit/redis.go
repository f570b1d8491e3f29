package ratelimit

import (
	"context"
	"errors"
	"strconv"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "ratelimit:login:"

// The window is a sorted set scored by attempt time in milliseconds. The
// script runs atomically, which makes prune-check-record atomic per key
// across every instance sharing the Redis.
var redisAllowScript = redis.NewScript(`
redis.call("ZREMRANGEBYSCORE", KEYS[1], "-inf", "(" .. ARGV[2])
local count = redis.call("ZCARD", KEYS[1])
if count >= tonumber(ARGV[3]) then
  return 0
end
redis.call("ZADD", KEYS[1], ARGV[1], ARGV[4])
redis.call("PEXPIRE", KEYS[1], ARGV[5])
return 1
`)

// RedisLimiter is a sliding window shared through Redis. Idle keys expire
// on their own after one window.
type RedisLimiter struct {
	client redis.Scripter
	cfg    Config
}

// NewRedisLimiter builds a Redis-backed limiter.
func NewRedisLimiter(client redis.Scripter, cfg Config) (*RedisLimiter, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	return &RedisLimiter{client: client, cfg: cfg.withDefaults()}, nil
}

// Allow implements Limiter.
func (r *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	now := r.cfg.Now()
	nowMillis := now.UnixMilli()
	cutoff := now.Add(-r.cfg.Window).UnixMilli()
	member := strconv.FormatInt(now.UnixNano(), 10) + "-" + uuid.NewString()

	res, err := redisAllowScript.Run(ctx, r.client, []string{redisKeyPrefix + key},
		nowMillis,
		cutoff,
		r.cfg.MaxAttempts,
		member,
		r.cfg.Window.Milliseconds(),
	).Int64()
	if err != nil {
		return false, err
	}
	return res == 1, nil
}
