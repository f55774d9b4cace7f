package limiter

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
)

// luaScript implements the token bucket algorithm atomically
// KEYS[1] = rate limit key
// ARGV[1] = capacity (burst size)
// ARGV[2] = refill rate (tokens per second)
// ARGV[3] = current timestamp (unix seconds)
// ARGV[4] = requested tokens
// Returns: [allowed (1/0), remaining_tokens]
const luaScript = `
local key = KEYS[1]
local capacity = tonumber(ARGV[1])
local rate = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local requested = tonumber(ARGV[4])

local info = redis.call("HMGET", key, "tokens", "last_refill")
local tokens = tonumber(info[1])
local last_refill = tonumber(info[2])

if not tokens then
	tokens = capacity
	last_refill = now
end

local delta = math.max(0, now - last_refill)
local filled = tokens + (delta * rate)

if filled > capacity then
	filled = capacity
end

local allowed = 0
if filled >= requested then
	allowed = 1
	filled = filled - requested
end

redis.call("HMSET", key, "tokens", filled, "last_refill", now)
redis.call("EXPIRE", key, 60)

return {allowed, math.floor(filled)}
`

// TokenBucketLimiter shares one bucket per agent across broker replicas.
// The broker's own correctness never depends on it: callers treat a redis
// failure per the configured reliability strategy.
type TokenBucketLimiter struct {
	client *redis.Client
}

func NewTokenBucketLimiter(client *redis.Client) *TokenBucketLimiter {
	return &TokenBucketLimiter{client: client}
}

// Allow checks if the request is allowed.
// rate: tokens per second
// burst: maximum capacity
func (l *TokenBucketLimiter) Allow(ctx context.Context, key string, rate float64, burst int) (bool, int64, error) {
	now := time.Now().Unix()

	result, err := l.client.Eval(ctx, luaScript, []string{key}, burst, rate, now, 1).Result()
	if err != nil {
		return false, 0, err
	}

	resSlice, ok := result.([]interface{})
	if !ok || len(resSlice) != 2 {
		return false, 0, errors.New("unexpected limiter script reply")
	}

	allowed, _ := resSlice[0].(int64)
	remaining, _ := resSlice[1].(int64)

	if allowed != 1 {
		return false, remaining, ErrRateLimitExceeded
	}
	return true, remaining, nil
}
