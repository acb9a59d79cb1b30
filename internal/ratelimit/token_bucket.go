package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Refills at ARGV[1] tokens/s up to ARGV[2], using the redis clock so replicas agree.
// tokens is returned as a string to keep the fraction.
const takeTokenScript = `
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local ttl = tonumber(ARGV[3])

local clock = redis.call("TIME")
local now = (clock[1] * 1000) + math.floor(clock[2] / 1000)

local state = redis.call("HMGET", KEYS[1], "tokens", "ts")
local tokens = tonumber(state[1])
local ts = tonumber(state[2])

if tokens == nil then
  tokens = burst
else
  local elapsed = math.max(0, now - ts)
  tokens = math.min(burst, tokens + (elapsed / 1000) * rate)
end

local allowed = 0
if tokens >= 1 then
  allowed = 1
  tokens = tokens - 1
end

redis.call("HSET", KEYS[1], "tokens", tokens, "ts", now)
redis.call("PEXPIRE", KEYS[1], ttl)

return {allowed, tostring(tokens), now}
`

// RateLimitResult describes one take from a client's bucket.
type RateLimitResult struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetTime  time.Time
	RetryAfter time.Duration
}

// mutationBucket keeps one token bucket per client under keyPrefix.
type mutationBucket struct {
	client    *redis.Client
	script    *redis.Script
	keyPrefix string
	rate      float64
	burst     int
	ttl       time.Duration
}

func newMutationBucket(client *redis.Client, keyPrefix string, rate float64, burst int) *mutationBucket {
	return &mutationBucket{
		client:    client,
		script:    redis.NewScript(takeTokenScript),
		keyPrefix: keyPrefix,
		rate:      rate,
		burst:     burst,
		ttl:       defaultBucketTTL(rate, burst),
	}
}

func (b *mutationBucket) take(ctx context.Context, clientID string) (*RateLimitResult, error) {
	denied := &RateLimitResult{Allowed: false, Limit: b.burst}
	if b.client == nil {
		return denied, errors.New("mutation bucket: redis client not configured")
	}

	key := b.keyPrefix + clientID
	res, err := b.script.Run(ctx, b.client, []string{key}, b.rate, b.burst, b.ttl.Milliseconds()).Slice()
	if err != nil {
		return denied, err
	}
	if len(res) < 3 {
		return denied, fmt.Errorf("mutation bucket: unexpected script reply %v", res)
	}

	allowed := toInt64(res[0]) == 1
	remaining := toFloat64(res[1])
	now := toInt64(res[2])

	var retryAfter time.Duration
	if !allowed {
		retryAfter = time.Duration((1 - remaining) / b.rate * float64(time.Second))
	}
	return &RateLimitResult{
		Allowed:    allowed,
		Limit:      b.burst,
		Remaining:  int(math.Floor(remaining)),
		ResetTime:  time.UnixMilli(now).Add(retryAfter),
		RetryAfter: retryAfter,
	}, nil
}

// defaultBucketTTL keeps an idle bucket for twice the time it takes to refill.
func defaultBucketTTL(rate float64, burst int) time.Duration {
	if rate <= 0 || burst <= 0 {
		return time.Second
	}
	seconds := math.Max(1, math.Ceil(float64(burst)/rate*2))
	return time.Duration(seconds) * time.Second
}

func toInt64(v any) int64 {
	switch val := v.(type) {
	case int64:
		return val
	case string:
		n, _ := strconv.ParseInt(strings.TrimSpace(val), 10, 64)
		return n
	default:
		return 0
	}
}

func toFloat64(v any) float64 {
	switch val := v.(type) {
	case int64:
		return float64(val)
	case string:
		f, _ := strconv.ParseFloat(strings.TrimSpace(val), 64)
		return f
	default:
		return 0
	}
}
