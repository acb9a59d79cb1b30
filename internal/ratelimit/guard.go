package ratelimit

import (
	"context"
	"errors"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/pizzaledger/internal/config"
	"go.uber.org/zap"
)

const (
	keyMutationClientPrefix = "pizzaledger:mutation:client:"
	keyBulkLock             = "pizzaledger:bulk:lock"
)

// Guard throttles mutating requests per client and lets one bulk operation (reset or
// import) run at a time across every replica. A disabled Guard allows everything.
type Guard struct {
	enabled bool

	bucket *mutationBucket
	lock   *bulkLock
}

func NewGuard(cfg config.Config, log *zap.Logger) (*Guard, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled {
		return &Guard{}, nil
	}

	addr := strings.TrimSpace(limitCfg.RedisAddr)
	if addr == "" {
		return nil, errors.New("rate limit redis addr is required")
	}
	if limitCfg.MutationRate <= 0 || limitCfg.MutationBurst <= 0 {
		return nil, errors.New("mutation rate limit must be positive")
	}
	if limitCfg.BulkLockTTL <= 0 {
		return nil, errors.New("bulk lock ttl must be positive")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: limitCfg.RedisPassword,
		DB:       limitCfg.RedisDB,
	})
	if log != nil {
		log.Named("ratelimit").Info("mutation guard enabled",
			zap.Float64("rate", limitCfg.MutationRate),
			zap.Int("burst", limitCfg.MutationBurst),
		)
	}
	return newGuard(client, limitCfg.MutationRate, limitCfg.MutationBurst, limitCfg.BulkLockTTL), nil
}

func newGuard(client *redis.Client, rate float64, burst int, lockTTL time.Duration) *Guard {
	return &Guard{
		enabled: true,
		bucket:  newMutationBucket(client, keyMutationClientPrefix, rate, burst),
		lock:    newBulkLock(client, keyBulkLock, lockTTL),
	}
}

func (g *Guard) Enabled() bool {
	return g != nil && g.enabled
}

func (g *Guard) AllowMutation(ctx context.Context, client string) (*RateLimitResult, error) {
	if !g.Enabled() {
		return &RateLimitResult{Allowed: true}, nil
	}
	client = strings.TrimSpace(client)
	if client == "" {
		client = "anonymous"
	}
	return g.bucket.take(ctx, client)
}

// LockBulk reports whether the bulk lock was taken. release is safe to call when it was not.
func (g *Guard) LockBulk(ctx context.Context) (release func(context.Context) error, acquired bool, err error) {
	noop := func(context.Context) error { return nil }
	if !g.Enabled() {
		return noop, true, nil
	}
	token, held, err := g.lock.acquire(ctx)
	if err != nil || !held {
		return noop, false, err
	}
	return func(ctx context.Context) error {
		return g.lock.release(ctx, token)
	}, true, nil
}
