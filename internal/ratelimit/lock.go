package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

// deletes the key only while it still holds our token
const unlockScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

// bulkLock is a single cluster-wide SETNX lock. The TTL bounds how long a crashed holder
// can keep resets and imports out.
type bulkLock struct {
	client *redis.Client
	unlock *redis.Script
	key    string
	ttl    time.Duration
}

func newBulkLock(client *redis.Client, key string, ttl time.Duration) *bulkLock {
	return &bulkLock{
		client: client,
		unlock: redis.NewScript(unlockScript),
		key:    key,
		ttl:    ttl,
	}
}

func (l *bulkLock) acquire(ctx context.Context) (token string, held bool, err error) {
	if l.client == nil {
		return "", false, errors.New("bulk lock: redis client not configured")
	}
	token = uuid.NewString()
	held, err = l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil || !held {
		return "", false, err
	}
	return token, true, nil
}

func (l *bulkLock) release(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return l.unlock.Run(ctx, l.client, []string{l.key}, token).Err()
}
