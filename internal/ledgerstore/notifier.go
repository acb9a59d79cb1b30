package ledgerstore

import (
	"context"
	"errors"
	"strings"
	"sync"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/pizzaledger/internal/config"
	"go.uber.org/zap"
)

// ChangeHandler is called once per collection touched by a committed write.
type ChangeHandler func(ctx context.Context, collection Collection)

// Notifier announces committed writes to every process serving live subscriptions.
type Notifier interface {
	Notify(ctx context.Context, changed []Collection) error
	Start(ctx context.Context, handler ChangeHandler) error
	Close() error
}

func NewNotifier(cfg config.Config, log *zap.Logger) Notifier {
	if log == nil {
		log = zap.NewNop()
	}
	addr := strings.TrimSpace(cfg.Store.RedisAddr)
	if addr == "" {
		return NewLocalNotifier()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Store.RedisPassword,
		DB:       cfg.Store.RedisDB,
	})
	return NewRedisNotifier(client, cfg.Store.RedisChannel, log)
}

// LocalNotifier delivers changes in-process, synchronously.
type LocalNotifier struct {
	mu      sync.RWMutex
	handler ChangeHandler
}

func NewLocalNotifier() *LocalNotifier {
	return &LocalNotifier{}
}

func (n *LocalNotifier) Start(_ context.Context, handler ChangeHandler) error {
	n.mu.Lock()
	n.handler = handler
	n.mu.Unlock()
	return nil
}

func (n *LocalNotifier) Notify(ctx context.Context, changed []Collection) error {
	n.mu.RLock()
	handler := n.handler
	n.mu.RUnlock()
	if handler == nil {
		return nil
	}
	for _, c := range changed {
		handler(ctx, c)
	}
	return nil
}

func (n *LocalNotifier) Close() error {
	n.mu.Lock()
	n.handler = nil
	n.mu.Unlock()
	return nil
}

// RedisNotifier relays change notices over a Redis pub/sub channel so that every replica
// sharing the database refreshes its subscribers.
type RedisNotifier struct {
	client  *redis.Client
	channel string
	log     *zap.Logger

	mu      sync.Mutex
	pubsub  *redis.PubSub
	handler ChangeHandler
	wg      sync.WaitGroup
}

func NewRedisNotifier(client *redis.Client, channel string, log *zap.Logger) *RedisNotifier {
	channel = strings.TrimSpace(channel)
	if channel == "" {
		channel = "pizzaledger:changes"
	}
	return &RedisNotifier{
		client:  client,
		channel: channel,
		log:     log.Named("ledgerstore.notifier"),
	}
}

func (n *RedisNotifier) Start(ctx context.Context, handler ChangeHandler) error {
	if n.client == nil {
		return errors.New("redis client not configured")
	}
	pubsub := n.client.Subscribe(ctx, n.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return err
	}

	n.mu.Lock()
	n.pubsub = pubsub
	n.handler = handler
	n.mu.Unlock()

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		for msg := range pubsub.Channel() {
			for _, name := range strings.Split(msg.Payload, ",") {
				c, err := ParseCollection(name)
				if err != nil {
					n.log.Warn("ignoring change notice", zap.String("payload", msg.Payload), zap.Error(err))
					continue
				}
				handler(context.Background(), c)
			}
		}
	}()

	n.log.Info("listening for ledger changes", zap.String("channel", n.channel))
	return nil
}

// Notify publishes the change notice. When Redis is unreachable the local subscribers are
// still refreshed; other replicas catch up on their next notice.
func (n *RedisNotifier) Notify(ctx context.Context, changed []Collection) error {
	if len(changed) == 0 {
		return nil
	}
	names := make([]string, 0, len(changed))
	for _, c := range changed {
		names = append(names, string(c))
	}
	err := n.client.Publish(ctx, n.channel, strings.Join(names, ",")).Err()
	if err == nil {
		return nil
	}

	n.mu.Lock()
	handler := n.handler
	n.mu.Unlock()
	if handler != nil {
		for _, c := range changed {
			handler(ctx, c)
		}
	}
	return err
}

func (n *RedisNotifier) Close() error {
	n.mu.Lock()
	pubsub := n.pubsub
	n.pubsub = nil
	n.mu.Unlock()

	var errs []error
	if pubsub != nil {
		errs = append(errs, pubsub.Close())
	}
	n.wg.Wait()
	errs = append(errs, n.client.Close())
	return errors.Join(errs...)
}
