package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-redis/redis/v8"

	"github.com/developer-mesh/querycache/pkg/observability"
)

// invalidateChannelSuffix names the pub/sub channel relative to the cache
// prefix.
const invalidateChannelSuffix = ":invalidate"

// InvalidationListener subscribes to a Redis pub/sub channel and applies
// invalidation messages to a local cache. It lets data-mutation notifiers
// (for example, other processes writing to the same database) invalidate
// every in-process cache without sharing cache contents.
//
// Messages are "table:<name>" or "pattern:<text>"; a bare payload is treated
// as a table name.
type InvalidationListener struct {
	client  *redis.Client
	cache   *SemanticQueryCache
	channel string
	logger  observability.Logger

	pubsub    *redis.PubSub
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewInvalidationListener creates a listener bound to the cache's configured
// prefix.
func NewInvalidationListener(client *redis.Client, cache *SemanticQueryCache, logger observability.Logger) (*InvalidationListener, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if cache == nil {
		return nil, fmt.Errorf("cache is required")
	}
	if logger == nil {
		logger = observability.NewLogger("querycache.invalidation")
	}

	return &InvalidationListener{
		client:  client,
		cache:   cache,
		channel: cache.config.Prefix + invalidateChannelSuffix,
		logger:  logger,
		done:    make(chan struct{}),
	}, nil
}

// Start subscribes to the invalidation channel and begins processing
// messages in a background goroutine. It returns once the subscription is
// confirmed.
func (l *InvalidationListener) Start(ctx context.Context) error {
	l.pubsub = l.client.Subscribe(ctx, l.channel)

	// Receive forces the subscription round-trip so messages published after
	// Start returns are not lost.
	if _, err := l.pubsub.Receive(ctx); err != nil {
		_ = l.pubsub.Close()
		return fmt.Errorf("failed to subscribe to %s: %w", l.channel, err)
	}

	l.wg.Add(1)
	go l.run(ctx)

	l.logger.Info("Invalidation listener started", map[string]interface{}{
		"channel": l.channel,
	})
	return nil
}

// Close stops the listener and waits for the background goroutine to exit.
// It is idempotent, and safe to call after the Start context was cancelled.
func (l *InvalidationListener) Close() error {
	var err error
	l.closeOnce.Do(func() {
		close(l.done)
		if l.pubsub != nil {
			if cerr := l.pubsub.Close(); cerr != nil && !errors.Is(cerr, redis.ErrClosed) {
				err = cerr
			}
		}
		l.wg.Wait()
	})
	return err
}

func (l *InvalidationListener) run(ctx context.Context) {
	defer l.wg.Done()

	ch := l.pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			// The subscription does not outlive the context it was
			// started with.
			_ = l.pubsub.Close()
			return
		case <-l.done:
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			l.handle(ctx, msg.Payload)
		}
	}
}

func (l *InvalidationListener) handle(ctx context.Context, payload string) {
	kind, value, found := strings.Cut(payload, ":")
	if !found {
		kind, value = "table", payload
	}

	var removed int
	switch kind {
	case "table":
		removed = l.cache.InvalidateByTable(ctx, value)
	case "pattern":
		removed = l.cache.InvalidateByPattern(ctx, value)
	default:
		l.logger.Warn("Ignoring malformed invalidation message", map[string]interface{}{
			"payload": payload,
		})
		return
	}

	l.logger.Debug("Processed invalidation message", map[string]interface{}{
		"kind":    kind,
		"value":   value,
		"removed": removed,
	})
}

// NotifyTableChanged publishes a table invalidation to every listener
// subscribed under the given prefix. Writers call it after mutating the
// table.
func NotifyTableChanged(ctx context.Context, client *redis.Client, prefix, table string) error {
	if prefix == "" {
		prefix = DefaultConfig().Prefix
	}
	channel := prefix + invalidateChannelSuffix
	if err := client.Publish(ctx, channel, "table:"+table).Err(); err != nil {
		return fmt.Errorf("failed to publish invalidation: %w", err)
	}
	return nil
}
