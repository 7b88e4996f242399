package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/vendorsync/backend/internal/domain/vendor"
)

// invalidationChannel carries priority invalidation fanout between instances
const invalidationChannel = "vendorsync:priority:invalidate"

type invalidationMsg struct {
	Scope    string `json:"scope"`
	Category string `json:"category"`
	All      bool   `json:"all,omitempty"`
}

// RedisInvalidatingCache wraps a local priority cache and fans out
// invalidations over Redis pub/sub so every instance drops its copy.
// Reads stay local; only invalidation crosses the wire.
type RedisInvalidatingCache struct {
	local  vendor.PriorityCache
	client *redis.Client
	log    *zap.Logger
}

// NewRedisInvalidatingCache creates the distributed invalidation wrapper
func NewRedisInvalidatingCache(local vendor.PriorityCache, client *redis.Client, log *zap.Logger) *RedisInvalidatingCache {
	return &RedisInvalidatingCache{local: local, client: client, log: log}
}

var _ vendor.PriorityCache = (*RedisInvalidatingCache)(nil)

// Get serves from the local cache
func (c *RedisInvalidatingCache) Get(ctx context.Context, scope vendor.Scope, category string) (*vendor.PriorityList, error) {
	return c.local.Get(ctx, scope, category)
}

// Invalidate drops the local entry and broadcasts the invalidation
func (c *RedisInvalidatingCache) Invalidate(ctx context.Context, scope vendor.Scope, category string) error {
	if err := c.local.Invalidate(ctx, scope, category); err != nil {
		return err
	}
	return c.publish(ctx, invalidationMsg{Scope: scope.String(), Category: category})
}

// InvalidateAll drops every local entry and broadcasts a full invalidation
func (c *RedisInvalidatingCache) InvalidateAll(ctx context.Context) error {
	if err := c.local.InvalidateAll(ctx); err != nil {
		return err
	}
	return c.publish(ctx, invalidationMsg{All: true})
}

func (c *RedisInvalidatingCache) publish(ctx context.Context, msg invalidationMsg) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if err := c.client.Publish(ctx, invalidationChannel, payload).Err(); err != nil {
		return fmt.Errorf("publish cache invalidation: %w", err)
	}
	return nil
}

// Listen applies invalidations broadcast by other instances until the
// context ends. Run it in its own goroutine.
func (c *RedisInvalidatingCache) Listen(ctx context.Context) {
	sub := c.client.Subscribe(ctx, invalidationChannel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-ch:
			if !ok {
				return
			}
			var msg invalidationMsg
			if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
				c.log.Warn("bad invalidation payload", zap.Error(err))
				continue
			}
			if msg.All {
				_ = c.local.InvalidateAll(ctx)
				continue
			}
			scope, err := vendor.ParseScope(msg.Scope)
			if err != nil {
				c.log.Warn("bad invalidation scope", zap.String("scope", msg.Scope))
				continue
			}
			_ = c.local.Invalidate(ctx, scope, msg.Category)
		}
	}
}
