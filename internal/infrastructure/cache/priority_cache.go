package cache

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/vendorsync/backend/internal/domain/vendor"
)

// InMemoryPriorityCache is a read-through cache over the priority
// repository. Misses load from the repository under a per-key singleflight
// lock; invalidation is explicit and immediate. There is no TTL: priority
// changes always flow through Invalidate.
type InMemoryPriorityCache struct {
	repo vendor.PriorityRepository
	log  *zap.Logger

	mu      sync.RWMutex
	entries map[string]*vendor.PriorityList
}

// NewInMemoryPriorityCache creates a priority cache over the repository
func NewInMemoryPriorityCache(repo vendor.PriorityRepository, log *zap.Logger) *InMemoryPriorityCache {
	return &InMemoryPriorityCache{
		repo:    repo,
		log:     log,
		entries: make(map[string]*vendor.PriorityList),
	}
}

var _ vendor.PriorityCache = (*InMemoryPriorityCache)(nil)

func cacheKey(scope vendor.Scope, category string) string {
	return fmt.Sprintf("%s|%s", scope.String(), category)
}

// Get returns the priority list for a (scope, category) pair, loading it
// from the repository on first access.
func (c *InMemoryPriorityCache) Get(ctx context.Context, scope vendor.Scope, category string) (*vendor.PriorityList, error) {
	key := cacheKey(scope, category)

	c.mu.RLock()
	if list, ok := c.entries[key]; ok {
		c.mu.RUnlock()
		return list, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if list, ok := c.entries[key]; ok {
		return list, nil
	}

	entries, err := c.repo.FindByScopeAndCategory(ctx, scope, category)
	if err != nil {
		return nil, fmt.Errorf("load priorities for %s/%s: %w", scope, category, err)
	}
	list := vendor.NewPriorityList(scope, category, entries)
	c.entries[key] = list
	c.log.Debug("priority cache filled",
		zap.String("scope", scope.String()),
		zap.String("category", category),
		zap.Int("vendors", list.Len()))
	return list, nil
}

// Invalidate drops the cached list for one (scope, category) pair
func (c *InMemoryPriorityCache) Invalidate(_ context.Context, scope vendor.Scope, category string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, cacheKey(scope, category))
	return nil
}

// InvalidateAll drops every cached list
func (c *InMemoryPriorityCache) InvalidateAll(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*vendor.PriorityList)
	return nil
}
