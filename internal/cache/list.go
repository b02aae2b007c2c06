// Package cache memoizes the last media listing per folder for the lifetime of the process.
package cache

import (
	"context"
	"sync"

	"github.com/fedragon/status-saver/internal/models"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type ListCache struct {
	mu     sync.Mutex // serializes writers
	store  *gocache.Cache
	group  singleflight.Group
	logger *zap.Logger
}

func NewListCache(logger *zap.Logger) *ListCache {
	return &ListCache{
		store:  gocache.New(gocache.NoExpiration, 0),
		logger: logger,
	}
}

func (c *ListCache) Get(key string) ([]models.Media, bool) {
	v, ok := c.store.Get(key)
	if !ok {
		return nil, false
	}

	return v.([]models.Media), true
}

// Put replaces whatever is stored under key: the last writer wins.
func (c *ListCache) Put(key string, media []models.Media) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.store.Set(key, media, gocache.NoExpiration)
}

// Remove drops the item at loc from the list stored under key, leaving other lists untouched.
func (c *ListCache) Remove(key string, loc models.Location) {
	c.mu.Lock()
	defer c.mu.Unlock()

	media, ok := c.Get(key)
	if !ok {
		return
	}

	kept := make([]models.Media, 0, len(media))
	for _, m := range media {
		if m.Location != loc {
			kept = append(kept, m)
		}
	}
	c.store.Set(key, kept, gocache.NoExpiration)
}

func (c *ListCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.store.Delete(key)
}

func (c *ListCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.store.Flush()
}

// GetOrLoad returns the cached list for key or stores the result of load. Concurrent callers
// missing the same key share a single load.
func (c *ListCache) GetOrLoad(ctx context.Context, key string, load func(context.Context) ([]models.Media, error)) ([]models.Media, error) {
	if media, ok := c.Get(key); ok {
		c.logger.Debug("List cache hit", zap.String("key", key), zap.Int("count", len(media)))
		return media, nil
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		if media, ok := c.Get(key); ok {
			return media, nil
		}

		media, err := load(ctx)
		if err != nil {
			return nil, err
		}
		c.Put(key, media)

		return media, nil
	})
	if err != nil {
		return nil, err
	}

	return v.([]models.Media), nil
}
