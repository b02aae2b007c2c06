package thumbnail

import (
	"container/list"
	"image"
	"math"
	"runtime/debug"
	"sync"

	"github.com/fedragon/status-saver/internal/models"

	"go.uber.org/zap"
)

// nominalMaxHeap is assumed when the runtime has no memory limit configured.
const nominalMaxHeap = 1 << 30

// Cache is an in-memory LRU of decoded thumbnails bounded by their total pixel bytes.
// Both Get and Put count as an access.
type Cache struct {
	mu       sync.Mutex
	entries  map[models.Location]*list.Element
	lru      *list.List // front = most recent
	cost     int64
	capacity int64
	logger   *zap.Logger
}

type entry struct {
	key  models.Location
	img  image.Image
	cost int64
}

// DefaultCapacity returns one third of the maximum heap the process may use.
func DefaultCapacity() int64 {
	limit := debug.SetMemoryLimit(-1)
	if limit <= 0 || limit == math.MaxInt64 {
		limit = nominalMaxHeap
	}

	return limit / 3
}

func NewCache(capacity int64, logger *zap.Logger) *Cache {
	return &Cache{
		entries:  make(map[models.Location]*list.Element),
		lru:      list.New(),
		capacity: capacity,
		logger:   logger,
	}
}

func (c *Cache) Get(key models.Location) (image.Image, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.lru.MoveToFront(el)

	return el.Value.(*entry).img, true
}

// Put stores img under key unless key is already cached: the first writer wins.
// It reports whether img was stored.
func (c *Cache) Put(key models.Location, img image.Image) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		c.lru.MoveToFront(el)
		return false
	}

	cost := ByteSize(img)
	if cost > c.capacity {
		c.logger.Debug("Thumbnail larger than cache", zap.String("key", key.String()), zap.Int64("cost", cost))
		return false
	}

	c.entries[key] = c.lru.PushFront(&entry{key: key, img: img, cost: cost})
	c.cost += cost

	for c.cost > c.capacity {
		oldest := c.lru.Back()
		if oldest == nil {
			break
		}
		evicted := oldest.Value.(*entry)
		c.lru.Remove(oldest)
		delete(c.entries, evicted.key)
		c.cost -= evicted.cost
		c.logger.Debug("Evicted thumbnail", zap.String("key", evicted.key.String()))
	}

	return true
}

func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[models.Location]*list.Element)
	c.lru.Init()
	c.cost = 0
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Cost returns the bytes currently held.
func (c *Cache) Cost() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cost
}

func (c *Cache) Capacity() int64 {
	return c.capacity
}

// ByteSize returns the raw pixel size of img.
func ByteSize(img image.Image) int64 {
	switch i := img.(type) {
	case *image.NRGBA:
		return int64(len(i.Pix))
	case *image.RGBA:
		return int64(len(i.Pix))
	case *image.Gray:
		return int64(len(i.Pix))
	case *image.YCbCr:
		return int64(len(i.Y) + len(i.Cb) + len(i.Cr))
	}

	b := img.Bounds()
	return int64(b.Dx()) * int64(b.Dy()) * 4
}
