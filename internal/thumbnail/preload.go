package thumbnail

import (
	"context"
	"image"

	"github.com/fedragon/status-saver/internal/models"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultPreloadLimit = 30
	DefaultBatchSize    = 15
)

type decoder interface {
	Decode(ctx context.Context, m models.Media) (image.Image, error)
}

// Preloader warms the cache ahead of display. Decode failures are never reported: a missing
// thumbnail is simply loaded again on demand.
type Preloader struct {
	Cache     *Cache
	Decoder   decoder
	Limit     int
	BatchSize int
	Logger    *zap.Logger

	group singleflight.Group
}

func NewPreloader(cache *Cache, d decoder, logger *zap.Logger) *Preloader {
	return &Preloader{
		Cache:     cache,
		Decoder:   d,
		Limit:     DefaultPreloadLimit,
		BatchSize: DefaultBatchSize,
		Logger:    logger,
	}
}

// Preload decodes the first Limit items, BatchSize at a time, each batch in parallel.
// It returns once every batch is done or ctx is cancelled.
func (p *Preloader) Preload(ctx context.Context, items []models.Media) {
	limit := p.Limit
	if limit <= 0 {
		limit = DefaultPreloadLimit
	}
	if len(items) > limit {
		items = items[:limit]
	}

	batchSize := p.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	for start := 0; start < len(items); start += batchSize {
		if ctx.Err() != nil {
			return
		}

		end := start + batchSize
		if end > len(items) {
			end = len(items)
		}

		var g errgroup.Group
		g.SetLimit(batchSize)
		for _, m := range items[start:end] {
			m := m
			g.Go(func() error {
				p.Load(ctx, m)
				return nil
			})
		}
		_ = g.Wait()

		p.Logger.Debug("Preloaded batch", zap.Int("from", start), zap.Int("to", end), zap.Int("cached", p.Cache.Len()))
	}
}

// Load returns the thumbnail of m, decoding and caching it when missing.
// Concurrent loads of the same item share one decode.
func (p *Preloader) Load(ctx context.Context, m models.Media) (image.Image, bool) {
	if img, ok := p.Cache.Get(m.Location); ok {
		return img, true
	}

	v, err, _ := p.group.Do(m.Location.String(), func() (interface{}, error) {
		if img, ok := p.Cache.Get(m.Location); ok {
			return img, nil
		}

		img, err := p.Decoder.Decode(ctx, m)
		if err != nil {
			return nil, err
		}
		p.Cache.Put(m.Location, img)

		return img, nil
	})
	if err != nil {
		p.Logger.Debug("Cannot load thumbnail", zap.String("location", m.Location.String()), zap.Error(err))
		return nil, false
	}

	return v.(image.Image), true
}
