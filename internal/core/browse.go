package core

import (
	"context"
	"errors"
	"image"

	"github.com/fedragon/status-saver/internal/cache"
	"github.com/fedragon/status-saver/internal/fs"
	"github.com/fedragon/status-saver/internal/index"
	"github.com/fedragon/status-saver/internal/models"
	"github.com/fedragon/status-saver/internal/thumbnail"

	"go.uber.org/zap"
)

// SavedKey is the list cache key of the saved listing.
const SavedKey = "saved"

// Browser produces the listings shown to the user: statuses of a granted folder and media saved
// to the library.
type Browser struct {
	Access    *FolderAccess
	Loader    *fs.Loader
	Lists     *cache.ListCache
	Preloader *thumbnail.Preloader
	Index     *index.Index
	Library   Library
	Logger    *zap.Logger
}

// Statuses lists the statuses of src, reusing the last listing of the same folder unless refresh
// is set. Losing access to the folder clears its handle.
func (b *Browser) Statuses(ctx context.Context, src models.Source, refresh bool) ([]models.Media, error) {
	root, err := b.Access.Resolve(ctx, src)
	if err != nil {
		return nil, err
	}

	if refresh {
		b.Lists.Delete(root)
	}

	media, err := b.Lists.GetOrLoad(ctx, root, func(ctx context.Context) ([]models.Media, error) {
		return b.Loader.Load(ctx, root)
	})
	if errors.Is(err, models.ErrPermissionDenied) {
		if revokeErr := b.Access.Revoke(ctx, src); revokeErr != nil {
			b.Logger.Error("Cannot clear folder handle", zap.Error(revokeErr))
		}
	}

	return media, err
}

// Saved always queries the index afresh, then keeps the result for Forget.
func (b *Browser) Saved(ctx context.Context) ([]models.Media, error) {
	b.Lists.Delete(SavedKey)

	return b.Lists.GetOrLoad(ctx, SavedKey, b.ListSaved)
}

// ListSaved queries the library for items in this app's output folders, newest first.
func (b *Browser) ListSaved(ctx context.Context) ([]models.Media, error) {
	entries, err := b.Index.Query(ctx, b.Library.Filter())
	if err != nil {
		return nil, err
	}

	media := make([]models.Media, 0, len(entries))
	for _, e := range entries {
		media = append(media, e.Media())
	}
	fs.SortNewestFirst(media)

	return media, nil
}

// Forget drops a deleted item from the cached saved listing.
func (b *Browser) Forget(loc models.Location) {
	b.Lists.Remove(SavedKey, loc)
}

// Preload warms the thumbnail cache for the head of a listing.
func (b *Browser) Preload(ctx context.Context, media []models.Media) {
	b.Preloader.Preload(ctx, media)
}

// Thumbnail returns the thumbnail of m, loading it on demand.
func (b *Browser) Thumbnail(ctx context.Context, m models.Media) (image.Image, bool) {
	return b.Preloader.Load(ctx, m)
}
