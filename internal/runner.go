package internal

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fedragon/status-saver/internal/cache"
	"github.com/fedragon/status-saver/internal/config"
	"github.com/fedragon/status-saver/internal/core"
	"github.com/fedragon/status-saver/internal/db"
	"github.com/fedragon/status-saver/internal/fs"
	"github.com/fedragon/status-saver/internal/index"
	"github.com/fedragon/status-saver/internal/models"
	"github.com/fedragon/status-saver/internal/platform"
	"github.com/fedragon/status-saver/internal/thumbnail"

	"github.com/boltdb/bolt"
	"go.uber.org/zap"
)

// Runner owns the stores and wires every component of the pipeline together.
type Runner struct {
	Access  *core.FolderAccess
	Browser *core.Browser
	Actions *core.ActionService

	logger *zap.Logger
	prefs  *bolt.DB
	index  *index.Index
	start  time.Time
}

func NewRunner(ctx context.Context, logger *zap.Logger, cfg *config.Config) (*Runner, error) {
	r := &Runner{logger: logger, start: time.Now()}

	for _, p := range []string{cfg.DBPath, cfg.IndexPath} {
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return nil, err
		}
	}

	prefs, err := db.Connect(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("unable to open preferences: %w", err)
	}
	r.prefs = prefs

	if err := db.Init(prefs); err != nil {
		r.Close()
		return nil, err
	}

	repo, err := db.NewRepository(prefs, logger)
	if err != nil {
		r.Close()
		return nil, err
	}

	idx, err := index.Open(cfg.IndexPath, cfg.LibraryRoot, logger)
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("unable to open media index: %w", err)
	}
	r.index = idx

	if err := core.Sweep(ctx, idx, logger); err != nil {
		r.Close()
		return nil, err
	}

	library := core.Library{AppName: cfg.AppName}
	resolver := &core.Resolver{Index: idx}
	decoder := &thumbnail.Decoder{
		Resolver: resolver,
		Frames:   platform.FFmpegFrames{Binary: cfg.FFmpeg},
		Fast:     thumbnail.ImagingThumbnailer{},
		Logger:   logger,
	}

	logger.Debug("Thumbnail cache capacity", zap.Int64("bytes", cfg.ThumbnailBytes))

	r.Access = &core.FolderAccess{Prefs: repo, Logger: logger}
	r.Browser = &core.Browser{
		Access:    r.Access,
		Loader:    &fs.Loader{Logger: logger},
		Lists:     cache.NewListCache(logger),
		Preloader: thumbnail.NewPreloader(thumbnail.NewCache(cfg.ThumbnailBytes, logger), decoder, logger),
		Index:     idx,
		Library:   library,
		Logger:    logger,
	}
	r.Actions = &core.ActionService{
		Index:      idx,
		Resolver:   resolver,
		Sender:     platform.NewCommandSender(cfg.SendCommand, cfg.Apps, logger),
		Library:    library,
		Owner:      cfg.Owner,
		NumWorkers: cfg.NumWorkers,
		Logger:     logger,
	}

	return r, nil
}

// FindStatus returns the status of src named name.
func (r *Runner) FindStatus(ctx context.Context, src models.Source, name string) (models.Media, error) {
	media, err := r.Browser.Statuses(ctx, src, false)
	if err != nil {
		return models.Media{}, err
	}

	return find(media, name)
}

// FindSaved returns the library item named name.
func (r *Runner) FindSaved(ctx context.Context, name string) (models.Media, error) {
	media, err := r.Browser.Saved(ctx)
	if err != nil {
		return models.Media{}, err
	}

	return find(media, name)
}

func find(media []models.Media, name string) (models.Media, error) {
	for _, m := range media {
		if m.DisplayName == name {
			return m, nil
		}
	}

	return models.Media{}, fmt.Errorf("%w: %v", models.ErrNotFound, name)
}

func (r *Runner) Close() {
	if r.index != nil {
		if err := r.index.Close(); err != nil {
			r.logger.Info(err.Error())
		}
	}
	if r.prefs != nil {
		if err := r.prefs.Close(); err != nil {
			r.logger.Info(err.Error())
		}
	}

	r.logger.Debug("Elapsed time", zap.Duration("elapsed", time.Since(r.start)))
}
