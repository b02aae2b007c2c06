package core

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fedragon/status-saver/internal/fs"
	"github.com/fedragon/status-saver/internal/index"
	"github.com/fedragon/status-saver/internal/models"

	"github.com/natefinch/atomic"
	"go.uber.org/zap"
)

// Save copies m into the library: a pending entry is created, the bytes are streamed into it and
// the entry is then made visible. A failed copy leaves neither the entry nor a partial file behind.
func (s *ActionService) Save(ctx context.Context, m models.Media) (models.Media, error) {
	entry, err := s.Index.Insert(ctx, index.NewEntry{
		Collection:   s.Library.Collection(m.IsVideo),
		DisplayName:  m.DisplayName,
		MimeType:     m.MimeType(),
		RelativePath: s.Library.RelativePath(m.IsVideo),
		Owner:        s.Owner,
	})
	if err != nil {
		return models.Media{}, fmt.Errorf("unable to create library entry for %v: %w", m.DisplayName, err)
	}

	saved, err := s.copy(ctx, m, entry)
	if err != nil {
		if abortErr := s.Index.Abort(context.WithoutCancel(ctx), entry.ID); abortErr != nil {
			s.Logger.Error("Cannot clean up library entry", zap.String("id", entry.ID), zap.Error(abortErr))
		}
		return models.Media{}, err
	}

	s.Logger.Info("Saved media",
		zap.String("source", m.DisplayName),
		zap.String("dest", entry.DataPath),
		zap.Int64("size", saved.Size))

	return saved.Media(), nil
}

func (s *ActionService) copy(ctx context.Context, m models.Media, entry index.Entry) (index.Entry, error) {
	src, err := s.Resolver.Open(ctx, m.Location)
	if err != nil {
		return index.Entry{}, fmt.Errorf("unable to read %v: %w", m.DisplayName, err)
	}
	defer func() {
		if err := src.Close(); err != nil {
			s.Logger.Warn("Cannot close source", zap.String("source", m.Location.String()), zap.Error(err))
		}
	}()

	h := fs.NewHasher()
	if err := atomic.WriteFile(entry.DataPath, bufio.NewReader(io.TeeReader(src, h))); err != nil {
		return index.Entry{}, fmt.Errorf("unable to copy %v to %v: %w", m.DisplayName, entry.DataPath, err)
	}

	info, err := os.Stat(entry.DataPath)
	if err != nil {
		return index.Entry{}, err
	}

	completion := index.Completion{Size: info.Size(), Checksum: fs.Sum(h), Modified: info.ModTime()}
	if err := s.Index.Finalize(ctx, entry.ID, completion); err != nil {
		return index.Entry{}, err
	}

	entry.Pending = false
	entry.Size = completion.Size
	entry.Checksum = completion.Checksum
	entry.DateModified = completion.Modified.UnixMilli()

	return entry, nil
}

// SaveAll copies items into the library using NumWorkers concurrent workers and returns how many
// were saved. Items that fail are logged and skipped.
func (s *ActionService) SaveAll(ctx context.Context, items []models.Media) int64 {
	s.Logger.Info("Saving media", zap.Int("count", len(items)))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	media := make(chan models.Media)
	go func() {
		defer close(media)
		for _, m := range items {
			select {
			case <-ctx.Done():
				return
			case media <- m:
			}
		}
	}()

	numWorkers := s.NumWorkers
	if numWorkers <= 0 {
		numWorkers = 1
	}

	workers := make([]<-chan models.Media, numWorkers)
	for i := 0; i < numWorkers; i++ {
		workers[i] = s.saveWorker(ctx, i, media)
	}

	var total int64
	for saved := range fanIn(ctx, workers...) {
		s.Logger.Debug("Saved to library", zap.String("location", saved.Location.String()))
		total++
	}
	s.Logger.Info("Total saved media", zap.Int64("total", total))

	return total
}

// saveWorker copies the media it receives and reports the resulting library items.
func (s *ActionService) saveWorker(ctx context.Context, id int, media <-chan models.Media) <-chan models.Media {
	saved := make(chan models.Media)
	log := s.Logger.With(zap.Int("worker_id", id))

	go func() {
		defer close(saved)

		for m := range media {
			copied, err := s.Save(ctx, m)
			if err != nil {
				log.Error("Cannot save media", zap.String("source", m.DisplayName), zap.Error(err))
				continue
			}

			select {
			case <-ctx.Done():
				return
			case saved <- copied:
			}
		}
	}()

	return saved
}

// IsSaved reports whether the content of m already lives in the library.
func (s *ActionService) IsSaved(ctx context.Context, m models.Media) (bool, error) {
	src, err := s.Resolver.Open(ctx, m.Location)
	if err != nil {
		return false, err
	}
	defer src.Close()

	sum, err := fs.HashReader(src)
	if err != nil {
		return false, err
	}

	_, found, err := s.Index.FindByChecksum(ctx, sum)
	return found, err
}
