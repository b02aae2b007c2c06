package fs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fedragon/status-saver/internal/models"

	"github.com/charlievieth/fastwalk"
	"go.uber.org/zap"
)

// StatusesDir is the hidden sub-folder where the messaging app keeps the current statuses.
const StatusesDir = ".Statuses"

type Loader struct {
	Logger *zap.Logger
}

// Load lists the status media found under root. It prefers the hidden statuses sub-folder and falls
// back to root itself. Only direct children are considered and the result is sorted newest first.
func (l *Loader) Load(ctx context.Context, root string) ([]models.Media, error) {
	dir, err := statusesDir(root)
	if err != nil {
		return nil, err
	}

	l.Logger.Debug("Listing status media", zap.String("dir", dir))

	var (
		mu    sync.Mutex
		media []models.Media
	)

	err = fastwalk.Walk(&fastwalk.Config{Follow: true}, dir, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if err != nil {
			l.Logger.Debug("Skipping unreadable entry", zap.String("path", path), zap.Error(err))
			return nil
		}

		if path == dir {
			return nil
		}

		// direct children only, including those reached through a followed link
		if rel := strings.TrimPrefix(strings.TrimPrefix(path, dir), string(filepath.Separator)); strings.ContainsAny(rel, `/\`) {
			if d.IsDir() {
				return fastwalk.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			return fastwalk.SkipDir
		}
		if d.Type()&os.ModeSymlink != 0 {
			if info, err := fastwalk.StatDirEntry(path, d); err == nil && info.IsDir() {
				return fastwalk.SkipDir
			}
		}

		kind := models.KindOf(d.Name())
		if kind == models.Unclassified {
			return nil
		}

		info, err := fastwalk.StatDirEntry(path, d)
		if err != nil {
			// the file may have vanished in the meantime
			l.Logger.Debug("Skipping entry", zap.String("path", path), zap.Error(err))
			return nil
		}
		if info.IsDir() {
			// a link to a folder, do not follow it
			return fastwalk.SkipDir
		}

		mu.Lock()
		media = append(media, models.Media{
			Location:     models.FileLocation(path),
			IsVideo:      kind == models.Video,
			DisplayName:  d.Name(),
			LastModified: info.ModTime().UnixMilli(),
		})
		mu.Unlock()

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("unable to list %v: %w", dir, err)
	}

	SortNewestFirst(media)

	l.Logger.Debug("Listed status media", zap.String("dir", dir), zap.Int("count", len(media)))

	return media, nil
}

// SortNewestFirst sorts media by descending modification time, breaking ties by name.
func SortNewestFirst(media []models.Media) {
	sort.SliceStable(media, func(i, j int) bool {
		if media[i].LastModified != media[j].LastModified {
			return media[i].LastModified > media[j].LastModified
		}
		return media[i].DisplayName < media[j].DisplayName
	})
}

func statusesDir(root string) (string, error) {
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
			return "", fmt.Errorf("%w: %v", models.ErrPermissionDenied, err)
		}
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %v is not a directory", models.ErrPermissionDenied, root)
	}

	statuses := filepath.Join(root, StatusesDir)
	if info, err := os.Stat(statuses); err == nil && info.IsDir() {
		return statuses, nil
	}

	return root, nil
}
