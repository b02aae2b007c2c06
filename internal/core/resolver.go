package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fedragon/status-saver/internal/index"
	"github.com/fedragon/status-saver/internal/models"
)

// Resolver opens locations of either population: status files and library entries.
type Resolver struct {
	Index *index.Index
}

func (r *Resolver) Open(ctx context.Context, loc models.Location) (io.ReadCloser, error) {
	switch loc.Scheme() {
	case models.FileScheme:
		path, err := loc.Path()
		if err != nil {
			return nil, err
		}

		f, err := os.Open(path)
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %v", models.ErrNotFound, err)
		}
		return f, err
	case models.MediaScheme:
		return r.Index.Open(ctx, loc)
	}

	return nil, fmt.Errorf("%w: location %v", models.ErrUnsupported, loc)
}

func (r *Resolver) LocalPath(ctx context.Context, loc models.Location) (string, error) {
	switch loc.Scheme() {
	case models.FileScheme:
		return loc.Path()
	case models.MediaScheme:
		_, id, err := loc.MediaID()
		if err != nil {
			return "", err
		}
		e, err := r.Index.Get(ctx, id)
		if err != nil {
			return "", err
		}
		return e.DataPath, nil
	}

	return "", fmt.Errorf("%w: location %v", models.ErrUnsupported, loc)
}
