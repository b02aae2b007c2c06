package internal

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/fedragon/status-saver/internal/config"
	"github.com/fedragon/status-saver/internal/models"

	"go.uber.org/zap"
)

func newRunner(t *testing.T) *Runner {
	t.Helper()

	dir := t.TempDir()
	cfg := &config.Config{
		DBPath:         filepath.Join(dir, "state", "prefs.db"),
		IndexPath:      filepath.Join(dir, "state", "index.db"),
		LibraryRoot:    filepath.Join(dir, "library"),
		AppName:        config.DefaultAppName,
		Owner:          config.DefaultOwner,
		ThumbnailBytes: 1 << 24,
		NumWorkers:     2,
	}

	r, err := NewRunner(context.Background(), zap.NewNop(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(r.Close)

	return r
}

func TestRunner(t *testing.T) {
	r := newRunner(t)
	ctx := context.Background()

	root := t.TempDir()
	statuses := filepath.Join(root, ".Statuses")
	if err := os.Mkdir(statuses, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(statuses, "a.jpg"), []byte("a"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := r.Access.Grant(ctx, models.WhatsApp, root); err != nil {
		t.Fatal(err)
	}

	status, err := r.FindStatus(ctx, models.WhatsApp, "a.jpg")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.FindStatus(ctx, models.WhatsApp, "b.jpg"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expected %v but got %v instead", models.ErrNotFound, err)
	}

	if _, err := r.Actions.Save(ctx, status); err != nil {
		t.Fatal(err)
	}

	saved, err := r.FindSaved(ctx, "a.jpg")
	if err != nil {
		t.Fatal(err)
	}
	if saved.Location.Scheme() != models.MediaScheme {
		t.Errorf("Expected a library location but got %v instead", saved.Location)
	}
}
