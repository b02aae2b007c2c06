package fs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fedragon/status-saver/internal/models"

	"go.uber.org/zap"
)

func touch(t *testing.T, path string, modifiedMillis int64) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(filepath.Base(path)), 0o644); err != nil {
		t.Fatal(err)
	}
	ts := time.UnixMilli(modifiedMillis)
	if err := os.Chtimes(path, ts, ts); err != nil {
		t.Fatal(err)
	}
}

func names(media []models.Media) []string {
	out := make([]string, 0, len(media))
	for _, m := range media {
		out = append(out, m.DisplayName)
	}
	return out
}

func TestLoad(t *testing.T) {
	loader := &Loader{Logger: zap.NewNop()}

	cases := []struct {
		name     string
		files    map[string]int64
		dirs     []string
		expected []string
	}{
		{
			name:     "load excludes unknown types and sorts newest first",
			files:    map[string]int64{"a.jpg": 100_000, "b.mp4": 200_000, "c.txt": 300_000},
			expected: []string{"b.mp4", "a.jpg"},
		},
		{
			name: "load prefers the statuses sub-folder",
			files: map[string]int64{
				"top.jpg":                 500_000,
				".Statuses/old.png":       100_000,
				".Statuses/new.webp":      400_000,
				".Statuses/clip.MOV":      300_000,
				".Statuses/.nomedia":      600_000,
				".Statuses/nested/x.jpeg": 700_000,
			},
			expected: []string{"new.webp", "clip.MOV", "old.png"},
		},
		{
			name:     "load skips directories with media-like names",
			files:    map[string]int64{"photo.JPEG": 100_000},
			dirs:     []string{"album.jpg"},
			expected: []string{"photo.JPEG"},
		},
		{
			name:     "load returns nothing for an empty folder",
			expected: []string{},
		},
	}

	for _, c := range cases {
		root := t.TempDir()
		for name, ts := range c.files {
			touch(t, filepath.Join(root, name), ts)
		}
		for _, d := range c.dirs {
			if err := os.MkdirAll(filepath.Join(root, d), 0o755); err != nil {
				t.Fatal(err)
			}
		}

		media, err := loader.Load(context.Background(), root)
		if err != nil {
			t.Errorf("%v\n\tunexpected error: %v", c.name, err)
			continue
		}

		got := names(media)
		if strings.Join(got, ",") != strings.Join(c.expected, ",") {
			t.Errorf("%v\n\tExpected %v but got %v instead", c.name, c.expected, got)
		}
	}
}

func TestLoadProducesValidDescriptors(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "a.jpg"), 100_000)
	touch(t, filepath.Join(root, "b.mp4"), 200_000)
	touch(t, filepath.Join(root, "c.Png"), 200_000)

	media, err := (&Loader{Logger: zap.NewNop()}).Load(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}

	seen := make(map[models.Location]bool)
	for i, m := range media {
		if seen[m.Location] {
			t.Errorf("Expected unique locations but %v appears twice", m.Location)
		}
		seen[m.Location] = true

		if i > 0 && media[i-1].LastModified < m.LastModified {
			t.Errorf("Expected descending order but %v precedes %v", media[i-1].DisplayName, m.DisplayName)
		}

		if m.IsVideo != (models.KindOf(m.DisplayName) == models.Video) {
			t.Errorf("Expected IsVideo to match the extension of %v", m.DisplayName)
		}

		path, err := m.Location.Path()
		if err != nil {
			t.Fatal(err)
		}
		if filepath.Base(path) != m.DisplayName {
			t.Errorf("Expected location %v to point at %v", m.Location, m.DisplayName)
		}
	}

	if media[0].LastModified != 200_000 {
		t.Errorf("Expected modification time in milliseconds but got %v", media[0].LastModified)
	}
}

func TestLoadMissingFolder(t *testing.T) {
	_, err := (&Loader{Logger: zap.NewNop()}).Load(context.Background(), filepath.Join(t.TempDir(), "gone"))
	if !errors.Is(err, models.ErrPermissionDenied) {
		t.Errorf("Expected %v but got %v instead", models.ErrPermissionDenied, err)
	}
}

func TestLoadDoesNotFollowLinkedFolders(t *testing.T) {
	root := t.TempDir()
	elsewhere := t.TempDir()

	touch(t, filepath.Join(root, "a.jpg"), 100_000)
	touch(t, filepath.Join(elsewhere, "nested.mp4"), 200_000)
	touch(t, filepath.Join(elsewhere, "deeper", "x.jpg"), 300_000)
	touch(t, filepath.Join(elsewhere, "linked.png"), 50_000)

	links := map[string]string{
		"linked":     elsewhere,
		"album.mp4":  elsewhere,
		"shared.png": filepath.Join(elsewhere, "linked.png"),
	}
	for name, target := range links {
		if err := os.Symlink(target, filepath.Join(root, name)); err != nil {
			t.Skip(err)
		}
	}

	media, err := (&Loader{Logger: zap.NewNop()}).Load(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}

	expected := []string{"a.jpg", "shared.png"}
	got := names(media)
	if strings.Join(got, ",") != strings.Join(expected, ",") {
		t.Errorf("Expected %v but got %v instead", expected, got)
	}
	for _, m := range media {
		path, err := m.Location.Path()
		if err != nil {
			t.Fatal(err)
		}
		if filepath.Dir(path) != root {
			t.Errorf("Expected only direct children of %v but got %v", root, path)
		}
	}
}
