package config

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/mitchellh/go-homedir"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("STATUS_SAVER_DB", filepath.Join(dir, "prefs.db"))
	t.Setenv("STATUS_SAVER_INDEX", filepath.Join(dir, "index.db"))
	t.Setenv("STATUS_SAVER_LIBRARY", "~/media")
	t.Setenv("STATUS_SAVER_APP_NAME", "")
	t.Setenv("THUMBNAIL_CACHE_BYTES", "1048576")
	t.Setenv("STATUS_SAVER_WORKERS", "")
	t.Setenv("STATUS_SAVER_APPS", "com.whatsapp=whatsapp-desktop, broken,com.whatsapp.w4b=")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}

	home, err := homedir.Dir()
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name     string
		expected interface{}
		got      interface{}
	}{
		{"db path", filepath.Join(dir, "prefs.db"), cfg.DBPath},
		{"index path", filepath.Join(dir, "index.db"), cfg.IndexPath},
		{"library root", filepath.Join(home, "media"), cfg.LibraryRoot},
		{"app name", DefaultAppName, cfg.AppName},
		{"thumbnail bytes", int64(1048576), cfg.ThumbnailBytes},
		{"workers", 4, cfg.NumWorkers},
		{"apps", 1, len(cfg.Apps)},
		{"whatsapp command", "whatsapp-desktop", cfg.Apps["com.whatsapp"]},
	}

	for _, c := range cases {
		if c.got != c.expected {
			t.Errorf("%v\n\tExpected %v but got %v instead", c.name, c.expected, c.got)
		}
	}
}

func TestLoadRejectsMalformedNumbers(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("STATUS_SAVER_DB", filepath.Join(dir, "prefs.db"))
	t.Setenv("STATUS_SAVER_INDEX", filepath.Join(dir, "index.db"))
	t.Setenv("STATUS_SAVER_LIBRARY", dir)

	cases := []struct {
		name  string
		key   string
		value string
	}{
		{"workers", "STATUS_SAVER_WORKERS", "four"},
		{"thumbnail bytes", "THUMBNAIL_CACHE_BYTES", "1GB"},
	}

	for _, c := range cases {
		t.Setenv("STATUS_SAVER_WORKERS", "")
		t.Setenv("THUMBNAIL_CACHE_BYTES", "")
		t.Setenv(c.key, c.value)

		cfg, err := Load()
		if err == nil {
			t.Errorf("%v\n\tExpected %v=%q to be rejected but got %+v", c.name, c.key, c.value, cfg)
			continue
		}
		if !strings.Contains(err.Error(), c.key) {
			t.Errorf("%v\n\tExpected the error to name %v but got %v instead", c.name, c.key, err)
		}
	}
}

func TestValidate(t *testing.T) {
	valid := Config{
		DBPath:         "prefs.db",
		IndexPath:      "index.db",
		LibraryRoot:    "library",
		AppName:        DefaultAppName,
		ThumbnailBytes: 1,
		NumWorkers:     1,
	}

	cases := []struct {
		name   string
		modify func(*Config)
		fails  bool
	}{
		{"valid", func(*Config) {}, false},
		{"nested app name", func(c *Config) { c.AppName = "a/b" }, true},
		{"no cache", func(c *Config) { c.ThumbnailBytes = 0 }, true},
		{"no workers", func(c *Config) { c.NumWorkers = 0 }, true},
		{"no library", func(c *Config) { c.LibraryRoot = "" }, true},
	}

	for _, c := range cases {
		cfg := valid
		c.modify(&cfg)

		if err := cfg.Validate(); (err != nil) != c.fails {
			t.Errorf("%v\n\tExpected failure %v but got %v instead", c.name, c.fails, err)
		}
	}
}
