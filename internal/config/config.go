package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fedragon/status-saver/internal/thumbnail"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
)

const (
	DefaultAppName = "StatusSaver"
	DefaultOwner   = "status-saver"
)

// Config holds the whole configuration of the tool.
type Config struct {
	DBPath         string // preferences (bolt)
	IndexPath      string // media index (sqlite)
	LibraryRoot    string
	AppName        string
	Owner          string
	ThumbnailBytes int64
	NumWorkers     int
	SendCommand    string
	Apps           map[string]string // package name -> command used to repost
	FFmpeg         string
}

// Load reads the configuration from the environment, after loading a .env file when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	thumbnailBytes, err := getEnvInt64("THUMBNAIL_CACHE_BYTES", thumbnail.DefaultCapacity())
	if err != nil {
		return nil, err
	}
	numWorkers, err := getEnvInt64("STATUS_SAVER_WORKERS", 4)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DBPath:         getEnv("STATUS_SAVER_DB", "~/.status-saver/prefs.db"),
		IndexPath:      getEnv("STATUS_SAVER_INDEX", "~/.status-saver/index.db"),
		LibraryRoot:    getEnv("STATUS_SAVER_LIBRARY", "~"),
		AppName:        getEnv("STATUS_SAVER_APP_NAME", DefaultAppName),
		Owner:          getEnv("STATUS_SAVER_OWNER", DefaultOwner),
		ThumbnailBytes: thumbnailBytes,
		NumWorkers:     int(numWorkers),
		SendCommand:    getEnv("STATUS_SAVER_SEND_CMD", ""),
		Apps:           getEnvMap("STATUS_SAVER_APPS"),
		FFmpeg:         getEnv("STATUS_SAVER_FFMPEG", "ffmpeg"),
	}

	if err := cfg.Expand(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Expand resolves ~ in every path.
func (c *Config) Expand() error {
	for _, p := range []*string{&c.DBPath, &c.IndexPath, &c.LibraryRoot} {
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return err
		}
		*p = filepath.Clean(expanded)
	}

	return nil
}

func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("STATUS_SAVER_DB is required")
	}

	if c.IndexPath == "" {
		return fmt.Errorf("STATUS_SAVER_INDEX is required")
	}

	if c.LibraryRoot == "" {
		return fmt.Errorf("STATUS_SAVER_LIBRARY is required")
	}

	if strings.ContainsAny(c.AppName, `/\`) || c.AppName == "" {
		return fmt.Errorf("STATUS_SAVER_APP_NAME must be a plain folder name, got %q", c.AppName)
	}

	if c.ThumbnailBytes <= 0 {
		return fmt.Errorf("THUMBNAIL_CACHE_BYTES must be positive")
	}

	if c.NumWorkers <= 0 {
		return fmt.Errorf("STATUS_SAVER_WORKERS must be positive")
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt64(key string, defaultValue int64) (int64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%v must be a number, got %q", key, value)
	}
	return n, nil
}

// getEnvMap parses a comma-separated list of key=value pairs, ignoring malformed ones.
func getEnvMap(key string) map[string]string {
	values := make(map[string]string)
	for _, pair := range strings.Split(os.Getenv(key), ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || k == "" || v == "" {
			continue
		}
		values[k] = v
	}
	return values
}
