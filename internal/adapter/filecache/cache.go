// Package filecache persists the latest FeatureCollection as a single JSON file
// whose modification time decides freshness.
package filecache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/storm-data-radar/internal/domain"
)

// FileName is the cache slot inside the cache directory.
const FileName = "latest_radar.json"

// Cache is a one-slot file cache. It implements pipeline.Cache.
type Cache struct {
	dir    string
	path   string
	maxAge time.Duration
	clock  clockwork.Clock
	logger *slog.Logger
}

// New creates the cache directory if needed and returns a Cache whose entries
// stay fresh for maxAge.
func New(dir string, maxAge time.Duration, clock clockwork.Clock, logger *slog.Logger) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &Cache{
		dir:    dir,
		path:   filepath.Join(dir, FileName),
		maxAge: maxAge,
		clock:  clock,
		logger: logger,
	}, nil
}

// Path returns the cache file location.
func (c *Cache) Path() string { return c.path }

// MaxAge returns the freshness window.
func (c *Cache) MaxAge() time.Duration { return c.maxAge }

// ReadIfFresh returns the cached collection only if it is younger than maxAge.
// ok is false when the slot is empty or stale.
func (c *Cache) ReadIfFresh() (domain.FeatureCollection, bool, error) {
	return c.read(true)
}

// ReadRegardless returns the cached collection whatever its age.
func (c *Cache) ReadRegardless() (domain.FeatureCollection, bool, error) {
	return c.read(false)
}

func (c *Cache) read(freshOnly bool) (domain.FeatureCollection, bool, error) {
	f, err := os.Open(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.FeatureCollection{}, false, nil
	}
	if err != nil {
		return domain.FeatureCollection{}, false, fmt.Errorf("open cache: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return domain.FeatureCollection{}, false, fmt.Errorf("stat cache: %w", err)
	}
	if freshOnly && c.clock.Since(info.ModTime()) >= c.maxAge {
		return domain.FeatureCollection{}, false, nil
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return domain.FeatureCollection{}, false, fmt.Errorf("read cache: %w", err)
	}
	var fc domain.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return domain.FeatureCollection{}, false, fmt.Errorf("parse cache %s: %w", c.path, err)
	}
	return fc, true, nil
}

// Write atomically replaces the slot and stamps it with the current time.
func (c *Cache) Write(fc domain.FeatureCollection) error {
	data, err := json.Marshal(fc)
	if err != nil {
		return fmt.Errorf("encode cache: %w", err)
	}

	tmp, err := os.CreateTemp(c.dir, "."+FileName+"-*")
	if err != nil {
		return fmt.Errorf("create cache temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // no-op once renamed

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write cache: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close cache: %w", err)
	}

	now := c.clock.Now()
	if err := os.Chtimes(tmpName, now, now); err != nil {
		return fmt.Errorf("stamp cache: %w", err)
	}
	if err := os.Rename(tmpName, c.path); err != nil {
		return fmt.Errorf("replace cache: %w", err)
	}

	c.logger.Debug("cache written", "path", c.path, "features", fc.Metadata.Count)
	return nil
}

// Status reports the slot's age, rounded to 0.1s, and freshness.
func (c *Cache) Status() (domain.CacheStatus, error) {
	info, err := os.Stat(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.CacheStatus{}, nil
	}
	if err != nil {
		return domain.CacheStatus{}, fmt.Errorf("stat cache: %w", err)
	}

	age := max(c.clock.Since(info.ModTime()), 0)
	seconds := math.Round(age.Seconds()*10) / 10
	return domain.CacheStatus{
		AgeSeconds: &seconds,
		Fresh:      age < c.maxAge,
	}, nil
}

// CheckReadiness reports whether the cache directory is usable.
func (c *Cache) CheckReadiness(_ context.Context) error {
	info, err := os.Stat(c.dir)
	if err != nil {
		return fmt.Errorf("cache dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("cache dir %s is not a directory", c.dir)
	}
	return nil
}
