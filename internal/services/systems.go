package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// System is one agent network listed in the manifest
type System struct {
	Name    string `yaml:"name" json:"name"`
	Enabled bool   `yaml:"enabled" json:"enabled"`
}

type manifest struct {
	Systems []System `yaml:"systems"`
}

// DefaultSystems is served when no manifest file exists
var DefaultSystems = []System{
	{Name: "cloud_infrastructure_provider", Enabled: true},
	{Name: "cloud_landing_zone_provider", Enabled: true},
	{Name: "news_sentiment_analysis", Enabled: true},
}

// SystemsCatalog serves the enabled systems of a YAML manifest and reloads it
// when the file changes
type SystemsCatalog struct {
	path string

	mu      sync.RWMutex
	systems []System
}

// NewSystemsCatalog loads the manifest at path
func NewSystemsCatalog(path string) (*SystemsCatalog, error) {
	c := &SystemsCatalog{path: path}
	if err := c.Load(); err != nil {
		return nil, err
	}
	return c, nil
}

// Load rereads the manifest. A missing file falls back to DefaultSystems.
func (c *SystemsCatalog) Load() error {
	data, err := os.ReadFile(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Warn().Str("path", c.path).Msg("Systems manifest not found, using defaults")
		c.set(DefaultSystems)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read manifest: %w", err)
	}

	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("failed to parse manifest %s: %w", c.path, err)
	}
	c.set(m.Systems)
	return nil
}

func (c *SystemsCatalog) set(systems []System) {
	cp := make([]System, len(systems))
	copy(cp, systems)

	c.mu.Lock()
	c.systems = cp
	c.mu.Unlock()
}

// Available lists the enabled system names in manifest order
func (c *SystemsCatalog) Available() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.systems))
	for _, s := range c.systems {
		if s.Enabled && s.Name != "" {
			names = append(names, s.Name)
		}
	}
	return names
}

// Default is the first available system, or "" when none are enabled
func (c *SystemsCatalog) Default() string {
	if names := c.Available(); len(names) > 0 {
		return names[0]
	}
	return ""
}

// Watch reloads the manifest on change until ctx is done. The parent
// directory is watched so editors that replace the file are seen too.
func (c *SystemsCatalog) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(c.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	target := filepath.Clean(c.path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			if err := c.Load(); err != nil {
				log.Warn().Err(err).Msg("Keeping previous systems manifest")
				continue
			}
			log.Info().Strs("systems", c.Available()).Msg("🔄 Systems manifest reloaded")
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("Manifest watcher error")
		}
	}
}
