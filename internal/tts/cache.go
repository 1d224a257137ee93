package tts

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
)

// Cache is a directory of synthesized audio files that stay fresh for TTL
type Cache struct {
	Dir string
	TTL time.Duration
	now func() time.Time
}

func NewCache(dir string, ttl time.Duration) *Cache {
	return &Cache{Dir: dir, TTL: ttl, now: time.Now}
}

// Path is where audio for key is stored
func (c *Cache) Path(key, format string) string {
	return filepath.Join(c.Dir, key+"."+format)
}

// Fresh reports whether path exists and was written within the TTL
func (c *Cache) Fresh(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return c.now().Sub(info.ModTime()) < c.TTL
}

// Write stores audio at path, creating the cache directory when needed
func (c *Cache) Write(path string, audio []byte) error {
	if len(audio) == 0 {
		return fmt.Errorf("TTS response did not contain audio bytes")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create cache dir: %w", err)
	}
	if err := os.WriteFile(path, audio, 0644); err != nil {
		return fmt.Errorf("failed to write audio: %w", err)
	}
	return nil
}

// Prune removes files older than the TTL and returns how many were removed
func (c *Cache) Prune() (int, error) {
	entries, err := os.ReadDir(c.Dir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read cache dir: %w", err)
	}

	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(c.Dir, e.Name())
		if c.Fresh(path) {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", path).Msg("[TTS] Failed to prune cache file")
			continue
		}
		removed++
	}
	return removed, nil
}

// Run prunes the cache every interval until ctx is done
func (c *Cache) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := c.Prune(); err != nil {
				log.Warn().Err(err).Msg("[TTS] Cache prune failed")
			} else if n > 0 {
				log.Debug().Int("removed", n).Msg("[TTS] Cache pruned")
			}
		}
	}
}
