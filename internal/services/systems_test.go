package services

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const manifestYAML = `systems:
  - name: cloud_infrastructure_provider
    enabled: true
  - name: hidden
    enabled: false
  - name: news_sentiment_analysis
    enabled: true
`

func TestCatalogLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.yaml")
	require.NoError(t, os.WriteFile(path, []byte(manifestYAML), 0644))

	c, err := NewSystemsCatalog(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"cloud_infrastructure_provider", "news_sentiment_analysis"}, c.Available())
	assert.Equal(t, "cloud_infrastructure_provider", c.Default())
}

func TestCatalogDefaultsAndErrors(t *testing.T) {
	c, err := NewSystemsCatalog(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Len(t, c.Available(), len(DefaultSystems))

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("systems: ["), 0644))
	_, err = NewSystemsCatalog(bad)
	assert.ErrorContains(t, err, "failed to parse manifest")

	empty := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("systems: []\n"), 0644))
	c, err = NewSystemsCatalog(empty)
	require.NoError(t, err)
	assert.Equal(t, "", c.Default())
}

func TestCatalogWatchReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.yaml")
	require.NoError(t, os.WriteFile(path, []byte(manifestYAML), 0644))
	c, err := NewSystemsCatalog(path)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, c.Watch(ctx))
	}()
	defer func() {
		cancel()
		wg.Wait()
	}()

	// give the watcher a moment to register the directory
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("systems:\n  - name: only_one\n    enabled: true\n"), 0644))

	assert.Eventually(t, func() bool {
		names := c.Available()
		return len(names) == 1 && names[0] == "only_one"
	}, 3*time.Second, 20*time.Millisecond)
}
