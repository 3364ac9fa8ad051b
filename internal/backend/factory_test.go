package backend

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	gadsense "adstats/internal/adsense/google"
	"adstats/internal/adsense/memory"
	"adstats/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromAppConfig(t *testing.T) {
	cfg := &config.Config{
		DataBackend:     "adsense",
		AdSenseEndpoint: "http://localhost:9999/",
		RunTimeout:      30 * time.Second,
		MemorySeedDir:   "seed",
	}

	got, err := FromAppConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, Config{
		Type:           AdSenseBackend,
		Endpoint:       "http://localhost:9999/",
		RequestTimeout: 30 * time.Second,
		DataDirectory:  "seed",
	}, got)

	_, err = FromAppConfig(nil)
	assert.Error(t, err)

	_, err = FromAppConfig(&config.Config{DataBackend: "sqlite"})
	assert.Error(t, err)
}

func TestCreateBackend(t *testing.T) {
	f := NewFactory(nil)
	ctx := context.Background()

	t.Run("adsense", func(t *testing.T) {
		res, err := f.CreateBackend(ctx, Config{Type: AdSenseBackend, Endpoint: "http://localhost:1/"})
		require.NoError(t, err)
		assert.IsType(t, &gadsense.Client{}, res.Backend)
		assert.Nil(t, res.Cleanup)
	})

	t.Run("memory", func(t *testing.T) {
		res, err := f.CreateBackend(ctx, Config{Type: MemoryBackend, DataDirectory: t.TempDir()})
		require.NoError(t, err)
		assert.IsType(t, &memory.Store{}, res.Backend)
	})

	t.Run("memory with broken seed", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, memory.EarningsFile), []byte("yesterday 1\n"), 0o644))

		_, err := f.CreateBackend(ctx, Config{Type: MemoryBackend, DataDirectory: dir})
		assert.Error(t, err)
	})

	t.Run("invalid type", func(t *testing.T) {
		_, err := f.CreateBackend(ctx, Config{Type: "sheets"})
		assert.Error(t, err)
	})
}

func TestGetBackendTypeStrings(t *testing.T) {
	assert.Equal(t, []string{"adsense", "memory"}, GetBackendTypeStrings())
}
