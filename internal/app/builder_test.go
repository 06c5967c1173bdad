package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stratos/internal/config"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	registry := filepath.Join(dir, "strategies.yaml")
	writeFile(t, registry, `
strategies:
  - id: demo-1
    type: demo
    status: active
    params:
      symbol: BTCUSDT
`)
	cfg := config.Default()
	cfg.Strategies.RegistryPath = registry
	cfg.Strategies.StorePath = filepath.Join(dir, "instances.db")
	cfg.Rules.ConfigDir = dir
	return cfg
}

func TestBuild(t *testing.T) {
	cfg := testConfig(t)
	a, err := NewAppBuilder(cfg).Build(context.Background())
	require.NoError(t, err)
	t.Cleanup(a.close)

	require.NotNil(t, a.server)
	require.NotNil(t, a.gateway)

	// The instance mirror was synced from the registry.
	got, err := a.mirror.List(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "demo-1", got[0].ID)
}

func TestBuildWithoutMirror(t *testing.T) {
	cfg := testConfig(t)
	cfg.Strategies.StorePath = ""
	a, err := NewAppBuilder(cfg).Build(context.Background())
	require.NoError(t, err)
	t.Cleanup(a.close)
	assert.Nil(t, a.mirror)
}

func TestBuildFailures(t *testing.T) {
	t.Run("missing registry file", func(t *testing.T) {
		cfg := config.Default()
		cfg.Strategies.RegistryPath = filepath.Join(t.TempDir(), "nope.yaml")
		_, err := NewAppBuilder(cfg).Build(context.Background())
		assert.Error(t, err)
	})

	t.Run("bad dedup backend", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Dedup.Backend = "etcd"
		_, err := NewAppBuilder(cfg).Build(context.Background())
		assert.Error(t, err)
	})

	t.Run("nil config", func(t *testing.T) {
		_, err := NewAppBuilder(nil).Build(context.Background())
		assert.Error(t, err)
	})
}

func TestBuildDedupBackends(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		store, err := buildDedupStore(config.DedupConfig{Backend: "memory"})
		require.NoError(t, err)
		require.NoError(t, store.Close())
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := buildDedupStore(config.DedupConfig{Backend: "etcd"})
		assert.Error(t, err)
	})
}
