package instances

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stratos/internal/strategy"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "instances.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSyncAndList(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	require.NoError(t, s.Sync(ctx, []strategy.Instance{
		{ID: "a", Type: "demo", Status: strategy.StatusActive, Params: map[string]any{"qty": 1.0}},
		{ID: "b", Type: "ma_cross", Status: strategy.StatusPaused},
	}))

	got, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	byID := map[string]strategy.Instance{}
	for _, inst := range got {
		byID[inst.ID] = inst
	}
	assert.Equal(t, "demo", byID["a"].Type)
	assert.Equal(t, 1.0, byID["a"].Params["qty"])
	assert.Equal(t, strategy.StatusPaused, byID["b"].Status)
}

func TestSyncPrunesRemovedInstances(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	require.NoError(t, s.Sync(ctx, []strategy.Instance{
		{ID: "a", Type: "demo", Status: strategy.StatusActive},
		{ID: "b", Type: "demo", Status: strategy.StatusActive},
	}))
	require.NoError(t, s.Sync(ctx, []strategy.Instance{
		{ID: "a", Type: "demo", Status: strategy.StatusPaused},
	}))

	got, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, strategy.StatusPaused, got[0].Status)
}

func TestSetStatus(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	require.NoError(t, s.Sync(ctx, []strategy.Instance{
		{ID: "a", Type: "demo", Status: strategy.StatusActive},
	}))
	require.NoError(t, s.SetStatus(ctx, "a", strategy.StatusPaused))
	assert.Error(t, s.SetStatus(ctx, "ghost", strategy.StatusActive))

	got, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, strategy.StatusPaused, got[0].Status)
}
