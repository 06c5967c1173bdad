package dedup

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stratos/internal/types"
)

func TestMemoryStorePutGet(t *testing.T) {
	s := NewMemoryStore(Options{})
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	resp := &types.ExecResponse{Status: types.StatusSuccess}
	require.NoError(t, s.Put(ctx, "exec-1", resp))

	got, ok, err := s.Get(ctx, "exec-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, types.StatusSuccess, got.Status)

	// The stored record is a copy; mutating the returned value must not
	// change later reads.
	got.Status = types.StatusFailed
	again, ok, err := s.Get(ctx, "exec-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, types.StatusSuccess, again.Status)
}

func TestMemoryStoreTTLExpiry(t *testing.T) {
	s := NewMemoryStore(Options{TTL: time.Minute})
	now := time.Now()
	s.nowFn = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "exec-1", &types.ExecResponse{Status: types.StatusSuccess}))

	_, ok, err := s.Get(ctx, "exec-1")
	require.NoError(t, err)
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok, err = s.Get(ctx, "exec-1")
	require.NoError(t, err)
	assert.False(t, ok, "expired record must not replay")
}

func TestMemoryStoreBoundedEntries(t *testing.T) {
	s := NewMemoryStore(Options{TTL: time.Hour, MaxEntries: 32})
	ctx := context.Background()

	for i := 0; i < 500; i++ {
		require.NoError(t, s.Put(ctx, fmt.Sprintf("exec-%d", i), &types.ExecResponse{Status: types.StatusSuccess}))
	}
	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, "memory", stats.Backend)
	assert.LessOrEqual(t, stats.Entries, 32)
	assert.Greater(t, stats.Entries, 0)
}

func TestMemoryStoreStatsAndPing(t *testing.T) {
	s := NewMemoryStore(Options{})
	ctx := context.Background()
	require.NoError(t, s.Ping(ctx))
	require.NoError(t, s.Put(ctx, "a", &types.ExecResponse{}))
	require.NoError(t, s.Put(ctx, "b", &types.ExecResponse{}))
	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Entries)
	require.NoError(t, s.Close())
}
