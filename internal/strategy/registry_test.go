package strategy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRegistry(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "strategies.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadRegistry(t *testing.T) {
	path := writeRegistry(t, `
strategies:
  - id: demo-1
    type: demo
    status: active
    params:
      symbol: BTCUSDT
      qty: 2.5
  - id: cross-1
    type: ma_cross
    status: paused
    params:
      symbol: ETHUSDT
`)
	reg, err := LoadRegistry(path)
	require.NoError(t, err)

	inst, ok := reg.Get("demo-1")
	require.True(t, ok)
	assert.Equal(t, "demo", inst.Type)
	assert.Equal(t, StatusActive, inst.Status)
	assert.Equal(t, 2.5, inst.Params["qty"])

	all := reg.All()
	require.Len(t, all, 2)
	assert.Equal(t, "demo-1", all[0].ID)
	assert.Equal(t, "cross-1", all[1].ID)
}

func TestLoadRegistryRejects(t *testing.T) {
	t.Run("unknown type", func(t *testing.T) {
		path := writeRegistry(t, "strategies:\n  - id: x\n    type: nope\n")
		_, err := LoadRegistry(path)
		assert.Error(t, err)
	})

	t.Run("duplicate id", func(t *testing.T) {
		path := writeRegistry(t, "strategies:\n  - id: x\n    type: demo\n  - id: x\n    type: demo\n")
		_, err := LoadRegistry(path)
		assert.Error(t, err)
	})

	t.Run("missing id", func(t *testing.T) {
		path := writeRegistry(t, "strategies:\n  - type: demo\n")
		_, err := LoadRegistry(path)
		assert.Error(t, err)
	})

	t.Run("invalid status", func(t *testing.T) {
		path := writeRegistry(t, "strategies:\n  - id: x\n    type: demo\n    status: halted\n")
		_, err := LoadRegistry(path)
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadRegistry(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}

func TestRegistrySingle(t *testing.T) {
	one, err := NewRegistry(Instance{ID: "only", Type: "demo"})
	require.NoError(t, err)
	inst, ok := one.Single()
	require.True(t, ok)
	assert.Equal(t, "only", inst.ID)

	two, err := NewRegistry(Instance{ID: "a", Type: "demo"}, Instance{ID: "b", Type: "demo"})
	require.NoError(t, err)
	_, ok = two.Single()
	assert.False(t, ok)
}

func TestRegistrySetStatus(t *testing.T) {
	reg, err := NewRegistry(Instance{ID: "a", Type: "demo"})
	require.NoError(t, err)

	assert.True(t, reg.SetStatus("a", StatusPaused))
	inst, _ := reg.Get("a")
	assert.Equal(t, StatusPaused, inst.Status)

	assert.False(t, reg.SetStatus("ghost", StatusActive))
}

func TestNewByType(t *testing.T) {
	s, err := NewByType("demo", map[string]any{"symbol": "ETHUSDT", "qty": 3})
	require.NoError(t, err)
	require.NotNil(t, s)

	_, err = NewByType("nope", nil)
	assert.Error(t, err)
}

func TestDecodeParams(t *testing.T) {
	type p struct {
		Symbol string  `json:"symbol"`
		Qty    float64 `json:"qty"`
		Fast   int     `json:"fast"`
	}

	t.Run("from map with weak typing", func(t *testing.T) {
		var out p
		require.NoError(t, DecodeParams(map[string]any{"symbol": "BTCUSDT", "qty": "1.5", "fast": 5}, &out))
		assert.Equal(t, "BTCUSDT", out.Symbol)
		assert.Equal(t, 1.5, out.Qty)
		assert.Equal(t, 5, out.Fast)
	})

	t.Run("from json bytes", func(t *testing.T) {
		var out p
		require.NoError(t, DecodeParams([]byte(`{"symbol":"ETHUSDT","qty":2}`), &out))
		assert.Equal(t, "ETHUSDT", out.Symbol)
		assert.Equal(t, 2.0, out.Qty)
	})

	t.Run("nil and empty are no-ops", func(t *testing.T) {
		var out p
		require.NoError(t, DecodeParams(nil, &out))
		require.NoError(t, DecodeParams([]byte{}, &out))
		assert.Equal(t, p{}, out)
	})

	t.Run("malformed json", func(t *testing.T) {
		var out p
		assert.Error(t, DecodeParams([]byte(`{`), &out))
	})
}

func TestStateAccess(t *testing.T) {
	st := NewState()
	st.Set("count", 3)
	assert.Equal(t, 3, st.Int("count", 0))
	assert.Equal(t, 7, st.Int("missing", 7))
	v, ok := st.Get("count")
	require.True(t, ok)
	assert.Equal(t, 3, v)

	_, ok = st.Get("missing")
	assert.False(t, ok)
	st.Delete("count")
	_, ok = st.Get("count")
	assert.False(t, ok)
}
