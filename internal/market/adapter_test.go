package market

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stratos/internal/types"
)

func barWindow(n int) []types.Bar {
	bars := make([]types.Bar, n)
	for i := range bars {
		bars[i] = types.Bar{
			OpenTime:  int64(i) * 60_000,
			CloseTime: int64(i+1)*60_000 - 1,
			Open:      "100",
			High:      "101",
			Low:       "99",
			Close:     fmt.Sprintf("100.%d", i),
			Volume:    "10",
		}
	}
	return bars
}

func TestHistory(t *testing.T) {
	req := &types.ExecRequest{
		MarketDataContext: []types.MarketDataContext{
			{Symbol: "BTCUSDT", Timeframe: "1m", Bars: barWindow(10)},
		},
	}
	a := NewAdapter(req)

	t.Run("returns most recent bars oldest first", func(t *testing.T) {
		bars, err := a.History("BTCUSDT", 3, "1m")
		require.NoError(t, err)
		require.Len(t, bars, 3)
		assert.Equal(t, "100.7", bars[0].Close)
		assert.Equal(t, "100.9", bars[2].Close)
	})

	t.Run("exact window size", func(t *testing.T) {
		bars, err := a.History("BTCUSDT", 10, "1m")
		require.NoError(t, err)
		assert.Len(t, bars, 10)
	})

	t.Run("too many bars requested", func(t *testing.T) {
		_, err := a.History("BTCUSDT", 11, "1m")
		assert.ErrorIs(t, err, ErrInsufficientData)
	})

	t.Run("unknown symbol", func(t *testing.T) {
		_, err := a.History("ETHUSDT", 1, "1m")
		assert.ErrorIs(t, err, ErrInsufficientData)
	})

	t.Run("wrong timeframe", func(t *testing.T) {
		_, err := a.History("BTCUSDT", 1, "1h")
		assert.ErrorIs(t, err, ErrInsufficientData)
	})

	t.Run("non-positive count", func(t *testing.T) {
		_, err := a.History("BTCUSDT", 0, "1m")
		assert.Error(t, err)
	})

	t.Run("returned slice is a copy", func(t *testing.T) {
		bars, err := a.History("BTCUSDT", 1, "1m")
		require.NoError(t, err)
		bars[0].Close = "0"
		again, err := a.History("BTCUSDT", 1, "1m")
		require.NoError(t, err)
		assert.Equal(t, "100.9", again[0].Close)
	})
}

func TestPrimaryBar(t *testing.T) {
	a := NewAdapter(&types.ExecRequest{
		MarketDataContext: []types.MarketDataContext{
			{Symbol: "BTCUSDT", Timeframe: "1m", Bars: barWindow(3)},
			{Symbol: "ETHUSDT", Timeframe: "1m", Bars: barWindow(5)},
		},
	})
	bar, err := a.PrimaryBar()
	require.NoError(t, err)
	assert.Equal(t, "100.2", bar.Close)

	empty := NewAdapter(&types.ExecRequest{})
	_, err = empty.PrimaryBar()
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestInstrumentMetadata(t *testing.T) {
	a := NewAdapter(&types.ExecRequest{
		MarketDataContext: []types.MarketDataContext{
			{Symbol: "BTCUSDT", Timeframe: "1m", Bars: barWindow(3)},
			{Symbol: "BTCUSDT", Timeframe: "1h", Bars: barWindow(2)},
		},
	})

	meta, err := a.InstrumentMetadata("BTCUSDT")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"1m", "1h"}, meta.Timeframes)
	assert.Equal(t, 5, meta.BarCount)

	_, err = a.InstrumentMetadata("ETHUSDT")
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestTrades(t *testing.T) {
	a := NewAdapter(&types.ExecRequest{
		CompletedOrders: []types.Order{
			{OrderID: "o-1", Symbol: "BTCUSDT"},
			{UniqueID: "u-2", Symbol: "ETHUSDT"},
		},
	})
	trades := a.Trades()
	require.Len(t, trades, 2)
	assert.Equal(t, "BTCUSDT", trades["o-1"].Symbol)
	assert.Equal(t, "ETHUSDT", trades["u-2"].Symbol)

	// Copy semantics.
	delete(trades, "o-1")
	assert.Len(t, a.Trades(), 2)
}
