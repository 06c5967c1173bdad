package phase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectMarket(t *testing.T) {
	assert.Equal(t, MarketAStock, DetectMarket("000001.XSHE"))
	assert.Equal(t, MarketAStock, DetectMarket("600519.XSHG"))
	assert.Equal(t, MarketUSStock, DetectMarket("AAPL.US"))
	assert.Equal(t, MarketHKStock, DetectMarket("0700.HK"))
	assert.Equal(t, MarketCrypto, DetectMarket("BTCUSDT"))
	assert.Equal(t, MarketUnknown, DetectMarket(""))
}

func TestParseBoundary(t *testing.T) {
	b, err := ParseBoundary("09:25")
	require.NoError(t, err)
	assert.Equal(t, Boundary{9, 25}, b)

	_, err = ParseBoundary("25:00")
	assert.Error(t, err)
	_, err = ParseBoundary("abc")
	assert.Error(t, err)
}

func shanghaiMillis(t *testing.T, hour, min int) int64 {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Shanghai")
	require.NoError(t, err)
	return time.Date(2026, 3, 2, hour, min, 0, 0, loc).UnixMilli()
}

func TestPolicyAt_AStockBuckets(t *testing.T) {
	p := DefaultPolicy()
	sym := "600519.XSHG"

	assert.Equal(t, Closed, p.At(shanghaiMillis(t, 9, 0), sym))
	assert.Equal(t, BeforeOpen, p.At(shanghaiMillis(t, 9, 25), sym))
	assert.Equal(t, BeforeOpen, p.At(shanghaiMillis(t, 9, 29), sym))
	assert.Equal(t, Open, p.At(shanghaiMillis(t, 9, 30), sym))
	assert.Equal(t, Open, p.At(shanghaiMillis(t, 14, 59), sym))
	assert.Equal(t, AfterClose, p.At(shanghaiMillis(t, 15, 0), sym))
	assert.Equal(t, AfterClose, p.At(shanghaiMillis(t, 23, 30), sym))
}

func TestPolicyAt_CryptoAlwaysOpen(t *testing.T) {
	p := DefaultPolicy()
	noon := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC).UnixMilli()
	assert.Equal(t, Open, p.At(noon, "BTCUSDT"))
	midnight := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC).UnixMilli()
	assert.Equal(t, Open, p.At(midnight, "BTCUSDT"))
}

func TestPolicyWithSessionOverride(t *testing.T) {
	p := DefaultPolicy().WithSession(MarketCrypto, Session{
		Timezone:   "UTC",
		BeforeOpen: Boundary{8, 0},
		Open:       Boundary{9, 0},
		Close:      Boundary{17, 0},
		AfterClose: Boundary{17, 30},
	})
	at := func(hour, min int) int64 {
		return time.Date(2026, 3, 2, hour, min, 0, 0, time.UTC).UnixMilli()
	}
	assert.Equal(t, Closed, p.At(at(7, 0), "BTCUSDT"))
	assert.Equal(t, BeforeOpen, p.At(at(8, 30), "BTCUSDT"))
	assert.Equal(t, Open, p.At(at(12, 0), "BTCUSDT"))
	assert.Equal(t, AfterClose, p.At(at(18, 0), "BTCUSDT"))
}

func TestFromParams(t *testing.T) {
	t.Run("no override", func(t *testing.T) {
		p := FromParams(nil)
		require.NotNil(t, p)
		noon := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC).UnixMilli()
		assert.Equal(t, Open, p.At(noon, "BTCUSDT"))
	})

	t.Run("crypto session override", func(t *testing.T) {
		param := []byte(`{"phase_policy":{"CRYPTO":{"timezone":"UTC","before_open":"08:00","open":"09:00","close":"17:00","after_close":"17:30"}}}`)
		p := FromParams(param)
		require.NotNil(t, p)
		early := time.Date(2026, 3, 2, 7, 0, 0, 0, time.UTC).UnixMilli()
		assert.Equal(t, Closed, p.At(early, "BTCUSDT"))
	})

	t.Run("malformed override ignored", func(t *testing.T) {
		param := []byte(`{"phase_policy":{"CRYPTO":{"open":"nope"}}}`)
		p := FromParams(param)
		require.NotNil(t, p)
		noon := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC).UnixMilli()
		assert.Equal(t, Open, p.At(noon, "BTCUSDT"))
	})
}
