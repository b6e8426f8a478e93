package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTakeProfitClosesLong(t *testing.T) {
	t.Parallel()

	e, ps, rec := newTestEngine(t, Config{}, map[string]float64{"BTCUSDT": 50_000})

	_, err := e.PlaceOrder(OrderRequest{
		Instrument: "BTCUSDT", Side: Long, Type: Market, NotionalUSD: 5000, Leverage: 5,
		TakeProfit: ptr(51_000.0),
	})
	assert.NoError(t, err)

	assert.NoError(t, e.RunTick())
	assert.Len(t, e.Positions(), 1) // 50000 < 51000, untouched

	ps.Set(priceAt("BTCUSDT", 51_000))
	assert.NoError(t, e.RunTick())

	assert.Empty(t, e.Positions())
	history := e.History()
	assert.Len(t, history, 1)
	assert.Equal(t, ReasonTakeProfit, history[0].Reason)
	assert.True(t, rec.seen("TakeProfit"))
}

func TestStopLossClosesShort(t *testing.T) {
	t.Parallel()

	e, ps, _ := newTestEngine(t, Config{}, map[string]float64{"ETHUSDT": 3000})

	_, err := e.PlaceOrder(OrderRequest{
		Instrument: "ETHUSDT", Side: Short, Type: Market, NotionalUSD: 2000, Leverage: 10,
		StopLoss: ptr(3100.0),
	})
	assert.NoError(t, err)

	ps.Set(priceAt("ETHUSDT", 3150))
	assert.NoError(t, e.RunTick())

	assert.Empty(t, e.Positions())
	history := e.History()
	assert.Len(t, history, 1)
	assert.Equal(t, ReasonStopLoss, history[0].Reason)
	assert.Negative(t, history[0].RealizedPL)
}

func TestLiquidationClosesWorstFirst(t *testing.T) {
	t.Parallel()

	e, ps, rec := newTestEngine(t, Config{StartingBalance: 10_000}, map[string]float64{
		"BTCUSDT": 50_000,
		"ETHUSDT": 3000,
	})

	_, err := e.PlaceOrder(OrderRequest{
		Instrument: "BTCUSDT", Side: Long, Type: Market, NotionalUSD: 40_000, Leverage: 20,
	})
	assert.NoError(t, err)
	_, err = e.PlaceOrder(OrderRequest{
		Instrument: "ETHUSDT", Side: Long, Type: Market, NotionalUSD: 40_000, Leverage: 20,
	})
	assert.NoError(t, err)

	// Both deep under water; margin level drops below 50%. BTC is slightly
	// worse in dollar terms so it must go first, and one close restores the
	// level above the threshold.
	ps.Set(priceAt("BTCUSDT", 45_000))
	ps.Set(priceAt("ETHUSDT", 2700))
	assert.NoError(t, e.RunTick())

	remaining := e.Positions()
	assert.Len(t, remaining, 1)
	assert.Equal(t, "ETHUSDT", remaining[0].Instrument)

	history := e.History()
	assert.Len(t, history, 1)
	assert.Equal(t, ReasonLiquidation, history[0].Reason)
	assert.Equal(t, "BTCUSDT", history[0].Instrument)
	assert.True(t, rec.seen("Margin Call"))

	snap := e.Snapshot()
	assert.GreaterOrEqual(t, snap.MarginLevel, 50.0)
}

func TestLiquidationRepeatsUntilLevelRestored(t *testing.T) {
	t.Parallel()

	e, ps, _ := newTestEngine(t, Config{StartingBalance: 10_000}, map[string]float64{
		"BTCUSDT": 50_000,
		"ETHUSDT": 3000,
	})

	_, err := e.PlaceOrder(OrderRequest{
		Instrument: "BTCUSDT", Side: Long, Type: Market, NotionalUSD: 40_000, Leverage: 20,
	})
	assert.NoError(t, err)
	_, err = e.PlaceOrder(OrderRequest{
		Instrument: "ETHUSDT", Side: Long, Type: Market, NotionalUSD: 40_000, Leverage: 20,
	})
	assert.NoError(t, err)

	// Deep enough that closing one position cannot restore the level.
	ps.Set(priceAt("BTCUSDT", 40_000))
	ps.Set(priceAt("ETHUSDT", 2400))
	assert.NoError(t, e.RunTick())

	assert.Empty(t, e.Positions())
	history := e.History()
	assert.Len(t, history, 2)
	for _, rec := range history {
		assert.Equal(t, ReasonLiquidation, rec.Reason)
	}
}

func TestTakeProfitSettlesBeforeLiquidationCheck(t *testing.T) {
	t.Parallel()

	e, ps, rec := newTestEngine(t, Config{StartingBalance: 10_000}, map[string]float64{
		"BTCUSDT": 50_000,
		"ETHUSDT": 3000,
	})

	// A big winner with a TP and a big loser. The TP realizes first and the
	// proceeds lift the margin level, so nothing is liquidated.
	_, err := e.PlaceOrder(OrderRequest{
		Instrument: "BTCUSDT", Side: Long, Type: Market, NotionalUSD: 40_000, Leverage: 20,
		TakeProfit: ptr(55_000.0),
	})
	assert.NoError(t, err)
	_, err = e.PlaceOrder(OrderRequest{
		Instrument: "ETHUSDT", Side: Long, Type: Market, NotionalUSD: 40_000, Leverage: 20,
	})
	assert.NoError(t, err)

	ps.Set(priceAt("BTCUSDT", 55_000))
	ps.Set(priceAt("ETHUSDT", 2760))
	assert.NoError(t, e.RunTick())

	history := e.History()
	assert.Len(t, history, 1)
	assert.Equal(t, ReasonTakeProfit, history[0].Reason)
	assert.Len(t, e.Positions(), 1)
	assert.False(t, rec.seen("Margin Call"))
}
