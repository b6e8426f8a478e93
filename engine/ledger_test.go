package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMarketOpenAppliesSpreadAndCommission(t *testing.T) {
	t.Parallel()

	e, _, _ := newTestEngine(t, Config{}, map[string]float64{"BTCUSDT": 50_000})

	res, err := e.PlaceOrder(OrderRequest{
		Instrument: "BTCUSDT", Side: Long, Type: Market, NotionalUSD: 5000, Leverage: 5,
	})
	assert.NoError(t, err)

	p := res.Position
	assert.InDelta(t, 50_010, p.EntryPrice, 1e-9) // 2 bps against a buyer
	assert.InDelta(t, 1000, p.MarginUsed, 1e-9)
	assert.InDelta(t, 5000/50_010.0, p.Units, 1e-12)
	assert.InDelta(t, 99_998, e.Balance(), 1e-9) // 4 bps commission on 5000
}

func TestShortOpenGetsSpreadAgainst(t *testing.T) {
	t.Parallel()

	e, _, _ := newTestEngine(t, Config{}, map[string]float64{"ETHUSDT": 3000})

	res, err := e.PlaceOrder(OrderRequest{
		Instrument: "ETHUSDT", Side: Short, Type: Market, NotionalUSD: 2000, Leverage: 10,
	})
	assert.NoError(t, err)
	assert.InDelta(t, 2999.4, res.Position.EntryPrice, 1e-9)
	assert.InDelta(t, 200, res.Position.MarginUsed, 1e-9)
}

func TestCommissionFloor(t *testing.T) {
	t.Parallel()

	e, _, _ := newTestEngine(t, Config{}, map[string]float64{"BTCUSDT": 50_000})

	// 4 bps of 100 is 0.04; the 0.50 floor applies.
	_, err := e.PlaceOrder(OrderRequest{
		Instrument: "BTCUSDT", Side: Long, Type: Market, NotionalUSD: 100, Leverage: 1,
	})
	assert.NoError(t, err)
	assert.InDelta(t, 99_999.5, e.Balance(), 1e-9)
}

func TestOpenRejectedLeavesAccountUntouched(t *testing.T) {
	t.Parallel()

	e, _, _ := newTestEngine(t, Config{StartingBalance: 500}, map[string]float64{"BTCUSDT": 50_000})

	_, err := e.PlaceOrder(OrderRequest{
		Instrument: "BTCUSDT", Side: Long, Type: Market, NotionalUSD: 5000, Leverage: 5,
	})
	assert.ErrorIs(t, err, ErrInsufficientMargin)
	assert.Equal(t, 500.0, e.Balance())
	assert.Empty(t, e.Positions())
	assert.Empty(t, e.History())
}

func TestCloseFullRealizesAndRemoves(t *testing.T) {
	t.Parallel()

	e, ps, _ := newTestEngine(t, Config{}, map[string]float64{"BTCUSDT": 50_000})

	res, err := e.PlaceOrder(OrderRequest{
		Instrument: "BTCUSDT", Side: Long, Type: Market, NotionalUSD: 5000, Leverage: 5,
	})
	assert.NoError(t, err)

	ps.Set(priceAt("BTCUSDT", 51_000))
	rec, err := e.ClosePosition(res.Position.ID, 100)
	assert.NoError(t, err)

	assert.Equal(t, ReasonManualClose, rec.Reason)
	assert.InDelta(t, 96.98, rec.RealizedPL, 0.01) // gross 98.98 less 2.00 commission
	assert.InDelta(t, 100_094.98, e.Balance(), 0.01)
	assert.Empty(t, e.Positions())
	assert.Len(t, e.History(), 1)
}

func TestClosePartialShrinksPosition(t *testing.T) {
	t.Parallel()

	e, _, _ := newTestEngine(t, Config{}, map[string]float64{"BTCUSDT": 50_000})

	res, err := e.PlaceOrder(OrderRequest{
		Instrument: "BTCUSDT", Side: Long, Type: Market, NotionalUSD: 5000, Leverage: 5,
	})
	assert.NoError(t, err)

	rec, err := e.ClosePosition(res.Position.ID, 50)
	assert.NoError(t, err)
	assert.Equal(t, ReasonPartialClose, rec.Reason)
	assert.InDelta(t, 2500, rec.NotionalUSD, 1e-9)

	remaining := e.Positions()
	assert.Len(t, remaining, 1)
	assert.InDelta(t, 2500, remaining[0].NotionalUSD, 1e-9)
	assert.InDelta(t, 500, remaining[0].MarginUsed, 1e-9)
	assert.InDelta(t, 50_010, remaining[0].EntryPrice, 1e-9) // entry never moves
	assert.InDelta(t, remaining[0].NotionalUSD/remaining[0].Leverage, remaining[0].MarginUsed, 1e-9)
}

func TestCloseNearFullCollapsesToFull(t *testing.T) {
	t.Parallel()

	e, _, _ := newTestEngine(t, Config{}, map[string]float64{"BTCUSDT": 50_000})

	res, err := e.PlaceOrder(OrderRequest{
		Instrument: "BTCUSDT", Side: Long, Type: Market, NotionalUSD: 5000, Leverage: 5,
	})
	assert.NoError(t, err)

	_, err = e.ClosePosition(res.Position.ID, 99.9995)
	assert.NoError(t, err)
	assert.Empty(t, e.Positions())
}

func TestCloseValidation(t *testing.T) {
	t.Parallel()

	e, _, _ := newTestEngine(t, Config{}, map[string]float64{"BTCUSDT": 50_000})

	res, err := e.PlaceOrder(OrderRequest{
		Instrument: "BTCUSDT", Side: Long, Type: Market, NotionalUSD: 5000, Leverage: 5,
	})
	assert.NoError(t, err)

	for _, pct := range []float64{0, -5, 100.001} {
		_, err := e.ClosePosition(res.Position.ID, pct)
		assert.ErrorIs(t, err, ErrInvalidInput, "pct %v", pct)
	}

	_, err = e.ClosePosition(999, 100)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCloseByScopeProfitOnly(t *testing.T) {
	t.Parallel()

	e, ps, _ := newTestEngine(t, Config{}, map[string]float64{"BTCUSDT": 50_000, "ETHUSDT": 3000})

	_, err := e.PlaceOrder(OrderRequest{
		Instrument: "BTCUSDT", Side: Long, Type: Market, NotionalUSD: 5000, Leverage: 5,
	})
	assert.NoError(t, err)
	_, err = e.PlaceOrder(OrderRequest{
		Instrument: "ETHUSDT", Side: Long, Type: Market, NotionalUSD: 2000, Leverage: 5,
	})
	assert.NoError(t, err)

	ps.Set(priceAt("BTCUSDT", 52_000)) // winner
	ps.Set(priceAt("ETHUSDT", 2800))   // loser

	closed, skipped, err := e.CloseByScope(ScopeProfit)
	assert.NoError(t, err)
	assert.Equal(t, 1, closed)
	assert.Zero(t, skipped)

	remaining := e.Positions()
	assert.Len(t, remaining, 1)
	assert.Equal(t, "ETHUSDT", remaining[0].Instrument)
}

func TestCloseByScopeAllSkipsUnpriced(t *testing.T) {
	t.Parallel()

	e, ps, _ := newTestEngine(t, Config{}, map[string]float64{"BTCUSDT": 50_000, "ETHUSDT": 3000})

	_, err := e.PlaceOrder(OrderRequest{
		Instrument: "BTCUSDT", Side: Long, Type: Market, NotionalUSD: 5000, Leverage: 5,
	})
	assert.NoError(t, err)
	_, err = e.PlaceOrder(OrderRequest{
		Instrument: "ETHUSDT", Side: Short, Type: Market, NotionalUSD: 2000, Leverage: 5,
	})
	assert.NoError(t, err)

	ps.Remove("ETHUSDT")

	closed, skipped, err := e.CloseByScope(ScopeAll)
	assert.NoError(t, err)
	assert.Equal(t, 1, closed)
	assert.Equal(t, 1, skipped)
	assert.Len(t, e.Positions(), 1)
}

func TestCloseByScopeBadScope(t *testing.T) {
	t.Parallel()

	e, _, _ := newTestEngine(t, Config{}, nil)
	_, _, err := e.CloseByScope("SOME")
	assert.ErrorIs(t, err, ErrInvalidInput)
}
