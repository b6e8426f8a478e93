package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rustyeddy/papertrade/market"
	"github.com/rustyeddy/papertrade/notify"
)

type recordingNotifier struct {
	mu     sync.Mutex
	titles []string
}

func (r *recordingNotifier) Notify(title, message string, severity notify.Severity, duration time.Duration) {
	r.mu.Lock()
	r.titles = append(r.titles, title)
	r.mu.Unlock()
}

func (r *recordingNotifier) seen(title string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.titles {
		if t == title {
			return true
		}
	}
	return false
}

type memPersister struct {
	mu     sync.Mutex
	state  *Account
	alerts []Alert
	saves  int
}

func (m *memPersister) SaveState(a Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := a
	m.state = &cp
	m.saves++
	return nil
}

func (m *memPersister) LoadState() (Account, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == nil {
		return Account{}, false, nil
	}
	return *m.state, true, nil
}

func (m *memPersister) SaveAlerts(a []Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts = append([]Alert(nil), a...)
	return nil
}

func (m *memPersister) LoadAlerts() ([]Alert, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.alerts == nil {
		return nil, false, nil
	}
	return append([]Alert(nil), m.alerts...), true, nil
}

func newTestEngine(t *testing.T, cfg Config, prices map[string]float64) (*Engine, *market.PriceStore, *recordingNotifier) {
	t.Helper()

	ps := market.NewPriceStore()
	for instr, last := range prices {
		ps.Set(market.Price{Instrument: instr, Last: last, Time: time.Now().UTC()})
	}
	rec := &recordingNotifier{}
	return New(cfg, ps, nil, rec, nil), ps, rec
}

func ptr(f float64) *float64 { return &f }

func priceAt(instr string, last float64) market.Price {
	return market.Price{Instrument: instr, Last: last, Time: time.Now().UTC()}
}

func TestSnapshotDerivedFields(t *testing.T) {
	t.Parallel()

	e, _, _ := newTestEngine(t, Config{}, map[string]float64{"BTCUSDT": 50_000})

	res, err := e.PlaceOrder(OrderRequest{
		Instrument: "BTCUSDT", Side: Long, Type: Market, NotionalUSD: 5000, Leverage: 5,
	})
	assert.NoError(t, err)
	assert.NotNil(t, res.Position)

	snap := e.Snapshot()
	assert.InDelta(t, 1000, snap.UsedMargin, 1e-9)
	assert.InDelta(t, snap.Balance+snap.Unrealized, snap.Equity, 1e-9)
	assert.InDelta(t, snap.Equity-snap.UsedMargin, snap.FreeMargin, 1e-9)
	assert.InDelta(t, snap.Equity/snap.UsedMargin*100, snap.MarginLevel, 1e-9)
}

func TestPersistRoundTrip(t *testing.T) {
	t.Parallel()

	ps := market.NewPriceStore()
	ps.Set(market.Price{Instrument: "BTCUSDT", Last: 50_000, Time: time.Now().UTC()})
	store := &memPersister{}

	e1 := New(Config{}, ps, nil, nil, store)
	_, err := e1.PlaceOrder(OrderRequest{
		Instrument: "BTCUSDT", Side: Long, Type: Market, NotionalUSD: 5000, Leverage: 5,
	})
	assert.NoError(t, err)
	assert.NoError(t, e1.AddAlert(Alert{
		Instrument: "BTCUSDT", Condition: Above, Threshold: 60_000, Repeat: Once,
	}))

	e2 := New(Config{}, ps, nil, nil, store)
	assert.Len(t, e2.Positions(), 1)
	assert.Len(t, e2.Alerts(), 1)
	assert.Equal(t, e1.Balance(), e2.Balance())
	assert.Equal(t, e1.Positions()[0].ID, e2.Positions()[0].ID)
}

func TestResetRestoresStartingBalanceAndKeepsAlerts(t *testing.T) {
	t.Parallel()

	e, _, _ := newTestEngine(t, Config{StartingBalance: 50_000}, map[string]float64{"BTCUSDT": 50_000})

	_, err := e.PlaceOrder(OrderRequest{
		Instrument: "BTCUSDT", Side: Long, Type: Market, NotionalUSD: 5000, Leverage: 5,
	})
	assert.NoError(t, err)
	assert.NoError(t, e.AddAlert(Alert{
		Instrument: "BTCUSDT", Condition: Below, Threshold: 40_000, Repeat: Repeat,
	}))

	assert.NoError(t, e.Reset())
	assert.Equal(t, 50_000.0, e.Balance())
	assert.Empty(t, e.Positions())
	assert.Empty(t, e.History())
	assert.Len(t, e.Alerts(), 1)
}

func TestClearHistory(t *testing.T) {
	t.Parallel()

	e, _, _ := newTestEngine(t, Config{}, map[string]float64{"BTCUSDT": 50_000})

	res, err := e.PlaceOrder(OrderRequest{
		Instrument: "BTCUSDT", Side: Long, Type: Market, NotionalUSD: 5000, Leverage: 5,
	})
	assert.NoError(t, err)
	_, err = e.ClosePosition(res.Position.ID, 100)
	assert.NoError(t, err)
	assert.Len(t, e.History(), 1)

	assert.NoError(t, e.ClearHistory())
	assert.Empty(t, e.History())
}

func TestPositionAndOrderIDsAreSeparate(t *testing.T) {
	t.Parallel()

	e, _, _ := newTestEngine(t, Config{}, map[string]float64{"BTCUSDT": 50_000})

	res1, err := e.PlaceOrder(OrderRequest{
		Instrument: "BTCUSDT", Side: Long, Type: Market, NotionalUSD: 1000, Leverage: 2,
	})
	assert.NoError(t, err)
	res2, err := e.PlaceOrder(OrderRequest{
		Instrument: "BTCUSDT", Side: Long, Type: Limit, NotionalUSD: 1000, Leverage: 2,
		TriggerPrice: ptr(40_000.0),
	})
	assert.NoError(t, err)

	assert.Equal(t, int64(1), res1.Position.ID)
	assert.Equal(t, int64(1), res2.Order.ID)
}
