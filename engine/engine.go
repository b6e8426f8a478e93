package engine

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/rustyeddy/papertrade/id"
	"github.com/rustyeddy/papertrade/journal"
	"github.com/rustyeddy/papertrade/market"
	"github.com/rustyeddy/papertrade/notify"
)

// Config carries the engine's cost and risk parameters. Zero values are
// replaced by the defaults below, which match the reference dashboard.
type Config struct {
	AccountID        string
	Currency         string
	StartingBalance  float64
	Spread           float64 // fractional, 0.0002 = 2 bps, always against the trader
	CommissionRate   float64 // fractional, 0.0004 = 4 bps of notional
	CommissionMin    float64 // floor in account currency
	LiquidationLevel float64 // maintenance margin level, percent
}

func (c *Config) applyDefaults() {
	if c.AccountID == "" {
		c.AccountID = "SIM-001"
	}
	if c.Currency == "" {
		c.Currency = "USD"
	}
	if c.StartingBalance <= 0 {
		c.StartingBalance = 100_000
	}
	if c.Spread <= 0 {
		c.Spread = 0.0002
	}
	if c.CommissionRate <= 0 {
		c.CommissionRate = 0.0004
	}
	if c.CommissionMin <= 0 {
		c.CommissionMin = 0.5
	}
	if c.LiquidationLevel <= 0 {
		c.LiquidationLevel = 50
	}
}

// Persister stores the account and alert state across restarts. Loads
// report ok=false when no (or incompatible) snapshot exists, in which case
// the engine starts from defaults.
type Persister interface {
	SaveState(Account) error
	LoadState() (Account, bool, error)
	SaveAlerts([]Alert) error
	LoadAlerts() ([]Alert, bool, error)
}

// Engine owns all mutable trading state. Every public operation takes the
// one mutex, so user-initiated calls and the tick cycle serialize; the
// price cache is the only state shared with the feed collaborator.
type Engine struct {
	mu       sync.Mutex
	cfg      Config
	acct     Account
	alerts   []Alert
	prices   *market.PriceStore
	journal  journal.Journal
	notifier notify.Notifier
	persist  Persister
}

func New(cfg Config, prices *market.PriceStore, j journal.Journal, n notify.Notifier, p Persister) *Engine {
	cfg.applyDefaults()
	if j == nil {
		j = journal.Noop{}
	}
	if n == nil {
		n = notify.Discard{}
	}

	e := &Engine{
		cfg:      cfg,
		acct:     newAccount(cfg.StartingBalance),
		prices:   prices,
		journal:  j,
		notifier: n,
		persist:  p,
	}

	if p != nil {
		if acct, ok, err := p.LoadState(); err != nil {
			log.WithError(err).Warn("state snapshot unreadable, starting fresh")
		} else if ok {
			e.acct = acct
		}
		if alerts, ok, err := p.LoadAlerts(); err != nil {
			log.WithError(err).Warn("alerts snapshot unreadable, starting fresh")
		} else if ok {
			e.alerts = alerts
		}
	}

	return e
}

// note is a notification queued while the engine mutex is held; it is
// emitted only after the lock is released so a slow sink cannot stall a
// cycle.
type note struct {
	title    string
	message  string
	severity notify.Severity
	duration time.Duration
}

func (e *Engine) emit(notes []note) {
	for _, n := range notes {
		e.notifier.Notify(n.title, n.message, n.severity, n.duration)
	}
}

func (e *Engine) lookup(instr string) (float64, bool) {
	return e.prices.Last(instr)
}

func (e *Engine) snapshotLocked() AccountSnapshot {
	return ComputeSnapshot(e.acct.Balance, e.acct.Positions, e.lookup)
}

func (e *Engine) persistLocked() error {
	if e.persist == nil {
		return nil
	}
	return e.persist.SaveState(e.acct)
}

func (e *Engine) persistAlertsLocked() error {
	if e.persist == nil {
		return nil
	}
	return e.persist.SaveAlerts(e.alerts)
}

func (e *Engine) equityRecordLocked(now time.Time) journal.EquitySnapshot {
	snap := e.snapshotLocked()
	return journal.EquitySnapshot{
		Time:        now,
		Balance:     snap.Balance,
		Equity:      snap.Equity,
		Unrealized:  snap.Unrealized,
		MarginUsed:  snap.UsedMargin,
		FreeMargin:  snap.FreeMargin,
		MarginLevel: snap.MarginLevel,
	}
}

func toCloseRecord(rec HistoryRecord) journal.CloseRecord {
	return journal.CloseRecord{
		ID:          id.New(),
		PositionID:  rec.PositionID,
		Instrument:  rec.Instrument,
		Side:        string(rec.Side),
		EntryPrice:  rec.EntryPrice,
		ExitPrice:   rec.ExitPrice,
		Leverage:    rec.Leverage,
		Notional:    rec.NotionalUSD,
		Margin:      rec.MarginUsed,
		Units:       rec.Units,
		RealizedPL:  rec.RealizedPL,
		RealizedPct: rec.RealizedPct,
		Reason:      string(rec.Reason),
		ClosedPct:   rec.ClosedPct,
		OpenTime:    rec.OpenedAt,
		CloseTime:   rec.Time,
	}
}

// RunTick advances one scheduling cycle: TP/SL and liquidation closes
// settle first, then pending orders are evaluated against the same price
// snapshot, then alerts fire. State is persisted once per cycle when
// anything changed.
func (e *Engine) RunTick() error {
	now := time.Now().UTC()

	e.mu.Lock()

	var notes []note

	closes, n1 := e.autoCloseLocked(now)
	notes = append(notes, n1...)

	fills, n2 := e.processPendingLocked(now)
	notes = append(notes, n2...)

	alertsChanged, n3 := e.evalAlertsLocked()
	notes = append(notes, n3...)

	var err error
	if closes || fills {
		err = e.journal.RecordEquity(e.equityRecordLocked(now))
		if perr := e.persistLocked(); err == nil {
			err = perr
		}
	}
	if alertsChanged {
		if perr := e.persistAlertsLocked(); err == nil {
			err = perr
		}
	}

	e.mu.Unlock()

	e.emit(notes)
	return err
}

// Run drives RunTick on a fixed cadence until ctx is cancelled. A failing
// cycle is logged and never stops the scheduler.
func (e *Engine) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := e.RunTick(); err != nil {
				log.WithError(err).Warn("tick cycle error")
			}
		}
	}
}

// Snapshot derives the current account metrics from cached prices.
func (e *Engine) Snapshot() AccountSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// Positions returns a copy of the open positions in open order.
func (e *Engine) Positions() []Position {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Position, 0, len(e.acct.Positions))
	for _, p := range e.acct.Positions {
		out = append(out, *p)
	}
	return out
}

// Pending returns a copy of the pending conditional orders.
func (e *Engine) Pending() []PendingOrder {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]PendingOrder, 0, len(e.acct.Pending))
	for _, o := range e.acct.Pending {
		out = append(out, *o)
	}
	return out
}

// History returns a copy of the closed-trade history, oldest first.
func (e *Engine) History() []HistoryRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]HistoryRecord, len(e.acct.History))
	copy(out, e.acct.History)
	return out
}

// Balance returns realized cash only; use Snapshot for equity.
func (e *Engine) Balance() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.acct.Balance
}

// Reset restores the configured starting balance and clears positions,
// pending orders and history. Alerts survive a reset.
func (e *Engine) Reset() error {
	e.mu.Lock()
	e.acct = newAccount(e.cfg.StartingBalance)
	err := e.persistLocked()
	e.mu.Unlock()

	e.emit([]note{{"Portfolio Reset", "account restored to starting balance", notify.Success, 0}})
	return err
}

// ClearHistory drops the in-memory history list. Journal rows are kept;
// the journal is append-only.
func (e *Engine) ClearHistory() error {
	e.mu.Lock()
	e.acct.History = nil
	err := e.persistLocked()
	e.mu.Unlock()
	return err
}
