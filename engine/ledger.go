package engine

import (
	"fmt"
	"time"

	"github.com/rustyeddy/papertrade/notify"
)

// fullClosePct is the percent at or above which a partial close collapses
// to a full close, absorbing float drift in "close everything" requests.
const fullClosePct = 99.999

// openRequest carries the validated parameters of one fill attempt.
// RefPrice is the raw cache price; the spread is applied here.
type openRequest struct {
	Instrument  string
	Side        Side
	RefPrice    float64
	NotionalUSD float64
	Leverage    float64
	StopLoss    *float64
	TakeProfit  *float64
}

func (e *Engine) commission(notional float64) float64 {
	c := notional * e.cfg.CommissionRate
	if c < e.cfg.CommissionMin {
		c = e.cfg.CommissionMin
	}
	return c
}

// openLocked checks margin and, if it fits, books the position and charges
// the open commission. The margin check runs before any mutation so a
// rejected open leaves the account untouched.
func (e *Engine) openLocked(req openRequest, now time.Time) (*Position, error) {
	required := req.NotionalUSD / req.Leverage
	if required > e.snapshotLocked().FreeMargin {
		return nil, ErrInsufficientMargin
	}

	entry := req.RefPrice * (1 + e.cfg.Spread)
	if req.Side == Short {
		entry = req.RefPrice * (1 - e.cfg.Spread)
	}

	e.acct.Balance -= e.commission(req.NotionalUSD)

	p := &Position{
		ID:          e.acct.NextPositionID,
		Instrument:  req.Instrument,
		Side:        req.Side,
		EntryPrice:  entry,
		NotionalUSD: req.NotionalUSD,
		Leverage:    req.Leverage,
		MarginUsed:  required,
		Units:       req.NotionalUSD / entry,
		StopLoss:    req.StopLoss,
		TakeProfit:  req.TakeProfit,
		OpenedAt:    now,
	}
	e.acct.NextPositionID++
	e.acct.Positions = append(e.acct.Positions, p)
	return p, nil
}

// closeLocked realizes percent of the position at price: the closed slice's
// PnL less a proportional commission settles into the balance, a history
// record is appended and journaled, and the position shrinks or is removed.
func (e *Engine) closeLocked(p *Position, percent, price float64, reason CloseReason, now time.Time) (HistoryRecord, error) {
	pl, err := UnrealizedPL(p, price)
	if err != nil {
		return HistoryRecord{}, err
	}

	portion := percent / 100
	closedNotional := p.NotionalUSD * portion
	realized := pl.PL*portion - e.commission(closedNotional)
	e.acct.Balance += realized

	rec := HistoryRecord{
		Time:        now,
		PositionID:  p.ID,
		Instrument:  p.Instrument,
		Side:        p.Side,
		EntryPrice:  p.EntryPrice,
		ExitPrice:   price,
		Leverage:    p.Leverage,
		NotionalUSD: closedNotional,
		MarginUsed:  p.MarginUsed * portion,
		Units:       p.Units * portion,
		RealizedPL:  realized,
		RealizedPct: pl.Pct,
		Reason:      reason,
		ClosedPct:   percent,
		OpenedAt:    p.OpenedAt,
	}
	e.acct.History = append(e.acct.History, rec)

	if percent >= fullClosePct {
		e.removePositionLocked(p.ID)
	} else {
		remain := 1 - portion
		p.NotionalUSD *= remain
		p.MarginUsed *= remain
		p.Units *= remain
	}

	if err := e.journal.RecordClose(toCloseRecord(rec)); err != nil {
		return rec, err
	}
	return rec, nil
}

func (e *Engine) findPositionLocked(id int64) *Position {
	for _, p := range e.acct.Positions {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (e *Engine) removePositionLocked(id int64) {
	for i, p := range e.acct.Positions {
		if p.ID == id {
			e.acct.Positions = append(e.acct.Positions[:i], e.acct.Positions[i+1:]...)
			return
		}
	}
}

// ClosePosition realizes percent (0 < percent <= 100) of the position at
// the current cache price. Partial closes below fullClosePct keep the
// position open with proportionally reduced size.
func (e *Engine) ClosePosition(id int64, percent float64) (HistoryRecord, error) {
	if percent <= 0 || percent > 100 {
		return HistoryRecord{}, fmt.Errorf("%w: close percent %.3f out of (0, 100]", ErrInvalidInput, percent)
	}

	reason := ReasonManualClose
	if percent < fullClosePct {
		reason = ReasonPartialClose
	}

	now := time.Now().UTC()

	e.mu.Lock()
	p := e.findPositionLocked(id)
	if p == nil {
		e.mu.Unlock()
		return HistoryRecord{}, fmt.Errorf("%w: position %d", ErrNotFound, id)
	}
	price, ok := e.lookup(p.Instrument)
	if !ok {
		e.mu.Unlock()
		return HistoryRecord{}, fmt.Errorf("%w: %s", ErrNoPrice, p.Instrument)
	}

	rec, err := e.closeLocked(p, percent, price, reason, now)
	if err == nil {
		err = e.journal.RecordEquity(e.equityRecordLocked(now))
	}
	if perr := e.persistLocked(); err == nil {
		err = perr
	}
	e.mu.Unlock()

	sev := notify.Success
	if rec.RealizedPL < 0 {
		sev = notify.Warning
	}
	e.emit([]note{{
		title:    "Position Closed",
		message:  fmt.Sprintf("%s %s %.1f%% at %.4f, PnL %+.2f", rec.Side, rec.Instrument, rec.ClosedPct, rec.ExitPrice, rec.RealizedPL),
		severity: sev,
	}})
	return rec, err
}

// CloseScope selects which open positions a bulk close touches.
type CloseScope string

const (
	ScopeAll    CloseScope = "ALL"
	ScopeProfit CloseScope = "PROFIT"
	ScopeLoss   CloseScope = "LOSS"
)

// CloseByScope fully closes every open position matching the scope.
// Positions with no current price are skipped and counted. PROFIT takes
// pl >= 0, LOSS takes pl < 0.
func (e *Engine) CloseByScope(scope CloseScope) (closed, skipped int, err error) {
	switch scope {
	case ScopeAll, ScopeProfit, ScopeLoss:
	default:
		return 0, 0, fmt.Errorf("%w: close scope %q", ErrInvalidInput, scope)
	}

	now := time.Now().UTC()

	e.mu.Lock()
	ids := make([]int64, 0, len(e.acct.Positions))
	for _, p := range e.acct.Positions {
		ids = append(ids, p.ID)
	}

	for _, pid := range ids {
		p := e.findPositionLocked(pid)
		if p == nil {
			continue
		}
		price, ok := e.lookup(p.Instrument)
		if !ok {
			skipped++
			continue
		}
		if scope != ScopeAll {
			pl, plErr := UnrealizedPL(p, price)
			if plErr != nil {
				skipped++
				continue
			}
			if (scope == ScopeProfit) != (pl.PL >= 0) {
				continue
			}
		}
		if _, cerr := e.closeLocked(p, 100, price, ReasonManualClose, now); cerr != nil {
			if err == nil {
				err = cerr
			}
			continue
		}
		closed++
	}

	if closed > 0 {
		if jerr := e.journal.RecordEquity(e.equityRecordLocked(now)); err == nil {
			err = jerr
		}
		if perr := e.persistLocked(); err == nil {
			err = perr
		}
	}
	e.mu.Unlock()

	if closed > 0 {
		e.emit([]note{{
			title:    "Bulk Close",
			message:  fmt.Sprintf("closed %d position(s), skipped %d", closed, skipped),
			severity: notify.Info,
		}})
	}
	return closed, skipped, err
}
