package engine

import (
	"fmt"
	"math"
	"time"

	"github.com/rustyeddy/papertrade/notify"
)

// hitTakeProfit reports whether price reached the position's TP: at or
// above for LONG, at or below for SHORT.
func hitTakeProfit(p *Position, price float64) bool {
	if p.TakeProfit == nil {
		return false
	}
	if p.Side == Long {
		return price >= *p.TakeProfit
	}
	return price <= *p.TakeProfit
}

// hitStopLoss mirrors hitTakeProfit on the losing side.
func hitStopLoss(p *Position, price float64) bool {
	if p.StopLoss == nil {
		return false
	}
	if p.Side == Long {
		return price <= *p.StopLoss
	}
	return price >= *p.StopLoss
}

// autoCloseLocked runs the per-cycle risk sweep: TP/SL exits first, then
// forced liquidation while the margin level sits below the maintenance
// threshold. Take-profit wins when both levels are crossed in one gap.
func (e *Engine) autoCloseLocked(now time.Time) (bool, []note) {
	var (
		changed bool
		notes   []note
	)

	type exit struct {
		id     int64
		reason CloseReason
	}
	var exits []exit
	for _, p := range e.acct.Positions {
		price, ok := e.lookup(p.Instrument)
		if !ok {
			continue
		}
		switch {
		case hitTakeProfit(p, price):
			exits = append(exits, exit{p.ID, ReasonTakeProfit})
		case hitStopLoss(p, price):
			exits = append(exits, exit{p.ID, ReasonStopLoss})
		}
	}

	for _, x := range exits {
		p := e.findPositionLocked(x.id)
		if p == nil {
			continue
		}
		price, ok := e.lookup(p.Instrument)
		if !ok {
			continue
		}
		rec, err := e.closeLocked(p, 100, price, x.reason, now)
		if err != nil {
			continue
		}
		changed = true

		sev := notify.Success
		if x.reason == ReasonStopLoss {
			sev = notify.Warning
		}
		notes = append(notes, note{
			title:    string(x.reason),
			message:  fmt.Sprintf("%s %s closed at %.4f, PnL %+.2f", rec.Side, rec.Instrument, rec.ExitPrice, rec.RealizedPL),
			severity: sev,
		})
	}

	liquidated := 0
	for {
		snap := e.snapshotLocked()
		if snap.UsedMargin <= 0 || math.IsInf(snap.MarginLevel, 1) || snap.MarginLevel >= e.cfg.LiquidationLevel {
			break
		}

		// Worst unrealized PnL goes first; the oldest position wins a tie.
		var (
			worst      *Position
			worstPL    float64
			worstPrice float64
		)
		for _, p := range e.acct.Positions {
			price, ok := e.lookup(p.Instrument)
			if !ok {
				continue
			}
			pl, err := UnrealizedPL(p, price)
			if err != nil {
				continue
			}
			if worst == nil || pl.PL < worstPL {
				worst, worstPL, worstPrice = p, pl.PL, price
			}
		}
		if worst == nil {
			break
		}

		if _, err := e.closeLocked(worst, 100, worstPrice, ReasonLiquidation, now); err != nil {
			break
		}
		changed = true
		liquidated++
	}

	if liquidated > 0 {
		notes = append(notes, note{
			title:    "Margin Call",
			message:  fmt.Sprintf("liquidated %d position(s) to restore margin level above %.0f%%", liquidated, e.cfg.LiquidationLevel),
			severity: notify.Error,
			duration: 8 * time.Second,
		})
	}

	return changed, notes
}
