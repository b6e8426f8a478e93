package engine

import "math"

// PriceLookup resolves the current price for an instrument. ok=false means
// the price is unavailable this cycle.
type PriceLookup func(instrument string) (price float64, ok bool)

// PL is the unrealized result of marking one position to a price.
type PL struct {
	PL  float64 `json:"pl"`
	Pct float64 `json:"pct"`
}

// UnrealizedPL marks a position to price. LONG gains when price rises above
// entry, SHORT when it falls below. Returns ErrNoPrice when price or entry
// is unusable; callers in per-cycle paths treat that as a zero-PL skip.
func UnrealizedPL(p *Position, price float64) (PL, error) {
	if price <= 0 || p.EntryPrice <= 0 {
		return PL{}, ErrNoPrice
	}

	var pct float64
	if p.Side == Long {
		pct = (price/p.EntryPrice - 1) * 100
	} else {
		pct = (p.EntryPrice/price - 1) * 100
	}
	return PL{PL: p.NotionalUSD * pct / 100, Pct: pct}, nil
}

// AccountSnapshot is the derived margin state of the account at one instant.
// MarginLevel is +Inf when no margin is in use.
type AccountSnapshot struct {
	Balance     float64 `json:"balance"`
	Unrealized  float64 `json:"unrealized"`
	Equity      float64 `json:"equity"`
	UsedMargin  float64 `json:"used_margin"`
	FreeMargin  float64 `json:"free_margin"`
	MarginLevel float64 `json:"margin_level"`
}

// ComputeSnapshot derives equity, used/free margin and margin level from a
// balance, the open positions and a price lookup. Pure: no side effects,
// safe to call concurrently over immutable inputs. Positions with no
// current price contribute zero unrealized PnL this cycle.
func ComputeSnapshot(balance float64, positions []*Position, lookup PriceLookup) AccountSnapshot {
	var unrealized, used float64
	for _, p := range positions {
		used += p.MarginUsed
		price, ok := lookup(p.Instrument)
		if !ok {
			continue
		}
		if pl, err := UnrealizedPL(p, price); err == nil {
			unrealized += pl.PL
		}
	}

	equity := balance + unrealized
	level := math.Inf(1)
	if used > 0 {
		level = equity / used * 100
	}

	return AccountSnapshot{
		Balance:     balance,
		Unrealized:  unrealized,
		Equity:      equity,
		UsedMargin:  used,
		FreeMargin:  equity - used,
		MarginLevel: level,
	}
}
