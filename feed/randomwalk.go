package feed

import (
	"context"
	"math/rand"
	"time"

	"github.com/rustyeddy/papertrade/market"
)

var walkSeeds = map[string]float64{
	"BTCUSDT": 50_000,
	"ETHUSDT": 3000,
	"SOLUSDT": 150,
}

// RandomWalk is the offline feed: each instrument takes a small random step
// every interval. Useful for demos and local development when no exchange
// connection is wanted.
type RandomWalk struct {
	Instruments []string
	Interval    time.Duration
	rng         *rand.Rand
}

func NewRandomWalk(instruments []string, interval time.Duration) *RandomWalk {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return &RandomWalk{
		Instruments: instruments,
		Interval:    interval,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (w *RandomWalk) Run(ctx context.Context, store *market.PriceStore) {
	prices := make(map[string]float64, len(w.Instruments))
	opens := make(map[string]float64, len(w.Instruments))
	for _, instr := range w.Instruments {
		p, ok := walkSeeds[instr]
		if !ok {
			p = 100
		}
		prices[instr] = p
		opens[instr] = p
		store.Set(market.Price{Instrument: instr, Last: p, Time: time.Now().UTC()})
	}

	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, instr := range w.Instruments {
				// Steps up to ±0.2% per interval.
				step := 1 + (w.rng.Float64()-0.5)*0.004
				p := prices[instr] * step
				prices[instr] = p
				store.Set(market.Price{
					Instrument: instr,
					Last:       p,
					ChangePct:  (p/opens[instr] - 1) * 100,
					Time:       time.Now().UTC(),
				})
			}
		}
	}
}
