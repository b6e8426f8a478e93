package market

import (
	"errors"
	"sort"
	"sync"
	"time"
)

// ErrNoPrice is returned when the cache holds no usable price for an
// instrument.
var ErrNoPrice = errors.New("price not available")

// Price is the latest known quote for one instrument. Last is the trade
// price the engine marks against; ChangePct is the feed's 24h change and is
// informational only.
type Price struct {
	Instrument string    `json:"instrument"`
	Last       float64   `json:"last"`
	ChangePct  float64   `json:"change_pct"`
	Time       time.Time `json:"time"`
}

// PriceStore is the price cache: one writer (the feed collaborator), many
// readers (the engine and the API). Reads never block on the feed; they
// return whatever was cached last.
type PriceStore struct {
	mu     sync.RWMutex
	prices map[string]Price
}

func NewPriceStore() *PriceStore {
	return &PriceStore{prices: make(map[string]Price)}
}

func (ps *PriceStore) Set(p Price) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.prices[p.Instrument] = p
}

func (ps *PriceStore) Get(instr string) (Price, error) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	p, ok := ps.prices[instr]
	if !ok || p.Last <= 0 {
		return Price{}, ErrNoPrice
	}
	return p, nil
}

// Last returns the last trade price for instr, or ok=false when the cache
// has nothing usable. This is the lookup the engine threads through the
// calculator.
func (ps *PriceStore) Last(instr string) (float64, bool) {
	p, err := ps.Get(instr)
	if err != nil {
		return 0, false
	}
	return p.Last, true
}

// Remove drops the cached price for instr, if any.
func (ps *PriceStore) Remove(instr string) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	delete(ps.prices, instr)
}

// All returns a copy of every cached price, sorted by instrument.
func (ps *PriceStore) All() []Price {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	out := make([]Price, 0, len(ps.prices))
	for _, p := range ps.prices {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Instrument < out[j].Instrument })
	return out
}
