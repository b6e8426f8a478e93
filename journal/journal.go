package journal

import "time"

// CloseRecord mirrors one ledger history row: a full or partial close of a
// position, with the economics of the closed slice.
type CloseRecord struct {
	ID          string // ULID, assigned by the engine
	PositionID  int64
	Instrument  string
	Side        string
	EntryPrice  float64
	ExitPrice   float64
	Leverage    float64
	Notional    float64 // USD notional of the closed slice
	Margin      float64 // margin released by the close
	Units       float64
	RealizedPL  float64
	RealizedPct float64
	Reason      string
	ClosedPct   float64
	OpenTime    time.Time
	CloseTime   time.Time
}

// EquitySnapshot is one point on the account's equity curve.
type EquitySnapshot struct {
	Time        time.Time
	Balance     float64
	Equity      float64
	Unrealized  float64
	MarginUsed  float64
	FreeMargin  float64
	MarginLevel float64
}

type Journal interface {
	RecordClose(CloseRecord) error
	RecordEquity(EquitySnapshot) error
	Close() error
}

// Noop discards all records. Used when journaling is disabled.
type Noop struct{}

func (Noop) RecordClose(CloseRecord) error     { return nil }
func (Noop) RecordEquity(EquitySnapshot) error { return nil }
func (Noop) Close() error                      { return nil }
