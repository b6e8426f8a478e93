package engine

import "time"

type Side string

const (
	Long  Side = "LONG"
	Short Side = "SHORT"
)

type OrderType string

const (
	Market OrderType = "MARKET"
	Limit  OrderType = "LIMIT"
	Stop   OrderType = "STOP"
)

type OrderStatus string

const (
	StatusPending        OrderStatus = "PENDING"
	StatusFilled         OrderStatus = "FILLED"
	StatusAwaitingMargin OrderStatus = "AWAITING_MARGIN"
	StatusCancelled      OrderStatus = "CANCELLED"
)

type CloseReason string

const (
	ReasonTakeProfit   CloseReason = "TakeProfit"
	ReasonStopLoss     CloseReason = "StopLoss"
	ReasonLiquidation  CloseReason = "Liquidation"
	ReasonManualClose  CloseReason = "ManualClose"
	ReasonPartialClose CloseReason = "PartialClose"
)

// Position is one open leveraged trade. EntryPrice is already
// spread-adjusted. MarginUsed and Units shrink proportionally on partial
// close; EntryPrice and Leverage never change after open.
type Position struct {
	ID          int64     `json:"id"`
	Instrument  string    `json:"instrument"`
	Side        Side      `json:"side"`
	EntryPrice  float64   `json:"entry_price"`
	NotionalUSD float64   `json:"notional_usd"`
	Leverage    float64   `json:"leverage"`
	MarginUsed  float64   `json:"margin_used"`
	Units       float64   `json:"units"`
	StopLoss    *float64  `json:"stop_loss,omitempty"`
	TakeProfit  *float64  `json:"take_profit,omitempty"`
	OpenedAt    time.Time `json:"opened_at"`
}

// PendingOrder is a conditional order waiting on its trigger (or on free
// margin). Order ids live in their own id space, separate from positions.
type PendingOrder struct {
	ID           int64       `json:"id"`
	Instrument   string      `json:"instrument"`
	Side         Side        `json:"side"`
	Type         OrderType   `json:"type"`
	TriggerPrice *float64    `json:"trigger_price,omitempty"`
	NotionalUSD  float64     `json:"notional_usd"`
	Leverage     float64     `json:"leverage"`
	StopLoss     *float64    `json:"stop_loss,omitempty"`
	TakeProfit   *float64    `json:"take_profit,omitempty"`
	Status       OrderStatus `json:"status"`
	PlacedAt     time.Time   `json:"placed_at"`
}

// HistoryRecord is the immutable snapshot written at every full or partial
// close. Notional, margin and units describe the closed slice only.
type HistoryRecord struct {
	Time        time.Time   `json:"time"`
	PositionID  int64       `json:"position_id"`
	Instrument  string      `json:"instrument"`
	Side        Side        `json:"side"`
	EntryPrice  float64     `json:"entry_price"`
	ExitPrice   float64     `json:"exit_price"`
	Leverage    float64     `json:"leverage"`
	NotionalUSD float64     `json:"notional_usd"`
	MarginUsed  float64     `json:"margin_used"`
	Units       float64     `json:"units"`
	RealizedPL  float64     `json:"realized_pl"`
	RealizedPct float64     `json:"realized_pct"`
	Reason      CloseReason `json:"reason"`
	ClosedPct   float64     `json:"closed_pct"`
	OpenedAt    time.Time   `json:"opened_at"`
}

// Account is the engine's owned state: realized cash plus the three ordered
// lists. Mutated only through Ledger operations under the engine mutex.
type Account struct {
	Balance        float64         `json:"balance"`
	Positions      []*Position     `json:"positions"`
	Pending        []*PendingOrder `json:"pending"`
	History        []HistoryRecord `json:"history"`
	NextPositionID int64           `json:"next_position_id"`
	NextOrderID    int64           `json:"next_order_id"`
}

func newAccount(balance float64) Account {
	return Account{
		Balance:        balance,
		NextPositionID: 1,
		NextOrderID:    1,
	}
}

type AlertCondition string

const (
	Above AlertCondition = "ABOVE"
	Below AlertCondition = "BELOW"
)

type AlertRepeat string

const (
	Once   AlertRepeat = "ONCE"
	Repeat AlertRepeat = "REPEAT"
)

// Alert is an independent price watch. It never touches the account; a
// trigger only emits a notification.
type Alert struct {
	Instrument string         `json:"instrument"`
	Condition  AlertCondition `json:"condition"`
	Threshold  float64        `json:"threshold"`
	Repeat     AlertRepeat    `json:"repeat"`
}
