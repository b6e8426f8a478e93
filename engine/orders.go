package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/papertrade/notify"
)

// OrderRequest is the single entry point for opening exposure. MARKET fills
// immediately at the cache price; LIMIT and STOP park a pending order.
type OrderRequest struct {
	Instrument   string    `json:"instrument"`
	Side         Side      `json:"side"`
	Type         OrderType `json:"type"`
	NotionalUSD  float64   `json:"notional_usd"`
	Leverage     float64   `json:"leverage"`
	TriggerPrice *float64  `json:"trigger_price,omitempty"`
	StopLoss     *float64  `json:"stop_loss,omitempty"`
	TakeProfit   *float64  `json:"take_profit,omitempty"`
}

func (r OrderRequest) validate() error {
	if r.Instrument == "" {
		return fmt.Errorf("%w: instrument required", ErrInvalidInput)
	}
	if r.Side != Long && r.Side != Short {
		return fmt.Errorf("%w: side %q", ErrInvalidInput, r.Side)
	}
	if r.NotionalUSD <= 0 {
		return fmt.Errorf("%w: notional %.2f must be positive", ErrInvalidInput, r.NotionalUSD)
	}
	if r.Leverage < 1 {
		return fmt.Errorf("%w: leverage %.2f must be >= 1", ErrInvalidInput, r.Leverage)
	}
	if r.StopLoss != nil && *r.StopLoss <= 0 {
		return fmt.Errorf("%w: stop loss must be positive", ErrInvalidInput)
	}
	if r.TakeProfit != nil && *r.TakeProfit <= 0 {
		return fmt.Errorf("%w: take profit must be positive", ErrInvalidInput)
	}

	switch r.Type {
	case Market:
		if r.TriggerPrice != nil {
			return fmt.Errorf("%w: market order cannot carry a trigger price", ErrInvalidInput)
		}
	case Limit, Stop:
		if r.TriggerPrice == nil || *r.TriggerPrice <= 0 {
			return fmt.Errorf("%w: %s order requires a positive trigger price", ErrInvalidInput, r.Type)
		}
	default:
		return fmt.Errorf("%w: order type %q", ErrInvalidInput, r.Type)
	}
	return nil
}

// OrderResult reports what PlaceOrder produced: a live position for an
// immediate fill, or the parked pending order.
type OrderResult struct {
	Position *Position     `json:"position,omitempty"`
	Order    *PendingOrder `json:"order,omitempty"`
}

// PlaceOrder validates and routes an order. Validation and the margin check
// run before any mutation; a rejection leaves the account untouched.
func (e *Engine) PlaceOrder(req OrderRequest) (OrderResult, error) {
	if err := req.validate(); err != nil {
		return OrderResult{}, err
	}

	now := time.Now().UTC()

	e.mu.Lock()

	if req.Type == Market {
		price, ok := e.lookup(req.Instrument)
		if !ok {
			e.mu.Unlock()
			return OrderResult{}, fmt.Errorf("%w: %s", ErrNoPrice, req.Instrument)
		}
		pos, err := e.openLocked(openRequest{
			Instrument:  req.Instrument,
			Side:        req.Side,
			RefPrice:    price,
			NotionalUSD: req.NotionalUSD,
			Leverage:    req.Leverage,
			StopLoss:    req.StopLoss,
			TakeProfit:  req.TakeProfit,
		}, now)
		if err != nil {
			e.mu.Unlock()
			return OrderResult{}, err
		}
		err = e.journal.RecordEquity(e.equityRecordLocked(now))
		if perr := e.persistLocked(); err == nil {
			err = perr
		}
		opened := *pos
		e.mu.Unlock()

		e.emit([]note{{
			title:    "Order Filled",
			message:  fmt.Sprintf("%s %s %.2f USD at %.4f (%gx)", opened.Side, opened.Instrument, opened.NotionalUSD, opened.EntryPrice, opened.Leverage),
			severity: notify.Success,
		}})
		return OrderResult{Position: &opened}, err
	}

	o := &PendingOrder{
		ID:           e.acct.NextOrderID,
		Instrument:   req.Instrument,
		Side:         req.Side,
		Type:         req.Type,
		TriggerPrice: req.TriggerPrice,
		NotionalUSD:  req.NotionalUSD,
		Leverage:     req.Leverage,
		StopLoss:     req.StopLoss,
		TakeProfit:   req.TakeProfit,
		Status:       StatusPending,
		PlacedAt:     now,
	}
	e.acct.NextOrderID++
	e.acct.Pending = append(e.acct.Pending, o)
	err := e.persistLocked()
	placed := *o
	e.mu.Unlock()

	e.emit([]note{{
		title:    "Order Placed",
		message:  fmt.Sprintf("%s %s %s %.2f USD, trigger %.4f", placed.Type, placed.Side, placed.Instrument, placed.NotionalUSD, *placed.TriggerPrice),
		severity: notify.Info,
	}})
	return OrderResult{Order: &placed}, err
}

// CancelOrder removes a pending order. Orders waiting on margin cancel the
// same as pending ones.
func (e *Engine) CancelOrder(id int64) error {
	e.mu.Lock()

	idx := -1
	for i, o := range e.acct.Pending {
		if o.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		e.mu.Unlock()
		return fmt.Errorf("%w: order %d", ErrNotFound, id)
	}

	o := e.acct.Pending[idx]
	o.Status = StatusCancelled
	e.acct.Pending = append(e.acct.Pending[:idx], e.acct.Pending[idx+1:]...)
	err := e.persistLocked()
	cancelled := *o
	e.mu.Unlock()

	e.emit([]note{{
		title:    "Order Cancelled",
		message:  fmt.Sprintf("%s %s %s order %d", cancelled.Type, cancelled.Side, cancelled.Instrument, cancelled.ID),
		severity: notify.Info,
	}})
	return err
}

// shouldTrigger applies the trigger table: LIMIT fills at the trigger price
// or better, STOP at the trigger price or worse.
func shouldTrigger(o *PendingOrder, price float64) bool {
	if o.TriggerPrice == nil {
		return true
	}
	trigger := *o.TriggerPrice

	if o.Type == Limit {
		if o.Side == Long {
			return price <= trigger
		}
		return price >= trigger
	}
	if o.Side == Long {
		return price >= trigger
	}
	return price <= trigger
}

// processPendingLocked attempts fills for every triggered pending order. A
// fill that fails the margin check parks the order as AWAITING_MARGIN and
// it is retried every cycle; there is no expiry.
func (e *Engine) processPendingLocked(now time.Time) (bool, []note) {
	if len(e.acct.Pending) == 0 {
		return false, nil
	}

	var (
		changed bool
		notes   []note
		keep    = e.acct.Pending[:0]
	)

	for _, o := range e.acct.Pending {
		price, ok := e.lookup(o.Instrument)
		if !ok || !shouldTrigger(o, price) {
			keep = append(keep, o)
			continue
		}

		pos, err := e.openLocked(openRequest{
			Instrument:  o.Instrument,
			Side:        o.Side,
			RefPrice:    price,
			NotionalUSD: o.NotionalUSD,
			Leverage:    o.Leverage,
			StopLoss:    o.StopLoss,
			TakeProfit:  o.TakeProfit,
		}, now)

		switch {
		case err == nil:
			o.Status = StatusFilled
			changed = true
			notes = append(notes, note{
				title:    "Order Filled",
				message:  fmt.Sprintf("%s %s %s filled at %.4f", o.Type, o.Side, o.Instrument, pos.EntryPrice),
				severity: notify.Success,
			})
		case errors.Is(err, ErrInsufficientMargin):
			if o.Status != StatusAwaitingMargin {
				o.Status = StatusAwaitingMargin
				changed = true
				notes = append(notes, note{
					title:    "Order Waiting",
					message:  fmt.Sprintf("%s %s %s triggered but lacks free margin", o.Type, o.Side, o.Instrument),
					severity: notify.Warning,
				})
			}
			keep = append(keep, o)
		default:
			keep = append(keep, o)
		}
	}

	e.acct.Pending = keep
	return changed, notes
}
