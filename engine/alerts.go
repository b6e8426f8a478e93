package engine

import (
	"fmt"
	"time"

	"github.com/rustyeddy/papertrade/notify"
)

// AddAlert registers a price watch. Alerts never touch the account; a
// trigger only notifies.
func (e *Engine) AddAlert(a Alert) error {
	if a.Instrument == "" {
		return fmt.Errorf("%w: instrument required", ErrInvalidInput)
	}
	if a.Threshold <= 0 {
		return fmt.Errorf("%w: alert threshold must be positive", ErrInvalidInput)
	}
	if a.Condition != Above && a.Condition != Below {
		return fmt.Errorf("%w: alert condition %q", ErrInvalidInput, a.Condition)
	}
	if a.Repeat != Once && a.Repeat != Repeat {
		return fmt.Errorf("%w: alert repeat %q", ErrInvalidInput, a.Repeat)
	}

	e.mu.Lock()
	e.alerts = append(e.alerts, a)
	err := e.persistAlertsLocked()
	e.mu.Unlock()
	return err
}

// RemoveAlert deletes the alert at index, preserving the order of the rest.
func (e *Engine) RemoveAlert(index int) error {
	e.mu.Lock()
	if index < 0 || index >= len(e.alerts) {
		e.mu.Unlock()
		return fmt.Errorf("%w: alert index %d", ErrNotFound, index)
	}
	e.alerts = append(e.alerts[:index], e.alerts[index+1:]...)
	err := e.persistAlertsLocked()
	e.mu.Unlock()
	return err
}

// Alerts returns a copy of the registered alerts.
func (e *Engine) Alerts() []Alert {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Alert, len(e.alerts))
	copy(out, e.alerts)
	return out
}

// evalAlertsLocked fires every alert whose condition holds at the cached
// price. ONCE alerts are removed after firing; REPEAT alerts fire again
// every cycle the condition holds.
func (e *Engine) evalAlertsLocked() (bool, []note) {
	if len(e.alerts) == 0 {
		return false, nil
	}

	var (
		removed bool
		notes   []note
		keep    = e.alerts[:0]
	)

	for _, a := range e.alerts {
		price, ok := e.lookup(a.Instrument)
		if !ok {
			keep = append(keep, a)
			continue
		}

		fired := (a.Condition == Above && price >= a.Threshold) ||
			(a.Condition == Below && price <= a.Threshold)
		if fired {
			word := "above"
			if a.Condition == Below {
				word = "below"
			}
			notes = append(notes, note{
				title:    "Price Alert",
				message:  fmt.Sprintf("%s is %s %.4f (now %.4f)", a.Instrument, word, a.Threshold, price),
				severity: notify.Warning,
				duration: 8 * time.Second,
			})
			if a.Repeat == Once {
				removed = true
				continue
			}
		}
		keep = append(keep, a)
	}

	e.alerts = keep
	return removed, notes
}
