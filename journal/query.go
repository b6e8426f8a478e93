package journal

import (
	"database/sql"
	"fmt"
	"math"
	"time"
)

// GetClose returns a single close record by ID.
func (j *SQLite) GetClose(id string) (CloseRecord, error) {
	var rec CloseRecord

	row := j.db.QueryRow(`
		SELECT id, position_id, instrument, side, entry_price, exit_price, leverage, notional, margin, units, realized_pl, realized_pct, reason, closed_pct, open_time, close_time
		FROM closes
		WHERE id = ?`, id)

	err := row.Scan(
		&rec.ID,
		&rec.PositionID,
		&rec.Instrument,
		&rec.Side,
		&rec.EntryPrice,
		&rec.ExitPrice,
		&rec.Leverage,
		&rec.Notional,
		&rec.Margin,
		&rec.Units,
		&rec.RealizedPL,
		&rec.RealizedPct,
		&rec.Reason,
		&rec.ClosedPct,
		&rec.OpenTime,
		&rec.CloseTime,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return CloseRecord{}, fmt.Errorf("close %q not found", id)
		}
		return CloseRecord{}, err
	}
	return rec, nil
}

// ListClosesBetween returns closes whose close_time is within [start, end).
func (j *SQLite) ListClosesBetween(start, end time.Time) ([]CloseRecord, error) {
	rows, err := j.db.Query(`
		SELECT id, position_id, instrument, side, entry_price, exit_price, leverage, notional, margin, units, realized_pl, realized_pct, reason, closed_pct, open_time, close_time
		FROM closes
		WHERE close_time >= ? AND close_time < ?
		ORDER BY close_time ASC`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CloseRecord
	for rows.Next() {
		var rec CloseRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.PositionID,
			&rec.Instrument,
			&rec.Side,
			&rec.EntryPrice,
			&rec.ExitPrice,
			&rec.Leverage,
			&rec.Notional,
			&rec.Margin,
			&rec.Units,
			&rec.RealizedPL,
			&rec.RealizedPct,
			&rec.Reason,
			&rec.ClosedPct,
			&rec.OpenTime,
			&rec.CloseTime,
		); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListEquityBetween returns equity snapshots within [start, end). A stored
// margin level of zero means no margin was in use and is rehydrated to +Inf.
func (j *SQLite) ListEquityBetween(start, end time.Time) ([]EquitySnapshot, error) {
	rows, err := j.db.Query(`
		SELECT time, balance, equity, unrealized, margin_used, free_margin, margin_level
		FROM equity
		WHERE time >= ? AND time < ?
		ORDER BY time ASC`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EquitySnapshot
	for rows.Next() {
		var e EquitySnapshot
		if err := rows.Scan(
			&e.Time,
			&e.Balance,
			&e.Equity,
			&e.Unrealized,
			&e.MarginUsed,
			&e.FreeMargin,
			&e.MarginLevel,
		); err != nil {
			return nil, err
		}
		if e.MarginUsed <= 0 {
			e.MarginLevel = math.Inf(1)
		}
		out = append(out, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Summary aggregates realized performance over closes in [start, end).
type Summary struct {
	Closes       int
	GrossProfit  float64
	GrossLoss    float64 // absolute value
	NetPL        float64
	ProfitFactor float64 // GrossProfit / GrossLoss, 0 when no losses
}

func (j *SQLite) Summarize(start, end time.Time) (Summary, error) {
	recs, err := j.ListClosesBetween(start, end)
	if err != nil {
		return Summary{}, err
	}

	var s Summary
	s.Closes = len(recs)
	for _, r := range recs {
		s.NetPL += r.RealizedPL
		if r.RealizedPL >= 0 {
			s.GrossProfit += r.RealizedPL
		} else {
			s.GrossLoss += -r.RealizedPL
		}
	}
	if s.GrossLoss > 0 {
		s.ProfitFactor = s.GrossProfit / s.GrossLoss
	}
	return s, nil
}
