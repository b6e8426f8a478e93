package journal

import (
	"database/sql"
	"math"

	_ "github.com/mattn/go-sqlite3"
)

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		return nil, err
	}

	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordClose(c CloseRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO closes
		(id, position_id, instrument, side, entry_price, exit_price, leverage, notional, margin, units, realized_pl, realized_pct, reason, closed_pct, open_time, close_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.PositionID, c.Instrument, c.Side, c.EntryPrice, c.ExitPrice,
		c.Leverage, c.Notional, c.Margin, c.Units, c.RealizedPL, c.RealizedPct,
		c.Reason, c.ClosedPct, c.OpenTime, c.CloseTime,
	)
	return err
}

func (j *SQLite) RecordEquity(e EquitySnapshot) error {
	// An infinite margin level (no margin in use) is stored as zero and
	// rehydrated by readers; SQLite's REAL handles the rest as-is.
	level := e.MarginLevel
	if math.IsInf(level, 0) {
		level = 0
	}
	_, err := j.db.Exec(`
		INSERT INTO equity
		(time, balance, equity, unrealized, margin_used, free_margin, margin_level)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.Time, e.Balance, e.Equity, e.Unrealized, e.MarginUsed, e.FreeMargin, level,
	)
	return err
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
