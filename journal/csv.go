package journal

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"
)

type CSV struct {
	closes *csv.Writer
	equity *csv.Writer
	cf, ef *os.File
}

func NewCSV(closesPath, equityPath string) (*CSV, error) {
	cf, err := os.Create(closesPath)
	if err != nil {
		return nil, err
	}
	ef, err := os.Create(equityPath)
	if err != nil {
		cf.Close()
		return nil, err
	}

	cw := csv.NewWriter(cf)
	ew := csv.NewWriter(ef)

	if err := cw.Write([]string{"id", "position_id", "instrument", "side", "entry_price", "exit_price", "leverage", "notional", "margin", "units", "realized_pl", "realized_pct", "reason", "closed_pct", "open_time", "close_time"}); err != nil {
		return nil, err
	}
	if err := ew.Write([]string{"time", "balance", "equity", "unrealized", "margin_used", "free_margin", "margin_level"}); err != nil {
		return nil, err
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, err
	}
	ew.Flush()
	if err := ew.Error(); err != nil {
		return nil, err
	}

	return &CSV{cw, ew, cf, ef}, nil
}

func (j *CSV) RecordClose(c CloseRecord) error {
	err := j.closes.Write([]string{
		c.ID,
		strconv.FormatInt(c.PositionID, 10),
		c.Instrument,
		c.Side,
		f(c.EntryPrice),
		f(c.ExitPrice),
		f(c.Leverage),
		f(c.Notional),
		f(c.Margin),
		f(c.Units),
		f(c.RealizedPL),
		f(c.RealizedPct),
		c.Reason,
		f(c.ClosedPct),
		c.OpenTime.Format(time.RFC3339),
		c.CloseTime.Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	j.closes.Flush()
	return j.closes.Error()
}

func (j *CSV) RecordEquity(e EquitySnapshot) error {
	err := j.equity.Write([]string{
		e.Time.Format(time.RFC3339),
		f(e.Balance),
		f(e.Equity),
		f(e.Unrealized),
		f(e.MarginUsed),
		f(e.FreeMargin),
		f(e.MarginLevel),
	})
	if err != nil {
		return err
	}
	j.equity.Flush()
	return j.equity.Error()
}

func (j *CSV) Close() error {
	j.closes.Flush()
	if err := j.closes.Error(); err != nil {
		return err
	}
	j.equity.Flush()
	if err := j.equity.Error(); err != nil {
		return err
	}

	if err := j.cf.Close(); err != nil {
		return err
	}
	return j.ef.Close()
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
