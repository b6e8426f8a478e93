package journal

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCSVWritesHeaderAndRows(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	closesPath := filepath.Join(dir, "closes.csv")
	equityPath := filepath.Join(dir, "equity.csv")

	j, err := NewCSV(closesPath, equityPath)
	assert.NoError(t, err)

	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	assert.NoError(t, j.RecordClose(CloseRecord{
		ID:         "01HTEST",
		PositionID: 3,
		Instrument: "ETHUSDT",
		Side:       "SHORT",
		EntryPrice: 3000,
		ExitPrice:  2900,
		Leverage:   10,
		Notional:   2000,
		Margin:     200,
		Units:      0.6666,
		RealizedPL: 66.6,
		Reason:     "TakeProfit",
		ClosedPct:  100,
		OpenTime:   at.Add(-time.Hour),
		CloseTime:  at,
	}))
	assert.NoError(t, j.RecordEquity(EquitySnapshot{
		Time: at, Balance: 100066.6, Equity: 100066.6, FreeMargin: 100066.6,
	}))
	assert.NoError(t, j.Close())

	cf, err := os.Open(closesPath)
	assert.NoError(t, err)
	defer cf.Close()

	rows, err := csv.NewReader(cf).ReadAll()
	assert.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.Equal(t, "id", rows[0][0])
	assert.Equal(t, "01HTEST", rows[1][0])
	assert.Equal(t, "ETHUSDT", rows[1][2])
	assert.Equal(t, "TakeProfit", rows[1][12])

	ef, err := os.Open(equityPath)
	assert.NoError(t, err)
	defer ef.Close()

	erows, err := csv.NewReader(ef).ReadAll()
	assert.NoError(t, err)
	assert.Len(t, erows, 2)
	assert.Equal(t, "time", erows[0][0])
}
