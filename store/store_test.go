package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rustyeddy/papertrade/engine"
)

func TestStateRoundTrip(t *testing.T) {
	t.Parallel()

	s, err := NewFileStore(t.TempDir())
	assert.NoError(t, err)

	acct := engine.Account{
		Balance: 99_998,
		Positions: []*engine.Position{{
			ID: 1, Instrument: "BTCUSDT", Side: engine.Long,
			EntryPrice: 50_010, NotionalUSD: 5000, Leverage: 5,
			MarginUsed: 1000, Units: 0.0999, OpenedAt: time.Now().UTC(),
		}},
		NextPositionID: 2,
		NextOrderID:    1,
	}
	assert.NoError(t, s.SaveState(acct))

	got, ok, err := s.LoadState()
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, acct.Balance, got.Balance)
	assert.Len(t, got.Positions, 1)
	assert.Equal(t, "BTCUSDT", got.Positions[0].Instrument)
	assert.Equal(t, int64(2), got.NextPositionID)
}

func TestLoadMissingReportsNotOK(t *testing.T) {
	t.Parallel()

	s, err := NewFileStore(t.TempDir())
	assert.NoError(t, err)

	_, ok, err := s.LoadState()
	assert.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = s.LoadAlerts()
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestKeyMismatchReadsAsNoSnapshot(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s, err := NewFileStore(dir)
	assert.NoError(t, err)

	stale, err := json.Marshal(envelope{Key: "pt_state_orders_v3", Data: json.RawMessage(`{"balance": 1}`)})
	assert.NoError(t, err)
	assert.NoError(t, os.WriteFile(filepath.Join(dir, stateFile), stale, 0o644))

	_, ok, err := s.LoadState()
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestAlertsRoundTrip(t *testing.T) {
	t.Parallel()

	s, err := NewFileStore(t.TempDir())
	assert.NoError(t, err)

	alerts := []engine.Alert{
		{Instrument: "BTCUSDT", Condition: engine.Above, Threshold: 60_000, Repeat: engine.Once},
		{Instrument: "ETHUSDT", Condition: engine.Below, Threshold: 2500, Repeat: engine.Repeat},
	}
	assert.NoError(t, s.SaveAlerts(alerts))

	got, ok, err := s.LoadAlerts()
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, alerts, got)
}

func TestCorruptEnvelopeSurfacesError(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s, err := NewFileStore(dir)
	assert.NoError(t, err)

	assert.NoError(t, os.WriteFile(filepath.Join(dir, stateFile), []byte("{not json"), 0o644))

	_, ok, err := s.LoadState()
	assert.Error(t, err)
	assert.False(t, ok)
}
