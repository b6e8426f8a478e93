// Package store persists engine state as JSON snapshots on disk. Each
// snapshot is wrapped in a versioned envelope; a key mismatch after an
// incompatible schema change reads back as "no snapshot" and the engine
// starts from defaults instead of loading garbage.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rustyeddy/papertrade/engine"
)

const (
	stateKey  = "pt_state_orders_v4"
	alertsKey = "pt_alerts_v1"

	stateFile  = "state.json"
	alertsFile = "alerts.json"
)

type envelope struct {
	Key  string          `json:"key"`
	Data json.RawMessage `json:"data"`
}

// FileStore implements engine.Persister over a directory of JSON files.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// save writes atomically: marshal to a temp file, then rename over the
// target so a crash mid-write never leaves a torn snapshot.
func (s *FileStore) save(file, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	raw, err := json.MarshalIndent(envelope{Key: key, Data: data}, "", "  ")
	if err != nil {
		return err
	}

	path := filepath.Join(s.dir, file)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (s *FileStore) load(file, key string, v any) (bool, error) {
	raw, err := os.ReadFile(filepath.Join(s.dir, file))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return false, fmt.Errorf("decode %s: %w", file, err)
	}
	if env.Key != key {
		return false, nil
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		return false, fmt.Errorf("decode %s payload: %w", file, err)
	}
	return true, nil
}

func (s *FileStore) SaveState(a engine.Account) error {
	return s.save(stateFile, stateKey, a)
}

func (s *FileStore) LoadState() (engine.Account, bool, error) {
	var a engine.Account
	ok, err := s.load(stateFile, stateKey, &a)
	return a, ok, err
}

func (s *FileStore) SaveAlerts(alerts []engine.Alert) error {
	return s.save(alertsFile, alertsKey, alerts)
}

func (s *FileStore) LoadAlerts() ([]engine.Alert, bool, error) {
	var alerts []engine.Alert
	ok, err := s.load(alertsFile, alertsKey, &alerts)
	return alerts, ok, err
}
