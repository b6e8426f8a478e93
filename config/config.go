package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete engine configuration
type Config struct {
	Account AccountConfig `json:"account" yaml:"account"`
	Trading TradingConfig `json:"trading" yaml:"trading"`
	Feed    FeedConfig    `json:"feed" yaml:"feed"`
	Journal JournalConfig `json:"journal" yaml:"journal"`
	Store   StoreConfig   `json:"store" yaml:"store"`
	Server  ServerConfig  `json:"server" yaml:"server"`
}

// AccountConfig contains account initialization parameters
type AccountConfig struct {
	ID              string  `json:"id" yaml:"id"`
	Currency        string  `json:"currency" yaml:"currency"`
	StartingBalance float64 `json:"starting_balance" yaml:"starting_balance"`
}

// TradingConfig contains the cost model and risk thresholds
type TradingConfig struct {
	Spread           float64 `json:"spread" yaml:"spread"`                       // fractional, 0.0002 = 2 bps
	CommissionRate   float64 `json:"commission_rate" yaml:"commission_rate"`     // fractional, 0.0004 = 4 bps
	CommissionMin    float64 `json:"commission_min" yaml:"commission_min"`       // account currency
	LiquidationLevel float64 `json:"liquidation_level" yaml:"liquidation_level"` // percent
	TickInterval     string  `json:"tick_interval" yaml:"tick_interval"`         // e.g. "1s", "500ms"
}

// ParseTickInterval converts the tick interval string to time.Duration
func (t TradingConfig) ParseTickInterval() (time.Duration, error) {
	if t.TickInterval == "" {
		return time.Second, nil
	}
	return time.ParseDuration(t.TickInterval)
}

// FeedConfig selects the price feed and its instruments
type FeedConfig struct {
	Type        string   `json:"type" yaml:"type"` // "binance" or "randomwalk"
	Instruments []string `json:"instruments" yaml:"instruments"`
	URL         string   `json:"url,omitempty" yaml:"url,omitempty"`
}

// JournalConfig contains journaling parameters
type JournalConfig struct {
	Type       string `json:"type" yaml:"type"` // "csv", "sqlite" or "none"
	ClosesFile string `json:"closes_file,omitempty" yaml:"closes_file,omitempty"`
	EquityFile string `json:"equity_file,omitempty" yaml:"equity_file,omitempty"`
	DBPath     string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

// StoreConfig locates the state snapshot directory
type StoreConfig struct {
	Dir string `json:"dir" yaml:"dir"`
}

// ServerConfig contains the HTTP listener parameters
type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr"`
}

// LoadFromFile loads configuration from a file (JSON or YAML based on content)
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Account.Currency == "" {
		return fmt.Errorf("account.currency is required")
	}
	if c.Account.StartingBalance <= 0 {
		return fmt.Errorf("account.starting_balance must be positive")
	}
	if c.Trading.Spread < 0 {
		return fmt.Errorf("trading.spread must not be negative")
	}
	if c.Trading.CommissionRate < 0 || c.Trading.CommissionMin < 0 {
		return fmt.Errorf("trading commissions must not be negative")
	}
	if c.Trading.LiquidationLevel <= 0 {
		return fmt.Errorf("trading.liquidation_level must be positive")
	}
	if _, err := c.Trading.ParseTickInterval(); err != nil {
		return fmt.Errorf("trading.tick_interval: %w", err)
	}
	if c.Feed.Type != "binance" && c.Feed.Type != "randomwalk" {
		return fmt.Errorf("feed.type must be 'binance' or 'randomwalk'")
	}
	if len(c.Feed.Instruments) == 0 {
		return fmt.Errorf("feed.instruments must list at least one instrument")
	}
	switch c.Journal.Type {
	case "csv":
		if c.Journal.ClosesFile == "" || c.Journal.EquityFile == "" {
			return fmt.Errorf("journal closes_file and equity_file required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	case "none":
	default:
		return fmt.Errorf("journal.type must be 'csv', 'sqlite' or 'none'")
	}
	if c.Store.Dir == "" {
		return fmt.Errorf("store.dir is required")
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	return nil
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Account: AccountConfig{
			ID:              "SIM-001",
			Currency:        "USD",
			StartingBalance: 100000,
		},
		Trading: TradingConfig{
			Spread:           0.0002,
			CommissionRate:   0.0004,
			CommissionMin:    0.5,
			LiquidationLevel: 50,
			TickInterval:     "1s",
		},
		Feed: FeedConfig{
			Type:        "binance",
			Instruments: []string{"BTCUSDT", "ETHUSDT", "SOLUSDT"},
		},
		Journal: JournalConfig{
			Type:   "sqlite",
			DBPath: "./papertrade.db",
		},
		Store: StoreConfig{
			Dir: "./state",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
	}
}
