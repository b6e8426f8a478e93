package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/papertrade/api"
	"github.com/rustyeddy/papertrade/config"
	"github.com/rustyeddy/papertrade/engine"
	"github.com/rustyeddy/papertrade/feed"
	"github.com/rustyeddy/papertrade/journal"
	"github.com/rustyeddy/papertrade/market"
	"github.com/rustyeddy/papertrade/notify"
	"github.com/rustyeddy/papertrade/store"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the trading engine and API server",
	Long: `Run the paper-trading engine against a live or simulated price feed
and serve the HTTP/websocket API.

Example:
  papertrade run --config config.yaml`,
	RunE: runRun,
}

var runConfigPath string

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runConfigPath, "config", "f", "", "path to config file (YAML or JSON)")
}

func loadConfig() (*config.Config, error) {
	if runConfigPath == "" {
		if path := os.Getenv("PAPERTRADE_CONFIG"); path != "" {
			runConfigPath = path
		}
	}
	if runConfigPath == "" {
		return config.Default(), nil
	}
	return config.LoadFromFile(runConfigPath)
}

func openJournal(cfg config.JournalConfig) (journal.Journal, error) {
	switch cfg.Type {
	case "csv":
		return journal.NewCSV(cfg.ClosesFile, cfg.EquityFile)
	case "sqlite":
		return journal.NewSQLite(cfg.DBPath)
	default:
		return journal.Noop{}, nil
	}
}

func buildFeed(cfg config.FeedConfig, tick time.Duration) feed.Feed {
	if cfg.Type == "randomwalk" {
		return feed.NewRandomWalk(cfg.Instruments, tick)
	}
	return feed.NewBinance(cfg.URL, cfg.Instruments)
}

func runRun(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	return runWithConfig(cfg)
}

func runWithConfig(cfg *config.Config) error {
	tick, err := cfg.Trading.ParseTickInterval()
	if err != nil {
		return fmt.Errorf("tick interval: %w", err)
	}

	j, err := openJournal(cfg.Journal)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer j.Close()

	st, err := store.NewFileStore(cfg.Store.Dir)
	if err != nil {
		return fmt.Errorf("open state store: %w", err)
	}

	prices := market.NewPriceStore()
	eng := engine.New(engine.Config{
		AccountID:        cfg.Account.ID,
		Currency:         cfg.Account.Currency,
		StartingBalance:  cfg.Account.StartingBalance,
		Spread:           cfg.Trading.Spread,
		CommissionRate:   cfg.Trading.CommissionRate,
		CommissionMin:    cfg.Trading.CommissionMin,
		LiquidationLevel: cfg.Trading.LiquidationLevel,
	}, prices, j, notify.Log{}, st)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go buildFeed(cfg.Feed, tick).Run(ctx, prices)
	go eng.Run(ctx, tick)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: api.NewServer(eng, prices).Router(),
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.WithFields(log.Fields{
		"addr":    cfg.Server.Addr,
		"feed":    cfg.Feed.Type,
		"account": cfg.Account.ID,
	}).Info("papertrade started")

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}
