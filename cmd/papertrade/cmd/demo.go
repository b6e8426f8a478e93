package cmd

import (
	"github.com/spf13/cobra"

	"github.com/rustyeddy/papertrade/config"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run with simulated prices and no external connections",
	Long: `Run the engine against a random-walk price feed. Nothing leaves the
machine: no exchange connection, journaling disabled, state kept under
./demo-state.

Example:
  papertrade demo`,
	RunE: runDemo,
}

func init() {
	rootCmd.AddCommand(demoCmd)
}

func runDemo(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	cfg.Feed.Type = "randomwalk"
	cfg.Journal = config.JournalConfig{Type: "none"}
	cfg.Store.Dir = "./demo-state"
	cfg.Trading.TickInterval = "500ms"

	return runWithConfig(cfg)
}
