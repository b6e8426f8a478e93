package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "papertrade",
	Short: "A margin paper-trading engine with live crypto prices",
	Long: `Papertrade simulates a leveraged trading account against live market
prices without risking real funds.

It provides:
  - Market, limit and stop orders with per-position stop loss and take profit
  - Margin accounting with automatic liquidation below the maintenance level
  - Price alerts and a persistent closed-trade history
  - An HTTP and websocket API for dashboards
  - Trade and equity journaling to SQLite or CSV

Complete documentation is available at https://github.com/rustyeddy/papertrade`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}
