package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/papertrade/journal"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query the closed-trade journal",
	Long: `Query and display closed-trade records from the SQLite journal.

Subcommands:
  close    - Get details of a specific close by ID
  today    - List trades closed today
  day      - List trades closed on a specific day
  summary  - Profit factor and totals for a day range

Examples:
  papertrade journal close 01HV...
  papertrade journal today
  papertrade journal day 2026-08-28
  papertrade journal summary 2026-08-01 2026-08-29`,
}

var journalCloseCmd = &cobra.Command{
	Use:   "close <close-id>",
	Short: "Get details of a specific close",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalClose,
}

var journalTodayCmd = &cobra.Command{
	Use:   "today",
	Short: "List trades closed today",
	Args:  cobra.NoArgs,
	RunE:  runJournalToday,
}

var journalDayCmd = &cobra.Command{
	Use:   "day <YYYY-MM-DD>",
	Short: "List trades closed on a specific day",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalDay,
}

var journalSummaryCmd = &cobra.Command{
	Use:   "summary <from YYYY-MM-DD> <to YYYY-MM-DD>",
	Short: "Profit factor and totals for a day range",
	Args:  cobra.ExactArgs(2),
	RunE:  runJournalSummary,
}

var journalDBPath string

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalCloseCmd)
	journalCmd.AddCommand(journalTodayCmd)
	journalCmd.AddCommand(journalDayCmd)
	journalCmd.AddCommand(journalSummaryCmd)

	journalCmd.PersistentFlags().StringVarP(&journalDBPath, "db", "d", "./papertrade.db", "path to SQLite journal DB")
}

func openJournalDB() (*journal.SQLite, error) {
	return journal.NewSQLite(journalDBPath)
}

func printClose(rec journal.CloseRecord) {
	fmt.Printf("%s  %-8s %-5s  entry %.4f  exit %.4f  pl %+.2f (%.2f%%)  %s  closed %.1f%%\n",
		rec.CloseTime.Local().Format("2006-01-02 15:04:05"),
		rec.Instrument, rec.Side, rec.EntryPrice, rec.ExitPrice,
		rec.RealizedPL, rec.RealizedPct, rec.Reason, rec.ClosedPct)
}

func runJournalClose(cmd *cobra.Command, args []string) error {
	j, err := openJournalDB()
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	rec, err := j.GetClose(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Close %s (position %d)\n", rec.ID, rec.PositionID)
	printClose(rec)
	fmt.Printf("  notional $%.2f at %gx, margin $%.2f, units %.6f\n",
		rec.Notional, rec.Leverage, rec.Margin, rec.Units)
	fmt.Printf("  opened %s\n", rec.OpenTime.Local().Format("2006-01-02 15:04:05"))
	return nil
}

func listDay(day time.Time) error {
	j, err := openJournalDB()
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	recs, err := j.ListClosesBetween(start, start.AddDate(0, 0, 1))
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Println("no closed trades")
		return nil
	}
	for _, rec := range recs {
		printClose(rec)
	}
	return nil
}

func runJournalToday(cmd *cobra.Command, args []string) error {
	return listDay(time.Now())
}

func runJournalDay(cmd *cobra.Command, args []string) error {
	day, err := time.ParseInLocation("2006-01-02", args[0], time.Local)
	if err != nil {
		return fmt.Errorf("parse day: %w", err)
	}
	return listDay(day)
}

func runJournalSummary(cmd *cobra.Command, args []string) error {
	from, err := time.ParseInLocation("2006-01-02", args[0], time.Local)
	if err != nil {
		return fmt.Errorf("parse from: %w", err)
	}
	to, err := time.ParseInLocation("2006-01-02", args[1], time.Local)
	if err != nil {
		return fmt.Errorf("parse to: %w", err)
	}

	j, err := openJournalDB()
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	sum, err := j.Summarize(from, to.AddDate(0, 0, 1))
	if err != nil {
		return err
	}

	fmt.Printf("closes: %d\n", sum.Closes)
	fmt.Printf("gross profit: %+.2f\n", sum.GrossProfit)
	fmt.Printf("gross loss:   %+.2f\n", sum.GrossLoss)
	fmt.Printf("net P/L:      %+.2f\n", sum.NetPL)
	fmt.Printf("profit factor: %.2f\n", sum.ProfitFactor)
	return nil
}
