/*
main.go - financtl, the operational CLI

PURPOSE:
  Command-line access to the two operations an administrator runs outside
  the dashboard: the balance audit and the cash closure. Both talk straight
  to the SQLite database, so they work even when the server is down.

COMMANDS:
  financtl audit                 Run the balance audit and print the report
  financtl close --from --to     Generate a cash closure snapshot

EXAMPLES:
  financtl audit --db ./data/orderdesk.db
  financtl close --from 2026-08-01 --to 2026-08-31 --by admin

SEE ALSO:
  - finance/audit.go: the audit itself
  - finance/closure.go: snapshot construction
*/
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vantage/order-engine/finance"
	"github.com/vantage/order-engine/store/sqlite"
)

var dbPath string

var rootCmd = &cobra.Command{
	Use:   "financtl",
	Short: "Operational CLI for the order finance engine",
	Long: `financtl runs the balance audit and cash closures directly against
the database, without going through the HTTP API.`,
	SilenceUsage: true,
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Compare stored account balances against the ledger",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := sqlite.New(dbPath)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer store.Close()

		report, err := finance.NewAuditor(store, store).Run(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("%-12s %-24s %-6s %12s %12s %12s\n",
			"ACCOUNT", "NAME", "TYPE", "REPORTED", "CALCULATED", "DIFF")
		for _, row := range report.Rows {
			marker := ""
			if row.Discrepant {
				marker = "  <-- DRIFT"
			}
			fmt.Printf("%-12s %-24s %-6s %12s %12s %12s%s\n",
				row.AccountID, row.AccountName, row.Type,
				row.Reported.StringFixed(2), row.Calculated.StringFixed(2),
				row.Difference.StringFixed(2), marker)
		}

		if report.HasDiscrepancies() {
			return fmt.Errorf("%d account(s) out of balance", report.Discrepancies)
		}
		fmt.Printf("\nall %d accounts in balance\n", len(report.Rows))
		return nil
	},
}

var (
	closeFrom  string
	closeTo    string
	closeNotes string
	closeBy    string
)

var closeCmd = &cobra.Command{
	Use:   "close",
	Short: "Generate a cash closure snapshot for a date range",
	RunE: func(cmd *cobra.Command, args []string) error {
		from, err := time.Parse("2006-01-02", closeFrom)
		if err != nil {
			return fmt.Errorf("invalid --from (want YYYY-MM-DD): %w", err)
		}
		to, err := time.Parse("2006-01-02", closeTo)
		if err != nil {
			return fmt.Errorf("invalid --to (want YYYY-MM-DD): %w", err)
		}
		if to.Before(from) {
			return fmt.Errorf("--to must not precede --from")
		}

		store, err := sqlite.New(dbPath)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer store.Close()

		svc := finance.NewClosureService(store, store, store)
		snap, err := svc.Close(cmd.Context(), from, to, closeNotes, closeBy)
		if err != nil {
			return err
		}

		fmt.Printf("closure %s  (%s .. %s)\n", snap.ID, closeFrom, closeTo)
		fmt.Printf("  income:   %s\n", snap.TotalIncome.StringFixed(2))
		fmt.Printf("  expense:  %s\n", snap.TotalExpense.StringFixed(2))
		fmt.Printf("  net:      %s\n", snap.Net.StringFixed(2))
		fmt.Printf("  initial payments: %s\n", snap.IncomeBySource.InitialPayments.StringFixed(2))
		fmt.Printf("  later payments:   %s\n", snap.IncomeBySource.LaterPayments.StringFixed(2))
		for _, a := range snap.Accounts {
			fmt.Printf("  %-24s movement %12s  reported %12s\n",
				a.AccountName, a.Movement.StringFixed(2), a.Reported.StringFixed(2))
		}
		fmt.Printf("  movements: %d\n", len(snap.Movements))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "./data/orderdesk.db", "SQLite database path")

	closeCmd.Flags().StringVar(&closeFrom, "from", "", "start date (YYYY-MM-DD)")
	closeCmd.Flags().StringVar(&closeTo, "to", "", "end date (YYYY-MM-DD)")
	closeCmd.Flags().StringVar(&closeNotes, "notes", "", "closure notes")
	closeCmd.Flags().StringVar(&closeBy, "by", "", "who generated the closure")
	closeCmd.MarkFlagRequired("from")
	closeCmd.MarkFlagRequired("to")

	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(closeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
