package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"codeatlas/internal/evidence"
)

var ledgerLimit int

// ledgerCmd inspects the workspace's evidence ledger.
var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Inspect the append-only evidence ledger",
}

var ledgerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List evidence records in append order",
	RunE:  runLedgerList,
}

var ledgerShowCmd = &cobra.Command{
	Use:   "show [record-id]",
	Short: "Show a single evidence record",
	Args:  cobra.ExactArgs(1),
	RunE:  runLedgerShow,
}

func init() {
	ledgerListCmd.Flags().IntVar(&ledgerLimit, "limit", 50, "Maximum records to list")
	ledgerCmd.AddCommand(ledgerListCmd)
	ledgerCmd.AddCommand(ledgerShowCmd)
}

func openLedger() (*evidence.SQLiteLedger, error) {
	rt, err := newRuntime()
	if err != nil {
		return nil, err
	}
	ledger, ok := rt.ledger.(*evidence.SQLiteLedger)
	if !ok {
		rt.Close()
		return nil, fmt.Errorf("ledger inspection requires the sqlite driver (configured: %s)", rt.cfg.Ledger.Driver)
	}
	return ledger, nil
}

func runLedgerList(cmd *cobra.Command, args []string) error {
	ledger, err := openLedger()
	if err != nil {
		return err
	}
	defer ledger.Close()

	ctx, cancel := commandContext()
	defer cancel()

	records, err := ledger.List(ctx, ledgerLimit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("ledger is empty")
		return nil
	}
	for _, rec := range records {
		fmt.Printf("%s  %-20s %s\n", rec.Timestamp.Format("2006-01-02 15:04:05"), rec.Kind, rec.ID)
	}
	return nil
}

func runLedgerShow(cmd *cobra.Command, args []string) error {
	ledger, err := openLedger()
	if err != nil {
		return err
	}
	defer ledger.Close()

	ctx, cancel := commandContext()
	defer cancel()

	rec, err := ledger.Get(ctx, args[0])
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
