package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/irishask/financial-ai-agent/internal/cli"
	"github.com/irishask/financial-ai-agent/internal/config"
)

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <ledger.csv>",
		Short: "Import transactions from a ledger CSV",
		Long: `Imports a transaction ledger CSV into the local database. Dates are
read as dd/mm/yyyy. Re-importing the same file is safe: rows are keyed by
transaction id and replaced in place.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer func() { _ = store.Close() }()

			count, err := store.ImportCSV(ctx, config.ExpandPath(args[0]))
			if err != nil {
				return fmt.Errorf("import failed: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Imported %d transactions", count)))
			return nil
		},
	}
}
