package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"contas/internal/cli"
	"contas/internal/log"
)

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a year's ledger as an xlsx workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			year, _ := cmd.Flags().GetInt("year")
			output, _ := cmd.Flags().GetString("output")
			if output == "" {
				output = fmt.Sprintf("contas-%d.xlsx", year)
			}
			return withApp(cmd, func(ctx context.Context, app *cli.App) error {
				data, err := app.Ledger.ExportWorkbook(ctx, year)
				if err != nil {
					return err
				}
				if err := os.WriteFile(output, data, 0o644); err != nil {
					return fmt.Errorf("failed to write %s: %w", output, err)
				}
				logger.Info("Workbook written", log.FieldFileName, output, log.FieldYear, year)
				fmt.Fprintln(cmd.OutOrStdout(), output)
				return nil
			})
		},
	}
	cmd.Flags().Int("year", time.Now().Year(), "ledger year")
	cmd.Flags().StringP("output", "o", "", "output file (default contas-<year>.xlsx)")
	return cmd
}
