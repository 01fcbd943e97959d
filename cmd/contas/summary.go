package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"contas/internal/cli"
)

func summaryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show the year's totals, optionally grouped",
		Long: `Show the ledger totals of a year.

With --by the bills are grouped by bank, group, type or year, and one row
is printed per group in first-seen order.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			year, _ := cmd.Flags().GetInt("year")
			by, _ := cmd.Flags().GetString("by")
			return withApp(cmd, func(ctx context.Context, app *cli.App) error {
				out := cmd.OutOrStdout()
				if by != "" {
					groups, err := app.Ledger.Dashboard(ctx, year, by)
					if err != nil {
						return err
					}
					fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("%d by %s", year, by)))
					rows := make([][]string, 0, len(groups))
					for _, g := range groups {
						rows = append(rows, summaryRow(g.Title, g.Summary))
					}
					return writeTable(out, summaryHeaders, rows)
				}

				sum, err := app.Ledger.Summary(ctx, year)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("%d", year)))
				if err := writeTable(out, summaryHeaders, [][]string{
					summaryRow("Expenses", sum.Expenses),
					summaryRow("Incomes", sum.Incomes),
				}); err != nil {
					return err
				}
				fmt.Fprintf(out, "\nBalance: %s\n", sum.Balance)
				return nil
			})
		},
	}
	cmd.Flags().Int("year", time.Now().Year(), "ledger year")
	cmd.Flags().String("by", "", "group by bank, group, type or year")
	return cmd
}
