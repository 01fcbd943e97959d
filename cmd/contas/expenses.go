package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"contas/internal/cli"
	"contas/internal/core"
)

func expensesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "expenses <bill-id>",
		Short: "Show one page of a bill's expenses",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			billID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid bill id %q", args[0])
			}
			page, _ := cmd.Flags().GetInt("page")
			return withApp(cmd, func(ctx context.Context, app *cli.App) error {
				entry, err := app.Ledger.ExpensePage(ctx, billID, page)
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(entry.Results))
				for _, e := range entry.Results {
					t := core.Calculate(e)
					rows = append(rows, []string{
						strconv.FormatInt(e.ID, 10),
						e.Supplier.Name,
						string(e.Type),
						strconv.Itoa(len(e.Children)),
						t.Total.String(),
						t.TotalPending.String(),
						paidLabel(t.Paid),
					})
				}
				out := cmd.OutOrStdout()
				if err := writeTable(out,
					[]string{"ID", "Supplier", "Type", "Items", "Total", "Pending", "Status"}, rows); err != nil {
					return err
				}
				fmt.Fprintf(out, "\nPage %d of %d\n", page, entry.TotalPages)
				return nil
			})
		},
	}
	cmd.Flags().Int("page", 1, "page number")
	return cmd
}
