package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"contas/internal/cli"
	"contas/internal/core"
)

func billCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bill",
		Short: "Manage bills",
	}
	cmd.AddCommand(billAddCmd(), billListCmd(), billImportsCmd())
	return cmd
}

func billAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a bill",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			year, _ := cmd.Flags().GetInt("year")
			typ, _ := cmd.Flags().GetString("type")
			bank, _ := cmd.Flags().GetString("bank")
			code, _ := cmd.Flags().GetString("bank-code")
			group, _ := cmd.Flags().GetString("group")
			name, _ := cmd.Flags().GetString("name-code")

			bt, err := core.ParseBillType(typ)
			if err != nil {
				return err
			}
			b := core.Bill{
				Year:     year,
				Type:     bt,
				Bank:     core.BankRef{Name: bank, Code: code},
				Group:    core.GroupRef{Name: group},
				NameCode: name,
			}
			return withApp(cmd, func(ctx context.Context, app *cli.App) error {
				created, err := app.Ledger.CreateBill(ctx, b)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created bill %d: %s\n", created.ID, created.Title())
				return nil
			})
		},
	}
	cmd.Flags().Int("year", time.Now().Year(), "bill year")
	cmd.Flags().String("type", string(core.CreditCard), "PIX, BANK_SLIP, CREDIT_CARD or ACCOUNT_DEBIT")
	cmd.Flags().String("bank", "", "bank name")
	cmd.Flags().String("bank-code", "", "bank code")
	cmd.Flags().String("group", "", "group name")
	cmd.Flags().String("name-code", "", "short name of the bill")
	_ = cmd.MarkFlagRequired("bank")
	return cmd
}

func billListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the bills of a year",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			year, _ := cmd.Flags().GetInt("year")
			return withApp(cmd, func(ctx context.Context, app *cli.App) error {
				bills, err := app.Ledger.Bills(ctx, year)
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(bills))
				for _, b := range bills {
					s := core.CalculateAll(b.Expenses)
					rows = append(rows, []string{
						strconv.FormatInt(b.ID, 10),
						b.Title(),
						string(b.Type),
						b.Group.Name,
						strconv.Itoa(len(b.Expenses)),
						s.Total.String(),
						paidLabel(s.AllPaid),
					})
				}
				return writeTable(cmd.OutOrStdout(),
					[]string{"ID", "Bill", "Type", "Group", "Expenses", "Total", "Status"}, rows)
			})
		},
	}
	cmd.Flags().Int("year", time.Now().Year(), "bill year")
	return cmd
}

func billImportsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "imports <bill-id>",
		Short: "List the import batches of a bill",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			billID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid bill id %q", args[0])
			}
			return withApp(cmd, func(ctx context.Context, app *cli.App) error {
				batches, err := app.Ledger.Imports(ctx, billID)
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(batches))
				for _, b := range batches {
					rows = append(rows, []string{
						b.ID,
						b.CreatedAt.Format(time.DateTime),
						strconv.Itoa(b.FileCount),
						strconv.Itoa(b.ItemCount),
						strconv.Itoa(b.Ignored),
						strconv.Itoa(b.Replaced),
					})
				}
				return writeTable(cmd.OutOrStdout(),
					[]string{"Batch", "Created", "Files", "Items", "Ignored", "Replaced"}, rows)
			})
		},
	}
}
