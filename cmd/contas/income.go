package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"contas/internal/cli"
	"contas/internal/core"
)

func incomeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "income",
		Short: "Manage incomes",
	}
	cmd.AddCommand(incomeAddCmd())
	return cmd
}

// parseMonthValues reads "month=amount" pairs, e.g. "jan=1500,00" or "3=99.90".
func parseMonthValues(pairs []string, paid bool) (core.Months, error) {
	ms := core.NewMonths()
	for _, p := range pairs {
		token, amount, ok := strings.Cut(p, "=")
		if !ok {
			return ms, fmt.Errorf("invalid month value %q: want month=amount", p)
		}
		m, err := core.ParseMonth(token)
		if err != nil {
			return ms, err
		}
		cents, err := core.ParseDecimalToCents(amount)
		if err != nil {
			return ms, fmt.Errorf("invalid amount %q: %w", amount, err)
		}
		if err := ms.Set(m, core.Cents(cents), paid); err != nil {
			return ms, err
		}
	}
	return ms, nil
}

func incomeAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create an income",
		Example: `  contas income add --source Salary --value jan=5000 --value feb=5000 --received`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			year, _ := cmd.Flags().GetInt("year")
			source, _ := cmd.Flags().GetString("source")
			desc, _ := cmd.Flags().GetString("description")
			values, _ := cmd.Flags().GetStringArray("value")
			received, _ := cmd.Flags().GetBool("received")

			months, err := parseMonthValues(values, received)
			if err != nil {
				return err
			}
			in := core.Income{
				Source:      core.IncomeSourceRef{Name: source},
				Year:        year,
				Description: desc,
				Months:      months,
			}
			return withApp(cmd, func(ctx context.Context, app *cli.App) error {
				created, err := app.Ledger.CreateIncome(ctx, in)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created income %d: %s %s\n",
					created.ID, created.Source.Name, core.CalculateIncome(created).Total)
				return nil
			})
		},
	}
	cmd.Flags().Int("year", time.Now().Year(), "income year")
	cmd.Flags().String("source", "", "income source")
	cmd.Flags().String("description", "", "description")
	cmd.Flags().StringArray("value", nil, "month=amount, repeatable")
	cmd.Flags().Bool("received", false, "mark the values as received")
	_ = cmd.MarkFlagRequired("source")
	return cmd
}
