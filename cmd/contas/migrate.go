package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"contas/internal/storage"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if appConfig.DataBackend != "sqlite" {
				return fmt.Errorf("migrate needs the sqlite backend, got %s", appConfig.DataBackend)
			}
			if err := storage.RunMigrations(appConfig.SQLiteDBPath); err != nil {
				return err
			}
			v, dirty, err := storage.MigrationVersion(appConfig.SQLiteDBPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Schema version %d", v)
			if dirty {
				fmt.Fprint(cmd.OutOrStdout(), " (dirty)")
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	}
}
