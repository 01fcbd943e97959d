// Command contas imports bank statements into yearly bill ledgers and
// reports on them.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"contas/internal/cli"
	"contas/internal/config"
	"contas/internal/log"
	"contas/internal/statement"
)

var (
	version = "dev"
	rootCmd = &cobra.Command{
		Use:               "contas",
		Short:             "Expense ledger and statement reconciliation",
		SilenceUsage:      true,
		PersistentPreRunE: initConfig,
	}

	appConfig *config.Config
	logger    *log.Logger
)

func init() {
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "", "log format (text, json)")
	rootCmd.PersistentFlags().String("rules", "", "rules file with replaceWords and ignoreWords (default $RULES_FILE)")

	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))
	_ = viper.BindPFlag("rules", rootCmd.PersistentFlags().Lookup("rules"))

	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(summaryCmd())
	rootCmd.AddCommand(billCmd())
	rootCmd.AddCommand(expensesCmd())
	rootCmd.AddCommand(incomeCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(versionCmd())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initConfig(_ *cobra.Command, _ []string) error {
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		return err
	}
	if level := viper.GetString("logging.level"); level != "" {
		cfg.LogLevel = level
	}
	if format := viper.GetString("logging.format"); format != "" {
		cfg.LogFormat = format
	}
	if rules := viper.GetString("rules"); rules != "" {
		cfg.RulesFile = rules
	}

	l, err := cli.SetupLogger(cfg, os.Stderr)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	appConfig, logger = cfg, l.WithComponent(log.ComponentCLI)
	return nil
}

// withApp opens the ledger for the duration of fn.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, app *cli.App) error, opts ...statement.PipelineOption) error {
	ctx := cmd.Context()
	app, err := cli.Open(ctx, appConfig, logger, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := app.Close(); cerr != nil {
			logger.Warn("Failed to close backend", log.FieldError, cerr)
		}
	}()
	return fn(ctx, app)
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "contas %s\n", version)
		},
	}
}
