package main

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"contas/internal/cli"
	"contas/internal/core"
	"contas/internal/log"
	"contas/internal/services"
	"contas/internal/statement"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import [files...]",
		Short: "Import statement files into a bill",
		Long: `Import CSV, XLSX, XLS or OFX statements into the monthly ledger of a bill.

Each file fills one month. The month is taken from --month when given,
otherwise it is inferred from the file name.

Examples:
  # Two monthly exports, months inferred from the names
  contas import --bill 3 Nubank_2024-01-10.csv Nubank_2024-02-10.csv

  # Explicit months, marked as paid, with an audit workbook
  contas import --bill 3 --month jan --month feb --paid --audit audit.xlsx a.csv b.csv`,
		Args: cobra.MinimumNArgs(1),
		RunE: runImport,
	}
	cmd.Flags().Int64("bill", 0, "bill id to import into")
	cmd.Flags().StringSlice("month", nil, "month of each file, in order (name or 1-12)")
	cmd.Flags().Bool("paid", false, "mark the imported months as paid")
	cmd.Flags().String("audit", "", "write the imported items to this xlsx file")
	_ = cmd.MarkFlagRequired("bill")
	return cmd
}

// buildUploads reads the files and pairs each with its explicit month.
func buildUploads(paths, months []string, paid bool) ([]statement.UploadFile, error) {
	if len(months) > 0 && len(months) != len(paths) {
		return nil, fmt.Errorf("got %d months for %d files", len(months), len(paths))
	}
	files := make([]statement.UploadFile, 0, len(paths))
	for i, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", p, err)
		}
		f := statement.UploadFile{
			Index:    i,
			FileName: filepath.Base(p),
			MIMEType: mime.TypeByExtension(strings.ToLower(filepath.Ext(p))),
			Data:     data,
			Paid:     paid,
		}
		if len(months) > 0 {
			m, err := core.ParseMonth(months[i])
			if err != nil {
				return nil, err
			}
			f.Month = &m
		}
		files = append(files, f)
	}
	return files, nil
}

func runImport(cmd *cobra.Command, args []string) error {
	billID, _ := cmd.Flags().GetInt64("bill")
	months, _ := cmd.Flags().GetStringSlice("month")
	paid, _ := cmd.Flags().GetBool("paid")
	audit, _ := cmd.Flags().GetString("audit")

	files, err := buildUploads(args, months, paid)
	if err != nil {
		return err
	}
	rules, err := loadRules(appConfig.RulesFile, cmd.Flags().Changed("rules"))
	if err != nil {
		return err
	}

	bar := progressbar.NewOptions(len(files),
		progressbar.OptionSetWriter(cmd.ErrOrStderr()),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("Reading statements"),
		progressbar.OptionClearOnFinish(),
	)
	progress := statement.WithProgress(func(statement.UploadFile) { _ = bar.Add(1) })

	return withApp(cmd, func(ctx context.Context, app *cli.App) error {
		res, err := app.Ledger.ImportStatement(ctx, billID, files, rules)
		_ = bar.Finish()
		if err != nil {
			for _, hint := range monthHints(files, err) {
				fmt.Fprintln(cmd.ErrOrStderr(), hint)
			}
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("Imported batch %s", res.BatchID)))
		fmt.Fprintf(out, "  bill:      %d\n", res.BillID)
		fmt.Fprintf(out, "  files:     %d\n", len(files))
		fmt.Fprintf(out, "  items:     %d\n", len(res.Items))
		fmt.Fprintf(out, "  expenses:  %d\n", res.Expenses)
		fmt.Fprintf(out, "  ignored:   %d\n", res.Ignored)
		fmt.Fprintf(out, "  replaced:  %d\n", res.Replaced)
		fmt.Fprintf(out, "  months:    %s\n", monthList(res.Months()))

		if audit != "" {
			data, err := services.ExportImportAudit(res.Result)
			if err != nil {
				return err
			}
			if err := os.WriteFile(audit, data, 0o644); err != nil {
				return fmt.Errorf("failed to write audit: %w", err)
			}
			logger.Info("Audit workbook written", log.FieldFileName, audit)
		}
		return nil
	}, progress)
}

// monthHints lists the months still free for each file rejected for an
// unresolved or duplicate month.
func monthHints(files []statement.UploadFile, err error) []string {
	var hints []string
	var walk func(error)
	walk = func(err error) {
		if err == nil {
			return
		}
		if fe, ok := err.(*statement.FileError); ok {
			if errors.Is(fe.Err, statement.ErrUnresolvedMonth) || errors.Is(fe.Err, statement.ErrDuplicateMonth) {
				if fe.Index >= 0 && fe.Index < len(files) {
					hints = append(hints, fmt.Sprintf("%s: available months %s",
						fe.FileName, monthList(statement.AvailableMonths(files, fe.Index))))
				}
			}
			return
		}
		switch e := err.(type) {
		case interface{ Unwrap() []error }:
			for _, inner := range e.Unwrap() {
				walk(inner)
			}
		case interface{ Unwrap() error }:
			walk(e.Unwrap())
		}
	}
	walk(err)
	return hints
}

func monthList(ms []core.Month) string {
	names := make([]string, len(ms))
	for i, m := range ms {
		names[i] = m.Short()
	}
	return strings.Join(names, ", ")
}
