package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"

	"contas/internal/core"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("4"))
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	paidStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	dueStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
)

// writeTable prints rows under a styled header, columns aligned.
func writeTable(out io.Writer, headers []string, rows [][]string) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	styled := make([]string, len(headers))
	rules := make([]string, len(headers))
	for i, h := range headers {
		styled[i] = headerStyle.Render(h)
		rules[i] = strings.Repeat("─", max(len(h), 4))
	}
	if _, err := fmt.Fprintln(w, strings.Join(styled, "\t")); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if _, err := fmt.Fprintln(w, strings.Join(rules, "\t")); err != nil {
		return fmt.Errorf("failed to write separator: %w", err)
	}
	for _, r := range rows {
		if _, err := fmt.Fprintln(w, strings.Join(r, "\t")); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	return w.Flush()
}

func paidLabel(paid bool) string {
	if paid {
		return paidStyle.Render("paid")
	}
	return dueStyle.Render("pending")
}

func summaryRow(title string, s core.Summary) []string {
	return []string{title, s.Total.String(), s.TotalPaid.String(), s.TotalPending.String(), paidLabel(s.AllPaid)}
}

var summaryHeaders = []string{"Group", "Total", "Paid", "Pending", "Status"}
