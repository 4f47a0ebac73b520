package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gridbill/gridbill/internal/chart"
	"github.com/spf13/cobra"
)

var chartOut string

// chartCmd represents the chart command
var chartCmd = &cobra.Command{
	Use:   "chart <csv-file>",
	Short: "Render a usage/cost chart from an extraction CSV",
	Long: `Chart reads a CSV produced by the extract command and renders an
interactive HTML page: stacked tier units per billing period (or plain
metered usage when the invoices carry no tiers) with the grand total
overlaid on a second axis.

Rows without a chartable billing period are skipped and reported.

Example:
  gridbill chart invoices.csv
  gridbill chart invoices.csv --out ./reports`,
	Args: cobra.ExactArgs(1),
	RunE: runChart,
}

func init() {
	rootCmd.AddCommand(chartCmd)

	chartCmd.Flags().StringVar(&chartOut, "out", ".", "output directory for the HTML page")
}

func runChart(cmd *cobra.Command, args []string) error {
	csvPath := args[0]

	rows, skipped, err := chart.ReadRows(csvPath)
	if err != nil {
		return fmt.Errorf("read %s: %w", csvPath, err)
	}
	if skipped > 0 {
		fmt.Fprintf(os.Stderr, "Skipped %d rows without a chartable billing period\n", skipped)
	}

	if err := os.MkdirAll(chartOut, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	htmlPath := filepath.Join(chartOut, "usage_chart.html")
	if err := chart.WriteHTML(htmlPath, rows); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}

	fmt.Fprintf(os.Stderr, "✓ Charted %d billing periods: %s\n", len(rows), htmlPath)
	return nil
}
