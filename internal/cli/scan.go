package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gridbill/gridbill/internal/pipeline"
	"github.com/gridbill/gridbill/internal/redact"
	"github.com/gridbill/gridbill/internal/render"
	"github.com/spf13/cobra"
)

var (
	scanFormat  string
	scanTimeout time.Duration
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan <file.pdf>",
	Short: "Extract a single invoice and print the record",
	Long: `Scan extracts one PDF invoice and prints the assembled record:
- Extract per-page text from the PDF
- Run the field matchers and assemble the record
- Redact sensitive fields unless explicitly shown
- Print the record as aligned text or JSON

Example:
  gridbill scan invoice.pdf
  gridbill scan invoice.pdf --format json
  gridbill scan invoice.pdf --show-customer-account --llm openai`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	// Output flags
	scanCmd.Flags().StringVar(&scanFormat, "format", "text", "output format (text, json)")

	// Privacy flags
	scanCmd.Flags().BoolVar(&showCustomerAccount, "show-customer-account", false, "include the customer account in the output")
	scanCmd.Flags().BoolVar(&showCustomerAddress, "show-customer-address", false, "include the customer address in the output")

	// Processing flags
	scanCmd.Flags().DurationVar(&scanTimeout, "timeout", 2*time.Minute, "overall scan timeout")
	scanCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the extracted-text cache")

	// LLM flags
	scanCmd.Flags().StringVar(&llmProvider, "llm", "", "LLM provider for filling missed fields (openai, ollama)")
	scanCmd.Flags().StringVar(&llmModel, "llm-model", "", "LLM model name")
}

func runScan(cmd *cobra.Command, args []string) error {
	path := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), scanTimeout)
	defer cancel()

	cfg := loadConfig()
	applySharedFlags(cfg)
	if err := applyLLMFlags(cfg); err != nil {
		return err
	}

	if cfg.Verbose {
		fmt.Fprintf(os.Stderr, "Scanning: %s\n", path)
		fmt.Fprintf(os.Stderr, "Cache: %v\n", cfg.Cache.Enabled)
		fmt.Fprintln(os.Stderr)
	}

	p := pipeline.NewPipeline(cfg)

	record, err := p.ExtractFile(ctx, path)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}
	record = redact.Apply(record, cfg.Privacy)

	switch scanFormat {
	case "text":
		return render.Text(os.Stdout, record)
	case "json":
		return render.JSON(os.Stdout, record)
	default:
		return fmt.Errorf("unknown format: %s (supported: text, json)", scanFormat)
	}
}
