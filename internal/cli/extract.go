package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gridbill/gridbill/internal/model"
	"github.com/gridbill/gridbill/internal/pipeline"
	"github.com/gridbill/gridbill/internal/render"
	"github.com/gridbill/gridbill/internal/worker"
	"github.com/spf13/cobra"
)

var (
	outDir       string
	csvName      string
	concurrency  int
	batchTimeout time.Duration

	// Shared with the scan command
	showCustomerAccount bool
	showCustomerAddress bool
	noCache             bool
	llmProvider         string
	llmModel            string
)

// extractCmd represents the extract command
var extractCmd = &cobra.Command{
	Use:   "extract <input-dir>",
	Short: "Extract invoice records from a directory of PDFs into one CSV",
	Long: `Extract processes every PDF directly inside a directory:
- Extract per-page text from each PDF
- Run the field matchers and assemble one invoice record per file
- Redact sensitive fields unless explicitly shown
- Write every record to a single CSV, one row per file

A file that cannot be read or whose required fields are missing becomes a
failed row in the CSV; it never aborts the batch.

Example:
  gridbill extract ./invoices
  gridbill extract ./invoices --out ./reports --concurrency 4
  gridbill extract ./invoices --show-customer-account
  gridbill extract ./invoices --llm openai --llm-model gpt-4o-mini`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	// Output flags
	extractCmd.Flags().StringVar(&outDir, "out", ".", "output directory for the CSV")
	extractCmd.Flags().StringVar(&csvName, "csv-name", "", "CSV file name (default: invoices.csv)")

	// Privacy flags
	extractCmd.Flags().BoolVar(&showCustomerAccount, "show-customer-account", false, "include the customer account in the output")
	extractCmd.Flags().BoolVar(&showCustomerAddress, "show-customer-address", false, "include the customer address in the output")

	// Processing flags
	extractCmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of concurrent workers (default: from config)")
	extractCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")
	extractCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the extracted-text cache")

	// LLM flags
	extractCmd.Flags().StringVar(&llmProvider, "llm", "", "LLM provider for filling missed fields (openai, ollama)")
	extractCmd.Flags().StringVar(&llmModel, "llm-model", "", "LLM model name")
}

func runExtract(cmd *cobra.Command, args []string) error {
	inputDir := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	cfg := loadConfig()
	applySharedFlags(cfg)
	if concurrency > 0 {
		cfg.Concurrency = concurrency
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if csvName != "" {
		cfg.CSVName = csvName
	}
	if err := applyLLMFlags(cfg); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Gridbill Batch Extraction\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input dir:    %s\n", inputDir)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", cfg.Concurrency)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", outDir)
	if cfg.LLM.Provider != "" {
		fmt.Fprintf(os.Stderr, "  LLM:          %s/%s\n", cfg.LLM.Provider, cfg.LLM.Model)
	}
	fmt.Fprintf(os.Stderr, "\n")

	// Create output directory
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	// Create pipeline and batch processor
	p := pipeline.NewPipeline(cfg)
	processor := worker.NewBatchProcessor(p, cfg.Privacy, cfg.Concurrency)

	// Process the directory; an unreadable directory is fatal for the run
	results, err := processor.ProcessDirectory(ctx, inputDir)
	if err != nil {
		return fmt.Errorf("process directory %s: %w", inputDir, err)
	}
	if len(results) == 0 {
		return fmt.Errorf("no PDF files found in %s", inputDir)
	}

	// Per-file status lines
	counts := map[model.ExtractionStatus]int{}
	unusable := 0
	for _, result := range results {
		if result.Err != nil {
			unusable++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", filepath.Base(result.Path), result.Err)
			continue
		}
		rec := result.Record
		counts[rec.Status]++
		switch rec.Status {
		case model.StatusFailed:
			unusable++
			fmt.Fprintf(os.Stderr, "✗ %s: failed, missing %s\n", rec.SourceFile, joinMissing(rec.MissingFields))
		case model.StatusPartial:
			fmt.Fprintf(os.Stderr, "✓ %s: partial, %d fields, missing %s\n", rec.SourceFile, len(rec.Fields), joinMissing(rec.MissingFields))
		default:
			fmt.Fprintf(os.Stderr, "✓ %s: complete, %d fields\n", rec.SourceFile, len(rec.Fields))
		}
	}

	// Write the CSV; failed files appear as error rows rather than vanishing
	csvPath := filepath.Join(outDir, cfg.CSVName)
	if err := render.WriteCSVFile(csvPath, results, cfg.Privacy); err != nil {
		return fmt.Errorf("write CSV: %w", err)
	}

	// Summary
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d files\n", len(results))
	fmt.Fprintf(os.Stderr, "  Complete:  %d\n", counts[model.StatusComplete])
	fmt.Fprintf(os.Stderr, "  Partial:   %d\n", counts[model.StatusPartial])
	fmt.Fprintf(os.Stderr, "  Failed:    %d\n", unusable)
	fmt.Fprintf(os.Stderr, "  Output:    %s\n", csvPath)
	fmt.Fprintf(os.Stderr, "\n")

	// Outputs are written either way; the exit code reports unusable files
	if unusable > 0 {
		return fmt.Errorf("%d of %d files produced no usable record", unusable, len(results))
	}
	return nil
}

// applySharedFlags folds the privacy and cache flags into the configuration.
// Flags only switch features on top of the config file; they never silently
// re-enable something the file disabled.
func applySharedFlags(cfg *model.Config) {
	if showCustomerAccount {
		cfg.Privacy.ShowCustomerAccount = true
	}
	if showCustomerAddress {
		cfg.Privacy.ShowCustomerAddress = true
	}
	if noCache {
		cfg.Cache.Enabled = false
	}
}

// applyLLMFlags configures the optional LLM fill, pulling API keys from the
// environment when the config file carries none.
func applyLLMFlags(cfg *model.Config) error {
	if llmProvider != "" {
		cfg.LLM.Provider = llmProvider
	}
	if llmModel != "" {
		cfg.LLM.Model = llmModel
	}
	if cfg.LLM.Provider == "" {
		return nil
	}

	switch strings.ToLower(cfg.LLM.Provider) {
	case "openai":
		if cfg.LLM.APIKey == "" {
			cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		}
		if cfg.LLM.APIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY environment variable not set")
		}
	case "ollama":
		// Ollama doesn't need an API key
		if cfg.LLM.BaseURL == "" {
			cfg.LLM.BaseURL = os.Getenv("OLLAMA_BASE_URL")
		}
	}
	return nil
}

func joinMissing(fields []model.Field) string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}
