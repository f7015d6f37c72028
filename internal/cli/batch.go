package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
	"unicode"

	"github.com/spf13/cobra"

	"github.com/ppiankov/factcheck/internal/report"
	"github.com/ppiankov/factcheck/internal/store"
	"github.com/ppiankov/factcheck/internal/worker"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Fact-check many texts from a file in parallel",
	Long: `Batch checks every line of a file as an independent text:
- Read inputs from the file (one per line, blank and # lines skipped)
- Run independent fact-checks concurrently
- Write a JSON and a Markdown report for each input

Example:
  factcheck batch claims.txt
  factcheck batch claims.txt --concurrency 4 --output-dir ./reports
  factcheck batch claims.txt --budget 20 --timeout 30m`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", max(1, runtime.NumCPU()/2), "number of concurrent runs")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./factcheck-reports", "output directory for reports")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 30*time.Minute, "total timeout for batch processing")

	batchCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the tool result cache")
	batchCmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in Markdown reports")
	batchCmd.Flags().StringVar(&llmProvider, "llm-provider", "", "LLM provider (openai, anthropic, gemini, ollama)")
	batchCmd.Flags().StringVar(&llmModel, "llm-model", "", "LLM model name")
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]
	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	cfg, err := buildConfig()
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  factcheck batch\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", concurrency)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)
	fmt.Fprintf(os.Stderr, "  LLM:          %s/%s\n", cfg.LLM.Provider, cfg.LLM.Model)
	fmt.Fprintf(os.Stderr, "\n")

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	a, err := newApp(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	processor := worker.NewBatchProcessor(a.orch, concurrency)
	results, err := processor.ProcessFile(ctx, file)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	renderer := report.NewRenderer(cfg.Output.IncludeFooter)
	successCount := 0
	failureCount := 0

	for _, result := range results {
		label := store.Preview(result.Input, 60)
		if result.Error != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", label, result.Error)
			continue
		}

		base := filepath.Join(outputDir, reportName(result.Index, result.Input))
		if err := renderer.RenderJSON(result.Report, base+".json"); err != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: failed to write JSON: %v\n", label, err)
			continue
		}
		if err := renderer.RenderMarkdown(result.Report, base+".md"); err != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: failed to write Markdown: %v\n", label, err)
			continue
		}

		successCount++
		s := result.Report.Summary
		fmt.Fprintf(os.Stderr, "✓ %s (%s, factuality %.2f)\n", label, s.Verdict, s.Factuality)
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d inputs\n", len(results))
	fmt.Fprintf(os.Stderr, "  Success:   %d\n", successCount)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", failureCount)
	fmt.Fprintf(os.Stderr, "  Output:    %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "\n")

	if failureCount > 0 && successCount == 0 {
		return fmt.Errorf("all %d inputs failed", failureCount)
	}
	return nil
}

// reportName builds a file name from the input position and its first words
func reportName(index int, input string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(input) {
		if b.Len() >= 48 {
			break
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	slug := strings.TrimRight(b.String(), "-")
	if slug == "" {
		slug = "input"
	}
	return fmt.Sprintf("%03d-%s", index+1, slug)
}
