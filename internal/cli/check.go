package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ppiankov/factcheck/internal/model"
	"github.com/ppiankov/factcheck/internal/pipeline"
	"github.com/ppiankov/factcheck/internal/report"
)

var (
	inputFile   string
	outJSON     string
	outMD       string
	timeout     time.Duration
	noCache     bool
	noFooter    bool
	llmProvider string
	llmModel    string
	runFlags    runOptionFlags
)

// runOptionFlags are the per-run knobs shared by check and batch
type runOptionFlags struct {
	workers  int
	high     int
	medium   int
	low      int
	budget   int
	deadline time.Duration
}

func (f *runOptionFlags) register(fs *pflag.FlagSet) {
	fs.IntVar(&f.workers, "workers", 0, "concurrent research workers (0 = config)")
	fs.IntVar(&f.high, "quota-high", 0, "tool-call quota for high priority questions (0 = config)")
	fs.IntVar(&f.medium, "quota-medium", 0, "tool-call quota for medium priority questions (0 = config)")
	fs.IntVar(&f.low, "quota-low", 0, "tool-call quota for low priority questions (0 = config)")
	fs.IntVar(&f.budget, "budget", 0, "total tool-call budget for a run (0 = sum of question quotas)")
	fs.DurationVar(&f.deadline, "deadline", 0, "run deadline (0 = config)")
}

// options builds RunOptions. Unset quota tiers fall back to cfg so a single
// --quota-* flag can be given alone.
func (f *runOptionFlags) options(cfg *model.Config) pipeline.RunOptions {
	opts := pipeline.RunOptions{
		Workers:  f.workers,
		Budget:   f.budget,
		Deadline: f.deadline,
	}
	if f.high != 0 || f.medium != 0 || f.low != 0 {
		q := cfg.Research.Quotas
		if f.high != 0 {
			q.High = f.high
		}
		if f.medium != 0 {
			q.Medium = f.medium
		}
		if f.low != 0 {
			q.Low = f.low
		}
		opts.Quotas = q
	}
	return opts
}

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check [text]",
	Short: "Fact-check a piece of text",
	Long: `Check decomposes the text into claims, researches them and prints a verdict
for every claim.

The text is taken from the argument, from --file, or from stdin when neither
is given (or the argument is "-").

Example:
  factcheck check "The Eiffel Tower is in Paris and was completed in 1889."
  factcheck check --file article.txt --json report.json --md report.md
  echo "Water boils at 100C at sea level." | factcheck check --json -`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	// Input and output flags
	checkCmd.Flags().StringVarP(&inputFile, "file", "f", "", "read the text from a file")
	checkCmd.Flags().StringVar(&outJSON, "json", "", `output JSON path ("-" for stdout)`)
	checkCmd.Flags().StringVar(&outMD, "md", "", "output Markdown path")
	checkCmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in Markdown reports")

	// Runtime flags
	checkCmd.Flags().DurationVar(&timeout, "timeout", 10*time.Minute, "overall timeout for the run")
	checkCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the tool result cache")
	checkCmd.Flags().StringVar(&llmProvider, "llm-provider", "", "LLM provider (openai, anthropic, gemini, ollama)")
	checkCmd.Flags().StringVar(&llmModel, "llm-model", "", "LLM model name")
	runFlags.register(checkCmd.Flags())
}

// buildConfig loads configuration and applies the command line overrides
func buildConfig() (*model.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if llmProvider != "" {
		cfg.LLM.Provider = llmProvider
	}
	if llmModel != "" {
		cfg.LLM.Model = llmModel
	}
	if noCache {
		cfg.Cache.Enabled = false
	}
	if noFooter {
		cfg.Output.IncludeFooter = false
	}
	cfg.Output.Verbose = cfg.Output.Verbose || verbose
	return cfg, nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	text, err := readInput(args, inputFile, cmd.InOrStdin())
	if err != nil {
		return err
	}

	cfg, err := buildConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	a, err := newApp(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	if verbose {
		fmt.Fprintf(os.Stderr, "Checking %d characters with %s/%s\n", len(text), a.provider.Name(), cfg.LLM.Model)
	}

	rep, err := a.orch.Run(ctx, text, runFlags.options(cfg))
	if err != nil {
		var fatal *model.FatalPipelineError
		if errors.As(err, &fatal) {
			return fmt.Errorf("check failed during %s: %w", fatal.Stage, fatal.Err)
		}
		return fmt.Errorf("check failed: %w", err)
	}

	return writeOutputs(cmd.OutOrStdout(), rep, cfg.Output.IncludeFooter, outJSON, outMD)
}

// writeOutputs prints the summary and writes the requested report files
func writeOutputs(w io.Writer, rep *model.Report, footer bool, jsonPath, mdPath string) error {
	renderer := report.NewRenderer(footer)

	if jsonPath == "-" {
		data, err := report.Marshal(rep)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}

	renderer.RenderSummary(w, rep)
	printVerdicts(w, rep)
	if jsonPath != "" {
		if err := renderer.RenderJSON(rep, jsonPath); err != nil {
			return fmt.Errorf("render failed: %w", err)
		}
		fmt.Fprintf(os.Stderr, "✓ JSON report: %s\n", jsonPath)
	}
	if mdPath != "" {
		if err := renderer.RenderMarkdown(rep, mdPath); err != nil {
			return fmt.Errorf("render failed: %w", err)
		}
		fmt.Fprintf(os.Stderr, "✓ Markdown report: %s\n", mdPath)
	}
	return nil
}

func printVerdicts(w io.Writer, rep *model.Report) {
	text := make(map[string]string, len(rep.Claims))
	for _, c := range rep.Claims {
		text[c.ID] = c.Text
	}
	fmt.Fprintln(w)
	for _, v := range rep.Verdicts {
		fmt.Fprintf(w, "%-4s %-18s %s\n", v.ClaimID, v.Outcome, text[v.ClaimID])
	}
}

// readInput resolves the text to check from args, a file or stdin
func readInput(args []string, file string, stdin io.Reader) (string, error) {
	var text string
	switch {
	case file != "":
		if len(args) > 0 {
			return "", errors.New("give the text either as an argument or with --file, not both")
		}
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read input: %w", err)
		}
		text = string(data)
	case len(args) == 1 && args[0] != "-":
		text = args[0]
	default:
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		text = string(data)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", model.ErrEmptyInput
	}
	return text, nil
}
