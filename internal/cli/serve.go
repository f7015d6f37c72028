package cli

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ppiankov/factcheck/internal/server"
)

var serveAddr string

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve fact-checks over HTTP",
	Long: `Serve starts an HTTP endpoint:

  POST /v1/check      {"text": "...", "workers": 4, "quotas": {"high": 6, "medium": 3, "low": 1},
                       "budget": 20, "deadline_ms": 120000}
  GET  /v1/runs       recent runs (requires store.path)
  GET  /v1/runs/:id   one archived report (requires store.path)
  GET  /healthz
  GET  /metrics       Prometheus metrics

Example:
  factcheck serve --addr :8080`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default: server.addr from config)")
	serveCmd.Flags().StringVar(&llmProvider, "llm-provider", "", "LLM provider (openai, anthropic, gemini, ollama)")
	serveCmd.Flags().StringVar(&llmModel, "llm-model", "", "LLM model name")
	serveCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the tool result cache")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := server.NewMetrics()
	a, err := newApp(ctx, cfg, metrics)
	if err != nil {
		return err
	}
	defer a.Close()

	opts := server.Options{
		Addr:    cfg.Server.Addr,
		Metrics: metrics,
		Logger:  slog.Default(),
	}
	if a.store != nil {
		opts.Archive = a.store
	}

	fmt.Fprintf(os.Stderr, "factcheck %s listening on %s (%s/%s)\n", Version, cfg.Server.Addr, a.provider.Name(), cfg.LLM.Model)
	return server.New(a.orch, opts).ListenAndServe(ctx)
}
