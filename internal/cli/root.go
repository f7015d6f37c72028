package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/factcheck/internal/model"
)

// Version is set at build time
var Version = "v0.1.0"

var (
	cfgFile  string
	verbose  bool
	logLevel string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "factcheck",
	Short: "factcheck - claim decomposition, targeted research and evidence-bound verdicts",
	Long: `factcheck verifies the factual claims in a piece of text.

It breaks the text into atomic claims, plans research questions for the
claims that need checking, gathers evidence with web search and scraping
under a prioritized tool-call budget, and adjudicates every claim strictly
on the evidence found.

A claim with no admissible evidence is never judged True or False.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogger()
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "factcheck %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.factcheck/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	_ = viper.BindPFlag("output.verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads .env, the config file and FACTCHECK_* variables
func initConfig() {
	// A missing .env is normal
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}
		viper.AddConfigPath(filepath.Join(home, ".factcheck"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// FACTCHECK_RESEARCH_WORKERS overrides research.workers
	viper.SetEnvPrefix("FACTCHECK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	for _, key := range envKeys {
		_ = viper.BindEnv(key)
	}

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// envKeys can be set from the environment without a config file
var envKeys = []string{
	"llm.provider",
	"llm.model",
	"llm.base_url",
	"research.workers",
	"research.budget",
	"research.deadline",
	"tools.search_backend",
	"tools.search_url",
	"tools.scrape_backend",
	"tools.scrape_url",
	"cache.enabled",
	"cache.dir",
	"store.path",
	"server.addr",
}

// loadConfig merges the config file and environment over the defaults
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

func setupLogger() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(logLevel, verbose),
	})))
}

func parseLevel(name string, verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelWarn
	}
	return level
}
