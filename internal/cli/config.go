package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/factcheck/internal/model"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage factcheck configuration",
	Long: `Manage factcheck configuration files and settings.

Configuration hierarchy (highest to lowest priority):
1. CLI flags
2. Environment variables (FACTCHECK_*, .env is loaded first)
3. Config file (~/.factcheck/config.yaml)
4. Defaults`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the effective configuration after merging defaults, the config file and environment variables.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if configFile := viper.ConfigFileUsed(); configFile != "" {
			fmt.Fprintf(os.Stderr, "Configuration file: %s\n\n", configFile)
		} else {
			fmt.Fprintf(os.Stderr, "No configuration file found (using defaults)\n\n")
		}

		yamlData, err := renderConfig(cfg)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), string(yamlData))

		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "\n⚠ Configuration is invalid:\n%v\n", err)
		}
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize default configuration file",
	Long:  `Create a default configuration file at ~/.factcheck/config.yaml.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("error finding home directory: %w", err)
		}
		configPath := filepath.Join(home, ".factcheck", "config.yaml")

		if err := writeDefaultConfig(configPath); err != nil {
			return err
		}

		fmt.Printf("✓ Created default configuration: %s\n", configPath)
		fmt.Printf("\nTo view the configuration:\n")
		fmt.Printf("  factcheck config show\n")
		fmt.Printf("\nTo customize, edit the file with your preferred editor:\n")
		fmt.Printf("  $EDITOR %s\n", configPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}

// renderConfig marshals cfg to YAML with secrets masked
func renderConfig(cfg *model.Config) ([]byte, error) {
	masked := *cfg
	masked.LLM.APIKey = mask(masked.LLM.APIKey)
	masked.Tools.SearchAPIKey = mask(masked.Tools.SearchAPIKey)
	masked.Tools.ScrapeToken = mask(masked.Tools.ScrapeToken)

	data, err := yaml.Marshal(&masked)
	if err != nil {
		return nil, fmt.Errorf("error marshaling config: %w", err)
	}
	return data, nil
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return "****"
	}
	return secret[:4] + "****"
}

const configHeader = `# factcheck configuration file
#
# Configuration hierarchy (highest to lowest priority):
#   1. CLI flags
#   2. Environment variables (FACTCHECK_*)
#   3. This config file
#   4. Built-in defaults
#
# API keys are best kept in the environment or a .env file:
#   OPENAI_API_KEY, ANTHROPIC_API_KEY, GEMINI_API_KEY, BRAVE_API_KEY, SCRAPEDO_TOKEN
#
# Set store.path (e.g. ~/.factcheck/runs.db) to archive every run.

`

// writeDefaultConfig writes the defaults to path, refusing to overwrite
func writeDefaultConfig(path string) (err error) {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s\nUse 'factcheck config show' to view it, or delete it first to recreate", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	yamlData, err := yaml.Marshal(model.DefaultConfig())
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating config file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close config file: %w", closeErr)
		}
	}()

	if _, err := f.WriteString(configHeader); err != nil {
		return fmt.Errorf("error writing config: %w", err)
	}
	if _, err := f.Write(yamlData); err != nil {
		return fmt.Errorf("error writing config: %w", err)
	}
	return nil
}
