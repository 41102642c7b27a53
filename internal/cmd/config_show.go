package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/alekingreal/ajudaita/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the resolved configuration",
	Long: `Print the configuration after merging defaults, the config file and
AJUDAITA_* environment variables. Secrets are redacted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.GetConfig()
		if cfg == nil {
			return fmt.Errorf("configuration not loaded")
		}

		out, err := yaml.Marshal(redactedConfig(cfg))
		if err != nil {
			return fmt.Errorf("marshal config: %w", err)
		}

		fmt.Print(string(out))
		return nil
	},
}

// redactedConfig mirrors the config sections as plain maps so secrets can be
// masked before printing.
func redactedConfig(cfg *config.Config) map[string]any {
	return map[string]any{
		"server": map[string]any{
			"host":             cfg.Server.Host,
			"port":             cfg.Server.Port,
			"read_timeout":     cfg.Server.ReadTimeout.String(),
			"write_timeout":    cfg.Server.WriteTimeout.String(),
			"idle_timeout":     cfg.Server.IdleTimeout.String(),
			"shutdown_timeout": cfg.Server.ShutdownTimeout.String(),
		},
		"store": map[string]any{
			"driver":     cfg.Store.Driver,
			"path":       cfg.Store.Path,
			"url":        cfg.Store.URL,
			"auth_token": maskSecret(cfg.Store.AuthToken),
		},
		"llm": map[string]any{
			"api_key":         maskSecret(cfg.LLM.APIKey),
			"base_url":        cfg.LLM.BaseURL,
			"model":           cfg.LLM.Model,
			"timeout":         cfg.LLM.Timeout.String(),
			"rpm":             cfg.LLM.RPM,
			"tpm":             cfg.LLM.TPM,
			"temperature":     cfg.LLM.Temperature,
			"smoothing_delay": cfg.LLM.SmoothingDelay.String(),
		},
		"logging": map[string]any{
			"level":   cfg.Logging.Level,
			"profile": cfg.Logging.Profile,
		},
		"metrics": map[string]any{
			"enabled": cfg.Metrics.Enabled,
			"port":    cfg.Metrics.Port,
		},
		"health": map[string]any{
			"enabled": cfg.Health.Enabled,
		},
	}
}

func maskSecret(value string) string {
	if strings.TrimSpace(value) == "" {
		return "(not set)"
	}
	return "[REDACTED]"
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
}
