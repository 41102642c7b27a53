// Package config provides centralized configuration management for ajudaita.
// Configuration is resolved from three sources in increasing precedence:
// built-in defaults, an optional YAML config file, and AJUDAITA_* environment
// variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment variable overrides,
// e.g. AJUDAITA_LLM_API_KEY maps to llm.api_key.
const EnvPrefix = "AJUDAITA"

var (
	// appConfig holds the current application configuration
	appConfig *Config
	configMu  sync.RWMutex
)

// Defaults returns the built-in defaults as viper keys.
func Defaults() map[string]any {
	return map[string]any{
		"server.host":             "0.0.0.0",
		"server.port":             8080,
		"server.read_timeout":     "15s",
		"server.write_timeout":    "120s",
		"server.idle_timeout":     "60s",
		"server.shutdown_timeout": "10s",

		"store.driver": "libsql",
		"store.path":   "",
		"store.url":    "",

		"llm.base_url":        "https://api.openai.com/v1",
		"llm.model":           "gpt-4o-mini",
		"llm.timeout":         "55s",
		"llm.rpm":             3,
		"llm.tpm":             12000,
		"llm.temperature":     0.7,
		"llm.smoothing_delay": "300ms",

		"logging.level":   "info",
		"logging.profile": "STRUCTURED",

		"metrics.enabled": true,
		"metrics.port":    9090,

		"health.enabled": true,
	}
}

// Load resolves the configuration from defaults, the optional config file,
// and environment overrides. Safe to call multiple times.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	for key, value := range Defaults() {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if strings.TrimSpace(configFile) != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir := userConfigDir(); dir != "" {
			v.AddConfigPath(dir)
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	cfg := &Config{}
	decodeHook := mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
	if err := v.Unmarshal(cfg, viper.DecodeHook(decodeHook)); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	normalize(cfg)
	setConfig(cfg)

	return cfg, nil
}

// Validate checks the invariants that only matter once the server actually
// talks to the provider. The CLI can run config show without a key; serve
// cannot.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	if strings.TrimSpace(cfg.LLM.APIKey) == "" {
		return errors.New("llm.api_key is required (set AJUDAITA_LLM_API_KEY)")
	}
	if cfg.LLM.RPM <= 0 {
		return errors.New("llm.rpm must be positive")
	}
	if cfg.LLM.TPM <= 0 {
		return errors.New("llm.tpm must be positive")
	}
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range", cfg.Server.Port)
	}
	return nil
}

// GetConfig returns the current application configuration (thread-safe)
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

// setConfig updates the current configuration (thread-safe)
func setConfig(cfg *Config) {
	configMu.Lock()
	defer configMu.Unlock()
	appConfig = cfg
}

func normalize(cfg *Config) {
	if strings.TrimSpace(cfg.Store.URL) == "" && strings.TrimSpace(cfg.Store.Path) == "" {
		cfg.Store.Path = DefaultStorePath()
	}
	if cfg.LLM.Timeout <= 0 {
		cfg.LLM.Timeout = 55 * time.Second
	}
	if strings.TrimSpace(cfg.Logging.Level) == "" {
		cfg.Logging.Level = "info"
	}
}

// DefaultStorePath returns the path to the database file relative to the
// data directory.
func DefaultStorePath() string {
	if dir := userDataDir(); dir != "" {
		return filepath.Join(dir, "ajudaita.db")
	}
	return "./ajudaita.db"
}

func userConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "ajudaita")
}

func userDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "share", "ajudaita")
}
