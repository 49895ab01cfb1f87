// Package config loads settings from the environment, an optional TOML file and .env.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. INYEON_LLM_PROVIDER.
const EnvPrefix = "INYEON"

// Provider names.
const (
	ProviderOllama    = "ollama"
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Config holds every setting of the service and CLI.
type Config struct {
	LLMProvider string `mapstructure:"llm_provider"`

	OllamaURL     string `mapstructure:"ollama_url"`
	OllamaModel   string `mapstructure:"ollama_model"`
	OllamaTimeout int    `mapstructure:"ollama_timeout"` // seconds, applies to every backend

	GeminiAPIKey  string  `mapstructure:"gemini_api_key"`
	GeminiModel   string  `mapstructure:"gemini_model"`
	GeminiBaseURL string  `mapstructure:"gemini_base_url"`
	GeminiRPS     float64 `mapstructure:"gemini_rps"` // 0 = unlimited

	OpenAIAPIKey  string `mapstructure:"openai_api_key"`
	OpenAIModel   string `mapstructure:"openai_model"`
	OpenAIBaseURL string `mapstructure:"openai_base_url"`

	AnthropicAPIKey  string `mapstructure:"anthropic_api_key"`
	AnthropicModel   string `mapstructure:"anthropic_model"`
	AnthropicBaseURL string `mapstructure:"anthropic_base_url"`

	BackendRetries  int `mapstructure:"backend_retries"`  // retries of transient backend failures
	BreakerFailures int `mapstructure:"breaker_failures"` // consecutive failures before opening, 0 = off
	BreakerCooldown int `mapstructure:"breaker_cooldown"` // seconds

	HTTPAddr        string `mapstructure:"http_addr"`
	IndexPath       string `mapstructure:"index_path"` // empty keeps the retrieval index in memory
	Tracing         bool   `mapstructure:"tracing"`
	Metrics         bool   `mapstructure:"metrics"`
	MetricsInterval int    `mapstructure:"metrics_interval"` // seconds between metric exports
	Debug           bool   `mapstructure:"debug"`
	LogFormat       string `mapstructure:"log_format"` // console | json
}

var defaults = map[string]any{
	"llm_provider":       ProviderOllama,
	"ollama_url":         "http://localhost:11434",
	"ollama_model":       "qwen2.5-coder:7b",
	"ollama_timeout":     120,
	"gemini_api_key":     "",
	"gemini_model":       "gemini-2.5-flash",
	"gemini_base_url":    "",
	"gemini_rps":         0.0,
	"openai_api_key":     "",
	"openai_model":       "gpt-4o-mini",
	"openai_base_url":    "",
	"anthropic_api_key":  "",
	"anthropic_model":    "claude-3-5-haiku-latest",
	"anthropic_base_url": "",
	"backend_retries":    2,
	"breaker_failures":   5,
	"breaker_cooldown":   30,
	"http_addr":          ":8000",
	"index_path":         "",
	"tracing":            false,
	"metrics":            false,
	"metrics_interval":   60,
	"debug":              false,
	"log_format":         "console",
}

// vendorEnv lists the provider-native variables accepted next to the prefixed ones.
var vendorEnv = map[string]string{
	"gemini_api_key":    "GEMINI_API_KEY",
	"openai_api_key":    "OPENAI_API_KEY",
	"anthropic_api_key": "ANTHROPIC_API_KEY",
}

// NewViper returns a viper instance with defaults and environment binding set up.
// Callers may bind command-line flags to it before calling Load.
func NewViper() *viper.Viper {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	for key, env := range vendorEnv {
		_ = v.BindEnv(key, EnvPrefix+"_"+strings.ToUpper(key), env)
	}
	return v
}

// Load reads .env, then configFile (or the first default config file found),
// and decodes everything into a Config. Environment variables win over the file.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	if v == nil {
		v = NewViper()
	}

	if configFile == "" {
		configFile = findConfigFile()
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.LLMProvider = strings.ToLower(strings.TrimSpace(cfg.LLMProvider))
	return &cfg, nil
}

// ConfigPaths lists the config files Load looks for, in order.
func ConfigPaths() []string {
	paths := []string{".inyeon.toml"}
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "inyeon", "config.toml"))
	}
	return paths
}

func findConfigFile() string {
	for _, p := range ConfigPaths() {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return ""
}

// Validate checks that the selected provider is known and has credentials.
func (c *Config) Validate() error {
	switch c.LLMProvider {
	case ProviderOllama:
		if c.OllamaURL == "" {
			return errors.New("ollama_url is required for the ollama provider")
		}
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return errors.New("gemini_api_key (or GEMINI_API_KEY) is required for the gemini provider")
		}
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" && c.OpenAIBaseURL == "" {
			return errors.New("openai_api_key (or OPENAI_API_KEY) is required for the openai provider")
		}
	case ProviderAnthropic:
		if c.AnthropicAPIKey == "" {
			return errors.New("anthropic_api_key (or ANTHROPIC_API_KEY) is required for the anthropic provider")
		}
	default:
		return fmt.Errorf("unknown llm_provider %q (want ollama, gemini, openai or anthropic)", c.LLMProvider)
	}
	if c.OllamaTimeout <= 0 {
		return errors.New("ollama_timeout must be positive")
	}
	return nil
}

// Timeout is the per-request backend timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.OllamaTimeout) * time.Second
}

// MetricsPeriod returns the metric export interval.
func (c *Config) MetricsPeriod() time.Duration {
	return time.Duration(c.MetricsInterval) * time.Second
}

// Model returns the model configured for provider.
func (c *Config) Model(provider string) string {
	switch provider {
	case ProviderGemini:
		return c.GeminiModel
	case ProviderOpenAI:
		return c.OpenAIModel
	case ProviderAnthropic:
		return c.AnthropicModel
	default:
		return c.OllamaModel
	}
}
