// Package config loads reviewpass configuration from TOML, environment, and
// defaults.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/reviewpass/internal/registry"
	"github.com/reviewpass/pkg/models"
)

// ProviderConfig holds credentials and client tuning for one AI provider.
type ProviderConfig struct {
	APIKey            string  `koanf:"api_key"`
	BaseURL           string  `koanf:"base_url"`
	Temperature       float64 `koanf:"temperature"`
	RequestsPerMinute int     `koanf:"requests_per_minute"`
}

// ModelOverride declares or replaces a model profile from configuration,
// for self-hosted or newly released models.
type ModelOverride struct {
	Provider            string  `koanf:"provider"`
	Model               string  `koanf:"model"`
	ContextWindowTokens int     `koanf:"context_window_tokens"`
	InputPerMillionUSD  float64 `koanf:"input_per_million_usd"`
	OutputPerMillionUSD float64 `koanf:"output_per_million_usd"`
	Tokenizer           string  `koanf:"tokenizer"`
}

// Config is the application configuration.
type Config struct {
	General struct {
		DefaultModel string `koanf:"default_model"`
		LogDir       string `koanf:"log_dir"`
	} `koanf:"general"`

	Providers map[string]ProviderConfig `koanf:"providers"`

	Review struct {
		SafetyMarginFactor       float64 `koanf:"safety_margin_factor"`
		ContextMaintenanceFactor float64 `koanf:"context_maintenance_factor"`
		AssumedOutputRatio       float64 `koanf:"assumed_output_ratio"`
		MaxRetriesPerPass        int     `koanf:"max_retries_per_pass"`
		Strict                   bool    `koanf:"strict"`
	} `koanf:"review"`

	Models []ModelOverride `koanf:"models"`
}

// LoadConfig loads configuration from configPath, falling back to the
// default locations, then layers REVIEWPASS_ environment variables on top.
func LoadConfig(configPath string) (*Config, error) {
	var k = koanf.New(".")

	k.Load(confmap.Provider(map[string]interface{}{
		"general.default_model":             "anthropic:claude-sonnet-4",
		"general.log_dir":                   "review_logs",
		"review.safety_margin_factor":       0.15,
		"review.context_maintenance_factor": 0.15,
		"review.assumed_output_ratio":       0.3,
		"review.max_retries_per_pass":       2,
	}, "."), nil)

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
			return nil, fmt.Errorf("error loading config: %w", err)
		}
	} else {
		defaultPaths := []string{"./reviewpass.toml", "$HOME/.reviewpass.toml"}
		for _, path := range defaultPaths {
			path = os.ExpandEnv(path)
			if _, err := os.Stat(path); err == nil {
				if err := k.Load(file.Provider(path), toml.Parser()); err == nil {
					break
				}
			}
		}
	}

	// Double underscore separates sections so key names keep their own
	// underscores: REVIEWPASS_GENERAL__DEFAULT_MODEL.
	k.Load(env.Provider("REVIEWPASS_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "REVIEWPASS_")), "__", ".", -1)
	}), nil)

	var config Config
	if err := k.Unmarshal("", &config); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	return &config, nil
}

// BuildRegistry returns the model registry with config-declared profiles
// registered on top of the builtins.
func (c *Config) BuildRegistry() *registry.Registry {
	reg := registry.New()
	for _, m := range c.Models {
		if m.Provider == "" || m.Model == "" || m.ContextWindowTokens <= 0 {
			continue
		}
		tokenizer := models.TokenizerFamily(m.Tokenizer)
		if tokenizer == "" {
			tokenizer = models.TokenizerGeneric
		}
		reg.Register(models.ModelProfile{
			Provider:            m.Provider,
			Model:               m.Model,
			ContextWindowTokens: m.ContextWindowTokens,
			Pricing: models.ModelPricing{
				InputPerMillionUSD:  m.InputPerMillionUSD,
				OutputPerMillionUSD: m.OutputPerMillionUSD,
			},
			Tokenizer: tokenizer,
		})
	}
	return reg
}

// Validate checks the configuration for the values every run needs.
func Validate(config *Config) error {
	if config.General.DefaultModel == "" {
		return fmt.Errorf("default model is required")
	}
	if !strings.Contains(config.General.DefaultModel, ":") {
		return fmt.Errorf("default model %q must be provider:model", config.General.DefaultModel)
	}
	if f := config.Review.SafetyMarginFactor; f < 0 || f >= 1 {
		return fmt.Errorf("safety_margin_factor %v outside [0, 1)", f)
	}
	if f := config.Review.ContextMaintenanceFactor; f < 0 || f >= 1 {
		return fmt.Errorf("context_maintenance_factor %v outside [0, 1)", f)
	}
	return nil
}

// InitConfig writes a sample configuration file.
func InitConfig(configPath string) error {
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("configuration file already exists at %s", configPath)
	}

	sampleConfig := `# reviewpass configuration

[general]
default_model = "anthropic:claude-sonnet-4"
log_dir = "review_logs"

[providers.anthropic]
api_key = "your-anthropic-api-key"

[providers.openai]
api_key = "your-openai-api-key"
requests_per_minute = 30

[review]
safety_margin_factor = 0.15
context_maintenance_factor = 0.15
assumed_output_ratio = 0.3
max_retries_per_pass = 2

# [[models]]
# provider = "ollama"
# model = "codellama"
# context_window_tokens = 16384
# tokenizer = "generic"
`

	return os.WriteFile(configPath, []byte(sampleConfig), 0644)
}
