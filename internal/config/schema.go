package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/jackzampolin/lqa/internal/batch"
	"github.com/jackzampolin/lqa/internal/providers"
)

// Config holds lqa configuration.
// Stored at: ~/.lqa/config.yaml
type Config struct {
	Analyzers map[string]AnalyzerCfg `mapstructure:"analyzers" yaml:"analyzers"`
	Batch     BatchCfg               `mapstructure:"batch" yaml:"batch"`
	Metrics   MetricsCfg             `mapstructure:"metrics" yaml:"metrics"`
	// PromptsDir holds <key>.tmpl files overriding the embedded prompts.
	PromptsDir string `mapstructure:"prompts_dir" yaml:"prompts_dir"`
}

// AnalyzerCfg configures an analyzer.
type AnalyzerCfg struct {
	Type           string  `mapstructure:"type" yaml:"type"`                       // "openai", "mock"
	Model          string  `mapstructure:"model" yaml:"model"`                     // Model name
	APIKey         string  `mapstructure:"api_key" yaml:"api_key"`                 // API key (supports ${ENV_VAR} syntax)
	BaseURL        string  `mapstructure:"base_url" yaml:"base_url"`               // Optional OpenAI-compatible endpoint
	RateLimit      float64 `mapstructure:"rate_limit" yaml:"rate_limit"`           // Requests per second
	TimeoutSeconds int     `mapstructure:"timeout_seconds" yaml:"timeout_seconds"` // HTTP client timeout
	MaxRetries     int     `mapstructure:"max_retries" yaml:"max_retries"`         // SDK transport retries
	Enabled        bool    `mapstructure:"enabled" yaml:"enabled"`
}

// BatchCfg holds batch run parameters.
type BatchCfg struct {
	Analyzer     string `mapstructure:"analyzer" yaml:"analyzer"`             // Analyzer used by `lqa run`
	Concurrency  int    `mapstructure:"concurrency" yaml:"concurrency"`       // Worker count
	RetryBudget  int    `mapstructure:"retry_budget" yaml:"retry_budget"`     // Retries after the first attempt
	DeadlineMS   int    `mapstructure:"deadline_ms" yaml:"deadline_ms"`       // Per-attempt deadline
	MaxItems     int    `mapstructure:"max_items" yaml:"max_items"`           // Items allowed per run (0 = no cap)
	RetryDelayMS int    `mapstructure:"retry_delay_ms" yaml:"retry_delay_ms"` // Base back-off between attempts
}

// MetricsCfg configures the Prometheus endpoint.
type MetricsCfg struct {
	Addr string `mapstructure:"addr" yaml:"addr"` // e.g. ":9464"; empty disables
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Analyzers: map[string]AnalyzerCfg{
			"openai": {
				Type:           "openai",
				Model:          "gpt-4o-mini",
				APIKey:         "${OPENAI_API_KEY}",
				RateLimit:      2.0,
				TimeoutSeconds: 120,
				Enabled:        true,
			},
			"mock": {
				Type:    "mock",
				Enabled: true,
			},
		},
		Batch: BatchCfg{
			Analyzer:    "openai",
			Concurrency: batch.DefaultConcurrency,
			RetryBudget: batch.DefaultRetryBudget,
			DeadlineMS:  int(batch.DefaultDeadline / time.Millisecond),
			MaxItems:    batch.DefaultMaxItems,
		},
	}
}

// GetAnalyzer returns an analyzer config by name.
func (c *Config) GetAnalyzer(name string) (AnalyzerCfg, bool) {
	cfg, ok := c.Analyzers[name]
	return cfg, ok
}

// EnabledAnalyzers returns all enabled analyzers.
func (c *Config) EnabledAnalyzers() map[string]AnalyzerCfg {
	result := make(map[string]AnalyzerCfg)
	for name, cfg := range c.Analyzers {
		if cfg.Enabled {
			result[name] = cfg
		}
	}
	return result
}

// BatchOptions converts the batch section into run options.
func (c *Config) BatchOptions() batch.Options {
	return batch.Options{
		Concurrency: c.Batch.Concurrency,
		RetryBudget: c.Batch.RetryBudget,
		Deadline:    time.Duration(c.Batch.DeadlineMS) * time.Millisecond,
		RetryDelay:  time.Duration(c.Batch.RetryDelayMS) * time.Millisecond,
	}
}

// Validate checks the configuration for values no run could use.
func (c *Config) Validate() error {
	var errs []error
	if err := c.BatchOptions().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("batch: %w", err))
	}
	if c.Batch.MaxItems < 0 {
		errs = append(errs, fmt.Errorf("batch: max_items must not be negative, got %d", c.Batch.MaxItems))
	}
	for name, a := range c.Analyzers {
		switch a.Type {
		case providers.OpenAIName, providers.MockName:
		default:
			errs = append(errs, fmt.Errorf("analyzers.%s: unknown type %q", name, a.Type))
		}
		if a.RateLimit < 0 {
			errs = append(errs, fmt.Errorf("analyzers.%s: rate_limit must not be negative", name))
		}
	}
	return errors.Join(errs...)
}

// ToProviderRegistryConfig converts the config to a format suitable for providers.Registry.
// It resolves all ${ENV_VAR} references in API keys and base URLs.
func (c *Config) ToProviderRegistryConfig() providers.RegistryConfig {
	cfg := providers.RegistryConfig{
		Analyzers:  make(map[string]providers.AnalyzerConfig, len(c.Analyzers)),
		PromptsDir: ResolveEnvVars(c.PromptsDir),
	}
	for name, a := range c.Analyzers {
		cfg.Analyzers[name] = providers.AnalyzerConfig{
			Type:       a.Type,
			Model:      a.Model,
			APIKey:     ResolveEnvVars(a.APIKey),
			BaseURL:    ResolveEnvVars(a.BaseURL),
			RateLimit:  a.RateLimit,
			MaxRetries: a.MaxRetries,
			Timeout:    time.Duration(a.TimeoutSeconds) * time.Second,
			Enabled:    a.Enabled,
		}
	}
	return cfg
}
