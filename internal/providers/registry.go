package providers

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/jackzampolin/lqa/internal/prompts"
	"github.com/jackzampolin/lqa/internal/prompts/analysis"
)

// Registry holds named analyzers. It supports config-driven
// instantiation and hot-reload, and is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	analyzers map[string]Analyzer
	prompts   *prompts.Resolver
	logger    *slog.Logger
}

// NewRegistry creates a new empty registry using the embedded prompts.
func NewRegistry() *Registry {
	return &Registry{
		analyzers: make(map[string]Analyzer),
		prompts:   analysis.NewResolver("", nil),
		logger:    slog.Default(),
	}
}

// Prompts returns the resolver shared by the registry's analyzers.
func (r *Registry) Prompts() *prompts.Resolver {
	return r.prompts
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger *slog.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = logger
}

// Register adds or replaces an analyzer by name.
func (r *Registry) Register(name string, a Analyzer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.analyzers[name] = a
	if r.logger != nil {
		r.logger.Info("registered analyzer", "name", name, "type", a.Name())
	}
}

// Unregister removes an analyzer by name.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.analyzers, name)
	if r.logger != nil {
		r.logger.Info("unregistered analyzer", "name", name)
	}
}

// Get returns an analyzer by name.
func (r *Registry) Get(name string) (Analyzer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.analyzers[name]
	if !ok {
		return nil, fmt.Errorf("analyzer not found: %s", name)
	}
	return a, nil
}

// Has checks if an analyzer is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.analyzers[name]
	return ok
}

// List returns registered analyzer names in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.analyzers))
	for name := range r.analyzers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RegistryConfig defines the analyzers to instantiate.
type RegistryConfig struct {
	Analyzers map[string]AnalyzerConfig
	// PromptsDir holds <key>.tmpl prompt overrides. Empty uses the embedded prompts.
	PromptsDir string
}

// AnalyzerConfig matches config.AnalyzerCfg with a resolved API key.
type AnalyzerConfig struct {
	Type       string  // "openai", "mock"
	Model      string  // Model name
	APIKey     string  // Resolved API key
	BaseURL    string  // Optional endpoint override
	RateLimit  float64 // Requests per second
	MaxRetries int     // SDK transport retries
	Timeout    time.Duration
	Enabled    bool
}

// usable reports whether the config can produce an analyzer.
func (c AnalyzerConfig) usable() bool {
	if !c.Enabled {
		return false
	}
	return c.Type == MockName || c.APIKey != ""
}

// NewRegistryFromConfig creates a registry holding every enabled analyzer
// that has the credentials it needs.
func NewRegistryFromConfig(cfg RegistryConfig) *Registry {
	r := NewRegistry()
	r.prompts.SetDir(cfg.PromptsDir)
	for name, acfg := range cfg.Analyzers {
		if !acfg.usable() {
			continue
		}
		if a := r.createAnalyzer(acfg); a != nil {
			r.analyzers[name] = a
		}
	}
	return r
}

// Reload brings the registry in line with cfg. Analyzers that are no
// longer configured are removed; changed ones are recreated.
func (r *Registry) Reload(cfg RegistryConfig) {
	r.prompts.SetDir(cfg.PromptsDir)

	r.mu.Lock()
	defer r.mu.Unlock()

	want := make(map[string]bool)
	for name, acfg := range cfg.Analyzers {
		if !acfg.usable() {
			continue
		}
		want[name] = true

		existing, hasExisting := r.analyzers[name]
		if hasExisting && !needsUpdate(existing, acfg) {
			continue
		}
		a := r.createAnalyzer(acfg)
		if a == nil {
			if r.logger != nil {
				r.logger.Warn("unknown analyzer type", "name", name, "type", acfg.Type)
			}
			continue
		}
		r.analyzers[name] = a
		if r.logger != nil {
			if hasExisting {
				r.logger.Info("updated analyzer", "name", name, "type", acfg.Type)
			} else {
				r.logger.Info("registered analyzer", "name", name, "type", acfg.Type)
			}
		}
	}

	for name := range r.analyzers {
		if !want[name] {
			delete(r.analyzers, name)
			if r.logger != nil {
				r.logger.Info("unregistered analyzer", "name", name)
			}
		}
	}
}

func (r *Registry) createAnalyzer(cfg AnalyzerConfig) Analyzer {
	switch cfg.Type {
	case OpenAIName:
		return NewOpenAIAnalyzer(OpenAIConfig{
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			BaseURL:    cfg.BaseURL,
			RateLimit:  cfg.RateLimit,
			MaxRetries: cfg.MaxRetries,
			Timeout:    cfg.Timeout,
			Prompts:    r.prompts,
		})
	case MockName:
		return NewMockAnalyzer()
	default:
		return nil
	}
}

func needsUpdate(a Analyzer, cfg AnalyzerConfig) bool {
	switch c := a.(type) {
	case *OpenAIAnalyzer:
		model, rps := cfg.Model, cfg.RateLimit
		if model == "" {
			model = openAIDefaultModel
		}
		if rps <= 0 {
			rps = defaultRPS
		}
		return cfg.Type != OpenAIName ||
			c.apiKey != cfg.APIKey ||
			c.model != model ||
			c.baseURL != cfg.BaseURL ||
			c.rateLimit != rps
	case *MockAnalyzer:
		return cfg.Type != MockName
	default:
		return true
	}
}
