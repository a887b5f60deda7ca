package config

import (
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackzampolin/lqa/internal/batch"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Analyzers["openai"].APIKey != "${OPENAI_API_KEY}" {
		t.Error("expected openai API key placeholder")
	}
	if cfg.Batch.Analyzer != "openai" {
		t.Errorf("default analyzer = %q", cfg.Batch.Analyzer)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}

	opts := cfg.BatchOptions()
	if opts != batch.DefaultOptions() {
		t.Errorf("BatchOptions() = %+v, want %+v", opts, batch.DefaultOptions())
	}
}

func TestResolveEnvVars(t *testing.T) {
	t.Run("resolves environment variable", func(t *testing.T) {
		t.Setenv("TEST_API_KEY", "secret123")
		if got := ResolveEnvVars("${TEST_API_KEY}"); got != "secret123" {
			t.Errorf("expected secret123, got %s", got)
		}
	})

	t.Run("returns empty for missing env var", func(t *testing.T) {
		if got := ResolveEnvVars("${DEFINITELY_NOT_SET_12345}"); got != "" {
			t.Errorf("expected empty string, got %s", got)
		}
	})

	t.Run("expands inside a larger value", func(t *testing.T) {
		t.Setenv("TEST_HOST", "llm.internal")
		if got := ResolveEnvVars("https://${TEST_HOST}/v1"); got != "https://llm.internal/v1" {
			t.Errorf("got %s", got)
		}
	})

	t.Run("leaves literal values unchanged", func(t *testing.T) {
		if got := ResolveEnvVars("literal-value"); got != "literal-value" {
			t.Errorf("expected literal-value, got %s", got)
		}
	})
}

func TestConfig_ToProviderRegistryConfig(t *testing.T) {
	t.Setenv("TEST_OPENAI_KEY", "sk-123")
	t.Setenv("TEST_PROMPTS", "/srv/prompts")

	cfg := &Config{
		Analyzers: map[string]AnalyzerCfg{
			"primary": {Type: "openai", Model: "gpt-4o", APIKey: "${TEST_OPENAI_KEY}", RateLimit: 3, TimeoutSeconds: 60, MaxRetries: 1, Enabled: true},
			"offline": {Type: "mock", Enabled: false},
		},
		PromptsDir: "${TEST_PROMPTS}/v2",
	}

	got := cfg.ToProviderRegistryConfig()
	p := got.Analyzers["primary"]
	if p.APIKey != "sk-123" {
		t.Errorf("APIKey = %q, want resolved value", p.APIKey)
	}
	if p.Timeout != time.Minute || p.RateLimit != 3 || p.MaxRetries != 1 || !p.Enabled {
		t.Errorf("primary = %+v", p)
	}
	if got.Analyzers["offline"].Enabled {
		t.Error("disabled analyzer came through enabled")
	}
	if got.PromptsDir != "/srv/prompts/v2" {
		t.Errorf("PromptsDir = %q", got.PromptsDir)
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Batch.Concurrency = 0
	cfg.Batch.MaxItems = -1
	cfg.Analyzers["weird"] = AnalyzerCfg{Type: "telepathy"}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"concurrency", "max_items", "telepathy"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestNewManager(t *testing.T) {
	t.Run("loads from config file", func(t *testing.T) {
		path := writeConfig(t, `
analyzers:
  local:
    type: mock
    enabled: true
batch:
  analyzer: local
  concurrency: 3
  deadline_ms: 5000
`)
		mgr, err := NewManager(path)
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}
		cfg := mgr.Get()
		if cfg.Batch.Analyzer != "local" || cfg.Batch.Concurrency != 3 {
			t.Errorf("batch = %+v", cfg.Batch)
		}
		if cfg.Batch.RetryBudget != batch.DefaultRetryBudget {
			t.Errorf("unset retry_budget = %d, want default", cfg.Batch.RetryBudget)
		}
		if got := cfg.BatchOptions().Deadline; got != 5*time.Second {
			t.Errorf("deadline = %v", got)
		}
		if _, ok := cfg.GetAnalyzer("local"); !ok {
			t.Error("analyzer local missing")
		}
		if mgr.ConfigFile() != path {
			t.Errorf("ConfigFile() = %q", mgr.ConfigFile())
		}
	})

	t.Run("environment overrides file", func(t *testing.T) {
		t.Setenv("LQA_BATCH_CONCURRENCY", "9")
		path := writeConfig(t, "batch:\n  concurrency: 3\n")

		mgr, err := NewManager(path)
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}
		if got := mgr.Get().Batch.Concurrency; got != 9 {
			t.Errorf("concurrency = %d, want 9 from LQA_BATCH_CONCURRENCY", got)
		}
	})

	t.Run("rejects invalid values", func(t *testing.T) {
		path := writeConfig(t, "batch:\n  concurrency: 0\n")
		if _, err := NewManager(path); err == nil {
			t.Error("expected error for zero concurrency")
		}
	})

	t.Run("rejects unreadable file", func(t *testing.T) {
		path := writeConfig(t, "batch: [unclosed\n")
		if _, err := NewManager(path); err == nil {
			t.Error("expected error for malformed YAML")
		}
	})
}

func TestEnabledAnalyzers(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Analyzers["off"] = AnalyzerCfg{Type: "mock", Enabled: false}

	enabled := cfg.EnabledAnalyzers()
	if _, ok := enabled["off"]; ok {
		t.Error("disabled analyzer listed")
	}
	if _, ok := enabled["openai"]; !ok {
		t.Error("openai analyzer missing")
	}
}

func TestManager_Get_ThreadSafe(t *testing.T) {
	mgr, err := NewManager(writeConfig(t, "batch:\n  concurrency: 2\n"))
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				_ = mgr.Get().Batch.Concurrency
			}
			done <- struct{}{}
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}
}

func TestManager_WatchConfig(t *testing.T) {
	path := writeConfig(t, "batch:\n  concurrency: 2\n")

	mgr, err := NewManager(path)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}
	mgr.SetLogger(nil)

	var (
		callbackCount atomic.Int32
		lastValue     atomic.Int32
	)
	mgr.OnChange(func(cfg *Config) {
		callbackCount.Add(1)
		lastValue.Store(int32(cfg.Batch.Concurrency))
	})
	mgr.WatchConfig()

	// Give the watcher time to start.
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(path, []byte("batch:\n  concurrency: 7\n"), 0o644); err != nil {
		t.Fatalf("failed to update config file: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if lastValue.Load() == 7 {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	if callbackCount.Load() == 0 {
		t.Fatal("callback was not invoked after config file change")
	}
	if got := mgr.Get().Batch.Concurrency; got != 7 {
		t.Errorf("config not updated: concurrency = %d", got)
	}
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}

	mgr, err := NewManager(path)
	if err != nil {
		t.Fatalf("written default does not load: %v", err)
	}
	cfg := mgr.Get()
	if cfg.Analyzers["openai"].Model != "gpt-4o-mini" {
		t.Errorf("openai model = %q", cfg.Analyzers["openai"].Model)
	}
	if cfg.Batch.MaxItems != batch.DefaultMaxItems {
		t.Errorf("max_items = %d", cfg.Batch.MaxItems)
	}
}
