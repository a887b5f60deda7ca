package providers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jackzampolin/lqa/internal/prompts/analysis"
)

const cleanReport = `{"overall":{"qualityLevel":"Excellent","scores":{"accuracy":5,"terminology":5,"layout":5,"grammar":5,"formatting":5,"tone":5}},"issues":[],"summary":{"advice":"none"}}`

func chatCompletionBody(t *testing.T, content string) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 1,
		"model":   "gpt-4o-mini",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
		"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 20, "total_tokens": 30},
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return body
}

func testRequest() *AnalysisRequest {
	return &AnalysisRequest{
		ItemID: "item-1",
		Name:   "checkout.json",
		Locale: "de-DE",
		Source: "Buy now",
		Target: "Jetzt kaufen",
	}
}

func TestOpenAIAnalyzeSuccess(t *testing.T) {
	var payload map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("read body: %v", err)
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Errorf("unmarshal body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(chatCompletionBody(t, cleanReport))
	}))
	defer server.Close()

	a := NewOpenAIAnalyzer(OpenAIConfig{
		APIKey:    "test-key",
		Model:     "gpt-4o-mini",
		BaseURL:   server.URL,
		RateLimit: 100,
	})

	raw, err := a.Analyze(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if string(raw) != cleanReport {
		t.Errorf("content = %s", raw)
	}

	if got, _ := payload["model"].(string); got != "gpt-4o-mini" {
		t.Errorf("model = %q", got)
	}
	rf, _ := payload["response_format"].(map[string]any)
	if rf["type"] != "json_schema" {
		t.Errorf("response_format = %v", rf)
	}
	js, _ := rf["json_schema"].(map[string]any)
	if js["name"] != "translation_quality_report" || js["schema"] == nil {
		t.Errorf("json_schema = %v", js)
	}

	msgs, _ := payload["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("messages = %v", msgs)
	}
	user, _ := msgs[1].(map[string]any)
	if content, _ := user["content"].(string); !strings.Contains(content, "Jetzt kaufen") {
		t.Errorf("user message does not carry the translation: %v", user["content"])
	}

	stats := a.Stats()
	if stats.Requests != 1 || stats.Failures != 0 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestOpenAIAnalyzeRateLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Retry-After", "3")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limit","type":"rate_limit_error","param":"","code":"rate_limit"}}`))
	}))
	defer server.Close()

	a := NewOpenAIAnalyzer(OpenAIConfig{APIKey: "test-key", BaseURL: server.URL, RateLimit: 100})

	_, err := a.Analyze(context.Background(), testRequest())
	if err == nil {
		t.Fatal("expected error for 429 response")
	}
	rle, ok := IsRateLimitError(err)
	if !ok {
		t.Fatalf("expected RateLimitError, got %T: %v", err, err)
	}
	if rle.StatusCode != http.StatusTooManyRequests {
		t.Errorf("StatusCode = %d", rle.StatusCode)
	}
	if rle.RetryAfter != 3*time.Second {
		t.Errorf("RetryAfter = %v, want 3s", rle.RetryAfter)
	}

	status := a.RateLimiter().Status()
	if status.Last429Time.IsZero() || status.TimeUntilToken <= 0 {
		t.Errorf("limiter did not record the 429: %+v", status)
	}
	if a.Stats().RateLimited != 1 {
		t.Errorf("stats = %+v", a.Stats())
	}
}

func TestOpenAIAnalyzeServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":{"message":"upstream down","type":"server_error"}}`))
	}))
	defer server.Close()

	a := NewOpenAIAnalyzer(OpenAIConfig{APIKey: "test-key", BaseURL: server.URL, RateLimit: 100})

	_, err := a.Analyze(context.Background(), testRequest())
	if err == nil {
		t.Fatal("expected error")
	}
	if _, ok := IsRateLimitError(err); ok {
		t.Error("5xx should not be a rate limit error")
	}
	if !strings.Contains(err.Error(), "502") {
		t.Errorf("error = %v, want status in message", err)
	}
}

func TestOpenAIAnalyzeNoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","created":1,"model":"m","choices":[]}`))
	}))
	defer server.Close()

	a := NewOpenAIAnalyzer(OpenAIConfig{APIKey: "test-key", BaseURL: server.URL, RateLimit: 100})
	if _, err := a.Analyze(context.Background(), testRequest()); err == nil {
		t.Fatal("expected error for empty choices")
	}
}

func TestOpenAIAnalyzeValidation(t *testing.T) {
	a := NewOpenAIAnalyzer(OpenAIConfig{APIKey: "test-key"})

	_, err := a.Analyze(context.Background(), &AnalysisRequest{Target: "x"})
	if !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("error = %v, want ErrEmptyInput", err)
	}
	if a.Stats().Requests != 0 {
		t.Error("invalid request reached the API")
	}
}

func TestOpenAIAnalyzeHonorsContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer server.Close()

	a := NewOpenAIAnalyzer(OpenAIConfig{APIKey: "test-key", BaseURL: server.URL, RateLimit: 100})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := a.Analyze(ctx, testRequest())
	if err == nil {
		t.Fatal("expected error after deadline")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want deadline exceeded", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Error("request outlived its context")
	}
}

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"", 0},
		{"5", 5 * time.Second},
		{"-1", 0},
		{"soon", 0},
	}
	for _, tt := range tests {
		if got := parseRetryAfter(tt.in); got != tt.want {
			t.Errorf("parseRetryAfter(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	future := time.Now().Add(time.Minute).UTC().Format(http.TimeFormat)
	if got := parseRetryAfter(future); got <= 0 || got > time.Minute {
		t.Errorf("parseRetryAfter(date) = %v", got)
	}
}

func TestOpenAIAnalyzePromptOverride(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, analysis.UserKey+".tmpl"), []byte("CHECK {{.Locale}}: {{.Target}}"), 0o644); err != nil {
		t.Fatal(err)
	}

	var payload struct {
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(chatCompletionBody(t, cleanReport))
	}))
	defer server.Close()

	a := NewOpenAIAnalyzer(OpenAIConfig{
		APIKey:    "test-key",
		BaseURL:   server.URL,
		RateLimit: 100,
		Prompts:   analysis.NewResolver(dir, nil),
	})
	if _, err := a.Analyze(context.Background(), testRequest()); err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if len(payload.Messages) != 2 {
		t.Fatalf("messages = %+v", payload.Messages)
	}
	if payload.Messages[0].Content != analysis.SystemPrompt() {
		t.Error("system prompt should be the embedded default")
	}
	if got := payload.Messages[1].Content; got != "CHECK de-DE: Jetzt kaufen" {
		t.Errorf("user prompt = %q", got)
	}
}
