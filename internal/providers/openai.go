package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/jackzampolin/lqa/internal/prompts"
	"github.com/jackzampolin/lqa/internal/prompts/analysis"
	"github.com/jackzampolin/lqa/internal/report"
)

const (
	OpenAIName         = "openai"
	openAIDefaultModel = "gpt-4o-mini"
)

// OpenAIConfig holds configuration for the OpenAI analyzer.
type OpenAIConfig struct {
	APIKey      string
	Model       string
	BaseURL     string        // Optional; any OpenAI-compatible endpoint
	RateLimit   float64       // Requests per second
	MaxRetries  int           // SDK transport retries inside one attempt
	Timeout     time.Duration // HTTP timeout
	Temperature float64
	HTTPClient  *http.Client      // Optional (tests)
	Prompts     *prompts.Resolver // Optional; embedded prompts when nil
}

// OpenAIAnalyzer implements Analyzer using chat completions with a
// structured-output response format.
type OpenAIAnalyzer struct {
	apiKey      string
	model       string
	baseURL     string
	rateLimit   float64
	temperature float64
	limiter     *RateLimiter
	client      openai.Client
	prompts     *prompts.Resolver

	requests    atomic.Int64
	failures    atomic.Int64
	rateLimited atomic.Int64
	totalNanos  atomic.Int64
}

// NewOpenAIAnalyzer creates a new OpenAI analyzer.
func NewOpenAIAnalyzer(cfg OpenAIConfig) *OpenAIAnalyzer {
	if cfg.Model == "" {
		cfg.Model = openAIDefaultModel
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = defaultRPS
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIAnalyzer{
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		baseURL:     cfg.BaseURL,
		rateLimit:   cfg.RateLimit,
		temperature: cfg.Temperature,
		limiter:     NewRateLimiter(cfg.RateLimit),
		client:      openai.NewClient(opts...),
		prompts:     cfg.Prompts,
	}
}

// Name returns the analyzer identifier.
func (a *OpenAIAnalyzer) Name() string {
	return OpenAIName
}

// Model returns the configured model.
func (a *OpenAIAnalyzer) Model() string {
	return a.model
}

// RateLimiter exposes the analyzer's limiter for status reporting.
func (a *OpenAIAnalyzer) RateLimiter() *RateLimiter {
	return a.limiter
}

// Stats returns call counters since creation.
func (a *OpenAIAnalyzer) Stats() AnalyzerStats {
	return AnalyzerStats{
		Requests:    a.requests.Load(),
		Failures:    a.failures.Load(),
		RateLimited: a.rateLimited.Load(),
		TotalTime:   time.Duration(a.totalNanos.Load()),
	}
}

// Analyze sends the pair to the chat completions endpoint and returns the
// message content.
func (a *OpenAIAnalyzer) Analyze(ctx context.Context, req *AnalysisRequest) ([]byte, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}

	msgs, err := analysis.Build(a.prompts, analysis.Input{
		Name:   req.Name,
		Locale: req.Locale,
		Source: req.Source,
		Target: req.Target,
	})
	if err != nil {
		return nil, err
	}

	schema, err := report.SchemaDocument()
	if err != nil {
		return nil, err
	}
	var schemaDoc map[string]any
	if err := json.Unmarshal(schema, &schemaDoc); err != nil {
		return nil, fmt.Errorf("failed to decode report schema: %w", err)
	}

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(a.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(msgs.System),
			openai.UserMessage(msgs.User),
		},
		Temperature: openai.Float(a.temperature),
		User:        openai.String(requestID),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:        report.SchemaName,
					Description: openai.String("Translation quality analysis report"),
					Schema:      schemaDoc,
					Strict:      openai.Bool(false),
				},
			},
		},
	}

	start := time.Now()
	a.requests.Add(1)
	resp, err := a.client.Chat.Completions.New(ctx, params)
	a.totalNanos.Add(int64(time.Since(start)))
	if err != nil {
		a.failures.Add(1)
		mapped := mapOpenAIError(err)
		if rle, ok := IsRateLimitError(mapped); ok {
			a.rateLimited.Add(1)
			a.limiter.Record429(rle.RetryAfter)
		}
		return nil, mapped
	}
	if resp == nil || len(resp.Choices) == 0 {
		a.failures.Add(1)
		return nil, fmt.Errorf("openai returned no choices (request %s)", requestID)
	}
	return []byte(resp.Choices[0].Message.Content), nil
}

func mapOpenAIError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusTooManyRequests {
			retryAfter := time.Duration(0)
			if apiErr.Response != nil {
				retryAfter = parseRetryAfter(apiErr.Response.Header.Get("Retry-After"))
			}
			return &RateLimitError{
				Message:    fmt.Sprintf("OpenAI rate limited: %s", apiErr.Message),
				RetryAfter: retryAfter,
				StatusCode: apiErr.StatusCode,
			}
		}
		if apiErr.Message != "" {
			return fmt.Errorf("OpenAI error (status %d): %s", apiErr.StatusCode, apiErr.Message)
		}
		return fmt.Errorf("OpenAI error (status %d)", apiErr.StatusCode)
	}
	return err
}

var _ Analyzer = (*OpenAIAnalyzer)(nil)
