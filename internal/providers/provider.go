package providers

import (
	"context"
	"errors"
	"time"
)

// ErrEmptyInput is returned when a request has nothing to compare.
var ErrEmptyInput = errors.New("source text is required")

// Analyzer reviews one source/translation pair and returns the raw
// report payload. Decoding and validation happen downstream, so an
// analyzer only fails for transport-level reasons.
type Analyzer interface {
	// Analyze submits the pair and returns the analyzer's raw output.
	// Implementations must honor ctx cancellation.
	Analyze(ctx context.Context, req *AnalysisRequest) ([]byte, error)

	// Name returns the analyzer identifier (e.g., "openai").
	Name() string
}

// AnalysisRequest is a single source/translation pair.
type AnalysisRequest struct {
	ItemID string `json:"item_id"`
	Name   string `json:"name"`
	Locale string `json:"locale"`
	Source string `json:"source"`
	Target string `json:"target"`

	// Request tracking
	RequestID string `json:"-"`
}

// Validate checks that the request can be analyzed.
func (r *AnalysisRequest) Validate() error {
	if r == nil || r.Source == "" {
		return ErrEmptyInput
	}
	return nil
}

// AnalyzerStats reports call counters for an analyzer.
type AnalyzerStats struct {
	Requests    int64         `json:"requests"`
	Failures    int64         `json:"failures"`
	RateLimited int64         `json:"rate_limited"`
	TotalTime   time.Duration `json:"total_time"`
}
