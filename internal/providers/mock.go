package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/jackzampolin/lqa/internal/report"
)

const MockName = "mock"

// MockAnalyzer is an offline Analyzer. Unless Response is set it derives
// a report from the input: an empty translation is a Critical omission,
// an untranslated copy of the source is a Major mistranslation, and
// anything else is clean.
type MockAnalyzer struct {
	Latency    time.Duration
	ShouldFail bool
	FailAfter  int    // Fail after N requests (0 = never)
	Response   []byte // Fixed payload returned for every request

	requestCount atomic.Int64
}

// NewMockAnalyzer creates a mock analyzer with a small latency.
func NewMockAnalyzer() *MockAnalyzer {
	return &MockAnalyzer{Latency: 10 * time.Millisecond}
}

// Name returns the analyzer identifier.
func (m *MockAnalyzer) Name() string {
	return MockName
}

// RequestCount returns how many requests were made.
func (m *MockAnalyzer) RequestCount() int64 {
	return m.requestCount.Load()
}

// Analyze returns a canned or derived report payload.
func (m *MockAnalyzer) Analyze(ctx context.Context, req *AnalysisRequest) ([]byte, error) {
	count := m.requestCount.Add(1)
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if m.ShouldFail {
		return nil, fmt.Errorf("mock analyzer configured to fail")
	}
	if m.FailAfter > 0 && int(count) > m.FailAfter {
		return nil, fmt.Errorf("mock analyzer failed after %d requests", m.FailAfter)
	}

	if m.Latency > 0 {
		timer := time.NewTimer(m.Latency)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		}
	}

	if len(m.Response) > 0 {
		return m.Response, nil
	}
	return json.Marshal(mockReport(req))
}

func mockReport(req *AnalysisRequest) *report.Report {
	r := &report.Report{
		Overall: report.Overall{
			QualityLevel: report.QualityExcellent,
			Scores: report.Scores{
				Accuracy: 5, Terminology: 5, Layout: 5,
				Grammar: 5, Formatting: 5, Tone: 5,
			},
			SceneDescription: req.Name,
			Summary:          "No issues found.",
		},
		Issues: []report.Issue{},
	}

	source := strings.TrimSpace(req.Source)
	target := strings.TrimSpace(req.Target)
	switch {
	case target == "":
		r.Overall.QualityLevel = report.QualityCritical
		r.Overall.Summary = "The translation is empty."
		r.Issues = append(r.Issues, report.Issue{
			ID:          "1",
			Severity:    report.SeverityCritical,
			Category:    report.CategoryOmission,
			SourceText:  source,
			Description: "Translation is missing.",
		})
		r.Summary = report.Summary{SevereCount: 1, Advice: "Translate the content."}
	case target == source:
		r.Overall.QualityLevel = report.QualityPoor
		r.Overall.Summary = "The text was left untranslated."
		r.Issues = append(r.Issues, report.Issue{
			ID:          "1",
			Severity:    report.SeverityMajor,
			Category:    report.CategoryMistranslation,
			SourceText:  source,
			TargetText:  target,
			Description: fmt.Sprintf("Target is identical to the source; expected %s text.", req.Locale),
		})
		r.Summary = report.Summary{MajorCount: 1, Advice: "Translate the content into the target locale."}
	default:
		r.Summary = report.Summary{Advice: "No changes needed."}
	}
	return r
}

var _ Analyzer = (*MockAnalyzer)(nil)
