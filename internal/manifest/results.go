package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jackzampolin/lqa/internal/batch"
	"github.com/jackzampolin/lqa/internal/report"
)

// SummaryFileName is written next to the per-item reports.
const SummaryFileName = "summary.json"

// Summary is the persisted outcome of a run.
type Summary struct {
	State batch.RunState `json:"state"`
	Items []ItemResult   `json:"items"`

	dir string // directory the summary was loaded from
}

// ItemResult is one item's terminal state without its report body.
type ItemResult struct {
	ID     string       `json:"id"`
	Name   string       `json:"name"`
	Locale string       `json:"locale"`
	Status batch.Status `json:"status"`
	Error  string       `json:"error,omitempty"`
	Report string       `json:"report,omitempty"`
}

// WriteReports writes each item's report as <id>.json in dir, plus
// summary.json with the terminal run state.
func WriteReports(dir string, items []*batch.Item, state batch.RunState) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	summary := Summary{State: state, Items: make([]ItemResult, 0, len(items))}
	for _, it := range items {
		res := ItemResult{
			ID:     it.ID,
			Name:   it.Name,
			Locale: it.Locale,
			Status: it.Status,
			Error:  it.Error,
		}
		if it.Report != nil {
			res.Report = reportFileName(it.ID)
			if err := writeJSON(filepath.Join(dir, res.Report), it.Report); err != nil {
				return err
			}
		}
		summary.Items = append(summary.Items, res)
	}
	return writeJSON(filepath.Join(dir, SummaryFileName), summary)
}

// LoadSummary reads a summary written by WriteReports.
func LoadSummary(path string) (*Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read summary: %w", err)
	}
	var s Summary
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse summary %s: %w", path, err)
	}
	s.dir = filepath.Dir(path)
	return &s, nil
}

// ApplyPrevious copies statuses from an earlier run onto items with the
// same ID, so completed items are skipped and failed ones are retried.
// Completed items get their stored report back so a new summary stays
// whole. It returns how many items were matched.
func ApplyPrevious(items []*batch.Item, prev *Summary) int {
	byID := make(map[string]ItemResult, len(prev.Items))
	for _, r := range prev.Items {
		byID[r.ID] = r
	}
	matched := 0
	for _, it := range items {
		r, ok := byID[it.ID]
		if !ok {
			continue
		}
		matched++
		switch r.Status {
		case batch.StatusCompleted:
			// Without its stored report the item is analyzed again.
			if rep := prev.loadReport(r.Report); rep != nil {
				it.Status = batch.StatusCompleted
				it.Report = rep
				it.Error = ""
			} else {
				it.Status = batch.StatusPending
			}
		case batch.StatusFailed:
			it.Status = batch.StatusFailed
			it.Error = r.Error
		default:
			it.Status = batch.StatusPending
		}
	}
	return matched
}

// loadReport reads a stored report. A missing or unreadable file yields nil.
func (s *Summary) loadReport(name string) *report.Report {
	if s.dir == "" || name == "" {
		return nil
	}
	data, err := os.ReadFile(filepath.Join(s.dir, filepath.Base(name)))
	if err != nil {
		return nil
	}
	var r report.Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil
	}
	return &r
}

func reportFileName(id string) string {
	return id + ".json"
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
