package batch

import (
	"errors"
	"fmt"

	"github.com/jackzampolin/lqa/internal/report"
)

// ErrBatchTooLarge is returned by Eligible when more items qualify than the cap allows.
var ErrBatchTooLarge = errors.New("batch exceeds item limit")

// Status is the lifecycle state of an item.
type Status string

const (
	StatusPending   Status = "pending"
	StatusAnalyzing Status = "analyzing"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Item is one source/target pair submitted for analysis.
// Items are owned by the caller; a batch run only reads the identifying
// and input fields and reports state changes through an UpdateFunc.
type Item struct {
	ID     string `json:"id" yaml:"id"`
	Name   string `json:"name" yaml:"name"`
	Locale string `json:"locale" yaml:"locale"`

	// Source and Target are the paired inputs handed to the analyzer.
	Source string `json:"-" yaml:"-"`
	Target string `json:"-" yaml:"-"`

	Status Status         `json:"status" yaml:"status"`
	Report *report.Report `json:"report,omitempty" yaml:"report,omitempty"`
	Error  string         `json:"error,omitempty" yaml:"error,omitempty"`
}

// Update is a partial state change for one item.
type Update struct {
	Status Status
	Report *report.Report
	Error  string
}

// UpdateFunc receives every item state transition. It is called
// concurrently from worker goroutines and must be safe for that.
type UpdateFunc func(id string, u Update)

// Apply folds an update into the item. Callers that keep items in memory
// use it from their UpdateFunc.
func (it *Item) Apply(u Update) {
	it.Status = u.Status
	switch u.Status {
	case StatusCompleted:
		it.Report = u.Report
		it.Error = ""
	case StatusFailed:
		it.Report = nil
		it.Error = u.Error
	case StatusPending, StatusAnalyzing:
		it.Error = ""
	}
}

// Eligible returns the items that may be submitted to a run (Pending or
// Failed, in input order) and enforces the caller's item cap.
// A maxItems of zero disables the cap.
func Eligible(items []*Item, maxItems int) ([]*Item, error) {
	out := make([]*Item, 0, len(items))
	for _, it := range items {
		if it == nil {
			continue
		}
		if it.Status == "" || it.Status == StatusPending || it.Status == StatusFailed {
			out = append(out, it)
		}
	}
	if maxItems > 0 && len(out) > maxItems {
		return nil, fmt.Errorf("%w: %d eligible items, limit is %d", ErrBatchTooLarge, len(out), maxItems)
	}
	return out, nil
}
