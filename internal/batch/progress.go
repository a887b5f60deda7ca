package batch

import (
	"sync"
	"time"
)

// ItemError is one entry of the run's failure log.
type ItemError struct {
	ID      string `json:"id" yaml:"id"`
	Name    string `json:"name" yaml:"name"`
	Message string `json:"message" yaml:"message"`
}

// RunState is a point-in-time view of a batch run.
type RunState struct {
	RunID        string      `json:"run_id" yaml:"run_id"`
	IsProcessing bool        `json:"is_processing" yaml:"is_processing"`
	Total        int         `json:"total" yaml:"total"`
	Completed    int         `json:"completed" yaml:"completed"`
	Success      int         `json:"success" yaml:"success"`
	Failed       int         `json:"failed" yaml:"failed"`
	Errors       []ItemError `json:"errors" yaml:"errors"`
	IsComplete   bool        `json:"is_complete" yaml:"is_complete"`
	Cancelled    bool        `json:"cancelled" yaml:"cancelled"`
	StartedAt    time.Time   `json:"started_at" yaml:"started_at"`
	FinishedAt   time.Time   `json:"finished_at,omitzero" yaml:"finished_at,omitempty"`
}

// Pending returns how many items have not finished.
func (s RunState) Pending() int {
	return s.Total - s.Completed
}

// Progress aggregates per-item outcomes for one run. Counters only grow,
// and once the run is marked complete the state is frozen.
type Progress struct {
	mu    sync.Mutex
	state RunState

	// notifyMu serializes listener calls so they observe states in order.
	notifyMu sync.Mutex
	onUpdate func(RunState)
}

// NewProgress creates the aggregator for a run of total items.
// onUpdate, if set, receives a copy of the state after every change;
// it may call Snapshot.
func NewProgress(runID string, total int, onUpdate func(RunState)) *Progress {
	return &Progress{
		state: RunState{
			RunID:  runID,
			Total:  total,
			Errors: []ItemError{},
		},
		onUpdate: onUpdate,
	}
}

// Snapshot returns a consistent copy of the current state.
func (p *Progress) Snapshot() RunState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.copyLocked()
}

func (p *Progress) copyLocked() RunState {
	s := p.state
	s.Errors = append([]ItemError(nil), p.state.Errors...)
	return s
}

// begin marks the run as processing.
func (p *Progress) begin(at time.Time) {
	p.update(func(s *RunState) {
		s.IsProcessing = true
		s.StartedAt = at
	})
}

// recordSuccess counts one completed item.
func (p *Progress) recordSuccess() {
	p.update(func(s *RunState) {
		s.Completed++
		s.Success++
	})
}

// recordFailure counts one failed item and logs its final error.
func (p *Progress) recordFailure(it *Item, message string) {
	p.update(func(s *RunState) {
		s.Completed++
		s.Failed++
		s.Errors = append(s.Errors, ItemError{ID: it.ID, Name: it.Name, Message: message})
	})
}

// finish freezes the state. Only the scheduler calls it, after every worker has exited.
func (p *Progress) finish(at time.Time, cancelled bool) {
	p.update(func(s *RunState) {
		s.IsProcessing = false
		s.IsComplete = true
		s.Cancelled = cancelled
		s.FinishedAt = at
	})
}

func (p *Progress) update(fn func(*RunState)) {
	p.notifyMu.Lock()
	defer p.notifyMu.Unlock()

	p.mu.Lock()
	if p.state.IsComplete {
		p.mu.Unlock()
		return
	}
	fn(&p.state)
	snap := p.copyLocked()
	p.mu.Unlock()

	if p.onUpdate != nil {
		p.onUpdate(snap)
	}
}
