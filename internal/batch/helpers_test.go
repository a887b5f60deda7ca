package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// reportJSON builds a structurally valid analyzer payload.
func reportJSON(level string, severities ...string) []byte {
	issues := make([]map[string]any, 0, len(severities))
	for i, sev := range severities {
		issues = append(issues, map[string]any{
			"id":            fmt.Sprintf("issue-%d", i+1),
			"severity":      sev,
			"issueCategory": "mistranslation",
			"description":   "meaning changed",
		})
	}
	doc := map[string]any{
		"overall": map[string]any{
			"qualityLevel": level,
			"scores": map[string]any{
				"accuracy": 5, "terminology": 5, "layout": 5,
				"grammar": 5, "formatting": 5, "tone": 5,
			},
		},
		"issues":  issues,
		"summary": map[string]any{"advice": "none"},
	}
	b, _ := json.Marshal(doc)
	return b
}

func testItems(n int) []*Item {
	items := make([]*Item, n)
	for i := range items {
		items[i] = &Item{
			ID:     fmt.Sprintf("item-%d", i+1),
			Name:   fmt.Sprintf("strings_%d.json", i+1),
			Locale: "de-DE",
			Status: StatusPending,
		}
	}
	return items
}

// fakeAnalyzer is a scriptable AnalyzeFunc that records calls and
// tracks how many analyses run at once.
type fakeAnalyzer struct {
	latency time.Duration
	// failIDs always fail; the message carries the per-item attempt number.
	failIDs map[string]bool
	// gate, if set, blocks every call until closed.
	gate chan struct{}

	mu       sync.Mutex
	calls    map[string]int
	started  []string
	inFlight atomic.Int32
	peak     atomic.Int32
}

func newFakeAnalyzer() *fakeAnalyzer {
	return &fakeAnalyzer{
		failIDs: map[string]bool{},
		calls:   map[string]int{},
	}
}

func (f *fakeAnalyzer) analyze(ctx context.Context, item *Item) ([]byte, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}

	f.mu.Lock()
	f.calls[item.ID]++
	attempt := f.calls[item.ID]
	f.started = append(f.started, item.ID)
	f.mu.Unlock()

	if f.gate != nil {
		<-f.gate
	}
	if f.latency > 0 {
		time.Sleep(f.latency)
	}
	if f.failIDs[item.ID] {
		return nil, fmt.Errorf("upstream unavailable (attempt %d)", attempt)
	}
	return reportJSON("Good"), nil
}

func (f *fakeAnalyzer) callCount(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[id]
}

func (f *fakeAnalyzer) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

func (f *fakeAnalyzer) startOrder() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.started...)
}

// itemStore applies updates the way a caller would.
type itemStore struct {
	mu      sync.Mutex
	items   map[string]*Item
	history map[string][]Status
}

func newItemStore(items []*Item) *itemStore {
	s := &itemStore{items: map[string]*Item{}, history: map[string][]Status{}}
	for _, it := range items {
		s.items[it.ID] = it
	}
	return s
}

func (s *itemStore) update(id string, u Update) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[id].Apply(u)
	s.history[id] = append(s.history[id], u.Status)
}

func (s *itemStore) status(id string) Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items[id].Status
}

func (s *itemStore) countStatus(st Status) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, it := range s.items {
		if it.Status == st {
			n++
		}
	}
	return n
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}
