package batch

import (
	"sync"
	"testing"
	"time"
)

func TestProgress_Counts(t *testing.T) {
	var updates []RunState
	p := NewProgress("run-1", 3, func(s RunState) { updates = append(updates, s) })
	items := testItems(3)

	p.begin(time.Now())
	p.recordSuccess()
	p.recordFailure(items[1], "timeout: slow")
	p.recordSuccess()

	s := p.Snapshot()
	if s.Completed != 3 || s.Success != 2 || s.Failed != 1 {
		t.Errorf("state = %+v", s)
	}
	if len(s.Errors) != 1 || s.Errors[0] != (ItemError{ID: "item-2", Name: "strings_2.json", Message: "timeout: slow"}) {
		t.Errorf("Errors = %+v", s.Errors)
	}
	if !s.IsProcessing || s.IsComplete {
		t.Error("run should still be processing")
	}
	if len(updates) != 4 {
		t.Errorf("listener saw %d updates, want 4", len(updates))
	}
	for _, u := range updates {
		if u.Completed != u.Success+u.Failed {
			t.Errorf("listener saw inconsistent state %+v", u)
		}
	}
}

func TestProgress_FrozenAfterFinish(t *testing.T) {
	p := NewProgress("run-1", 2, nil)
	p.begin(time.Now())
	p.recordSuccess()
	p.finish(time.Now(), false)

	p.recordSuccess()
	p.recordFailure(testItems(1)[0], "late")
	p.finish(time.Now(), true)

	s := p.Snapshot()
	if s.Completed != 1 || s.Failed != 0 || s.Cancelled {
		t.Errorf("state mutated after completion: %+v", s)
	}
	if !s.IsComplete || s.IsProcessing {
		t.Errorf("state = %+v, want complete", s)
	}
}

func TestProgress_SnapshotIsACopy(t *testing.T) {
	p := NewProgress("run-1", 1, nil)
	p.recordFailure(testItems(1)[0], "boom")

	s := p.Snapshot()
	s.Errors[0].Message = "changed"

	if p.Snapshot().Errors[0].Message != "boom" {
		t.Error("snapshot shares the error log with the aggregator")
	}
}

func TestProgress_ConcurrentUpdates(t *testing.T) {
	const n = 200
	p := NewProgress("run-1", n, func(s RunState) {
		if s.Completed != s.Success+s.Failed {
			t.Errorf("inconsistent state %+v", s)
		}
	})
	items := testItems(n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%4 == 0 {
				p.recordFailure(items[i], "failed")
			} else {
				p.recordSuccess()
			}
		}(i)
	}
	wg.Wait()

	s := p.Snapshot()
	if s.Completed != n || s.Failed != n/4 || s.Success != n-n/4 || len(s.Errors) != n/4 {
		t.Errorf("lost updates: %+v", s)
	}
}
