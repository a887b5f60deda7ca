package batch

import "sync"

// Queue is the FIFO of items shared by all workers of a run.
// Pop removes and returns the head in one locked step, so no two
// workers can claim the same item.
type Queue struct {
	mu    sync.Mutex
	items []*Item
}

// NewQueue creates a queue holding items in order.
func NewQueue(items []*Item) *Queue {
	q := &Queue{items: make([]*Item, 0, len(items))}
	for _, it := range items {
		if it != nil {
			q.items = append(q.items, it)
		}
	}
	return q
}

// Pop returns the next item, or false if the queue is empty.
func (q *Queue) Pop() (*Item, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return nil, false
	}
	it := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	return it, true
}

// Len returns the number of items not yet claimed.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
