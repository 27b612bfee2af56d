// Package queue holds the two queue shapes the sync client needs: a
// blocking FIFO for reconciliation Msgs (fifo.go) and the priority heap in
// this file, which backs internal/connector/sock.Client's write-side
// outbox so an urgent auth/metadata/delete request reaches the wire ahead
// of a push_file upload still waiting in the outbox.
package queue

import (
	"container/heap"
	"sync"
)

// outboxItem wraps one queued value with the wire priority it was
// enqueued under. Lower Priority drains first (see writePriority in
// internal/connector/sock).
type outboxItem[T any] struct {
	Value    T
	Priority int
	index    int
}

// outboxHeap implements container/heap.Interface over outboxItem, giving
// PriorityQueue its pop-lowest-priority-first ordering.
type outboxHeap[T any] []*outboxItem[T]

func (h outboxHeap[T]) Len() int { return len(h) }

// Less orders by ascending Priority: the lower the value, the sooner it
// drains.
func (h outboxHeap[T]) Less(i, j int) bool {
	return h[i].Priority < h[j].Priority
}

func (h outboxHeap[T]) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *outboxHeap[T]) Push(x interface{}) {
	n := len(*h)
	item := x.(*outboxItem[T])
	item.index = n
	*h = append(*h, item)
}

func (h *outboxHeap[T]) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*h = old[0 : n-1]
	return item
}

// PriorityQueue is a thread-safe, generic priority queue: Enqueue tags a
// value with a priority, Dequeue always returns the lowest-priority item
// queued so far. internal/connector/sock.Client is its one caller today,
// using it to keep small requests from queueing behind large uploads on
// the same connection.
type PriorityQueue[T any] struct {
	heap outboxHeap[T]
	mu   sync.Mutex
}

// NewPriorityQueue returns an empty priority queue.
func NewPriorityQueue[T any]() *PriorityQueue[T] {
	pq := &PriorityQueue[T]{
		heap: make(outboxHeap[T], 0),
	}
	heap.Init(&pq.heap)
	return pq
}

// Len reports the number of items currently queued.
func (pq *PriorityQueue[T]) Len() int {
	pq.mu.Lock()
	defer pq.mu.Unlock()
	return pq.heap.Len()
}

// Enqueue adds value to the queue under priority.
func (pq *PriorityQueue[T]) Enqueue(value T, priority int) {
	pq.mu.Lock()
	defer pq.mu.Unlock()

	item := &outboxItem[T]{
		Value:    value,
		Priority: priority,
	}
	heap.Push(&pq.heap, item)
}

// Dequeue removes and returns the lowest-priority item queued, or
// reports false if the queue is empty.
func (pq *PriorityQueue[T]) Dequeue() (T, bool) {
	pq.mu.Lock()
	defer pq.mu.Unlock()

	if pq.heap.Len() == 0 {
		var zero T
		return zero, false
	}

	item := heap.Pop(&pq.heap).(*outboxItem[T])
	return item.Value, true
}

// DequeueAll drains the queue in priority order.
func (pq *PriorityQueue[T]) DequeueAll() []T {
	items := make([]T, 0, pq.Len())
	for pq.Len() > 0 {
		item, _ := pq.Dequeue()
		items = append(items, item)
	}
	return items
}
