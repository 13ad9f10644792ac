package queue

import (
	"context"
	"sync"

	"github.com/matzehuels/graphwriter/pkg/request"
)

// DefaultCapacity matches the ring size the service has always used.
const DefaultCapacity = 1024

// Queue is a bounded multi-producer, multi-consumer ring of requests.
type Queue struct {
	mu    sync.Mutex
	slots []request.Request
	mask  uint64
	head  uint64 // next slot to take
	tail  uint64 // next slot to publish

	// free holds one token per writable slot and ready one token per
	// published slot. A token moves to ready only after its slot is written.
	free  chan struct{}
	ready chan struct{}
}

// Stats is a point-in-time view of the queue.
type Stats struct {
	Len       int    `json:"len"`
	Capacity  int    `json:"capacity"`
	Published uint64 `json:"published"`
	Taken     uint64 `json:"taken"`
}

// New creates a queue whose capacity is the smallest power of two that is at
// least capacity. A non-positive capacity selects [DefaultCapacity].
func New(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	size := RoundUpPow2(capacity)

	q := &Queue{
		slots: make([]request.Request, size),
		mask:  uint64(size - 1),
		free:  make(chan struct{}, size),
		ready: make(chan struct{}, size),
	}
	for range size {
		q.free <- struct{}{}
	}
	return q
}

// RoundUpPow2 returns the smallest power of two >= n, and 1 for n <= 1.
func RoundUpPow2(n int) int {
	size := 1
	for size < n {
		size <<= 1
	}
	return size
}

// Publish copies req into the next free slot, blocking while the queue is
// full. It returns ctx.Err() if ctx is done before a slot frees up, in which
// case nothing was published.
func (q *Queue) Publish(ctx context.Context, req request.Request) error {
	select {
	case <-q.free:
	case <-ctx.Done():
		return ctx.Err()
	}
	q.put(req)
	return nil
}

// TryPublish publishes req only if a slot is free right now.
func (q *Queue) TryPublish(req request.Request) bool {
	select {
	case <-q.free:
	default:
		return false
	}
	q.put(req)
	return true
}

func (q *Queue) put(req request.Request) {
	q.mu.Lock()
	q.slots[q.tail&q.mask] = req
	q.tail++
	q.mu.Unlock()

	// Cannot block: ready never holds more tokens than there are slots.
	q.ready <- struct{}{}
}

// Take removes and returns the oldest request, blocking while the queue is
// empty. It returns ctx.Err() if ctx is done first.
func (q *Queue) Take(ctx context.Context) (request.Request, error) {
	select {
	case <-q.ready:
	case <-ctx.Done():
		return request.Request{}, ctx.Err()
	}

	q.mu.Lock()
	i := q.head & q.mask
	req := q.slots[i]
	q.slots[i] = request.Request{}
	q.head++
	q.mu.Unlock()

	q.free <- struct{}{}
	return req, nil
}

// Len returns the number of requests waiting to be taken.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int(q.tail - q.head)
}

// Cap returns the number of slots.
func (q *Queue) Cap() int {
	return len(q.slots)
}

// Stats returns the current counters.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Stats{
		Len:       int(q.tail - q.head),
		Capacity:  len(q.slots),
		Published: q.tail,
		Taken:     q.head,
	}
}
