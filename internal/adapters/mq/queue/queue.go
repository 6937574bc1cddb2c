// Package queue defines the contract for enqueuing and consuming sessions.
//
// The dispatch boundary places each newly created session on the queue
// exactly once; workers consume from it and run the pipeline.
package queue

import (
	"context"
	"sync"

	"github.com/okian/dwell/internal/domain/model"
	"github.com/okian/dwell/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultQueueCapacity = 100000
)

// Session is the payload type flowing through the queue.
type Session = model.Session

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a session to the queue.
	// Returns false if the queue is full and the session was not enqueued.
	Enqueue(ctx context.Context, s Session) bool

	// Dequeue returns a channel that receives sessions as they become
	// available. The channel is closed when the queue is closed.
	Dequeue(ctx context.Context) <-chan Session

	// Len returns the current number of queued sessions.
	Len(ctx context.Context) int

	// Close gracefully shuts down the queue. After closing, no new sessions
	// can be enqueued and the dequeue channel will be closed.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	sessions chan Session
	capacity int
	mu       sync.RWMutex
	closed   bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultQueueCapacity,
	}

	for _, opt := range opts {
		opt(q)
	}

	q.sessions = make(chan Session, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	metrics.UpdateQueueUtilization(0.0)

	return q
}

// Enqueue adds a session to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, s Session) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError()
		return false
	}

	select {
	case q.sessions <- s:
		metrics.RecordQueueEnqueue()
		size := len(q.sessions)
		metrics.UpdateQueueSize(size)
		metrics.UpdateQueueUtilization(float64(size) / float64(q.capacity))
		return true
	case <-ctx.Done():
		metrics.RecordQueueEnqueueError()
		return false
	default:
		metrics.RecordQueueEnqueueError()
		return false // queue is full
	}
}

// Dequeue returns a channel that receives sessions as they become available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Session {
	out := make(chan Session)
	go func() {
		defer close(out)
		for s := range q.sessions {
			select {
			case out <- s:
				metrics.RecordQueueDequeue()
				size := len(q.sessions)
				metrics.UpdateQueueSize(size)
				metrics.UpdateQueueUtilization(float64(size) / float64(q.capacity))
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the current number of queued sessions.
func (q *InMemoryQueue) Len(_ context.Context) int {
	return len(q.sessions)
}

// Close gracefully shuts down the queue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}

	close(q.sessions)
	q.closed = true

	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
