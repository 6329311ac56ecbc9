// Package queue buffers writes that could not be acknowledged by the
// peer, for replay once the connection recovers.
package queue

import (
	"sync"
	"time"

	"github.com/framestore-protocol/framestore-go/pkg/fallback"
	"github.com/framestore-protocol/framestore-go/pkg/log"
)

// DefaultMaxAge bounds how long an unacknowledged write stays queued.
// Entries older than this are dropped at replay time with a diagnostic
// instead of being retried forever; the fallback store still holds the
// value, so nothing is lost locally.
const DefaultMaxAge = 10 * time.Minute

// QueuedWrite is one not-yet-acknowledged write.
type QueuedWrite struct {
	Key        string
	Value      string
	EnqueuedAt time.Time
}

// Queue holds at most one pending write per key. A later write for
// the same key replaces the pending value (last write wins) without
// changing the FIFO replay position established by the key's first
// enqueue.
type Queue struct {
	mu      sync.Mutex
	order   []string
	entries map[string]*QueuedWrite
	store   *fallback.Guarded
	maxAge  time.Duration
	logger  log.Logger
}

// New creates a queue that mirrors every enqueued value into store.
// maxAge <= 0 uses DefaultMaxAge.
func New(store *fallback.Guarded, maxAge time.Duration, logger log.Logger) *Queue {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &Queue{
		entries: make(map[string]*QueuedWrite),
		store:   store,
		maxAge:  maxAge,
		logger:  log.OrNoop(logger),
	}
}

// Enqueue records a pending write for key and synchronously mirrors
// the value into the fallback store, regardless of channel state.
func (q *Queue) Enqueue(key, value string) {
	q.store.Set(key, value)

	q.mu.Lock()
	defer q.mu.Unlock()

	if e, ok := q.entries[key]; ok {
		e.Value = value
		e.EnqueuedAt = time.Now()
		return
	}
	q.entries[key] = &QueuedWrite{Key: key, Value: value, EnqueuedAt: time.Now()}
	q.order = append(q.order, key)
}

// Has reports whether a write for key awaits replay.
func (q *Queue) Has(key string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.entries[key]
	return ok
}

// Size returns the number of distinct keys with a pending write.
func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Snapshot returns the pending writes in replay order.
func (q *Queue) Snapshot() []QueuedWrite {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]QueuedWrite, 0, len(q.order))
	for _, key := range q.order {
		if e, ok := q.entries[key]; ok {
			out = append(out, *e)
		}
	}
	return out
}

// Replay attempts to deliver every pending write in first-enqueue
// order. send reports whether the peer acknowledged the write.
// Acknowledged entries are removed unless the key was re-enqueued with
// a newer value mid-flight; failed entries stay queued for the next
// reconnection; entries past maxAge are dropped with a diagnostic.
func (q *Queue) Replay(send func(key, value string) bool) {
	for _, w := range q.Snapshot() {
		if time.Since(w.EnqueuedAt) > q.maxAge {
			q.removeIfUnchanged(w.Key, w.Value)
			q.logger.Log(log.Event{
				Timestamp: time.Now(),
				Component: log.ComponentQueue,
				Category:  log.CategoryDrop,
				Message:   "queued write expired",
				Key:       w.Key,
			})
			continue
		}

		if send(w.Key, w.Value) {
			q.removeIfUnchanged(w.Key, w.Value)
		}
	}
}

// removeIfUnchanged removes key only if its pending value is still the
// one that was replayed. A concurrent Enqueue keeps its newer value
// queued, in the key's original FIFO slot.
func (q *Queue) removeIfUnchanged(key, value string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	e, ok := q.entries[key]
	if !ok || e.Value != value {
		return
	}
	delete(q.entries, key)
	for i, k := range q.order {
		if k == key {
			q.order = append(q.order[:i], q.order[i+1:]...)
			break
		}
	}
}
