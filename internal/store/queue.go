// Package store provides the shared toast queue observed by the renderers.
package store

import (
	"context"
	"slices"
	"sync"

	"github.com/jmylchreest/toaster/internal/model"
)

// ChangeType indicates the type of queue change.
type ChangeType int

const (
	// ChangeTypeAppend indicates a toast was appended.
	ChangeTypeAppend ChangeType = iota
	// ChangeTypeRemove indicates a toast was removed.
	ChangeTypeRemove
)

// String returns the name of the change type.
func (c ChangeType) String() string {
	switch c {
	case ChangeTypeAppend:
		return "append"
	case ChangeTypeRemove:
		return "remove"
	default:
		return "unknown"
	}
}

// ChangeEvent signals a structural change to the queue.
type ChangeEvent struct {
	Type    ChangeType
	Toast   *model.Toast
	Version uint64
	Len     int
}

// Queue is an ordered list of active toasts shared between the manager and a renderer.
//
// Every mutation bumps the queue version and is announced to subscribers. A renderer
// acknowledges a render pass with MarkRendered; WaitRendered lets a caller suspend until
// the pass covering its mutation has completed.
type Queue struct {
	mu       sync.RWMutex
	toasts   []*model.Toast
	version  uint64
	rendered uint64
	renderCh chan struct{} // closed and replaced on every MarkRendered

	subscribers []chan ChangeEvent
	closed      bool
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{
		toasts:   make([]*model.Toast, 0),
		renderCh: make(chan struct{}),
	}
}

// Append adds a toast to the end of the queue and returns the new version.
func (q *Queue) Append(t *model.Toast) uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.toasts = append(q.toasts, t)
	q.version++

	q.notifyChange(ChangeEvent{
		Type:    ChangeTypeAppend,
		Toast:   t,
		Version: q.version,
		Len:     len(q.toasts),
	})

	return q.version
}

// Remove removes t from the queue by identity.
// Removing a toast that is not queued is a no-op and returns false.
func (q *Queue) Remove(t *model.Toast) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	idx := slices.Index(q.toasts, t)
	if idx < 0 {
		return false
	}

	q.toasts = slices.Delete(q.toasts, idx, idx+1)
	q.version++

	q.notifyChange(ChangeEvent{
		Type:    ChangeTypeRemove,
		Toast:   t,
		Version: q.version,
		Len:     len(q.toasts),
	})

	return true
}

// Items returns a copy of the queued toasts in order.
func (q *Queue) Items() []*model.Toast {
	items, _ := q.Snapshot()
	return items
}

// Snapshot returns a copy of the queued toasts together with the version they belong to.
func (q *Queue) Snapshot() ([]*model.Toast, uint64) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return slices.Clone(q.toasts), q.version
}

// Len returns the number of queued toasts.
func (q *Queue) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.toasts)
}

// Contains reports whether t is queued.
func (q *Queue) Contains(t *model.Toast) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return slices.Contains(q.toasts, t)
}

// Find returns the queued toast with the given ID, or nil.
func (q *Queue) Find(id uint64) *model.Toast {
	q.mu.RLock()
	defer q.mu.RUnlock()
	for _, t := range q.toasts {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// Version returns the current queue version.
func (q *Queue) Version() uint64 {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.version
}

// MarkRendered records that a render pass has materialised the queue up to version.
// Older versions are ignored.
func (q *Queue) MarkRendered(version uint64) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed || version <= q.rendered {
		return
	}
	q.rendered = version
	close(q.renderCh)
	q.renderCh = make(chan struct{})
}

// RenderedVersion returns the last version acknowledged by a render pass.
func (q *Queue) RenderedVersion() uint64 {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.rendered
}

// WaitRendered blocks until a render pass has covered version, the queue is closed,
// or ctx is done.
func (q *Queue) WaitRendered(ctx context.Context, version uint64) error {
	for {
		q.mu.RLock()
		if q.closed {
			q.mu.RUnlock()
			return ErrQueueClosed
		}
		if q.rendered >= version {
			q.mu.RUnlock()
			return nil
		}
		ch := q.renderCh
		q.mu.RUnlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Subscribe returns a channel that receives change events.
// Events are dropped when the channel is full; subscribers resynchronise from Snapshot.
func (q *Queue) Subscribe() <-chan ChangeEvent {
	q.mu.Lock()
	defer q.mu.Unlock()

	ch := make(chan ChangeEvent, 64)
	if q.closed {
		close(ch)
		return ch
	}
	q.subscribers = append(q.subscribers, ch)
	return ch
}

// Unsubscribe removes a subscription.
func (q *Queue) Unsubscribe(ch <-chan ChangeEvent) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, sub := range q.subscribers {
		if sub == ch {
			q.subscribers = append(q.subscribers[:i], q.subscribers[i+1:]...)
			close(sub)
			return
		}
	}
}

// Close closes all subscriber channels and wakes any pending WaitRendered calls.
func (q *Queue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	q.closed = true

	for _, ch := range q.subscribers {
		close(ch)
	}
	q.subscribers = nil
	close(q.renderCh)

	return nil
}

// notifyChange sends a change event to all subscribers (non-blocking). Caller must hold the lock.
func (q *Queue) notifyChange(event ChangeEvent) {
	for _, ch := range q.subscribers {
		select {
		case ch <- event:
		default:
			// Channel full, the subscriber will catch up from the snapshot
		}
	}
}

// Errors
var (
	ErrQueueClosed = queueError("queue is closed")
)

type queueError string

func (e queueError) Error() string {
	return string(e)
}
