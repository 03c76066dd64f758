// Package events carries widget diagnostics: refresh outcomes, preview
// commits and discards. Subscribers are operator-facing surfaces (log sinks,
// status bars); publishing never blocks the state machines that emit.
package events

import (
	"sync"
	"sync/atomic"
	"time"
)

// Type identifies what happened.
type Type string

const (
	RefreshStarted   Type = "refresh_started"
	RefreshApplied   Type = "refresh_applied"
	RefreshDiscarded Type = "refresh_discarded" // stale generation dropped
	RefreshFailed    Type = "refresh_failed"

	PreviewStarted   Type = "preview_started"
	PreviewCommitted Type = "preview_committed"
	PreviewDiscarded Type = "preview_discarded" // superseded load dropped
	PreviewFailed    Type = "preview_failed"
	PreviewCleared   Type = "preview_cleared"
)

// Event is one diagnostic record from a node instance.
type Event struct {
	Type       Type
	NodeID     string
	Subfolder  string
	Image      string
	Generation uint64
	Err        error
	Time       time.Time
}

const defaultBuffer = 64

// Bus fans events out to subscribers. Sends are non-blocking: an event is
// dropped when a subscriber's buffer is full, and the drop is counted.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[Type][]chan Event
	all         []chan Event
	bufferSize  int
	closed      bool
	dropped     atomic.Int64
}

// NewBus creates a Bus with the given per-subscriber buffer size.
func NewBus(bufferSize int) *Bus {
	if bufferSize <= 0 {
		bufferSize = defaultBuffer
	}
	return &Bus{
		subscribers: make(map[Type][]chan Event),
		bufferSize:  bufferSize,
	}
}

// Subscribe returns a channel receiving events of one type.
func (b *Bus) Subscribe(t Type) <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}

	ch := make(chan Event, b.bufferSize)
	b.subscribers[t] = append(b.subscribers[t], ch)
	return ch
}

// SubscribeAll returns a channel receiving every event.
func (b *Bus) SubscribeAll() <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}

	ch := make(chan Event, b.bufferSize)
	b.all = append(b.all, ch)
	return ch
}

// Publish delivers e to matching subscribers without blocking.
func (b *Bus) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	for _, ch := range b.subscribers[e.Type] {
		select {
		case ch <- e:
		default:
			b.dropped.Add(1)
		}
	}
	for _, ch := range b.all {
		select {
		case ch <- e:
		default:
			b.dropped.Add(1)
		}
	}
}

// Dropped returns how many events were lost to full buffers.
func (b *Bus) Dropped() int64 {
	return b.dropped.Load()
}

// Close shuts the bus down and closes all subscriber channels.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for _, channels := range b.subscribers {
		for _, ch := range channels {
			close(ch)
		}
	}
	for _, ch := range b.all {
		close(ch)
	}
	b.subscribers = nil
	b.all = nil
}
