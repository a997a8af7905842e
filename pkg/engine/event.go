package engine

import (
	"sync"
	"time"
)

// EventKind identifies the type of engine event.
type EventKind string

const (
	EventMessageAdded EventKind = "message_added"
	EventDelta        EventKind = "delta"
	EventStreamStart  EventKind = "stream_start"
	EventStreamEnd    EventKind = "stream_end"
	EventError        EventKind = "error"
	EventRollback     EventKind = "rollback"
)

// Event is an immutable notification of session activity.
//
// Data by kind: message_added and rollback carry the user message.Message,
// delta carries the updated assistant message.Message, error carries a
// *SendError and stream_end carries a StreamEnd.
type Event struct {
	Kind      EventKind
	SessionID string
	Timestamp time.Time
	Data      any
}

// StreamEnd summarizes a finished send.
type StreamEnd struct {
	Deltas int
	// FinishReason is the last finish_reason the gateway reported, if any.
	FinishReason string
	Cancelled    bool
	Err          error
}

// Subscription receives events from an EventBus.
type Subscription struct {
	C  <-chan Event
	ch chan Event
}

// EventBus fans out events to all active subscribers. It is safe for
// concurrent use.
type EventBus struct {
	mu   sync.RWMutex
	subs map[*Subscription]struct{}
}

// NewEventBus creates an EventBus ready for use.
func NewEventBus() *EventBus {
	return &EventBus{
		subs: make(map[*Subscription]struct{}),
	}
}

// Subscribe creates a new subscription with the given channel buffer size.
// The caller should read from sub.C and eventually call Unsubscribe.
func (b *EventBus) Subscribe(bufSize int) *Subscription {
	ch := make(chan Event, bufSize)
	sub := &Subscription{C: ch, ch: ch}

	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	return sub
}

// Unsubscribe removes the subscription and closes its channel.
func (b *EventBus) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subs[sub]; ok {
		delete(b.subs, sub)
		close(sub.ch)
	}
}

// Publish sends an event to all subscribers. If a subscriber's buffer is full
// the event is dropped for that subscriber so a slow UI never stalls the
// stream.
func (b *EventBus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subs {
		select {
		case sub.ch <- e:
		default:
		}
	}
}
