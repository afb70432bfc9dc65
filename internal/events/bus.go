// Package events is an in-process publish/subscribe bus for engine events.
package events

import (
	"sync"
	"time"

	"github.com/Veraticus/spice-insights/internal/model"
)

// Type identifies what happened.
type Type string

// Event types.
const (
	AlertDispatched   Type = "alert_dispatched"
	AlertSuppressed   Type = "alert_suppressed"
	AnalysisCompleted Type = "analysis_completed"
	DataChanged       Type = "data_changed"
	RuleFailed        Type = "rule_failed"
)

// Event is one published occurrence. Only the fields relevant to Type are set.
type Event struct {
	Timestamp time.Time    `json:"timestamp"`
	Alert     *model.Alert `json:"alert,omitempty"`
	Type      Type         `json:"type"`
	Reason    string       `json:"reason,omitempty"` // Why an alert was suppressed, or the rule failure
	RuleID    string       `json:"rule_id,omitempty"`
	Kind      string       `json:"kind,omitempty"` // Which analysis completed
	ID        int64        `json:"id"`
}

// Subscription receives events until it is unsubscribed.
type Subscription struct {
	C  <-chan Event
	ch chan Event
	id int
}

// Bus fans events out to subscribers. Slow subscribers miss events rather
// than block publishers.
type Bus struct {
	subs    map[int]chan Event
	clock   func() time.Time
	nextID  int64
	nextSub int
	mu      sync.Mutex
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{
		subs:  make(map[int]chan Event),
		clock: time.Now,
	}
}

// Subscribe registers a subscriber with the given channel buffer.
func (b *Bus) Subscribe(buffer int) *Subscription {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Event, buffer)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextSub++
	b.subs[b.nextSub] = ch
	return &Subscription{C: ch, ch: ch, id: b.nextSub}
}

// Unsubscribe removes the subscriber and closes its channel.
func (b *Bus) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subs[sub.id]; ok {
		delete(b.subs, sub.id)
		close(ch)
	}
}

// Publish stamps ev with an ID and timestamp and delivers it to every
// subscriber with buffer space. It never blocks.
func (b *Bus) Publish(ev Event) Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	ev.ID = b.nextID
	if ev.Timestamp.IsZero() {
		ev.Timestamp = b.clock().UTC()
	}

	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	return ev
}

// SubscriberCount returns the number of active subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
