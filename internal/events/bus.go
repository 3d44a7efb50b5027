package events

import (
	"fmt"
	"sync"
	"time"
)

// EventType represents the type of event
type EventType string

const (
	EventTypeTaskCreated   EventType = "task.created"
	EventTypeTaskCompleted EventType = "task.completed"
	EventTypeTaskFailed    EventType = "task.failed"
	EventTypeTasksCleared  EventType = "tasks.cleared"
	EventTypeConfigUpdated EventType = "config.updated"
	EventTypeLogMessage    EventType = "log.message"
)

// Event represents a system event
type Event struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"` // Component that generated the event
	SessionID string                 `json:"session_id,omitempty"`
	Data      map[string]interface{} `json:"data"` // Event payload
}

// Subscriber represents an event subscriber
type Subscriber struct {
	ID      string
	Channel chan *Event
	Filter  func(*Event) bool // Optional filter function
}

// Bus provides in-process pub/sub event messaging. Delivery to subscribers is
// asynchronous; slow subscribers lose events rather than block the publisher.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string]*Subscriber
	buffer      chan *Event
	done        chan struct{}
	closeOnce   sync.Once

	// Ring buffer for recent event history (ephemeral, lost on restart)
	recentEvents []*Event
	recentIdx    int
	recentCount  int
}

const (
	defaultBufferSize = 1000
	recentHistorySize = 200
)

// NewBus creates a new event bus and starts its delivery goroutine.
func NewBus() *Bus {
	b := &Bus{
		subscribers:  make(map[string]*Subscriber),
		buffer:       make(chan *Event, defaultBufferSize),
		done:         make(chan struct{}),
		recentEvents: make([]*Event, recentHistorySize),
	}
	go b.processEvents()
	return b
}

// Publish publishes an event to all subscribers.
func (b *Bus) Publish(event *Event) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.ID == "" {
		event.ID = fmt.Sprintf("%s-%d", event.Type, time.Now().UnixNano())
	}

	select {
	case b.buffer <- event:
		return nil
	default:
		return fmt.Errorf("event buffer is full")
	}
}

// Subscribe creates a new subscription. A nil filter receives every event.
func (b *Bus) Subscribe(subscriberID string, filter func(*Event) bool) *Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &Subscriber{
		ID:      subscriberID,
		Channel: make(chan *Event, 64),
		Filter:  filter,
	}
	b.subscribers[subscriberID] = sub
	return sub
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Bus) Unsubscribe(subscriberID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sub, ok := b.subscribers[subscriberID]; ok {
		delete(b.subscribers, subscriberID)
		close(sub.Channel)
	}
}

// Recent returns up to limit recent events, oldest first.
func (b *Bus) Recent(limit int) []*Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	count := b.recentCount
	if limit > 0 && limit < count {
		count = limit
	}

	out := make([]*Event, 0, count)
	start := b.recentIdx - count
	for i := 0; i < count; i++ {
		idx := (start + i + recentHistorySize) % recentHistorySize
		if b.recentEvents[idx] != nil {
			out = append(out, b.recentEvents[idx])
		}
	}
	return out
}

// Close stops the delivery goroutine and closes all subscriber channels.
func (b *Bus) Close() {
	b.closeOnce.Do(func() {
		close(b.done)

		b.mu.Lock()
		defer b.mu.Unlock()
		for id, sub := range b.subscribers {
			delete(b.subscribers, id)
			close(sub.Channel)
		}
	})
}

func (b *Bus) processEvents() {
	for {
		select {
		case <-b.done:
			return
		case event := <-b.buffer:
			b.deliver(event)
		}
	}
}

func (b *Bus) deliver(event *Event) {
	b.mu.Lock()
	b.recentEvents[b.recentIdx] = event
	b.recentIdx = (b.recentIdx + 1) % recentHistorySize
	if b.recentCount < recentHistorySize {
		b.recentCount++
	}
	b.mu.Unlock()

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subscribers {
		if sub.Filter != nil && !sub.Filter(event) {
			continue
		}
		select {
		case sub.Channel <- event:
		default:
			// Subscriber is not keeping up; drop rather than block.
		}
	}
}
