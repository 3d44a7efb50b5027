package events

import (
	"testing"
	"time"
)

func waitForEvent(t *testing.T, ch chan *Event) *Event {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func TestPublishAndSubscribe(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	sub := bus.Subscribe("test", nil)
	defer bus.Unsubscribe("test")

	err := bus.Publish(&Event{
		Type:   EventTypeTaskCompleted,
		Source: "dispatcher",
		Data:   map[string]interface{}{"task_id": 1},
	})
	if err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}

	e := waitForEvent(t, sub.Channel)
	if e.Type != EventTypeTaskCompleted {
		t.Errorf("expected %s, got %s", EventTypeTaskCompleted, e.Type)
	}
	if e.ID == "" || e.Timestamp.IsZero() {
		t.Error("expected ID and timestamp to be filled in")
	}
}

func TestSubscribeWithFilter(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	sub := bus.Subscribe("filtered", func(e *Event) bool {
		return e.SessionID == "session-a"
	})

	bus.Publish(&Event{Type: EventTypeTaskCreated, SessionID: "session-b"})
	bus.Publish(&Event{Type: EventTypeTaskCreated, SessionID: "session-a"})

	e := waitForEvent(t, sub.Channel)
	if e.SessionID != "session-a" {
		t.Errorf("filter leaked event for session %q", e.SessionID)
	}
}

func TestPublishNil(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	if err := bus.Publish(nil); err == nil {
		t.Error("expected error publishing nil event")
	}
}

func TestRecent(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	for i := 0; i < 5; i++ {
		bus.Publish(&Event{Type: EventTypeLogMessage})
	}

	// Delivery is async; give the processing goroutine a moment.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(bus.Recent(0)) == 5 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	if got := len(bus.Recent(0)); got != 5 {
		t.Fatalf("expected 5 recent events, got %d", got)
	}
	if got := len(bus.Recent(3)); got != 3 {
		t.Errorf("expected limit of 3 to apply, got %d", got)
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	sub := bus.Subscribe("gone", nil)
	bus.Unsubscribe("gone")

	if _, ok := <-sub.Channel; ok {
		t.Error("expected channel to be closed after unsubscribe")
	}
}
