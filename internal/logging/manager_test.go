package logging

import (
	"fmt"
	"testing"
	"time"
)

func TestLogAndGetRecent(t *testing.T) {
	m := NewManager()

	m.Info("api", "request served", nil)
	m.Error("dispatcher", "provider failed", map[string]interface{}{"status": 502})

	entries := m.GetRecent(10, "", "")
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	// Newest first.
	if entries[0].Source != "dispatcher" {
		t.Errorf("expected newest entry first, got %+v", entries[0])
	}
}

func TestGetRecentFilters(t *testing.T) {
	m := NewManager()

	m.Info("api", "a", nil)
	m.Warn("api", "b", nil)
	m.Error("dispatcher", "c", nil)

	if got := m.GetRecent(10, LogLevelError, ""); len(got) != 1 {
		t.Errorf("level filter: expected 1 entry, got %d", len(got))
	}
	if got := m.GetRecent(10, "", "api"); len(got) != 2 {
		t.Errorf("source filter: expected 2 entries, got %d", len(got))
	}
	if got := m.GetRecent(1, "", ""); len(got) != 1 {
		t.Errorf("limit: expected 1 entry, got %d", len(got))
	}
}

func TestHandlersNotified(t *testing.T) {
	m := NewManager()

	received := make(chan LogEntry, 1)
	m.AddHandler(func(e LogEntry) {
		received <- e
	})

	m.Info("test", "hello", nil)

	select {
	case e := <-received:
		if e.Message != "hello" {
			t.Errorf("unexpected entry: %+v", e)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("handler was never called")
	}
}

func TestBufferOverwrite(t *testing.T) {
	m := NewManager()

	for i := 0; i < MaxBufferSize+10; i++ {
		m.Info("flood", fmt.Sprintf("msg %d", i), nil)
	}

	entries := m.GetRecent(MaxBufferSize, "", "")
	if len(entries) > MaxBufferSize {
		t.Errorf("buffer exceeded max size: %d", len(entries))
	}
}
