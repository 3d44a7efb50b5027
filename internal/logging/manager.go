// Package logging collects structured application log entries in an
// in-memory ring buffer and fans them out to registered handlers (the event
// stream). Process lifecycle lines still go through the stdlib log package.
package logging

import (
	"container/ring"
	"fmt"
	"sort"
	"sync"
	"time"
)

const (
	// MaxBufferSize is the maximum number of log entries kept in memory.
	MaxBufferSize = 2000

	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

// LogEntry represents a single log entry
type LogEntry struct {
	ID        string                 `json:"id"`
	Timestamp time.Time              `json:"timestamp"`
	Level     string                 `json:"level"`
	Source    string                 `json:"source"`
	Message   string                 `json:"message"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Manager handles log collection, buffering, and fan-out.
type Manager struct {
	mu       sync.RWMutex
	buffer   *ring.Ring
	handlers []func(LogEntry)
}

// NewManager creates a new logging manager.
func NewManager() *Manager {
	return &Manager{
		buffer: ring.New(MaxBufferSize),
	}
}

// AddHandler registers a callback invoked for every new entry. Handlers run
// on their own goroutine and must not block on the manager.
func (m *Manager) AddHandler(h func(LogEntry)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = append(m.handlers, h)
}

// Log adds a log entry to the buffer and notifies handlers.
func (m *Manager) Log(level, source, message string, metadata map[string]interface{}) {
	entry := LogEntry{
		ID:        fmt.Sprintf("log-%d", time.Now().UnixNano()),
		Timestamp: time.Now(),
		Level:     level,
		Source:    source,
		Message:   message,
		Metadata:  metadata,
	}

	m.mu.Lock()
	m.buffer.Value = entry
	m.buffer = m.buffer.Next()
	handlers := make([]func(LogEntry), len(m.handlers))
	copy(handlers, m.handlers)
	m.mu.Unlock()

	for _, handler := range handlers {
		go handler(entry)
	}
}

// Info logs an info-level entry.
func (m *Manager) Info(source, message string, metadata map[string]interface{}) {
	m.Log(LogLevelInfo, source, message, metadata)
}

// Warn logs a warn-level entry.
func (m *Manager) Warn(source, message string, metadata map[string]interface{}) {
	m.Log(LogLevelWarn, source, message, metadata)
}

// Error logs an error-level entry.
func (m *Manager) Error(source, message string, metadata map[string]interface{}) {
	m.Log(LogLevelError, source, message, metadata)
}

// GetRecent returns up to limit entries matching the filters, newest first.
func (m *Manager) GetRecent(limit int, levelFilter, sourceFilter string) []LogEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if limit <= 0 || limit > MaxBufferSize {
		limit = 100
	}

	logs := make([]LogEntry, 0, limit)
	m.buffer.Do(func(v interface{}) {
		entry, ok := v.(LogEntry)
		if !ok {
			return
		}
		if levelFilter != "" && entry.Level != levelFilter {
			return
		}
		if sourceFilter != "" && entry.Source != sourceFilter {
			return
		}
		logs = append(logs, entry)
	})

	sort.Slice(logs, func(i, j int) bool {
		return logs[i].Timestamp.After(logs[j].Timestamp)
	})
	if len(logs) > limit {
		logs = logs[:limit]
	}
	return logs
}
