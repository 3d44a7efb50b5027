package session

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kwisener01/workassist/internal/metrics"
)

// DefaultIdleTTL is how long an untouched session survives before the next
// sweep drops it.
const DefaultIdleTTL = 4 * time.Hour

// Manager keeps one isolated Session per user. Sessions never share state;
// there is no cross-session locking beyond the map itself.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	secret   []byte
	metrics  *metrics.Metrics

	lastSweep time.Time
}

// NewManager creates a session manager. secret signs session tokens; when nil
// a random per-process secret is generated (sessions then reset on restart,
// which matches the session-scoped task-log contract). m may be nil.
func NewManager(secret []byte, ttl time.Duration, m *metrics.Metrics) *Manager {
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			panic("session: failed to generate signing secret: " + err.Error())
		}
	}
	if ttl <= 0 {
		ttl = DefaultIdleTTL
	}
	return &Manager{
		sessions:  make(map[string]*Session),
		ttl:       ttl,
		secret:    secret,
		metrics:   m,
		lastSweep: time.Now(),
	}
}

// NewSession creates a fresh session with a random ID.
func (m *Manager) NewSession() *Session {
	id := uuid.NewString()

	m.mu.Lock()
	defer m.mu.Unlock()
	s := newSession(id)
	m.sessions[id] = s
	if m.metrics != nil {
		m.metrics.SessionsActive.Set(float64(len(m.sessions)))
	}
	return s
}

// Get returns the session for id, or nil when it is unknown or expired.
// Access refreshes the idle timer. Expired sessions are swept lazily here so
// no background goroutine is needed.
func (m *Manager) Get(id string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sweepLocked()

	s, ok := m.sessions[id]
	if !ok {
		return nil
	}
	s.touch()
	return s
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) sweepLocked() {
	now := time.Now()
	if now.Sub(m.lastSweep) < time.Minute {
		return
	}
	m.lastSweep = now

	for id, s := range m.sessions {
		if s.idle(now, m.ttl) {
			delete(m.sessions, id)
		}
	}
	if m.metrics != nil {
		m.metrics.SessionsActive.Set(float64(len(m.sessions)))
	}
}
