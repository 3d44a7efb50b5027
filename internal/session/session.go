package session

import (
	"strings"
	"sync"
	"time"

	"github.com/kwisener01/workassist/internal/models"
)

// titleLimit matches the task-manager display truncation.
const titleLimit = 50

// Session owns one user's in-memory task log. Task IDs are monotonic from 1
// in submission order; Clear resets the log and the counter. Nothing is ever
// persisted.
type Session struct {
	ID string

	mu       sync.RWMutex
	tasks    []*models.Task
	nextID   int
	lastSeen time.Time
}

func newSession(id string) *Session {
	return &Session{
		ID:       id,
		nextID:   1,
		lastSeen: time.Now(),
	}
}

// Append logs a new task and returns a copy of the stored entry.
func (s *Session) Append(req *models.AssistRequest, personaName string, status models.TaskStatus, response string) *models.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	task := &models.Task{
		ID:        s.nextID,
		Title:     truncateTitle(req.ProblemDescription),
		PersonaID: req.PersonaID,
		Persona:   personaName,
		Priority:  req.Priority,
		Urgency:   req.Urgency,
		Status:    status,
		CreatedAt: time.Now(),
		Response:  response,
	}
	s.nextID++
	s.tasks = append(s.tasks, task)
	s.lastSeen = time.Now()
	cp := *task
	return &cp
}

// Transition moves a task along Pending -> Processing -> Completed/Failed,
// recording the response text on terminal states. Terminal states never
// change again. Returns a copy of the updated task, or nil when the task is
// unknown or already terminal.
func (s *Session) Transition(id int, status models.TaskStatus, response string) *models.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.tasks {
		if t.ID != id {
			continue
		}
		if t.Status == models.TaskStatusCompleted || t.Status == models.TaskStatusFailed {
			return nil
		}
		t.Status = status
		if status == models.TaskStatusCompleted || status == models.TaskStatusFailed {
			t.Response = response
		}
		s.lastSeen = time.Now()
		cp := *t
		return &cp
	}
	return nil
}

// Tasks returns up to limit tasks, newest first. limit <= 0 returns all.
func (s *Session) Tasks(limit int) []*models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.tasks)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]*models.Task, 0, n)
	for i := len(s.tasks) - 1; i >= len(s.tasks)-n; i-- {
		t := *s.tasks[i]
		out = append(out, &t)
	}
	return out
}

// Len returns the number of logged tasks.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}

// Clear empties the task log. The next task ID starts at 1 again.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = nil
	s.nextID = 1
	s.lastSeen = time.Now()
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

func (s *Session) idle(now time.Time, ttl time.Duration) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return now.Sub(s.lastSeen) > ttl
}

func truncateTitle(problem string) string {
	problem = strings.TrimSpace(problem)
	if len(problem) > titleLimit {
		return problem[:titleLimit] + "..."
	}
	return problem
}
