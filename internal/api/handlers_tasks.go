package api

import (
	"net/http"
	"strconv"

	"github.com/kwisener01/workassist/internal/events"
)

// defaultTaskLimit matches the task-manager view, which shows the last ten
// tasks.
const defaultTaskLimit = 10

// handleTasks handles GET and DELETE /api/v1/tasks
func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFromRequest(r)

	switch r.Method {
	case http.MethodGet:
		limit := defaultTaskLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				s.respondError(w, http.StatusBadRequest, "limit must be a non-negative integer")
				return
			}
			limit = n
		}

		s.respondJSON(w, http.StatusOK, map[string]interface{}{
			"tasks": sess.Tasks(limit),
			"total": sess.Len(),
		})

	case http.MethodDelete:
		sess.Clear()
		if s.metrics != nil {
			s.metrics.TasksCleared.Inc()
		}
		if s.bus != nil {
			s.bus.Publish(&events.Event{
				Type:      events.EventTypeTasksCleared,
				Source:    "api",
				SessionID: sess.ID,
				Data:      map[string]interface{}{},
			})
			if s.metrics != nil {
				s.metrics.EventsPublished.WithLabelValues(string(events.EventTypeTasksCleared)).Inc()
			}
		}
		s.respondJSON(w, http.StatusOK, map[string]string{"status": "cleared"})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}
