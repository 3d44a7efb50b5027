package api

import (
	"errors"
	"net/http"

	"github.com/kwisener01/workassist/internal/dispatch"
	"github.com/kwisener01/workassist/internal/events"
	"github.com/kwisener01/workassist/internal/models"
	"github.com/kwisener01/workassist/internal/session"
	"github.com/kwisener01/workassist/internal/telemetry"
)

// handleAssist handles POST /api/v1/assist. One synchronous dispatch per
// request. The task is logged before the provider call as Pending, moves to
// Processing at dispatch start, and ends Completed or Failed; validation
// failures never create a task.
func (s *Server) handleAssist(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req models.AssistRequest
	if err := s.parseJSON(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if req.PersonaID == "" {
		req.PersonaID = s.registry.Default()
	}

	p, err := s.dispatcher.Validate(&req)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !s.dispatcher.Available() {
		s.respondError(w, http.StatusServiceUnavailable, dispatch.ErrUnavailable.Error())
		return
	}

	sess := s.sessionFromRequest(r)

	task := sess.Append(&req, p.Name, models.TaskStatusPending, "")
	s.publishTaskEvent(events.EventTypeTaskCreated, sess.ID, task)
	sess.Transition(task.ID, models.TaskStatusProcessing, "")

	result, err := s.dispatcher.Dispatch(r.Context(), &req)
	if err != nil {
		s.handleAssistError(w, sess, &req, task, err)
		return
	}

	completed := sess.Transition(task.ID, models.TaskStatusCompleted, result.Text)
	if completed == nil {
		completed = task
	}
	if s.metrics != nil {
		s.metrics.TasksLogged.WithLabelValues(string(models.TaskStatusCompleted)).Inc()
	}
	if telemetry.TasksLogged != nil {
		telemetry.TasksLogged.Add(r.Context(), 1)
	}
	s.publishTaskEvent(events.EventTypeTaskCompleted, sess.ID, completed)

	s.respondJSON(w, http.StatusOK, models.AssistResponse{
		TaskID:    task.ID,
		PersonaID: result.Persona.ID,
		Persona:   result.Persona.Name,
		Response:  result.Text,
		CreatedAt: task.CreatedAt,
	})
}

// handleAssistError maps dispatcher failures onto HTTP after the task has
// been logged. Auth and transport failures fail the task with the
// human-readable error string as its response; the validation and
// availability branches only trigger when the state changed between the
// pre-checks and the dispatch.
func (s *Server) handleAssistError(w http.ResponseWriter, sess *session.Session, req *models.AssistRequest, task *models.Task, err error) {
	var vErr *dispatch.ValidationError
	if errors.As(err, &vErr) {
		sess.Transition(task.ID, models.TaskStatusFailed, vErr.Error())
		s.respondError(w, http.StatusBadRequest, vErr.Error())
		return
	}

	if errors.Is(err, dispatch.ErrUnavailable) {
		sess.Transition(task.ID, models.TaskStatusFailed, err.Error())
		s.respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	failed := sess.Transition(task.ID, models.TaskStatusFailed, err.Error())
	if failed == nil {
		failed = task
	}
	if s.metrics != nil {
		s.metrics.TasksLogged.WithLabelValues(string(models.TaskStatusFailed)).Inc()
	}
	s.publishTaskEvent(events.EventTypeTaskFailed, sess.ID, failed)
	if s.logs != nil {
		s.logs.Error("dispatcher", err.Error(), map[string]interface{}{
			"persona_id": string(req.PersonaID),
			"task_id":    task.ID,
		})
	}

	s.respondJSON(w, http.StatusBadGateway, map[string]interface{}{
		"error":   err.Error(),
		"task_id": task.ID,
	})
}

func (s *Server) publishTaskEvent(eventType events.EventType, sessionID string, task *models.Task) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(&events.Event{
		Type:      eventType,
		Source:    "api",
		SessionID: sessionID,
		Data: map[string]interface{}{
			"task_id":    task.ID,
			"title":      task.Title,
			"persona_id": string(task.PersonaID),
			"status":     string(task.Status),
		},
	})
	if s.metrics != nil {
		s.metrics.EventsPublished.WithLabelValues(string(eventType)).Inc()
	}
}
