package api

import (
	"errors"
	"net/http"

	"github.com/kwisener01/workassist/internal/models"
	"github.com/kwisener01/workassist/internal/persona"
)

// handlePersonas handles GET /api/v1/personas
func (s *Server) handlePersonas(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.respondJSON(w, http.StatusOK, s.registry.List())
}

// handlePersona handles GET /api/v1/personas/{id}
func (s *Server) handlePersona(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := s.extractID(r.URL.Path, "/api/v1/personas")
	p, err := s.registry.Get(models.PersonaID(id))
	if err != nil {
		if errors.Is(err, persona.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, err.Error())
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, p)
}
