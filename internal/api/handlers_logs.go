package api

import (
	"net/http"
	"strconv"
)

// handleLogs handles GET /api/v1/logs?limit=N&level=xxx&source=xxx
func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	level := r.URL.Query().Get("level")
	source := r.URL.Query().Get("source")

	entries := s.logs.GetRecent(limit, level, source)
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"logs":  entries,
		"count": len(entries),
	})
}
