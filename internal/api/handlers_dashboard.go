package api

import (
	"net/http"
	"strconv"

	"github.com/kwisener01/workassist/internal/dashboard"
)

// handleDashboardMetrics handles GET /api/v1/dashboard/metrics
func (s *Server) handleDashboardMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"metrics": dashboard.SummaryMetrics(),
	})
}

// handleDashboardSeries handles GET /api/v1/dashboard/series?days=N
func (s *Server) handleDashboardSeries(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	days := 0
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.respondError(w, http.StatusBadRequest, "days must be a non-negative integer")
			return
		}
		days = n
	}

	points := dashboard.Series(days)
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"points": points,
		"count":  len(points),
	})
}

// handleKnowledgeBase handles GET /api/v1/knowledge-base
func (s *Server) handleKnowledgeBase(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"personas":       s.registry.List(),
		"quick_actions":  dashboard.QuickActions,
		"best_practices": dashboard.BestPractices(),
	})
}
