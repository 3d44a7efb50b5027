package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/kwisener01/workassist/internal/events"
	"github.com/kwisener01/workassist/internal/keymanager"
	"github.com/kwisener01/workassist/internal/provider"
)

// handleConfig handles GET /api/v1/config. The credential itself is never
// returned, only whether one is set.
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"provider": map[string]interface{}{
			"endpoint":    s.config.Provider.Endpoint,
			"model":       s.config.Provider.Model,
			"max_tokens":  s.config.Provider.MaxTokens,
			"temperature": s.config.Provider.Temperature,
			"timeout":     s.config.Provider.Timeout.String(),
		},
		"credential_set": s.provider.Available(),
		"web_ui_enabled": s.config.WebUI.Enabled,
		"session_ttl":    s.config.Session.IdleTTL.String(),
	})
}

// handleCredential handles POST and DELETE /api/v1/config/credential.
// POST sets the API key for the running process and, when the key store is
// unlocked, persists it encrypted. DELETE removes it from both.
func (s *Server) handleCredential(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req struct {
			APIKey string `json:"api_key"`
		}
		if err := s.parseJSON(r, &req); err != nil {
			s.respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		req.APIKey = strings.TrimSpace(req.APIKey)
		if req.APIKey == "" {
			s.respondError(w, http.StatusBadRequest, "api_key is required")
			return
		}

		persisted := false
		if s.keys != nil {
			switch err := s.keys.SetCredential(req.APIKey); {
			case err == nil:
				persisted = true
			case errors.Is(err, keymanager.ErrLocked):
				// Still usable for this process; persisting needs an
				// unlocked store.
				if s.logs != nil {
					s.logs.Warn("config", "credential not persisted: key store locked", nil)
				}
			default:
				s.respondError(w, http.StatusInternalServerError, err.Error())
				return
			}
		}

		updater, ok := s.provider.(provider.KeyUpdater)
		if !ok {
			s.respondError(w, http.StatusInternalServerError, "provider does not accept credential updates")
			return
		}
		updater.SetAPIKey(req.APIKey)

		s.publishConfigUpdated(r, map[string]interface{}{"credential_set": true})
		if s.logs != nil {
			s.logs.Info("config", "provider credential updated", map[string]interface{}{
				"persisted": persisted,
			})
		}

		s.respondJSON(w, http.StatusOK, map[string]interface{}{
			"credential_set": true,
			"persisted":      persisted,
		})

	case http.MethodDelete:
		if s.keys != nil {
			if err := s.keys.DeleteCredential(); err != nil &&
				!errors.Is(err, keymanager.ErrLocked) && !errors.Is(err, keymanager.ErrNoCredential) {
				s.respondError(w, http.StatusInternalServerError, err.Error())
				return
			}
		}
		if updater, ok := s.provider.(provider.KeyUpdater); ok {
			updater.SetAPIKey("")
		}

		s.publishConfigUpdated(r, map[string]interface{}{"credential_set": false})
		s.respondJSON(w, http.StatusOK, map[string]interface{}{"credential_set": false})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) publishConfigUpdated(r *http.Request, data map[string]interface{}) {
	if s.bus == nil {
		return
	}
	sessionID := ""
	if sess := s.sessionFromRequest(r); sess != nil {
		sessionID = sess.ID
	}
	s.bus.Publish(&events.Event{
		Type:      events.EventTypeConfigUpdated,
		Source:    "config-api",
		SessionID: sessionID,
		Data:      data,
	})
	if s.metrics != nil {
		s.metrics.EventsPublished.WithLabelValues(string(events.EventTypeConfigUpdated)).Inc()
	}
}
