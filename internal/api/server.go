package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/kwisener01/workassist/internal/dispatch"
	"github.com/kwisener01/workassist/internal/events"
	"github.com/kwisener01/workassist/internal/keymanager"
	"github.com/kwisener01/workassist/internal/logging"
	"github.com/kwisener01/workassist/internal/metrics"
	"github.com/kwisener01/workassist/internal/persona"
	"github.com/kwisener01/workassist/internal/provider"
	"github.com/kwisener01/workassist/internal/session"
	"github.com/kwisener01/workassist/pkg/config"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server represents the HTTP API server
type Server struct {
	config     *config.Config
	registry   *persona.Registry
	dispatcher *dispatch.Dispatcher
	provider   provider.Protocol
	sessions   *session.Manager
	bus        *events.Bus
	logs       *logging.Manager
	keys       *keymanager.KeyManager
	metrics    *metrics.Metrics

	// mu guards the settings a config reload can change at runtime.
	mu             sync.RWMutex
	allowedOrigins []string
}

// NewServer creates a new API server. keys may be nil when no keystore is
// configured; everything else is required.
func NewServer(cfg *config.Config, reg *persona.Registry, d *dispatch.Dispatcher, prov provider.Protocol,
	sessions *session.Manager, bus *events.Bus, logs *logging.Manager, keys *keymanager.KeyManager,
	m *metrics.Metrics) *Server {
	return &Server{
		config:         cfg,
		registry:       reg,
		dispatcher:     d,
		provider:       prov,
		sessions:       sessions,
		bus:            bus,
		logs:           logs,
		keys:           keys,
		metrics:        m,
		allowedOrigins: append([]string(nil), cfg.Security.AllowedOrigins...),
	}
}

// ApplyConfig re-applies the runtime-tunable settings from a reloaded
// configuration. Structural settings (port, session secret, static path)
// are ignored; changing those needs a restart.
func (s *Server) ApplyConfig(next *config.Config) {
	s.mu.Lock()
	s.allowedOrigins = append([]string(nil), next.Security.AllowedOrigins...)
	s.mu.Unlock()
}

// SetupRoutes configures HTTP routes
func (s *Server) SetupRoutes() http.Handler {
	mux := http.NewServeMux()

	// Serve static files
	if s.config.WebUI.Enabled {
		fs := http.FileServer(http.Dir(s.config.WebUI.StaticPath))
		mux.Handle("/static/", http.StripPrefix("/static/", fs))

		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/" {
				http.ServeFile(w, r, s.config.WebUI.StaticPath+"/index.html")
			} else {
				http.NotFound(w, r)
			}
		})
	}

	// Health check
	mux.HandleFunc("/api/v1/health", s.handleHealth)

	// Personas
	mux.HandleFunc("/api/v1/personas", s.handlePersonas)
	mux.HandleFunc("/api/v1/personas/", s.handlePersona)

	// Problem solver
	mux.HandleFunc("/api/v1/assist", s.handleAssist)

	// Task manager
	mux.HandleFunc("/api/v1/tasks", s.handleTasks)

	// Sample dashboard
	mux.HandleFunc("/api/v1/dashboard/metrics", s.handleDashboardMetrics)
	mux.HandleFunc("/api/v1/dashboard/series", s.handleDashboardSeries)

	// Knowledge base
	mux.HandleFunc("/api/v1/knowledge-base", s.handleKnowledgeBase)

	// Configuration
	mux.HandleFunc("/api/v1/config", s.handleConfig)
	mux.HandleFunc("/api/v1/config/credential", s.handleCredential)

	// Logs
	mux.HandleFunc("/api/v1/logs", s.handleLogs)

	// Events (real-time updates)
	mux.HandleFunc("/api/v1/events/stream", s.handleEventStream)
	mux.HandleFunc("/api/v1/events/ws", s.handleEventSocket)
	mux.HandleFunc("/api/v1/events", s.handleGetEvents)

	// Prometheus
	mux.Handle("/metrics", promhttp.Handler())

	// Apply middleware
	handler := s.sessionMiddleware(mux)
	handler = s.corsMiddleware(handler)
	handler = s.loggingMiddleware(handler)

	return handler
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":           "ok",
		"assist_available": s.dispatcher.Available(),
	})
}

// Middleware

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Flush keeps SSE streaming working through the wrapper.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// loggingMiddleware records request metrics and log entries
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Websocket upgrades need the raw ResponseWriter (Hijacker).
		if r.URL.Path == "/api/v1/events/ws" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		elapsed := time.Since(start)

		if s.metrics != nil {
			s.metrics.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(rec.status)).Inc()
			s.metrics.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(elapsed.Seconds())
		}
		if s.logs != nil && strings.HasPrefix(r.URL.Path, "/api/") {
			s.logs.Info("api", r.Method+" "+r.URL.Path, map[string]interface{}{
				"status":     rec.status,
				"latency_ms": elapsed.Milliseconds(),
			})
		}
	})
}

// corsMiddleware handles CORS headers
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.RLock()
		allowedOrigins := s.allowedOrigins
		s.mu.RUnlock()

		if len(allowedOrigins) > 0 {
			origin := r.Header.Get("Origin")
			for _, allowedOrigin := range allowedOrigins {
				if allowedOrigin == "*" || allowedOrigin == origin {
					w.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
					break
				}
			}
		}

		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Credentials", "true")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

type contextKey string

const sessionContextKey contextKey = "workassist-session"

const sessionCookieName = "workassist_session"

// sessionMiddleware resolves the caller's session from the signed cookie,
// minting a fresh session (and cookie) when the token is absent, forged, or
// expired. Only API routes get sessions.
func (s *Server) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/api/") {
			next.ServeHTTP(w, r)
			return
		}

		var sess *session.Session
		if cookie, err := r.Cookie(sessionCookieName); err == nil {
			if id, err := s.sessions.ParseToken(cookie.Value); err == nil {
				sess = s.sessions.Get(id)
			}
		}

		if sess == nil {
			sess = s.sessions.NewSession()
			if token, err := s.sessions.MintToken(sess.ID); err == nil {
				http.SetCookie(w, &http.Cookie{
					Name:     sessionCookieName,
					Value:    token,
					Path:     "/",
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
			}
		}

		ctx := context.WithValue(r.Context(), sessionContextKey, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// sessionFromRequest returns the request's session. The session middleware
// guarantees one for every /api/ route.
func (s *Server) sessionFromRequest(r *http.Request) *session.Session {
	sess, _ := r.Context().Value(sessionContextKey).(*session.Session)
	return sess
}

// Helper functions

// respondJSON writes a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError writes an error response
func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

// parseJSON parses JSON request body
func (s *Server) parseJSON(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// extractID extracts ID from URL path
func (s *Server) extractID(path, prefix string) string {
	id := strings.TrimPrefix(path, prefix)
	id = strings.TrimPrefix(id, "/")
	id = strings.TrimSuffix(id, "/")

	parts := strings.Split(id, "/")
	if len(parts) > 0 {
		return parts[0]
	}
	return id
}
