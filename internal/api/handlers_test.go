package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kwisener01/workassist/internal/dispatch"
	"github.com/kwisener01/workassist/internal/events"
	"github.com/kwisener01/workassist/internal/keymanager"
	"github.com/kwisener01/workassist/internal/logging"
	"github.com/kwisener01/workassist/internal/metrics"
	"github.com/kwisener01/workassist/internal/models"
	"github.com/kwisener01/workassist/internal/persona"
	"github.com/kwisener01/workassist/internal/provider"
	"github.com/kwisener01/workassist/internal/session"
	"github.com/kwisener01/workassist/pkg/config"
)

func newTestServer(t *testing.T, prov provider.Protocol) http.Handler {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.WebUI.Enabled = false

	m := metrics.NewMetrics()
	reg := persona.NewRegistry()
	d := dispatch.NewDispatcher(reg, prov, dispatch.DefaultParams(), m)
	sessions := session.NewManager(nil, 0, m)
	bus := events.NewBus()
	t.Cleanup(bus.Close)
	logs := logging.NewManager()
	keys := keymanager.NewKeyManager(t.TempDir() + "/keys.json")

	srv := NewServer(cfg, reg, d, prov, sessions, bus, logs, keys, m)
	return srv.SetupRoutes()
}

// doJSON issues a request and decodes the JSON body. The cookie keeps
// requests in the same session.
func doJSON(t *testing.T, handler http.Handler, method, path string, body interface{}, cookie *http.Cookie) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	// Some error paths respond with plain text; leave decoded nil there.
	var decoded map[string]interface{}
	if w.Body.Len() > 0 {
		json.Unmarshal(w.Body.Bytes(), &decoded)
	}
	return w, decoded
}

func sessionCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == sessionCookieName {
			return c
		}
	}
	return nil
}

func TestHealth(t *testing.T) {
	handler := newTestServer(t, &provider.MockProvider{Response: &provider.MessageResponse{Text: "ok"}})

	w, body := doJSON(t, handler, http.MethodGet, "/api/v1/health", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %v", body["status"])
	}
	if body["assist_available"] != true {
		t.Errorf("expected assist_available true, got %v", body["assist_available"])
	}
}

func TestHealthUnavailable(t *testing.T) {
	handler := newTestServer(t, &provider.MockProvider{Unavailable: true})

	_, body := doJSON(t, handler, http.MethodGet, "/api/v1/health", nil, nil)
	if body["assist_available"] != false {
		t.Errorf("expected assist_available false, got %v", body["assist_available"])
	}
}

func TestListPersonas(t *testing.T) {
	handler := newTestServer(t, &provider.MockProvider{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/personas", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var personas []models.Persona
	if err := json.Unmarshal(w.Body.Bytes(), &personas); err != nil {
		t.Fatalf("decode personas: %v", err)
	}
	if len(personas) != 9 {
		t.Errorf("expected 9 personas, got %d", len(personas))
	}
	if personas[0].ID != models.PersonaChecksheetSpecialist {
		t.Errorf("expected checksheet specialist first, got %s", personas[0].ID)
	}
}

func TestGetPersona(t *testing.T) {
	handler := newTestServer(t, &provider.MockProvider{})

	tests := []struct {
		name           string
		path           string
		expectedStatus int
	}{
		{
			name:           "known persona",
			path:           "/api/v1/personas/six-sigma-black-belt",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "unknown persona",
			path:           "/api/v1/personas/astrologer",
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, body := doJSON(t, handler, http.MethodGet, tt.path, nil, nil)
			if w.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			if tt.expectedStatus == http.StatusOK && body["name"] != "Six Sigma Black Belt" {
				t.Errorf("expected Six Sigma Black Belt, got %v", body["name"])
			}
		})
	}
}

func TestAssistValidation(t *testing.T) {
	mock := &provider.MockProvider{Response: &provider.MessageResponse{Text: "never reached"}}
	handler := newTestServer(t, mock)

	tests := []struct {
		name        string
		requestBody interface{}
	}{
		{
			name: "empty problem",
			requestBody: models.AssistRequest{
				PersonaID:          models.PersonaGeneralAssistant,
				ProblemDescription: "",
			},
		},
		{
			name: "whitespace problem",
			requestBody: models.AssistRequest{
				PersonaID:          models.PersonaGeneralAssistant,
				ProblemDescription: "   ",
			},
		},
		{
			name: "unknown persona",
			requestBody: models.AssistRequest{
				PersonaID:          "astrologer",
				ProblemDescription: "Read my chart",
			},
		},
		{
			name: "invalid priority",
			requestBody: models.AssistRequest{
				PersonaID:          models.PersonaGeneralAssistant,
				ProblemDescription: "Plan my week",
				Priority:           "Urgent",
			},
		},
		{
			name:        "invalid json",
			requestBody: "not an object",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := doJSON(t, handler, http.MethodPost, "/api/v1/assist", tt.requestBody, nil)
			if w.Code != http.StatusBadRequest {
				t.Errorf("expected status 400, got %d", w.Code)
			}
		})
	}

	if mock.Calls() != 0 {
		t.Errorf("expected no provider calls, got %d", mock.Calls())
	}
}

func TestAssistSuccess(t *testing.T) {
	handler := newTestServer(t, &provider.MockProvider{Response: &provider.MessageResponse{Text: "Start with a pareto chart."}})

	req := models.AssistRequest{
		PersonaID:          models.PersonaSixSigmaBlackBelt,
		ProblemDescription: "Defect rate is climbing on line 3",
		Priority:           models.PriorityHigh,
		Urgency:            models.UrgencyImmediate,
	}

	w, body := doJSON(t, handler, http.MethodPost, "/api/v1/assist", req, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if body["response"] != "Start with a pareto chart." {
		t.Errorf("unexpected response text: %v", body["response"])
	}
	if body["task_id"] != float64(1) {
		t.Errorf("expected task_id 1, got %v", body["task_id"])
	}
	if body["persona"] != "Six Sigma Black Belt" {
		t.Errorf("expected persona name, got %v", body["persona"])
	}

	// The task log should show the completed task.
	cookie := sessionCookie(w)
	if cookie == nil {
		t.Fatal("expected session cookie")
	}
	_, tasksBody := doJSON(t, handler, http.MethodGet, "/api/v1/tasks", nil, cookie)
	tasks := tasksBody["tasks"].([]interface{})
	if len(tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(tasks))
	}
	task := tasks[0].(map[string]interface{})
	if task["status"] != string(models.TaskStatusCompleted) {
		t.Errorf("expected completed task, got %v", task["status"])
	}
}

func TestAssistDefaultPersona(t *testing.T) {
	handler := newTestServer(t, &provider.MockProvider{Response: &provider.MessageResponse{Text: "done"}})

	req := models.AssistRequest{
		ProblemDescription: "Plan my week",
	}

	w, body := doJSON(t, handler, http.MethodPost, "/api/v1/assist", req, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if body["persona"] != "General Assistant" {
		t.Errorf("expected the default persona, got %v", body["persona"])
	}
	if body["persona_id"] != string(models.PersonaGeneralAssistant) {
		t.Errorf("expected general-assistant, got %v", body["persona_id"])
	}
}

func TestAssistProviderFailure(t *testing.T) {
	mock := &provider.MockProvider{Err: &provider.StatusError{StatusCode: 401, Body: "invalid x-api-key"}}
	handler := newTestServer(t, mock)

	req := models.AssistRequest{
		PersonaID:          models.PersonaLeanExpert,
		ProblemDescription: "Reduce changeover time",
	}

	w, body := doJSON(t, handler, http.MethodPost, "/api/v1/assist", req, nil)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected status 502, got %d", w.Code)
	}
	errMsg, _ := body["error"].(string)
	if !bytes.Contains([]byte(errMsg), []byte("401")) {
		t.Errorf("expected error to mention status 401, got %q", errMsg)
	}
	if !bytes.Contains([]byte(errMsg), []byte("Lean Expert")) {
		t.Errorf("expected error to name the persona, got %q", errMsg)
	}

	// Failures are logged as failed tasks.
	cookie := sessionCookie(w)
	_, tasksBody := doJSON(t, handler, http.MethodGet, "/api/v1/tasks", nil, cookie)
	tasks := tasksBody["tasks"].([]interface{})
	if len(tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(tasks))
	}
	task := tasks[0].(map[string]interface{})
	if task["status"] != string(models.TaskStatusFailed) {
		t.Errorf("expected failed task, got %v", task["status"])
	}
}

func TestAssistUnavailable(t *testing.T) {
	handler := newTestServer(t, &provider.MockProvider{Unavailable: true})

	req := models.AssistRequest{
		PersonaID:          models.PersonaGeneralAssistant,
		ProblemDescription: "Plan my week",
	}

	w, _ := doJSON(t, handler, http.MethodPost, "/api/v1/assist", req, nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", w.Code)
	}
}

func TestTasksLifecycle(t *testing.T) {
	handler := newTestServer(t, &provider.MockProvider{Response: &provider.MessageResponse{Text: "done"}})

	req := models.AssistRequest{
		PersonaID:          models.PersonaDataAnalyst,
		ProblemDescription: "Summarize last month",
	}

	w, _ := doJSON(t, handler, http.MethodPost, "/api/v1/assist", req, nil)
	cookie := sessionCookie(w)
	if cookie == nil {
		t.Fatal("expected session cookie")
	}
	doJSON(t, handler, http.MethodPost, "/api/v1/assist", req, cookie)

	_, body := doJSON(t, handler, http.MethodGet, "/api/v1/tasks", nil, cookie)
	tasks := body["tasks"].([]interface{})
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(tasks))
	}
	// Newest first.
	first := tasks[0].(map[string]interface{})
	if first["id"] != float64(2) {
		t.Errorf("expected newest task first (id 2), got %v", first["id"])
	}

	w, _ = doJSON(t, handler, http.MethodDelete, "/api/v1/tasks", nil, cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	_, body = doJSON(t, handler, http.MethodGet, "/api/v1/tasks", nil, cookie)
	if total := body["total"].(float64); total != 0 {
		t.Errorf("expected empty task log after clear, got %v", total)
	}

	// Ids restart from 1 after a clear.
	_, assistBody := doJSON(t, handler, http.MethodPost, "/api/v1/assist", req, cookie)
	if assistBody["task_id"] != float64(1) {
		t.Errorf("expected task_id 1 after clear, got %v", assistBody["task_id"])
	}
}

func TestTasksSessionIsolation(t *testing.T) {
	handler := newTestServer(t, &provider.MockProvider{Response: &provider.MessageResponse{Text: "done"}})

	req := models.AssistRequest{
		PersonaID:          models.PersonaGeneralAssistant,
		ProblemDescription: "Plan my week",
	}

	w, _ := doJSON(t, handler, http.MethodPost, "/api/v1/assist", req, nil)
	cookie := sessionCookie(w)

	// A request without the cookie is a different session.
	_, body := doJSON(t, handler, http.MethodGet, "/api/v1/tasks", nil, nil)
	if total := body["total"].(float64); total != 0 {
		t.Errorf("expected fresh session to have no tasks, got %v", total)
	}

	_, body = doJSON(t, handler, http.MethodGet, "/api/v1/tasks", nil, cookie)
	if total := body["total"].(float64); total != 1 {
		t.Errorf("expected 1 task in original session, got %v", total)
	}
}

func TestDashboardMetrics(t *testing.T) {
	handler := newTestServer(t, &provider.MockProvider{})

	w, body := doJSON(t, handler, http.MethodGet, "/api/v1/dashboard/metrics", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	cards := body["metrics"].([]interface{})
	if len(cards) != 4 {
		t.Errorf("expected 4 metric cards, got %d", len(cards))
	}
}

func TestDashboardSeries(t *testing.T) {
	handler := newTestServer(t, &provider.MockProvider{})

	tests := []struct {
		name           string
		path           string
		expectedStatus int
		expectedCount  int
	}{
		{
			name:           "default full year",
			path:           "/api/v1/dashboard/series",
			expectedStatus: http.StatusOK,
			expectedCount:  366,
		},
		{
			name:           "last 30 days",
			path:           "/api/v1/dashboard/series?days=30",
			expectedStatus: http.StatusOK,
			expectedCount:  30,
		},
		{
			name:           "invalid days",
			path:           "/api/v1/dashboard/series?days=soon",
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, body := doJSON(t, handler, http.MethodGet, tt.path, nil, nil)
			if w.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			if tt.expectedStatus == http.StatusOK {
				if count := int(body["count"].(float64)); count != tt.expectedCount {
					t.Errorf("expected %d points, got %d", tt.expectedCount, count)
				}
			}
		})
	}
}

func TestKnowledgeBase(t *testing.T) {
	handler := newTestServer(t, &provider.MockProvider{})

	w, body := doJSON(t, handler, http.MethodGet, "/api/v1/knowledge-base", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if len(body["personas"].([]interface{})) != 9 {
		t.Errorf("expected 9 personas")
	}
	if len(body["quick_actions"].([]interface{})) == 0 {
		t.Errorf("expected quick actions")
	}
	if len(body["best_practices"].([]interface{})) != 3 {
		t.Errorf("expected 3 best practice sections")
	}
}

func TestCredentialUpdate(t *testing.T) {
	mock := &provider.MockProvider{Unavailable: true}
	handler := newTestServer(t, mock)

	// Missing key is rejected.
	w, _ := doJSON(t, handler, http.MethodPost, "/api/v1/config/credential", map[string]string{"api_key": "  "}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}

	w, body := doJSON(t, handler, http.MethodPost, "/api/v1/config/credential", map[string]string{"api_key": "sk-ant-test"}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if body["credential_set"] != true {
		t.Errorf("expected credential_set true, got %v", body["credential_set"])
	}
	// The store is locked, so the key lives only in the running process.
	if body["persisted"] != false {
		t.Errorf("expected persisted false with locked store, got %v", body["persisted"])
	}

	// The skipped persistence is surfaced as a warning.
	_, logsBody := doJSON(t, handler, http.MethodGet, "/api/v1/logs?level=warn&source=config", nil, nil)
	if count := logsBody["count"].(float64); count < 1 {
		t.Errorf("expected a warn log entry about the locked store, got %v", count)
	}

	// Assist becomes available once a key is set.
	_, health := doJSON(t, handler, http.MethodGet, "/api/v1/health", nil, nil)
	if health["assist_available"] != true {
		t.Errorf("expected assist_available true after credential update")
	}

	w, body = doJSON(t, handler, http.MethodDelete, "/api/v1/config/credential", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	_, health = doJSON(t, handler, http.MethodGet, "/api/v1/health", nil, nil)
	if health["assist_available"] != false {
		t.Errorf("expected assist_available false after credential delete")
	}
}

func TestConfigView(t *testing.T) {
	handler := newTestServer(t, &provider.MockProvider{})

	w, body := doJSON(t, handler, http.MethodGet, "/api/v1/config", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	prov := body["provider"].(map[string]interface{})
	if prov["model"] != "claude-3-5-sonnet-20241022" {
		t.Errorf("unexpected model: %v", prov["model"])
	}
	if _, leaked := prov["api_key"]; leaked {
		t.Error("config view must not expose the api key")
	}
}

func TestLogsEndpoint(t *testing.T) {
	handler := newTestServer(t, &provider.MockProvider{})

	// Any API request produces an api log entry via the middleware.
	doJSON(t, handler, http.MethodGet, "/api/v1/health", nil, nil)

	w, body := doJSON(t, handler, http.MethodGet, "/api/v1/logs?source=api", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if count := body["count"].(float64); count < 1 {
		t.Errorf("expected at least one api log entry, got %v", count)
	}
}

func TestRecentEvents(t *testing.T) {
	handler := newTestServer(t, &provider.MockProvider{Response: &provider.MessageResponse{Text: "done"}})

	req := models.AssistRequest{
		PersonaID:          models.PersonaGeneralAssistant,
		ProblemDescription: "Plan my week",
	}
	doJSON(t, handler, http.MethodPost, "/api/v1/assist", req, nil)

	// Delivery is asynchronous.
	var count float64
	for i := 0; i < 50; i++ {
		_, body := doJSON(t, handler, http.MethodGet, "/api/v1/events?type=task.completed", nil, nil)
		count = body["count"].(float64)
		if count > 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if count != 1 {
		t.Errorf("expected 1 task.completed event, got %v", count)
	}
}

func TestApplyConfigUpdatesCORS(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.WebUI.Enabled = false
	cfg.Security.AllowedOrigins = []string{"https://old.example"}

	m := metrics.NewMetrics()
	reg := persona.NewRegistry()
	prov := &provider.MockProvider{}
	d := dispatch.NewDispatcher(reg, prov, dispatch.DefaultParams(), m)
	sessions := session.NewManager(nil, 0, m)
	bus := events.NewBus()
	t.Cleanup(bus.Close)

	srv := NewServer(cfg, reg, d, prov, sessions, bus, logging.NewManager(), nil, m)
	handler := srv.SetupRoutes()

	check := func(origin, want string) {
		t.Helper()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
		req.Header.Set("Origin", origin)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		if got := w.Header().Get("Access-Control-Allow-Origin"); got != want {
			t.Errorf("origin %s: expected allow-origin %q, got %q", origin, want, got)
		}
	}

	check("https://old.example", "https://old.example")
	check("https://new.example", "")

	// A config reload swaps the allowed origins without a restart.
	next := config.DefaultConfig()
	next.Security.AllowedOrigins = []string{"https://new.example"}
	srv.ApplyConfig(next)

	check("https://old.example", "")
	check("https://new.example", "https://new.example")
}

func TestMethodNotAllowed(t *testing.T) {
	handler := newTestServer(t, &provider.MockProvider{})

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/v1/health"},
		{http.MethodDelete, "/api/v1/personas"},
		{http.MethodPut, "/api/v1/tasks"},
		{http.MethodPost, "/api/v1/dashboard/metrics"},
	}

	for _, tt := range tests {
		w, _ := doJSON(t, handler, tt.method, tt.path, nil, nil)
		if w.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s %s: expected status 405, got %d", tt.method, tt.path, w.Code)
		}
	}
}
