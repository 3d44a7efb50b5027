package api

import (
	"bufio"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kwisener01/workassist/internal/events"
	"github.com/kwisener01/workassist/internal/models"
	"github.com/kwisener01/workassist/internal/provider"
)

// newSessionCookie issues a throwaway request so the server mints a session
// cookie the test can reuse across stream and assist calls.
func newSessionCookie(t *testing.T, srv *httptest.Server) *http.Cookie {
	t.Helper()

	resp, err := http.Get(srv.URL + "/api/v1/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	resp.Body.Close()

	for _, c := range resp.Cookies() {
		if c.Name == sessionCookieName {
			return c
		}
	}
	t.Fatal("expected session cookie")
	return nil
}

func postAssist(t *testing.T, srv *httptest.Server, cookie *http.Cookie, problem string) {
	t.Helper()

	body, err := json.Marshal(models.AssistRequest{
		PersonaID:          models.PersonaGeneralAssistant,
		ProblemDescription: problem,
	})
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/v1/assist", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("assist request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200 from assist, got %d", resp.StatusCode)
	}
}

func TestEventStream(t *testing.T) {
	handler := newTestServer(t, &provider.MockProvider{Response: &provider.MessageResponse{Text: "done"}})
	srv := httptest.NewServer(handler)
	defer srv.Close()

	cookie := newSessionCookie(t, srv)

	streamReq, err := http.NewRequest(http.MethodGet, srv.URL+"/api/v1/events/stream", nil)
	if err != nil {
		t.Fatalf("build stream request: %v", err)
	}
	streamReq.AddCookie(cookie)

	streamResp, err := http.DefaultClient.Do(streamReq)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer streamResp.Body.Close()

	if ct := streamResp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("expected text/event-stream, got %q", ct)
	}

	lines := make(chan string, 64)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(streamResp.Body)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	waitFor := func(prefix string) string {
		t.Helper()
		deadline := time.After(5 * time.Second)
		for {
			select {
			case line, ok := <-lines:
				if !ok {
					t.Fatalf("stream closed while waiting for %q", prefix)
				}
				if strings.HasPrefix(line, prefix) {
					return line
				}
			case <-deadline:
				t.Fatalf("timed out waiting for %q", prefix)
			}
		}
	}

	// The connected event is written after the subscription is registered,
	// so everything published from here on is observable.
	waitFor("event: connected")

	// A different session's task events must be filtered off this stream.
	postAssist(t, srv, nil, "Other session work")
	postAssist(t, srv, cookie, "My session work")

	waitFor("event: task.created")
	data := waitFor("data: ")
	if !strings.Contains(data, "My session work") {
		t.Fatalf("expected own session's task event first, got %s", data)
	}
	if strings.Contains(data, "Other session work") {
		t.Fatalf("another session's event leaked into the stream: %s", data)
	}
	waitFor("event: task.completed")
}

func TestEventSocket(t *testing.T) {
	handler := newTestServer(t, &provider.MockProvider{Response: &provider.MessageResponse{Text: "done"}})
	srv := httptest.NewServer(handler)
	defer srv.Close()

	cookie := newSessionCookie(t, srv)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/events/ws"
	header := http.Header{}
	header.Add("Cookie", cookie.String())

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		t.Fatalf("dial websocket: %v", err)
	}
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	// First frame confirms the subscription.
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var hello map[string]string
	if err := conn.ReadJSON(&hello); err != nil {
		t.Fatalf("read hello frame: %v", err)
	}

	postAssist(t, srv, nil, "Other session work")
	postAssist(t, srv, cookie, "My session work")

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var created, completed *events.Event
	for completed == nil {
		var ev events.Event
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatalf("read event: %v", err)
		}
		switch ev.Type {
		case events.EventTypeTaskCreated:
			e := ev
			created = &e
		case events.EventTypeTaskCompleted:
			e := ev
			completed = &e
		}
	}

	if created == nil {
		t.Fatal("expected a task.created event before task.completed")
	}
	if got := created.Data["title"]; got != "My session work" {
		t.Errorf("expected own session's task, got %v", got)
	}
	if got := completed.Data["title"]; got != "My session work" {
		t.Errorf("expected own session's completion, got %v", got)
	}
}
