package server

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/inkwell-md/inkwell/internal/event"
	"github.com/inkwell-md/inkwell/pkg/types"
)

// mockResponseWriter implements http.Flusher for testing.
type mockResponseWriter struct {
	*httptest.ResponseRecorder
	flushed int
}

func (m *mockResponseWriter) Flush() {
	m.flushed++
}

func newMockResponseWriter() *mockResponseWriter {
	return &mockResponseWriter{
		ResponseRecorder: httptest.NewRecorder(),
	}
}

func TestNewSSEWriter(t *testing.T) {
	w := newMockResponseWriter()
	sse, err := newSSEWriter(w)
	if err != nil {
		t.Fatalf("newSSEWriter failed: %v", err)
	}
	if sse == nil {
		t.Fatal("SSE writer should not be nil")
	}
}

func TestNewSSEWriter_NoFlusher(t *testing.T) {
	w := &noFlushWriter{}
	_, err := newSSEWriter(w)
	if err == nil {
		t.Error("Expected error for writer without Flusher")
	}
}

type noFlushWriter struct{}

func (n *noFlushWriter) Header() http.Header       { return http.Header{} }
func (n *noFlushWriter) Write([]byte) (int, error) { return 0, nil }
func (n *noFlushWriter) WriteHeader(int)           {}

func TestSSEWriter_WriteEvent(t *testing.T) {
	w := newMockResponseWriter()
	sse, _ := newSSEWriter(w)

	data := map[string]string{"message": "hello"}
	err := sse.writeEvent("test", data)
	if err != nil {
		t.Fatalf("writeEvent failed: %v", err)
	}

	body := w.Body.String()
	if !strings.Contains(body, "event: test\n") {
		t.Error("Expected event line")
	}
	if !strings.Contains(body, `"message":"hello"`) {
		t.Error("Expected data to contain message")
	}
}

func TestSSEWriter_WriteHeartbeat(t *testing.T) {
	w := newMockResponseWriter()
	sse, _ := newSSEWriter(w)

	sse.writeHeartbeat()

	body := w.Body.String()
	if !strings.Contains(body, ": heartbeat\n") {
		t.Errorf("Expected heartbeat comment, got: %s", body)
	}
	if w.flushed == 0 {
		t.Error("Expected Flush to be called")
	}
}

func TestSSEEventFormat(t *testing.T) {
	w := newMockResponseWriter()
	sse, _ := newSSEWriter(w)

	testData := struct {
		Type string `json:"type"`
		ID   int    `json:"id"`
	}{
		Type: "test",
		ID:   123,
	}

	sse.writeEvent("message", testData)

	// Check SSE format: event line, data line, empty line.
	lines := strings.Split(w.Body.String(), "\n")
	if len(lines) < 3 {
		t.Fatalf("Expected at least 3 lines, got %d", len(lines))
	}
	if !strings.HasPrefix(lines[0], "event: ") {
		t.Errorf("First line should be event, got: %s", lines[0])
	}
	if !strings.HasPrefix(lines[1], "data: ") {
		t.Errorf("Second line should be data, got: %s", lines[1])
	}
	if lines[2] != "" {
		t.Errorf("Third line should be empty, got: %s", lines[2])
	}
}

func TestEventSessionID(t *testing.T) {
	tests := []struct {
		name       string
		event      event.Event
		expectedID string
		expectedOK bool
	}{
		{
			name: "session opened",
			event: event.Event{
				Type: event.SessionOpened,
				Data: event.SessionOpenedData{Info: &types.Session{ID: "s-1"}},
			},
			expectedID: "s-1",
			expectedOK: true,
		},
		{
			name: "session updated",
			event: event.Event{
				Type: event.SessionUpdated,
				Data: event.SessionUpdatedData{Info: &types.Session{ID: "s-2"}},
			},
			expectedID: "s-2",
			expectedOK: true,
		},
		{
			name: "session saved",
			event: event.Event{
				Type: event.SessionSaved,
				Data: event.SessionSavedData{SessionID: "s-3", Path: "/docs/a.md"},
			},
			expectedID: "s-3",
			expectedOK: true,
		},
		{
			name: "preview updated",
			event: event.Event{
				Type: event.PreviewUpdated,
				Data: event.PreviewUpdatedData{SessionID: "s-4"},
			},
			expectedID: "s-4",
			expectedOK: true,
		},
		{
			name: "file changed with session",
			event: event.Event{
				Type: event.FileChanged,
				Data: event.FileChangedData{Path: "/docs/a.md", SessionID: "s-5"},
			},
			expectedID: "s-5",
			expectedOK: true,
		},
		{
			name: "file changed without session",
			event: event.Event{
				Type: event.FileChanged,
				Data: event.FileChangedData{Path: "/docs/a.md"},
			},
			expectedOK: false,
		},
		{
			name: "watch event has no session",
			event: event.Event{
				Type: event.WatchChanged,
				Data: event.WatchChangedData{Path: "/docs/a.md", Op: "write"},
			},
			expectedOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := eventSessionID(tt.event)
			if ok != tt.expectedOK {
				t.Fatalf("Expected ok=%v, got %v", tt.expectedOK, ok)
			}
			if ok && id != tt.expectedID {
				t.Errorf("Expected id %s, got %s", tt.expectedID, id)
			}
		})
	}
}

func TestAllEvents_Stream(t *testing.T) {
	event.Reset()

	srv := &Server{}
	ts := httptest.NewServer(http.HandlerFunc(srv.allEvents))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, "GET", ts.URL, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET stream: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Expected text/event-stream, got %s", ct)
	}

	scanner := bufio.NewScanner(resp.Body)
	readEventLine := func() string {
		for scanner.Scan() {
			line := scanner.Text()
			if strings.HasPrefix(line, "event: ") {
				return strings.TrimPrefix(line, "event: ")
			}
		}
		t.Fatalf("Stream ended early: %v", scanner.Err())
		return ""
	}

	// The connected frame is written after the subscription is in
	// place, so anything published once we have seen it must arrive.
	if name := readEventLine(); name != "connected" {
		t.Fatalf("Expected connected frame first, got %q", name)
	}

	event.PublishSync(event.Event{
		Type: event.SessionSaved,
		Data: event.SessionSavedData{SessionID: "s-1", Path: "/docs/a.md"},
	})

	if name := readEventLine(); name != string(event.SessionSaved) {
		t.Errorf("Expected %s frame, got %q", event.SessionSaved, name)
	}
}

func TestSessionEvents_UnknownSession(t *testing.T) {
	srv := setupTestServer(t)

	req := withSessionID(httptest.NewRequest("GET", "/session/nonexistent/event", nil), "nonexistent")
	w := httptest.NewRecorder()

	srv.sessionEvents(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}
}
