package server

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/inkwell-md/inkwell/pkg/types"
)

func dialLiveSession(t *testing.T, srv *Server, sessionID string) *websocket.Conn {
	t.Helper()

	r := chi.NewRouter()
	r.Get("/session/{sessionID}/live", srv.liveSession)
	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/session/" + sessionID + "/live"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readFrameUntil skips interleaved frames (preview compiles, bus
// echoes) until one matches.
func readFrameUntil(t *testing.T, conn *websocket.Conn, match func(LiveFrame) bool) LiveFrame {
	t.Helper()
	for {
		conn.SetReadDeadline(time.Now().Add(3 * time.Second))
		var f LiveFrame
		if err := conn.ReadJSON(&f); err != nil {
			t.Fatalf("read frame: %v", err)
		}
		if match(f) {
			return f
		}
	}
}

func TestLiveSession(t *testing.T) {
	srv := setupTestServer(t)
	c := openTestSession(t, srv, "/docs/hello.md")
	conn := dialLiveSession(t, srv, c.ID())

	// The first frame is always the current snapshot.
	f := readFrameUntil(t, conn, func(f LiveFrame) bool { return f.Type == "session" })
	if f.Session == nil || f.Session.Status != types.StatusReady {
		t.Fatalf("Expected ready snapshot, got %+v", f)
	}
	if f.Session.Content != "# Hello\n" {
		t.Errorf("Content mismatch: %q", f.Session.Content)
	}

	// Edit lands as a dirty snapshot.
	if err := conn.WriteJSON(LiveCommand{Type: "edit", Content: "# Live\n"}); err != nil {
		t.Fatalf("write edit: %v", err)
	}
	f = readFrameUntil(t, conn, func(f LiveFrame) bool {
		return f.Type == "session" && f.Session != nil && f.Session.Content == "# Live\n"
	})
	if !f.Session.Dirty {
		t.Error("Session should be dirty after edit")
	}

	// The edit's debounced compile arrives as a preview frame.
	f = readFrameUntil(t, conn, func(f LiveFrame) bool { return f.Type == "preview" })
	if f.Preview == nil || f.Preview.Status != types.PreviewReady {
		t.Fatalf("Expected ready preview, got %+v", f)
	}
	if !strings.Contains(f.Preview.HTML, "<h1") {
		t.Errorf("Preview HTML missing heading: %q", f.Preview.HTML)
	}

	// Save lands as a clean snapshot.
	if err := conn.WriteJSON(LiveCommand{Type: "save"}); err != nil {
		t.Fatalf("write save: %v", err)
	}
	f = readFrameUntil(t, conn, func(f LiveFrame) bool {
		return f.Type == "session" && f.Session != nil && !f.Session.Dirty
	})
	if f.Session.Status != types.StatusReady {
		t.Errorf("Expected ready after save, got %s", f.Session.Status)
	}
}

func TestLiveSession_UnknownCommand(t *testing.T) {
	srv := setupTestServer(t)
	c := openTestSession(t, srv, "/docs/hello.md")
	conn := dialLiveSession(t, srv, c.ID())

	if err := conn.WriteJSON(LiveCommand{Type: "reboot"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	f := readFrameUntil(t, conn, func(f LiveFrame) bool { return f.Type == "error" })
	if !strings.Contains(f.Error, "unknown command") {
		t.Errorf("Unexpected error message: %q", f.Error)
	}
}

func TestLiveSession_ClosedServerSide(t *testing.T) {
	srv := setupTestServer(t)
	c := openTestSession(t, srv, "/docs/hello.md")
	conn := dialLiveSession(t, srv, c.ID())

	// Wait for the initial snapshot so the subscription is live.
	readFrameUntil(t, conn, func(f LiveFrame) bool { return f.Type == "session" })

	if err := srv.manager.Close(c.ID()); err != nil {
		t.Fatalf("close session: %v", err)
	}

	f := readFrameUntil(t, conn, func(f LiveFrame) bool { return f.Type == "closed" })
	if f.Type != "closed" {
		t.Fatalf("Expected closed frame, got %+v", f)
	}
}

func TestLiveSession_UnknownSession(t *testing.T) {
	srv := setupTestServer(t)

	req := withSessionID(httptest.NewRequest("GET", "/session/nonexistent/live", nil), "nonexistent")
	w := httptest.NewRecorder()

	srv.liveSession(w, req)

	if w.Code != 404 {
		t.Errorf("Expected 404, got %d", w.Code)
	}
}
