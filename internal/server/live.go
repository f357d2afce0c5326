package server

import (
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/inkwell-md/inkwell/internal/event"
	"github.com/inkwell-md/inkwell/pkg/types"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// The API is gated to development mode; browser editors connect
	// from whatever origin the dev server runs on.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// LiveCommand is a frame sent by the client on the live channel.
type LiveCommand struct {
	Type    string `json:"type"` // "edit" | "save" | "dismiss"
	Content string `json:"content,omitempty"`
}

// LiveFrame is a frame pushed by the server on the live channel.
// Session frames are full snapshots; clients render the latest one
// they have and need no ordering beyond that.
type LiveFrame struct {
	Type    string         `json:"type"` // "session" | "preview" | "error" | "closed"
	Session *types.Session `json:"session,omitempty"`
	Preview *types.Preview `json:"preview,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// liveConn serializes writes; bus callbacks and command replies land
// on different goroutines and gorilla allows one writer at a time.
type liveConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (lc *liveConn) send(f LiveFrame) error {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	return lc.conn.WriteJSON(f)
}

// liveSession handles GET /api/session/{sessionID}/live: a WebSocket
// carrying edits in and session/preview updates out, for editors that
// want one connection instead of POST-per-keystroke plus SSE.
func (s *Server) liveSession(w http.ResponseWriter, r *http.Request) {
	c, err := s.manager.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote its own failure response.
		return
	}
	defer conn.Close()

	lc := &liveConn{conn: conn}
	sessionID := c.ID()

	unsub := event.SubscribeAll(func(e event.Event) {
		id, ok := eventSessionID(e)
		if !ok || id != sessionID {
			return
		}
		switch data := e.Data.(type) {
		case event.PreviewUpdatedData:
			lc.send(LiveFrame{Type: "preview", Preview: data.Preview})
		case event.SessionClosedData:
			lc.send(LiveFrame{Type: "closed"})
			conn.Close() // unblocks the read loop
		default:
			snap := c.Snapshot()
			lc.send(LiveFrame{Type: "session", Session: &snap})
		}
	})
	defer unsub()

	// First frame: the current state, so clients need no separate GET.
	snap := c.Snapshot()
	if err := lc.send(LiveFrame{Type: "session", Session: &snap}); err != nil {
		return
	}

	for {
		var cmd LiveCommand
		if err := conn.ReadJSON(&cmd); err != nil {
			return
		}

		switch cmd.Type {
		case "edit":
			err = c.Edit(cmd.Content)
		case "save":
			err = c.RequestSave(r.Context())
			if err != nil && !saveRejected(err) {
				// Accepted save that failed; the snapshot below
				// carries the Error state.
				err = nil
			}
		case "dismiss":
			err = c.DismissError()
		default:
			lc.send(LiveFrame{Type: "error", Error: "unknown command: " + cmd.Type})
			continue
		}

		if err != nil {
			if lc.send(LiveFrame{Type: "error", Error: err.Error()}) != nil {
				return
			}
			continue
		}

		// Direct reply; the bus echo may duplicate it, which snapshot
		// frames tolerate.
		snap := c.Snapshot()
		if lc.send(LiveFrame{Type: "session", Session: &snap}) != nil {
			return
		}
	}
}
