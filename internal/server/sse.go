// SSE implementation note: this stays hand-rolled over net/http rather
// than pulling in an SSE framework. The writer is ~40 lines, integrates
// directly with the internal event bus, and needs per-session filtering
// that a generic broker would only get in the way of.

package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/inkwell-md/inkwell/internal/event"
	"github.com/inkwell-md/inkwell/internal/logging"
)

// SSEHeartbeatInterval is the interval for SSE heartbeat comments.
const SSEHeartbeatInterval = 30 * time.Second

// sseWriter wraps http.ResponseWriter for SSE.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	rc      *http.ResponseController
}

// newSSEWriter creates a new SSE writer.
func newSSEWriter(w http.ResponseWriter) (*sseWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}
	return &sseWriter{w: w, flusher: flusher, rc: http.NewResponseController(w)}, nil
}

// writeEvent writes one SSE event frame and flushes it out.
func (s *sseWriter) writeEvent(eventType string, data any) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", eventType, jsonData); err != nil {
		return err
	}

	// ResponseController flushes through middleware wrappers; fall back
	// to the plain flusher when it cannot.
	if err := s.rc.Flush(); err != nil {
		s.flusher.Flush()
	}
	return nil
}

// writeHeartbeat writes an SSE heartbeat comment.
func (s *sseWriter) writeHeartbeat() {
	fmt.Fprintf(s.w, ": heartbeat\n\n")
	s.flusher.Flush()
}

// allEvents handles GET /api/event: every bus event as one stream.
func (s *Server) allEvents(w http.ResponseWriter, r *http.Request) {
	s.streamEvents(w, r, nil)
}

// sessionEvents handles GET /api/session/{sessionID}/event: the stream
// filtered down to one session.
func (s *Server) sessionEvents(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if _, err := s.manager.Get(sessionID); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	s.streamEvents(w, r, func(e event.Event) bool {
		id, ok := eventSessionID(e)
		return ok && id == sessionID
	})
}

// streamEvents subscribes to the bus and relays matching events until
// the client goes away. A nil filter admits everything.
func (s *Server) streamEvents(w http.ResponseWriter, r *http.Request, filter func(event.Event) bool) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // disable nginx buffering

	sse, err := newSSEWriter(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Flush headers before the first event so clients see the stream
	// open immediately.
	w.WriteHeader(http.StatusOK)
	sse.flusher.Flush()

	// Small buffer for low-latency streaming; a client too slow to
	// drain it loses events rather than stalling publishers.
	events := make(chan event.Event, 16)
	unsub := event.SubscribeAll(func(e event.Event) {
		if filter != nil && !filter(e) {
			return
		}
		select {
		case events <- e:
		default:
			logging.Warn().
				Str("eventType", string(e.Type)).
				Msg("SSE event dropped: channel full")
		}
	})
	defer unsub()

	// Once a client reads this frame the subscription is in place;
	// nothing published afterwards is missed.
	if err := sse.writeEvent("connected", map[string]any{}); err != nil {
		return
	}

	ticker := time.NewTicker(SSEHeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case e := <-events:
			if err := sse.writeEvent(string(e.Type), e.Data); err != nil {
				return
			}
		case <-ticker.C:
			sse.writeHeartbeat()
		}
	}
}

// eventSessionID extracts the session an event belongs to. Events with
// no session affiliation report ok == false and never pass a session
// filter.
func eventSessionID(e event.Event) (string, bool) {
	switch data := e.Data.(type) {
	case event.SessionOpenedData:
		if data.Info != nil {
			return data.Info.ID, true
		}
	case event.SessionUpdatedData:
		if data.Info != nil {
			return data.Info.ID, true
		}
	case event.SessionSavedData:
		return data.SessionID, true
	case event.SessionErrorData:
		return data.SessionID, true
	case event.SessionClosedData:
		return data.SessionID, true
	case event.PreviewUpdatedData:
		return data.SessionID, true
	case event.FileChangedData:
		return data.SessionID, data.SessionID != ""
	}
	return "", false
}
