package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/inkwell-md/inkwell/internal/editsession"
)

// saveRejected reports whether a save request bounced off the state
// machine guards without being processed.
func saveRejected(err error) bool {
	return errors.Is(err, editsession.ErrSaveInFlight) ||
		errors.Is(err, editsession.ErrNotReady) ||
		errors.Is(err, editsession.ErrNotDirty)
}

// Session handlers follow one rule: an event the state machine accepts
// returns the resulting snapshot, even when the outcome is the Error
// state; an event it rejects returns an error status and no state
// changes. Clients read the session's condition from the snapshot, not
// from the HTTP code.

// OpenSessionRequest is the body of POST /api/session.
type OpenSessionRequest struct {
	Path    string `json:"path"`
	Adapter string `json:"adapter,omitempty"`
}

// listSessions handles GET /api/session
func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.manager.List())
}

// openSession handles POST /api/session
func (s *Server) openSession(w http.ResponseWriter, r *http.Request) {
	var req OpenSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Path == "" {
		writeError(w, http.StatusBadRequest, "path required")
		return
	}

	c, err := s.manager.Open(r.Context(), req.Path, req.Adapter)
	if c == nil {
		// Rejected before a session existed: bad path shape, missing
		// file or unknown adapter.
		writeError(w, statusFor(err), err.Error())
		return
	}

	// A load failure leaves the session registered in the Error state;
	// the snapshot carries the message.
	writeJSON(w, http.StatusOK, c.Snapshot())
}

// getSession handles GET /api/session/{sessionID}
func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	c, err := s.manager.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, c.Snapshot())
}

// EditRequest is the body of POST /api/session/{sessionID}/edit.
type EditRequest struct {
	Content string `json:"content"`
}

// editSession handles POST /api/session/{sessionID}/edit
func (s *Server) editSession(w http.ResponseWriter, r *http.Request) {
	c, err := s.manager.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	var req EditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := c.Edit(req.Content); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, c.Snapshot())
}

// saveSession handles POST /api/session/{sessionID}/save
func (s *Server) saveSession(w http.ResponseWriter, r *http.Request) {
	c, err := s.manager.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	if err := c.RequestSave(r.Context()); err != nil && saveRejected(err) {
		// Rejected, not queued. Nothing happened.
		writeError(w, statusFor(err), err.Error())
		return
	}

	// Accepted: the snapshot reflects the outcome, Ready or Error.
	// The typed content is preserved either way.
	writeJSON(w, http.StatusOK, c.Snapshot())
}

// dismissError handles POST /api/session/{sessionID}/dismiss
func (s *Server) dismissError(w http.ResponseWriter, r *http.Request) {
	c, err := s.manager.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	if err := c.DismissError(); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, c.Snapshot())
}

// closeSession handles DELETE /api/session/{sessionID}
func (s *Server) closeSession(w http.ResponseWriter, r *http.Request) {
	if err := s.manager.Close(chi.URLParam(r, "sessionID")); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeSuccess(w)
}

// getSessionPreview handles GET /api/session/{sessionID}/preview
func (s *Server) getSessionPreview(w http.ResponseWriter, r *http.Request) {
	c, err := s.manager.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	p := c.Preview()
	if p == nil {
		writeError(w, http.StatusNotFound, "no preview compiled yet")
		return
	}
	writeJSON(w, http.StatusOK, p)
}
