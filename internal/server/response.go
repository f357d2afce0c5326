package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/inkwell-md/inkwell/internal/adapter"
	"github.com/inkwell-md/inkwell/internal/docstore"
	"github.com/inkwell-md/inkwell/internal/editsession"
	"github.com/inkwell-md/inkwell/internal/pathguard"
	"github.com/inkwell-md/inkwell/internal/preview"
	"github.com/inkwell-md/inkwell/pkg/types"
)

// ErrorResponse is the body of every failed request: a single
// human-readable message.
type ErrorResponse struct {
	Error string `json:"error"`
}

// WriteResult is the response of the write boundary. Validation is set
// when the content was rejected before any disk access.
type WriteResult struct {
	Success    bool                    `json:"success"`
	Error      string                  `json:"error,omitempty"`
	Validation *types.ValidationResult `json:"validation,omitempty"`
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// writeSuccess writes a success response.
func writeSuccess(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// statusFor maps domain errors to HTTP status codes. Rejected
// state-machine events are conflicts: the request was well-formed but
// the session is not in a state that admits it.
func statusFor(err error) int {
	switch {
	case errors.Is(err, pathguard.ErrNotFound),
		errors.Is(err, pathguard.ErrNotRegular),
		errors.Is(err, editsession.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, pathguard.ErrNotAbsolute),
		errors.Is(err, pathguard.ErrUnsupportedExtension),
		errors.Is(err, pathguard.ErrOutsideRoots),
		errors.Is(err, adapter.ErrNotFound):
		return http.StatusBadRequest
	case errors.Is(err, editsession.ErrSaveInFlight),
		errors.Is(err, editsession.ErrNotReady),
		errors.Is(err, editsession.ErrNotDirty),
		errors.Is(err, editsession.ErrNotEditable),
		errors.Is(err, editsession.ErrNoError),
		errors.Is(err, editsession.ErrAlreadyOpen):
		return http.StatusConflict
	case errors.Is(err, preview.ErrUnavailable):
		return http.StatusServiceUnavailable
	}

	var invalid *docstore.InvalidContentError
	if errors.As(err, &invalid) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
