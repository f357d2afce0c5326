package server

import (
	"encoding/json"
	"errors"
	"net/http"

	md "github.com/JohannesKaufmann/html-to-markdown"

	"github.com/inkwell-md/inkwell/internal/docstore"
	"github.com/inkwell-md/inkwell/internal/preview"
)

// readContent handles GET /api/content?path=
func (s *Server) readContent(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeError(w, http.StatusBadRequest, "path required")
		return
	}

	content, err := s.store.Load(r.Context(), path)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"content": content})
}

// WriteContentRequest is the body of POST /api/content.
type WriteContentRequest struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// writeContent handles POST /api/content: a one-shot validated write
// through the persistence gateway, without a session. Every response
// is a WriteResult so callers have one shape to handle.
func (s *Server) writeContent(w http.ResponseWriter, r *http.Request) {
	var req WriteContentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, WriteResult{Error: "invalid JSON body"})
		return
	}
	if req.Path == "" {
		writeJSON(w, http.StatusBadRequest, WriteResult{Error: "path required"})
		return
	}

	s.mu.RLock()
	validator := s.validator
	s.mu.RUnlock()

	if err := s.store.Save(r.Context(), req.Path, req.Content, validator); err != nil {
		result := WriteResult{Error: err.Error()}
		var invalid *docstore.InvalidContentError
		if errors.As(err, &invalid) {
			validation := invalid.Result
			result.Validation = &validation
		}
		writeJSON(w, statusFor(err), result)
		return
	}

	writeJSON(w, http.StatusOK, WriteResult{Success: true})
}

// PreviewRequest is the body of POST /api/preview.
type PreviewRequest struct {
	Source string `json:"source"`
}

// compilePreview handles POST /api/preview: compiles one snapshot
// synchronously, outside any session. Editing keeps working when the
// compiler is unavailable; only this surface reports 503.
func (s *Server) compilePreview(w http.ResponseWriter, r *http.Request) {
	var req PreviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	body, frontmatter, err := s.engine.Compile(r.Context(), req.Source)
	if err != nil {
		if errors.Is(err, preview.ErrUnavailable) {
			writeError(w, http.StatusServiceUnavailable, "preview compiler not installed")
			return
		}
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"body":        body,
		"frontmatter": frontmatter,
	})
}

// ConvertRequest is the body of POST /api/convert.
type ConvertRequest struct {
	HTML string `json:"html"`
}

// convertHTML handles POST /api/convert: turns pasted HTML into
// markdown so imported content lands in the editor as source, not
// markup soup.
func (s *Server) convertHTML(w http.ResponseWriter, r *http.Request) {
	var req ConvertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	converter := md.NewConverter("", true, &md.Options{
		HeadingStyle:     "atx",
		HorizontalRule:   "---",
		BulletListMarker: "-",
		CodeBlockStyle:   "fenced",
		EmDelimiter:      "*",
	})
	converter.Remove("script", "style", "meta", "link")

	markdown, err := converter.ConvertString(req.HTML)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"markdown": markdown})
}
