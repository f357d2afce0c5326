package server

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	jsonpatch "github.com/evanphx/json-patch"

	"github.com/inkwell-md/inkwell/internal/adapter"
	"github.com/inkwell-md/inkwell/internal/content"
	"github.com/inkwell-md/inkwell/internal/editsession"
	"github.com/inkwell-md/inkwell/pkg/types"
)

// listAdapters handles GET /api/adapters
func (s *Server) listAdapters(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.List())
}

// getConfig handles GET /api/config
func (s *Server) getConfig(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	cfg := *s.appConfig
	s.mu.RUnlock()
	writeJSON(w, http.StatusOK, cfg)
}

// updateConfig handles PATCH /api/config with an RFC 7386 merge patch.
//
// Runtime-adjustable: debounceMs, adapter, rules and preview.enabled,
// applied to sessions opened afterwards (flipping previews on also
// re-enables compilation for open sessions). The boundary knobs — dev,
// extensions, roots, watch — are pinned until restart: the store,
// watcher and gate were built from them, and dev in particular must
// never become enableable over the wire it gates.
func (s *Server) updateConfig(w http.ResponseWriter, r *http.Request) {
	patch, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "cannot read body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := json.Marshal(s.appConfig)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	merged, err := jsonpatch.MergePatch(current, patch)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid merge patch: "+err.Error())
		return
	}

	var next types.Config
	if err := json.Unmarshal(merged, &next); err != nil {
		writeError(w, http.StatusBadRequest, "invalid config: "+err.Error())
		return
	}

	// Pin the boundary knobs.
	next.Dev = s.appConfig.Dev
	next.Extensions = s.appConfig.Extensions
	next.Roots = s.appConfig.Roots
	next.Watch = s.appConfig.Watch

	if next.DebounceMs <= 0 {
		next.DebounceMs = s.appConfig.DebounceMs
	}
	if next.Adapter == "" {
		next.Adapter = s.appConfig.Adapter
	}

	// Rules must compile before anything is applied.
	validator, err := content.New(next.Rules)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := s.registry.SetDefault(next.Adapter); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	previewWasEnabled := s.appConfig.PreviewEnabled()
	*s.appConfig = next
	s.validator = validator

	// The markdown built-in validates with the rules, so it is rebuilt
	// alongside. Adapters registered by embedding code keep their own
	// validators.
	s.registry.Register(adapter.NewMarkdown(s.engine, validator))

	s.manager.Reconfigure(editsession.Runtime{
		Debounce:  time.Duration(next.DebounceMs) * time.Millisecond,
		Preview:   next.PreviewEnabled(),
		Validator: validator,
	})
	if next.PreviewEnabled() && !previewWasEnabled {
		s.manager.EnablePreviews()
	}

	s.log.Info().
		Int("debounceMs", next.DebounceMs).
		Str("adapter", next.Adapter).
		Int("rules", len(next.Rules)).
		Bool("preview", next.PreviewEnabled()).
		Msg("config updated")
	writeJSON(w, http.StatusOK, next)
}
