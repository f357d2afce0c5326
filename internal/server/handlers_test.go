package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/afero"

	"github.com/inkwell-md/inkwell/internal/adapter"
	"github.com/inkwell-md/inkwell/internal/content"
	"github.com/inkwell-md/inkwell/internal/docstore"
	"github.com/inkwell-md/inkwell/internal/editsession"
	"github.com/inkwell-md/inkwell/internal/event"
	"github.com/inkwell-md/inkwell/internal/pathguard"
	"github.com/inkwell-md/inkwell/internal/preview"
	"github.com/inkwell-md/inkwell/pkg/types"
)

// setupTestServerFS builds a server over fs without starting it.
// Handlers are invoked directly; router-level behavior (the dev gate)
// has its own test against New().
func setupTestServerFS(t *testing.T, fs afero.Fs) *Server {
	t.Helper()
	event.Reset()

	validator, err := content.New(nil)
	if err != nil {
		t.Fatalf("content.New failed: %v", err)
	}

	store := docstore.New(fs, pathguard.Options{Extensions: []string{".md", ".mdx"}})
	engine := preview.NewMarkdownEngine()

	registry := adapter.NewRegistry("markdown")
	registry.Register(adapter.NewMarkdown(engine, validator))
	registry.Register(adapter.Plain{})

	manager := editsession.NewManager(editsession.Config{
		Store:     store,
		Registry:  registry,
		Validator: validator,
		Debounce:  10 * time.Millisecond,
		Preview:   true,
		Endpoint:  "/api/content",
		Dev:       true,
	})
	t.Cleanup(manager.CloseAll)

	return &Server{
		store:    store,
		manager:  manager,
		registry: registry,
		engine:   engine,
		appConfig: &types.Config{
			Dev:        true,
			Extensions: []string{".md", ".mdx"},
			DebounceMs: 10,
			Adapter:    "markdown",
		},
		validator: validator,
	}
}

func setupTestServer(t *testing.T) *Server {
	t.Helper()
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/docs/hello.md", []byte("# Hello\n"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}
	return setupTestServerFS(t, fs)
}

// withSessionID injects a chi route context carrying the sessionID
// URL parameter, as the router would.
func withSessionID(req *http.Request, id string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("sessionID", id)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func openTestSession(t *testing.T, srv *Server, path string) *editsession.Controller {
	t.Helper()
	c, err := srv.manager.Open(context.Background(), path, "")
	if err != nil {
		t.Fatalf("open session: %v", err)
	}
	return c
}

func TestReadContent(t *testing.T) {
	srv := setupTestServer(t)

	req := httptest.NewRequest("GET", "/content?path=/docs/hello.md", nil)
	w := httptest.NewRecorder()

	srv.readContent(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var result map[string]string
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}
	if result["content"] != "# Hello\n" {
		t.Errorf("Content mismatch: got %q", result["content"])
	}
}

func TestReadContent_MissingPath(t *testing.T) {
	srv := setupTestServer(t)

	req := httptest.NewRequest("GET", "/content", nil)
	w := httptest.NewRecorder()

	srv.readContent(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", w.Code)
	}
}

func TestReadContent_NotFound(t *testing.T) {
	srv := setupTestServer(t)

	req := httptest.NewRequest("GET", "/content?path=/docs/missing.md", nil)
	w := httptest.NewRecorder()

	srv.readContent(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d: %s", w.Code, w.Body.String())
	}
}

func TestReadContent_UnsupportedExtension(t *testing.T) {
	srv := setupTestServer(t)

	req := httptest.NewRequest("GET", "/content?path=/docs/hello.txt", nil)
	w := httptest.NewRecorder()

	srv.readContent(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestWriteContent_RoundTrip(t *testing.T) {
	srv := setupTestServer(t)

	body, _ := json.Marshal(WriteContentRequest{
		Path:    "/docs/new.md",
		Content: "# New\n\nBody.\n",
	})
	req := httptest.NewRequest("POST", "/content", bytes.NewReader(body))
	w := httptest.NewRecorder()

	srv.writeContent(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var result WriteResult
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}
	if !result.Success {
		t.Errorf("Expected success, got %+v", result)
	}

	// Read it back through the read boundary.
	req = httptest.NewRequest("GET", "/content?path=/docs/new.md", nil)
	w = httptest.NewRecorder()
	srv.readContent(w, req)

	var read map[string]string
	if err := json.NewDecoder(w.Body).Decode(&read); err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}
	if read["content"] != "# New\n\nBody.\n" {
		t.Errorf("Round trip mismatch: got %q", read["content"])
	}
}

func TestWriteContent_InvalidContent(t *testing.T) {
	srv := setupTestServer(t)

	body, _ := json.Marshal(WriteContentRequest{
		Path:    "/docs/hello.md",
		Content: "---\ntitle: Broken\n",
	})
	req := httptest.NewRequest("POST", "/content", bytes.NewReader(body))
	w := httptest.NewRecorder()

	srv.writeContent(w, req)

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("Expected 422, got %d: %s", w.Code, w.Body.String())
	}

	var result WriteResult
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}
	if result.Success {
		t.Error("Expected success=false")
	}
	if result.Validation == nil || result.Validation.Valid {
		t.Fatalf("Expected validation errors, got %+v", result.Validation)
	}

	// The rejected write must not have touched the file.
	data, err := afero.ReadFile(srv.store.Fs(), "/docs/hello.md")
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "# Hello\n" {
		t.Errorf("File was modified by rejected write: %q", data)
	}
}

func TestWriteContent_RelativePath(t *testing.T) {
	srv := setupTestServer(t)

	body, _ := json.Marshal(WriteContentRequest{Path: "docs/hello.md", Content: "x"})
	req := httptest.NewRequest("POST", "/content", bytes.NewReader(body))
	w := httptest.NewRecorder()

	srv.writeContent(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestCompilePreview(t *testing.T) {
	srv := setupTestServer(t)

	body, _ := json.Marshal(PreviewRequest{
		Source: "---\ntitle: Test\n---\n\n# Hi\n",
	})
	req := httptest.NewRequest("POST", "/preview", bytes.NewReader(body))
	w := httptest.NewRecorder()

	srv.compilePreview(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var result struct {
		Body        string         `json:"body"`
		Frontmatter map[string]any `json:"frontmatter"`
	}
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}
	if !bytes.Contains([]byte(result.Body), []byte("<h1")) {
		t.Errorf("Expected rendered heading, got %q", result.Body)
	}
	if result.Frontmatter["title"] != "Test" {
		t.Errorf("Frontmatter mismatch: %+v", result.Frontmatter)
	}
}

func TestCompilePreview_EngineUnavailable(t *testing.T) {
	srv := setupTestServer(t)
	srv.engine = preview.Disabled()

	body, _ := json.Marshal(PreviewRequest{Source: "# Hi\n"})
	req := httptest.NewRequest("POST", "/preview", bytes.NewReader(body))
	w := httptest.NewRecorder()

	srv.compilePreview(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503, got %d: %s", w.Code, w.Body.String())
	}
}

func TestConvertHTML(t *testing.T) {
	srv := setupTestServer(t)

	body, _ := json.Marshal(ConvertRequest{
		HTML: "<h1>Title</h1><p>Some <em>text</em>.</p><script>alert(1)</script>",
	})
	req := httptest.NewRequest("POST", "/convert", bytes.NewReader(body))
	w := httptest.NewRecorder()

	srv.convertHTML(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var result map[string]string
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}
	md := result["markdown"]
	if !bytes.Contains([]byte(md), []byte("# Title")) {
		t.Errorf("Expected atx heading, got %q", md)
	}
	if bytes.Contains([]byte(md), []byte("alert")) {
		t.Errorf("Script content should be removed, got %q", md)
	}
}

func TestOpenSession(t *testing.T) {
	srv := setupTestServer(t)

	body, _ := json.Marshal(OpenSessionRequest{Path: "/docs/hello.md"})
	req := httptest.NewRequest("POST", "/session", bytes.NewReader(body))
	w := httptest.NewRecorder()

	srv.openSession(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var snap types.Session
	if err := json.NewDecoder(w.Body).Decode(&snap); err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}
	if snap.ID == "" {
		t.Error("Session ID should not be empty")
	}
	if snap.Status != types.StatusReady {
		t.Errorf("Expected ready, got %s", snap.Status)
	}
	if snap.Content != "# Hello\n" {
		t.Errorf("Content mismatch: %q", snap.Content)
	}
	if snap.Adapter != "markdown" {
		t.Errorf("Expected markdown adapter, got %s", snap.Adapter)
	}
}

func TestOpenSession_MissingFile(t *testing.T) {
	srv := setupTestServer(t)

	body, _ := json.Marshal(OpenSessionRequest{Path: "/docs/missing.md"})
	req := httptest.NewRequest("POST", "/session", bytes.NewReader(body))
	w := httptest.NewRecorder()

	srv.openSession(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d: %s", w.Code, w.Body.String())
	}
	if srv.manager.Count() != 0 {
		t.Errorf("No session should be registered, got %d", srv.manager.Count())
	}
}

func TestOpenSession_UnknownAdapter(t *testing.T) {
	srv := setupTestServer(t)

	body, _ := json.Marshal(OpenSessionRequest{Path: "/docs/hello.md", Adapter: "spreadsheet"})
	req := httptest.NewRequest("POST", "/session", bytes.NewReader(body))
	w := httptest.NewRecorder()

	srv.openSession(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestListSessions(t *testing.T) {
	srv := setupTestServer(t)

	req := httptest.NewRequest("GET", "/session", nil)
	w := httptest.NewRecorder()
	srv.listSessions(w, req)

	var sessions []types.Session
	if err := json.NewDecoder(w.Body).Decode(&sessions); err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}
	if len(sessions) != 0 {
		t.Errorf("Expected empty list, got %d", len(sessions))
	}

	openTestSession(t, srv, "/docs/hello.md")

	w = httptest.NewRecorder()
	srv.listSessions(w, httptest.NewRequest("GET", "/session", nil))

	if err := json.NewDecoder(w.Body).Decode(&sessions); err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}
	if len(sessions) != 1 {
		t.Errorf("Expected 1 session, got %d", len(sessions))
	}
}

func TestEditAndSaveSession(t *testing.T) {
	srv := setupTestServer(t)
	c := openTestSession(t, srv, "/docs/hello.md")

	body, _ := json.Marshal(EditRequest{Content: "# Hello edited\n"})
	req := withSessionID(httptest.NewRequest("POST", "/session/"+c.ID()+"/edit", bytes.NewReader(body)), c.ID())
	w := httptest.NewRecorder()

	srv.editSession(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var snap types.Session
	if err := json.NewDecoder(w.Body).Decode(&snap); err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}
	if !snap.Dirty {
		t.Error("Session should be dirty after edit")
	}

	req = withSessionID(httptest.NewRequest("POST", "/session/"+c.ID()+"/save", nil), c.ID())
	w = httptest.NewRecorder()
	srv.saveSession(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if err := json.NewDecoder(w.Body).Decode(&snap); err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}
	if snap.Status != types.StatusReady || snap.Dirty {
		t.Errorf("Expected clean ready session, got status=%s dirty=%v", snap.Status, snap.Dirty)
	}
	if snap.Time.Saved == 0 {
		t.Error("Saved timestamp should be set")
	}

	data, err := afero.ReadFile(srv.store.Fs(), "/docs/hello.md")
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "# Hello edited\n" {
		t.Errorf("File content mismatch: %q", data)
	}
}

func TestSaveSession_NotDirty(t *testing.T) {
	srv := setupTestServer(t)
	c := openTestSession(t, srv, "/docs/hello.md")

	req := withSessionID(httptest.NewRequest("POST", "/session/"+c.ID()+"/save", nil), c.ID())
	w := httptest.NewRecorder()

	srv.saveSession(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("Expected 409, got %d: %s", w.Code, w.Body.String())
	}
}

func TestSaveSession_WriteFailure(t *testing.T) {
	// Sessions open and edit fine on a read-only filesystem; the
	// failure surfaces at save time and must not lose content.
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/docs/hello.md", []byte("# Hello\n"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}
	srv := setupTestServerFS(t, afero.NewReadOnlyFs(fs))
	c := openTestSession(t, srv, "/docs/hello.md")

	if err := c.Edit("# Doomed\n"); err != nil {
		t.Fatalf("edit: %v", err)
	}

	req := withSessionID(httptest.NewRequest("POST", "/session/"+c.ID()+"/save", nil), c.ID())
	w := httptest.NewRecorder()
	srv.saveSession(w, req)

	// The save was accepted, so the response is the snapshot, not an
	// error status. The snapshot carries the failure.
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var snap types.Session
	if err := json.NewDecoder(w.Body).Decode(&snap); err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}
	if snap.Status != types.StatusError {
		t.Errorf("Expected error status, got %s", snap.Status)
	}
	if snap.LastError == "" {
		t.Error("LastError should be set")
	}
	if snap.Content != "# Doomed\n" {
		t.Errorf("Content must be preserved on failure, got %q", snap.Content)
	}
	if !snap.Dirty {
		t.Error("Session should remain dirty")
	}

	// Dismissing returns to ready with the content still intact.
	req = withSessionID(httptest.NewRequest("POST", "/session/"+c.ID()+"/dismiss", nil), c.ID())
	w = httptest.NewRecorder()
	srv.dismissError(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if err := json.NewDecoder(w.Body).Decode(&snap); err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}
	if snap.Status != types.StatusReady || snap.LastError != "" {
		t.Errorf("Expected clean ready state, got status=%s err=%q", snap.Status, snap.LastError)
	}
	if snap.Content != "# Doomed\n" {
		t.Errorf("Content must survive dismiss, got %q", snap.Content)
	}
}

func TestDismissError_NothingToDismiss(t *testing.T) {
	srv := setupTestServer(t)
	c := openTestSession(t, srv, "/docs/hello.md")

	req := withSessionID(httptest.NewRequest("POST", "/session/"+c.ID()+"/dismiss", nil), c.ID())
	w := httptest.NewRecorder()

	srv.dismissError(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("Expected 409, got %d: %s", w.Code, w.Body.String())
	}
}

func TestCloseSession(t *testing.T) {
	srv := setupTestServer(t)
	c := openTestSession(t, srv, "/docs/hello.md")

	req := withSessionID(httptest.NewRequest("DELETE", "/session/"+c.ID(), nil), c.ID())
	w := httptest.NewRecorder()
	srv.closeSession(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	req = withSessionID(httptest.NewRequest("GET", "/session/"+c.ID(), nil), c.ID())
	w = httptest.NewRecorder()
	srv.getSession(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 after close, got %d", w.Code)
	}
}

func TestGetSession_NotFound(t *testing.T) {
	srv := setupTestServer(t)

	req := withSessionID(httptest.NewRequest("GET", "/session/nonexistent", nil), "nonexistent")
	w := httptest.NewRecorder()

	srv.getSession(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}
}

func TestSessionPreview(t *testing.T) {
	srv := setupTestServer(t)
	c := openTestSession(t, srv, "/docs/hello.md")

	// Nothing compiled yet right after open.
	req := withSessionID(httptest.NewRequest("GET", "/session/"+c.ID()+"/preview", nil), c.ID())
	w := httptest.NewRecorder()
	srv.getSessionPreview(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 before first edit, got %d", w.Code)
	}

	if err := c.Edit("# Compiled\n"); err != nil {
		t.Fatalf("edit: %v", err)
	}

	// The compile is debounced; poll until it lands.
	deadline := time.Now().Add(2 * time.Second)
	var p types.Preview
	for {
		w = httptest.NewRecorder()
		srv.getSessionPreview(w, withSessionID(httptest.NewRequest("GET", "/session/"+c.ID()+"/preview", nil), c.ID()))
		if w.Code == http.StatusOK {
			if err := json.NewDecoder(w.Body).Decode(&p); err != nil {
				t.Fatalf("Failed to decode: %v", err)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("Preview never compiled, last status %d", w.Code)
		}
		time.Sleep(5 * time.Millisecond)
	}

	if p.Status != types.PreviewReady {
		t.Errorf("Expected ready preview, got %s (%s)", p.Status, p.Message)
	}
	if !bytes.Contains([]byte(p.HTML), []byte("<h1")) {
		t.Errorf("Expected rendered heading, got %q", p.HTML)
	}
}

func TestListAdapters(t *testing.T) {
	srv := setupTestServer(t)

	req := httptest.NewRequest("GET", "/adapters", nil)
	w := httptest.NewRecorder()

	srv.listAdapters(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var descriptors []types.AdapterDescriptor
	if err := json.NewDecoder(w.Body).Decode(&descriptors); err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}
	if len(descriptors) != 2 {
		t.Fatalf("Expected 2 adapters, got %d", len(descriptors))
	}
	if descriptors[0].ID != "markdown" || descriptors[1].ID != "plain" {
		t.Errorf("Unexpected adapter order: %s, %s", descriptors[0].ID, descriptors[1].ID)
	}
}

func TestGetConfig(t *testing.T) {
	srv := setupTestServer(t)

	req := httptest.NewRequest("GET", "/config", nil)
	w := httptest.NewRecorder()

	srv.getConfig(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var cfg types.Config
	if err := json.NewDecoder(w.Body).Decode(&cfg); err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}
	if !cfg.Dev {
		t.Error("Expected dev=true")
	}
	if cfg.Adapter != "markdown" {
		t.Errorf("Adapter mismatch: %s", cfg.Adapter)
	}
}

func TestUpdateConfig(t *testing.T) {
	srv := setupTestServer(t)

	// dev and extensions are pinned; the patch must not change them.
	patch := []byte(`{"debounceMs": 500, "adapter": "plain", "dev": false, "extensions": [".txt"]}`)
	req := httptest.NewRequest("PATCH", "/config", bytes.NewReader(patch))
	w := httptest.NewRecorder()

	srv.updateConfig(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var cfg types.Config
	if err := json.NewDecoder(w.Body).Decode(&cfg); err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}
	if cfg.DebounceMs != 500 {
		t.Errorf("DebounceMs not applied: %d", cfg.DebounceMs)
	}
	if cfg.Adapter != "plain" {
		t.Errorf("Adapter not applied: %s", cfg.Adapter)
	}
	if !cfg.Dev {
		t.Error("dev must stay pinned")
	}
	if len(cfg.Extensions) != 2 || cfg.Extensions[0] != ".md" {
		t.Errorf("extensions must stay pinned, got %v", cfg.Extensions)
	}

	// The registry default follows the config.
	a, err := srv.registry.Default()
	if err != nil {
		t.Fatalf("default adapter: %v", err)
	}
	if a.Descriptor().ID != "plain" {
		t.Errorf("Registry default not updated: %s", a.Descriptor().ID)
	}
}

func TestUpdateConfig_BadRules(t *testing.T) {
	srv := setupTestServer(t)

	patch := []byte(`{"rules": ["title !="]}`)
	req := httptest.NewRequest("PATCH", "/config", bytes.NewReader(patch))
	w := httptest.NewRecorder()

	srv.updateConfig(w, req)

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected 422, got %d: %s", w.Code, w.Body.String())
	}
	if srv.appConfig.Rules != nil {
		t.Errorf("Config must be untouched on bad rules, got %v", srv.appConfig.Rules)
	}
}

func TestUpdateConfig_UnknownAdapter(t *testing.T) {
	srv := setupTestServer(t)

	patch := []byte(`{"adapter": "spreadsheet"}`)
	req := httptest.NewRequest("PATCH", "/config", bytes.NewReader(patch))
	w := httptest.NewRecorder()

	srv.updateConfig(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d: %s", w.Code, w.Body.String())
	}
	if srv.appConfig.Adapter != "markdown" {
		t.Errorf("Config must be untouched, got adapter %s", srv.appConfig.Adapter)
	}
}

func TestUpdateConfig_RulesApplyToWrites(t *testing.T) {
	srv := setupTestServer(t)

	patch := []byte(`{"rules": ["title != nil"]}`)
	req := httptest.NewRequest("PATCH", "/config", bytes.NewReader(patch))
	w := httptest.NewRecorder()
	srv.updateConfig(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	// A write without a title now fails validation.
	body, _ := json.Marshal(WriteContentRequest{
		Path:    "/docs/hello.md",
		Content: "# No front matter\n",
	})
	req = httptest.NewRequest("POST", "/content", bytes.NewReader(body))
	w = httptest.NewRecorder()
	srv.writeContent(w, req)

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected 422 under new rules, got %d: %s", w.Code, w.Body.String())
	}
}

func TestDevGate(t *testing.T) {
	srv := setupTestServer(t)
	srv.appConfig.Dev = false

	// Rebuild through the constructor so the full middleware chain and
	// route table are exercised.
	gated := New(DefaultConfig(), srv.appConfig, srv.store, srv.manager, srv.registry, srv.validator, srv.engine)

	for _, target := range []string{"/api/content?path=/docs/hello.md", "/api/adapters", "/api/config"} {
		req := httptest.NewRequest("GET", target, nil)
		w := httptest.NewRecorder()
		gated.Router().ServeHTTP(w, req)

		if w.Code != http.StatusForbidden {
			t.Errorf("GET %s: expected 403, got %d", target, w.Code)
		}
		var result ErrorResponse
		if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
			t.Fatalf("Failed to decode: %v", err)
		}
		if result.Error != "development mode disabled" {
			t.Errorf("Unexpected error message: %q", result.Error)
		}
	}

	// Flipping dev on (in-process; never over the wire) opens the API.
	srv.appConfig.Dev = true
	req := httptest.NewRequest("GET", "/api/adapters", nil)
	w := httptest.NewRecorder()
	gated.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 with dev on, got %d: %s", w.Code, w.Body.String())
	}
}
