package editsession

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/inkwell-md/inkwell/internal/adapter"
	"github.com/inkwell-md/inkwell/internal/docstore"
	"github.com/inkwell-md/inkwell/internal/logging"
	"github.com/inkwell-md/inkwell/internal/preview"
	"github.com/inkwell-md/inkwell/pkg/types"
)

// ErrNotFound is returned when a session ID is unknown.
var ErrNotFound = errors.New("session not found")

// Config carries the collaborators shared by every session.
type Config struct {
	Store     *docstore.Store
	Registry  *adapter.Registry
	Validator docstore.Validator // fallback when the adapter has no validate capability
	Debounce  time.Duration
	Preview   bool   // preview pipeline enabled
	Endpoint  string // write endpoint advertised in edit metadata
	Dev       bool   // whether editing is enabled at the boundary
}

// Manager opens, tracks and closes edit sessions. One live controller
// per session ID; concurrent sessions on the same path are permitted
// and resolve last-writer-wins at the store.
type Manager struct {
	cfg Config
	log zerolog.Logger

	mu       sync.RWMutex
	sessions map[string]*Controller
}

// NewManager creates a session manager.
func NewManager(cfg Config) *Manager {
	if cfg.Debounce <= 0 {
		cfg.Debounce = preview.DefaultDebounce
	}
	return &Manager{
		cfg:      cfg,
		log:      logging.Component("session"),
		sessions: make(map[string]*Controller),
	}
}

// Open resolves the adapter, registers a controller and loads the
// document. Path shape problems and unknown adapters fail before any
// session exists; a load failure after that leaves the session
// registered in Error state so the client can inspect it.
func (m *Manager) Open(ctx context.Context, path, adapterID string) (*Controller, error) {
	m.mu.RLock()
	cfg := m.cfg
	m.mu.RUnlock()

	a, err := cfg.Registry.Resolve(adapterID)
	if err != nil {
		return nil, err
	}
	if _, err := cfg.Store.Resolve(path); err != nil {
		return nil, err
	}

	validator := cfg.Validator
	if av, ok := adapter.ValidatorFor(a); ok {
		validator = av
	}
	engine := adapter.EngineFor(a)
	if !cfg.Preview {
		engine = preview.Disabled()
	}

	c := newController(ulid.Make().String(), a, validator, cfg.Store, engine, cfg.Debounce)

	m.mu.Lock()
	m.sessions[c.id] = c
	m.mu.Unlock()

	meta := types.EditMetadata{Path: path, Endpoint: cfg.Endpoint, Enabled: cfg.Dev}
	if err := c.Open(ctx, meta); err != nil {
		return c, err
	}
	m.log.Debug().Str("id", c.id).Str("path", path).Str("adapter", c.adapterID).Msg("session registered")
	return c, nil
}

// Runtime holds the per-session knobs that may change while the
// service runs. Changes apply to sessions opened afterwards; open
// sessions keep what they were opened with.
type Runtime struct {
	Debounce  time.Duration
	Preview   bool
	Validator docstore.Validator
}

// Reconfigure applies new runtime knobs.
func (m *Manager) Reconfigure(rt Runtime) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rt.Debounce > 0 {
		m.cfg.Debounce = rt.Debounce
	}
	if rt.Validator != nil {
		m.cfg.Validator = rt.Validator
	}
	m.cfg.Preview = rt.Preview
}

// EnablePreviews lifts the preview degradation latch on every open
// session, re-admitting compiles after an engine outage ends.
func (m *Manager) EnablePreviews() {
	m.mu.RLock()
	controllers := make([]*Controller, 0, len(m.sessions))
	for _, c := range m.sessions {
		controllers = append(controllers, c)
	}
	m.mu.RUnlock()

	for _, c := range controllers {
		c.EnablePreview()
	}
}

// Get returns the controller for a session ID.
func (m *Manager) Get(id string) (*Controller, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return c, nil
}

// List returns snapshots of all open sessions, oldest first.
func (m *Manager) List() []types.Session {
	m.mu.RLock()
	controllers := make([]*Controller, 0, len(m.sessions))
	for _, c := range m.sessions {
		controllers = append(controllers, c)
	}
	m.mu.RUnlock()

	out := make([]types.Session, 0, len(controllers))
	for _, c := range controllers {
		out = append(out, c.Snapshot())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Time.Opened == out[j].Time.Opened {
			return out[i].ID < out[j].ID
		}
		return out[i].Time.Opened < out[j].Time.Opened
	})
	return out
}

// Close shuts down one session and forgets it.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	c, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	c.Close()
	return nil
}

// CloseAll shuts down every open session. Called on server shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	controllers := make([]*Controller, 0, len(m.sessions))
	for _, c := range m.sessions {
		controllers = append(controllers, c)
	}
	m.sessions = make(map[string]*Controller)
	m.mu.Unlock()

	for _, c := range controllers {
		c.Close()
	}
}

// Count returns the number of open sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
