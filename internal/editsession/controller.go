// Package editsession drives the lifecycle of open documents: one
// controller per session, moving through Idle -> Loading -> Ready <->
// Saving, with Error reachable from anywhere and Idle again on close.
package editsession

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/inkwell-md/inkwell/internal/adapter"
	"github.com/inkwell-md/inkwell/internal/docstore"
	"github.com/inkwell-md/inkwell/internal/event"
	"github.com/inkwell-md/inkwell/internal/logging"
	"github.com/inkwell-md/inkwell/internal/preview"
	"github.com/inkwell-md/inkwell/pkg/types"
)

// Guard errors returned for rejected lifecycle events. A rejected
// event never mutates session state.
var (
	ErrAlreadyOpen  = errors.New("session already open")
	ErrNotEditable  = errors.New("session is not editable")
	ErrNotReady     = errors.New("session is not ready")
	ErrNotDirty     = errors.New("no changes to save")
	ErrSaveInFlight = errors.New("save already in flight")
	ErrNoError      = errors.New("no error to dismiss")
)

// Controller owns the state machine for one open document. Every
// lifecycle event is serialized under the session mutex; blocking IO
// (load, save) runs outside it so typing is never blocked by a save.
type Controller struct {
	id        string
	adapterID string
	adapter   adapter.Adapter
	validator docstore.Validator
	store     *docstore.Store
	compiler  *preview.Compiler
	log       zerolog.Logger

	mu          sync.Mutex
	status      types.SessionStatus
	metadata    types.EditMetadata
	content     string
	baseline    string // content as last loaded or saved
	dirty       bool
	lastError   string
	lastResult  *types.ValidationResult
	lastPreview *types.Preview
	opened      int64
	updated     int64
	saved       int64
}

func newController(id string, a adapter.Adapter, v docstore.Validator, store *docstore.Store, engine preview.Engine, debounce time.Duration) *Controller {
	c := &Controller{
		id:        id,
		adapterID: a.Descriptor().ID,
		adapter:   a,
		validator: v,
		store:     store,
		log:       logging.Component("session"),
		status:    types.StatusIdle,
	}
	c.compiler = preview.New(engine, debounce, c.deliverPreview)
	return c
}

// Open loads the document named by the metadata. Idle -> Loading,
// then Ready on success or Error on a load failure. A failed load
// keeps the session alive so the caller can inspect the message.
func (c *Controller) Open(ctx context.Context, meta types.EditMetadata) error {
	now := time.Now().UnixMilli()

	c.mu.Lock()
	if c.status != types.StatusIdle {
		c.mu.Unlock()
		return ErrAlreadyOpen
	}
	c.status = types.StatusLoading
	c.metadata = meta
	c.opened = now
	c.updated = now
	c.mu.Unlock()

	content, err := c.store.Load(ctx, meta.Path)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status != types.StatusLoading {
		// Closed while the load was in flight.
		return nil
	}
	if err != nil {
		c.toErrorLocked(err)
		return err
	}
	c.status = types.StatusReady
	c.content = content
	c.baseline = content
	c.dirty = false
	c.updated = time.Now().UnixMilli()
	c.log.Debug().Str("id", c.id).Str("path", meta.Path).Int("bytes", len(content)).Msg("session opened")
	event.Publish(event.Event{
		Type: event.SessionOpened,
		Data: event.SessionOpenedData{Info: c.snapshotLocked()},
	})
	return nil
}

// Edit replaces the in-memory content and marks the session dirty.
// Accepted while Ready and while a save is in flight; never changes
// the status. The new snapshot is handed to the preview compiler
// fire-and-forget.
func (c *Controller) Edit(content string) error {
	c.mu.Lock()
	if c.status != types.StatusReady && c.status != types.StatusSaving {
		c.mu.Unlock()
		return ErrNotEditable
	}
	wasDirty := c.dirty
	c.content = content
	c.dirty = true
	c.updated = time.Now().UnixMilli()
	var info *types.Session
	if !wasDirty {
		info = c.snapshotLocked()
	}
	c.mu.Unlock()

	c.compiler.Submit(content)
	if info != nil {
		event.Publish(event.Event{
			Type: event.SessionUpdated,
			Data: event.SessionUpdatedData{Info: info},
		})
	}
	return nil
}

// RequestSave writes the current content through the store. Valid
// only when Ready and dirty; a second request while a save is in
// flight is rejected, not queued. On success the session returns to
// Ready and is clean unless the user kept typing during the write.
// On failure the session moves to Error with the content preserved.
func (c *Controller) RequestSave(ctx context.Context) error {
	c.mu.Lock()
	switch {
	case c.status == types.StatusSaving:
		c.mu.Unlock()
		return ErrSaveInFlight
	case c.status != types.StatusReady:
		c.mu.Unlock()
		return ErrNotReady
	case !c.dirty:
		c.mu.Unlock()
		return ErrNotDirty
	}
	c.status = types.StatusSaving
	snapshot := c.content
	before := c.baseline
	path := c.metadata.Path
	c.mu.Unlock()

	err := c.store.Save(ctx, path, snapshot, c.validator)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status != types.StatusSaving {
		// Closed while the write was in flight; only the on-disk
		// outcome matters now.
		return err
	}
	if err != nil {
		var invalid *docstore.InvalidContentError
		if errors.As(err, &invalid) {
			result := invalid.Result
			c.lastResult = &result
		}
		c.toErrorLocked(err)
		return err
	}

	now := time.Now().UnixMilli()
	c.status = types.StatusReady
	c.saved = now
	c.updated = now
	c.dirty = c.content != snapshot
	c.baseline = snapshot
	c.lastError = ""
	c.lastResult = nil
	summary := diffSummary(before, snapshot)
	c.log.Info().
		Str("id", c.id).
		Str("path", path).
		Int("additions", summary.Additions).
		Int("deletions", summary.Deletions).
		Msg("session saved")
	event.Publish(event.Event{
		Type: event.SessionSaved,
		Data: event.SessionSavedData{SessionID: c.id, Path: path, Summary: summary},
	})
	event.Publish(event.Event{
		Type: event.FileChanged,
		Data: event.FileChangedData{Path: path, SessionID: c.id},
	})
	return nil
}

// DismissError acknowledges a failure: Error -> Ready, content
// untouched. Nothing is retried; the user decides what happens next.
func (c *Controller) DismissError() error {
	c.mu.Lock()
	if c.status != types.StatusError {
		c.mu.Unlock()
		return ErrNoError
	}
	c.status = types.StatusReady
	c.lastError = ""
	c.updated = time.Now().UnixMilli()
	info := c.snapshotLocked()
	c.mu.Unlock()

	event.Publish(event.Event{
		Type: event.SessionUpdated,
		Data: event.SessionUpdatedData{Info: info},
	})
	return nil
}

// Close releases the session from any state. Pending preview work is
// cancelled; an in-flight save finishes but no longer updates the
// session. Closing an already idle session is a no-op.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.status == types.StatusIdle {
		c.mu.Unlock()
		return
	}
	c.status = types.StatusIdle
	c.content = ""
	c.baseline = ""
	c.dirty = false
	c.lastError = ""
	c.lastResult = nil
	c.lastPreview = nil
	c.updated = time.Now().UnixMilli()
	c.mu.Unlock()

	c.compiler.Close()
	c.log.Debug().Str("id", c.id).Msg("session closed")
	event.Publish(event.Event{
		Type: event.SessionClosed,
		Data: event.SessionClosedData{SessionID: c.id},
	})
}

// ID returns the session identifier.
func (c *Controller) ID() string { return c.id }

// Metadata returns the edit metadata bound at open time.
func (c *Controller) Metadata() types.EditMetadata {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.metadata
}

// Status returns the current lifecycle state.
func (c *Controller) Status() types.SessionStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Snapshot returns a copy of the session state.
func (c *Controller) Snapshot() types.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return *c.snapshotLocked()
}

// Preview returns the latest delivered preview, or nil if none has
// been compiled yet.
func (c *Controller) Preview() *types.Preview {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastPreview == nil {
		return nil
	}
	p := *c.lastPreview
	return &p
}

// EnablePreview re-admits preview compilation after the engine
// reported itself unavailable.
func (c *Controller) EnablePreview() {
	c.compiler.Enable()
}

func (c *Controller) snapshotLocked() *types.Session {
	s := &types.Session{
		ID:        c.id,
		Path:      c.metadata.Path,
		Status:    c.status,
		Content:   c.content,
		Dirty:     c.dirty,
		Adapter:   c.adapterID,
		LastError: c.lastError,
		Time: types.SessionTime{
			Opened:  c.opened,
			Updated: c.updated,
			Saved:   c.saved,
		},
	}
	if c.lastResult != nil {
		result := *c.lastResult
		s.LastValidation = &result
	}
	return s
}

// toErrorLocked records a failure. Content is left exactly as the
// user typed it.
func (c *Controller) toErrorLocked(err error) {
	c.status = types.StatusError
	c.lastError = err.Error()
	c.updated = time.Now().UnixMilli()
	c.log.Warn().Str("id", c.id).Err(err).Msg("session error")
	event.Publish(event.Event{
		Type: event.SessionError,
		Data: event.SessionErrorData{SessionID: c.id, Error: err.Error()},
	})
}

// deliverPreview receives compiler output. Results are already
// filtered for staleness by generation; keep the newest one for
// polling clients and fan out to subscribers.
func (c *Controller) deliverPreview(p types.Preview) {
	c.mu.Lock()
	if c.lastPreview == nil || p.Generation >= c.lastPreview.Generation {
		kept := p
		c.lastPreview = &kept
	}
	c.mu.Unlock()

	event.Publish(event.Event{
		Type: event.PreviewUpdated,
		Data: event.PreviewUpdatedData{SessionID: c.id, Preview: &p},
	})
}

// diffSummary reports line additions and deletions between the last
// persisted content and the newly saved snapshot.
func diffSummary(before, after string) types.SaveSummary {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	summary := types.SaveSummary{Bytes: int64(len(after))}
	for _, d := range diffs {
		n := strings.Count(d.Text, "\n")
		if d.Text != "" && !strings.HasSuffix(d.Text, "\n") {
			n++
		}
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			summary.Additions += n
		case diffmatchpatch.DiffDelete:
			summary.Deletions += n
		}
	}
	return summary
}
