package event

import "github.com/inkwell-md/inkwell/pkg/types"

// SessionOpenedData is the data for session.opened events.
// Uses "info" field for the session snapshot.
type SessionOpenedData struct {
	Info *types.Session `json:"info"`
}

// SessionUpdatedData is the data for session.updated events.
// Uses "info" field for the session snapshot.
type SessionUpdatedData struct {
	Info *types.Session `json:"info"`
}

// SessionSavedData is the data for session.saved events.
type SessionSavedData struct {
	SessionID string            `json:"sessionID"`
	Path      string            `json:"path"`
	Summary   types.SaveSummary `json:"summary"`
}

// SessionErrorData is the data for session.error events.
type SessionErrorData struct {
	SessionID string `json:"sessionID"`
	Error     string `json:"error"`
}

// SessionClosedData is the data for session.closed events.
type SessionClosedData struct {
	SessionID string `json:"sessionID"`
}

// PreviewUpdatedData is the data for preview.updated events.
type PreviewUpdatedData struct {
	SessionID string         `json:"sessionID"`
	Preview   *types.Preview `json:"preview"`
}

// FileChangedData is the data for file.changed events, published after
// a successful save so clients reload the on-disk content.
type FileChangedData struct {
	Path      string `json:"path"`
	SessionID string `json:"sessionID,omitempty"`
}

// WatchChangedData is the data for watch.changed events, published when
// the watcher sees an external change to a watched document.
type WatchChangedData struct {
	Path string `json:"path"`
	Op   string `json:"op"` // "write" | "create" | "remove" | "rename"
}
