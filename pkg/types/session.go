package types

// SessionStatus identifies where an edit session is in its lifecycle.
type SessionStatus string

const (
	StatusIdle    SessionStatus = "idle"
	StatusLoading SessionStatus = "loading"
	StatusReady   SessionStatus = "ready"
	StatusSaving  SessionStatus = "saving"
	StatusError   SessionStatus = "error"
)

// Valid reports whether s is a known lifecycle state.
func (s SessionStatus) Valid() bool {
	switch s {
	case StatusIdle, StatusLoading, StatusReady, StatusSaving, StatusError:
		return true
	}
	return false
}

// Session is a point-in-time snapshot of an edit session as exposed
// over the API. The controller owns the live state; a snapshot is a
// copy and safe to serialize concurrently.
type Session struct {
	ID      string        `json:"id"`
	Path    string        `json:"path"`
	Status  SessionStatus `json:"status"`
	Content string        `json:"content"`
	Dirty   bool          `json:"dirty"`
	Adapter string        `json:"adapter"`

	// LastError is set while the session is in the error state and
	// cleared when the error is dismissed.
	LastError string `json:"lastError,omitempty"`

	// LastValidation holds the most recent validation outcome, if any.
	LastValidation *ValidationResult `json:"lastValidation,omitempty"`

	Time SessionTime `json:"time"`
}

// SessionTime contains session timestamps in Unix milliseconds.
type SessionTime struct {
	Opened  int64 `json:"opened"`
	Updated int64 `json:"updated"`
	Saved   int64 `json:"saved,omitempty"` // zero until the first successful save
}

// EditMetadata is attached to a document descriptor before the edit
// core is invoked. It is created once per document context and never
// mutated afterwards.
type EditMetadata struct {
	Path     string `json:"path"`
	Endpoint string `json:"endpoint"`
	Enabled  bool   `json:"enabled"`
}

// SaveSummary describes how a save changed the document on disk.
type SaveSummary struct {
	Additions int   `json:"additions"`
	Deletions int   `json:"deletions"`
	Bytes     int64 `json:"bytes"`
}
