package types

// PreviewStatus reports whether a compilation produced usable output.
type PreviewStatus string

const (
	PreviewReady PreviewStatus = "ready"
	PreviewError PreviewStatus = "error"
)

// Preview is the result of compiling one content snapshot.
type Preview struct {
	Status      PreviewStatus  `json:"status"`
	HTML        string         `json:"html,omitempty"`
	Frontmatter map[string]any `json:"frontmatter,omitempty"`

	// Generation ties the result back to the request that produced it.
	// Consumers keep only the highest generation they have seen.
	Generation uint64 `json:"generation"`

	// Message describes the failure when Status is PreviewError.
	Message string `json:"message,omitempty"`
}
