package types

// Config represents the inkwell service configuration.
// Loaded from inkwell.json (or inkwell.jsonc) with INKWELL_* overrides.
type Config struct {
	// Schema reference (for editor support)
	Schema string `json:"$schema,omitempty"`

	// Dev gates the entire HTTP API. When false every /api route
	// answers 403; the flag cannot be enabled over the wire it gates.
	Dev bool `json:"dev,omitempty"`

	// Extensions allow-lists editable file extensions.
	// Defaults to .md and .mdx.
	Extensions []string `json:"extensions,omitempty"`

	// Roots restricts editable paths to these glob patterns.
	// Empty means any absolute path.
	Roots []string `json:"roots,omitempty"`

	// DebounceMs is the quiet window before an edit triggers a
	// preview compile. Defaults to 300.
	DebounceMs int `json:"debounceMs,omitempty"`

	// Adapter names the adapter bound to new sessions. Defaults to
	// "markdown".
	Adapter string `json:"adapter,omitempty"`

	// Rules are expressions evaluated against document front matter
	// during validation, e.g. `title != nil && len(title) > 0`.
	Rules []string `json:"rules,omitempty"`

	Preview *PreviewConfig `json:"preview,omitempty"`
	Watch   *WatchConfig   `json:"watch,omitempty"`
}

// PreviewConfig controls the preview compiler.
type PreviewConfig struct {
	// Enabled gates compilation; nil means enabled.
	Enabled *bool `json:"enabled,omitempty"`
}

// WatchConfig controls the on-disk change watcher.
type WatchConfig struct {
	// Enabled gates watching; nil means enabled.
	Enabled *bool `json:"enabled,omitempty"`

	// Ignore lists glob patterns for paths the watcher should skip.
	Ignore []string `json:"ignore,omitempty"`
}

// PreviewEnabled resolves the preview toggle with its default.
func (c *Config) PreviewEnabled() bool {
	if c.Preview == nil || c.Preview.Enabled == nil {
		return true
	}
	return *c.Preview.Enabled
}

// WatchEnabled resolves the watch toggle with its default.
func (c *Config) WatchEnabled() bool {
	if c.Watch == nil || c.Watch.Enabled == nil {
		return true
	}
	return *c.Watch.Enabled
}
