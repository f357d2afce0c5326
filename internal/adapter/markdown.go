package adapter

import (
	"context"

	"github.com/inkwell-md/inkwell/internal/content"
	"github.com/inkwell-md/inkwell/internal/preview"
	"github.com/inkwell-md/inkwell/pkg/types"
)

// Markdown renders markdown sessions to HTML and carries its own
// content validation.
type Markdown struct {
	engine    preview.Engine
	validator *content.Validator
}

// NewMarkdown builds the markdown adapter.
func NewMarkdown(engine preview.Engine, validator *content.Validator) *Markdown {
	return &Markdown{engine: engine, validator: validator}
}

func (a *Markdown) Descriptor() types.AdapterDescriptor {
	return types.AdapterDescriptor{ID: "markdown", Name: "Markdown", CanValidate: true}
}

// Render compiles the session's current content to HTML.
func (a *Markdown) Render(ctx context.Context, snap types.Session) (string, error) {
	html, _, err := a.engine.Compile(ctx, snap.Content)
	return html, err
}

// Validate implements the optional validation capability.
func (a *Markdown) Validate(ctx context.Context, c string) types.ValidationResult {
	return a.validator.Validate(ctx, c)
}

// Compile implements preview.Engine so markdown sessions get full
// preview output, including decoded front matter.
func (a *Markdown) Compile(ctx context.Context, source string) (string, map[string]any, error) {
	return a.engine.Compile(ctx, source)
}
