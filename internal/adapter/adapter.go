// Package adapter binds rendering, and optionally validation,
// capabilities to edit sessions.
package adapter

import (
	"context"

	"github.com/inkwell-md/inkwell/internal/preview"
	"github.com/inkwell-md/inkwell/pkg/types"
)

// Adapter renders session snapshots for a client surface. Exactly one
// adapter is bound to a session at open time; callers only ever invoke
// this contract, never a concrete implementation.
type Adapter interface {
	Descriptor() types.AdapterDescriptor
	Render(ctx context.Context, snap types.Session) (string, error)
}

// Validator is the optional capability of adapters that bring their
// own content checks. Sessions prefer it over the built-in validator
// when present.
type Validator interface {
	Validate(ctx context.Context, content string) types.ValidationResult
}

// ValidatorFor returns the adapter's own validator when it has one.
func ValidatorFor(a Adapter) (Validator, bool) {
	v, ok := a.(Validator)
	return v, ok
}

// EngineFor returns the preview engine backing an adapter. Adapters
// that compile previews themselves implement preview.Engine directly;
// for render-only adapters the render output doubles as the preview,
// with no front matter.
func EngineFor(a Adapter) preview.Engine {
	if e, ok := a.(preview.Engine); ok {
		return e
	}
	return renderEngine{a: a}
}

type renderEngine struct {
	a Adapter
}

func (e renderEngine) Compile(ctx context.Context, source string) (string, map[string]any, error) {
	html, err := e.a.Render(ctx, types.Session{Content: source})
	return html, nil, err
}
