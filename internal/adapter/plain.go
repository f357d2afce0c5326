package adapter

import (
	"context"
	"html"

	"github.com/inkwell-md/inkwell/pkg/types"
)

// Plain renders content as escaped preformatted text. It brings no
// validator of its own, so sessions fall back to the built-in checks.
type Plain struct{}

func (Plain) Descriptor() types.AdapterDescriptor {
	return types.AdapterDescriptor{ID: "plain", Name: "Plain text", CanValidate: false}
}

func (Plain) Render(ctx context.Context, snap types.Session) (string, error) {
	return "<pre>" + html.EscapeString(snap.Content) + "</pre>", nil
}
