package preview

import (
	"bytes"
	"context"
	"errors"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/inkwell-md/inkwell/internal/content"
)

// ErrUnavailable reports that the engine cannot compile at all, as
// opposed to failing on one input. The compiler degrades until
// re-enabled.
var ErrUnavailable = errors.New("preview engine unavailable")

// Engine turns document source into preview HTML plus the document's
// front-matter map.
type Engine interface {
	Compile(ctx context.Context, source string) (string, map[string]any, error)
}

// MarkdownEngine compiles GitHub-flavored markdown. Raw HTML passes
// through unescaped; previews render in a trusted, local context.
type MarkdownEngine struct {
	md goldmark.Markdown
}

// NewMarkdownEngine builds the default engine.
func NewMarkdownEngine() *MarkdownEngine {
	return &MarkdownEngine{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(html.WithUnsafe()),
		),
	}
}

// Compile splits off front matter, decodes it, and renders the body.
// Broken front matter fails the compile; that only ever affects the
// preview, never the session or the disk.
func (e *MarkdownEngine) Compile(ctx context.Context, source string) (string, map[string]any, error) {
	fm, body, fmLine, ok := content.SplitFrontMatter(source)
	if !ok && fmLine > 0 {
		return "", nil, errors.New("unterminated front matter")
	}

	fmMap, err := content.DecodeFrontMatter(fm)
	if err != nil {
		return "", nil, err
	}

	var buf bytes.Buffer
	if err := e.md.Convert([]byte(body), &buf); err != nil {
		return "", nil, err
	}
	return buf.String(), fmMap, nil
}

// Disabled returns an engine that refuses every compile, for configs
// with previews turned off.
func Disabled() Engine {
	return disabledEngine{}
}

type disabledEngine struct{}

func (disabledEngine) Compile(ctx context.Context, source string) (string, map[string]any, error) {
	return "", nil, ErrUnavailable
}
