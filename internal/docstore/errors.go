package docstore

import (
	"fmt"

	"github.com/inkwell-md/inkwell/pkg/types"
)

// ReadError reports a failure to load a document from disk.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string { return fmt.Sprintf("read %s: %v", e.Path, e.Err) }
func (e *ReadError) Unwrap() error { return e.Err }

// WriteError reports a failure to persist a document. The target file
// keeps its previous content in full when a write fails.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string { return fmt.Sprintf("write %s: %v", e.Path, e.Err) }
func (e *WriteError) Unwrap() error { return e.Err }

// InvalidContentError reports content rejected before any disk access.
type InvalidContentError struct {
	Result types.ValidationResult
}

func (e *InvalidContentError) Error() string {
	if msg := e.Result.First(); msg != "" {
		return "invalid content: " + msg
	}
	return "invalid content"
}
