// Package pathguard validates document paths before any disk access.
package pathguard

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"
)

// Validation failures. Validate wraps these with the offending path,
// so callers match with errors.Is.
var (
	ErrNotAbsolute          = errors.New("path is not absolute")
	ErrUnsupportedExtension = errors.New("unsupported file extension")
	ErrNotFound             = errors.New("file not found")
	ErrNotRegular           = errors.New("not a regular file")
	ErrOutsideRoots         = errors.New("path outside configured roots")
)

// Handle is a validated reference to an editable document. Path is
// absolute and cleaned and never names a directory.
type Handle struct {
	Path string `json:"path"`
	Ext  string `json:"ext"`
}

// Options control what Validate accepts.
type Options struct {
	// Extensions allow-lists file extensions (leading dot,
	// case-insensitive). Empty allows any extension.
	Extensions []string

	// Roots are glob patterns the path must match, e.g.
	// "/srv/docs/**". Empty allows any absolute path.
	Roots []string
}

// Validate checks path against opts and the filesystem and returns a
// Handle for it. Checks run cheapest first; the filesystem is only
// consulted once the path shape is acceptable.
func Validate(fsys afero.Fs, path string, opts Options) (Handle, error) {
	if !filepath.IsAbs(path) {
		return Handle{}, fmt.Errorf("%s: %w", path, ErrNotAbsolute)
	}
	path = filepath.Clean(path)

	ext := filepath.Ext(path)
	if !extensionAllowed(ext, opts.Extensions) {
		return Handle{}, fmt.Errorf("%s: %w", path, ErrUnsupportedExtension)
	}

	if !rootsAllow(path, opts.Roots) {
		return Handle{}, fmt.Errorf("%s: %w", path, ErrOutsideRoots)
	}

	info, err := fsys.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Handle{}, fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		return Handle{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() || !info.Mode().IsRegular() {
		return Handle{}, fmt.Errorf("%s: %w", path, ErrNotRegular)
	}

	return Handle{Path: path, Ext: strings.ToLower(ext)}, nil
}

// AllowedExtension reports whether the path's extension is in the
// allow-list. An empty list allows any extension.
func AllowedExtension(path string, allowed []string) bool {
	return extensionAllowed(filepath.Ext(path), allowed)
}

func extensionAllowed(ext string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	if ext == "" {
		return false
	}
	for _, a := range allowed {
		if strings.EqualFold(ext, a) {
			return true
		}
	}
	return false
}

func rootsAllow(path string, roots []string) bool {
	if len(roots) == 0 {
		return true
	}
	for _, pattern := range roots {
		if ok, err := doublestar.PathMatch(pattern, path); err == nil && ok {
			return true
		}
	}
	return false
}
