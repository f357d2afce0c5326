// Package docstore persists document content with full-file atomic
// replacement.
package docstore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/spf13/afero"

	"github.com/inkwell-md/inkwell/internal/pathguard"
	"github.com/inkwell-md/inkwell/pkg/types"
)

// Validator pre-checks content before it reaches the disk.
type Validator interface {
	Validate(ctx context.Context, content string) types.ValidationResult
}

// Store reads and writes documents under the configured guard options.
// One Store may serve concurrent sessions; writes to the same path are
// serialized.
type Store struct {
	fs   afero.Fs
	opts pathguard.Options

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a Store over fsys.
func New(fsys afero.Fs, opts pathguard.Options) *Store {
	return &Store{
		fs:    fsys,
		opts:  opts,
		locks: make(map[string]*sync.Mutex),
	}
}

// Fs exposes the filesystem the store was built over.
func (s *Store) Fs() afero.Fs {
	return s.fs
}

// Resolve validates path without touching its content.
func (s *Store) Resolve(path string) (pathguard.Handle, error) {
	return pathguard.Validate(s.fs, path, s.opts)
}

// Load validates path and returns the document bytes as-is. Path
// validation failures pass through unchanged; read failures come back
// as *ReadError.
func (s *Store) Load(ctx context.Context, path string) (string, error) {
	handle, err := s.Resolve(path)
	if err != nil {
		return "", err
	}

	data, err := afero.ReadFile(s.fs, handle.Path)
	if err != nil {
		return "", &ReadError{Path: handle.Path, Err: err}
	}
	return string(data), nil
}

// Save validates path and content, then replaces the target file in
// one atomic step: the content is written to a temp sibling, synced,
// and renamed over the target. The file on disk always holds either
// its previous content or the new content in full.
//
// Path validation failures pass through unchanged; invalid content
// comes back as *InvalidContentError and write failures as
// *WriteError. A nil validator skips the content check.
func (s *Store) Save(ctx context.Context, path string, content string, v Validator) error {
	handle, err := s.Resolve(path)
	if err != nil {
		return err
	}

	if v != nil {
		if res := v.Validate(ctx, content); !res.Valid {
			return &InvalidContentError{Result: res}
		}
	}

	lock := s.pathLock(handle.Path)
	lock.Lock()
	defer lock.Unlock()

	mode := os.FileMode(0o644)
	if info, err := s.fs.Stat(handle.Path); err == nil {
		mode = info.Mode().Perm()
	}

	tmp := handle.Path + ".tmp-" + ulid.Make().String()
	if err := s.writeTemp(tmp, content, mode); err != nil {
		s.fs.Remove(tmp)
		return &WriteError{Path: handle.Path, Err: err}
	}

	if err := s.fs.Rename(tmp, handle.Path); err != nil {
		s.fs.Remove(tmp)
		return &WriteError{Path: handle.Path, Err: err}
	}
	return nil
}

func (s *Store) writeTemp(tmp string, content string, mode os.FileMode) error {
	f, err := s.fs.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, mode)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// IsTempPath reports whether path is one of the store's in-flight temp
// siblings. Watchers use this to tell inkwell's own writes apart from
// external ones.
func IsTempPath(path string) bool {
	return strings.Contains(filepath.Base(path), ".tmp-")
}

// pathLock returns the write lock for a path.
func (s *Store) pathLock(path string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[path]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[path] = lock
	}
	return lock
}
