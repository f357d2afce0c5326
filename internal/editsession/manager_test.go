package editsession

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-md/inkwell/internal/adapter"
	"github.com/inkwell-md/inkwell/internal/content"
	"github.com/inkwell-md/inkwell/internal/docstore"
	"github.com/inkwell-md/inkwell/internal/pathguard"
	"github.com/inkwell-md/inkwell/internal/preview"
	"github.com/inkwell-md/inkwell/pkg/types"
)

// statOnlyFs passes Stat but refuses Open, so the pathguard preflight
// succeeds and the load itself fails.
type statOnlyFs struct {
	afero.Fs
}

func (s statOnlyFs) Open(name string) (afero.File, error) {
	return nil, fmt.Errorf("device not ready")
}

func newTestManager(t *testing.T, fs afero.Fs) *Manager {
	t.Helper()

	validator, err := content.New(nil)
	require.NoError(t, err)

	registry := adapter.NewRegistry("markdown")
	registry.Register(adapter.NewMarkdown(preview.NewMarkdownEngine(), validator))
	registry.Register(adapter.Plain{})

	return NewManager(Config{
		Store:     docstore.New(fs, pathguard.Options{Extensions: []string{".md", ".mdx"}}),
		Registry:  registry,
		Validator: validator,
		Debounce:  10 * time.Millisecond,
		Preview:   true,
		Endpoint:  "/api/content",
		Dev:       true,
	})
}

func seedFs(t *testing.T, paths ...string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	for _, p := range paths {
		require.NoError(t, afero.WriteFile(fs, p, []byte("# doc\n"), 0o644))
	}
	return fs
}

func TestNewManager_Defaults(t *testing.T) {
	mgr := newTestManager(t, seedFs(t))

	assert.NotNil(t, mgr.sessions)
	assert.Empty(t, mgr.sessions)
	assert.Equal(t, 10*time.Millisecond, mgr.cfg.Debounce)

	zero := NewManager(Config{})
	assert.Equal(t, preview.DefaultDebounce, zero.cfg.Debounce)
}

func TestManager_OpenAndGet(t *testing.T) {
	mgr := newTestManager(t, seedFs(t, "/docs/a.md"))
	defer mgr.CloseAll()

	c, err := mgr.Open(context.Background(), "/docs/a.md", "")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, 1, mgr.Count())

	got, err := mgr.Get(c.ID())
	require.NoError(t, err)
	assert.Same(t, c, got)

	_, err = mgr.Get("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestManager_OpenLoadFailureKeepsErrorSession(t *testing.T) {
	fs := seedFs(t, "/docs/a.md")
	mgr := newTestManager(t, statOnlyFs{Fs: fs})
	defer mgr.CloseAll()

	c, err := mgr.Open(context.Background(), "/docs/a.md", "")
	require.Error(t, err)
	require.NotNil(t, c)

	// The session stays registered so the client can read the failure.
	assert.Equal(t, 1, mgr.Count())
	snap := c.Snapshot()
	assert.Equal(t, types.StatusError, snap.Status)
	assert.Contains(t, snap.LastError, "device not ready")
}

func TestManager_ListSortedByOpenTime(t *testing.T) {
	mgr := newTestManager(t, seedFs(t, "/docs/a.md", "/docs/b.md", "/docs/c.md"))
	defer mgr.CloseAll()

	for _, p := range []string{"/docs/a.md", "/docs/b.md", "/docs/c.md"} {
		_, err := mgr.Open(context.Background(), p, "")
		require.NoError(t, err)
		time.Sleep(5 * time.Millisecond)
	}

	list := mgr.List()
	require.Len(t, list, 3)
	assert.Equal(t, "/docs/a.md", list[0].Path)
	assert.Equal(t, "/docs/b.md", list[1].Path)
	assert.Equal(t, "/docs/c.md", list[2].Path)
}

func TestManager_Reconfigure(t *testing.T) {
	mgr := newTestManager(t, seedFs(t, "/docs/a.md"))
	defer mgr.CloseAll()

	strict, err := content.New([]string{"title != nil"})
	require.NoError(t, err)

	mgr.Reconfigure(Runtime{Debounce: 50 * time.Millisecond, Preview: true, Validator: strict})
	assert.Equal(t, 50*time.Millisecond, mgr.cfg.Debounce)
	assert.True(t, mgr.cfg.Preview)

	// Unset knobs keep their previous values.
	mgr.Reconfigure(Runtime{Preview: false})
	assert.Equal(t, 50*time.Millisecond, mgr.cfg.Debounce)
	assert.False(t, mgr.cfg.Preview)

	// Sessions opened after the change run the new validator. The plain
	// adapter has no validate capability, so the fallback applies.
	ctx := context.Background()
	c, err := mgr.Open(ctx, "/docs/a.md", "plain")
	require.NoError(t, err)
	require.NoError(t, c.Edit("no front matter\n"))

	err = c.RequestSave(ctx)
	var invalid *docstore.InvalidContentError
	require.True(t, errors.As(err, &invalid))
	assert.False(t, invalid.Result.Valid)
}

func TestManager_CloseUnknown(t *testing.T) {
	mgr := newTestManager(t, seedFs(t))
	err := mgr.Close("missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestManager_CloseAll(t *testing.T) {
	mgr := newTestManager(t, seedFs(t, "/docs/a.md", "/docs/b.md"))

	a, err := mgr.Open(context.Background(), "/docs/a.md", "")
	require.NoError(t, err)
	b, err := mgr.Open(context.Background(), "/docs/b.md", "")
	require.NoError(t, err)

	mgr.CloseAll()
	assert.Zero(t, mgr.Count())
	assert.Equal(t, types.StatusIdle, a.Status())
	assert.Equal(t, types.StatusIdle, b.Status())
}

func TestManager_SamePathLastWriterWins(t *testing.T) {
	fs := seedFs(t, "/docs/a.md")
	mgr := newTestManager(t, fs)
	defer mgr.CloseAll()

	ctx := context.Background()
	first, err := mgr.Open(ctx, "/docs/a.md", "")
	require.NoError(t, err)
	second, err := mgr.Open(ctx, "/docs/a.md", "")
	require.NoError(t, err)
	require.NotEqual(t, first.ID(), second.ID())
	assert.Equal(t, 2, mgr.Count())

	require.NoError(t, first.Edit("one\n"))
	require.NoError(t, first.RequestSave(ctx))
	require.NoError(t, second.Edit("two\n"))
	require.NoError(t, second.RequestSave(ctx))

	onDisk, err := afero.ReadFile(fs, "/docs/a.md")
	require.NoError(t, err)
	assert.Equal(t, "two\n", string(onDisk))
}
