// Package preview compiles content snapshots into previews, debounced
// and safe against stale delivery.
package preview

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/inkwell-md/inkwell/internal/logging"
	"github.com/inkwell-md/inkwell/pkg/types"
)

// DefaultDebounce is the quiet window applied when the config does not
// set one.
const DefaultDebounce = 300 * time.Millisecond

// request is one debounced compile: a content snapshot pinned to the
// generation that requested it.
type request struct {
	snapshot   string
	generation uint64
}

// Compiler debounces and runs preview compiles for one session. Newer
// submissions logically cancel older ones: a result whose generation
// is no longer the latest is dropped, never delivered. The generation
// counter lives for the session; a new session gets a new Compiler.
type Compiler struct {
	engine   Engine
	debounce time.Duration
	deliver  func(types.Preview)
	log      zerolog.Logger

	generation atomic.Uint64

	mu       sync.Mutex
	timer    *time.Timer
	degraded bool
	closed   bool

	deliverMu sync.Mutex
}

// New creates a Compiler delivering results through deliver. The
// callback runs on the compiler's goroutine and must not block for
// long.
func New(engine Engine, debounce time.Duration, deliver func(types.Preview)) *Compiler {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Compiler{
		engine:   engine,
		debounce: debounce,
		deliver:  deliver,
		log:      logging.Component("preview"),
	}
}

// Submit schedules a compile of snapshot once the debounce window has
// been quiet. Snapshots arriving inside the window replace the pending
// one, so a typing burst compiles exactly once, with the final text.
// Never blocks.
func (c *Compiler) Submit(snapshot string) {
	gen := c.generation.Add(1)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.degraded {
		return
	}

	if c.timer != nil {
		c.timer.Stop()
	}
	req := request{snapshot: snapshot, generation: gen}
	c.timer = time.AfterFunc(c.debounce, func() { c.compile(req) })
}

// Enable lifts the degradation latch after an engine outage.
func (c *Compiler) Enable() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.degraded = false
}

// Close stops any pending compile and discards in-flight results.
// Safe to call more than once; Submit after Close is a no-op.
func (c *Compiler) Close() {
	// Bumping the generation fails the staleness check in any compile
	// already past its timer.
	c.generation.Add(1)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// compile runs on the timer goroutine after the debounce window.
func (c *Compiler) compile(req request) {
	if c.generation.Load() != req.generation {
		return
	}

	html, fm, err := c.engine.Compile(context.Background(), req.snapshot)

	preview := types.Preview{
		Status:      types.PreviewReady,
		HTML:        html,
		Frontmatter: fm,
		Generation:  req.generation,
	}
	if err != nil {
		preview = types.Preview{
			Status:     types.PreviewError,
			Generation: req.generation,
			Message:    err.Error(),
		}
		if errors.Is(err, ErrUnavailable) {
			preview.Message = "preview unavailable"
			c.mu.Lock()
			already := c.degraded
			c.degraded = true
			c.mu.Unlock()
			// One outage notice per episode is enough.
			if already {
				return
			}
		}
		c.log.Debug().Uint64("generation", req.generation).Err(err).Msg("compile failed")
	}

	// The engine may have taken a while. Deliver only if no newer
	// submission or Close arrived meanwhile.
	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()
	if c.generation.Load() != req.generation {
		return
	}
	c.deliver(preview)
}
