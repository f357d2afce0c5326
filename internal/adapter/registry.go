package adapter

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/agnivade/levenshtein"

	"github.com/inkwell-md/inkwell/pkg/types"
)

// ErrNotFound is returned when no adapter is registered under an id.
var ErrNotFound = errors.New("adapter not found")

// Registry holds the adapters available for new sessions.
type Registry struct {
	mu        sync.RWMutex
	adapters  map[string]Adapter
	defaultID string
}

// NewRegistry creates a registry whose Default resolves defaultID.
func NewRegistry(defaultID string) *Registry {
	return &Registry{
		adapters:  make(map[string]Adapter),
		defaultID: defaultID,
	}
}

// Register adds or replaces an adapter under its descriptor id.
func (r *Registry) Register(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[a.Descriptor().ID] = a
}

// Resolve returns the adapter with the given id, or the default when
// id is empty. Unknown ids get the closest registered one suggested.
func (r *Registry) Resolve(id string) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if id == "" {
		id = r.defaultID
	}
	if a, ok := r.adapters[id]; ok {
		return a, nil
	}
	if suggestion := r.closest(id); suggestion != "" {
		return nil, fmt.Errorf("%w: %s (did you mean %q?)", ErrNotFound, id, suggestion)
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Default returns the configured default adapter.
func (r *Registry) Default() (Adapter, error) {
	return r.Resolve("")
}

// SetDefault changes which adapter an empty id resolves to. The id
// must already be registered.
func (r *Registry) SetDefault(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.adapters[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	r.defaultID = id
	return nil
}

// List returns descriptors for every registered adapter, sorted by id.
func (r *Registry) List() []types.AdapterDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]types.AdapterDescriptor, 0, len(r.adapters))
	for _, a := range r.adapters {
		out = append(out, a.Descriptor())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// closest finds the registered id nearest to id, within a small edit
// distance. Caller holds at least the read lock.
func (r *Registry) closest(id string) string {
	best, bestDist := "", 4
	for known := range r.adapters {
		if d := levenshtein.ComputeDistance(id, known); d < bestDist {
			best, bestDist = known, d
		}
	}
	return best
}
