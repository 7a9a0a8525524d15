package gesture

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrNotFound is returned when a gesture name has no registered move.
var ErrNotFound = errors.New("gesture not found")

// Factory builds a fresh move instance. Moves carry no playback state,
// but a fresh instance per dispatch keeps that property local.
type Factory func() Move

// Registry maps gesture names to move factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// DefaultRegistry returns a registry with the full gesture library.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(SingingSway, func() Move { return NewSingingSway() })
	r.Register(SingingLeanFwd, func() Move { return NewSingingLeanForward() })
	r.Register(WaveAntennas, func() Move { return NewWaveAntennas() })
	r.Register(ExpressExcited, func() Move { return NewExpressExcited() })
	r.Register(ExpressHappy, func() Move { return NewExpressHappy() })
	r.Register(NodYes, func() Move { return NewNodYes() })
	r.Register(TiltCurious, func() Move { return NewTiltCurious() })
	r.Register(LookAround, func() Move { return NewLookAround() })
	r.Register(DramaticPause, func() Move { return NewDramaticPause() })
	r.Register(BigFinish, func() Move { return NewBigFinish() })
	r.Register(BashfulBow, func() Move { return NewBashfulBow() })
	return r
}

// Register adds or replaces a move factory.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// Get builds a move instance for the given name.
func (r *Registry) Get(name string) (Move, error) {
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return f(), nil
}

// Has reports whether the name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[name]
	return ok
}

// List returns all registered names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
