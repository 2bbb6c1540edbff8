package filter

import (
	"fmt"
	"sort"
	"sync"
)

// Factory builds a backend instance from a backend-defined property string.
type Factory func(props string) (Backend, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// Register makes a backend available under name. It panics if the name
// is already taken; backends register from init.
func Register(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[name]; dup {
		panic("filter: Register called twice for backend " + name)
	}
	if f == nil {
		panic("filter: Register with nil factory for backend " + name)
	}
	registry[name] = f
}

// Open builds a fresh instance of the named backend. Each bound stream
// gets its own instance.
func Open(name, props string) (Backend, error) {
	registryMu.RLock()
	f, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("filter: %q: %w", name, ErrUnknownBackend)
	}
	b, err := f(props)
	if err != nil {
		return nil, fmt.Errorf("filter: open %q: %w", name, err)
	}
	return b, nil
}

// Backends lists the registered backend names, sorted.
func Backends() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
