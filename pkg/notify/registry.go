package notify

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnknownBackend is returned by Get for unregistered backend names.
var ErrUnknownBackend = errors.New("unknown notification backend")

// Factory creates a notifier
type Factory func() (Notifier, error)

// Registry maps backend names to factories
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// globalRegistry is the default backend registry
var globalRegistry = NewRegistry()

func init() {
	_ = Register("none", func() (Notifier, error) { return Nop{}, nil })
	_ = Register("log", func() (Notifier, error) { return NewLog(nil), nil })
	_ = Register("dbus", func() (Notifier, error) { return NewDBus(), nil })
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// Register adds a backend to the global registry
func Register(name string, f Factory) error {
	return globalRegistry.Register(name, f)
}

// Get creates a backend from the global registry
func Get(name string) (Notifier, error) {
	return globalRegistry.Get(name)
}

// List returns all globally registered backend names
func List() []string {
	return globalRegistry.List()
}

// Register adds a backend factory to the registry
func (r *Registry) Register(name string, f Factory) error {
	if f == nil {
		return fmt.Errorf("factory cannot be nil")
	}
	if name == "" {
		return fmt.Errorf("backend name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("backend %q already registered", name)
	}

	r.factories[name] = f
	return nil
}

// Get creates the named backend
func (r *Registry) Get(name string) (Notifier, error) {
	r.mu.RLock()
	f, exists := r.factories[name]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, name)
	}

	n, err := f()
	if err != nil {
		return nil, fmt.Errorf("failed to create %s notifier: %w", name, err)
	}
	return n, nil
}

// List returns all registered backend names in sorted order
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
