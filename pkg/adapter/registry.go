package adapter

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Factory creates an unconnected adapter. A nil logger uses a discard logger.
type Factory func(*slog.Logger) Adapter

// Registry maps adapter type names to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty adapter registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds an adapter factory, replacing any previous one of that name.
func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Get retrieves an adapter factory by name.
func (r *Registry) Get(name string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[name]
	return f, ok
}

// New creates an adapter instance based on config type.
func (r *Registry) New(cfg Config, logger *slog.Logger) (Adapter, error) {
	if cfg.Type == "" {
		return nil, fmt.Errorf("adapter type not specified")
	}

	factory, ok := r.Get(cfg.Type)
	if !ok {
		return nil, &UnknownAdapterError{
			Type:      cfg.Type,
			Available: r.Names(),
		}
	}
	return factory(logger), nil
}

// Names returns all registered adapter names (sorted).
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has checks if an adapter type is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// defaultRegistry holds the adapters that register themselves from init().
var defaultRegistry = NewRegistry()

// Default returns the registry that adapter packages register into.
func Default() *Registry { return defaultRegistry }

// Register adds an adapter factory to the default registry.
// Called by adapter implementations in their init() functions.
func Register(name string, factory Factory) {
	defaultRegistry.Register(name, factory)
}

// NewAdapter creates an adapter from the default registry.
func NewAdapter(cfg Config, logger *slog.Logger) (Adapter, error) {
	return defaultRegistry.New(cfg, logger)
}

// ListAdapters returns all adapter names in the default registry (sorted).
func ListAdapters() []string {
	return defaultRegistry.Names()
}

// IsRegistered checks if an adapter type is in the default registry.
func IsRegistered(name string) bool {
	return defaultRegistry.Has(name)
}

// UnknownAdapterError is returned when an unknown adapter type is requested.
type UnknownAdapterError struct {
	Type      string
	Available []string
}

func (e *UnknownAdapterError) Error() string {
	return fmt.Sprintf("unknown adapter type %q\nAvailable adapters: %v\nHint: Check adapter.type in leapdq.yaml", e.Type, e.Available)
}
