package service

import (
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Registry maps service names to target instances.
type Registry struct {
	mu       sync.RWMutex
	services map[string]any
	fallback any
	logger   *zap.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithDefault sets the instance returned when no name matches.
func WithDefault(target any) RegistryOption {
	return func(r *Registry) { r.fallback = target }
}

// WithRegistryLogger sets the logger used to report ignored registrations.
func WithRegistryLogger(logger *zap.Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		services: make(map[string]any),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register binds name to target. The first registration of a name wins; later
// ones are logged and ignored. It reports whether target was stored.
func (r *Registry) Register(name string, target any) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.services[name]; exists {
		r.logger.Warn("service already registered, ignoring", zap.String("service", name))
		return false
	}
	r.services[name] = target
	r.logger.Debug("service registered", zap.String("service", name))
	return true
}

// Lookup returns the instance bound to name, or the default instance when
// there is none. ok is false only if neither exists.
func (r *Registry) Lookup(name string) (target any, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if t, exists := r.services[name]; exists {
		return t, true
	}
	if r.fallback != nil {
		return r.fallback, true
	}
	return nil, false
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.services))
	for name := range r.services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
