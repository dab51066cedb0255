// Package loader provides the default module loader for kickstart
// applications. Modules are arbitrary Go values addressed by module id; they
// come from explicit definitions or from pluggable sources consulted in order.
package loader

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"path"
	"strings"
	"sync"
)

// Static errors for loader package
var (
	ErrModuleNotFound = errors.New("module not found")
	ErrModuleIDEmpty  = errors.New("module id is empty")
)

// Source supplies modules the registry has no definition for. The boolean
// result reports whether the source owns moduleID.
type Source interface {
	Load(ctx context.Context, moduleID string) (any, bool, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, moduleID string) (any, bool, error)

// Load implements Source.
func (f SourceFunc) Load(ctx context.Context, moduleID string) (any, bool, error) {
	return f(ctx, moduleID)
}

// Option configures a Registry.
type Option func(*Registry)

// WithSource appends a module source. Sources are consulted in the order
// they were added.
func WithSource(source Source) Option {
	return func(r *Registry) {
		r.sources = append(r.sources, source)
	}
}

// WithModule defines a module up front.
func WithModule(moduleID string, module any) Option {
	return func(r *Registry) {
		r.modules[moduleID] = module
	}
}

// Registry is an in-process loader. Loading is deterministic for a given id
// and cached after the first successful load.
type Registry struct {
	mu      sync.RWMutex
	modules map[string]any
	aliases map[string]string
	sources []Source
}

// NewRegistry creates a loader with the given options applied.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		modules: make(map[string]any),
		aliases: make(map[string]string),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Define registers module under moduleID, replacing any earlier definition.
func (r *Registry) Define(moduleID string, module any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.modules[moduleID] = module
}

// Map registers an alias so later references to name resolve to moduleID.
func (r *Registry) Map(name, moduleID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.aliases[name] = moduleID
}

// Aliases returns a copy of the registered aliases.
func (r *Registry) Aliases() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return maps.Clone(r.aliases)
}

// Normalize resolves name to a module id. Aliases win; names starting with
// "./" or "../" are resolved against the directory of anchor; anything else
// is already an id.
func (r *Registry) Normalize(_ context.Context, name, anchor string) (string, error) {
	if name == "" {
		return "", ErrModuleIDEmpty
	}

	r.mu.RLock()
	alias, mapped := r.aliases[name]
	r.mu.RUnlock()
	if mapped {
		return alias, nil
	}

	if !isRelative(name) {
		return name, nil
	}

	if anchor == "" {
		return path.Clean(name), nil
	}
	return path.Join(path.Dir(anchor), name), nil
}

// LoadModule returns the module for moduleID, consulting definitions, then
// sources. Modules found through a source are cached.
func (r *Registry) LoadModule(ctx context.Context, moduleID string) (any, error) {
	if moduleID == "" {
		return nil, ErrModuleIDEmpty
	}

	r.mu.RLock()
	if alias, mapped := r.aliases[moduleID]; mapped {
		moduleID = alias
	}
	module, defined := r.modules[moduleID]
	sources := r.sources
	r.mu.RUnlock()

	if defined {
		return module, nil
	}

	for _, source := range sources {
		loaded, found, err := source.Load(ctx, moduleID)
		if err != nil {
			return nil, fmt.Errorf("failed to load module %s: %w", moduleID, err)
		}
		if !found {
			continue
		}

		r.mu.Lock()
		if existing, ok := r.modules[moduleID]; ok {
			loaded = existing
		} else {
			r.modules[moduleID] = loaded
		}
		r.mu.Unlock()
		return loaded, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrModuleNotFound, moduleID)
}

func isRelative(name string) bool {
	return strings.HasPrefix(name, "./") || strings.HasPrefix(name, "../")
}
