package kickstart

import (
	"sort"
	"sync"
)

// ViewResources is the application-wide registry of global view resources.
// View engines fill it while importing; composition engines read from it.
type ViewResources struct {
	mu        sync.RWMutex
	resources map[string]any
}

// NewViewResources creates an empty registry.
func NewViewResources() *ViewResources {
	return &ViewResources{resources: make(map[string]any)}
}

// Register stores resource under name, replacing any earlier entry.
func (r *ViewResources) Register(name string, resource any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resources[name] = resource
}

// Lookup returns the resource registered under name.
func (r *ViewResources) Lookup(name string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	resource, ok := r.resources[name]
	return resource, ok
}

// Names returns the registered names, sorted.
func (r *ViewResources) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.resources))
	for name := range r.resources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
