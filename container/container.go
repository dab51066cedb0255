// Package container provides the default dependency injection container used
// by kickstart applications. Registrations are keyed by name and come in three
// lifetimes: instances, singletons built on first use, and transients built on
// every resolution.
package container

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"
)

// Static errors for container package
var (
	ErrServiceNotFound  = errors.New("no resolver registered for key")
	ErrServiceWrongType = errors.New("registered service doesn't satisfy requested type")
	ErrFactoryNil       = errors.New("factory is nil")
)

// Resolver resolves registered services by key.
type Resolver interface {
	Get(key string) (any, error)
}

// Factory builds a service. The resolver passed in is the container the
// resolution started from, so factories can pull their own dependencies.
type Factory func(r Resolver) (any, error)

type lifetime int

const (
	lifetimeInstance lifetime = iota
	lifetimeSingleton
	lifetimeTransient
)

func (l lifetime) String() string {
	switch l {
	case lifetimeInstance:
		return "instance"
	case lifetimeSingleton:
		return "singleton"
	case lifetimeTransient:
		return "transient"
	default:
		return "unknown"
	}
}

type registration struct {
	lifetime lifetime
	value    any
	factory  Factory
	built    bool
}

// Container implements name-keyed registration and resolution with optional
// parent lookup.
type Container struct {
	mu            sync.RWMutex
	parent        *Container
	registrations map[string]*registration
}

// New creates an empty root container.
func New() *Container {
	return &Container{
		registrations: make(map[string]*registration),
	}
}

// CreateChild creates a container that resolves its own registrations first
// and falls back to c.
func (c *Container) CreateChild() *Container {
	child := New()
	child.parent = c
	return child
}

// Parent returns the parent container, or nil for a root container.
func (c *Container) Parent() *Container {
	return c.parent
}

// RegisterInstance registers an existing value under key, replacing any
// previous registration.
func (c *Container) RegisterInstance(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.registrations[key] = &registration{
		lifetime: lifetimeInstance,
		value:    value,
		built:    true,
	}
}

// RegisterSingleton registers a factory whose result is built once, on first
// resolution, and cached.
func (c *Container) RegisterSingleton(key string, factory Factory) {
	c.register(key, lifetimeSingleton, factory)
}

// RegisterTransient registers a factory invoked on every resolution.
func (c *Container) RegisterTransient(key string, factory Factory) {
	c.register(key, lifetimeTransient, factory)
}

func (c *Container) register(key string, lt lifetime, factory Factory) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.registrations[key] = &registration{
		lifetime: lt,
		factory:  factory,
	}
}

// HasResolver reports whether key is registered in c or one of its parents.
func (c *Container) HasResolver(key string) bool {
	for current := c; current != nil; current = current.parent {
		current.mu.RLock()
		_, exists := current.registrations[key]
		current.mu.RUnlock()
		if exists {
			return true
		}
	}
	return false
}

// Get resolves key, building singletons and transients as needed.
func (c *Container) Get(key string) (any, error) {
	for current := c; current != nil; current = current.parent {
		current.mu.RLock()
		reg, exists := current.registrations[key]
		current.mu.RUnlock()
		if exists {
			return current.build(c, key, reg)
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrServiceNotFound, key)
}

// build runs factories without holding the lock so they can resolve their own
// dependencies from the same container.
func (c *Container) build(origin *Container, key string, reg *registration) (any, error) {
	c.mu.RLock()
	if reg.built {
		value := reg.value
		c.mu.RUnlock()
		return value, nil
	}
	c.mu.RUnlock()

	if reg.factory == nil {
		return nil, fmt.Errorf("%w: %s %s", ErrFactoryNil, reg.lifetime, key)
	}

	value, err := reg.factory(origin)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s %s: %w", reg.lifetime, key, err)
	}

	if reg.lifetime == lifetimeSingleton {
		c.mu.Lock()
		if reg.built {
			value = reg.value
		} else {
			reg.value = value
			reg.built = true
		}
		c.mu.Unlock()
	}

	return value, nil
}

// Keys returns the keys registered directly in c, sorted.
func (c *Container) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]string, 0, len(c.registrations))
	for key := range c.registrations {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Resolve resolves key and asserts the result to T.
func Resolve[T any](r Resolver, key string) (T, error) {
	var zero T

	value, err := r.Get(key)
	if err != nil {
		return zero, err
	}

	typed, ok := value.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s is %T, want %s", ErrServiceWrongType, key, value, reflect.TypeFor[T]())
	}
	return typed, nil
}
