package kickstart

import (
	"fmt"
	"time"

	"github.com/GoCodeAlone/kickstart/logging"
)

// Option represents a configuration option for the application.
type Option func(*Application) error

// Scheduler runs f on a later turn. The composed notification is always
// delivered through it, never synchronously.
type Scheduler func(f func())

// defaultScheduler defers f by one millisecond.
func defaultScheduler(f func()) {
	time.AfterFunc(time.Millisecond, f)
}

// WithLoader sets the module loader. The default is an empty loader.Registry
// that only knows the console logging module.
func WithLoader(l Loader) Option {
	return func(app *Application) error {
		if l == nil {
			return fmt.Errorf("loader: %w", ErrCollaboratorNil)
		}
		app.loader = l
		return nil
	}
}

// WithContainer sets the root dependency injection container.
func WithContainer(c Container) Option {
	return func(app *Application) error {
		if c == nil {
			return fmt.Errorf("container: %w", ErrCollaboratorNil)
		}
		app.container = c
		return nil
	}
}

// WithResources sets the global view resource registry.
func WithResources(r *ViewResources) Option {
	return func(app *Application) error {
		if r == nil {
			return fmt.Errorf("resources: %w", ErrCollaboratorNil)
		}
		app.resources = r
		return nil
	}
}

// WithHost sets the host document. It is required.
func WithHost(h Host) Option {
	return func(app *Application) error {
		app.host = h
		return nil
	}
}

// WithHostElement sets the host reference used when Enhance or SetRoot are
// called without one. ref is an element id or an Element.
func WithHostElement(ref any) Option {
	return func(app *Application) error {
		app.hostRef = ref
		return nil
	}
}

// WithLogManager replaces the log manager. The default manager logs nothing
// until an appender is added.
func WithLogManager(m *logging.Manager) Option {
	return func(app *Application) error {
		if m == nil {
			return fmt.Errorf("log manager: %w", ErrCollaboratorNil)
		}
		app.logManager = m
		return nil
	}
}

// WithLogger adds logger as an appender of the application's log manager.
func WithLogger(logger Logger) Option {
	return func(app *Application) error {
		app.appenders = append(app.appenders, logger)
		return nil
	}
}

// WithScheduler sets the scheduler used for deferred notifications.
func WithScheduler(s Scheduler) Option {
	return func(app *Application) error {
		if s == nil {
			return fmt.Errorf("scheduler: %w", ErrCollaboratorNil)
		}
		app.scheduler = s
		return nil
	}
}

// WithObserver registers observer for eventTypes, or for every event when none
// are given.
func WithObserver(observer Observer, eventTypes ...string) Option {
	return func(app *Application) error {
		if observer == nil {
			return fmt.Errorf("observer: %w", ErrCollaboratorNil)
		}
		app.pendingObservers = append(app.pendingObservers, pendingObserver{observer: observer, eventTypes: eventTypes})
		return nil
	}
}
