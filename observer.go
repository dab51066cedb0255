// Package kickstart bootstraps client applications: it sequences plugin
// registration, plugin activation and global resource loading, then drives
// the application through start, enhance and root composition.
//
// Basic usage:
//
//	app, err := kickstart.NewApplication(kickstart.WithHost(doc))
//	if err != nil {
//		log.Fatal(err)
//	}
//	_ = app.Use().StandardConfiguration()
//	_ = app.Use().Feature("resources", nil)
//	if err := app.Start(ctx); err != nil {
//		log.Fatal(err)
//	}
//	if err := app.SetRoot(ctx, "app", nil); err != nil {
//		log.Fatal(err)
//	}
//
// Lifecycle and plugin events are published to observers as CloudEvents.
package kickstart

import (
	"context"
	"fmt"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"
)

// EventSource is the CloudEvents source of every framework event.
const EventSource = "kickstart"

// Event types published to observers. They use reverse domain notation.
const (
	EventTypePluginLoaded         = "com.kickstart.plugin.loaded"
	EventTypePluginConfigured     = "com.kickstart.plugin.configured"
	EventTypeConfigurationApplied = "com.kickstart.configuration.applied"
	EventTypeHostConfigured       = "com.kickstart.host.configured"
	EventTypeApplicationStarted   = "com.kickstart.application.started"
	EventTypeApplicationFailed    = "com.kickstart.application.failed"
	EventTypeApplicationComposed  = "com.kickstart.application.composed"
)

// Observer is notified of framework events.
type Observer interface {
	// OnEvent handles one event. Errors are logged, never propagated.
	OnEvent(ctx context.Context, event cloudevents.Event) error

	// ObserverID returns a unique identifier for this observer.
	ObserverID() string
}

// FunctionalObserver provides a simple way to create observers using functions.
type FunctionalObserver struct {
	id      string
	handler func(ctx context.Context, event cloudevents.Event) error
}

// NewFunctionalObserver creates a new observer that uses the provided function
// to handle events.
func NewFunctionalObserver(id string, handler func(ctx context.Context, event cloudevents.Event) error) Observer {
	return &FunctionalObserver{
		id:      id,
		handler: handler,
	}
}

// OnEvent implements the Observer interface by calling the handler function.
func (f *FunctionalObserver) OnEvent(ctx context.Context, event cloudevents.Event) error {
	return f.handler(ctx, event)
}

// ObserverID implements the Observer interface by returning the observer ID.
func (f *FunctionalObserver) ObserverID() string {
	return f.id
}

type observerRegistration struct {
	observer   Observer
	eventTypes map[string]bool
}

// NewCloudEvent creates a framework CloudEvent with JSON data and the given
// extensions.
func NewCloudEvent(eventType string, data any, extensions map[string]any) cloudevents.Event {
	event := cloudevents.NewEvent()
	event.SetID(generateEventID())
	event.SetSource(EventSource)
	event.SetType(eventType)
	event.SetTime(time.Now())
	event.SetSpecVersion(cloudevents.VersionV1)

	if data != nil {
		_ = event.SetData(cloudevents.ApplicationJSON, data)
	}

	for key, value := range extensions {
		event.SetExtension(key, value)
	}

	return event
}

// generateEventID generates a time-ordered UUIDv7, falling back to v4.
func generateEventID() string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return id.String()
}

// RegisterObserver adds an observer. With no eventTypes it receives every event.
func (app *Application) RegisterObserver(observer Observer, eventTypes ...string) error {
	app.observerMu.Lock()
	defer app.observerMu.Unlock()

	types := make(map[string]bool, len(eventTypes))
	for _, eventType := range eventTypes {
		types[eventType] = true
	}

	app.observers[observer.ObserverID()] = &observerRegistration{
		observer:   observer,
		eventTypes: types,
	}
	app.observerOrder = append(app.observerOrder, observer.ObserverID())

	app.logger.Debug("Observer registered", "observerID", observer.ObserverID(), "eventTypes", eventTypes)
	return nil
}

// UnregisterObserver removes an observer. Unknown observers are ignored.
func (app *Application) UnregisterObserver(observer Observer) error {
	app.observerMu.Lock()
	defer app.observerMu.Unlock()

	id := observer.ObserverID()
	if _, exists := app.observers[id]; !exists {
		return nil
	}
	delete(app.observers, id)
	for i, registered := range app.observerOrder {
		if registered == id {
			app.observerOrder = append(app.observerOrder[:i], app.observerOrder[i+1:]...)
			break
		}
	}
	return nil
}

// NotifyObservers delivers event to every interested observer, synchronously
// and in registration order, so observers see pipeline events in the order
// they happen.
func (app *Application) NotifyObservers(ctx context.Context, event cloudevents.Event) error {
	if err := event.Validate(); err != nil {
		app.logger.Error("Invalid CloudEvent", "eventType", event.Type(), "error", err)
		return fmt.Errorf("CloudEvent validation failed: %w", err)
	}

	app.observerMu.RLock()
	registrations := make([]*observerRegistration, 0, len(app.observerOrder))
	for _, id := range app.observerOrder {
		registrations = append(registrations, app.observers[id])
	}
	app.observerMu.RUnlock()

	for _, registration := range registrations {
		if len(registration.eventTypes) > 0 && !registration.eventTypes[event.Type()] {
			continue
		}
		app.deliver(ctx, registration.observer, event)
	}
	return nil
}

func (app *Application) deliver(ctx context.Context, observer Observer, event cloudevents.Event) {
	defer func() {
		if r := recover(); r != nil {
			app.logger.Error("Observer panicked", "observerID", observer.ObserverID(), "event", event.Type(), "panic", r)
		}
	}()

	if err := observer.OnEvent(ctx, event); err != nil {
		app.logger.Error("Observer error", "observerID", observer.ObserverID(), "event", event.Type(), "error", err)
	}
}

func (app *Application) emitEvent(ctx context.Context, eventType string, data any, extensions map[string]any) {
	if err := app.NotifyObservers(ctx, NewCloudEvent(eventType, data, extensions)); err != nil {
		app.logger.Debug("Failed to emit event", "eventType", eventType, "error", err)
	}
}
