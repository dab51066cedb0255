package kickstart

import (
	"context"
	"errors"
	"testing"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubHost records dispatched events and resolves no elements. The dom
// package imports this one, so it cannot be used here.
type stubHost struct {
	dispatched []string
}

func (h *stubHost) ResolveElement(string) Element { return nil }

func (h *stubHost) DispatchEvent(_ Element, name string, _ EventInit) bool {
	h.dispatched = append(h.dispatched, name)
	return true
}

func (h *stubHost) AddEventListener(string, EventListener) {}

func newTestApplication(t *testing.T, opts ...Option) *Application {
	t.Helper()
	app, err := NewApplication(append([]Option{WithHost(&stubHost{})}, opts...)...)
	require.NoError(t, err)
	return app
}

func TestNewCloudEvent(t *testing.T) {
	event := NewCloudEvent(EventTypePluginLoaded, PluginDescriptor{ModuleID: "p1"}, map[string]any{"phase": "apply"})

	assert.Equal(t, EventTypePluginLoaded, event.Type())
	assert.Equal(t, EventSource, event.Source())
	assert.NoError(t, event.Validate())

	id, err := uuid.Parse(event.ID())
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())

	var descriptor PluginDescriptor
	require.NoError(t, event.DataAs(&descriptor))
	assert.Equal(t, "p1", descriptor.ModuleID)

	assert.Equal(t, "apply", event.Extensions()["phase"])
}

func TestObserverFiltering(t *testing.T) {
	app := newTestApplication(t)

	var all, filtered []string
	require.NoError(t, app.RegisterObserver(NewFunctionalObserver("all", func(_ context.Context, e cloudevents.Event) error {
		all = append(all, e.Type())
		return nil
	})))
	require.NoError(t, app.RegisterObserver(NewFunctionalObserver("filtered", func(_ context.Context, e cloudevents.Event) error {
		filtered = append(filtered, e.Type())
		return nil
	}), EventTypeApplicationStarted))

	ctx := context.Background()
	app.emitEvent(ctx, EventTypePluginLoaded, nil, nil)
	app.emitEvent(ctx, EventTypeApplicationStarted, nil, nil)

	assert.Equal(t, []string{EventTypePluginLoaded, EventTypeApplicationStarted}, all)
	assert.Equal(t, []string{EventTypeApplicationStarted}, filtered)
}

func TestObserverOrderAndUnregister(t *testing.T) {
	app := newTestApplication(t)

	var order []string
	observer := func(id string) Observer {
		return NewFunctionalObserver(id, func(context.Context, cloudevents.Event) error {
			order = append(order, id)
			return nil
		})
	}
	first, second, third := observer("first"), observer("second"), observer("third")
	for _, o := range []Observer{first, second, third} {
		require.NoError(t, app.RegisterObserver(o))
	}
	require.NoError(t, app.UnregisterObserver(second))
	require.NoError(t, app.UnregisterObserver(second))

	app.emitEvent(context.Background(), EventTypePluginLoaded, nil, nil)
	assert.Equal(t, []string{"first", "third"}, order)
}

func TestObserverFailuresAreContained(t *testing.T) {
	app := newTestApplication(t)

	reached := false
	require.NoError(t, app.RegisterObserver(NewFunctionalObserver("failing", func(context.Context, cloudevents.Event) error {
		return errors.New("observer failed")
	})))
	require.NoError(t, app.RegisterObserver(NewFunctionalObserver("panicking", func(context.Context, cloudevents.Event) error {
		panic("observer panicked")
	})))
	require.NoError(t, app.RegisterObserver(NewFunctionalObserver("last", func(context.Context, cloudevents.Event) error {
		reached = true
		return nil
	})))

	assert.NoError(t, app.NotifyObservers(context.Background(), NewCloudEvent(EventTypePluginLoaded, nil, nil)))
	assert.True(t, reached)
}

func TestNotifyObserversRejectsInvalidEvent(t *testing.T) {
	app := newTestApplication(t)
	assert.Error(t, app.NotifyObservers(context.Background(), cloudevents.NewEvent()))
}

func TestStartDispatchesOnHost(t *testing.T) {
	host := &stubHost{}
	app, err := NewApplication(WithHost(host))
	require.NoError(t, err)
	require.NoError(t, app.Use().Instance(ServiceBindingLanguage, "binding"))

	require.NoError(t, app.Start(context.Background()))
	assert.Equal(t, []string{EventStarted}, host.dispatched)
}
