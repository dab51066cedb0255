package kickstart_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoCodeAlone/kickstart"
	"github.com/GoCodeAlone/kickstart/container"
	"github.com/GoCodeAlone/kickstart/dom"
)

func TestNewApplicationRequiresHost(t *testing.T) {
	_, err := kickstart.NewApplication()
	assert.ErrorIs(t, err, kickstart.ErrHostNil)

	_, err = kickstart.NewApplication(kickstart.WithHost(dom.NewDocument()), kickstart.WithLoader(nil))
	assert.ErrorIs(t, err, kickstart.ErrCollaboratorNil)
}

func TestNewApplicationRegistersItself(t *testing.T) {
	f := newFixture(t)
	c := f.app.Container()

	app, err := c.Get(kickstart.ServiceApplication)
	require.NoError(t, err)
	assert.Same(t, f.app, app)

	l, err := c.Get(kickstart.ServiceLoader)
	require.NoError(t, err)
	assert.Same(t, f.modules, l)

	r, err := c.Get(kickstart.ServiceViewResources)
	require.NoError(t, err)
	assert.Same(t, f.app.Resources(), r)
}

func TestStartWithoutBindingLanguageFails(t *testing.T) {
	f := newFixture(t)

	err := f.app.Start(context.Background())

	assert.ErrorIs(t, err, kickstart.ErrBindingLanguageMissing)
	assert.Equal(t, 0, countEvents(f.doc, kickstart.EventStarted))
	assert.Equal(t, 0, f.events.count(kickstart.EventTypeApplicationStarted))
	assert.Equal(t, 1, f.events.count(kickstart.EventTypeApplicationFailed))
}

func TestBindingLanguageRegisteredByPlugin(t *testing.T) {
	f := newFixture(t)
	f.modules.Define(kickstart.BindingLanguageModule, kickstart.ConfigureFunc(func(_ context.Context, config *kickstart.PluginContext, _ kickstart.Settings) error {
		return config.Instance(kickstart.ServiceBindingLanguage, "binding")
	}))
	require.NoError(t, f.app.Use().DefaultBindingLanguage())

	assert.NoError(t, f.app.Start(context.Background()))
}

func TestStartRunsOnce(t *testing.T) {
	f := newFixture(t)
	f.withBindingLanguage(t)
	var acts activation
	f.modules.Define("p", acts.plugin("p", nil))
	require.NoError(t, f.app.Use().Plugin("p", nil))

	require.NoError(t, f.app.Start(context.Background()))
	require.NoError(t, f.app.Start(context.Background()))

	assert.True(t, f.app.IsStarted())
	assert.Equal(t, []string{"p"}, acts.order)
	assert.Equal(t, 1, countEvents(f.doc, kickstart.EventStarted))
	assert.Equal(t, 1, f.events.count(kickstart.EventTypeApplicationStarted))
}

func TestStartReturnsFirstFailureAgain(t *testing.T) {
	f := newFixture(t)

	first := f.app.Start(context.Background())
	require.Error(t, first)

	assert.Equal(t, first, f.app.Start(context.Background()))
	assert.Equal(t, 1, f.events.count(kickstart.EventTypeApplicationFailed))
}

func TestStartedEventIsCancelableAndBubbles(t *testing.T) {
	f := newFixture(t)
	f.withBindingLanguage(t)

	var seen kickstart.Event
	f.doc.AddEventListener(kickstart.EventStarted, func(evt kickstart.Event) {
		seen = evt
		evt.PreventDefault()
	})

	require.NoError(t, f.app.Start(context.Background()))
	require.NotNil(t, seen)
	assert.True(t, seen.DefaultPrevented())
}

func TestActionlessFormSubmitIsPrevented(t *testing.T) {
	f := newFixture(t)
	f.withBindingLanguage(t)
	require.NoError(t, f.app.Start(context.Background()))

	bare := f.doc.CreateElement("form", "bare")
	withAction := f.doc.CreateElement("FORM", "posting")
	withAction.SetAttribute("action", "/submit")
	button := f.doc.CreateElement("button", "button")
	for _, el := range []*dom.Element{bare, withAction, button} {
		f.doc.BodyElement().AppendChild(el)
	}

	init := kickstart.EventInit{Bubbles: true, Cancelable: true}
	assert.False(t, bare.Dispatch(kickstart.EventSubmit, init))
	assert.True(t, withAction.Dispatch(kickstart.EventSubmit, init))
	assert.True(t, button.Dispatch(kickstart.EventSubmit, init))
}

func TestSetRootBindsHostOnce(t *testing.T) {
	f := newFixture(t)
	existing := f.doc.CreateElement("p", "prerendered")
	f.host.AppendChild(existing)

	require.NoError(t, f.app.SetRoot(context.Background(), nil, nil))

	assert.True(t, f.app.IsHostConfigured())
	assert.Same(t, f.host, f.app.HostElement())
	value, ok := f.host.Property(kickstart.HostProperty)
	assert.True(t, ok)
	assert.Same(t, f.app, value)

	boundary, err := f.app.Container().Get(kickstart.ServiceBoundary)
	require.NoError(t, err)
	assert.Same(t, f.host, boundary)

	slot := f.app.HostSlot()
	require.NotNil(t, slot)
	require.Len(t, slot.Views(), 1)
	assert.Equal(t, []kickstart.Element{existing}, slot.Views()[0].Nodes())

	other := f.doc.CreateElement("div", "other")
	f.doc.BodyElement().AppendChild(other)
	require.NoError(t, f.app.SetRoot(context.Background(), "second", "other"))

	assert.Same(t, f.host, f.app.HostElement())
	assert.Same(t, slot, f.app.HostSlot())
	require.Len(t, f.composer.compositions, 2)
	assert.Same(t, slot, f.composer.compositions[1].ViewSlot)
	assert.Same(t, f.host, f.composer.compositions[1].Host)
	assert.Equal(t, 1, f.events.count(kickstart.EventTypeHostConfigured))
}

func TestSetRootInstruction(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.app.SetRoot(context.Background(), "", nil))

	require.Len(t, f.composer.compositions, 1)
	instruction := f.composer.compositions[0]
	assert.Equal(t, kickstart.DefaultRoot, instruction.ViewModel)
	assert.Same(t, f.app.Container(), instruction.Container)
	assert.Same(t, f.app.Container(), instruction.ChildContainer)
	assert.True(t, instruction.ViewSlot.IsAttached())
	assert.NotNil(t, f.app.Root())
}

func TestSetRootClearsInitialComposition(t *testing.T) {
	f := newFixture(t)
	tx := &fakeTransaction{}
	require.NoError(t, f.app.Use().Instance(kickstart.ServiceCompositionTransaction, tx))

	require.NoError(t, f.app.SetRoot(context.Background(), "app", nil))
	require.NoError(t, f.app.SetRoot(context.Background(), "app", nil))

	assert.Equal(t, 2, tx.cleared)
}

func TestSetRootResetsPreviousRouter(t *testing.T) {
	f := newFixture(t)
	router := &fakeRouter{}
	f.composer.viewModels = map[any]any{"shell": &routedViewModel{router: router}}

	require.NoError(t, f.app.SetRoot(context.Background(), "shell", nil))
	assert.Empty(t, router.calls)

	require.NoError(t, f.app.SetRoot(context.Background(), "login", nil))
	assert.Equal(t, []string{"deactivate", "reset"}, router.calls)

	require.NoError(t, f.app.SetRoot(context.Background(), "shell", nil))
	assert.Equal(t, []string{"deactivate", "reset"}, router.calls)
}

func TestSetRootComposeFailureKeepsRoot(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.app.SetRoot(context.Background(), "app", nil))
	root := f.app.Root()
	f.pending.run()

	boom := errors.New("compose failed")
	f.composer.err = boom

	assert.ErrorIs(t, f.app.SetRoot(context.Background(), "next", nil), boom)
	assert.Same(t, root, f.app.Root())
	assert.Equal(t, 0, f.pending.len())
}

func TestComposedNotificationIsDeferred(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.app.SetRoot(context.Background(), "app", nil))

	assert.Equal(t, 0, countEvents(f.doc, kickstart.EventComposed))
	assert.Equal(t, 1, f.pending.len())

	f.pending.run()
	assert.Equal(t, 1, countEvents(f.doc, kickstart.EventComposed))
	assert.Equal(t, 1, f.events.count(kickstart.EventTypeApplicationComposed))
}

func TestConfigureHostErrors(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		f := newFixture(t)
		assert.ErrorIs(t, f.app.SetRoot(context.Background(), "app", "missing"), kickstart.ErrHostNotFound)
		assert.False(t, f.app.IsHostConfigured())
	})

	t.Run("unsupported reference", func(t *testing.T) {
		f := newFixture(t)
		assert.ErrorIs(t, f.app.SetRoot(context.Background(), "app", 42), kickstart.ErrInvalidHostRef)
	})

	t.Run("default id missing", func(t *testing.T) {
		doc := dom.NewDocument()
		app, err := kickstart.NewApplication(kickstart.WithHost(doc))
		require.NoError(t, err)
		assert.ErrorIs(t, app.SetRoot(context.Background(), "app", nil), kickstart.ErrHostNotFound)
	})
}

func TestHostElementOption(t *testing.T) {
	f := newFixture(t, kickstart.WithHostElement("mount"))
	mount := f.doc.CreateElement("section", "mount")
	f.doc.BodyElement().AppendChild(mount)

	require.NoError(t, f.app.SetRoot(context.Background(), "app", nil))
	assert.Same(t, mount, f.app.HostElement())
}

func TestEnhance(t *testing.T) {
	f := newFixture(t)
	ctxValue := map[string]any{"user": "ada"}

	require.NoError(t, f.app.Enhance(context.Background(), ctxValue, f.host))

	require.Len(t, f.composer.enhancements, 1)
	instruction := f.composer.enhancements[0]
	assert.Same(t, f.host, instruction.Element)
	assert.Same(t, f.app.Resources(), instruction.Resources)
	assert.Equal(t, ctxValue, instruction.BindingContext)

	view, ok := f.app.Root().(*fakeView)
	require.True(t, ok)
	assert.Equal(t, 1, view.attached)
	assert.Equal(t, 1, f.pending.len())
}

func TestEnhanceDefaultHost(t *testing.T) {
	t.Run("conventional id", func(t *testing.T) {
		f := newFixture(t)

		require.NoError(t, f.app.Enhance(context.Background(), nil, nil))

		assert.Same(t, f.host, f.app.HostElement())
		assert.Equal(t, map[string]any{}, f.composer.enhancements[0].BindingContext)
	})

	t.Run("preset element", func(t *testing.T) {
		f := newFixture(t, kickstart.WithHostElement("mount"))
		mount := f.doc.CreateElement("section", "mount")
		f.doc.BodyElement().AppendChild(mount)

		require.NoError(t, f.app.Enhance(context.Background(), nil, nil))

		assert.Same(t, mount, f.app.HostElement())
	})
}

func TestEnhanceWithoutEngine(t *testing.T) {
	doc := dom.NewDocument()
	doc.BodyElement().AppendChild(doc.CreateElement("div", kickstart.DefaultHostID))
	app, err := kickstart.NewApplication(kickstart.WithHost(doc))
	require.NoError(t, err)

	err = app.Enhance(context.Background(), nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, container.ErrServiceNotFound)
}
