package kickstart

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/GoCodeAlone/kickstart/container"
	"github.com/GoCodeAlone/kickstart/loader"
	"github.com/GoCodeAlone/kickstart/logging"
)

// DefaultRoot is the view-model composed by SetRoot when no root is given.
const DefaultRoot = "app"

// Application owns the container, loader and resource registry of a client
// application and drives it through start, enhance and root composition.
type Application struct {
	loader     Loader
	container  Container
	resources  *ViewResources
	host       Host
	hostRef    any
	use        *FrameworkConfiguration
	logManager *logging.Manager
	logger     Logger
	scheduler  Scheduler

	appenders        []Logger
	pendingObservers []pendingObserver

	observerMu    sync.RWMutex
	observers     map[string]*observerRegistration
	observerOrder []string

	mu             sync.Mutex
	started        bool
	startErr       error
	hostConfigured bool
	hostElement    Element
	hostSlot       *ViewSlot
	root           ComposedView
}

type pendingObserver struct {
	observer   Observer
	eventTypes []string
}

// NewApplication creates an application. WithHost is required; every other
// collaborator has a default.
func NewApplication(opts ...Option) (*Application, error) {
	app := &Application{
		observers: make(map[string]*observerRegistration),
	}

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, fmt.Errorf("failed to apply application option: %w", err)
		}
	}

	if app.host == nil {
		return nil, ErrHostNil
	}
	if app.loader == nil {
		app.loader = loader.NewRegistry(
			loader.WithModule(ConsoleLoggingModule, &logging.ConsoleModule{}),
		)
	}
	if app.container == nil {
		app.container = container.New()
	}
	if app.resources == nil {
		app.resources = NewViewResources()
	}
	if app.logManager == nil {
		app.logManager = logging.NewManager(logging.LevelInfo)
	}
	for _, appender := range app.appenders {
		app.logManager.AddAppender(appender)
	}
	if app.scheduler == nil {
		app.scheduler = defaultScheduler
	}
	app.logger = app.logManager.Logger(EventSource)

	for _, pending := range app.pendingObservers {
		if err := app.RegisterObserver(pending.observer, pending.eventTypes...); err != nil {
			return nil, err
		}
	}
	app.pendingObservers = nil

	app.use = newFrameworkConfiguration(app)
	for key, value := range map[string]any{
		ServiceApplication:   app,
		ServiceLoader:        app.loader,
		ServiceViewResources: app.resources,
	} {
		if err := app.use.Instance(key, value); err != nil {
			return nil, err
		}
	}

	return app, nil
}

// Use returns the application's configuration.
func (app *Application) Use() *FrameworkConfiguration {
	return app.use
}

// Container returns the root container.
func (app *Application) Container() Container {
	return app.container
}

// Loader returns the module loader.
func (app *Application) Loader() Loader {
	return app.loader
}

// Resources returns the global view resource registry.
func (app *Application) Resources() *ViewResources {
	return app.resources
}

// LogManager returns the application's log manager.
func (app *Application) LogManager() *logging.Manager {
	return app.logManager
}

// Logger returns the framework logger.
func (app *Application) Logger() Logger {
	return app.logger
}

// Start applies the configuration and validates the result. Only the first
// call does any work; later calls return its result.
func (app *Application) Start(ctx context.Context) error {
	app.mu.Lock()
	if app.started {
		err := app.startErr
		app.mu.Unlock()
		return err
	}
	app.started = true
	app.mu.Unlock()

	err := app.start(ctx)

	app.mu.Lock()
	app.startErr = err
	app.mu.Unlock()

	if err != nil {
		app.emitEvent(ctx, EventTypeApplicationFailed, map[string]any{"error": err.Error()}, nil)
	}
	return err
}

func (app *Application) start(ctx context.Context) error {
	app.logger.Info("Starting")

	if err := app.use.Apply(ctx); err != nil {
		return err
	}

	app.preventActionlessFormSubmit()

	if !app.container.HasResolver(ServiceBindingLanguage) {
		app.logger.Error(ErrBindingLanguageMissing.Error())
		return ErrBindingLanguageMissing
	}

	app.logger.Info("Started")
	app.host.DispatchEvent(nil, EventStarted, EventInit{Bubbles: true, Cancelable: true})
	app.emitEvent(ctx, EventTypeApplicationStarted, nil, nil)
	return nil
}

// Enhance binds the host and enhances its existing markup in place with
// bindingContext. A nil bindingContext is replaced by an empty map.
func (app *Application) Enhance(ctx context.Context, bindingContext any, hostRef any) error {
	if err := app.configureHost(ctx, hostRef); err != nil {
		return err
	}
	if bindingContext == nil {
		bindingContext = map[string]any{}
	}

	engine, err := container.Resolve[CompositionEngine](app.container, ServiceTemplatingEngine)
	if err != nil {
		return fmt.Errorf("failed to enhance host: %w", err)
	}

	app.mu.Lock()
	element := app.hostElement
	app.mu.Unlock()

	view, err := engine.Enhance(ctx, &EnhanceInstruction{
		Container:      app.container,
		Element:        element,
		Resources:      app.resources,
		BindingContext: bindingContext,
	})
	if err != nil {
		return err
	}

	app.mu.Lock()
	app.root = view
	app.mu.Unlock()

	view.Attached()
	app.onComposed(ctx)
	return nil
}

// SetRoot composes root into the host, replacing the current root. A nil or
// empty root composes DefaultRoot. A router owned by the previous root is
// deactivated and reset first.
func (app *Application) SetRoot(ctx context.Context, root any, hostRef any) error {
	if previous := app.Root(); previous != nil {
		if router, ok := routerOf(previous); ok {
			router.Deactivate()
			router.Reset()
		}
	}

	if err := app.configureHost(ctx, hostRef); err != nil {
		return err
	}

	engine, err := container.Resolve[CompositionEngine](app.container, ServiceTemplatingEngine)
	if err != nil {
		return fmt.Errorf("failed to compose root: %w", err)
	}
	if app.container.HasResolver(ServiceCompositionTransaction) {
		transaction, err := container.Resolve[CompositionTransaction](app.container, ServiceCompositionTransaction)
		if err != nil {
			return fmt.Errorf("failed to compose root: %w", err)
		}
		transaction.ClearInitialComposition()
	}

	if name, ok := root.(string); root == nil || ok && name == "" {
		root = DefaultRoot
	}

	app.mu.Lock()
	instruction := &CompositionInstruction{
		ViewModel:      root,
		Container:      app.container,
		ChildContainer: app.container,
		ViewSlot:       app.hostSlot,
		Host:           app.hostElement,
	}
	app.mu.Unlock()

	view, err := engine.Compose(ctx, instruction)
	if err != nil {
		return err
	}

	app.mu.Lock()
	app.root = view
	app.mu.Unlock()

	instruction.ViewSlot.Attached()
	app.onComposed(ctx)
	return nil
}

// configureHost binds the application to its host element once. Later calls
// are no-ops whatever hostRef they pass.
func (app *Application) configureHost(ctx context.Context, hostRef any) error {
	app.mu.Lock()
	if app.hostConfigured {
		app.mu.Unlock()
		return nil
	}

	if hostRef == nil {
		hostRef = app.hostRef
	}

	var element Element
	switch ref := hostRef.(type) {
	case nil:
		element = app.host.ResolveElement(DefaultHostID)
	case string:
		if ref == "" {
			ref = DefaultHostID
		}
		element = app.host.ResolveElement(ref)
	case Element:
		element = ref
	default:
		app.mu.Unlock()
		return fmt.Errorf("%w: got %T", ErrInvalidHostRef, hostRef)
	}
	if element == nil {
		app.mu.Unlock()
		return ErrHostNotFound
	}

	app.hostConfigured = true
	app.hostElement = element
	element.SetProperty(HostProperty, app)
	app.hostSlot = NewViewSlot(element, true)
	app.hostSlot.TransformChildNodesIntoView()
	app.mu.Unlock()

	app.container.RegisterInstance(ServiceBoundary, element)
	app.emitEvent(ctx, EventTypeHostConfigured, map[string]any{"id": element.ID()}, nil)
	return nil
}

// preventActionlessFormSubmit stops forms without an action from submitting.
func (app *Application) preventActionlessFormSubmit() {
	app.host.AddEventListener(EventSubmit, func(evt Event) {
		target := evt.Target()
		if target == nil || !strings.EqualFold(target.TagName(), "form") {
			return
		}
		if action, ok := target.Attribute("action"); !ok || action == "" {
			evt.PreventDefault()
		}
	})
}

// onComposed schedules the composed notification on a later turn.
func (app *Application) onComposed(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	app.scheduler(func() {
		app.host.DispatchEvent(nil, EventComposed, EventInit{Bubbles: true, Cancelable: true})
		app.emitEvent(ctx, EventTypeApplicationComposed, nil, nil)
	})
}

// Root returns the currently composed root view, or nil.
func (app *Application) Root() ComposedView {
	app.mu.Lock()
	defer app.mu.Unlock()
	return app.root
}

// HostElement returns the bound host element, or nil before binding.
func (app *Application) HostElement() Element {
	app.mu.Lock()
	defer app.mu.Unlock()
	return app.hostElement
}

// HostSlot returns the view slot over the host element, or nil before binding.
func (app *Application) HostSlot() *ViewSlot {
	app.mu.Lock()
	defer app.mu.Unlock()
	return app.hostSlot
}

// IsStarted reports whether Start has been called.
func (app *Application) IsStarted() bool {
	app.mu.Lock()
	defer app.mu.Unlock()
	return app.started
}

// IsHostConfigured reports whether the host element has been bound.
func (app *Application) IsHostConfigured() bool {
	app.mu.Lock()
	defer app.mu.Unlock()
	return app.hostConfigured
}
