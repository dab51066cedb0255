package kickstart

import (
	"context"

	"github.com/GoCodeAlone/kickstart/container"
	"github.com/GoCodeAlone/kickstart/logging"
)

// Container keys under which the framework and its collaborators are registered.
const (
	ServiceApplication            = "kickstart.Application"
	ServiceLoader                 = "kickstart.Loader"
	ServiceViewResources          = "kickstart.ViewResources"
	ServiceViewEngine             = "kickstart.ViewEngine"
	ServiceTemplatingEngine       = "kickstart.TemplatingEngine"
	ServiceCompositionTransaction = "kickstart.CompositionTransaction"
	ServiceBindingLanguage        = "kickstart.BindingLanguage"
	ServiceBoundary               = "kickstart.Boundary"
)

// Well-known module ids.
const (
	BootstrapperModule     = "kickstart-bootstrapper"
	BindingLanguageModule  = "kickstart-templating-binding"
	DefaultResourcesModule = "kickstart-templating-resources"
	HistoryModule          = "kickstart-history"
	RouterModule           = "kickstart-templating-router"
	EventAggregatorModule  = "kickstart-event-aggregator"
	ConsoleLoggingModule   = "kickstart-logging-console"
)

// Loader resolves and loads modules. Implementations must be deterministic for
// a given id and free of side effects beyond caching.
type Loader interface {
	Normalize(ctx context.Context, name, anchor string) (string, error)
	LoadModule(ctx context.Context, moduleID string) (any, error)
	Map(name, moduleID string)
}

// Container is the dependency injection container the framework registers
// into and resolves from. *container.Container implements it.
type Container interface {
	RegisterInstance(key string, value any)
	RegisterSingleton(key string, factory container.Factory)
	RegisterTransient(key string, factory container.Factory)
	Get(key string) (any, error)
	HasResolver(key string) bool
}

// ViewEngine imports view resources into a registry. names[i] is the export
// name override for moduleIDs[i]; an empty name keeps the default.
type ViewEngine interface {
	ImportViewResources(ctx context.Context, moduleIDs, names []string, into *ViewResources) error
}

// CompositionEngine turns view-model references into attached views.
type CompositionEngine interface {
	Compose(ctx context.Context, instruction *CompositionInstruction) (ComposedView, error)
	Enhance(ctx context.Context, instruction *EnhanceInstruction) (ComposedView, error)
}

// CompositionTransaction is the shared transaction composition engines use to
// coordinate the initial top-level composition.
type CompositionTransaction interface {
	ClearInitialComposition()
}

// CompositionInstruction describes a root composition.
type CompositionInstruction struct {
	ViewModel      any
	Container      Container
	ChildContainer Container
	ViewSlot       *ViewSlot
	Host           Element
}

// EnhanceInstruction describes an in-place enhancement of existing markup.
type EnhanceInstruction struct {
	Container      Container
	Element        Element
	Resources      *ViewResources
	BindingContext any
}

// ComposedView is the result of a composition.
type ComposedView interface {
	Attached()
}

// ViewModelHolder is implemented by composed views that expose their view model.
type ViewModelHolder interface {
	ViewModel() any
}

// RouterProvider is implemented by view models that own a router.
type RouterProvider interface {
	Router() Router
}

// Router is the part of a router the application drives when the root is swapped.
type Router interface {
	Deactivate()
	Reset()
}

// Configurer is the activation hook a plugin module may expose. Global
// resources must be declared through the hook's PluginContext; declared on the
// application's FrameworkConfiguration they resolve against the root instead.
type Configurer interface {
	Configure(ctx context.Context, config *PluginContext, settings Settings) error
}

// ConfigureFunc adapts a function to Configurer.
type ConfigureFunc func(ctx context.Context, config *PluginContext, settings Settings) error

// Configure implements Configurer.
func (f ConfigureFunc) Configure(ctx context.Context, config *PluginContext, settings Settings) error {
	return f(ctx, config, settings)
}

// AppenderSource is implemented by log appender modules such as
// logging.ConsoleModule.
type AppenderSource interface {
	NewAppender() (logging.Logger, error)
}

// routerOf returns the router owned by the view model of view, if any.
func routerOf(view ComposedView) (Router, bool) {
	holder, ok := view.(ViewModelHolder)
	if !ok {
		return nil, false
	}
	provider, ok := holder.ViewModel().(RouterProvider)
	if !ok {
		return nil, false
	}
	router := provider.Router()
	return router, router != nil
}
