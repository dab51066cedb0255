package kickstart

import (
	"context"
	"fmt"
	"maps"
	"path"
	"sort"

	"github.com/GoCodeAlone/kickstart/container"
	"github.com/GoCodeAlone/kickstart/logging"
)

// FrameworkConfiguration accumulates everything an application needs before
// it starts: container registrations, plugins, global resources and pre/post
// tasks. Apply runs the whole pipeline once.
//
// A configuration is not safe for concurrent mutation. Plugins activated
// during Apply mutate it from within the pipeline, one at a time.
type FrameworkConfiguration struct {
	app             *Application
	container       Container
	plugins         []*pluginSlot
	processed       bool
	loadingPlugins  bool
	preTasks        []Task
	postTasks       []Task
	resourcesToLoad map[string]string
	bootstrapAnchor string
}

func newFrameworkConfiguration(app *Application) *FrameworkConfiguration {
	fc := &FrameworkConfiguration{
		app:             app,
		container:       app.container,
		resourcesToLoad: make(map[string]string),
	}

	fc.preTasks = append(fc.preTasks, func(ctx context.Context, fc *FrameworkConfiguration) error {
		anchor, err := fc.app.loader.Normalize(ctx, BootstrapperModule, "")
		if err != nil {
			return err
		}
		fc.bootstrapAnchor = anchor
		return nil
	})
	fc.postTasks = append(fc.postTasks, loadResources)

	return fc
}

func (fc *FrameworkConfiguration) assertNotProcessed() error {
	if fc.processed {
		return ErrAlreadyApplied
	}
	return nil
}

// Application returns the application being configured.
func (fc *FrameworkConfiguration) Application() *Application {
	return fc.app
}

// Container returns the application's root container.
func (fc *FrameworkConfiguration) Container() Container {
	return fc.container
}

// Processed reports whether the plugin queue has been fully drained.
func (fc *FrameworkConfiguration) Processed() bool {
	return fc.processed
}

// BootstrapAnchor returns the normalized bootstrapper id third-party plugin
// names are normalized against. It is empty until Apply has run its first
// pre-task.
func (fc *FrameworkConfiguration) BootstrapAnchor() string {
	return fc.bootstrapAnchor
}

// ResourceImports returns a copy of the declared global resources. An empty
// value means the resource keeps its default export name.
func (fc *FrameworkConfiguration) ResourceImports() map[string]string {
	return maps.Clone(fc.resourcesToLoad)
}

// Instance registers an existing value in the container.
func (fc *FrameworkConfiguration) Instance(key string, value any) error {
	if err := fc.assertNotProcessed(); err != nil {
		return err
	}
	fc.container.RegisterInstance(key, value)
	return nil
}

// Singleton registers a factory built once on first resolution.
func (fc *FrameworkConfiguration) Singleton(key string, factory container.Factory) error {
	if err := fc.assertNotProcessed(); err != nil {
		return err
	}
	fc.container.RegisterSingleton(key, factory)
	return nil
}

// Transient registers a factory built on every resolution.
func (fc *FrameworkConfiguration) Transient(key string, factory container.Factory) error {
	if err := fc.assertNotProcessed(); err != nil {
		return err
	}
	fc.container.RegisterTransient(key, factory)
	return nil
}

// PreTask queues a task that runs before any plugin is loaded.
func (fc *FrameworkConfiguration) PreTask(task Task) error {
	if err := fc.assertNotProcessed(); err != nil {
		return err
	}
	if task == nil {
		return ErrTaskNil
	}
	fc.preTasks = append(fc.preTasks, task)
	return nil
}

// PostTask queues a task that runs after every plugin has been activated and
// the global resources have been imported.
func (fc *FrameworkConfiguration) PostTask(task Task) error {
	if err := fc.assertNotProcessed(); err != nil {
		return err
	}
	if task == nil {
		return ErrTaskNil
	}
	fc.postTasks = append(fc.postTasks, task)
	return nil
}

// GlobalResources declares resources to import into the global registry.
// Outside of a plugin's activation hook paths are taken as given; inside one,
// use the hook's PluginContext so they resolve against the plugin.
func (fc *FrameworkConfiguration) GlobalResources(resources ...string) error {
	return fc.globalResources("", resources)
}

func (fc *FrameworkConfiguration) globalResources(base string, resources []string) error {
	if err := fc.assertNotProcessed(); err != nil {
		return err
	}

	for _, resource := range resources {
		if resource == "" || path.IsAbs(resource) {
			return fmt.Errorf("%w: [%s]", ErrInvalidResourcePath, resource)
		}
	}

	for _, resource := range resources {
		importID := joinResourcePath(base, resource)
		if _, exists := fc.resourcesToLoad[importID]; !exists {
			fc.resourcesToLoad[importID] = ""
		}
	}
	return nil
}

// GlobalName sets the export name a declared resource is imported under.
func (fc *FrameworkConfiguration) GlobalName(resourcePath, newName string) error {
	if err := fc.assertNotProcessed(); err != nil {
		return err
	}
	if resourcePath == "" {
		return fmt.Errorf("%w: [%s]", ErrInvalidResourcePath, resourcePath)
	}
	fc.resourcesToLoad[resourcePath] = newName
	return nil
}

// Plugin queues a plugin by module id. Its resources resolve against the same id.
func (fc *FrameworkConfiguration) Plugin(name string, settings Settings) error {
	if name == "" {
		return ErrPluginNameEmpty
	}
	name = trimSourceSuffix(name)
	return fc.RegisterPlugin(PluginDescriptor{
		ModuleID:            name,
		ResourcesRelativeTo: name,
		Config:              settingsOrEmpty(settings),
	})
}

// RegisterPlugin queues a plugin descriptor. Plugins activate in the order
// they are queued.
func (fc *FrameworkConfiguration) RegisterPlugin(descriptor PluginDescriptor) error {
	if err := fc.assertNotProcessed(); err != nil {
		return err
	}
	if descriptor.ModuleID == "" {
		return ErrPluginNameEmpty
	}
	fc.plugins = append(fc.plugins, newResolvedSlot(descriptor))
	return nil
}

// Feature queues an application feature: a folder whose entry point is
// folder/index and whose resources resolve against the folder.
func (fc *FrameworkConfiguration) Feature(folder string, settings Settings) error {
	if folder == "" {
		return ErrPluginNameEmpty
	}
	folder = trimSourceSuffix(folder)
	return fc.RegisterPlugin(PluginDescriptor{
		ModuleID:            folder + "/index",
		ResourcesRelativeTo: folder,
		Config:              settingsOrEmpty(settings),
	})
}

// addNormalizedPlugin queues name at its registration position and a pre-task
// that normalizes it against the bootstrap anchor before plugins load. The
// loader learns the bare name as an alias of the normalized id. Once plugins
// are loading no pre-task can run, so the plugin loads under its bare name.
func (fc *FrameworkConfiguration) addNormalizedPlugin(name string, settings Settings) error {
	if err := fc.assertNotProcessed(); err != nil {
		return err
	}

	settings = settingsOrEmpty(settings)
	slot := newUnresolvedSlot(name, settings)
	fc.plugins = append(fc.plugins, slot)
	if fc.loadingPlugins {
		return nil
	}

	return fc.PreTask(func(ctx context.Context, fc *FrameworkConfiguration) error {
		normalized, err := fc.app.loader.Normalize(ctx, name, fc.bootstrapAnchor)
		if err != nil {
			return err
		}
		normalized = trimSourceSuffix(normalized)

		slot.resolve(PluginDescriptor{
			ModuleID:            normalized,
			ResourcesRelativeTo: normalized,
			Config:              settings,
		})
		fc.app.loader.Map(name, normalized)
		return nil
	})
}

// DefaultBindingLanguage plugs in the default binding language.
func (fc *FrameworkConfiguration) DefaultBindingLanguage() error {
	return fc.addNormalizedPlugin(BindingLanguageModule, nil)
}

// Router plugs in the templating router.
func (fc *FrameworkConfiguration) Router() error {
	return fc.addNormalizedPlugin(RouterModule, nil)
}

// History plugs in the default history implementation.
func (fc *FrameworkConfiguration) History() error {
	return fc.addNormalizedPlugin(HistoryModule, nil)
}

// DefaultResources plugs in the default templating resources.
func (fc *FrameworkConfiguration) DefaultResources() error {
	return fc.addNormalizedPlugin(DefaultResourcesModule, nil)
}

// EventAggregator plugs in the event aggregator.
func (fc *FrameworkConfiguration) EventAggregator() error {
	return fc.addNormalizedPlugin(EventAggregatorModule, nil)
}

// StandardConfiguration plugs in the binding language, default resources,
// history, router and event aggregator, in that order.
func (fc *FrameworkConfiguration) StandardConfiguration() error {
	steps := []func() error{
		fc.DefaultBindingLanguage,
		fc.DefaultResources,
		fc.History,
		fc.Router,
		fc.EventAggregator,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

// DevelopmentLogging queues a pre-task that loads the console logging module,
// adds its appender to the application's log manager and lowers the level to
// debug.
func (fc *FrameworkConfiguration) DevelopmentLogging() error {
	return fc.PreTask(func(ctx context.Context, fc *FrameworkConfiguration) error {
		name, err := fc.app.loader.Normalize(ctx, ConsoleLoggingModule, fc.bootstrapAnchor)
		if err != nil {
			return err
		}

		module, err := fc.app.loader.LoadModule(ctx, name)
		if err != nil {
			return err
		}

		source, ok := module.(AppenderSource)
		if !ok {
			return fmt.Errorf("%w: %s is %T", ErrModuleNotAppenderSource, name, module)
		}

		appender, err := source.NewAppender()
		if err != nil {
			return err
		}

		fc.app.logManager.AddAppender(appender)
		fc.app.logManager.SetLevel(logging.LevelDebug)
		return nil
	})
}

// Apply loads and configures the queued plugins, then runs the post-tasks.
// Pre-tasks drain first; plugins then load one at a time in registration
// order, each activation hook settling before the next plugin begins; the
// configuration is marked processed once the plugin queue is empty; post-tasks
// drain last, starting with the global resource import.
//
// The first failure stops the pipeline and is returned unchanged, with no
// rollback. Once processed, Apply returns nil without doing anything.
func (fc *FrameworkConfiguration) Apply(ctx context.Context) error {
	if fc.processed {
		return nil
	}

	if err := runTasks(ctx, fc, &fc.preTasks); err != nil {
		return err
	}

	fc.loadingPlugins = true
	for len(fc.plugins) > 0 {
		slot := fc.plugins[0]
		fc.plugins = fc.plugins[1:]

		if err := loadPlugin(ctx, fc, slot.descriptor()); err != nil {
			return err
		}
	}

	fc.processed = true

	if err := runTasks(ctx, fc, &fc.postTasks); err != nil {
		return err
	}

	fc.app.emitEvent(ctx, EventTypeConfigurationApplied, map[string]any{
		"resources": len(fc.resourcesToLoad),
	}, nil)
	return nil
}

// loadResources imports every declared global resource through the view
// engine. Import ids are passed sorted.
func loadResources(ctx context.Context, fc *FrameworkConfiguration) error {
	if len(fc.resourcesToLoad) == 0 {
		return nil
	}

	engine, err := container.Resolve[ViewEngine](fc.container, ServiceViewEngine)
	if err != nil {
		return fmt.Errorf("failed to import global resources: %w", err)
	}

	importIDs := make([]string, 0, len(fc.resourcesToLoad))
	for importID := range fc.resourcesToLoad {
		importIDs = append(importIDs, importID)
	}
	sort.Strings(importIDs)

	names := make([]string, len(importIDs))
	for i, importID := range importIDs {
		names[i] = fc.resourcesToLoad[importID]
	}

	return engine.ImportViewResources(ctx, importIDs, names, fc.app.resources)
}

func settingsOrEmpty(settings Settings) Settings {
	if settings == nil {
		return Settings{}
	}
	return settings
}
