package kickstart

import (
	"context"
	"fmt"
	"path"
	"strings"
)

// sourceSuffixes are trimmed from plugin names so "p1.js" and "p1" name the
// same module.
var sourceSuffixes = []string{".js", ".ts", ".lua"}

// Settings is the per-plugin configuration payload handed to its activation hook.
type Settings map[string]any

// PluginDescriptor names a loadable plugin module, the base path its global
// resources resolve against, and its activation payload.
type PluginDescriptor struct {
	ModuleID            string   `json:"moduleId" yaml:"moduleId" toml:"moduleId"`
	ResourcesRelativeTo string   `json:"resourcesRelativeTo" yaml:"resourcesRelativeTo" toml:"resourcesRelativeTo"`
	Config              Settings `json:"config,omitempty" yaml:"config,omitempty" toml:"config,omitempty"`
}

// pluginState is either unresolvedPlugin or resolvedPlugin.
type pluginState interface {
	pluginState()
}

// unresolvedPlugin is a bare name not yet normalized.
type unresolvedPlugin struct {
	name     string
	settings Settings
}

// resolvedPlugin is ready to load.
type resolvedPlugin struct {
	descriptor PluginDescriptor
}

func (unresolvedPlugin) pluginState() {}
func (resolvedPlugin) pluginState()   {}

// pluginSlot is one entry of the plugin queue. Its position fixes activation
// order; its state may be resolved after queuing.
type pluginSlot struct {
	state pluginState
}

func newResolvedSlot(descriptor PluginDescriptor) *pluginSlot {
	return &pluginSlot{state: resolvedPlugin{descriptor: descriptor}}
}

func newUnresolvedSlot(name string, settings Settings) *pluginSlot {
	return &pluginSlot{state: unresolvedPlugin{name: name, settings: settings}}
}

func (s *pluginSlot) resolve(descriptor PluginDescriptor) {
	s.state = resolvedPlugin{descriptor: descriptor}
}

// descriptor returns the slot's descriptor. An unresolved slot loads under its
// bare name.
func (s *pluginSlot) descriptor() PluginDescriptor {
	switch state := s.state.(type) {
	case resolvedPlugin:
		return state.descriptor
	case unresolvedPlugin:
		return PluginDescriptor{
			ModuleID:            state.name,
			ResourcesRelativeTo: state.name,
			Config:              state.settings,
		}
	default:
		panic(fmt.Sprintf("kickstart: unknown plugin state %T", s.state))
	}
}

// PluginContext is the configuration view handed to a plugin's activation
// hook. It exposes every FrameworkConfiguration operation; global resources
// declared through it resolve against the plugin's own base path.
type PluginContext struct {
	*FrameworkConfiguration
	descriptor PluginDescriptor
}

// GlobalResources declares resources relative to the plugin's base path.
func (pc *PluginContext) GlobalResources(resources ...string) error {
	return pc.FrameworkConfiguration.globalResources(pc.descriptor.ResourcesRelativeTo, resources)
}

// ResourcesRelativeTo returns the base path of the plugin being activated.
func (pc *PluginContext) ResourcesRelativeTo() string {
	return pc.descriptor.ResourcesRelativeTo
}

// Descriptor returns the descriptor of the plugin being activated.
func (pc *PluginContext) Descriptor() PluginDescriptor {
	return pc.descriptor
}

// loadPlugin loads one plugin and runs its activation hook if it has one.
func loadPlugin(ctx context.Context, config *FrameworkConfiguration, descriptor PluginDescriptor) error {
	log := config.app.logger
	log.Debug("Loading plugin", "moduleId", descriptor.ModuleID)

	module, err := config.app.loader.LoadModule(ctx, descriptor.ModuleID)
	if err != nil {
		return err
	}
	config.app.emitEvent(ctx, EventTypePluginLoaded, descriptor, nil)

	configurer, ok := module.(Configurer)
	if !ok {
		log.Debug("Loaded plugin", "moduleId", descriptor.ModuleID)
		return nil
	}

	settings := descriptor.Config
	if settings == nil {
		settings = Settings{}
	}

	pc := &PluginContext{FrameworkConfiguration: config, descriptor: descriptor}
	if err := configurer.Configure(ctx, pc, settings); err != nil {
		return err
	}

	log.Debug("Configured plugin", "moduleId", descriptor.ModuleID)
	config.app.emitEvent(ctx, EventTypePluginConfigured, descriptor, nil)
	return nil
}

func trimSourceSuffix(name string) string {
	for _, suffix := range sourceSuffixes {
		if trimmed, ok := strings.CutSuffix(name, suffix); ok {
			return trimmed
		}
	}
	return name
}

// joinResourcePath joins resource onto base. An empty base leaves resource
// untouched.
func joinResourcePath(base, resource string) string {
	if base == "" {
		return resource
	}
	return path.Join(base, resource)
}
