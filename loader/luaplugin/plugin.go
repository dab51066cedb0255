package luaplugin

import (
	"context"
	"fmt"
	"strings"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/GoCodeAlone/kickstart"
)

// configureGlobal is the activation hook a script defines.
const configureGlobal = "configure"

// unsafeGlobals are removed from the base library before a script runs.
var unsafeGlobals = []string{"dofile", "loadfile", "load", "loadstring", "module", "require"}

// Plugin is a loaded Lua script. It implements kickstart.Configurer.
//
// The Lua state is created on first activation and kept until Close, since
// functions queued with postTask run after activation returns. gopher-lua
// states are not goroutine-safe; every call into the state holds mu.
type Plugin struct {
	id     string
	code   string
	logger kickstart.Logger

	mu     sync.Mutex
	state  *lua.LState
	closed bool
}

// NewPlugin creates a plugin for the script code served under id.
func NewPlugin(id, code string, logger kickstart.Logger) *Plugin {
	return &Plugin{id: id, code: code, logger: logger}
}

// ID returns the module id the plugin was loaded under.
func (p *Plugin) ID() string {
	return p.id
}

// Configure runs the script's configure function with a config table bound to
// config and settings converted to a Lua table. Scripts without a configure
// function only run their top-level chunk.
func (p *Plugin) Configure(ctx context.Context, config *kickstart.PluginContext, settings kickstart.Settings) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	L, err := p.luaState()
	if err != nil {
		return err
	}

	fn := L.GetGlobal(configureGlobal)
	if fn == lua.LNil {
		return nil
	}
	if fn.Type() != lua.LTFunction {
		return fmt.Errorf("lua plugin %s: %w (got %s)", p.id, ErrConfigureNotFunction, fn.Type())
	}

	descriptor := config.Descriptor()
	b := &binding{plugin: p}
	table := b.configTable(L, config, descriptor.ResourcesRelativeTo)
	return b.call(ctx, L, fn, table, toLua(L, map[string]any(settings)))
}

// Close releases the Lua state. Queued post tasks fail afterwards.
func (p *Plugin) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != nil {
		p.state.Close()
		p.state = nil
	}
	p.closed = true
}

// luaState returns the plugin's state, creating it and running the script's
// top-level chunk on first use. The caller holds mu.
func (p *Plugin) luaState() (*lua.LState, error) {
	if p.closed {
		return nil, ErrPluginClosed
	}
	if p.state != nil {
		return p.state, nil
	}

	L := newSandbox(p.id, p.logger)
	if err := L.DoString(p.code); err != nil {
		L.Close()
		return nil, fmt.Errorf("failed to run lua plugin %s: %w", p.id, err)
	}
	p.state = L
	return L, nil
}

// runPostTask calls fn with a config table bound to config.
func (p *Plugin) runPostTask(ctx context.Context, config *kickstart.FrameworkConfiguration, fn *lua.LFunction) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed || p.state == nil {
		return ErrPluginClosed
	}

	b := &binding{plugin: p}
	table := b.configTable(p.state, config, "")
	return b.call(ctx, p.state, fn, table)
}

// newSandbox creates a state with only the safe standard libraries.
func newSandbox(id string, logger kickstart.Logger) *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})

	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	for _, name := range unsafeGlobals {
		L.SetGlobal(name, lua.LNil)
	}

	L.SetGlobal("print", L.NewFunction(func(L *lua.LState) int {
		parts := make([]string, 0, L.GetTop())
		for i := 1; i <= L.GetTop(); i++ {
			parts = append(parts, L.ToStringMeta(L.Get(i)).String())
		}
		if logger != nil {
			logger.Info(strings.Join(parts, "\t"), "moduleId", id)
		}
		return 0
	}))

	return L
}
