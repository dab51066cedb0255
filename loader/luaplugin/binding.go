package luaplugin

import (
	"context"
	"fmt"

	lua "github.com/yuin/gopher-lua"

	"github.com/GoCodeAlone/kickstart"
)

// configuration is the configuration surface a config table binds to. Both
// *kickstart.PluginContext and *kickstart.FrameworkConfiguration provide it.
type configuration interface {
	GlobalResources(resources ...string) error
	GlobalName(resourcePath, newName string) error
	Instance(key string, value any) error
	Plugin(name string, settings kickstart.Settings) error
	Feature(folder string, settings kickstart.Settings) error
	PostTask(task kickstart.Task) error
}

// binding carries one call into Lua. A Go error raised by a config function is
// kept so the caller gets it back unchanged instead of as Lua error text.
type binding struct {
	plugin *Plugin
	err    error
}

// call invokes fn with args and returns the first Go error raised inside it,
// or the Lua error.
func (b *binding) call(ctx context.Context, L *lua.LState, fn lua.LValue, args ...lua.LValue) error {
	L.SetContext(ctx)
	defer L.RemoveContext()

	err := L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, args...)
	if b.err != nil {
		return b.err
	}
	if err != nil {
		return fmt.Errorf("lua plugin %s: %w", b.plugin.id, err)
	}
	return nil
}

// guard wraps fn so that a returned error aborts the script.
func (b *binding) guard(fn func(L *lua.LState, args []lua.LValue) error) lua.LGFunction {
	return func(L *lua.LState) int {
		if err := fn(L, methodArgs(L)); err != nil {
			b.err = err
			L.RaiseError("%s", err.Error())
		}
		return 0
	}
}

// configTable builds the config table handed to Lua functions.
func (b *binding) configTable(L *lua.LState, config configuration, resourcesRelativeTo string) *lua.LTable {
	table := L.NewTable()
	table.RawSetString("resourcesRelativeTo", lua.LString(resourcesRelativeTo))
	table.RawSetString("moduleId", lua.LString(b.plugin.id))

	L.SetFuncs(table, map[string]lua.LGFunction{
		"globalResources": b.guard(func(L *lua.LState, args []lua.LValue) error {
			resources := make([]string, 0, len(args))
			for _, arg := range args {
				values, err := stringsOf(arg)
				if err != nil {
					return err
				}
				resources = append(resources, values...)
			}
			return config.GlobalResources(resources...)
		}),
		"globalName": b.guard(func(L *lua.LState, args []lua.LValue) error {
			return config.GlobalName(argString(args, 0), argString(args, 1))
		}),
		"instance": b.guard(func(L *lua.LState, args []lua.LValue) error {
			var value any
			if len(args) > 1 {
				value = toGo(args[1])
			}
			return config.Instance(argString(args, 0), value)
		}),
		"plugin": b.guard(func(L *lua.LState, args []lua.LValue) error {
			return config.Plugin(argString(args, 0), argSettings(args, 1))
		}),
		"feature": b.guard(func(L *lua.LState, args []lua.LValue) error {
			return config.Feature(argString(args, 0), argSettings(args, 1))
		}),
		"postTask": b.guard(func(L *lua.LState, args []lua.LValue) error {
			if len(args) == 0 {
				return config.PostTask(nil)
			}
			fn, ok := args[0].(*lua.LFunction)
			if !ok {
				return fmt.Errorf("postTask expects a function, got %s", describe(args[0]))
			}
			plugin := b.plugin
			return config.PostTask(func(ctx context.Context, fc *kickstart.FrameworkConfiguration) error {
				return plugin.runPostTask(ctx, fc, fn)
			})
		}),
	})

	return table
}

// methodArgs returns the call arguments, dropping the receiver of a call made
// with the colon syntax.
func methodArgs(L *lua.LState) []lua.LValue {
	args := make([]lua.LValue, 0, L.GetTop())
	for i := 1; i <= L.GetTop(); i++ {
		args = append(args, L.Get(i))
	}
	if len(args) > 0 {
		if table, ok := args[0].(*lua.LTable); ok && table.RawGetString("moduleId") != lua.LNil {
			args = args[1:]
		}
	}
	return args
}

func argString(args []lua.LValue, i int) string {
	if i >= len(args) || args[i] == lua.LNil {
		return ""
	}
	return lua.LVAsString(args[i])
}

func argSettings(args []lua.LValue, i int) kickstart.Settings {
	if i >= len(args) {
		return nil
	}
	if m, ok := toGo(args[i]).(map[string]any); ok {
		return kickstart.Settings(m)
	}
	return nil
}

// stringsOf flattens a string or an array of strings. Any other value is an
// invalid resource path; numbers are not coerced.
func stringsOf(lv lua.LValue) ([]string, error) {
	table, ok := lv.(*lua.LTable)
	if !ok {
		value, err := resourceString(lv)
		if err != nil {
			return nil, err
		}
		return []string{value}, nil
	}
	out := make([]string, 0, table.Len())
	for i := 1; i <= table.Len(); i++ {
		value, err := resourceString(table.RawGetInt(i))
		if err != nil {
			return nil, err
		}
		out = append(out, value)
	}
	return out, nil
}

func resourceString(lv lua.LValue) (string, error) {
	str, ok := lv.(lua.LString)
	if !ok {
		return "", fmt.Errorf("%w: [%s]", kickstart.ErrInvalidResourcePath, describe(lv))
	}
	return string(str), nil
}
