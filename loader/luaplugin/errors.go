package luaplugin

import "errors"

// Errors for Lua plugin loading.
var (
	// ErrPluginClosed is returned when activating a closed plugin.
	ErrPluginClosed = errors.New("lua plugin is closed")

	// ErrConfigureNotFunction is returned when a script's configure global is
	// set to something other than a function.
	ErrConfigureNotFunction = errors.New("configure is not a function")

	// ErrInvalidModuleID is returned for ids that escape the plugin directory.
	ErrInvalidModuleID = errors.New("module id escapes the plugin directory")
)
