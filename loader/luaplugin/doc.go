// Package luaplugin loads kickstart plugins written in Lua.
//
// A Source serves module ids from a directory of .lua files: the module id
// "charts" maps to charts.lua and the feature entry point "widgets/index" maps
// to widgets/index.lua. A script becomes a plugin by defining a global
// configure function:
//
//	function configure(config, settings)
//	  config:globalResources("./chart-element")
//	  config:instance("charts.palette", settings.palette or "dark")
//	end
//
// Scripts run in a sandbox with only the base, table, string and math
// libraries. The config table exposes globalResources, globalName, instance,
// plugin, feature and postTask, plus the resourcesRelativeTo and moduleId
// fields of the plugin being activated.
package luaplugin
