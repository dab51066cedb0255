package kickstart

import (
	"errors"
)

// Framework errors
var (
	// Configuration misuse errors
	ErrAlreadyApplied      = errors.New("this configuration has already been applied; create a new application to load more plugins or global resources")
	ErrInvalidResourcePath = errors.New("invalid resource path; resources must be specified as relative module IDs")
	ErrTaskNil             = errors.New("task is nil")
	ErrPluginNameEmpty     = errors.New("plugin name is empty")

	// Plugin errors
	ErrModuleNotAppenderSource = errors.New("module does not provide a log appender")

	// Construction errors
	ErrCollaboratorNil = errors.New("collaborator is nil")

	// Resolution errors
	ErrHostNil                = errors.New("host abstraction is nil")
	ErrHostNotFound           = errors.New("no application host was specified")
	ErrInvalidHostRef         = errors.New("application host must be an element id or an element")
	ErrBindingLanguageMissing = errors.New("you must configure the application with a binding language implementation")
)
