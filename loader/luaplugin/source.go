package luaplugin

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/GoCodeAlone/kickstart"
)

// Extension is the file extension of Lua plugin scripts.
const Extension = ".lua"

// Source serves Lua plugins from a file system. It implements loader.Source.
type Source struct {
	fsys   fs.FS
	logger kickstart.Logger
}

// SourceOption configures a Source.
type SourceOption func(*Source)

// WithLogger routes script print output and load diagnostics to logger.
func WithLogger(logger kickstart.Logger) SourceOption {
	return func(s *Source) {
		s.logger = logger
	}
}

// NewSource creates a source over fsys.
func NewSource(fsys fs.FS, opts ...SourceOption) *Source {
	s := &Source{fsys: fsys}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewDirSource creates a source over the directory dir.
func NewDirSource(dir string, opts ...SourceOption) *Source {
	return NewSource(os.DirFS(dir), opts...)
}

// Load reads the script for moduleID. Ids with no script are not owned by
// the source.
func (s *Source) Load(_ context.Context, moduleID string) (any, bool, error) {
	name, err := scriptName(moduleID)
	if err != nil {
		return nil, false, err
	}

	code, err := fs.ReadFile(s.fsys, name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read lua plugin %s: %w", name, err)
	}

	if s.logger != nil {
		s.logger.Debug("Read lua plugin", "moduleId", moduleID, "file", name)
	}
	return NewPlugin(moduleID, string(code), s.logger), true, nil
}

// scriptName maps a module id to a slash-separated file name inside the
// source file system.
func scriptName(moduleID string) (string, error) {
	name := path.Clean(strings.TrimPrefix(moduleID, "./"))
	if name == "." || name == ".." || strings.HasPrefix(name, "../") || path.IsAbs(name) {
		return "", fmt.Errorf("%w: %s", ErrInvalidModuleID, moduleID)
	}
	if !strings.HasSuffix(name, Extension) {
		name += Extension
	}
	return name, nil
}
