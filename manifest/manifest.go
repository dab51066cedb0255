// Package manifest reads bootstrap manifests: declarative descriptions of the
// plugins, features and global resources an application is configured with.
//
// Manifests are YAML, TOML or JSON, chosen by file extension. Scalar fields can
// be overridden by KICKSTART_* environment variables.
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/GoCodeAlone/kickstart"
)

// Static errors for manifest package
var (
	ErrUnsupportedFormat = errors.New("unsupported manifest format")
	ErrPluginNameEmpty   = errors.New("plugin entry has no name")
	ErrFeatureEmpty      = errors.New("feature entry has no folder")
	ErrInvalidResource   = errors.New("global resource must be a relative module id")
)

// Format is a manifest encoding.
type Format string

// Supported formats.
const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
	FormatJSON Format = "json"
)

// Manifest describes how an application is configured.
type Manifest struct {
	Host               string            `yaml:"host" toml:"host" json:"host" env:"HOST"`
	Root               string            `yaml:"root" toml:"root" json:"root" env:"ROOT"`
	Standard           bool              `yaml:"standard" toml:"standard" json:"standard" env:"STANDARD"`
	DevelopmentLogging bool              `yaml:"developmentLogging" toml:"developmentLogging" json:"developmentLogging" env:"DEVELOPMENT_LOGGING"`
	LogLevel           string            `yaml:"logLevel" toml:"logLevel" json:"logLevel" env:"LOG_LEVEL"`
	PluginDir          string            `yaml:"pluginDir" toml:"pluginDir" json:"pluginDir" env:"PLUGIN_DIR"`
	Plugins            []PluginEntry     `yaml:"plugins" toml:"plugins" json:"plugins"`
	Features           []FeatureEntry    `yaml:"features" toml:"features" json:"features"`
	GlobalResources    []string          `yaml:"globalResources" toml:"globalResources" json:"globalResources"`
	GlobalNames        map[string]string `yaml:"globalNames" toml:"globalNames" json:"globalNames"`
}

// PluginEntry is a third-party plugin. Without ResourcesRelativeTo the
// plugin's resources resolve against its name.
type PluginEntry struct {
	Name                string         `yaml:"name" toml:"name" json:"name"`
	ResourcesRelativeTo string         `yaml:"resourcesRelativeTo" toml:"resourcesRelativeTo" json:"resourcesRelativeTo"`
	Settings            map[string]any `yaml:"settings" toml:"settings" json:"settings"`
}

// FeatureEntry is an application feature folder.
type FeatureEntry struct {
	Folder   string         `yaml:"folder" toml:"folder" json:"folder"`
	Settings map[string]any `yaml:"settings" toml:"settings" json:"settings"`
}

// FormatOf returns the format implied by the extension of name.
func FormatOf(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
	}
}

// Load reads the manifest at name, applies the KICKSTART_* environment
// overlay and validates the result.
func Load(name string) (*Manifest, error) {
	format, err := FormatOf(name)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}
	defer f.Close()

	m, err := Decode(f, format)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", name, err)
	}

	if err := Overlay(m, EnvPrefix, os.LookupEnv); err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Decode reads a manifest in the given format.
func Decode(r io.Reader, format Format) (*Manifest, error) {
	m := &Manifest{}

	switch format {
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(m); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to decode yaml: %w", err)
		}
	case FormatTOML:
		if _, err := toml.NewDecoder(r).Decode(m); err != nil {
			return nil, fmt.Errorf("failed to decode toml: %w", err)
		}
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(m); err != nil {
			return nil, fmt.Errorf("failed to decode json: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	return m, nil
}

// Validate checks every entry and reports all problems at once.
func (m *Manifest) Validate() error {
	var errs []error

	for i, plugin := range m.Plugins {
		if plugin.Name == "" {
			errs = append(errs, fmt.Errorf("plugins[%d]: %w", i, ErrPluginNameEmpty))
		}
	}
	for i, feature := range m.Features {
		if feature.Folder == "" {
			errs = append(errs, fmt.Errorf("features[%d]: %w", i, ErrFeatureEmpty))
		}
	}
	for _, resource := range m.GlobalResources {
		if resource == "" || path.IsAbs(resource) {
			errs = append(errs, fmt.Errorf("%w: [%s]", ErrInvalidResource, resource))
		}
	}
	if _, ok := m.GlobalNames[""]; ok {
		errs = append(errs, fmt.Errorf("globalNames: %w: []", ErrInvalidResource))
	}

	return errors.Join(errs...)
}

// Apply registers the manifest with fc: the standard configuration and
// development logging first, then plugins, features, global resources and
// global names.
func (m *Manifest) Apply(fc *kickstart.FrameworkConfiguration) error {
	if m.Standard {
		if err := fc.StandardConfiguration(); err != nil {
			return err
		}
	}
	if m.DevelopmentLogging {
		if err := fc.DevelopmentLogging(); err != nil {
			return err
		}
	}

	for _, plugin := range m.Plugins {
		var err error
		if plugin.ResourcesRelativeTo != "" {
			err = fc.RegisterPlugin(kickstart.PluginDescriptor{
				ModuleID:            plugin.Name,
				ResourcesRelativeTo: plugin.ResourcesRelativeTo,
				Config:              kickstart.Settings(plugin.Settings),
			})
		} else {
			err = fc.Plugin(plugin.Name, plugin.Settings)
		}
		if err != nil {
			return fmt.Errorf("failed to register plugin %s: %w", plugin.Name, err)
		}
	}

	for _, feature := range m.Features {
		if err := fc.Feature(feature.Folder, feature.Settings); err != nil {
			return fmt.Errorf("failed to register feature %s: %w", feature.Folder, err)
		}
	}

	if len(m.GlobalResources) > 0 {
		if err := fc.GlobalResources(m.GlobalResources...); err != nil {
			return err
		}
	}

	names := make([]string, 0, len(m.GlobalNames))
	for resource := range m.GlobalNames {
		names = append(names, resource)
	}
	sort.Strings(names)
	for _, resource := range names {
		if err := fc.GlobalName(resource, m.GlobalNames[resource]); err != nil {
			return err
		}
	}

	return nil
}
