package plan

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoCodeAlone/kickstart"
	"github.com/GoCodeAlone/kickstart/manifest"
)

func TestBuildStandardManifest(t *testing.T) {
	m := &manifest.Manifest{
		Standard:        true,
		Root:            "shell",
		Plugins:         []manifest.PluginEntry{{Name: "charts"}},
		Features:        []manifest.FeatureEntry{{Folder: "widgets"}},
		GlobalResources: []string{"./converters"},
		GlobalNames:     map[string]string{"./converters": "conv"},
	}

	p, err := Build(context.Background(), m, Options{})
	require.NoError(t, err)

	var order []string
	for _, activation := range p.Activations {
		order = append(order, activation.ModuleID)
	}
	assert.Equal(t, []string{
		kickstart.BindingLanguageModule,
		kickstart.DefaultResourcesModule,
		kickstart.HistoryModule,
		kickstart.RouterModule,
		kickstart.EventAggregatorModule,
		"charts",
		"widgets/index",
	}, order)
	assert.True(t, p.Activations[0].Configured)
	assert.False(t, p.Activations[5].Configured)

	assert.Equal(t, []Import{{ModuleID: "./converters", Name: "conv"}}, p.Imports)
	assert.Equal(t, kickstart.RouterModule, p.Aliases[kickstart.RouterModule])
	assert.Equal(t, "shell", p.Root)
	assert.Equal(t, kickstart.DefaultHostID, p.Host)

	require.NotEmpty(t, p.Events)
	assert.Equal(t, kickstart.EventTypeApplicationComposed, p.Events[len(p.Events)-1])
}

func TestBuildWithoutBindingLanguage(t *testing.T) {
	m := &manifest.Manifest{Plugins: []manifest.PluginEntry{{Name: "charts"}}}

	p, err := Build(context.Background(), m, Options{})
	assert.ErrorIs(t, err, kickstart.ErrBindingLanguageMissing)
	require.NotNil(t, p)
	require.Len(t, p.Activations, 1)
	assert.Empty(t, p.Root)
}

func TestBuildWithLuaPlugins(t *testing.T) {
	dir := t.TempDir()
	script := []byte(`
function configure(config, settings)
  config:globalResources("./chart")
end
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "charts.lua"), script, 0o600))

	m := &manifest.Manifest{
		Host:      "mount",
		Standard:  true,
		PluginDir: dir,
		Plugins:   []manifest.PluginEntry{{Name: "charts"}},
	}

	p, err := Build(context.Background(), m, Options{})
	require.NoError(t, err)

	assert.Equal(t, []Import{{ModuleID: "charts/chart"}}, p.Imports)
	assert.True(t, p.Activations[len(p.Activations)-1].Configured)
	assert.Equal(t, "mount", p.Host)
}

func TestWrite(t *testing.T) {
	p := &Plan{
		Activations: []Activation{{ModuleID: "charts", ResourcesRelativeTo: "charts", Configured: true}},
		Imports:     []Import{{ModuleID: "charts/chart"}},
		Aliases:     map[string]string{"router": "vendor/router"},
		Root:        "app",
		Host:        "applicationHost",
	}

	var buf bytes.Buffer
	require.NoError(t, p.Write(&buf))

	out := buf.String()
	assert.Contains(t, out, "charts/chart")
	assert.Contains(t, out, "vendor/router")
	assert.Contains(t, out, "ROOT")
	assert.Contains(t, out, "applicationHost")
}
