// Package plan performs dry runs of bootstrap manifests. A dry run builds a
// real application around stand-in modules and an in-memory document, then
// records what the pipeline did: which plugins activated in which order, which
// global resources were imported and which root was composed.
package plan

import (
	"context"
	"fmt"
	"io"
	"maps"
	"sort"
	"sync"
	"text/tabwriter"

	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/GoCodeAlone/kickstart"
	"github.com/GoCodeAlone/kickstart/dom"
	"github.com/GoCodeAlone/kickstart/loader"
	"github.com/GoCodeAlone/kickstart/loader/luaplugin"
	"github.com/GoCodeAlone/kickstart/logging"
	"github.com/GoCodeAlone/kickstart/manifest"
)

// Options configures a dry run.
type Options struct {
	// PluginDir serves Lua plugins ahead of the stand-in modules. The
	// manifest's pluginDir is used when empty.
	PluginDir string

	// Logger receives framework logs. Nil discards them.
	Logger kickstart.Logger
}

// Activation is one plugin the pipeline loaded.
type Activation struct {
	ModuleID            string
	ResourcesRelativeTo string
	Configured          bool
}

// Import is one global resource handed to the view engine.
type Import struct {
	ModuleID string
	Name     string
}

// Plan is the outcome of a dry run.
type Plan struct {
	Activations []Activation
	Imports     []Import
	Aliases     map[string]string
	Root        string
	Host        string
	Events      []string
}

// Build dry-runs m. A failing pipeline still returns the plan recorded up to
// the failure together with the error.
func Build(ctx context.Context, m *manifest.Manifest, opts Options) (*Plan, error) {
	rec := &recorder{plan: &Plan{}}

	pluginDir := opts.PluginDir
	if pluginDir == "" {
		pluginDir = m.PluginDir
	}

	var sources []loader.Option
	if pluginDir != "" {
		sources = append(sources, loader.WithSource(luaplugin.NewDirSource(pluginDir, luaplugin.WithLogger(opts.Logger))))
	}
	sources = append(sources,
		loader.WithModule(kickstart.ConsoleLoggingModule, &logging.ConsoleModule{}),
		loader.WithSource(loader.SourceFunc(standInModule)),
	)
	registry := loader.NewRegistry(sources...)

	doc := dom.NewDocument()
	hostID := m.Host
	if hostID == "" {
		hostID = kickstart.DefaultHostID
	}
	doc.BodyElement().AppendChild(doc.CreateElement("div", hostID))

	appOpts := []kickstart.Option{
		kickstart.WithHost(doc),
		kickstart.WithLoader(registry),
		kickstart.WithScheduler(rec.schedule),
		kickstart.WithObserver(kickstart.NewFunctionalObserver("plan", rec.observe)),
	}
	if opts.Logger != nil {
		appOpts = append(appOpts, kickstart.WithLogger(opts.Logger))
	}
	if m.LogLevel != "" {
		appOpts = append(appOpts, kickstart.WithLogManager(logging.NewManager(logging.ParseLevel(m.LogLevel))))
	}

	app, err := kickstart.NewApplication(appOpts...)
	if err != nil {
		return nil, err
	}

	if err := rec.install(app.Use()); err != nil {
		return nil, err
	}
	if err := m.Apply(app.Use()); err != nil {
		return rec.plan, err
	}
	if err := app.Start(ctx); err != nil {
		rec.plan.Aliases = registry.Aliases()
		return rec.plan, err
	}
	rec.plan.Aliases = registry.Aliases()

	if err := app.SetRoot(ctx, m.Root, hostID); err != nil {
		return rec.plan, err
	}
	rec.plan.Host = app.HostElement().ID()
	rec.flush()

	return rec.plan, nil
}

// standInModule serves every module id. The binding language stand-in
// registers a binding language so the application can start.
func standInModule(_ context.Context, moduleID string) (any, bool, error) {
	if moduleID == kickstart.BindingLanguageModule {
		return kickstart.ConfigureFunc(func(_ context.Context, config *kickstart.PluginContext, _ kickstart.Settings) error {
			return config.Instance(kickstart.ServiceBindingLanguage, moduleID)
		}), true, nil
	}
	return struct{}{}, true, nil
}

// recorder collects the plan from observer events and stand-in collaborators.
type recorder struct {
	mu      sync.Mutex
	plan    *Plan
	pending []func()
}

func (r *recorder) install(fc *kickstart.FrameworkConfiguration) error {
	if err := fc.Instance(kickstart.ServiceViewEngine, viewEngine{r}); err != nil {
		return err
	}
	return fc.Instance(kickstart.ServiceTemplatingEngine, compositionEngine{r})
}

func (r *recorder) observe(_ context.Context, event cloudevents.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.plan.Events = append(r.plan.Events, event.Type())

	switch event.Type() {
	case kickstart.EventTypePluginLoaded:
		var descriptor kickstart.PluginDescriptor
		if err := event.DataAs(&descriptor); err != nil {
			return fmt.Errorf("failed to decode plugin event: %w", err)
		}
		r.plan.Activations = append(r.plan.Activations, Activation{
			ModuleID:            descriptor.ModuleID,
			ResourcesRelativeTo: descriptor.ResourcesRelativeTo,
		})
	case kickstart.EventTypePluginConfigured:
		if n := len(r.plan.Activations); n > 0 {
			r.plan.Activations[n-1].Configured = true
		}
	}
	return nil
}

// schedule defers f until the dry run has finished composing.
func (r *recorder) schedule(f func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending = append(r.pending, f)
}

func (r *recorder) flush() {
	r.mu.Lock()
	pending := r.pending
	r.pending = nil
	r.mu.Unlock()

	for _, f := range pending {
		f()
	}
}

type viewEngine struct {
	rec *recorder
}

func (e viewEngine) ImportViewResources(_ context.Context, moduleIDs, names []string, _ *kickstart.ViewResources) error {
	e.rec.mu.Lock()
	defer e.rec.mu.Unlock()
	for i, moduleID := range moduleIDs {
		e.rec.plan.Imports = append(e.rec.plan.Imports, Import{ModuleID: moduleID, Name: names[i]})
	}
	return nil
}

type compositionEngine struct {
	rec *recorder
}

func (e compositionEngine) Compose(_ context.Context, instruction *kickstart.CompositionInstruction) (kickstart.ComposedView, error) {
	e.rec.mu.Lock()
	e.rec.plan.Root = fmt.Sprint(instruction.ViewModel)
	e.rec.mu.Unlock()
	return composedView{}, nil
}

func (e compositionEngine) Enhance(_ context.Context, _ *kickstart.EnhanceInstruction) (kickstart.ComposedView, error) {
	return composedView{}, nil
}

type composedView struct{}

func (composedView) Attached() {}

// Write renders p as aligned text.
func (p *Plan) Write(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintln(tw, "ACTIVATION\tMODULE\tRESOURCES RELATIVE TO\tCONFIGURED")
	for i, activation := range p.Activations {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%t\n", i+1, activation.ModuleID, activation.ResourcesRelativeTo, activation.Configured)
	}
	fmt.Fprintln(tw)

	fmt.Fprintln(tw, "IMPORT\tNAME")
	for _, imp := range p.Imports {
		name := imp.Name
		if name == "" {
			name = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\n", imp.ModuleID, name)
	}
	fmt.Fprintln(tw)

	if len(p.Aliases) > 0 {
		fmt.Fprintln(tw, "ALIAS\tMODULE")
		aliases := make([]string, 0, len(p.Aliases))
		for alias := range maps.Keys(p.Aliases) {
			aliases = append(aliases, alias)
		}
		sort.Strings(aliases)
		for _, alias := range aliases {
			fmt.Fprintf(tw, "%s\t%s\n", alias, p.Aliases[alias])
		}
		fmt.Fprintln(tw)
	}

	if p.Root != "" {
		fmt.Fprintf(tw, "ROOT\t%s\n", p.Root)
		fmt.Fprintf(tw, "HOST\t%s\n", p.Host)
	}

	return tw.Flush()
}
