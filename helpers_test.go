package kickstart_test

import (
	"context"
	"sync"
	"testing"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/stretchr/testify/require"

	"github.com/GoCodeAlone/kickstart"
	"github.com/GoCodeAlone/kickstart/dom"
	"github.com/GoCodeAlone/kickstart/loader"
)

// fixture is an application wired to recording collaborators.
type fixture struct {
	app      *kickstart.Application
	doc      *dom.Document
	host     *dom.Element
	modules  *loader.Registry
	engine   *recordingEngine
	composer *recordingComposer
	events   *eventLog
	pending  *pendingQueue
}

func newFixture(t *testing.T, opts ...kickstart.Option) *fixture {
	t.Helper()

	doc := dom.NewDocument()
	host := doc.CreateElement("div", kickstart.DefaultHostID)
	doc.BodyElement().AppendChild(host)

	f := &fixture{
		doc:      doc,
		host:     host,
		modules:  loader.NewRegistry(),
		engine:   &recordingEngine{},
		composer: &recordingComposer{},
		events:   &eventLog{},
		pending:  &pendingQueue{},
	}

	base := []kickstart.Option{
		kickstart.WithHost(doc),
		kickstart.WithLoader(f.modules),
		kickstart.WithScheduler(f.pending.schedule),
		kickstart.WithObserver(kickstart.NewFunctionalObserver("events", f.events.observe)),
	}
	app, err := kickstart.NewApplication(append(base, opts...)...)
	require.NoError(t, err)
	f.app = app

	require.NoError(t, app.Use().Instance(kickstart.ServiceViewEngine, f.engine))
	require.NoError(t, app.Use().Instance(kickstart.ServiceTemplatingEngine, f.composer))
	return f
}

// withBindingLanguage registers a binding language so Start can succeed.
func (f *fixture) withBindingLanguage(t *testing.T) {
	t.Helper()
	require.NoError(t, f.app.Use().Instance(kickstart.ServiceBindingLanguage, "binding"))
}

// activation records the order plugin activation hooks run in.
type activation struct {
	mu    sync.Mutex
	order []string
}

func (a *activation) record(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.order = append(a.order, id)
}

func (a *activation) plugin(id string, hook func(ctx context.Context, config *kickstart.PluginContext, settings kickstart.Settings) error) kickstart.Configurer {
	return kickstart.ConfigureFunc(func(ctx context.Context, config *kickstart.PluginContext, settings kickstart.Settings) error {
		a.record(id)
		if hook == nil {
			return nil
		}
		return hook(ctx, config, settings)
	})
}

type recordingEngine struct {
	mu    sync.Mutex
	calls int
	ids   []string
	names []string
	err   error
}

func (e *recordingEngine) ImportViewResources(_ context.Context, moduleIDs, names []string, _ *kickstart.ViewResources) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	e.ids = append(e.ids, moduleIDs...)
	e.names = append(e.names, names...)
	return e.err
}

type recordingComposer struct {
	mu           sync.Mutex
	compositions []*kickstart.CompositionInstruction
	enhancements []*kickstart.EnhanceInstruction
	viewModels   map[any]any
	err          error
}

func (c *recordingComposer) Compose(_ context.Context, instruction *kickstart.CompositionInstruction) (kickstart.ComposedView, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	c.compositions = append(c.compositions, instruction)
	return &fakeView{viewModel: c.viewModels[instruction.ViewModel]}, nil
}

func (c *recordingComposer) Enhance(_ context.Context, instruction *kickstart.EnhanceInstruction) (kickstart.ComposedView, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	c.enhancements = append(c.enhancements, instruction)
	return &fakeView{}, nil
}

type fakeView struct {
	viewModel any
	attached  int
}

func (v *fakeView) Attached()      { v.attached++ }
func (v *fakeView) ViewModel() any { return v.viewModel }

type fakeRouter struct {
	calls []string
}

func (r *fakeRouter) Deactivate() { r.calls = append(r.calls, "deactivate") }
func (r *fakeRouter) Reset()      { r.calls = append(r.calls, "reset") }

type routedViewModel struct {
	router *fakeRouter
}

func (vm *routedViewModel) Router() kickstart.Router { return vm.router }

type fakeTransaction struct {
	cleared int
}

func (tx *fakeTransaction) ClearInitialComposition() { tx.cleared++ }

type eventLog struct {
	mu    sync.Mutex
	types []string
}

func (l *eventLog) observe(_ context.Context, event cloudevents.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.types = append(l.types, event.Type())
	return nil
}

func (l *eventLog) count(eventType string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, t := range l.types {
		if t == eventType {
			n++
		}
	}
	return n
}

// pendingQueue is a scheduler that holds work until run is called.
type pendingQueue struct {
	mu    sync.Mutex
	funcs []func()
}

func (q *pendingQueue) schedule(f func()) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.funcs = append(q.funcs, f)
}

func (q *pendingQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.funcs)
}

func (q *pendingQueue) run() {
	q.mu.Lock()
	funcs := q.funcs
	q.funcs = nil
	q.mu.Unlock()
	for _, f := range funcs {
		f()
	}
}

func countEvents(doc *dom.Document, name string) int {
	n := 0
	for _, dispatched := range doc.Dispatched() {
		if dispatched == name {
			n++
		}
	}
	return n
}
