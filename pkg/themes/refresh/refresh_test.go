package refresh

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docker/themekit/pkg/themes/events"
	"github.com/docker/themekit/pkg/themes/registry"
	"github.com/docker/themekit/pkg/themes/surface"
	"github.com/docker/themekit/pkg/view"
)

type fakePrefs struct {
	mu         sync.Mutex
	themes     []string
	scrollbars bool
}

func (p *fakePrefs) Themes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.themes)
}

func (p *fakePrefs) CustomScrollbars() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.scrollbars
}

func (p *fakePrefs) FontSize() string   { return "13px" }
func (p *fakePrefs) LineHeight() string { return "1.5" }
func (p *fakePrefs) FontType() string   { return "monospace" }

func (p *fakePrefs) set(themes []string, scrollbars bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.themes = themes
	p.scrollbars = scrollbars
}

// fakeCompiler records compiled theme names and fails for names in fail.
type fakeCompiler struct {
	mu       sync.Mutex
	compiled []string
	fail     map[string]bool
}

func (c *fakeCompiler) LoadAndCompile(_ context.Context, theme *registry.Theme) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.compiled = append(c.compiled, theme.Name)
	if c.fail[theme.Name] {
		return errors.New("compile failed: " + theme.Name)
	}
	return nil
}

func (c *fakeCompiler) Compiled() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.compiled)
}

type fixture struct {
	registry *registry.Registry
	prefs    *fakePrefs
	compiler *fakeCompiler
	surface  *surface.Memory
	bus      *events.Bus
	host     *view.Headless
	view     *view.HeadlessView
	ctrl     *Controller
}

func newFixture(t *testing.T, themes ...string) *fixture {
	t.Helper()

	reg := registry.New()
	for _, name := range themes {
		reg.Register(registry.NewTheme(name, registry.SourceRef{Path: "/themes/" + name + ".less"}, registry.Meta{}))
	}

	bus := events.NewBus()
	f := &fixture{
		registry: reg,
		prefs:    &fakePrefs{},
		compiler: &fakeCompiler{fail: map[string]bool{}},
		surface:  surface.NewMemory(),
		bus:      bus,
		host:     view.NewHeadless(bus),
		view:     view.NewHeadlessView("main.go"),
	}
	f.ctrl = New(Options{
		Registry:     reg,
		Preferences:  f.prefs,
		Compiler:     f.compiler,
		Views:        f.host,
		Host:         f.host,
		Surface:      f.surface,
		Bus:          bus,
		DefaultTheme: "default",
		RepaintDelay: time.Millisecond,
	})
	t.Cleanup(f.ctrl.Close)
	return f
}

func (f *fixture) theme(name string) *registry.Theme {
	t, _ := f.registry.Lookup(name)
	return t
}

func TestInit_LightReapply(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "default", "dark")
	f.theme("dark").SetMeta(registry.Meta{Dark: true, AddModeClass: true})
	f.prefs.set([]string{"dark", "default"}, false)
	f.host.SetActive(f.view)

	require.NoError(t, f.ctrl.Init(t.Context()))
	f.ctrl.Wait()

	assert.Empty(t, f.compiler.Compiled(), "a light reapply never compiles")
	assert.Equal(t, view.StyleMode{
		ScopeClasses: []string{f.theme("dark").ScopeClass, f.theme("default").ScopeClass},
		Dark:         true,
		AddModeClass: true,
	}, f.view.StyleMode())
	assert.Equal(t, view.Font{Size: "13px", LineHeight: "1.5", Family: "monospace"}, f.view.Font())
	assert.Equal(t, 1, f.view.Refreshes())
	assert.Equal(t, 1, f.host.Resizes())
}

func TestRefresh_NoActiveView(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "default")
	f.prefs.set([]string{"default"}, true)
	f.theme("default").Apply(registry.Applied{ScrollbarRules: []string{"::-webkit-scrollbar{}"}})

	require.NoError(t, f.ctrl.Refresh(t.Context(), false))
	f.ctrl.Wait()

	assert.Empty(t, f.surface.Sheets())
	assert.Equal(t, 0, f.host.Resizes())
}

func TestRefresh_Full(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "default", "dark")
	f.prefs.set([]string{"dark", "missing", "dark", "default"}, false)
	f.host.SetActive(f.view)

	var changes [][]*registry.Theme
	f.bus.Subscribe(events.TopicThemeChange, func(ev events.Event) { changes = append(changes, ev.Themes) })

	require.NoError(t, f.ctrl.Refresh(t.Context(), true))
	f.ctrl.Wait()

	assert.ElementsMatch(t, []string{"dark", "default"}, f.compiler.Compiled())
	require.Len(t, changes, 1)
	assert.Equal(t, []*registry.Theme{f.theme("dark"), f.theme("default")}, changes[0])
	assert.Len(t, f.view.StyleMode().ScopeClasses, 2)
}

func TestRefresh_FullWithCompileError(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "default", "broken")
	f.compiler.fail["broken"] = true
	f.prefs.set([]string{"broken", "default"}, false)
	f.host.SetActive(f.view)

	var changes int
	f.bus.Subscribe(events.TopicThemeChange, func(events.Event) { changes++ })

	err := f.ctrl.Refresh(t.Context(), true)
	require.ErrorContains(t, err, "compile failed: broken")
	f.ctrl.Wait()

	assert.Equal(t, 0, changes)
	assert.Len(t, f.compiler.Compiled(), 2, "other themes still compile")
	assert.Equal(t, view.Font{Size: "13px", LineHeight: "1.5", Family: "monospace"}, f.view.Font(), "reapply still runs")
}

func TestRefresh_DefaultFallback(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "default")
	f.prefs.set([]string{"nonexistent"}, false)

	assert.Equal(t, []*registry.Theme{f.theme("default")}, f.ctrl.Selection())
}

func TestRefresh_ScrollbarLayer(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "default")
	f.theme("default").Apply(registry.Applied{ScrollbarRules: []string{
		"body::-webkit-scrollbar{width:1px}",
		"::-webkit-scrollbar-thumb{background:red}",
	}})
	f.prefs.set([]string{"default"}, true)
	f.host.SetActive(f.view)

	require.NoError(t, f.ctrl.Refresh(t.Context(), false))
	sheets := f.surface.Sheets()
	require.Len(t, sheets, 1)
	assert.Equal(t, "body::-webkit-scrollbar{width:1px}\n::-webkit-scrollbar-thumb{background:red}", sheets[0].CSS)

	// Unchanged rules keep the same sheet.
	require.NoError(t, f.ctrl.Refresh(t.Context(), false))
	assert.Equal(t, sheets, f.surface.Sheets())

	f.theme("default").Apply(registry.Applied{ScrollbarRules: []string{"::-webkit-scrollbar{width:2px}"}})
	require.NoError(t, f.ctrl.Refresh(t.Context(), false))
	replaced := f.surface.Sheets()
	require.Len(t, replaced, 1)
	assert.NotEqual(t, sheets[0].Handle, replaced[0].Handle)
	assert.Equal(t, "::-webkit-scrollbar{width:2px}", replaced[0].CSS)

	f.prefs.set([]string{"default"}, false)
	require.NoError(t, f.ctrl.Refresh(t.Context(), false))
	assert.Empty(t, f.surface.Sheets())
	f.ctrl.Wait()
}

func TestNotifications(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		event       events.Event
		wantCompile bool
	}{
		{"themes", events.Event{Topic: events.TopicThemes}, true},
		{"loaded source changed", events.Event{Topic: events.TopicFileChanged, Path: "/themes/dark.less"}, true},
		{"unrelated file changed", events.Event{Topic: events.TopicFileChanged, Path: "/src/main.go"}, false},
		{"scrollbars", events.Event{Topic: events.TopicCustomScrollbars}, false},
		{"font size", events.Event{Topic: events.TopicFontSize}, false},
		{"line height", events.Event{Topic: events.TopicLineHeight}, false},
		{"font type", events.Event{Topic: events.TopicFontType}, false},
		{"active view", events.Event{Topic: events.TopicActiveViewChanged}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t, "default", "dark")
			f.prefs.set([]string{"dark"}, false)
			f.host.SetActive(f.view)
			require.NoError(t, f.ctrl.Init(t.Context()))
			f.ctrl.Wait()
			before := f.view.Refreshes()

			f.bus.Publish(tt.event)
			f.ctrl.Wait()

			if tt.wantCompile {
				assert.Equal(t, []string{"dark"}, f.compiler.Compiled())
			} else {
				assert.Empty(t, f.compiler.Compiled())
			}
			if tt.event.Path != "/src/main.go" {
				assert.Equal(t, before+1, f.view.Refreshes())
			}
		})
	}
}

func TestNotifications_ImportedFileChanged(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "default", "dark")
	f.theme("dark").Apply(registry.Applied{Imports: []string{"/themes/shared/base.less"}})
	f.prefs.set([]string{"dark"}, false)
	require.NoError(t, f.ctrl.Init(t.Context()))

	f.bus.Publish(events.Event{Topic: events.TopicFileChanged, Path: "/themes/shared/base.less"})
	f.ctrl.Wait()

	assert.Equal(t, []string{"dark"}, f.compiler.Compiled())
}

func TestNotifications_FailuresAreSwallowed(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "default")
	f.compiler.fail["default"] = true
	f.prefs.set([]string{"default"}, false)
	f.host.SetActive(f.view)
	require.NoError(t, f.ctrl.Init(t.Context()))

	var changes int
	f.bus.Subscribe(events.TopicThemeChange, func(events.Event) { changes++ })

	f.bus.Publish(events.Event{Topic: events.TopicThemes})
	f.ctrl.Wait()

	assert.Equal(t, []string{"default"}, f.compiler.Compiled())
	assert.Equal(t, 0, changes)
}

func TestRepaintsCoalesce(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "default")
	f.ctrl.opts.RepaintDelay = 200 * time.Millisecond
	f.prefs.set([]string{"default"}, false)
	f.host.SetActive(f.view)

	for range 5 {
		require.NoError(t, f.ctrl.Refresh(t.Context(), false))
	}
	assert.Equal(t, 0, f.view.Refreshes(), "repaint is deferred")

	f.ctrl.Wait()
	assert.Equal(t, 1, f.view.Refreshes())
	assert.Equal(t, 1, f.host.Resizes())
}

func TestClose(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "default")
	f.prefs.set([]string{"default"}, false)
	require.NoError(t, f.ctrl.Init(t.Context()))

	f.ctrl.Close()
	f.ctrl.Close()

	f.bus.Publish(events.Event{Topic: events.TopicThemes})
	f.ctrl.Wait()
	assert.Empty(t, f.compiler.Compiled())
}
