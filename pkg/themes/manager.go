// Package themes wires the theme pipeline together: discovery, compilation,
// injection and the refresh controller reacting to preferences, file changes
// and the active view.
package themes

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"slices"
	"time"

	"github.com/spf13/afero"
	"go.opentelemetry.io/otel/trace"

	"github.com/docker/themekit/pkg/themes/compiler"
	"github.com/docker/themekit/pkg/themes/events"
	"github.com/docker/themekit/pkg/themes/loader"
	"github.com/docker/themekit/pkg/themes/refresh"
	"github.com/docker/themekit/pkg/themes/registry"
	"github.com/docker/themekit/pkg/themes/surface"
	"github.com/docker/themekit/pkg/themes/watch"
	"github.com/docker/themekit/pkg/view"
)

// DefaultThemeName is the theme used for selected names that are not
// registered.
const DefaultThemeName = "default"

// ReloadablePreferences are preferences backed by a file. When the manager
// watches files it reloads them whenever that file changes.
type ReloadablePreferences interface {
	refresh.Preferences
	File() string
	Reload() error
}

// Options configure a Manager. Only Preferences is required.
type Options struct {
	Preferences refresh.Preferences

	// Fs defaults to the OS filesystem.
	Fs afero.Fs
	// Surface defaults to an in-memory surface.
	Surface surface.Surface
	// Compiler defaults to a cached LESS compiler reading from Fs.
	Compiler compiler.Compiler
	// Bus defaults to a new bus.
	Bus *events.Bus
	// Views defaults to a headless provider without an active view.
	Views view.Provider
	Host  view.Host

	DefaultTheme string
	RepaintDelay time.Duration

	// Watch enables reloading themes when their source files change. It
	// requires Fs to be the OS filesystem.
	Watch         bool
	WatchDebounce time.Duration

	Tracer trace.Tracer
}

type Manager struct {
	opts       Options
	registry   *registry.Registry
	loader     *loader.Loader
	controller *refresh.Controller
	bus        *events.Bus
	watcher    *watch.Watcher
	unsubs     []func()
}

func New(opts Options) (*Manager, error) {
	if opts.Preferences == nil {
		return nil, &loader.ConfigError{Op: "themes", Msg: "preferences are required"}
	}
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Surface == nil {
		opts.Surface = surface.NewMemory()
	}
	if opts.Compiler == nil {
		opts.Compiler = compiler.NewCached(compiler.NewLess(opts.Fs), compiler.DefaultCacheTTL)
	}
	if opts.Bus == nil {
		opts.Bus = events.NewBus()
	}
	if opts.DefaultTheme == "" {
		opts.DefaultTheme = DefaultThemeName
	}
	if opts.Views == nil {
		headless := view.NewHeadless(opts.Bus)
		opts.Views = headless
		if opts.Host == nil {
			opts.Host = headless
		}
	}

	m := &Manager{
		opts:     opts,
		registry: registry.New(),
		bus:      opts.Bus,
	}
	m.loader = loader.New(loader.Config{
		Fs:       opts.Fs,
		Registry: m.registry,
		Compiler: opts.Compiler,
		Surface:  opts.Surface,
		Tracer:   opts.Tracer,
	})
	m.controller = refresh.New(refresh.Options{
		Registry:     m.registry,
		Preferences:  opts.Preferences,
		Compiler:     m.loader,
		Views:        opts.Views,
		Host:         opts.Host,
		Surface:      opts.Surface,
		Bus:          opts.Bus,
		DefaultTheme: opts.DefaultTheme,
		RepaintDelay: opts.RepaintDelay,
		Tracer:       opts.Tracer,
	})

	if opts.Watch {
		var watchOpts []watch.Option
		if opts.WatchDebounce > 0 {
			watchOpts = append(watchOpts, watch.WithDebounce(opts.WatchDebounce))
		}
		w, err := watch.New(opts.Bus, watchOpts...)
		if err != nil {
			return nil, err
		}
		m.watcher = w
	}

	m.loader.OnRegister(m.onRegister)
	return m, nil
}

// onRegister refreshes right away when a newly loaded theme is part of the
// selection, so it shows up without further action.
func (m *Manager) onRegister(_ context.Context, theme *registry.Theme) {
	m.watchFile(theme.Source.Path)

	if slices.Contains(m.opts.Preferences.Themes(), theme.Name) {
		slog.Debug("Loaded theme is selected, refreshing", "name", theme.Name)
		m.controller.Trigger(true)
	}
}

func (m *Manager) watchFile(path string) {
	if m.watcher == nil || path == "" {
		return
	}
	if err := m.watcher.Add(path); err != nil {
		slog.Warn("Failed to watch file", "path", path, "error", err)
	}
}

// Init starts reacting to notifications and applies the current selection
// to the active view.
func (m *Manager) Init(ctx context.Context) error {
	if prefs, ok := m.opts.Preferences.(ReloadablePreferences); ok && m.watcher != nil && prefs.File() != "" {
		m.watchFile(prefs.File())
		file := filepath.Clean(prefs.File())
		m.unsubs = append(m.unsubs, m.bus.Subscribe(events.TopicFileChanged, func(ev events.Event) {
			if ev.Path != file {
				return
			}
			if err := prefs.Reload(); err != nil {
				slog.Warn("Failed to reload preferences", "path", file, "error", err)
			}
		}))
	}

	// Imports of the applied themes are watched too.
	m.unsubs = append(m.unsubs, m.bus.Subscribe(events.TopicThemeChange, func(ev events.Event) {
		for _, t := range ev.Themes {
			for _, imp := range t.Imports() {
				m.watchFile(imp)
			}
		}
	}))

	return m.controller.Init(ctx)
}

// Refresh recompiles the selection when force is set and reapplies it.
func (m *Manager) Refresh(ctx context.Context, force bool) error {
	return m.controller.Refresh(ctx, force)
}

func (m *Manager) LoadFile(ctx context.Context, path string, opts loader.Options) (*registry.Theme, error) {
	return m.loader.LoadFile(ctx, path, opts)
}

func (m *Manager) LoadPackage(ctx context.Context, pkg loader.PackageDescriptor) (*registry.Theme, error) {
	return m.loader.LoadPackage(ctx, pkg)
}

// LoadPackageDir reads the package.json in dir and loads its theme.
func (m *Manager) LoadPackageDir(ctx context.Context, dir string) (*registry.Theme, error) {
	pkg, err := loader.ReadPackage(m.opts.Fs, dir)
	if err != nil {
		return nil, err
	}
	return m.loader.LoadPackage(ctx, pkg)
}

func (m *Manager) LoadDirectory(ctx context.Context, path string) ([]*registry.Theme, error) {
	return m.loader.LoadDirectory(ctx, path)
}

func (m *Manager) LoadGlob(ctx context.Context, root, pattern string) ([]*registry.Theme, error) {
	return m.loader.LoadGlob(ctx, root, pattern)
}

// Compile runs one theme through the pipeline regardless of the selection.
func (m *Manager) Compile(ctx context.Context, theme *registry.Theme) error {
	return m.loader.LoadAndCompile(ctx, theme)
}

// CurrentThemes returns the resolved selection.
func (m *Manager) CurrentThemes() []*registry.Theme {
	return m.controller.Selection()
}

// Themes returns every registered theme sorted by name.
func (m *Manager) Themes() []*registry.Theme {
	return m.registry.All()
}

func (m *Manager) Lookup(name string) (*registry.Theme, bool) {
	return m.registry.Lookup(name)
}

// Subscribe registers fn for topic, for example events.TopicThemeChange.
func (m *Manager) Subscribe(topic events.Topic, fn events.Handler) (cancel func()) {
	return m.bus.Subscribe(topic, fn)
}

// Wait blocks until background refreshes and repaints are done.
func (m *Manager) Wait() {
	m.controller.Wait()
}

func (m *Manager) Close() error {
	for _, unsub := range m.unsubs {
		unsub()
	}
	m.unsubs = nil

	var errs []error
	if m.watcher != nil {
		errs = append(errs, m.watcher.Close())
	}
	m.controller.Close()
	return errors.Join(errs...)
}
