// Package refresh keeps the applied themes in sync with preferences, source
// files and the active view.
//
// A full refresh recompiles the active selection from source and then does
// a light reapply. A light reapply only pushes already compiled state to the
// active view: style mode, fonts, the scrollbar layer and a deferred repaint.
package refresh

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/docker/themekit/pkg/themes/events"
	"github.com/docker/themekit/pkg/themes/registry"
	"github.com/docker/themekit/pkg/themes/surface"
	"github.com/docker/themekit/pkg/view"
)

// RepaintDelay is how long a repaint waits for style and layout to settle.
const RepaintDelay = 100 * time.Millisecond

// Preferences are the settings the controller reads on every refresh.
type Preferences interface {
	Themes() []string
	CustomScrollbars() bool
	FontSize() string
	LineHeight() string
	FontType() string
}

// Compiler recompiles and reinjects one theme.
type Compiler interface {
	LoadAndCompile(ctx context.Context, theme *registry.Theme) error
}

type Options struct {
	Registry    *registry.Registry
	Preferences Preferences
	Compiler    Compiler
	Views       view.Provider
	// Host may be nil.
	Host    view.Host
	Surface surface.Surface
	Bus     *events.Bus

	// DefaultTheme replaces selected names that are not registered.
	DefaultTheme string
	// RepaintDelay defaults to RepaintDelay.
	RepaintDelay time.Duration
	Tracer       trace.Tracer
}

type Controller struct {
	opts   Options
	tracer trace.Tracer

	// ctx is the parent of notification triggered refreshes.
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	closed  bool
	unsubs  []func()
	repaint *time.Timer
	pending sync.WaitGroup

	// layerMu serializes scrollbar layer swaps.
	layerMu         sync.Mutex
	scrollbarCSS    string
	scrollbarHandle surface.Handle
}

func New(opts Options) *Controller {
	if opts.RepaintDelay <= 0 {
		opts.RepaintDelay = RepaintDelay
	}
	if opts.Bus == nil {
		opts.Bus = events.NewBus()
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer("github.com/docker/themekit/pkg/themes/refresh")
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		opts:   opts,
		tracer: tracer,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Init subscribes to every notification the controller reacts to and
// performs one light reapply.
func (c *Controller) Init(ctx context.Context) error {
	bus := c.opts.Bus

	c.mu.Lock()
	c.unsubs = append(c.unsubs,
		bus.Subscribe(events.TopicThemes, func(events.Event) { c.trigger(true) }),
		bus.Subscribe(events.TopicCustomScrollbars, func(events.Event) { c.trigger(false) }),
		bus.Subscribe(events.TopicFontSize, func(events.Event) { c.trigger(false) }),
		bus.Subscribe(events.TopicLineHeight, func(events.Event) { c.trigger(false) }),
		bus.Subscribe(events.TopicFontType, func(events.Event) { c.trigger(false) }),
		bus.Subscribe(events.TopicActiveViewChanged, func(events.Event) { c.trigger(false) }),
		bus.Subscribe(events.TopicFileChanged, c.onFileChanged),
	)
	c.mu.Unlock()

	return c.Refresh(ctx, false)
}

func (c *Controller) onFileChanged(ev events.Event) {
	dependents := c.opts.Registry.FindDependents(ev.Path)
	if len(dependents) == 0 {
		return
	}
	slog.Debug("Theme source changed", "path", ev.Path, "themes", len(dependents))
	c.trigger(true)
}

// Trigger starts a refresh in the background. Failures are logged.
func (c *Controller) Trigger(force bool) {
	c.trigger(force)
}

func (c *Controller) trigger(force bool) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.pending.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.pending.Done()
		if err := c.Refresh(c.ctx, force); err != nil {
			slog.Warn("Theme refresh failed", "force", force, "error", err)
		}
	}()
}

// Refresh recompiles the active selection when force is set, then reapplies
// it to the active view. Compile errors are returned; the reapply runs
// regardless so that font and scrollbar settings still apply.
func (c *Controller) Refresh(ctx context.Context, force bool) error {
	var err error
	if force {
		err = c.reload(ctx)
	}
	c.reapply(ctx)
	return err
}

// Selection resolves the selected theme names, with fallback to the default
// theme and without duplicates.
func (c *Controller) Selection() []*registry.Theme {
	resolved := c.opts.Registry.ResolveSelection(c.opts.Preferences.Themes(), c.opts.DefaultTheme)

	seen := make(map[*registry.Theme]bool, len(resolved))
	out := resolved[:0]
	for _, t := range resolved {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

func (c *Controller) reload(ctx context.Context) error {
	ctx, span := c.tracer.Start(ctx, "themes.reload")
	defer span.End()

	selection := c.Selection()
	span.SetAttributes(attribute.Int("themes.count", len(selection)))

	errs := make([]error, len(selection))
	var wg sync.WaitGroup
	for i, theme := range selection {
		wg.Go(func() {
			errs[i] = c.opts.Compiler.LoadAndCompile(ctx, theme)
		})
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "reload failed")
		return err
	}

	slog.Debug("Reloaded themes", "themes", len(selection))
	c.opts.Bus.Publish(events.Event{Topic: events.TopicThemeChange, Themes: selection})
	return nil
}

func (c *Controller) reapply(ctx context.Context) {
	v, ok := c.opts.Views.ActiveView()
	if !ok {
		return
	}

	selection := c.Selection()
	mode := view.StyleMode{ScopeClasses: make([]string, 0, len(selection))}
	for _, t := range selection {
		mode.ScopeClasses = append(mode.ScopeClasses, t.ScopeClass)
	}
	if len(selection) > 0 {
		meta := selection[0].Meta()
		mode.Dark = meta.Dark
		mode.AddModeClass = meta.AddModeClass
	}
	v.SetStyleMode(mode)

	prefs := c.opts.Preferences
	v.SetFont(view.Font{
		Size:       prefs.FontSize(),
		LineHeight: prefs.LineHeight(),
		Family:     prefs.FontType(),
	})

	if err := c.applyScrollbars(ctx, selection); err != nil {
		slog.Warn("Failed to apply scrollbar styles", "error", err)
	}

	c.scheduleRepaint()
}

// applyScrollbars keeps one stylesheet with the scrollbar rules of the
// selection live while custom scrollbars are enabled.
func (c *Controller) applyScrollbars(ctx context.Context, selection []*registry.Theme) error {
	var css string
	if c.opts.Preferences.CustomScrollbars() {
		var rules []string
		for _, t := range selection {
			rules = append(rules, t.ScrollbarRules()...)
		}
		css = strings.Join(rules, "\n")
	}

	c.layerMu.Lock()
	defer c.layerMu.Unlock()

	if css == c.scrollbarCSS {
		return nil
	}

	var handle surface.Handle
	if css != "" {
		h, err := c.opts.Surface.Insert(ctx, css)
		if err != nil {
			return err
		}
		handle = h
	}

	old := c.scrollbarHandle
	c.scrollbarCSS, c.scrollbarHandle = css, handle
	if old != "" {
		return c.opts.Surface.Remove(ctx, old)
	}
	return nil
}

// scheduleRepaint coalesces repaint requests into one deferred repaint of
// whatever view is active when it fires.
func (c *Controller) scheduleRepaint() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	if c.repaint != nil && c.repaint.Stop() {
		c.pending.Done()
	}
	c.pending.Add(1)
	c.repaint = time.AfterFunc(c.opts.RepaintDelay, func() {
		defer c.pending.Done()

		v, ok := c.opts.Views.ActiveView()
		if !ok {
			return
		}
		v.Renderer().Refresh()
		if c.opts.Host != nil {
			c.opts.Host.ResizeInlineWidgets()
		}
	})
}

// Wait blocks until background refreshes and pending repaints are done.
func (c *Controller) Wait() {
	c.pending.Wait()
}

// Close unsubscribes from notifications, drops a pending repaint and waits
// for running refreshes.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	unsubs := c.unsubs
	c.unsubs = nil
	if c.repaint != nil && c.repaint.Stop() {
		c.pending.Done()
	}
	c.mu.Unlock()

	for _, unsub := range unsubs {
		unsub()
	}
	c.cancel()
	c.pending.Wait()
}
