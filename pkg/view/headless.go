package view

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/docker/themekit/pkg/themes/events"
)

// Headless is a Provider and Host without a screen. It records what was
// applied so it can be inspected, and is what the CLI drives.
type Headless struct {
	publisher events.Publisher

	mu      sync.Mutex
	active  *HeadlessView
	resizes int
}

func NewHeadless(publisher events.Publisher) *Headless {
	if publisher == nil {
		publisher = events.Discard
	}
	return &Headless{publisher: publisher}
}

// SetActive switches the active view and publishes the change. A nil view
// means no view is active.
func (h *Headless) SetActive(v *HeadlessView) {
	h.mu.Lock()
	h.active = v
	h.mu.Unlock()

	name := ""
	if v != nil {
		name = v.Name
	}
	slog.Debug("Active view changed", "view", name)
	h.publisher.Publish(events.Event{Topic: events.TopicActiveViewChanged})
}

func (h *Headless) ActiveView() (View, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.active == nil {
		return nil, false
	}
	return h.active, true
}

func (h *Headless) ResizeInlineWidgets() {
	h.mu.Lock()
	h.resizes++
	h.mu.Unlock()
}

// Resizes returns how often inline widgets were resized.
func (h *Headless) Resizes() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.resizes
}

// HeadlessView records the last style mode and font it was given.
type HeadlessView struct {
	Name string

	mu        sync.Mutex
	styleMode StyleMode
	font      Font
	refreshes int
}

func NewHeadlessView(name string) *HeadlessView {
	return &HeadlessView{Name: name}
}

func (v *HeadlessView) SetStyleMode(m StyleMode) {
	m.ScopeClasses = slices.Clone(m.ScopeClasses)

	v.mu.Lock()
	defer v.mu.Unlock()
	v.styleMode = m
}

func (v *HeadlessView) SetFont(f Font) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.font = f
}

func (v *HeadlessView) Renderer() Renderer {
	return (*headlessRenderer)(v)
}

func (v *HeadlessView) StyleMode() StyleMode {
	v.mu.Lock()
	defer v.mu.Unlock()
	m := v.styleMode
	m.ScopeClasses = slices.Clone(m.ScopeClasses)
	return m
}

func (v *HeadlessView) Font() Font {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.font
}

// Refreshes returns how often the renderer was refreshed.
func (v *HeadlessView) Refreshes() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.refreshes
}

type headlessRenderer HeadlessView

func (r *headlessRenderer) Refresh() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refreshes++
}
