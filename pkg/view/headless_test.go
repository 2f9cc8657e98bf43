package view

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docker/themekit/pkg/themes/events"
)

func TestHeadless_ActiveView(t *testing.T) {
	t.Parallel()

	bus := events.NewBus()
	var changes int
	bus.Subscribe(events.TopicActiveViewChanged, func(events.Event) { changes++ })

	h := NewHeadless(bus)
	_, ok := h.ActiveView()
	assert.False(t, ok)

	v := NewHeadlessView("main.go")
	h.SetActive(v)

	got, ok := h.ActiveView()
	require.True(t, ok)
	assert.Same(t, v, got)

	h.SetActive(nil)
	_, ok = h.ActiveView()
	assert.False(t, ok)
	assert.Equal(t, 2, changes)
}

func TestHeadlessView_Records(t *testing.T) {
	t.Parallel()

	v := NewHeadlessView("a")
	classes := []string{"theme-a-1"}
	v.SetStyleMode(StyleMode{ScopeClasses: classes, Dark: true})
	classes[0] = "changed"
	v.SetFont(Font{Size: "12px", LineHeight: "1.25", Family: "monospace"})
	v.Renderer().Refresh()
	v.Renderer().Refresh()

	assert.Equal(t, StyleMode{ScopeClasses: []string{"theme-a-1"}, Dark: true}, v.StyleMode())
	assert.Equal(t, Font{Size: "12px", LineHeight: "1.25", Family: "monospace"}, v.Font())
	assert.Equal(t, 2, v.Refreshes())
}

func TestHeadless_NilPublisher(t *testing.T) {
	t.Parallel()

	h := NewHeadless(nil)
	h.SetActive(NewHeadlessView("x"))
	h.ResizeInlineWidgets()
	assert.Equal(t, 1, h.Resizes())
}
