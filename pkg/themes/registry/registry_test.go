package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docker/themekit/pkg/themes/surface"
)

func TestNew_ScopeClassUnique(t *testing.T) {
	t.Parallel()

	a := NewTheme("solarized-dark", SourceRef{Path: "/a/solarized-dark.less"}, Meta{DisplayName: "Solarized"})
	b := NewTheme("solarized_dark", SourceRef{Path: "/b/solarized_dark.less"}, Meta{DisplayName: "Solarized"})
	c := NewTheme("Solarized.Dark", SourceRef{Path: "/c/Solarized.Dark.css"}, Meta{DisplayName: "Solarized"})

	assert.Equal(t, a.DisplayName(), b.DisplayName())
	assert.NotEqual(t, a.ScopeClass, b.ScopeClass)
	assert.NotEqual(t, a.ScopeClass, c.ScopeClass)
	assert.NotEqual(t, b.ScopeClass, c.ScopeClass)

	assert.Regexp(t, `^theme-solarized-dark-\d+$`, a.ScopeClass)
	assert.Regexp(t, `^theme-solarized-dark-\d+$`, c.ScopeClass)
}

func TestNew_ScopeClassForOddNames(t *testing.T) {
	t.Parallel()

	th := NewTheme("???", SourceRef{}, Meta{})
	assert.Regexp(t, `^theme-unnamed-\d+$`, th.ScopeClass)
}

func TestRegistry_LookupAndReplace(t *testing.T) {
	t.Parallel()

	r := New()
	first := NewTheme("dark", SourceRef{Path: "/a/dark.css"}, Meta{})
	assert.Nil(t, r.Register(first))

	got, ok := r.Lookup("dark")
	require.True(t, ok)
	assert.Same(t, first, got)

	second := NewTheme("dark", SourceRef{Path: "/b/dark.less"}, Meta{})
	assert.Same(t, first, r.Register(second))

	got, ok = r.Lookup("dark")
	require.True(t, ok)
	assert.Same(t, second, got)
	assert.Equal(t, 1, r.Len())

	assert.Nil(t, r.Register(second), "registering the same entry again replaces nothing")

	_, ok = r.Lookup("light")
	assert.False(t, ok)
}

func TestRegistry_ReplacedHandleReleasedOnFirstApply(t *testing.T) {
	t.Parallel()

	r := New()
	old := NewTheme("dark", SourceRef{Path: "/a/dark.css"}, Meta{})
	r.Register(old)
	assert.Empty(t, old.Apply(Applied{CSS: "old", Handle: "h-old"}))

	replacement := NewTheme("dark", SourceRef{Path: "/b/dark.css"}, Meta{})
	r.Register(replacement)

	assert.Equal(t, surface.Handle("h-old"), old.AppliedHandle(), "old sheet stays until the replacement is applied")

	released := replacement.Apply(Applied{CSS: "new", Handle: "h-new"})
	assert.Equal(t, []surface.Handle{"h-old"}, released)
	assert.Empty(t, old.AppliedHandle())

	released = replacement.Apply(Applied{CSS: "newer", Handle: "h-newer"})
	assert.Equal(t, []surface.Handle{"h-new"}, released)
}

func TestRegistry_LateApplyOfReplacedTheme(t *testing.T) {
	t.Parallel()

	t.Run("after the replacement was applied", func(t *testing.T) {
		t.Parallel()

		r := New()
		old := NewTheme("dark", SourceRef{Path: "/a/dark.css"}, Meta{})
		r.Register(old)
		old.Apply(Applied{CSS: "old", Handle: "h-old"})

		replacement := NewTheme("dark", SourceRef{Path: "/b/dark.css"}, Meta{})
		r.Register(replacement)
		assert.Equal(t, []surface.Handle{"h-old"}, replacement.Apply(Applied{Handle: "h-new"}))

		assert.Equal(t, []surface.Handle{"h-late"}, old.Apply(Applied{CSS: "late", Handle: "h-late"}))
		assert.Empty(t, old.AppliedHandle())
		assert.Equal(t, surface.Handle("h-new"), replacement.AppliedHandle())
	})

	t.Run("before the replacement was applied", func(t *testing.T) {
		t.Parallel()

		r := New()
		old := NewTheme("dark", SourceRef{Path: "/a/dark.css"}, Meta{})
		r.Register(old)
		old.Apply(Applied{CSS: "old", Handle: "h-old"})

		replacement := NewTheme("dark", SourceRef{Path: "/b/dark.css"}, Meta{})
		r.Register(replacement)

		assert.Equal(t, []surface.Handle{"h-old"}, old.Apply(Applied{CSS: "late", Handle: "h-late"}))
		assert.Equal(t, []surface.Handle{"h-late"}, replacement.Apply(Applied{Handle: "h-new"}))
	})
}

func TestRegistry_ReplacementChain(t *testing.T) {
	t.Parallel()

	r := New()
	a := NewTheme("x", SourceRef{Path: "/a.css"}, Meta{})
	r.Register(a)
	a.Apply(Applied{Handle: "h-a"})

	b := NewTheme("x", SourceRef{Path: "/b.css"}, Meta{})
	r.Register(b)
	c := NewTheme("x", SourceRef{Path: "/c.css"}, Meta{})
	r.Register(c)

	assert.Equal(t, []surface.Handle{"h-a"}, c.Apply(Applied{Handle: "h-c"}))
}

func TestRegistry_FindBySourceRef(t *testing.T) {
	t.Parallel()

	r := New()
	dark := NewTheme("dark", SourceRef{Path: "/themes/dark.less"}, Meta{})
	r.Register(dark)
	r.Register(NewTheme("light", SourceRef{Path: "/themes/light.less"}, Meta{}))

	got, ok := r.FindBySourceRef("/themes/./dark.less")
	require.True(t, ok)
	assert.Same(t, dark, got)

	_, ok = r.FindBySourceRef("/themes/other.less")
	assert.False(t, ok)

	_, ok = r.FindBySourceRef("")
	assert.False(t, ok)
}

func TestRegistry_FindDependents(t *testing.T) {
	t.Parallel()

	r := New()
	dark := NewTheme("dark", SourceRef{Path: "/themes/dark.less"}, Meta{})
	light := NewTheme("light", SourceRef{Path: "/themes/light.less"}, Meta{})
	r.Register(dark)
	r.Register(light)
	dark.Apply(Applied{Imports: []string{"/themes/base.less"}})

	assert.Equal(t, []*Theme{dark}, r.FindDependents("/themes/base.less"))
	assert.Equal(t, []*Theme{light}, r.FindDependents("/themes/light.less"))
	assert.Empty(t, r.FindDependents("/themes/none.less"))
}

func TestRegistry_ResolveSelection(t *testing.T) {
	t.Parallel()

	r := New()
	def := NewTheme("default", SourceRef{Path: "/default.css"}, Meta{})
	dark := NewTheme("dark", SourceRef{Path: "/dark.css"}, Meta{})
	r.Register(def)
	r.Register(dark)

	tests := []struct {
		name  string
		names []string
		want  []*Theme
	}{
		{"fallback", []string{"nonexistent"}, []*Theme{def}},
		{"keeps order", []string{"dark", "default"}, []*Theme{dark, def}},
		{"mixed", []string{"nope", "dark"}, []*Theme{def, dark}},
		{"empty", nil, []*Theme{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, r.ResolveSelection(tt.names, "default"))
		})
	}
}

func TestRegistry_ResolveSelectionWithoutDefault(t *testing.T) {
	t.Parallel()

	r := New()
	assert.Empty(t, r.ResolveSelection([]string{"default", "x"}, "default"))
}

func TestRegistry_All(t *testing.T) {
	t.Parallel()

	r := New()
	r.Register(NewTheme("b", SourceRef{}, Meta{}))
	r.Register(NewTheme("a", SourceRef{}, Meta{}))

	all := r.All()
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].Name)
	assert.Equal(t, "b", all[1].Name)
}

func TestTheme_AppliedSnapshot(t *testing.T) {
	t.Parallel()

	th := NewTheme("dark", SourceRef{}, Meta{})
	th.Apply(Applied{ScrollbarRules: []string{"a"}, CSS: "css", Handle: "h"})

	rules := th.ScrollbarRules()
	rules[0] = "changed"

	assert.Equal(t, []string{"a"}, th.ScrollbarRules())
	assert.Equal(t, "css", th.CSS())
}
