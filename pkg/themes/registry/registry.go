// Package registry keeps the catalog of known themes.
package registry

import (
	"slices"
	"strings"

	"github.com/docker/themekit/pkg/concurrent"
)

// Registry maps theme names to themes. It is safe for concurrent use.
type Registry struct {
	themes *concurrent.Map[string, *Theme]
}

func New() *Registry {
	return &Registry{themes: concurrent.NewMap[string, *Theme]()}
}

// Register inserts theme under its name and returns the entry it replaced.
//
// The replaced entry keeps its injected stylesheet until theme is applied
// for the first time, so replacing a theme never leaves the editor unstyled.
func (r *Registry) Register(theme *Theme) (replaced *Theme) {
	prev, loaded := r.themes.Swap(theme.Name, theme)
	if !loaded || prev == theme {
		return nil
	}
	theme.supersede(prev)
	return prev
}

func (r *Registry) Lookup(name string) (*Theme, bool) {
	return r.themes.Load(name)
}

// FindBySourceRef returns the theme compiled from path. When several
// entries share a file the one with the lowest name wins.
func (r *Registry) FindBySourceRef(path string) (*Theme, bool) {
	for _, t := range r.All() {
		if t.Source.Matches(path) {
			return t, true
		}
	}
	return nil, false
}

// FindDependents returns every theme compiled from path, directly or
// through an import.
func (r *Registry) FindDependents(path string) []*Theme {
	var out []*Theme
	for _, t := range r.All() {
		if t.DependsOn(path) {
			out = append(out, t)
		}
	}
	return out
}

// ResolveSelection maps names to themes in order. A name without an entry is
// replaced by the theme registered as defaultName; when that is missing too
// the name is dropped.
func (r *Registry) ResolveSelection(names []string, defaultName string) []*Theme {
	out := make([]*Theme, 0, len(names))
	for _, name := range names {
		t, ok := r.Lookup(name)
		if !ok {
			t, ok = r.Lookup(defaultName)
		}
		if ok {
			out = append(out, t)
		}
	}
	return out
}

// All returns every registered theme sorted by name.
func (r *Registry) All() []*Theme {
	all := r.themes.Values()
	slices.SortFunc(all, func(a, b *Theme) int { return strings.Compare(a.Name, b.Name) })
	return all
}

func (r *Registry) Len() int {
	return r.themes.Length()
}
