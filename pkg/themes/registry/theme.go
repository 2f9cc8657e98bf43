package registry

import (
	"fmt"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/docker/themekit/pkg/themes/surface"
)

// SourceRef points at the file a theme is compiled from.
type SourceRef struct {
	Path string
}

// Matches reports whether path names the same file as the ref.
func (r SourceRef) Matches(path string) bool {
	return r.Path != "" && filepath.Clean(r.Path) == filepath.Clean(path)
}

// Meta is the descriptive part of a theme that can change when the same
// file is loaded again.
type Meta struct {
	DisplayName string
	// Dark marks themes with a dark background.
	Dark bool
	// AddModeClass asks the view to add the document's mode as a class next
	// to the theme's scope class.
	AddModeClass bool
}

// Applied is the compiled state of a theme that is currently injected.
type Applied struct {
	ScrollbarRules []string
	CSS            string
	Imports        []string
	Handle         surface.Handle
}

// Theme is one discovered stylesheet source and its applied state.
//
// Name, ScopeClass and Source never change after NewTheme.
type Theme struct {
	Name       string
	ScopeClass string
	Source     SourceRef

	mu         sync.Mutex
	meta       Meta
	applied    Applied
	superseded *Theme
	// retired is set once a replacement has taken over the stylesheet.
	retired bool

	compileMu sync.Mutex
}

var scopeSeq atomic.Uint64

var nonClassChars = regexp.MustCompile(`[^a-z0-9_-]+`)

// NewTheme creates a theme with a fresh scope class.
func NewTheme(name string, src SourceRef, meta Meta) *Theme {
	slug := strings.Trim(nonClassChars.ReplaceAllString(strings.ToLower(name), "-"), "-")
	if slug == "" {
		slug = "unnamed"
	}
	return &Theme{
		Name:       name,
		ScopeClass: fmt.Sprintf("theme-%s-%d", slug, scopeSeq.Add(1)),
		Source:     src,
		meta:       meta,
	}
}

func (t *Theme) Meta() Meta {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.meta
}

func (t *Theme) SetMeta(m Meta) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.meta = m
}

func (t *Theme) DisplayName() string { return t.Meta().DisplayName }

// Applied returns a snapshot of the applied state.
func (t *Theme) Applied() Applied {
	t.mu.Lock()
	defer t.mu.Unlock()
	a := t.applied
	a.ScrollbarRules = slices.Clone(a.ScrollbarRules)
	a.Imports = slices.Clone(a.Imports)
	return a
}

func (t *Theme) ScrollbarRules() []string { return t.Applied().ScrollbarRules }

func (t *Theme) CSS() string { return t.Applied().CSS }

func (t *Theme) AppliedHandle() surface.Handle { return t.Applied().Handle }

// Imports lists the files inlined by the last successful compile.
func (t *Theme) Imports() []string { return t.Applied().Imports }

// DependsOn reports whether the theme was compiled from path, directly or
// through an import.
func (t *Theme) DependsOn(path string) bool {
	if t.Source.Matches(path) {
		return true
	}
	clean := filepath.Clean(path)
	for _, imp := range t.Applied().Imports {
		if filepath.Clean(imp) == clean {
			return true
		}
	}
	return false
}

// Apply records a newly injected stylesheet. The caller must already have
// inserted a.Handle; the handles returned are no longer referenced by any
// theme and must be removed from the surface. They include the theme's own
// previous handle and those of the entries it replaced in the registry.
//
// A theme whose replacement has already been applied keeps its state and
// hands a.Handle straight back for removal.
func (t *Theme) Apply(a Applied) []surface.Handle {
	t.mu.Lock()
	if t.retired {
		t.mu.Unlock()
		if a.Handle == "" {
			return nil
		}
		return []surface.Handle{a.Handle}
	}
	released := t.applied.Handle
	t.applied = a
	older := t.superseded
	t.superseded = nil
	t.mu.Unlock()

	var out []surface.Handle
	if released != "" {
		out = append(out, released)
	}
	for older != nil {
		older.mu.Lock()
		h := older.applied.Handle
		older.applied.Handle = ""
		older.retired = true
		next := older.superseded
		older.superseded = nil
		older.mu.Unlock()

		if h != "" {
			out = append(out, h)
		}
		older = next
	}
	return out
}

// Lock serializes compile-and-apply runs for this theme.
func (t *Theme) Lock() { t.compileMu.Lock() }

func (t *Theme) Unlock() { t.compileMu.Unlock() }

func (t *Theme) supersede(old *Theme) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.superseded = old
}

func (t *Theme) String() string {
	return t.Name
}
