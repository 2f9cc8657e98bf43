// Package loader discovers theme sources and runs them through the
// compile pipeline: read, transform, compile, inject, record.
package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/docker/themekit/pkg/themes/compiler"
	"github.com/docker/themekit/pkg/themes/registry"
	"github.com/docker/themekit/pkg/themes/source"
	"github.com/docker/themekit/pkg/themes/surface"
)

// Extensions are the stylesheet extensions picked up by directory and glob
// discovery. Matching is case-sensitive.
var Extensions = []string{"css", "less"}

// maxConcurrentLoads bounds the files checked at once by LoadDirectory.
const maxConcurrentLoads = 8

// Options override what LoadFile derives from the file name.
type Options struct {
	Name         string
	Title        string
	Dark         bool
	AddModeClass bool
}

// RegisterHook runs after a theme has been registered by LoadFile.
type RegisterHook func(ctx context.Context, theme *registry.Theme)

// Config holds the collaborators of a Loader. Tracer may be nil.
type Config struct {
	Fs       afero.Fs
	Registry *registry.Registry
	Compiler compiler.Compiler
	Surface  surface.Surface
	Tracer   trace.Tracer
}

type Loader struct {
	fs       afero.Fs
	registry *registry.Registry
	compiler compiler.Compiler
	surface  surface.Surface
	tracer   trace.Tracer

	hooksMu sync.RWMutex
	hooks   []RegisterHook
}

func New(cfg Config) *Loader {
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = otel.Tracer("github.com/docker/themekit/pkg/themes/loader")
	}
	return &Loader{
		fs:       cfg.Fs,
		registry: cfg.Registry,
		compiler: cfg.Compiler,
		surface:  cfg.Surface,
		tracer:   tracer,
	}
}

// OnRegister adds a hook run after every registration.
func (l *Loader) OnRegister(hook RegisterHook) {
	l.hooksMu.Lock()
	defer l.hooksMu.Unlock()
	l.hooks = append(l.hooks, hook)
}

// LoadFile registers the theme at path. It does not compile it.
//
// Loading the path again under the same name updates the entry in place and
// keeps its scope class. Any other entry with the same name is replaced.
func (l *Loader) LoadFile(ctx context.Context, path string, opts Options) (*registry.Theme, error) {
	if strings.TrimSpace(path) == "" {
		return nil, &ConfigError{Op: "load file", Msg: "path is required"}
	}

	exists, err := afero.Exists(l.fs, path)
	if err != nil {
		return nil, &IOError{Op: "exists", Path: path, Err: err}
	}
	if !exists {
		return nil, &IOError{Op: "exists", Path: path, Err: ErrNotFound}
	}
	if isDir, err := afero.IsDir(l.fs, path); err == nil && isDir {
		return nil, &IOError{Op: "exists", Path: path, Err: errors.New("is a directory")}
	}

	name := themeName(path, opts)
	meta := registry.Meta{
		DisplayName:  opts.Title,
		Dark:         opts.Dark,
		AddModeClass: opts.AddModeClass,
	}
	if meta.DisplayName == "" {
		meta.DisplayName = DisplayName(name)
	}

	theme, ok := l.registry.Lookup(name)
	if ok && theme.Source.Matches(path) {
		theme.SetMeta(meta)
		slog.Debug("Updated theme", "name", name, "path", path)
	} else {
		theme = registry.NewTheme(name, registry.SourceRef{Path: path}, meta)
		if replaced := l.registry.Register(theme); replaced != nil {
			slog.Debug("Replaced theme", "name", name, "old_path", replaced.Source.Path, "path", path)
		} else {
			slog.Debug("Registered theme", "name", name, "path", path, "scope", theme.ScopeClass)
		}
	}

	l.hooksMu.RLock()
	hooks := slices.Clone(l.hooks)
	l.hooksMu.RUnlock()
	for _, hook := range hooks {
		hook(ctx, theme)
	}

	return theme, nil
}

// LoadDirectory registers every stylesheet directly inside path.
//
// Files are checked concurrently. A file that disappears between listing and
// loading does not abort the others: the themes that loaded are returned
// together with the joined per-file errors.
func (l *Loader) LoadDirectory(ctx context.Context, path string) ([]*registry.Theme, error) {
	if strings.TrimSpace(path) == "" {
		return nil, &ConfigError{Op: "load directory", Msg: "path is required"}
	}

	entries, err := afero.ReadDir(l.fs, path)
	if err != nil {
		return nil, &ListingError{Path: path, Err: err}
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !IsStylesheet(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(path, e.Name()))
	}

	slog.Debug("Loading theme directory", "path", path, "entries", len(entries), "stylesheets", len(files))
	return l.loadAll(ctx, files)
}

// LoadGlob registers every stylesheet under root matching pattern, for
// example "**/*.less".
func (l *Loader) LoadGlob(ctx context.Context, root, pattern string) ([]*registry.Theme, error) {
	if strings.TrimSpace(root) == "" {
		return nil, &ConfigError{Op: "load glob", Msg: "root is required"}
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, &ConfigError{Op: "load glob", Msg: fmt.Sprintf("invalid pattern %q", pattern)}
	}

	fsys := afero.NewIOFS(afero.NewBasePathFs(l.fs, root))
	matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, &ListingError{Path: root, Err: err}
	}

	var files []string
	for _, m := range matches {
		if IsStylesheet(m) {
			files = append(files, filepath.Join(root, filepath.FromSlash(m)))
		}
	}

	slog.Debug("Loading theme glob", "root", root, "pattern", pattern, "stylesheets", len(files))
	return l.loadAll(ctx, files)
}

func (l *Loader) loadAll(ctx context.Context, files []string) ([]*registry.Theme, error) {
	themes := make([]*registry.Theme, len(files))
	errs := make([]error, len(files))

	var g errgroup.Group
	g.SetLimit(maxConcurrentLoads)
	for i, file := range files {
		g.Go(func() error {
			themes[i], errs[i] = l.LoadFile(ctx, file, Options{})
			return nil
		})
	}
	_ = g.Wait()

	loaded := slices.DeleteFunc(themes, func(t *registry.Theme) bool { return t == nil })
	return loaded, errors.Join(errs...)
}

// LoadAndCompile reads the theme source, moves its scrollbar rules aside,
// compiles the rest and injects it. The previous stylesheet is removed only
// after the new one is in place; on any failure the theme keeps its previous
// applied state.
func (l *Loader) LoadAndCompile(ctx context.Context, theme *registry.Theme) error {
	theme.Lock()
	defer theme.Unlock()

	ctx, span := l.tracer.Start(ctx, "themes.load_and_compile", trace.WithAttributes(
		attribute.String("theme.name", theme.Name),
		attribute.String("theme.path", theme.Source.Path),
	))
	defer span.End()

	if err := l.loadAndCompile(ctx, theme); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load and compile failed")
		return err
	}
	span.SetStatus(codes.Ok, "theme applied")
	return nil
}

func (l *Loader) loadAndCompile(ctx context.Context, theme *registry.Theme) error {
	path := theme.Source.Path

	_, readSpan := l.tracer.Start(ctx, "themes.read")
	data, err := afero.ReadFile(l.fs, path)
	readSpan.End()
	if err != nil {
		return &IOError{Op: "read", Path: path, Err: err}
	}

	content, rules := source.ExtractScrollbarRules(string(data))

	compileCtx, compileSpan := l.tracer.Start(ctx, "themes.compile")
	res, err := l.compiler.Compile(compileCtx, compiler.Request{
		Content:    content,
		ScopeClass: theme.ScopeClass,
		SourcePath: path,
	})
	compileSpan.End()
	if err != nil {
		return err
	}

	injectCtx, injectSpan := l.tracer.Start(ctx, "themes.inject")
	defer injectSpan.End()

	handle, err := l.surface.Insert(injectCtx, res.CSS)
	if err != nil {
		return fmt.Errorf("injecting stylesheet for theme %q: %w", theme.Name, err)
	}

	released := theme.Apply(registry.Applied{
		ScrollbarRules: rules,
		CSS:            res.CSS,
		Imports:        res.Imports,
		Handle:         handle,
	})
	if slices.Contains(released, handle) {
		slog.Debug("Theme was replaced while compiling, dropping its stylesheet", "name", theme.Name, "handle", handle)
	}
	for _, h := range released {
		if err := l.surface.Remove(injectCtx, h); err != nil {
			slog.Warn("Failed to remove stylesheet", "theme", theme.Name, "handle", h, "error", err)
		}
	}

	slog.Debug("Applied theme", "name", theme.Name, "handle", handle, "scrollbar_rules", len(rules), "released", len(released))
	return nil
}

// IsStylesheet reports whether name has one of Extensions.
func IsStylesheet(name string) bool {
	return slices.Contains(Extensions, strings.TrimPrefix(filepath.Ext(name), "."))
}

var nonWord = regexp.MustCompile(`[^\w]+`)

func themeName(path string, opts Options) string {
	if opts.Name != "" {
		return opts.Name
	}
	if opts.Title != "" {
		return slug(opts.Title)
	}
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.TrimSuffix(base, ".min")
	return slug(base)
}

func slug(s string) string {
	s = nonWord.ReplaceAllString(strings.ToLower(s), "-")
	return strings.Trim(s, "-")
}

// DisplayName turns a theme name into a label: "solarized-dark" becomes
// "Solarized Dark".
func DisplayName(name string) string {
	words := strings.Fields(strings.NewReplacer("-", " ", "_", " ").Replace(name))
	return cases.Title(language.English).String(strings.Join(words, " "))
}
