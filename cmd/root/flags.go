package root

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/docker/themekit/pkg/paths"
	"github.com/docker/themekit/pkg/themes"
	"github.com/docker/themekit/pkg/themes/loader"
	"github.com/docker/themekit/pkg/themes/registry"
	"github.com/docker/themekit/pkg/userconfig"
)

type themeFlags struct {
	dirs      []string
	pattern   string
	prefsPath string
}

func addThemeFlags(cmd *cobra.Command, f *themeFlags) {
	cmd.Flags().StringSliceVar(&f.dirs, "themes", nil, "Directories to load themes from (default: ~/.config/themekit/themes)")
	cmd.Flags().StringVar(&f.pattern, "glob", "", "Load themes matching a pattern relative to each directory, e.g. '**/*.less'")
	cmd.Flags().StringVar(&f.prefsPath, "prefs", "", "Path to the preferences file (default: ~/.config/themekit/config.yaml)")
}

func (f *themeFlags) preferencesPath() (string, error) {
	if f.prefsPath == "" {
		return userconfig.Path(), nil
	}
	return expandHome(f.prefsPath)
}

// loadThemes loads every theme found in the configured directories. A
// directory holding a package.json is loaded as a theme package. The default
// themes directory may be missing.
func (f *themeFlags) loadThemes(ctx context.Context, m *themes.Manager) ([]*registry.Theme, error) {
	dirs := f.dirs
	if len(dirs) == 0 {
		def := paths.GetThemesDir()
		if _, err := os.Stat(def); errors.Is(err, os.ErrNotExist) {
			slog.Debug("No themes directory", "path", def)
			return nil, nil
		}
		dirs = []string{def}
	}

	var (
		loaded []*registry.Theme
		errs   []error
	)
	for _, dir := range dirs {
		dir, err := expandHome(dir)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		switch {
		case isPackageDir(dir):
			theme, err := m.LoadPackageDir(ctx, dir)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			loaded = append(loaded, theme)
		case f.pattern != "":
			found, err := m.LoadGlob(ctx, dir, f.pattern)
			loaded = append(loaded, found...)
			errs = append(errs, err)
		default:
			found, err := m.LoadDirectory(ctx, dir)
			loaded = append(loaded, found...)
			errs = append(errs, err)
		}
	}
	return loaded, errors.Join(errs...)
}

func looksLikePath(arg string) bool {
	return strings.ContainsRune(arg, filepath.Separator) || loader.IsStylesheet(arg)
}

func isPackageDir(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, loader.PackageFile))
	return err == nil && !info.IsDir()
}

// loadSources loads each argument as a theme file or a theme package
// directory.
func loadSources(ctx context.Context, m *themes.Manager, args []string) ([]*registry.Theme, error) {
	var loaded []*registry.Theme
	for _, arg := range args {
		path, err := expandHome(arg)
		if err != nil {
			return nil, err
		}

		var theme *registry.Theme
		if isPackageDir(path) {
			theme, err = m.LoadPackageDir(ctx, path)
		} else {
			theme, err = m.LoadFile(ctx, path, loader.Options{})
		}
		if err != nil {
			return nil, err
		}
		loaded = append(loaded, theme)
	}
	return loaded, nil
}

// expandHome resolves a leading "~" in a path flag. Shells leave it alone
// in forms like --out=~/build, so paths from flags and arguments all go
// through here. "~user" paths are returned as is.
func expandHome(path string) (string, error) {
	rest, ok := strings.CutPrefix(path, "~")
	if !ok || (rest != "" && !os.IsPathSeparator(rest[0])) {
		return path, nil
	}

	homeDir := paths.GetHomeDir()
	if homeDir == "" {
		return "", &loader.ConfigError{Op: "expand path", Msg: fmt.Sprintf("cannot resolve %q without a home directory", path)}
	}
	return filepath.Join(homeDir, rest), nil
}

// fixedPreferences select nothing and use the default presentation. They
// back commands that compile themes on demand.
type fixedPreferences struct {
	themes []string
}

func (p fixedPreferences) Themes() []string       { return p.themes }
func (p fixedPreferences) CustomScrollbars() bool { return true }
func (p fixedPreferences) FontSize() string       { return userconfig.DefaultFontSize }
func (p fixedPreferences) LineHeight() string     { return userconfig.DefaultLineHeight }
func (p fixedPreferences) FontType() string       { return userconfig.DefaultFontType }
