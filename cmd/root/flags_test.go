package root

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docker/themekit/pkg/themes"
	"github.com/docker/themekit/pkg/themes/loader"
)

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()

	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func newTestManager(t *testing.T) *themes.Manager {
	t.Helper()

	m, err := themes.New(themes.Options{Preferences: fixedPreferences{}})
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func themeNames(m *themes.Manager) []string {
	var names []string
	for _, theme := range m.Themes() {
		names = append(names, theme.Name)
	}
	return names
}

func TestLoadThemes(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"flat/dark.less":          "p{color:black}",
		"flat/light.css":          "p{color:white}",
		"flat/notes.txt":          "not a theme",
		"nested/a/solarized.less": "p{}",
		"nested/b/monokai.css":    "p{}",
		"pkg/night/package.json":  `{"name": "night-owl", "theme": "main.less"}`,
		"pkg/night/main.less":     "p{}",
		"pkg/night/unrelated.css": "p{}",
	})

	tests := []struct {
		name    string
		flags   themeFlags
		want    []string
		wantErr bool
	}{
		{
			name:  "directory",
			flags: themeFlags{dirs: []string{filepath.Join(dir, "flat")}},
			want:  []string{"dark", "light"},
		},
		{
			name:  "glob",
			flags: themeFlags{dirs: []string{filepath.Join(dir, "nested")}, pattern: "**/*.{css,less}"},
			want:  []string{"monokai", "solarized"},
		},
		{
			name:  "package directory",
			flags: themeFlags{dirs: []string{filepath.Join(dir, "pkg", "night")}},
			want:  []string{"night-owl"},
		},
		{
			name:    "missing directory",
			flags:   themeFlags{dirs: []string{filepath.Join(dir, "missing")}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := newTestManager(t)
			_, err := tt.flags.loadThemes(t.Context(), m)
			if tt.wantErr {
				var listErr *loader.ListingError
				require.ErrorAs(t, err, &listErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, themeNames(m))
		})
	}
}

func TestLoadSources(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"dark.less":        "p{}",
		"ext/package.json": `{"name": "ext", "title": "Extension Theme", "theme": {"file": "theme.css", "dark": true}}`,
		"ext/theme.css":    "p{}",
	})

	m := newTestManager(t)
	loaded, err := loadSources(t.Context(), m, []string{filepath.Join(dir, "dark.less"), filepath.Join(dir, "ext")})
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "dark", loaded[0].Name)
	assert.Equal(t, "Extension Theme", loaded[1].DisplayName())
	assert.True(t, loaded[1].Meta().Dark)

	_, err = loadSources(t.Context(), m, []string{filepath.Join(dir, "missing.css")})
	require.ErrorIs(t, err, loader.ErrNotFound)
}

func TestLooksLikePath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		arg  string
		want bool
	}{
		{"dark", false},
		{"solarized-dark", false},
		{"dark.less", true},
		{"dark.css", true},
		{"./themes/dark", true},
		{"/abs/dark", true},
	}
	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, looksLikePath(tt.arg))
		})
	}
}

func TestExpandHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	tests := []struct {
		input string
		want  string
	}{
		{"~", home},
		{"~/", home},
		{"~/themes", filepath.Join(home, "themes")},
		{"~/.themekit/applied", filepath.Join(home, ".themekit", "applied")},
		{"~someone/themes", "~someone/themes"},
		{"themes/~/dark.less", "themes/~/dark.less"},
		{"./dark.less", "./dark.less"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := expandHome(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExpandHome_NoHome(t *testing.T) {
	t.Setenv("HOME", "")

	_, err := expandHome("~/themes")
	var cfgErr *loader.ConfigError
	require.ErrorAs(t, err, &cfgErr)

	got, err := expandHome("/abs/themes")
	require.NoError(t, err)
	assert.Equal(t, "/abs/themes", got)
}

func TestPathFlags_ExpandHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	writeFiles(t, home, map[string]string{
		"my-themes/dark.less": "p { color: #eee; }",
		"my-themes/light.css": "p{}",
		"prefs.yaml":          "settings:\n  themes: [light]\n",
	})

	out, _, err := execute(t, "list", "--themes", "~/my-themes", "--prefs", "~/prefs.yaml")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[1], "  dark"), lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "* light"), lines[2])

	out, _, err = execute(t, "compile", "--no-color", "~/my-themes/dark.less")
	require.NoError(t, err)
	assert.Contains(t, out, "color: #eee;")

	out, _, err = execute(t, "inspect", "dark", "--themes=~/my-themes")
	require.NoError(t, err)
	assert.Contains(t, out, "Source: "+filepath.Join(home, "my-themes", "dark.less"))
}
