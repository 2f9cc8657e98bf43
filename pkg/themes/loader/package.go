package loader

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/goccy/go-yaml"
	"github.com/spf13/afero"

	"github.com/docker/themekit/pkg/themes/registry"
)

// PackageFile is the descriptor ReadPackage looks for in a package root.
const PackageFile = "package.json"

// PackageDescriptor describes an installed package that ships a theme.
type PackageDescriptor struct {
	Path     string          `json:"path" yaml:"path"`
	Metadata PackageMetadata `json:"metadata" yaml:"metadata"`
}

type PackageMetadata struct {
	Name  string    `json:"name,omitempty" yaml:"name,omitempty"`
	Title string    `json:"title,omitempty" yaml:"title,omitempty"`
	Theme ThemeSpec `json:"theme" yaml:"theme"`
}

// ThemeSpec is the "theme" entry of a package. It is either the theme file
// or an object with the file and its options.
type ThemeSpec struct {
	File         string `json:"file" yaml:"file"`
	Dark         bool   `json:"dark,omitempty" yaml:"dark,omitempty"`
	AddModeClass bool   `json:"addModeClass,omitempty" yaml:"addModeClass,omitempty"`
}

func (t *ThemeSpec) UnmarshalYAML(unmarshal func(any) error) error {
	var file string
	if err := unmarshal(&file); err == nil {
		*t = ThemeSpec{File: file}
		return nil
	}

	type themeSpecAlias ThemeSpec
	var spec themeSpecAlias
	if err := unmarshal(&spec); err != nil {
		return err
	}
	*t = ThemeSpec(spec)
	return nil
}

// ReadPackage reads the package.json in dir.
func ReadPackage(fsys afero.Fs, dir string) (PackageDescriptor, error) {
	path := filepath.Join(dir, PackageFile)
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return PackageDescriptor{}, &IOError{Op: "read", Path: path, Err: err}
	}

	var meta PackageMetadata
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return PackageDescriptor{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	return PackageDescriptor{Path: dir, Metadata: meta}, nil
}

// LoadPackage loads the theme declared by a package, resolving its file
// relative to the package root and using the package name and title as
// naming overrides.
func (l *Loader) LoadPackage(ctx context.Context, pkg PackageDescriptor) (*registry.Theme, error) {
	file := pkg.Metadata.Theme.File
	if file == "" {
		return nil, &ConfigError{Op: "load package", Msg: fmt.Sprintf("package %q declares no theme file", pkg.Path)}
	}
	if !filepath.IsAbs(file) {
		file = filepath.Join(pkg.Path, file)
	}

	return l.LoadFile(ctx, file, Options{
		Name:         pkg.Metadata.Name,
		Title:        pkg.Metadata.Title,
		Dark:         pkg.Metadata.Theme.Dark,
		AddModeClass: pkg.Metadata.Theme.AddModeClass,
	})
}
