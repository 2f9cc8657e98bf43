// Package userconfig provides the user preferences themekit reacts to.
// They are stored in ~/.config/themekit/config.yaml.
package userconfig

import (
	"bytes"
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/goccy/go-yaml"
	"github.com/natefinch/atomic"

	"github.com/docker/themekit/pkg/paths"
	"github.com/docker/themekit/pkg/themes/events"
)

// CurrentVersion is the current version of the user config format
const CurrentVersion = "v1"

const (
	DefaultTheme      = "default"
	DefaultFontSize   = "12px"
	DefaultLineHeight = "1.25"
	DefaultFontType   = "'SourceCodePro-Medium', monospace"
)

// ErrUnknownKey is returned by Get and Set for keys that are not preferences.
var ErrUnknownKey = errors.New("unknown preference")

// Settings are the stored preferences. Unset fields fall back to defaults.
type Settings struct {
	// Themes are the selected theme names in priority order.
	Themes []string `yaml:"themes,omitempty"`
	// CustomScrollbars enables the scrollbar rules of the selected themes.
	CustomScrollbars *bool  `yaml:"custom_scrollbars,omitempty"`
	FontSize         string `yaml:"font_size,omitempty"`
	LineHeight       string `yaml:"line_height,omitempty"`
	FontType         string `yaml:"font_type,omitempty"`
}

// Config is the user preference store. Changes made through Set or picked
// up by Reload are published on the topic named after the key.
type Config struct {
	mu        sync.Mutex
	path      string
	publisher events.Publisher

	// Version is the config format version
	Version  string    `yaml:"version,omitempty"`
	Settings *Settings `yaml:"settings,omitempty"`
}

// Path returns the path to the config file
func Path() string {
	return filepath.Join(paths.GetConfigDir(), "config.yaml")
}

// Load reads the preferences at path. A missing file yields the defaults.
// publisher may be nil.
func Load(path string, publisher events.Publisher) (*Config, error) {
	config, err := readConfig(path)
	if err != nil {
		return nil, err
	}
	if publisher == nil {
		publisher = events.Discard
	}
	config.path = path
	config.publisher = publisher
	return config, nil
}

// readConfig reads and parses the config file, returning an empty config if file doesn't exist.
func readConfig(configPath string) (*Config, error) {
	config := &Config{Settings: &Settings{}}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if config.Settings == nil {
		config.Settings = &Settings{}
	}
	if err := config.Settings.validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}

	return config, nil
}

// File returns the path the config is read from and saved to.
func (c *Config) File() string {
	return c.path
}

// Save saves the configuration to its file
func (c *Config) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saveTo(c.path)
}

func (c *Config) saveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Ensure version is always set to current version when saving
	c.Version = CurrentVersion

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return atomic.WriteFile(path, bytes.NewReader(data))
}

func (c *Config) Themes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Settings.themes()
}

func (c *Config) CustomScrollbars() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Settings.customScrollbars()
}

func (c *Config) FontSize() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cmp.Or(c.Settings.FontSize, DefaultFontSize)
}

func (c *Config) LineHeight() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cmp.Or(c.Settings.LineHeight, DefaultLineHeight)
}

func (c *Config) FontType() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cmp.Or(c.Settings.FontType, DefaultFontType)
}

// Get returns the effective value of a preference.
func (c *Config) Get(key events.Topic) (any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Settings.get(key)
}

// Set validates and stores a preference, saves the file and publishes the
// key when the effective value changed. String values are parsed, so
// "true" works for customScrollbars and "a,b" for themes.
func (c *Config) Set(key events.Topic, value any) error {
	c.mu.Lock()

	updated := *c.Settings
	if err := updated.set(key, value); err != nil {
		c.mu.Unlock()
		return err
	}
	if err := updated.validate(); err != nil {
		c.mu.Unlock()
		return err
	}

	before, _ := c.Settings.get(key)
	after, _ := updated.get(key)
	previous := c.Settings
	c.Settings = &updated
	if err := c.saveTo(c.path); err != nil {
		c.Settings = previous
		c.mu.Unlock()
		return err
	}
	c.mu.Unlock()

	if !equalValues(before, after) {
		slog.Debug("Preference changed", "key", key, "value", after)
		c.publisher.Publish(events.Event{Topic: key})
	}
	return nil
}

// Reload re-reads the config file and publishes every preference whose
// effective value changed.
func (c *Config) Reload() error {
	fresh, err := readConfig(c.path)
	if err != nil {
		return err
	}

	c.mu.Lock()
	old := c.Settings
	c.Version = fresh.Version
	c.Settings = fresh.Settings
	c.mu.Unlock()

	var changed []events.Topic
	for _, key := range events.PreferenceTopics {
		before, _ := old.get(key)
		after, _ := fresh.Settings.get(key)
		if !equalValues(before, after) {
			changed = append(changed, key)
		}
	}

	slog.Debug("Reloaded preferences", "path", c.path, "changed", changed)
	for _, key := range changed {
		c.publisher.Publish(events.Event{Topic: key})
	}
	return nil
}

func (s *Settings) themes() []string {
	if len(s.Themes) == 0 {
		return []string{DefaultTheme}
	}
	return slices.Clone(s.Themes)
}

func (s *Settings) customScrollbars() bool {
	if s.CustomScrollbars == nil {
		return true
	}
	return *s.CustomScrollbars
}

func (s *Settings) get(key events.Topic) (any, error) {
	switch key {
	case events.TopicThemes:
		return s.themes(), nil
	case events.TopicCustomScrollbars:
		return s.customScrollbars(), nil
	case events.TopicFontSize:
		return cmp.Or(s.FontSize, DefaultFontSize), nil
	case events.TopicLineHeight:
		return cmp.Or(s.LineHeight, DefaultLineHeight), nil
	case events.TopicFontType:
		return cmp.Or(s.FontType, DefaultFontType), nil
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownKey, key)
	}
}

func (s *Settings) set(key events.Topic, value any) error {
	switch key {
	case events.TopicThemes:
		switch v := value.(type) {
		case []string:
			s.Themes = slices.Clone(v)
		case string:
			s.Themes = nil
			for name := range strings.SplitSeq(v, ",") {
				s.Themes = append(s.Themes, strings.TrimSpace(name))
			}
		default:
			return fmt.Errorf("%s must be a list of theme names, got %T", key, value)
		}
	case events.TopicCustomScrollbars:
		switch v := value.(type) {
		case bool:
			s.CustomScrollbars = &v
		case string:
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%s must be true or false: %w", key, err)
			}
			s.CustomScrollbars = &b
		default:
			return fmt.Errorf("%s must be a boolean, got %T", key, value)
		}
	case events.TopicFontSize, events.TopicLineHeight, events.TopicFontType:
		v, ok := value.(string)
		if !ok {
			return fmt.Errorf("%s must be a string, got %T", key, value)
		}
		switch key {
		case events.TopicFontSize:
			s.FontSize = v
		case events.TopicLineHeight:
			s.LineHeight = v
		default:
			s.FontType = v
		}
	default:
		return fmt.Errorf("%w %q", ErrUnknownKey, key)
	}
	return nil
}

var (
	cssLength  = regexp.MustCompile(`^\d+(\.\d+)?(px|pt|em|rem)$`)
	lineHeight = regexp.MustCompile(`^\d+(\.\d+)?(px|em|rem|%)?$`)
)

func (s *Settings) validate() error {
	for _, name := range s.Themes {
		if strings.TrimSpace(name) == "" {
			return errors.New("theme names cannot be empty")
		}
	}
	if s.FontSize != "" && !cssLength.MatchString(s.FontSize) {
		return fmt.Errorf("invalid font size %q: must be a CSS length such as 12px", s.FontSize)
	}
	if s.LineHeight != "" && !lineHeight.MatchString(s.LineHeight) {
		return fmt.Errorf("invalid line height %q", s.LineHeight)
	}
	return nil
}

func equalValues(a, b any) bool {
	as, aok := a.([]string)
	bs, bok := b.([]string)
	if aok && bok {
		return slices.Equal(as, bs)
	}
	return a == b
}
