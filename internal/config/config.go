// Package config handles configuration file loading and parsing.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/jmylchreest/toaster/internal/model"
)

// Default configuration values.
const (
	DefaultAutohide     = 5 * time.Second
	DefaultPollInterval = 10 * time.Second
	DefaultListen       = "127.0.0.1:7077"
	DefaultThemeName    = "default"
)

// Duration is a time.Duration that can be unmarshaled from human-readable strings.
// Supports formats like "5s", "1m", "1h30m", or integer milliseconds.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for TOML parsing.
func (d *Duration) UnmarshalText(text []byte) error {
	s := string(text)

	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		*d = Duration(time.Duration(ms) * time.Millisecond)
		return nil
	}

	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: must be like '5s', '1m', '1h30m' or milliseconds: %w", s, err)
	}
	*d = Duration(dur)
	return nil
}

// MarshalText implements encoding.TextMarshaler for TOML output.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Config is the configuration shared by toaster and toasterd.
// Loaded from ~/.config/toaster/toaster.toml
type Config struct {
	Display  DisplayConfig `toml:"display"`
	Timeouts TimeoutConfig `toml:"timeouts"`
	Audio    AudioConfig   `toml:"audio"`
	Theme    ThemeConfig   `toml:"theme"`
	TUI      TUIConfig     `toml:"tui"`
	HTTP     HTTPConfig    `toml:"http"`
}

// DisplayConfig contains desktop popup settings.
type DisplayConfig struct {
	Position string `toml:"position"` // "top-right", "bottom-center", etc.
	OffsetX  int    `toml:"offset_x"` // Pixels from screen edge
	OffsetY  int    `toml:"offset_y"` // Pixels from screen edge
	Width    int    `toml:"width"`    // Popup width in pixels
	Gap      int    `toml:"gap"`      // Gap between stacked popups
}

// TimeoutConfig contains toast timeouts.
type TimeoutConfig struct {
	Autohide Duration `toml:"autohide"` // Delay before a non-persistent toast hides itself
}

// AudioConfig contains audio settings.
type AudioConfig struct {
	Enabled bool        `toml:"enabled"`
	Volume  int         `toml:"volume"` // 0-100
	Sounds  SoundConfig `toml:"sounds"`
}

// SoundConfig contains per-style sound file paths.
type SoundConfig struct {
	Success string `toml:"success"`
	Warning string `toml:"warning"`
	Danger  string `toml:"danger"`
	Default string `toml:"default"`
}

// ThemeConfig contains theme settings.
type ThemeConfig struct {
	Name        string `toml:"name"`         // Theme name without .css extension
	ColorScheme string `toml:"color_scheme"` // "system", "light", or "dark"
}

// TUIConfig holds terminal renderer settings.
type TUIConfig struct {
	ShowHelp     bool     `toml:"show_help"`
	PollURL      string   `toml:"poll_url"`      // Endpoint returning a toast payload, empty disables polling
	PollInterval Duration `toml:"poll_interval"` // Delay between polls
}

// HTTPConfig holds the HTTP API settings.
type HTTPConfig struct {
	Listen  string `toml:"listen"`  // Empty disables the API
	Metrics bool   `toml:"metrics"` // Serve /metrics
}

// ColorScheme represents the color scheme preference.
type ColorScheme string

const (
	ColorSchemeSystem ColorScheme = "system"
	ColorSchemeLight  ColorScheme = "light"
	ColorSchemeDark   ColorScheme = "dark"
)

// ValidColorSchemes returns all valid color scheme values.
func ValidColorSchemes() []ColorScheme {
	return []ColorScheme{ColorSchemeSystem, ColorSchemeLight, ColorSchemeDark}
}

// Position represents a popup position on screen.
type Position string

const (
	PositionTopLeft      Position = "top-left"
	PositionTopRight     Position = "top-right"
	PositionTopCenter    Position = "top-center"
	PositionBottomLeft   Position = "bottom-left"
	PositionBottomRight  Position = "bottom-right"
	PositionBottomCenter Position = "bottom-center"
)

// ValidPositions returns all valid position values.
func ValidPositions() []Position {
	return []Position{
		PositionTopLeft,
		PositionTopRight,
		PositionTopCenter,
		PositionBottomLeft,
		PositionBottomRight,
		PositionBottomCenter,
	}
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Display: DisplayConfig{
			Position: string(PositionBottomRight),
			OffsetX:  12,
			OffsetY:  12,
			Width:    350,
			Gap:      8,
		},
		Timeouts: TimeoutConfig{
			Autohide: Duration(DefaultAutohide),
		},
		Audio: AudioConfig{
			Enabled: false,
			Volume:  80,
		},
		Theme: ThemeConfig{
			Name:        DefaultThemeName,
			ColorScheme: string(ColorSchemeSystem),
		},
		TUI: TUIConfig{
			ShowHelp:     true,
			PollInterval: Duration(DefaultPollInterval),
		},
		HTTP: HTTPConfig{
			Listen:  DefaultListen,
			Metrics: true,
		},
	}
}

// Dir returns the configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config.
func Dir() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "toaster")
}

// Path returns the path to the config file.
func Path() string {
	dir := Dir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "toaster.toml")
}

// Load loads configuration from the specified path.
// If path is empty, uses the default config path.
// Returns the default config if the file doesn't exist.
func Load(path string) (*Config, error) {
	if path == "" {
		path = Path()
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Defaults are overlaid with the file contents
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the specified path.
// If path is empty, uses the default config path.
func (c *Config) Save(path string) error {
	if path == "" {
		path = Path()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write atomically via temp file
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return os.Rename(tmpPath, path)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if !slices.Contains(ValidPositions(), Position(c.Display.Position)) {
		return fmt.Errorf("invalid position %q, must be one of: %v", c.Display.Position, ValidPositions())
	}
	if c.Display.Width < 100 || c.Display.Width > 1000 {
		return fmt.Errorf("width must be between 100 and 1000, got %d", c.Display.Width)
	}
	if c.Display.Gap < 0 {
		return fmt.Errorf("gap must not be negative, got %d", c.Display.Gap)
	}

	if c.Timeouts.Autohide.Duration() <= 0 {
		return fmt.Errorf("autohide must be positive, got %s", c.Timeouts.Autohide.Duration())
	}

	if c.Audio.Volume < 0 || c.Audio.Volume > 100 {
		return fmt.Errorf("volume must be between 0 and 100, got %d", c.Audio.Volume)
	}

	if !slices.Contains(ValidColorSchemes(), ColorScheme(c.Theme.ColorScheme)) {
		return fmt.Errorf("invalid color_scheme %q, must be one of: %v", c.Theme.ColorScheme, ValidColorSchemes())
	}

	if c.TUI.PollURL != "" && c.TUI.PollInterval.Duration() < time.Second {
		return fmt.Errorf("poll_interval must be at least 1s, got %s", c.TUI.PollInterval.Duration())
	}

	return nil
}

// SoundForClass returns the sound file path for the given toast style.
// Expands ~ to home directory.
func (c *Config) SoundForClass(class string) string {
	var path string
	switch class {
	case model.ClassSuccess:
		path = c.Audio.Sounds.Success
	case model.ClassWarning:
		path = c.Audio.Sounds.Warning
	case model.ClassDanger:
		path = c.Audio.Sounds.Danger
	}
	if path == "" {
		path = c.Audio.Sounds.Default
	}
	return expandPath(path)
}

// ThemePath returns the path to a user theme file.
func ThemePath(name string) string {
	return filepath.Join(Dir(), "themes", name+".css")
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
