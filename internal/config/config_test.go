package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "bottom-right", cfg.Display.Position)
	assert.Equal(t, 350, cfg.Display.Width)
	assert.Equal(t, 5*time.Second, cfg.Timeouts.Autohide.Duration())
	assert.False(t, cfg.Audio.Enabled)
	assert.Equal(t, 80, cfg.Audio.Volume)
	assert.Equal(t, "default", cfg.Theme.Name)
	assert.Equal(t, "system", cfg.Theme.ColorScheme)
	assert.True(t, cfg.TUI.ShowHelp)
	assert.Empty(t, cfg.TUI.PollURL)
	assert.Equal(t, DefaultListen, cfg.HTTP.Listen)
	assert.True(t, cfg.HTTP.Metrics)
	require.NoError(t, cfg.Validate())
}

func TestLoad_DefaultsWhenNoFile(t *testing.T) {
	cfg, err := Load("/nonexistent/path/toaster.toml")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_ParsesTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "toaster.toml")

	content := `
[display]
position = "top-center"
offset_x = 20
offset_y = 30
width = 400
gap = 4

[timeouts]
autohide = "8s"

[audio]
enabled = true
volume = 50

[audio.sounds]
success = "/usr/share/sounds/ok.wav"
default = "/usr/share/sounds/ding.ogg"

[theme]
name = "nord"
color_scheme = "dark"

[tui]
show_help = false
poll_url = "http://localhost:8000/toast"
poll_interval = "30s"

[http]
listen = ":9090"
metrics = false
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "top-center", cfg.Display.Position)
	assert.Equal(t, 20, cfg.Display.OffsetX)
	assert.Equal(t, 30, cfg.Display.OffsetY)
	assert.Equal(t, 400, cfg.Display.Width)
	assert.Equal(t, 4, cfg.Display.Gap)
	assert.Equal(t, 8*time.Second, cfg.Timeouts.Autohide.Duration())
	assert.True(t, cfg.Audio.Enabled)
	assert.Equal(t, 50, cfg.Audio.Volume)
	assert.Equal(t, "/usr/share/sounds/ok.wav", cfg.Audio.Sounds.Success)
	assert.Equal(t, "nord", cfg.Theme.Name)
	assert.Equal(t, "dark", cfg.Theme.ColorScheme)
	assert.False(t, cfg.TUI.ShowHelp)
	assert.Equal(t, "http://localhost:8000/toast", cfg.TUI.PollURL)
	assert.Equal(t, 30*time.Second, cfg.TUI.PollInterval.Duration())
	assert.Equal(t, ":9090", cfg.HTTP.Listen)
	assert.False(t, cfg.HTTP.Metrics)
}

func TestLoad_PartialConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "toaster.toml")

	content := `
[timeouts]
autohide = "2500"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	// Plain numbers are milliseconds
	assert.Equal(t, 2500*time.Millisecond, cfg.Timeouts.Autohide.Duration())

	// Unchanged fields keep their defaults
	assert.Equal(t, "bottom-right", cfg.Display.Position)
	assert.True(t, cfg.TUI.ShowHelp)
}

func TestLoad_InvalidTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "toaster.toml")

	require.NoError(t, os.WriteFile(path, []byte(`this is not valid toml [`), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_InvalidDuration(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "toaster.toml")

	require.NoError(t, os.WriteFile(path, []byte("[timeouts]\nautohide = \"soon\"\n"), 0644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "soon")
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "toaster.toml")

	require.NoError(t, os.WriteFile(path, []byte("[display]\nposition = \"middle\"\n"), 0644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"bad position", func(c *Config) { c.Display.Position = "left" }, "invalid position"},
		{"narrow", func(c *Config) { c.Display.Width = 50 }, "width"},
		{"negative gap", func(c *Config) { c.Display.Gap = -1 }, "gap"},
		{"zero autohide", func(c *Config) { c.Timeouts.Autohide = 0 }, "autohide"},
		{"loud", func(c *Config) { c.Audio.Volume = 101 }, "volume"},
		{"bad scheme", func(c *Config) { c.Theme.ColorScheme = "sepia" }, "color_scheme"},
		{"fast poll", func(c *Config) {
			c.TUI.PollURL = "http://localhost"
			c.TUI.PollInterval = Duration(100 * time.Millisecond)
		}, "poll_interval"},
		{"fast interval without url", func(c *Config) {
			c.TUI.PollInterval = Duration(100 * time.Millisecond)
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_Save(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "subdir", "toaster.toml")

	cfg := DefaultConfig()
	cfg.Timeouts.Autohide = Duration(90 * time.Second)
	cfg.Audio.Sounds.Danger = "/tmp/alarm.wav"

	require.NoError(t, cfg.Save(path))

	_, err := os.Stat(path)
	require.NoError(t, err)
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, loaded.Timeouts.Autohide.Duration())
	assert.Equal(t, "/tmp/alarm.wav", loaded.Audio.Sounds.Danger)
}

func TestConfig_SoundForClass(t *testing.T) {
	t.Setenv("HOME", "/home/toast")

	cfg := DefaultConfig()
	cfg.Audio.Sounds = SoundConfig{
		Success: "/sounds/ok.wav",
		Danger:  "~/sounds/alarm.wav",
		Default: "/sounds/ding.wav",
	}

	assert.Equal(t, "/sounds/ok.wav", cfg.SoundForClass("success-subtle"))
	assert.Equal(t, "/home/toast/sounds/alarm.wav", cfg.SoundForClass("danger-subtle"))
	assert.Equal(t, "/sounds/ding.wav", cfg.SoundForClass("warning-subtle"))
	assert.Equal(t, "/sounds/ding.wav", cfg.SoundForClass("info"))

	cfg.Audio.Sounds.Default = ""
	assert.Empty(t, cfg.SoundForClass("info"))
}

func TestPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")
	assert.Equal(t, "/custom/config/toaster/toaster.toml", Path())
	assert.Equal(t, "/custom/config/toaster/themes/nord.css", ThemePath("nord"))
}

func TestPathDefault(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "")
	assert.Contains(t, Path(), filepath.Join(".config", "toaster", "toaster.toml"))
}

func TestDuration_MarshalText(t *testing.T) {
	text, err := Duration(1500 * time.Millisecond).MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1.5s", string(text))

	var d Duration
	require.NoError(t, d.UnmarshalText(text))
	assert.Equal(t, 1500*time.Millisecond, d.Duration())
}
