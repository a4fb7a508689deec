package hexodsp

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

type (
	// Settings are the engine parameters that are fixed for the lifetime of
	// an engine instance. The defaults are embedded in the binary; a user
	// settings.yml can override any of them.
	Settings struct {
		SampleRate         float32
		SmoothingMs        float32
		Channels           ChannelSettings
		GraphSendTimeoutMs int
		MonitorHistory     int
		LogLevel           string
		YmlError           error `yaml:"-"`
	}

	// ChannelSettings are the capacities of the bounded channels between the
	// control side and the audio side.
	ChannelSettings struct {
		Graph   int
		Quick   int
		Pattern int
		Monitor int
		Drop    int
	}
)

//go:embed settings.yml
var defaultSettingsYaml []byte

// DefaultSettings returns the embedded default settings.
func DefaultSettings() Settings {
	var s Settings
	if err := yaml.UnmarshalStrict(defaultSettingsYaml, &s); err != nil {
		panic(fmt.Errorf("failed to unmarshal default settings: %w", err))
	}
	return s
}

// ReadCustomConfigYml reads filename from the hexodsp directory under the user
// config dir into target, which needs to be a pointer.
func ReadCustomConfigYml(filename string, target any) (exists bool, err error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return false, err
	}
	bytes, err := os.ReadFile(filepath.Join(configDir, "hexodsp", filename))
	if err != nil {
		return false, err
	}
	return true, yaml.UnmarshalStrict(bytes, target)
}

// LoadSettings returns the default settings overridden by the user
// settings.yml, if it exists. A broken user file is reported in YmlError and
// the defaults are used for the fields that could not be read.
func LoadSettings() Settings {
	s := DefaultSettings()
	exists, err := ReadCustomConfigYml("settings.yml", &s)
	if exists {
		s.YmlError = err
	}
	return s.sanitize()
}

// LoadSettingsFile reads the settings from an explicit file on top of the
// defaults.
func LoadSettingsFile(path string) (Settings, error) {
	s := DefaultSettings()
	bytes, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("could not read settings: %w", err)
	}
	if err := yaml.UnmarshalStrict(bytes, &s); err != nil {
		return s, fmt.Errorf("could not parse settings %v: %w", path, err)
	}
	return s.sanitize(), nil
}

func (s Settings) sanitize() Settings {
	d := DefaultSettings()
	if s.SampleRate <= 0 {
		s.SampleRate = d.SampleRate
	}
	if s.SmoothingMs < 0 {
		s.SmoothingMs = 0
	}
	fix := func(v *int, def int) {
		if *v <= 0 {
			*v = def
		}
	}
	fix(&s.Channels.Graph, d.Channels.Graph)
	fix(&s.Channels.Quick, d.Channels.Quick)
	fix(&s.Channels.Pattern, d.Channels.Pattern)
	fix(&s.Channels.Monitor, d.Channels.Monitor)
	fix(&s.Channels.Drop, d.Channels.Drop)
	fix(&s.GraphSendTimeoutMs, d.GraphSendTimeoutMs)
	fix(&s.MonitorHistory, d.MonitorHistory)
	return s
}

func (s Settings) GraphSendTimeout() time.Duration {
	return time.Duration(s.GraphSendTimeoutMs) * time.Millisecond
}

// SmoothingSamples is the length of a parameter ramp in samples.
func (s Settings) SmoothingSamples() int {
	return int(s.SmoothingMs * s.SampleRate / 1000)
}

// SlogLevel converts LogLevel into a slog.Level; unknown names mean Info.
func (s Settings) SlogLevel() slog.Level {
	switch strings.ToLower(s.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
