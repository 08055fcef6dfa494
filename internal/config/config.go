// Package config loads paramxfer settings with viper: defaults, an optional
// YAML file, and PARAMXFER_* environment overrides.
package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/kolkov/paramxfer/internal/plugin"
	"github.com/kolkov/paramxfer/internal/smooth"
)

// Config represents the complete paramxfer configuration
type Config struct {
	Parameters ParametersConfig `mapstructure:"parameters"`
	Audio      AudioConfig      `mapstructure:"audio"`
	Smoothing  SmoothingConfig  `mapstructure:"smoothing"`
	Preset     PresetConfig     `mapstructure:"preset"`
	Stress     StressConfig     `mapstructure:"stress"`
	Monitor    MonitorConfig    `mapstructure:"monitor"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ParametersConfig sizes the transfer
type ParametersConfig struct {
	// Count is the number of parameters (fixed for the session)
	Count int `mapstructure:"count"`
}

// AudioConfig controls the rendering side
type AudioConfig struct {
	// SampleRate in Hz
	SampleRate float64 `mapstructure:"sample_rate"`
	// BlockSize is the number of frames per Process call
	BlockSize int `mapstructure:"block_size"`
	// BaseFrequency is the synth fundamental in Hz
	BaseFrequency float64 `mapstructure:"base_frequency"`
}

// SmoothingConfig controls per-parameter smoothing
type SmoothingConfig struct {
	// Mode is "one_pole" or "linear"
	Mode string `mapstructure:"mode"`
	// Factor is the one-pole coefficient in (0, 1]
	Factor float64 `mapstructure:"factor"`
	// RampSamples is the linear ramp length
	RampSamples int `mapstructure:"ramp_samples"`
}

// PresetConfig points at a preset file to apply at startup
type PresetConfig struct {
	// Path to a YAML preset (empty = none)
	Path string `mapstructure:"path"`
	// Watch reloads the preset whenever the file changes
	Watch bool `mapstructure:"watch"`
	// DebounceMs groups bursts of file events
	DebounceMs int `mapstructure:"debounce_ms"`
}

// StressConfig controls the concurrency stress run
type StressConfig struct {
	Writers   int `mapstructure:"writers"`
	PerWriter int `mapstructure:"per_writer"`
	Rounds    int `mapstructure:"rounds"`
}

// MonitorConfig controls the live TUI
type MonitorConfig struct {
	// RefreshMs is the tick interval
	RefreshMs int `mapstructure:"refresh_ms"`
	// Rows is how many recently changed parameters to show
	Rows int `mapstructure:"rows"`
}

// LoggingConfig controls structured logging
type LoggingConfig struct {
	// Level is one of debug, info, warn, error
	Level string `mapstructure:"level"`
	// Dir is where run logs go (empty = stderr)
	Dir string `mapstructure:"dir"`
}

// Default returns a Config with sensible defaults
func Default() *Config {
	return &Config{
		Parameters: ParametersConfig{
			Count: plugin.DefaultParameterCount,
		},
		Audio: AudioConfig{
			SampleRate:    plugin.DefaultSampleRate,
			BlockSize:     512,
			BaseFrequency: 5.0,
		},
		Smoothing: SmoothingConfig{
			Mode:        "one_pole",
			Factor:      smooth.DefaultFactor,
			RampSamples: 256,
		},
		Preset: PresetConfig{
			DebounceMs: 50,
		},
		Stress: StressConfig{
			Writers:   8,
			PerWriter: 64,
			Rounds:    10000,
		},
		Monitor: MonitorConfig{
			RefreshMs: 50,
			Rows:      16,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	viper.SetDefault("parameters.count", defaults.Parameters.Count)

	viper.SetDefault("audio.sample_rate", defaults.Audio.SampleRate)
	viper.SetDefault("audio.block_size", defaults.Audio.BlockSize)
	viper.SetDefault("audio.base_frequency", defaults.Audio.BaseFrequency)

	viper.SetDefault("smoothing.mode", defaults.Smoothing.Mode)
	viper.SetDefault("smoothing.factor", defaults.Smoothing.Factor)
	viper.SetDefault("smoothing.ramp_samples", defaults.Smoothing.RampSamples)

	viper.SetDefault("preset.path", defaults.Preset.Path)
	viper.SetDefault("preset.watch", defaults.Preset.Watch)
	viper.SetDefault("preset.debounce_ms", defaults.Preset.DebounceMs)

	viper.SetDefault("stress.writers", defaults.Stress.Writers)
	viper.SetDefault("stress.per_writer", defaults.Stress.PerWriter)
	viper.SetDefault("stress.rounds", defaults.Stress.Rounds)

	viper.SetDefault("monitor.refresh_ms", defaults.Monitor.RefreshMs)
	viper.SetDefault("monitor.rows", defaults.Monitor.Rows)

	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.dir", defaults.Logging.Dir)
}

// Get returns the current configuration from viper
func Get() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ConfigDir returns the configuration directory path
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "paramxfer")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "paramxfer")
}

// PluginConfig converts the relevant sections into a plugin.Config.
// Call Validate first; an unknown smoothing mode falls back to one-pole.
func (c *Config) PluginConfig() plugin.Config {
	mode, _ := smooth.ParseMode(c.Smoothing.Mode)
	return plugin.Config{
		ParameterCount:  c.Parameters.Count,
		SampleRate:      float32(c.Audio.SampleRate),
		BaseFrequency:   float32(c.Audio.BaseFrequency),
		SmoothingMode:   mode,
		SmoothingFactor: float32(c.Smoothing.Factor),
		RampSamples:     c.Smoothing.RampSamples,
	}
}
