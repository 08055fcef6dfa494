package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/kolkov/paramxfer/internal/smooth"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "audio.block_size")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// maxParameters bounds the transfer size so a typo cannot allocate gigabytes.
const maxParameters = 1 << 20

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateParameters()...)
	errors = append(errors, c.validateAudio()...)
	errors = append(errors, c.validateSmoothing()...)
	errors = append(errors, c.validatePreset()...)
	errors = append(errors, c.validateStress()...)
	errors = append(errors, c.validateMonitor()...)
	errors = append(errors, c.validateLogging()...)

	return errors
}

// Check returns Validate's result as a single error, or nil.
func (c *Config) Check() error {
	if errs := c.Validate(); len(errs) > 0 {
		return ValidationErrors(errs)
	}
	return nil
}

func (c *Config) validateParameters() []ValidationError {
	var errors []ValidationError
	if c.Parameters.Count < 1 || c.Parameters.Count > maxParameters {
		errors = append(errors, ValidationError{
			Field:   "parameters.count",
			Value:   c.Parameters.Count,
			Message: fmt.Sprintf("must be between 1 and %d", maxParameters),
		})
	}
	return errors
}

func (c *Config) validateAudio() []ValidationError {
	var errors []ValidationError
	if c.Audio.SampleRate < 1000 || c.Audio.SampleRate > 768000 {
		errors = append(errors, ValidationError{
			Field:   "audio.sample_rate",
			Value:   c.Audio.SampleRate,
			Message: "must be between 1000 and 768000",
		})
	}
	if c.Audio.BlockSize < 1 || c.Audio.BlockSize > 65536 {
		errors = append(errors, ValidationError{
			Field:   "audio.block_size",
			Value:   c.Audio.BlockSize,
			Message: "must be between 1 and 65536",
		})
	}
	if c.Audio.BaseFrequency <= 0 {
		errors = append(errors, ValidationError{
			Field:   "audio.base_frequency",
			Value:   c.Audio.BaseFrequency,
			Message: "must be positive",
		})
	}
	return errors
}

func (c *Config) validateSmoothing() []ValidationError {
	var errors []ValidationError
	mode, ok := smooth.ParseMode(c.Smoothing.Mode)
	if !ok {
		errors = append(errors, ValidationError{
			Field:   "smoothing.mode",
			Value:   c.Smoothing.Mode,
			Message: "must be one of: one_pole, linear",
		})
	}
	if mode == smooth.OnePole && (c.Smoothing.Factor <= 0 || c.Smoothing.Factor > 1) {
		errors = append(errors, ValidationError{
			Field:   "smoothing.factor",
			Value:   c.Smoothing.Factor,
			Message: "must be in (0, 1]",
		})
	}
	if mode == smooth.Linear && c.Smoothing.RampSamples < 1 {
		errors = append(errors, ValidationError{
			Field:   "smoothing.ramp_samples",
			Value:   c.Smoothing.RampSamples,
			Message: "must be at least 1",
		})
	}
	return errors
}

func (c *Config) validatePreset() []ValidationError {
	var errors []ValidationError
	if c.Preset.Watch && c.Preset.Path == "" {
		errors = append(errors, ValidationError{
			Field:   "preset.watch",
			Value:   c.Preset.Watch,
			Message: "requires preset.path",
		})
	}
	if c.Preset.DebounceMs < 0 {
		errors = append(errors, ValidationError{
			Field:   "preset.debounce_ms",
			Value:   c.Preset.DebounceMs,
			Message: "must be non-negative",
		})
	}
	return errors
}

func (c *Config) validateStress() []ValidationError {
	var errors []ValidationError
	if c.Stress.Writers < 1 {
		errors = append(errors, ValidationError{
			Field:   "stress.writers",
			Value:   c.Stress.Writers,
			Message: "must be at least 1",
		})
	}
	if c.Stress.PerWriter < 1 {
		errors = append(errors, ValidationError{
			Field:   "stress.per_writer",
			Value:   c.Stress.PerWriter,
			Message: "must be at least 1",
		})
	}
	if c.Stress.Rounds < 1 {
		errors = append(errors, ValidationError{
			Field:   "stress.rounds",
			Value:   c.Stress.Rounds,
			Message: "must be at least 1",
		})
	}
	return errors
}

func (c *Config) validateMonitor() []ValidationError {
	var errors []ValidationError
	if c.Monitor.RefreshMs < 10 {
		errors = append(errors, ValidationError{
			Field:   "monitor.refresh_ms",
			Value:   c.Monitor.RefreshMs,
			Message: "must be at least 10",
		})
	}
	if c.Monitor.Rows < 1 {
		errors = append(errors, ValidationError{
			Field:   "monitor.rows",
			Value:   c.Monitor.Rows,
			Message: "must be at least 1",
		})
	}
	return errors
}

func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError
	if !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}
	return errors
}
