package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "voice.rate")
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

// Speaking-rate bounds accepted for voice.rate.
const (
	MinVoiceRate = 0.5
	MaxVoiceRate = 2.0
)

// MaxHoldTargetSec bounds session.hold_target_sec (two hours).
const MaxHoldTargetSec = 7200

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	if c.Voice.Rate < MinVoiceRate || c.Voice.Rate > MaxVoiceRate {
		errors = append(errors, ValidationError{
			Field:   "voice.rate",
			Value:   c.Voice.Rate,
			Message: fmt.Sprintf("must be between %.1f and %.1f", MinVoiceRate, MaxVoiceRate),
		})
	}

	if c.Session.HoldTargetSec < 0 || c.Session.HoldTargetSec > MaxHoldTargetSec {
		errors = append(errors, ValidationError{
			Field:   "session.hold_target_sec",
			Value:   c.Session.HoldTargetSec,
			Message: fmt.Sprintf("must be between 0 and %d", MaxHoldTargetSec),
		})
	}

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	if c.Paths.Database == "" {
		errors = append(errors, ValidationError{
			Field:   "paths.database",
			Value:   c.Paths.Database,
			Message: "must not be empty",
		})
	}

	return errors
}
