package dualmode

import (
	"errors"
	"fmt"

	"github.com/harrison/cognitive/internal/models"
)

// Sentinel errors matched with errors.Is.
var (
	// ErrNoProcessor is returned when the dispatcher was created without a processor.
	ErrNoProcessor = errors.New("no processor provided")
	// ErrMissingCapability matches every *MissingCapabilityError.
	ErrMissingCapability = errors.New("missing processor capability")
	// ErrInvalidOutput matches every *InvalidOutputError.
	ErrInvalidOutput = errors.New("invalid processor output")
	// ErrConfiguration matches every *ConfigurationError.
	ErrConfiguration = errors.New("configuration error")
	// ErrProviderFailure marks a failed provider call. It only ever appears
	// inside an error envelope.
	ErrProviderFailure = errors.New("provider failure")
)

// MissingCapabilityError reports a processor method required by a mode.
type MissingCapabilityError struct {
	Mode   models.Mode
	Method string // e.g. "PrepareForAPI" or "AnalyzeForCI or AnalyzeForIDE"
}

func (e *MissingCapabilityError) Error() string {
	return fmt.Sprintf("processor must implement %s for %s mode", e.Method, e.Mode)
}

// Unwrap allows errors.Is(err, ErrMissingCapability).
func (e *MissingCapabilityError) Unwrap() error {
	return ErrMissingCapability
}

// InvalidOutputError reports a processor result with the wrong shape.
type InvalidOutputError struct {
	Mode    models.Mode
	Message string
}

func (e *InvalidOutputError) Error() string {
	return fmt.Sprintf("%s mode: %s", e.Mode, e.Message)
}

// Unwrap allows errors.Is(err, ErrInvalidOutput).
func (e *InvalidOutputError) Unwrap() error {
	return ErrInvalidOutput
}

// ConfigurationError reports a configuration problem detected before any I/O,
// such as an unknown mode or a missing API key.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return e.Message
}

// Unwrap allows errors.Is(err, ErrConfiguration).
func (e *ConfigurationError) Unwrap() error {
	return ErrConfiguration
}
