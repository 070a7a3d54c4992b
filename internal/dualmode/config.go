// Package dualmode routes a processor's analysis to one of three execution
// modes: local context files for IDE assistants (ide), a remote model
// provider (api), or a pass/fail report for pipelines (ci).
package dualmode

import (
	"time"

	"github.com/harrison/cognitive/internal/models"
)

// Defaults applied by DefaultConfig and by the dispatcher for empty fields.
const (
	DefaultToolName   = "AI Tool"
	DefaultVersion    = "1.0.0"
	DefaultOutputDir  = ".ai"
	DefaultProvider   = "openai"
	DefaultOutputFile = "ai-ci-report.json"
)

// DefaultFailOnSeverities are the issue severities that fail a CI report.
var DefaultFailOnSeverities = []string{"critical", "error"}

// Config is the dispatcher configuration. The dispatcher keeps its own copy;
// later changes to the caller's value have no effect.
type Config struct {
	Mode      models.Mode // auto, ide, api or ci
	ToolName  string
	Version   string
	OutputDir string // IDE context file directory

	Provider    string                 // Registered provider name
	Model       string                 // Empty uses the provider default
	APIKey      string                 // Overrides provider environment keys
	APIEndpoint string                 // Custom endpoint URL (claude: CLI path)
	APIOptions  map[string]interface{} // Extra provider request fields
	Timeout     time.Duration          // Bounds the provider call when positive

	IncludeIDESpecific bool // Also write copilot/cursor hint files

	SaveToFile       bool     // Persist the CI report
	OutputFile       string   // CI report path
	FailOnSeverities []string // Severities that fail a CI report
}

// DefaultConfig returns a Config with every default applied.
func DefaultConfig() Config {
	return Config{
		Mode:               models.ModeAuto,
		ToolName:           DefaultToolName,
		Version:            DefaultVersion,
		OutputDir:          DefaultOutputDir,
		Provider:           DefaultProvider,
		IncludeIDESpecific: true,
		OutputFile:         DefaultOutputFile,
		FailOnSeverities:   append([]string(nil), DefaultFailOnSeverities...),
	}
}

// withDefaults fills empty string and slice fields. Booleans are left as set.
func (c Config) withDefaults() Config {
	if c.Mode == "" {
		c.Mode = models.ModeAuto
	}
	if c.ToolName == "" {
		c.ToolName = DefaultToolName
	}
	if c.Version == "" {
		c.Version = DefaultVersion
	}
	if c.OutputDir == "" {
		c.OutputDir = DefaultOutputDir
	}
	if c.Provider == "" {
		c.Provider = DefaultProvider
	}
	if c.OutputFile == "" {
		c.OutputFile = DefaultOutputFile
	}
	if len(c.FailOnSeverities) == 0 {
		c.FailOnSeverities = append([]string(nil), DefaultFailOnSeverities...)
	} else {
		c.FailOnSeverities = append([]string(nil), c.FailOnSeverities...)
	}
	if c.APIOptions != nil {
		opts := make(map[string]interface{}, len(c.APIOptions))
		for k, v := range c.APIOptions {
			opts[k] = v
		}
		c.APIOptions = opts
	}
	return c
}
