// Package config assembles cognitive's configuration from defaults, the
// project config file, a .env file, the process environment and CLI flags,
// in that order of increasing precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/harrison/cognitive/internal/dualmode"
	"github.com/harrison/cognitive/internal/models"
	"github.com/harrison/cognitive/internal/requirements"
)

// ConfigFile is the config path relative to the project home.
var ConfigFile = filepath.Join(HomeDirName, "config.yaml")

// CIConfig configures ci mode.
type CIConfig struct {
	// SaveToFile writes the CI report to OutputFile
	SaveToFile bool `yaml:"save_to_file"`

	// OutputFile is the CI report path
	OutputFile string `yaml:"output_file"`

	// FailOn lists the issue severities that fail the build
	FailOn []string `yaml:"fail_on"`
}

// RequirementsConfig configures requirement processing.
type RequirementsConfig struct {
	// Dir holds the requirement documents used by watch and audit
	Dir string `yaml:"dir"`

	// OutputDir receives the generated artifacts
	OutputDir string `yaml:"output_dir"`

	// RequiredMetadata overrides the default required metadata keys
	RequiredMetadata []string `yaml:"required_metadata"`
}

// TestRunnerConfig configures the test runner.
type TestRunnerConfig struct {
	// Command overrides runner detection
	Command string `yaml:"command"`

	// Runner names the output parser for Command (go or jest)
	Runner string `yaml:"runner"`

	// Timeout bounds a test run (0 = none)
	Timeout time.Duration `yaml:"timeout"`
}

// Config represents cognitive configuration options
type Config struct {
	// Mode is auto, ide, api or ci
	Mode string `yaml:"mode"`

	// ToolName labels reports and context files
	ToolName string `yaml:"tool_name"`

	// OutputDir is the IDE context directory
	OutputDir string `yaml:"output_dir"`

	// Provider is the model provider for api mode
	Provider string `yaml:"provider"`

	// Model overrides the provider's default model
	Model string `yaml:"model"`

	// APIKey is normally left empty in favor of the environment
	APIKey string `yaml:"api_key"`

	// APIEndpoint overrides the provider endpoint
	APIEndpoint string `yaml:"api_endpoint"`

	// APIOptions are extra provider request fields
	APIOptions map[string]interface{} `yaml:"api_options"`

	// Timeout bounds the provider call (0 = none)
	Timeout time.Duration `yaml:"timeout"`

	// IncludeIDESpecific also writes copilot and cursor hint files
	IncludeIDESpecific bool `yaml:"include_ide_specific"`

	// LogLevel sets the logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// LogDir is the directory where run logs are written
	LogDir string `yaml:"log_dir"`

	// HistoryDB is the run history database path ("" disables history)
	HistoryDB string `yaml:"history_db"`

	CI           CIConfig           `yaml:"ci"`
	Requirements RequirementsConfig `yaml:"requirements"`
	TestRunner   TestRunnerConfig   `yaml:"test_runner"`

	// Env is the environment snapshot used for mode detection and API keys.
	Env dualmode.Environment `yaml:"-"`
}

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() *Config {
	return &Config{
		Mode:               string(models.ModeAuto),
		ToolName:           "cognitive",
		OutputDir:          dualmode.DefaultOutputDir,
		Provider:           dualmode.DefaultProvider,
		IncludeIDESpecific: true,
		LogLevel:           "info",
		LogDir:             filepath.Join(HomeDirName, "logs"),
		HistoryDB:          filepath.Join(HomeDirName, "history.db"),
		CI: CIConfig{
			OutputFile: dualmode.DefaultOutputFile,
			FailOn:     append([]string(nil), dualmode.DefaultFailOnSeverities...),
		},
		Requirements: RequirementsConfig{
			Dir:       "requirements",
			OutputDir: requirements.DefaultOutputDir,
		},
		Env: dualmode.Environment{},
	}
}

// yamlConfig mirrors Config with durations as strings and pointer booleans,
// so "false" in the file can override a true default.
type yamlConfig struct {
	Mode               string                 `yaml:"mode"`
	ToolName           string                 `yaml:"tool_name"`
	OutputDir          string                 `yaml:"output_dir"`
	Provider           string                 `yaml:"provider"`
	Model              string                 `yaml:"model"`
	APIKey             string                 `yaml:"api_key"`
	APIEndpoint        string                 `yaml:"api_endpoint"`
	APIOptions         map[string]interface{} `yaml:"api_options"`
	Timeout            string                 `yaml:"timeout"`
	IncludeIDESpecific *bool                  `yaml:"include_ide_specific"`
	LogLevel           string                 `yaml:"log_level"`
	LogDir             string                 `yaml:"log_dir"`
	HistoryDB          *string                `yaml:"history_db"`
	CI                 struct {
		SaveToFile *bool    `yaml:"save_to_file"`
		OutputFile string   `yaml:"output_file"`
		FailOn     []string `yaml:"fail_on"`
	} `yaml:"ci"`
	Requirements RequirementsConfig `yaml:"requirements"`
	TestRunner   struct {
		Command string `yaml:"command"`
		Runner  string `yaml:"runner"`
		Timeout string `yaml:"timeout"`
	} `yaml:"test_runner"`
}

// LoadConfig loads configuration from the specified file path
// If the file doesn't exist, returns default configuration without error
// If the file exists but is malformed, returns an error
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var y yamlConfig
	if err := yaml.Unmarshal(data, &y); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	setString(&cfg.Mode, y.Mode)
	setString(&cfg.ToolName, y.ToolName)
	setString(&cfg.OutputDir, y.OutputDir)
	setString(&cfg.Provider, y.Provider)
	setString(&cfg.Model, y.Model)
	setString(&cfg.APIKey, y.APIKey)
	setString(&cfg.APIEndpoint, y.APIEndpoint)
	setString(&cfg.LogLevel, y.LogLevel)
	setString(&cfg.LogDir, y.LogDir)
	if y.APIOptions != nil {
		cfg.APIOptions = y.APIOptions
	}
	if y.Timeout != "" {
		if cfg.Timeout, err = parseDuration("timeout", y.Timeout); err != nil {
			return nil, err
		}
	}
	if y.IncludeIDESpecific != nil {
		cfg.IncludeIDESpecific = *y.IncludeIDESpecific
	}
	// An explicit empty history_db disables history.
	if y.HistoryDB != nil {
		cfg.HistoryDB = *y.HistoryDB
	}

	if y.CI.SaveToFile != nil {
		cfg.CI.SaveToFile = *y.CI.SaveToFile
	}
	setString(&cfg.CI.OutputFile, y.CI.OutputFile)
	if len(y.CI.FailOn) > 0 {
		cfg.CI.FailOn = y.CI.FailOn
	}

	setString(&cfg.Requirements.Dir, y.Requirements.Dir)
	setString(&cfg.Requirements.OutputDir, y.Requirements.OutputDir)
	if len(y.Requirements.RequiredMetadata) > 0 {
		cfg.Requirements.RequiredMetadata = y.Requirements.RequiredMetadata
	}

	setString(&cfg.TestRunner.Command, y.TestRunner.Command)
	setString(&cfg.TestRunner.Runner, y.TestRunner.Runner)
	if y.TestRunner.Timeout != "" {
		if cfg.TestRunner.Timeout, err = parseDuration("test_runner.timeout", y.TestRunner.Timeout); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func parseDuration(field, v string) (time.Duration, error) {
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s format %q: %w", field, v, err)
	}
	return d, nil
}

// LoadConfigFromDir loads configuration from .cognitive/config.yaml in the
// specified directory and resolves relative paths against it.
func LoadConfigFromDir(dir string) (*Config, error) {
	cfg, err := LoadConfig(filepath.Join(dir, ConfigFile))
	if err != nil {
		return nil, err
	}
	cfg.resolvePaths(dir)
	return cfg, nil
}

func (c *Config) resolvePaths(dir string) {
	for _, p := range []*string{&c.LogDir, &c.HistoryDB} {
		if *p != "" && *p != ":memory:" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
}

// LoadEnvironment snapshots the recognized environment variables. Values
// from the .env file at dotenvPath fill in variables the process does not
// set; a missing file is not an error.
func (c *Config) LoadEnvironment(dotenvPath string) error {
	env, err := ReadEnvironment(dotenvPath, os.LookupEnv)
	if err != nil {
		return err
	}
	c.Env = env
	return nil
}

// ReadEnvironment returns the recognized variables from lookup, falling
// back to the .env file at dotenvPath.
func ReadEnvironment(dotenvPath string, lookup func(string) (string, bool)) (dualmode.Environment, error) {
	dotenv := map[string]string{}
	if dotenvPath != "" {
		values, err := godotenv.Read(dotenvPath)
		switch {
		case err == nil:
			dotenv = values
		case os.IsNotExist(err):
		default:
			return nil, fmt.Errorf("failed to read %s: %w", dotenvPath, err)
		}
	}

	env := dualmode.Environment{}
	for _, name := range dualmode.RecognizedEnvVars() {
		if v, ok := lookup(name); ok {
			env[name] = v
		} else if v, ok := dotenv[name]; ok {
			env[name] = v
		}
	}
	return env, nil
}

// Flags holds CLI overrides. Nil fields were not given on the command line.
type Flags struct {
	Mode          *string
	OutputDir     *string
	Provider      *string
	Model         *string
	APIEndpoint   *string
	Timeout       *time.Duration
	NoIDESpecific *bool
	SaveToFile    *bool
	OutputFile    *string
	LogLevel      *string
	HistoryDB     *string
}

// MergeWithFlags merges CLI flags into the configuration
// Non-nil flag values override configuration values
func (c *Config) MergeWithFlags(f Flags) {
	if f.Mode != nil {
		c.Mode = *f.Mode
	}
	if f.OutputDir != nil {
		c.OutputDir = *f.OutputDir
	}
	if f.Provider != nil {
		c.Provider = *f.Provider
	}
	if f.Model != nil {
		c.Model = *f.Model
	}
	if f.APIEndpoint != nil {
		c.APIEndpoint = *f.APIEndpoint
	}
	if f.Timeout != nil {
		c.Timeout = *f.Timeout
	}
	if f.NoIDESpecific != nil {
		c.IncludeIDESpecific = !*f.NoIDESpecific
	}
	if f.SaveToFile != nil {
		c.CI.SaveToFile = *f.SaveToFile
	}
	if f.OutputFile != nil {
		c.CI.OutputFile = *f.OutputFile
	}
	if f.LogLevel != nil {
		c.LogLevel = *f.LogLevel
	}
	if f.HistoryDB != nil {
		c.HistoryDB = *f.HistoryDB
	}
}

// Validate validates the configuration values
// Returns an error if any values are invalid
func (c *Config) Validate() error {
	if _, ok := models.ParseMode(c.Mode); !ok {
		return fmt.Errorf("invalid mode %q, must be one of: auto, ide, api, ci", c.Mode)
	}

	validLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("invalid log_level %q, must be one of: trace, debug, info, warn, error", c.LogLevel)
	}

	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be >= 0, got %v", c.Timeout)
	}
	if c.TestRunner.Timeout < 0 {
		return fmt.Errorf("test_runner.timeout must be >= 0, got %v", c.TestRunner.Timeout)
	}

	switch c.TestRunner.Runner {
	case "", "go", "jest":
	default:
		return fmt.Errorf("invalid test_runner.runner %q, must be go or jest", c.TestRunner.Runner)
	}

	if c.CI.SaveToFile && c.CI.OutputFile == "" {
		return fmt.Errorf("ci.output_file cannot be empty when ci.save_to_file is enabled")
	}

	return nil
}

// ModeConfig converts the configuration into a dispatcher configuration.
func (c *Config) ModeConfig() dualmode.Config {
	mode, _ := models.ParseMode(c.Mode)
	return dualmode.Config{
		Mode:               mode,
		ToolName:           c.ToolName,
		OutputDir:          c.OutputDir,
		Provider:           c.Provider,
		Model:              c.Model,
		APIKey:             c.APIKey,
		APIEndpoint:        c.APIEndpoint,
		APIOptions:         c.APIOptions,
		Timeout:            c.Timeout,
		IncludeIDESpecific: c.IncludeIDESpecific,
		SaveToFile:         c.CI.SaveToFile,
		OutputFile:         c.CI.OutputFile,
		FailOnSeverities:   c.CI.FailOn,
	}
}
