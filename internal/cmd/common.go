package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/harrison/cognitive/internal/config"
	"github.com/harrison/cognitive/internal/history"
	"github.com/harrison/cognitive/internal/logger"
	"github.com/harrison/cognitive/internal/testrunner"
)

// dotenvFile is read from the working directory.
const dotenvFile = ".env"

// loadConfig resolves the configuration for a command: the --config file or
// the project's .cognitive/config.yaml, then .env and the process
// environment, then the --log-level flag. Command-specific flags are merged
// by the caller before Validate.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")

	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadConfig(configPath)
	} else {
		root, rootErr := config.ProjectRoot("")
		if rootErr != nil {
			return nil, rootErr
		}
		cfg, err = config.LoadConfigFromDir(root)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.LoadEnvironment(dotenvFile); err != nil {
		return nil, err
	}

	if cmd.Flags().Changed("log-level") {
		level, _ := cmd.Flags().GetString("log-level")
		cfg.MergeWithFlags(config.Flags{LogLevel: &level})
	}
	return cfg, nil
}

// newLogger returns a console logger on stderr, fanned out to a run log
// under cfg.LogDir when withFile is set. The returned func closes the run log.
func newLogger(cmd *cobra.Command, cfg *config.Config, withFile bool) (logger.Leveled, func(), error) {
	console := logger.NewConsoleLogger(cmd.ErrOrStderr(), cfg.LogLevel)
	if !withFile || cfg.LogDir == "" {
		return console, func() {}, nil
	}

	fl, err := logger.NewFileLoggerWithDirAndLevel(cfg.LogDir, cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	return logger.NewMultiLogger(console, fl), func() { fl.Close() }, nil
}

// openHistory opens the run history store, or returns nil when history is disabled.
func openHistory(cfg *config.Config) (*history.Store, error) {
	if cfg.HistoryDB == "" {
		return nil, nil
	}
	store, err := history.Open(cfg.HistoryDB)
	if err != nil {
		return nil, fmt.Errorf("failed to open run history: %w", err)
	}
	return store, nil
}

// newTestRunner builds a test runner from the test_runner config section.
func newTestRunner(cfg *config.Config) *testrunner.Runner {
	return &testrunner.Runner{
		Command: cfg.TestRunner.Command,
		Runner:  cfg.TestRunner.Runner,
		Timeout: cfg.TestRunner.Timeout,
	}
}

func writeJSON(out io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}

func validateFormat(format string) error {
	switch format {
	case "text", "json":
		return nil
	default:
		return fmt.Errorf("invalid --format %q, must be text or json", format)
	}
}
