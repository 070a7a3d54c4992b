package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harrison/cognitive/internal/config"
	"github.com/harrison/cognitive/internal/dualmode"
	"github.com/harrison/cognitive/internal/models"
	"github.com/harrison/cognitive/internal/testrunner"
)

// NewDispatchCommand creates the 'cognitive dispatch' command
func NewDispatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dispatch [project]",
		Short: "Run a project's tests and analyze the results",
		Long: `Run the test suite of a project (default: current directory) and process the
results in the detected mode:

  ide  writes context.json, analysis.md and prompts.md to --output-dir
  api  sends the results to --provider and returns its suggestions
  ci   prints a pass/fail line and optionally saves a JSON report

The result envelope is printed to stdout as JSON. The command exits non-zero
on a fatal error or when a CI report did not pass.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runDispatch,
	}

	cmd.Flags().String("mode", "", "Execution mode: auto, ide, api or ci")
	cmd.Flags().String("output-dir", "", "Directory for IDE context files (default: .ai)")
	cmd.Flags().String("provider", "", "Model provider for api mode: openai, claude or gemini")
	cmd.Flags().String("model", "", "Model override for the provider")
	cmd.Flags().String("api-endpoint", "", "Provider endpoint override")
	cmd.Flags().Duration("timeout", 0, "Maximum provider call duration (e.g. 30s, 2m)")
	cmd.Flags().Bool("no-ide-specific", false, "Skip copilot and cursor context files")
	cmd.Flags().Bool("save", false, "Save the CI report to --output-file")
	cmd.Flags().String("output-file", "", "CI report path (default: ai-ci-report.json)")
	cmd.Flags().String("history", "", "Run history database path (empty disables history)")
	cmd.Flags().String("test-command", "", "Test command override (default: detected from go.mod or package.json)")
	cmd.Flags().String("runner", "", "Output parser for --test-command: go or jest")

	return cmd
}

func runDispatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	project := "."
	if len(args) == 1 {
		project = args[0]
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cfg.MergeWithFlags(dispatchFlags(cmd))
	if cmd.Flags().Changed("test-command") {
		cfg.TestRunner.Command, _ = cmd.Flags().GetString("test-command")
	}
	if cmd.Flags().Changed("runner") {
		cfg.TestRunner.Runner, _ = cmd.Flags().GetString("runner")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log, closeLog, err := newLogger(cmd, cfg, true)
	if err != nil {
		return err
	}
	defer closeLog()

	log.LogInfo(fmt.Sprintf("Running tests in %s", project))
	report, err := newTestRunner(cfg).Run(ctx, project)
	if err != nil {
		return fmt.Errorf("failed to run tests: %w", err)
	}
	log.LogInfo(fmt.Sprintf("%s: %d tests, %d failed", report.Runner, report.Total, report.Failed))

	opts := []dualmode.Option{
		dualmode.WithEnvironment(cfg.Env),
		dualmode.WithLogger(log),
		// stdout carries the JSON envelope
		dualmode.WithOutput(cmd.ErrOrStderr()),
	}

	store, err := openHistory(cfg)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
		opts = append(opts, dualmode.WithRecorder(store))
	}

	d := dualmode.New(cfg.ToolName, testrunner.NewProcessor(), cfg.ModeConfig(), opts...)
	result, err := d.Process(ctx, report)
	if err != nil {
		return err
	}

	if err := writeJSON(cmd.OutOrStdout(), result); err != nil {
		return err
	}

	if ci, ok := result.Result.(*models.CIReport); ok && !ci.Passed {
		return fmt.Errorf("CI checks failed: %s", ci.Summary)
	}
	return nil
}

// dispatchFlags collects the flags the user actually set.
func dispatchFlags(cmd *cobra.Command) config.Flags {
	var f config.Flags
	str := func(name string) *string {
		if !cmd.Flags().Changed(name) {
			return nil
		}
		v, _ := cmd.Flags().GetString(name)
		return &v
	}
	boolean := func(name string) *bool {
		if !cmd.Flags().Changed(name) {
			return nil
		}
		v, _ := cmd.Flags().GetBool(name)
		return &v
	}

	f.Mode = str("mode")
	f.OutputDir = str("output-dir")
	f.Provider = str("provider")
	f.Model = str("model")
	f.APIEndpoint = str("api-endpoint")
	f.OutputFile = str("output-file")
	f.HistoryDB = str("history")
	f.NoIDESpecific = boolean("no-ide-specific")
	f.SaveToFile = boolean("save")
	if cmd.Flags().Changed("timeout") {
		timeout, _ := cmd.Flags().GetDuration("timeout")
		f.Timeout = &timeout
	}
	return f
}
