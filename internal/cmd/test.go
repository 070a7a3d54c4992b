package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/harrison/cognitive/internal/display"
	"github.com/harrison/cognitive/internal/testrunner"
)

// NewTestCommand creates the 'cognitive test' command
func NewTestCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test [project]",
		Short: "Run a project's tests and summarize the results",
		Long: `Run the test suite of a project (default: current directory). The runner is
detected from go.mod (go test -json) or package.json (npm test), unless
--command is given.

Exit code: 0 if all tests pass, 1 otherwise`,
		Args: cobra.MaximumNArgs(1),
		RunE: runTest,
	}

	cmd.Flags().String("command", "", "Test command override")
	cmd.Flags().String("runner", "", "Output parser for --command: go or jest")
	cmd.Flags().Duration("timeout", 0, "Maximum test run duration (0 = none)")
	cmd.Flags().String("format", "text", "Output format: text or json")

	return cmd
}

func runTest(cmd *cobra.Command, args []string) error {
	project := "."
	if len(args) == 1 {
		project = args[0]
	}

	format, _ := cmd.Flags().GetString("format")
	if err := validateFormat(format); err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("command") {
		cfg.TestRunner.Command, _ = cmd.Flags().GetString("command")
	}
	if cmd.Flags().Changed("runner") {
		cfg.TestRunner.Runner, _ = cmd.Flags().GetString("runner")
	}
	if cmd.Flags().Changed("timeout") {
		cfg.TestRunner.Timeout, _ = cmd.Flags().GetDuration("timeout")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	report, err := newTestRunner(cfg).Run(cmd.Context(), project)
	if err != nil {
		return err
	}

	if format == "json" {
		if err := writeJSON(cmd.OutOrStdout(), report); err != nil {
			return err
		}
	} else {
		printReport(cmd.OutOrStdout(), report)
	}

	if report.Failed > 0 {
		return fmt.Errorf("%d of %d tests failed", report.Failed, report.Total)
	}
	return nil
}

func printReport(out io.Writer, r *testrunner.Report) {
	fmt.Fprintf(out, "Runner: %s (%s)\n", r.Runner, r.Command)
	fmt.Fprintf(out, "Tests: %d passed, %d failed, %d skipped (%v)\n", r.Passed, r.Failed, r.Skipped, r.Duration.Round(time.Millisecond))
	if r.HasCoverage {
		fmt.Fprintf(out, "Coverage: %.1f%%\n", r.Coverage)
	}

	failed := r.FailedTests()
	if len(failed) == 0 {
		if r.Failed == 0 {
			display.Success(out, "All tests passed")
		}
		return
	}

	names := make([]string, 0, len(failed))
	for _, tc := range failed {
		if tc.Package != "" {
			names = append(names, tc.Package+"."+tc.Name)
		} else {
			names = append(names, tc.Name)
		}
	}
	display.WarnItems("Failing tests", names, "Run 'cognitive dispatch' to generate AI context for the failures").Display(out)
}
