package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/harrison/cognitive/internal/audit"
	"github.com/harrison/cognitive/internal/display"
	"github.com/harrison/cognitive/internal/logger"
)

// NewAuditCommand creates the 'cognitive audit' command
func NewAuditCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Cross-reference requirement ids with tests",
		Long: `Collect requirement ids (VIS-1, ST-4, ...) from the requirements directory and
from test files, then report requirements without tests and tests that
reference undefined requirements. Stubs can be generated for both.

A JSON summary is written to --summary.`,
		Args: cobra.NoArgs,
		RunE: runAudit,
	}

	cmd.Flags().String("requirements-dir", "", "Requirements directory (default: requirements.dir)")
	cmd.Flags().String("tests-dir", ".", "Directory scanned for tests")
	cmd.Flags().StringSlice("test-ext", audit.DefaultTestExtensions, "Test file extensions")
	cmd.Flags().Bool("generate-requirements", false, "Write requirement stubs for ids only tests mention")
	cmd.Flags().Bool("generate-tests", false, "Write skipped test stubs for untested requirements")
	cmd.Flags().String("test-stub-dir", audit.DefaultTestStubDir, "Directory for generated test stubs")
	cmd.Flags().String("summary", audit.DefaultSummaryFile, "Summary JSON path (empty disables)")
	cmd.Flags().Bool("strict", false, "Exit non-zero when gaps remain")
	cmd.Flags().String("format", "text", "Output format: text or json")

	return cmd
}

func runAudit(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	if err := validateFormat(format); err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := audit.Options{RequirementsDir: cfg.Requirements.Dir}
	if cmd.Flags().Changed("requirements-dir") {
		opts.RequirementsDir, _ = cmd.Flags().GetString("requirements-dir")
	}
	opts.TestsDir, _ = cmd.Flags().GetString("tests-dir")
	opts.TestExtensions, _ = cmd.Flags().GetStringSlice("test-ext")
	opts.GenerateRequirements, _ = cmd.Flags().GetBool("generate-requirements")
	opts.GenerateTests, _ = cmd.Flags().GetBool("generate-tests")
	opts.TestStubDir, _ = cmd.Flags().GetString("test-stub-dir")
	opts.SummaryPath, _ = cmd.Flags().GetString("summary")
	opts.Logger = logger.NewConsoleLogger(cmd.ErrOrStderr(), cfg.LogLevel)
	strict, _ := cmd.Flags().GetBool("strict")

	summary, err := audit.Run(cmd.Context(), opts)
	if err != nil {
		return err
	}

	if format == "json" {
		if err := writeJSON(cmd.OutOrStdout(), summary); err != nil {
			return err
		}
	} else {
		printAudit(cmd.OutOrStdout(), summary, opts)
	}

	if strict && !summary.Clean() {
		return fmt.Errorf("audit found %d untested requirements and %d undefined requirement ids",
			len(summary.MissingTests), len(summary.MissingRequirements))
	}
	return nil
}

func printAudit(out io.Writer, s *audit.Summary, opts audit.Options) {
	fmt.Fprintf(out, "Requirement ids: %d\n", s.RequirementIDs)
	fmt.Fprintf(out, "Tested ids: %d\n", s.TestedIDs)

	if len(s.MissingTests) > 0 {
		items := make([]string, 0, len(s.MissingTests))
		for _, m := range s.MissingTests {
			items = append(items, fmt.Sprintf("%s (%s)", m.ID, m.Requirement))
		}
		suggestion := ""
		if !opts.GenerateTests {
			suggestion = "Re-run with --generate-tests to create test stubs"
		}
		display.WarnItems("Requirements without tests", items, suggestion).Display(out)
	}

	if len(s.MissingRequirements) > 0 {
		items := make([]string, 0, len(s.MissingRequirements))
		for _, m := range s.MissingRequirements {
			items = append(items, fmt.Sprintf("%s (%d test files)", m.ID, len(m.Tests)))
		}
		suggestion := ""
		if !opts.GenerateRequirements {
			suggestion = "Re-run with --generate-requirements to create requirement stubs"
		}
		display.WarnItems("Tests referencing undefined requirements", items, suggestion).Display(out)
	}

	for _, f := range s.GeneratedRequirements {
		fmt.Fprintf(out, "Generated requirement %s\n", f)
	}
	for _, f := range s.GeneratedTests {
		fmt.Fprintf(out, "Generated test %s\n", f)
	}

	if s.Clean() {
		display.Success(out, "Every requirement has a test")
	}
	if opts.SummaryPath != "" {
		fmt.Fprintf(out, "Summary written to %s\n", opts.SummaryPath)
	}
}
