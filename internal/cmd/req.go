package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/harrison/cognitive/internal/display"
	"github.com/harrison/cognitive/internal/fileutil"
	"github.com/harrison/cognitive/internal/logger"
	"github.com/harrison/cognitive/internal/requirements"
	"github.com/harrison/cognitive/internal/testrunner"
	"github.com/harrison/cognitive/internal/watch"
)

// NewReqCommand creates the 'cognitive req' command group
func NewReqCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "req",
		Short: "Validate requirements and generate AI artifacts",
		Long: `Parse requirement documents (markdown, YAML or JSON), validate them against
the Vision > Business Value > Epic > Feature > Story > Task hierarchy, and
write analysis.md, acceptance_criteria.md and PROMPTS.md for AI assistants.`,
	}

	cmd.AddCommand(newReqProcessCommand())
	cmd.AddCommand(newReqWatchCommand())

	return cmd
}

func newReqProcessCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "process <file-or-directory>...",
		Short: "Validate requirement files and generate artifacts",
		Long: `Validate one or more requirement files. Directories are scanned recursively
for .md, .yaml, .yml and .json files.

A single file writes its artifacts to --output-dir. With several files each
requirement gets its own subdirectory named after its id.

Exit code: 0 if every file is valid, 1 otherwise`,
		Args: cobra.MinimumNArgs(1),
		RunE: runReqProcess,
	}

	cmd.Flags().String("output-dir", "", "Artifact directory (default: requirements.output_dir or .ai)")
	cmd.Flags().Bool("skip-artifacts", false, "Validate only, write no files")
	cmd.Flags().String("format", "text", "Output format: text or json")
	cmd.Flags().String("test", "", "Run the test suite of this project after processing")

	return cmd
}

// processOutcome is the per-file result of 'req process'.
type processOutcome struct {
	File        string                    `json:"file"`
	ID          string                    `json:"id,omitempty"`
	Valid       bool                      `json:"valid"`
	Error       string                    `json:"error,omitempty"`
	OutputDir   string                    `json:"outputDir,omitempty"`
	Requirement *requirements.Requirement `json:"requirement,omitempty"`
	TestResult  *testrunner.Report        `json:"testResult,omitempty"`
}

func runReqProcess(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	format, _ := cmd.Flags().GetString("format")
	if err := validateFormat(format); err != nil {
		return err
	}
	skipArtifacts, _ := cmd.Flags().GetBool("skip-artifacts")
	testProject, _ := cmd.Flags().GetString("test")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	outputDir := cfg.Requirements.OutputDir
	if cmd.Flags().Changed("output-dir") {
		outputDir, _ = cmd.Flags().GetString("output-dir")
	}

	files, err := fileutil.ExpandPaths(args, fileutil.RequirementExtensions)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no requirement files (.md, .yaml, .yml, .json) found")
	}

	p := &reqProcessor{
		outputDir:        outputDir,
		perRequirement:   len(files) > 1,
		skipArtifacts:    skipArtifacts,
		testProject:      testProject,
		requiredMetadata: cfg.Requirements.RequiredMetadata,
		runner:           newTestRunner(cfg),
		logger:           logger.NewConsoleLogger(cmd.ErrOrStderr(), cfg.LogLevel),
	}

	outcomes := make([]processOutcome, 0, len(files))
	failed := 0
	for _, path := range files {
		outcome := p.process(ctx, path)
		if !outcome.Valid {
			failed++
		}
		outcomes = append(outcomes, outcome)

		if format == "text" {
			printOutcome(cmd, outcome, skipArtifacts)
		}
	}

	if format == "json" {
		if err := writeJSON(out, outcomes); err != nil {
			return err
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d requirement files failed", failed, len(files))
	}
	return nil
}

// reqProcessor processes requirement files for 'req process'.
type reqProcessor struct {
	outputDir        string
	perRequirement   bool // artifacts go to outputDir/<id>
	skipArtifacts    bool
	testProject      string
	requiredMetadata []string
	runner           requirements.TestRunner
	logger           requirements.Logger
}

func (p *reqProcessor) process(ctx context.Context, path string) processOutcome {
	outcome := processOutcome{File: path}

	req, err := requirements.ParseFile(path)
	if err != nil {
		outcome.Error = err.Error()
		return outcome
	}
	outcome.ID = req.ID

	dir := p.outputDir
	if p.perRequirement {
		dir = filepath.Join(p.outputDir, req.ID)
	}
	fw := requirements.NewFramework(requirements.Options{
		OutputDir:        dir,
		RequiredMetadata: p.requiredMetadata,
		SkipArtifacts:    p.skipArtifacts,
		Runner:           p.runner,
		Logger:           p.logger,
	})

	if p.testProject != "" {
		tested, err := fw.ProcessAndTest(ctx, req, p.testProject)
		if tested != nil {
			outcome.Requirement = tested.Requirement
			outcome.TestResult = tested.TestResult
		}
		if err != nil {
			outcome.Error = err.Error()
			return outcome
		}
	} else {
		processed, err := fw.Process(ctx, req)
		if err != nil {
			outcome.Error = err.Error()
			return outcome
		}
		outcome.Requirement = processed
	}

	outcome.Valid = true
	if !p.skipArtifacts {
		outcome.OutputDir = dir
	}
	return outcome
}

func printOutcome(cmd *cobra.Command, o processOutcome, skipArtifacts bool) {
	out := cmd.OutOrStdout()
	if !o.Valid {
		display.Failure(out, "%s: %s", o.File, o.Error)
		return
	}

	if skipArtifacts {
		display.Success(out, "Validated requirement %s", o.ID)
	} else {
		display.Success(out, "Processed requirement %s", o.ID)
		fmt.Fprintf(out, "    Artifacts written to %s\n", o.OutputDir)
	}
	if o.TestResult != nil {
		fmt.Fprintf(out, "    Tests: %d run, %d failed\n", o.TestResult.Total, o.TestResult.Failed)
	}
}

func newReqWatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [directory]",
		Short: "Re-process requirement files as they change",
		Long: `Watch a directory tree (default: requirements.dir) and re-validate each
requirement file when it is saved, regenerating its artifacts. Hidden
directories such as .ai are ignored. Stop with Ctrl+C.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runReqWatch,
	}

	cmd.Flags().String("output-dir", "", "Artifact directory (default: requirements.output_dir or .ai)")
	cmd.Flags().Duration("debounce", watch.DefaultDebounce, "Quiet period before a change is processed")

	return cmd
}

func runReqWatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	dir := cfg.Requirements.Dir
	if len(args) == 1 {
		dir = args[0]
	}
	outputDir := cfg.Requirements.OutputDir
	if cmd.Flags().Changed("output-dir") {
		outputDir, _ = cmd.Flags().GetString("output-dir")
	}
	debounce, _ := cmd.Flags().GetDuration("debounce")

	log := logger.NewConsoleLogger(cmd.ErrOrStderr(), cfg.LogLevel)
	fw := requirements.NewFramework(requirements.Options{
		OutputDir:        outputDir,
		RequiredMetadata: cfg.Requirements.RequiredMetadata,
		Logger:           log,
	})

	w, err := watch.New(dir, watch.Options{
		Extensions: fileutil.RequirementExtensions,
		Debounce:   debounce,
	})
	if err != nil {
		return err
	}
	defer w.Close()

	fmt.Fprintf(out, "Watching %s for requirement changes (Ctrl+C to stop)\n", w.Root())

	err = w.Run(ctx, func(ev watch.Event) {
		if ev.Op == watch.Removed {
			log.LogInfo(fmt.Sprintf("%s removed", ev.Path))
			return
		}
		req, err := fw.ProcessFile(ctx, ev.Path)
		if err != nil {
			display.Failure(out, "%s: %v", ev.Path, err)
			return
		}
		display.Success(out, "Processed requirement %s", req.ID)
	}, func(err error) {
		log.LogWarn(fmt.Sprintf("watch error: %v", err))
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
