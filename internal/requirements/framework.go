package requirements

import (
	"context"
	"fmt"

	"github.com/harrison/cognitive/internal/logger"
	"github.com/harrison/cognitive/internal/testrunner"
)

// DefaultOutputDir is where artifacts are written when Options.OutputDir is empty.
const DefaultOutputDir = ".ai"

// Logger is the subset of the logger package used by Framework.
type Logger interface {
	LogDebug(message string)
	LogInfo(message string)
}

// TestRunner runs a project's test suite.
type TestRunner interface {
	Run(ctx context.Context, projectPath string) (*testrunner.Report, error)
}

// Options configures a Framework.
type Options struct {
	OutputDir        string
	RequiredMetadata []string
	SkipArtifacts    bool
	Runner           TestRunner // Used by ProcessAndTest; nil runs a detected testrunner.Runner
	Logger           Logger
}

// Framework ties parsing, validation and artifact generation together.
type Framework struct {
	opts      Options
	validator *Validator
	logger    Logger
}

// TestedRequirement is the result of ProcessAndTest.
type TestedRequirement struct {
	Requirement *Requirement       `json:"requirement"`
	TestResult  *testrunner.Report `json:"testResult"`
}

// NewFramework creates a Framework, filling defaults for unset options.
func NewFramework(opts Options) *Framework {
	if opts.OutputDir == "" {
		opts.OutputDir = DefaultOutputDir
	}
	log := opts.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Framework{
		opts:      opts,
		validator: NewValidator(opts.RequiredMetadata...),
		logger:    log,
	}
}

// OutputDir returns the artifact directory.
func (f *Framework) OutputDir() string {
	return f.opts.OutputDir
}

// Process parses input, validates it, and writes artifacts unless
// SkipArtifacts is set. Parse and validation errors abort before any file
// is written.
func (f *Framework) Process(ctx context.Context, input interface{}) (*Requirement, error) {
	req, err := Parse(input)
	if err != nil {
		return nil, err
	}
	f.logger.LogDebug(fmt.Sprintf("parsed requirement %s (%s)", req.ID, req.Type))

	if err := f.validator.Validate(req); err != nil {
		return nil, err
	}

	if f.opts.SkipArtifacts {
		return req, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	files, err := GenerateArtifacts(f.opts.OutputDir, req)
	if err != nil {
		return nil, err
	}
	f.logger.LogInfo(fmt.Sprintf("Processed requirement %s: wrote %d artifacts to %s", req.ID, len(files), f.opts.OutputDir))
	return req, nil
}

// ProcessFile reads and processes a requirement file.
func (f *Framework) ProcessFile(ctx context.Context, path string) (*Requirement, error) {
	req, err := ParseFile(path)
	if err != nil {
		return nil, err
	}
	return f.Process(ctx, req)
}

// ProcessAndTest processes input and then runs the test suite of
// projectPath. A failing suite is reported through TestResult; only a run
// that produced no results is an error.
func (f *Framework) ProcessAndTest(ctx context.Context, input interface{}, projectPath string) (*TestedRequirement, error) {
	req, err := f.Process(ctx, input)
	if err != nil {
		return nil, err
	}

	runner := f.opts.Runner
	if runner == nil {
		runner = &testrunner.Runner{}
	}

	report, err := runner.Run(ctx, projectPath)
	if err != nil {
		return &TestedRequirement{Requirement: req, TestResult: report}, fmt.Errorf("failed to run tests for %s: %w", req.ID, err)
	}
	f.logger.LogInfo(fmt.Sprintf("Tests for %s: %d run, %d failed", req.ID, report.Total, report.Failed))

	return &TestedRequirement{Requirement: req, TestResult: report}, nil
}
