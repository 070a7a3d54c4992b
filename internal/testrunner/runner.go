package testrunner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

var (
	// ErrNoRunner is returned when no supported test runner is detected.
	ErrNoRunner = errors.New("no supported test runner detected")
	// ErrRunFailed indicates the test command failed without producing results.
	ErrRunFailed = errors.New("test command failed")
)

// Runner names
const (
	RunnerGo   = "go"
	RunnerJest = "jest"
)

// CommandRunner abstracts shell command execution for testability.
type CommandRunner interface {
	Run(ctx context.Context, command string) (output string, err error)
}

// ShellCommandRunner executes commands via the system shell.
type ShellCommandRunner struct {
	WorkDir string // Working directory for commands (empty = current dir)
}

// NewShellCommandRunner creates a CommandRunner that executes real shell commands.
func NewShellCommandRunner(workDir string) *ShellCommandRunner {
	return &ShellCommandRunner{WorkDir: workDir}
}

// Run executes a command via sh -c and returns combined stdout/stderr.
func (r *ShellCommandRunner) Run(ctx context.Context, command string) (string, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	if r.WorkDir != "" {
		cmd.Dir = r.WorkDir
	}

	output, err := cmd.CombinedOutput()
	return string(output), err
}

// Detection is a detected runner and the command that drives it.
type Detection struct {
	Runner  string
	Command string
}

// Detect picks a runner from the project's marker files.
// go.mod wins over package.json when both exist.
func Detect(projectPath string) (Detection, error) {
	if fileExists(filepath.Join(projectPath, "go.mod")) {
		return Detection{Runner: RunnerGo, Command: "go test -json -cover ./..."}, nil
	}
	if fileExists(filepath.Join(projectPath, "package.json")) {
		return Detection{Runner: RunnerJest, Command: "npm test -- --coverage"}, nil
	}
	return Detection{}, fmt.Errorf("%w in %s", ErrNoRunner, projectPath)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Runner runs a project's tests and parses the output.
type Runner struct {
	// Command overrides detection when set. Runner names the parser to use
	// for it and defaults to the detected runner, or "go".
	Command string
	Runner  string

	// Exec runs the command. Nil uses a ShellCommandRunner rooted at the project.
	Exec CommandRunner

	// Timeout bounds a single run when positive.
	Timeout time.Duration
}

// Run executes the test command in projectPath.
//
// A non-zero exit is not an error when the output parsed into at least one
// test; failures are then reported through the Report. Otherwise the exit
// error is wrapped with ErrRunFailed.
func (r *Runner) Run(ctx context.Context, projectPath string) (*Report, error) {
	det, err := r.resolve(projectPath)
	if err != nil {
		return nil, err
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmdRunner := r.Exec
	if cmdRunner == nil {
		cmdRunner = NewShellCommandRunner(projectPath)
	}

	start := time.Now()
	output, runErr := cmdRunner.Run(ctx, det.Command)
	elapsed := time.Since(start)

	var report *Report
	switch det.Runner {
	case RunnerJest:
		report = ParseJestOutput(output)
	default:
		report = ParseGoTestJSON(output)
	}
	report.Runner = det.Runner
	report.Command = det.Command
	report.ProjectPath = projectPath
	if report.Duration == 0 {
		report.Duration = elapsed
	}

	if runErr != nil {
		report.ExitError = runErr.Error()
		if report.Total == 0 {
			errMsg := fmt.Sprintf("%q failed after %v: %v", det.Command, elapsed.Round(time.Millisecond), runErr)
			if out := strings.TrimSpace(output); out != "" {
				errMsg += fmt.Sprintf("\nOutput:\n%s", truncateOutput(out, 2000))
			}
			return report, fmt.Errorf("%w: %s", ErrRunFailed, errMsg)
		}
	}

	return report, nil
}

func (r *Runner) resolve(projectPath string) (Detection, error) {
	if r.Command != "" {
		runner := r.Runner
		if runner == "" {
			if det, err := Detect(projectPath); err == nil {
				runner = det.Runner
			} else {
				runner = RunnerGo
			}
		}
		return Detection{Runner: runner, Command: r.Command}, nil
	}
	return Detect(projectPath)
}

func truncateOutput(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return "..." + s[len(s)-max:]
}
