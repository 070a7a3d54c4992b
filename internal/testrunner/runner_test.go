package testrunner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCommandRunner struct {
	output   string
	err      error
	commands []string
}

func (f *fakeCommandRunner) Run(ctx context.Context, command string) (string, error) {
	f.commands = append(f.commands, command)
	return f.output, f.err
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name    string
		files   []string
		runner  string
		wantErr bool
	}{
		{name: "go module", files: []string{"go.mod"}, runner: RunnerGo},
		{name: "node project", files: []string{"package.json"}, runner: RunnerJest},
		{name: "go wins", files: []string{"go.mod", "package.json"}, runner: RunnerGo},
		{name: "nothing", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for _, f := range tt.files {
				writeFile(t, filepath.Join(dir, f), "{}")
			}

			det, err := Detect(dir)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrNoRunner))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.runner, det.Runner)
		})
	}
}

func TestRunnerRun(t *testing.T) {
	t.Run("failing tests are not an error", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "go.mod"), "module example.com/app\n")
		fake := &fakeCommandRunner{output: goJSONOutput, err: errors.New("exit status 1")}

		report, err := (&Runner{Exec: fake}).Run(context.Background(), dir)
		require.NoError(t, err)

		assert.Equal(t, []string{"go test -json -cover ./..."}, fake.commands)
		assert.Equal(t, RunnerGo, report.Runner)
		assert.Equal(t, dir, report.ProjectPath)
		assert.Equal(t, 1, report.Failed)
		assert.Equal(t, "exit status 1", report.ExitError)
	})

	t.Run("failure without results", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "package.json"), "{}")
		fake := &fakeCommandRunner{output: "sh: npm: not found", err: errors.New("exit status 127")}

		report, err := (&Runner{Exec: fake}).Run(context.Background(), dir)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrRunFailed))
		assert.Contains(t, err.Error(), "npm: not found")
		require.NotNil(t, report)
		assert.Equal(t, RunnerJest, report.Runner)
	})

	t.Run("command override", func(t *testing.T) {
		dir := t.TempDir()
		fake := &fakeCommandRunner{output: "Tests:       4 passed, 4 total\n"}

		report, err := (&Runner{Command: "yarn jest", Runner: RunnerJest, Exec: fake}).Run(context.Background(), dir)
		require.NoError(t, err)
		assert.Equal(t, []string{"yarn jest"}, fake.commands)
		assert.Equal(t, 4, report.Passed)
	})

	t.Run("no runner", func(t *testing.T) {
		_, err := (&Runner{Exec: &fakeCommandRunner{}}).Run(context.Background(), t.TempDir())
		assert.True(t, errors.Is(err, ErrNoRunner))
	})
}

func TestShellCommandRunner(t *testing.T) {
	dir := t.TempDir()
	runner := NewShellCommandRunner(dir)

	out, err := runner.Run(context.Background(), "pwd; echo err 1>&2")
	require.NoError(t, err)

	resolved, _ := filepath.EvalSymlinks(dir)
	assert.Contains(t, out, resolved)
	assert.Contains(t, out, "err")

	_, err = runner.Run(context.Background(), "exit 2")
	assert.Error(t, err)
}
