package cmd

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTestCommand(t *testing.T) {
	tests := []struct {
		name     string
		results  map[string]string
		wantErr  string
		contains []string
	}{
		{
			name:     "passing",
			results:  map[string]string{"TestA": "pass", "TestB": "skip"},
			contains: []string{"Runner: go (cat results.json)", "Tests: 1 passed, 0 failed, 1 skipped", "Coverage: 82.5%", "All tests passed"},
		},
		{
			name:     "failing",
			results:  map[string]string{"TestA": "pass", "TestB": "fail"},
			wantErr:  "1 of 2 tests failed",
			contains: []string{"Failing tests", "example.com/app.TestB"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			project := newProject(t)
			writeFile(t, filepath.Join(project, "results.json"), goTestOutput("example.com/app", tt.results))

			out, _, err := execute(t, "test", project, "--command", "cat results.json", "--runner", "go")
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			for _, want := range tt.contains {
				assert.Contains(t, out, want)
			}
		})
	}
}

func TestTestCommandJSON(t *testing.T) {
	project := newProject(t)
	writeFile(t, filepath.Join(project, "results.json"), goTestOutput("example.com/app", map[string]string{"TestA": "pass"}))

	out, _, err := execute(t, "test", project, "--command", "cat results.json", "--format", "json")
	require.NoError(t, err)

	var report map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "go", report["runner"])
	assert.Equal(t, float64(1), report["total"])
}

func TestTestCommandErrors(t *testing.T) {
	project := newProject(t)

	_, _, err := execute(t, "test", project)
	assert.Error(t, err, "no go.mod or package.json")

	_, _, err = execute(t, "test", project, "--command", "true", "--runner", "pytest")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid test_runner.runner")
}
