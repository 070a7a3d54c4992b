package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/harrison/cognitive/internal/config"
)

// newProject creates a temporary project, makes it the working directory and
// the project root, and clears environment variables that steer mode detection.
func newProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(config.HomeEnvVar, dir)
	for _, name := range []string{"AI_MODE", "AI_API_KEY", "OPENAI_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY", "CI", "GITHUB_ACTIONS", "GITLAB_CI", "BUILDKITE", "JENKINS_URL"} {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
	t.Chdir(dir)
	return dir
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// goTestOutput renders go test -json events for the given test outcomes.
func goTestOutput(pkg string, results map[string]string) string {
	var b strings.Builder
	pkgAction := "pass"
	for name, action := range results {
		b.WriteString(`{"Action":"run","Package":"` + pkg + `","Test":"` + name + `"}` + "\n")
		b.WriteString(`{"Action":"` + action + `","Package":"` + pkg + `","Test":"` + name + `","Elapsed":0.01}` + "\n")
		if action == "fail" {
			pkgAction = "fail"
		}
	}
	b.WriteString(`{"Action":"output","Package":"` + pkg + `","Output":"coverage: 82.5% of statements\n"}` + "\n")
	b.WriteString(`{"Action":"` + pkgAction + `","Package":"` + pkg + `","Elapsed":0.05}` + "\n")
	return b.String()
}

// syncBuffer is a bytes.Buffer safe for a command running in another goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	return executeContext(context.Background(), args...)
}

func executeContext(ctx context.Context, args ...string) (string, string, error) {
	root := NewRootCommand()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	return stdout.String(), stderr.String(), err
}
