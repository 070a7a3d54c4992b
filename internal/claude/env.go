package claude

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// cleanTmpDir is the temp directory handed to Claude CLI invocations.
// A dedicated directory keeps editor socket files out of the CLI's TMPDIR,
// which otherwise crash it when --settings is used.
var cleanTmpDir = filepath.Join(os.TempDir(), "cognitive-claude")

// SetCleanEnv configures a command to use a clean TMPDIR.
func SetCleanEnv(cmd *exec.Cmd) {
	os.MkdirAll(cleanTmpDir, 0755)

	cmd.Env = os.Environ()

	for i, env := range cmd.Env {
		if strings.HasPrefix(env, "TMPDIR=") {
			cmd.Env[i] = "TMPDIR=" + cleanTmpDir
			return
		}
	}
	cmd.Env = append(cmd.Env, "TMPDIR="+cleanTmpDir)
}

// GetCleanTmpDir returns the clean temp directory path for Claude CLI.
func GetCleanTmpDir() string {
	return cleanTmpDir
}
