package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// HomeDirName is the per-project directory holding config, logs and history.
const HomeDirName = ".cognitive"

// HomeEnvVar overrides project root detection.
const HomeEnvVar = "COGNITIVE_HOME"

// ProjectRoot returns the directory cognitive treats as the project root
// Priority order:
//  1. COGNITIVE_HOME environment variable (if set)
//  2. Nearest ancestor of start containing a .cognitive directory
//  3. Nearest ancestor of start containing go.mod or package.json
//  4. start itself
func ProjectRoot(start string) (string, error) {
	if home := os.Getenv(HomeEnvVar); home != "" {
		return filepath.Abs(home)
	}

	if start == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("get working directory: %w", err)
		}
		start = cwd
	}
	start, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", start, err)
	}

	if root, ok := findUp(start, func(dir string) bool {
		info, err := os.Stat(filepath.Join(dir, HomeDirName))
		return err == nil && info.IsDir()
	}); ok {
		return root, nil
	}

	if root, ok := findUp(start, func(dir string) bool {
		return exists(filepath.Join(dir, "go.mod")) || exists(filepath.Join(dir, "package.json"))
	}); ok {
		return root, nil
	}

	return start, nil
}

func findUp(start string, match func(string) bool) (string, bool) {
	current := start
	for {
		if match(current) {
			return current, true
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", false
		}
		current = parent
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
