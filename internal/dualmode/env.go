package dualmode

import (
	"strings"

	"github.com/harrison/cognitive/internal/models"
)

// Environment is a snapshot of process environment variables, taken once at
// startup. Mode detection reads only this snapshot.
type Environment map[string]string

// EnvMode overrides automatic detection when set to ide, api or ci.
const EnvMode = "AI_MODE"

// APIKeyEnvVars select api mode when any is set.
var APIKeyEnvVars = []string{"AI_API_KEY", "OPENAI_API_KEY", "GEMINI_API_KEY"}

// CIEnvVars select ci mode when any is set.
var CIEnvVars = []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "BUILDKITE", "JENKINS_URL"}

// IDEEnvVars select ide mode when any is set.
var IDEEnvVars = []string{"VSCODE_PID", "JETBRAINS_IDE", "CURSOR_TRACE_ID", "FORCE_IDE_MODE"}

// RecognizedEnvVars lists every variable the dispatcher and providers read.
func RecognizedEnvVars() []string {
	names := []string{EnvMode, "TERM_PROGRAM", "GOOGLE_API_KEY"}
	names = append(names, APIKeyEnvVars...)
	names = append(names, CIEnvVars...)
	names = append(names, IDEEnvVars...)
	return names
}

// Get returns the trimmed value of key.
func (e Environment) Get(key string) string {
	return strings.TrimSpace(e[key])
}

// IsSet reports whether key holds a value other than "", "0" or "false".
func (e Environment) IsSet(key string) bool {
	switch strings.ToLower(e.Get(key)) {
	case "", "0", "false":
		return false
	default:
		return true
	}
}

// hasKey reports whether any of keys holds a non-blank value. API keys use
// this rather than IsSet so detection agrees with provider key resolution.
func (e Environment) hasKey(keys []string) bool {
	for _, k := range keys {
		if e.Get(k) != "" {
			return true
		}
	}
	return false
}

func (e Environment) anySet(keys []string) bool {
	for _, k := range keys {
		if e.IsSet(k) {
			return true
		}
	}
	return false
}

// DetectMode resolves the execution mode. First match wins:
//
//  1. explicit cfg.Mode of ide, api or ci
//  2. AI_MODE of ide, api or ci
//  3. an API key in cfg or the environment (api)
//  4. a CI indicator (ci)
//  5. an IDE indicator (ide)
//  6. ide
//
// An explicit mode other than auto, ide, api or ci is a ConfigurationError.
func DetectMode(cfg Config, env Environment) (models.Mode, error) {
	mode, ok := models.ParseMode(string(cfg.Mode))
	if !ok {
		return "", &ConfigurationError{Message: "unknown mode: " + string(cfg.Mode)}
	}
	if mode.IsConcrete() {
		return mode, nil
	}

	if override, ok := models.ParseMode(env.Get(EnvMode)); ok && override.IsConcrete() {
		return override, nil
	}

	// An explicit key signals intent to call a provider even inside CI
	if strings.TrimSpace(cfg.APIKey) != "" || env.hasKey(APIKeyEnvVars) {
		return models.ModeAPI, nil
	}

	if env.anySet(CIEnvVars) {
		return models.ModeCI, nil
	}

	if env.anySet(IDEEnvVars) || strings.EqualFold(env.Get("TERM_PROGRAM"), "vscode") {
		return models.ModeIDE, nil
	}

	return models.ModeIDE, nil
}
