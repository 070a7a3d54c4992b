package models

import "strings"

// Mode is the execution mode selected by the dispatcher.
type Mode string

// Execution modes
const (
	ModeAuto Mode = "auto" // Resolve from configuration and environment
	ModeIDE  Mode = "ide"  // Write context files for IDE-integrated assistants
	ModeAPI  Mode = "api"  // Call a remote model provider directly
	ModeCI   Mode = "ci"   // Produce a pass/fail report for pipelines
)

// ParseMode normalizes a mode string. Empty input maps to ModeAuto.
// The second return value is false for unrecognized modes.
func ParseMode(s string) (Mode, bool) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeAuto:
		return ModeAuto, true
	case ModeIDE:
		return ModeIDE, true
	case ModeAPI:
		return ModeAPI, true
	case ModeCI:
		return ModeCI, true
	default:
		return Mode(s), false
	}
}

// IsConcrete reports whether m is one of ide, api or ci.
func (m Mode) IsConcrete() bool {
	return m == ModeIDE || m == ModeAPI || m == ModeCI
}

// String returns the mode name
func (m Mode) String() string {
	return string(m)
}

// Status is the outcome recorded in a ProcessResult.
type Status string

// Result status constants
const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)
