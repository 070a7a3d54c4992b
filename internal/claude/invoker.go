// Package claude provides utilities for invoking Claude CLI.
package claude

import (
	"context"
	"fmt"
	"os/exec"
	"time"
)

// DefaultSystemPrompt is used when neither the Invoker nor the Request sets one.
const DefaultSystemPrompt = "You are a developer assistant reviewing project analysis. Answer concisely. No markdown code fences around JSON output."

// Invoker is a reusable client for invoking Claude CLI commands.
// It follows the http.Client pattern: create once, use many times.
// Thread-safe for concurrent use.
type Invoker struct {
	// ClaudePath is the path to the claude CLI binary.
	// Defaults to "claude" (found in PATH).
	ClaudePath string

	// Timeout is the default timeout for invocations.
	// Can be overridden per-request via context.
	Timeout time.Duration

	// SystemPrompt is the system prompt sent with all invocations.
	SystemPrompt string

	// Model is passed via --model when set.
	Model string
}

// Request holds per-invocation configuration for a Claude CLI call.
type Request struct {
	// Prompt is the user prompt to send to Claude (required).
	Prompt string

	// SystemPrompt overrides the Invoker's system prompt (optional).
	SystemPrompt string

	// Schema is the JSON schema for structured output (optional).
	Schema string

	// Model overrides the Invoker's model (optional).
	Model string
}

// Response holds the raw output from a Claude CLI invocation.
// Use ParseResponse to extract content and session id.
type Response struct {
	RawOutput []byte
	SessionID string
}

// NewInvoker creates a new Invoker with default settings.
func NewInvoker() *Invoker {
	return &Invoker{
		ClaudePath:   "claude",
		SystemPrompt: DefaultSystemPrompt,
	}
}

// Invoke executes a Claude CLI command and returns its raw output.
// A positive Timeout bounds the call in addition to ctx.
func (inv *Invoker) Invoke(ctx context.Context, req Request) (*Response, error) {
	if inv.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, inv.Timeout)
		defer cancel()
	}

	args, err := inv.buildArgs(req)
	if err != nil {
		return nil, err
	}

	claudePath := inv.ClaudePath
	if claudePath == "" {
		claudePath = "claude"
	}

	cmd := exec.CommandContext(ctx, claudePath, args...)
	SetCleanEnv(cmd)
	cmd.WaitDelay = time.Second

	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("claude invocation failed: %w (output: %s)", err, truncate(string(output), 500))
	}

	_, sessionID, _ := ParseResponse(output)
	return &Response{
		RawOutput: output,
		SessionID: sessionID,
	}, nil
}

// buildArgs assembles CLI flags.
// Always includes: --system-prompt, -p, --output-format json, --settings
func (inv *Invoker) buildArgs(req Request) ([]string, error) {
	if req.Prompt == "" {
		return nil, fmt.Errorf("prompt is required")
	}

	systemPrompt := req.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = inv.SystemPrompt
	}
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}

	args := []string{"--system-prompt", systemPrompt, "-p", req.Prompt}

	model := req.Model
	if model == "" {
		model = inv.Model
	}
	if model != "" {
		args = append(args, "--model", model)
	}

	if req.Schema != "" {
		args = append(args, "--json-schema", req.Schema)
	}

	args = append(args, "--output-format", "json")

	// Disable hooks for automation
	args = append(args, "--settings", `{"disableAllHooks": true}`)

	return args, nil
}
