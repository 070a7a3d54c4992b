package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/harrison/cognitive/internal/claude"
)

// claudeProvider runs completions through the local claude CLI, which
// manages its own credentials.
type claudeProvider struct {
	inv *claude.Invoker
}

func newClaudeProvider(_ context.Context, s Settings) (Provider, error) {
	inv := claude.NewInvoker()
	if s.Endpoint != "" {
		inv.ClaudePath = s.Endpoint
	}
	inv.Model = s.Model
	inv.Timeout = s.Timeout
	return &claudeProvider{inv: inv}, nil
}

func (c *claudeProvider) Name() string { return "claude" }

// Complete flattens the conversation into a single prompt.
func (c *claudeProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	system, turns := splitSystem(req.Messages)

	var prompt strings.Builder
	for i, m := range turns {
		if i > 0 {
			prompt.WriteString("\n\n")
		}
		if len(turns) > 1 {
			prompt.WriteString(strings.ToUpper(m.Role) + ":\n")
		}
		prompt.WriteString(m.Content)
	}

	resp, err := c.inv.Invoke(ctx, claude.Request{
		Prompt:       prompt.String(),
		SystemPrompt: system,
		Model:        req.Model,
	})
	if err != nil {
		return nil, err
	}

	content, _, err := claude.ParseResponse(resp.RawOutput)
	if err != nil {
		return nil, fmt.Errorf("failed to parse claude output: %w", err)
	}
	if content == "" {
		return nil, fmt.Errorf("empty response from claude")
	}

	model := req.Model
	if model == "" {
		model = c.inv.Model
	}
	return &Response{Content: content, Model: model, Provider: c.Name()}, nil
}
