package dualmode

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/harrison/cognitive/internal/filelock"
	"github.com/harrison/cognitive/internal/models"
)

// IDE output file names.
const (
	ContextFile             = "context.json"
	AnalysisFile            = "analysis.md"
	PromptsFile             = "prompts.md"
	CopilotInstructionsFile = "copilot-instructions.md"
	CursorRulesFile         = "cursor-rules.md"
)

// PromptsHeading opens every prompts.md.
const PromptsHeading = "# AI Assistant Prompts"

// contextDocument is the layout of context.json.
type contextDocument struct {
	Tool      string                 `json:"tool"`
	Version   string                 `json:"version"`
	Timestamp string                 `json:"timestamp"`
	Context   map[string]interface{} `json:"context"`
	Metadata  map[string]interface{} `json:"metadata"`
}

type outputFile struct {
	name    string
	content []byte
}

type ideHandler struct {
	cfg   Config
	clock func() time.Time
}

// validateIDEAnalysis checks the shape shared by the IDE pipeline and the CI fallback.
func validateIDEAnalysis(mode models.Mode, a *IDEAnalysis) error {
	if a == nil || a.Context == nil {
		return &InvalidOutputError{Mode: mode, Message: "processor must return a context object"}
	}
	if strings.TrimSpace(a.Analysis) == "" {
		return &InvalidOutputError{Mode: mode, Message: "processor must return an analysis string"}
	}
	return nil
}

// run analyzes data and writes the context file set. Files are written in a
// fixed order under an exclusive lock on the output directory; a failed write
// leaves earlier files in place.
func (h *ideHandler) run(ctx context.Context, analyzer IDEAnalyzer, data interface{}) (*models.ProcessResult, error) {
	analysis, err := analyzer.AnalyzeForIDE(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("AnalyzeForIDE failed: %w", err)
	}
	if err := validateIDEAnalysis(models.ModeIDE, analysis); err != nil {
		return nil, err
	}

	unlock, err := filelock.LockDir(ctx, h.cfg.OutputDir)
	if err != nil {
		return nil, err
	}
	defer unlock()

	now := h.clock()
	metadata := analysis.Metadata
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	doc := contextDocument{
		Tool:      h.cfg.ToolName,
		Version:   h.cfg.Version,
		Timestamp: now.UTC().Format(time.RFC3339),
		Context:   analysis.Context,
		Metadata:  metadata,
	}
	contextJSON, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode context: %w", err)
	}

	outputs := []outputFile{
		{ContextFile, append(contextJSON, '\n')},
		{AnalysisFile, []byte(ensureTrailingNewline(analysis.Analysis))},
		{PromptsFile, []byte(renderPrompts(analysis.Prompts))},
	}
	if h.cfg.IncludeIDESpecific {
		outputs = append(outputs,
			outputFile{CopilotInstructionsFile, []byte(h.renderCopilot(analysis))},
			outputFile{CursorRulesFile, []byte(h.renderCursor(analysis))},
		)
	}

	files := make([]string, 0, len(outputs))
	for _, out := range outputs {
		path := filepath.Join(h.cfg.OutputDir, out.name)
		if err := filelock.AtomicWrite(path, out.content); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", out.name, err)
		}
		files = append(files, path)
	}

	return &models.ProcessResult{
		Mode:   models.ModeIDE,
		Status: models.StatusSuccess,
		Result: models.IDEOutput{
			Files:        files,
			Instructions: h.instructions(files),
		},
		Metadata: map[string]interface{}{
			"tool":      h.cfg.ToolName,
			"version":   h.cfg.Version,
			"outputDir": h.cfg.OutputDir,
			"timestamp": now.UTC().Format(time.RFC3339),
		},
	}, nil
}

func renderPrompts(prompts string) string {
	var sb strings.Builder
	sb.WriteString(PromptsHeading)
	sb.WriteString("\n\n")
	if strings.TrimSpace(prompts) == "" {
		sb.WriteString("_No prompts suggested._\n")
	} else {
		sb.WriteString(ensureTrailingNewline(strings.TrimSpace(prompts)))
	}
	return sb.String()
}

func (h *ideHandler) renderCopilot(a *IDEAnalysis) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# %s: GitHub Copilot Instructions\n\n", h.cfg.ToolName))
	sb.WriteString(fmt.Sprintf("Read `%s` and `%s` in `%s` before answering questions about this project.\n\n",
		ContextFile, AnalysisFile, h.cfg.OutputDir))
	sb.WriteString("## Current Analysis\n\n")
	sb.WriteString(ensureTrailingNewline(strings.TrimSpace(a.Analysis)))
	return sb.String()
}

func (h *ideHandler) renderCursor(a *IDEAnalysis) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# %s: Cursor Rules\n\n", h.cfg.ToolName))
	sb.WriteString(fmt.Sprintf("- Treat `%s` as the source of truth for project state.\n",
		filepath.Join(h.cfg.OutputDir, ContextFile)))
	sb.WriteString(fmt.Sprintf("- Suggested prompts live in `%s`.\n",
		filepath.Join(h.cfg.OutputDir, PromptsFile)))
	if summary, ok := a.Context["summary"].(string); ok && summary != "" {
		sb.WriteString(fmt.Sprintf("- Current summary: %s\n", summary))
	}
	return sb.String()
}

func (h *ideHandler) instructions(files []string) string {
	var sb strings.Builder
	sb.WriteString("AI Context Files Generated Successfully\n\n")
	sb.WriteString(fmt.Sprintf("%s wrote %d files to %s:\n", h.cfg.ToolName, len(files), h.cfg.OutputDir))
	for _, f := range files {
		sb.WriteString("  - " + f + "\n")
	}
	sb.WriteString("\nNext steps:\n")
	sb.WriteString(fmt.Sprintf("  1. Open %s in your IDE\n", filepath.Join(h.cfg.OutputDir, AnalysisFile)))
	sb.WriteString(fmt.Sprintf("  2. Share %s with your AI assistant\n", filepath.Join(h.cfg.OutputDir, ContextFile)))
	sb.WriteString(fmt.Sprintf("  3. Pick a prompt from %s\n", filepath.Join(h.cfg.OutputDir, PromptsFile)))
	return sb.String()
}

func ensureTrailingNewline(s string) string {
	if strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}
