package requirements

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/harrison/cognitive/internal/filelock"
)

// Artifact file names written by GenerateArtifacts.
const (
	AnalysisFile           = "analysis.md"
	AcceptanceCriteriaFile = "acceptance_criteria.md"
	PromptsFile            = "PROMPTS.md"
)

// GenerateArtifacts writes the analysis, acceptance criteria and prompts
// documents for req into dir and returns their paths. dir is created when
// missing. Each file is replaced atomically, but the set as a whole is not.
func GenerateArtifacts(dir string, req *Requirement) ([]string, error) {
	if req == nil {
		return nil, fmt.Errorf("no requirement to render")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create artifact directory: %w", err)
	}

	analysisPath := filepath.Join(dir, AnalysisFile)
	criteriaPath := filepath.Join(dir, AcceptanceCriteriaFile)
	promptsPath := filepath.Join(dir, PromptsFile)

	files := []struct {
		path    string
		content string
	}{
		{analysisPath, RenderAnalysis(req)},
		{criteriaPath, RenderAcceptanceCriteria(req)},
		{promptsPath, RenderPrompts(analysisPath, criteriaPath)},
	}

	written := make([]string, 0, len(files))
	for _, f := range files {
		if err := filelock.AtomicWrite(f.path, []byte(f.content)); err != nil {
			return written, fmt.Errorf("failed to write %s: %w", filepath.Base(f.path), err)
		}
		written = append(written, f.path)
	}
	return written, nil
}

// RenderAnalysis renders the requirement's identity, metadata and
// description as markdown.
func RenderAnalysis(req *Requirement) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", req.String())
	fmt.Fprintf(&sb, "**Type:** %s\n", req.Type)
	fmt.Fprintf(&sb, "**ID:** %s\n", req.ID)

	if len(req.Metadata) > 0 {
		sb.WriteString("\n## Metadata\n\n")
		keys := make([]string, 0, len(req.Metadata))
		for k := range req.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&sb, "- **%s:** %s\n", k, req.Metadata[k])
		}
	}

	if req.Description != "" {
		sb.WriteString("\n## Description\n\n")
		sb.WriteString(req.Description)
		sb.WriteString("\n")
	}

	if len(req.Children) > 0 {
		sb.WriteString("\n## Children\n\n")
		for _, c := range req.Children {
			fmt.Fprintf(&sb, "- %s (%s)\n", c.String(), c.Type)
		}
	}
	return sb.String()
}

// RenderAcceptanceCriteria concatenates the acceptance criteria of every
// node in depth-first order.
func RenderAcceptanceCriteria(req *Requirement) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Acceptance Criteria for %s\n\n", req.ID)

	count := 0
	req.Walk(func(n *Requirement) bool {
		for _, c := range n.AcceptanceCriteria {
			fmt.Fprintf(&sb, "- %s\n", c)
			count++
		}
		return true
	})
	if count == 0 {
		sb.WriteString("_No acceptance criteria defined._\n")
	}
	return sb.String()
}

// RenderPrompts returns the two fixed assistant prompts pointing at the
// generated analysis and acceptance criteria files.
func RenderPrompts(analysisPath, criteriaPath string) string {
	var sb strings.Builder
	sb.WriteString("# AI Prompts\n\n")
	sb.WriteString("## Implementation Plan\n\n")
	fmt.Fprintf(&sb, "Read %s and propose a step-by-step implementation plan for this requirement.\n\n", analysisPath)
	sb.WriteString("## Test Generation\n\n")
	fmt.Fprintf(&sb, "Write tests that verify every item listed in %s.\n", criteriaPath)
	return sb.String()
}
