package dualmode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/harrison/cognitive/internal/display"
	"github.com/harrison/cognitive/internal/filelock"
	"github.com/harrison/cognitive/internal/models"
)

type ciHandler struct {
	cfg   Config
	out   io.Writer
	clock func() time.Time
}

// run builds a CI report from AnalyzeForCI, or from AnalyzeForIDE output when
// the processor has no CI method.
func (h *ciHandler) run(ctx context.Context, ci CIAnalyzer, ide IDEAnalyzer, data interface{}) (*models.ProcessResult, error) {
	var analysis *CIAnalysis
	if ci != nil {
		a, err := ci.AnalyzeForCI(ctx, data)
		if err != nil {
			return nil, fmt.Errorf("AnalyzeForCI failed: %w", err)
		}
		if a == nil {
			return nil, &InvalidOutputError{Mode: models.ModeCI, Message: "processor must return a CI analysis"}
		}
		analysis = a
	} else {
		a, err := ide.AnalyzeForIDE(ctx, data)
		if err != nil {
			return nil, fmt.Errorf("AnalyzeForIDE failed: %w", err)
		}
		if err := validateIDEAnalysis(models.ModeCI, a); err != nil {
			return nil, err
		}
		analysis = ciFromIDE(a)
	}

	issues := analysis.Issues
	if issues == nil {
		issues = []models.Issue{}
	}
	metrics := analysis.Metrics
	if metrics == nil {
		metrics = map[string]interface{}{}
	}

	report := &models.CIReport{
		Mode:    models.ModeCI,
		Status:  models.StatusSuccess,
		Tool:    h.cfg.ToolName,
		Summary: analysis.Summary,
		Issues:  issues,
		Metrics: metrics,
		Passed:  Passed(issues, h.cfg.FailOnSeverities),
	}

	h.printLine(report)

	meta := map[string]interface{}{
		"tool":       h.cfg.ToolName,
		"passed":     report.Passed,
		"issueCount": len(report.Issues),
		"timestamp":  h.clock().UTC().Format(time.RFC3339),
	}

	if h.cfg.SaveToFile {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to encode CI report: %w", err)
		}
		if err := filelock.LockAndWrite(h.cfg.OutputFile, append(data, '\n')); err != nil {
			return nil, fmt.Errorf("failed to save CI report: %w", err)
		}
		meta["outputFile"] = h.cfg.OutputFile
	}

	return &models.ProcessResult{
		Mode:     models.ModeCI,
		Status:   models.StatusSuccess,
		Result:   report,
		Metadata: meta,
	}, nil
}

// Passed reports false iff any issue's severity is one of failOn (case-insensitive).
func Passed(issues []models.Issue, failOn []string) bool {
	for _, issue := range issues {
		for _, sev := range failOn {
			if strings.EqualFold(strings.TrimSpace(issue.Severity), sev) {
				return false
			}
		}
	}
	return true
}

func (h *ciHandler) printLine(report *models.CIReport) {
	if h.out == nil {
		return
	}
	verdict := display.Colorize(h.out, color.FgGreen).Sprint("CI PASSED")
	if !report.Passed {
		verdict = display.Colorize(h.out, color.FgRed).Sprint("CI FAILED")
	}
	fmt.Fprintf(h.out, "[%s] %s: %s (%d issues)\n", report.Tool, verdict, report.Summary, len(report.Issues))
}

// ciFromIDE reshapes IDE output: summary, issues and metrics come from the
// context keys of the same name. A missing summary falls back to the first
// non-blank analysis line.
func ciFromIDE(a *IDEAnalysis) *CIAnalysis {
	out := &CIAnalysis{}

	if s, ok := a.Context["summary"].(string); ok && strings.TrimSpace(s) != "" {
		out.Summary = strings.TrimSpace(s)
	} else {
		out.Summary = firstLine(a.Analysis)
	}

	out.Issues = coerceIssues(a.Context["issues"])
	out.Metrics = coerceMetrics(a.Context["metrics"])
	return out
}

func firstLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "#"))
		if line != "" {
			return line
		}
	}
	return ""
}

// coerceIssues accepts []models.Issue or any list of objects. Entries are
// read one at a time so a malformed field never hides another entry's
// severity.
func coerceIssues(v interface{}) []models.Issue {
	switch issues := v.(type) {
	case nil:
		return nil
	case []models.Issue:
		return issues
	case []map[string]interface{}:
		out := make([]models.Issue, 0, len(issues))
		for _, m := range issues {
			if issue, ok := issueFromMap(m); ok {
				out = append(out, issue)
			}
		}
		return out
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}

	out := make([]models.Issue, 0, len(raw))
	for _, item := range raw {
		var m map[string]interface{}
		if err := json.Unmarshal(item, &m); err != nil {
			continue
		}
		if issue, ok := issueFromMap(m); ok {
			out = append(out, issue)
		}
	}
	return out
}

// issueFromMap reads the known issue fields leniently. Entries with neither
// a severity nor a message are dropped.
func issueFromMap(m map[string]interface{}) (models.Issue, bool) {
	issue := models.Issue{
		Severity: scalarString(m["severity"]),
		Message:  scalarString(m["message"]),
		File:     scalarString(m["file"]),
		Test:     scalarString(m["test"]),
		Package:  scalarString(m["package"]),
	}
	if issue.Severity == "" && issue.Message == "" {
		return models.Issue{}, false
	}
	return issue, true
}

func scalarString(v interface{}) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(s)
	case fmt.Stringer:
		return s.String()
	case map[string]interface{}, []interface{}:
		data, err := json.Marshal(s)
		if err != nil {
			return ""
		}
		return string(data)
	default:
		return fmt.Sprint(s)
	}
}

func coerceMetrics(v interface{}) map[string]interface{} {
	switch m := v.(type) {
	case nil:
		return nil
	case map[string]interface{}:
		return m
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var metrics map[string]interface{}
	if err := json.Unmarshal(data, &metrics); err != nil {
		return nil
	}
	return metrics
}
