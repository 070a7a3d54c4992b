package testrunner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/harrison/cognitive/internal/claude"
	"github.com/harrison/cognitive/internal/dualmode"
	"github.com/harrison/cognitive/internal/models"
	"github.com/harrison/cognitive/internal/provider"
)

// Processor thresholds
const (
	DefaultCoverageThreshold = 60.0
	DefaultSlowThreshold     = time.Second
	DefaultCriticalFailRate  = 0.2
)

// Processor analyzes a *Report for every dispatcher mode. It implements
// dualmode.IDEAnalyzer, APIPreparer, ResponseProcessor and CIAnalyzer.
type Processor struct {
	CoverageThreshold float64       // Coverage below this is a warning
	SlowThreshold     time.Duration // Tests slower than this are listed as slow
	CriticalFailRate  float64       // Failure rate above this is critical
}

// NewProcessor returns a Processor with the default thresholds.
func NewProcessor() *Processor {
	return &Processor{
		CoverageThreshold: DefaultCoverageThreshold,
		SlowThreshold:     DefaultSlowThreshold,
		CriticalFailRate:  DefaultCriticalFailRate,
	}
}

// Suggestions is the decoded provider answer.
type Suggestions struct {
	GeneratedTests   []interface{} `json:"generatedTests"`
	FixedTests       []interface{} `json:"fixedTests"`
	Improvements     []interface{} `json:"improvements"`
	CoverageIncrease float64       `json:"estimatedCoverageIncrease"`
	Plan             []interface{} `json:"implementationPlan"`
	ParseError       string        `json:"error,omitempty"`
	RawResponse      string        `json:"rawResponse,omitempty"`
}

func asReport(data interface{}) (*Report, error) {
	switch r := data.(type) {
	case *Report:
		if r == nil {
			return nil, fmt.Errorf("nil test report")
		}
		return r, nil
	case Report:
		return &r, nil
	default:
		return nil, fmt.Errorf("expected a test report, got %T", data)
	}
}

// AnalyzeForIDE renders a markdown report, prompts and a structured context.
func (p *Processor) AnalyzeForIDE(ctx context.Context, data interface{}) (*dualmode.IDEAnalysis, error) {
	report, err := asReport(data)
	if err != nil {
		return nil, err
	}

	issues := p.Issues(report)
	return &dualmode.IDEAnalysis{
		Context: map[string]interface{}{
			"summary":        p.Summary(report),
			"runner":         report.Runner,
			"command":        report.Command,
			"failedTests":    testNames(report.FailedTests()),
			"slowTests":      testNames(report.SlowTests(p.SlowThreshold)),
			"failedPackages": report.FailedPackages(),
			"issues":         issues,
			"metrics":        p.Metrics(report),
		},
		Analysis: p.markdown(report, issues),
		Prompts:  p.prompts(report),
		Metadata: map[string]interface{}{
			"projectPath": report.ProjectPath,
		},
	}, nil
}

// AnalyzeForCI returns summary, issues and metrics.
func (p *Processor) AnalyzeForCI(ctx context.Context, data interface{}) (*dualmode.CIAnalysis, error) {
	report, err := asReport(data)
	if err != nil {
		return nil, err
	}
	return &dualmode.CIAnalysis{
		Summary: p.Summary(report),
		Issues:  p.Issues(report),
		Metrics: p.Metrics(report),
	}, nil
}

// PrepareForAPI builds a system+user message pair asking for JSON suggestions.
func (p *Processor) PrepareForAPI(ctx context.Context, data interface{}) (*provider.Request, error) {
	report, err := asReport(data)
	if err != nil {
		return nil, err
	}

	failed, _ := json.MarshalIndent(report.FailedTests(), "", "  ")
	metrics, _ := json.MarshalIndent(p.Metrics(report), "", "  ")

	var user strings.Builder
	user.WriteString("Analyze these test results and suggest missing tests.\n\n")
	user.WriteString("Test Summary:\n")
	user.Write(metrics)
	user.WriteString("\n\nFailed Tests:\n")
	user.Write(failed)
	user.WriteString("\n\nRespond with a JSON object with keys tests, fixes, improvements, coverageIncrease and plan.")

	temp := 0.3
	return &provider.Request{
		Messages: []provider.Message{
			{
				Role: provider.RoleSystem,
				Content: "You are a test automation expert. You help improve test suites by generating missing tests, " +
					"fixing failing tests and improving test performance. Follow the project's existing test patterns.",
			},
			{Role: provider.RoleUser, Content: user.String()},
		},
		Temperature:    &temp,
		MaxTokens:      3000,
		ResponseFormat: "json_object",
	}, nil
}

// ProcessAIResponse decodes the provider's JSON answer. Undecodable answers
// are kept verbatim in RawResponse.
func (p *Processor) ProcessAIResponse(ctx context.Context, resp *provider.Response, data interface{}) (interface{}, error) {
	var raw struct {
		Tests            []interface{} `json:"tests"`
		Fixes            []interface{} `json:"fixes"`
		Improvements     []interface{} `json:"improvements"`
		CoverageIncrease float64       `json:"coverageIncrease"`
		Plan             []interface{} `json:"plan"`
	}

	content := strings.TrimSpace(resp.Content)
	err := json.Unmarshal([]byte(content), &raw)
	if err != nil {
		if extracted := claude.ExtractJSON(content); extracted != "" {
			err = json.Unmarshal([]byte(extracted), &raw)
		}
	}
	if err != nil {
		return &Suggestions{
			ParseError:  "failed to parse AI response",
			RawResponse: resp.Content,
		}, nil
	}

	return &Suggestions{
		GeneratedTests:   nonNil(raw.Tests),
		FixedTests:       nonNil(raw.Fixes),
		Improvements:     nonNil(raw.Improvements),
		CoverageIncrease: raw.CoverageIncrease,
		Plan:             nonNil(raw.Plan),
	}, nil
}

func nonNil(v []interface{}) []interface{} {
	if v == nil {
		return []interface{}{}
	}
	return v
}

// Summary is the one-line description of a run.
func (p *Processor) Summary(r *Report) string {
	s := fmt.Sprintf("%d tests run, %d failures", r.Total, r.Failed)
	if r.HasCoverage {
		s += fmt.Sprintf(", %.1f%% coverage", r.Coverage)
	}
	return s
}

// Issues lists findings: an error per failed test and per package that
// failed outside its tests, a warning for low coverage or an empty run, and
// a critical issue for a high failure rate.
func (p *Processor) Issues(r *Report) []models.Issue {
	issues := []models.Issue{}

	if r.Total == 0 {
		issues = append(issues, models.Issue{
			Severity: "warning",
			Message:  "No test results available for analysis",
		})
	}

	if rate := r.FailureRate(); rate > p.CriticalFailRate {
		issues = append(issues, models.Issue{
			Severity: "critical",
			Message:  fmt.Sprintf("High failure rate: %.1f%% of tests failing", rate*100),
		})
	}

	for _, tc := range r.FailedTests() {
		issues = append(issues, models.Issue{
			Severity: "error",
			Message:  fmt.Sprintf("Test %s failed", tc.Name),
			Test:     tc.Name,
			Package:  tc.Package,
		})
	}

	// Jest summary counts can report failures without per-test lines
	if len(r.FailedTests()) == 0 && r.Failed > 0 {
		issues = append(issues, models.Issue{
			Severity: "error",
			Message:  fmt.Sprintf("%d tests failed", r.Failed),
		})
	}

	pkgFailures := r.PackageFailures()
	for _, pkg := range pkgFailures {
		msg := fmt.Sprintf("Package %s failed outside of its tests", pkg.Name)
		if reason := firstOutputLine(pkg.Output); reason != "" {
			msg += ": " + reason
		}
		issues = append(issues, models.Issue{
			Severity: "error",
			Message:  msg,
			Package:  pkg.Name,
		})
	}

	// A failing exit with nothing else to show for it still fails the run
	if r.ExitError != "" && r.Failed == 0 && len(pkgFailures) == 0 {
		issues = append(issues, models.Issue{
			Severity: "error",
			Message:  fmt.Sprintf("Test command failed: %s", r.ExitError),
		})
	}

	if r.HasCoverage && r.Coverage < p.CoverageThreshold {
		issues = append(issues, models.Issue{
			Severity: "warning",
			Message:  fmt.Sprintf("Low overall coverage: %.1f%% (threshold %.0f%%)", r.Coverage, p.CoverageThreshold),
		})
	}

	for _, tc := range r.SlowTests(p.SlowThreshold) {
		issues = append(issues, models.Issue{
			Severity: "info",
			Message:  fmt.Sprintf("Slow test %s took %v", tc.Name, tc.Duration.Round(time.Millisecond)),
			Test:     tc.Name,
			Package:  tc.Package,
		})
	}

	return issues
}

func firstOutputLine(output string) string {
	for _, line := range strings.Split(output, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}

// Metrics returns the numeric summary of a run.
func (p *Processor) Metrics(r *Report) map[string]interface{} {
	m := map[string]interface{}{
		"total":       r.Total,
		"passed":      r.Passed,
		"failed":      r.Failed,
		"skipped":     r.Skipped,
		"failureRate": r.FailureRate(),
		"durationMs":  r.Duration.Milliseconds(),
		"slowTests":   len(r.SlowTests(p.SlowThreshold)),
	}
	if r.HasCoverage {
		m["coverage"] = r.Coverage
	}
	return m
}

func (p *Processor) markdown(r *Report, issues []models.Issue) string {
	var sb strings.Builder
	sb.WriteString("# Test Results Analysis\n\n")

	sb.WriteString("## Summary\n")
	sb.WriteString(fmt.Sprintf("- Runner: %s\n", r.Runner))
	sb.WriteString(fmt.Sprintf("- Total Tests: %d\n", r.Total))
	sb.WriteString(fmt.Sprintf("- Passed: %d\n", r.Passed))
	sb.WriteString(fmt.Sprintf("- Failed: %d\n", r.Failed))
	if r.Skipped > 0 {
		sb.WriteString(fmt.Sprintf("- Skipped: %d\n", r.Skipped))
	}
	if r.HasCoverage {
		sb.WriteString(fmt.Sprintf("- Coverage: %.1f%%\n", r.Coverage))
	}
	sb.WriteString(fmt.Sprintf("- Duration: %v\n", r.Duration.Round(time.Millisecond)))

	sb.WriteString("\n## Issues\n")
	if len(issues) == 0 {
		sb.WriteString("- No issues found\n")
	}
	for _, issue := range issues {
		sb.WriteString(fmt.Sprintf("- **%s**: %s\n", issue.Severity, issue.Message))
	}

	if len(r.Packages) > 0 {
		sb.WriteString("\n## Packages\n")
		for _, pkg := range r.Packages {
			status := "PASS"
			if !pkg.Passed {
				status = "FAIL"
			}
			line := fmt.Sprintf("- `%s` [%s] %d tests, %d failed", pkg.Name, status, pkg.Tests, pkg.Failed)
			if pkg.HasCoverage {
				line += fmt.Sprintf(", %.1f%% coverage", pkg.Coverage)
			}
			sb.WriteString(line + "\n")
		}
	}

	if failed := r.FailedTests(); len(failed) > 0 {
		sb.WriteString("\n## Failed Tests\n")
		for _, tc := range failed {
			sb.WriteString(fmt.Sprintf("### %s\n", tc.Name))
			if tc.Output != "" {
				sb.WriteString("```\n" + tc.Output + "\n```\n")
			}
		}
	}

	return sb.String()
}

func (p *Processor) prompts(r *Report) string {
	var lines []string
	if failed := r.FailedTests(); len(failed) > 0 {
		names := testNames(failed)
		if len(names) > 3 {
			names = names[:3]
		}
		lines = append(lines, fmt.Sprintf("- \"Fix the %d failing tests, starting with %s\"", len(failed), strings.Join(names, ", ")))
	}
	if r.HasCoverage && r.Coverage < p.CoverageThreshold {
		lines = append(lines, fmt.Sprintf("- \"Generate tests to raise coverage from %.1f%% above %.0f%%\"", r.Coverage, p.CoverageThreshold))
	}
	if slow := r.SlowTests(p.SlowThreshold); len(slow) > 0 {
		lines = append(lines, fmt.Sprintf("- \"Optimize the %d tests taking longer than %v\"", len(slow), p.SlowThreshold))
	}
	lines = append(lines,
		"- \"Add error handling tests for edge cases\"",
		"- \"Generate integration tests for the public API\"",
	)
	return strings.Join(lines, "\n")
}

func testNames(cases []TestCase) []string {
	names := make([]string, 0, len(cases))
	for _, tc := range cases {
		names = append(names, tc.Name)
	}
	return names
}
