// Package testrunner runs a project's test suite, parses the runner output
// into a Report, and analyzes that Report for every dispatcher mode.
package testrunner

import (
	"sort"
	"time"
)

// TestCase is a single test outcome.
type TestCase struct {
	Name     string        `json:"name"`
	Package  string        `json:"package,omitempty"`
	Passed   bool          `json:"passed"`
	Skipped  bool          `json:"skipped,omitempty"`
	Duration time.Duration `json:"duration"`
	Output   string        `json:"output,omitempty"` // Captured output for failed tests
}

// PackageResult aggregates the tests of one package.
type PackageResult struct {
	Name        string        `json:"name"`
	Passed      bool          `json:"passed"`
	Tests       int           `json:"tests"`
	Failed      int           `json:"failed"`
	Coverage    float64       `json:"coverage"`
	HasCoverage bool          `json:"hasCoverage"`
	Elapsed     time.Duration `json:"elapsed"`
	Output      string        `json:"output,omitempty"` // Package-level output of a failed package
}

// Report is the parsed result of one test run.
type Report struct {
	Runner      string          `json:"runner"` // "go" or "jest"
	Command     string          `json:"command"`
	ProjectPath string          `json:"projectPath"`
	Tests       []TestCase      `json:"tests"`
	Packages    []PackageResult `json:"packages"`
	Total       int             `json:"total"`
	Passed      int             `json:"passed"`
	Failed      int             `json:"failed"`
	Skipped     int             `json:"skipped"`
	Coverage    float64         `json:"coverage"`
	HasCoverage bool            `json:"hasCoverage"`
	Duration    time.Duration   `json:"duration"`
	ExitError   string          `json:"exitError,omitempty"`
	Output      string          `json:"-"`
}

// FailureRate returns Failed/Total, or 0 for an empty run.
func (r *Report) FailureRate() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Failed) / float64(r.Total)
}

// FailedTests returns the failed test cases in run order.
func (r *Report) FailedTests() []TestCase {
	var failed []TestCase
	for _, tc := range r.Tests {
		if !tc.Passed && !tc.Skipped {
			failed = append(failed, tc)
		}
	}
	return failed
}

// SlowTests returns tests slower than threshold, slowest first.
func (r *Report) SlowTests(threshold time.Duration) []TestCase {
	var slow []TestCase
	for _, tc := range r.Tests {
		if tc.Duration > threshold {
			slow = append(slow, tc)
		}
	}
	sort.SliceStable(slow, func(i, j int) bool {
		return slow[i].Duration > slow[j].Duration
	})
	return slow
}

// FailedPackages returns the names of packages with failures.
func (r *Report) FailedPackages() []string {
	var names []string
	for _, p := range r.Packages {
		if !p.Passed {
			names = append(names, p.Name)
		}
	}
	return names
}

// PackageFailures returns failed packages that have no failed test case:
// build failures, a failing TestMain or a panic outside any test.
func (r *Report) PackageFailures() []PackageResult {
	var out []PackageResult
	for _, p := range r.Packages {
		if !p.Passed && p.Failed == 0 {
			out = append(out, p)
		}
	}
	return out
}

// tally recomputes the totals from Tests.
func (r *Report) tally() {
	r.Total, r.Passed, r.Failed, r.Skipped = 0, 0, 0, 0
	for _, tc := range r.Tests {
		r.Total++
		switch {
		case tc.Skipped:
			r.Skipped++
		case tc.Passed:
			r.Passed++
		default:
			r.Failed++
		}
	}
}
