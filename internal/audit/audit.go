// Package audit cross-references requirement ids with the tests that
// mention them.
//
// Requirements are found by scanning requirement documents for ids such as
// FEAT-3 or AC-12; tests by scanning source files for the same ids. The
// audit reports requirements no test mentions and ids tests mention that no
// requirement defines, and can generate stubs for both.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"github.com/harrison/cognitive/internal/filelock"
	"github.com/harrison/cognitive/internal/fileutil"
)

// IDPattern matches requirement and acceptance-criteria ids.
var IDPattern = regexp.MustCompile(`\b(VIS|BV|EPIC|FEAT|ST|TASK|AC|REQ)-\d+\b`)

// Defaults
const (
	DefaultSummaryFile  = "audit-summary.json"
	DefaultTestStubDir  = "generated-tests"
	GeneratedSubdir     = "generated"
	testStubPackageName = "generated"
)

// DefaultTestExtensions are the source files searched for id references.
var DefaultTestExtensions = []string{".go", ".js", ".ts"}

// Logger receives progress messages.
type Logger interface {
	LogInfo(message string)
}

// Options configures Run.
type Options struct {
	RequirementsDir string
	TestsDir        string
	TestExtensions  []string
	ExcludeDirs     []string

	// GenerateRequirements writes a requirement stub under
	// RequirementsDir/generated for every id referenced only by tests.
	GenerateRequirements bool
	// GenerateTests writes a skipped Go test per untested requirement into TestStubDir.
	GenerateTests bool
	TestStubDir   string

	// SummaryPath receives the JSON summary when set.
	SummaryPath string

	Logger Logger
	Now    func() time.Time
}

// MissingTest is a requirement id no test mentions.
type MissingTest struct {
	ID          string `json:"id"`
	Requirement string `json:"requirement"`
}

// MissingRequirement is an id mentioned by tests but defined by no requirement.
type MissingRequirement struct {
	ID    string   `json:"id"`
	Tests []string `json:"tests"`
}

// Summary is the outcome of an audit.
type Summary struct {
	RequirementIDs        int                  `json:"requirementIds"`
	TestedIDs             int                  `json:"testedIds"`
	MissingTests          []MissingTest        `json:"missingTests"`
	MissingRequirements   []MissingRequirement `json:"missingRequirements"`
	GeneratedRequirements []string             `json:"generatedRequirements"`
	GeneratedTests        []string             `json:"generatedTests"`
}

// Clean reports whether every requirement is tested and every tested id is defined.
func (s *Summary) Clean() bool {
	return len(s.MissingTests) == 0 && len(s.MissingRequirements) == 0
}

// Run performs the audit described by opts.
func Run(ctx context.Context, opts Options) (*Summary, error) {
	if opts.RequirementsDir == "" {
		return nil, fmt.Errorf("requirements directory is required")
	}
	if opts.TestsDir == "" {
		opts.TestsDir = "."
	}
	if len(opts.TestExtensions) == 0 {
		opts.TestExtensions = DefaultTestExtensions
	}
	if opts.TestStubDir == "" {
		opts.TestStubDir = DefaultTestStubDir
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	requirements, err := collectRequirements(opts)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tests, err := collectTests(opts)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	summary := &Summary{
		RequirementIDs:        len(requirements),
		TestedIDs:             len(tests),
		MissingTests:          []MissingTest{},
		MissingRequirements:   []MissingRequirement{},
		GeneratedRequirements: []string{},
		GeneratedTests:        []string{},
	}

	for _, id := range sortedKeys(requirements) {
		if _, ok := tests[id]; !ok {
			summary.MissingTests = append(summary.MissingTests, MissingTest{ID: id, Requirement: requirements[id]})
		}
	}
	for _, id := range sortedKeys(tests) {
		if _, ok := requirements[id]; !ok {
			summary.MissingRequirements = append(summary.MissingRequirements, MissingRequirement{ID: id, Tests: tests[id]})
		}
	}

	if opts.GenerateRequirements && len(summary.MissingRequirements) > 0 {
		files, err := writeRequirementStubs(opts, requirements, summary.MissingRequirements)
		summary.GeneratedRequirements = files
		if err != nil {
			return summary, err
		}
	}

	if opts.GenerateTests && len(summary.MissingTests) > 0 {
		files, err := writeTestStubs(opts, summary.MissingTests)
		summary.GeneratedTests = files
		if err != nil {
			return summary, err
		}
	}

	if opts.SummaryPath != "" {
		data, err := json.MarshalIndent(summary, "", "  ")
		if err != nil {
			return summary, fmt.Errorf("failed to encode audit summary: %w", err)
		}
		if err := filelock.AtomicWrite(opts.SummaryPath, append(data, '\n')); err != nil {
			return summary, fmt.Errorf("failed to write audit summary: %w", err)
		}
	}

	if opts.Logger != nil {
		opts.Logger.LogInfo(fmt.Sprintf("Audit complete: %d requirement ids, %d without tests, %d tested ids without requirements",
			summary.RequirementIDs, len(summary.MissingTests), len(summary.MissingRequirements)))
	}
	return summary, nil
}

// collectRequirements maps each id to the first requirement file defining it.
// A missing requirements directory yields no requirements.
func collectRequirements(opts Options) (map[string]string, error) {
	result := make(map[string]string)

	scan, err := fileutil.ScanDirectory(opts.RequirementsDir, fileutil.ScanOptions{
		Extensions:  []string{".md"},
		Recursive:   true,
		ExcludeDirs: opts.ExcludeDirs,
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return result, nil
		}
		return nil, fmt.Errorf("failed to scan requirements: %w", err)
	}

	for _, file := range scan.Files {
		ids, err := idsInFile(file)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			if _, ok := result[id]; !ok {
				result[id] = file
			}
		}
	}
	return result, nil
}

// collectTests maps each id to every test file mentioning it.
func collectTests(opts Options) (map[string][]string, error) {
	result := make(map[string][]string)

	scan, err := fileutil.ScanDirectory(opts.TestsDir, fileutil.ScanOptions{
		Extensions:  opts.TestExtensions,
		Recursive:   true,
		ExcludeDirs: opts.ExcludeDirs,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan tests: %w", err)
	}

	for _, file := range scan.Files {
		ids, err := idsInFile(file)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			result[id] = append(result[id], file)
		}
	}
	return result, nil
}

// idsInFile returns the distinct ids in a file in order of first appearance.
func idsInFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	seen := make(map[string]bool)
	var ids []string
	for _, id := range IDPattern.FindAllString(string(data), -1) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func relOrAbs(base, path string) string {
	if r, err := filepath.Rel(base, path); err == nil {
		return filepath.ToSlash(r)
	}
	return path
}
