package testrunner

import (
	"bufio"
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// goTestEvent is one line of `go test -json` output.
type goTestEvent struct {
	Time    time.Time `json:"Time"`
	Action  string    `json:"Action"`
	Package string    `json:"Package"`
	Test    string    `json:"Test"`
	Elapsed float64   `json:"Elapsed"` // seconds
	Output  string    `json:"Output"`
}

var goCoverageRe = regexp.MustCompile(`coverage:\s+([\d.]+)% of statements`)

// ParseGoTestJSON builds a Report from `go test -json` output. Lines that are
// not JSON events (build errors, for example) are ignored.
func ParseGoTestJSON(output string) *Report {
	report := &Report{Output: output}

	type testKey struct{ pkg, name string }
	cases := map[testKey]*TestCase{}
	var order []testKey
	testOutput := map[testKey]*strings.Builder{}

	pkgs := map[string]*PackageResult{}
	pkgOutput := map[string]*strings.Builder{}
	var pkgOrder []string
	pkg := func(name string) *PackageResult {
		p, ok := pkgs[name]
		if !ok {
			p = &PackageResult{Name: name, Passed: true}
			pkgs[name] = p
			pkgOutput[name] = &strings.Builder{}
			pkgOrder = append(pkgOrder, name)
		}
		return p
	}

	scanner := bufio.NewScanner(strings.NewReader(output))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "{") {
			continue
		}
		var ev goTestEvent
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			continue
		}
		if ev.Package == "" {
			continue
		}

		if ev.Test == "" {
			p := pkg(ev.Package)
			switch ev.Action {
			case "output":
				if m := goCoverageRe.FindStringSubmatch(ev.Output); m != nil {
					if v, err := strconv.ParseFloat(m[1], 64); err == nil {
						p.Coverage = v
						p.HasCoverage = true
					}
					continue
				}
				pkgOutput[ev.Package].WriteString(ev.Output)
			case "build-output":
				pkgOutput[ev.Package].WriteString(ev.Output)
			case "fail":
				p.Passed = false
				p.Elapsed = seconds(ev.Elapsed)
				p.Output = strings.TrimSpace(pkgOutput[ev.Package].String())
			case "pass", "skip":
				p.Elapsed = seconds(ev.Elapsed)
			}
			continue
		}

		key := testKey{ev.Package, ev.Test}
		tc, ok := cases[key]
		if !ok {
			tc = &TestCase{Name: ev.Test, Package: ev.Package}
			cases[key] = tc
			order = append(order, key)
			testOutput[key] = &strings.Builder{}
		}

		switch ev.Action {
		case "output":
			testOutput[key].WriteString(ev.Output)
		case "pass":
			tc.Passed = true
			tc.Duration = seconds(ev.Elapsed)
		case "fail":
			tc.Passed = false
			tc.Duration = seconds(ev.Elapsed)
			tc.Output = strings.TrimSpace(testOutput[key].String())
		case "skip":
			tc.Skipped = true
			tc.Duration = seconds(ev.Elapsed)
		}
	}

	for _, key := range order {
		tc := cases[key]
		report.Tests = append(report.Tests, *tc)

		p := pkg(tc.Package)
		if !tc.Skipped {
			p.Tests++
			if !tc.Passed {
				p.Failed++
				p.Passed = false
			}
		}
	}
	report.tally()

	var covSum float64
	var covCount int
	for _, name := range pkgOrder {
		p := pkgs[name]
		report.Packages = append(report.Packages, *p)
		report.Duration += p.Elapsed
		if p.HasCoverage {
			covSum += p.Coverage
			covCount++
		}
	}
	if covCount > 0 {
		report.Coverage = covSum / float64(covCount)
		report.HasCoverage = true
	}

	return report
}

func seconds(s float64) time.Duration {
	return time.Duration(math.Round(s * float64(time.Second)))
}

var (
	jestTestsLineRe = regexp.MustCompile(`(?m)^\s*Tests:\s+(.+)$`)
	jestCountRe     = regexp.MustCompile(`(\d+)\s+(failed|passed|skipped|todo|total)`)
	jestCoverageRe  = regexp.MustCompile(`All files[^|]*\|\s*([\d.]+)`)
	jestTimeRe      = regexp.MustCompile(`Time:\s*([\d.]+)\s*s`)
	jestCaseRe      = regexp.MustCompile(`^\s*(✓|✕|√|×|○)\s+(.+?)(?:\s+\((\d+)\s*ms\))?\s*$`)
	jestSuiteRe     = regexp.MustCompile(`^\s*(PASS|FAIL)\s+(\S+)`)
)

// ParseJestOutput builds a Report from Jest's default reporter output:
// per-test ✓/✕ lines, the "Tests:" summary, the "All files" coverage row
// and "Time:".
func ParseJestOutput(output string) *Report {
	report := &Report{Output: output}

	suites := map[string]*PackageResult{}
	var suiteOrder []string
	current := ""

	for _, line := range strings.Split(output, "\n") {
		if m := jestSuiteRe.FindStringSubmatch(line); m != nil {
			current = m[2]
			if _, ok := suites[current]; !ok {
				suites[current] = &PackageResult{Name: current, Passed: true}
				suiteOrder = append(suiteOrder, current)
			}
			if m[1] == "FAIL" {
				suites[current].Passed = false
			}
			continue
		}
		m := jestCaseRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		tc := TestCase{Name: strings.TrimSpace(m[2]), Package: current}
		switch m[1] {
		case "✓", "√":
			tc.Passed = true
		case "○":
			tc.Skipped = true
		}
		if m[3] != "" {
			if ms, err := strconv.Atoi(m[3]); err == nil {
				tc.Duration = time.Duration(ms) * time.Millisecond
			}
		}
		report.Tests = append(report.Tests, tc)
		if s, ok := suites[current]; ok && !tc.Skipped {
			s.Tests++
			if !tc.Passed {
				s.Failed++
			}
		}
	}
	report.tally()

	// The summary line is authoritative when present
	if m := jestTestsLineRe.FindStringSubmatch(output); m != nil {
		counts := map[string]int{}
		for _, c := range jestCountRe.FindAllStringSubmatch(m[1], -1) {
			n, _ := strconv.Atoi(c[1])
			counts[c[2]] = n
		}
		report.Total = counts["total"]
		report.Failed = counts["failed"]
		report.Passed = counts["passed"]
		report.Skipped = counts["skipped"] + counts["todo"]
	}

	if m := jestCoverageRe.FindStringSubmatch(output); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			report.Coverage = v
			report.HasCoverage = true
		}
	}

	if m := jestTimeRe.FindStringSubmatch(output); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			report.Duration = seconds(v)
		}
	}

	for _, name := range suiteOrder {
		report.Packages = append(report.Packages, *suites[name])
	}

	return report
}
