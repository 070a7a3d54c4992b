package audit

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/harrison/cognitive/internal/filelock"
	"github.com/harrison/cognitive/internal/requirements"
)

var storyIDPattern = regexp.MustCompile(`^ST-(\d+)$`)

// writeRequirementStubs writes one requirement document per id that only
// tests reference. Ids with a hierarchy prefix keep their id and type; AC
// and REQ ids become a new story that names them in its description.
func writeRequirementStubs(opts Options, existing map[string]string, missing []MissingRequirement) ([]string, error) {
	dir := filepath.Join(opts.RequirementsDir, GeneratedSubdir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dir, err)
	}

	next := nextStoryNumber(existing, missing)
	today := opts.Now().Format("2006-01-02")

	files := []string{}
	for _, item := range missing {
		id := item.ID
		prefix := id[:strings.Index(id, "-")]
		typ, ok := requirements.TypeForPrefix(prefix)
		if !ok {
			typ = requirements.TypeStory
			id = fmt.Sprintf("ST-%d", next)
			next++
		}

		content := renderRequirementStub(id, typ, item, today, opts.TestsDir)
		if err := checkStub(content); err != nil {
			return files, fmt.Errorf("generated requirement %s is invalid: %w", id, err)
		}

		path := filepath.Join(dir, id+".md")
		if err := filelock.AtomicWrite(path, []byte(content)); err != nil {
			return files, fmt.Errorf("failed to write %s: %w", path, err)
		}
		files = append(files, path)
	}
	return files, nil
}

// nextStoryNumber returns one past the highest ST number in use.
func nextStoryNumber(existing map[string]string, missing []MissingRequirement) int {
	max := 0
	consider := func(id string) {
		if m := storyIDPattern.FindStringSubmatch(id); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n > max {
				max = n
			}
		}
	}
	for id := range existing {
		consider(id)
	}
	for _, item := range missing {
		consider(item.ID)
	}
	return max + 1
}

func renderRequirementStub(id string, typ requirements.Type, item MissingRequirement, today, testsDir string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s %s: Generated from tests\n\n", typ.Label(), id)
	sb.WriteString("**Owner:** [TBD]\n")
	sb.WriteString("**Status:** Draft\n")
	sb.WriteString("**Priority:** Medium\n")
	sb.WriteString("**Estimate:** [TBD]\n")
	sb.WriteString("**Tags:** auto\n")
	fmt.Fprintf(&sb, "**Created:** %s\n", today)
	fmt.Fprintf(&sb, "**Last Updated:** %s\n", today)
	sb.WriteString("**Team:** [TBD]\n\n")
	sb.WriteString("## Description\n")
	if id != item.ID {
		fmt.Fprintf(&sb, "Generated based on tests referencing %s:\n", item.ID)
	} else {
		sb.WriteString("Generated based on tests:\n")
	}
	base, _ := filepath.Abs(testsDir)
	for _, t := range item.Tests {
		fmt.Fprintf(&sb, "- %s\n", relOrAbs(base, t))
	}
	return sb.String()
}

// checkStub parses and validates generated text.
func checkStub(content string) error {
	req, err := requirements.ParseText(content)
	if err != nil {
		return err
	}
	return requirements.Validate(req)
}

// writeTestStubs writes a skipped Go test for every untested requirement.
func writeTestStubs(opts Options, missing []MissingTest) ([]string, error) {
	if err := os.MkdirAll(opts.TestStubDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", opts.TestStubDir, err)
	}

	files := []string{}
	for _, item := range missing {
		name := strings.ToLower(strings.ReplaceAll(item.ID, "-", "_")) + "_test.go"
		path := filepath.Join(opts.TestStubDir, name)
		if err := filelock.AtomicWrite(path, []byte(renderTestStub(item))); err != nil {
			return files, fmt.Errorf("failed to write %s: %w", path, err)
		}
		files = append(files, path)
	}
	return files, nil
}

func renderTestStub(item MissingTest) string {
	funcName := "Test" + strings.ReplaceAll(item.ID, "-", "_")
	var sb strings.Builder
	fmt.Fprintf(&sb, "package %s\n\n", testStubPackageName)
	sb.WriteString("import \"testing\"\n\n")
	fmt.Fprintf(&sb, "// %s covers requirement %s.\n", funcName, item.ID)
	fmt.Fprintf(&sb, "func %s(t *testing.T) {\n", funcName)
	fmt.Fprintf(&sb, "\tt.Skip(\"%s: needs implementation\")\n", item.ID)
	sb.WriteString("}\n")
	return sb.String()
}
