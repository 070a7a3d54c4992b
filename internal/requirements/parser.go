package requirements

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"
)

// ErrParse is the sentinel wrapped by every ParseError.
var ErrParse = errors.New("requirement parse error")

// ParseError reports input that could not be turned into a Requirement.
type ParseError struct {
	Message string
	Source  string // File path, when parsing a file
}

func (e *ParseError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("%s: %s", e.Source, e.Message)
	}
	return e.Message
}

func (e *ParseError) Unwrap() error {
	return ErrParse
}

var headerRegex = regexp.MustCompile(`(?i)^#*\s*(Vision|Business Value|Epic|Feature|Story|Task)\s+([A-Za-z]+)-(\d+):\s*(.+)$`)

// metadataLabels maps the bold labels of requirement text to metadata keys.
var metadataLabels = []struct {
	label string
	key   string
}{
	{"Owner", "owner"},
	{"Status", "status"},
	{"Priority", "priority"},
	{"Estimate", "estimate"},
	{"Tags", "tags"},
	{"Created", "created"},
	{"Last Updated", "lastUpdated"},
	{"Target Date", "targetDate"},
	{"Team", "team"},
}

var labelRegexes = func() map[string]*regexp.Regexp {
	m := make(map[string]*regexp.Regexp, len(metadataLabels))
	for _, l := range metadataLabels {
		m[l.key] = regexp.MustCompile(`(?mi)^[ \t]*\*\*` + regexp.QuoteMeta(l.label) + `:\*\*[ \t]*(.*?)\s*$`)
	}
	return m
}()

var md = goldmark.New()

// Parse turns input into a Requirement. Accepted inputs are requirement
// text (string or []byte), a Requirement, a *Requirement, or a map decoded
// from YAML or JSON.
//
// Structured input is normalized but not validated.
func Parse(input interface{}) (*Requirement, error) {
	switch v := input.(type) {
	case string:
		return ParseText(v)
	case []byte:
		return ParseText(string(v))
	case *Requirement:
		if v == nil {
			return nil, &ParseError{Message: "nil requirement"}
		}
		req := v.Clone()
		req.normalize()
		return req, nil
	case Requirement:
		req := v.Clone()
		req.normalize()
		return req, nil
	case map[string]interface{}:
		return parseMap(v)
	case nil:
		return nil, &ParseError{Message: "no requirement input"}
	default:
		return nil, &ParseError{Message: fmt.Sprintf("unsupported requirement input %T", input)}
	}
}

// parseMap round-trips a generic map through YAML so that the struct tags
// on Requirement drive field mapping for every nesting level.
func parseMap(m map[string]interface{}) (*Requirement, error) {
	data, err := yaml.Marshal(m)
	if err != nil {
		return nil, &ParseError{Message: fmt.Sprintf("encode requirement map: %v", err)}
	}
	return ParseStructured(data)
}

// ParseStructured decodes a YAML or JSON requirement document.
func ParseStructured(data []byte) (*Requirement, error) {
	var req Requirement
	if err := yaml.Unmarshal(data, &req); err != nil {
		return nil, &ParseError{Message: fmt.Sprintf("decode requirement: %v", err)}
	}
	req.normalize()
	return &req, nil
}

// ParseText parses the markdown requirement format:
//
//	# Story ST-3: Checkout flow
//
//	**Owner:** dev
//	**Status:** open
//
//	## Description
//	free text
//
//	## Acceptance Criteria
//	- first criterion
func ParseText(content string) (*Requirement, error) {
	header := firstNonBlankLine(content)
	matches := headerRegex.FindStringSubmatch(header)
	if matches == nil {
		if header == "" {
			return nil, &ParseError{Message: "empty requirement text"}
		}
		return nil, &ParseError{Message: fmt.Sprintf("invalid requirement header: %q", header)}
	}

	req := &Requirement{
		ID:       matches[2] + "-" + matches[3],
		Type:     NormalizeType(matches[1]),
		Title:    strings.TrimSpace(matches[4]),
		Metadata: Metadata{},
	}

	for _, l := range metadataLabels {
		if m := labelRegexes[l.key].FindStringSubmatch(content); m != nil {
			req.Metadata[l.key] = m[1]
		}
	}

	req.Description = section(content, "Description")
	req.AcceptanceCriteria = acceptanceCriteria([]byte(content))

	return req, nil
}

// ParseFile reads path and parses it. .yaml, .yml and .json files are
// decoded as structured documents, anything else as requirement text.
func ParseFile(path string) (*Requirement, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read requirement file: %w", err)
	}

	var req *Requirement
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		req, err = ParseStructured(data)
	default:
		req, err = ParseText(string(data))
	}
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) && pe.Source == "" {
			pe.Source = path
		}
		return nil, err
	}
	return req, nil
}

func firstNonBlankLine(content string) string {
	for _, line := range strings.Split(content, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

// section returns the trimmed text after a "## <name>" heading, up to the
// next "## " heading or the end of the document.
func section(content, name string) string {
	lines := strings.Split(content, "\n")
	start := -1
	for i, line := range lines {
		if isH2(line) && strings.EqualFold(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "##")), name) {
			start = i + 1
			break
		}
	}
	if start < 0 {
		return ""
	}

	end := len(lines)
	for i := start; i < len(lines); i++ {
		if isH2(lines[i]) {
			end = i
			break
		}
	}
	return strings.TrimSpace(strings.Join(lines[start:end], "\n"))
}

func isH2(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), "## ")
}

// acceptanceCriteria collects the top-level list items that follow an
// "Acceptance Criteria" heading.
func acceptanceCriteria(source []byte) []string {
	doc := md.Parser().Parse(text.NewReader(source))

	var criteria []string
	inSection := false
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			if node.Level > 2 && inSection {
				continue
			}
			inSection = strings.EqualFold(strings.TrimSpace(extractText(node, source)), "Acceptance Criteria")
		case *ast.List:
			if !inSection {
				continue
			}
			for item := node.FirstChild(); item != nil; item = item.NextSibling() {
				if block := item.FirstChild(); block != nil {
					if s := strings.TrimSpace(extractText(block, source)); s != "" {
						criteria = append(criteria, s)
					}
				}
			}
		}
	}
	return criteria
}

// extractText concatenates the text under n, descending into inline
// containers such as emphasis and links.
func extractText(n ast.Node, source []byte) string {
	var buf bytes.Buffer
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if t, ok := c.(*ast.Text); ok {
			buf.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				buf.WriteByte(' ')
			}
		}
		return ast.WalkContinue, nil
	})
	return buf.String()
}
