package requirements

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrValidation is the sentinel wrapped by every ValidationError.
var ErrValidation = errors.New("requirement validation failed")

// ValidationError is the first structural problem found in a requirement
// tree. Path is a dotted breadcrumb such as "children.0.metadata.owner";
// it is empty for problems on the root node itself.
type ValidationError struct {
	Message string
	Path    string
}

func (e *ValidationError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s (at %s)", e.Message, e.Path)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// DefaultRequiredMetadata is the metadata every requirement must carry.
var DefaultRequiredMetadata = []string{
	"owner",
	"status",
	"priority",
	"estimate",
	"tags",
	"created",
	"lastUpdated",
	"team",
}

var idPatterns = func() map[Type]*regexp.Regexp {
	m := make(map[Type]*regexp.Regexp, len(prefixes))
	for t, p := range prefixes {
		m[t] = regexp.MustCompile(`^(?i:` + p + `)-\d+$`)
	}
	return m
}()

// Validator checks a requirement tree. The zero value uses
// DefaultRequiredMetadata.
type Validator struct {
	RequiredMetadata []string
}

// NewValidator returns a Validator requiring the given metadata keys, or
// DefaultRequiredMetadata when none are given.
func NewValidator(required ...string) *Validator {
	return &Validator{RequiredMetadata: required}
}

func (v *Validator) required() []string {
	if v == nil || len(v.RequiredMetadata) == 0 {
		return DefaultRequiredMetadata
	}
	return v.RequiredMetadata
}

// Validate walks req depth-first and returns the first problem as a
// *ValidationError. Siblings after a failing subtree are not inspected.
func (v *Validator) Validate(req *Requirement) error {
	if req == nil {
		return &ValidationError{Message: "Requirement is empty"}
	}
	return v.validate(req, nil)
}

func (v *Validator) validate(req *Requirement, path []string) error {
	if !req.Type.Known() {
		return fail(path, "Unknown requirement type: %s", req.Type)
	}

	if !idPatterns[req.Type].MatchString(req.ID) {
		return fail(path, "Invalid id %s for type %s", req.ID, req.Type)
	}

	for _, key := range v.required() {
		if strings.TrimSpace(req.Metadata[key]) == "" {
			return fail(append(path, "metadata", key), "Missing metadata field: %s", key)
		}
	}

	if len(req.Children) == 0 {
		return nil
	}

	childType, ok := req.Type.ChildType()
	if !ok {
		return fail(append(path, "children"), "Requirement type %s cannot have children", req.Type)
	}

	for i, child := range req.Children {
		childPath := append(append([]string(nil), path...), "children", strconv.Itoa(i))
		if child == nil {
			return fail(childPath, "Child requirement is empty")
		}
		if child.Type != childType {
			return fail(childPath, "Child type %s invalid for parent %s", child.Type, req.Type)
		}
		if err := v.validate(child, childPath); err != nil {
			return err
		}
	}
	return nil
}

func fail(path []string, format string, args ...interface{}) *ValidationError {
	return &ValidationError{
		Message: fmt.Sprintf(format, args...),
		Path:    strings.Join(path, "."),
	}
}

// Validate checks req with the default required metadata.
func Validate(req *Requirement) error {
	return (&Validator{}).Validate(req)
}
