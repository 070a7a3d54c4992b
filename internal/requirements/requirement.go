// Package requirements parses requirement documents into a typed hierarchy,
// validates the hierarchy, and writes derived context artifacts.
//
// The hierarchy is a fixed chain: vision, business_value, epic, feature,
// story, task. Each node may only have children of the next type in the
// chain, and a task may not have children at all.
package requirements

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Type is a requirement level in the hierarchy.
type Type string

// Requirement types, from the top of the hierarchy down.
const (
	TypeVision        Type = "vision"
	TypeBusinessValue Type = "business_value"
	TypeEpic          Type = "epic"
	TypeFeature       Type = "feature"
	TypeStory         Type = "story"
	TypeTask          Type = "task"
)

// chain lists the types in parent-to-child order.
var chain = []Type{TypeVision, TypeBusinessValue, TypeEpic, TypeFeature, TypeStory, TypeTask}

var prefixes = map[Type]string{
	TypeVision:        "VIS",
	TypeBusinessValue: "BV",
	TypeEpic:          "EPIC",
	TypeFeature:       "FEAT",
	TypeStory:         "ST",
	TypeTask:          "TASK",
}

// Types returns every known type in hierarchy order.
func Types() []Type {
	out := make([]Type, len(chain))
	copy(out, chain)
	return out
}

// Known reports whether t is one of the six hierarchy types.
func (t Type) Known() bool {
	_, ok := prefixes[t]
	return ok
}

// Prefix returns the id prefix for t, or "" for an unknown type.
func (t Type) Prefix() string {
	return prefixes[t]
}

// ChildType returns the single legal child type of t. The second value is
// false for task and for unknown types.
func (t Type) ChildType() (Type, bool) {
	for i, c := range chain {
		if c == t && i+1 < len(chain) {
			return chain[i+1], true
		}
	}
	return "", false
}

// Label returns the title-cased heading word used in requirement text,
// e.g. "Business Value".
func (t Type) Label() string {
	words := strings.Split(string(t), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// NormalizeType lower-cases s and turns spaces and hyphens into underscores,
// so "Business Value" and "business-value" both become business_value.
func NormalizeType(s string) Type {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	return Type(s)
}

// TypeForPrefix maps an id prefix such as "FEAT" back to its type.
func TypeForPrefix(prefix string) (Type, bool) {
	p := strings.ToUpper(prefix)
	for t, known := range prefixes {
		if known == p {
			return t, true
		}
	}
	return "", false
}

// Metadata holds requirement metadata as strings. Decoding accepts any
// scalar as its literal text and joins sequences with ", ".
type Metadata map[string]string

// UnmarshalYAML decodes a metadata mapping. JSON documents decode through
// the same path since ParseStructured reads them as YAML.
func (m *Metadata) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.AliasNode {
		value = value.Alias
	}
	if value.Kind == yaml.ScalarNode && value.ShortTag() == "!!null" {
		*m = nil
		return nil
	}
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: metadata must be a mapping", value.Line)
	}

	out := make(Metadata, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		key := value.Content[i].Value
		v, err := metadataValue(value.Content[i+1])
		if err != nil {
			return fmt.Errorf("metadata field %s: %w", key, err)
		}
		out[key] = v
	}
	*m = out
	return nil
}

func metadataValue(n *yaml.Node) (string, error) {
	if n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	switch n.Kind {
	case yaml.ScalarNode:
		if n.ShortTag() == "!!null" {
			return "", nil
		}
		return n.Value, nil
	case yaml.SequenceNode:
		parts := make([]string, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := metadataValue(c)
			if err != nil {
				return "", err
			}
			if v != "" {
				parts = append(parts, v)
			}
		}
		return strings.Join(parts, ", "), nil
	default:
		return "", fmt.Errorf("line %d: nested mappings are not supported", n.Line)
	}
}

// Requirement is a node of the requirements hierarchy.
type Requirement struct {
	ID                 string         `json:"id" yaml:"id"`
	Type               Type           `json:"type" yaml:"type"`
	Title              string         `json:"title,omitempty" yaml:"title,omitempty"`
	Description        string         `json:"description,omitempty" yaml:"description,omitempty"`
	Metadata           Metadata       `json:"metadata" yaml:"metadata"`
	AcceptanceCriteria []string       `json:"acceptanceCriteria,omitempty" yaml:"acceptanceCriteria,omitempty"`
	Children           []*Requirement `json:"children,omitempty" yaml:"children,omitempty"`
}

// Walk visits r and its descendants depth-first, pre-order. It stops early
// when fn returns false.
func (r *Requirement) Walk(fn func(*Requirement) bool) bool {
	if r == nil {
		return true
	}
	if !fn(r) {
		return false
	}
	for _, c := range r.Children {
		if !c.Walk(fn) {
			return false
		}
	}
	return true
}

// IDs returns the ids of r and every descendant in depth-first order.
func (r *Requirement) IDs() []string {
	var ids []string
	r.Walk(func(n *Requirement) bool {
		ids = append(ids, n.ID)
		return true
	})
	return ids
}

// String returns "ID: title".
func (r *Requirement) String() string {
	if r.Title == "" {
		return r.ID
	}
	return fmt.Sprintf("%s: %s", r.ID, r.Title)
}

// Clone returns a deep copy of r.
func (r *Requirement) Clone() *Requirement {
	if r == nil {
		return nil
	}
	out := *r
	if r.Metadata != nil {
		out.Metadata = make(Metadata, len(r.Metadata))
		for k, v := range r.Metadata {
			out.Metadata[k] = v
		}
	}
	if r.AcceptanceCriteria != nil {
		out.AcceptanceCriteria = append([]string(nil), r.AcceptanceCriteria...)
	}
	if r.Children != nil {
		out.Children = make([]*Requirement, len(r.Children))
		for i, c := range r.Children {
			out.Children[i] = c.Clone()
		}
	}
	return &out
}

// normalize fixes up structured input in place: type spelling, nil metadata
// and the same for every child.
func (r *Requirement) normalize() {
	r.ID = strings.TrimSpace(r.ID)
	r.Type = NormalizeType(string(r.Type))
	if r.Metadata == nil {
		r.Metadata = Metadata{}
	}
	for _, c := range r.Children {
		if c != nil {
			c.normalize()
		}
	}
}
