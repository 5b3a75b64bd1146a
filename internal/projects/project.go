package projects

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"gopkg.in/yaml.v3"
)

// Project is one portfolio entry. It is never mutated after Load.
type Project struct {
	Name        string   `json:"name,omitempty" yaml:"name"`
	Year        Year     `json:"year,omitempty" yaml:"year"`
	Complexity  string   `json:"complexity,omitempty" yaml:"complexity"`
	Description string   `json:"description,omitempty" yaml:"description"`
	Stack       []string `json:"stack,omitempty" yaml:"stack"`
	LiveLink    string   `json:"live_link,omitempty" yaml:"live_link"`
	RepoLink    string   `json:"repo_link,omitempty" yaml:"repo_link"`
	Images      []string `json:"images,omitempty" yaml:"images"`
	Videos      []string `json:"videos,omitempty" yaml:"videos"`
}

// Uses reports whether tech appears in the project's stack. Matching is exact.
func (p Project) Uses(tech string) bool {
	return slices.Contains(p.Stack, tech)
}

// DisplayName is the project name or "Project <position>" when it has none.
// position is 1-based.
func (p Project) DisplayName(position int) string {
	if p.Name != "" {
		return p.Name
	}
	return fmt.Sprintf("Project %d", position)
}

// Year accepts either a string or a number in the dataset.
type Year string

func (y *Year) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*y = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*y = Year(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("year: %w", err)
	}
	*y = Year(n.String())
	return nil
}

func (y *Year) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("year: expected scalar, got kind %d", node.Kind)
	}
	if node.Tag == "!!null" {
		*y = ""
		return nil
	}
	*y = Year(node.Value)
	return nil
}

func (y Year) String() string { return string(y) }

// Set is a set of technology tags.
type Set map[string]struct{}

// Has reports membership.
func (s Set) Has(tech string) bool {
	_, ok := s[tech]
	return ok
}

// Sorted returns the members in lexicographic order.
func (s Set) Sorted() []string {
	return slices.Sorted(maps.Keys(s))
}

// DeriveTechnologies is the union of every stack entry across projects.
func DeriveTechnologies(projects []Project) Set {
	techs := Set{}
	for _, p := range projects {
		for _, t := range p.Stack {
			techs[t] = struct{}{}
		}
	}
	return techs
}
