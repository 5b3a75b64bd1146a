package projects

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

var (
	// ErrNotRecord means the dataset is not an object/mapping.
	ErrNotRecord = errors.New("projects: dataset is not a record")
	// ErrMissingProjects means the dataset has no projects field.
	ErrMissingProjects = errors.New("projects: dataset has no projects field")
	// ErrProjectsNotList means the projects field is not a sequence.
	ErrProjectsNotList = errors.New("projects: projects field is not a list")
)

// Load parses a dataset of shape {projects: [...]}. It never fails: a dataset
// that is absent, not a record, or lacks a usable projects list yields an
// empty collection.
func Load(raw []byte) []Project {
	out, _ := Decode(raw)
	if out == nil {
		return []Project{}
	}
	return out
}

// Decode is Load with diagnostics. JSON documents start with '{'; anything
// else is read as YAML. Entries that cannot be decoded are skipped and
// reported in the returned error while the rest are kept.
func Decode(raw []byte) ([]Project, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, ErrNotRecord
	}
	if trimmed[0] == '{' {
		return decodeJSON(trimmed)
	}
	return decodeYAML(trimmed)
}

func decodeJSON(raw []byte) ([]Project, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotRecord, err)
	}
	list, ok := doc["projects"]
	if !ok || bytes.Equal(bytes.TrimSpace(list), []byte("null")) {
		return nil, ErrMissingProjects
	}
	var items []json.RawMessage
	if err := json.Unmarshal(list, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProjectsNotList, err)
	}
	out := make([]Project, 0, len(items))
	var errs []error
	for i, item := range items {
		if bytes.Equal(bytes.TrimSpace(item), []byte("null")) {
			errs = append(errs, fmt.Errorf("project %d: null entry", i))
			continue
		}
		var p Project
		if err := json.Unmarshal(item, &p); err != nil {
			errs = append(errs, fmt.Errorf("project %d: %w", i, err))
			continue
		}
		out = append(out, p)
	}
	return out, errors.Join(errs...)
}

func decodeYAML(raw []byte) ([]Project, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotRecord, err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, ErrNotRecord
	}
	root := doc.Content[0]
	var list *yaml.Node
	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value == "projects" {
			list = root.Content[i+1]
			break
		}
	}
	if list == nil || list.Tag == "!!null" {
		return nil, ErrMissingProjects
	}
	if list.Kind != yaml.SequenceNode {
		return nil, ErrProjectsNotList
	}
	out := make([]Project, 0, len(list.Content))
	var errs []error
	for i, item := range list.Content {
		var p Project
		if err := item.Decode(&p); err != nil {
			errs = append(errs, fmt.Errorf("project %d: %w", i, err))
			continue
		}
		out = append(out, p)
	}
	return out, errors.Join(errs...)
}
