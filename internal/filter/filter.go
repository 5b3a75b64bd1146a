// Package filter holds the active technology filter and computes the visible
// subset of projects.
package filter

import "github.com/brayrpgs/portfolio/internal/projects"

// All is the sentinel value meaning "no restriction".
const All = "all"

// Filter is either ALL or TECH(name). The zero value is ALL.
type Filter struct {
	tech       string
	restricted bool
}

// Select transitions the filter: All selects every project, any other value
// restricts to projects using that technology.
func (f *Filter) Select(value string) {
	if value == All {
		*f = Filter{}
		return
	}
	*f = Filter{tech: value, restricted: true}
}

// IsAll reports whether the filter is unrestricted.
func (f Filter) IsAll() bool { return !f.restricted }

// Value is the selected control value: All or the technology name.
func (f Filter) Value() string {
	if f.IsAll() {
		return All
	}
	return f.tech
}

// Visible returns the projects passing the filter in their original order.
// An empty result is valid.
func (f Filter) Visible(ps []projects.Project) []projects.Project {
	out := make([]projects.Project, 0, len(ps))
	for _, p := range ps {
		if f.IsAll() || p.Uses(f.tech) {
			out = append(out, p)
		}
	}
	return out
}

// Option is one entry of the technology filter control.
type Option struct {
	Value    string
	Label    string
	Selected bool
}

// Options builds the control entries: All first, then techs in lexicographic
// order. allLabel is the localized label of the All entry. A selected
// technology no project uses is appended last so the control still shows it.
func (f Filter) Options(techs projects.Set, allLabel string) []Option {
	sorted := techs.Sorted()
	out := make([]Option, 0, len(sorted)+2)
	out = append(out, Option{Value: All, Label: allLabel, Selected: f.IsAll()})
	for _, t := range sorted {
		out = append(out, Option{Value: t, Label: t, Selected: !f.IsAll() && t == f.tech})
	}
	if !f.IsAll() && !techs.Has(f.tech) {
		out = append(out, Option{Value: f.tech, Label: f.tech, Selected: true})
	}
	return out
}
