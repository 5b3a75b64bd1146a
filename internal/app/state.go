// Package app owns the per-session portfolio state and funnels every user
// and dataset event through a single dispatch loop.
package app

import (
	"github.com/brayrpgs/portfolio/internal/filter"
	"github.com/brayrpgs/portfolio/internal/i18n"
	"github.com/brayrpgs/portfolio/internal/projects"
)

// State is the page session state. Only the transition functions mutate it,
// and only the owning Engine calls them.
type State struct {
	lang   i18n.Language
	store  *projects.Store
	filter filter.Filter
	loaded bool
}

// NewState returns the startup state: lang, no projects, ALL filter.
func NewState(lang i18n.Language) *State {
	if _, ok := i18n.ParseLanguage(string(lang)); !ok {
		lang = i18n.Primary
	}
	return &State{lang: lang, store: projects.NewStore(nil)}
}

// LoadProjects installs the dataset and recomputes the technology set.
func (s *State) LoadProjects(ps []projects.Project) {
	s.store.Replace(ps)
	s.loaded = true
}

// SelectFilter sets the active filter. All (or an empty value) clears it.
func (s *State) SelectFilter(value string) {
	if value == "" {
		value = filter.All
	}
	s.filter.Select(value)
}

// ToggleLanguage switches to the other language and returns it.
func (s *State) ToggleLanguage() i18n.Language {
	s.lang = s.lang.Other()
	return s.lang
}

func (s *State) Language() i18n.Language { return s.lang }

func (s *State) Filter() filter.Filter { return s.filter }

func (s *State) Loaded() bool { return s.loaded }

func (s *State) Projects() []projects.Project { return s.store.Projects() }

func (s *State) Technologies() projects.Set { return s.store.Technologies() }

// Visible returns the projects passing the active filter, in dataset order.
func (s *State) Visible() []projects.Project {
	return s.filter.Visible(s.store.Projects())
}
