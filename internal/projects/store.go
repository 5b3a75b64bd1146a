package projects

import "slices"

// Store holds the loaded collection and the technologies derived from it.
// Replace is the only way to change the collection, so Technologies always
// equals the union of every stack in Projects.
type Store struct {
	projects []Project
	techs    Set
}

// NewStore returns a store over projects.
func NewStore(projects []Project) *Store {
	s := &Store{}
	s.Replace(projects)
	return s
}

// Replace swaps the collection and recomputes technologies.
func (s *Store) Replace(projects []Project) {
	s.projects = slices.Clone(projects)
	if s.projects == nil {
		s.projects = []Project{}
	}
	s.techs = DeriveTechnologies(s.projects)
}

// Projects returns the collection in dataset order. Callers must not modify it.
func (s *Store) Projects() []Project {
	if s == nil {
		return nil
	}
	return s.projects
}

// Technologies returns the derived technology set.
func (s *Store) Technologies() Set {
	if s == nil {
		return Set{}
	}
	return s.techs
}

// Len is the number of loaded projects.
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.projects)
}
