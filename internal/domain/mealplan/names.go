package mealplan

import "strings"

// NormalizeName lowercases a recipe name and collapses runs of
// whitespace so "Chicken  Curry " and "chicken curry" dedupe to the
// same key.
func NormalizeName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

// NameSet tracks recipe names already suggested in a plan. Membership
// is keyed on the normalized form; the set grows for the lifetime of a
// plan and is never reset between slots.
type NameSet struct {
	members map[string]struct{}
	ordered []string
}

// NewNameSet creates a set seeded with the given names.
func NewNameSet(names ...string) *NameSet {
	s := &NameSet{members: make(map[string]struct{})}
	for _, n := range names {
		s.Add(n)
	}
	return s
}

// Add records a name. Returns false if it was already present.
func (s *NameSet) Add(name string) bool {
	key := NormalizeName(name)
	if key == "" {
		return false
	}
	if _, ok := s.members[key]; ok {
		return false
	}
	s.members[key] = struct{}{}
	s.ordered = append(s.ordered, strings.TrimSpace(name))
	return true
}

// Contains reports whether a name (in any casing or spacing) is in
// the set.
func (s *NameSet) Contains(name string) bool {
	_, ok := s.members[NormalizeName(name)]
	return ok
}

// Names returns the original names in insertion order, for use in
// generation prompts as an avoid list.
func (s *NameSet) Names() []string {
	out := make([]string, len(s.ordered))
	copy(out, s.ordered)
	return out
}

// Len is the number of distinct names recorded.
func (s *NameSet) Len() int {
	return len(s.members)
}
