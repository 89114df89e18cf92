package history

import (
	"strings"

	"github.com/google/uuid"
)

// Complexity buckets the user's typical prep effort.
type Complexity string

const (
	ComplexityQuick    Complexity = "quick"
	ComplexityModerate Complexity = "moderate"
	ComplexityRelaxed  Complexity = "relaxed"

	// ComplexityMedium is the neutral default for users with no
	// rating history.
	ComplexityMedium Complexity = "medium"
)

// Affinity is an aggregated liking for one cuisine.
type Affinity struct {
	Mean  float64
	Count int
}

// PreferenceProfile is derived per request and never persisted on its
// own.
type PreferenceProfile struct {
	// CuisineAffinity is keyed by lowercased cuisine name.
	CuisineAffinity    map[string]Affinity
	AvgPrepTimeMinutes float64
	Complexity         Complexity
	ReusedRecipeIDs    map[uuid.UUID]struct{}
}

// NewDefaultProfile is the profile for a user with no history.
func NewDefaultProfile() *PreferenceProfile {
	return &PreferenceProfile{
		CuisineAffinity: make(map[string]Affinity),
		Complexity:      ComplexityMedium,
		ReusedRecipeIDs: make(map[uuid.UUID]struct{}),
	}
}

// RecordLikedCuisine folds one high rating into the cuisine's running
// mean.
func (p *PreferenceProfile) RecordLikedCuisine(cuisine string, rating int) {
	key := strings.ToLower(strings.TrimSpace(cuisine))
	if key == "" {
		return
	}
	a := p.CuisineAffinity[key]
	a.Mean = (a.Mean*float64(a.Count) + float64(rating)) / float64(a.Count+1)
	a.Count++
	p.CuisineAffinity[key] = a
}

// AffinityFor returns the affinity for a cuisine, if any.
func (p *PreferenceProfile) AffinityFor(cuisine string) (Affinity, bool) {
	a, ok := p.CuisineAffinity[strings.ToLower(strings.TrimSpace(cuisine))]
	return a, ok
}

// IsReused reports whether the recipe appeared in more than one
// recent plan item.
func (p *PreferenceProfile) IsReused(id uuid.UUID) bool {
	_, ok := p.ReusedRecipeIDs[id]
	return ok
}

// TopCuisines returns up to n cuisines ordered by mean times count,
// for use in generation prompts.
func (p *PreferenceProfile) TopCuisines(n int) []string {
	type entry struct {
		name  string
		score float64
	}
	entries := make([]entry, 0, len(p.CuisineAffinity))
	for name, a := range p.CuisineAffinity {
		entries = append(entries, entry{name: name, score: a.Mean * float64(a.Count)})
	}
	// Insertion sort; the map is tiny.
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0; j-- {
			swap := entries[j].score > entries[j-1].score ||
				(entries[j].score == entries[j-1].score && entries[j].name < entries[j-1].name)
			if !swap {
				break
			}
			entries[j], entries[j-1] = entries[j-1], entries[j]
		}
	}
	if n > len(entries) {
		n = len(entries)
	}
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = entries[i].name
	}
	return out
}
