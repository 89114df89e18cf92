// Package ranking applies personalization boosts on top of retrieval
// similarity. Rank is a pure function: no I/O, deterministic for
// identical inputs.
package ranking

import (
	"sort"
	"strings"

	"github.com/hubertdeng123/meal-planner-sub000/internal/application/history"
	"github.com/hubertdeng123/meal-planner-sub000/internal/application/search"
	"github.com/hubertdeng123/meal-planner-sub000/internal/ports/inbound"
)

// Config holds the boost constants. They are configuration, not code,
// so they can be tuned per deployment.
type Config struct {
	CuisineBoostCap     float64
	DietaryBoost        float64
	IngredientBoostStep float64
	IngredientBoostCap  float64
	ReusePenalty        float64
}

// DefaultConfig returns the stock constants.
func DefaultConfig() Config {
	return Config{
		CuisineBoostCap:     0.2,
		DietaryBoost:        0.15,
		IngredientBoostStep: 0.02,
		IngredientBoostCap:  0.1,
		ReusePenalty:        0.3,
	}
}

// Ranker scores candidates.
type Ranker struct {
	cfg Config
}

// NewRanker builds a ranker with the given constants.
func NewRanker(cfg Config) *Ranker {
	return &Ranker{cfg: cfg}
}

// Rank scores each candidate and returns them sorted by final score
// descending. Ties break on original similarity, then recipe id.
// The input slice is not modified.
func (rk *Ranker) Rank(candidates []search.Candidate, profile *history.PreferenceProfile, prefs inbound.PreferenceSettings) []search.Candidate {
	out := make([]search.Candidate, len(candidates))
	copy(out, candidates)

	for i := range out {
		out[i].FinalScore = rk.score(&out[i], profile, prefs)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].FinalScore != out[j].FinalScore {
			return out[i].FinalScore > out[j].FinalScore
		}
		if out[i].Similarity != out[j].Similarity {
			return out[i].Similarity > out[j].Similarity
		}
		return out[i].Recipe.ID.String() < out[j].Recipe.ID.String()
	})
	return out
}

func (rk *Ranker) score(c *search.Candidate, profile *history.PreferenceProfile, prefs inbound.PreferenceSettings) float64 {
	score := c.Similarity

	if profile != nil {
		if affinity, ok := profile.AffinityFor(c.Recipe.Cuisine); ok {
			boost := affinity.Mean / 10
			if boost > rk.cfg.CuisineBoostCap {
				boost = rk.cfg.CuisineBoostCap
			}
			score += boost
		}
		if profile.IsReused(c.Recipe.ID) {
			score -= rk.cfg.ReusePenalty
		}
	}

	if tagsIntersect(c.Recipe.Tags, prefs.Dietary.Diets) {
		score += rk.cfg.DietaryBoost
	}

	matches := 0
	for _, fav := range prefs.Ingredients.Favorites {
		if c.Recipe.ContainsIngredient(fav) {
			matches++
		}
	}
	if matches > 0 {
		boost := rk.cfg.IngredientBoostStep * float64(matches)
		if boost > rk.cfg.IngredientBoostCap {
			boost = rk.cfg.IngredientBoostCap
		}
		score += boost
	}

	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

func tagsIntersect(tags, diets []string) bool {
	if len(tags) == 0 || len(diets) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		set[strings.ToLower(strings.TrimSpace(t))] = struct{}{}
	}
	for _, d := range diets {
		if _, ok := set[strings.ToLower(strings.TrimSpace(d))]; ok {
			return true
		}
	}
	return false
}
