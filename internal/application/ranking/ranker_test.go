package ranking

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hubertdeng123/meal-planner-sub000/internal/application/history"
	"github.com/hubertdeng123/meal-planner-sub000/internal/application/search"
	"github.com/hubertdeng123/meal-planner-sub000/internal/domain/recipe"
	"github.com/hubertdeng123/meal-planner-sub000/internal/ports/inbound"
)

func candidate(name, cuisine string, similarity float64) search.Candidate {
	r := recipe.New(name, recipe.SourceManual)
	r.Cuisine = cuisine
	r.Ingredients = []recipe.Ingredient{{Name: "base", Quantity: 1}}
	r.Instructions = []string{"cook"}
	return search.Candidate{Recipe: *r, Similarity: similarity}
}

func profileWith(cuisine string, mean float64, count int) *history.PreferenceProfile {
	p := history.NewDefaultProfile()
	for i := 0; i < count; i++ {
		p.RecordLikedCuisine(cuisine, int(mean))
	}
	return p
}

func TestRankBaseScoreIsSimilarity(t *testing.T) {
	ranker := NewRanker(DefaultConfig())

	ranked := ranker.Rank([]search.Candidate{candidate("Plain", "", 0.6)}, history.NewDefaultProfile(), inbound.PreferenceSettings{})

	require.Len(t, ranked, 1)
	assert.InDelta(t, 0.6, ranked[0].FinalScore, 1e-9)
}

func TestRankCuisineBoostCapped(t *testing.T) {
	ranker := NewRanker(DefaultConfig())

	// Mean 5 would give 0.5 uncapped; the cap holds it at 0.2.
	profile := profileWith("italian", 5, 3)
	ranked := ranker.Rank([]search.Candidate{candidate("Lasagna", "Italian", 0.5)}, profile, inbound.PreferenceSettings{})

	assert.InDelta(t, 0.7, ranked[0].FinalScore, 1e-9)
}

func TestRankCuisineBoostBelowCap(t *testing.T) {
	cfg := DefaultConfig()
	ranker := NewRanker(cfg)

	profile := history.NewDefaultProfile()
	profile.CuisineAffinity["thai"] = history.Affinity{Mean: 1.5, Count: 2}

	ranked := ranker.Rank([]search.Candidate{candidate("Pad Thai", "Thai", 0.5)}, profile, inbound.PreferenceSettings{})

	// 1.5 / 10 = 0.15, under the 0.2 cap.
	assert.InDelta(t, 0.65, ranked[0].FinalScore, 1e-9)
}

func TestRankDietaryBoostOnTagIntersection(t *testing.T) {
	ranker := NewRanker(DefaultConfig())

	c := candidate("Tofu Bowl", "", 0.5)
	c.Recipe.Tags = []string{"Vegan", "high-protein"}
	prefs := inbound.PreferenceSettings{Dietary: inbound.DietaryRules{Diets: []string{"vegan"}}}

	ranked := ranker.Rank([]search.Candidate{c}, history.NewDefaultProfile(), prefs)
	assert.InDelta(t, 0.65, ranked[0].FinalScore, 1e-9)
}

func TestRankFavoriteIngredientBoostCapped(t *testing.T) {
	ranker := NewRanker(DefaultConfig())

	c := candidate("Everything Stir Fry", "", 0.5)
	c.Recipe.Ingredients = []recipe.Ingredient{
		{Name: "chicken", Quantity: 1},
		{Name: "garlic", Quantity: 1},
		{Name: "ginger", Quantity: 1},
		{Name: "broccoli", Quantity: 1},
		{Name: "soy sauce", Quantity: 1},
		{Name: "sesame oil", Quantity: 1},
	}
	prefs := inbound.PreferenceSettings{Ingredients: inbound.IngredientRules{
		Favorites: []string{"chicken", "garlic", "ginger", "broccoli", "soy sauce", "sesame oil"},
	}}

	ranked := ranker.Rank([]search.Candidate{c}, history.NewDefaultProfile(), prefs)

	// Six matches at 0.02 each would be 0.12; capped at 0.1.
	assert.InDelta(t, 0.6, ranked[0].FinalScore, 1e-9)
}

func TestRankReusePenalty(t *testing.T) {
	ranker := NewRanker(DefaultConfig())

	c := candidate("Leftovers Again", "", 0.5)
	profile := history.NewDefaultProfile()
	profile.ReusedRecipeIDs[c.Recipe.ID] = struct{}{}

	ranked := ranker.Rank([]search.Candidate{c}, profile, inbound.PreferenceSettings{})
	assert.InDelta(t, 0.2, ranked[0].FinalScore, 1e-9)
}

func TestRankClampsToUnitInterval(t *testing.T) {
	ranker := NewRanker(DefaultConfig())

	high := candidate("Perfect Match", "Italian", 0.95)
	high.Recipe.Tags = []string{"vegetarian"}
	profile := profileWith("italian", 5, 5)
	prefs := inbound.PreferenceSettings{Dietary: inbound.DietaryRules{Diets: []string{"vegetarian"}}}

	low := candidate("Reused Dud", "", 0.1)
	profile.ReusedRecipeIDs[low.Recipe.ID] = struct{}{}

	ranked := ranker.Rank([]search.Candidate{high, low}, profile, prefs)

	require.Len(t, ranked, 2)
	assert.Equal(t, 1.0, ranked[0].FinalScore)
	assert.Equal(t, 0.0, ranked[1].FinalScore)
}

func TestRankTiesBreakOnSimilarityThenID(t *testing.T) {
	ranker := NewRanker(DefaultConfig())
	profile := history.NewDefaultProfile()

	// Same final score, different similarity: higher similarity wins.
	a := candidate("A", "", 0.5)
	b := candidate("B", "Thai", 0.4)
	profile.CuisineAffinity["thai"] = history.Affinity{Mean: 1.0, Count: 1} // +0.1 lifts b to 0.5

	ranked := ranker.Rank([]search.Candidate{b, a}, profile, inbound.PreferenceSettings{})
	require.Len(t, ranked, 2)
	assert.Equal(t, "A", ranked[0].Recipe.Name)

	// Identical similarity and score: lower id string wins.
	c1 := candidate("C1", "", 0.5)
	c2 := candidate("C2", "", 0.5)
	c1.Recipe.ID = uuid.MustParse("00000000-0000-0000-0000-000000000001")
	c2.Recipe.ID = uuid.MustParse("00000000-0000-0000-0000-000000000002")

	ranked = ranker.Rank([]search.Candidate{c2, c1}, history.NewDefaultProfile(), inbound.PreferenceSettings{})
	assert.Equal(t, "C1", ranked[0].Recipe.Name)
}

func TestRankDeterministicAndPure(t *testing.T) {
	ranker := NewRanker(DefaultConfig())
	profile := profileWith("mexican", 4, 2)
	prefs := inbound.PreferenceSettings{Dietary: inbound.DietaryRules{Diets: []string{"gluten-free"}}}

	input := []search.Candidate{
		candidate("Tacos", "Mexican", 0.8),
		candidate("Burrito", "Mexican", 0.7),
		candidate("Salad", "", 0.9),
	}

	first := ranker.Rank(input, profile, prefs)
	second := ranker.Rank(input, profile, prefs)

	require.Equal(t, first, second)
	// The input slice keeps its order and zero final scores.
	assert.Equal(t, "Tacos", input[0].Recipe.Name)
	assert.Zero(t, input[0].FinalScore)
}
