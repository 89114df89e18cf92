package planner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/hubertdeng123/meal-planner-sub000/internal/application/history"
	"github.com/hubertdeng123/meal-planner-sub000/internal/application/ranking"
	"github.com/hubertdeng123/meal-planner-sub000/internal/domain/mealplan"
	"github.com/hubertdeng123/meal-planner-sub000/internal/domain/recipe"
	"github.com/hubertdeng123/meal-planner-sub000/internal/ports/inbound"
)

func popularRecipe(name, cuisine string) recipe.Recipe {
	r := recipe.New(name, recipe.SourceManual)
	r.Cuisine = cuisine
	r.Ingredients = []recipe.Ingredient{{Name: "ingredient", Quantity: 1}}
	r.Instructions = []string{"cook"}
	r.AverageRating = 4.5
	return *r
}

func TestPersonalizedRetrievalTagsItsOwnOrigin(t *testing.T) {
	repo := &fakeRecipeRepo{popular: []recipe.Recipe{
		popularRecipe("Osso Buco", "Italian"),
		popularRecipe("Risotto Milanese", "Italian"),
	}}
	strat := NewPersonalizedRetrieval(repo, ranking.NewRanker(ranking.DefaultConfig()), zaptest.NewLogger(t))

	profile := history.NewDefaultProfile()
	profile.RecordLikedCuisine("Italian", 5)

	slot := slotContext{mealType: mealplan.MealDinner, servings: 2, count: 3}
	got, err := strat.Retrieve(context.Background(), slot, profile, inbound.PreferenceSettings{}, mealplan.NewNameSet(), 3)
	require.NoError(t, err)
	require.NotEmpty(t, got)
	for _, c := range got {
		assert.Equal(t, string(mealplan.OriginPersonalized), c.Origin,
			"the personalized path must be distinguishable from raw popularity")
	}
}

func TestPersonalizedRetrievalNeedsAffinityHistory(t *testing.T) {
	repo := &fakeRecipeRepo{popular: []recipe.Recipe{popularRecipe("Anything", "French")}}
	strat := NewPersonalizedRetrieval(repo, ranking.NewRanker(ranking.DefaultConfig()), zaptest.NewLogger(t))

	slot := slotContext{mealType: mealplan.MealLunch, servings: 2, count: 3}
	got, err := strat.Retrieve(context.Background(), slot, history.NewDefaultProfile(), inbound.PreferenceSettings{}, mealplan.NewNameSet(), 3)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPopularityRetrievalKeepsPopularOrigin(t *testing.T) {
	repo := &fakeRecipeRepo{popular: []recipe.Recipe{popularRecipe("Margherita Pizza", "Italian")}}
	strat := NewPopularityRetrieval(repo, zaptest.NewLogger(t))

	slot := slotContext{mealType: mealplan.MealDinner, servings: 2, count: 3}
	got, err := strat.Retrieve(context.Background(), slot, history.NewDefaultProfile(), inbound.PreferenceSettings{}, mealplan.NewNameSet(), 3)
	require.Len(t, got, 1)
	require.NoError(t, err)
	assert.Equal(t, string(mealplan.OriginPopular), got[0].Origin)
}
