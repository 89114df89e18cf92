package planner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/hubertdeng123/meal-planner-sub000/internal/domain/mealplan"
	"github.com/hubertdeng123/meal-planner-sub000/internal/domain/recipe"
	"github.com/hubertdeng123/meal-planner-sub000/internal/infrastructure/cache"
	"github.com/hubertdeng123/meal-planner-sub000/internal/ports/inbound"
)

func newResponseCache(t *testing.T, max int) *ResponseCache {
	t.Helper()
	mem := cache.NewMemoryCache()
	t.Cleanup(mem.Close)
	return NewResponseCache(mem, time.Minute, max, zaptest.NewLogger(t))
}

func prefsWithIngredients(required, avoid []string) inbound.PreferenceSettings {
	return inbound.PreferenceSettings{
		Ingredients: inbound.IngredientRules{Required: required, Avoid: avoid},
	}
}

func TestResponseCacheEligibilityBoundary(t *testing.T) {
	rc := newResponseCache(t, 3)

	assert.True(t, rc.Eligible(prefsWithIngredients(nil, nil)))
	assert.True(t, rc.Eligible(prefsWithIngredients([]string{"a", "b"}, []string{"c"})))
	assert.False(t, rc.Eligible(prefsWithIngredients([]string{"a", "b"}, []string{"c", "d"})))
}

func TestResponseCacheNilRepositoryNeverEligible(t *testing.T) {
	rc := NewResponseCache(nil, time.Minute, 3, zaptest.NewLogger(t))
	assert.False(t, rc.Eligible(inbound.PreferenceSettings{}))
}

func TestResponseCacheKeyIgnoresOrderAndCasing(t *testing.T) {
	rc := newResponseCache(t, 3)

	a := inbound.PreferenceSettings{
		Dietary:     inbound.DietaryRules{Diets: []string{"Vegan", "gluten-free"}},
		Ingredients: inbound.IngredientRules{Required: []string{"Tofu", "kale"}},
	}
	b := inbound.PreferenceSettings{
		Dietary:     inbound.DietaryRules{Diets: []string{"gluten-free", "vegan"}},
		Ingredients: inbound.IngredientRules{Required: []string{"KALE", "tofu "}},
	}
	assert.Equal(t,
		rc.Key(mealplan.MealDinner, 2, a),
		rc.Key(mealplan.MealDinner, 2, b))
}

func TestResponseCacheKeyDistinguishesRequests(t *testing.T) {
	rc := newResponseCache(t, 3)
	prefs := inbound.PreferenceSettings{}

	dinner := rc.Key(mealplan.MealDinner, 2, prefs)
	assert.NotEqual(t, dinner, rc.Key(mealplan.MealLunch, 2, prefs))
	assert.NotEqual(t, dinner, rc.Key(mealplan.MealDinner, 4, prefs))
	assert.NotEqual(t, dinner, rc.Key(mealplan.MealDinner, 2,
		prefsWithIngredients(nil, []string{"cilantro"})))
}

func TestResponseCacheRoundTrip(t *testing.T) {
	rc := newResponseCache(t, 3)
	ctx := context.Background()
	key := rc.Key(mealplan.MealLunch, 2, inbound.PreferenceSettings{})

	assert.Nil(t, rc.Get(ctx, key))

	r := recipe.New("Caprese Sandwich", recipe.SourceManual)
	rc.Put(ctx, key, []mealplan.Suggestion{{Recipe: *r, Origin: mealplan.OriginSimilarity, Score: 0.9}})

	got := rc.Get(ctx, key)
	require.Len(t, got, 1)
	assert.Equal(t, "Caprese Sandwich", got[0].Recipe.Name)
	assert.Equal(t, mealplan.OriginSimilarity, got[0].Origin)
	assert.InDelta(t, 0.9, got[0].Score, 1e-9)
}

func TestUsableCachedRejectsAvoidCollision(t *testing.T) {
	mk := func(name string) mealplan.Suggestion {
		return mealplan.Suggestion{Recipe: *recipe.New(name, recipe.SourceManual)}
	}
	cached := []mealplan.Suggestion{mk("One"), mk("Two"), mk("Three")}

	_, ok := usableCached(cached, 3, mealplan.NewNameSet())
	assert.True(t, ok)

	// One collision invalidates the whole entry.
	_, ok = usableCached(cached, 3, mealplan.NewNameSet("TWO"))
	assert.False(t, ok)

	_, ok = usableCached(cached, 2, mealplan.NewNameSet())
	assert.False(t, ok)
}
