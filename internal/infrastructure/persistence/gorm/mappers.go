package gorm

import (
	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"github.com/hubertdeng123/meal-planner-sub000/internal/domain/recipe"
)

func toRecipeModel(r *recipe.Recipe) *RecipeModel {
	ingredients := make([]IngredientRecord, len(r.Ingredients))
	for i, ing := range r.Ingredients {
		ingredients[i] = IngredientRecord(ing)
	}

	var nutrition *NutritionRecord
	calories := 0
	if r.Nutrition != nil {
		n := NutritionRecord(*r.Nutrition)
		nutrition = &n
		calories = n.Calories
	}

	m := &RecipeModel{
		ID:              r.ID.String(),
		Name:            r.Name,
		Description:     r.Description,
		Cuisine:         r.Cuisine,
		Ingredients:     JSONField[[]IngredientRecord]{Data: ingredients},
		Instructions:    StringSlice(r.Instructions),
		PrepTimeMinutes: r.PrepTimeMinutes,
		CookTimeMinutes: r.CookTimeMinutes,
		TotalTime:       r.TotalTimeMinutes(),
		Servings:        r.Servings,
		Tags:            StringSlice(r.Tags),
		Nutrition:       JSONField[*NutritionRecord]{Data: nutrition},
		Calories:        calories,
		AverageRating:   r.AverageRating,
		TimesUsed:       r.TimesUsed,
		Source:          string(r.Source),
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
	if len(r.Embedding) > 0 {
		m.Embedding = pgvector.NewVector(r.Embedding)
		m.HasEmbedding = true
	}
	return m
}

func toRecipeEntity(m *RecipeModel) (*recipe.Recipe, error) {
	id, err := uuid.Parse(m.ID)
	if err != nil {
		return nil, err
	}

	ingredients := make([]recipe.Ingredient, len(m.Ingredients.Data))
	for i, ing := range m.Ingredients.Data {
		ingredients[i] = recipe.Ingredient(ing)
	}

	var nutrition *recipe.NutritionInfo
	if m.Nutrition.Data != nil {
		n := recipe.NutritionInfo(*m.Nutrition.Data)
		nutrition = &n
	}

	r := &recipe.Recipe{
		ID:              id,
		Name:            m.Name,
		Description:     m.Description,
		Cuisine:         m.Cuisine,
		Ingredients:     ingredients,
		Instructions:    []string(m.Instructions),
		PrepTimeMinutes: m.PrepTimeMinutes,
		CookTimeMinutes: m.CookTimeMinutes,
		Servings:        m.Servings,
		Tags:            []string(m.Tags),
		Nutrition:       nutrition,
		AverageRating:   m.AverageRating,
		TimesUsed:       m.TimesUsed,
		Source:          recipe.Source(m.Source),
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
	if m.HasEmbedding {
		r.Embedding = m.Embedding.Slice()
	}
	return r, nil
}

func toRecipeEntities(models []RecipeModel) ([]recipe.Recipe, error) {
	out := make([]recipe.Recipe, 0, len(models))
	for i := range models {
		r, err := toRecipeEntity(&models[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, nil
}
