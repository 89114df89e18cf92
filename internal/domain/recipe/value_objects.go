package recipe

import "strings"

// Ingredient is a single line item in a recipe.
type Ingredient struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
}

// Validate rejects ingredients without a name. Quantity zero is
// allowed; "to taste" items carry no meaningful amount.
func (i Ingredient) Validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return ErrInvalidIngredient
	}
	return nil
}

// NutritionInfo holds per-serving nutrition facts.
type NutritionInfo struct {
	Calories int     `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
	Fiber    float64 `json:"fiber,omitempty"`
	Sugar    float64 `json:"sugar,omitempty"`
	Sodium   float64 `json:"sodium,omitempty"`
}

// Source records how a recipe entered the store.
type Source string

const (
	SourceManual    Source = "manual"
	SourceGenerated Source = "generated"
	SourceFallback  Source = "fallback"
)

// Difficulty levels used by schedule preferences and filters.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)
