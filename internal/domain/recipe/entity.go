// Package recipe contains the recipe aggregate shared by retrieval,
// ranking, and generation.
package recipe

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Recipe is the canonical representation of a dish. Rows ingested from
// the catalog and recipes produced by the generation service both end
// up here; Source records which path created the row.
type Recipe struct {
	ID              uuid.UUID
	Name            string
	Description     string
	Cuisine         string
	Ingredients     []Ingredient
	Instructions    []string
	PrepTimeMinutes int
	CookTimeMinutes int
	Servings        int
	Tags            []string
	Nutrition       *NutritionInfo
	Embedding       []float32
	AverageRating   float64
	TimesUsed       int
	Source          Source
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// New creates a recipe with a fresh identity and timestamps.
func New(name string, source Source) *Recipe {
	now := time.Now()
	return &Recipe{
		ID:        uuid.New(),
		Name:      strings.TrimSpace(name),
		Source:    source,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Validate checks the minimum a recipe needs before it can be stored
// or suggested to a user.
func (r *Recipe) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrEmptyName
	}
	if len(r.Ingredients) == 0 {
		return ErrNoIngredients
	}
	if len(r.Instructions) == 0 {
		return ErrNoInstructions
	}
	for i := range r.Ingredients {
		if err := r.Ingredients[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// TotalTimeMinutes is prep plus cook time.
func (r *Recipe) TotalTimeMinutes() int {
	return r.PrepTimeMinutes + r.CookTimeMinutes
}

// HasEmbedding reports whether the recipe carries a stored vector.
func (r *Recipe) HasEmbedding() bool {
	return len(r.Embedding) > 0
}

// EmbeddingText builds the text that gets encoded into the recipe's
// vector. Name, cuisine, tags and ingredient names all contribute so
// similarity search sees more than the title.
func (r *Recipe) EmbeddingText() string {
	var b strings.Builder
	b.WriteString(r.Name)
	if r.Cuisine != "" {
		b.WriteString(" ")
		b.WriteString(r.Cuisine)
	}
	if r.Description != "" {
		b.WriteString(" ")
		b.WriteString(r.Description)
	}
	for _, t := range r.Tags {
		b.WriteString(" ")
		b.WriteString(t)
	}
	for _, ing := range r.Ingredients {
		b.WriteString(" ")
		b.WriteString(ing.Name)
	}
	return b.String()
}

// ContainsIngredient reports whether any ingredient name contains the
// given term, case-insensitively.
func (r *Recipe) ContainsIngredient(term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return false
	}
	for _, ing := range r.Ingredients {
		if strings.Contains(strings.ToLower(ing.Name), term) {
			return true
		}
	}
	return false
}

// MatchesDiet reports whether the recipe's tags cover every listed
// dietary rule. Rules are matched against tags case-insensitively.
func (r *Recipe) MatchesDiet(rules []string) bool {
	if len(rules) == 0 {
		return false
	}
	tags := make(map[string]struct{}, len(r.Tags))
	for _, t := range r.Tags {
		tags[strings.ToLower(strings.TrimSpace(t))] = struct{}{}
	}
	for _, rule := range rules {
		if _, ok := tags[strings.ToLower(strings.TrimSpace(rule))]; !ok {
			return false
		}
	}
	return true
}
