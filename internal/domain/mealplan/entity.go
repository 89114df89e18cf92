// Package mealplan holds the weekly plan aggregate and the naming
// rules used to keep suggestions distinct across a plan.
package mealplan

import (
	"time"

	"github.com/google/uuid"

	"github.com/hubertdeng123/meal-planner-sub000/internal/domain/recipe"
)

// Origin records which stage of the suggestion chain produced a
// suggestion.
type Origin string

const (
	OriginSimilarity   Origin = "similarity"
	OriginPersonalized Origin = "personalized"
	OriginPopular      Origin = "popular"
	OriginGenerated    Origin = "generated"
	OriginFallback     Origin = "fallback"
)

// Suggestion is one candidate dish offered for a slot.
type Suggestion struct {
	Recipe recipe.Recipe `json:"recipe"`
	Origin Origin        `json:"origin"`
	Score  float64       `json:"score"`
}

// MealSlot is one meal on one day. Every completed slot carries
// exactly SuggestionsPerSlot suggestions.
type MealSlot struct {
	Date          time.Time    `json:"date"`
	MealType      MealType     `json:"meal_type"`
	Suggestions   []Suggestion `json:"suggestions"`
	SelectedIndex *int         `json:"selected_index,omitempty"`
}

// SuggestionsPerSlot is the fixed number of options per slot.
const SuggestionsPerSlot = 3

// WeeklyPlan is a user's plan for one week.
type WeeklyPlan struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	StartDate time.Time  `json:"start_date"`
	Slots     []MealSlot `json:"slots"`
	CreatedAt time.Time  `json:"created_at"`
}

// NewWeeklyPlan creates an empty plan starting at the given date.
func NewWeeklyPlan(userID uuid.UUID, start time.Time) *WeeklyPlan {
	return &WeeklyPlan{
		ID:        uuid.New(),
		UserID:    userID,
		StartDate: start,
		CreatedAt: time.Now(),
	}
}

// Select marks one suggestion in a slot as the user's choice.
func (p *WeeklyPlan) Select(slotIndex, suggestionIndex int) error {
	if slotIndex < 0 || slotIndex >= len(p.Slots) {
		return ErrSlotOutOfRange
	}
	slot := &p.Slots[slotIndex]
	if suggestionIndex < 0 || suggestionIndex >= len(slot.Suggestions) {
		return ErrSuggestionOutOfRange
	}
	idx := suggestionIndex
	slot.SelectedIndex = &idx
	return nil
}
