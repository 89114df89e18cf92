// Package inbound defines the service interfaces exposed to transport
// layers, plus the request and event types they exchange.
package inbound

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/hubertdeng123/meal-planner-sub000/internal/domain/mealplan"
)

// DietaryRules lists diets every suggestion must satisfy.
type DietaryRules struct {
	Diets []string `json:"diets" validate:"dive,max=64"`
}

// IngredientRules capture ingredient level preferences.
type IngredientRules struct {
	Favorites []string `json:"favorites" validate:"dive,max=64"`
	Required  []string `json:"required" validate:"dive,max=64"`
	Avoid     []string `json:"avoid" validate:"dive,max=64"`
}

// CuisineRules capture cuisine level preferences.
type CuisineRules struct {
	Preferred []string `json:"preferred" validate:"dive,max=64"`
	Forbidden []string `json:"forbidden" validate:"dive,max=64"`
}

// ScheduleRules bound how much effort the user can spend.
type ScheduleRules struct {
	MaxTotalTimeMinutes int    `json:"max_total_time_minutes" validate:"min=0,max=600"`
	Difficulty          string `json:"difficulty" validate:"omitempty,oneof=easy medium hard"`
}

// NutritionRules bound nutrition per serving.
type NutritionRules struct {
	MaxCalories int `json:"max_calories" validate:"min=0,max=10000"`
}

// PreferenceSettings is the structured preference record attached to
// every plan request.
type PreferenceSettings struct {
	Dietary     DietaryRules    `json:"dietary"`
	Ingredients IngredientRules `json:"ingredients"`
	Cuisines    CuisineRules    `json:"cuisines"`
	Schedule    ScheduleRules   `json:"schedule"`
	Nutrition   NutritionRules  `json:"nutrition"`
}

// MealSlotSpec names one slot the caller wants filled.
type MealSlotSpec struct {
	Date     time.Time `json:"date" validate:"required"`
	MealType string    `json:"meal_type" validate:"required,oneof=breakfast lunch dinner snack"`
}

// WeeklyPlanRequest asks for a full week of suggestions.
type WeeklyPlanRequest struct {
	UserID      uuid.UUID          `json:"user_id" validate:"required"`
	StartDate   time.Time          `json:"start_date" validate:"required"`
	Slots       []MealSlotSpec     `json:"slots" validate:"required,min=1,max=28,dive"`
	Servings    int                `json:"servings" validate:"min=1,max=12"`
	Preferences PreferenceSettings `json:"preferences"`
}

// SlotRequest asks for suggestions for a single slot, typically a
// regeneration. AvoidNames carries the names already on the plan so
// the new suggestions stay distinct.
type SlotRequest struct {
	UserID      uuid.UUID          `json:"user_id" validate:"required"`
	Date        time.Time          `json:"date" validate:"required"`
	MealType    string             `json:"meal_type" validate:"required,oneof=breakfast lunch dinner snack"`
	Servings    int                `json:"servings" validate:"min=1,max=12"`
	Preferences PreferenceSettings `json:"preferences"`
	AvoidNames  []string           `json:"avoid_names" validate:"dive,max=200"`
}

// PlannerService is the primary inbound port.
type PlannerService interface {
	GenerateWeeklyPlan(ctx context.Context, req WeeklyPlanRequest, sink EventSink) (*mealplan.WeeklyPlan, error)
	GenerateSlot(ctx context.Context, req SlotRequest, sink EventSink) (*mealplan.MealSlot, error)
}
