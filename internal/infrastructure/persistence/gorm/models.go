package gorm

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"
)

// JSONField serializes arbitrary structures into a json column.
type JSONField[T any] struct {
	Data T
}

// Value implements driver.Valuer.
func (f JSONField[T]) Value() (driver.Value, error) {
	return json.Marshal(f.Data)
}

// Scan implements sql.Scanner.
func (f *JSONField[T]) Scan(value interface{}) error {
	if value == nil {
		var zero T
		f.Data = zero
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported json column type %T", value)
	}
	return json.Unmarshal(raw, &f.Data)
}

// StringSlice stores a []string as json.
type StringSlice []string

func (s StringSlice) Value() (driver.Value, error) {
	return json.Marshal([]string(s))
}

func (s *StringSlice) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported json column type %T", value)
	}
	return json.Unmarshal(raw, (*[]string)(s))
}

// RecipeModel is the recipes table.
type RecipeModel struct {
	ID              string                                   `gorm:"type:char(36);primaryKey"`
	Name            string                                   `gorm:"size:255;not null;index"`
	Description     string                                   `gorm:"type:text"`
	Cuisine         string                                   `gorm:"size:100;index"`
	Ingredients     JSONField[[]IngredientRecord]            `gorm:"type:json"`
	Instructions    StringSlice                              `gorm:"type:json"`
	PrepTimeMinutes int                                      `gorm:"column:prep_time_minutes"`
	CookTimeMinutes int                                      `gorm:"column:cook_time_minutes"`
	TotalTime       int                                      `gorm:"column:total_time_minutes;index"`
	Servings        int
	Tags            StringSlice                              `gorm:"type:json"`
	Nutrition       JSONField[*NutritionRecord]              `gorm:"type:json"`
	Calories        int                                      `gorm:"index"`
	Embedding       pgvector.Vector                          `gorm:"type:vector(768)"`
	HasEmbedding    bool                                     `gorm:"index"`
	AverageRating   float64
	TimesUsed       int
	Source          string                                   `gorm:"size:32;index"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// TableName overrides the default pluralization.
func (RecipeModel) TableName() string { return "recipes" }

// IngredientRecord is the json shape of one ingredient.
type IngredientRecord struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
}

// NutritionRecord is the json shape of nutrition facts.
type NutritionRecord struct {
	Calories int     `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
	Fiber    float64 `json:"fiber,omitempty"`
	Sugar    float64 `json:"sugar,omitempty"`
	Sodium   float64 `json:"sodium,omitempty"`
}

// FeedbackModel is the recipe_feedback table.
type FeedbackModel struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	UserID    string    `gorm:"type:char(36);index:idx_feedback_user_created"`
	RecipeID  string    `gorm:"type:char(36);index"`
	Rating    int       `gorm:"not null"`
	CreatedAt time.Time `gorm:"index:idx_feedback_user_created"`
}

func (FeedbackModel) TableName() string { return "recipe_feedback" }

// MealPlanModel is the meal_plans table.
type MealPlanModel struct {
	ID        string `gorm:"type:char(36);primaryKey"`
	UserID    string `gorm:"type:char(36);index:idx_plans_user_created"`
	StartDate time.Time
	CreatedAt time.Time           `gorm:"index:idx_plans_user_created"`
	Items     []MealPlanItemModel `gorm:"foreignKey:PlanID;constraint:OnDelete:CASCADE"`
}

func (MealPlanModel) TableName() string { return "meal_plans" }

// MealPlanItemModel is one suggestion inside a stored plan.
type MealPlanItemModel struct {
	ID            uint   `gorm:"primaryKey;autoIncrement"`
	PlanID        string `gorm:"type:char(36);index"`
	SlotIndex     int
	Date          time.Time
	MealType      string `gorm:"size:32"`
	RecipeID      string `gorm:"type:char(36);index"`
	RecipeName    string `gorm:"size:255"`
	Origin        string `gorm:"size:32"`
	Score         float64
	Position      int
	Selected      bool
}

func (MealPlanItemModel) TableName() string { return "meal_plan_items" }
