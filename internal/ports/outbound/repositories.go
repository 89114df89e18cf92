// Package outbound defines the interfaces the application layer needs
// from infrastructure: persistence, caching, encoding, and generation.
package outbound

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/hubertdeng123/meal-planner-sub000/internal/domain/mealplan"
	"github.com/hubertdeng123/meal-planner-sub000/internal/domain/recipe"
)

// ErrStoreUnavailable wraps failures of the backing store itself
// (connection refused, timeout). It is the only retrieval error that
// callers treat as fatal; everything else degrades to fallbacks.
var ErrStoreUnavailable = errors.New("recipe store unavailable")

// SearchFilters are scalar constraints pushed down into the store
// query so vector search and keyword search scan fewer rows.
type SearchFilters struct {
	Cuisine            string
	ExcludeCuisines    []string
	MaxTotalTime       int
	MaxCalories        int
	RequiredTags       []string
	ExcludeIDs         []uuid.UUID
	RequireIngredients []string
	AvoidIngredients   []string
}

// VectorMatch couples a recipe with its cosine distance to the query
// vector. Distance, not similarity; callers convert.
type VectorMatch struct {
	Recipe   recipe.Recipe
	Distance float64
}

// RecipeRepository is the persistence port for recipes.
type RecipeRepository interface {
	SearchByVector(ctx context.Context, vec []float32, filters SearchFilters, limit int) ([]VectorMatch, error)
	SearchKeyword(ctx context.Context, query string, filters SearchFilters, limit int) ([]recipe.Recipe, error)
	FindPopular(ctx context.Context, filters SearchFilters, limit int) ([]recipe.Recipe, error)
	FindByID(ctx context.Context, id uuid.UUID) (*recipe.Recipe, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]recipe.Recipe, error)
	FindMissingEmbeddings(ctx context.Context, limit int) ([]recipe.Recipe, error)
	Create(ctx context.Context, r *recipe.Recipe) error
	UpdateEmbedding(ctx context.Context, id uuid.UUID, vec []float32) error
}

// Feedback is one rating a user gave a recipe.
type Feedback struct {
	UserID    uuid.UUID
	RecipeID  uuid.UUID
	Rating    int
	CreatedAt time.Time
}

// FeedbackRepository reads rating history for preference summaries.
type FeedbackRepository interface {
	ListSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]Feedback, error)
	Create(ctx context.Context, fb *Feedback) error
}

// PlanItemRef is a recipe that appeared in a recent plan, used to
// penalize repeats.
type PlanItemRef struct {
	RecipeID uuid.UUID
	Date     time.Time
}

// MealPlanRepository persists completed plans.
type MealPlanRepository interface {
	Save(ctx context.Context, plan *mealplan.WeeklyPlan) error
	FindByID(ctx context.Context, id uuid.UUID) (*mealplan.WeeklyPlan, error)
	ListItemsSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]PlanItemRef, error)
}

// CacheRepository is a TTL key/value cache.
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// ErrCacheMiss is returned by CacheRepository.Get for absent keys.
var ErrCacheMiss = errors.New("cache miss")
