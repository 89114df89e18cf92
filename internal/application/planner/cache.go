package planner

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hubertdeng123/meal-planner-sub000/internal/domain/mealplan"
	"github.com/hubertdeng123/meal-planner-sub000/internal/ports/inbound"
	"github.com/hubertdeng123/meal-planner-sub000/internal/ports/outbound"
)

// ResponseCache short-circuits repeat identical slot requests. Keys
// hash the meal type, servings, and sorted filter lists; requests
// carrying many explicit ingredient filters are not cached since they
// rarely repeat.
type ResponseCache struct {
	cache                outbound.CacheRepository
	ttl                  time.Duration
	maxIngredientFilters int
	logger               *zap.Logger
}

// NewResponseCache builds the cache wrapper. A nil repository
// disables caching entirely.
func NewResponseCache(cache outbound.CacheRepository, ttl time.Duration, maxIngredientFilters int, logger *zap.Logger) *ResponseCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &ResponseCache{
		cache:                cache,
		ttl:                  ttl,
		maxIngredientFilters: maxIngredientFilters,
		logger:               logger.Named("response-cache"),
	}
}

// Eligible reports whether a request is worth caching.
func (c *ResponseCache) Eligible(prefs inbound.PreferenceSettings) bool {
	if c.cache == nil {
		return false
	}
	filters := len(prefs.Ingredients.Required) + len(prefs.Ingredients.Avoid)
	return filters <= c.maxIngredientFilters
}

// Key builds the normalized cache key for a slot request.
func (c *ResponseCache) Key(mealType mealplan.MealType, servings int, prefs inbound.PreferenceSettings) string {
	parts := []string{
		"slot",
		string(mealType),
		fmt.Sprintf("servings=%d", servings),
		"diets=" + sortedJoin(prefs.Dietary.Diets),
		"cuisines=" + sortedJoin(prefs.Cuisines.Preferred),
		"nocuisines=" + sortedJoin(prefs.Cuisines.Forbidden),
		"require=" + sortedJoin(prefs.Ingredients.Required),
		"avoid=" + sortedJoin(prefs.Ingredients.Avoid),
		"favorites=" + sortedJoin(prefs.Ingredients.Favorites),
		fmt.Sprintf("maxtime=%d", prefs.Schedule.MaxTotalTimeMinutes),
		"difficulty=" + strings.ToLower(prefs.Schedule.Difficulty),
		fmt.Sprintf("maxcal=%d", prefs.Nutrition.MaxCalories),
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return "mealplanner:slot:" + hex.EncodeToString(sum[:])
}

// Get returns cached suggestions, or nil on miss.
func (c *ResponseCache) Get(ctx context.Context, key string) []mealplan.Suggestion {
	if c.cache == nil {
		return nil
	}
	data, err := c.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, outbound.ErrCacheMiss) {
			c.logger.Warn("cache read failed", zap.Error(err))
		}
		return nil
	}
	var suggestions []mealplan.Suggestion
	if err := json.Unmarshal(data, &suggestions); err != nil {
		c.logger.Warn("discarding undecodable cache entry", zap.Error(err))
		return nil
	}
	return suggestions
}

// Put stores a finished slot's suggestions. Failures are logged and
// swallowed.
func (c *ResponseCache) Put(ctx context.Context, key string, suggestions []mealplan.Suggestion) {
	if c.cache == nil {
		return
	}
	data, err := json.Marshal(suggestions)
	if err != nil {
		c.logger.Warn("cache encode failed", zap.Error(err))
		return
	}
	if err := c.cache.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("cache write failed", zap.Error(err))
	}
}

func sortedJoin(values []string) string {
	normalized := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.Join(strings.Fields(strings.ToLower(v)), " ")
		if v != "" {
			normalized = append(normalized, v)
		}
	}
	sort.Strings(normalized)
	return strings.Join(normalized, ",")
}
