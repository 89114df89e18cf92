// Package history distills a user's ratings and past plans into a
// preference profile used by the ranker.
package history

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hubertdeng123/meal-planner-sub000/internal/ports/outbound"
)

// LikedThreshold is the minimum rating that counts toward cuisine
// affinity.
const LikedThreshold = 4

// Summarizer reads feedback and plan history.
type Summarizer struct {
	feedback outbound.FeedbackRepository
	plans    outbound.MealPlanRepository
	recipes  outbound.RecipeRepository
	window   time.Duration
	logger   *zap.Logger
}

// NewSummarizer builds a summarizer looking back over the given
// window.
func NewSummarizer(feedback outbound.FeedbackRepository, plans outbound.MealPlanRepository, recipes outbound.RecipeRepository, window time.Duration, logger *zap.Logger) *Summarizer {
	if window <= 0 {
		window = 30 * 24 * time.Hour
	}
	return &Summarizer{
		feedback: feedback,
		plans:    plans,
		recipes:  recipes,
		window:   window,
		logger:   logger.Named("history"),
	}
}

// Summarize builds a profile from the user's recent activity. History
// read failures degrade to the default profile; a user with no
// history is not an error.
func (s *Summarizer) Summarize(ctx context.Context, userID uuid.UUID) *PreferenceProfile {
	profile := NewDefaultProfile()
	since := time.Now().Add(-s.window)

	ratings, err := s.feedback.ListSince(ctx, userID, since)
	if err != nil {
		s.logger.Warn("feedback history unavailable, using default profile",
			zap.String("user_id", userID.String()), zap.Error(err))
	} else {
		s.applyRatings(ctx, profile, ratings)
	}

	items, err := s.plans.ListItemsSince(ctx, userID, since)
	if err != nil {
		s.logger.Warn("plan history unavailable",
			zap.String("user_id", userID.String()), zap.Error(err))
	} else {
		// Only recipes that appear in more than one plan item count
		// as reused.
		counts := make(map[uuid.UUID]int)
		for _, item := range items {
			counts[item.RecipeID]++
		}
		for id, n := range counts {
			if n > 1 {
				profile.ReusedRecipeIDs[id] = struct{}{}
			}
		}
	}

	return profile
}

func (s *Summarizer) applyRatings(ctx context.Context, profile *PreferenceProfile, ratings []outbound.Feedback) {
	if len(ratings) == 0 {
		return
	}

	ids := make([]uuid.UUID, 0, len(ratings))
	seen := make(map[uuid.UUID]struct{}, len(ratings))
	for _, fb := range ratings {
		if _, ok := seen[fb.RecipeID]; ok {
			continue
		}
		seen[fb.RecipeID] = struct{}{}
		ids = append(ids, fb.RecipeID)
	}

	recipes, err := s.recipes.FindByIDs(ctx, ids)
	if err != nil {
		s.logger.Warn("rated recipes unavailable", zap.Error(err))
		return
	}
	byID := make(map[uuid.UUID]int, len(recipes))
	for i := range recipes {
		byID[recipes[i].ID] = i
	}

	var (
		prepTotal int
		prepCount int
	)
	for _, fb := range ratings {
		idx, ok := byID[fb.RecipeID]
		if !ok {
			continue
		}
		if fb.Rating < LikedThreshold {
			continue
		}
		r := &recipes[idx]

		if r.Cuisine != "" {
			profile.RecordLikedCuisine(r.Cuisine, fb.Rating)
		}
		if r.PrepTimeMinutes > 0 {
			prepTotal += r.PrepTimeMinutes
			prepCount++
		}
	}

	if prepCount > 0 {
		profile.AvgPrepTimeMinutes = float64(prepTotal) / float64(prepCount)
		profile.Complexity = bucketFor(profile.AvgPrepTimeMinutes)
	}
}

// bucketFor maps mean prep time to a complexity bucket. Boundaries
// are inclusive on the low side: 20 minutes is still quick, 45 is
// still moderate.
func bucketFor(avgMinutes float64) Complexity {
	switch {
	case avgMinutes <= 20:
		return ComplexityQuick
	case avgMinutes <= 45:
		return ComplexityModerate
	default:
		return ComplexityRelaxed
	}
}
