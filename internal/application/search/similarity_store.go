// Package search implements recipe retrieval on top of the vector
// store, with keyword search as a degraded path.
package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/hubertdeng123/meal-planner-sub000/internal/domain/recipe"
	"github.com/hubertdeng123/meal-planner-sub000/internal/ports/outbound"
)

// KeywordSimilarity is the neutral score assigned to keyword results,
// where no real distance exists. It sits above the typical cutoff so
// degraded results still rank, but carries no ordering signal of its
// own.
const KeywordSimilarity = 0.5

// Candidate is a retrieved recipe with its similarity to the query.
// Ranking fills in FinalScore later.
type Candidate struct {
	Recipe     recipe.Recipe
	Similarity float64
	FinalScore float64
	Origin     string
}

// Options tune one search call.
type Options struct {
	// MinSimilarity drops vector matches scoring below it. Zero means
	// use the store default.
	MinSimilarity float64
	Limit         int
	Filters       outbound.SearchFilters
}

// SimilarityStore fronts the recipe repository with embedding based
// retrieval.
type SimilarityStore struct {
	encoder       outbound.EmbeddingEncoder
	repo          outbound.RecipeRepository
	defaultMinSim float64
	defaultLimit  int
	fallbacks     prometheus.Counter
	logger        *zap.Logger
}

// NewSimilarityStore builds the store. fallbacks counts degradations
// to keyword search and may be nil.
func NewSimilarityStore(encoder outbound.EmbeddingEncoder, repo outbound.RecipeRepository, minSimilarity float64, defaultLimit int, fallbacks prometheus.Counter, logger *zap.Logger) *SimilarityStore {
	if defaultLimit <= 0 {
		defaultLimit = 10
	}
	return &SimilarityStore{
		encoder:       encoder,
		repo:          repo,
		defaultMinSim: minSimilarity,
		defaultLimit:  defaultLimit,
		fallbacks:     fallbacks,
		logger:        logger.Named("similarity-store"),
	}
}

// Search retrieves candidates for a free text query. The vector path
// converts cosine distance to similarity (1 - distance, clamped to
// [0,1]) and drops matches below the cutoff. If the encoder is down
// the search degrades to keywords at a neutral similarity; only a
// store failure propagates.
func (s *SimilarityStore) Search(ctx context.Context, query string, opts Options) ([]Candidate, error) {
	minSim := opts.MinSimilarity
	if minSim <= 0 {
		minSim = s.defaultMinSim
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = s.defaultLimit
	}

	vec, err := s.encoder.Encode(ctx, query)
	if err != nil {
		s.logger.Warn("embedding unavailable, falling back to keyword search",
			zap.String("query", query), zap.Error(err))
		s.countFallback()
		return s.keywordSearch(ctx, query, opts.Filters, limit)
	}

	matches, err := s.repo.SearchByVector(ctx, vec, opts.Filters, limit)
	if err != nil {
		if errors.Is(err, outbound.ErrStoreUnavailable) {
			return nil, err
		}
		s.logger.Warn("vector search failed, falling back to keyword search",
			zap.String("query", query), zap.Error(err))
		s.countFallback()
		return s.keywordSearch(ctx, query, opts.Filters, limit)
	}

	candidates := make([]Candidate, 0, len(matches))
	for _, m := range matches {
		sim := clamp01(1 - m.Distance)
		if sim < minSim {
			continue
		}
		candidates = append(candidates, Candidate{Recipe: m.Recipe, Similarity: sim})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Similarity > candidates[j].Similarity
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, nil
}

// keywordSearch assigns every hit the neutral similarity. Exact name
// matches come first, then newest rows; a stable sort preserves the
// repository's ordering for equal keys.
func (s *SimilarityStore) keywordSearch(ctx context.Context, query string, filters outbound.SearchFilters, limit int) ([]Candidate, error) {
	recipes, err := s.repo.SearchKeyword(ctx, query, filters, limit)
	if err != nil {
		if errors.Is(err, outbound.ErrStoreUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: keyword search: %v", outbound.ErrStoreUnavailable, err)
	}

	normalized := normalize(query)
	candidates := make([]Candidate, 0, len(recipes))
	for _, r := range recipes {
		candidates = append(candidates, Candidate{Recipe: r, Similarity: KeywordSimilarity})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		iExact := normalize(candidates[i].Recipe.Name) == normalized
		jExact := normalize(candidates[j].Recipe.Name) == normalized
		if iExact != jExact {
			return iExact
		}
		return candidates[i].Recipe.CreatedAt.After(candidates[j].Recipe.CreatedAt)
	})
	return candidates, nil
}

// Add validates, stores and indexes a new recipe. Embedding failures
// do not block the insert; the backfill worker picks the row up later.
func (s *SimilarityStore) Add(ctx context.Context, r *recipe.Recipe) error {
	if err := r.Validate(); err != nil {
		return err
	}
	if !r.HasEmbedding() {
		vec, err := s.encoder.Encode(ctx, r.EmbeddingText())
		if err != nil {
			s.logger.Warn("storing recipe without embedding",
				zap.String("name", r.Name), zap.Error(err))
		} else {
			r.Embedding = vec
		}
	}
	return s.repo.Create(ctx, r)
}

// BackfillEmbeddings encodes up to limit recipes that have no vector
// yet. Returns how many were updated.
func (s *SimilarityStore) BackfillEmbeddings(ctx context.Context, limit int) (int, error) {
	recipes, err := s.repo.FindMissingEmbeddings(ctx, limit)
	if err != nil {
		return 0, err
	}

	updated := 0
	for i := range recipes {
		vec, err := s.encoder.Encode(ctx, recipes[i].EmbeddingText())
		if err != nil {
			// Encoder is down; the rest of the batch would fail the
			// same way.
			return updated, err
		}
		if err := s.repo.UpdateEmbedding(ctx, recipes[i].ID, vec); err != nil {
			s.logger.Warn("failed to store embedding",
				zap.String("id", recipes[i].ID.String()), zap.Error(err))
			continue
		}
		updated++
	}
	return updated, nil
}

func (s *SimilarityStore) countFallback() {
	if s.fallbacks != nil {
		s.fallbacks.Inc()
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
