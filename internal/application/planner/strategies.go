package planner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hubertdeng123/meal-planner-sub000/internal/application/history"
	"github.com/hubertdeng123/meal-planner-sub000/internal/application/ranking"
	"github.com/hubertdeng123/meal-planner-sub000/internal/application/search"
	"github.com/hubertdeng123/meal-planner-sub000/internal/domain/mealplan"
	"github.com/hubertdeng123/meal-planner-sub000/internal/domain/recipe"
	"github.com/hubertdeng123/meal-planner-sub000/internal/ports/inbound"
	"github.com/hubertdeng123/meal-planner-sub000/internal/ports/outbound"
)

// slotContext carries what every strategy needs to know about the
// slot being filled.
type slotContext struct {
	date     time.Time
	mealType mealplan.MealType
	servings int
	count    int
}

// RetrievalStrategy is one supplementation path in the slot chain.
// Implementations never return name collisions with avoid.
type RetrievalStrategy interface {
	Name() string
	Retrieve(ctx context.Context, slot slotContext, profile *history.PreferenceProfile, prefs inbound.PreferenceSettings, avoid *mealplan.NameSet, limit int) ([]search.Candidate, error)
}

// GenerationStrategy synthesizes new recipes when retrieval runs dry.
type GenerationStrategy interface {
	Generate(ctx context.Context, slot slotContext, profile *history.PreferenceProfile, prefs inbound.PreferenceSettings, avoid []string, onReason ReasoningFunc) ([]recipe.Recipe, error)
}

// filtersFrom translates preference settings into store filters.
func filtersFrom(prefs inbound.PreferenceSettings) outbound.SearchFilters {
	f := outbound.SearchFilters{
		ExcludeCuisines:    prefs.Cuisines.Forbidden,
		MaxTotalTime:       prefs.Schedule.MaxTotalTimeMinutes,
		MaxCalories:        prefs.Nutrition.MaxCalories,
		RequiredTags:       prefs.Dietary.Diets,
		RequireIngredients: prefs.Ingredients.Required,
		AvoidIngredients:   prefs.Ingredients.Avoid,
	}
	return f
}

func dropCollisions(candidates []search.Candidate, avoid *mealplan.NameSet) []search.Candidate {
	out := candidates[:0]
	for _, c := range candidates {
		if avoid.Contains(c.Recipe.Name) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// similarityRetrieval is the primary path: vector search ranked by
// the personalization boosts.
type similarityRetrieval struct {
	store  *search.SimilarityStore
	ranker *ranking.Ranker
	logger *zap.Logger
}

// NewSimilarityRetrieval builds the primary retrieval path.
func NewSimilarityRetrieval(store *search.SimilarityStore, ranker *ranking.Ranker, logger *zap.Logger) RetrievalStrategy {
	return &similarityRetrieval{store: store, ranker: ranker, logger: logger.Named("similarity-path")}
}

func (s *similarityRetrieval) Name() string { return "similarity" }

func (s *similarityRetrieval) Retrieve(ctx context.Context, slot slotContext, profile *history.PreferenceProfile, prefs inbound.PreferenceSettings, avoid *mealplan.NameSet, limit int) ([]search.Candidate, error) {
	query := buildSearchQuery(slot, profile, prefs)
	candidates, err := s.store.Search(ctx, query, search.Options{
		Limit:   limit * 3,
		Filters: filtersFrom(prefs),
	})
	if err != nil {
		return nil, err
	}
	ranked := s.ranker.Rank(candidates, profile, prefs)
	ranked = dropCollisions(ranked, avoid)
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	for i := range ranked {
		ranked[i].Origin = string(mealplan.OriginSimilarity)
	}
	return ranked, nil
}

// buildSearchQuery turns the slot and preferences into the free text
// the embedding encoder sees.
func buildSearchQuery(slot slotContext, profile *history.PreferenceProfile, prefs inbound.PreferenceSettings) string {
	parts := []string{string(slot.mealType), "recipe"}
	if len(prefs.Cuisines.Preferred) > 0 {
		parts = append(parts, prefs.Cuisines.Preferred...)
	} else if profile != nil {
		parts = append(parts, profile.TopCuisines(2)...)
	}
	parts = append(parts, prefs.Dietary.Diets...)
	parts = append(parts, prefs.Ingredients.Favorites...)
	if profile != nil && profile.Complexity == history.ComplexityQuick {
		parts = append(parts, "quick", "easy")
	}
	return strings.Join(parts, " ")
}

// personalizedRetrieval supplements with well rated recipes from the
// user's favorite cuisines, skipping recently used ids.
type personalizedRetrieval struct {
	repo   outbound.RecipeRepository
	ranker *ranking.Ranker
	logger *zap.Logger
}

// NewPersonalizedRetrieval builds the profile driven path.
func NewPersonalizedRetrieval(repo outbound.RecipeRepository, ranker *ranking.Ranker, logger *zap.Logger) RetrievalStrategy {
	return &personalizedRetrieval{repo: repo, ranker: ranker, logger: logger.Named("personalized-path")}
}

func (s *personalizedRetrieval) Name() string { return "personalized" }

func (s *personalizedRetrieval) Retrieve(ctx context.Context, slot slotContext, profile *history.PreferenceProfile, prefs inbound.PreferenceSettings, avoid *mealplan.NameSet, limit int) ([]search.Candidate, error) {
	if profile == nil || len(profile.CuisineAffinity) == 0 {
		return nil, nil
	}

	filters := filtersFrom(prefs)
	for id := range profile.ReusedRecipeIDs {
		filters.ExcludeIDs = append(filters.ExcludeIDs, id)
	}

	var candidates []search.Candidate
	for _, cuisine := range profile.TopCuisines(3) {
		f := filters
		f.Cuisine = cuisine
		recipes, err := s.repo.FindPopular(ctx, f, limit)
		if err != nil {
			return nil, err
		}
		for _, r := range recipes {
			candidates = append(candidates, search.Candidate{
				Recipe:     r,
				Similarity: search.KeywordSimilarity,
			})
		}
	}

	ranked := s.ranker.Rank(candidates, profile, prefs)
	ranked = dropCollisions(ranked, avoid)
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	for i := range ranked {
		ranked[i].Origin = string(mealplan.OriginPersonalized)
	}
	return ranked, nil
}

// popularityRetrieval is the last retrieval resort: globally popular
// recipes regardless of cuisine.
type popularityRetrieval struct {
	repo   outbound.RecipeRepository
	logger *zap.Logger
}

// NewPopularityRetrieval builds the popularity path.
func NewPopularityRetrieval(repo outbound.RecipeRepository, logger *zap.Logger) RetrievalStrategy {
	return &popularityRetrieval{repo: repo, logger: logger.Named("popularity-path")}
}

func (s *popularityRetrieval) Name() string { return "popularity" }

func (s *popularityRetrieval) Retrieve(ctx context.Context, slot slotContext, profile *history.PreferenceProfile, prefs inbound.PreferenceSettings, avoid *mealplan.NameSet, limit int) ([]search.Candidate, error) {
	recipes, err := s.repo.FindPopular(ctx, filtersFrom(prefs), limit*2)
	if err != nil {
		return nil, err
	}
	candidates := make([]search.Candidate, 0, len(recipes))
	for _, r := range recipes {
		if avoid.Contains(r.Name) {
			continue
		}
		candidates = append(candidates, search.Candidate{
			Recipe:     r,
			Similarity: search.KeywordSimilarity,
			FinalScore: search.KeywordSimilarity,
			Origin:     string(mealplan.OriginPopular),
		})
		if len(candidates) == limit {
			break
		}
	}
	return candidates, nil
}

// llmGeneration asks the generation backend for fresh recipes and
// parses the streamed output.
type llmGeneration struct {
	svc         outbound.GenerationService
	parser      *Parser
	temperature float64
	logger      *zap.Logger
}

// NewLLMGeneration builds the generation strategy.
func NewLLMGeneration(svc outbound.GenerationService, parser *Parser, temperature float64, logger *zap.Logger) GenerationStrategy {
	return &llmGeneration{svc: svc, parser: parser, temperature: temperature, logger: logger.Named("generation-path")}
}

func (g *llmGeneration) Generate(ctx context.Context, slot slotContext, profile *history.PreferenceProfile, prefs inbound.PreferenceSettings, avoid []string, onReason ReasoningFunc) ([]recipe.Recipe, error) {
	req := outbound.GenerationRequest{
		SystemPrompt: buildSystemPrompt(),
		UserPrompt:   buildUserPrompt(slot, profile, prefs, avoid),
		Temperature:  g.temperature,
	}

	events, err := g.svc.Generate(ctx, req)
	if err != nil {
		return nil, err
	}

	collector := NewCollector(onReason)
	for ev := range events {
		collector.Consume(ev)
	}
	if collector.State() == StateError {
		return nil, collector.Err()
	}

	parsed, err := g.parser.ParseRecipes(collector.Content())
	if err != nil {
		return nil, err
	}

	recipes := make([]recipe.Recipe, 0, len(parsed))
	for i := range parsed {
		recipes = append(recipes, toRecipe(&parsed[i], slot.servings))
	}
	g.logger.Debug("generation produced recipes", zap.Int("count", len(recipes)))
	return recipes, nil
}

// toRecipe converts a parsed item into a domain recipe.
func toRecipe(p *ParsedRecipe, defaultServings int) recipe.Recipe {
	r := recipe.New(p.Name, recipe.SourceGenerated)
	r.Description = p.Description
	r.Cuisine = p.Cuisine
	r.PrepTimeMinutes = int(p.PrepTimeMinutes)
	r.CookTimeMinutes = int(p.CookTimeMinutes)
	r.Servings = int(p.Servings)
	if r.Servings <= 0 {
		r.Servings = defaultServings
	}
	r.Tags = []string(p.Tags)
	for _, ing := range p.Ingredients {
		r.Ingredients = append(r.Ingredients, recipe.Ingredient{
			Name:     ing.Name,
			Quantity: float64(ing.Quantity),
			Unit:     ing.Unit,
		})
	}
	r.Instructions = []string(p.Instructions)
	if p.Nutrition != nil {
		r.Nutrition = &recipe.NutritionInfo{
			Calories: int(p.Nutrition.Calories),
			Protein:  float64(p.Nutrition.Protein),
			Carbs:    float64(p.Nutrition.Carbs),
			Fat:      float64(p.Nutrition.Fat),
		}
	}
	return *r
}

func (s slotContext) String() string {
	return fmt.Sprintf("%s %s", s.date.Format("2006-01-02"), s.mealType)
}
