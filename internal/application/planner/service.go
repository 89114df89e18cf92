// Package planner implements the generation orchestrator: the slot
// chain that binds retrieval, ranking, generation, and the fallback
// catalog into complete weekly plans.
package planner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/hubertdeng123/meal-planner-sub000/internal/application/history"
	"github.com/hubertdeng123/meal-planner-sub000/internal/application/search"
	"github.com/hubertdeng123/meal-planner-sub000/internal/domain/mealplan"
	"github.com/hubertdeng123/meal-planner-sub000/internal/domain/recipe"
	"github.com/hubertdeng123/meal-planner-sub000/internal/infrastructure/monitoring"
	"github.com/hubertdeng123/meal-planner-sub000/internal/ports/inbound"
	"github.com/hubertdeng123/meal-planner-sub000/internal/ports/outbound"
)

// Service orchestrates plan generation. It implements
// inbound.PlannerService.
type Service struct {
	retrievals []RetrievalStrategy
	generator  GenerationStrategy
	catalog    *FallbackCatalog
	summarizer *history.Summarizer
	store      *search.SimilarityStore
	plans      outbound.MealPlanRepository
	respCache  *ResponseCache
	metrics    *monitoring.Metrics
	validate   *validator.Validate
	slotDelay  time.Duration
	logger     *zap.Logger
}

// NewService wires the orchestrator.
func NewService(
	retrievals []RetrievalStrategy,
	generator GenerationStrategy,
	catalog *FallbackCatalog,
	summarizer *history.Summarizer,
	store *search.SimilarityStore,
	plans outbound.MealPlanRepository,
	respCache *ResponseCache,
	metrics *monitoring.Metrics,
	slotDelay time.Duration,
	logger *zap.Logger,
) *Service {
	return &Service{
		retrievals: retrievals,
		generator:  generator,
		catalog:    catalog,
		summarizer: summarizer,
		store:      store,
		plans:      plans,
		respCache:  respCache,
		metrics:    metrics,
		validate:   validator.New(),
		slotDelay:  slotDelay,
		logger:     logger.Named("planner"),
	}
}

var _ inbound.PlannerService = (*Service)(nil)

// GenerateWeeklyPlan fills every requested slot sequentially,
// threading the already-suggested name set through the whole plan.
// Individual slot failures degrade to the fallback catalog; only a
// failure to persist the finished plan aborts.
func (s *Service) GenerateWeeklyPlan(ctx context.Context, req inbound.WeeklyPlanRequest, sink inbound.EventSink) (*mealplan.WeeklyPlan, error) {
	if sink == nil {
		sink = inbound.NopSink
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid plan request: %w", err)
	}
	if req.Servings <= 0 {
		req.Servings = 2
	}

	log := s.logger.With(zap.String("user_id", req.UserID.String()))
	log.Info("generating weekly plan", zap.Int("slots", len(req.Slots)))
	sink.Emit(inbound.ProgressEvent{Type: inbound.ProgressStatus, Message: "analyzing your preferences"})

	profile := s.summarizer.Summarize(ctx, req.UserID)

	plan := mealplan.NewWeeklyPlan(req.UserID, req.StartDate)
	suggested := mealplan.NewNameSet()

	// The limiter enforces the fixed pause between consecutive slot
	// requests; the first Wait returns immediately.
	limiter := rate.NewLimiter(rate.Every(s.slotDelay), 1)

	for i, spec := range req.Slots {
		if err := limiter.Wait(ctx); err != nil {
			s.metrics.PlansTotal.WithLabelValues("cancelled").Inc()
			return nil, err
		}

		mealType, err := mealplan.ParseMealType(spec.MealType)
		if err != nil {
			return nil, fmt.Errorf("slot %d: %w", i, err)
		}
		slot := slotContext{date: spec.Date, mealType: mealType, servings: req.Servings, count: mealplan.SuggestionsPerSlot}

		sink.Emit(inbound.ProgressEvent{
			Type:      inbound.ProgressStatus,
			SlotIndex: i,
			MealType:  string(mealType),
			Message:   fmt.Sprintf("planning %s for %s", mealType, spec.Date.Format("Monday")),
		})

		filled := s.fillSlot(ctx, slot, i, profile, req.Preferences, suggested, sink)
		for _, sug := range filled.Suggestions {
			suggested.Add(sug.Recipe.Name)
		}
		plan.Slots = append(plan.Slots, *filled)

		sink.Emit(inbound.ProgressEvent{Type: inbound.ProgressSlotComplete, SlotIndex: i, MealType: string(mealType), Slot: filled})

		if ctx.Err() != nil {
			s.metrics.PlansTotal.WithLabelValues("cancelled").Inc()
			return nil, ctx.Err()
		}
	}

	if err := s.plans.Save(ctx, plan); err != nil {
		log.Error("plan persistence failed", zap.Error(err))
		s.metrics.PlansTotal.WithLabelValues("persistence_error").Inc()
		sink.Emit(inbound.ProgressEvent{Type: inbound.ProgressError, Error: "could not save the plan"})
		if !errors.Is(err, mealplan.ErrPlanPersistence) {
			err = fmt.Errorf("%w: %v", mealplan.ErrPlanPersistence, err)
		}
		return nil, err
	}

	s.metrics.PlansTotal.WithLabelValues("ok").Inc()
	sink.Emit(inbound.ProgressEvent{Type: inbound.ProgressPlanComplete, PlanID: plan.ID.String()})
	log.Info("weekly plan complete", zap.String("plan_id", plan.ID.String()))
	return plan, nil
}

// GenerateSlot runs the same chain for a single slot with the avoid
// list supplied by the caller. Nothing is persisted; the caller owns
// the plan this slot belongs to.
func (s *Service) GenerateSlot(ctx context.Context, req inbound.SlotRequest, sink inbound.EventSink) (*mealplan.MealSlot, error) {
	if sink == nil {
		sink = inbound.NopSink
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid slot request: %w", err)
	}
	if req.Servings <= 0 {
		req.Servings = 2
	}

	mealType, err := mealplan.ParseMealType(req.MealType)
	if err != nil {
		return nil, err
	}

	profile := s.summarizer.Summarize(ctx, req.UserID)
	avoid := mealplan.NewNameSet(req.AvoidNames...)
	slot := slotContext{date: req.Date, mealType: mealType, servings: req.Servings, count: mealplan.SuggestionsPerSlot}

	filled := s.fillSlot(ctx, slot, 0, profile, req.Preferences, avoid, sink)
	sink.Emit(inbound.ProgressEvent{Type: inbound.ProgressSlotComplete, MealType: string(mealType), Slot: filled})
	return filled, nil
}

// fillSlot runs the chain: cache, similarity, personalized,
// popularity, generation, catalog padding. It always returns a slot
// with exactly the requested number of suggestions.
func (s *Service) fillSlot(ctx context.Context, slot slotContext, slotIndex int, profile *history.PreferenceProfile, prefs inbound.PreferenceSettings, avoid *mealplan.NameSet, sink inbound.EventSink) *mealplan.MealSlot {
	started := time.Now()
	defer func() {
		s.metrics.SlotDuration.Observe(time.Since(started).Seconds())
	}()

	result := &mealplan.MealSlot{Date: slot.date, MealType: slot.mealType}

	cacheable := s.respCache.Eligible(prefs)
	cacheKey := ""
	if cacheable {
		cacheKey = s.respCache.Key(slot.mealType, slot.servings, prefs)
		if cached := s.respCache.Get(ctx, cacheKey); cached != nil {
			if suggestions, ok := usableCached(cached, slot.count, avoid); ok {
				s.metrics.ResponseCacheHits.Inc()
				s.emitSuggestions(sink, slotIndex, slot, suggestions)
				result.Suggestions = suggestions
				s.metrics.SlotsTotal.WithLabelValues("cached").Inc()
				return result
			}
		}
		s.metrics.ResponseCacheMisses.Inc()
	}

	// Names taken within this slot, on top of the plan-wide set.
	taken := mealplan.NewNameSet(avoid.Names()...)
	var suggestions []mealplan.Suggestion
	storeDown := false

	for _, strat := range s.retrievals {
		if len(suggestions) >= slot.count {
			break
		}
		candidates, err := strat.Retrieve(ctx, slot, profile, prefs, taken, slot.count-len(suggestions))
		if err != nil {
			if errors.Is(err, outbound.ErrStoreUnavailable) {
				s.logger.Warn("store unavailable, skipping retrieval paths",
					zap.String("slot", slot.String()), zap.Error(err))
				storeDown = true
				break
			}
			s.logger.Warn("retrieval path failed",
				zap.String("path", strat.Name()), zap.String("slot", slot.String()), zap.Error(err))
			continue
		}
		for _, c := range candidates {
			if len(suggestions) >= slot.count {
				break
			}
			if !taken.Add(c.Recipe.Name) {
				continue
			}
			suggestions = append(suggestions, mealplan.Suggestion{
				Recipe: c.Recipe,
				Origin: mealplan.Origin(c.Origin),
				Score:  c.FinalScore,
			})
		}
	}
	fromRetrieval := len(suggestions)

	if len(suggestions) < slot.count {
		generated := s.generateForSlot(ctx, slot, profile, prefs, taken, slotIndex, sink)
		for _, r := range generated {
			if len(suggestions) >= slot.count {
				break
			}
			if !taken.Add(r.Name) {
				continue
			}
			suggestions = append(suggestions, mealplan.Suggestion{
				Recipe: r,
				Origin: mealplan.OriginGenerated,
				Score:  search.KeywordSimilarity,
			})
		}
	}

	if missing := slot.count - len(suggestions); missing > 0 {
		s.metrics.FallbackPadding.Add(float64(missing))
		for _, r := range s.catalog.Pad(slot.mealType, slotIndex+1, missing, taken) {
			taken.Add(r.Name)
			suggestions = append(suggestions, mealplan.Suggestion{
				Recipe: r,
				Origin: mealplan.OriginFallback,
				Score:  0,
			})
		}
	}

	if len(suggestions) > slot.count {
		suggestions = suggestions[:slot.count]
	}
	result.Suggestions = suggestions
	s.emitSuggestions(sink, slotIndex, slot, suggestions)

	switch {
	case storeDown:
		s.metrics.SlotsTotal.WithLabelValues("store_unavailable").Inc()
	case fromRetrieval == slot.count:
		s.metrics.SlotsTotal.WithLabelValues("retrieval").Inc()
	case fromRetrieval > 0:
		s.metrics.SlotsTotal.WithLabelValues("mixed").Inc()
	default:
		s.metrics.SlotsTotal.WithLabelValues("generated").Inc()
	}

	if cacheable && len(suggestions) == slot.count {
		s.respCache.Put(ctx, cacheKey, suggestions)
	}
	return result
}

// generateForSlot calls the generation strategy, reporting reasoning
// progress, and ingests what comes back into the store.
func (s *Service) generateForSlot(ctx context.Context, slot slotContext, profile *history.PreferenceProfile, prefs inbound.PreferenceSettings, taken *mealplan.NameSet, slotIndex int, sink inbound.EventSink) []recipe.Recipe {
	onReason := func(delta string, start, stop bool) {
		switch {
		case start:
			sink.Emit(inbound.ProgressEvent{Type: inbound.ProgressReasoningStart, SlotIndex: slotIndex})
		case stop:
			sink.Emit(inbound.ProgressEvent{Type: inbound.ProgressReasoningStop, SlotIndex: slotIndex})
		default:
			sink.Emit(inbound.ProgressEvent{Type: inbound.ProgressReasoningDelta, SlotIndex: slotIndex, Text: delta})
		}
	}

	generated, err := s.generator.Generate(ctx, slot, profile, prefs, taken.Names(), onReason)
	if err != nil {
		status := "error"
		if errors.Is(err, ErrParse) {
			status = "parse_failed"
		}
		s.metrics.GenerationRequests.WithLabelValues(status).Inc()
		s.logger.Warn("generation failed, padding from catalog",
			zap.String("slot", slot.String()), zap.Error(err))
		sink.Emit(inbound.ProgressEvent{
			Type:      inbound.ProgressStatus,
			SlotIndex: slotIndex,
			Message:   "generation unavailable, using backup recipes",
		})
		return nil
	}
	s.metrics.GenerationRequests.WithLabelValues("ok").Inc()

	// Ingest generated recipes so future similarity searches can find
	// them. Failures only cost future retrievability.
	for i := range generated {
		r := generated[i]
		if err := s.store.Add(ctx, &r); err != nil {
			s.logger.Debug("could not ingest generated recipe",
				zap.String("name", r.Name), zap.Error(err))
		} else {
			generated[i] = r
		}
	}
	return generated
}

func (s *Service) emitSuggestions(sink inbound.EventSink, slotIndex int, slot slotContext, suggestions []mealplan.Suggestion) {
	for i := range suggestions {
		sink.Emit(inbound.ProgressEvent{
			Type:       inbound.ProgressSuggestion,
			SlotIndex:  slotIndex,
			MealType:   string(slot.mealType),
			Suggestion: &suggestions[i],
		})
	}
}

// usableCached checks a cached slot against the plan's avoid set.
// Any name collision invalidates the whole entry, since replacing one
// suggestion would break the cached ranking.
func usableCached(cached []mealplan.Suggestion, count int, avoid *mealplan.NameSet) ([]mealplan.Suggestion, bool) {
	if len(cached) != count {
		return nil, false
	}
	for _, sug := range cached {
		if avoid.Contains(sug.Recipe.Name) {
			return nil, false
		}
	}
	return cached, true
}
