// Package container wires the application together with Uber FX.
package container

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/hubertdeng123/meal-planner-sub000/internal/application/history"
	"github.com/hubertdeng123/meal-planner-sub000/internal/application/planner"
	"github.com/hubertdeng123/meal-planner-sub000/internal/application/ranking"
	"github.com/hubertdeng123/meal-planner-sub000/internal/application/search"
	"github.com/hubertdeng123/meal-planner-sub000/internal/infrastructure/ai/deepseek"
	"github.com/hubertdeng123/meal-planner-sub000/internal/infrastructure/ai/embedding"
	"github.com/hubertdeng123/meal-planner-sub000/internal/infrastructure/cache"
	"github.com/hubertdeng123/meal-planner-sub000/internal/infrastructure/config"
	"github.com/hubertdeng123/meal-planner-sub000/internal/infrastructure/http/server"
	"github.com/hubertdeng123/meal-planner-sub000/internal/infrastructure/monitoring"
	gormpersist "github.com/hubertdeng123/meal-planner-sub000/internal/infrastructure/persistence/gorm"
	"github.com/hubertdeng123/meal-planner-sub000/internal/ports/inbound"
	"github.com/hubertdeng123/meal-planner-sub000/internal/ports/outbound"
	"github.com/hubertdeng123/meal-planner-sub000/pkg/logger"
)

// Module is the complete application dependency graph.
var Module = fx.Options(
	ConfigModule,
	LoggerModule,
	DatabaseModule,
	CacheModule,
	RepositoryModule,
	AIModule,
	ApplicationModule,
	HTTPModule,
	fx.Invoke(RegisterLifecycleHooks),
)

// ConfigModule provides configuration.
var ConfigModule = fx.Options(
	fx.Provide(config.Load),
)

// LoggerModule provides the zap logger.
var LoggerModule = fx.Options(
	fx.Provide(func(cfg *config.Config) (*zap.Logger, error) {
		return logger.New(logger.Config{
			Level:       cfg.Log.Level,
			Format:      cfg.Log.Format,
			Development: cfg.Log.Development,
		})
	}),
)

// DatabaseModule provides the GORM connection.
var DatabaseModule = fx.Options(
	fx.Provide(func(cfg *config.Config, log *zap.Logger) (*gorm.DB, error) {
		return gormpersist.NewConnection(cfg.Database, log)
	}),
)

// CacheModule provides the cache repository: Redis when enabled,
// otherwise the in-process cache.
var CacheModule = fx.Options(
	fx.Provide(func(cfg *config.Config, log *zap.Logger) (outbound.CacheRepository, error) {
		if cfg.Redis.Enabled {
			return cache.NewRedisCache(cfg.Redis, log)
		}
		log.Info("redis disabled, using in-memory cache")
		return cache.NewMemoryCache(), nil
	}),
)

// RepositoryModule provides the persistence ports.
var RepositoryModule = fx.Options(
	fx.Provide(
		fx.Annotate(gormpersist.NewRecipeRepository, fx.As(new(outbound.RecipeRepository))),
		fx.Annotate(gormpersist.NewFeedbackRepository, fx.As(new(outbound.FeedbackRepository))),
		fx.Annotate(gormpersist.NewMealPlanRepository, fx.As(new(outbound.MealPlanRepository))),
	),
)

// AIModule provides the embedding encoder and generation backend.
var AIModule = fx.Options(
	fx.Provide(
		fx.Annotate(func(cfg *config.Config, log *zap.Logger) *embedding.Client {
			return embedding.NewClient(cfg.AI, log)
		}, fx.As(new(outbound.EmbeddingEncoder))),
		fx.Annotate(func(cfg *config.Config, log *zap.Logger) (*deepseek.Client, error) {
			return deepseek.NewClient(cfg.AI, log)
		}, fx.As(new(outbound.GenerationService))),
	),
)

// ApplicationModule provides the planner service and everything it
// composes.
var ApplicationModule = fx.Options(
	fx.Provide(monitoring.NewMetrics),
	fx.Provide(func(enc outbound.EmbeddingEncoder, repo outbound.RecipeRepository, metrics *monitoring.Metrics, cfg *config.Config, log *zap.Logger) *search.SimilarityStore {
		return search.NewSimilarityStore(enc, repo, cfg.Search.MinSimilarity, cfg.Search.DefaultLimit, metrics.SearchFallbacks, log)
	}),
	fx.Provide(func(fb outbound.FeedbackRepository, plans outbound.MealPlanRepository, recipes outbound.RecipeRepository, cfg *config.Config, log *zap.Logger) *history.Summarizer {
		return history.NewSummarizer(fb, plans, recipes, cfg.Planner.HistoryWindow, log)
	}),
	fx.Provide(func(cfg *config.Config) *ranking.Ranker {
		return ranking.NewRanker(ranking.Config{
			CuisineBoostCap:     cfg.Ranking.CuisineBoostCap,
			DietaryBoost:        cfg.Ranking.DietaryBoost,
			IngredientBoostStep: cfg.Ranking.IngredientBoostStep,
			IngredientBoostCap:  cfg.Ranking.IngredientBoostCap,
			ReusePenalty:        cfg.Ranking.ReusePenalty,
		})
	}),
	fx.Provide(func(log *zap.Logger) *planner.Parser {
		return planner.NewParser(log)
	}),
	fx.Provide(planner.NewFallbackCatalog),
	fx.Provide(func(repo outbound.CacheRepository, cfg *config.Config, log *zap.Logger) *planner.ResponseCache {
		return planner.NewResponseCache(repo, cfg.Cache.ResponseTTL, cfg.Cache.MaxCachedIngredientFilters, log)
	}),
	fx.Provide(func(gen outbound.GenerationService, parser *planner.Parser, cfg *config.Config, log *zap.Logger) planner.GenerationStrategy {
		return planner.NewLLMGeneration(gen, parser, cfg.Planner.GenerationTemp, log)
	}),
	fx.Provide(func(store *search.SimilarityStore, repo outbound.RecipeRepository, rk *ranking.Ranker, log *zap.Logger) []planner.RetrievalStrategy {
		return []planner.RetrievalStrategy{
			planner.NewSimilarityRetrieval(store, rk, log),
			planner.NewPersonalizedRetrieval(repo, rk, log),
			planner.NewPopularityRetrieval(repo, log),
		}
	}),
	fx.Provide(fx.Annotate(func(
		retrievals []planner.RetrievalStrategy,
		gen planner.GenerationStrategy,
		catalog *planner.FallbackCatalog,
		summarizer *history.Summarizer,
		store *search.SimilarityStore,
		plans outbound.MealPlanRepository,
		respCache *planner.ResponseCache,
		metrics *monitoring.Metrics,
		cfg *config.Config,
		log *zap.Logger,
	) *planner.Service {
		return planner.NewService(retrievals, gen, catalog, summarizer, store, plans, respCache, metrics, cfg.Planner.SlotDelay, log)
	}, fx.As(new(inbound.PlannerService)))),
)

// HTTPModule provides the HTTP server.
var HTTPModule = fx.Options(
	fx.Provide(func(cfg *config.Config, svc inbound.PlannerService, db *gorm.DB, metrics *monitoring.Metrics, log *zap.Logger) *server.Server {
		return server.New(cfg.Server, svc, db, metrics, log)
	}),
)

// RegisterLifecycleHooks starts and stops the HTTP server with the
// fx application and releases the database and logger on shutdown.
func RegisterLifecycleHooks(lc fx.Lifecycle, srv *server.Server, db *gorm.DB, cfg *config.Config, log *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.Start(); err != nil {
					log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
			defer cancel()
			err := srv.Shutdown(shutdownCtx)
			if sqlDB, dbErr := db.DB(); dbErr == nil {
				_ = sqlDB.Close()
			}
			_ = log.Sync()
			return err
		},
	})
}
