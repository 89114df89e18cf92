// Command backfill encodes embeddings for recipes that were stored
// without one, typically rows ingested while the encoder was down.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/hubertdeng123/meal-planner-sub000/internal/application/search"
	"github.com/hubertdeng123/meal-planner-sub000/internal/infrastructure/ai/embedding"
	"github.com/hubertdeng123/meal-planner-sub000/internal/infrastructure/config"
	gormpersist "github.com/hubertdeng123/meal-planner-sub000/internal/infrastructure/persistence/gorm"
	"github.com/hubertdeng123/meal-planner-sub000/pkg/logger"
)

func main() {
	batch := flag.Int("batch", 100, "maximum recipes to encode per run")
	timeout := flag.Duration("timeout", 10*time.Minute, "overall run timeout")
	flag.Parse()

	if err := run(*batch, *timeout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(batch int, timeout time.Duration) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		Development: cfg.Log.Development,
	})
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer log.Sync()

	db, err := gormpersist.NewConnection(cfg.Database, log)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}

	repo := gormpersist.NewRecipeRepository(db, log)
	encoder := embedding.NewClient(cfg.AI, log)
	store := search.NewSimilarityStore(encoder, repo, cfg.Search.MinSimilarity, cfg.Search.DefaultLimit, nil, log)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	updated, err := store.BackfillEmbeddings(ctx, batch)
	log.Info("backfill finished", zap.Int("updated", updated))
	if err != nil {
		return fmt.Errorf("backfill stopped early after %d updates: %w", updated, err)
	}
	return nil
}
