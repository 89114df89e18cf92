// Package gorm implements the persistence ports on GORM with either a
// Postgres (pgvector) or SQLite backend.
package gorm

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/hubertdeng123/meal-planner-sub000/internal/infrastructure/config"
)

// NewConnection opens the configured database and runs migrations.
func NewConnection(cfg config.DatabaseConfig, logger *zap.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.GetDSN())
	case "sqlite":
		dialector = sqlite.Open(cfg.GetDSN())
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if cfg.Driver == "postgres" {
		// pgvector must exist before the embedding column migrates.
		if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
			return nil, fmt.Errorf("creating vector extension: %w", err)
		}
	}

	if err := db.AutoMigrate(&RecipeModel{}, &FeedbackModel{}, &MealPlanModel{}, &MealPlanItemModel{}); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	logger.Info("database ready", zap.String("driver", cfg.Driver))
	return db, nil
}
