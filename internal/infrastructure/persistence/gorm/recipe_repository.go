package gorm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hubertdeng123/meal-planner-sub000/internal/domain/recipe"
	"github.com/hubertdeng123/meal-planner-sub000/internal/ports/outbound"
)

// RecipeRepository implements outbound.RecipeRepository. Vector
// search uses pgvector's cosine operator on Postgres; on SQLite the
// distance is computed in process over the filtered candidate set.
type RecipeRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewRecipeRepository creates the repository.
func NewRecipeRepository(db *gorm.DB, logger *zap.Logger) *RecipeRepository {
	return &RecipeRepository{db: db, logger: logger.Named("recipe-repo")}
}

var _ outbound.RecipeRepository = (*RecipeRepository)(nil)

func (r *RecipeRepository) isPostgres() bool {
	return r.db.Dialector.Name() == "postgres"
}

func applyFilters(q *gorm.DB, f outbound.SearchFilters) *gorm.DB {
	if f.Cuisine != "" {
		q = q.Where("LOWER(cuisine) = LOWER(?)", f.Cuisine)
	}
	for _, c := range f.ExcludeCuisines {
		q = q.Where("LOWER(cuisine) != LOWER(?)", c)
	}
	if f.MaxTotalTime > 0 {
		q = q.Where("total_time_minutes <= ?", f.MaxTotalTime)
	}
	if f.MaxCalories > 0 {
		q = q.Where("calories > 0 AND calories <= ?", f.MaxCalories)
	}
	for _, tag := range f.RequiredTags {
		q = q.Where("LOWER(tags) LIKE ?", "%"+likeEscape(tag)+"%")
	}
	if len(f.ExcludeIDs) > 0 {
		ids := make([]string, len(f.ExcludeIDs))
		for i, id := range f.ExcludeIDs {
			ids[i] = id.String()
		}
		q = q.Where("id NOT IN ?", ids)
	}
	for _, ing := range f.RequireIngredients {
		q = q.Where("LOWER(ingredients) LIKE ?", "%"+likeEscape(ing)+"%")
	}
	for _, ing := range f.AvoidIngredients {
		q = q.Where("LOWER(ingredients) NOT LIKE ?", "%"+likeEscape(ing)+"%")
	}
	return q
}

func likeEscape(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch r {
		case '%', '_', '\\':
			out = append(out, '\\', r)
		default:
			out = append(out, r)
		}
	}
	// LIKE matching against json columns is case sensitive on some
	// backends, so lowercase the needle to pair with LOWER(column).
	return lower(string(out))
}

func lower(s string) string {
	b := []byte(s)
	for i := range b {
		if b[i] >= 'A' && b[i] <= 'Z' {
			b[i] += 'a' - 'A'
		}
	}
	return string(b)
}

// SearchByVector returns the nearest recipes by cosine distance,
// after scalar filters are applied.
func (r *RecipeRepository) SearchByVector(ctx context.Context, vec []float32, filters outbound.SearchFilters, limit int) ([]outbound.VectorMatch, error) {
	if limit <= 0 {
		limit = 10
	}
	if r.isPostgres() {
		return r.searchByVectorPG(ctx, vec, filters, limit)
	}
	return r.searchByVectorLocal(ctx, vec, filters, limit)
}

type recipeWithDistance struct {
	RecipeModel
	Distance float64
}

func (r *RecipeRepository) searchByVectorPG(ctx context.Context, vec []float32, filters outbound.SearchFilters, limit int) ([]outbound.VectorMatch, error) {
	var rows []recipeWithDistance
	q := r.db.WithContext(ctx).Model(&RecipeModel{}).
		Select("*, embedding <=> ? AS distance", pgvector.NewVector(vec)).
		Where("has_embedding = ?", true)
	q = applyFilters(q, filters)
	if err := q.Order("distance ASC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("%w: vector search: %v", outbound.ErrStoreUnavailable, err)
	}

	matches := make([]outbound.VectorMatch, 0, len(rows))
	for i := range rows {
		entity, err := toRecipeEntity(&rows[i].RecipeModel)
		if err != nil {
			r.logger.Warn("skipping unmappable recipe row", zap.String("id", rows[i].ID), zap.Error(err))
			continue
		}
		matches = append(matches, outbound.VectorMatch{Recipe: *entity, Distance: rows[i].Distance})
	}
	return matches, nil
}

func (r *RecipeRepository) searchByVectorLocal(ctx context.Context, vec []float32, filters outbound.SearchFilters, limit int) ([]outbound.VectorMatch, error) {
	var rows []RecipeModel
	q := applyFilters(r.db.WithContext(ctx).Where("has_embedding = ?", true), filters)
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("%w: vector search: %v", outbound.ErrStoreUnavailable, err)
	}

	matches := make([]outbound.VectorMatch, 0, len(rows))
	for i := range rows {
		entity, err := toRecipeEntity(&rows[i])
		if err != nil {
			continue
		}
		sim := cosineSimilarity(vec, entity.Embedding)
		matches = append(matches, outbound.VectorMatch{Recipe: *entity, Distance: 1 - sim})
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Distance < matches[j].Distance })
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// SearchKeyword does a LIKE search over name, description and tags.
// Exact name matches sort first, then newest rows.
func (r *RecipeRepository) SearchKeyword(ctx context.Context, query string, filters outbound.SearchFilters, limit int) ([]recipe.Recipe, error) {
	if limit <= 0 {
		limit = 10
	}
	pattern := "%" + likeEscape(query) + "%"

	var rows []RecipeModel
	q := r.db.WithContext(ctx).
		Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ? OR LOWER(tags) LIKE ?", pattern, pattern, pattern)
	q = applyFilters(q, filters)
	exactFirst := clause.OrderBy{Expression: clause.Expr{
		SQL:                "CASE WHEN LOWER(name) = ? THEN 0 ELSE 1 END",
		Vars:               []interface{}{lower(query)},
		WithoutParentheses: true,
	}}
	err := q.Order(exactFirst).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("%w: keyword search: %v", outbound.ErrStoreUnavailable, err)
	}
	return toRecipeEntities(rows)
}

// FindPopular returns the most used, best rated recipes matching the
// filters.
func (r *RecipeRepository) FindPopular(ctx context.Context, filters outbound.SearchFilters, limit int) ([]recipe.Recipe, error) {
	if limit <= 0 {
		limit = 10
	}
	var rows []RecipeModel
	q := applyFilters(r.db.WithContext(ctx), filters)
	if err := q.Order("times_used DESC").Order("average_rating DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("%w: popular lookup: %v", outbound.ErrStoreUnavailable, err)
	}
	return toRecipeEntities(rows)
}

// FindByID fetches one recipe.
func (r *RecipeRepository) FindByID(ctx context.Context, id uuid.UUID) (*recipe.Recipe, error) {
	var row RecipeModel
	err := r.db.WithContext(ctx).First(&row, "id = ?", id.String()).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, recipe.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: find by id: %v", outbound.ErrStoreUnavailable, err)
	}
	return toRecipeEntity(&row)
}

// FindByIDs fetches multiple recipes; missing ids are skipped.
func (r *RecipeRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]recipe.Recipe, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	strIDs := make([]string, len(ids))
	for i, id := range ids {
		strIDs[i] = id.String()
	}
	var rows []RecipeModel
	if err := r.db.WithContext(ctx).Where("id IN ?", strIDs).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("%w: find by ids: %v", outbound.ErrStoreUnavailable, err)
	}
	return toRecipeEntities(rows)
}

// FindMissingEmbeddings returns recipes without a stored vector, for
// the backfill worker.
func (r *RecipeRepository) FindMissingEmbeddings(ctx context.Context, limit int) ([]recipe.Recipe, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []RecipeModel
	err := r.db.WithContext(ctx).
		Where("has_embedding = ?", false).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("%w: missing embeddings: %v", outbound.ErrStoreUnavailable, err)
	}
	return toRecipeEntities(rows)
}

// Create inserts a recipe.
func (r *RecipeRepository) Create(ctx context.Context, rec *recipe.Recipe) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	rec.UpdatedAt = time.Now()
	if err := r.db.WithContext(ctx).Create(toRecipeModel(rec)).Error; err != nil {
		return fmt.Errorf("%w: creating recipe: %v", outbound.ErrStoreUnavailable, err)
	}
	return nil
}

// UpdateEmbedding stores a vector for an existing recipe.
func (r *RecipeRepository) UpdateEmbedding(ctx context.Context, id uuid.UUID, vec []float32) error {
	updates := map[string]interface{}{
		"embedding":     pgvector.NewVector(vec),
		"has_embedding": true,
		"updated_at":    time.Now(),
	}
	res := r.db.WithContext(ctx).Model(&RecipeModel{}).Where("id = ?", id.String()).Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("%w: updating embedding: %v", outbound.ErrStoreUnavailable, res.Error)
	}
	if res.RowsAffected == 0 {
		return recipe.ErrNotFound
	}
	return nil
}
