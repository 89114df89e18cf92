package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/hubertdeng123/meal-planner-sub000/internal/domain/recipe"
	"github.com/hubertdeng123/meal-planner-sub000/internal/ports/outbound"
)

type mockEncoder struct {
	mock.Mock
}

func (m *mockEncoder) Encode(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if v := args.Get(0); v != nil {
		return v.([]float32), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockEncoder) Dimensions() int { return 3 }

type mockRecipeRepo struct {
	mock.Mock
}

func (m *mockRecipeRepo) SearchByVector(ctx context.Context, vec []float32, filters outbound.SearchFilters, limit int) ([]outbound.VectorMatch, error) {
	args := m.Called(ctx, vec, filters, limit)
	if v := args.Get(0); v != nil {
		return v.([]outbound.VectorMatch), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRecipeRepo) SearchKeyword(ctx context.Context, query string, filters outbound.SearchFilters, limit int) ([]recipe.Recipe, error) {
	args := m.Called(ctx, query, filters, limit)
	if v := args.Get(0); v != nil {
		return v.([]recipe.Recipe), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRecipeRepo) FindPopular(ctx context.Context, filters outbound.SearchFilters, limit int) ([]recipe.Recipe, error) {
	args := m.Called(ctx, filters, limit)
	if v := args.Get(0); v != nil {
		return v.([]recipe.Recipe), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRecipeRepo) FindByID(ctx context.Context, id uuid.UUID) (*recipe.Recipe, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.(*recipe.Recipe), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRecipeRepo) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]recipe.Recipe, error) {
	args := m.Called(ctx, ids)
	if v := args.Get(0); v != nil {
		return v.([]recipe.Recipe), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRecipeRepo) FindMissingEmbeddings(ctx context.Context, limit int) ([]recipe.Recipe, error) {
	args := m.Called(ctx, limit)
	if v := args.Get(0); v != nil {
		return v.([]recipe.Recipe), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRecipeRepo) Create(ctx context.Context, r *recipe.Recipe) error {
	return m.Called(ctx, r).Error(0)
}

func (m *mockRecipeRepo) UpdateEmbedding(ctx context.Context, id uuid.UUID, vec []float32) error {
	return m.Called(ctx, id, vec).Error(0)
}

func testRecipe(name string) recipe.Recipe {
	r := recipe.New(name, recipe.SourceManual)
	r.Ingredients = []recipe.Ingredient{{Name: "something", Quantity: 1}}
	r.Instructions = []string{"cook it"}
	return *r
}

func newTestStore(t *testing.T, encoder *mockEncoder, repo *mockRecipeRepo) *SimilarityStore {
	t.Helper()
	return NewSimilarityStore(encoder, repo, 0.75, 10, nil, zaptest.NewLogger(t))
}

func TestSearchConvertsDistanceAndAppliesCutoff(t *testing.T) {
	encoder := new(mockEncoder)
	repo := new(mockRecipeRepo)
	store := newTestStore(t, encoder, repo)

	vec := []float32{0.1, 0.2, 0.3}
	encoder.On("Encode", mock.Anything, "pasta").Return(vec, nil)

	kept := testRecipe("Pasta Primavera")
	dropped := testRecipe("Distant Dish")
	repo.On("SearchByVector", mock.Anything, vec, mock.Anything, mock.Anything).Return([]outbound.VectorMatch{
		{Recipe: dropped, Distance: 0.26}, // similarity 0.74, below cutoff
		{Recipe: kept, Distance: 0.24},    // similarity 0.76, kept
	}, nil)

	candidates, err := store.Search(context.Background(), "pasta", Options{})
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "Pasta Primavera", candidates[0].Recipe.Name)
	assert.InDelta(t, 0.76, candidates[0].Similarity, 1e-9)
}

func TestSearchClampsNegativeSimilarity(t *testing.T) {
	encoder := new(mockEncoder)
	repo := new(mockRecipeRepo)
	store := NewSimilarityStore(encoder, repo, 0, 10, nil, zaptest.NewLogger(t))

	vec := []float32{1, 0, 0}
	encoder.On("Encode", mock.Anything, mock.Anything).Return(vec, nil)
	repo.On("SearchByVector", mock.Anything, vec, mock.Anything, mock.Anything).Return([]outbound.VectorMatch{
		{Recipe: testRecipe("Opposite"), Distance: 1.8},
	}, nil)

	candidates, err := store.Search(context.Background(), "anything", Options{MinSimilarity: -1})
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, 0.0, candidates[0].Similarity)
}

func TestSearchSortsBySimilarityDescending(t *testing.T) {
	encoder := new(mockEncoder)
	repo := new(mockRecipeRepo)
	store := NewSimilarityStore(encoder, repo, 0.1, 10, nil, zaptest.NewLogger(t))

	vec := []float32{0.5, 0.5, 0.5}
	encoder.On("Encode", mock.Anything, mock.Anything).Return(vec, nil)
	repo.On("SearchByVector", mock.Anything, vec, mock.Anything, mock.Anything).Return([]outbound.VectorMatch{
		{Recipe: testRecipe("Second"), Distance: 0.3},
		{Recipe: testRecipe("First"), Distance: 0.1},
	}, nil)

	candidates, err := store.Search(context.Background(), "dinner", Options{})
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	assert.Equal(t, "First", candidates[0].Recipe.Name)
	assert.Equal(t, "Second", candidates[1].Recipe.Name)
}

func TestSearchCountsKeywordFallbacks(t *testing.T) {
	encoder := new(mockEncoder)
	repo := new(mockRecipeRepo)
	fallbacks := prometheus.NewCounter(prometheus.CounterOpts{Name: "fallbacks_total"})
	store := NewSimilarityStore(encoder, repo, 0.75, 10, fallbacks, zaptest.NewLogger(t))

	encoder.On("Encode", mock.Anything, mock.Anything).Return(nil, outbound.ErrEncodingUnavailable)
	repo.On("SearchKeyword", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return([]recipe.Recipe{
		testRecipe("Plain Rice"),
	}, nil)

	_, err := store.Search(context.Background(), "rice", Options{})
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(fallbacks))

	_, err = store.Search(context.Background(), "rice", Options{})
	require.NoError(t, err)
	assert.Equal(t, 2.0, testutil.ToFloat64(fallbacks))
}

func TestSearchFallsBackToKeywordWhenEncoderDown(t *testing.T) {
	encoder := new(mockEncoder)
	repo := new(mockRecipeRepo)
	store := newTestStore(t, encoder, repo)

	encoder.On("Encode", mock.Anything, mock.Anything).Return(nil, outbound.ErrEncodingUnavailable)
	repo.On("SearchKeyword", mock.Anything, "tacos", mock.Anything, mock.Anything).Return([]recipe.Recipe{
		testRecipe("Fish Tacos"),
		testRecipe("Taco Salad"),
	}, nil)

	candidates, err := store.Search(context.Background(), "tacos", Options{})
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	for _, c := range candidates {
		assert.Equal(t, KeywordSimilarity, c.Similarity)
	}
	repo.AssertNotCalled(t, "SearchByVector", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestKeywordFallbackOrdersExactNameFirstThenRecency(t *testing.T) {
	encoder := new(mockEncoder)
	repo := new(mockRecipeRepo)
	store := newTestStore(t, encoder, repo)

	encoder.On("Encode", mock.Anything, mock.Anything).Return(nil, outbound.ErrEncodingUnavailable)

	older := testRecipe("Old Chili")
	older.CreatedAt = time.Now().Add(-48 * time.Hour)
	newer := testRecipe("New Chili")
	newer.CreatedAt = time.Now()
	exact := testRecipe("Chili")
	exact.CreatedAt = time.Now().Add(-720 * time.Hour)

	repo.On("SearchKeyword", mock.Anything, "chili", mock.Anything, mock.Anything).Return([]recipe.Recipe{older, newer, exact}, nil)

	candidates, err := store.Search(context.Background(), "chili", Options{})
	require.NoError(t, err)
	require.Len(t, candidates, 3)
	assert.Equal(t, "Chili", candidates[0].Recipe.Name)
	assert.Equal(t, "New Chili", candidates[1].Recipe.Name)
	assert.Equal(t, "Old Chili", candidates[2].Recipe.Name)
}

func TestSearchPropagatesStoreUnavailable(t *testing.T) {
	encoder := new(mockEncoder)
	repo := new(mockRecipeRepo)
	store := newTestStore(t, encoder, repo)

	vec := []float32{0.1, 0.2, 0.3}
	encoder.On("Encode", mock.Anything, mock.Anything).Return(vec, nil)
	repo.On("SearchByVector", mock.Anything, vec, mock.Anything, mock.Anything).
		Return(nil, outbound.ErrStoreUnavailable)

	_, err := store.Search(context.Background(), "soup", Options{})
	assert.ErrorIs(t, err, outbound.ErrStoreUnavailable)
	repo.AssertNotCalled(t, "SearchKeyword", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAddEncodesBeforeStoring(t *testing.T) {
	encoder := new(mockEncoder)
	repo := new(mockRecipeRepo)
	store := newTestStore(t, encoder, repo)

	r := testRecipe("Shakshuka")
	vec := []float32{0.4, 0.4, 0.2}
	encoder.On("Encode", mock.Anything, mock.Anything).Return(vec, nil)
	repo.On("Create", mock.Anything, mock.Anything).Return(nil)

	require.NoError(t, store.Add(context.Background(), &r))
	assert.Equal(t, vec, r.Embedding)
	repo.AssertCalled(t, "Create", mock.Anything, &r)
}

func TestAddStoresWithoutEmbeddingWhenEncoderDown(t *testing.T) {
	encoder := new(mockEncoder)
	repo := new(mockRecipeRepo)
	store := newTestStore(t, encoder, repo)

	r := testRecipe("Borscht")
	encoder.On("Encode", mock.Anything, mock.Anything).Return(nil, outbound.ErrEncodingUnavailable)
	repo.On("Create", mock.Anything, mock.Anything).Return(nil)

	require.NoError(t, store.Add(context.Background(), &r))
	assert.False(t, r.HasEmbedding())
}

func TestAddRejectsInvalidRecipe(t *testing.T) {
	encoder := new(mockEncoder)
	repo := new(mockRecipeRepo)
	store := newTestStore(t, encoder, repo)

	r := recipe.New("No Ingredients", recipe.SourceManual)
	err := store.Add(context.Background(), r)
	assert.ErrorIs(t, err, recipe.ErrNoIngredients)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestBackfillStopsWhenEncoderFails(t *testing.T) {
	encoder := new(mockEncoder)
	repo := new(mockRecipeRepo)
	store := newTestStore(t, encoder, repo)

	first := testRecipe("First")
	second := testRecipe("Second")
	repo.On("FindMissingEmbeddings", mock.Anything, 10).Return([]recipe.Recipe{first, second}, nil)

	vec := []float32{0.2, 0.3, 0.5}
	encoder.On("Encode", mock.Anything, first.EmbeddingText()).Return(vec, nil).Once()
	encoder.On("Encode", mock.Anything, second.EmbeddingText()).Return(nil, errors.New("connection refused")).Once()
	repo.On("UpdateEmbedding", mock.Anything, first.ID, vec).Return(nil)

	updated, err := store.BackfillEmbeddings(context.Background(), 10)
	assert.Error(t, err)
	assert.Equal(t, 1, updated)
}
