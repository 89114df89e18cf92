package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/hubertdeng123/meal-planner-sub000/internal/infrastructure/config"
	"github.com/hubertdeng123/meal-planner-sub000/internal/ports/outbound"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.AIConfig{
		EmbeddingBaseURL:    srv.URL,
		EmbeddingModel:      "nomic-embed-text",
		EmbeddingDimensions: 768,
	}, zaptest.NewLogger(t))
}

func TestEncode(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)

		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "nomic-embed-text", req.Model)
		assert.Equal(t, "chicken curry", req.Input)

		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"embedding": []float32{0.1, 0.2, 0.3}}},
		})
	}))

	vec, err := client.Encode(context.Background(), "chicken curry")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
}

func TestEncodeServerErrorWrapsSentinel(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))

	_, err := client.Encode(context.Background(), "text")
	assert.ErrorIs(t, err, outbound.ErrEncodingUnavailable)
}

func TestEncodeEmptyResponseWrapsSentinel(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"data": []any{}})
	}))

	_, err := client.Encode(context.Background(), "text")
	assert.ErrorIs(t, err, outbound.ErrEncodingUnavailable)
}

func TestDimensions(t *testing.T) {
	client := NewClient(config.AIConfig{EmbeddingDimensions: 768}, zaptest.NewLogger(t))
	assert.Equal(t, 768, client.Dimensions())
}
