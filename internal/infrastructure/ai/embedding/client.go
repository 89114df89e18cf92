// Package embedding implements the EmbeddingEncoder port against an
// OpenAI compatible embeddings endpoint.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hubertdeng123/meal-planner-sub000/internal/infrastructure/config"
	"github.com/hubertdeng123/meal-planner-sub000/internal/ports/outbound"
)

// Client calls the embeddings endpoint.
type Client struct {
	baseURL    string
	model      string
	dimensions int
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient builds an encoder from config.
func NewClient(cfg config.AIConfig, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.EmbeddingBaseURL, "/"),
		model:      cfg.EmbeddingModel,
		dimensions: cfg.EmbeddingDimensions,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger.Named("embedding"),
	}
}

var _ outbound.EmbeddingEncoder = (*Client)(nil)

type embeddingRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Encode returns the vector for text. All failure modes wrap
// ErrEncodingUnavailable so callers can degrade to keyword search.
func (c *Client) Encode(ctx context.Context, text string) ([]float32, error) {
	payload, err := json.Marshal(embeddingRequest{Model: c.model, Input: text})
	if err != nil {
		return nil, fmt.Errorf("%w: marshaling request: %v", outbound.ErrEncodingUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/embeddings", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %v", outbound.ErrEncodingUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", outbound.ErrEncodingUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("%w: status %d: %s", outbound.ErrEncodingUnavailable, resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var out embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", outbound.ErrEncodingUnavailable, err)
	}
	if len(out.Data) == 0 || len(out.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("%w: empty embedding in response", outbound.ErrEncodingUnavailable)
	}
	return out.Data[0].Embedding, nil
}

// Dimensions is the configured vector width.
func (c *Client) Dimensions() int {
	return c.dimensions
}
