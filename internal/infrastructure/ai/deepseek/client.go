// Package deepseek implements the GenerationService port against a
// DeepSeek compatible chat completions API with SSE streaming.
package deepseek

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hubertdeng123/meal-planner-sub000/internal/infrastructure/config"
	"github.com/hubertdeng123/meal-planner-sub000/internal/ports/outbound"
)

// Client streams chat completions.
type Client struct {
	baseURL    string
	model      string
	apiKey     string
	maxTokens  int
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient resolves the API key from config, the DEEPSEEK_API_KEY
// environment variable, or a key file, in that order.
func NewClient(cfg config.AIConfig, logger *zap.Logger) (*Client, error) {
	key := cfg.APIKey
	if key == "" {
		key = os.Getenv("DEEPSEEK_API_KEY")
	}
	if key == "" && cfg.APIKeyFile != "" {
		data, err := os.ReadFile(cfg.APIKeyFile)
		if err != nil {
			return nil, fmt.Errorf("reading api key file: %w", err)
		}
		key = strings.TrimSpace(string(data))
	}
	if key == "" {
		return nil, fmt.Errorf("no api key configured")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		apiKey:     key,
		maxTokens:  cfg.MaxTokens,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.Named("deepseek"),
	}, nil
}

var _ outbound.GenerationService = (*Client)(nil)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Stream      bool          `json:"stream"`
}

type chatChunk struct {
	Choices []struct {
		Delta struct {
			Content          string `json:"content"`
			ReasoningContent string `json:"reasoning_content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}

// Generate opens a streaming completion and converts SSE frames into
// typed events. The channel is closed after Done or Error.
func (c *Client) Generate(ctx context.Context, req outbound.GenerationRequest) (<-chan outbound.GenerationEvent, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}
	body := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: req.SystemPrompt},
			{Role: "user", Content: req.UserPrompt},
		},
		Temperature: req.Temperature,
		MaxTokens:   maxTokens,
		Stream:      true,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%w: marshaling request: %v", outbound.ErrGenerationService, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %v", outbound.ErrGenerationService, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", outbound.ErrGenerationService, err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: status %d: %s", outbound.ErrGenerationService, resp.StatusCode, strings.TrimSpace(string(data)))
	}

	events := make(chan outbound.GenerationEvent, 16)
	go c.stream(ctx, resp.Body, events)
	return events, nil
}

func (c *Client) stream(ctx context.Context, body io.ReadCloser, events chan<- outbound.GenerationEvent) {
	defer close(events)
	defer body.Close()

	emit := func(ev outbound.GenerationEvent) bool {
		select {
		case events <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	var (
		reasoningOpen bool
		contentOpen   bool
	)
	closeBlocks := func() {
		if reasoningOpen {
			emit(outbound.GenerationEvent{Type: outbound.EventBlockStop, Channel: outbound.ChannelReasoning})
			reasoningOpen = false
		}
		if contentOpen {
			emit(outbound.GenerationEvent{Type: outbound.EventBlockStop, Channel: outbound.ChannelContent})
			contentOpen = false
		}
	}

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" {
			closeBlocks()
			emit(outbound.GenerationEvent{Type: outbound.EventDone})
			return
		}

		var chunk chatChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			c.logger.Debug("skipping malformed stream chunk", zap.Error(err))
			continue
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta

		if delta.ReasoningContent != "" {
			if !reasoningOpen {
				reasoningOpen = true
				if !emit(outbound.GenerationEvent{Type: outbound.EventBlockStart, Channel: outbound.ChannelReasoning}) {
					return
				}
			}
			if !emit(outbound.GenerationEvent{Type: outbound.EventTextDelta, Channel: outbound.ChannelReasoning, Text: delta.ReasoningContent}) {
				return
			}
		}
		if delta.Content != "" {
			if reasoningOpen {
				emit(outbound.GenerationEvent{Type: outbound.EventBlockStop, Channel: outbound.ChannelReasoning})
				reasoningOpen = false
			}
			if !contentOpen {
				contentOpen = true
				if !emit(outbound.GenerationEvent{Type: outbound.EventBlockStart, Channel: outbound.ChannelContent}) {
					return
				}
			}
			if !emit(outbound.GenerationEvent{Type: outbound.EventTextDelta, Channel: outbound.ChannelContent, Text: delta.Content}) {
				return
			}
		}
		if chunk.Choices[0].FinishReason != nil {
			closeBlocks()
			emit(outbound.GenerationEvent{Type: outbound.EventDone})
			return
		}
	}

	if err := scanner.Err(); err != nil {
		closeBlocks()
		emit(outbound.GenerationEvent{
			Type: outbound.EventError,
			Err:  fmt.Errorf("%w: reading stream: %v", outbound.ErrGenerationService, err),
		})
		return
	}
	// Stream ended without [DONE]; treat what we have as complete.
	closeBlocks()
	emit(outbound.GenerationEvent{Type: outbound.EventDone})
}
