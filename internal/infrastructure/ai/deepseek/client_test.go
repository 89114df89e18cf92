package deepseek

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/hubertdeng123/meal-planner-sub000/internal/infrastructure/config"
	"github.com/hubertdeng123/meal-planner-sub000/internal/ports/outbound"
)

func sseChunk(reasoning, content string) string {
	chunk := map[string]any{
		"choices": []map[string]any{{
			"delta": map[string]any{
				"reasoning_content": reasoning,
				"content":           content,
			},
		}},
	}
	data, _ := json.Marshal(chunk)
	return fmt.Sprintf("data: %s\n\n", data)
}

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(config.AIConfig{
		BaseURL: srv.URL,
		Model:   "deepseek-chat",
		APIKey:  "test-key",
		Timeout: 5 * time.Second,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	return client
}

func collect(t *testing.T, events <-chan outbound.GenerationEvent) []outbound.GenerationEvent {
	t.Helper()
	var out []outbound.GenerationEvent
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for events")
		}
	}
}

func TestGenerateStreamsReasoningThenContent(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Stream)
		assert.Equal(t, "deepseek-chat", req.Model)

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, sseChunk("thinking about ", ""))
		fmt.Fprint(w, sseChunk("dinner", ""))
		fmt.Fprint(w, sseChunk("", `[{"name":`))
		fmt.Fprint(w, sseChunk("", `"Pad Thai"}]`))
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))

	events, err := client.Generate(context.Background(), outbound.GenerationRequest{
		SystemPrompt: "system",
		UserPrompt:   "user",
	})
	require.NoError(t, err)

	got := collect(t, events)
	want := []outbound.GenerationEvent{
		{Type: outbound.EventBlockStart, Channel: outbound.ChannelReasoning},
		{Type: outbound.EventTextDelta, Channel: outbound.ChannelReasoning, Text: "thinking about "},
		{Type: outbound.EventTextDelta, Channel: outbound.ChannelReasoning, Text: "dinner"},
		{Type: outbound.EventBlockStop, Channel: outbound.ChannelReasoning},
		{Type: outbound.EventBlockStart, Channel: outbound.ChannelContent},
		{Type: outbound.EventTextDelta, Channel: outbound.ChannelContent, Text: `[{"name":`},
		{Type: outbound.EventTextDelta, Channel: outbound.ChannelContent, Text: `"Pad Thai"}]`},
		{Type: outbound.EventBlockStop, Channel: outbound.ChannelContent},
		{Type: outbound.EventDone},
	}
	assert.Equal(t, want, got)
}

func TestGenerateFinishReasonEndsStream(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, sseChunk("", "hello"))
		fmt.Fprint(w, `data: {"choices":[{"delta":{},"finish_reason":"stop"}]}`+"\n\n")
	}))

	events, err := client.Generate(context.Background(), outbound.GenerationRequest{})
	require.NoError(t, err)

	got := collect(t, events)
	require.NotEmpty(t, got)
	assert.Equal(t, outbound.EventDone, got[len(got)-1].Type)
}

func TestGenerateStreamEndWithoutDoneIsComplete(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, sseChunk("", "partial"))
	}))

	events, err := client.Generate(context.Background(), outbound.GenerationRequest{})
	require.NoError(t, err)

	got := collect(t, events)
	require.NotEmpty(t, got)
	assert.Equal(t, outbound.EventDone, got[len(got)-1].Type)
}

func TestGenerateSkipsMalformedChunks(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {not json}\n\n")
		fmt.Fprint(w, ": keepalive comment\n\n")
		fmt.Fprint(w, sseChunk("", "recovered"))
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))

	events, err := client.Generate(context.Background(), outbound.GenerationRequest{})
	require.NoError(t, err)

	got := collect(t, events)
	var text string
	for _, ev := range got {
		if ev.Type == outbound.EventTextDelta {
			text += ev.Text
		}
	}
	assert.Equal(t, "recovered", text)
	assert.Equal(t, outbound.EventDone, got[len(got)-1].Type)
}

func TestGenerateNon200IsServiceError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))

	_, err := client.Generate(context.Background(), outbound.GenerationRequest{})
	assert.ErrorIs(t, err, outbound.ErrGenerationService)
	assert.Contains(t, err.Error(), "429")
}

func TestNewClientRequiresKey(t *testing.T) {
	t.Setenv("DEEPSEEK_API_KEY", "")
	_, err := NewClient(config.AIConfig{BaseURL: "http://localhost"}, zaptest.NewLogger(t))
	assert.Error(t, err)
}

func TestNewClientReadsKeyFromEnv(t *testing.T) {
	t.Setenv("DEEPSEEK_API_KEY", "env-key")
	client, err := NewClient(config.AIConfig{BaseURL: "http://localhost"}, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, "env-key", client.apiKey)
}
