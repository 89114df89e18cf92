package outbound

import (
	"context"
	"errors"
)

// ErrEncodingUnavailable wraps failures of the embedding service. The
// similarity store treats it as a signal to fall back to keyword
// search rather than a fatal error.
var ErrEncodingUnavailable = errors.New("embedding service unavailable")

// ErrGenerationService wraps failures of the recipe generation
// backend. Slot assembly recovers from it with the fallback catalog.
var ErrGenerationService = errors.New("generation service error")

// EmbeddingEncoder turns text into a dense vector.
type EmbeddingEncoder interface {
	Encode(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// EventType discriminates streaming generation events.
type EventType string

const (
	EventBlockStart EventType = "block_start"
	EventTextDelta  EventType = "text_delta"
	EventBlockStop  EventType = "block_stop"
	EventDone       EventType = "done"
	EventError      EventType = "error"
)

// Channel says whether streamed text is model reasoning or answer
// content.
type Channel string

const (
	ChannelReasoning Channel = "reasoning"
	ChannelContent   Channel = "content"
)

// GenerationEvent is one frame of a generation stream.
type GenerationEvent struct {
	Type    EventType
	Channel Channel
	Text    string
	Err     error
}

// GenerationRequest asks the model for recipes.
type GenerationRequest struct {
	SystemPrompt string
	UserPrompt   string
	Temperature  float64
	MaxTokens    int
}

// GenerationService streams model output as typed events. The returned
// channel is closed after a Done or Error event. Implementations stop
// streaming when ctx is cancelled.
type GenerationService interface {
	Generate(ctx context.Context, req GenerationRequest) (<-chan GenerationEvent, error)
}
