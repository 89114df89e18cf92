package inbound

import "github.com/hubertdeng123/meal-planner-sub000/internal/domain/mealplan"

// ProgressType discriminates progress events on a plan stream.
type ProgressType string

const (
	ProgressStatus         ProgressType = "status"
	ProgressReasoningStart ProgressType = "reasoning_start"
	ProgressReasoningDelta ProgressType = "reasoning_delta"
	ProgressReasoningStop  ProgressType = "reasoning_stop"
	ProgressSuggestion     ProgressType = "suggestion"
	ProgressSlotComplete   ProgressType = "slot_complete"
	ProgressPlanComplete   ProgressType = "plan_complete"
	ProgressError          ProgressType = "error"
)

// ProgressEvent is one frame pushed to the client while a plan is
// assembled. Fields are sparse; only those relevant to Type are set.
type ProgressEvent struct {
	Type       ProgressType         `json:"type"`
	Message    string               `json:"message,omitempty"`
	SlotIndex  int                  `json:"slot_index,omitempty"`
	MealType   string               `json:"meal_type,omitempty"`
	Text       string               `json:"text,omitempty"`
	Suggestion *mealplan.Suggestion `json:"suggestion,omitempty"`
	Slot       *mealplan.MealSlot   `json:"slot,omitempty"`
	PlanID     string               `json:"plan_id,omitempty"`
	Error      string               `json:"error,omitempty"`
}

// EventSink receives progress events. Implementations must tolerate
// being called from the service goroutine; a nil sink is valid and
// discards everything.
type EventSink interface {
	Emit(ev ProgressEvent)
}

// SinkFunc adapts a function to the EventSink interface.
type SinkFunc func(ev ProgressEvent)

// Emit implements EventSink.
func (f SinkFunc) Emit(ev ProgressEvent) { f(ev) }

// NopSink discards all events.
var NopSink EventSink = SinkFunc(func(ProgressEvent) {})
