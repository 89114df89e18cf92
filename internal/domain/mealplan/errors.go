package mealplan

import "errors"

var (
	ErrUnknownMealType      = errors.New("unknown meal type")
	ErrSlotOutOfRange       = errors.New("slot index out of range")
	ErrSuggestionOutOfRange = errors.New("suggestion index out of range")
	ErrPlanNotFound         = errors.New("meal plan not found")

	// ErrPlanPersistence wraps failures to save a completed plan. It
	// is the one error that aborts plan generation outright.
	ErrPlanPersistence = errors.New("meal plan persistence failed")
)
