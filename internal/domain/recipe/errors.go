package recipe

import "errors"

// Validation errors.
var (
	ErrEmptyName         = errors.New("recipe name cannot be empty")
	ErrNoIngredients     = errors.New("recipe must have at least one ingredient")
	ErrNoInstructions    = errors.New("recipe must have at least one instruction")
	ErrInvalidIngredient = errors.New("ingredient name cannot be empty")
)

// Lookup errors.
var (
	ErrNotFound = errors.New("recipe not found")
)
