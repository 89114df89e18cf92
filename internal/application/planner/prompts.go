package planner

import (
	"fmt"
	"strings"

	"github.com/hubertdeng123/meal-planner-sub000/internal/application/history"
	"github.com/hubertdeng123/meal-planner-sub000/internal/ports/inbound"
)

// buildSystemPrompt instructs the model on output shape. The
// completion marker lets the parser isolate the payload from any
// preamble the model produces.
func buildSystemPrompt() string {
	var b strings.Builder
	b.WriteString("You are a professional chef and nutritionist creating recipes for a meal planning service. ")
	b.WriteString("Respond with the line ")
	b.WriteString(CompletionMarker)
	b.WriteString(" followed immediately by a JSON array of recipe objects and nothing after it.\n\n")
	b.WriteString("Each recipe object must have these fields:\n")
	b.WriteString(`{"name": string, "description": string, "cuisine": string, `)
	b.WriteString(`"ingredients": [{"name": string, "quantity": number, "unit": string}], `)
	b.WriteString(`"instructions": [string], "prep_time_minutes": number, "cook_time_minutes": number, `)
	b.WriteString(`"servings": number, "tags": [string], `)
	b.WriteString(`"nutrition": {"calories": number, "protein": number, "carbs": number, "fat": number}}`)
	b.WriteString("\n")
	return b.String()
}

// buildUserPrompt assembles the generation request for one slot.
func buildUserPrompt(slot slotContext, profile *history.PreferenceProfile, prefs inbound.PreferenceSettings, avoid []string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Create exactly %d %s recipes for %s, each serving %d.\n",
		slot.count, slot.mealType, slot.date.Format("Monday, January 2"), slot.servings)

	b.WriteString("The recipes must differ from each other in cuisine, primary protein or main ingredient, and cooking method.\n")

	if len(prefs.Dietary.Diets) > 0 {
		fmt.Fprintf(&b, "All recipes must satisfy these dietary restrictions: %s.\n",
			strings.Join(prefs.Dietary.Diets, ", "))
	}
	if len(prefs.Cuisines.Preferred) > 0 {
		fmt.Fprintf(&b, "Preferred cuisines: %s.\n", strings.Join(prefs.Cuisines.Preferred, ", "))
	}
	if len(prefs.Cuisines.Forbidden) > 0 {
		fmt.Fprintf(&b, "Do not use these cuisines: %s.\n", strings.Join(prefs.Cuisines.Forbidden, ", "))
	}
	if len(prefs.Ingredients.Required) > 0 {
		fmt.Fprintf(&b, "Each recipe must include: %s.\n", strings.Join(prefs.Ingredients.Required, ", "))
	}
	if len(prefs.Ingredients.Favorites) > 0 {
		fmt.Fprintf(&b, "The user especially enjoys: %s.\n", strings.Join(prefs.Ingredients.Favorites, ", "))
	}
	if len(prefs.Ingredients.Avoid) > 0 {
		fmt.Fprintf(&b, "Never use these ingredients: %s.\n", strings.Join(prefs.Ingredients.Avoid, ", "))
	}
	if prefs.Schedule.Difficulty != "" {
		fmt.Fprintf(&b, "Target difficulty: %s.\n", prefs.Schedule.Difficulty)
	}
	if prefs.Schedule.MaxTotalTimeMinutes > 0 {
		fmt.Fprintf(&b, "Total prep plus cook time must not exceed %d minutes.\n", prefs.Schedule.MaxTotalTimeMinutes)
	}
	if prefs.Nutrition.MaxCalories > 0 {
		fmt.Fprintf(&b, "Keep each recipe under %d calories per serving.\n", prefs.Nutrition.MaxCalories)
	}

	if profile != nil {
		if top := profile.TopCuisines(3); len(top) > 0 {
			fmt.Fprintf(&b, "Based on past ratings the user favors %s cooking.\n", strings.Join(top, ", "))
		}
		if profile.Complexity == history.ComplexityQuick {
			b.WriteString("The user prefers quick recipes with minimal prep.\n")
		}
	}

	if len(avoid) > 0 {
		b.WriteString("Do NOT suggest any of these recipes or close variations of them, and do not reuse their names:\n")
		for _, name := range avoid {
			fmt.Fprintf(&b, "- %s\n", name)
		}
	}

	return b.String()
}
