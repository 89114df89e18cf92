package planner

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/hubertdeng123/meal-planner-sub000/internal/domain/mealplan"
	"github.com/hubertdeng123/meal-planner-sub000/internal/domain/recipe"
)

// FallbackCatalog is the static table of pre-validated recipes used
// to pad slots when retrieval and generation both come up short.
type FallbackCatalog struct {
	byMeal map[mealplan.MealType][]recipe.Recipe
	def    []recipe.Recipe
}

// NewFallbackCatalog builds the stock catalog.
func NewFallbackCatalog() *FallbackCatalog {
	return &FallbackCatalog{
		byMeal: map[mealplan.MealType][]recipe.Recipe{
			mealplan.MealBreakfast: {
				catalogRecipe("Vegetable Omelette", "French", 10, 10,
					[]recipe.Ingredient{
						{Name: "eggs", Quantity: 3, Unit: ""},
						{Name: "bell pepper", Quantity: 0.5, Unit: ""},
						{Name: "onion", Quantity: 0.25, Unit: ""},
						{Name: "butter", Quantity: 1, Unit: "tbsp"},
					},
					[]string{
						"Whisk the eggs with a pinch of salt.",
						"Saute the chopped vegetables in butter until soft.",
						"Pour in the eggs and cook until just set, folding once.",
					}),
				catalogRecipe("Overnight Oats with Berries", "American", 5, 0,
					[]recipe.Ingredient{
						{Name: "rolled oats", Quantity: 0.5, Unit: "cup"},
						{Name: "milk", Quantity: 0.5, Unit: "cup"},
						{Name: "mixed berries", Quantity: 0.5, Unit: "cup"},
						{Name: "honey", Quantity: 1, Unit: "tsp"},
					},
					[]string{
						"Combine oats and milk in a jar.",
						"Refrigerate overnight.",
						"Top with berries and honey before serving.",
					}),
				catalogRecipe("Avocado Toast", "American", 5, 5,
					[]recipe.Ingredient{
						{Name: "bread", Quantity: 2, Unit: "slices"},
						{Name: "avocado", Quantity: 1, Unit: ""},
						{Name: "lemon juice", Quantity: 1, Unit: "tsp"},
					},
					[]string{
						"Toast the bread.",
						"Mash the avocado with lemon juice and salt.",
						"Spread over the toast.",
					}),
			},
			mealplan.MealLunch: {
				catalogRecipe("Chicken Caesar Salad", "Italian", 15, 15,
					[]recipe.Ingredient{
						{Name: "chicken breast", Quantity: 1, Unit: ""},
						{Name: "romaine lettuce", Quantity: 1, Unit: "head"},
						{Name: "caesar dressing", Quantity: 3, Unit: "tbsp"},
						{Name: "parmesan", Quantity: 0.25, Unit: "cup"},
					},
					[]string{
						"Grill the chicken and slice it.",
						"Toss the lettuce with dressing.",
						"Top with chicken and parmesan.",
					}),
				catalogRecipe("Tomato Basil Soup", "Italian", 10, 25,
					[]recipe.Ingredient{
						{Name: "canned tomatoes", Quantity: 2, Unit: "cans"},
						{Name: "onion", Quantity: 1, Unit: ""},
						{Name: "basil", Quantity: 0.5, Unit: "cup"},
						{Name: "vegetable stock", Quantity: 2, Unit: "cups"},
					},
					[]string{
						"Soften the onion in olive oil.",
						"Add tomatoes and stock, simmer 20 minutes.",
						"Blend with basil until smooth.",
					}),
				catalogRecipe("Turkey Wrap", "American", 10, 0,
					[]recipe.Ingredient{
						{Name: "tortilla", Quantity: 1, Unit: ""},
						{Name: "sliced turkey", Quantity: 4, Unit: "oz"},
						{Name: "lettuce", Quantity: 1, Unit: "cup"},
						{Name: "mustard", Quantity: 1, Unit: "tbsp"},
					},
					[]string{
						"Spread mustard over the tortilla.",
						"Layer turkey and lettuce.",
						"Roll tightly and halve.",
					}),
			},
			mealplan.MealDinner: {
				catalogRecipe("Baked Salmon with Vegetables", "Mediterranean", 10, 25,
					[]recipe.Ingredient{
						{Name: "salmon fillet", Quantity: 2, Unit: ""},
						{Name: "zucchini", Quantity: 1, Unit: ""},
						{Name: "cherry tomatoes", Quantity: 1, Unit: "cup"},
						{Name: "olive oil", Quantity: 2, Unit: "tbsp"},
					},
					[]string{
						"Arrange salmon and vegetables on a sheet pan.",
						"Drizzle with oil, season, and bake at 200C for 20 minutes.",
					}),
				catalogRecipe("Spaghetti Aglio e Olio", "Italian", 5, 15,
					[]recipe.Ingredient{
						{Name: "spaghetti", Quantity: 8, Unit: "oz"},
						{Name: "garlic", Quantity: 4, Unit: "cloves"},
						{Name: "olive oil", Quantity: 0.25, Unit: "cup"},
						{Name: "chili flakes", Quantity: 0.5, Unit: "tsp"},
					},
					[]string{
						"Cook the pasta until al dente.",
						"Gently fry sliced garlic and chili in oil.",
						"Toss the pasta in the garlic oil with a splash of pasta water.",
					}),
				catalogRecipe("Vegetable Stir Fry with Rice", "Chinese", 15, 10,
					[]recipe.Ingredient{
						{Name: "mixed vegetables", Quantity: 3, Unit: "cups"},
						{Name: "soy sauce", Quantity: 2, Unit: "tbsp"},
						{Name: "rice", Quantity: 1, Unit: "cup"},
						{Name: "ginger", Quantity: 1, Unit: "tbsp"},
					},
					[]string{
						"Cook the rice.",
						"Stir fry the vegetables with ginger over high heat.",
						"Season with soy sauce and serve over rice.",
					}),
			},
			mealplan.MealSnack: {
				catalogRecipe("Greek Yogurt with Honey", "Greek", 3, 0,
					[]recipe.Ingredient{
						{Name: "greek yogurt", Quantity: 1, Unit: "cup"},
						{Name: "honey", Quantity: 1, Unit: "tbsp"},
						{Name: "walnuts", Quantity: 2, Unit: "tbsp"},
					},
					[]string{"Spoon yogurt into a bowl.", "Top with honey and walnuts."}),
				catalogRecipe("Hummus with Carrot Sticks", "Middle Eastern", 5, 0,
					[]recipe.Ingredient{
						{Name: "hummus", Quantity: 0.5, Unit: "cup"},
						{Name: "carrots", Quantity: 2, Unit: ""},
					},
					[]string{"Peel and cut the carrots into sticks.", "Serve with hummus."}),
				catalogRecipe("Apple with Peanut Butter", "American", 3, 0,
					[]recipe.Ingredient{
						{Name: "apple", Quantity: 1, Unit: ""},
						{Name: "peanut butter", Quantity: 2, Unit: "tbsp"},
					},
					[]string{"Slice the apple.", "Serve with peanut butter for dipping."}),
			},
		},
		def: []recipe.Recipe{
			catalogRecipe("Simple Grain Bowl", "Fusion", 10, 20,
				[]recipe.Ingredient{
					{Name: "quinoa", Quantity: 1, Unit: "cup"},
					{Name: "chickpeas", Quantity: 1, Unit: "can"},
					{Name: "spinach", Quantity: 2, Unit: "cups"},
					{Name: "tahini", Quantity: 2, Unit: "tbsp"},
				},
				[]string{
					"Cook the quinoa.",
					"Warm the chickpeas and wilt the spinach.",
					"Assemble in a bowl and drizzle with tahini.",
				}),
			catalogRecipe("Caprese Sandwich", "Italian", 8, 0,
				[]recipe.Ingredient{
					{Name: "ciabatta", Quantity: 1, Unit: ""},
					{Name: "mozzarella", Quantity: 4, Unit: "oz"},
					{Name: "tomato", Quantity: 1, Unit: ""},
					{Name: "basil", Quantity: 6, Unit: "leaves"},
				},
				[]string{
					"Split the bread.",
					"Layer mozzarella, tomato, and basil.",
					"Season with olive oil and salt.",
				}),
			catalogRecipe("Lentil Soup", "Mediterranean", 10, 30,
				[]recipe.Ingredient{
					{Name: "red lentils", Quantity: 1, Unit: "cup"},
					{Name: "carrot", Quantity: 1, Unit: ""},
					{Name: "cumin", Quantity: 1, Unit: "tsp"},
					{Name: "vegetable stock", Quantity: 4, Unit: "cups"},
				},
				[]string{
					"Soften the diced carrot with cumin.",
					"Add lentils and stock, simmer until tender.",
					"Blend half for a thicker texture.",
				}),
		},
	}
}

func catalogRecipe(name, cuisine string, prep, cook int, ingredients []recipe.Ingredient, instructions []string) recipe.Recipe {
	r := recipe.New(name, recipe.SourceFallback)
	r.Cuisine = cuisine
	r.PrepTimeMinutes = prep
	r.CookTimeMinutes = cook
	r.Servings = 2
	r.Ingredients = ingredients
	r.Instructions = instructions
	return *r
}

// Pad returns exactly n catalog recipes for the meal type whose names
// do not collide with the avoid set. Each entry is renamed with a
// slot-unique "(Backup N-M)" suffix so the plan-wide uniqueness
// invariant holds even when the same base entry pads several slots.
// The serial keeps growing across collisions, so the pool cycles with
// fresh suffixes and an avoid set can never exhaust it.
func (c *FallbackCatalog) Pad(mealType mealplan.MealType, slotNumber, n int, avoid *mealplan.NameSet) []recipe.Recipe {
	if n <= 0 {
		return nil
	}
	pool, ok := c.byMeal[mealType]
	if !ok {
		pool = c.def
	}
	pool = append(append([]recipe.Recipe{}, pool...), c.def...)

	out := make([]recipe.Recipe, 0, n)
	for serial := 1; len(out) < n; serial++ {
		base := pool[(serial-1)%len(pool)]
		padded := base
		padded.ID = uuid.New()
		padded.Name = fmt.Sprintf("%s (Backup %d-%d)", base.Name, slotNumber, serial)
		if avoid != nil && avoid.Contains(padded.Name) {
			continue
		}
		out = append(out, padded)
	}
	return out
}
