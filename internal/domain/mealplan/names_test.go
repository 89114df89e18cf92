package mealplan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "chicken curry", NormalizeName("Chicken  Curry "))
	assert.Equal(t, "chicken curry", NormalizeName("chicken curry"))
	assert.Equal(t, "chicken curry", NormalizeName("\tCHICKEN\nCURRY"))
	assert.Equal(t, "", NormalizeName("   "))
}

func TestNameSetDedupesAcrossCasing(t *testing.T) {
	set := NewNameSet()

	assert.True(t, set.Add("Chicken Curry"))
	assert.False(t, set.Add("chicken  curry"))
	assert.True(t, set.Contains("CHICKEN CURRY"))
	assert.Equal(t, 1, set.Len())
}

func TestNameSetIgnoresEmptyNames(t *testing.T) {
	set := NewNameSet()

	assert.False(t, set.Add("  "))
	assert.Equal(t, 0, set.Len())
}

func TestNameSetNamesPreserveInsertionOrder(t *testing.T) {
	set := NewNameSet("Pad Thai", "Ramen")
	set.Add("Tacos")

	assert.Equal(t, []string{"Pad Thai", "Ramen", "Tacos"}, set.Names())
}

func TestNameSetSeededFromConstructor(t *testing.T) {
	set := NewNameSet("Omelette", "omelette", "Granola")
	assert.Equal(t, 2, set.Len())
}
