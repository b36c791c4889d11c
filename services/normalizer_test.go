package services_test

import (
	"listing-service/services"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeValue_Canonicalization(t *testing.T) {
	n := services.NewAttributeNormalizer(nil)

	assert.Equal(t, "dark blue", n.NormalizeValue("color_name", "  Dark-Blue "))
	assert.Equal(t, "dark blue", n.NormalizeValue("color_name", "dark_blue"))
	assert.Equal(t, "dark blue", n.NormalizeValue("color_name", "DARK   BLUE"))
}

func TestNormalizeValue_Synonyms(t *testing.T) {
	n := services.NewAttributeNormalizer(map[string]string{
		"Navy": "dark blue",
		"XL":   "extra large",
	})

	assert.Equal(t, "dark blue", n.NormalizeValue("color_name", "navy"))
	assert.Equal(t, "extra large", n.NormalizeValue("fit", "xl"))
	assert.Equal(t, "red", n.NormalizeValue("color_name", "Red"))
}

func TestNormalizeValue_SizeRounding(t *testing.T) {
	n := services.NewAttributeNormalizer(nil)

	assert.Equal(t, "20", n.NormalizeValue("size_name", "19.88"))
	assert.Equal(t, "20", n.NormalizeValue("ring_size", "20"))
	assert.Equal(t, "7", n.NormalizeValue("size_name", "7.2"))
	// Non-size keys keep fractional values.
	assert.Equal(t, "19.88", n.NormalizeValue("weight", "19.88"))
}

func TestNormalizeAll_Idempotent(t *testing.T) {
	n := services.NewAttributeNormalizer(map[string]string{"navy": "dark blue"})

	raw := map[string]string{
		"Color_Name": "NAVY",
		"Size_Name":  "19.88",
		"Material":   " Sterling-Silver ",
	}

	once := n.NormalizeAll(raw)
	twice := n.NormalizeAll(once)

	assert.Equal(t, once, twice)
	assert.Equal(t, "dark blue", once["color_name"])
	assert.Equal(t, "20", once["size_name"])
	assert.Equal(t, "sterling silver", once["material"])
}

func TestGeneralizeTitle(t *testing.T) {
	assert.Equal(t, "Classic Hoop Earrings", services.GeneralizeTitle("Classic Hoop Earrings - Gold"))
	assert.Equal(t, "Classic Hoop Earrings", services.GeneralizeTitle("Classic Hoop Earrings"))
	assert.Equal(t, "Cat Collar - Reflective", services.GeneralizeTitle("Cat Collar - Reflective - Red"))
}
