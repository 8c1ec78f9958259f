package normalizers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"lowercases and trims", "  Nordic Architects  ", "nordic architects"},
		{"canonicalizes centre", "Riverside Centre", "riverside center"},
		{"strips punctuation", "Nordic Architects, SIA.", "nordic architects sia"},
		{"collapses whitespace", "Nordic   Architects", "nordic architects"},
		{"keeps digits", "Riverside Tower Phase 2", "riverside tower phase 2"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeName(tt.input))
		})
	}
}

func TestNormalizeAddress(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"comma is not identity", "Brīvības 10, Rīga", "brīvības 10 rīga"},
		{"street designator", "10 Main Street", "10 main st"},
		{"latvian designator", "Brīvības iela 10", "brīvības st 10"},
		{"already short form", "10 main st", "10 main st"},
		{"collapses whitespace", "Brīvības  10,   Rīga", "brīvības 10 rīga"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeAddress(tt.input))
		})
	}
}

func TestNormalizeAbbreviations(t *testing.T) {
	assert.Equal(t, NormalizeAbbreviations("Riverside Centre"), NormalizeAbbreviations("Riverside Center"))
	assert.Equal(t, NormalizeAbbreviations("Elizabetes Street 45"), NormalizeAbbreviations("Elizabetes St 45"))
}

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "3712000000", NormalizePhone("+371-2000000"))
	assert.Equal(t, "", NormalizePhone("no digits"))
}

func TestRegistry(t *testing.T) {
	t.Run("apply named normalizer", func(t *testing.T) {
		assert.Equal(t, "nordic", Apply("  NORDIC  ", "fold"))
	})

	t.Run("unknown normalizer passes through", func(t *testing.T) {
		assert.Equal(t, "unchanged", Apply("unchanged", "missing"))
	})

	t.Run("chain", func(t *testing.T) {
		assert.Equal(t, "10 main st", ApplyChain("  10 Main Street ", "fold", "abbreviations"))
	})

	t.Run("custom registration", func(t *testing.T) {
		Register("reverse_test", func(s string) string {
			runes := []rune(s)
			for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
				runes[i], runes[j] = runes[j], runes[i]
			}
			return string(runes)
		})
		fn, ok := Get("reverse_test")
		assert.True(t, ok)
		assert.Equal(t, "cba", fn("abc"))
	})
}
