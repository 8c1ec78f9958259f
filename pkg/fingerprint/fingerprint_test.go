package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mkalnins/bryony/pkg/models"
)

func TestGenerate(t *testing.T) {
	t.Run("deterministic across key order", func(t *testing.T) {
		a := Generate(map[string]any{"name": "Nordic", "phone": "123"})
		b := Generate(map[string]any{"phone": "123", "name": "Nordic"})
		assert.Equal(t, a, b)
	})

	t.Run("value change produces a different hash", func(t *testing.T) {
		a := Generate(map[string]any{"name": "Nordic"})
		b := Generate(map[string]any{"name": "Baltic"})
		assert.True(t, HasChanged(a, b))
	})

	t.Run("nested structures", func(t *testing.T) {
		a := Generate(map[string]any{"tags": []any{"a", "b"}, "meta": map[string]any{"x": 1}})
		b := Generate(map[string]any{"meta": map[string]any{"x": 1}, "tags": []any{"a", "b"}})
		assert.Equal(t, a, b)
	})
}

func TestOffice(t *testing.T) {
	base := models.Office{Name: "Nordic Architects", Address: "Brīvības 10, Rīga", PlaceID: "P1"}

	t.Run("protected fields do not affect the fingerprint", func(t *testing.T) {
		edited := base
		edited.ModifiedName = "My Favourite Architects"
		edited.CustomData = map[string]any{"rating": 5}
		assert.Equal(t, Office(base), Office(edited))
	})

	t.Run("metadata does not affect the fingerprint", func(t *testing.T) {
		bumped := base
		bumped.Metadata.DataVersion = 7
		assert.Equal(t, Office(base), Office(bumped))
	})

	t.Run("scraped field change is detected", func(t *testing.T) {
		changed := base
		changed.Phone = "+371-2000000"
		assert.True(t, HasChanged(Office(base), Office(changed)))
	})

	t.Run("whitespace is not a change", func(t *testing.T) {
		padded := base
		padded.Name = "  Nordic Architects "
		assert.Equal(t, Office(base), Office(padded))
	})
}
