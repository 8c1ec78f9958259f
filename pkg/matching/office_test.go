package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mkalnins/bryony/pkg/models"
)

func TestOfficeMatcher_Match(t *testing.T) {
	matcher := NewOfficeMatcher()

	existing := []models.Office{
		{UniqueID: "o-1", Name: "Nordic Architects", Address: "Brīvības 10, Rīga", PlaceID: "P1"},
		{UniqueID: "o-2", Name: "Baltic Design Studio", Address: "Elizabetes 22, Rīga"},
	}

	t.Run("place id match wins even when name and address differ", func(t *testing.T) {
		incoming := models.Office{Name: "Nordic Architects SIA", Address: "Brīvības iela 10", PlaceID: "P1"}
		idx, found := matcher.Match(incoming, existing)
		assert.True(t, found)
		assert.Equal(t, 0, idx)
	})

	t.Run("name and address match without place id", func(t *testing.T) {
		incoming := models.Office{Name: "baltic design studio", Address: "ELIZABETES 22, RĪGA"}
		idx, found := matcher.Match(incoming, existing)
		assert.True(t, found)
		assert.Equal(t, 1, idx)
	})

	t.Run("identical record is always a duplicate", func(t *testing.T) {
		idx, found := matcher.Match(existing[0], existing)
		assert.True(t, found)
		assert.Equal(t, 0, idx)
	})

	t.Run("same name different address is new", func(t *testing.T) {
		incoming := models.Office{Name: "Baltic Design Studio", Address: "Tērbatas 5, Rīga"}
		_, found := matcher.Match(incoming, existing)
		assert.False(t, found)
	})

	t.Run("unknown place id falls through to name and address", func(t *testing.T) {
		incoming := models.Office{Name: "Baltic Design Studio", Address: "Elizabetes 22, Rīga", PlaceID: "P9"}
		idx, found := matcher.Match(incoming, existing)
		assert.True(t, found)
		assert.Equal(t, 1, idx)
	})

	t.Run("missing name and address is new", func(t *testing.T) {
		_, found := matcher.Match(models.Office{}, existing)
		assert.False(t, found)
	})

	t.Run("empty existing set", func(t *testing.T) {
		_, found := matcher.Match(existing[0], nil)
		assert.False(t, found)
	})
}
