package merging

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mkalnins/bryony/pkg/models"
)

var mergeTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func existingOffice() models.Office {
	return models.Office{
		UniqueID:     "o-1",
		TenantID:     "t-1",
		Name:         "Nordic Architects",
		Address:      "Brīvības 10, Rīga",
		PlaceID:      "P1",
		Category:     "architect",
		ModifiedName: "My Architects",
		CustomData:   map[string]any{"rating": 5},
		Metadata: models.OfficeMetadata{
			ScrapedAt:   mergeTime.Add(-24 * time.Hour),
			LastUpdated: mergeTime.Add(-24 * time.Hour),
			DataVersion: 3,
		},
	}
}

func TestOfficeMerger_Merge(t *testing.T) {
	merger := NewOfficeMerger(VersionOnRescrape)

	t.Run("incoming scraped fields win when present", func(t *testing.T) {
		incoming := models.Office{
			Name:    "Nordic Architects",
			Address: "Brīvības 10, Rīga",
			PlaceID: "P1",
			Phone:   "+371-2000000",
		}

		merged := merger.Merge(existingOffice(), incoming, mergeTime)

		assert.Equal(t, "+371-2000000", merged.Phone)
		assert.Equal(t, "architect", merged.Category) // blank incoming keeps existing
		assert.True(t, merged.ExistedInDatabase)
		assert.Equal(t, 4, merged.Metadata.DataVersion)
		assert.Equal(t, mergeTime, merged.Metadata.ScrapedAt)
		assert.Equal(t, mergeTime, merged.Metadata.LastUpdated)
	})

	t.Run("protected fields always come from existing", func(t *testing.T) {
		incoming := models.Office{
			Name:         "Nordic Architects",
			Address:      "Brīvības 10, Rīga",
			ModifiedName: "Scraper Should Not Set This",
			CustomData:   map[string]any{"injected": true},
		}

		merged := merger.Merge(existingOffice(), incoming, mergeTime)

		assert.Equal(t, "My Architects", merged.ModifiedName)
		assert.Equal(t, map[string]any{"rating": 5}, merged.CustomData)
		assert.True(t, merged.Metadata.CustomDataExists)
	})

	t.Run("identity fields never change", func(t *testing.T) {
		incoming := models.Office{
			UniqueID: "o-other",
			Name:     "Nordic Architects",
			Address:  "Brīvības 10, Rīga",
			PlaceID:  "P-other",
		}

		merged := merger.Merge(existingOffice(), incoming, mergeTime)

		assert.Equal(t, "o-1", merged.UniqueID)
		assert.Equal(t, "P1", merged.PlaceID)
	})

	t.Run("version is monotonically non-decreasing across merges", func(t *testing.T) {
		record := existingOffice()
		for i := 0; i < 3; i++ {
			next := merger.Merge(record, record, mergeTime.Add(time.Duration(i)*time.Hour))
			assert.GreaterOrEqual(t, next.Metadata.DataVersion, record.Metadata.DataVersion)
			record = next
		}
	})
}

func TestOfficeMerger_VersionModes(t *testing.T) {
	unchanged := models.Office{
		Name:    "Nordic Architects",
		Address: "Brīvības 10, Rīga",
		PlaceID: "P1",
	}

	t.Run("rescrape mode bumps even when nothing changed", func(t *testing.T) {
		merger := NewOfficeMerger(VersionOnRescrape)
		existing := existingOffice()
		existing.Category = ""

		merged := merger.Merge(existing, unchanged, mergeTime)
		assert.Equal(t, existing.Metadata.DataVersion+1, merged.Metadata.DataVersion)
	})

	t.Run("change mode keeps the version when nothing changed", func(t *testing.T) {
		merger := NewOfficeMerger(VersionOnChange)
		existing := existingOffice()
		existing.Category = ""

		merged := merger.Merge(existing, unchanged, mergeTime)
		assert.Equal(t, existing.Metadata.DataVersion, merged.Metadata.DataVersion)
		assert.Equal(t, existing.Metadata.LastUpdated, merged.Metadata.LastUpdated)
		assert.Equal(t, mergeTime, merged.Metadata.ScrapedAt)
	})

	t.Run("change mode bumps when a field changed", func(t *testing.T) {
		merger := NewOfficeMerger(VersionOnChange)
		existing := existingOffice()
		existing.Category = ""

		withPhone := unchanged
		withPhone.Phone = "+371-2000000"

		merged := merger.Merge(existing, withPhone, mergeTime)
		assert.Equal(t, existing.Metadata.DataVersion+1, merged.Metadata.DataVersion)
		assert.Equal(t, mergeTime, merged.Metadata.LastUpdated)
	})

	t.Run("unknown mode falls back to rescrape semantics", func(t *testing.T) {
		merger := NewOfficeMerger(VersionMode("bogus"))
		existing := existingOffice()

		merged := merger.Merge(existing, unchanged, mergeTime)
		assert.Equal(t, existing.Metadata.DataVersion+1, merged.Metadata.DataVersion)
	})
}

func TestOfficeMerger_NewRecord(t *testing.T) {
	merger := NewOfficeMerger(VersionOnRescrape)

	record := merger.NewRecord(models.Office{
		UniqueID: "o-9",
		Name:     "Baltic Design Studio",
		Address:  "Elizabetes 22, Rīga",
	}, mergeTime)

	assert.Equal(t, "o-9", record.UniqueID)
	assert.Equal(t, 1, record.Metadata.DataVersion)
	assert.Equal(t, mergeTime, record.Metadata.ScrapedAt)
	assert.Equal(t, mergeTime, record.Metadata.LastUpdated)
	assert.False(t, record.ExistedInDatabase)
	assert.False(t, record.Metadata.CustomDataExists)
}

func TestOfficeMerger_NewRecordGeneratesMissingID(t *testing.T) {
	merger := NewOfficeMerger(VersionOnRescrape)

	first := merger.NewRecord(models.Office{Name: "Baltic Design Studio", Address: "Elizabetes 22, Rīga"}, mergeTime)
	second := merger.NewRecord(models.Office{Name: "Jurmala Planning Office", Address: "Jomas 3, Jūrmala"}, mergeTime)

	assert.NotEmpty(t, first.UniqueID)
	assert.NotEmpty(t, second.UniqueID)
	assert.NotEqual(t, first.UniqueID, second.UniqueID)

	blank := merger.NewRecord(models.Office{UniqueID: "   ", Name: "Nordic Architects"}, mergeTime)
	assert.NotEqual(t, "   ", blank.UniqueID)
	assert.NotEmpty(t, blank.UniqueID)
}

func TestApplyUserEdit(t *testing.T) {
	t.Run("sets protected fields and lastModified", func(t *testing.T) {
		name := "Renamed by User"
		edited := ApplyUserEdit(existingOffice(), models.UserEditRequest{
			ModifiedName: &name,
			CustomData:   map[string]any{"starred": true},
		}, mergeTime)

		assert.Equal(t, "Renamed by User", edited.ModifiedName)
		assert.Equal(t, map[string]any{"starred": true}, edited.CustomData)
		assert.True(t, edited.Metadata.CustomDataExists)
		assert.Equal(t, mergeTime, edited.Metadata.LastModified)
	})

	t.Run("does not bump dataVersion", func(t *testing.T) {
		existing := existingOffice()
		edited := ApplyUserEdit(existing, models.UserEditRequest{CustomData: map[string]any{"x": 1}}, mergeTime)
		assert.Equal(t, existing.Metadata.DataVersion, edited.Metadata.DataVersion)
	})

	t.Run("nil fields leave values untouched", func(t *testing.T) {
		existing := existingOffice()
		edited := ApplyUserEdit(existing, models.UserEditRequest{}, mergeTime)
		assert.Equal(t, existing.ModifiedName, edited.ModifiedName)
		assert.Equal(t, existing.CustomData, edited.CustomData)
	})
}
