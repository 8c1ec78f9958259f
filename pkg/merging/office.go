// Package merging materializes merged records once a matcher has delivered
// its verdict. All functions are pure: callers supply the clock and persist
// the results.
package merging

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mkalnins/bryony/pkg/fingerprint"
	"github.com/mkalnins/bryony/pkg/models"
)

// VersionMode selects what a dataVersion bump means.
type VersionMode string

const (
	// VersionOnRescrape bumps dataVersion and lastUpdated on every merge,
	// recording that a rescrape happened even when nothing changed.
	VersionOnRescrape VersionMode = "rescrape"
	// VersionOnChange bumps dataVersion and lastUpdated only when a scraped
	// field actually changed value; scrapedAt still advances every run.
	VersionOnChange VersionMode = "change"
)

// Valid reports whether the mode is one of the supported values.
func (m VersionMode) Valid() bool {
	return m == VersionOnRescrape || m == VersionOnChange
}

// OfficeMerger merges re-scraped offices into their existing records.
type OfficeMerger struct {
	mode VersionMode
}

// NewOfficeMerger creates an OfficeMerger. An unknown mode falls back to
// VersionOnRescrape.
func NewOfficeMerger(mode VersionMode) *OfficeMerger {
	if !mode.Valid() {
		mode = VersionOnRescrape
	}
	return &OfficeMerger{mode: mode}
}

// Merge combines an incoming scrape with the existing record. Scraped fields
// take the incoming value when present; identity and protected fields always
// come from the existing record. The merged record carries
// existedInDatabase=true.
func (m *OfficeMerger) Merge(existing, incoming models.Office, now time.Time) models.Office {
	merged := models.Office{
		UniqueID: keep(existing.UniqueID, incoming.UniqueID),
		TenantID: keep(existing.TenantID, incoming.TenantID),
		PlaceID:  keep(existing.PlaceID, incoming.PlaceID),

		Name:     take(incoming.Name, existing.Name),
		Address:  take(incoming.Address, existing.Address),
		Category: take(incoming.Category, existing.Category),
		Phone:    take(incoming.Phone, existing.Phone),
		Website:  take(incoming.Website, existing.Website),

		// Protected: only the user-edit operation writes these.
		ModifiedName: existing.ModifiedName,
		CustomData:   existing.CustomData,

		ExistedInDatabase: true,
	}

	changed := fingerprint.HasChanged(fingerprint.Office(existing), fingerprint.Office(merged))

	merged.Metadata = existing.Metadata
	merged.Metadata.ScrapedAt = now
	merged.Metadata.CustomDataExists = len(existing.CustomData) > 0

	if m.mode == VersionOnRescrape || changed {
		merged.Metadata.DataVersion = existing.Metadata.DataVersion + 1
		merged.Metadata.LastUpdated = now
	}

	return merged
}

// NewRecord initializes a first-sighting office: version 1, current
// timestamps, existedInDatabase=false. An office scraped without a unique id
// gets one here; persisting a blank id would collapse every such office into
// a single row under the tenant+id key.
func (m *OfficeMerger) NewRecord(incoming models.Office, now time.Time) models.Office {
	record := incoming
	if strings.TrimSpace(record.UniqueID) == "" {
		record.UniqueID = uuid.NewString()
	}
	record.Metadata = models.OfficeMetadata{
		ScrapedAt:        now,
		LastUpdated:      now,
		DataVersion:      1,
		CustomDataExists: len(incoming.CustomData) > 0,
	}
	record.ExistedInDatabase = false
	return record
}

// ApplyUserEdit writes the protected fields. This is the only operation that
// touches modifiedName and customData; it bumps lastModified, not
// dataVersion.
func ApplyUserEdit(office models.Office, edit models.UserEditRequest, now time.Time) models.Office {
	if edit.ModifiedName != nil {
		office.ModifiedName = *edit.ModifiedName
	}
	if edit.CustomData != nil {
		office.CustomData = edit.CustomData
	}
	office.Metadata.CustomDataExists = len(office.CustomData) > 0
	office.Metadata.LastModified = now
	return office
}

// take prefers the incoming value when it is non-blank.
func take(incoming, existing string) string {
	if strings.TrimSpace(incoming) != "" {
		return incoming
	}
	return existing
}

// keep prefers the existing value; identity fields never change once set.
func keep(existing, incoming string) string {
	if strings.TrimSpace(existing) != "" {
		return existing
	}
	return incoming
}
