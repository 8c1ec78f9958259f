package models

import (
	"time"
)

// Office represents a scraped business listing. The same physical office is
// re-scraped on every run; identity is carried by UniqueID (caller-assigned)
// and PlaceID (stable external identifier from the mapping source).
type Office struct {
	UniqueID string `json:"unique_id" db:"unique_id"`
	TenantID string `json:"tenant_id" db:"tenant_id"`

	Name     string `json:"name" db:"name"`
	Address  string `json:"address" db:"address"`
	PlaceID  string `json:"place_id,omitempty" db:"place_id"`
	Category string `json:"category,omitempty" db:"category"`
	Phone    string `json:"phone,omitempty" db:"phone"`
	Website  string `json:"website,omitempty" db:"website"`

	// ModifiedName and CustomData are user-owned. The merge engine never
	// writes them; only the explicit user-edit operation does.
	ModifiedName string         `json:"modified_name,omitempty" db:"modified_name"`
	CustomData   map[string]any `json:"custom_data,omitempty" db:"-"`

	Metadata OfficeMetadata `json:"metadata" db:"-"`

	// ExistedInDatabase reports whether this record matched an existing
	// office during the last resolve. It is a per-run status, not state.
	ExistedInDatabase bool `json:"existed_in_database" db:"-"`
}

// OfficeMetadata tracks scrape and merge bookkeeping for an office.
type OfficeMetadata struct {
	ScrapedAt        time.Time `json:"scraped_at"`
	LastUpdated      time.Time `json:"last_updated"`
	DataVersion      int       `json:"data_version"`
	CustomDataExists bool      `json:"custom_data_exists"`
	// LastModified is set when a user edits custom data, not by merges.
	LastModified time.Time `json:"last_modified,omitempty"`
}

// OfficeStatus is the per-record outcome of an office resolve run.
type OfficeStatus struct {
	UniqueID          string `json:"unique_id"`
	ExistedInDatabase bool   `json:"existed_in_database"`
}

// UserEditRequest carries an explicit user edit of the protected fields.
type UserEditRequest struct {
	ModifiedName *string        `json:"modified_name,omitempty"`
	CustomData   map[string]any `json:"custom_data,omitempty"`
}

// ResolveOfficesRequest is the request body for a batch office resolve.
type ResolveOfficesRequest struct {
	Offices []Office `json:"offices" validate:"required,min=1"`
}

// ResolveOfficesResponse returns the merged set and per-record statuses.
type ResolveOfficesResponse struct {
	Offices  []Office       `json:"offices"`
	Statuses []OfficeStatus `json:"statuses"`
}

// OfficeListResponse is the response for listing offices.
type OfficeListResponse struct {
	Items      []Office `json:"items"`
	TotalCount int      `json:"total_count"`
	Page       int      `json:"page"`
	PageSize   int      `json:"page_size"`
}
