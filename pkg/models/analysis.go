package models

import (
	"time"
)

// TeamInfo describes what is known about an office's team.
type TeamInfo struct {
	Size      string   `json:"size,omitempty"`
	KeyPeople []string `json:"key_people,omitempty"`
	Notes     string   `json:"notes,omitempty"`
}

// RelationsInfo describes an office's partners and professional networks.
type RelationsInfo struct {
	Partners []string `json:"partners,omitempty"`
	Networks []string `json:"networks,omitempty"`
	Notes    string   `json:"notes,omitempty"`
}

// FundingInfo describes known funding sources.
type FundingInfo struct {
	Sources []string `json:"sources,omitempty"`
	Notes   string   `json:"notes,omitempty"`
}

// ClientsInfo describes notable clients and the sectors they come from.
type ClientsInfo struct {
	Notable []string `json:"notable,omitempty"`
	Sectors []string `json:"sectors,omitempty"`
	Notes   string   `json:"notes,omitempty"`
}

// IsZero reports whether no team information is present.
func (t TeamInfo) IsZero() bool {
	return t.Size == "" && len(t.KeyPeople) == 0 && t.Notes == ""
}

// IsZero reports whether no relations information is present.
func (r RelationsInfo) IsZero() bool {
	return len(r.Partners) == 0 && len(r.Networks) == 0 && r.Notes == ""
}

// IsZero reports whether no funding information is present.
func (f FundingInfo) IsZero() bool {
	return len(f.Sources) == 0 && f.Notes == ""
}

// IsZero reports whether no clients information is present.
func (c ClientsInfo) IsZero() bool {
	return len(c.Notable) == 0 && len(c.Sectors) == 0 && c.Notes == ""
}

// AnalysisInput is one run's worth of extracted analysis for an office.
type AnalysisInput struct {
	Projects      []Project     `json:"projects,omitempty"`
	Team          TeamInfo      `json:"team,omitempty"`
	Relations     RelationsInfo `json:"relations,omitempty"`
	Funding       FundingInfo   `json:"funding,omitempty"`
	Clients       ClientsInfo   `json:"clients,omitempty"`
	Confidence    float64       `json:"confidence,omitempty"`
	AnalysisNotes string        `json:"analysis_notes,omitempty"`
}

// AnalysisDocument is the accumulated analysis for one office across runs.
// It is created on the first merge call and updated on every subsequent one;
// MergeHistory is append-only and grows until the caller trims it.
type AnalysisDocument struct {
	AnalysisID string `json:"analysis_id" db:"analysis_id"`
	TenantID   string `json:"tenant_id" db:"tenant_id"`
	OfficeID   string `json:"office_id,omitempty" db:"office_id"`

	Projects      []Project     `json:"projects"`
	Team          TeamInfo      `json:"team,omitempty"`
	Relations     RelationsInfo `json:"relations,omitempty"`
	Funding       FundingInfo   `json:"funding,omitempty"`
	Clients       ClientsInfo   `json:"clients,omitempty"`
	Confidence    float64       `json:"confidence,omitempty"`
	AnalysisNotes string        `json:"analysis_notes,omitempty"`

	MergeHistory []MergeHistoryEntry `json:"merge_history,omitempty"`

	CreatedAt time.Time `json:"created_at,omitempty" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at,omitempty" db:"updated_at"`
}

// MergeHistoryEntry is the audit record appended on every merge call.
type MergeHistoryEntry struct {
	AnalysisID              string         `json:"analysis_id"`
	MergedAt                time.Time      `json:"merged_at"`
	NewProjectsCount        int            `json:"new_projects_count"`
	TotalProjectsAfterMerge int            `json:"total_projects_after_merge"`
	Feedback                FeedbackReport `json:"feedback"`
}

// MergeAnalysisRequest is the request body for an analysis merge call.
type MergeAnalysisRequest struct {
	OfficeID string        `json:"office_id,omitempty"`
	Input    AnalysisInput `json:"input" validate:"required"`
}

// MergeAnalysisResponse returns the merged document and the run feedback.
type MergeAnalysisResponse struct {
	Analysis AnalysisDocument `json:"analysis"`
	Feedback FeedbackReport   `json:"feedback"`
}
