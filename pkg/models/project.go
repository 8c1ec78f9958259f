package models

// ProjectStatus is the lifecycle status of a project record.
type ProjectStatus string

const (
	ProjectStatusPlanning   ProjectStatus = "planning"
	ProjectStatusInProgress ProjectStatus = "in-progress"
	ProjectStatusCompleted  ProjectStatus = "completed"
	ProjectStatusCancelled  ProjectStatus = "cancelled"
	ProjectStatusOnHold     ProjectStatus = "on-hold"
)

// Project is a free-text-derived project record owned by exactly one office.
// Projects have no assigned identity; the matcher infers identity from
// content on every merge.
type Project struct {
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Location    string        `json:"location,omitempty"`
	UseCase     string        `json:"use_case,omitempty"`
	Size        string        `json:"size,omitempty"` // free text, may embed a magnitude ("20000 m2")
	Status      ProjectStatus `json:"status,omitempty"`
}

// ProjectSnapshot captures the pre-merge values of the fields an update may
// overwrite, so a feedback report can show what changed.
type ProjectSnapshot struct {
	Status      ProjectStatus `json:"status,omitempty"`
	Description string        `json:"description,omitempty"`
	Size        string        `json:"size,omitempty"`
	Location    string        `json:"location,omitempty"`
	UseCase     string        `json:"use_case,omitempty"`
}

// Snapshot returns the diffable fields of p as they are right now.
func (p Project) Snapshot() ProjectSnapshot {
	return ProjectSnapshot{
		Status:      p.Status,
		Description: p.Description,
		Size:        p.Size,
		Location:    p.Location,
		UseCase:     p.UseCase,
	}
}
