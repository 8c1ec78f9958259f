package models

// OutcomeKind classifies what the merge engine did with one incoming record.
type OutcomeKind string

const (
	// OutcomeAdded means the record had no match and was appended.
	OutcomeAdded OutcomeKind = "added"
	// OutcomeUpdated means the record matched with high confidence and was
	// merged into the existing record in place.
	OutcomeUpdated OutcomeKind = "updated"
	// OutcomeBlocked means the record was judged too similar to an existing
	// one to add safely, but not similar enough to merge. It is discarded
	// and reported for human review.
	OutcomeBlocked OutcomeKind = "blocked"
)

// ProjectOutcome is the per-project merge outcome. Exactly one of the
// optional payloads is populated, according to Kind: Updated carries the
// pre-merge snapshot, Blocked carries the reason and the record it
// collided with.
type ProjectOutcome struct {
	Kind OutcomeKind `json:"kind"`
	Name string      `json:"name"`

	// Updated only.
	Previous *ProjectSnapshot `json:"previous,omitempty"`

	// Blocked only.
	Reason    string `json:"reason,omitempty"`
	SimilarTo string `json:"similar_to,omitempty"`
}

// SectionFlag reports whether a run supplied data for a section. It is a
// presence signal: true whenever the incoming section was non-empty,
// whether or not any value actually differed.
type SectionFlag struct {
	Updated bool `json:"updated"`
}

// ProjectsFeedback lists the per-project outcomes of one merge run.
type ProjectsFeedback struct {
	Added   []ProjectOutcome `json:"added"`
	Blocked []ProjectOutcome `json:"blocked"`
	Updated []ProjectOutcome `json:"updated"`
}

// FeedbackSummary rolls the project outcomes up into counts.
type FeedbackSummary struct {
	TotalProjectsAdded   int `json:"total_projects_added"`
	TotalProjectsBlocked int `json:"total_projects_blocked"`
	TotalProjectsUpdated int `json:"total_projects_updated"`
}

// FeedbackReport is the run-level report returned to the caller and recorded
// in the analysis merge history.
type FeedbackReport struct {
	IsNewAnalysis bool             `json:"is_new_analysis"`
	Projects      ProjectsFeedback `json:"projects"`
	Team          SectionFlag      `json:"team"`
	Relations     SectionFlag      `json:"relations"`
	Funding       SectionFlag      `json:"funding"`
	Clients       SectionFlag      `json:"clients"`
	Summary       FeedbackSummary  `json:"summary"`
}
