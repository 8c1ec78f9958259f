// Package feedback accumulates per-record merge outcomes into the run-level
// report returned to callers and appended to the merge history.
package feedback

import (
	"github.com/mkalnins/bryony/pkg/models"
)

// Builder collects outcomes during one merge run. The zero value is not
// usable; construct with NewBuilder.
type Builder struct {
	report models.FeedbackReport
}

// NewBuilder creates a builder for one merge run.
func NewBuilder(isNewAnalysis bool) *Builder {
	return &Builder{
		report: models.FeedbackReport{
			IsNewAnalysis: isNewAnalysis,
			Projects: models.ProjectsFeedback{
				Added:   []models.ProjectOutcome{},
				Blocked: []models.ProjectOutcome{},
				Updated: []models.ProjectOutcome{},
			},
		},
	}
}

// ProjectAdded records a project appended as new.
func (b *Builder) ProjectAdded(name string) {
	b.report.Projects.Added = append(b.report.Projects.Added, models.ProjectOutcome{
		Kind: models.OutcomeAdded,
		Name: name,
	})
}

// ProjectUpdated records an in-place merge, with the pre-merge snapshot so
// callers can show what changed.
func (b *Builder) ProjectUpdated(name string, previous models.ProjectSnapshot) {
	snapshot := previous
	b.report.Projects.Updated = append(b.report.Projects.Updated, models.ProjectOutcome{
		Kind:     models.OutcomeUpdated,
		Name:     name,
		Previous: &snapshot,
	})
}

// ProjectBlocked records a discarded near-duplicate.
func (b *Builder) ProjectBlocked(name, reason, similarTo string) {
	b.report.Projects.Blocked = append(b.report.Projects.Blocked, models.ProjectOutcome{
		Kind:      models.OutcomeBlocked,
		Name:      name,
		Reason:    reason,
		SimilarTo: similarTo,
	})
}

// SectionPresence records which analysis sections the incoming run supplied.
// These are presence flags, not diffs: supplying a section that happens to
// repeat existing values still counts.
func (b *Builder) SectionPresence(team, relations, funding, clients bool) {
	b.report.Team = models.SectionFlag{Updated: team}
	b.report.Relations = models.SectionFlag{Updated: relations}
	b.report.Funding = models.SectionFlag{Updated: funding}
	b.report.Clients = models.SectionFlag{Updated: clients}
}

// AddedCount returns the number of projects added so far.
func (b *Builder) AddedCount() int {
	return len(b.report.Projects.Added)
}

// Report finalizes the summary counts and returns the report.
func (b *Builder) Report() models.FeedbackReport {
	b.report.Summary = models.FeedbackSummary{
		TotalProjectsAdded:   len(b.report.Projects.Added),
		TotalProjectsBlocked: len(b.report.Projects.Blocked),
		TotalProjectsUpdated: len(b.report.Projects.Updated),
	}
	return b.report
}
