package merging

import (
	"strings"
	"time"

	"github.com/mkalnins/bryony/pkg/feedback"
	"github.com/mkalnins/bryony/pkg/matching"
	"github.com/mkalnins/bryony/pkg/models"
)

// notesSeparator joins analysis notes accumulated across runs.
const notesSeparator = "\n---\n"

// AnalysisMerger merges one run's analysis input into the accumulated
// analysis document for an office.
type AnalysisMerger struct {
	matcher *matching.ProjectMatcher
}

// NewAnalysisMerger creates a new AnalysisMerger
func NewAnalysisMerger() *AnalysisMerger {
	return &AnalysisMerger{matcher: matching.NewProjectMatcher()}
}

// Merge folds the input into the existing document, or creates the document
// when existing is nil. Incoming projects are matched one at a time against
// the already-merged list, so two near-identical projects arriving in the
// same batch collapse into one instead of becoming duplicates.
func (m *AnalysisMerger) Merge(existing *models.AnalysisDocument, input models.AnalysisInput, analysisID string, now time.Time) (models.AnalysisDocument, models.FeedbackReport) {
	isNew := existing == nil

	var doc models.AnalysisDocument
	if isNew {
		doc = models.AnalysisDocument{
			AnalysisID: analysisID,
			CreatedAt:  now,
		}
	} else {
		doc = *existing
		if doc.AnalysisID == "" {
			doc.AnalysisID = analysisID
		}
	}

	fb := feedback.NewBuilder(isNew)

	doc.Projects = m.mergeProjects(doc.Projects, input.Projects, fb)
	doc.Team = mergeTeam(doc.Team, input.Team)
	doc.Relations = mergeRelations(doc.Relations, input.Relations)
	doc.Funding = mergeFunding(doc.Funding, input.Funding)
	doc.Clients = mergeClients(doc.Clients, input.Clients)

	if input.Confidence > doc.Confidence {
		doc.Confidence = input.Confidence
	}
	doc.AnalysisNotes = concatNotes(doc.AnalysisNotes, input.AnalysisNotes)

	fb.SectionPresence(!input.Team.IsZero(), !input.Relations.IsZero(), !input.Funding.IsZero(), !input.Clients.IsZero())
	report := fb.Report()

	doc.UpdatedAt = now
	doc.MergeHistory = append(doc.MergeHistory, models.MergeHistoryEntry{
		AnalysisID:              doc.AnalysisID,
		MergedAt:                now,
		NewProjectsCount:        report.Summary.TotalProjectsAdded,
		TotalProjectsAfterMerge: len(doc.Projects),
		Feedback:                report,
	})

	return doc, report
}

// mergeProjects matches each incoming project against the in-progress merged
// list and applies the verdict: merge in place, append, or discard.
func (m *AnalysisMerger) mergeProjects(existing, incoming []models.Project, fb *feedback.Builder) []models.Project {
	merged := make([]models.Project, len(existing))
	copy(merged, existing)

	for _, project := range incoming {
		verdict := m.matcher.Match(project, merged)

		switch {
		case verdict.MatchIndex < 0:
			added := project
			if added.Status == "" {
				added.Status = models.ProjectStatusPlanning
			}
			merged = append(merged, added)
			fb.ProjectAdded(added.Name)

		case verdict.ExactMatch:
			previous := merged[verdict.MatchIndex].Snapshot()
			merged[verdict.MatchIndex] = mergeProject(merged[verdict.MatchIndex], project)
			fb.ProjectUpdated(merged[verdict.MatchIndex].Name, previous)

		default:
			fb.ProjectBlocked(project.Name, verdict.Reason, merged[verdict.MatchIndex].Name)
		}
	}

	return merged
}

// mergeProject merges an incoming project into its matched record. Incoming
// values win when present; blank incoming fields keep the existing value.
func mergeProject(existing, incoming models.Project) models.Project {
	merged := models.Project{
		Name:        take(incoming.Name, existing.Name),
		Description: take(incoming.Description, existing.Description),
		Location:    take(incoming.Location, existing.Location),
		UseCase:     take(incoming.UseCase, existing.UseCase),
		Size:        take(incoming.Size, existing.Size),
	}

	switch {
	case incoming.Status != "":
		merged.Status = incoming.Status
	case existing.Status != "":
		merged.Status = existing.Status
	default:
		merged.Status = models.ProjectStatusPlanning
	}

	return merged
}

func mergeTeam(existing, incoming models.TeamInfo) models.TeamInfo {
	return models.TeamInfo{
		Size:      take(incoming.Size, existing.Size),
		KeyPeople: unionFold(existing.KeyPeople, incoming.KeyPeople),
		Notes:     take(incoming.Notes, existing.Notes),
	}
}

func mergeRelations(existing, incoming models.RelationsInfo) models.RelationsInfo {
	return models.RelationsInfo{
		Partners: unionFold(existing.Partners, incoming.Partners),
		Networks: unionFold(existing.Networks, incoming.Networks),
		Notes:    take(incoming.Notes, existing.Notes),
	}
}

func mergeFunding(existing, incoming models.FundingInfo) models.FundingInfo {
	return models.FundingInfo{
		Sources: unionFold(existing.Sources, incoming.Sources),
		Notes:   take(incoming.Notes, existing.Notes),
	}
}

func mergeClients(existing, incoming models.ClientsInfo) models.ClientsInfo {
	return models.ClientsInfo{
		Notable: unionFold(existing.Notable, incoming.Notable),
		Sectors: unionFold(existing.Sectors, incoming.Sectors),
		Notes:   take(incoming.Notes, existing.Notes),
	}
}

// unionFold unions two string lists case-insensitively, keeping the casing
// of the first occurrence and the order of first sighting.
func unionFold(existing, incoming []string) []string {
	if len(existing) == 0 && len(incoming) == 0 {
		return nil
	}

	result := make([]string, 0, len(existing)+len(incoming))
	seen := make(map[string]bool, len(existing)+len(incoming))

	for _, list := range [][]string{existing, incoming} {
		for _, item := range list {
			folded := strings.ToLower(strings.TrimSpace(item))
			if folded == "" || seen[folded] {
				continue
			}
			seen[folded] = true
			result = append(result, item)
		}
	}

	return result
}

// concatNotes appends the incoming notes unless they already appear as one
// of the accumulated segments, so a re-run never grows the blob.
func concatNotes(existing, incoming string) string {
	existing = strings.TrimSpace(existing)
	incoming = strings.TrimSpace(incoming)
	if existing == "" {
		return incoming
	}
	if incoming == "" {
		return existing
	}
	for _, segment := range strings.Split(existing, notesSeparator) {
		if strings.TrimSpace(segment) == incoming {
			return existing
		}
	}
	return existing + notesSeparator + incoming
}
