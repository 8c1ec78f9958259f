package merging

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mkalnins/bryony/pkg/models"
)

func riversideAnalysis() models.AnalysisDocument {
	return models.AnalysisDocument{
		AnalysisID: "a-1",
		TenantID:   "t-1",
		OfficeID:   "o-1",
		Projects: []models.Project{
			{
				Name:        "Riverside Tower",
				Description: "35-story office tower in Riga",
				Location:    "Riga",
				UseCase:     "commercial",
				Size:        "20000 m2",
				Status:      models.ProjectStatusInProgress,
			},
		},
		Team:       models.TeamInfo{Size: "25", KeyPeople: []string{"Anna Ozola"}},
		Confidence: 0.6,
		CreatedAt:  mergeTime.Add(-48 * time.Hour),
	}
}

func TestAnalysisMerger_FirstMergeCreatesDocument(t *testing.T) {
	merger := NewAnalysisMerger()

	input := models.AnalysisInput{
		Projects:   []models.Project{{Name: "Harbor Bridge", Location: "Ventspils"}},
		Team:       models.TeamInfo{Size: "10"},
		Confidence: 0.8,
	}

	doc, report := merger.Merge(nil, input, "a-new", mergeTime)

	assert.True(t, report.IsNewAnalysis)
	assert.Equal(t, "a-new", doc.AnalysisID)
	assert.Equal(t, mergeTime, doc.CreatedAt)
	assert.Equal(t, mergeTime, doc.UpdatedAt)
	assert.Len(t, doc.Projects, 1)
	assert.Equal(t, models.ProjectStatusPlanning, doc.Projects[0].Status) // default
	assert.Equal(t, 1, report.Summary.TotalProjectsAdded)
	assert.True(t, report.Team.Updated)
	assert.False(t, report.Relations.Updated)
	assert.Len(t, doc.MergeHistory, 1)
}

func TestAnalysisMerger_UpdateExistingProject(t *testing.T) {
	merger := NewAnalysisMerger()
	existing := riversideAnalysis()

	input := models.AnalysisInput{
		Projects: []models.Project{{
			Name:        "Riverside Tower",
			Description: "35-story office tower in Riga",
			Location:    "Riga",
			UseCase:     "commercial",
			Size:        "20500 m2",
			Status:      models.ProjectStatusInProgress,
		}},
	}

	doc, report := merger.Merge(&existing, input, "a-1", mergeTime)

	assert.False(t, report.IsNewAnalysis)
	assert.Len(t, doc.Projects, 1)
	assert.Equal(t, "20500 m2", doc.Projects[0].Size)
	assert.Equal(t, 1, report.Summary.TotalProjectsUpdated)
	assert.Equal(t, 0, report.Summary.TotalProjectsAdded)

	updated := report.Projects.Updated[0]
	assert.NotNil(t, updated.Previous)
	assert.Equal(t, "20000 m2", updated.Previous.Size)
}

func TestAnalysisMerger_DistinctProjectIsAdded(t *testing.T) {
	merger := NewAnalysisMerger()
	existing := riversideAnalysis()

	input := models.AnalysisInput{
		Projects: []models.Project{{
			Name:     "Riverside Tower Phase 2",
			Location: "Riga",
			UseCase:  "commercial",
			Size:     "40000 m2",
		}},
	}

	doc, report := merger.Merge(&existing, input, "a-1", mergeTime)

	assert.Len(t, doc.Projects, 2)
	assert.Equal(t, 1, report.Summary.TotalProjectsAdded)
	assert.Equal(t, 0, report.Summary.TotalProjectsUpdated)
	assert.Equal(t, 0, report.Summary.TotalProjectsBlocked)
}

func TestAnalysisMerger_NearDuplicateIsBlocked(t *testing.T) {
	merger := NewAnalysisMerger()
	existing := riversideAnalysis()

	input := models.AnalysisInput{
		Projects: []models.Project{{
			Name:        "The Riverside Tower",
			Description: "35-story office building in Riga",
			Location:    "Riga",
			UseCase:     "commercial",
			Size:        "20000 m2",
			Status:      models.ProjectStatusInProgress,
		}},
	}

	doc, report := merger.Merge(&existing, input, "a-1", mergeTime)

	// Blocked projects are discarded, not merged and not appended.
	assert.Len(t, doc.Projects, 1)
	assert.Equal(t, "Riverside Tower", doc.Projects[0].Name)
	assert.Equal(t, "35-story office tower in Riga", doc.Projects[0].Description)

	assert.Equal(t, 1, report.Summary.TotalProjectsBlocked)
	blocked := report.Projects.Blocked[0]
	assert.Equal(t, "The Riverside Tower", blocked.Name)
	assert.Equal(t, "Riverside Tower", blocked.SimilarTo)
	assert.NotEmpty(t, blocked.Reason)
}

func TestAnalysisMerger_BatchSelfDeduplicates(t *testing.T) {
	merger := NewAnalysisMerger()

	twin := models.Project{
		Name:        "Harbor Bridge",
		Description: "cable-stayed bridge over the harbor channel",
		Location:    "Ventspils",
		UseCase:     "infrastructure",
		Size:        "800 m",
		Status:      models.ProjectStatusPlanning,
	}

	// The same project twice in one batch: the second occurrence matches the
	// first, which is already in the merged list.
	input := models.AnalysisInput{Projects: []models.Project{twin, twin}}

	doc, report := merger.Merge(nil, input, "a-1", mergeTime)

	assert.Len(t, doc.Projects, 1)
	assert.Equal(t, 1, report.Summary.TotalProjectsAdded)
	assert.Equal(t, 1, report.Summary.TotalProjectsUpdated)
}

func TestAnalysisMerger_SectionsUnionCaseInsensitively(t *testing.T) {
	merger := NewAnalysisMerger()
	existing := riversideAnalysis()

	input := models.AnalysisInput{
		Team: models.TeamInfo{KeyPeople: []string{"ANNA OZOLA", "Jānis Bērziņš"}},
		Relations: models.RelationsInfo{
			Partners: []string{"Latvijas Būvnieki"},
		},
	}

	doc, report := merger.Merge(&existing, input, "a-1", mergeTime)

	// First-seen casing wins, duplicates collapse.
	assert.Equal(t, []string{"Anna Ozola", "Jānis Bērziņš"}, doc.Team.KeyPeople)
	assert.Equal(t, "25", doc.Team.Size) // blank incoming keeps existing
	assert.Equal(t, []string{"Latvijas Būvnieki"}, doc.Relations.Partners)

	assert.True(t, report.Team.Updated)
	assert.True(t, report.Relations.Updated)
	assert.False(t, report.Funding.Updated)
}

func TestAnalysisMerger_ConfidenceAndNotes(t *testing.T) {
	merger := NewAnalysisMerger()

	t.Run("confidence keeps the maximum", func(t *testing.T) {
		existing := riversideAnalysis()
		doc, _ := merger.Merge(&existing, models.AnalysisInput{Confidence: 0.4}, "a-1", mergeTime)
		assert.Equal(t, 0.6, doc.Confidence)

		doc, _ = merger.Merge(&existing, models.AnalysisInput{Confidence: 0.9}, "a-1", mergeTime)
		assert.Equal(t, 0.9, doc.Confidence)
	})

	t.Run("notes concatenate with a separator", func(t *testing.T) {
		existing := riversideAnalysis()
		existing.AnalysisNotes = "strong portfolio"

		doc, _ := merger.Merge(&existing, models.AnalysisInput{AnalysisNotes: "focus shifting to interiors"}, "a-1", mergeTime)
		assert.Equal(t, "strong portfolio"+notesSeparator+"focus shifting to interiors", doc.AnalysisNotes)
	})

	t.Run("identical notes are not duplicated", func(t *testing.T) {
		existing := riversideAnalysis()
		existing.AnalysisNotes = "strong portfolio"

		doc, _ := merger.Merge(&existing, models.AnalysisInput{AnalysisNotes: "strong portfolio"}, "a-1", mergeTime)
		assert.Equal(t, "strong portfolio", doc.AnalysisNotes)
	})

	t.Run("notes already accumulated are not appended again", func(t *testing.T) {
		existing := riversideAnalysis()
		existing.AnalysisNotes = "strong portfolio" + notesSeparator + "focus shifting to interiors"

		doc, _ := merger.Merge(&existing, models.AnalysisInput{AnalysisNotes: "focus shifting to interiors"}, "a-1", mergeTime)
		assert.Equal(t, existing.AnalysisNotes, doc.AnalysisNotes)

		doc, _ = merger.Merge(&existing, models.AnalysisInput{AnalysisNotes: "strong portfolio"}, "a-1", mergeTime)
		assert.Equal(t, existing.AnalysisNotes, doc.AnalysisNotes)

		doc, _ = merger.Merge(&existing, models.AnalysisInput{AnalysisNotes: "hiring a BIM team"}, "a-1", mergeTime)
		assert.Equal(t, existing.AnalysisNotes+notesSeparator+"hiring a BIM team", doc.AnalysisNotes)
	})
}

func TestAnalysisMerger_MergeHistoryAppends(t *testing.T) {
	merger := NewAnalysisMerger()

	input := models.AnalysisInput{
		Projects: []models.Project{{Name: "Harbor Bridge", Location: "Ventspils"}},
	}

	doc, _ := merger.Merge(nil, input, "a-1", mergeTime)
	assert.Len(t, doc.MergeHistory, 1)

	second, _ := merger.Merge(&doc, input, "a-1", mergeTime.Add(time.Hour))
	assert.Len(t, second.MergeHistory, 2)

	first := second.MergeHistory[0]
	assert.Equal(t, "a-1", first.AnalysisID)
	assert.Equal(t, 1, first.NewProjectsCount)
	assert.Equal(t, 1, first.TotalProjectsAfterMerge)

	latest := second.MergeHistory[1]
	assert.Equal(t, 0, latest.NewProjectsCount)
	assert.Equal(t, 1, latest.TotalProjectsAfterMerge)
}

func TestAnalysisMerger_SparseProjectsRemergeWithoutDuplicates(t *testing.T) {
	merger := NewAnalysisMerger()

	// The first merge fills in the default status, so the stored record is no
	// longer field-for-field identical to the scrape that produced it. The
	// re-run must still update, never add or block.
	tests := []struct {
		name    string
		project models.Project
	}{
		{"name only", models.Project{Name: "Harbor Bridge"}},
		{"name and location", models.Project{Name: "Harbor Bridge", Location: "Ventspils"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := models.AnalysisInput{Projects: []models.Project{tt.project}}

			first, firstReport := merger.Merge(nil, input, "a-1", mergeTime)
			assert.Equal(t, 1, firstReport.Summary.TotalProjectsAdded)

			second, report := merger.Merge(&first, input, "a-1", mergeTime.Add(time.Hour))

			assert.Equal(t, 0, report.Summary.TotalProjectsAdded)
			assert.Equal(t, 0, report.Summary.TotalProjectsBlocked)
			assert.Equal(t, 1, report.Summary.TotalProjectsUpdated)
			assert.Len(t, second.Projects, 1)
		})
	}
}

func TestAnalysisMerger_Idempotence(t *testing.T) {
	merger := NewAnalysisMerger()

	input := models.AnalysisInput{
		Projects: []models.Project{
			{
				Name:        "Riverside Tower",
				Description: "35-story office tower in Riga",
				Location:    "Riga",
				UseCase:     "commercial",
				Size:        "20000 m2",
				Status:      models.ProjectStatusInProgress,
			},
			{Name: "Harbor Bridge", Location: "Ventspils", UseCase: "infrastructure"},
		},
		Team: models.TeamInfo{Size: "25"},
	}

	first, firstReport := merger.Merge(nil, input, "a-1", mergeTime)
	assert.Equal(t, 2, firstReport.Summary.TotalProjectsAdded)

	second, secondReport := merger.Merge(&first, input, "a-1", mergeTime.Add(time.Hour))

	// Re-running the identical input must update, never add.
	assert.Equal(t, 0, secondReport.Summary.TotalProjectsAdded)
	assert.Equal(t, 2, secondReport.Summary.TotalProjectsUpdated)
	assert.Len(t, second.Projects, 2)
}
