package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mkalnins/bryony/pkg/models"
)

var riversideTower = models.Project{
	Name:        "Riverside Tower",
	Description: "35-story office tower in Riga",
	Location:    "Riga",
	UseCase:     "commercial",
	Size:        "20000 m2",
	Status:      models.ProjectStatusInProgress,
}

func TestProjectMatcher_ExactName(t *testing.T) {
	matcher := NewProjectMatcher()

	incoming := riversideTower
	incoming.Size = "20500 m2"

	verdict := matcher.Match(incoming, []models.Project{riversideTower})

	assert.Equal(t, 0, verdict.MatchIndex)
	assert.True(t, verdict.ExactMatch)
	assert.Equal(t, "exact_name", verdict.Rule)
	assert.Greater(t, verdict.Score, ExactNameScoreThreshold)
}

func TestProjectMatcher_ExactNameNeedsCorroboration(t *testing.T) {
	matcher := NewProjectMatcher()

	// Same name but everything else disagrees: the overall score stays low,
	// so the exact-name rule must not fire on the name alone.
	existing := models.Project{
		Name:        "Central Market Hall",
		Description: "restoration of a historic market pavilion",
		Location:    "Riga",
		UseCase:     "public",
		Size:        "4000 m2",
	}
	incoming := models.Project{
		Name:        "Central Market Hall",
		Description: "suburban logistics warehouse with cold storage",
		Location:    "Jelgava",
		UseCase:     "industrial",
		Size:        "55000 m2",
	}

	verdict := matcher.Match(incoming, []models.Project{existing})
	assert.NotEqual(t, "exact_name", verdict.Rule)
}

func TestProjectMatcher_ExactDescription(t *testing.T) {
	matcher := NewProjectMatcher()

	existing := models.Project{
		Name:        "Riverside Tower",
		Description: "35-story office tower in Riga",
		Location:    "Riga",
		UseCase:     "commercial",
		Size:        "20000 m2",
	}
	incoming := models.Project{
		Name:        "Riverside Office Tower", // renamed between scrapes
		Description: "35-story office tower in Riga",
		Location:    "Riga",
		UseCase:     "commercial",
		Size:        "20000 m2",
	}

	verdict := matcher.Match(incoming, []models.Project{existing})

	assert.Equal(t, 0, verdict.MatchIndex)
	assert.True(t, verdict.ExactMatch)
	assert.Equal(t, "exact_description", verdict.Rule)
}

func TestProjectMatcher_ShortDescriptionDoesNotCountAsExact(t *testing.T) {
	matcher := NewProjectMatcher()

	existing := models.Project{Name: "Harbor Crane Park", Description: "tbd"}
	incoming := models.Project{Name: "Seaside Promenade", Description: "tbd"}

	verdict := matcher.Match(incoming, []models.Project{existing})
	assert.Equal(t, -1, verdict.MatchIndex)
}

func TestProjectMatcher_FuzzyNameBlocks(t *testing.T) {
	matcher := NewProjectMatcher()

	incoming := models.Project{
		Name:        "The Riverside Tower", // article only, high word overlap
		Description: "35-story office building in Riga",
		Location:    "Riga",
		UseCase:     "commercial",
		Size:        "20000 m2",
		Status:      models.ProjectStatusInProgress,
	}

	verdict := matcher.Match(incoming, []models.Project{riversideTower})

	assert.Equal(t, 0, verdict.MatchIndex)
	assert.False(t, verdict.ExactMatch)
	assert.Equal(t, "fuzzy_name", verdict.Rule)
	assert.NotEmpty(t, verdict.Reason)
}

func TestProjectMatcher_SizeDifferenceDisqualifiesLocationRule(t *testing.T) {
	matcher := NewProjectMatcher()

	incoming := models.Project{
		Name:     "Riverside Tower Phase 2",
		Location: "Riga",
		UseCase:  "commercial",
		Size:     "40000 m2",
	}

	verdict := matcher.Match(incoming, []models.Project{riversideTower})

	// A project twice the size at the same location is a distinct project.
	assert.Equal(t, -1, verdict.MatchIndex)
}

func TestProjectMatcher_LocationUseCaseBlocks(t *testing.T) {
	matcher := NewProjectMatcher()

	existing := models.Project{
		Name:        "Ezera Apartments",
		Description: "lakeside apartment complex with underground parking in Riga",
		Location:    "Riga",
		UseCase:     "residential",
		Size:        "12000 m2",
		Status:      models.ProjectStatusPlanning,
	}
	incoming := models.Project{
		Name:        "Ezera Apartments Riga",
		Description: "lakeside apartment complex with rooftop terrace in Riga",
		Location:    "Riga",
		UseCase:     "residential",
		Size:        "12500 m2",
		Status:      models.ProjectStatusPlanning,
	}

	verdict := matcher.Match(incoming, []models.Project{existing})

	assert.Equal(t, 0, verdict.MatchIndex)
	assert.False(t, verdict.ExactMatch)
	assert.Equal(t, "location_usecase", verdict.Rule)
}

func TestProjectMatcher_UnrelatedNamesNeverMatchOnLocationAlone(t *testing.T) {
	matcher := NewProjectMatcher()

	existing := models.Project{
		Name:     "Ezera Apartments",
		Location: "Riga",
		UseCase:  "residential",
		Size:     "12000 m2",
	}
	incoming := models.Project{
		Name:     "Saules Apartments", // "apartments" alone is too generic
		Location: "Riga",
		UseCase:  "residential",
		Size:     "12000 m2",
	}

	verdict := matcher.Match(incoming, []models.Project{existing})
	assert.Equal(t, -1, verdict.MatchIndex)
}

func TestProjectMatcher_SparseReobservationIsExact(t *testing.T) {
	matcher := NewProjectMatcher()

	t.Run("name only against stored record with defaulted status", func(t *testing.T) {
		stored := models.Project{Name: "Harbor Bridge", Status: models.ProjectStatusPlanning}
		incoming := models.Project{Name: "Harbor Bridge"}

		verdict := matcher.Match(incoming, []models.Project{stored})

		assert.Equal(t, 0, verdict.MatchIndex)
		assert.True(t, verdict.ExactMatch)
		assert.Equal(t, "exact_name", verdict.Rule)
	})

	t.Run("name and location against stored record with defaulted status", func(t *testing.T) {
		stored := models.Project{Name: "Harbor Bridge", Location: "Ventspils", Status: models.ProjectStatusPlanning}
		incoming := models.Project{Name: "Harbor Bridge", Location: "Ventspils"}

		verdict := matcher.Match(incoming, []models.Project{stored})

		assert.Equal(t, 0, verdict.MatchIndex)
		assert.True(t, verdict.ExactMatch)
		assert.Equal(t, "exact_name", verdict.Rule)
	})
}

func TestProjectMatcher_NoCandidates(t *testing.T) {
	matcher := NewProjectMatcher()
	verdict := matcher.Match(riversideTower, nil)
	assert.Equal(t, -1, verdict.MatchIndex)
}

func TestProjectMatcher_FirstQualifyingCandidateWins(t *testing.T) {
	matcher := NewProjectMatcher()

	candidates := []models.Project{
		{Name: "Harbor Bridge", Location: "Ventspils", UseCase: "infrastructure"},
		riversideTower,
		riversideTower, // identical twin later in the list
	}

	verdict := matcher.Match(riversideTower, candidates)
	assert.Equal(t, 1, verdict.MatchIndex)
	assert.True(t, verdict.ExactMatch)
}

func TestProjectMatcher_FactorScores(t *testing.T) {
	matcher := NewProjectMatcher()

	t.Run("identical projects score 1 on every factor", func(t *testing.T) {
		scores := matcher.FactorScores(riversideTower, riversideTower)
		for factor, score := range scores {
			assert.Equal(t, 1.0, score, factor)
		}
	})

	t.Run("abbreviation variants do not count as name edits", func(t *testing.T) {
		a := models.Project{Name: "Riverside Centre"}
		b := models.Project{Name: "Riverside Center"}
		assert.Equal(t, 1.0, matcher.FactorScores(a, b)["name"])
	})

	t.Run("city prefix floors the location score", func(t *testing.T) {
		a := models.Project{Location: "Riga, Teika district"}
		b := models.Project{Location: "Riga, Mezaparks"}
		assert.GreaterOrEqual(t, matcher.FactorScores(a, b)["location"], 0.7)
	})

	t.Run("unknown status pairs score the neutral default", func(t *testing.T) {
		a := models.Project{Status: models.ProjectStatusCompleted}
		b := models.Project{Status: models.ProjectStatusInProgress}
		assert.Equal(t, 0.5, matcher.FactorScores(a, b)["status"])
	})

	t.Run("all scores stay within range", func(t *testing.T) {
		a := models.Project{Name: "x", Description: "y", Location: "z", UseCase: "w", Size: "1", Status: "odd"}
		for factor, score := range matcher.FactorScores(a, riversideTower) {
			assert.GreaterOrEqual(t, score, 0.0, factor)
			assert.LessOrEqual(t, score, 1.0, factor)
		}
	})
}

func TestSignificantSizeDifference(t *testing.T) {
	tests := []struct {
		name     string
		a, b     string
		expected bool
	}{
		{"more than double the size", "45000 m2", "20000 m2", true},
		{"within tolerance", "20000 m2", "20500 m2", false},
		{"exactly half is tolerated", "20000 m2", "40000 m2", false},
		{"no number on one side", "large", "20000 m2", false},
		{"no numbers at all", "large", "small", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, significantSizeDifference(tt.a, tt.b))
		})
	}
}

func TestAreNamesRelated(t *testing.T) {
	tests := []struct {
		name     string
		a, b     string
		expected bool
	}{
		{"shared distinctive word", "Riverside Tower", "Riverside Plaza", true},
		{"only generic words shared", "New Tower Project", "New Housing Project", false},
		{"nothing shared", "Ezera Apartments", "Saules Terases", false},
		{"empty name", "", "Riverside Tower", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, areNamesRelated(tt.a, tt.b))
		})
	}
}
