package matching

import (
	"fmt"
	"strings"

	"github.com/mkalnins/bryony/pkg/models"
	"github.com/mkalnins/bryony/pkg/normalizers"
	"github.com/mkalnins/bryony/pkg/similarity"
)

// Classification thresholds. Exact rules merge automatically; similar rules
// only flag, because merging two distinct projects loses data silently while
// a flagged near-duplicate can still be resolved by a person.
const (
	ExactNameScoreThreshold   = 0.90
	ExactDescScoreThreshold   = 0.80
	FuzzyNameScoreThreshold   = 0.85
	DescOverlapScoreThreshold = 0.75
	LocationUseScoreThreshold = 0.80

	NameOverlapGate  = 0.70
	DescJaccardGate  = 0.80
	SignificantSize  = 0.50
	MinDescriptionLn = 10
)

// factorWeights drive the overall weighted score across the six compared
// fields. Name and description carry the most identity.
var factorWeights = map[string]float64{
	"name":        0.25,
	"description": 0.20,
	"location":    0.20,
	"useCase":     0.15,
	"size":        0.15,
	"status":      0.05,
}

// stopwords are filler words ignored by name and description overlap.
var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true,
	"of": true, "in": true, "on": true, "at": true, "for": true,
	"to": true, "with": true, "by": true, "from": true, "is": true,
	"sia": true, "ltd": true, "llc": true,
}

// genericTerms are words too common in project names to establish that two
// names refer to the same thing.
var genericTerms = map[string]bool{
	"project": true, "building": true, "development": true, "complex": true,
	"house": true, "center": true, "tower": true, "new": true, "phase": true,
	"block": true, "quarter": true, "city": true, "street": true, "st": true,
	"apartment": true, "apartments": true, "residences": true, "offices": true,
}

// useCaseGroups are synonym groups for the useCase factor.
var useCaseGroups = [][]string{
	{"housing", "apartment", "home", "residential"},
	{"office", "commercial", "retail", "business"},
	{"industrial", "factory", "warehouse", "logistics"},
	{"school", "university", "education", "kindergarten"},
	{"hospital", "clinic", "healthcare", "medical"},
	{"public", "municipal", "cultural", "museum"},
}

// statusGroups cluster project statuses by lifecycle stage for the low-weight
// status factor.
var statusGroups = [][]string{
	{"in-progress", "active", "ongoing", "construction"},
	{"planning", "planned", "proposal", "design"},
	{"completed", "cancelled", "on-hold", "finished"},
}

// ProjectVerdict is the result of matching one incoming project.
type ProjectVerdict struct {
	// MatchIndex is the index of the matched existing project, -1 when new.
	MatchIndex int
	// ExactMatch is true for a high-confidence match that is safe to merge,
	// false for a near-duplicate that should be blocked instead.
	ExactMatch bool
	// Rule names the rule that fired, for feedback and logging.
	Rule string
	// Score is the overall weighted factor score against the match.
	Score float64
	// Reason is a human-readable explanation for blocked verdicts.
	Reason string
}

// ProjectMatcher scores incoming projects against an office's existing
// project list using a fixed rule cascade over a weighted factor score.
type ProjectMatcher struct {
	scorer *similarity.Scorer
}

// NewProjectMatcher creates a new ProjectMatcher
func NewProjectMatcher() *ProjectMatcher {
	return &ProjectMatcher{scorer: similarity.NewScorer()}
}

// Match classifies one incoming project against the candidates. Candidates
// are scanned in order; for each, the rules below run in fixed order and the
// first rule to fire decides the verdict. When nothing fires the project
// is new (MatchIndex -1).
//
//  1. exact name, overall score above 0.90 -> exact
//  2. exact description (both longer than 10), score above 0.80 -> exact
//  3. name word overlap above 0.70, score above 0.85 -> similar
//  4. description Jaccard above 0.80, score above 0.75 -> similar
//  5. same location and use case, size not significantly different,
//     related names, score above 0.80 -> similar
func (m *ProjectMatcher) Match(incoming models.Project, candidates []models.Project) ProjectVerdict {
	for i := range candidates {
		if verdict, ok := m.evaluate(incoming, candidates[i]); ok {
			verdict.MatchIndex = i
			return verdict
		}
	}

	return ProjectVerdict{MatchIndex: -1}
}

func (m *ProjectMatcher) evaluate(incoming, candidate models.Project) (ProjectVerdict, bool) {
	scores := m.FactorScores(incoming, candidate)
	overall := m.scorer.WeightedScore(scores, factorWeights)

	// Rule 1: exact name
	if m.scorer.ExactEquals(incoming.Name, candidate.Name) == 1.0 && overall > ExactNameScoreThreshold {
		return ProjectVerdict{ExactMatch: true, Rule: "exact_name", Score: overall}, true
	}

	// Rule 2: exact description
	if len(incoming.Description) > MinDescriptionLn && len(candidate.Description) > MinDescriptionLn &&
		m.scorer.ExactEquals(incoming.Description, candidate.Description) == 1.0 &&
		overall > ExactDescScoreThreshold {
		return ProjectVerdict{ExactMatch: true, Rule: "exact_description", Score: overall}, true
	}

	// Rule 3: fuzzy name
	if m.scorer.WordOverlapRatio(incoming.Name, candidate.Name, stopwords) > NameOverlapGate &&
		overall > FuzzyNameScoreThreshold {
		return ProjectVerdict{
			ExactMatch: false,
			Rule:       "fuzzy_name",
			Score:      overall,
			Reason:     fmt.Sprintf("name closely resembles %q (score %.2f)", candidate.Name, overall),
		}, true
	}

	// Rule 4: description similarity
	if m.scorer.JaccardWords(incoming.Description, candidate.Description, stopwords) > DescJaccardGate &&
		overall > DescOverlapScoreThreshold {
		return ProjectVerdict{
			ExactMatch: false,
			Rule:       "similar_description",
			Score:      overall,
			Reason:     fmt.Sprintf("description closely resembles %q (score %.2f)", candidate.Name, overall),
		}, true
	}

	// Rule 5: same location and use case
	if m.scorer.ExactEquals(incoming.Location, candidate.Location) == 1.0 &&
		m.scorer.ExactEquals(incoming.UseCase, candidate.UseCase) == 1.0 &&
		!significantSizeDifference(incoming.Size, candidate.Size) &&
		areNamesRelated(incoming.Name, candidate.Name) &&
		overall > LocationUseScoreThreshold {
		return ProjectVerdict{
			ExactMatch: false,
			Rule:       "location_usecase",
			Score:      overall,
			Reason:     fmt.Sprintf("same location and use case as %q (score %.2f)", candidate.Name, overall),
		}, true
	}

	return ProjectVerdict{}, false
}

// FactorScores computes the per-field similarities that feed the overall
// weighted score. A factor absent on both sides is excluded rather than
// scored 0, and the weighted score renormalizes over the factors that
// remain; otherwise a sparse record could never clear the thresholds
// against an identical sparse record. A factor present on only one side
// stays in and scores 0, except status: stored projects get a default
// status on first sight, so a one-sided status would penalize every
// re-observation of a project that was scraped without one.
func (m *ProjectMatcher) FactorScores(a, b models.Project) map[string]float64 {
	scores := make(map[string]float64, len(factorWeights))

	if anyPresent(a.Name, b.Name) {
		scores["name"] = m.nameSimilarity(a.Name, b.Name)
	}
	if anyPresent(a.Description, b.Description) {
		scores["description"] = m.scorer.JaccardWords(a.Description, b.Description, stopwords)
	}
	if anyPresent(a.Location, b.Location) {
		scores["location"] = m.locationSimilarity(a.Location, b.Location)
	}
	if anyPresent(a.UseCase, b.UseCase) {
		scores["useCase"] = m.scorer.CategoricalSimilarity(a.UseCase, b.UseCase, useCaseGroups)
	}
	if anyPresent(a.Size, b.Size) {
		scores["size"] = m.scorer.NumericRelativeSimilarity(a.Size, b.Size)
	}
	if bothPresent(string(a.Status), string(b.Status)) {
		scores["status"] = m.statusSimilarity(string(a.Status), string(b.Status))
	}

	return scores
}

func anyPresent(a, b string) bool {
	return strings.TrimSpace(a) != "" || strings.TrimSpace(b) != ""
}

func bothPresent(a, b string) bool {
	return strings.TrimSpace(a) != "" && strings.TrimSpace(b) != ""
}

// OverallScore returns the weighted factor score between two projects.
func (m *ProjectMatcher) OverallScore(a, b models.Project) float64 {
	return m.scorer.WeightedScore(m.FactorScores(a, b), factorWeights)
}

// nameSimilarity canonicalizes known abbreviations first so spelling
// variants ("Centre"/"Center") do not count as edits.
func (m *ProjectMatcher) nameSimilarity(a, b string) float64 {
	return m.scorer.EditSimilarity(normalizers.NormalizeName(a), normalizers.NormalizeName(b))
}

// locationSimilarity prefers containment, which handles different
// granularity, then falls back to edit similarity with a floor of 0.7 when
// both locations share the same leading city segment.
func (m *ProjectMatcher) locationSimilarity(a, b string) float64 {
	if score := m.scorer.Containment(a, b); score > 0 {
		return score
	}

	score := m.scorer.EditSimilarity(a, b)
	ca, cb := cityPrefix(a), cityPrefix(b)
	if ca != "" && ca == cb && score < 0.7 {
		return 0.7
	}
	return score
}

func cityPrefix(location string) string {
	head, _, _ := strings.Cut(location, ",")
	return normalizers.Fold(head)
}

// statusSimilarity is a low-signal factor: equal statuses score 1, statuses
// in the same lifecycle group 0.8, anything else 0.5 rather than 0 because
// scraped statuses are frequently stale.
func (m *ProjectMatcher) statusSimilarity(a, b string) float64 {
	fa, fb := normalizers.Fold(a), normalizers.Fold(b)
	if fa == "" || fb == "" {
		return 0.0
	}
	if fa == fb {
		return 1.0
	}
	for _, group := range statusGroups {
		if inGroup(fa, group) && inGroup(fb, group) {
			return 0.8
		}
	}
	return 0.5
}

func inGroup(folded string, group []string) bool {
	for _, member := range group {
		if strings.Contains(folded, member) {
			return true
		}
	}
	return false
}

// significantSizeDifference reports whether the sizes embed numbers that
// differ by more than half of the larger one. Sizes without an extractable
// number are never significant.
func significantSizeDifference(a, b string) bool {
	n1, ok1 := similarity.ExtractNumber(a)
	n2, ok2 := similarity.ExtractNumber(b)
	if !ok1 || !ok2 {
		return false
	}
	return similarity.RelativeDifference(n1, n2) > SignificantSize
}

// areNamesRelated reports whether the two names share at least one word that
// is neither a stopword nor a generic project term.
func areNamesRelated(a, b string) bool {
	wa := meaningfulWords(a)
	if len(wa) == 0 {
		return false
	}
	wb := meaningfulWords(b)
	for w := range wb {
		if wa[w] {
			return true
		}
	}
	return false
}

func meaningfulWords(name string) map[string]bool {
	words := make(map[string]bool)
	for _, w := range strings.Fields(normalizers.NormalizeName(name)) {
		if stopwords[w] || genericTerms[w] {
			continue
		}
		words[w] = true
	}
	return words
}
