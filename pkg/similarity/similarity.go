// Package similarity provides the string and value comparison algorithms
// used by the office and project matchers. All functions are pure and total:
// they return a score in [0,1] and treat missing or empty input on either
// side as zero similarity rather than failing.
package similarity

import (
	"math"
	"regexp"
	"strings"
)

// Scorer provides various string and value comparison algorithms
type Scorer struct{}

// NewScorer creates a new Scorer
func NewScorer() *Scorer {
	return &Scorer{}
}

var numberPattern = regexp.MustCompile(`\d+(?:[.,]\d+)?`)

// fold trims and lowercases a value for comparison.
func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ExactEquals returns 1.0 when the case-folded, trimmed strings are equal.
func (s *Scorer) ExactEquals(a, b string) float64 {
	a, b = fold(a), fold(b)
	if a == "" || b == "" {
		return 0.0
	}
	if a == b {
		return 1.0
	}
	return 0.0
}

// Containment returns 1.0 for equal strings and 0.8 when one case-folded
// string contains the other. This handles values expressed at different
// granularity, like "Brīvības 10" vs "Brīvības 10, Rīga".
func (s *Scorer) Containment(a, b string) float64 {
	a, b = fold(a), fold(b)
	if a == "" || b == "" {
		return 0.0
	}
	if a == b {
		return 1.0
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return 0.8
	}
	return 0.0
}

// EditSimilarity calculates the Levenshtein distance between two strings
// normalized to a similarity score: 1 - distance/max(len(a), len(b)).
// Symmetric, and 1.0 for identical non-empty strings.
func (s *Scorer) EditSimilarity(a, b string) float64 {
	a, b = fold(a), fold(b)
	if a == "" || b == "" {
		return 0.0
	}
	if a == b {
		return 1.0
	}

	ra, rb := []rune(a), []rune(b)
	distance := s.LevenshteinDistance(ra, rb)
	maxLen := max(len(ra), len(rb))
	return 1.0 - float64(distance)/float64(maxLen)
}

// LevenshteinDistance calculates the edit distance between two rune slices
func (s *Scorer) LevenshteinDistance(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	// Two rows for dynamic programming
	row := make([]int, len(b)+1)
	prevRow := make([]int, len(b)+1)

	for j := 0; j <= len(b); j++ {
		prevRow[j] = j
	}

	for i := 1; i <= len(a); i++ {
		row[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 0
			if a[i-1] != b[j-1] {
				cost = 1
			}
			row[j] = min(min(row[j-1]+1, prevRow[j]+1), prevRow[j-1]+cost)
		}
		row, prevRow = prevRow, row
	}

	return prevRow[len(b)]
}

// CategoricalSimilarity returns 1.0 for equal values, 0.8 when both values
// contain a keyword from the same synonym group, and otherwise falls back
// to EditSimilarity.
func (s *Scorer) CategoricalSimilarity(a, b string, groups [][]string) float64 {
	fa, fb := fold(a), fold(b)
	if fa == "" || fb == "" {
		return 0.0
	}
	if fa == fb {
		return 1.0
	}

	for _, group := range groups {
		if containsAnyKeyword(fa, group) && containsAnyKeyword(fb, group) {
			return 0.8
		}
	}

	return s.EditSimilarity(a, b)
}

func containsAnyKeyword(folded string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(folded, kw) {
			return true
		}
	}
	return false
}

// NumericRelativeSimilarity extracts the first decimal number embedded in
// each string and scores them by relative difference:
// max(0, 1 - |n1-n2|/max(n1,n2)). When either side has no extractable
// number it falls back to EditSimilarity.
func (s *Scorer) NumericRelativeSimilarity(a, b string) float64 {
	if fold(a) == "" || fold(b) == "" {
		return 0.0
	}

	n1, ok1 := ExtractNumber(a)
	n2, ok2 := ExtractNumber(b)
	if !ok1 || !ok2 {
		return s.EditSimilarity(a, b)
	}

	return RelativeProximity(n1, n2)
}

// RelativeProximity scores two magnitudes by their relative difference.
func RelativeProximity(n1, n2 float64) float64 {
	if n1 == n2 {
		return 1.0
	}
	larger := math.Max(n1, n2)
	if larger == 0 {
		return 1.0
	}
	return math.Max(0, 1.0-math.Abs(n1-n2)/larger)
}

// RelativeDifference returns |n1-n2|/max(n1,n2), or 0 when both are zero.
func RelativeDifference(n1, n2 float64) float64 {
	larger := math.Max(n1, n2)
	if larger == 0 {
		return 0
	}
	return math.Abs(n1-n2) / larger
}

// ExtractNumber returns the first decimal number embedded in a string.
// Comma decimal separators are accepted ("3,5 ha").
func ExtractNumber(s string) (float64, bool) {
	match := numberPattern.FindString(s)
	if match == "" {
		return 0, false
	}
	match = strings.ReplaceAll(match, ",", ".")
	var n float64
	var frac float64
	var inFrac bool
	var fracScale float64 = 1
	for _, r := range match {
		if r == '.' {
			if inFrac {
				break
			}
			inFrac = true
			continue
		}
		d := float64(r - '0')
		if inFrac {
			fracScale /= 10
			frac += d * fracScale
		} else {
			n = n*10 + d
		}
	}
	return n + frac, true
}

// WordOverlapRatio removes stopwords, splits on whitespace and returns
// |common| / max(|words(a)|, |words(b)|). Used as a boolean "similar name"
// gate rather than as a weighted factor.
func (s *Scorer) WordOverlapRatio(a, b string, stopwords map[string]bool) float64 {
	wa := tokenize(a, stopwords, 1)
	wb := tokenize(b, stopwords, 1)
	if len(wa) == 0 || len(wb) == 0 {
		return 0.0
	}

	common := 0
	seen := make(map[string]bool, len(wa))
	for _, w := range wa {
		seen[w] = true
	}
	counted := make(map[string]bool, len(wb))
	for _, w := range wb {
		if seen[w] && !counted[w] {
			common++
			counted[w] = true
		}
	}

	return float64(common) / float64(max(len(wa), len(wb)))
}

// JaccardWords computes the Jaccard similarity of the word sets of two
// descriptions: stopword-filtered words of at least three characters.
func (s *Scorer) JaccardWords(a, b string, stopwords map[string]bool) float64 {
	wa := tokenize(a, stopwords, 3)
	wb := tokenize(b, stopwords, 3)
	if len(wa) == 0 || len(wb) == 0 {
		return 0.0
	}

	setA := make(map[string]bool, len(wa))
	for _, w := range wa {
		setA[w] = true
	}
	setB := make(map[string]bool, len(wb))
	for _, w := range wb {
		setB[w] = true
	}

	intersection := 0
	for w := range setA {
		if setB[w] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0.0
	}

	return float64(intersection) / float64(union)
}

// tokenize lowercases, splits on whitespace, and drops stopwords and words
// shorter than minLen. Duplicates are preserved; callers that need sets
// build them.
func tokenize(s string, stopwords map[string]bool, minLen int) []string {
	fields := strings.Fields(strings.ToLower(s))
	words := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".,;:()[]\"'")
		if len([]rune(f)) < minLen {
			continue
		}
		if stopwords[f] {
			continue
		}
		words = append(words, f)
	}
	return words
}

// WeightedScore calculates a weighted average of scores
func (s *Scorer) WeightedScore(scores map[string]float64, weights map[string]float64) float64 {
	if len(scores) == 0 {
		return 0.0
	}

	var totalWeight float64
	var weightedSum float64

	for field, score := range scores {
		weight := 1.0
		if w, ok := weights[field]; ok {
			weight = w
		}
		weightedSum += score * weight
		totalWeight += weight
	}

	if totalWeight == 0 {
		return 0.0
	}

	return weightedSum / totalWeight
}
