// Package normalizers provides field normalization functions applied before
// office and project records are compared
package normalizers

import (
	"regexp"
	"strings"
	"unicode"
)

// Normalizer is a function that normalizes a string value
type Normalizer func(string) string

// registry holds all registered normalizers
var registry = make(map[string]Normalizer)

func init() {
	// Register built-in normalizers
	Register("lowercase", Lowercase)
	Register("trim", Trim)
	Register("fold", Fold)
	Register("collapse_whitespace", CollapseWhitespace)
	Register("abbreviations", NormalizeAbbreviations)
	Register("nname", NormalizeName)
	Register("naddress", NormalizeAddress)
	Register("nphone", NormalizePhone)
}

// Register adds a normalizer to the registry
func Register(name string, fn Normalizer) {
	registry[name] = fn
}

// Get retrieves a normalizer by name
func Get(name string) (Normalizer, bool) {
	fn, ok := registry[name]
	return fn, ok
}

// Apply applies a named normalizer to a value
func Apply(value, normalizer string) string {
	fn, ok := registry[normalizer]
	if !ok {
		return value
	}
	return fn(value)
}

// ApplyChain applies multiple normalizers in sequence
func ApplyChain(value string, normalizers ...string) string {
	result := value
	for _, name := range normalizers {
		result = Apply(result, name)
	}
	return result
}

var spaceRe = regexp.MustCompile(`\s+`)

// abbreviations maps spelling variants and long forms onto one canonical
// short form so "Riverside Centre" and "Riverside Center" compare equal.
// Keys and values are whole words, applied case-folded.
var abbreviations = map[string]string{
	"centre":    "center",
	"street":    "st",
	"avenue":    "ave",
	"boulevard": "blvd",
	"road":      "rd",
	"square":    "sq",
	"building":  "bldg",
	"iela":      "st", // Latvian street designator
	"bulvāris":  "blvd",
	"laukums":   "sq",
}

// Built-in normalizers

// Lowercase converts string to lowercase
func Lowercase(s string) string {
	return strings.ToLower(s)
}

// Trim removes leading and trailing whitespace
func Trim(s string) string {
	return strings.TrimSpace(s)
}

// Fold lowercases and trims, the shared first step of every comparison
func Fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// CollapseWhitespace reduces runs of whitespace to a single space
func CollapseWhitespace(s string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

// NormalizeAbbreviations rewrites known spelling variants and long-form
// designators to their canonical short form, word by word
func NormalizeAbbreviations(s string) string {
	words := strings.Fields(Fold(s))
	for i, w := range words {
		trimmed := strings.Trim(w, ".,")
		if canonical, ok := abbreviations[trimmed]; ok {
			words[i] = canonical
		}
	}
	return strings.Join(words, " ")
}

// NormalizeName normalizes an office or project name for matching
// - Lowercase and trim
// - Canonicalize known abbreviations
// - Strip punctuation, collapse whitespace
func NormalizeName(s string) string {
	s = NormalizeAbbreviations(s)

	var result strings.Builder
	prevSpace := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			result.WriteRune(r)
			prevSpace = false
		} else if unicode.IsSpace(r) {
			if !prevSpace {
				result.WriteRune(' ')
				prevSpace = true
			}
		}
	}

	return strings.TrimSpace(result.String())
}

// NormalizeAddress normalizes an address for identity comparison. Commas and
// repeated whitespace carry no identity, designators are canonicalized.
func NormalizeAddress(s string) string {
	s = strings.ReplaceAll(Fold(s), ",", " ")
	return NormalizeAbbreviations(CollapseWhitespace(s))
}

// NormalizePhone removes all non-digit characters from a phone number
func NormalizePhone(s string) string {
	var result strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}
