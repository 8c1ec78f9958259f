// Package fingerprint produces deterministic content hashes used to detect
// whether a re-scrape actually changed anything.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"

	"github.com/mkalnins/bryony/pkg/models"
)

// Office fingerprints the scraped surface of an office: the fields a
// re-scrape may legitimately change. Protected fields and bookkeeping
// metadata are excluded so user edits and version bumps never register
// as content changes.
func Office(o models.Office) string {
	return Generate(map[string]any{
		"name":     strings.TrimSpace(o.Name),
		"address":  strings.TrimSpace(o.Address),
		"place_id": strings.TrimSpace(o.PlaceID),
		"category": strings.TrimSpace(o.Category),
		"phone":    strings.TrimSpace(o.Phone),
		"website":  strings.TrimSpace(o.Website),
	})
}

// Generate creates a deterministic fingerprint for a flat value map.
// The fingerprint is a SHA256 hash of the canonicalized JSON.
func Generate(data map[string]any) string {
	hash := sha256.Sum256([]byte(canonicalize(data)))
	return hex.EncodeToString(hash[:])
}

// HasChanged compares two fingerprints to detect changes
func HasChanged(oldFingerprint, newFingerprint string) bool {
	return oldFingerprint != newFingerprint
}

// canonicalize creates a deterministic string representation of a value by
// sorting map keys and recursing into nested structures.
func canonicalize(data any) string {
	switch v := data.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var sb strings.Builder
		sb.WriteString("{")
		for i, k := range keys {
			if i > 0 {
				sb.WriteString(",")
			}
			keyJSON, _ := json.Marshal(k)
			sb.Write(keyJSON)
			sb.WriteString(":")
			sb.WriteString(canonicalize(v[k]))
		}
		sb.WriteString("}")
		return sb.String()
	case []any:
		var sb strings.Builder
		sb.WriteString("[")
		for i, item := range v {
			if i > 0 {
				sb.WriteString(",")
			}
			sb.WriteString(canonicalize(item))
		}
		sb.WriteString("]")
		return sb.String()
	default:
		b, _ := json.Marshal(v)
		return string(b)
	}
}
