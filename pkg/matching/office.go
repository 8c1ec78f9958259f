// Package matching classifies incoming office and project records against an
// existing record set: duplicate of an existing record, similar enough to be
// suspicious, or genuinely new.
package matching

import (
	"github.com/mkalnins/bryony/pkg/models"
	"github.com/mkalnins/bryony/pkg/normalizers"
)

// OfficeMatcher resolves office identity. Offices carry stable identifiers,
// so matching is rule-based rather than scored: a shared place id, or an
// equal normalized name and address pair, means the same physical office.
type OfficeMatcher struct{}

// NewOfficeMatcher creates a new OfficeMatcher
func NewOfficeMatcher() *OfficeMatcher {
	return &OfficeMatcher{}
}

// Match classifies one incoming office against the existing set. It returns
// the index of the duplicate and true, or -1 and false when the office is
// new. Rules are evaluated in order, first match wins:
//  1. placeId present on both sides and equal
//  2. normalized name equal and normalized address equal
func (m *OfficeMatcher) Match(incoming models.Office, existing []models.Office) (int, bool) {
	if incoming.PlaceID != "" {
		for i := range existing {
			if existing[i].PlaceID != "" && existing[i].PlaceID == incoming.PlaceID {
				return i, true
			}
		}
	}

	name := normalizers.Fold(incoming.Name)
	address := normalizers.Fold(incoming.Address)
	if name == "" || address == "" {
		return -1, false
	}

	for i := range existing {
		if normalizers.Fold(existing[i].Name) == name &&
			normalizers.Fold(existing[i].Address) == address {
			return i, true
		}
	}

	return -1, false
}
