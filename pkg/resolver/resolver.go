// Package resolver exposes the two core operations: resolving a batch of
// re-scraped offices against the existing set, and merging one analysis run
// into an office's accumulated analysis document.
//
// The resolver is pure: it performs no I/O, holds no locks, and takes its
// clock from Options, so callers can run it inside their own transaction
// boundary and retry freely. Runs for different
// offices share no state and can be fanned out; projects within one office
// are matched sequentially against the in-progress merged list.
package resolver

import (
	"time"

	"github.com/mkalnins/bryony/pkg/matching"
	"github.com/mkalnins/bryony/pkg/merging"
	"github.com/mkalnins/bryony/pkg/models"
)

// Options configure a Resolver.
type Options struct {
	// Clock supplies the timestamps written into merged records. Defaults
	// to time.Now.
	Clock func() time.Time
	// VersionMode selects whether dataVersion records "a rescrape happened"
	// (VersionOnRescrape, the default) or "a value changed"
	// (VersionOnChange).
	VersionMode merging.VersionMode
}

// Resolver matches and merges incoming batches against existing snapshots.
type Resolver struct {
	clock          func() time.Time
	officeMatcher  *matching.OfficeMatcher
	officeMerger   *merging.OfficeMerger
	analysisMerger *merging.AnalysisMerger
}

// New creates a Resolver with the given options.
func New(opts Options) *Resolver {
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	mode := opts.VersionMode
	if !mode.Valid() {
		mode = merging.VersionOnRescrape
	}

	return &Resolver{
		clock:          clock,
		officeMatcher:  matching.NewOfficeMatcher(),
		officeMerger:   merging.NewOfficeMerger(mode),
		analysisMerger: merging.NewAnalysisMerger(),
	}
}

// ResolveOffices classifies each incoming office against the existing set
// and produces the merged set plus a per-record status. Duplicates merge
// into their existing record; new offices are appended at version 1.
// Incoming records are also matched against offices merged earlier in the
// same batch, so a batch that repeats an office does not create duplicates.
// Each status carries the stored record's unique id, which can differ from
// the incoming one when a rescrape matched on other identity fields.
func (r *Resolver) ResolveOffices(existing, incoming []models.Office) ([]models.Office, []models.OfficeStatus) {
	now := r.clock()

	merged := make([]models.Office, len(existing))
	copy(merged, existing)

	statuses := make([]models.OfficeStatus, 0, len(incoming))

	for _, office := range incoming {
		idx, found := r.officeMatcher.Match(office, merged)
		if found {
			merged[idx] = r.officeMerger.Merge(merged[idx], office, now)
		} else {
			idx = len(merged)
			merged = append(merged, r.officeMerger.NewRecord(office, now))
		}
		statuses = append(statuses, models.OfficeStatus{
			UniqueID:          merged[idx].UniqueID,
			ExistedInDatabase: found,
		})
	}

	return merged, statuses
}

// ResolveAndMergeAnalysis merges one run's analysis input into the existing
// document, creating it when existing is nil. The returned feedback report
// is also appended to the document's merge history.
func (r *Resolver) ResolveAndMergeAnalysis(existing *models.AnalysisDocument, input models.AnalysisInput, analysisID string) (models.AnalysisDocument, models.FeedbackReport) {
	return r.analysisMerger.Merge(existing, input, analysisID, r.clock())
}
