// Package analysis persists accumulated analysis documents.
package analysis

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/mkalnins/bryony/pkg/database"
	"github.com/mkalnins/bryony/pkg/models"
	"github.com/mkalnins/bryony/pkg/tracing"
)

const table = "analyses"

var columns = []string{
	"analysis_id", "tenant_id", "office_id", "document", "merge_history",
	"created_at", "updated_at",
}

// document holds the merged analysis content; merge_history is stored in its
// own column so it can be trimmed without rewriting the document.
type analysisRow struct {
	AnalysisID   string                                      `db:"analysis_id"`
	TenantID     string                                      `db:"tenant_id"`
	OfficeID     string                                      `db:"office_id"`
	Document     database.JSONB[models.AnalysisDocument]     `db:"document"`
	MergeHistory database.JSONB[[]models.MergeHistoryEntry]  `db:"merge_history"`
	CreatedAt    time.Time                                   `db:"created_at"`
	UpdatedAt    time.Time                                   `db:"updated_at"`
}

func (r analysisRow) toModel() models.AnalysisDocument {
	doc := r.Document.GetValue()
	doc.AnalysisID = r.AnalysisID
	doc.TenantID = r.TenantID
	doc.OfficeID = r.OfficeID
	doc.MergeHistory = r.MergeHistory.GetValue()
	doc.CreatedAt = r.CreatedAt
	doc.UpdatedAt = r.UpdatedAt
	return doc
}

// Repository handles analysis document persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new analysis repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

// Get returns the analysis document by id, or nil when none exists yet.
func (r *Repository) Get(ctx context.Context, tenantID, analysisID string) (*models.AnalysisDocument, error) {
	ctx, span := tracing.StartSpan(ctx, "analysis.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	sb.Where(sb.Equal("tenant_id", tenantID), sb.Equal("analysis_id", analysisID))

	query, args := sb.Build()
	var row analysisRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"tenant_id": tenantID, "analysis_id": analysisID}).Error("Failed to get analysis")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get analysis")
	}

	doc := row.toModel()
	return &doc, nil
}

// GetByOffice returns the analysis document for an office, or nil.
func (r *Repository) GetByOffice(ctx context.Context, tenantID, officeID string) (*models.AnalysisDocument, error) {
	ctx, span := tracing.StartSpan(ctx, "analysis.Repository.GetByOffice")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	sb.Where(sb.Equal("tenant_id", tenantID), sb.Equal("office_id", officeID))
	sb.OrderBy("updated_at DESC")
	sb.Limit(1)

	query, args := sb.Build()
	var row analysisRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"tenant_id": tenantID, "office_id": officeID}).Error("Failed to get analysis by office")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get analysis")
	}

	doc := row.toModel()
	return &doc, nil
}

// Upsert writes the merged document back, keyed on (tenant_id, analysis_id).
func (r *Repository) Upsert(ctx context.Context, tenantID string, doc models.AnalysisDocument) error {
	ctx, span := tracing.StartSpan(ctx, "analysis.Repository.Upsert")
	defer span.End()

	ib := database.NewInsertBuilder().
		InsertInto(table).
		Cols("analysis_id", "tenant_id", "office_id", "document", "merge_history", "created_at", "updated_at").
		Values(doc.AnalysisID, tenantID, doc.OfficeID,
			database.JSONB[models.AnalysisDocument]{Data: doc},
			database.JSONB[[]models.MergeHistoryEntry]{Data: doc.MergeHistory},
			doc.CreatedAt, doc.UpdatedAt)

	ub := ib.OnConflict("tenant_id", "analysis_id")
	ub.Set(
		ub.Assign("office_id", database.Excluded("office_id")),
		ub.Assign("document", database.Excluded("document")),
		ub.Assign("merge_history", database.Excluded("merge_history")),
		ub.Assign("updated_at", database.Excluded("updated_at")),
	)

	query, args := ib.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"tenant_id": tenantID, "analysis_id": doc.AnalysisID}).Error("Failed to upsert analysis")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to upsert analysis")
	}
	return nil
}

// TrimMergeHistory keeps only the newest maxEntries history entries. The
// merge path appends without bound; this is the external truncation hook.
func (r *Repository) TrimMergeHistory(ctx context.Context, tenantID, analysisID string, maxEntries int) error {
	ctx, span := tracing.StartSpan(ctx, "analysis.Repository.TrimMergeHistory")
	defer span.End()

	if maxEntries <= 0 {
		return nil
	}

	doc, err := r.Get(ctx, tenantID, analysisID)
	if err != nil {
		return err
	}
	if doc == nil {
		return httperror.NewHTTPError(http.StatusNotFound, "analysis not found")
	}
	if len(doc.MergeHistory) <= maxEntries {
		return nil
	}

	trimmed := doc.MergeHistory[len(doc.MergeHistory)-maxEntries:]

	ub := database.NewUpdateBuilder()
	ub.Update(table)
	ub.Set(ub.Assign("merge_history", database.JSONB[[]models.MergeHistoryEntry]{Data: trimmed}))
	ub.Where(ub.Equal("tenant_id", tenantID), ub.Equal("analysis_id", analysisID))

	query, args := ub.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"tenant_id": tenantID, "analysis_id": analysisID}).Error("Failed to trim merge history")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to trim merge history")
	}
	return nil
}
