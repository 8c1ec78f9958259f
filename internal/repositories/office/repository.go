// Package office persists office records.
package office

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

const table = "offices"

var columns = []string{
	"unique_id", "tenant_id", "name", "address", "place_id", "category",
	"phone", "website", "modified_name", "custom_data", "metadata",
	"created_at", "updated_at", "deleted_at",
}

// officeRow is the offices table row shape. custom_data and metadata are
// jsonb columns.
type officeRow struct {
	UniqueID     string                                 `db:"unique_id"`
	TenantID     string                                 `db:"tenant_id"`
	Name         string                                 `db:"name"`
	Address      string                                 `db:"address"`
	PlaceID      string                                 `db:"place_id"`
	Category     string                                 `db:"category"`
	Phone        string                                 `db:"phone"`
	Website      string                                 `db:"website"`
	ModifiedName string                                 `db:"modified_name"`
	CustomData   database.JSONB[map[string]any]         `db:"custom_data"`
	Metadata     database.JSONB[models.OfficeMetadata]  `db:"metadata"`
	CreatedAt    time.Time                              `db:"created_at"`
	UpdatedAt    time.Time                              `db:"updated_at"`
	DeletedAt    *time.Time                             `db:"deleted_at"`
}

func (r officeRow) toModel() models.Office {
	return models.Office{
		UniqueID:     r.UniqueID,
		TenantID:     r.TenantID,
		Name:         r.Name,
		Address:      r.Address,
		PlaceID:      r.PlaceID,
		Category:     r.Category,
		Phone:        r.Phone,
		Website:      r.Website,
		ModifiedName: r.ModifiedName,
		CustomData:   r.CustomData.GetValue(),
		Metadata:     r.Metadata.GetValue(),
	}
}

// Repository handles office persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new office repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

// ListAll returns every non-deleted office for a tenant. The resolver
// matches incoming batches against this full set.
func (r *Repository) ListAll(ctx context.Context, tenantID string) ([]models.Office, error) {
	ctx, span := tracing.StartSpan(ctx, "office.Repository.ListAll")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	sb.Where(sb.Equal("tenant_id", tenantID), sb.IsNull("deleted_at"))
	sb.OrderBy("created_at ASC")

	query, args := sb.Build()
	var rows []officeRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("tenant_id", tenantID).Error("Failed to list offices")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list offices")
	}

	offices := make([]models.Office, 0, len(rows))
	for _, row := range rows {
		offices = append(offices, row.toModel())
	}
	return offices, nil
}

// List returns a page of offices plus the total count.
func (r *Repository) List(ctx context.Context, tenantID string, page, pageSize int) ([]models.Office, int, error) {
	ctx, span := tracing.StartSpan(ctx, "office.Repository.List")
	defer span.End()

	countSb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	countSb.Select("COUNT(*)")
	countSb.From(table)
	countSb.Where(countSb.Equal("tenant_id", tenantID), countSb.IsNull("deleted_at"))

	query, args := countSb.Build()
	var totalCount int
	if err := r.db.GetContext(ctx, &totalCount, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("tenant_id", tenantID).Error("Failed to count offices")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count offices")
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	sb.Where(sb.Equal("tenant_id", tenantID), sb.IsNull("deleted_at"))
	sb.OrderBy("name ASC")
	sb.Limit(pageSize)
	sb.Offset((page - 1) * pageSize)

	query, args = sb.Build()
	var rows []officeRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("tenant_id", tenantID).Error("Failed to list offices")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list offices")
	}

	offices := make([]models.Office, 0, len(rows))
	for _, row := range rows {
		offices = append(offices, row.toModel())
	}
	return offices, totalCount, nil
}

// Get returns one office by unique id, or nil when it does not exist.
func (r *Repository) Get(ctx context.Context, tenantID, uniqueID string) (*models.Office, error) {
	ctx, span := tracing.StartSpan(ctx, "office.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	sb.Where(sb.Equal("tenant_id", tenantID), sb.Equal("unique_id", uniqueID), sb.IsNull("deleted_at"))

	query, args := sb.Build()
	var row officeRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"tenant_id": tenantID, "unique_id": uniqueID}).Error("Failed to get office")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get office")
	}

	office := row.toModel()
	return &office, nil
}

// UpsertBatch writes a resolved batch in one transaction. Conflicts on
// (tenant_id, unique_id) update the scraped columns; the protected columns
// modified_name and custom_data are never touched by this path.
func (r *Repository) UpsertBatch(ctx context.Context, tenantID string, offices []models.Office) error {
	ctx, span := tracing.StartSpan(ctx, "office.Repository.UpsertBatch")
	defer span.End()

	if len(offices) == 0 {
		return nil
	}

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	now := time.Now().UTC()
	for _, office := range offices {
		ib := database.NewInsertBuilder().
			InsertInto(table).
			Cols("unique_id", "tenant_id", "name", "address", "place_id", "category",
				"phone", "website", "modified_name", "custom_data", "metadata",
				"created_at", "updated_at").
			Values(office.UniqueID, tenantID, office.Name, office.Address, office.PlaceID,
				office.Category, office.Phone, office.Website, office.ModifiedName,
				database.JSONB[map[string]any]{Data: office.CustomData},
				database.JSONB[models.OfficeMetadata]{Data: office.Metadata},
				now, now)

		ub := ib.OnConflict("tenant_id", "unique_id")
		ub.Set(
			ub.Assign("name", database.Excluded("name")),
			ub.Assign("address", database.Excluded("address")),
			ub.Assign("place_id", database.Excluded("place_id")),
			ub.Assign("category", database.Excluded("category")),
			ub.Assign("phone", database.Excluded("phone")),
			ub.Assign("website", database.Excluded("website")),
			ub.Assign("metadata", database.Excluded("metadata")),
			ub.Assign("updated_at", database.Excluded("updated_at")),
			ub.Assign("deleted_at", nil),
		)

		query, args := ib.Build()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"tenant_id": tenantID, "unique_id": office.UniqueID}).Error("Failed to upsert office")
			return httperror.NewHTTPError(http.StatusInternalServerError, "failed to upsert office")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to commit offices")
	}
	return nil
}

// SaveUserEdit persists the protected columns for one office.
func (r *Repository) SaveUserEdit(ctx context.Context, tenantID string, office models.Office) error {
	ctx, span := tracing.StartSpan(ctx, "office.Repository.SaveUserEdit")
	defer span.End()

	ub := database.NewUpdateBuilder()
	ub.Update(table)
	ub.Set(
		ub.Assign("modified_name", office.ModifiedName),
		ub.Assign("custom_data", database.JSONB[map[string]any]{Data: office.CustomData}),
		ub.Assign("metadata", database.JSONB[models.OfficeMetadata]{Data: office.Metadata}),
		ub.Assign("updated_at", time.Now().UTC()),
	)
	ub.Where(ub.Equal("tenant_id", tenantID), ub.Equal("unique_id", office.UniqueID), ub.IsNull("deleted_at"))

	query, args := ub.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"tenant_id": tenantID, "unique_id": office.UniqueID}).Error("Failed to save user edit")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to save user edit")
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, "office not found")
	}
	return nil
}

// SoftDelete marks an office deleted. Deletion is never done by the merge
// path, only by this explicit operation.
func (r *Repository) SoftDelete(ctx context.Context, tenantID, uniqueID string) error {
	ctx, span := tracing.StartSpan(ctx, "office.Repository.SoftDelete")
	defer span.End()

	ub := database.NewUpdateBuilder()
	ub.Update(table)
	ub.Set(ub.Assign("deleted_at", time.Now().UTC()))
	ub.Where(ub.Equal("tenant_id", tenantID), ub.Equal("unique_id", uniqueID), ub.IsNull("deleted_at"))

	query, args := ub.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"tenant_id": tenantID, "unique_id": uniqueID}).Error("Failed to delete office")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete office")
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, "office not found")
	}
	return nil
}
