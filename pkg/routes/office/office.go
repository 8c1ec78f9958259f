package office

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	officerepo "github.com/mkalnins/bryony/internal/repositories/office"
	bryonycontext "github.com/mkalnins/bryony/pkg/context"
	"github.com/mkalnins/bryony/pkg/events"
	"github.com/mkalnins/bryony/pkg/merging"
	"github.com/mkalnins/bryony/pkg/models"
	"github.com/mkalnins/bryony/pkg/resolver"
)

var validate = validator.New()

// Register registers office routes
func Register(g *echo.Group) {
	g.GET("", ListOffices)
	g.GET("/:id", GetOffice)
	g.POST("/resolve", ResolveOffices)
	g.PATCH("/:id/user-data", ApplyUserEdit)
	g.DELETE("/:id", DeleteOffice)
}

// ListOffices returns a page of offices for the tenant
func ListOffices(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := bryonycontext.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant id is required")
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(c.QueryParam("page_size"))
	if pageSize < 1 || pageSize > 500 {
		pageSize = 50
	}

	ctx, repo, err := ectoinject.GetContext[*officerepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	offices, total, err := repo.List(ctx, tenantID, page, pageSize)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, models.OfficeListResponse{
		Items:      offices,
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
	})
}

// GetOffice returns a single office by unique id
func GetOffice(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := bryonycontext.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant id is required")
	}

	id := c.Param("id")

	ctx, repo, err := ectoinject.GetContext[*officerepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	office, err := repo.Get(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if office == nil {
		return httperror.NewHTTPError(http.StatusNotFound, "office not found")
	}

	return c.JSON(http.StatusOK, office)
}

// ResolveOffices resolves a re-scraped batch against the stored set and
// persists the merged result
func ResolveOffices(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := bryonycontext.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant id is required")
	}

	var req models.ResolveOfficesRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, repo, err := ectoinject.GetContext[*officerepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}
	ctx, res, err := ectoinject.GetContext[*resolver.Resolver](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	existing, err := repo.ListAll(ctx, tenantID)
	if err != nil {
		// Fail open: a lookup failure must not drop the batch.
		existing = nil
	}

	merged, statuses := res.ResolveOffices(existing, req.Offices)

	if err := repo.UpsertBatch(ctx, tenantID, merged); err != nil {
		return err
	}

	// Event publication is best effort on the HTTP path.
	ctx, emitter, _ := ectoinject.GetContext[*events.Emitter](ctx)
	_ = emitter.OfficesResolved(ctx, tenantID, bryonycontext.GetScrapeRunID(ctx), merged, statuses)

	return c.JSON(http.StatusOK, models.ResolveOfficesResponse{
		Offices:  merged,
		Statuses: statuses,
	})
}

// ApplyUserEdit writes the protected fields of one office
func ApplyUserEdit(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := bryonycontext.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant id is required")
	}

	id := c.Param("id")

	var req models.UserEditRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.ModifiedName == nil && req.CustomData == nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "modified_name or custom_data is required")
	}

	ctx, repo, err := ectoinject.GetContext[*officerepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	office, err := repo.Get(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if office == nil {
		return httperror.NewHTTPError(http.StatusNotFound, "office not found")
	}

	edited := merging.ApplyUserEdit(*office, req, time.Now().UTC())
	if err := repo.SaveUserEdit(ctx, tenantID, edited); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, edited)
}

// DeleteOffice soft-deletes an office
func DeleteOffice(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := bryonycontext.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant id is required")
	}

	id := c.Param("id")

	ctx, repo, err := ectoinject.GetContext[*officerepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	if err := repo.SoftDelete(ctx, tenantID, id); err != nil {
		return err
	}

	ctx, emitter, _ := ectoinject.GetContext[*events.Emitter](ctx)
	_ = emitter.OfficeDeleted(ctx, tenantID, id)

	return c.NoContent(http.StatusNoContent)
}
